package cli

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// newVersionCmd creates the version command.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			w := cmd.OutOrStdout()
			_, _ = color.New(color.FgGreen, color.Bold).Fprintf(w, "overviews %s\n", Version)
			_, _ = color.New(color.FgHiBlack).Fprintf(w, "Commit: %s\nBuild Date: %s\n", Commit, BuildDate)
		},
	}
}
