// Package cli implements the CLI adapter for overviews.
// This package provides Cobra commands that delegate to the app layer.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/jupyter/overviews/internal/app"
)

var (
	// Version information (set at build time)
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// globalFlags are shared by every command.
type globalFlags struct {
	configPath string
	envFile    string
}

// NewRootCmd creates the root command. Each call gets its own viper
// instance so flag bindings never leak between invocations.
func NewRootCmd() *cobra.Command {
	v := viper.New()
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "overviews",
		Short: "Publish image READMEs as container registry overviews",
		Long: `overviews pushes images/<name>/README.md of every declared image to the
overview of its registry repository (quay.io/<owner>/<name> by default).

A run only proceeds for manual dispatches, or for pushes to the configured
branch that touch an overview or the workflow itself, and only when the
repository owner is on the allow-list.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "Path to config file (default ./overviews.yaml)")
	pf.StringVar(&flags.envFile, "env-file", ".env", "Path to a dotenv file")
	pf.String("log-level", "info", "Log level (trace, debug, info, warn, error)")
	pf.String("log-format", "console", "Log format (console, json)")
	bindFlags(v, pf, map[string]string{
		"logging.level":  "log-level",
		"logging.format": "log-format",
	})

	rootCmd.AddCommand(newSyncCmd(v, flags))
	rootCmd.AddCommand(newCheckCmd(v, flags))
	rootCmd.AddCommand(newTargetsCmd(v, flags))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

// SetVersionInfo sets the version information for the CLI.
func SetVersionInfo(version, commit, date string) {
	Version = version
	Commit = commit
	BuildDate = date
}

func bindFlags(v *viper.Viper, fs *pflag.FlagSet, keys map[string]string) {
	for key, name := range keys {
		if err := v.BindPFlag(key, fs.Lookup(name)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", name, err))
		}
	}
}

// newApp wires the application for a command.
func newApp(cmd *cobra.Command, v *viper.Viper, flags *globalFlags) (*app.App, error) {
	return app.New(cmd.Context(), v, app.Options{
		ConfigPath: flags.configPath,
		EnvFile:    flags.envFile,
		Version:    Version,
		Stderr:     cmd.ErrOrStderr(),
	})
}

// triggerFlags are the flags describing the triggering event.
type triggerFlags struct {
	input app.TriggerInput
}

func (t *triggerFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&t.input.Event, "event", "", "Event kind (push, workflow_dispatch); read from GitHub Actions when empty")
	fs.StringVar(&t.input.Branch, "branch", "", "Branch the event happened on")
	fs.StringVar(&t.input.Owner, "owner", "", "Repository owner")
	fs.StringSliceVar(&t.input.Changed, "changed", nil, "Changed paths of a push (repeatable)")
	fs.StringVar(&t.input.DiffBase, "diff-base", "", "Compute changed paths from <rev>..HEAD of the local checkout")
}
