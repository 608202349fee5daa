package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/jupyter/overviews/internal/domain"
)

// targetView is the machine-readable form of a target.
type targetView struct {
	Name        string `yaml:"name"`
	Source      string `yaml:"source"`
	Destination string `yaml:"destination"`
}

func newTargetsCmd(v *viper.Viper, flags *globalFlags) *cobra.Command {
	var owner, output string

	cmd := &cobra.Command{
		Use:   "targets",
		Short: "List the declared images with their source and destination",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if output != "text" && output != "yaml" {
				return fmt.Errorf("%w: unknown output format %q", domain.ErrInvalidConfig, output)
			}

			a, err := newApp(cmd, v, flags)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close(context.WithoutCancel(cmd.Context())) }()

			if owner == "" {
				owner = a.Config.Registry.Owner
			}
			if owner == "" {
				owner = a.Config.Trigger.AllowedOwners[0]
			}

			layout := a.Config.Layout()
			targets := a.Service.EnumerateTargets()
			views := make([]targetView, 0, len(targets))
			for _, t := range targets {
				views = append(views, targetView{
					Name:        t.Name,
					Source:      t.SourcePath(layout),
					Destination: t.Destination(layout, owner),
				})
			}

			if output == "yaml" {
				return writeYAML(cmd.OutOrStdout(), views)
			}
			return writeTargets(cmd.OutOrStdout(), views)
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "Namespace used in destinations (default: registry.owner or the first allowed owner)")
	cmd.Flags().StringVarP(&output, "output", "o", "text", "Output format (text, yaml)")
	return cmd
}

func writeTargets(w io.Writer, views []targetView) error {
	if err := cliWriteLine(w, cliRenderTitle(fmt.Sprintf("%d targets", len(views)))); err != nil {
		return err
	}
	for _, t := range views {
		line := cliRenderListItem(t.Name) + " " + cliRenderMuted(t.Source+" -> "+t.Destination)
		if err := cliWriteLine(w, line); err != nil {
			return err
		}
	}
	return nil
}

func writeYAML(w io.Writer, views []targetView) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(map[string][]targetView{"targets": views}); err != nil {
		return fmt.Errorf("failed to encode targets: %w", err)
	}
	return enc.Close()
}
