package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jupyter/overviews/internal/adapters/in/cli/ui/styles"
	"github.com/jupyter/overviews/internal/domain"
)

func newSyncCmd(v *viper.Viper, flags *globalFlags) *cobra.Command {
	tf := &triggerFlags{}

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Publish every overview when the trigger allows it",
		Long: `Evaluate the trigger, then publish the README of every declared image to
its registry overview. All targets run independently under one batch timeout;
a failed target does not stop the others unless --fail-fast is set.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSync(cmd, v, flags, tf)
		},
	}

	fs := cmd.Flags()
	tf.register(fs)
	fs.Bool("dry-run", false, "Read and validate every overview without publishing")
	fs.Bool("fail-fast", false, "Cancel remaining targets after the first failure")
	fs.Int("parallelism", 0, "Maximum concurrent publishes (0 = all targets at once)")
	fs.Duration("timeout", time.Minute, "Batch timeout")
	fs.StringSlice("target", nil, "Restrict the run to these image names (repeatable)")
	fs.String("registry-owner", "", "Publish under this namespace instead of the repository owner")
	bindFlags(v, fs, map[string]string{
		"sync.dry_run":     "dry-run",
		"sync.fail_fast":   "fail-fast",
		"sync.parallelism": "parallelism",
		"sync.timeout":     "timeout",
		"sync.targets":     "target",
		"registry.owner":   "registry-owner",
	})

	return cmd
}

func runSync(cmd *cobra.Command, v *viper.Viper, flags *globalFlags, tf *triggerFlags) error {
	a, err := newApp(cmd, v, flags)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close(context.WithoutCancel(cmd.Context())) }()

	ctx := a.Context(cmd.Context())
	tc, err := a.ResolveTrigger(ctx, tf.input, nil)
	if err != nil {
		return err
	}

	report, syncErr := a.Service.Sync(ctx, tc)
	if report != nil {
		if err := printReport(cmd.OutOrStdout(), report); err != nil {
			return err
		}
	}
	return syncErr
}

func printReport(w io.Writer, report *domain.Report) error {
	if report.Skipped() {
		return cliWriteLine(w, styles.RenderWarning("skipped: "+report.Decision.Reason))
	}

	for _, o := range report.Outcomes {
		line := fmt.Sprintf("%s %s %s", styles.RenderBadge(string(o.Status)), o.Destination,
			cliRenderMuted(o.Duration.Round(time.Millisecond).String()))
		if o.Err != nil {
			line += " " + cliRenderMuted(o.Err.Error())
		}
		if err := cliWriteLine(w, line); err != nil {
			return err
		}
	}

	summary := fmt.Sprintf("%d succeeded, %d failed, %d abandoned",
		len(report.Succeeded()), len(report.Failed()), len(report.Abandoned()))
	if len(report.Failed())+len(report.Abandoned()) > 0 {
		return cliWriteLine(w, styles.RenderError(summary))
	}
	return cliWriteLine(w, styles.RenderSuccess(summary))
}
