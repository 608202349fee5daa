package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jupyter/overviews/internal/adapters/in/cli/ui/styles"
)

func newCheckCmd(v *viper.Viper, flags *globalFlags) *cobra.Command {
	tf := &triggerFlags{}

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Show whether the trigger would run the sync",
		Long: `Evaluate the trigger and the owner allow-list without publishing anything.
Useful to debug why a push did or did not update the overviews.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
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

			decision := a.Service.Evaluate(tc)
			w := cmd.OutOrStdout()

			lines := []string{
				cliRenderMeta("event:", string(tc.Kind)),
				cliRenderMeta("branch:", tc.Branch),
				cliRenderMeta("owner:", tc.Owner),
				cliRenderMeta("changed:", strings.Join(tc.ChangedPaths, ", ")),
				cliRenderMeta("should run:", yesNo(decision.ShouldRun)),
				cliRenderMeta("authorized:", yesNo(decision.Authorized)),
			}
			for _, line := range lines {
				if err := cliWriteLine(w, line); err != nil {
					return err
				}
			}

			if decision.Proceed() {
				return cliWriteLine(w, styles.RenderSuccess(fmt.Sprintf("sync would publish %d overviews", len(a.Service.EnumerateTargets()))))
			}
			return cliWriteLine(w, styles.RenderWarning("sync would skip: "+decision.Err().Error()))
		},
	}

	tf.register(cmd.Flags())
	return cmd
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
