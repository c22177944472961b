package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/megamake/roleplay/internal/app/wiring"
	"github.com/megamake/roleplay/internal/platform/logging"
)

func newVerifyCmd(opts *globalOptions) *cobra.Command {
	var listModels bool

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check that the configured API key works",
		Long: `Check the configured credential by listing the models it can see.
With --models, print them.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd, nil)
			if err != nil {
				return err
			}
			ctr, err := wiring.New(cfg, logging.New(cmd.ErrOrStderr(), cfg.Logging.Level))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			vr, err := ctr.Sim.Verify(cmd.Context())
			if err != nil {
				fmt.Fprintf(out, "%s %s: %s\n", color.RedString("FAIL"), vr.Provider, vr.Message)
				return err
			}
			fmt.Fprintf(out, "%s %s: %s\n", color.GreenString("OK"), vr.Provider, vr.Message)

			if !listModels {
				return nil
			}
			res, err := ctr.Sim.ListModels(cmd.Context())
			if err != nil {
				return err
			}
			for _, m := range res.Models {
				fmt.Fprintln(out, m.ID)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&listModels, "models", false, "also list the visible models")
	return cmd
}
