package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/megamake/roleplay/internal/domains/sim/domain"
)

func newPersonaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "persona",
		Short: "Print the character definition sent as the first turn",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), domain.PersonaTurn().Content)
			return err
		},
	}
}
