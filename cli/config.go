package cli

import (
	"github.com/ezenkico/deploy-commander/vectorstack/services/descriptor"
	"github.com/spf13/cobra"
)

func newConfigCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Validate the descriptor and print it with variables resolved",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stack, err := a.loadStack()
			if err != nil {
				return err
			}

			if a.cfg.Output == "json" {
				return writeJSON(cmd.OutOrStdout(), stack)
			}

			b, err := descriptor.Render(stack)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(b)
			return err
		},
	}
}
