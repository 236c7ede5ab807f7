package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newVolumeCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "volume",
		Short: "Manage the stack's named volumes",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "rm <volume>...",
		Short: "Remove named volumes and the data in them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stack, err := a.loadStack()
			if err != nil {
				return err
			}
			for _, v := range args {
				if !stack.HasVolume(v) {
					return fmt.Errorf("unknown volume %q", v)
				}
			}

			p, err := a.platform()
			if err != nil {
				return err
			}
			defer p.Close()

			if err := p.RemoveVolumes(cmd.Context(), a.cfg.Project, args); err != nil {
				return err
			}
			for _, v := range args {
				fmt.Fprintf(cmd.OutOrStdout(), "volume %s removed\n", v)
			}
			return nil
		},
	})

	return cmd
}
