package cli

import (
	"github.com/spf13/cobra"
)

func newLogsCommand(a *app) *cobra.Command {
	var (
		follow bool
		tail   string
	)

	cmd := &cobra.Command{
		Use:   "logs <service>",
		Short: "Print a service's output",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stack, err := a.loadStack()
			if err != nil {
				return err
			}
			if err := requireService(stack, args[0]); err != nil {
				return err
			}

			p, err := a.platform()
			if err != nil {
				return err
			}
			defer p.Close()

			return p.Logs(cmd.Context(), a.cfg.Project, args[0], follow, tail, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().BoolVar(&follow, "follow", false, "keep streaming new output")
	cmd.Flags().StringVar(&tail, "tail", "all", "number of lines to show from the end")
	return cmd
}
