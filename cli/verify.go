package cli

import (
	"fmt"
	"time"

	"github.com/ezenkico/deploy-commander/vectorstack/services/verify"
	"github.com/ezenkico/deploy-commander/vectorstack/services/weaviate"
	"github.com/spf13/cobra"
)

func newVerifyCommand(a *app) *cobra.Command {
	var host string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check that the running stack matches the descriptor and answers requests",
		Long: `Check that the running stack matches the descriptor and answers requests.

The checks cover running containers, declared volumes, health of the
inference and vector store services, readiness and liveness of the vector
store on its published port, anonymous access, and the loaded vectorizer
module.

Whether vectorization actually depends on the embedding service is not
checked. Confirm it by hand: run "vectorstack stop t2v-transformers", see
that vectorizing writes fail, then run "vectorstack start t2v-transformers".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stack, err := a.loadStack()
			if err != nil {
				return err
			}

			p, err := a.platform()
			if err != nil {
				return err
			}
			defer p.Close()

			st, err := p.Status(cmd.Context(), a.cfg.Project)
			if err != nil {
				return err
			}

			v := &verify.Verifier{
				Store:   weaviate.New(10 * time.Second),
				Host:    host,
				Timeout: a.cfg.Wait,
			}
			report, err := v.Verify(cmd.Context(), stack, st)
			if err != nil {
				return err
			}

			if a.cfg.Output == "json" {
				if err := writeJSON(cmd.OutOrStdout(), report); err != nil {
					return err
				}
			} else {
				for _, c := range report.Checks {
					mark, style := "ok", okStyle
					if !c.OK {
						mark, style = "FAIL", badStyle
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s %-16s %s\n", style.Render(fmt.Sprintf("%-4s", mark)), c.Name, c.Detail)
				}
			}
			return report.Err()
		},
	}

	cmd.Flags().StringVar(&host, "host", "localhost", "host the published ports are reached on")
	return cmd
}
