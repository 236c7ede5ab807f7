package cli

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/ezenkico/deploy-commander/vectorstack/interfaces"
	"github.com/ezenkico/deploy-commander/vectorstack/models"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newUpCommand(a *app) *cobra.Command {
	var (
		wait    bool
		timeout time.Duration
		watch   bool
	)

	cmd := &cobra.Command{
		Use:   "up",
		Short: "Create or update the stack",
		Long: `Create the project network and volumes, then start the services in
dependency order. Services whose configuration did not change keep running.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("timeout") {
				a.cfg.Wait = timeout
			}

			p, err := a.platform()
			if err != nil {
				return err
			}
			defer p.Close()

			apply := func(ctx context.Context) error {
				stack, err := a.loadStack()
				if err != nil {
					return err
				}
				if err := p.Run(ctx, a.configuration(models.ActionUp, stack, wait)); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "stack %s is up (%d services)\n", a.cfg.Project, len(stack.Services))
				return nil
			}

			if err := apply(cmd.Context()); err != nil {
				return err
			}
			if !watch {
				return nil
			}

			paths := a.watchPaths()
			if len(paths) == 0 {
				return fmt.Errorf("--watch needs a descriptor file or an env file")
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "watching %v, press Ctrl+C to stop\n", paths)
			return watchFiles(cmd.Context(), paths, watchDebounce, func() {
				if err := apply(cmd.Context()); err != nil {
					slog.Error("re-apply failed", "error", err)
				}
			})
		},
	}

	cmd.Flags().BoolVar(&wait, "wait", false, "wait until every service is running and healthy")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "bound on each readiness wait (default from config)")
	cmd.Flags().BoolVar(&watch, "watch", false, "re-apply when the descriptor or env file changes")

	return cmd
}

func newDownCommand(a *app) *cobra.Command {
	var volumes bool

	cmd := &cobra.Command{
		Use:   "down",
		Short: "Remove the stack's containers and network",
		Long:  "Remove the stack's containers and network. Named volumes and their data are kept unless --volumes is given.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.resolveProject(); err != nil {
				return err
			}
			p, err := a.platform()
			if err != nil {
				return err
			}
			defer p.Close()

			cfg := a.configuration(models.ActionDown, nil, false)
			cfg.RemoveVolumes = volumes
			if err := p.Run(cmd.Context(), cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "stack %s is down\n", a.cfg.Project)
			return nil
		},
	}

	cmd.Flags().BoolVar(&volumes, "volumes", false, "also remove named volumes (deletes stored data)")
	return cmd
}

func newPullCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "pull",
		Short: "Pull every image the stack uses",
		Args:  cobra.NoArgs,
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

			return p.Run(cmd.Context(), a.configuration(models.ActionPull, stack, false))
		},
	}
}

// newServiceCommand builds start, stop and restart, which differ only in
// the platform call.
func newServiceCommand(
	a *app,
	use string,
	short string,
	op func(interfaces.Platform, context.Context, string, string) error,
) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <service>",
		Short: short,
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

			if err := op(p, cmd.Context(), a.cfg.Project, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s done\n", args[0], use)
			return nil
		},
	}
}

func (a *app) configuration(action models.Action, stack *models.Stack, wait bool) models.Configuration {
	return models.Configuration{
		Project:     a.cfg.Project,
		Run:         uuid.New(),
		Platform:    a.cfg.Platform,
		Action:      action,
		Wait:        wait,
		WaitTimeout: a.cfg.Wait,
		Stack:       stack,
	}
}

func (a *app) watchPaths() []string {
	var paths []string
	if a.cfg.File != "" {
		paths = append(paths, a.cfg.File)
	}
	switch {
	case a.cfg.EnvFile != "":
		paths = append(paths, a.cfg.EnvFile)
	case a.cfg.File != "":
		paths = append(paths, filepath.Join(filepath.Dir(a.cfg.File), ".env"))
	}
	return paths
}
