package docker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ezenkico/deploy-commander/vectorstack/models"
	"github.com/ezenkico/deploy-commander/vectorstack/services/agent"

	"github.com/moby/moby/client"
)

// DockerPlatform implements interfaces.Platform for plain Docker (Engine API).
type DockerPlatform struct {
	client *client.Client
	comm   *agent.AgentCommunication
	log    *slog.Logger
}

// NewDockerPlatform initializes the Docker platform using environment variables
// (e.g. DOCKER_HOST) and API version negotiation. comm may be nil.
func NewDockerPlatform(comm *agent.AgentCommunication) (*DockerPlatform, error) {
	c, err := client.New(
		client.FromEnv,
	)
	if err != nil {
		return nil, err
	}

	return &DockerPlatform{
		client: c,
		comm:   comm,
		log:    slog.Default().With("platform", "docker"),
	}, nil
}

func (p *DockerPlatform) Close() error {
	return p.client.Close()
}

// Run executes the requested action for the given configuration.
func (p *DockerPlatform) Run(ctx context.Context, config models.Configuration) error {
	project := ProjectName(config.Project)
	if project == "" {
		return fmt.Errorf("project name %q is empty after normalization", config.Project)
	}

	switch config.Action {
	case models.ActionDown:
		return p.Teardown(ctx, project, config.RemoveVolumes)

	case models.ActionPull:
		if config.Stack == nil {
			return fmt.Errorf("pull needs a descriptor")
		}
		return p.Pull(ctx, config.Stack)

	case models.ActionUp:
		stack := config.Stack
		if stack == nil {
			return fmt.Errorf("up needs a descriptor")
		}
		if err := p.CheckStack(ctx, project, stack); err != nil {
			return err
		}
		if err := p.NetworkSetup(ctx, project, config.Run, stack); err != nil {
			return err
		}
		if err := p.VolumeSetup(ctx, project, config.Run, stack); err != nil {
			return err
		}
		if err := p.ServiceSetup(ctx, project, config, stack); err != nil {
			return err
		}
		return p.RemoveOrphans(ctx, project, stack)

	default:
		return fmt.Errorf("%q is not a valid action", config.Action)
	}
}
