package docker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/containerd/errdefs"
	"github.com/ezenkico/deploy-commander/vectorstack/models"
	"github.com/sethvargo/go-retry"

	"github.com/moby/moby/api/types/container"
	"github.com/moby/moby/client"
)

const (
	waitInterval       = time.Second
	defaultWaitTimeout = 5 * time.Minute
)

var (
	errNoHealthcheck = errors.New("container has no healthcheck")
	errUnhealthy     = errors.New("container is unhealthy")
)

// WaitForService polls the service container until it satisfies cond or
// timeout elapses.
func (p *DockerPlatform) WaitForService(
	ctx context.Context,
	project string,
	service string,
	cond models.DependencyCondition,
	timeout time.Duration,
) error {
	if timeout <= 0 {
		timeout = defaultWaitTimeout
	}
	name := DockerServiceName(project, service)

	b := retry.WithMaxDuration(timeout, retry.NewConstant(waitInterval))

	var last error
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		res, err := p.client.ContainerInspect(ctx, name, client.ContainerInspectOptions{})
		if err != nil {
			if errdefs.IsNotFound(err) {
				last = fmt.Errorf("container %q does not exist yet", name)
				return retry.RetryableError(last)
			}
			return fmt.Errorf("inspect container %q: %w", name, err)
		}

		met, err := conditionMet(res.Container.State, cond)
		if err != nil {
			return fmt.Errorf("service %q: %w", service, err)
		}
		if !met {
			last = fmt.Errorf("service %q is %s", service, describeState(res.Container.State))
			return retry.RetryableError(last)
		}
		return nil
	})
	if err != nil {
		if last != nil && errors.Is(err, last) {
			return fmt.Errorf("timed out after %s waiting for %s: %w", timeout, cond, last)
		}
		return err
	}

	p.log.Debug("service ready", "service", service, "condition", cond)
	return nil
}

// conditionMet reports whether state satisfies cond. An error means the
// condition can never be met without intervention.
func conditionMet(state *container.State, cond models.DependencyCondition) (bool, error) {
	if state == nil {
		return false, nil
	}

	switch string(state.Status) {
	case "exited", "dead":
		return false, fmt.Errorf("container stopped with exit code %d", state.ExitCode)
	}
	if !state.Running {
		return false, nil
	}

	switch cond {
	case models.ConditionServiceHealthy:
		if state.Health == nil {
			return false, errNoHealthcheck
		}
		switch string(state.Health.Status) {
		case "healthy":
			return true, nil
		case "unhealthy":
			return false, errUnhealthy
		}
		return false, nil
	default:
		return true, nil
	}
}

func describeState(state *container.State) string {
	if state == nil {
		return "unknown"
	}
	s := string(state.Status)
	if state.Health != nil {
		s += " (" + string(state.Health.Status) + ")"
	}
	return s
}
