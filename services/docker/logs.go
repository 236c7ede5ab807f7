package docker

import (
	"context"
	"fmt"
	"io"

	"github.com/moby/moby/client"
)

// Logs copies a service's output to stdout and stderr. With follow it
// keeps streaming until the container stops or ctx is cancelled.
func (p *DockerPlatform) Logs(
	ctx context.Context,
	project string,
	service string,
	follow bool,
	tail string,
	stdout io.Writer,
	stderr io.Writer,
) error {
	project = ProjectName(project)
	name := DockerServiceName(project, service)
	if tail == "" {
		tail = "all"
	}

	rc, err := p.client.ContainerLogs(ctx, name, client.ContainerLogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     follow,
		Tail:       tail,
		Timestamps: false,
	})
	if err != nil {
		return fmt.Errorf("logs container %q: %w", name, err)
	}
	defer rc.Close()

	if err := DemuxDockerLogs(stdout, stderr, rc); err != nil && ctx.Err() == nil {
		return fmt.Errorf("stream logs for %q: %w", name, err)
	}
	return nil
}
