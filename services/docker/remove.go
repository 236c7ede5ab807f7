package docker

import (
	"context"
	"fmt"

	"github.com/containerd/errdefs"

	"github.com/moby/moby/client"
)

func (p *DockerPlatform) RemoveServices(ctx context.Context, project string, removeServices []string) error {
	resourceNames := make(map[string]struct{})

	for _, service := range removeServices {
		containerName := DockerServiceName(project, service)
		inspect, err := p.client.ContainerInspect(ctx, containerName, client.ContainerInspectOptions{})
		if err != nil {
			if errdefs.IsNotFound(err) {
				continue
			}
			return fmt.Errorf("inspect container %q: %w", containerName, err)
		}

		if inspect.Container.Config != nil {
			for _, n := range resourceLabelNames(inspect.Container.Config.Labels) {
				resourceNames[n] = struct{}{}
			}
		}

		if err := p.removeContainer(ctx, containerName); err != nil {
			return err
		}
		p.log.Info("service removed", "service", service, "container", containerName)
	}

	p.deleteResources(ctx, resourceNames)

	return nil
}

func (p *DockerPlatform) RemoveVolumes(ctx context.Context, project string, removeVolumes []string) error {
	project = ProjectName(project)
	for _, volume := range removeVolumes {
		if volume == "" {
			continue
		}

		volumeName := DockerVolumeName(project, volume)

		if _, err := p.client.VolumeRemove(ctx, volumeName, client.VolumeRemoveOptions{}); err != nil {
			// If it was already gone, that's fine.
			if errdefs.IsNotFound(err) {
				continue
			}
			return fmt.Errorf("remove volume %q: %w", volumeName, err)
		}
		p.log.Info("volume removed", "volume", volumeName)
	}

	return nil
}

func (p *DockerPlatform) StopService(ctx context.Context, project, service string) error {
	project = ProjectName(project)
	name := DockerServiceName(project, service)
	if _, err := p.client.ContainerStop(ctx, name, client.ContainerStopOptions{}); err != nil {
		return fmt.Errorf("stop container %q: %w", name, err)
	}
	p.log.Info("service stopped", "service", service)
	return nil
}

func (p *DockerPlatform) StartService(ctx context.Context, project, service string) error {
	project = ProjectName(project)
	name := DockerServiceName(project, service)
	if _, err := p.client.ContainerStart(ctx, name, client.ContainerStartOptions{}); err != nil {
		return fmt.Errorf("start container %q: %w", name, err)
	}
	p.log.Info("service started", "service", service)
	return nil
}

// RestartService stops and starts the same container, so mounted volumes
// and their data are kept.
func (p *DockerPlatform) RestartService(ctx context.Context, project, service string) error {
	if err := p.StopService(ctx, project, service); err != nil {
		return err
	}
	return p.StartService(ctx, project, service)
}
