package docker

import (
	"context"
	"fmt"

	"github.com/containerd/errdefs"

	"github.com/moby/moby/client"
)

func (p *DockerPlatform) TearDownServices(ctx context.Context, project string) error {
	resourceNames := make(map[string]struct{})

	containers, err := p.client.ContainerList(ctx, client.ContainerListOptions{
		All:     true,
		Filters: make(client.Filters).Add("label", projectFilter(project)),
	})
	if err != nil {
		return fmt.Errorf("list project containers (project=%s): %w", project, err)
	}

	for _, c := range containers.Items {
		for _, n := range resourceLabelNames(c.Labels) {
			resourceNames[n] = struct{}{}
		}

		if err := p.removeContainer(ctx, c.ID); err != nil {
			return err
		}
		p.log.Info("container removed", "container", c.ID, "service", c.Labels[LabelService])
	}

	p.deleteResources(ctx, resourceNames)

	return nil
}

func (p *DockerPlatform) TearDownVolumes(ctx context.Context, project string) error {
	vols, err := p.client.VolumeList(ctx, client.VolumeListOptions{
		Filters: make(client.Filters).Add("label", projectFilter(project)),
	})
	if err != nil {
		return fmt.Errorf("list project volumes (project=%s): %w", project, err)
	}

	for _, v := range vols.Items {
		if v.Name == "" {
			continue
		}

		if _, err := p.client.VolumeRemove(ctx, v.Name, client.VolumeRemoveOptions{}); err != nil {
			// Idempotent: if it vanished, ignore.
			if errdefs.IsNotFound(err) {
				continue
			}
			return fmt.Errorf("remove volume %q: %w", v.Name, err)
		}
		p.log.Info("volume removed", "volume", v.Name)
	}

	return nil
}

func (p *DockerPlatform) TearDownNetworks(ctx context.Context, project string) error {
	nets, err := p.client.NetworkList(ctx, client.NetworkListOptions{
		Filters: make(client.Filters).Add("label", projectFilter(project)),
	})
	if err != nil {
		return fmt.Errorf("list project networks (project=%s): %w", project, err)
	}

	for _, n := range nets.Items {
		if n.Name == "" || n.ID == "" {
			continue
		}

		// Prefer removing by ID to avoid name collisions.
		if _, err := p.client.NetworkRemove(ctx, n.ID, client.NetworkRemoveOptions{}); err != nil {
			if errdefs.IsNotFound(err) {
				continue
			}
			return fmt.Errorf("remove network %q (%s): %w", n.Name, n.ID, err)
		}
		p.log.Info("network removed", "network", n.Name)
	}

	return nil
}

// Teardown removes the project's containers and networks. Volumes are only
// removed when removeVolumes is set.
func (p *DockerPlatform) Teardown(ctx context.Context, project string, removeVolumes bool) error {
	if err := p.TearDownServices(ctx, project); err != nil {
		return err
	}
	if err := p.TearDownNetworks(ctx, project); err != nil {
		return err
	}
	if removeVolumes {
		return p.TearDownVolumes(ctx, project)
	}
	return nil
}
