package docker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/containerd/errdefs"
	"github.com/ezenkico/deploy-commander/vectorstack/models"
	"github.com/google/uuid"

	"github.com/moby/moby/client"
)

func (p *DockerPlatform) NetworkSetup(
	ctx context.Context,
	project string,
	run uuid.UUID,
	stack *models.Stack) error {

	logical := map[string]struct{}{}
	for _, svc := range stack.Services {
		for _, n := range svc.NetworkNames() {
			logical[n] = struct{}{}
		}
	}

	names := make([]string, 0, len(logical))
	for n := range logical {
		names = append(names, n)
	}
	sort.Strings(names)

	for _, group := range names {
		netName := DockerNetworkName(project, group)

		if _, err := p.client.NetworkInspect(ctx, netName, client.NetworkInspectOptions{}); err == nil {
			continue
		}

		_, err := p.client.NetworkCreate(ctx, netName, client.NetworkCreateOptions{
			Labels: map[string]string{
				LabelProject: project,
				LabelRun:     run.String(),
				LabelNetwork: group, // logical name
			},
		})
		if err != nil {
			// Race-safe: re-inspect
			if _, ie := p.client.NetworkInspect(ctx, netName, client.NetworkInspectOptions{}); ie != nil {
				return fmt.Errorf("create network %q: %w", netName, err)
			}
		}
		p.log.Info("network ready", "network", netName)
	}

	return nil
}

func (p *DockerPlatform) VolumeSetup(
	ctx context.Context,
	project string,
	run uuid.UUID,
	stack *models.Stack) error {

	for _, volName := range stack.Volumes {
		name := DockerVolumeName(project, volName)

		// If it already exists, treat as success.
		_, err := p.client.VolumeInspect(ctx, name, client.VolumeInspectOptions{})
		if err == nil {
			p.log.Debug("volume exists", "volume", name)
			continue
		}
		if !errdefs.IsNotFound(err) {
			return fmt.Errorf("inspect volume %q: %w", name, err)
		}

		_, err = p.client.VolumeCreate(ctx, client.VolumeCreateOptions{
			Name: name,
			Labels: map[string]string{
				LabelProject: project,
				LabelRun:     run.String(),
				LabelVolume:  volName, // original logical name
			},
		})
		if err != nil {
			// If it was created concurrently, re-check rather than matching error strings.
			if _, ie := p.client.VolumeInspect(ctx, name, client.VolumeInspectOptions{}); ie == nil {
				continue
			}
			return fmt.Errorf("create volume %q: %w", name, err)
		}
		p.log.Info("volume created", "volume", name)
	}

	return nil
}

// SetupService brings one service container in line with its spec. A
// running container carrying the same config hash is left untouched.
func (p *DockerPlatform) SetupService(
	ctx context.Context,
	project string,
	run uuid.UUID,
	serviceName string,
	service models.Service,
) error {

	spec, err := buildContainerSpec(project, run, serviceName, service)
	if err != nil {
		return err
	}

	// Remove container if it exists and differs
	resourceNames := map[string]struct{}{}
	inspect, err := p.client.ContainerInspect(ctx, spec.Name, client.ContainerInspectOptions{})
	if err == nil {
		var labels map[string]string
		if inspect.Container.Config != nil {
			labels = inspect.Container.Config.Labels
		}
		running := inspect.Container.State != nil && inspect.Container.State.Running

		if running && labels[LabelConfigHash] == spec.Hash {
			p.log.Info("service up to date", "service", serviceName, "container", spec.Name)
			return nil
		}

		for _, n := range resourceLabelNames(labels) {
			resourceNames[n] = struct{}{}
		}

		p.log.Info("recreating service", "service", serviceName, "container", spec.Name)
		if err := p.removeContainer(ctx, spec.Name); err != nil {
			return err
		}
	} else if !errdefs.IsNotFound(err) {
		return fmt.Errorf("inspect container %q: %w", spec.Name, err)
	}

	// Resources the old container published but the new one does not
	for _, r := range service.Resources {
		delete(resourceNames, r.Name)
	}
	p.deleteResources(ctx, resourceNames)

	containerID, err := p.createContainer(ctx, spec)
	if err != nil {
		return err
	}

	if _, err := p.client.ContainerStart(ctx, containerID, client.ContainerStartOptions{}); err != nil {
		return fmt.Errorf("start container %q: %w", spec.Name, err)
	}
	p.log.Info("service started", "service", serviceName, "container", spec.Name, "image", spec.Image)

	return p.registerResources(ctx, project, service)
}

// createContainer creates the container, pulling the image once if the
// engine does not have it yet.
func (p *DockerPlatform) createContainer(ctx context.Context, spec *containerSpec) (string, error) {
	opts := client.ContainerCreateOptions{
		Config:           spec.Config,
		HostConfig:       spec.HostConfig,
		NetworkingConfig: spec.Networking,
		Name:             spec.Name,
		Image:            spec.Image,
	}

	created, err := p.client.ContainerCreate(ctx, opts)
	if err != nil && errdefs.IsNotFound(err) {
		if perr := p.pullImage(ctx, spec.Image); perr != nil {
			return "", perr
		}
		created, err = p.client.ContainerCreate(ctx, opts)
	}
	if err != nil {
		// Race-safe: if something else created it, inspect and proceed
		inspected, ie := p.client.ContainerInspect(ctx, spec.Name, client.ContainerInspectOptions{})
		if ie != nil {
			return "", fmt.Errorf("create container %q: %w", spec.Name, err)
		}
		return inspected.Container.ID, nil
	}

	return created.ID, nil
}

func (p *DockerPlatform) pullImage(ctx context.Context, image string) error {
	p.log.Info("pulling image", "image", image)

	rc, err := p.client.ImagePull(ctx, image, client.ImagePullOptions{})
	if err != nil {
		return fmt.Errorf("pull image %q: %w", image, err)
	}
	defer rc.Close()

	// The pull only completes once the progress stream is drained.
	if _, err := io.Copy(io.Discard, rc); err != nil {
		return fmt.Errorf("pull image %q: %w", image, err)
	}
	return nil
}

// Pull fetches every image the stack uses.
func (p *DockerPlatform) Pull(ctx context.Context, stack *models.Stack) error {
	seen := map[string]struct{}{}
	for _, name := range sortedNames(stack.Services) {
		image := stack.Services[name].Image
		if _, ok := seen[image]; ok {
			continue
		}
		seen[image] = struct{}{}
		if err := p.pullImage(ctx, image); err != nil {
			return err
		}
	}
	return nil
}

// removeContainer stops (best-effort) then force-removes a container,
// keeping its volumes.
func (p *DockerPlatform) removeContainer(ctx context.Context, nameOrID string) error {
	_, _ = p.client.ContainerStop(ctx, nameOrID, client.ContainerStopOptions{})
	_, err := p.client.ContainerRemove(ctx, nameOrID, client.ContainerRemoveOptions{
		Force:         true,
		RemoveVolumes: false,
	})
	if err != nil && !errdefs.IsNotFound(err) {
		return fmt.Errorf("remove container %q: %w", nameOrID, err)
	}
	return nil
}

// ServiceSetup starts services in dependency order, waiting on each
// dependency's condition before starting the service that needs it.
func (p *DockerPlatform) ServiceSetup(ctx context.Context,
	project string,
	config models.Configuration,
	stack *models.Stack) error {

	order, err := ServiceOrder(stack.Services)
	if err != nil {
		return err
	}

	for _, name := range order {
		service := stack.Services[name]

		for _, dep := range service.DependsOn {
			p.log.Info("waiting for dependency", "service", name, "dependency", dep.Service, "condition", dep.Condition)
			if err := p.WaitForService(ctx, project, dep.Service, dep.Condition, config.WaitTimeout); err != nil {
				return fmt.Errorf("service %q: %w", name, err)
			}
		}

		if err := p.SetupService(ctx, project, config.Run, name, service); err != nil {
			return err
		}
	}

	if config.Wait {
		for _, name := range order {
			cond := models.ConditionServiceStarted
			if stack.Services[name].Healthcheck != nil {
				cond = models.ConditionServiceHealthy
			}
			if err := p.WaitForService(ctx, project, name, cond, config.WaitTimeout); err != nil {
				return err
			}
		}
	}

	return nil
}

// RemoveOrphans removes project containers whose service is no longer in
// the descriptor.
func (p *DockerPlatform) RemoveOrphans(ctx context.Context, project string, stack *models.Stack) error {
	containers, err := p.client.ContainerList(ctx, client.ContainerListOptions{
		All:     true,
		Filters: make(client.Filters).Add("label", projectFilter(project)),
	})
	if err != nil {
		return fmt.Errorf("list project containers (project=%s): %w", project, err)
	}

	var orphans []string
	for _, c := range containers.Items {
		svc := c.Labels[LabelService]
		if svc == "" {
			continue
		}
		if _, ok := stack.Services[svc]; !ok {
			orphans = append(orphans, svc)
		}
	}

	return p.RemoveServices(ctx, project, orphans)
}

func (p *DockerPlatform) registerResources(ctx context.Context, project string, service models.Service) error {
	if p.comm == nil || len(service.Resources) == 0 {
		return nil
	}

	for _, spec := range service.Resources {
		netName := DockerNetworkName(project, service.NetworkNames()[0])
		b, err := json.Marshal(models.DockerPlatformConnection{Network: netName})
		if err != nil {
			return fmt.Errorf("marshal platform connection for resource %q: %w", spec.Name, err)
		}
		rm := json.RawMessage(b)

		metadata := spec.Metadata
		if metadata == nil {
			metadata = json.RawMessage("{}")
		}

		_, err = p.comm.CreateResource(ctx, models.CreateResource{
			ResourceType:       spec.ResourceType,
			Name:               spec.Name,
			PlatformConnection: &rm,
			PublicConnection: &models.PublicConnection{
				Address: spec.PublicAddress,
				Port:    spec.PublicPort,
			},
			Metadata: metadata,
		})
		if err != nil {
			return fmt.Errorf("register resource %q: %w", spec.Name, err)
		}
		p.log.Info("resource registered", "resource", spec.Name, "type", spec.ResourceType)
	}

	return nil
}

func (p *DockerPlatform) deleteResources(ctx context.Context, names map[string]struct{}) {
	if p.comm == nil {
		return
	}
	for name := range names {
		if err := p.comm.DeleteResourceByName(ctx, name); err != nil {
			p.log.Warn("delete resource", "resource", name, "error", err)
		}
	}
}

// resourceLabelNames reads the JSON list stored under LabelResources.
// A malformed label yields nothing.
func resourceLabelNames(labels map[string]string) []string {
	v, ok := labels[LabelResources]
	if !ok || v == "" {
		return nil
	}
	var names []string
	if err := json.Unmarshal([]byte(v), &names); err != nil {
		return nil
	}
	out := names[:0]
	for _, n := range names {
		if n != "" {
			out = append(out, n)
		}
	}
	return out
}
