package docker

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/containerd/errdefs"
	"github.com/ezenkico/deploy-commander/vectorstack/models"

	"github.com/moby/moby/api/types/network"
	"github.com/moby/moby/client"
)

// Status lists the project's service containers and volumes.
func (p *DockerPlatform) Status(ctx context.Context, project string) (*models.StackStatus, error) {
	project = ProjectName(project)
	out := &models.StackStatus{Project: project}

	containers, err := p.client.ContainerList(ctx, client.ContainerListOptions{
		All:     true,
		Filters: make(client.Filters).Add("label", projectFilter(project)),
	})
	if err != nil {
		return nil, fmt.Errorf("list project containers (project=%s): %w", project, err)
	}

	for _, c := range containers.Items {
		service := c.Labels[LabelService]
		if service == "" {
			// backup helpers and other one-shot containers
			continue
		}

		inspect, err := p.client.ContainerInspect(ctx, c.ID, client.ContainerInspectOptions{})
		if err != nil {
			if errdefs.IsNotFound(err) {
				continue
			}
			return nil, fmt.Errorf("inspect container %q: %w", c.ID, err)
		}

		st := models.ServiceStatus{
			Service:    service,
			Container:  strings.TrimPrefix(inspect.Container.Name, "/"),
			ConfigHash: c.Labels[LabelConfigHash],
		}
		if cfg := inspect.Container.Config; cfg != nil {
			st.Image = cfg.Image
		}
		if s := inspect.Container.State; s != nil {
			st.State = string(s.Status)
			if s.Health != nil {
				st.Health = string(s.Health.Status)
			}
		}
		if ns := inspect.Container.NetworkSettings; ns != nil {
			st.Ports = formatPorts(ns.Ports)
		}

		out.Services = append(out.Services, st)
	}
	sort.Slice(out.Services, func(i, j int) bool { return out.Services[i].Service < out.Services[j].Service })

	vols, err := p.client.VolumeList(ctx, client.VolumeListOptions{
		Filters: make(client.Filters).Add("label", projectFilter(project)),
	})
	if err != nil {
		return nil, fmt.Errorf("list project volumes (project=%s): %w", project, err)
	}
	for _, v := range vols.Items {
		out.Volumes = append(out.Volumes, models.VolumeStatus{
			Volume: v.Labels[LabelVolume],
			Name:   v.Name,
			Driver: v.Driver,
		})
	}
	sort.Slice(out.Volumes, func(i, j int) bool { return out.Volumes[i].Name < out.Volumes[j].Name })

	return out, nil
}

// formatPorts renders published ports as "host_ip:host_port->port/proto",
// and unpublished ones as "port/proto".
func formatPorts(pm network.PortMap) []string {
	var out []string
	for port, bindings := range pm {
		if len(bindings) == 0 {
			out = append(out, port.String())
			continue
		}
		for _, b := range bindings {
			host := b.HostPort
			if b.HostIP.IsValid() {
				host = b.HostIP.String() + ":" + b.HostPort
			}
			out = append(out, host+"->"+port.String())
		}
	}
	sort.Strings(out)
	return out
}
