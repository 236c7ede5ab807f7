package docker

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/netip"
	"sort"
	"strconv"

	"github.com/ezenkico/deploy-commander/vectorstack/models"
	"github.com/google/uuid"

	"github.com/moby/moby/api/types/container"
	"github.com/moby/moby/api/types/mount"
	"github.com/moby/moby/api/types/network"
)

// containerSpec is everything needed to create one service container.
type containerSpec struct {
	Name       string
	Image      string
	Hash       string
	Config     *container.Config
	HostConfig *container.HostConfig
	Networking *network.NetworkingConfig
}

// ConfigHash digests the resolved service so an unchanged container can be
// left running on the next apply.
func ConfigHash(project string, svc models.Service) (string, error) {
	b, err := json.Marshal(struct {
		Project string         `json:"project"`
		Service models.Service `json:"service"`
	}{project, svc})
	if err != nil {
		return "", fmt.Errorf("marshal service for hashing: %w", err)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

func buildContainerSpec(project string, run uuid.UUID, serviceName string, svc models.Service) (*containerSpec, error) {
	hash, err := ConfigHash(project, svc)
	if err != nil {
		return nil, err
	}

	// 1) Env, in a stable order
	keys := make([]string, 0, len(svc.Environment))
	for k := range svc.Environment {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	env := make([]string, 0, len(keys))
	for _, k := range keys {
		env = append(env, k+"="+svc.Environment[k])
	}

	// 2) Volume mounts (named volumes only)
	mounts := []mount.Mount{}
	for _, vm := range svc.Volumes {
		mounts = append(mounts, mount.Mount{
			Type:     mount.TypeVolume,
			Source:   DockerVolumeName(project, vm.Name),
			Target:   vm.MountPath,
			ReadOnly: vm.ReadOnly,
		})
	}

	// 3) Ports
	exposed := network.PortSet{}
	portMap := network.PortMap{}

	for _, b := range svc.Bindings {
		port, ok := network.PortFrom(uint16(b.ContainerPort), network.IPProtocol(b.Protocol))
		if !ok {
			return nil, fmt.Errorf("service %q has invalid port %d/%s", serviceName, b.ContainerPort, b.Protocol)
		}
		exposed[port] = struct{}{}

		if b.HostPort == nil {
			continue
		}
		hostIP := "0.0.0.0"
		if b.HostIP != nil {
			hostIP = *b.HostIP
		}
		addr, err := netip.ParseAddr(hostIP)
		if err != nil {
			return nil, fmt.Errorf("service %q has invalid host ip %q: %w", serviceName, hostIP, err)
		}
		portMap[port] = append(portMap[port], network.PortBinding{
			HostIP:   addr,
			HostPort: strconv.Itoa(*b.HostPort),
		})
	}
	for _, p := range svc.Expose {
		port, ok := network.PortFrom(uint16(p), network.IPProtocol("tcp"))
		if !ok {
			return nil, fmt.Errorf("service %q has invalid expose port %d", serviceName, p)
		}
		exposed[port] = struct{}{}
	}

	// 4) Labels
	labels := map[string]string{
		LabelProject:    project,
		LabelRun:        run.String(),
		LabelService:    serviceName,
		LabelConfigHash: hash,
	}
	if len(svc.Resources) > 0 {
		names := make([]string, 0, len(svc.Resources))
		for _, r := range svc.Resources {
			names = append(names, r.Name)
		}
		b, err := json.Marshal(names)
		if err != nil {
			return nil, fmt.Errorf("marshal resource names label: %w", err)
		}
		labels[LabelResources] = string(b)
	}

	cCfg := &container.Config{
		Image:        svc.Image,
		Env:          env,
		Labels:       labels,
		ExposedPorts: exposed,
	}
	if hc := svc.Healthcheck; hc != nil {
		cCfg.Healthcheck = &container.HealthConfig{
			Test:        hc.Test,
			Interval:    hc.Interval,
			Timeout:     hc.Timeout,
			StartPeriod: hc.StartPeriod,
			Retries:     hc.Retries,
		}
	}

	restart := svc.Restart
	if restart == "" {
		restart = models.RestartUnlessStopped
	}
	hCfg := &container.HostConfig{
		Mounts:       mounts,
		PortBindings: portMap,
		RestartPolicy: container.RestartPolicy{
			Name: container.RestartPolicyMode(restart),
		},
	}

	// 5) Networks; the service key is always resolvable on each of them
	aliases := append([]string{serviceName}, svc.Aliases...)
	endpoints := make(map[string]*network.EndpointSettings)
	for _, n := range svc.NetworkNames() {
		endpoints[DockerNetworkName(project, n)] = &network.EndpointSettings{
			Aliases: aliases,
		}
	}

	return &containerSpec{
		Name:       DockerServiceName(project, serviceName),
		Image:      svc.Image,
		Hash:       hash,
		Config:     cCfg,
		HostConfig: hCfg,
		Networking: &network.NetworkingConfig{EndpointsConfig: endpoints},
	}, nil
}

// ServiceOrder returns the service keys so that every service comes after
// the services it depends on. Ties are broken by name.
func ServiceOrder(services map[string]models.Service) ([]string, error) {
	remaining := make(map[string]models.Service, len(services))
	for k, v := range services {
		remaining[k] = v
	}

	started := make(map[string]struct{}, len(services))
	order := make([]string, 0, len(services))

	for len(remaining) > 0 {
		ready := []string{}
		for name, service := range remaining {
			canRun := true
			for _, dep := range service.DependsOn {
				if _, ok := started[dep.Service]; !ok {
					canRun = false
					break
				}
			}
			if canRun {
				ready = append(ready, name)
			}
		}
		if len(ready) == 0 {
			return nil, fmt.Errorf("services have unresolvable dependencies: %v", sortedNames(remaining))
		}

		sort.Strings(ready)
		for _, name := range ready {
			order = append(order, name)
			started[name] = struct{}{}
			delete(remaining, name)
		}
	}

	return order, nil
}

func sortedNames(m map[string]models.Service) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
