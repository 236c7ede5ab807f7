package descriptor

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/ezenkico/deploy-commander/vectorstack/models"
)

// Validate checks the structure of a resolved stack and returns every
// problem found, joined.
func Validate(stack *models.Stack) error {
	if stack == nil {
		return errors.New("descriptor is empty")
	}
	if len(stack.Services) == 0 {
		return errors.New("descriptor declares no services")
	}

	var errs []error
	errs = append(errs, checkServices(stack)...)

	if err := CheckDependsOnServicesExist(stack.Services); err != nil {
		errs = append(errs, err)
	} else if err := CheckCircularDependencies(stack.Services); err != nil {
		errs = append(errs, err)
	}

	declared, err := DeclaredVolumeSet(stack.Volumes)
	if err != nil {
		errs = append(errs, err)
	} else if err := CheckServiceVolumeMounts(stack.Services, declared); err != nil {
		errs = append(errs, err)
	}

	errs = append(errs, checkHostPorts(stack.Services)...)
	errs = append(errs, CheckVectorStoreSettings(stack)...)

	return errors.Join(errs...)
}

func checkServices(stack *models.Stack) []error {
	var errs []error
	for _, key := range sortedKeys(stack.Services) {
		svc := stack.Services[key]
		if strings.TrimSpace(key) == "" {
			errs = append(errs, errors.New("service with an empty name"))
		}
		if svc.Image == "" {
			errs = append(errs, fmt.Errorf("service %q has no image", key))
		}
		switch svc.Restart {
		case models.RestartNo, models.RestartAlways, models.RestartOnFailure, models.RestartUnlessStopped:
		default:
			errs = append(errs, fmt.Errorf("service %q has unknown restart policy %q", key, svc.Restart))
		}
		for _, dep := range svc.DependsOn {
			switch dep.Condition {
			case models.ConditionServiceStarted:
			case models.ConditionServiceHealthy:
				if target, ok := stack.Services[dep.Service]; ok && target.Healthcheck == nil {
					errs = append(errs, fmt.Errorf("service %q waits for %q to be healthy, but %q has no healthcheck", key, dep.Service, dep.Service))
				}
			default:
				errs = append(errs, fmt.Errorf("service %q depends_on %q with unknown condition %q", key, dep.Service, dep.Condition))
			}
		}
		for _, r := range svc.Resources {
			if strings.TrimSpace(r.Name) == "" || strings.TrimSpace(r.ResourceType) == "" {
				errs = append(errs, fmt.Errorf("service %q declares a resource without type or name", key))
			}
		}
	}
	return errs
}

func checkHostPorts(services map[string]models.Service) []error {
	var errs []error
	owner := map[string]string{}
	for _, key := range sortedKeys(services) {
		for _, b := range services[key].Bindings {
			if b.HostPort == nil {
				continue
			}
			id := fmt.Sprintf("%d/%s", *b.HostPort, b.Protocol)
			if prev, ok := owner[id]; ok {
				errs = append(errs, fmt.Errorf("host port %s is published by both %q and %q", id, prev, key))
				continue
			}
			owner[id] = key
		}
	}
	return errs
}

func CheckDependsOnServicesExist(services map[string]models.Service) error {
	for _, svcKey := range sortedKeys(services) {
		for _, dep := range services[svcKey].DependsOn {
			if dep.Service == svcKey {
				return fmt.Errorf("service %q depends on itself", svcKey)
			}
			if _, ok := services[dep.Service]; !ok {
				return fmt.Errorf("service %q depends_on %q, but %q does not exist", svcKey, dep.Service, dep.Service)
			}
		}
	}

	return nil
}

func CheckCircularDependencies(services map[string]models.Service) error {
	const (
		unvisited = 0
		visiting  = 1
		visited   = 2
	)

	state := make(map[string]uint8, len(services))
	var path []string

	var dfs func(string) error
	dfs = func(node string) error {
		state[node] = visiting
		path = append(path, node)

		for _, dep := range services[node].DependsOn {
			if _, ok := services[dep.Service]; !ok {
				// Existence is checked elsewhere.
				continue
			}
			switch state[dep.Service] {
			case visiting:
				return fmt.Errorf("circular dependency detected: %s", formatCycle(path, dep.Service))
			case unvisited:
				if err := dfs(dep.Service); err != nil {
					return err
				}
			}
		}

		path = path[:len(path)-1]
		state[node] = visited
		return nil
	}

	for _, node := range sortedKeys(services) {
		if state[node] == unvisited {
			if err := dfs(node); err != nil {
				return err
			}
		}
	}

	return nil
}

// formatCycle prints the part of the DFS path that starts at start, closed
// back onto start: "a" -> "b" -> "a".
func formatCycle(path []string, start string) string {
	i := slices.Index(path, start)
	if i < 0 {
		i = 0
	}
	cycle := append(slices.Clone(path[i:]), start)

	quoted := make([]string, len(cycle))
	for i, s := range cycle {
		quoted[i] = fmt.Sprintf("%q", s)
	}
	return strings.Join(quoted, " -> ")
}

func DeclaredVolumeSet(vols []string) (map[string]struct{}, error) {
	set := map[string]struct{}{}

	for _, v := range vols {
		name := strings.TrimSpace(v)
		if name == "" {
			return nil, fmt.Errorf("volumes contains an empty name")
		}
		if _, exists := set[name]; exists {
			return nil, fmt.Errorf("volumes contains duplicate volume %q", name)
		}
		set[name] = struct{}{}
	}

	return set, nil
}

func CheckServiceVolumeMounts(services map[string]models.Service, declared map[string]struct{}) error {
	for _, svcKey := range sortedKeys(services) {
		seenMountPath := map[string]struct{}{}

		for _, m := range services[svcKey].Volumes {
			mountPath := strings.TrimSpace(m.MountPath)
			if mountPath == "" {
				return fmt.Errorf("service %q has a volume with empty mount path", svcKey)
			}
			if !strings.HasPrefix(mountPath, "/") {
				return fmt.Errorf("service %q volume mount path %q must be absolute", svcKey, mountPath)
			}
			if _, ok := seenMountPath[mountPath]; ok {
				return fmt.Errorf("service %q has duplicate volume mount path %q", svcKey, mountPath)
			}
			seenMountPath[mountPath] = struct{}{}

			if _, ok := declared[m.Name]; !ok {
				return fmt.Errorf("service %q mounts volume %q, which is not declared under volumes", svcKey, m.Name)
			}
		}
	}

	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
