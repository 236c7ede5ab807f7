package descriptor

import (
	"fmt"
	"net/netip"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ezenkico/deploy-commander/vectorstack/models"
	"gopkg.in/yaml.v3"
)

// composeFile is the on-disk shape of a descriptor, before it is resolved
// into a models.Stack.
type composeFile struct {
	Name     string                    `yaml:"name,omitempty"`
	Services map[string]composeService `yaml:"services"`
	Volumes  map[string]*composeVolume `yaml:"volumes,omitempty"`
}

type composeVolume struct {
	Labels map[string]string `yaml:"labels,omitempty"`
}

type composeService struct {
	Image       string              `yaml:"image"`
	Ports       []string            `yaml:"ports,omitempty"`
	Expose      []string            `yaml:"expose,omitempty"`
	Environment environment         `yaml:"environment,omitempty"`
	Volumes     []string            `yaml:"volumes,omitempty"`
	Networks    []string            `yaml:"networks,omitempty"`
	Aliases     []string            `yaml:"aliases,omitempty"`
	DependsOn   dependsOn           `yaml:"depends_on,omitempty"`
	Healthcheck *composeHealthcheck `yaml:"healthcheck,omitempty"`
	Restart     string              `yaml:"restart,omitempty"`
	Resources   []composeResource   `yaml:"x-resources,omitempty"`
}

type composeHealthcheck struct {
	Test        command `yaml:"test"`
	Interval    string  `yaml:"interval,omitempty"`
	Timeout     string  `yaml:"timeout,omitempty"`
	StartPeriod string  `yaml:"start_period,omitempty"`
	Retries     int     `yaml:"retries,omitempty"`
	Disable     bool    `yaml:"disable,omitempty"`
}

type composeResource struct {
	Type          string  `yaml:"type"`
	Name          string  `yaml:"name"`
	PublicAddress *string `yaml:"public_address,omitempty"`
	PublicPort    *uint16 `yaml:"public_port,omitempty"`
}

// environment accepts both the mapping and the "KEY=VALUE" list forms.
type environment map[string]string

func (e *environment) UnmarshalYAML(value *yaml.Node) error {
	out := make(environment)

	switch value.Kind {
	case yaml.MappingNode:
		var m map[string]*string
		if err := value.Decode(&m); err != nil {
			return fmt.Errorf("environment: %w", err)
		}
		for k, v := range m {
			if v == nil {
				out[k] = ""
				continue
			}
			out[k] = *v
		}

	case yaml.SequenceNode:
		var list []string
		if err := value.Decode(&list); err != nil {
			return fmt.Errorf("environment: %w", err)
		}
		for _, item := range list {
			k, v, _ := strings.Cut(item, "=")
			k = strings.TrimSpace(k)
			if k == "" {
				return fmt.Errorf("environment entry %q has no name", item)
			}
			out[k] = v
		}

	default:
		return fmt.Errorf("environment must be a mapping or a list (line %d)", value.Line)
	}

	*e = out
	return nil
}

// dependsOn accepts a list of service names or a mapping with conditions.
type dependsOn []models.Dependency

func (d *dependsOn) UnmarshalYAML(value *yaml.Node) error {
	var out []models.Dependency

	switch value.Kind {
	case yaml.SequenceNode:
		var names []string
		if err := value.Decode(&names); err != nil {
			return fmt.Errorf("depends_on: %w", err)
		}
		for _, n := range names {
			out = append(out, models.Dependency{Service: n, Condition: models.ConditionServiceStarted})
		}

	case yaml.MappingNode:
		var m map[string]struct {
			Condition string `yaml:"condition"`
		}
		if err := value.Decode(&m); err != nil {
			return fmt.Errorf("depends_on: %w", err)
		}
		for name, spec := range m {
			cond := models.DependencyCondition(spec.Condition)
			if cond == "" {
				cond = models.ConditionServiceStarted
			}
			out = append(out, models.Dependency{Service: name, Condition: cond})
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Service < out[j].Service })

	default:
		return fmt.Errorf("depends_on must be a list or a mapping (line %d)", value.Line)
	}

	*d = out
	return nil
}

// MarshalYAML writes the mapping form so conditions survive a round trip.
func (d dependsOn) MarshalYAML() (any, error) {
	out := make(map[string]map[string]string, len(d))
	for _, dep := range d {
		out[dep.Service] = map[string]string{"condition": string(dep.Condition)}
	}
	return out, nil
}

// command accepts an exec list or a shell string.
type command []string

func (c *command) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		*c = command{"CMD-SHELL", value.Value}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := value.Decode(&list); err != nil {
			return err
		}
		*c = list
		return nil
	default:
		return fmt.Errorf("healthcheck test must be a string or a list (line %d)", value.Line)
	}
}

func (f *composeFile) toStack() (*models.Stack, error) {
	stack := &models.Stack{
		Name:     strings.TrimSpace(f.Name),
		Services: make(map[string]models.Service, len(f.Services)),
	}

	for name := range f.Volumes {
		stack.Volumes = append(stack.Volumes, name)
	}
	sort.Strings(stack.Volumes)

	for key, cs := range f.Services {
		svc, err := cs.toService()
		if err != nil {
			return nil, fmt.Errorf("service %q: %w", key, err)
		}
		stack.Services[key] = svc
	}

	return stack, nil
}

func (cs composeService) toService() (models.Service, error) {
	svc := models.Service{
		Image:       strings.TrimSpace(cs.Image),
		Aliases:     cs.Aliases,
		Networks:    cs.Networks,
		DependsOn:   cs.DependsOn,
		Environment: cs.Environment,
		Restart:     models.RestartPolicy(cs.Restart),
	}
	if svc.Restart == "" {
		svc.Restart = models.RestartUnlessStopped
	}

	for _, p := range cs.Ports {
		b, err := ParsePort(p)
		if err != nil {
			return svc, err
		}
		svc.Bindings = append(svc.Bindings, b)
	}

	for _, e := range cs.Expose {
		port, _, _ := strings.Cut(strings.TrimSpace(e), "/")
		n, err := strconv.Atoi(port)
		if err != nil || n < 1 || n > 65535 {
			return svc, fmt.Errorf("invalid expose port %q", e)
		}
		svc.Expose = append(svc.Expose, n)
	}

	for _, v := range cs.Volumes {
		m, err := ParseVolumeMount(v)
		if err != nil {
			return svc, err
		}
		svc.Volumes = append(svc.Volumes, m)
	}

	if cs.Healthcheck != nil && !cs.Healthcheck.Disable {
		hc, err := cs.Healthcheck.toHealthcheck()
		if err != nil {
			return svc, err
		}
		svc.Healthcheck = hc
	}

	for _, r := range cs.Resources {
		svc.Resources = append(svc.Resources, models.ResourceSpec{
			ResourceType:  r.Type,
			Name:          r.Name,
			PublicAddress: r.PublicAddress,
			PublicPort:    r.PublicPort,
		})
	}

	return svc, nil
}

func (h composeHealthcheck) toHealthcheck() (*models.Healthcheck, error) {
	if len(h.Test) == 0 {
		return nil, fmt.Errorf("healthcheck test is empty")
	}
	hc := &models.Healthcheck{
		Test:    h.Test,
		Retries: h.Retries,
	}

	durations := []struct {
		field string
		raw   string
		dst   *time.Duration
	}{
		{"interval", h.Interval, &hc.Interval},
		{"timeout", h.Timeout, &hc.Timeout},
		{"start_period", h.StartPeriod, &hc.StartPeriod},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return nil, fmt.Errorf("healthcheck %s %q: %w", d.field, d.raw, err)
		}
		*d.dst = v
	}

	return hc, nil
}

// fromStack is the inverse of toStack.
func fromStack(stack *models.Stack) composeFile {
	f := composeFile{
		Name:     stack.Name,
		Services: make(map[string]composeService, len(stack.Services)),
	}
	if len(stack.Volumes) > 0 {
		f.Volumes = make(map[string]*composeVolume, len(stack.Volumes))
		for _, v := range stack.Volumes {
			f.Volumes[v] = &composeVolume{}
		}
	}
	for name, svc := range stack.Services {
		f.Services[name] = fromService(svc)
	}
	return f
}

func fromService(svc models.Service) composeService {
	cs := composeService{
		Image:       svc.Image,
		Environment: svc.Environment,
		Networks:    svc.Networks,
		Aliases:     svc.Aliases,
		DependsOn:   svc.DependsOn,
		Restart:     string(svc.Restart),
	}

	for _, b := range svc.Bindings {
		cs.Ports = append(cs.Ports, FormatPort(b))
	}
	for _, p := range svc.Expose {
		cs.Expose = append(cs.Expose, strconv.Itoa(p))
	}
	for _, m := range svc.Volumes {
		cs.Volumes = append(cs.Volumes, FormatVolumeMount(m))
	}

	if hc := svc.Healthcheck; hc != nil {
		cs.Healthcheck = &composeHealthcheck{
			Test:        command(hc.Test),
			Interval:    formatDuration(hc.Interval),
			Timeout:     formatDuration(hc.Timeout),
			StartPeriod: formatDuration(hc.StartPeriod),
			Retries:     hc.Retries,
		}
	}

	for _, r := range svc.Resources {
		cs.Resources = append(cs.Resources, composeResource{
			Type:          r.ResourceType,
			Name:          r.Name,
			PublicAddress: r.PublicAddress,
			PublicPort:    r.PublicPort,
		})
	}

	return cs
}

func formatDuration(d time.Duration) string {
	if d == 0 {
		return ""
	}
	return d.String()
}

// FormatPort writes a binding in the form ParsePort reads.
func FormatPort(b models.BindingSpec) string {
	s := strconv.Itoa(b.ContainerPort)
	switch {
	case b.HostPort != nil:
		s = strconv.Itoa(*b.HostPort) + ":" + s
	case b.HostIP != nil:
		s = ":" + s
	}
	if b.HostIP != nil {
		ip := *b.HostIP
		if strings.Contains(ip, ":") {
			ip = "[" + ip + "]"
		}
		s = ip + ":" + s
	}
	if b.Protocol != "" && b.Protocol != "tcp" {
		s += "/" + b.Protocol
	}
	return s
}

// FormatVolumeMount writes a mount in the form ParseVolumeMount reads.
func FormatVolumeMount(m models.VolumeMount) string {
	s := m.Name + ":" + m.MountPath
	if m.ReadOnly {
		s += ":ro"
	}
	return s
}

// ParsePort parses "[ip:][host:]container[/protocol]".
func ParsePort(spec string) (models.BindingSpec, error) {
	s := strings.TrimSpace(spec)
	b := models.BindingSpec{Protocol: "tcp"}

	if base, proto, ok := strings.Cut(s, "/"); ok {
		proto = strings.ToLower(proto)
		if proto != "tcp" && proto != "udp" {
			return b, fmt.Errorf("port %q has unsupported protocol %q", spec, proto)
		}
		b.Protocol = proto
		s = base
	}

	rest, container := "", s
	if i := strings.LastIndex(s, ":"); i >= 0 {
		rest, container = s[:i], s[i+1:]
	}

	cp, err := parsePortNumber(container)
	if err != nil {
		return b, fmt.Errorf("port %q: %w", spec, err)
	}
	b.ContainerPort = cp

	if rest == "" {
		return b, nil
	}

	host := rest
	if i := strings.LastIndex(rest, ":"); i >= 0 {
		ip := strings.Trim(rest[:i], "[]")
		if _, err := netip.ParseAddr(ip); err != nil {
			return b, fmt.Errorf("port %q has invalid host ip %q", spec, ip)
		}
		b.HostIP = &ip
		host = rest[i+1:]
	}

	if host != "" {
		hp, err := parsePortNumber(host)
		if err != nil {
			return b, fmt.Errorf("port %q: %w", spec, err)
		}
		b.HostPort = &hp
	}

	return b, nil
}

func parsePortNumber(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 65535 {
		return 0, fmt.Errorf("invalid port number %q", s)
	}
	return n, nil
}

// ParseVolumeMount parses "volume:/path[:ro|rw]". Host paths are rejected:
// only named volumes managed by the engine are supported.
func ParseVolumeMount(spec string) (models.VolumeMount, error) {
	parts := strings.Split(strings.TrimSpace(spec), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return models.VolumeMount{}, fmt.Errorf("volume %q must be name:/path[:mode]", spec)
	}

	name := parts[0]
	if name == "" || strings.HasPrefix(name, "/") || strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~") {
		return models.VolumeMount{}, fmt.Errorf("volume %q: host paths are not supported, use a named volume", spec)
	}

	m := models.VolumeMount{Name: name, MountPath: parts[1]}
	if len(parts) == 3 {
		switch parts[2] {
		case "ro":
			m.ReadOnly = true
		case "rw":
		default:
			return m, fmt.Errorf("volume %q has unknown mode %q", spec, parts[2])
		}
	}

	return m, nil
}
