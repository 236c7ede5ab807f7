package models

type RestartPolicy string

const (
	RestartNo            RestartPolicy = "no"
	RestartAlways        RestartPolicy = "always"
	RestartOnFailure     RestartPolicy = "on-failure"
	RestartUnlessStopped RestartPolicy = "unless-stopped"
)

type Service struct {
	// Required
	Image string `json:"image" yaml:"image"`

	// Extra network aliases; the service key is always an alias too
	Aliases []string `json:"aliases,omitempty" yaml:"aliases,omitempty"`

	// Logical network names (default: "default")
	Networks []string `json:"networks,omitempty" yaml:"networks,omitempty"`

	DependsOn []Dependency `json:"depends_on,omitempty" yaml:"depends_on,omitempty"`

	// Published ports
	Bindings []BindingSpec `json:"bindings,omitempty" yaml:"bindings,omitempty"`

	// Ports reachable from the stack network only
	Expose []int `json:"expose,omitempty" yaml:"expose,omitempty"`

	Environment map[string]string `json:"environment,omitempty" yaml:"environment,omitempty"`

	Volumes []VolumeMount `json:"volumes,omitempty" yaml:"volumes,omitempty"`

	Healthcheck *Healthcheck `json:"healthcheck,omitempty" yaml:"healthcheck,omitempty"`

	Restart RestartPolicy `json:"restart,omitempty" yaml:"restart,omitempty"`

	// Resource(s) published by this service
	Resources []ResourceSpec `json:"resources,omitempty" yaml:"resources,omitempty"`
}

// ContainerPorts returns every port the service listens on inside the
// stack network: published container ports plus exposed ports.
func (s Service) ContainerPorts() map[int]struct{} {
	ports := make(map[int]struct{}, len(s.Bindings)+len(s.Expose))
	for _, b := range s.Bindings {
		ports[b.ContainerPort] = struct{}{}
	}
	for _, p := range s.Expose {
		ports[p] = struct{}{}
	}
	return ports
}

// NetworkNames returns the logical networks, falling back to "default".
func (s Service) NetworkNames() []string {
	if len(s.Networks) == 0 {
		return []string{DefaultNetwork}
	}
	return s.Networks
}
