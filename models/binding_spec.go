package models

// BindingSpec publishes a container port on the host.
type BindingSpec struct {
	ContainerPort int     `json:"container_port" yaml:"container_port"`
	HostPort      *int    `json:"host_port,omitempty" yaml:"host_port,omitempty"`
	HostIP        *string `json:"host_ip,omitempty" yaml:"host_ip,omitempty"`
	Protocol      string  `json:"protocol" yaml:"protocol"` // tcp | udp
}
