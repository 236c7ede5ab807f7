package models

type VolumeMount struct {
	// Name of a volume declared in stack.volumes
	Name string `json:"name" yaml:"name"`

	// Path inside the container where the volume is mounted
	MountPath string `json:"mount_path" yaml:"mount_path"`

	ReadOnly bool `json:"read_only,omitempty" yaml:"read_only,omitempty"`
}
