package models

type ServiceStatus struct {
	Service    string   `json:"service"`
	Container  string   `json:"container"`
	Image      string   `json:"image"`
	State      string   `json:"state"`
	Health     string   `json:"health,omitempty"`
	Ports      []string `json:"ports,omitempty"`
	ConfigHash string   `json:"config_hash,omitempty"`
}

type VolumeStatus struct {
	Volume string `json:"volume"`
	Name   string `json:"name"`
	Driver string `json:"driver"`
}

type StackStatus struct {
	Project  string          `json:"project"`
	Services []ServiceStatus `json:"services"`
	Volumes  []VolumeStatus  `json:"volumes"`
}
