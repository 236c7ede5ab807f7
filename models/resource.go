package models

import "encoding/json"

// ResourceSpec is a resource a service publishes to the agent once it is up.
type ResourceSpec struct {
	ResourceType  string          `json:"type" yaml:"type"`
	Name          string          `json:"name" yaml:"name"`
	PublicAddress *string         `json:"public_address,omitempty" yaml:"public_address,omitempty"`
	PublicPort    *uint16         `json:"public_port,omitempty" yaml:"public_port,omitempty"`
	Metadata      json.RawMessage `json:"metadata,omitempty" yaml:"-"`
}

type PublicConnection struct {
	Address *string `json:"address,omitempty"`
	Port    *uint16 `json:"port,omitempty"`
}

type CreateResource struct {
	ResourceType       string            `json:"resource_type"`
	Name               string            `json:"name"`
	PlatformConnection *json.RawMessage  `json:"platform_connection,omitempty"`
	PublicConnection   *PublicConnection `json:"public_connection,omitempty"`
	Metadata           json.RawMessage   `json:"metadata"`
}

type DockerPlatformConnection struct {
	// Docker network name the resource container is attached to
	Network string `json:"network"`
}
