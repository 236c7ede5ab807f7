package models

import (
	"time"

	"github.com/google/uuid"
)

type Action string

const (
	ActionUp   Action = "up"
	ActionDown Action = "down"
	ActionPull Action = "pull"
)

type Configuration struct {
	Project       string        `json:"project"`         // prefix + label for every engine object
	Run           uuid.UUID     `json:"run"`             // UUID of this invocation
	Platform      string        `json:"platform"`        // e.g. "docker"
	Action        Action        `json:"action"`          // up | down | pull
	RemoveVolumes bool          `json:"remove_volumes"`  // down only
	Wait          bool          `json:"wait"`            // up: wait for every service
	WaitTimeout   time.Duration `json:"wait_timeout"`    // bound on each dependency wait
	Stack         *Stack        `json:"stack,omitempty"` // required for up and pull
}
