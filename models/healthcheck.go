package models

import "time"

// Healthcheck is handed to the engine as the container's health test.
type Healthcheck struct {
	Test        []string      `json:"test" yaml:"test"`
	Interval    time.Duration `json:"interval,omitempty" yaml:"interval,omitempty"`
	Timeout     time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	StartPeriod time.Duration `json:"start_period,omitempty" yaml:"start_period,omitempty"`
	Retries     int           `json:"retries,omitempty" yaml:"retries,omitempty"`
}
