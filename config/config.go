package config

import (
	"fmt"
	"strings"
	"time"
)

// Config holds the settings of the tool itself. The stack lives in the
// descriptor; this is how to reach and run it.
type Config struct {
	File     string        `json:"file"`     // descriptor path, empty for the built-in one
	EnvFile  string        `json:"env_file"` // interpolation file, empty for .env beside the descriptor
	Project  string        `json:"project"`  // empty to take the descriptor's name
	Platform string        `json:"platform"` // docker
	LogLevel string        `json:"log_level"`
	Output   string        `json:"output"` // text|json
	Wait     time.Duration `json:"wait_timeout"`

	Agent  AgentConfig  `json:"agent"`
	Backup BackupConfig `json:"backup"`
	S3     S3Config     `json:"s3"`
}

// AgentConfig points at the optional resource registry.
type AgentConfig struct {
	Endpoint string `json:"endpoint"`
	Token    string `json:"-"`
}

// Enabled reports whether resources should be registered.
func (a AgentConfig) Enabled() bool {
	return a.Endpoint != "" && a.Token != ""
}

type BackupConfig struct {
	Dir   string `json:"dir"`
	Image string `json:"image"`
}

// S3Config configures uploads of volume backups to an S3 compatible store.
type S3Config struct {
	Endpoint  string `json:"endpoint"` // "http://127.0.0.1:9000"; empty for AWS
	Region    string `json:"region"`
	Bucket    string `json:"bucket"`
	Prefix    string `json:"prefix"`
	AccessKey string `json:"-"`
	SecretKey string `json:"-"`
	PathStyle bool   `json:"path_style"`
}

// Enabled reports whether a bucket is configured.
func (s S3Config) Enabled() bool {
	return s.Bucket != ""
}

// DefaultProject names the project when neither the configuration nor the
// descriptor does.
const DefaultProject = "vectorstack"

// ProjectFor returns the configured project, else the descriptor's name,
// else DefaultProject.
func (c *Config) ProjectFor(descriptorName string) string {
	switch {
	case c.Project != "":
		return c.Project
	case strings.TrimSpace(descriptorName) != "":
		return descriptorName
	default:
		return DefaultProject
	}
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Platform: "docker",
		LogLevel: "info",
		Output:   "text",
		Wait:     5 * time.Minute,
		Backup: BackupConfig{
			Dir:   "./backups",
			Image: "busybox:1.36",
		},
		S3: S3Config{
			Region:    "us-east-1",
			PathStyle: true,
		},
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Project != "" && strings.TrimSpace(c.Project) == "" {
		return fmt.Errorf("project must not be empty")
	}
	switch c.Platform {
	case "docker":
	default:
		return fmt.Errorf("invalid platform: %s (must be one of: docker)", c.Platform)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}
	switch c.Output {
	case "text", "json":
	default:
		return fmt.Errorf("invalid output format: %s (must be one of: text, json)", c.Output)
	}
	if c.Wait <= 0 {
		return fmt.Errorf("wait timeout must be greater than 0")
	}
	if (c.Agent.Endpoint == "") != (c.Agent.Token == "") {
		return fmt.Errorf("agent endpoint and token must be set together")
	}
	if c.S3.Enabled() && (c.S3.AccessKey == "") != (c.S3.SecretKey == "") {
		return fmt.Errorf("s3 access key and secret key must be set together")
	}
	return nil
}
