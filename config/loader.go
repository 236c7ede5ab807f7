package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Loader builds a Config from defaults, a dotenv file and the environment.
type Loader struct {
	// DotEnv supplies overrides the environment does not set. It is read,
	// never exported to the process. A missing file is ignored.
	DotEnv string
	Getenv func(string) string
}

func NewLoader() *Loader {
	return &Loader{
		DotEnv: ".env",
		Getenv: os.Getenv,
	}
}

// Load returns the defaults with dotenv and environment overrides applied.
func (l *Loader) Load() (*Config, error) {
	getenv := l.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}

	if l.DotEnv != "" {
		dotenv, err := godotenv.Read(l.DotEnv)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read %s: %w", l.DotEnv, err)
		}
		if len(dotenv) > 0 {
			env := getenv
			getenv = func(key string) string {
				if v := env(key); v != "" {
					return v
				}
				return dotenv[key]
			}
		}
	}

	cfg := DefaultConfig()
	if err := applyEnvOverrides(cfg, getenv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnvOverrides(config *Config, getenv func(string) string) error {

	envMappings := map[string]func(string) error{
		"VECTORSTACK_FILE":         func(v string) error { config.File = v; return nil },
		"VECTORSTACK_ENV_FILE":     func(v string) error { config.EnvFile = v; return nil },
		"VECTORSTACK_PROJECT":      func(v string) error { config.Project = v; return nil },
		"VECTORSTACK_PLATFORM":     func(v string) error { config.Platform = v; return nil },
		"VECTORSTACK_LOG_LEVEL":    func(v string) error { config.LogLevel = v; return nil },
		"VECTORSTACK_OUTPUT":       func(v string) error { config.Output = v; return nil },
		"VECTORSTACK_WAIT_TIMEOUT": func(v string) error { return parseDuration(v, &config.Wait) },

		// Agent
		"AGENT_ENDPOINT":             func(v string) error { config.Agent.Endpoint = v; return nil },
		"TOKEN":                      func(v string) error { config.Agent.Token = v; return nil },
		"VECTORSTACK_AGENT_ENDPOINT": func(v string) error { config.Agent.Endpoint = v; return nil },
		"VECTORSTACK_AGENT_TOKEN":    func(v string) error { config.Agent.Token = v; return nil },

		// Backup
		"VECTORSTACK_BACKUP_DIR":   func(v string) error { config.Backup.Dir = v; return nil },
		"VECTORSTACK_BACKUP_IMAGE": func(v string) error { config.Backup.Image = v; return nil },

		// S3
		"VECTORSTACK_S3_ENDPOINT":   func(v string) error { config.S3.Endpoint = v; return nil },
		"VECTORSTACK_S3_REGION":     func(v string) error { config.S3.Region = v; return nil },
		"VECTORSTACK_S3_BUCKET":     func(v string) error { config.S3.Bucket = v; return nil },
		"VECTORSTACK_S3_PREFIX":     func(v string) error { config.S3.Prefix = v; return nil },
		"VECTORSTACK_S3_ACCESS_KEY": func(v string) error { config.S3.AccessKey = v; return nil },
		"VECTORSTACK_S3_SECRET_KEY": func(v string) error { config.S3.SecretKey = v; return nil },
		"VECTORSTACK_S3_PATH_STYLE": func(v string) error { return parseBool(v, &config.S3.PathStyle) },
	}

	// The prefixed agent variables are applied last so they win over the
	// bare ones.
	keys := []string{"AGENT_ENDPOINT", "TOKEN"}
	for k := range envMappings {
		if k != "AGENT_ENDPOINT" && k != "TOKEN" {
			keys = append(keys, k)
		}
	}

	for _, envVar := range keys {
		if value := strings.TrimSpace(getenv(envVar)); value != "" {
			if err := envMappings[envVar](value); err != nil {
				return fmt.Errorf("invalid value for %s: %w", envVar, err)
			}
		}
	}

	return nil
}

func parseBool(s string, dst *bool) error {
	v, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

func parseDuration(s string, dst *time.Duration) error {
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}
