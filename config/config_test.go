package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mapEnv(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Empty(t, cfg.Project)
	assert.Equal(t, "docker", cfg.Platform)
	assert.Equal(t, 5*time.Minute, cfg.Wait)
	assert.False(t, cfg.Agent.Enabled())
	assert.False(t, cfg.S3.Enabled())
}

func TestLoadEnvOverrides(t *testing.T) {
	l := &Loader{Getenv: mapEnv(map[string]string{
		"VECTORSTACK_PROJECT":       "search",
		"VECTORSTACK_WAIT_TIMEOUT":  "90s",
		"VECTORSTACK_S3_BUCKET":     "backups",
		"VECTORSTACK_S3_PATH_STYLE": "false",
		"AGENT_ENDPOINT":            "tcp://agent:7000",
		"TOKEN":                     "bare",
		"VECTORSTACK_AGENT_TOKEN":   "prefixed",
	})}

	cfg, err := l.Load()
	require.NoError(t, err)
	assert.Equal(t, "search", cfg.Project)
	assert.Equal(t, 90*time.Second, cfg.Wait)
	assert.Equal(t, "backups", cfg.S3.Bucket)
	assert.False(t, cfg.S3.PathStyle)
	assert.Equal(t, "tcp://agent:7000", cfg.Agent.Endpoint)
	assert.Equal(t, "prefixed", cfg.Agent.Token)
	assert.True(t, cfg.Agent.Enabled())
}

func TestLoadInvalidOverride(t *testing.T) {
	l := &Loader{Getenv: mapEnv(map[string]string{"VECTORSTACK_WAIT_TIMEOUT": "soon"})}
	_, err := l.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "VECTORSTACK_WAIT_TIMEOUT")
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("VECTORSTACK_PROJECT=fromfile\nVECTORSTACK_OUTPUT=json\n"), 0o600))

	env := map[string]string{"VECTORSTACK_OUTPUT": "text"}
	l := &Loader{DotEnv: path, Getenv: mapEnv(env)}
	cfg, err := l.Load()
	require.NoError(t, err)
	assert.Equal(t, "fromfile", cfg.Project)
	assert.Equal(t, "text", cfg.Output, "environment wins over the dotenv file")

	l.DotEnv = filepath.Join(dir, "missing.env")
	_, err = l.Load()
	assert.NoError(t, err)
}

func TestLoadDotEnvLeavesProcessEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("VECTORSTACK_TEST_DOTENV_ONLY=fromfile\n"), 0o600))

	_, err := (&Loader{DotEnv: path, Getenv: os.Getenv}).Load()
	require.NoError(t, err)
	_, set := os.LookupEnv("VECTORSTACK_TEST_DOTENV_ONLY")
	assert.False(t, set)
}

func TestProjectFor(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, DefaultProject, cfg.ProjectFor(""))
	assert.Equal(t, "search", cfg.ProjectFor("search"))

	cfg.Project = "explicit"
	assert.Equal(t, "explicit", cfg.ProjectFor("search"))
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"empty project":   func(c *Config) { c.Project = " " },
		"platform":        func(c *Config) { c.Platform = "k8s" },
		"log level":       func(c *Config) { c.LogLevel = "loud" },
		"output":          func(c *Config) { c.Output = "yaml" },
		"wait":            func(c *Config) { c.Wait = 0 },
		"agent half set":  func(c *Config) { c.Agent.Endpoint = "tcp://a:1" },
		"s3 half secrets": func(c *Config) { c.S3.Bucket = "b"; c.S3.AccessKey = "k" },
	}
	for name, mutate := range cases {
		cfg := DefaultConfig()
		mutate(cfg)
		assert.Error(t, cfg.Validate(), name)
	}
}
