package descriptor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ezenkico/deploy-commander/vectorstack/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noEnv(string) (string, bool) { return "", false }

func TestDefaultDescriptor(t *testing.T) {
	stack, err := Parse(DefaultDescriptor(), noEnv)
	require.NoError(t, err)

	assert.Equal(t, "vectorstack", stack.Name)
	assert.Len(t, stack.Services, 2)
	assert.Equal(t, []string{"weaviate_data"}, stack.Volumes)

	store := stack.Services["weaviate"]
	assert.Equal(t, "cr.weaviate.io/semitechnologies/weaviate:1.24.1", store.Image)
	require.Len(t, store.Bindings, 1)
	assert.Equal(t, 8080, store.Bindings[0].ContainerPort)
	assert.Equal(t, 8080, *store.Bindings[0].HostPort)
	assert.Equal(t, "25", store.Environment[EnvQueryDefaultsLimit])
	assert.Equal(t, "true", store.Environment[EnvAnonymousAccess])
	assert.Equal(t, TransformersModule, store.Environment[EnvDefaultVectorizerModule])
	assert.Equal(t, "http://t2v-transformers:8080", store.Environment[EnvTransformersInference])
	assert.Equal(t, []models.VolumeMount{{Name: "weaviate_data", MountPath: "/var/lib/weaviate"}}, store.Volumes)
	assert.Equal(t, []models.Dependency{{Service: "t2v-transformers", Condition: models.ConditionServiceHealthy}}, store.DependsOn)

	inference := stack.Services["t2v-transformers"]
	assert.Equal(t, "0", inference.Environment[EnvEnableCUDA])
	assert.Empty(t, inference.Bindings)
	assert.Empty(t, inference.Volumes)
	assert.NotNil(t, inference.Healthcheck)

	topo, err := ResolveTopology(stack)
	require.NoError(t, err)
	assert.Equal(t, "weaviate", topo.VectorStore)
	assert.Equal(t, "t2v-transformers", topo.Inference)
	assert.Equal(t, "8080", topo.InferenceURL.Port())
}

func TestDefaultDescriptorOverrides(t *testing.T) {
	vars := mapLookup(map[string]string{
		"WEAVIATE_VERSION": "1.25.0",
		"WEAVIATE_PORT":    "18080",
		"ENABLE_CUDA":      "1",
	})

	stack, err := Parse(DefaultDescriptor(), vars)
	require.NoError(t, err)
	assert.Equal(t, "cr.weaviate.io/semitechnologies/weaviate:1.25.0", stack.Services["weaviate"].Image)
	assert.Equal(t, 18080, *stack.Services["weaviate"].Bindings[0].HostPort)
	assert.Equal(t, "1", stack.Services["t2v-transformers"].Environment[EnvEnableCUDA])
}

func TestLoaderEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stack.yaml")
	require.NoError(t, os.WriteFile(path, DefaultDescriptor(), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("WEAVIATE_PORT=9999\nENABLE_CUDA=1\n"), 0o600))

	l := NewLoader("")
	l.Getenv = mapLookup(map[string]string{"ENABLE_CUDA": "0"})

	stack, err := l.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9999, *stack.Services["weaviate"].Bindings[0].HostPort)
	// process environment wins over the .env file
	assert.Equal(t, "0", stack.Services["t2v-transformers"].Environment[EnvEnableCUDA])
}

func TestLoaderMissingExplicitEnvFile(t *testing.T) {
	l := NewLoader(filepath.Join(t.TempDir(), "nope.env"))
	l.Getenv = noEnv

	_, err := l.Load("")
	assert.ErrorContains(t, err, "read env file")
}

func TestLoaderMissingDescriptor(t *testing.T) {
	_, err := NewLoader("").Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "read descriptor")
}

func TestParseRejectsUnknownFields(t *testing.T) {
	_, err := Parse([]byte("services:\n  a:\n    image: x\n    imagee: y\n"), noEnv)
	assert.ErrorContains(t, err, "parse yaml")
}

func TestRenderRoundTrip(t *testing.T) {
	stack, err := Parse(DefaultDescriptor(), noEnv)
	require.NoError(t, err)

	out, err := Render(stack)
	require.NoError(t, err)
	text := string(out)
	assert.Contains(t, text, "TRANSFORMERS_INFERENCE_API: http://t2v-transformers:8080")
	assert.Contains(t, text, "x-resources:")
	assert.Contains(t, text, "condition: service_healthy")
	assert.NotContains(t, text, "bindings:")

	again, err := Parse(out, noEnv)
	require.NoError(t, err)
	assert.Equal(t, stack, again)
}

func TestRenderEscapesDollars(t *testing.T) {
	doc := `
name: shop
services:
  store:
    image: store:1
    environment:
      PRICE: "$$5"
    volumes: ["data:/data:ro"]
    ports: ["127.0.0.1::8080"]
    healthcheck:
      test: ["CMD-SHELL", "echo $$HOME"]
      interval: 1m30s
volumes:
  data:
`
	stack, err := Parse([]byte(doc), noEnv)
	require.NoError(t, err)
	require.Equal(t, "$5", stack.Services["store"].Environment["PRICE"])

	out, err := Render(stack)
	require.NoError(t, err)

	again, err := Parse(out, mapLookup(map[string]string{"HOME": "/root"}))
	require.NoError(t, err)
	assert.Equal(t, stack, again)
}
