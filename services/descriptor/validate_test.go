package descriptor

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoServices = `
services:
  store:
    image: store:1
    ports: ["8080:8080"]
    environment:
      ENABLE_MODULES: text2vec-transformers
      DEFAULT_VECTORIZER_MODULE: text2vec-transformers
      TRANSFORMERS_INFERENCE_API: %s
    networks: [%s]
  inference:
    image: inference:1
    expose: [8080]
    aliases: [t2v]
    networks: [%s]
`

func parseWith(t *testing.T, api, storeNet, inferenceNet string) error {
	t.Helper()
	doc := []byte(fmt.Sprintf(twoServices, api, storeNet, inferenceNet))
	_, err := Parse(doc, noEnv)
	return err
}

func TestInferenceAddressResolves(t *testing.T) {
	require.NoError(t, parseWith(t, "http://inference:8080", "default", "default"))
	require.NoError(t, parseWith(t, "http://t2v:8080", "default", "default"))
}

func TestInferenceAddressMustResolve(t *testing.T) {
	err := parseWith(t, "http://elsewhere:8080", "default", "default")
	assert.ErrorContains(t, err, `host "elsewhere" is not a service or alias`)

	err = parseWith(t, "http://inference:9999", "default", "default")
	assert.ErrorContains(t, err, `uses port 9999, but "inference" does not expose or publish it`)

	err = parseWith(t, "http://inference:8080", "front", "back")
	assert.ErrorContains(t, err, "share no network")

	err = parseWith(t, "http://store:8080", "default", "default")
	assert.ErrorContains(t, err, "points at itself")

	err = parseWith(t, "tcp://inference:8080", "default", "default")
	assert.ErrorContains(t, err, "http(s) URL")
}

func TestInferenceTargetWithoutPorts(t *testing.T) {
	doc := `
services:
  store:
    image: store:1
    environment:
      ENABLE_MODULES: text2vec-transformers
      TRANSFORMERS_INFERENCE_API: http://inference:8080
  inference:
    image: inference:1
`
	_, err := Parse([]byte(doc), noEnv)
	assert.ErrorContains(t, err, `uses port 8080, but "inference" does not expose or publish it`)
}

func TestVectorStoreSettings(t *testing.T) {
	doc := `
services:
  store:
    image: store:1
    environment:
      QUERY_DEFAULTS_LIMIT: "-1"
      AUTHENTICATION_ANONYMOUS_ACCESS_ENABLED: "maybe"
      ENABLE_MODULES: text2vec-openai
      DEFAULT_VECTORIZER_MODULE: text2vec-transformers
  gpu:
    image: gpu:1
    environment:
      ENABLE_CUDA: "yes"
`
	_, err := Parse([]byte(doc), noEnv)
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "QUERY_DEFAULTS_LIMIT must be a positive integer")
	assert.Contains(t, msg, "AUTHENTICATION_ANONYMOUS_ACCESS_ENABLED must be true or false")
	assert.Contains(t, msg, `DEFAULT_VECTORIZER_MODULE "text2vec-transformers" is not listed`)
	assert.Contains(t, msg, "ENABLE_CUDA must be 0 or 1")
}

func TestTransformersModuleNeedsAddress(t *testing.T) {
	doc := `
services:
  store:
    image: store:1
    environment:
      ENABLE_MODULES: text2vec-transformers
`
	_, err := Parse([]byte(doc), noEnv)
	assert.ErrorContains(t, err, "sets no TRANSFORMERS_INFERENCE_API")
}

func TestDependencyChecks(t *testing.T) {
	missing := `
services:
  a:
    image: a
    depends_on: [ghost]
`
	_, err := Parse([]byte(missing), noEnv)
	assert.ErrorContains(t, err, `depends_on "ghost", but "ghost" does not exist`)

	cycle := `
services:
  a:
    image: a
    depends_on: [b]
  b:
    image: b
    depends_on: [c]
  c:
    image: c
    depends_on: [a]
`
	_, err = Parse([]byte(cycle), noEnv)
	assert.ErrorContains(t, err, `circular dependency detected: "a" -> "b" -> "c" -> "a"`)

	unhealthy := `
services:
  a:
    image: a
    depends_on:
      b:
        condition: service_healthy
  b:
    image: b
`
	_, err = Parse([]byte(unhealthy), noEnv)
	assert.ErrorContains(t, err, `"b" has no healthcheck`)
}

func TestVolumeChecks(t *testing.T) {
	undeclared := `
services:
  a:
    image: a
    volumes: ["data:/data"]
`
	_, err := Parse([]byte(undeclared), noEnv)
	assert.ErrorContains(t, err, `mounts volume "data", which is not declared`)

	relative := `
services:
  a:
    image: a
    volumes: ["data:data"]
volumes:
  data:
`
	_, err = Parse([]byte(relative), noEnv)
	assert.ErrorContains(t, err, "must be absolute")

	duplicate := `
services:
  a:
    image: a
    volumes: ["data:/data", "other:/data"]
volumes:
  data:
  other:
`
	_, err = Parse([]byte(duplicate), noEnv)
	assert.ErrorContains(t, err, "duplicate volume mount path")
}

func TestHostPortConflict(t *testing.T) {
	doc := `
services:
  a:
    image: a
    ports: ["8080:80"]
  b:
    image: b
    ports: ["8080:81"]
`
	_, err := Parse([]byte(doc), noEnv)
	assert.ErrorContains(t, err, `host port 8080/tcp is published by both "a" and "b"`)
}

func TestServiceBasics(t *testing.T) {
	_, err := Parse([]byte("services: {}\n"), noEnv)
	assert.ErrorContains(t, err, "declares no services")

	_, err = Parse([]byte("services:\n  a:\n    restart: sometimes\n"), noEnv)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `service "a" has no image`)
	assert.Contains(t, err.Error(), `unknown restart policy "sometimes"`)
}
