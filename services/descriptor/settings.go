package descriptor

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/ezenkico/deploy-commander/vectorstack/models"
)

// Vector store and inference settings understood by the validator.
const (
	EnvQueryDefaultsLimit      = "QUERY_DEFAULTS_LIMIT"
	EnvAnonymousAccess         = "AUTHENTICATION_ANONYMOUS_ACCESS_ENABLED"
	EnvDefaultVectorizerModule = "DEFAULT_VECTORIZER_MODULE"
	EnvEnableModules           = "ENABLE_MODULES"
	EnvTransformersInference   = "TRANSFORMERS_INFERENCE_API"
	EnvEnableCUDA              = "ENABLE_CUDA"

	TransformersModule = "text2vec-transformers"
)

// Topology names the two roles of the stack once the inference reference
// has been resolved.
type Topology struct {
	VectorStore  string
	Inference    string
	InferenceURL *url.URL
}

// IsVectorStore reports whether svc carries vector store settings.
func IsVectorStore(svc models.Service) bool {
	for _, k := range []string{EnvTransformersInference, EnvDefaultVectorizerModule, EnvEnableModules} {
		if _, ok := svc.Environment[k]; ok {
			return true
		}
	}
	return false
}

// CheckVectorStoreSettings validates the vector store and inference
// settings of every service, including that the inference address resolves
// to a service on a shared network.
func CheckVectorStoreSettings(stack *models.Stack) []error {
	var errs []error

	for _, key := range sortedKeys(stack.Services) {
		svc := stack.Services[key]
		env := svc.Environment

		if v, ok := env[EnvEnableCUDA]; ok && v != "0" && v != "1" {
			errs = append(errs, fmt.Errorf("service %q: %s must be 0 or 1, got %q", key, EnvEnableCUDA, v))
		}

		if !IsVectorStore(svc) {
			continue
		}

		if v, ok := env[EnvQueryDefaultsLimit]; ok {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				errs = append(errs, fmt.Errorf("service %q: %s must be a positive integer, got %q", key, EnvQueryDefaultsLimit, v))
			}
		}

		if v, ok := env[EnvAnonymousAccess]; ok {
			if _, err := strconv.ParseBool(v); err != nil {
				errs = append(errs, fmt.Errorf("service %q: %s must be true or false, got %q", key, EnvAnonymousAccess, v))
			}
		}

		modules := EnabledModules(svc)
		if def := strings.TrimSpace(env[EnvDefaultVectorizerModule]); def != "" && def != "none" && !slices.Contains(modules, def) {
			errs = append(errs, fmt.Errorf("service %q: %s %q is not listed in %s", key, EnvDefaultVectorizerModule, def, EnvEnableModules))
		}

		api, hasAPI := env[EnvTransformersInference]
		if slices.Contains(modules, TransformersModule) && !hasAPI {
			errs = append(errs, fmt.Errorf("service %q enables %s but sets no %s", key, TransformersModule, EnvTransformersInference))
		}
		if hasAPI {
			if _, _, err := resolveInference(stack, key, api); err != nil {
				errs = append(errs, err)
			}
		}
	}

	return errs
}

// EnabledModules returns the comma separated ENABLE_MODULES list.
func EnabledModules(svc models.Service) []string {
	var out []string
	for _, m := range strings.Split(svc.Environment[EnvEnableModules], ",") {
		if m = strings.TrimSpace(m); m != "" {
			out = append(out, m)
		}
	}
	return out
}

// ResolveTopology finds the vector store and the inference service it
// points at.
func ResolveTopology(stack *models.Stack) (*Topology, error) {
	for _, key := range sortedKeys(stack.Services) {
		api, ok := stack.Services[key].Environment[EnvTransformersInference]
		if !ok {
			continue
		}
		target, u, err := resolveInference(stack, key, api)
		if err != nil {
			return nil, err
		}
		return &Topology{VectorStore: key, Inference: target, InferenceURL: u}, nil
	}
	return nil, errors.New("no service sets " + EnvTransformersInference)
}

func resolveInference(stack *models.Stack, from, raw string) (string, *url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", nil, fmt.Errorf("service %q: invalid %s %q: %w", from, EnvTransformersInference, raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", nil, fmt.Errorf("service %q: %s %q must be an http(s) URL", from, EnvTransformersInference, raw)
	}

	host := u.Hostname()
	port := 80
	if u.Scheme == "https" {
		port = 443
	}
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil {
			return "", nil, fmt.Errorf("service %q: invalid port in %s %q", from, EnvTransformersInference, raw)
		}
	}

	target, ok := FindServiceByAlias(stack, host)
	if !ok {
		return "", nil, fmt.Errorf("service %q: %s host %q is not a service or alias in this stack", from, EnvTransformersInference, host)
	}
	if target == from {
		return "", nil, fmt.Errorf("service %q: %s points at itself", from, EnvTransformersInference)
	}

	svc := stack.Services[from]
	tgt := stack.Services[target]
	if !sharesNetwork(svc, tgt) {
		return "", nil, fmt.Errorf("service %q cannot reach %q: they share no network", from, target)
	}

	if _, ok := tgt.ContainerPorts()[port]; !ok {
		return "", nil, fmt.Errorf("service %q: %s uses port %d, but %q does not expose or publish it", from, EnvTransformersInference, port, target)
	}

	return target, u, nil
}

// FindServiceByAlias resolves a network name the way the engine's DNS
// would: a service key or one of its aliases.
func FindServiceByAlias(stack *models.Stack, name string) (string, bool) {
	if _, ok := stack.Services[name]; ok {
		return name, true
	}
	for _, key := range sortedKeys(stack.Services) {
		if slices.Contains(stack.Services[key].Aliases, name) {
			return key, true
		}
	}
	return "", false
}

func sharesNetwork(a, b models.Service) bool {
	for _, n := range a.NetworkNames() {
		if slices.Contains(b.NetworkNames(), n) {
			return true
		}
	}
	return false
}
