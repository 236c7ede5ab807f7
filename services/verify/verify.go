package verify

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ezenkico/deploy-commander/vectorstack/models"
	"github.com/ezenkico/deploy-commander/vectorstack/services/descriptor"
	"github.com/ezenkico/deploy-commander/vectorstack/services/weaviate"
)

// Store is the part of the vector store API the verifier needs.
type Store interface {
	WaitReady(ctx context.Context, baseURL string, interval, timeout time.Duration) error
	Live(ctx context.Context, baseURL string) error
	Meta(ctx context.Context, baseURL string) (*weaviate.Meta, error)
}

type Check struct {
	Name   string `json:"name"`
	OK     bool   `json:"ok"`
	Detail string `json:"detail,omitempty"`
}

type Report struct {
	Checks []Check `json:"checks"`
}

func (r *Report) add(name string, err error, okDetail string) {
	c := Check{Name: name, OK: err == nil, Detail: okDetail}
	if err != nil {
		c.Detail = err.Error()
	}
	r.Checks = append(r.Checks, c)
}

// Err joins the failed checks, or returns nil.
func (r *Report) Err() error {
	var errs []error
	for _, c := range r.Checks {
		if !c.OK {
			errs = append(errs, fmt.Errorf("%s: %s", c.Name, c.Detail))
		}
	}
	return errors.Join(errs...)
}

type Verifier struct {
	Store Store
	// Host the published ports are reached on, usually localhost.
	Host    string
	Timeout time.Duration
}

// Verify checks a running stack against its descriptor. The declared
// services must run and be healthy, the volumes must exist, and the vector
// store must answer anonymously on its published port.
func (v *Verifier) Verify(ctx context.Context, stack *models.Stack, status *models.StackStatus) (*Report, error) {
	topo, err := descriptor.ResolveTopology(stack)
	if err != nil {
		return nil, err
	}

	r := &Report{}
	r.add("services", checkServices(stack, status), fmt.Sprintf("%d running", len(stack.Services)))
	r.add("volumes", checkVolumes(stack, status), strings.Join(stack.Volumes, ", "))
	r.add("inference", checkHealthy(stack, status, topo.Inference), topo.Inference)
	r.add("vector store", checkHealthy(stack, status, topo.VectorStore), topo.VectorStore)

	baseURL, err := VectorStoreURL(stack.Services[topo.VectorStore], v.Host)
	if err != nil {
		r.add("ready", err, "")
		return r, nil
	}

	timeout := v.Timeout
	if timeout <= 0 {
		timeout = time.Minute
	}
	r.add("ready", v.Store.WaitReady(ctx, baseURL, time.Second, timeout), baseURL)
	r.add("live", v.Store.Live(ctx, baseURL), "")

	meta, err := v.Store.Meta(ctx, baseURL)
	r.add("anonymous access", err, "")
	if err != nil {
		return r, nil
	}

	if slices.Contains(descriptor.EnabledModules(stack.Services[topo.VectorStore]), descriptor.TransformersModule) {
		var modErr error
		if !meta.HasModule(descriptor.TransformersModule) {
			modErr = fmt.Errorf("module %s is not loaded", descriptor.TransformersModule)
		}
		r.add("vectorizer", modErr, descriptor.TransformersModule)
	}

	return r, nil
}

func checkServices(stack *models.Stack, status *models.StackStatus) error {
	seen := map[string]models.ServiceStatus{}
	for _, s := range status.Services {
		seen[s.Service] = s
	}

	var problems []string
	for name := range stack.Services {
		s, ok := seen[name]
		switch {
		case !ok:
			problems = append(problems, fmt.Sprintf("%q has no container", name))
		case s.State != "running":
			problems = append(problems, fmt.Sprintf("%q is %s", name, s.State))
		}
	}
	for name := range seen {
		if _, ok := stack.Services[name]; !ok {
			problems = append(problems, fmt.Sprintf("%q is not declared", name))
		}
	}
	if len(problems) > 0 {
		sort.Strings(problems)
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

func checkVolumes(stack *models.Stack, status *models.StackStatus) error {
	var missing []string
	for _, want := range stack.Volumes {
		found := slices.ContainsFunc(status.Volumes, func(v models.VolumeStatus) bool {
			return v.Volume == want
		})
		if !found {
			missing = append(missing, want)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing %s", strings.Join(missing, ", "))
	}
	return nil
}

func checkHealthy(stack *models.Stack, status *models.StackStatus, service string) error {
	for _, s := range status.Services {
		if s.Service != service {
			continue
		}
		if s.State != "running" {
			return fmt.Errorf("%q is %s", service, s.State)
		}
		if stack.Services[service].Healthcheck != nil && s.Health != "healthy" {
			return fmt.Errorf("%q health is %q", service, s.Health)
		}
		return nil
	}
	return fmt.Errorf("%q has no container", service)
}

// VectorStoreURL builds the host side address of the vector store from its
// first published port.
func VectorStoreURL(svc models.Service, host string) (string, error) {
	if host == "" {
		host = "localhost"
	}
	for _, b := range svc.Bindings {
		if b.HostPort == nil || b.Protocol != "tcp" {
			continue
		}
		h := host
		if b.HostIP != nil {
			if ip, err := netip.ParseAddr(*b.HostIP); err == nil && !ip.IsUnspecified() {
				h = ip.String()
			}
		}
		return "http://" + net.JoinHostPort(h, strconv.Itoa(*b.HostPort)), nil
	}
	return "", errors.New("vector store publishes no tcp port")
}
