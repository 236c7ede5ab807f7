package verify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/ezenkico/deploy-commander/vectorstack/models"
	"github.com/ezenkico/deploy-commander/vectorstack/services/descriptor"
	"github.com/ezenkico/deploy-commander/vectorstack/services/weaviate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	readyErr error
	liveErr  error
	meta     *weaviate.Meta
	metaErr  error
	baseURL  string
}

func (f *fakeStore) WaitReady(ctx context.Context, baseURL string, interval, timeout time.Duration) error {
	f.baseURL = baseURL
	return f.readyErr
}

func (f *fakeStore) Live(ctx context.Context, baseURL string) error {
	return f.liveErr
}

func (f *fakeStore) Meta(ctx context.Context, baseURL string) (*weaviate.Meta, error) {
	return f.meta, f.metaErr
}

func defaultStack(t *testing.T) *models.Stack {
	t.Helper()
	stack, err := descriptor.Parse(descriptor.DefaultDescriptor(), func(string) (string, bool) { return "", false })
	require.NoError(t, err)
	return stack
}

func healthyStatus() *models.StackStatus {
	return &models.StackStatus{
		Project: "vectorstack",
		Services: []models.ServiceStatus{
			{Service: "t2v-transformers", State: "running", Health: "healthy"},
			{Service: "weaviate", State: "running", Health: "healthy"},
		},
		Volumes: []models.VolumeStatus{{Volume: "weaviate_data", Name: "vectorstack_weaviate_data"}},
	}
}

func loadedMeta() *weaviate.Meta {
	return &weaviate.Meta{Version: "1.24.1", Modules: map[string]json.RawMessage{"text2vec-transformers": json.RawMessage(`{}`)}}
}

func TestVerifyHealthyStack(t *testing.T) {
	p := &fakeStore{meta: loadedMeta()}
	v := &Verifier{Store: p}

	r, err := v.Verify(context.Background(), defaultStack(t), healthyStatus())
	require.NoError(t, err)
	assert.NoError(t, r.Err())
	assert.Equal(t, "http://localhost:8080", p.baseURL)

	names := make([]string, 0, len(r.Checks))
	for _, c := range r.Checks {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"services", "volumes", "inference", "vector store", "ready", "live", "anonymous access", "vectorizer"}, names)
}

func TestVerifyReportsFailures(t *testing.T) {
	status := healthyStatus()
	status.Services[0].Health = "starting"
	status.Services = append(status.Services, models.ServiceStatus{Service: "stray", State: "running"})
	status.Volumes = nil

	p := &fakeStore{metaErr: weaviate.ErrUnauthorized}
	r, err := (&Verifier{Store: p}).Verify(context.Background(), defaultStack(t), status)
	require.NoError(t, err)

	failed := map[string]string{}
	for _, c := range r.Checks {
		if !c.OK {
			failed[c.Name] = c.Detail
		}
	}
	assert.Contains(t, failed["services"], `"stray" is not declared`)
	assert.Contains(t, failed["volumes"], "weaviate_data")
	assert.Contains(t, failed["inference"], "starting")
	assert.Contains(t, failed, "anonymous access")
	assert.NotContains(t, failed, "vectorizer")
	assert.Error(t, r.Err())
}

func TestVerifyModuleMissing(t *testing.T) {
	p := &fakeStore{meta: &weaviate.Meta{Version: "1.24.1"}}
	r, err := (&Verifier{Store: p}).Verify(context.Background(), defaultStack(t), healthyStatus())
	require.NoError(t, err)
	require.Error(t, r.Err())
	assert.Contains(t, r.Err().Error(), "vectorizer")
}

func TestVerifyNotReady(t *testing.T) {
	p := &fakeStore{readyErr: errors.New("connection refused"), meta: loadedMeta()}
	r, err := (&Verifier{Store: p}).Verify(context.Background(), defaultStack(t), healthyStatus())
	require.NoError(t, err)
	assert.Contains(t, r.Err().Error(), "ready: connection refused")
}

func TestVerifyNotLive(t *testing.T) {
	p := &fakeStore{liveErr: errors.New("status 503"), meta: loadedMeta()}
	r, err := (&Verifier{Store: p}).Verify(context.Background(), defaultStack(t), healthyStatus())
	require.NoError(t, err)
	require.Error(t, r.Err())
	assert.Contains(t, r.Err().Error(), "live: status 503")
}

func TestVectorStoreURL(t *testing.T) {
	port := 18080
	loopback := "127.0.0.1"
	unspecified := "0.0.0.0"

	u, err := VectorStoreURL(models.Service{Bindings: []models.BindingSpec{
		{ContainerPort: 8080, HostPort: &port, HostIP: &unspecified, Protocol: "tcp"},
	}}, "")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:18080", u)

	u, err = VectorStoreURL(models.Service{Bindings: []models.BindingSpec{
		{ContainerPort: 8080, HostPort: &port, HostIP: &loopback, Protocol: "tcp"},
	}}, "docker.internal")
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:18080", u)

	_, err = VectorStoreURL(models.Service{Bindings: []models.BindingSpec{{ContainerPort: 8080, Protocol: "tcp"}}}, "")
	assert.Error(t, err)
}
