package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ezenkico/deploy-commander/vectorstack/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAgent(t *testing.T, h http.HandlerFunc) *AgentCommunication {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	ac, err := New("tcp://"+strings.TrimPrefix(srv.URL, "http://"), "secret")
	require.NoError(t, err)
	return ac
}

func TestNewAgentCommunication(t *testing.T) {
	ac, err := NewAgentCommunication("unix:///var/run/agent.sock")
	require.NoError(t, err)
	assert.Equal(t, "unix", ac.Type)
	assert.Equal(t, "/var/run/agent.sock", ac.SocketPath)
	assert.Equal(t, "http://agent", ac.BaseURL)

	ac, err = NewAgentCommunication("tcp://agent.local:7000")
	require.NoError(t, err)
	assert.Equal(t, "tcp", ac.Type)
	assert.Equal(t, "http://agent.local:7000", ac.BaseURL)

	for _, bad := range []string{"ftp://x", "unix://", "tcp://"} {
		_, err := NewAgentCommunication(bad)
		assert.Error(t, err, bad)
	}
}

func TestNewRequiresEndpointAndToken(t *testing.T) {
	_, err := New("", "t")
	assert.Error(t, err)
	_, err = New("tcp://a:1", " ")
	assert.Error(t, err)
}

func TestCreateResource(t *testing.T) {
	id := uuid.New()
	var got models.CreateResource

	ac := newTestAgent(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/resources", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{"id": id})
	})

	out, err := ac.CreateResource(context.Background(), models.CreateResource{
		ResourceType: "vector-store",
		Name:         "weaviate",
		Metadata:     json.RawMessage(`{}`),
	})
	require.NoError(t, err)
	assert.Equal(t, id, out)
	assert.Equal(t, "weaviate", got.Name)
	assert.Equal(t, "vector-store", got.ResourceType)
}

func TestCreateResourceRejected(t *testing.T) {
	ac := newTestAgent(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "duplicate name", http.StatusConflict)
	})

	_, err := ac.CreateResource(context.Background(), models.CreateResource{Name: "weaviate"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "409")
	assert.Contains(t, err.Error(), "duplicate name")
}

func TestDeleteResourceByName(t *testing.T) {
	status := http.StatusNoContent
	var path string
	ac := newTestAgent(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		path = r.URL.Path
		w.WriteHeader(status)
	})

	require.NoError(t, ac.DeleteResourceByName(context.Background(), "weaviate"))
	assert.Equal(t, "/v1/resources/name/weaviate", path)

	status = http.StatusNotFound
	assert.NoError(t, ac.DeleteResourceByName(context.Background(), "weaviate"))

	status = http.StatusInternalServerError
	assert.Error(t, ac.DeleteResourceByName(context.Background(), "weaviate"))
}
