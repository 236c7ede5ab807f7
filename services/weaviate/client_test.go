package weaviate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReady(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		if r.URL.Path == "/v1/.well-known/ready" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(time.Second)
	assert.NoError(t, c.Ready(context.Background(), srv.URL))
	assert.Error(t, c.Live(context.Background(), srv.URL))
}

func TestMeta(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/meta", r.URL.Path)
		_, _ = w.Write([]byte(`{"hostname":"http://[::]:8080","version":"1.24.1","modules":{"text2vec-transformers":{"model":{}}}}`))
	}))
	defer srv.Close()

	meta, err := New(time.Second).Meta(context.Background(), srv.URL+"/")
	require.NoError(t, err)
	assert.Equal(t, "1.24.1", meta.Version)
	assert.True(t, meta.HasModule("text2vec-transformers"))
	assert.False(t, meta.HasModule("text2vec-openai"))
}

func TestMetaUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := New(time.Second).Meta(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestWaitReady(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	err := New(time.Second).WaitReady(context.Background(), srv.URL, 10*time.Millisecond, 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestWaitReadyTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := New(time.Second).WaitReady(context.Background(), srv.URL, 10*time.Millisecond, 100*time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestWaitReadyStopsOnUnauthorized(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	err := New(time.Second).WaitReady(context.Background(), srv.URL, 10*time.Millisecond, time.Second)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, int32(1), calls.Load())
}
