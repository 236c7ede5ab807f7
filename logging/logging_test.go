package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"":      slog.LevelInfo,
		"Warn":  slog.LevelWarn,
		"ERROR": slog.LevelError,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}

func TestConfigure(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	require.NoError(t, Configure(&buf, "warn"))

	slog.Info("hidden")
	slog.Warn("shown", "service", "weaviate")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "service=weaviate")

	SetLevel(slog.LevelDebug)
	slog.Debug("now visible")
	assert.Contains(t, buf.String(), "now visible")
}
