package docker

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// frame builds one multiplexed log frame as the engine sends it.
func frame(stream byte, payload string) []byte {
	header := make([]byte, 8)
	header[0] = stream
	binary.BigEndian.PutUint32(header[4:], uint32(len(payload)))
	return append(header, payload...)
}

func TestDemuxDockerLogs(t *testing.T) {
	var src bytes.Buffer
	src.Write(frame(1, "hello "))
	src.Write(frame(2, "oops"))
	src.Write(frame(1, ""))
	src.Write(frame(1, "world"))

	var stdout, stderr bytes.Buffer
	require.NoError(t, DemuxDockerLogs(&stdout, &stderr, &src))
	assert.Equal(t, "hello world", stdout.String())
	assert.Equal(t, "oops", stderr.String())
}

func TestDemuxDockerLogsTruncatedPayload(t *testing.T) {
	f := frame(1, "complete")
	var stdout, stderr bytes.Buffer
	err := DemuxDockerLogs(&stdout, &stderr, bytes.NewReader(f[:len(f)-2]))
	assert.Error(t, err)
}

func TestProjectName(t *testing.T) {
	cases := map[string]string{
		"vectorstack":    "vectorstack",
		"  My Stack ":    "my-stack",
		"_weird/Name!":   "weirdname",
		"prod.search_v2": "prod.search_v2",
		"---":            "",
	}
	for in, want := range cases {
		assert.Equal(t, want, ProjectName(in), in)
	}
}

func TestObjectNames(t *testing.T) {
	assert.Equal(t, "vs-weaviate", DockerServiceName("vs", "weaviate"))
	assert.Equal(t, "vs_default", DockerNetworkName("vs", "default"))
	assert.Equal(t, "vs_weaviate_data", DockerVolumeName("vs", "weaviate_data"))
	assert.Equal(t, "vs-backup-weaviate_data", DockerBackupName("vs", "weaviate_data"))
	assert.Equal(t, "vectorstack.project=vs", projectFilter("vs"))
}
