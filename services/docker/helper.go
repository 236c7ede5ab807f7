package docker

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// Labels stamped on every engine object the platform creates.
const (
	LabelProject    = "vectorstack.project"
	LabelRun        = "vectorstack.run"
	LabelService    = "vectorstack.service"
	LabelVolume     = "vectorstack.volume"
	LabelNetwork    = "vectorstack.network"
	LabelConfigHash = "vectorstack.config-hash"
	LabelResources  = "vectorstack.resources"
	LabelKind       = "vectorstack.kind"
)

func DemuxDockerLogs(dstOut, dstErr io.Writer, src io.Reader) error {
	r := bufio.NewReader(src)

	header := make([]byte, 8)
	for {
		if _, err := io.ReadFull(r, header); err != nil {
			// Clean EOF: stream ends
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return nil
			}
			return err
		}

		streamType := header[0] // 1=stdout, 2=stderr
		size := binary.BigEndian.Uint32(header[4:8])

		if size == 0 {
			continue
		}

		payload := make([]byte, size)
		if _, err := io.ReadFull(r, payload); err != nil {
			return err
		}

		var w io.Writer
		switch streamType {
		case 2:
			w = dstErr
		default:
			// stdout, and unknown streams so nothing is dropped
			w = dstOut
		}

		if _, err := w.Write(payload); err != nil {
			return fmt.Errorf("write docker log payload: %w", err)
		}
	}
}

var unsafeName = regexp.MustCompile(`[^a-z0-9_.-]+`)

// ProjectName normalizes a project name to what the engine accepts in
// object names.
func ProjectName(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.ReplaceAll(s, " ", "-")
	s = unsafeName.ReplaceAllString(s, "")
	return strings.TrimLeft(s, "_.-")
}

func DockerServiceName(project, serviceKey string) string {
	return fmt.Sprintf("%s-%s", project, strings.TrimSpace(serviceKey))
}

func DockerNetworkName(project, network string) string {
	return fmt.Sprintf("%s_%s", project, strings.TrimSpace(network))
}

func DockerVolumeName(project, volumeName string) string {
	return fmt.Sprintf("%s_%s", project, strings.TrimSpace(volumeName))
}

func DockerBackupName(project, volumeName string) string {
	return fmt.Sprintf("%s-backup-%s", project, strings.TrimSpace(volumeName))
}

func projectFilter(project string) string {
	return LabelProject + "=" + project
}
