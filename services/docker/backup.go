package docker

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/containerd/errdefs"

	"github.com/moby/moby/api/types/container"
	"github.com/moby/moby/api/types/mount"
	"github.com/moby/moby/client"
)

const (
	DefaultBackupImage = "busybox:1.36"
	backupSourcePath   = "/backup-source"
	backupTimeFormat   = "20060102_150405"
)

// BackupFileName is the archive name for a volume snapshot taken at t.
func BackupFileName(volume string, t time.Time) string {
	return fmt.Sprintf("backup_%s_%s.tar.gz", volume, t.Format(backupTimeFormat))
}

// backupScript streams a base64 tarball of src to stdout. pipefail keeps a
// tar failure from being masked by base64's exit status.
func backupScript(src string) string {
	return "set -o pipefail; tar czf - -C " + src + " . | base64"
}

// Backup archives a project volume into dir using a one-shot helper
// container that mounts the volume read-only. It returns the archive path.
func (p *DockerPlatform) Backup(
	ctx context.Context,
	project string,
	volume string,
	dir string,
	image string,
	now time.Time,
) (string, error) {
	project = ProjectName(project)
	volName := DockerVolumeName(project, volume)
	if image == "" {
		image = DefaultBackupImage
	}

	if _, err := p.client.VolumeInspect(ctx, volName, client.VolumeInspectOptions{}); err != nil {
		if errdefs.IsNotFound(err) {
			return "", fmt.Errorf("volume %q does not exist", volName)
		}
		return "", fmt.Errorf("inspect volume %q: %w", volName, err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create backup dir %q: %w", dir, err)
	}
	path := filepath.Join(dir, BackupFileName(volume, now))

	containerName := DockerBackupName(project, volume)
	if err := p.removeContainer(ctx, containerName); err != nil {
		return "", err
	}

	spec := &containerSpec{
		Name:  containerName,
		Image: image,
		Config: &container.Config{
			Image: image,
			Cmd:   []string{"sh", "-c", backupScript(backupSourcePath)},
			Labels: map[string]string{
				LabelProject: project,
				LabelVolume:  volume,
				LabelKind:    "backup",
			},
		},
		HostConfig: &container.HostConfig{
			Mounts: []mount.Mount{{
				Type:     mount.TypeVolume,
				Source:   volName,
				Target:   backupSourcePath,
				ReadOnly: true,
			}},
			NetworkMode: container.NetworkMode("none"),
			RestartPolicy: container.RestartPolicy{
				Name: container.RestartPolicyDisabled,
			},
		},
	}

	containerID, err := p.createContainer(ctx, spec)
	if err != nil {
		return "", err
	}
	defer func() {
		// Remove container after completion
		if err := p.removeContainer(context.WithoutCancel(ctx), containerID); err != nil {
			p.log.Warn("remove backup container", "container", containerName, "error", err)
		}
	}()

	if _, err := p.client.ContainerStart(ctx, containerID, client.ContainerStartOptions{}); err != nil {
		return "", fmt.Errorf("start container %q: %w", containerName, err)
	}

	rc, err := p.client.ContainerLogs(ctx, containerID, client.ContainerLogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     true,
		Timestamps: false,
		Since:      "0",
	})
	if err != nil {
		return "", fmt.Errorf("logs container %q: %w", containerName, err)
	}
	defer rc.Close()

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create backup file %q: %w", path, err)
	}

	var stderr bytes.Buffer
	logDone := make(chan error, 1)
	go func() {
		logDone <- writeBackupArchive(f, &stderr, rc)
	}()

	// Wait for completion
	waitBodyC := p.client.ContainerWait(ctx, containerID, client.ContainerWaitOptions{})
	var statusCode int64

	select {
	case err := <-waitBodyC.Error:
		if err != nil {
			f.Close()
			os.Remove(path)
			return "", fmt.Errorf("wait container %q: %w", containerName, err)
		}
	case res := <-waitBodyC.Result:
		statusCode = res.StatusCode
	}

	logErr := <-logDone
	closeErr := f.Close()

	if statusCode != 0 {
		os.Remove(path)
		return "", fmt.Errorf("backup container %q exited with status %d: %s", containerName, statusCode, strings.TrimSpace(stderr.String()))
	}
	if logErr != nil {
		os.Remove(path)
		return "", fmt.Errorf("stream backup for %q: %w", containerName, logErr)
	}
	if closeErr != nil {
		return "", fmt.Errorf("close backup file %q: %w", path, closeErr)
	}

	p.log.Info("volume backed up", "volume", volName, "file", path)
	return path, nil
}

// writeBackupArchive demultiplexes the helper's log stream and decodes its
// base64 stdout into dst. Line breaks in the encoding are ignored.
func writeBackupArchive(dst io.Writer, stderr io.Writer, logs io.Reader) error {
	pr, pw := io.Pipe()

	decodeDone := make(chan error, 1)
	go func() {
		_, err := io.Copy(dst, base64.NewDecoder(base64.StdEncoding, pr))
		pr.CloseWithError(err)
		decodeDone <- err
	}()

	demuxErr := DemuxDockerLogs(pw, stderr, logs)
	pw.CloseWithError(demuxErr)

	decodeErr := <-decodeDone
	if demuxErr != nil {
		return demuxErr
	}
	return decodeErr
}
