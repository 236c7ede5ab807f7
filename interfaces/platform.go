package interfaces

import (
	"context"
	"io"
	"time"

	"github.com/ezenkico/deploy-commander/vectorstack/models"
)

// Platform applies a stack to a container runtime and operates on the
// services it created.
type Platform interface {
	Run(ctx context.Context, config models.Configuration) error
	Status(ctx context.Context, project string) (*models.StackStatus, error)

	StartService(ctx context.Context, project, service string) error
	StopService(ctx context.Context, project, service string) error
	RestartService(ctx context.Context, project, service string) error
	Logs(ctx context.Context, project, service string, follow bool, tail string, stdout, stderr io.Writer) error

	RemoveVolumes(ctx context.Context, project string, volumes []string) error
	Backup(ctx context.Context, project, volume, dir, image string, now time.Time) (string, error)

	Close() error
}
