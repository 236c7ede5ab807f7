package docker

import (
	"context"
	"fmt"

	"github.com/containerd/errdefs"
	"github.com/ezenkico/deploy-commander/vectorstack/models"
	"github.com/ezenkico/deploy-commander/vectorstack/services/descriptor"

	"github.com/moby/moby/client"
)

// CheckStack validates the descriptor and makes sure none of the volumes it
// would use already belong to another project.
func (p *DockerPlatform) CheckStack(ctx context.Context, project string, stack *models.Stack) error {
	if err := descriptor.Validate(stack); err != nil {
		return err
	}

	for _, logicalName := range stack.Volumes {
		volName := DockerVolumeName(project, logicalName)

		res, err := p.client.VolumeInspect(ctx, volName, client.VolumeInspectOptions{})
		if err != nil {
			if errdefs.IsNotFound(err) {
				continue
			}
			return fmt.Errorf("inspect volume %q: %w", volName, err)
		}

		if owner := res.Volume.Labels[LabelProject]; owner != "" && owner != project {
			return fmt.Errorf("volume %q belongs to project %q", volName, owner)
		}
	}

	return nil
}
