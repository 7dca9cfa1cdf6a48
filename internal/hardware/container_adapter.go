// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package hardware

import (
	"context"
	"fmt"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"

	"swarmsim/pkg/swarmtypes"
)

// containerStopTimeout bounds how long ContainerAdapter waits for its
// backing container to stop gracefully before forced removal.
const containerStopTimeout = 10 * time.Second

// ContainerAdapter runs an agent's backing process inside a Docker
// container instead of in-process physics — for exercising a real
// containerized firmware image against the same Adapter contract
// SimAdapter satisfies. Pose/limit bookkeeping is still delegated to an
// embedded SimAdapter, so callers observe identical GetStatus/Update
// semantics regardless of backend; only container lifecycle differs.
// Grounded on the teacher's DockerManager
// (internal/mergequeue/docker.go), repurposed from merge-queue sandbox
// teardown to per-agent hardware-process lifecycle.
type ContainerAdapter struct {
	*SimAdapter

	image       string
	client      *client.Client
	containerID string
}

// NewContainerAdapter builds a ContainerAdapter that launches image on
// Initialize. boundary may be nil to skip boundary enforcement, as with
// SimAdapter.
func NewContainerAdapter(image string, boundary BoundaryEnforcer) (*ContainerAdapter, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("hardware: docker client: %w", err)
	}
	return &ContainerAdapter{
		SimAdapter: NewSimAdapter(boundary),
		image:      image,
		client:     cli,
	}, nil
}

// Initialize starts the backing container, then delegates to SimAdapter
// for pose/limit setup.
func (c *ContainerAdapter) Initialize(id swarmtypes.AgentID, config map[string]any) error {
	ctx := context.Background()

	resp, err := c.client.ContainerCreate(ctx, &container.Config{Image: c.image}, nil, nil, nil, fmt.Sprintf("swarm-agent-%d", id))
	if err != nil {
		return fmt.Errorf("hardware: create container: %w", err)
	}
	if err := c.client.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return fmt.Errorf("hardware: start container: %w", err)
	}
	c.containerID = resp.ID

	return c.SimAdapter.Initialize(id, config)
}

// Shutdown stops and removes the backing container — idempotent, a
// container that is already gone is not an error — then disconnects the
// embedded SimAdapter.
func (c *ContainerAdapter) Shutdown() error {
	ctx := context.Background()

	if c.containerID != "" {
		timeout := int(containerStopTimeout.Seconds())
		_ = c.client.ContainerStop(ctx, c.containerID, container.StopOptions{Timeout: &timeout})

		if err := c.client.ContainerRemove(ctx, c.containerID, container.RemoveOptions{Force: true, RemoveVolumes: true}); err != nil {
			if !client.IsErrNotFound(err) {
				return fmt.Errorf("hardware: remove container %s: %w", c.containerID, err)
			}
		}
		c.containerID = ""
	}

	return c.SimAdapter.Shutdown()
}
