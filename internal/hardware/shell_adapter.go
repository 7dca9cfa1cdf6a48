// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package hardware

import (
	"fmt"

	"github.com/bitfield/script"

	"swarmsim/pkg/swarmtypes"
)

// ShellAdapter wraps SimAdapter with a configurable bring-up self-test:
// Initialize runs probeCmd before the agent is marked connected, so a
// serial/radio bring-up script's non-zero exit fails bring-up fast instead
// of silently connecting. Grounded on the teacher's
// ShellActivities.RunScript, which runs shell commands through
// bitfield/script rather than os/exec boilerplate.
type ShellAdapter struct {
	*SimAdapter
	probeCmd string
}

// NewShellAdapter builds a ShellAdapter that runs probeCmd on Initialize.
// An empty probeCmd skips the self-test.
func NewShellAdapter(probeCmd string, boundary BoundaryEnforcer) *ShellAdapter {
	return &ShellAdapter{SimAdapter: NewSimAdapter(boundary), probeCmd: probeCmd}
}

// Initialize runs the configured probe command before delegating to
// SimAdapter for pose/limit setup.
func (s *ShellAdapter) Initialize(id swarmtypes.AgentID, config map[string]any) error {
	if s.probeCmd != "" {
		output, err := script.Exec(s.probeCmd).String()
		if err != nil {
			return fmt.Errorf("hardware: probe %q failed: %w (output: %s)", s.probeCmd, err, output)
		}
	}
	return s.SimAdapter.Initialize(id, config)
}
