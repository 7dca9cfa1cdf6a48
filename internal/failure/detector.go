// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

// Package failure implements the failure detector and recovery controller
// of §4.8: heartbeat-based timeout detection plus per-failure-kind
// corrective dispatch, each attempt bounded by RECOVERY_TIMEOUT. The
// timeout-and-poll shape is grounded on the teacher's kill-switch
// goroutine+channel pattern (internal/mergequeue/kill_switch.go),
// repurposed here from merge-queue cancellation to recovery-attempt
// expiry.
package failure

import (
	"sync"
	"time"

	"swarmsim/internal/eventbus"
	"swarmsim/pkg/swarmtypes"
)

// Detector tracks the last observed heartbeat (an AGENT_STATE_UPDATE) per
// agent and flags agents that have gone quiet longer than its timeout.
type Detector struct {
	mu      sync.Mutex
	last    map[swarmtypes.AgentID]time.Time
	timeout time.Duration
	now     func() time.Time
}

// NewDetector builds a Detector using timeout as HEARTBEAT_TIMEOUT.
func NewDetector(timeout time.Duration) *Detector {
	return &Detector{
		last:    make(map[swarmtypes.AgentID]time.Time),
		timeout: timeout,
		now:     time.Now,
	}
}

// Subscribe wires the detector to bus, refreshing an agent's heartbeat on
// every AGENT_STATE_UPDATE it publishes.
func (d *Detector) Subscribe(bus *eventbus.Bus) eventbus.Subscription {
	return bus.Subscribe(swarmtypes.EventAgentStateUpdate, func(payload any) {
		if upd, ok := payload.(swarmtypes.AgentStateUpdate); ok {
			d.Heartbeat(upd.AgentID)
		}
	})
}

// Heartbeat records that id is alive as of now.
func (d *Detector) Heartbeat(id swarmtypes.AgentID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.last[id] = d.now()
}

// Forget drops id's heartbeat history, used when an agent is removed.
func (d *Detector) Forget(id swarmtypes.AgentID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.last, id)
}

// CheckTimeouts returns the subset of ids whose last heartbeat is older
// than HEARTBEAT_TIMEOUT. An id seen for the first time is recorded as
// alive now rather than flagged, so a just-created agent is never reported
// stale before it has ever ticked.
func (d *Detector) CheckTimeouts(ids []swarmtypes.AgentID) []swarmtypes.AgentID {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	var stale []swarmtypes.AgentID
	for _, id := range ids {
		last, ok := d.last[id]
		if !ok {
			d.last[id] = now
			continue
		}
		if now.Sub(last) > d.timeout {
			stale = append(stale, id)
		}
	}
	return stale
}
