// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

// Package agent implements the per-agent actor: the command queue, the
// fixed-step tick algorithm (§4.2), and the battery/status state machine.
// An Actor is the only thing allowed to mutate its own swarmtypes.Agent —
// everyone else reads a Snapshot.
package agent

import (
	"sync"
	"time"

	"swarmsim/internal/cmdqueue"
	"swarmsim/pkg/swarmtypes"
)

// BoundaryEnforcer adjusts an agent's pose in place after physics
// integration and reports whether a violation occurred. Defined here
// (rather than imported from internal/boundary) so pkg/agent has no
// dependency on the boundary package's concrete type.
type BoundaryEnforcer interface {
	Enforce(a *swarmtypes.Agent) (violated bool)
}

// Publisher is the subset of eventbus.Bus the actor needs, narrowed to
// avoid a hard dependency on the bus's concrete type.
type Publisher interface {
	Publish(kind swarmtypes.EventKind, payload any)
}

// TickDeps bundles everything the tick algorithm needs from outside the
// actor. Clock defaults to time.Now when nil.
type TickDeps struct {
	Boundary BoundaryEnforcer
	Bus      Publisher
	Clock    func() time.Time
}

func (d TickDeps) now() time.Time {
	if d.Clock != nil {
		return d.Clock()
	}
	return time.Now()
}

// Actor owns one agent's mutable state and its command queue.
type Actor struct {
	mu    sync.Mutex
	state swarmtypes.Agent
	queue *cmdqueue.Queue

	current        *swarmtypes.MovementCommand
	currentStarted time.Time
}

// NewActor wraps initial state in a new actor with an unbounded queue.
func NewActor(initial swarmtypes.Agent) *Actor {
	return &Actor{
		state: initial,
		queue: cmdqueue.New(0),
	}
}

// ID returns the agent's identity.
func (a *Actor) ID() swarmtypes.AgentID {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state.ID
}

// Status returns the agent's current lifecycle status.
func (a *Actor) Status() swarmtypes.AgentStatus {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state.Status
}

// Snapshot returns an immutable copy of the current state.
func (a *Actor) Snapshot() swarmtypes.Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state.ToSnapshot()
}

// SetStatus forces a status transition, used by the recovery controller
// (§4.8) which operates outside the normal tick-driven state machine.
func (a *Actor) SetStatus(status swarmtypes.AgentStatus) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state.Status = status
}

// SetVelocity overwrites velocity, used by recovery strategies like
// COLLISION ("zero velocity").
func (a *Actor) SetVelocity(v swarmtypes.Vec2) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state.Velocity = v
}

// Recharge raises battery by delta, clamped to [0,1]. The only path that
// increases battery, §9.
func (a *Actor) Recharge(delta float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state.Battery += delta
	a.state.ClampBattery()
}

// ClearQueue discards every pending command, returning how many were
// dropped. Used by the SYSTEM_ERROR recovery strategy.
func (a *Actor) ClearQueue() int {
	return a.queue.Clear()
}

// DropLowPriority discards queued commands below NORMAL, used by the
// OVERLOAD recovery strategy.
func (a *Actor) DropLowPriority() int {
	return a.queue.DropBelow(swarmtypes.PriorityNormal)
}

// QueueLen reports how many commands are pending.
func (a *Actor) QueueLen() int {
	return a.queue.Len()
}

// Enqueue adds cmd to the queue. Returns swarmtypes.ErrInvalidArgument if
// cmd.TargetAgentID does not match this actor — a mismatched id is
// rejected at enqueue time, never silently executed, §4.2 "Failure modes".
func (a *Actor) Enqueue(cmd swarmtypes.MovementCommand) error {
	if cmd.TargetAgentID != a.ID() {
		return swarmtypes.ErrInvalidArgument
	}
	return a.queue.Push(cmd)
}

// EnqueueEmergency is a convenience used by the recovery controller to
// inject an EMERGENCY command addressed to this actor. It goes through the
// same queue Push as Enqueue, so the queue's capacity (if any) applies.
func (a *Actor) EnqueueEmergency(kind swarmtypes.CommandKind, params map[string]any, taskID string) error {
	return a.queue.Push(swarmtypes.MovementCommand{
		TargetAgentID: a.ID(),
		Kind:          kind,
		Priority:      swarmtypes.PriorityEmergency,
		CreatedTS:     time.Now(),
		TaskID:        taskID,
		Params:        params,
	})
}
