// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

// Package swarmtypes holds the value types shared across the simulation
// core: agent state, commands, zones, formations, and recovery bookkeeping.
// Types here are pure data — no behavior, no locking — so every other
// package can pass them by value without worrying about ownership.
package swarmtypes

import "time"

// AgentID is the unique, monotonically-allocated identifier for an agent.
type AgentID uint64

// AgentStatus is the lifecycle state of an agent.
type AgentStatus string

const (
	StatusActive      AgentStatus = "ACTIVE"
	StatusInactive    AgentStatus = "INACTIVE"
	StatusFailed      AgentStatus = "FAILED"
	StatusBatteryLow  AgentStatus = "BATTERY_LOW"
	StatusMaintenance AgentStatus = "MAINTENANCE"
)

// Limits bounds an agent's physical capability.
type Limits struct {
	MaxSpeed    float64
	CommRange   float64
	MaxTurnRate float64 // radians/sec
}

// Agent is the mutable state record for a single simulated (or
// hardware-backed) entity. The registry is its sole owner; every other
// component reads it only through a Snapshot.
type Agent struct {
	ID       AgentID
	Name     string
	Position Point2
	Velocity Vec2
	Heading  float64 // radians

	Battery float64 // in [0,1]
	Limits  Limits
	Status  AgentStatus

	LastUpdateTS time.Time

	// BoundaryViolations counts how many boundary violations have been
	// detected for this agent, whether or not the mode corrected the position
	// (internal/boundary owns the increment).
	BoundaryViolations int
}

// Snapshot is an immutable copy of an agent's state at a point in time. The
// spatial cache and event bus only ever hold Snapshots, never *Agent.
type Snapshot struct {
	ID                 AgentID
	Name               string
	Position           Point2
	Velocity           Vec2
	Heading            float64
	Battery            float64
	Limits             Limits
	Status             AgentStatus
	LastUpdateTS       time.Time
	BoundaryViolations int
}

// ToSnapshot copies a, producing a value with no aliasing to a's storage.
func (a *Agent) ToSnapshot() Snapshot {
	return Snapshot{
		ID:                 a.ID,
		Name:               a.Name,
		Position:           a.Position,
		Velocity:           a.Velocity,
		Heading:            a.Heading,
		Battery:            a.Battery,
		Limits:             a.Limits,
		Status:             a.Status,
		LastUpdateTS:       a.LastUpdateTS,
		BoundaryViolations: a.BoundaryViolations,
	}
}

// ClampBattery enforces the battery ∈ [0,1] invariant in place.
func (a *Agent) ClampBattery() {
	if a.Battery < 0 {
		a.Battery = 0
	}
	if a.Battery > 1 {
		a.Battery = 1
	}
}
