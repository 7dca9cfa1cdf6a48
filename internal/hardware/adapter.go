// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

// Package hardware defines the hardware adapter contract consumed by the
// core (§6) and its default, in-process implementation, SimAdapter — which
// drives the same physics kernel and boundary manager the tick loop uses,
// so a serial/radio-backed Adapter can be swapped in later without the
// controller noticing the difference. Grounded on the teacher's pattern of
// pairing an interface with an in-memory default implementation
// (internal/filelock.LockRegistry / MemoryRegistry).
package hardware

import (
	"math"
	"sync"

	"swarmsim/pkg/physics"
	"swarmsim/pkg/swarmtypes"
)

// HardwareStatus is the adapter's self-reported state, §6.
type HardwareStatus struct {
	Pose      swarmtypes.Point2
	Heading   float64
	Battery   float64
	Connected bool
	Error     string
}

// Adapter is the hardware contract named (but not implemented) by spec §6:
// the core depends only on this interface, never on a concrete transport.
type Adapter interface {
	Initialize(id swarmtypes.AgentID, config map[string]any) error
	SetVelocity(linear, angular float64) error
	SetVelocityVector(v swarmtypes.Vec2) error
	SetTargetPosition(p swarmtypes.Point2) error
	EmergencyStop() error
	GetStatus() HardwareStatus
	Update(dt float64) error
	Shutdown() error
	Reset() error
}

// BoundaryEnforcer is the narrow slice of boundary.Manager SimAdapter uses.
type BoundaryEnforcer interface {
	Enforce(a *swarmtypes.Agent) bool
}

// SimAdapter is the default Adapter: an in-process agent driven by the
// same seek/integrate physics as every other agent, with no real
// transport underneath.
type SimAdapter struct {
	mu sync.Mutex

	state     swarmtypes.Agent
	target    *swarmtypes.Point2
	connected bool
	lastErr   string

	boundary BoundaryEnforcer
}

// NewSimAdapter builds a disconnected SimAdapter; call Initialize before
// Update. boundary may be nil to skip boundary enforcement.
func NewSimAdapter(boundary BoundaryEnforcer) *SimAdapter {
	return &SimAdapter{boundary: boundary}
}

// Initialize assigns identity and starting pose/limits from config. Known
// keys: "position" (swarmtypes.Point2), "max_speed" (float64).
func (s *SimAdapter) Initialize(id swarmtypes.AgentID, config map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = swarmtypes.Agent{
		ID:      id,
		Status:  swarmtypes.StatusActive,
		Battery: 1.0,
		Limits:  swarmtypes.Limits{MaxSpeed: 50},
	}
	if p, ok := config["position"].(swarmtypes.Point2); ok {
		s.state.Position = p
	}
	if v, ok := config["max_speed"].(float64); ok && v > 0 {
		s.state.Limits.MaxSpeed = v
	}
	s.connected = true
	s.lastErr = ""
	s.target = nil
	return nil
}

// SetVelocity sets heading and speed from a differential-drive-style
// command, overriding any pending SetTargetPosition.
func (s *SimAdapter) SetVelocity(linear, angular float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return swarmtypes.ErrHardwareDisconnected
	}
	s.state.Heading = physics.WrapHeading(s.state.Heading + angular)
	dir := swarmtypes.Vec2{X: math.Cos(s.state.Heading), Y: math.Sin(s.state.Heading)}
	s.state.Velocity = dir.Scale(linear)
	s.target = nil
	return nil
}

// SetVelocityVector sets velocity directly, overriding any pending target.
func (s *SimAdapter) SetVelocityVector(v swarmtypes.Vec2) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return swarmtypes.ErrHardwareDisconnected
	}
	s.state.Velocity = v
	s.target = nil
	return nil
}

// SetTargetPosition arms autonomous seek-to-target behavior for Update.
func (s *SimAdapter) SetTargetPosition(p swarmtypes.Point2) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return swarmtypes.ErrHardwareDisconnected
	}
	t := p
	s.target = &t
	return nil
}

// EmergencyStop zeroes velocity and cancels any pending target.
func (s *SimAdapter) EmergencyStop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Velocity = swarmtypes.Vec2{}
	s.target = nil
	return nil
}

// GetStatus reports the adapter's current pose, battery, and connectivity.
func (s *SimAdapter) GetStatus() HardwareStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return HardwareStatus{
		Pose:      s.state.Position,
		Heading:   s.state.Heading,
		Battery:   s.state.Battery,
		Connected: s.connected,
		Error:     s.lastErr,
	}
}

// Update advances the simulated agent by dt: steers toward any pending
// target, integrates, and runs boundary enforcement.
func (s *SimAdapter) Update(dt float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		s.lastErr = "hardware disconnected"
		return swarmtypes.ErrHardwareDisconnected
	}

	if s.target != nil {
		steer := physics.Seek(&s.state, *s.target, s.state.Limits.MaxSpeed)
		s.state.Velocity = s.state.Velocity.Add(steer)
		physics.LimitVelocity(&s.state, s.state.Limits.MaxSpeed)
		if physics.ArrivedAt(&s.state, *s.target) {
			s.target = nil
			s.state.Velocity = swarmtypes.Vec2{}
		}
	}

	physics.Integrate(&s.state, dt)
	if s.boundary != nil {
		s.boundary.Enforce(&s.state)
	}
	return nil
}

// Shutdown disconnects the adapter and freezes motion.
func (s *SimAdapter) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	s.state.Velocity = swarmtypes.Vec2{}
	return nil
}

// Reset reinitializes the adapter in place, preserving identity and
// limits but restoring battery and clearing any error/target state.
func (s *SimAdapter) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = swarmtypes.Agent{
		ID:      s.state.ID,
		Status:  swarmtypes.StatusActive,
		Battery: 1.0,
		Limits:  s.state.Limits,
	}
	s.target = nil
	s.connected = true
	s.lastErr = ""
	return nil
}
