// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

// Package boundary implements world-bounds and zone enforcement, §4.5. A
// Manager is shared by reference across the simulation rather than reached
// through a package-level singleton — one of the explicit redesigns in
// spec §9 ("Singletons → explicit context").
package boundary

import (
	"log/slog"
	"sync"
	"time"

	"swarmsim/pkg/swarmtypes"
)

// Mode selects how Enforce reacts to an out-of-bounds position.
type Mode string

const (
	ModeSoft     Mode = "SOFT"
	ModeMedium   Mode = "MEDIUM"
	ModeHard     Mode = "HARD"
	ModeTeleport Mode = "TELEPORT"
)

const (
	mediumPullFraction = 0.1
	searchStep         = 10.0
	searchMaxRadius    = 200.0
)

// Publisher is the subset of eventbus.Bus the boundary manager needs.
type Publisher interface {
	Publish(kind swarmtypes.EventKind, payload any)
}

// Manager owns the world rectangle and the zone sets, and enforces them on
// agent positions after each tick's physics integration.
type Manager struct {
	mu   sync.RWMutex
	mode Mode
	min  swarmtypes.Point2
	max  swarmtypes.Point2

	safe       map[string]swarmtypes.Zone
	restricted map[string]swarmtypes.Zone
	special    map[string]swarmtypes.Zone

	violations map[swarmtypes.AgentID]int

	bus Publisher
}

// New creates a Manager for the given world rectangle and enforcement mode.
func New(bus Publisher, mode Mode, min, max swarmtypes.Point2) *Manager {
	return &Manager{
		mode:       mode,
		min:        min,
		max:        max,
		safe:       make(map[string]swarmtypes.Zone),
		restricted: make(map[string]swarmtypes.Zone),
		special:    make(map[string]swarmtypes.Zone),
		violations: make(map[swarmtypes.AgentID]int),
		bus:        bus,
	}
}

// SetWorldBounds resets the world rectangle.
func (m *Manager) SetWorldBounds(min, max swarmtypes.Point2) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.min, m.max = min, max
}

// SetMode changes the enforcement mode.
func (m *Manager) SetMode(mode Mode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mode = mode
}

// AddZone registers or replaces a zone under id.
func (m *Manager) AddZone(id string, zone swarmtypes.Zone) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch zone.Role {
	case swarmtypes.ZoneSafe:
		m.safe[id] = zone
	case swarmtypes.ZoneRestricted:
		m.restricted[id] = zone
	default:
		m.special[id] = zone
	}
}

// RemoveZone removes a zone by id from whichever set holds it.
func (m *Manager) RemoveZone(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.safe, id)
	delete(m.restricted, id)
	delete(m.special, id)
}

// IsValid reports whether p is inside world bounds, outside every
// restricted zone, and (if any safe zones are defined) inside at least one
// of them, §4.5.
func (m *Manager) IsValid(p swarmtypes.Point2) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.isValidLocked(p)
}

func (m *Manager) isValidLocked(p swarmtypes.Point2) bool {
	if p.X < m.min.X || p.X > m.max.X || p.Y < m.min.Y || p.Y > m.max.Y {
		return false
	}
	for _, z := range m.restricted {
		if z.Contains(p) {
			return false
		}
	}
	if len(m.safe) == 0 {
		return true
	}
	for _, z := range m.safe {
		if z.Contains(p) {
			return true
		}
	}
	return false
}

// NearestSafePoint clamps p into world bounds, then — if still invalid —
// expands a radial 8-direction search in searchStep increments up to
// searchMaxRadius, returning the first valid sample found. Failing that, it
// falls back to the world center, §4.5.
func (m *Manager) NearestSafePoint(p swarmtypes.Point2) swarmtypes.Point2 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.nearestSafePointLocked(p)
}

func (m *Manager) nearestSafePointLocked(p swarmtypes.Point2) swarmtypes.Point2 {
	clamped := swarmtypes.Point2{
		X: clamp(p.X, m.min.X, m.max.X),
		Y: clamp(p.Y, m.min.Y, m.max.Y),
	}
	if m.isValidLocked(clamped) {
		return clamped
	}

	directions := [8]swarmtypes.Vec2{
		{X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}, {X: -1, Y: 1},
		{X: -1, Y: 0}, {X: -1, Y: -1}, {X: 0, Y: -1}, {X: 1, Y: -1},
	}
	for radius := searchStep; radius <= searchMaxRadius; radius += searchStep {
		for _, dir := range directions {
			candidate := clamped.Add(dir.Normalize().Scale(radius))
			candidate.X = clamp(candidate.X, m.min.X, m.max.X)
			candidate.Y = clamp(candidate.Y, m.min.Y, m.max.Y)
			if m.isValidLocked(candidate) {
				return candidate
			}
		}
	}

	return swarmtypes.Point2{X: (m.min.X + m.max.X) / 2, Y: (m.min.Y + m.max.Y) / 2}
}

// Enforce adjusts a.Position (and possibly a.Velocity) in place if it is
// no longer valid after physics integration, applying the configured Mode.
// It returns whether a violation was detected and counted. This is the
// boundary.Manager's implementation of agent.BoundaryEnforcer.
func (m *Manager) Enforce(a *swarmtypes.Agent) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.isValidLocked(a.Position) {
		return false
	}

	m.violations[a.ID]++
	a.BoundaryViolations++

	switch m.mode {
	case ModeSoft:
		// leave position untouched

	case ModeMedium:
		safe := m.nearestSafePointLocked(a.Position)
		a.Position = lerp(a.Position, safe, mediumPullFraction)

	case ModeHard:
		crossedX := a.Position.X < m.min.X || a.Position.X > m.max.X
		crossedY := a.Position.Y < m.min.Y || a.Position.Y > m.max.Y
		a.Position = m.nearestSafePointLocked(a.Position)
		if crossedX {
			a.Velocity.X = -a.Velocity.X
		}
		if crossedY {
			a.Velocity.Y = -a.Velocity.Y
		}

	case ModeTeleport:
		a.Position = m.nearestSafePointLocked(a.Position)
		a.Velocity = swarmtypes.Vec2{}
	}

	if m.bus != nil {
		aid := a.ID
		m.bus.Publish(swarmtypes.EventSystemEvent, swarmtypes.SystemEvent{
			KindTag:  swarmtypes.TagBoundaryViolation,
			AgentID:  &aid,
			Severity: swarmtypes.SeverityWarning,
			Message:  "agent position violated boundary rules",
			Metadata: map[string]string{"mode": string(m.mode)},
			TS:       time.Now(),
		})
	}
	slog.Debug("boundary violation", "agent_id", a.ID, "mode", m.mode, "total_violations", m.violations[a.ID])

	return true
}

// ViolationCount returns how many times id has been corrected.
func (m *Manager) ViolationCount(id swarmtypes.AgentID) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.violations[id]
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func lerp(from, to swarmtypes.Point2, t float64) swarmtypes.Point2 {
	return swarmtypes.Point2{
		X: from.X + (to.X-from.X)*t,
		Y: from.Y + (to.Y-from.Y)*t,
	}
}
