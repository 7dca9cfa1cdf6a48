// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

// Package physics implements the pure, side-effect-free functions that
// advance an agent's pose and compute steering forces. Every function here
// operates on swarmtypes.Agent by value or by pointer but never touches
// anything outside the struct passed in — no locks, no events, no I/O —
// so the agent actor can call them without holding the registry lock any
// longer than the tick itself.
package physics

import (
	"math"

	"swarmsim/pkg/swarmtypes"
)

// Integrate advances position by velocity*dt. A NaN velocity (e.g. from a
// prior divide-by-zero steering bug) is clamped to zero rather than
// propagated, and reported via the returned ok=false so the caller can log
// it.
func Integrate(a *swarmtypes.Agent, dt float64) (ok bool) {
	if a.Velocity.IsNaN() {
		a.Velocity = swarmtypes.Vec2{}
		return false
	}
	a.Position = a.Position.Add(a.Velocity.Scale(dt))
	return true
}

// Seek returns the steering force that drives the agent toward target at
// desiredSpeed: the difference between the desired velocity vector and the
// agent's current velocity.
func Seek(a *swarmtypes.Agent, target swarmtypes.Point2, desiredSpeed float64) swarmtypes.Vec2 {
	toTarget := target.Sub(a.Position)
	desired := toTarget.Normalize().Scale(desiredSpeed)
	return desired.Sub(a.Velocity)
}

// Flee returns the steering force that drives the agent away from threat;
// it is the negation of Seek toward threat.
func Flee(a *swarmtypes.Agent, threat swarmtypes.Point2, desiredSpeed float64) swarmtypes.Vec2 {
	return Seek(a, threat, desiredSpeed).Scale(-1)
}

// LimitVelocity scales a.Velocity down to vMax if it currently exceeds it.
// No-op if the agent is already within the limit.
func LimitVelocity(a *swarmtypes.Agent, vMax float64) {
	l := a.Velocity.Length()
	if l > vMax && l > 0 {
		a.Velocity = a.Velocity.Scale(vMax / l)
	}
}

// Collides reports whether a and b are within radius of each other.
// radius defaults to swarmtypes.CollisionDistance when 0 is passed.
func Collides(a, b *swarmtypes.Agent, radius float64) bool {
	if radius <= 0 {
		radius = swarmtypes.CollisionDistance
	}
	return a.Position.DistanceSq(b.Position) < radius*radius
}

// ArrivedAt reports whether the agent is within swarmtypes.ArrivalThreshold
// of target.
func ArrivedAt(a *swarmtypes.Agent, target swarmtypes.Point2) bool {
	return a.Position.Distance(target) < swarmtypes.ArrivalThreshold
}

// WrapHeading normalizes an angle in radians to (-pi, pi].
func WrapHeading(theta float64) float64 {
	for theta > math.Pi {
		theta -= 2 * math.Pi
	}
	for theta <= -math.Pi {
		theta += 2 * math.Pi
	}
	return theta
}
