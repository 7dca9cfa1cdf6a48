// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package agent

import (
	"fmt"
	"time"

	"swarmsim/pkg/physics"
	"swarmsim/pkg/swarmtypes"
)

// Tick advances the agent by one fixed step dt, following the algorithm in
// spec §4.2:
//
//  1. pop a command if none is current; drop (as TIMEOUT) any command whose
//     age exceeds swarmtypes.CommandTimeout until a live one is found or
//     the queue empties.
//  2. dispatch the live command by kind.
//  3. integrate physics, then enforce boundaries.
//  4. deplete battery and apply status transitions.
//  5. publish the state update and, if the command completed, its report.
func (a *Actor) Tick(dt float64, deps TickDeps) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state.Status == swarmtypes.StatusFailed {
		// A permanently-failed agent still exists in the registry (until
		// explicitly removed) but never ticks.
		return
	}

	now := deps.now()

	a.fillCurrentLocked(now, deps)

	var completed *swarmtypes.TaskCompletionReport
	if a.current != nil {
		completed = a.dispatchLocked(now)
	}

	physics.Integrate(&a.state, dt)

	violated := false
	if deps.Boundary != nil {
		violated = deps.Boundary.Enforce(&a.state)
	}
	_ = violated // boundary manager itself publishes BOUNDARY_VIOLATION, §4.5

	a.depleteBatteryLocked(dt)

	a.state.LastUpdateTS = now

	if deps.Bus != nil {
		deps.Bus.Publish(swarmtypes.EventAgentStateUpdate, swarmtypes.AgentStateUpdate{
			AgentID:    a.state.ID,
			Snapshot:   a.state.ToSnapshot(),
			UpdateKind: swarmtypes.UpdateFull,
			TS:         now,
		})
		if completed != nil {
			deps.Bus.Publish(swarmtypes.EventTaskCompletionReport, *completed)
		}
	}
}

// fillCurrentLocked ensures a.current holds a non-stale command, popping
// and timing out stale ones as it goes. Caller holds a.mu.
func (a *Actor) fillCurrentLocked(now time.Time, deps TickDeps) {
	for a.current == nil {
		cmd, ok := a.queue.Pop()
		if !ok {
			return
		}
		if now.Sub(cmd.CreatedTS) > swarmtypes.CommandTimeout {
			if deps.Bus != nil && cmd.TaskID != "" {
				deps.Bus.Publish(swarmtypes.EventTaskCompletionReport, swarmtypes.TaskCompletionReport{
					TaskID:    cmd.TaskID,
					AgentID:   a.state.ID,
					Status:    swarmtypes.TaskTimeout,
					DurationS: now.Sub(cmd.CreatedTS).Seconds(),
				})
			}
			continue
		}
		a.current = &cmd
		a.currentStarted = now
	}
}

// dispatchLocked executes the current command's per-kind behavior and
// returns a non-nil report if it reached a terminal state this tick.
// Caller holds a.mu.
func (a *Actor) dispatchLocked(now time.Time) *swarmtypes.TaskCompletionReport {
	cmd := a.current

	switch cmd.Kind {
	case swarmtypes.CommandMoveToTarget:
		target, ok := paramPoint(cmd.Params, "target")
		if !ok {
			return a.failCurrentLocked(now, "missing or invalid param: target")
		}
		steer := physics.Seek(&a.state, target, a.state.Limits.MaxSpeed)
		a.state.Velocity = a.state.Velocity.Add(steer)
		physics.LimitVelocity(&a.state, a.state.Limits.MaxSpeed)
		if physics.ArrivedAt(&a.state, target) {
			return a.succeedCurrentLocked(now)
		}
		return nil

	case swarmtypes.CommandFlocking:
		force, ok := paramVec(cmd.Params, "combined_force")
		if !ok {
			return a.failCurrentLocked(now, "missing or invalid param: combined_force")
		}
		a.state.Velocity = a.state.Velocity.Add(force)
		physics.LimitVelocity(&a.state, a.state.Limits.MaxSpeed)
		// FLOCKING completes immediately by design, §4.2 and the resolved
		// Open Question in §9 (source completes immediately).
		return a.succeedCurrentLocked(now)

	case swarmtypes.CommandFormationPos:
		target, ok := paramPoint(cmd.Params, "formation_pos")
		if !ok {
			return a.failCurrentLocked(now, "missing or invalid param: formation_pos")
		}
		steer := physics.Seek(&a.state, target, a.state.Limits.MaxSpeed)
		a.state.Velocity = a.state.Velocity.Add(steer)
		physics.LimitVelocity(&a.state, a.state.Limits.MaxSpeed)
		if physics.ArrivedAt(&a.state, target) {
			return a.succeedCurrentLocked(now)
		}
		return nil

	case swarmtypes.CommandAvoidObstacle:
		if force, ok := paramVec(cmd.Params, "avoidance_force"); ok {
			a.state.Velocity = a.state.Velocity.Add(force)
		} else if obstacle, ok := paramPoint(cmd.Params, "obstacle"); ok {
			force := physics.Flee(&a.state, obstacle, a.state.Limits.MaxSpeed)
			a.state.Velocity = a.state.Velocity.Add(force)
		} else {
			return a.failCurrentLocked(now, "missing param: avoidance_force or obstacle")
		}
		physics.LimitVelocity(&a.state, a.state.Limits.MaxSpeed)
		return a.succeedCurrentLocked(now)

	default:
		return a.failCurrentLocked(now, fmt.Sprintf("unknown command kind %q", cmd.Kind))
	}
}

func (a *Actor) succeedCurrentLocked(now time.Time) *swarmtypes.TaskCompletionReport {
	return a.completeCurrentLocked(now, swarmtypes.TaskSuccess, "")
}

func (a *Actor) failCurrentLocked(now time.Time, reason string) *swarmtypes.TaskCompletionReport {
	return a.completeCurrentLocked(now, swarmtypes.TaskFailed, reason)
}

func (a *Actor) completeCurrentLocked(now time.Time, status swarmtypes.TaskStatus, reason string) *swarmtypes.TaskCompletionReport {
	cmd := a.current
	a.current = nil

	report := &swarmtypes.TaskCompletionReport{
		TaskID:    cmd.TaskID,
		AgentID:   a.state.ID,
		Status:    status,
		DurationS: now.Sub(a.currentStarted).Seconds(),
	}
	if reason != "" {
		report.ResultMap = map[string]any{"reason": reason}
	}
	return report
}

// depleteBatteryLocked implements §4.2 step 4: battery drains
// proportionally to how hard the agent is working this tick, and crossing
// the low/empty thresholds drives status transitions. Caller holds a.mu.
func (a *Actor) depleteBatteryLocked(dt float64) {
	if a.state.Limits.MaxSpeed <= 0 {
		return
	}
	speed := a.state.Velocity.Length()
	a.state.Battery -= (speed / a.state.Limits.MaxSpeed) * swarmtypes.BatteryDrainK * dt
	a.state.ClampBattery()

	switch {
	case a.state.Battery <= 0:
		a.state.Status = swarmtypes.StatusFailed
		a.state.Velocity = swarmtypes.Vec2{}
	case a.state.Battery < swarmtypes.BatteryLowThreshold:
		if a.state.Status == swarmtypes.StatusActive {
			a.state.Status = swarmtypes.StatusBatteryLow
		}
	}
}

func paramPoint(params map[string]any, key string) (swarmtypes.Point2, bool) {
	v, ok := params[key]
	if !ok {
		return swarmtypes.Point2{}, false
	}
	p, ok := v.(swarmtypes.Point2)
	return p, ok
}

func paramVec(params map[string]any, key string) (swarmtypes.Vec2, bool) {
	v, ok := params[key]
	if !ok {
		return swarmtypes.Vec2{}, false
	}
	vec, ok := v.(swarmtypes.Vec2)
	return vec, ok
}
