// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package controller

import (
	"context"
	"strconv"
	"time"

	"swarmsim/internal/boundary"
	"swarmsim/internal/eventbus"
	"swarmsim/internal/telemetry"
	"swarmsim/pkg/swarmtypes"
)

// SpawnAgent creates an agent at (x, y) with default limits, §6
// "spawn_agent(x, y) -> id".
func (s *Controller) SpawnAgent(x, y float64) swarmtypes.AgentID {
	_, span := telemetry.StartSpan(context.Background(), tracerName, "SpawnAgent")
	defer span.End()

	a := s.registry.CreateAgent(swarmtypes.Point2{X: x, Y: y}, swarmtypes.Limits{
		MaxSpeed:    50,
		CommRange:   200,
		MaxTurnRate: 3,
	})
	span.SetAttributes(telemetry.AgentAttrs(strconv.FormatUint(uint64(a.ID()), 10), "")...)
	return a.ID()
}

// AgentSnapshot returns agent id's current state, or false if it does not
// exist.
func (s *Controller) AgentSnapshot(id swarmtypes.AgentID) (swarmtypes.Snapshot, bool) {
	a, ok := s.registry.Get(id)
	if !ok {
		return swarmtypes.Snapshot{}, false
	}
	return a.Snapshot(), true
}

// SetAgentVelocity overwrites agent id's velocity directly, bypassing the
// command queue — used to seed scenarios and by hardware-adapter bridges.
func (s *Controller) SetAgentVelocity(id swarmtypes.AgentID, v swarmtypes.Vec2) error {
	a, ok := s.registry.Get(id)
	if !ok {
		return swarmtypes.ErrNotFound
	}
	a.SetVelocity(v)
	return nil
}

// RemoveAgent removes id, also clearing its cache entry, heartbeat history,
// and formation membership so no stale reference to it survives.
func (s *Controller) RemoveAgent(id swarmtypes.AgentID) error {
	ctx, span := telemetry.StartSpan(context.Background(), tracerName, "RemoveAgent")
	defer span.End()
	span.SetAttributes(telemetry.AgentAttrs(strconv.FormatUint(uint64(id), 10), "")...)

	if err := s.registry.RemoveAgent(id); err != nil {
		telemetry.RecordError(ctx, err)
		return err
	}
	s.cache.Invalidate(id)
	s.detector.Forget(id)
	s.formations.RemoveAgentFromAll(id)
	return nil
}

// SubmitCommand enqueues cmd on its target agent, §6 "submit_command(cmd)".
// Returns ErrNotFound if the target agent does not exist, or whatever
// Actor.Enqueue reports (ErrInvalidArgument on a mismatched target id).
func (s *Controller) SubmitCommand(cmd swarmtypes.MovementCommand) error {
	a, ok := s.registry.Get(cmd.TargetAgentID)
	if !ok {
		return swarmtypes.ErrNotFound
	}
	return a.Enqueue(cmd)
}

// Snapshot reports every live agent's state plus the current performance
// metrics, §6 "snapshot() -> VisualizationUpdate".
func (s *Controller) Snapshot() swarmtypes.VisualizationUpdate {
	ids := s.registry.Snapshot()
	agents := make([]swarmtypes.Snapshot, 0, len(ids))
	for _, id := range ids {
		if a, ok := s.registry.Get(id); ok {
			agents = append(agents, a.Snapshot())
		}
	}

	report := s.perf.Snapshot()
	s.mu.RLock()
	seq := s.tickSeq
	s.mu.RUnlock()

	return swarmtypes.VisualizationUpdate{
		Agents:  agents,
		TickSeq: seq,
		Metrics: swarmtypes.Metrics{
			CurrentFPS:  report.CurrentFPS,
			AvgFPS:      report.AvgFPS,
			MinFPS:      report.MinFPS,
			MaxFPS:      report.MaxFPS,
			MemoryRatio: report.MemoryRatio,
			Tier:        string(report.Tier),
			Hint:        string(report.Hint),
		},
		TS: time.Now(),
	}
}

// Subscribe registers handler for events of kind, §6
// "subscribe(kind, handler) -> handle".
func (s *Controller) Subscribe(kind swarmtypes.EventKind, handler eventbus.Handler) eventbus.Subscription {
	return s.bus.Subscribe(kind, handler)
}

// Unsubscribe removes a subscription returned by Subscribe.
func (s *Controller) Unsubscribe(sub eventbus.Subscription) {
	s.bus.Unsubscribe(sub)
}

// SetWorldBounds resets the world rectangle, §6 "set_world_bounds".
func (s *Controller) SetWorldBounds(minX, minY, maxX, maxY float64) {
	s.boundary.SetWorldBounds(swarmtypes.Point2{X: minX, Y: minY}, swarmtypes.Point2{X: maxX, Y: maxY})
}

// SetBoundaryMode switches the boundary enforcement mode (SOFT/MEDIUM/HARD/
// TELEPORT), not separately named in §6 but required to configure the mode
// the control-API operations above enforce against.
func (s *Controller) SetBoundaryMode(mode boundary.Mode) {
	s.boundary.SetMode(mode)
}

// AddZone registers a named zone for boundary enforcement, §6 "add_zone".
func (s *Controller) AddZone(id string, zone swarmtypes.Zone) {
	s.boundary.AddZone(id, zone)
}

// RemoveZone removes a previously added zone, §6 "remove_zone".
func (s *Controller) RemoveZone(id string) {
	s.boundary.RemoveZone(id)
}

// QueryNearby returns agent ids within radius of center, cache-served,
// §6 "query_nearby(center, radius) -> [id]".
func (s *Controller) QueryNearby(center swarmtypes.Point2, radius float64) []swarmtypes.AgentID {
	return s.cache.Nearby(center, radius)
}

// CreateFormation creates a formation, §6 "create_formation(...) -> fid".
func (s *Controller) CreateFormation(kind swarmtypes.FormationKind, ids []swarmtypes.AgentID, center swarmtypes.Point2, spacing float64) (string, error) {
	ctx, span := telemetry.StartSpan(context.Background(), tracerName, "CreateFormation")
	defer span.End()
	span.SetAttributes(telemetry.FormationAttrs("", string(kind), -1)...)

	fid, err := s.formations.CreateFormation(kind, ids, center, spacing)
	if err != nil {
		telemetry.RecordError(ctx, err)
		return "", err
	}
	span.SetAttributes(telemetry.FormationAttrs(fid, string(kind), -1)...)
	return fid, nil
}

// MoveFormation relocates a formation's center and reissues slot commands.
func (s *Controller) MoveFormation(id string, newCenter swarmtypes.Point2) error {
	ctx, span := telemetry.StartSpan(context.Background(), tracerName, "MoveFormation")
	defer span.End()
	span.SetAttributes(telemetry.FormationAttrs(id, "", -1)...)

	if err := s.formations.MoveFormation(id, newCenter); err != nil {
		telemetry.RecordError(ctx, err)
		return err
	}
	return nil
}

// RotateFormation changes a formation's heading and reissues slot commands.
func (s *Controller) RotateFormation(id string, heading float64) error {
	return s.formations.RotateFormation(id, heading)
}

// SetFormationSpacing changes a formation's inter-slot spacing.
func (s *Controller) SetFormationSpacing(id string, spacing float64) error {
	return s.formations.SetSpacing(id, spacing)
}

// TransitionFormation changes a formation's kind, validating membership.
func (s *Controller) TransitionFormation(id string, newKind swarmtypes.FormationKind) error {
	return s.formations.TransitionFormation(id, newKind)
}

// AddAgentToFormation adds agentID to formation id, reshuffling slots.
func (s *Controller) AddAgentToFormation(id string, agentID swarmtypes.AgentID) error {
	return s.formations.AddAgent(id, agentID)
}

// RemoveAgentFromFormation removes agentID from formation id, auto-
// dissolving if membership falls below the kind's minimum.
func (s *Controller) RemoveAgentFromFormation(id string, agentID swarmtypes.AgentID) error {
	return s.formations.RemoveAgent(id, agentID)
}

// DissolveFormation explicitly dissolves formation id.
func (s *Controller) DissolveFormation(id string) error {
	return s.formations.Dissolve(id)
}

// IsFormationInPosition reports whether every member of formation id is
// within POSITION_TOLERANCE of its slot.
func (s *Controller) IsFormationInPosition(id string) (bool, error) {
	return s.formations.IsInPosition(id)
}

// GetFormation returns a copy of formation id's current state.
func (s *Controller) GetFormation(id string) (swarmtypes.Formation, bool) {
	return s.formations.Get(id)
}

// ReportFailure routes an externally observed failure (e.g. from a hardware
// adapter's GetStatus().Error) into the recovery controller.
func (s *Controller) ReportFailure(id swarmtypes.AgentID, kind swarmtypes.FailureKind) error {
	ctx, span := telemetry.StartSpan(context.Background(), tracerName, "ReportFailure")
	defer span.End()
	span.SetAttributes(telemetry.RecoveryAttrs(strconv.FormatUint(uint64(id), 10), string(kind), 0)...)

	if err := s.recovery.Report(id, kind); err != nil {
		telemetry.RecordError(ctx, err)
		return err
	}
	return nil
}

// ResetRecoveryCounter clears id's accumulated recovery-attempt history.
func (s *Controller) ResetRecoveryCounter(id swarmtypes.AgentID) {
	s.recovery.ResetRecoveryCounter(id)
}

// Recharge raises id's battery by delta, the only external path that can
// increase it (e.g. a charging-zone controller outside the core).
func (s *Controller) Recharge(id swarmtypes.AgentID, delta float64) error {
	return s.registry.Recharge(id, delta)
}
