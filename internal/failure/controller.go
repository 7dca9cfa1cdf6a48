// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package failure

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"swarmsim/pkg/agent"
	"swarmsim/pkg/swarmtypes"
)

// pollInterval is how often an in-flight recovery attempt is re-checked
// against its completion predicate.
const pollInterval = 50 * time.Millisecond

// AgentSource resolves agent ids to actors.
type AgentSource interface {
	Get(id swarmtypes.AgentID) (*agent.Actor, bool)
}

// BoundarySource supplies the nearest safe point for BOUNDARY_VIOLATION
// recovery.
type BoundarySource interface {
	NearestSafePoint(p swarmtypes.Point2) swarmtypes.Point2
}

// FormationSource removes a permanently- or temporarily-unavailable agent
// from every formation it belongs to.
type FormationSource interface {
	RemoveAgentFromAll(id swarmtypes.AgentID)
}

// Publisher is the subset of eventbus.Bus the controller needs.
type Publisher interface {
	Publish(kind swarmtypes.EventKind, payload any)
}

// Controller dispatches corrective action per §4.8 and tracks attempt
// counts and outcomes per agent.
type Controller struct {
	mu       sync.Mutex
	attempts map[swarmtypes.AgentID]*swarmtypes.RecoveryAttempt

	agents     AgentSource
	boundary   BoundarySource
	formations FormationSource
	detector   *Detector
	bus        Publisher

	timeout     time.Duration
	maxAttempts int
}

// NewController wires a recovery controller. detector may be nil if TIMEOUT
// recovery (heartbeat refresh) is not needed.
func NewController(agents AgentSource, boundary BoundarySource, formations FormationSource, detector *Detector, bus Publisher, timeout time.Duration, maxAttempts int) *Controller {
	return &Controller{
		attempts:    make(map[swarmtypes.AgentID]*swarmtypes.RecoveryAttempt),
		agents:      agents,
		boundary:    boundary,
		formations:  formations,
		detector:    detector,
		bus:         bus,
		timeout:     timeout,
		maxAttempts: maxAttempts,
	}
}

// Report starts recovery for agentID given the observed failure kind. It
// returns ErrInvalidState if a recovery is already RUNNING for this agent,
// and ErrRecoveryExhausted (after marking the agent permanently FAILED) if
// attempt_count has already reached MAX_RECOVERY_ATTEMPTS, §4.8.
func (c *Controller) Report(agentID swarmtypes.AgentID, kind swarmtypes.FailureKind) error {
	a, ok := c.agents.Get(agentID)
	if !ok {
		return swarmtypes.ErrNotFound
	}

	c.mu.Lock()
	if existing, ok := c.attempts[agentID]; ok && existing.Outcome == swarmtypes.RecoveryRunning {
		c.mu.Unlock()
		return swarmtypes.ErrInvalidState
	}
	prior := 0
	if existing, ok := c.attempts[agentID]; ok {
		prior = existing.AttemptCount
	}
	if prior >= c.maxAttempts {
		c.mu.Unlock()
		c.permanentlyFail(a)
		return swarmtypes.ErrRecoveryExhausted
	}
	att := &swarmtypes.RecoveryAttempt{
		AgentID:      agentID,
		FailureKind:  kind,
		StartedTS:    time.Now(),
		AttemptCount: prior + 1,
		Outcome:      swarmtypes.RecoveryRunning,
	}
	c.attempts[agentID] = att
	c.mu.Unlock()

	slog.Info("recovery started", "agent_id", agentID, "kind", kind, "attempt", att.AttemptCount)
	done := c.dispatch(a, kind)
	go c.watch(a, att, done)
	return nil
}

// AttemptCount returns how many recovery attempts id has accumulated.
func (c *Controller) AttemptCount(id swarmtypes.AgentID) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if att, ok := c.attempts[id]; ok {
		return att.AttemptCount
	}
	return 0
}

// Outcome returns the most recent recovery outcome for id.
func (c *Controller) Outcome(id swarmtypes.AgentID) (swarmtypes.RecoveryOutcome, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	att, ok := c.attempts[id]
	if !ok {
		return "", false
	}
	return att.Outcome, true
}

// ResetRecoveryCounter clears id's attempt history. This is the only way
// attempt_count decreases — the detector/controller never reset it on
// their own, §9 ("recovery counters reset only via explicit
// ResetRecoveryCounter").
func (c *Controller) ResetRecoveryCounter(id swarmtypes.AgentID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.attempts, id)
}

// dispatch applies the kind-specific corrective action (§4.8) and returns
// a predicate the watcher polls to decide SUCCESS. Most kinds act
// instantaneously; BOUNDARY_VIOLATION waits for arrival at the safe point.
func (c *Controller) dispatch(a *agent.Actor, kind swarmtypes.FailureKind) func() bool {
	switch kind {
	case swarmtypes.FailureSystemError:
		a.SetStatus(swarmtypes.StatusActive)
		a.ClearQueue()
		return alwaysDone

	case swarmtypes.FailureBatteryDepleted:
		a.SetStatus(swarmtypes.StatusInactive)
		c.formations.RemoveAgentFromAll(a.ID())
		return alwaysDone

	case swarmtypes.FailureCommLost:
		// Continues in autonomous mode: no corrective action required.
		return alwaysDone

	case swarmtypes.FailureCollision:
		a.SetVelocity(swarmtypes.Vec2{})
		a.SetStatus(swarmtypes.StatusActive)
		return alwaysDone

	case swarmtypes.FailureTimeout:
		if c.detector != nil {
			c.detector.Heartbeat(a.ID())
		}
		a.SetStatus(swarmtypes.StatusActive)
		return alwaysDone

	case swarmtypes.FailureBoundary:
		target := c.boundary.NearestSafePoint(a.Snapshot().Position)
		_ = a.EnqueueEmergency(swarmtypes.CommandMoveToTarget,
			map[string]any{"target": target},
			fmt.Sprintf("recovery_boundary_%d", a.ID()))
		return func() bool {
			return a.Snapshot().Position.Distance(target) < swarmtypes.ArrivalThreshold
		}

	case swarmtypes.FailureSensor:
		a.SetStatus(swarmtypes.StatusMaintenance)
		return alwaysDone

	case swarmtypes.FailureOverload:
		a.DropLowPriority()
		return alwaysDone

	default:
		return alwaysDone
	}
}

func alwaysDone() bool { return true }

// watch polls done until it reports true or RECOVERY_TIMEOUT elapses,
// recording the outcome either way. On expiry the agent is marked FAILED,
// matching "each attempt is wrapped with RECOVERY_TIMEOUT; on expiry mark
// FAILED", §4.8.
func (c *Controller) watch(a *agent.Actor, att *swarmtypes.RecoveryAttempt, done func() bool) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		if done() {
			c.complete(att, swarmtypes.RecoverySuccess)
			return
		}
		select {
		case <-ctx.Done():
			c.complete(att, swarmtypes.RecoveryFailed)
			a.SetStatus(swarmtypes.StatusFailed)
			return
		case <-ticker.C:
		}
	}
}

func (c *Controller) complete(att *swarmtypes.RecoveryAttempt, outcome swarmtypes.RecoveryOutcome) {
	c.mu.Lock()
	att.Outcome = outcome
	c.mu.Unlock()

	if c.bus == nil {
		return
	}
	aid := att.AgentID
	severity := swarmtypes.SeverityInfo
	message := "recovery succeeded"
	if outcome == swarmtypes.RecoveryFailed {
		severity = swarmtypes.SeverityWarning
		message = "recovery attempt timed out"
	}
	c.bus.Publish(swarmtypes.EventSystemEvent, swarmtypes.SystemEvent{
		KindTag:  "RECOVERY_" + string(outcome),
		AgentID:  &aid,
		Severity: severity,
		Message:  message,
		Metadata: map[string]string{"failure_kind": string(att.FailureKind)},
		TS:       time.Now(),
	})
}

func (c *Controller) permanentlyFail(a *agent.Actor) {
	a.SetStatus(swarmtypes.StatusFailed)
	c.formations.RemoveAgentFromAll(a.ID())

	slog.Warn("agent permanently failed: recovery attempts exhausted", "agent_id", a.ID())

	if c.bus == nil {
		return
	}
	aid := a.ID()
	c.bus.Publish(swarmtypes.EventSystemEvent, swarmtypes.SystemEvent{
		KindTag:  swarmtypes.TagAgentPermanentlyFailed,
		AgentID:  &aid,
		Severity: swarmtypes.SeverityError,
		Message:  "agent exhausted recovery attempts",
		TS:       time.Now(),
	})
}
