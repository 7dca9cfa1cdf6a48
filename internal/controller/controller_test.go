// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package controller

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swarmsim/internal/boundary"
	"swarmsim/internal/config"
	"swarmsim/pkg/swarmtypes"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.WorldWidth = 800
	cfg.WorldHeight = 600
	cfg.MaxRecoveryAttempts = 3
	cfg.RecoveryTimeoutMs = 200
	cfg.HeartbeatTimeoutMs = 1000
	return cfg
}

func TestSpawnAndRemoveAgentPublishesLifecycleEvents(t *testing.T) {
	c := New(testConfig())

	var mu sync.Mutex
	var tags []string
	c.Subscribe(swarmtypes.EventSystemEvent, func(payload any) {
		if e, ok := payload.(swarmtypes.SystemEvent); ok {
			mu.Lock()
			tags = append(tags, e.KindTag)
			mu.Unlock()
		}
	})

	id := c.SpawnAgent(10, 20)
	require.NoError(t, c.RemoveAgent(id))

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, tags, swarmtypes.TagAgentCreated)
	assert.Contains(t, tags, swarmtypes.TagAgentDestroyed)
}

// TestBoundaryBounceOnHardMode is scenario S3: an agent running fast toward
// the edge of an 800x600 HARD-mode world is snapped back inside and its
// outward velocity component is reversed after a single tick.
func TestBoundaryBounceOnHardMode(t *testing.T) {
	c := New(testConfig())
	c.SetBoundaryMode(boundary.ModeHard)

	id := c.SpawnAgent(795, 300)
	require.NoError(t, c.SetAgentVelocity(id, swarmtypes.Vec2{X: 100, Y: 0}))

	c.Tick(0.1)

	snap, ok := c.AgentSnapshot(id)
	require.True(t, ok)
	assert.LessOrEqual(t, snap.Position.X, 800.0)
	assert.Less(t, snap.Velocity.X, 0.0)
}

// TestRecoveryExhaustionMarksAgentPermanentlyFailed is scenario S5: three
// SYSTEM_ERROR reports recover normally; the fourth finds attempts already
// exhausted and fails the agent permanently.
func TestRecoveryExhaustionMarksAgentPermanentlyFailed(t *testing.T) {
	c := New(testConfig())

	var mu sync.Mutex
	var sawPermanentFail bool
	c.Subscribe(swarmtypes.EventSystemEvent, func(payload any) {
		if e, ok := payload.(swarmtypes.SystemEvent); ok && e.KindTag == swarmtypes.TagAgentPermanentlyFailed {
			mu.Lock()
			sawPermanentFail = true
			mu.Unlock()
		}
	})

	id := c.SpawnAgent(0, 0)

	for i := 0; i < 3; i++ {
		require.NoError(t, c.ReportFailure(id, swarmtypes.FailureSystemError))
		require.Eventually(t, func() bool {
			snap, _ := c.AgentSnapshot(id)
			return snap.Status == swarmtypes.StatusActive
		}, time.Second, 5*time.Millisecond)
	}

	err := c.ReportFailure(id, swarmtypes.FailureSystemError)
	require.ErrorIs(t, err, swarmtypes.ErrRecoveryExhausted)

	snap, ok := c.AgentSnapshot(id)
	require.True(t, ok)
	assert.Equal(t, swarmtypes.StatusFailed, snap.Status)

	mu.Lock()
	defer mu.Unlock()
	assert.True(t, sawPermanentFail)
}

// TestFormationTransitionScenario is scenario S6: a 5-member LINE formation
// reaches position after move_formation, given enough ticks.
func TestFormationTransitionScenario(t *testing.T) {
	c := New(testConfig())

	ids := make([]swarmtypes.AgentID, 5)
	for i := range ids {
		ids[i] = c.SpawnAgent(400, 300)
	}

	fid, err := c.CreateFormation(swarmtypes.FormationLine, ids, swarmtypes.Point2{X: 400, Y: 300}, 30)
	require.NoError(t, err)

	require.NoError(t, c.MoveFormation(fid, swarmtypes.Point2{X: 500, Y: 400}))

	for i := 0; i < 2000; i++ {
		c.Tick(1.0 / 60)
		inPosition, err := c.IsFormationInPosition(fid)
		require.NoError(t, err)
		if inPosition {
			break
		}
	}

	inPosition, err := c.IsFormationInPosition(fid)
	require.NoError(t, err)
	assert.True(t, inPosition)
}

func TestQueryNearbyReflectsTickedPositions(t *testing.T) {
	c := New(testConfig())
	a := c.SpawnAgent(100, 100)
	c.SpawnAgent(110, 100)
	c.SpawnAgent(500, 500)

	c.Tick(0.01) // one tick publishes AGENT_STATE_UPDATE, populating the cache

	near := c.QueryNearby(swarmtypes.Point2{X: 100, Y: 100}, 50)
	assert.Len(t, near, 2)
	assert.NotContains(t, queryIDsMissing(near, a), a)
}

func queryIDsMissing(ids []swarmtypes.AgentID, want swarmtypes.AgentID) []swarmtypes.AgentID {
	for _, id := range ids {
		if id == want {
			return nil
		}
	}
	return []swarmtypes.AgentID{want}
}

func TestStartPauseResumeStopLifecycle(t *testing.T) {
	c := New(testConfig())
	require.NoError(t, c.Start())
	assert.Equal(t, StateRunning, c.State())

	require.NoError(t, c.Pause())
	assert.Equal(t, StatePaused, c.State())
	assert.ErrorIs(t, c.Pause(), swarmtypes.ErrInvalidState)

	require.NoError(t, c.Resume())
	assert.Equal(t, StateRunning, c.State())

	require.NoError(t, c.Stop())
	assert.Equal(t, StateStopped, c.State())
}
