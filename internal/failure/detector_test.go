package failure

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"swarmsim/pkg/swarmtypes"
)

func TestCheckTimeoutsIgnoresNeverSeenAgent(t *testing.T) {
	d := NewDetector(time.Second)
	stale := d.CheckTimeouts([]swarmtypes.AgentID{1})
	assert.Empty(t, stale, "first observation just registers a baseline heartbeat")
}

func TestCheckTimeoutsFlagsStaleAgent(t *testing.T) {
	base := time.Now()
	d := NewDetector(time.Second)
	d.now = func() time.Time { return base }
	d.Heartbeat(1)

	d.now = func() time.Time { return base.Add(2 * time.Second) }
	stale := d.CheckTimeouts([]swarmtypes.AgentID{1})
	assert.Equal(t, []swarmtypes.AgentID{1}, stale)
}

func TestHeartbeatResetsStaleness(t *testing.T) {
	base := time.Now()
	d := NewDetector(time.Second)
	d.now = func() time.Time { return base }
	d.Heartbeat(1)

	d.now = func() time.Time { return base.Add(2 * time.Second) }
	d.Heartbeat(1)
	stale := d.CheckTimeouts([]swarmtypes.AgentID{1})
	assert.Empty(t, stale)
}

func TestForgetDropsHistory(t *testing.T) {
	d := NewDetector(time.Second)
	d.Heartbeat(1)
	d.Forget(1)
	// treated as never-seen again, so it re-baselines instead of flagging
	stale := d.CheckTimeouts([]swarmtypes.AgentID{1})
	assert.Empty(t, stale)
}
