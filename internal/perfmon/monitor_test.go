package perfmon

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"swarmsim/pkg/swarmtypes"
)

func TestRecordFrameComputesFPS(t *testing.T) {
	m := New(4, nil, nil, false)
	m.RecordFrame(20 * time.Millisecond) // 50fps
	snap := m.Snapshot()
	assert.InDelta(t, 50, snap.CurrentFPS, 0.5)
}

func TestTierOptimalAtHighFPSLowMemory(t *testing.T) {
	m := New(4, func() float64 { return 0.1 }, nil, false)
	for i := 0; i < 4; i++ {
		m.RecordFrame(10 * time.Millisecond) // 100fps
	}
	assert.Equal(t, TierOptimal, m.Snapshot().Tier)
}

func TestTierCriticalAtLowFPS(t *testing.T) {
	m := New(4, func() float64 { return 0.95 }, nil, false)
	for i := 0; i < 4; i++ {
		m.RecordFrame(200 * time.Millisecond) // 5fps
	}
	assert.Equal(t, TierCritical, m.Snapshot().Tier)
}

type recordingBus struct {
	events []swarmtypes.SystemEvent
}

func (b *recordingBus) Publish(kind swarmtypes.EventKind, payload any) {
	if e, ok := payload.(swarmtypes.SystemEvent); ok {
		b.events = append(b.events, e)
	}
}

func TestTierChangePublishesEvent(t *testing.T) {
	bus := &recordingBus{}
	m := New(2, func() float64 { return 0.1 }, bus, false)
	m.RecordFrame(10 * time.Millisecond) // fast: stays OPTIMAL, no change from initial OPTIMAL
	m.RecordFrame(200 * time.Millisecond)
	m.RecordFrame(200 * time.Millisecond) // ring full of slow frames -> tier drops

	assert.NotEmpty(t, bus.events, "expected at least one tier-change event")
}

func TestAutoOptimizeHintTracksTier(t *testing.T) {
	m := New(2, func() float64 { return 0.95 }, nil, true)
	m.RecordFrame(200 * time.Millisecond)
	m.RecordFrame(200 * time.Millisecond)
	assert.Equal(t, HintAggressive, m.Snapshot().Hint)
}

func TestHintNoneWhenAutoOptimizeDisabled(t *testing.T) {
	m := New(2, func() float64 { return 0.95 }, nil, false)
	m.RecordFrame(200 * time.Millisecond)
	m.RecordFrame(200 * time.Millisecond)
	assert.Equal(t, HintNone, m.Snapshot().Hint)
}
