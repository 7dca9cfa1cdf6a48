package spatialcache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swarmsim/pkg/swarmtypes"
)

func snap(id swarmtypes.AgentID, x, y float64) swarmtypes.Snapshot {
	return swarmtypes.Snapshot{ID: id, Position: swarmtypes.Point2{X: x, Y: y}}
}

func TestPutGetRoundTrip(t *testing.T) {
	c := New(time.Minute, 50, 100)
	c.Put(1, snap(1, 10, 10), 0)
	got, ok := c.Get(1)
	require.True(t, ok)
	assert.Equal(t, swarmtypes.AgentID(1), got.ID)
}

func TestGetMissAbsent(t *testing.T) {
	c := New(time.Minute, 50, 100)
	_, ok := c.Get(42)
	assert.False(t, ok)
}

func TestGetExpiredIsMiss(t *testing.T) {
	c := New(time.Minute, 50, 100)
	base := time.Now()
	c.now = func() time.Time { return base }
	c.Put(1, snap(1, 0, 0), 10*time.Millisecond)
	c.now = func() time.Time { return base.Add(time.Second) }
	_, ok := c.Get(1)
	assert.False(t, ok)
}

func TestNearbyFindsWithinRadius(t *testing.T) {
	c := New(time.Minute, 50, 100)
	c.Put(1, snap(1, 0, 0), 0)
	c.Put(2, snap(2, 10, 0), 0)
	c.Put(3, snap(3, 500, 500), 0)

	ids := c.Nearby(swarmtypes.Point2{X: 0, Y: 0}, 20)
	assert.ElementsMatch(t, []swarmtypes.AgentID{1, 2}, ids)
}

func TestNearbyExcludesExpiredEntries(t *testing.T) {
	c := New(time.Minute, 50, 100)
	base := time.Now()
	c.now = func() time.Time { return base }
	c.Put(1, snap(1, 0, 0), 10*time.Millisecond)
	c.now = func() time.Time { return base.Add(time.Second) }
	ids := c.Nearby(swarmtypes.Point2{X: 0, Y: 0}, 20)
	assert.Empty(t, ids)
}

func TestNearbyMemoizesResult(t *testing.T) {
	c := New(time.Minute, 50, 100)
	c.Put(1, snap(1, 0, 0), 0)
	first := c.Nearby(swarmtypes.Point2{X: 0, Y: 0}, 20)
	c.Put(2, snap(2, 5, 0), 0) // should not appear in the memoized result
	second := c.Nearby(swarmtypes.Point2{X: 0, Y: 0}, 20)
	assert.Equal(t, first, second)
}

func TestInvalidateClearsQueryCache(t *testing.T) {
	c := New(time.Minute, 50, 100)
	c.Put(1, snap(1, 0, 0), 0)
	c.Nearby(swarmtypes.Point2{X: 0, Y: 0}, 20)
	c.Invalidate(1)
	_, ok := c.Get(1)
	assert.False(t, ok)
	assert.Empty(t, c.Nearby(swarmtypes.Point2{X: 0, Y: 0}, 20))
}

func TestEvictsLRUAtCapacity(t *testing.T) {
	c := New(time.Minute, 50, 2)
	base := time.Now()
	c.now = func() time.Time { return base }
	c.Put(1, snap(1, 0, 0), 0)
	c.now = func() time.Time { return base.Add(time.Millisecond) }
	c.Put(2, snap(2, 0, 0), 0)
	// touch 1 so it is more recently used than 2
	c.now = func() time.Time { return base.Add(2 * time.Millisecond) }
	c.Get(1)

	c.now = func() time.Time { return base.Add(3 * time.Millisecond) }
	c.Put(3, snap(3, 0, 0), 0)

	_, ok2 := c.Get(2)
	_, ok1 := c.Get(1)
	_, ok3 := c.Get(3)
	assert.False(t, ok2, "least recently used entry should have been evicted")
	assert.True(t, ok1)
	assert.True(t, ok3)
}

func TestCleanupSweepsExpired(t *testing.T) {
	c := New(time.Minute, 50, 100)
	base := time.Now()
	c.now = func() time.Time { return base }
	c.Put(1, snap(1, 0, 0), 10*time.Millisecond)
	c.Put(2, snap(2, 0, 0), time.Hour)

	c.now = func() time.Time { return base.Add(time.Second) }
	evicted, _ := c.Cleanup()
	assert.Equal(t, 1, evicted)
	assert.Equal(t, 1, c.Len())
}

func TestRelocationMovesGridCell(t *testing.T) {
	c := New(time.Minute, 50, 100)
	c.Put(1, snap(1, 0, 0), 0)
	c.Put(1, snap(1, 1000, 1000), 0)

	near0 := c.Nearby(swarmtypes.Point2{X: 0, Y: 0}, 20)
	assert.Empty(t, near0)
	near1000 := c.Nearby(swarmtypes.Point2{X: 1000, Y: 1000}, 20)
	assert.Contains(t, near1000, swarmtypes.AgentID(1))
}
