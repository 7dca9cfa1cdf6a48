// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

// Package spatialcache implements the grid-indexed, TTL-and-LRU neighbor
// cache described in §4.6: a primary map of agent snapshots, a uniform
// spatial grid for range queries, and a shorter-TTL memoization layer over
// nearby() results. It is grounded on the same TTL-registry-with-sweep
// shape the rest of the corpus uses for ephemeral, expiring state, adapted
// here to index immutable position snapshots instead of file locks.
package spatialcache

import (
	"encoding/binary"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"

	"swarmsim/pkg/swarmtypes"
)

type cellKey struct{ x, y int64 }

type entry struct {
	snapshot   swarmtypes.Snapshot
	expiry     time.Time
	lastAccess atomic.Int64 // UnixNano, read/written without the cache lock
}

type queryResult struct {
	ids    []swarmtypes.AgentID
	expiry time.Time
}

// Cache is the spatial cache described in §4.6. The zero value is not
// usable; construct with New.
type Cache struct {
	mu sync.RWMutex

	ttl        time.Duration
	queryTTL   time.Duration
	cellSize   float64
	maxEntries int

	primary map[swarmtypes.AgentID]*entry
	grid    map[cellKey]map[swarmtypes.AgentID]struct{}
	queries map[uint64]queryResult

	now func() time.Time

	writes atomic.Uint64
	hits   atomic.Uint64
	misses atomic.Uint64
}

// New builds a Cache with the given default entry TTL, grid cell size, and
// primary-map capacity. The query-result cache TTL is half of ttl and its
// capacity is a tenth of maxEntries, per §4.6.
func New(ttl time.Duration, cellSize float64, maxEntries int) *Cache {
	if cellSize <= 0 {
		cellSize = 50
	}
	return &Cache{
		ttl:        ttl,
		queryTTL:   ttl / 2,
		cellSize:   cellSize,
		maxEntries: maxEntries,
		primary:    make(map[swarmtypes.AgentID]*entry),
		grid:       make(map[cellKey]map[swarmtypes.AgentID]struct{}),
		queries:    make(map[uint64]queryResult),
		now:        time.Now,
	}
}

func (c *Cache) cellOf(p swarmtypes.Point2) cellKey {
	return cellKey{
		x: int64(math.Floor(p.X / c.cellSize)),
		y: int64(math.Floor(p.Y / c.cellSize)),
	}
}

// Put inserts or refreshes id's snapshot with the given ttl (or the cache
// default when ttl is zero). If at capacity, the globally least-recently
// used entry is evicted first, §4.6.
func (c *Cache) Put(id swarmtypes.AgentID, snapshot swarmtypes.Snapshot, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.ttl
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.primary[id]; !exists && c.maxEntries > 0 && len(c.primary) >= c.maxEntries {
		c.evictLRULocked()
	}

	if old, exists := c.primary[id]; exists {
		c.removeFromGridLocked(old.snapshot.Position, id)
	}

	e := &entry{snapshot: snapshot, expiry: c.now().Add(ttl)}
	e.lastAccess.Store(c.now().UnixNano())
	c.primary[id] = e
	c.insertIntoGridLocked(snapshot.Position, id)
	c.writes.Add(1)
}

func (c *Cache) evictLRULocked() {
	var oldestID swarmtypes.AgentID
	var oldestAt int64 = math.MaxInt64
	found := false
	for id, e := range c.primary {
		if ts := e.lastAccess.Load(); ts < oldestAt {
			oldestAt = ts
			oldestID = id
			found = true
		}
	}
	if found {
		c.removeFromGridLocked(c.primary[oldestID].snapshot.Position, oldestID)
		delete(c.primary, oldestID)
	}
}

func (c *Cache) insertIntoGridLocked(p swarmtypes.Point2, id swarmtypes.AgentID) {
	key := c.cellOf(p)
	set, ok := c.grid[key]
	if !ok {
		set = make(map[swarmtypes.AgentID]struct{})
		c.grid[key] = set
	}
	set[id] = struct{}{}
}

func (c *Cache) removeFromGridLocked(p swarmtypes.Point2, id swarmtypes.AgentID) {
	key := c.cellOf(p)
	if set, ok := c.grid[key]; ok {
		delete(set, id)
		if len(set) == 0 {
			delete(c.grid, key)
		}
	}
}

// Get returns id's cached snapshot. ok is false if absent or expired, §4.6.
func (c *Cache) Get(id swarmtypes.AgentID) (swarmtypes.Snapshot, bool) {
	c.mu.RLock()
	e, exists := c.primary[id]
	c.mu.RUnlock()

	if !exists || c.now().After(e.expiry) {
		c.misses.Add(1)
		return swarmtypes.Snapshot{}, false
	}
	e.lastAccess.Store(c.now().UnixNano())
	c.hits.Add(1)
	return e.snapshot, true
}

// Nearby returns the ids of agents within radius of center, consulting and
// populating the query-result memoization layer, §4.6. The result never
// includes an id whose primary entry has expired.
func (c *Cache) Nearby(center swarmtypes.Point2, radius float64) []swarmtypes.AgentID {
	fp := fingerprint(center, radius)

	c.mu.RLock()
	if q, ok := c.queries[fp]; ok && c.now().Before(q.expiry) {
		c.mu.RUnlock()
		c.hits.Add(1)
		return q.ids
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	// Double-check: another writer may have memoized this fingerprint while
	// we waited for the exclusive lock.
	if q, ok := c.queries[fp]; ok && c.now().Before(q.expiry) {
		return q.ids
	}

	ids := c.scanGridLocked(center, radius)

	if c.maxEntries > 0 && len(c.queries) >= c.maxEntries/10 {
		c.queries = make(map[uint64]queryResult)
	}
	c.queries[fp] = queryResult{ids: ids, expiry: c.now().Add(c.queryTTL)}
	c.misses.Add(1)
	return ids
}

func (c *Cache) scanGridLocked(center swarmtypes.Point2, radius float64) []swarmtypes.AgentID {
	cellRadius := int64(math.Ceil(radius / c.cellSize))
	origin := c.cellOf(center)
	now := c.now()

	var ids []swarmtypes.AgentID
	for dx := -cellRadius; dx <= cellRadius; dx++ {
		for dy := -cellRadius; dy <= cellRadius; dy++ {
			set, ok := c.grid[cellKey{x: origin.x + dx, y: origin.y + dy}]
			if !ok {
				continue
			}
			for id := range set {
				e, exists := c.primary[id]
				if !exists || now.After(e.expiry) {
					continue
				}
				if e.snapshot.Position.Distance(center) <= radius {
					ids = append(ids, id)
				}
			}
		}
	}
	return ids
}

// Invalidate drops id from the primary map and the grid, and clears the
// entire query-result cache (a stale fingerprint could otherwise keep
// returning a now-removed id), §4.6.
func (c *Cache) Invalidate(id swarmtypes.AgentID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.primary[id]; ok {
		c.removeFromGridLocked(e.snapshot.Position, id)
		delete(c.primary, id)
	}
	c.queries = make(map[uint64]queryResult)
}

// Cleanup sweeps expired primary and query entries. Intended to run on a
// low-cadence background worker (the controller's cron schedule), §5.
func (c *Cache) Cleanup() (primaryEvicted, queryEvicted int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for id, e := range c.primary {
		if now.After(e.expiry) {
			c.removeFromGridLocked(e.snapshot.Position, id)
			delete(c.primary, id)
			primaryEvicted++
		}
	}
	for fp, q := range c.queries {
		if now.After(q.expiry) {
			delete(c.queries, fp)
			queryEvicted++
		}
	}
	return primaryEvicted, queryEvicted
}

// Len returns the number of live primary entries (expired or not).
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.primary)
}

// Stats reports cumulative hit/miss/write counters for observability.
type Stats struct {
	Hits, Misses, Writes uint64
}

func (c *Cache) Stats() Stats {
	return Stats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Writes: c.writes.Load(),
	}
}

func fingerprint(center swarmtypes.Point2, radius float64) uint64 {
	var buf [24]byte
	binary.LittleEndian.PutUint64(buf[0:8], math.Float64bits(center.X))
	binary.LittleEndian.PutUint64(buf[8:16], math.Float64bits(center.Y))
	binary.LittleEndian.PutUint64(buf[16:24], math.Float64bits(radius))
	return xxhash.Sum64(buf[:])
}
