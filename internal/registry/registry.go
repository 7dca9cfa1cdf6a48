// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

// Package registry is the exclusive owner of agent state, §4.4 and §3
// "Ownership". Every other component holds only an AgentID and reads
// through a Snapshot or a typed accessor — this is what lets the spatial
// cache, boundary manager, and coordination manager share agents without a
// cyclic object graph.
package registry

import (
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"swarmsim/internal/eventbus"
	"swarmsim/pkg/agent"
	"swarmsim/pkg/swarmtypes"
)

// Registry owns the map of live agents. Agents are created with an
// id allocated from a monotonically increasing counter and destroyed only
// through Remove; an agent the recovery controller permanently fails stays
// in the registry with status FAILED.
type Registry struct {
	mu     sync.RWMutex
	agents map[swarmtypes.AgentID]*agent.Actor
	nextID atomic.Uint64

	bus *eventbus.Bus
}

// New creates an empty registry publishing lifecycle events on bus.
func New(bus *eventbus.Bus) *Registry {
	return &Registry{
		agents: make(map[swarmtypes.AgentID]*agent.Actor),
		bus:    bus,
	}
}

// CreateAgent allocates the next id, inserts a new actor at position, and
// publishes AGENT_CREATED.
func (r *Registry) CreateAgent(position swarmtypes.Point2, limits swarmtypes.Limits) *agent.Actor {
	id := swarmtypes.AgentID(r.nextID.Add(1))

	a := agent.NewActor(swarmtypes.Agent{
		ID:           id,
		Name:         defaultName(id),
		Position:     position,
		Status:       swarmtypes.StatusActive,
		Battery:      1.0,
		Limits:       limits,
		LastUpdateTS: time.Now(),
	})

	r.mu.Lock()
	r.agents[id] = a
	count := len(r.agents)
	r.mu.Unlock()

	slog.Info("agent created", "agent_id", id, "active_agents", count)

	if r.bus != nil {
		aid := id
		r.bus.Publish(swarmtypes.EventSystemEvent, swarmtypes.SystemEvent{
			KindTag:  swarmtypes.TagAgentCreated,
			AgentID:  &aid,
			Severity: swarmtypes.SeverityInfo,
			Message:  "agent created",
			TS:       time.Now(),
		})
	}

	return a
}

func defaultName(id swarmtypes.AgentID) string {
	return "agent-" + strconv.FormatUint(uint64(id), 10)
}

// Get returns the actor for id, or nil if absent.
func (r *Registry) Get(id swarmtypes.AgentID) (*agent.Actor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[id]
	return a, ok
}

// RemoveAgent deletes id from the registry, publishing AGENT_DESTROYED.
// Returns swarmtypes.ErrNotFound if id does not exist.
func (r *Registry) RemoveAgent(id swarmtypes.AgentID) error {
	r.mu.Lock()
	_, ok := r.agents[id]
	if ok {
		delete(r.agents, id)
	}
	remaining := len(r.agents)
	r.mu.Unlock()

	if !ok {
		return swarmtypes.ErrNotFound
	}

	slog.Info("agent removed", "agent_id", id, "active_agents", remaining)

	if r.bus != nil {
		aid := id
		r.bus.Publish(swarmtypes.EventSystemEvent, swarmtypes.SystemEvent{
			KindTag:  swarmtypes.TagAgentDestroyed,
			AgentID:  &aid,
			Severity: swarmtypes.SeverityInfo,
			Message:  "agent removed",
			TS:       time.Now(),
		})
	}
	return nil
}

// Snapshot returns a consistent-at-call-time list of every live agent id.
// Iterating this slice tolerates concurrent inserts/removes on the
// underlying map, since the slice itself is a point-in-time copy.
func (r *Registry) Snapshot() []swarmtypes.AgentID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]swarmtypes.AgentID, 0, len(r.agents))
	for id := range r.agents {
		ids = append(ids, id)
	}
	return ids
}

// Count returns the number of live agents.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}

// CountByStatus returns the number of live agents currently in status.
func (r *Registry) CountByStatus(status swarmtypes.AgentStatus) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, a := range r.agents {
		if a.Status() == status {
			n++
		}
	}
	return n
}

// TickAll advances every live agent exactly once against a snapshot of the
// registry taken at call time, tolerating concurrent creates/removes, §4.4.
// deps is forwarded unchanged to each actor's Tick.
func (r *Registry) TickAll(dt float64, deps agent.TickDeps) {
	for _, id := range r.Snapshot() {
		a, ok := r.Get(id)
		if !ok {
			continue // removed between snapshot and tick
		}
		a.Tick(dt, deps)
	}
}

// Recharge increases an agent's battery by delta, clamped to [0,1]. This is
// the only external path that can raise battery — the tick loop only ever
// drains it, §9 "Battery monotonicity".
func (r *Registry) Recharge(id swarmtypes.AgentID, delta float64) error {
	a, ok := r.Get(id)
	if !ok {
		return swarmtypes.ErrNotFound
	}
	a.Recharge(delta)
	return nil
}
