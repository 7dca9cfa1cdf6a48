// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

// Package coordination implements the formation lifecycle of §4.7: create,
// move, rotate, reshape, and transition formations, reissuing
// FORMATION_POSITION commands as membership and geometry change. Reslot
// ordering is resolved with a topological sort over a "currently blocking"
// dependency graph — grounded on the teacher's DAG task scheduler
// (pkg/dag.Scheduler.BuildExecutionOrder), repurposed from build-task
// ordering to physical reslot ordering so an agent sitting on another's
// incoming slot is always reissued first.
package coordination

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gammazero/toposort"
	"github.com/google/uuid"

	"swarmsim/pkg/agent"
	"swarmsim/pkg/swarmtypes"
)

// blockRadius is how close an agent must sit to another's target slot
// before it is considered to be "in the way" for deconfliction ordering.
const blockRadius = swarmtypes.CollisionDistance * 5

// AgentSource resolves agent ids to actors. *registry.Registry satisfies
// this without internal/coordination importing internal/registry.
type AgentSource interface {
	Get(id swarmtypes.AgentID) (*agent.Actor, bool)
}

// Publisher is the subset of eventbus.Bus coordination needs.
type Publisher interface {
	Publish(kind swarmtypes.EventKind, payload any)
}

// Manager owns the set of live formations.
type Manager struct {
	mu         sync.RWMutex
	formations map[string]*swarmtypes.Formation

	agents AgentSource
	bus    Publisher
}

// New builds an empty coordination manager.
func New(agents AgentSource, bus Publisher) *Manager {
	return &Manager{
		formations: make(map[string]*swarmtypes.Formation),
		agents:     agents,
		bus:        bus,
	}
}

// CreateFormation validates membership against kind.MinAgents, assigns
// slots, and issues one FORMATION_POSITION command per member at HIGH
// priority, §4.7.
func (m *Manager) CreateFormation(kind swarmtypes.FormationKind, agentIDs []swarmtypes.AgentID, center swarmtypes.Point2, spacing float64) (string, error) {
	if len(agentIDs) < kind.MinAgents() {
		return "", swarmtypes.ErrInvalidArgument
	}
	if spacing <= 0 {
		spacing = 30
	}

	f := &swarmtypes.Formation{
		FormationID: uuid.NewString(),
		Kind:        kind,
		Center:      center,
		Heading:     0,
		Spacing:     spacing,
		Members:     append([]swarmtypes.AgentID(nil), agentIDs...),
	}

	m.mu.Lock()
	m.formations[f.FormationID] = f
	m.mu.Unlock()

	m.reissue(f)
	slog.Info("formation created", "formation_id", f.FormationID, "kind", kind, "members", len(agentIDs))
	m.publish(swarmtypes.TagFormationCreated, fmt.Sprintf("formation %s created with %d members", f.FormationID, len(agentIDs)))
	return f.FormationID, nil
}

func (m *Manager) publish(tag, message string) {
	if m.bus == nil {
		return
	}
	m.bus.Publish(swarmtypes.EventSystemEvent, swarmtypes.SystemEvent{
		KindTag:  tag,
		Severity: swarmtypes.SeverityInfo,
		Message:  message,
		TS:       time.Now(),
	})
}

// MoveFormation recenters f and re-issues slot commands.
func (m *Manager) MoveFormation(id string, newCenter swarmtypes.Point2) error {
	f, err := m.mutate(id, func(f *swarmtypes.Formation) { f.Center = newCenter })
	if err != nil {
		return err
	}
	m.reissue(f)
	return nil
}

// RotateFormation changes f's heading and re-issues slot commands.
func (m *Manager) RotateFormation(id string, heading float64) error {
	f, err := m.mutate(id, func(f *swarmtypes.Formation) { f.Heading = heading })
	if err != nil {
		return err
	}
	m.reissue(f)
	return nil
}

// SetSpacing changes f's inter-agent spacing and re-issues slot commands.
func (m *Manager) SetSpacing(id string, spacing float64) error {
	if spacing <= 0 {
		return swarmtypes.ErrInvalidArgument
	}
	f, err := m.mutate(id, func(f *swarmtypes.Formation) { f.Spacing = spacing })
	if err != nil {
		return err
	}
	m.reissue(f)
	return nil
}

// TransitionFormation validates member count against the new kind, then
// updates kind and re-issues slot commands, §4.7.
func (m *Manager) TransitionFormation(id string, newKind swarmtypes.FormationKind) error {
	m.mu.Lock()
	f, ok := m.formations[id]
	if !ok {
		m.mu.Unlock()
		return swarmtypes.ErrNotFound
	}
	if len(f.Members) < newKind.MinAgents() {
		m.mu.Unlock()
		return swarmtypes.ErrInvalidState
	}
	f.Kind = newKind
	m.mu.Unlock()

	m.reissue(f)
	return nil
}

// AddAgent appends id to the formation's membership and reshuffles slots.
func (m *Manager) AddAgent(id string, agentID swarmtypes.AgentID) error {
	f, err := m.mutate(id, func(f *swarmtypes.Formation) {
		f.Members = append(f.Members, agentID)
	})
	if err != nil {
		return err
	}
	m.reissue(f)
	return nil
}

// RemoveAgent drops agentID from the formation. Slots are reassigned by
// position (lowest surviving index keeps slot 0, §9). If membership falls
// below kind.MinAgents, the formation auto-dissolves.
func (m *Manager) RemoveAgent(id string, agentID swarmtypes.AgentID) error {
	m.mu.Lock()
	f, ok := m.formations[id]
	if !ok {
		m.mu.Unlock()
		return swarmtypes.ErrNotFound
	}
	kept := f.Members[:0:0]
	for _, existing := range f.Members {
		if existing != agentID {
			kept = append(kept, existing)
		}
	}
	f.Members = kept
	dissolved := len(f.Members) < f.Kind.MinAgents()
	if dissolved {
		delete(m.formations, id)
	}
	m.mu.Unlock()

	if dissolved {
		slog.Info("formation auto-dissolved below minimum membership", "formation_id", id, "kind", f.Kind)
		m.publish(swarmtypes.TagFormationDissolved, fmt.Sprintf("formation %s auto-dissolved below minimum membership", id))
		return nil
	}
	m.reissue(f)
	return nil
}

// RemoveAgentFromAll removes agentID from every formation that contains it,
// used by the recovery controller on BATTERY_DEPLETED and permanent
// failure, §4.8.
func (m *Manager) RemoveAgentFromAll(agentID swarmtypes.AgentID) {
	m.mu.RLock()
	var ids []string
	for id, f := range m.formations {
		for _, member := range f.Members {
			if member == agentID {
				ids = append(ids, id)
				break
			}
		}
	}
	m.mu.RUnlock()

	for _, id := range ids {
		_ = m.RemoveAgent(id, agentID)
	}
}

// Dissolve removes a formation outright without touching its members'
// queues.
func (m *Manager) Dissolve(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.formations[id]; !ok {
		return swarmtypes.ErrNotFound
	}
	delete(m.formations, id)
	m.publish(swarmtypes.TagFormationDissolved, fmt.Sprintf("formation %s dissolved", id))
	return nil
}

// Get returns a copy of the formation's current state.
func (m *Manager) Get(id string) (swarmtypes.Formation, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.formations[id]
	if !ok {
		return swarmtypes.Formation{}, false
	}
	return *f, true
}

// IsInPosition reports whether every member of the formation is within
// swarmtypes.PositionTolerance of its assigned slot, §4.7.
func (m *Manager) IsInPosition(id string) (bool, error) {
	m.mu.RLock()
	f, ok := m.formations[id]
	m.mu.RUnlock()
	if !ok {
		return false, swarmtypes.ErrNotFound
	}

	n := len(f.Members)
	for slot, agentID := range f.Members {
		a, ok := m.agents.Get(agentID)
		if !ok {
			continue
		}
		want := SlotPosition(f.Kind, f.Center, f.Heading, f.Spacing, slot, n)
		if a.Snapshot().Position.Distance(want) > swarmtypes.PositionTolerance {
			return false, nil
		}
	}
	return true, nil
}

func (m *Manager) mutate(id string, fn func(*swarmtypes.Formation)) (*swarmtypes.Formation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.formations[id]
	if !ok {
		return nil, swarmtypes.ErrNotFound
	}
	fn(f)
	return f, nil
}

// reissue computes each member's slot and enqueues a FORMATION_POSITION
// command, in the deconflicted order from deconflictOrder.
func (m *Manager) reissue(f *swarmtypes.Formation) {
	m.mu.RLock()
	snapshot := *f
	snapshot.Members = append([]swarmtypes.AgentID(nil), f.Members...)
	m.mu.RUnlock()

	n := len(snapshot.Members)
	for _, idx := range m.deconflictOrder(&snapshot) {
		agentID := snapshot.Members[idx]
		a, ok := m.agents.Get(agentID)
		if !ok {
			continue
		}
		slot := SlotPosition(snapshot.Kind, snapshot.Center, snapshot.Heading, snapshot.Spacing, idx, n)
		err := a.Enqueue(swarmtypes.MovementCommand{
			TargetAgentID: agentID,
			Kind:          swarmtypes.CommandFormationPos,
			Priority:      swarmtypes.PriorityHigh,
			CreatedTS:     time.Now(),
			TaskID:        fmt.Sprintf("formation_%s_agent_%d", snapshot.FormationID, agentID),
			Params:        map[string]any{"formation_pos": slot},
		})
		if err != nil {
			slog.Warn("formation slot command rejected", "formation_id", snapshot.FormationID, "agent_id", agentID, "err", err)
		}
	}
}

// deconflictOrder topologically sorts member indices so that any agent
// currently sitting near another member's target slot is reissued first,
// falling back to membership order on a cyclic graph or when agents are
// scattered and no conflicts exist.
func (m *Manager) deconflictOrder(f *swarmtypes.Formation) []int {
	n := len(f.Members)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	if n <= 1 {
		return order
	}

	var edges []toposort.Edge
	for i, idA := range f.Members {
		a, ok := m.agents.Get(idA)
		if !ok {
			continue
		}
		posA := a.Snapshot().Position
		for j := range f.Members {
			if i == j {
				continue
			}
			slotB := SlotPosition(f.Kind, f.Center, f.Heading, f.Spacing, j, n)
			if posA.Distance(slotB) <= blockRadius {
				edges = append(edges, toposort.Edge{i, j})
			}
		}
	}
	if len(edges) == 0 {
		return order
	}

	sorted, err := toposort.Toposort(edges)
	if err != nil {
		slog.Warn("formation reslot has a cyclic blocking graph, using membership order", "formation_id", f.FormationID)
		return order
	}

	result := make([]int, 0, n)
	seen := make(map[int]bool, n)
	for _, node := range sorted {
		idx := node.(int)
		result = append(result, idx)
		seen[idx] = true
	}
	for _, idx := range order {
		if !seen[idx] {
			result = append(result, idx)
		}
	}
	return result
}
