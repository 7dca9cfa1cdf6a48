// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

// Package eventbus implements the typed, synchronous pub/sub bus described
// in spec §4.3. Delivery happens on the publisher's goroutine, in
// subscription order, against a snapshot of the subscriber list so that a
// handler subscribing or unsubscribing mid-delivery never invalidates the
// walk in progress — the same copy-on-write discipline the teacher's event
// notification layer uses for its subscriber records.
package eventbus

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"swarmsim/pkg/swarmtypes"
)

// Handler receives a published event payload. Its concrete type depends on
// the EventKind it was subscribed under (e.g. swarmtypes.AgentStateUpdate
// for EventAgentStateUpdate).
type Handler func(payload any)

// Subscription is the opaque handle returned by Subscribe, usable with
// Unsubscribe.
type Subscription struct {
	id   uuid.UUID
	kind swarmtypes.EventKind
}

type subscriber struct {
	id      uuid.UUID
	handler Handler
}

// Bus is a set of typed channels keyed by event-kind, known at compile
// time through the swarmtypes.EventKind constants; delivery never uses
// reflection.
type Bus struct {
	mu   sync.RWMutex
	subs map[swarmtypes.EventKind][]subscriber
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{subs: make(map[swarmtypes.EventKind][]subscriber)}
}

// Subscribe registers handler for events of kind, returning a handle for
// Unsubscribe. Subscribers are delivered to in the order they subscribed.
func (b *Bus) Subscribe(kind swarmtypes.EventKind, handler Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := uuid.New()
	// Copy-on-write: allocate a new slice rather than append in place, so
	// a concurrent Publish iterating the old slice sees a consistent view.
	old := b.subs[kind]
	next := make([]subscriber, len(old), len(old)+1)
	copy(next, old)
	next = append(next, subscriber{id: id, handler: handler})
	b.subs[kind] = next

	return Subscription{id: id, kind: kind}
}

// Unsubscribe removes a subscription. Safe to call during delivery of any
// event, including the one the subscriber is currently handling.
func (b *Bus) Unsubscribe(sub Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	old := b.subs[sub.kind]
	next := make([]subscriber, 0, len(old))
	for _, s := range old {
		if s.id != sub.id {
			next = append(next, s)
		}
	}
	b.subs[sub.kind] = next
}

// Publish delivers payload synchronously, on the caller's goroutine, to
// every subscriber of kind registered at the moment of the call. A handler
// panic is recovered, logged, and does not prevent delivery to the
// remaining subscribers — matching spec §4.3's "handler exception is
// caught, logged, and does not abort delivery to others".
func (b *Bus) Publish(kind swarmtypes.EventKind, payload any) {
	b.PublishFiltered(kind, payload, nil)
}

// PublishFiltered delivers payload only to subscribers for which pred
// returns true (or all subscribers, if pred is nil).
func (b *Bus) PublishFiltered(kind swarmtypes.EventKind, payload any, pred func(any) bool) {
	b.mu.RLock()
	snapshot := b.subs[kind]
	b.mu.RUnlock()

	if pred != nil && !pred(payload) {
		return
	}

	for _, s := range snapshot {
		b.deliver(s, kind, payload)
	}
}

func (b *Bus) deliver(s subscriber, kind swarmtypes.EventKind, payload any) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("event bus handler panicked",
				"event_kind", kind,
				"subscriber_id", s.id,
				"recovered", r)
		}
	}()
	s.handler(payload)
}
