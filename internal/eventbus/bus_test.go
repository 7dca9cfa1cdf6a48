package eventbus

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"swarmsim/pkg/swarmtypes"
)

func TestPublishDeliversInSubscriptionOrder(t *testing.T) {
	b := New()
	var order []int
	var mu sync.Mutex

	for i := 0; i < 3; i++ {
		i := i
		b.Subscribe(swarmtypes.EventSystemEvent, func(any) {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		})
	}

	b.Publish(swarmtypes.EventSystemEvent, swarmtypes.SystemEvent{Message: "x"})
	assert.Equal(t, []int{0, 1, 2}, order)
}

func TestExactKindMatch(t *testing.T) {
	b := New()
	var gotAgent, gotSystem int
	b.Subscribe(swarmtypes.EventAgentStateUpdate, func(any) { gotAgent++ })
	b.Subscribe(swarmtypes.EventSystemEvent, func(any) { gotSystem++ })

	b.Publish(swarmtypes.EventSystemEvent, swarmtypes.SystemEvent{})
	assert.Equal(t, 0, gotAgent)
	assert.Equal(t, 1, gotSystem)
}

func TestUnsubscribe(t *testing.T) {
	b := New()
	calls := 0
	sub := b.Subscribe(swarmtypes.EventSystemEvent, func(any) { calls++ })
	b.Publish(swarmtypes.EventSystemEvent, nil)
	b.Unsubscribe(sub)
	b.Publish(swarmtypes.EventSystemEvent, nil)
	assert.Equal(t, 1, calls)
}

func TestUnsubscribeDuringDeliveryIsSafe(t *testing.T) {
	b := New()
	var sub Subscription
	calls := 0
	sub = b.Subscribe(swarmtypes.EventSystemEvent, func(any) {
		calls++
		b.Unsubscribe(sub)
	})

	assert.NotPanics(t, func() {
		b.Publish(swarmtypes.EventSystemEvent, nil)
		b.Publish(swarmtypes.EventSystemEvent, nil)
	})
	assert.Equal(t, 1, calls)
}

func TestHandlerPanicDoesNotAbortDelivery(t *testing.T) {
	b := New()
	secondCalled := false
	b.Subscribe(swarmtypes.EventSystemEvent, func(any) { panic("boom") })
	b.Subscribe(swarmtypes.EventSystemEvent, func(any) { secondCalled = true })

	assert.NotPanics(t, func() {
		b.Publish(swarmtypes.EventSystemEvent, nil)
	})
	assert.True(t, secondCalled)
}

func TestPublishFilteredPredicate(t *testing.T) {
	b := New()
	delivered := 0
	b.Subscribe(swarmtypes.EventSystemEvent, func(any) { delivered++ })

	b.PublishFiltered(swarmtypes.EventSystemEvent, swarmtypes.SystemEvent{Severity: swarmtypes.SeverityDebug}, func(p any) bool {
		ev := p.(swarmtypes.SystemEvent)
		return ev.Severity == swarmtypes.SeverityError
	})
	assert.Equal(t, 0, delivered)
}
