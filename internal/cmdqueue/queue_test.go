package cmdqueue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swarmsim/pkg/swarmtypes"
)

func cmd(priority swarmtypes.Priority, taskID string) swarmtypes.MovementCommand {
	return swarmtypes.MovementCommand{
		Kind:      swarmtypes.CommandMoveToTarget,
		Priority:  priority,
		CreatedTS: time.Now(),
		TaskID:    taskID,
	}
}

func TestPriorityOrdering(t *testing.T) {
	q := New(0)
	require.NoError(t, q.Push(cmd(swarmtypes.PriorityNormal, "a")))
	require.NoError(t, q.Push(cmd(swarmtypes.PriorityEmergency, "b")))
	require.NoError(t, q.Push(cmd(swarmtypes.PriorityLow, "c")))

	first, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, "b", first.TaskID, "EMERGENCY must dequeue first regardless of enqueue order")
}

func TestFIFOWithinPriority(t *testing.T) {
	q := New(0)
	require.NoError(t, q.Push(cmd(swarmtypes.PriorityNormal, "first")))
	require.NoError(t, q.Push(cmd(swarmtypes.PriorityNormal, "second")))

	first, _ := q.Pop()
	second, _ := q.Pop()
	assert.Equal(t, "first", first.TaskID)
	assert.Equal(t, "second", second.TaskID)
}

func TestQueueFull(t *testing.T) {
	q := New(1)
	require.NoError(t, q.Push(cmd(swarmtypes.PriorityLow, "a")))
	err := q.Push(cmd(swarmtypes.PriorityLow, "b"))
	assert.ErrorIs(t, err, swarmtypes.ErrQueueFull)
}

func TestPopEmpty(t *testing.T) {
	q := New(0)
	_, ok := q.Pop()
	assert.False(t, ok)
}

func TestDropBelow(t *testing.T) {
	q := New(0)
	require.NoError(t, q.Push(cmd(swarmtypes.PriorityLow, "low")))
	require.NoError(t, q.Push(cmd(swarmtypes.PriorityHigh, "high")))

	dropped := q.DropBelow(swarmtypes.PriorityNormal)
	assert.Equal(t, 1, dropped)
	assert.Equal(t, 1, q.Len())

	remaining, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, "high", remaining.TaskID)
}

func TestClear(t *testing.T) {
	q := New(0)
	require.NoError(t, q.Push(cmd(swarmtypes.PriorityLow, "a")))
	require.NoError(t, q.Push(cmd(swarmtypes.PriorityLow, "b")))
	assert.Equal(t, 2, q.Clear())
	assert.Equal(t, 0, q.Len())
}
