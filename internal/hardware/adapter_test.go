package hardware

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swarmsim/pkg/swarmtypes"
)

func TestUpdateBeforeInitializeIsDisconnected(t *testing.T) {
	a := NewSimAdapter(nil)
	err := a.Update(0.1)
	assert.ErrorIs(t, err, swarmtypes.ErrHardwareDisconnected)
}

func TestSetTargetPositionDrivesTowardTarget(t *testing.T) {
	a := NewSimAdapter(nil)
	require.NoError(t, a.Initialize(1, map[string]any{"position": swarmtypes.Point2{X: 0, Y: 0}, "max_speed": 100.0}))
	require.NoError(t, a.SetTargetPosition(swarmtypes.Point2{X: 100, Y: 0}))

	for i := 0; i < 50; i++ {
		require.NoError(t, a.Update(0.1))
	}
	status := a.GetStatus()
	assert.Less(t, status.Pose.Distance(swarmtypes.Point2{X: 100, Y: 0}), swarmtypes.ArrivalThreshold)
}

func TestEmergencyStopZeroesVelocity(t *testing.T) {
	a := NewSimAdapter(nil)
	require.NoError(t, a.Initialize(1, nil))
	require.NoError(t, a.SetVelocityVector(swarmtypes.Vec2{X: 10, Y: 10}))
	require.NoError(t, a.EmergencyStop())
	require.NoError(t, a.Update(0.1))
	assert.Equal(t, swarmtypes.Point2{}, a.GetStatus().Pose)
}

func TestShutdownDisconnects(t *testing.T) {
	a := NewSimAdapter(nil)
	require.NoError(t, a.Initialize(1, nil))
	require.NoError(t, a.Shutdown())
	assert.False(t, a.GetStatus().Connected)
	assert.ErrorIs(t, a.Update(0.1), swarmtypes.ErrHardwareDisconnected)
}

func TestResetRestoresConnectivityAndBattery(t *testing.T) {
	a := NewSimAdapter(nil)
	require.NoError(t, a.Initialize(1, nil))
	require.NoError(t, a.Shutdown())
	require.NoError(t, a.Reset())
	assert.True(t, a.GetStatus().Connected)
	assert.Equal(t, 1.0, a.GetStatus().Battery)
}

type boundaryAlwaysBounces struct{}

func (boundaryAlwaysBounces) Enforce(a *swarmtypes.Agent) bool {
	a.Position = swarmtypes.Point2{X: 0, Y: 0}
	return true
}

func TestUpdateAppliesBoundaryEnforcement(t *testing.T) {
	a := NewSimAdapter(boundaryAlwaysBounces{})
	require.NoError(t, a.Initialize(1, map[string]any{"position": swarmtypes.Point2{X: 500, Y: 500}}))
	require.NoError(t, a.SetVelocityVector(swarmtypes.Vec2{X: 10, Y: 10}))
	require.NoError(t, a.Update(0.1))
	assert.Equal(t, swarmtypes.Point2{X: 0, Y: 0}, a.GetStatus().Pose)
}
