package physics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swarmsim/pkg/swarmtypes"
)

func TestIntegrate(t *testing.T) {
	a := &swarmtypes.Agent{
		Position: swarmtypes.Point2{X: 0, Y: 0},
		Velocity: swarmtypes.Vec2{X: 10, Y: 0},
	}
	ok := Integrate(a, 0.5)
	require.True(t, ok)
	assert.Equal(t, swarmtypes.Point2{X: 5, Y: 0}, a.Position)
}

func TestIntegrateClampsNaN(t *testing.T) {
	nan := math.NaN()
	a := &swarmtypes.Agent{Velocity: swarmtypes.Vec2{X: nan, Y: 0}}
	ok := Integrate(a, 0.1)
	assert.False(t, ok)
	assert.Equal(t, swarmtypes.Vec2{}, a.Velocity)
}

func TestSeekPointsTowardTarget(t *testing.T) {
	a := &swarmtypes.Agent{Position: swarmtypes.Point2{X: 0, Y: 0}}
	f := Seek(a, swarmtypes.Point2{X: 10, Y: 0}, 5)
	assert.InDelta(t, 5.0, f.X, 1e-9)
	assert.InDelta(t, 0.0, f.Y, 1e-9)
}

func TestFleeIsNegationOfSeek(t *testing.T) {
	a := &swarmtypes.Agent{Position: swarmtypes.Point2{X: 0, Y: 0}, Velocity: swarmtypes.Vec2{X: 1, Y: 1}}
	threat := swarmtypes.Point2{X: 10, Y: 0}
	seek := Seek(a, threat, 5)
	flee := Flee(a, threat, 5)
	assert.InDelta(t, -seek.X, flee.X, 1e-9)
	assert.InDelta(t, -seek.Y, flee.Y, 1e-9)
}

func TestLimitVelocity(t *testing.T) {
	a := &swarmtypes.Agent{Velocity: swarmtypes.Vec2{X: 100, Y: 0}}
	LimitVelocity(a, 50)
	assert.InDelta(t, 50.0, a.Velocity.Length(), 1e-9)

	a.Velocity = swarmtypes.Vec2{X: 10, Y: 0}
	LimitVelocity(a, 50)
	assert.Equal(t, swarmtypes.Vec2{X: 10, Y: 0}, a.Velocity, "within limit is untouched")
}

func TestCollides(t *testing.T) {
	a := &swarmtypes.Agent{Position: swarmtypes.Point2{X: 0, Y: 0}}
	b := &swarmtypes.Agent{Position: swarmtypes.Point2{X: 0.5, Y: 0}}
	assert.True(t, Collides(a, b, 1))
	b.Position = swarmtypes.Point2{X: 5, Y: 0}
	assert.False(t, Collides(a, b, 1))
}

func TestArrivedAt(t *testing.T) {
	a := &swarmtypes.Agent{Position: swarmtypes.Point2{X: 198, Y: 200}}
	assert.True(t, ArrivedAt(a, swarmtypes.Point2{X: 200, Y: 200}))
	a.Position = swarmtypes.Point2{X: 190, Y: 200}
	assert.False(t, ArrivedAt(a, swarmtypes.Point2{X: 200, Y: 200}))
}
