package vec2

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeZero(t *testing.T) {
	v := Vec2{}.Normalize()
	assert.Equal(t, Zero, v)
}

func TestNormalizeUnit(t *testing.T) {
	v := Vec2{X: 3, Y: 4}.Normalize()
	assert.InDelta(t, 1.0, v.Length(), 1e-9)
}

func TestDistance(t *testing.T) {
	a := Point2{X: 0, Y: 0}
	b := Point2{X: 3, Y: 4}
	assert.InDelta(t, 5.0, a.Distance(b), 1e-9)
	assert.InDelta(t, 25.0, a.DistanceSq(b), 1e-9)
}

func TestAddSub(t *testing.T) {
	v := Vec2{X: 1, Y: 2}.Add(Vec2{X: 3, Y: 4})
	assert.Equal(t, Vec2{X: 4, Y: 6}, v)

	p := Point2{X: 5, Y: 5}.Add(Vec2{X: -1, Y: -1})
	assert.Equal(t, Point2{X: 4, Y: 4}, p)
}

func TestIsNaN(t *testing.T) {
	assert.False(t, Vec2{1, 2}.IsNaN())
	assert.True(t, Vec2{X: nan()}.IsNaN())
}

func nan() float64 {
	var zero float64
	return zero / zero
}
