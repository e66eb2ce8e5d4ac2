package nodes

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func square() [][2]float64 {
	return [][2]float64{{0, 0}, {10, 0}, {10, 10}, {0, 10}}
}

func TestPointInPolygonInterior(t *testing.T) {
	assert.True(t, pointInPolygon([2]float64{5, 5}, square()))
}

func TestPointInPolygonOutside(t *testing.T) {
	assert.False(t, pointInPolygon([2]float64{20, 20}, square()))
}

func TestPointInPolygonOnBoundaryCountsAsInside(t *testing.T) {
	assert.True(t, pointInPolygon([2]float64{0, 5}, square()), "edge point")
	assert.True(t, pointInPolygon([2]float64{10, 10}, square()), "vertex point")
}

func TestPolygonAreaOfTenByTenSquare(t *testing.T) {
	assert.Equal(t, 100.0, polygonArea(square()))
}
