package tracker

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"visionmesh/internal/model"
)

func TestIoU(t *testing.T) {
	a := model.BBox{X1: 0, Y1: 0, X2: 10, Y2: 10}
	b := model.BBox{X1: 5, Y1: 5, X2: 15, Y2: 15}

	assert.InDelta(t, 25.0/175.0, iou(a, b), 1e-9)
	assert.Equal(t, 1.0, iou(a, a))

	c := model.BBox{X1: 100, Y1: 100, X2: 110, Y2: 110}
	assert.Equal(t, 0.0, iou(a, c))
}

func TestCosineSimilarityClampsToUnitRange(t *testing.T) {
	assert.Equal(t, 1.0, cosineSimilarity([]float64{1, 0}, []float64{2, 0}))
	assert.Equal(t, 0.0, cosineSimilarity([]float64{1, 0}, []float64{-1, 0}))
	assert.Equal(t, 0.0, cosineSimilarity(nil, []float64{1, 0}))
	assert.Equal(t, 0.0, cosineSimilarity([]float64{1, 2}, []float64{1, 2, 3}))
}
