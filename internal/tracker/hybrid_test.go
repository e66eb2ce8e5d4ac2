package tracker

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visionmesh/internal/model"
)

func TestHybridTrackerFallsBackOnPanicAndStaysFallen(t *testing.T) {
	panicking := func(model.Detection) []float64 { panic("simulated appearance-extractor failure") }
	h := NewHybridTracker(zerolog.Nop(), panicking)

	out, err := h.Update([]model.Detection{box(0, 0, 40, 80)})
	require.NoError(t, err)
	assert.NotNil(t, out)
	assert.Equal(t, ModeFallback, h.Stats().Mode)
	assert.Equal(t, 1, h.Stats().FallbackActivations)

	// Subsequent calls stay on the centroid back-end without re-panicking.
	_, err = h.Update([]model.Detection{box(1, 1, 41, 81)})
	require.NoError(t, err)
	assert.Equal(t, ModeFallback, h.Stats().Mode)
	assert.Equal(t, 1, h.Stats().FallbackActivations, "fallback only activates once")
}

func TestHybridTrackerStaysAdvancedWithoutPanics(t *testing.T) {
	h := NewHybridTracker(zerolog.Nop(), nil)

	_, err := h.Update([]model.Detection{box(0, 0, 40, 80)})
	require.NoError(t, err)
	assert.Equal(t, ModeAdvanced, h.Stats().Mode)
}
