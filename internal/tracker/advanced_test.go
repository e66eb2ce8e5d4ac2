package tracker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visionmesh/internal/model"
)

func TestAdvancedTrackerReportsNewTrackImmediately(t *testing.T) {
	at := NewAdvancedTracker()

	out := at.Update([]model.Detection{box(0, 0, 40, 80)}, nil)
	require.Len(t, out, 1, "a brand-new track is reported on its first update regardless of minHits")
	assert.Equal(t, 0, out[0].ID)
}

func TestAdvancedTrackerHoldsBackUntilMinHits(t *testing.T) {
	at := NewAdvancedTracker()

	at.Update([]model.Detection{box(0, 0, 40, 80)}, nil)
	out := at.Update([]model.Detection{box(2, 2, 42, 82)}, nil)
	assert.Empty(t, out, "second consecutive update is below minHits and is withheld")

	out = at.Update([]model.Detection{box(4, 4, 44, 84)}, nil)
	assert.Len(t, out, 1, "third consecutive update reaches minHits and is reported")
}

func TestAdvancedTrackerDropsStaleTracks(t *testing.T) {
	at := NewAdvancedTracker()
	at.maxAge = 1

	at.Update([]model.Detection{box(0, 0, 40, 80)}, nil)
	at.Update(nil, nil) // timeSinceUpdate=1, still within maxAge
	at.Update(nil, nil) // timeSinceUpdate=2, exceeds maxAge=1

	assert.Empty(t, at.tracks)
}
