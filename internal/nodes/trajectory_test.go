package nodes

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"visionmesh/internal/model"
)

func TestSpeedStatsOfEmptySlice(t *testing.T) {
	avg, max, min, variance := speedStats(nil)
	assert.Equal(t, 0.0, avg)
	assert.Equal(t, 0.0, max)
	assert.Equal(t, 0.0, min)
	assert.Equal(t, 0.0, variance)
}

func TestSpeedStatsComputesAverageMaxMinVariance(t *testing.T) {
	avg, max, min, variance := speedStats([]float64{10, 20, 30})
	assert.Equal(t, 20.0, avg)
	assert.Equal(t, 30.0, max)
	assert.Equal(t, 10.0, min)
	assert.InDelta(t, 66.667, variance, 0.01)
}

func TestAbnormalBehaviorsFlagsExcessiveSpeed(t *testing.T) {
	s := trajectoryStats{MaxSpeed: 100, Smoothness: 1, Sinuosity: 1, SpeedVariance: 1}
	assert.Contains(t, abnormalBehaviors(s, 50), "excessive_speed")
}

func TestAbnormalBehaviorsEmptyWhenWithinThresholds(t *testing.T) {
	s := trajectoryStats{MaxSpeed: 10, Smoothness: 1, Sinuosity: 1, SpeedVariance: 1, DirectionChanges: 0}
	assert.Empty(t, abnormalBehaviors(s, 50))
}

func TestDwellAreasForFindsStationaryCluster(t *testing.T) {
	base := time.Unix(0, 0)
	hist := make([]trajPoint, 0, 6)
	for i := 0; i < 6; i++ {
		hist = append(hist, trajPoint{x: 100, y: 100, t: base.Add(time.Duration(i) * time.Second)})
	}
	areas := dwellAreasFor(hist)
	assert.Len(t, areas, 1)
	assert.Equal(t, 6, areas[0].Count)
}

func TestDwellAreasForNoneWhenMovingStraightLine(t *testing.T) {
	base := time.Unix(0, 0)
	var hist []trajPoint
	for i := 0; i < 6; i++ {
		hist = append(hist, trajPoint{x: float64(i) * 200, y: 0, t: base.Add(time.Duration(i) * time.Second)})
	}
	assert.Empty(t, dwellAreasFor(hist))
}

func TestCrowdSummaryAveragesSpeedAndCentroid(t *testing.T) {
	detections := []model.Detection{
		{Box: model.BBox{X1: 0, Y1: 0, X2: 10, Y2: 10}, Speed: 10, Direction: 0},
		{Box: model.BBox{X1: 20, Y1: 0, X2: 30, Y2: 10}, Speed: 20, Direction: 0},
	}
	c := crowdSummary(detections)
	assert.Equal(t, 15.0, c.MeanSpeed)
	assert.InDelta(t, 0.0, c.DominantDirection, 1e-6)
}
