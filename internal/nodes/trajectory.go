package nodes

import (
	"context"
	"math"
	"time"

	"visionmesh/internal/model"
)

const (
	trajectoryHistoryMax    = 50
	trajectoryHistoryTTL    = 300 * time.Second
	dwellClusterMinPoints   = 5
	dwellClusterRadiusPx    = 30
	directionChangeAngleDeg = 45
)

type trajPoint struct {
	x, y float64
	t    time.Time
}

type trajectoryNode struct {
	id             string
	minLength      int
	framesAhead    int
	speedThreshold float64

	history map[int][]trajPoint
}

func newTrajectoryNode(id string, cfg map[string]interface{}) (Node, error) {
	return &trajectoryNode{
		id:             id,
		minLength:      cfgInt(cfg, "min_trajectory_length", 5),
		framesAhead:    cfgInt(cfg, "frames_ahead", 10),
		speedThreshold: cfgFloat(cfg, "speed_threshold", 50),
		history:        make(map[int][]trajPoint),
	}, nil
}

func (n *trajectoryNode) Type() string { return "trajectoryAnalysis" }

func (n *trajectoryNode) Process(ctx context.Context, frame Frame, in Input, tools *Tools) (model.NodeResult, error) {
	now := frame.Timestamp
	if now.IsZero() {
		now = time.Now()
	}
	detections := cloneDetections(in.Detections())

	dwellAreas := make(map[int]interface{})

	for i := range detections {
		if detections[i].TrackID == nil {
			continue
		}
		id := *detections[i].TrackID
		c := detections[i].Box.Center()
		hist := append(n.history[id], trajPoint{c[0], c[1], now})
		hist = trimTrajectoryHistory(hist, now)
		n.history[id] = hist

		if len(hist) < n.minLength {
			continue
		}

		stats := computeTrajectoryStats(hist)
		if detections[i].Extra == nil {
			detections[i].Extra = map[string]interface{}{}
		}
		detections[i].Extra["trajectory_analysis"] = stats
		detections[i].Extra["predicted_position"] = predictPosition(hist, n.framesAhead)

		if abnormal := abnormalBehaviors(stats, n.speedThreshold); len(abnormal) > 0 {
			detections[i].Extra["abnormal_behavior"] = abnormal
		}

		if areas := dwellAreasFor(hist); len(areas) > 0 {
			dwellAreas[id] = areas
		}
	}

	result := model.NodeResult{
		"detections":  detections,
		"dwell_areas": dwellAreas,
	}
	if len(detections) >= 2 {
		result["crowd_summary"] = crowdSummary(detections)
	}
	return result, nil
}

func trimTrajectoryHistory(hist []trajPoint, now time.Time) []trajPoint {
	cutoff := now.Add(-trajectoryHistoryTTL)
	start := 0
	for start < len(hist) && hist[start].t.Before(cutoff) {
		start++
	}
	hist = hist[start:]
	if len(hist) > trajectoryHistoryMax {
		hist = hist[len(hist)-trajectoryHistoryMax:]
	}
	return hist
}

type trajectoryStats struct {
	TotalDistance      float64 `json:"total_distance"`
	StraightDistance   float64 `json:"straight_distance"`
	Sinuosity          float64 `json:"sinuosity"`
	AverageSpeed       float64 `json:"average_speed"`
	SpeedVariance      float64 `json:"speed_variance"`
	MaxSpeed           float64 `json:"max_speed"`
	MinSpeed           float64 `json:"min_speed"`
	DirectionChanges   int     `json:"direction_changes"`
	TrajectoryDuration float64 `json:"trajectory_duration"`
	Smoothness         float64 `json:"smoothness"`
}

func computeTrajectoryStats(hist []trajPoint) trajectoryStats {
	var totalDist float64
	speeds := make([]float64, 0, len(hist)-1)
	var angles []float64

	for i := 1; i < len(hist); i++ {
		dx := hist[i].x - hist[i-1].x
		dy := hist[i].y - hist[i-1].y
		d := math.Sqrt(dx*dx + dy*dy)
		totalDist += d

		dt := hist[i].t.Sub(hist[i-1].t).Seconds()
		if dt <= 0 {
			dt = 1.0 / 30
		}
		speeds = append(speeds, d/dt)

		if dx != 0 || dy != 0 {
			angles = append(angles, math.Atan2(dy, dx)*180/math.Pi)
		}
	}

	straight := euclidean(hist[0].x, hist[0].y, hist[len(hist)-1].x, hist[len(hist)-1].y)
	sinuosity := 1.0
	if straight > 0 {
		sinuosity = totalDist / straight
	}

	avgSpeed, maxSpeed, minSpeed, variance := speedStats(speeds)

	directionChanges := 0
	for i := 1; i < len(angles); i++ {
		diff := math.Abs(angles[i] - angles[i-1])
		if diff > 180 {
			diff = 360 - diff
		}
		if diff > directionChangeAngleDeg {
			directionChanges++
		}
	}

	smoothness := 1 / math.Max(variance, 0.1)

	return trajectoryStats{
		TotalDistance:      totalDist,
		StraightDistance:   straight,
		Sinuosity:          sinuosity,
		AverageSpeed:       avgSpeed,
		SpeedVariance:      variance,
		MaxSpeed:           maxSpeed,
		MinSpeed:           minSpeed,
		DirectionChanges:   directionChanges,
		TrajectoryDuration: hist[len(hist)-1].t.Sub(hist[0].t).Seconds(),
		Smoothness:         smoothness,
	}
}

func speedStats(speeds []float64) (avg, max, min, variance float64) {
	if len(speeds) == 0 {
		return 0, 0, 0, 0
	}
	max = speeds[0]
	min = speeds[0]
	var sum float64
	for _, s := range speeds {
		sum += s
		if s > max {
			max = s
		}
		if s < min {
			min = s
		}
	}
	avg = sum / float64(len(speeds))

	var sqDiff float64
	for _, s := range speeds {
		d := s - avg
		sqDiff += d * d
	}
	variance = sqDiff / float64(len(speeds))
	return
}

func predictPosition(hist []trajPoint, framesAhead int) [2]float64 {
	n := len(hist)
	window := hist
	if n > 3 {
		window = hist[n-3:]
	}
	var vx, vy float64
	count := 0
	for i := 1; i < len(window); i++ {
		dt := window[i].t.Sub(window[i-1].t).Seconds()
		if dt <= 0 {
			dt = 1.0 / 30
		}
		vx += (window[i].x - window[i-1].x) / dt
		vy += (window[i].y - window[i-1].y) / dt
		count++
	}
	if count > 0 {
		vx /= float64(count)
		vy /= float64(count)
	}
	last := hist[n-1]
	frameDt := 1.0 / 30
	return [2]float64{last.x + vx*frameDt*float64(framesAhead), last.y + vy*frameDt*float64(framesAhead)}
}

func abnormalBehaviors(s trajectoryStats, speedThreshold float64) []string {
	var out []string
	if s.MaxSpeed > speedThreshold {
		out = append(out, "excessive_speed")
	}
	if s.DirectionChanges > 10 {
		out = append(out, "erratic_movement")
	}
	if s.Smoothness < 0.3 {
		out = append(out, "irregular_path")
	}
	if s.Sinuosity > 3 {
		out = append(out, "highly_winding_path")
	}
	if s.SpeedVariance > 100 {
		out = append(out, "sudden_speed_changes")
	}
	return out
}

type dwellArea struct {
	Centroid [2]float64 `json:"centroid"`
	Count    int        `json:"count"`
	Start    time.Time  `json:"start"`
	End      time.Time  `json:"end"`
}

// dwellAreasFor finds maximal runs of ≥5 consecutive points that stay within
// dwellClusterRadiusPx of their running centroid, per spec §4.4.
func dwellAreasFor(hist []trajPoint) []dwellArea {
	var areas []dwellArea
	i := 0
	for i < len(hist) {
		j := i + 1
		sumX, sumY := hist[i].x, hist[i].y
		count := 1
		for j < len(hist) {
			cx, cy := sumX/float64(count), sumY/float64(count)
			if euclidean(hist[j].x, hist[j].y, cx, cy) > dwellClusterRadiusPx {
				break
			}
			sumX += hist[j].x
			sumY += hist[j].y
			count++
			j++
		}
		if count >= dwellClusterMinPoints {
			areas = append(areas, dwellArea{
				Centroid: [2]float64{sumX / float64(count), sumY / float64(count)},
				Count:    count,
				Start:    hist[i].t,
				End:      hist[j-1].t,
			})
		}
		i = j
	}
	return areas
}

type crowd struct {
	MeanSpeed        float64 `json:"mean_speed"`
	SpeedStdDev      float64 `json:"speed_stddev"`
	DominantDirection float64 `json:"dominant_direction"`
	DensityCentroid  [2]float64 `json:"density_centroid"`
	DensitySpread    float64 `json:"density_spread"`
}

func crowdSummary(detections []model.Detection) crowd {
	var speeds []float64
	var ux, uy float64
	var cx, cy float64
	for _, d := range detections {
		speeds = append(speeds, d.Speed)
		rad := d.Direction * math.Pi / 180
		ux += math.Cos(rad)
		uy += math.Sin(rad)
		c := d.Box.Center()
		cx += c[0]
		cy += c[1]
	}
	n := float64(len(detections))
	cx /= n
	cy /= n

	avgSpeed, _, _, variance := speedStats(speeds)
	stddev := math.Sqrt(variance)

	dominant := math.Atan2(uy/n, ux/n) * 180 / math.Pi
	if dominant < 0 {
		dominant += 360
	}

	var spread float64
	for _, d := range detections {
		c := d.Box.Center()
		spread += euclidean(c[0], c[1], cx, cy)
	}
	spread /= n

	return crowd{
		MeanSpeed:         avgSpeed,
		SpeedStdDev:       stddev,
		DominantDirection: dominant,
		DensityCentroid:   [2]float64{cx, cy},
		DensitySpread:     spread,
	}
}
