package nodes

import (
	"context"
	"math"

	"visionmesh/internal/model"
)

const directionHistorySize = 10

type directionFilterNode struct {
	id        string
	line      [2][2]float64
	direction [2]float64

	history        map[int][][2]float64
	trafficCorrect int
	trafficWrong   int
}

func newDirectionFilterNode(id string, cfg map[string]interface{}) (Node, error) {
	line := cfgPoints(cfg, "line")

	n := &directionFilterNode{
		id:      id,
		history: make(map[int][][2]float64),
	}
	if len(line) == 2 {
		n.line = [2][2]float64{{line[0][0], line[0][1]}, {line[1][0], line[1][1]}}
	}

	if raw, ok := cfg["direction"].([]interface{}); ok && len(raw) == 2 {
		dx, _ := toFloat(raw[0])
		dy, _ := toFloat(raw[1])
		n.direction = normalize([2]float64{dx, dy})
	}
	return n, nil
}

func (n *directionFilterNode) Type() string { return "directionFilter" }

func (n *directionFilterNode) Process(ctx context.Context, frame Frame, in Input, tools *Tools) (model.NodeResult, error) {
	detections := in.Detections()
	passed := make([]model.Detection, 0, len(detections))
	var wrongWay []model.Detection
	var alerts []map[string]interface{}

	for _, d := range detections {
		if d.TrackID == nil {
			passed = append(passed, d)
			continue
		}
		id := *d.TrackID
		c := d.Box.Center()
		hist := append(n.history[id], c)
		if len(hist) > directionHistorySize {
			hist = hist[len(hist)-directionHistorySize:]
		}
		n.history[id] = hist

		if len(hist) < 2 {
			passed = append(passed, d)
			continue
		}

		prev, cur := hist[len(hist)-2], hist[len(hist)-1]
		if !segmentsIntersect(prev, cur, n.line[0], n.line[1]) {
			passed = append(passed, d)
			continue
		}

		move := normalize([2]float64{cur[0] - prev[0], cur[1] - prev[1]})
		dot := move[0]*n.direction[0] + move[1]*n.direction[1]
		correct := dot > 0.5

		if correct {
			n.trafficCorrect++
			passed = append(passed, d)
			continue
		}

		n.trafficWrong++
		violation := d
		if violation.Extra == nil {
			violation.Extra = map[string]interface{}{}
		}
		violation.Extra["violation_type"] = "wrong_direction"
		violation.Extra["alert_level"] = "high"
		wrongWay = append(wrongWay, violation)
		alerts = append(alerts, map[string]interface{}{
			"type":     "wrong_way_violation",
			"track_id": id,
			"dot":      dot,
		})
	}

	return model.NodeResult{
		"detections":          passed,
		"wrong_way_detections": wrongWay,
		"alerts":              alerts,
		"traffic_correct":     n.trafficCorrect,
		"traffic_wrong":       n.trafficWrong,
	}, nil
}

func normalize(v [2]float64) [2]float64 {
	mag := math.Sqrt(v[0]*v[0] + v[1]*v[1])
	if mag == 0 {
		return [2]float64{0, 0}
	}
	return [2]float64{v[0] / mag, v[1] / mag}
}

func segmentsIntersect(p1, p2, p3, p4 [2]float64) bool {
	d1 := cross(p4, p3, p1)
	d2 := cross(p4, p3, p2)
	d3 := cross(p2, p1, p3)
	d4 := cross(p2, p1, p4)

	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	return false
}

func cross(a, b, c [2]float64) float64 {
	return (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
}
