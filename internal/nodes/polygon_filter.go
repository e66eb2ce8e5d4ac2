package nodes

import (
	"context"
	"time"

	"visionmesh/internal/model"
)

const zoneHistoryExpiry = 300 * time.Second

// ZoneStats is polygonFilter's per-node counters published to
// shared_tools.zone_analytics, per spec §4.4.
type ZoneStats struct {
	ObjectsInZone int
	NewEntries    int
	Exits         int
	ZoneDensity   float64
}

type zoneTrackState struct {
	inside     bool
	enteredAt  time.Time
	lastUpdate time.Time
}

type polygonFilterNode struct {
	id      string
	polygon [][2]float64

	tracks map[int]*zoneTrackState

	objectsInZone int
	newEntries    int
	exits         int
}

func newPolygonFilterNode(id string, cfg map[string]interface{}) (Node, error) {
	return &polygonFilterNode{
		id:      id,
		polygon: cfgPoints(cfg, "polygon"),
		tracks:  make(map[int]*zoneTrackState),
	}, nil
}

func (n *polygonFilterNode) Type() string { return "polygonFilter" }

func (n *polygonFilterNode) Process(ctx context.Context, frame Frame, in Input, tools *Tools) (model.NodeResult, error) {
	now := frame.Timestamp
	if now.IsZero() {
		now = time.Now()
	}
	n.expireStale(now)

	detections := in.Detections()
	kept := make([]model.Detection, 0, len(detections))

	zoneEvents := make(map[int]string)
	zoneDwell := make(map[int]float64)

	for _, d := range detections {
		ref := d.Box.BottomCenter()
		inside := pointInPolygon(ref, n.polygon)
		if !inside {
			if d.TrackID != nil {
				if st, ok := n.tracks[*d.TrackID]; ok && st.inside {
					st.inside = false
					n.exits++
					zoneEvents[*d.TrackID] = "exit"
				}
			}
			continue
		}

		kept = append(kept, d)
		if d.TrackID == nil {
			continue
		}
		id := *d.TrackID
		st, ok := n.tracks[id]
		if !ok {
			st = &zoneTrackState{}
			n.tracks[id] = st
		}
		if !st.inside {
			st.inside = true
			st.enteredAt = now
			n.newEntries++
			zoneEvents[id] = "enter"
		} else {
			zoneEvents[id] = "dwell"
		}
		st.lastUpdate = now
		zoneDwell[id] = now.Sub(st.enteredAt).Seconds()
	}

	n.objectsInZone = 0
	for _, st := range n.tracks {
		if st.inside {
			n.objectsInZone++
		}
	}

	if tools.ZoneAnalytics != nil {
		tools.ZoneAnalytics[n.id] = ZoneStats{
			ObjectsInZone: n.objectsInZone,
			NewEntries:    n.newEntries,
			Exits:         n.exits,
			ZoneDensity:   zoneDensity(n.objectsInZone, n.polygon),
		}
	}

	return model.NodeResult{
		"detections":  kept,
		"zone_events": zoneEvents,
		"zone_dwell":  zoneDwell,
	}, nil
}

func (n *polygonFilterNode) expireStale(now time.Time) {
	for id, st := range n.tracks {
		if now.Sub(st.lastUpdate) > zoneHistoryExpiry {
			delete(n.tracks, id)
		}
	}
}

func zoneDensity(inZone int, polygon [][2]float64) float64 {
	area := polygonArea(polygon)
	if area <= 0 {
		return 0
	}
	return float64(inZone) / (area / 1000)
}

func polygonArea(poly [][2]float64) float64 {
	if len(poly) < 3 {
		return 0
	}
	var sum float64
	n := len(poly)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += poly[i][0]*poly[j][1] - poly[j][0]*poly[i][1]
	}
	if sum < 0 {
		sum = -sum
	}
	return sum / 2
}

// pointInPolygon is the ray-casting rule with the boundary counted as
// inside, per design note §9.
func pointInPolygon(p [2]float64, poly [][2]float64) bool {
	if len(poly) < 3 {
		return false
	}
	x, y := p[0], p[1]
	inside := false
	n := len(poly)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi, yi := poly[i][0], poly[i][1]
		xj, yj := poly[j][0], poly[j][1]

		if onSegment(x, y, xi, yi, xj, yj) {
			return true
		}

		intersects := (yi > y) != (yj > y)
		if intersects {
			xCross := (xj-xi)*(y-yi)/(yj-yi) + xi
			if x < xCross {
				inside = !inside
			}
		}
	}
	return inside
}

func onSegment(px, py, x1, y1, x2, y2 float64) bool {
	cross := (x2-x1)*(py-y1) - (y2-y1)*(px-x1)
	if cross != 0 {
		return false
	}
	if px < minF(x1, x2) || px > maxF(x1, x2) {
		return false
	}
	if py < minF(y1, y2) || py > maxF(y1, y2) {
		return false
	}
	return true
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
