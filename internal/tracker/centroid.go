package tracker

import (
	"sort"
	"time"

	"visionmesh/internal/model"
)

const defaultMaxDisappeared = 50

type centroidObject struct {
	id          int
	centroid    point
	box         model.BBox
	disappeared int
	behaviour   behaviourState
}

// CentroidTracker is the O(N·M) nearest-neighbour fallback back-end from
// spec §4.6. `boxes` (current bbox per id) and `position_history` (ring
// buffer of centroids) are the fields the original source referenced without
// initialising; here they are the `box` field and behaviourState.positions
// respectively. That buffer holds the last positionHistorySize (30)
// centroids, not maxDisappeared of them.
type CentroidTracker struct {
	nextID          int
	objects         map[int]*centroidObject
	maxDisappeared  int
	now             func() time.Time
}

func NewCentroidTracker() *CentroidTracker {
	return &CentroidTracker{
		objects:        make(map[int]*centroidObject),
		maxDisappeared: defaultMaxDisappeared,
		now:            time.Now,
	}
}

func (c *CentroidTracker) register(d model.Detection) {
	cx, cy := centre(d.Box)
	obj := &centroidObject{id: c.nextID, centroid: point{cx, cy}, box: d.Box}
	obj.behaviour.record(cx, cy)
	c.objects[c.nextID] = obj
	c.nextID++
}

func (c *CentroidTracker) deregister(id int) {
	delete(c.objects, id)
}

func (c *CentroidTracker) Update(detections []model.Detection) []Object {
	now := c.now()

	if len(detections) == 0 {
		for id, obj := range c.objects {
			obj.disappeared++
			if obj.disappeared > c.maxDisappeared {
				c.deregister(id)
			}
		}
		return c.report(now)
	}

	if len(c.objects) == 0 {
		for _, d := range detections {
			c.register(d)
		}
		return c.report(now)
	}

	ids := make([]int, 0, len(c.objects))
	for id := range c.objects {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	distances := make([][]float64, len(ids))
	for i, id := range ids {
		obj := c.objects[id]
		distances[i] = make([]float64, len(detections))
		for j, d := range detections {
			cx, cy := centre(d.Box)
			distances[i][j] = euclidean(obj.centroid.x, obj.centroid.y, cx, cy)
		}
	}

	rowOrder := make([]int, len(ids))
	for i := range rowOrder {
		rowOrder[i] = i
	}
	rowMin := func(row int) float64 {
		m := distances[row][0]
		for _, v := range distances[row][1:] {
			if v < m {
				m = v
			}
		}
		return m
	}
	sort.Slice(rowOrder, func(a, b int) bool {
		return rowMin(rowOrder[a]) < rowMin(rowOrder[b])
	})

	usedRows := make(map[int]bool)
	usedCols := make(map[int]bool)

	for _, row := range rowOrder {
		if usedRows[row] {
			continue
		}
		col := -1
		best := -1.0
		for j := range detections {
			if usedCols[j] {
				continue
			}
			if col == -1 || distances[row][j] < best {
				col = j
				best = distances[row][j]
			}
		}
		if col == -1 {
			continue
		}
		id := ids[row]
		obj := c.objects[id]
		d := detections[col]
		cx, cy := centre(d.Box)
		obj.centroid = point{cx, cy}
		obj.box = d.Box
		obj.disappeared = 0
		obj.behaviour.record(cx, cy)
		obj.behaviour.updateLoitering(now)

		usedRows[row] = true
		usedCols[col] = true
	}

	if len(ids) >= len(detections) {
		for row, id := range ids {
			if usedRows[row] {
				continue
			}
			obj := c.objects[id]
			obj.disappeared++
			if obj.disappeared > c.maxDisappeared {
				c.deregister(id)
			}
		}
	} else {
		for col, d := range detections {
			if usedCols[col] {
				continue
			}
			c.register(d)
		}
	}

	return c.report(now)
}

func (c *CentroidTracker) report(now time.Time) []Object {
	out := make([]Object, 0, len(c.objects))
	for id, obj := range c.objects {
		if obj.disappeared > 0 {
			continue
		}
		loit, dur := obj.behaviour.isLoitering(0, now)
		out = append(out, Object{
			ID:               id,
			Box:              obj.box,
			Speed:            obj.behaviour.speed(),
			Direction:        obj.behaviour.direction(),
			TrajectoryLength: len(obj.behaviour.trajectory),
			IsLoitering:      loit,
			LoiteringFor:     dur,
		})
	}
	return out
}

func (c *CentroidTracker) Loitering(threshold time.Duration) []LoiteringInfo {
	now := c.now()
	var out []LoiteringInfo
	for id, obj := range c.objects {
		if ok, dur := obj.behaviour.isLoitering(threshold, now); ok {
			out = append(out, LoiteringInfo{ObjectID: id, Box: obj.box, Duration: dur})
		}
	}
	return out
}
