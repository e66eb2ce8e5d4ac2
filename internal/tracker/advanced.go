package tracker

import (
	"time"

	"visionmesh/internal/model"
)

const (
	defaultMaxAge  = 50
	minHits        = 3
	costThreshold  = 0.3
	iouWeight      = 0.7
	simWeight      = 0.3
)

type advancedTrack struct {
	id              int
	kalman          *kalmanState
	appearance      appearanceMemory
	behaviour       behaviourState
	age             int
	hitStreak       int
	timeSinceUpdate int
	firstUpdate     bool
}

// AdvancedTracker is the Kalman + cosine-similarity Re-ID back-end from
// spec §4.6.
type AdvancedTracker struct {
	nextID int
	tracks map[int]*advancedTrack
	maxAge int
	now    func() time.Time
}

// FeatureExtractor produces a 128-d L2-normalised appearance embedding from a
// detection crop. Nil is a valid return (no feature this frame).
type FeatureExtractor func(det model.Detection) []float64

func NewAdvancedTracker() *AdvancedTracker {
	return &AdvancedTracker{
		tracks: make(map[int]*advancedTrack),
		maxAge: defaultMaxAge,
		now:    time.Now,
	}
}

// Update runs one association step: predict, cost-matrix build, greedy
// assignment, track lifecycle maintenance, per spec §4.6 steps 1-7.
// extractFeature may be nil, in which case Re-ID similarity contributes 0.
func (t *AdvancedTracker) Update(detections []model.Detection, extractFeature FeatureExtractor) []Object {
	now := t.now()

	for _, tr := range t.tracks {
		tr.kalman.predict()
		tr.age++
		tr.timeSinceUpdate++
	}

	ids := make([]int, 0, len(t.tracks))
	for id := range t.tracks {
		ids = append(ids, id)
	}

	features := make([][]float64, len(detections))
	if extractFeature != nil {
		for i, d := range detections {
			features[i] = extractFeature(d)
		}
	}

	type cell struct {
		di, ti int
		score  float64
	}
	var cells []cell
	for di, d := range detections {
		predBox := model.BBox{}
		for ti, id := range ids {
			tr := t.tracks[id]
			x1, y1, x2, y2 := tr.kalman.box()
			predBox = model.BBox{X1: x1, Y1: y1, X2: x2, Y2: y2}
			iouScore := iou(d.Box, predBox)
			sim := cosineSimilarity(features[di], tr.appearance.mean())
			score := iouWeight*iouScore + simWeight*sim
			cells = append(cells, cell{di: di, ti: ti, score: score})
		}
	}

	matchedDet := make(map[int]bool)
	matchedTrk := make(map[int]bool)
	assignment := make(map[int]int) // detection index -> track index

	for {
		best := -1
		bestScore := -1.0
		for i, c := range cells {
			if matchedDet[c.di] || matchedTrk[c.ti] {
				continue
			}
			if c.score > bestScore {
				bestScore = c.score
				best = i
			}
		}
		if best == -1 || bestScore <= costThreshold {
			break
		}
		c := cells[best]
		matchedDet[c.di] = true
		matchedTrk[c.ti] = true
		assignment[c.di] = c.ti
	}

	for di, ti := range assignment {
		id := ids[ti]
		tr := t.tracks[id]
		d := detections[di]
		obs := observationFromBox(d.Box.X1, d.Box.Y1, d.Box.X2, d.Box.Y2)
		tr.kalman.update(obs)
		tr.appearance.add(features[di])
		cx, cy := centre(d.Box)
		tr.behaviour.record(cx, cy)
		tr.behaviour.updateLoitering(now)
		tr.timeSinceUpdate = 0
		tr.hitStreak++
	}

	for di, d := range detections {
		if matchedDet[di] {
			continue
		}
		x1, y1, x2, y2 := d.Box.X1, d.Box.Y1, d.Box.X2, d.Box.Y2
		w := x2 - x1
		h := y2 - y1
		s := 0.0
		if h != 0 {
			s = w / h
		}
		cx, cy := centre(d.Box)
		tr := &advancedTrack{
			id:          t.nextID,
			kalman:      newKalmanState(cx, cy, s, h),
			hitStreak:   1,
			firstUpdate: true,
		}
		tr.appearance.add(features[di])
		tr.behaviour.record(cx, cy)
		t.tracks[tr.id] = tr
		t.nextID++
	}

	for ti, id := range ids {
		if !matchedTrk[ti] {
			t.tracks[id].hitStreak = 0
		}
	}

	for id, tr := range t.tracks {
		if tr.timeSinceUpdate > t.maxAge {
			delete(t.tracks, id)
		}
	}

	var out []Object
	for id, tr := range t.tracks {
		if tr.timeSinceUpdate != 0 {
			continue
		}
		if tr.hitStreak < minHits && !tr.firstUpdate {
			continue
		}
		tr.firstUpdate = false
		x1, y1, x2, y2 := tr.kalman.box()
		loit, dur := tr.behaviour.isLoitering(0, now)
		out = append(out, Object{
			ID:               id,
			Box:              model.BBox{X1: x1, Y1: y1, X2: x2, Y2: y2},
			Speed:            tr.behaviour.speed(),
			Direction:        tr.behaviour.direction(),
			TrajectoryLength: len(tr.behaviour.trajectory),
			IsLoitering:      loit,
			LoiteringFor:     dur,
		})
	}
	return out
}

func (t *AdvancedTracker) Loitering(threshold time.Duration) []LoiteringInfo {
	now := t.now()
	var out []LoiteringInfo
	for id, tr := range t.tracks {
		if ok, dur := tr.behaviour.isLoitering(threshold, now); ok {
			x1, y1, x2, y2 := tr.kalman.box()
			out = append(out, LoiteringInfo{
				ObjectID: id,
				Box:      model.BBox{X1: x1, Y1: y1, X2: x2, Y2: y2},
				Duration: dur,
			})
		}
	}
	return out
}
