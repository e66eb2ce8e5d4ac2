// Package executor is the DAG Executor (C4): topologically orders a
// pipeline graph and runs each node with inputs gathered from its
// predecessors, sharing per-pipeline tools, per spec §4.3.
//
// Grounded on original_source/frame-processing-service/src/
// pipeline_executor.py's _topological_sort/execute (Kahn's algorithm
// excluding the videoInput sentinel, last-write-wins input merging) and on
// the teacher's internal/pipeline/detection_pipeline.go for the
// per-pipeline shared-tools/node-failure-isolation idiom, generalized from a
// fixed YOLO→face→plate chain to an arbitrary node registry walk.
package executor

import (
	"context"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"visionmesh/internal/metrics"
	"visionmesh/internal/model"
	"visionmesh/internal/nodes"
	"visionmesh/internal/pipelinecache"
	"visionmesh/internal/tracker"
)

// Executor runs the pipeline bound to each incoming frame's camera.
type Executor struct {
	cache             *pipelinecache.Cache
	registry          *nodes.Registry
	log               zerolog.Logger
	maxProcessingTime time.Duration
	defaultEndpoint   string

	modelProvider   nodes.ModelProvider
	eventSink       nodes.EventSink
	notifier        nodes.Notifier
	identityMatcher nodes.IdentityMatcher

	mu            sync.Mutex
	trackers      map[string]tracker.Tracker
	pipelineNodes map[string]map[string]nodes.Node
	zoneAnalytics map[string]map[string]nodes.ZoneStats

	stats *metrics.Stats
}

type Options struct {
	Cache             *pipelinecache.Cache
	Registry          *nodes.Registry
	Log               zerolog.Logger
	MaxProcessingTime time.Duration
	DefaultEndpoint   string
	ModelProvider     nodes.ModelProvider
	EventSink         nodes.EventSink
	Notifier          nodes.Notifier
	IdentityMatcher   nodes.IdentityMatcher
}

func New(opts Options) *Executor {
	return &Executor{
		cache:             opts.Cache,
		registry:          opts.Registry,
		log:               opts.Log,
		maxProcessingTime: opts.MaxProcessingTime,
		defaultEndpoint:   opts.DefaultEndpoint,
		modelProvider:     opts.ModelProvider,
		eventSink:         opts.EventSink,
		notifier:          opts.Notifier,
		identityMatcher:   opts.IdentityMatcher,
		trackers:          make(map[string]tracker.Tracker),
		pipelineNodes:     make(map[string]map[string]nodes.Node),
		zoneAnalytics:     make(map[string]map[string]nodes.ZoneStats),
		stats:             metrics.New("executor"),
	}
}

// Stats returns a point-in-time read of the executor's rolling counters
// (frames processed, failed, average latency), per spec §2's C11.
func (e *Executor) Stats() metrics.Snapshot {
	return e.stats.Snapshot()
}

// Execute runs the pipeline bound to fm.CameraName against one frame, per
// spec §4.3. A missing pipeline, cache error, or cyclic graph is a no-op:
// the caller still acknowledges the bus message unconditionally.
func (e *Executor) Execute(ctx context.Context, fm model.FrameMessage) error {
	start := time.Now()

	jpeg, err := hex.DecodeString(fm.Frame)
	if err != nil {
		e.stats.IncFailed()
		return fmt.Errorf("decoding frame payload: %w", err)
	}

	pipeline, err := e.cache.Get(fm.CameraName)
	if err != nil {
		e.log.Warn().Err(err).Str("camera", fm.CameraName).Msg("pipeline lookup failed")
		e.stats.IncFailed()
		return nil
	}
	if pipeline == nil {
		return nil
	}

	order, err := topologicalOrder(pipeline.Graph)
	if err != nil {
		e.log.Error().Err(err).Str("pipeline", pipeline.ID).Msg("pipeline graph rejected")
		e.stats.IncFailed()
		return nil
	}

	frame := nodes.Frame{
		CameraName: fm.CameraName,
		JPEG:       jpeg,
		Timestamp:  time.Unix(int64(fm.Timestamp), 0),
	}

	tools := &nodes.Tools{
		Models:          e.modelProvider,
		Tracker:         e.trackerFor(pipeline.ID),
		CameraName:      fm.CameraName,
		PipelineID:      pipeline.ID,
		PipelineName:    pipeline.Name,
		FrameTime:       frame.Timestamp,
		EventSink:       e.eventSink,
		Notifier:        e.notifier,
		IdentityMatcher: e.identityMatcher,
		DefaultEndpoint: e.defaultEndpoint,
		ZoneAnalytics:   e.zoneAnalyticsFor(pipeline.ID),
	}

	nodesByID := make(map[string]model.Node, len(pipeline.Graph.Nodes))
	for _, n := range pipeline.Graph.Nodes {
		nodesByID[n.ID] = n
	}

	results := make(map[string]model.NodeResult, len(order))
	for _, nodeID := range order {
		info, ok := nodesByID[nodeID]
		if !ok {
			continue
		}

		inst, err := e.nodeInstance(pipeline.ID, info)
		if err != nil {
			e.log.Warn().Err(err).Str("node", nodeID).Msg("node construction failed")
			results[nodeID] = model.NodeResult{}
			continue
		}

		input := mergeInputs(pipeline.Graph.Edges, nodeID, results)

		out, err := inst.Process(ctx, frame, input, tools)
		if err != nil {
			e.log.Warn().Err(err).Str("node", nodeID).Str("pipeline", pipeline.ID).Msg("node failed, continuing with empty output")
			out = model.NodeResult{}
		}
		if out == nil {
			out = model.NodeResult{}
		}
		results[nodeID] = out
	}

	elapsed := time.Since(start)
	e.stats.IncFramesIn()
	e.stats.ObserveLatency(elapsed)
	if e.maxProcessingTime > 0 && elapsed > e.maxProcessingTime {
		e.log.Warn().Dur("elapsed", elapsed).Str("pipeline", pipeline.ID).Msg("frame exceeded soft processing deadline")
	}

	return nil
}

func (e *Executor) trackerFor(pipelineID string) tracker.Tracker {
	e.mu.Lock()
	defer e.mu.Unlock()
	t, ok := e.trackers[pipelineID]
	if !ok {
		t = tracker.NewHybridTracker(e.log, nil)
		e.trackers[pipelineID] = t
	}
	return t
}

func (e *Executor) zoneAnalyticsFor(pipelineID string) map[string]nodes.ZoneStats {
	e.mu.Lock()
	defer e.mu.Unlock()
	m, ok := e.zoneAnalytics[pipelineID]
	if !ok {
		m = make(map[string]nodes.ZoneStats)
		e.zoneAnalytics[pipelineID] = m
	}
	return m
}

// nodeInstance returns the (pipeline, node-id)-scoped instance, constructing
// it on first use so per-node state (zone lifecycle, trajectory history)
// survives across frames, per spec §4.4.
func (e *Executor) nodeInstance(pipelineID string, info model.Node) (nodes.Node, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	byID, ok := e.pipelineNodes[pipelineID]
	if !ok {
		byID = make(map[string]nodes.Node)
		e.pipelineNodes[pipelineID] = byID
	}
	if inst, ok := byID[info.ID]; ok {
		return inst, nil
	}

	cfg := info.Data
	if nested, ok := info.Data["config"].(map[string]interface{}); ok {
		cfg = nested
	}
	inst, err := e.registry.Build(info.ID, info.Type, cfg)
	if err != nil {
		return nil, err
	}
	byID[info.ID] = inst
	return inst, nil
}

// mergeInputs builds input_data by merging (last-write-wins) the outputs of
// every predecessor of nodeID that has already produced a result, per
// spec §4.3. Edge order is preserved so the merge is deterministic.
func mergeInputs(edges []model.Edge, nodeID string, results map[string]model.NodeResult) nodes.Input {
	merged := nodes.Input{}
	for _, e := range edges {
		if e.Target != nodeID {
			continue
		}
		src, ok := results[e.Source]
		if !ok {
			continue
		}
		for k, v := range src {
			merged[k] = v
		}
	}
	return merged
}

// topologicalOrder runs Kahn's algorithm excluding the videoInput sentinel,
// stable-tie-broken by node id, per spec §4.3 and design note §9.
func topologicalOrder(g model.Graph) ([]string, error) {
	inDegree := make(map[string]int, len(g.Nodes))
	adj := make(map[string][]string, len(g.Nodes))
	typeByID := make(map[string]string, len(g.Nodes))

	for _, n := range g.Nodes {
		inDegree[n.ID] = 0
		typeByID[n.ID] = n.Type
	}
	for _, e := range g.Edges {
		adj[e.Source] = append(adj[e.Source], e.Target)
		inDegree[e.Target]++
	}

	var queue []string
	for _, n := range g.Nodes {
		if inDegree[n.ID] == 0 {
			queue = append(queue, n.ID)
		}
	}
	sort.Strings(queue)

	var order []string
	visited := 0
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		visited++

		if typeByID[u] != "videoInput" {
			order = append(order, u)
		}

		var newlyReady []string
		for _, v := range adj[u] {
			inDegree[v]--
			if inDegree[v] == 0 {
				newlyReady = append(newlyReady, v)
			}
		}
		if len(newlyReady) > 0 {
			queue = append(queue, newlyReady...)
			sort.Strings(queue)
		}
	}

	if visited != len(g.Nodes) {
		return nil, fmt.Errorf("pipeline graph is not acyclic: %d of %d nodes reachable", visited, len(g.Nodes))
	}
	return order, nil
}
