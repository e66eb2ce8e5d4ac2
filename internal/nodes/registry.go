package nodes

import (
	"fmt"
	"sync"
)

// Registry maps a node's `type` string to its Constructor, the tagged-variant
// shape design note §9 asks for, generalized from the teacher's
// internal/pipeline/detectors/registry.go.
type Registry struct {
	mu           sync.RWMutex
	constructors map[string]Constructor
}

func NewRegistry() *Registry {
	r := &Registry{constructors: make(map[string]Constructor)}
	r.register("objectDetection", newObjectDetectionNode)
	r.register("polygonFilter", newPolygonFilterNode)
	r.register("directionFilter", newDirectionFilterNode)
	r.register("loiteringDetection", newLoiteringNode)
	r.register("trajectoryAnalysis", newTrajectoryNode)
	r.register("dataSink", newDataSinkNode)
	r.register("telegram", newNotifySinkNode("telegram"))
	r.register("email", newNotifySinkNode("email"))
	r.register("whatsapp", newNotifySinkNode("whatsapp"))
	r.register("faceDetector", newFaceDetectorNode)
	r.register("faceEmbedding", newFaceEmbeddingNode)
	r.register("faceMatcher", newFaceMatcherNode)
	return r
}

func (r *Registry) register(nodeType string, c Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.constructors[nodeType] = c
}

// Build constructs a new, independent Node instance for the given graph node.
func (r *Registry) Build(id, nodeType string, config map[string]interface{}) (Node, error) {
	r.mu.RLock()
	c, ok := r.constructors[nodeType]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown node type %q", nodeType)
	}
	return c(id, config)
}
