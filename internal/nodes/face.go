package nodes

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"

	"golang.org/x/image/draw"

	"visionmesh/internal/model"
)

const (
	faceCropWidth  = 160
	faceCropHeight = 160
)

// Embedder is the capability a face-embedding model exposes beyond plain
// object detection, backed by internal/models.HTTPModel.Embed.
type Embedder interface {
	Embed(crop []byte) ([]float64, error)
}

type faceDetectorNode struct {
	modelFilename string
	confidence    float64
}

func newFaceDetectorNode(id string, cfg map[string]interface{}) (Node, error) {
	return &faceDetectorNode{
		modelFilename: cfgString(cfg, "model_filename", "face_detector.pt"),
		confidence:    cfgFloat(cfg, "confidence", 0),
	}, nil
}

func (n *faceDetectorNode) Type() string { return "faceDetector" }

func (n *faceDetectorNode) Process(ctx context.Context, frame Frame, in Input, tools *Tools) (model.NodeResult, error) {
	client, err := tools.Models.Get(n.modelFilename, tools.DefaultEndpoint)
	if err != nil {
		return nil, fmt.Errorf("resolving face detector: %w", err)
	}
	dets, _, err := client.Detect(frame.JPEG)
	if err != nil {
		return nil, fmt.Errorf("running face detection: %w", err)
	}

	faces := make([]model.FaceDetection, 0, len(dets))
	for _, d := range dets {
		if d.Confidence < n.confidence {
			continue
		}
		faces = append(faces, model.FaceDetection{Box: d.Box, Confidence: d.Confidence})
	}
	return model.NodeResult{"faces": faces}, nil
}

type faceEmbeddingNode struct {
	modelFilename string
}

func newFaceEmbeddingNode(id string, cfg map[string]interface{}) (Node, error) {
	return &faceEmbeddingNode{
		modelFilename: cfgString(cfg, "model_filename", "face_embedding.pt"),
	}, nil
}

func (n *faceEmbeddingNode) Type() string { return "faceEmbedding" }

func (n *faceEmbeddingNode) Process(ctx context.Context, frame Frame, in Input, tools *Tools) (model.NodeResult, error) {
	faces := in.Faces()
	if len(faces) == 0 {
		return model.NodeResult{"embeddings": []model.FaceDetection{}}, nil
	}

	client, err := tools.Models.Get(n.modelFilename, tools.DefaultEndpoint)
	if err != nil {
		return nil, fmt.Errorf("resolving face embedding model: %w", err)
	}
	embedder, ok := client.(Embedder)
	if !ok {
		return nil, fmt.Errorf("model %q does not support embedding", n.modelFilename)
	}

	img, err := jpeg.Decode(bytes.NewReader(frame.JPEG))
	if err != nil {
		return nil, fmt.Errorf("decoding frame: %w", err)
	}

	out := make([]model.FaceDetection, 0, len(faces))
	for _, f := range faces {
		crop, err := cropAndResize(img, f.Box)
		if err != nil {
			continue
		}
		embedding, err := embedder.Embed(crop)
		if err != nil {
			continue
		}
		f.Embedding = embedding
		out = append(out, f)
	}
	return model.NodeResult{"embeddings": out}, nil
}

type faceMatcherNode struct{}

func newFaceMatcherNode(id string, cfg map[string]interface{}) (Node, error) {
	return &faceMatcherNode{}, nil
}

func (n *faceMatcherNode) Type() string { return "faceMatcher" }

func (n *faceMatcherNode) Process(ctx context.Context, frame Frame, in Input, tools *Tools) (model.NodeResult, error) {
	embeddingsVal, _ := in["embeddings"].([]model.FaceDetection)

	if tools.IdentityMatcher == nil {
		return model.NodeResult{"faces": embeddingsVal}, nil
	}

	for i := range embeddingsVal {
		match, err := tools.IdentityMatcher.MatchIdentity(embeddingsVal[i].Embedding)
		if err != nil {
			embeddingsVal[i].Identity = &model.IdentityMatch{Error: err.Error()}
			continue
		}
		embeddingsVal[i].Identity = match
	}
	return model.NodeResult{"faces": embeddingsVal}, nil
}

func cropAndResize(img image.Image, box model.BBox) ([]byte, error) {
	bounds := img.Bounds()
	x1 := clampInt(int(box.X1), bounds.Min.X, bounds.Max.X)
	y1 := clampInt(int(box.Y1), bounds.Min.Y, bounds.Max.Y)
	x2 := clampInt(int(box.X2), bounds.Min.X, bounds.Max.X)
	y2 := clampInt(int(box.Y2), bounds.Min.Y, bounds.Max.Y)
	if x2 <= x1 || y2 <= y1 {
		return nil, fmt.Errorf("degenerate crop box")
	}

	type subImager interface {
		SubImage(r image.Rectangle) image.Image
	}
	cropped := img
	if si, ok := img.(subImager); ok {
		cropped = si.SubImage(image.Rect(x1, y1, x2, y2))
	}

	dst := image.NewRGBA(image.Rect(0, 0, faceCropWidth, faceCropHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), cropped, image.Rect(x1, y1, x2, y2), draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 90}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
