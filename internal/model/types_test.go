package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBBoxGeometry(t *testing.T) {
	b := BBox{X1: 10, Y1: 20, X2: 30, Y2: 60}

	assert.Equal(t, 20.0, b.Width())
	assert.Equal(t, 40.0, b.Height())

	c := b.Center()
	assert.Equal(t, [2]float64{20, 40}, c)

	bc := b.BottomCenter()
	assert.Equal(t, [2]float64{20, 60}, bc)
}

func TestPipelineCameraName(t *testing.T) {
	tests := []struct {
		name string
		p    Pipeline
		want string
	}{
		{
			name: "videoInput node present",
			p: Pipeline{Graph: Graph{Nodes: []Node{
				{ID: "n1", Type: "videoInput", Data: map[string]interface{}{"camera_name": "front-door"}},
				{ID: "n2", Type: "objectDetection"},
			}}},
			want: "front-door",
		},
		{
			name: "no videoInput node",
			p:    Pipeline{Graph: Graph{Nodes: []Node{{ID: "n1", Type: "objectDetection"}}}},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.p.CameraName())
		})
	}
}
