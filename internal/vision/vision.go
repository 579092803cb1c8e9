// Package vision defines the contracts for the external face models. The
// detection and embedding networks run in an inference sidecar; this package
// only knows how to talk to them. Both are process-wide resources initialized
// once at startup and injected into the services that need them.
package vision

import "context"

type Box struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Face is one detected face region.
type Face struct {
	Box        Box     `json:"box"`
	Landmarks  []Point `json:"landmarks,omitempty"`
	Confidence float64 `json:"confidence"`
}

// Detector finds face regions in an image. A face-free image returns an
// empty slice, not an error; errors mean the image itself was unreadable.
type Detector interface {
	Detect(ctx context.Context, image []byte) ([]Face, error)
}

// Embedder produces the 512-dim embedding for one detected face region.
// Output is not guaranteed unit-norm; callers normalize.
type Embedder interface {
	Embed(ctx context.Context, image []byte, face Face) ([]float64, error)
}
