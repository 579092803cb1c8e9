package facestore

import (
	"encoding/binary"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// EmbeddingDim is the ArcFace embedding size. Every stored and queried
// vector has exactly this many elements.
const EmbeddingDim = 512

// embeddings are persisted as a flat little-endian float32 buffer
const elementWidth = 4

// EncodeEmbedding serializes a vector into the flat byte buffer stored in
// the embedding column.
func EncodeEmbedding(v []float64) ([]byte, error) {
	if len(v) != EmbeddingDim {
		return nil, fmt.Errorf("embedding has %d dims, want %d", len(v), EmbeddingDim)
	}
	buf := make([]byte, EmbeddingDim*elementWidth)
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[i*elementWidth:], math.Float32bits(float32(x)))
	}
	return buf, nil
}

func DecodeEmbedding(buf []byte) ([]float64, error) {
	if len(buf) != EmbeddingDim*elementWidth {
		return nil, fmt.Errorf("embedding buffer is %d bytes, want %d", len(buf), EmbeddingDim*elementWidth)
	}
	v := make([]float64, EmbeddingDim)
	for i := range v {
		bits := binary.LittleEndian.Uint32(buf[i*elementWidth:])
		v[i] = float64(math.Float32frombits(bits))
	}
	return v, nil
}

// Normalize scales v to unit L2 norm in place. The embedder does not
// guarantee pre-normalized output; everything entering the store or the
// matcher goes through here so cosine similarity reduces to a dot product.
func Normalize(v []float64) error {
	if len(v) != EmbeddingDim {
		return fmt.Errorf("embedding has %d dims, want %d", len(v), EmbeddingDim)
	}
	norm := floats.Norm(v, 2)
	if norm == 0 {
		return fmt.Errorf("embedding has zero norm")
	}
	floats.Scale(1/norm, v)
	return nil
}
