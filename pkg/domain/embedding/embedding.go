package embedding

import (
	"errors"
	"math"
	"time"
)

var ErrProviderNonOKResponse = errors.New("embedding provider returned non-OK response")

type Embedding struct {
	Value     []float64 `json:"value"`
	CreatedAt time.Time `json:"created_at"`
}

// Normalize scales v to unit length in place. Zero vectors are left alone.
func Normalize(v []float64) {
	var sumSquares float64
	for _, val := range v {
		sumSquares += val * val
	}

	norm := math.Sqrt(sumSquares)
	if norm == 0 {
		return
	}

	for i := range v {
		v[i] /= norm
	}
}

// CosineSimilarity returns the cosine of the angle between a and b, 0 when
// either vector is empty, zero-length or the dimensions disagree.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var (
		dot   float64
		normA float64
		normB float64
	)
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
