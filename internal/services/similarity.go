package services

import (
	"context"
	"math"

	"github.com/threadline-hq/threadline-backend/internal/discovery"
)

// TFIDFSimilarity scores two texts by cosine over their term-frequency
// vectors, with a log dampening on counts so one repeated token cannot
// dominate. It needs no corpus state, so scores are stable across runs.
type TFIDFSimilarity struct{}

func NewTFIDFSimilarity() *TFIDFSimilarity { return &TFIDFSimilarity{} }

func (s *TFIDFSimilarity) Similarity(_ context.Context, a, b string) (float64, error) {
	va := termWeights(a)
	vb := termWeights(b)
	if len(va) == 0 || len(vb) == 0 {
		return 0, nil
	}

	var dot, magA, magB float64
	for term, wa := range va {
		magA += wa * wa
		if wb, ok := vb[term]; ok {
			dot += wa * wb
		}
	}
	for _, wb := range vb {
		magB += wb * wb
	}
	if magA == 0 || magB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB)), nil
}

func termWeights(text string) map[string]float64 {
	counts := make(map[string]int)
	for _, tok := range discovery.Tokenize(text) {
		counts[tok]++
	}
	out := make(map[string]float64, len(counts))
	for term, n := range counts {
		out[term] = 1 + math.Log(float64(n))
	}
	return out
}
