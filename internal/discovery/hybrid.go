package discovery

import (
	"context"
	"math"
	"strings"

	types "github.com/threadline-hq/threadline-backend/internal/domain"
	"github.com/threadline-hq/threadline-backend/internal/platform/logger"
)

const (
	mlWeightDeterministic = 0.6
	mlWeightSemantic      = 0.3
	mlWeightStructural    = 0.1

	structuralWeightPlatform = 0.4
	structuralWeightType     = 0.3
	structuralWeightTemporal = 0.3

	temporalDecayDays = 7.0
)

// HybridScorer blends the deterministic score with semantic and structural
// similarity into the single learned score. It holds no persistence.
type HybridScorer struct {
	embeddings EmbeddingProvider
	affinity   *AffinityTables
	log        *logger.Logger
}

func NewHybridScorer(embeddings EmbeddingProvider, affinity *AffinityTables, baseLog *logger.Logger) *HybridScorer {
	if affinity == nil {
		affinity = DefaultAffinityTables()
	}
	return &HybridScorer{
		embeddings: embeddings,
		affinity:   affinity,
		log:        baseLog.With("component", "HybridScorer"),
	}
}

// Score fills the semantic/structural/ml fields of the breakdown and returns
// the combined ml score.
func (h *HybridScorer) Score(ctx context.Context, a, b *types.Artifact, breakdown *SignalBreakdown) float64 {
	semantic := h.semanticScore(ctx, a, b)
	structural := h.structuralScore(a, b)

	ml := clamp01(mlWeightDeterministic*breakdown.DeterministicScore +
		mlWeightSemantic*semantic +
		mlWeightStructural*structural)

	breakdown.SemanticScore = semantic
	breakdown.StructuralScore = structural
	breakdown.MLScore = ml
	return ml
}

// semanticScore uses stored embedding vectors when both sides have one and
// degrades to token overlap of the bodies otherwise.
func (h *HybridScorer) semanticScore(ctx context.Context, a, b *types.Artifact) float64 {
	va := a.EmbeddingVector()
	vb := b.EmbeddingVector()
	if len(va) > 0 && len(vb) > 0 {
		return clamp01(CosineSimilarity(va, vb))
	}
	return TokenOverlap(a.Body, b.Body)
}

func (h *HybridScorer) structuralScore(a, b *types.Artifact) float64 {
	platform := h.affinity.PlatformAffinity(a.Platform, b.Platform)
	typ := h.affinity.TypeCompatibility(a.Type, b.Type)

	daysApart := math.Abs(a.OccurredAt.Sub(b.OccurredAt).Hours()) / 24.0
	decay := math.Exp(-daysApart / temporalDecayDays)

	return clamp01(structuralWeightPlatform*platform +
		structuralWeightType*typ +
		structuralWeightTemporal*decay)
}

// CosineSimilarity returns 0 for mismatched or zero-magnitude vectors.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, magA, magB float64
	for i := range a {
		dot += a[i] * b[i]
		magA += a[i] * a[i]
		magB += b[i] * b[i]
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}

// TokenOverlap is a Jaccard similarity over lower-cased word sets, the
// degraded stand-in when embeddings or the similarity provider are missing.
func TokenOverlap(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}
	intersection := 0
	for tok := range setA {
		if _, ok := setB[tok]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func tokenSet(text string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, tok := range Tokenize(text) {
		out[tok] = struct{}{}
	}
	return out
}

// Tokenize lower-cases and splits on anything that is not a letter or digit.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}
