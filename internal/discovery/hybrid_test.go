package discovery

import (
	"context"
	"math"
	"testing"
	"time"
)

func TestHybridScoreBlendsComponents(t *testing.T) {
	t.Parallel()
	h := NewHybridScorer(nil, DefaultAffinityTables(), testLogger(t))

	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	a := newArtifact(
		withPlatform("jira"), withType("issue"),
		withEmbedding(`[1,0,0]`), withOccurredAt(base),
	)
	b := newArtifact(
		withPlatform("jira"), withType("issue"), withExternalID("EXT-2"),
		withEmbedding(`[1,0,0]`), withOccurredAt(base),
	)

	breakdown := SignalBreakdown{DeterministicScore: 0.5}
	ml := h.Score(context.Background(), a, b, &breakdown)

	// semantic = 1 (identical embeddings); structural = 0.4*0.6 + 0.3*0.7 + 0.3*1.
	wantStructural := 0.4*0.6 + 0.3*0.7 + 0.3*1.0
	if math.Abs(breakdown.StructuralScore-wantStructural) > 1e-9 {
		t.Fatalf("structural: got=%v want=%v", breakdown.StructuralScore, wantStructural)
	}
	want := 0.6*0.5 + 0.3*1.0 + 0.1*wantStructural
	if math.Abs(ml-want) > 1e-9 {
		t.Fatalf("ml: got=%v want=%v", ml, want)
	}
	if breakdown.MLScore != ml {
		t.Fatalf("breakdown not filled: %+v", breakdown)
	}
}

func TestHybridSemanticFallsBackToTokenOverlap(t *testing.T) {
	t.Parallel()
	h := NewHybridScorer(nil, nil, testLogger(t))

	a := newArtifact(withBody("database migration plan"))
	b := newArtifact(withExternalID("EXT-2"), withBody("database migration plan"))

	breakdown := SignalBreakdown{}
	h.Score(context.Background(), a, b, &breakdown)
	if breakdown.SemanticScore != 1.0 {
		t.Fatalf("identical bodies via token overlap: got=%v want=1.0", breakdown.SemanticScore)
	}
}

func TestStructuralTemporalDecay(t *testing.T) {
	t.Parallel()
	h := NewHybridScorer(nil, DefaultAffinityTables(), testLogger(t))

	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	a := newArtifact(withOccurredAt(base))
	near := newArtifact(withExternalID("EXT-2"), withOccurredAt(base.Add(24*time.Hour)))
	far := newArtifact(withExternalID("EXT-3"), withOccurredAt(base.Add(70*24*time.Hour)))

	if h.structuralScore(a, near) <= h.structuralScore(a, far) {
		t.Fatal("closer artifacts must score structurally higher")
	}

	wantDecay := math.Exp(-1.0 / temporalDecayDays)
	got := h.structuralScore(a, near) - 0.4*0.6 - 0.3*0.7
	if math.Abs(got-0.3*wantDecay) > 1e-9 {
		t.Fatalf("decay term: got=%v want=%v", got, 0.3*wantDecay)
	}
}

func TestCosineSimilarity(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		a, b []float64
		want float64
	}{
		{"identical", []float64{1, 2, 3}, []float64{1, 2, 3}, 1},
		{"orthogonal", []float64{1, 0}, []float64{0, 1}, 0},
		{"mismatched length", []float64{1, 2}, []float64{1}, 0},
		{"zero magnitude", []float64{0, 0}, []float64{1, 1}, 0},
		{"empty", nil, nil, 0},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := CosineSimilarity(tc.a, tc.b); math.Abs(got-tc.want) > 1e-9 {
				t.Fatalf("got=%v want=%v", got, tc.want)
			}
		})
	}
}

func TestTokenOverlap(t *testing.T) {
	t.Parallel()
	if got := TokenOverlap("alpha beta", "beta gamma"); math.Abs(got-1.0/3.0) > 1e-9 {
		t.Fatalf("jaccard: got=%v want=1/3", got)
	}
	if got := TokenOverlap("", "anything"); got != 0 {
		t.Fatalf("empty side: got=%v want=0", got)
	}
	if got := TokenOverlap("Deploy NOW", "deploy now"); got != 1 {
		t.Fatalf("case-insensitive: got=%v want=1", got)
	}
}

func TestTokenize(t *testing.T) {
	t.Parallel()
	got := Tokenize("Fix: PROJ-1234, re-deploy v2!")
	want := []string{"fix", "proj", "1234", "re", "deploy", "v2"}
	if len(got) != len(want) {
		t.Fatalf("token count: got=%v want=%v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("token %d: got=%q want=%q", i, got[i], want[i])
		}
	}
}
