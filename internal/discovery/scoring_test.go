package discovery

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	types "github.com/threadline-hq/threadline-backend/internal/domain"
	"github.com/threadline-hq/threadline-backend/internal/platform/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

type artifactOpt func(*types.Artifact)

func withPlatform(p string) artifactOpt  { return func(a *types.Artifact) { a.Platform = p } }
func withType(tp string) artifactOpt     { return func(a *types.Artifact) { a.Type = tp } }
func withExternalID(id string) artifactOpt {
	return func(a *types.Artifact) { a.ExternalID = id }
}
func withTitle(s string) artifactOpt  { return func(a *types.Artifact) { a.Title = s } }
func withBody(s string) artifactOpt   { return func(a *types.Artifact) { a.Body = s } }
func withURL(u string) artifactOpt    { return func(a *types.Artifact) { a.URL = u } }
func withAuthor(s string) artifactOpt { return func(a *types.Artifact) { a.Author = s } }
func withOccurredAt(ts time.Time) artifactOpt {
	return func(a *types.Artifact) { a.OccurredAt = ts }
}
func withMetadata(m string) artifactOpt {
	return func(a *types.Artifact) { a.Metadata = datatypes.JSON([]byte(m)) }
}
func withParticipants(p string) artifactOpt {
	return func(a *types.Artifact) { a.Participants = datatypes.JSON([]byte(p)) }
}
func withEmbedding(e string) artifactOpt {
	return func(a *types.Artifact) { a.Embedding = datatypes.JSON([]byte(e)) }
}

func newArtifact(opts ...artifactOpt) *types.Artifact {
	a := &types.Artifact{
		ID:           uuid.New(),
		TenantID:     uuid.New(),
		Platform:     "jira",
		ExternalID:   "EXT-1",
		Type:         "issue",
		OccurredAt:   time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
		Participants: datatypes.JSON([]byte(`[]`)),
		Metadata:     datatypes.JSON([]byte(`{}`)),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type fixedSimilarity struct{ score float64 }

func (f fixedSimilarity) Similarity(context.Context, string, string) (float64, error) {
	return f.score, nil
}

type failingSimilarity struct{}

func (failingSimilarity) Similarity(context.Context, string, string) (float64, error) {
	return 0, errors.New("provider down")
}

func TestDeterministicCommitReferencingIssue(t *testing.T) {
	t.Parallel()
	scorer := NewScorer(fixedSimilarity{0.1}, testLogger(t))

	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	issue := newArtifact(
		withPlatform("jira"), withType("issue"), withExternalID("PROJ-1234"),
		withTitle("Fix login redirect"), withAuthor("alice"),
		withMetadata(`{"branch":"fix/login"}`),
		withOccurredAt(base),
	)
	commit := newArtifact(
		withPlatform("github"), withType("commit"), withExternalID("abc123def"),
		withTitle("PROJ-1234: correct redirect target"), withAuthor("alice"),
		withMetadata(`{"branch":"fix/login"}`),
		withOccurredAt(base.Add(2*time.Hour)),
	)

	score, breakdown := scorer.Deterministic(context.Background(), commit, issue)
	if !breakdown.IDMatch {
		t.Fatal("expected id match")
	}
	if len(breakdown.SharedMetadataKeys) != 1 || breakdown.SharedMetadataKeys[0] != "branch" {
		t.Fatalf("unexpected shared metadata keys: %v", breakdown.SharedMetadataKeys)
	}
	if !breakdown.ActorOverlap || !breakdown.TemporalProximity {
		t.Fatalf("expected actor and temporal signals: %+v", breakdown)
	}
	// 0.7 + 0.5 + 0.2 + 0.1 caps at 1.0.
	if score != 1.0 {
		t.Fatalf("score: got=%v want=1.0", score)
	}
}

func TestDeterministicUnrelatedMessagesStayLow(t *testing.T) {
	t.Parallel()
	scorer := NewScorer(fixedSimilarity{0.1}, testLogger(t))

	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	a := newArtifact(
		withPlatform("slack"), withType("message"), withExternalID("msg-100"),
		withBody("lunch orders for friday"), withAuthor("bob"),
		withOccurredAt(base),
	)
	b := newArtifact(
		withPlatform("slack"), withType("message"), withExternalID("msg-101"),
		withBody("deploy window moved to monday"), withAuthor("carol"),
		withOccurredAt(base.Add(10*time.Minute)),
	)

	score, breakdown := scorer.Deterministic(context.Background(), a, b)
	// Only temporal proximity fires.
	if score != weightTemporalProximity {
		t.Fatalf("score: got=%v want=%v (breakdown=%+v)", score, weightTemporalProximity, breakdown)
	}
}

func TestDeterministicSymmetric(t *testing.T) {
	t.Parallel()
	scorer := NewScorer(fixedSimilarity{0.8}, testLogger(t))
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	pairs := [][2]*types.Artifact{
		{
			newArtifact(withExternalID("PROJ-7"), withBody("see PROJ-8"), withOccurredAt(base)),
			newArtifact(withExternalID("PROJ-8"), withBody("related work"), withOccurredAt(base.Add(40*time.Hour))),
		},
		{
			newArtifact(withURL("https://github.com/org/repo/pull/12"), withOccurredAt(base)),
			newArtifact(withBody("merged https://github.com/org/repo/pull/12 earlier"), withOccurredAt(base.Add(time.Hour))),
		},
		{
			newArtifact(withAuthor("dana"), withMetadata(`{"ticket":"T-9"}`), withOccurredAt(base)),
			newArtifact(withAuthor("dana"), withMetadata(`{"ticket":"T-9"}`), withOccurredAt(base.Add(30*time.Hour))),
		},
	}
	for i, pair := range pairs {
		ab, _ := scorer.Deterministic(context.Background(), pair[0], pair[1])
		ba, _ := scorer.Deterministic(context.Background(), pair[1], pair[0])
		if ab != ba {
			t.Fatalf("pair %d asymmetric: ab=%v ba=%v", i, ab, ba)
		}
		if ab < 0 || ab > 1 {
			t.Fatalf("pair %d out of range: %v", i, ab)
		}
	}
}

func TestIDMatchRequiresWholeWord(t *testing.T) {
	t.Parallel()
	a := newArtifact(withExternalID("JIRA-123"))
	b := newArtifact(withBody("follow-up for JIRA-1234 only"))
	if hasIDMatch(a, b) {
		t.Fatal("JIRA-123 must not match inside JIRA-1234")
	}

	c := newArtifact(withBody("closes JIRA-123."))
	if !hasIDMatch(a, c) {
		t.Fatal("expected whole-word match with trailing punctuation")
	}
}

func TestIDMatchIgnoresShortIDs(t *testing.T) {
	t.Parallel()
	a := newArtifact(withExternalID("42"))
	b := newArtifact(withBody("the answer is 42"))
	if hasIDMatch(a, b) {
		t.Fatal("two-character ids are too ambiguous to count")
	}
}

func TestTextSimilaritySignalNeedsStrictMajority(t *testing.T) {
	t.Parallel()
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	a := newArtifact(withOccurredAt(base))
	b := newArtifact(withExternalID("EXT-2"), withOccurredAt(base.Add(48*time.Hour)))

	// Exactly at the floor: signal must NOT fire.
	scorer := NewScorer(fixedSimilarity{0.5}, testLogger(t))
	score, breakdown := scorer.Deterministic(context.Background(), a, b)
	if breakdown.TextSimilarityUsed || score != 0 {
		t.Fatalf("0.5 similarity must not count: score=%v breakdown=%+v", score, breakdown)
	}

	scorer = NewScorer(fixedSimilarity{0.51}, testLogger(t))
	score, breakdown = scorer.Deterministic(context.Background(), a, b)
	if !breakdown.TextSimilarityUsed || math.Abs(score-weightTextSimilarity) > 1e-9 {
		t.Fatalf("0.51 similarity must count: score=%v", score)
	}
}

func TestTextSimilarityProviderFailureDegrades(t *testing.T) {
	t.Parallel()
	scorer := NewScorer(failingSimilarity{}, testLogger(t))
	a := newArtifact(withBody("rollout plan for search index"))
	b := newArtifact(withExternalID("EXT-2"), withBody("rollout plan for search index"))

	_, breakdown := scorer.Deterministic(context.Background(), a, b)
	if breakdown.TextSimilarity == 0 {
		t.Fatal("expected token-overlap fallback to produce a nonzero similarity")
	}
}

func TestTemporalProximityBoundary(t *testing.T) {
	t.Parallel()
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	a := newArtifact(withOccurredAt(base))

	within := newArtifact(withOccurredAt(base.Add(temporalWindow - time.Second)))
	if !hasTemporalProximity(a, within) {
		t.Fatal("just under the window should count")
	}
	at := newArtifact(withOccurredAt(base.Add(temporalWindow)))
	if hasTemporalProximity(a, at) {
		t.Fatal("exactly the window must not count")
	}
}

func TestSharedMetadataKeysChecksOnlyKnownKeys(t *testing.T) {
	t.Parallel()
	a := newArtifact(withMetadata(`{"branch":"main","color":"red"}`))
	b := newArtifact(withMetadata(`{"branch":"main","color":"red"}`))
	keys := sharedMetadataKeys(a, b)
	if len(keys) != 1 || keys[0] != "branch" {
		t.Fatalf("only enumerated keys count: got=%v", keys)
	}
}

func TestActorOverlapThroughParticipants(t *testing.T) {
	t.Parallel()
	a := newArtifact(withAuthor("alice"), withParticipants(`["Bob","carol"]`))
	b := newArtifact(withAuthor("dave"), withParticipants(`["bob"]`))
	if !hasActorOverlap(a, b) {
		t.Fatal("participant overlap is case-insensitive")
	}

	c := newArtifact(withAuthor("erin"), withParticipants(`["frank"]`))
	if hasActorOverlap(a, c) {
		t.Fatal("no shared actor expected")
	}
}
