package discovery

import (
	"context"
	"strings"
	"time"
	"unicode"

	types "github.com/threadline-hq/threadline-backend/internal/domain"
	"github.com/threadline-hq/threadline-backend/internal/platform/logger"
)

const (
	weightIDMatch           = 0.7
	weightURLReference      = 0.6
	weightSharedMetadata    = 0.5
	weightTextSimilarity    = 0.3
	weightActorOverlap      = 0.2
	weightTemporalProximity = 0.1

	textSimilarityFloor = 0.5
	temporalWindow      = 24 * time.Hour
	minExternalIDLen    = 3
)

// checkedMetadataKeys are the metadata fields that count as a shared-context
// signal when both artifacts carry the same non-empty value.
var checkedMetadataKeys = []string{
	"branch", "commit", "commit_sha", "ref",
	"ticket", "ticket_id", "issue_key", "pr_number",
}

// SignalBreakdown is the structured explanation persisted with every link
// and shadow evaluation.
type SignalBreakdown struct {
	IDMatch            bool     `json:"id_match"`
	URLReference       bool     `json:"url_reference"`
	SharedMetadataKeys []string `json:"shared_metadata_keys,omitempty"`
	TextSimilarity     float64  `json:"text_similarity"`
	TextSimilarityUsed bool     `json:"text_similarity_used"`
	ActorOverlap       bool     `json:"actor_overlap"`
	TemporalProximity  bool     `json:"temporal_proximity"`

	DeterministicScore float64 `json:"deterministic_score"`
	SemanticScore      float64 `json:"semantic_score"`
	StructuralScore    float64 `json:"structural_score"`
	MLScore            float64 `json:"ml_score"`
}

// Scorer computes the deterministic signal set. Everything except the text
// similarity lookup is pure; every signal is symmetric in its two arguments.
type Scorer struct {
	similarity TextSimilarityProvider
	log        *logger.Logger
}

func NewScorer(similarity TextSimilarityProvider, baseLog *logger.Logger) *Scorer {
	return &Scorer{similarity: similarity, log: baseLog.With("component", "Scorer")}
}

// Deterministic sums the weighted signals, capped at 1.0.
func (s *Scorer) Deterministic(ctx context.Context, a, b *types.Artifact) (float64, SignalBreakdown) {
	var breakdown SignalBreakdown

	sum := 0.0
	if hasIDMatch(a, b) {
		breakdown.IDMatch = true
		sum += weightIDMatch
	}
	if hasURLReference(a, b) {
		breakdown.URLReference = true
		sum += weightURLReference
	}
	if keys := sharedMetadataKeys(a, b); len(keys) > 0 {
		breakdown.SharedMetadataKeys = keys
		sum += weightSharedMetadata
	}

	sim := s.textSimilarity(ctx, a, b)
	breakdown.TextSimilarity = sim
	if sim > textSimilarityFloor {
		breakdown.TextSimilarityUsed = true
		sum += weightTextSimilarity
	}

	if hasActorOverlap(a, b) {
		breakdown.ActorOverlap = true
		sum += weightActorOverlap
	}
	if hasTemporalProximity(a, b) {
		breakdown.TemporalProximity = true
		sum += weightTemporalProximity
	}

	if sum > 1.0 {
		sum = 1.0
	}
	breakdown.DeterministicScore = sum
	return sum, breakdown
}

// textSimilarity degrades to bag-of-words overlap when the provider fails;
// a provider outage must not fail the discovery run.
func (s *Scorer) textSimilarity(ctx context.Context, a, b *types.Artifact) float64 {
	textA := a.Title + " " + a.Body
	textB := b.Title + " " + b.Body
	if s.similarity != nil {
		sim, err := s.similarity.Similarity(ctx, textA, textB)
		if err == nil {
			return clamp01(sim)
		}
		s.log.Warn("Similarity provider failed, using token overlap", "error", err)
	}
	return TokenOverlap(textA, textB)
}

// hasIDMatch reports whether either artifact's externalId appears as a whole
// word in the other's title or body. IDs shorter than three characters are
// too ambiguous to count.
func hasIDMatch(a, b *types.Artifact) bool {
	return externalIDReferenced(a, b) || externalIDReferenced(b, a)
}

func externalIDReferenced(owner, other *types.Artifact) bool {
	id := strings.TrimSpace(owner.ExternalID)
	if len(id) < minExternalIDLen {
		return false
	}
	return containsWholeWord(other.Title+" "+other.Body, id)
}

func hasURLReference(a, b *types.Artifact) bool {
	return urlReferenced(a, b) || urlReferenced(b, a)
}

func urlReferenced(owner, other *types.Artifact) bool {
	u := strings.TrimSpace(owner.URL)
	if u == "" {
		return false
	}
	return strings.Contains(other.Title, u) || strings.Contains(other.Body, u)
}

func sharedMetadataKeys(a, b *types.Artifact) []string {
	ma := a.MetadataMap()
	mb := b.MetadataMap()
	if len(ma) == 0 || len(mb) == 0 {
		return nil
	}
	var out []string
	for _, key := range checkedMetadataKeys {
		va := strings.TrimSpace(ma[key])
		vb := strings.TrimSpace(mb[key])
		if va != "" && va == vb {
			out = append(out, key)
		}
	}
	return out
}

func hasActorOverlap(a, b *types.Artifact) bool {
	if a.Author != "" && a.Author == b.Author {
		return true
	}
	pa := a.ParticipantList()
	pb := b.ParticipantList()
	if len(pa) == 0 || len(pb) == 0 {
		return false
	}
	seen := make(map[string]struct{}, len(pa))
	for _, p := range pa {
		if p = strings.TrimSpace(p); p != "" {
			seen[strings.ToLower(p)] = struct{}{}
		}
	}
	for _, p := range pb {
		if _, ok := seen[strings.ToLower(strings.TrimSpace(p))]; ok {
			return true
		}
	}
	return false
}

func hasTemporalProximity(a, b *types.Artifact) bool {
	delta := a.OccurredAt.Sub(b.OccurredAt)
	if delta < 0 {
		delta = -delta
	}
	return delta < temporalWindow
}

// containsWholeWord is a case-insensitive substring search that rejects
// matches embedded inside a larger identifier ("JIRA-1234" must not match
// "JIRA-123").
func containsWholeWord(haystack, needle string) bool {
	h := strings.ToLower(haystack)
	n := strings.ToLower(needle)
	if n == "" {
		return false
	}
	for start := 0; ; {
		idx := strings.Index(h[start:], n)
		if idx < 0 {
			return false
		}
		idx += start
		end := idx + len(n)
		leftOK := idx == 0 || !isWordChar(rune(h[idx-1]))
		rightOK := end >= len(h) || !isWordChar(rune(h[end]))
		if leftOK && rightOK {
			return true
		}
		start = idx + 1
		if start >= len(h) {
			return false
		}
	}
}

func isWordChar(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_'
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
