package discovery

import (
	"context"
	"time"

	"github.com/google/uuid"

	types "github.com/threadline-hq/threadline-backend/internal/domain"
)

// GraphStore is the fast-lookup mirror of the relational graph. It is never
// authoritative: on disagreement the relational store wins, and every Mirror*
// call is best-effort from the caller's point of view.
type GraphStore interface {
	CandidateIDs(ctx context.Context, artifactID, tenantID uuid.UUID, limit int) ([]uuid.UUID, error)
	MirrorArtifact(ctx context.Context, a *types.Artifact) error
	MirrorEdge(ctx context.Context, link *types.ArtifactLink) error
	MirrorGroupChange(ctx context.Context, group *types.ContextGroup, memberIDs []uuid.UUID) error
	RemoveGroup(ctx context.Context, groupID uuid.UUID) error
}

// LockCoordinator must run fn even when the lease cannot be granted; the
// degraded path is logged by the implementation.
type LockCoordinator interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(ctx context.Context) error) error
}

// EmbeddingProvider computes a text embedding. A (nil, nil) return means the
// provider is unavailable and callers should fall back.
type EmbeddingProvider interface {
	VectorFor(ctx context.Context, text string) ([]float64, error)
}

// TextSimilarityProvider scores two texts in [0,1].
type TextSimilarityProvider interface {
	Similarity(ctx context.Context, a, b string) (float64, error)
}
