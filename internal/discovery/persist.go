package discovery

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/threadline-hq/threadline-backend/internal/data/repos"
	types "github.com/threadline-hq/threadline-backend/internal/domain"
	"github.com/threadline-hq/threadline-backend/internal/pkg/dbctx"
	"github.com/threadline-hq/threadline-backend/internal/platform/logger"
)

// LinkWriter persists a decided link. The relational row is authoritative and
// written inside the caller's transaction; mirroring to the graph store is the
// caller's job, after the transaction commits, so an aborted run cannot leave
// a phantom edge that would exclude the pair from future candidate queries.
type LinkWriter struct {
	links repos.LinkRepo
	log   *logger.Logger
}

func NewLinkWriter(links repos.LinkRepo, baseLog *logger.Logger) *LinkWriter {
	return &LinkWriter{
		links: links,
		log:   baseLog.With("component", "LinkWriter"),
	}
}

// Write stores the link in canonical direction. It returns the stored row and
// whether the relational write was applied (false when an existing row already
// held an equal or higher confidence).
func (w *LinkWriter) Write(dbc dbctx.Context, a, b *types.Artifact, d Decision) (*types.ArtifactLink, bool, error) {
	source, target := Canonicalize(a, b)

	explanation, err := json.Marshal(d.Breakdown)
	if err != nil {
		explanation = []byte(`{}`)
	}

	row := &types.ArtifactLink{
		ID:               uuid.New(),
		TenantID:         source.TenantID,
		SourceID:         source.ID,
		TargetID:         target.ID,
		ConfidenceScore:  d.FinalScore,
		RelationshipType: d.RelationshipType,
		DiscoveryMethod:  d.Method,
		Explanation:      datatypes.JSON(explanation),
	}

	applied, err := w.links.UpsertHigherConfidence(dbc, row)
	if err != nil {
		return nil, false, fmt.Errorf("link upsert: %w", err)
	}
	if !applied {
		w.log.Debug("Link kept existing higher-confidence row",
			"source_id", row.SourceID, "target_id", row.TargetID, "score", d.FinalScore)
		return row, false, nil
	}
	return row, true, nil
}

// Canonicalize orders a pair so the earlier artifact is the source. Identical
// timestamps break on ascending id so both orderings of the same pair always
// produce the same row.
func Canonicalize(a, b *types.Artifact) (*types.Artifact, *types.Artifact) {
	if a.OccurredAt.Before(b.OccurredAt) {
		return a, b
	}
	if b.OccurredAt.Before(a.OccurredAt) {
		return b, a
	}
	if bytes.Compare(a.ID[:], b.ID[:]) <= 0 {
		return a, b
	}
	return b, a
}
