package discovery

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/threadline-hq/threadline-backend/internal/data/repos"
	types "github.com/threadline-hq/threadline-backend/internal/domain"
	"github.com/threadline-hq/threadline-backend/internal/pkg/dbctx"
	"github.com/threadline-hq/threadline-backend/internal/platform/logger"
)

// CandidateLocator asks the graph store for plausible relation candidates and
// hydrates them from the relational store, which owns content, metadata, and
// embeddings.
type CandidateLocator struct {
	graph     GraphStore
	artifacts repos.ArtifactRepo
	log       *logger.Logger
}

func NewCandidateLocator(graph GraphStore, artifacts repos.ArtifactRepo, baseLog *logger.Logger) *CandidateLocator {
	return &CandidateLocator{
		graph:     graph,
		artifacts: artifacts,
		log:       baseLog.With("component", "CandidateLocator"),
	}
}

// Locate returns the hydrated candidate list in graph-store order (newest
// first). Ids the relational store no longer knows are skipped, and an empty
// result is not an error.
func (l *CandidateLocator) Locate(dbc dbctx.Context, artifact *types.Artifact, limit int) ([]*types.Artifact, error) {
	ids, err := l.graph.CandidateIDs(dbc.Ctx, artifact.ID, artifact.TenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("candidate lookup: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := l.artifacts.GetByIDs(dbc, ids)
	if err != nil {
		return nil, fmt.Errorf("candidate hydration: %w", err)
	}

	byID := make(map[uuid.UUID]*types.Artifact, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}

	out := make([]*types.Artifact, 0, len(ids))
	for _, id := range ids {
		row, ok := byID[id]
		if !ok {
			l.log.Warn("Candidate missing at hydration, skipping", "candidate_id", id)
			continue
		}
		out = append(out, row)
	}
	return out, nil
}
