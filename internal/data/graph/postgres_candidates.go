package graph

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/threadline-hq/threadline-backend/internal/data/repos"
	types "github.com/threadline-hq/threadline-backend/internal/domain"
	"github.com/threadline-hq/threadline-backend/internal/pkg/dbctx"
	"github.com/threadline-hq/threadline-backend/internal/platform/logger"
)

// PostgresArtifactGraph serves the candidate query straight from the
// relational store when no Neo4j mirror is configured. Mirror writes are
// no-ops; the relational store is already authoritative.
type PostgresArtifactGraph struct {
	artifacts repos.ArtifactRepo
	links     repos.LinkRepo
	log       *logger.Logger

	candidateWindow time.Duration
}

func NewPostgresArtifactGraph(artifacts repos.ArtifactRepo, links repos.LinkRepo, baseLog *logger.Logger, candidateWindow time.Duration) *PostgresArtifactGraph {
	if candidateWindow <= 0 {
		candidateWindow = 30 * 24 * time.Hour
	}
	return &PostgresArtifactGraph{
		artifacts:       artifacts,
		links:           links,
		log:             baseLog.With("store", "PostgresArtifactGraph"),
		candidateWindow: candidateWindow,
	}
}

func (g *PostgresArtifactGraph) CandidateIDs(ctx context.Context, artifactID, tenantID uuid.UUID, limit int) ([]uuid.UUID, error) {
	dbc := dbctx.Context{Ctx: ctx}

	linked, err := g.links.LinkedArtifactIDs(dbc, artifactID)
	if err != nil {
		return nil, err
	}
	exclude := append([]uuid.UUID{artifactID}, linked...)

	since := time.Now().UTC().Add(-g.candidateWindow)
	rows, err := g.artifacts.ListRecentByTenant(dbc, tenantID, since, exclude, limit)
	if err != nil {
		return nil, err
	}
	out := make([]uuid.UUID, 0, len(rows))
	for _, a := range rows {
		out = append(out, a.ID)
	}
	return out, nil
}

func (g *PostgresArtifactGraph) MirrorArtifact(ctx context.Context, a *types.Artifact) error { return nil }

func (g *PostgresArtifactGraph) MirrorEdge(ctx context.Context, link *types.ArtifactLink) error {
	return nil
}

func (g *PostgresArtifactGraph) MirrorGroupChange(ctx context.Context, group *types.ContextGroup, memberIDs []uuid.UUID) error {
	return nil
}

func (g *PostgresArtifactGraph) RemoveGroup(ctx context.Context, groupID uuid.UUID) error {
	return nil
}
