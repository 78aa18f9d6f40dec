package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/threadline-hq/threadline-backend/internal/data/db"
	"github.com/threadline-hq/threadline-backend/internal/data/repos"
	"github.com/threadline-hq/threadline-backend/internal/discovery"
	types "github.com/threadline-hq/threadline-backend/internal/domain"
	"github.com/threadline-hq/threadline-backend/internal/pkg/dbctx"
	apperrors "github.com/threadline-hq/threadline-backend/internal/pkg/errors"
	"github.com/threadline-hq/threadline-backend/internal/platform/logger"
)

// LinkService handles user-asserted links and link reads. A manual link is
// ground truth: confidence 1.0, type explicit, and it always overrides
// whatever discovery previously stored for the pair.
type LinkService struct {
	cfg        discovery.Config
	gdb        *gorm.DB
	artifacts  repos.ArtifactRepo
	links      repos.LinkRepo
	graph      discovery.GraphStore
	maintainer *discovery.Maintainer
	log        *logger.Logger
}

func NewLinkService(
	cfg discovery.Config,
	gdb *gorm.DB,
	artifacts repos.ArtifactRepo,
	links repos.LinkRepo,
	groups repos.ContextGroupRepo,
	members repos.ContextGroupMemberRepo,
	graph discovery.GraphStore,
	baseLog *logger.Logger,
) *LinkService {
	return &LinkService{
		cfg:        cfg,
		gdb:        gdb,
		artifacts:  artifacts,
		links:      links,
		graph:      graph,
		maintainer: discovery.NewMaintainer(cfg, groups, members, links, artifacts, graph, baseLog),
		log:        baseLog.With("service", "LinkService"),
	}
}

// CreateManualLink links two artifacts of the caller's tenant. Both sides
// must exist and belong to the tenant; cross-tenant pairs are rejected as
// access denials, not validation errors, so they surface the same as a
// missing resource would.
func (s *LinkService) CreateManualLink(ctx context.Context, tenantID, sourceID, targetID uuid.UUID) (*types.ArtifactLink, error) {
	if sourceID == targetID {
		return nil, fmt.Errorf("cannot link an artifact to itself: %w", apperrors.ErrInvalidArgument)
	}

	var out *types.ArtifactLink
	err := db.RunSerializable(ctx, s.gdb, db.TxOptions{MaxWait: s.cfg.TxMaxWait, Timeout: s.cfg.TxTimeout}, func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}

		rows, err := s.artifacts.GetByIDs(dbc, []uuid.UUID{sourceID, targetID})
		if err != nil {
			return fmt.Errorf("artifact load: %w", err)
		}
		byID := make(map[uuid.UUID]*types.Artifact, len(rows))
		for _, row := range rows {
			byID[row.ID] = row
		}
		a, okA := byID[sourceID]
		b, okB := byID[targetID]
		if !okA || !okB {
			return fmt.Errorf("artifact pair: %w", apperrors.ErrNotFound)
		}
		if a.TenantID != tenantID || b.TenantID != tenantID {
			return apperrors.ErrAccessDenied
		}

		source, target := discovery.Canonicalize(a, b)
		explanation, _ := json.Marshal(map[string]string{"source": "manual"})
		row := &types.ArtifactLink{
			ID:               uuid.New(),
			TenantID:         tenantID,
			SourceID:         source.ID,
			TargetID:         target.ID,
			ConfidenceScore:  1.0,
			RelationshipType: types.RelationshipExplicit,
			DiscoveryMethod:  types.MethodManual,
			Explanation:      datatypes.JSON(explanation),
		}
		if _, err := s.links.UpsertHigherConfidence(dbc, row); err != nil {
			return fmt.Errorf("manual link upsert: %w", err)
		}
		if err := s.maintainer.OnLink(dbc, a, b); err != nil {
			return err
		}
		out = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	// Mirror only after the transaction commits; a rolled-back link must not
	// leave a phantom edge in the graph store.
	if err := s.graph.MirrorEdge(ctx, out); err != nil {
		s.log.Warn("Graph edge mirror failed for manual link",
			"source_id", out.SourceID, "target_id", out.TargetID, "error", err)
	}
	return out, nil
}

// ListLinks returns all links touching the artifact, ordered by confidence.
func (s *LinkService) ListLinks(ctx context.Context, tenantID, artifactID uuid.UUID) ([]*types.ArtifactLink, error) {
	dbc := dbctx.Context{Ctx: ctx}
	artifact, err := s.artifacts.GetByID(dbc, artifactID)
	if err != nil {
		return nil, fmt.Errorf("artifact load: %w", err)
	}
	if artifact == nil {
		return nil, fmt.Errorf("artifact %s: %w", artifactID, apperrors.ErrNotFound)
	}
	if artifact.TenantID != tenantID {
		return nil, apperrors.ErrAccessDenied
	}
	return s.links.GetByArtifactID(dbc, artifactID)
}
