package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/threadline-hq/threadline-backend/internal/data/repos"
	"github.com/threadline-hq/threadline-backend/internal/discovery"
	types "github.com/threadline-hq/threadline-backend/internal/domain"
	"github.com/threadline-hq/threadline-backend/internal/pkg/dbctx"
	apperrors "github.com/threadline-hq/threadline-backend/internal/pkg/errors"
	"github.com/threadline-hq/threadline-backend/internal/platform/logger"
)

// DiscoveryEnqueuer schedules the async discovery pass for an artifact. The
// Temporal client implements it; a nil enqueuer means intake-only mode.
type DiscoveryEnqueuer interface {
	EnqueueDiscovery(ctx context.Context, artifactID uuid.UUID) error
}

// ArtifactInput is the ingestion payload. TenantID comes from the caller's
// auth context, never from the payload.
type ArtifactInput struct {
	Platform   string            `json:"platform" binding:"required"`
	ExternalID string            `json:"external_id" binding:"required"`
	Type       string            `json:"type"`
	Title      string            `json:"title"`
	Body       string            `json:"body"`
	URL        string            `json:"url"`
	Author     string            `json:"author"`
	OccurredAt time.Time         `json:"occurred_at"`

	Participants []string          `json:"participants"`
	Metadata     map[string]string `json:"metadata"`
}

// ArtifactIntakeService upserts incoming artifacts, mirrors them into the
// graph store, and schedules discovery. Re-ingesting the same external id
// refreshes content without duplicating the row or its links.
type ArtifactIntakeService struct {
	artifacts repos.ArtifactRepo
	graph     discovery.GraphStore
	enqueuer  DiscoveryEnqueuer
	log       *logger.Logger
}

func NewArtifactIntakeService(
	artifacts repos.ArtifactRepo,
	graph discovery.GraphStore,
	enqueuer DiscoveryEnqueuer,
	baseLog *logger.Logger,
) *ArtifactIntakeService {
	return &ArtifactIntakeService{
		artifacts: artifacts,
		graph:     graph,
		enqueuer:  enqueuer,
		log:       baseLog.With("service", "ArtifactIntakeService"),
	}
}

func (s *ArtifactIntakeService) Ingest(ctx context.Context, tenantID uuid.UUID, input ArtifactInput) (*types.Artifact, error) {
	if tenantID == uuid.Nil {
		return nil, fmt.Errorf("tenant required: %w", apperrors.ErrInvalidArgument)
	}
	if strings.TrimSpace(input.Platform) == "" || strings.TrimSpace(input.ExternalID) == "" {
		return nil, fmt.Errorf("platform and external_id required: %w", apperrors.ErrInvalidArgument)
	}

	occurredAt := input.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}
	artifactType := strings.TrimSpace(input.Type)
	if artifactType == "" {
		artifactType = "unknown"
	}

	row := &types.Artifact{
		ID:           uuid.New(),
		TenantID:     tenantID,
		Platform:     strings.ToLower(strings.TrimSpace(input.Platform)),
		ExternalID:   strings.TrimSpace(input.ExternalID),
		Type:         strings.ToLower(artifactType),
		Title:        input.Title,
		Body:         input.Body,
		URL:          strings.TrimSpace(input.URL),
		Author:       strings.TrimSpace(input.Author),
		OccurredAt:   occurredAt.UTC(),
		Participants: marshalList(input.Participants),
		Metadata:     marshalMap(input.Metadata),
	}

	dbc := dbctx.Context{Ctx: ctx}
	if err := s.artifacts.UpsertByExternalID(dbc, row); err != nil {
		return nil, fmt.Errorf("artifact upsert: %w", err)
	}

	// The upsert may have resolved to a pre-existing row; reload so callers
	// and the graph mirror see the stored id.
	stored, err := s.artifacts.GetByExternalID(dbc, tenantID, row.Platform, row.ExternalID)
	if err != nil {
		return nil, fmt.Errorf("artifact reload: %w", err)
	}
	if stored == nil {
		stored = row
	}

	if err := s.graph.MirrorArtifact(ctx, stored); err != nil {
		s.log.Warn("Graph artifact mirror failed at intake", "artifact_id", stored.ID, "error", err)
	}

	if s.enqueuer != nil {
		if err := s.enqueuer.EnqueueDiscovery(ctx, stored.ID); err != nil {
			s.log.Warn("Discovery enqueue failed, artifact stored without a run",
				"artifact_id", stored.ID, "error", err)
		}
	}
	return stored, nil
}

func marshalList(values []string) datatypes.JSON {
	if len(values) == 0 {
		return datatypes.JSON([]byte(`[]`))
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return datatypes.JSON([]byte(`[]`))
	}
	return datatypes.JSON(raw)
}

func marshalMap(values map[string]string) datatypes.JSON {
	if len(values) == 0 {
		return datatypes.JSON([]byte(`{}`))
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return datatypes.JSON([]byte(`{}`))
	}
	return datatypes.JSON(raw)
}
