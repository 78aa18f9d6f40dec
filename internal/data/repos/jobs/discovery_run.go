package jobs

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/threadline-hq/threadline-backend/internal/domain"
	"github.com/threadline-hq/threadline-backend/internal/pkg/dbctx"
	"github.com/threadline-hq/threadline-backend/internal/platform/logger"
)

type DiscoveryRunRepo interface {
	// Upsert is keyed by artifact so queue redelivery overwrites the previous
	// attempt instead of accumulating rows.
	Upsert(dbc dbctx.Context, row *types.DiscoveryRun) error
	GetByArtifactID(dbc dbctx.Context, artifactID uuid.UUID) (*types.DiscoveryRun, error)
}

type discoveryRunRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDiscoveryRunRepo(db *gorm.DB, baseLog *logger.Logger) DiscoveryRunRepo {
	return &discoveryRunRepo{db: db, log: baseLog.With("repo", "DiscoveryRunRepo")}
}

func (r *discoveryRunRepo) Upsert(dbc dbctx.Context, row *types.DiscoveryRun) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "artifact_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"status":          row.Status,
				"candidate_count": row.CandidateCount,
				"evaluated_count": row.EvaluatedCount,
				"linked_count":    row.LinkedCount,
				"error":           row.Error,
				"started_at":      row.StartedAt,
				"finished_at":     row.FinishedAt,
				"updated_at":      time.Now().UTC(),
			}),
		}).
		Create(row).Error
}

func (r *discoveryRunRepo) GetByArtifactID(dbc dbctx.Context, artifactID uuid.UUID) (*types.DiscoveryRun, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out types.DiscoveryRun
	if err := t.WithContext(dbc.Ctx).Where("artifact_id = ?", artifactID).First(&out).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}
