package links

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

type ShadowEvaluationRepo interface {
	// Upsert keeps the most recent scores for the pair (latest wins). Callers
	// store pairs in canonical order; GetByPair matches either order.
	Upsert(dbc dbctx.Context, row *types.ShadowEvaluation) error
	GetByPair(dbc dbctx.Context, artifactID, candidateID uuid.UUID) (*types.ShadowEvaluation, error)
	GetByArtifactID(dbc dbctx.Context, artifactID uuid.UUID) ([]*types.ShadowEvaluation, error)
}

type shadowEvaluationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewShadowEvaluationRepo(db *gorm.DB, baseLog *logger.Logger) ShadowEvaluationRepo {
	return &shadowEvaluationRepo{db: db, log: baseLog.With("repo", "ShadowEvaluationRepo")}
}

func (r *shadowEvaluationRepo) Upsert(dbc dbctx.Context, row *types.ShadowEvaluation) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "artifact_id"}, {Name: "candidate_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"deterministic_score": row.DeterministicScore,
				"semantic_score":      row.SemanticScore,
				"structural_score":    row.StructuralScore,
				"ml_score":            row.MLScore,
				"would_link":          row.WouldLink,
				"breakdown":           row.Breakdown,
				"updated_at":          time.Now().UTC(),
			}),
		}).
		Create(row).Error
}

func (r *shadowEvaluationRepo) GetByPair(dbc dbctx.Context, artifactID, candidateID uuid.UUID) (*types.ShadowEvaluation, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out types.ShadowEvaluation
	err := t.WithContext(dbc.Ctx).
		Where("(artifact_id = ? AND candidate_id = ?) OR (artifact_id = ? AND candidate_id = ?)",
			artifactID, candidateID, candidateID, artifactID).
		First(&out).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}

func (r *shadowEvaluationRepo) GetByArtifactID(dbc dbctx.Context, artifactID uuid.UUID) ([]*types.ShadowEvaluation, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.ShadowEvaluation
	if err := t.WithContext(dbc.Ctx).
		Where("artifact_id = ?", artifactID).
		Order("updated_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
