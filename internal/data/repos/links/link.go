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

type LinkRepo interface {
	GetByPair(dbc dbctx.Context, sourceID, targetID uuid.UUID) (*types.ArtifactLink, error)
	GetByArtifactID(dbc dbctx.Context, artifactID uuid.UUID) ([]*types.ArtifactLink, error)
	GetAmongArtifactIDs(dbc dbctx.Context, artifactIDs []uuid.UUID) ([]*types.ArtifactLink, error)
	LinkedArtifactIDs(dbc dbctx.Context, artifactID uuid.UUID) ([]uuid.UUID, error)

	// UpsertHigherConfidence writes the link unless a row for the pair already
	// holds an equal or higher confidence. Explicit links always win. Returns
	// whether the write was applied.
	UpsertHigherConfidence(dbc dbctx.Context, row *types.ArtifactLink) (bool, error)
}

type linkRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLinkRepo(db *gorm.DB, baseLog *logger.Logger) LinkRepo {
	return &linkRepo{db: db, log: baseLog.With("repo", "LinkRepo")}
}

func (r *linkRepo) GetByPair(dbc dbctx.Context, sourceID, targetID uuid.UUID) (*types.ArtifactLink, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out types.ArtifactLink
	err := t.WithContext(dbc.Ctx).
		Where("(source_id = ? AND target_id = ?) OR (source_id = ? AND target_id = ?)",
			sourceID, targetID, targetID, sourceID).
		First(&out).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}

func (r *linkRepo) GetByArtifactID(dbc dbctx.Context, artifactID uuid.UUID) ([]*types.ArtifactLink, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.ArtifactLink
	if err := t.WithContext(dbc.Ctx).
		Where("source_id = ? OR target_id = ?", artifactID, artifactID).
		Order("confidence_score DESC, created_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *linkRepo) GetAmongArtifactIDs(dbc dbctx.Context, artifactIDs []uuid.UUID) ([]*types.ArtifactLink, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.ArtifactLink
	if len(artifactIDs) == 0 {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).
		Where("source_id IN ? AND target_id IN ?", artifactIDs, artifactIDs).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *linkRepo) LinkedArtifactIDs(dbc dbctx.Context, artifactID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.GetByArtifactID(dbc, artifactID)
	if err != nil {
		return nil, err
	}
	out := make([]uuid.UUID, 0, len(rows))
	for _, l := range rows {
		if l.SourceID == artifactID {
			out = append(out, l.TargetID)
		} else {
			out = append(out, l.SourceID)
		}
	}
	return out, nil
}

func (r *linkRepo) UpsertHigherConfidence(dbc dbctx.Context, row *types.ArtifactLink) (bool, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	res := t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "source_id"}, {Name: "target_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"confidence_score":  row.ConfidenceScore,
				"relationship_type": row.RelationshipType,
				"discovery_method":  row.DiscoveryMethod,
				"explanation":       row.Explanation,
				"updated_at":        time.Now().UTC(),
			}),
			Where: clause.Where{Exprs: []clause.Expression{
				gorm.Expr("artifact_link.confidence_score < excluded.confidence_score OR excluded.relationship_type = 'explicit'"),
			}},
		}).
		Create(row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
