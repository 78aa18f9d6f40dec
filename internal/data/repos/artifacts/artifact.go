package artifacts

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/threadline-hq/threadline-backend/internal/domain"
	"github.com/threadline-hq/threadline-backend/internal/pkg/dbctx"
	"github.com/threadline-hq/threadline-backend/internal/platform/logger"
)

type ArtifactRepo interface {
	UpsertByExternalID(dbc dbctx.Context, row *types.Artifact) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Artifact, error)
	GetByExternalID(dbc dbctx.Context, tenantID uuid.UUID, platform, externalID string) (*types.Artifact, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Artifact, error)
	ListRecentByTenant(dbc dbctx.Context, tenantID uuid.UUID, since time.Time, excludeIDs []uuid.UUID, limit int) ([]*types.Artifact, error)
	UpdateEmbedding(dbc dbctx.Context, id uuid.UUID, embedding datatypes.JSON) error
}

type artifactRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewArtifactRepo(db *gorm.DB, baseLog *logger.Logger) ArtifactRepo {
	return &artifactRepo{db: db, log: baseLog.With("repo", "ArtifactRepo")}
}

func (r *artifactRepo) UpsertByExternalID(dbc dbctx.Context, row *types.Artifact) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "tenant_id"}, {Name: "platform"}, {Name: "external_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"type":         row.Type,
				"title":        row.Title,
				"body":         row.Body,
				"url":          row.URL,
				"author":       row.Author,
				"occurred_at":  row.OccurredAt,
				"participants": row.Participants,
				"metadata":     row.Metadata,
				"updated_at":   time.Now().UTC(),
			}),
		}).
		Create(row).Error
}

func (r *artifactRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Artifact, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out types.Artifact
	if err := t.WithContext(dbc.Ctx).Where("id = ?", id).First(&out).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}

func (r *artifactRepo) GetByExternalID(dbc dbctx.Context, tenantID uuid.UUID, platform, externalID string) (*types.Artifact, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out types.Artifact
	err := t.WithContext(dbc.Ctx).
		Where("tenant_id = ? AND platform = ? AND external_id = ?", tenantID, platform, externalID).
		First(&out).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}

func (r *artifactRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Artifact, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.Artifact
	if len(ids) == 0 {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *artifactRepo) ListRecentByTenant(dbc dbctx.Context, tenantID uuid.UUID, since time.Time, excludeIDs []uuid.UUID, limit int) ([]*types.Artifact, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	q := t.WithContext(dbc.Ctx).
		Where("tenant_id = ? AND occurred_at >= ?", tenantID, since).
		Order("occurred_at DESC")
	if len(excludeIDs) > 0 {
		q = q.Where("id NOT IN ?", excludeIDs)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []*types.Artifact
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *artifactRepo) UpdateEmbedding(dbc dbctx.Context, id uuid.UUID, embedding datatypes.JSON) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(dbc.Ctx).
		Model(&types.Artifact{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"embedding": embedding, "updated_at": time.Now().UTC()}).Error
}
