package groups

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/threadline-hq/threadline-backend/internal/domain"
	"github.com/threadline-hq/threadline-backend/internal/pkg/dbctx"
	"github.com/threadline-hq/threadline-backend/internal/platform/logger"
)

type ContextGroupRepo interface {
	Create(dbc dbctx.Context, row *types.ContextGroup) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ContextGroup, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.ContextGroup, error)
	ListByTenant(dbc dbctx.Context, tenantID uuid.UUID, limit int) ([]*types.ContextGroup, error)
	UpdateMetadata(dbc dbctx.Context, id uuid.UUID, coherence float64, topics datatypes.JSON) error
	DeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error
}

type contextGroupRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewContextGroupRepo(db *gorm.DB, baseLog *logger.Logger) ContextGroupRepo {
	return &contextGroupRepo{db: db, log: baseLog.With("repo", "ContextGroupRepo")}
}

func (r *contextGroupRepo) Create(dbc dbctx.Context, row *types.ContextGroup) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(dbc.Ctx).Create(row).Error
}

func (r *contextGroupRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ContextGroup, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out types.ContextGroup
	if err := t.WithContext(dbc.Ctx).Where("id = ?", id).First(&out).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}

func (r *contextGroupRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.ContextGroup, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.ContextGroup
	if len(ids) == 0 {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *contextGroupRepo) ListByTenant(dbc dbctx.Context, tenantID uuid.UUID, limit int) ([]*types.ContextGroup, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	q := t.WithContext(dbc.Ctx).
		Where("tenant_id = ?", tenantID).
		Order("updated_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []*types.ContextGroup
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *contextGroupRepo) UpdateMetadata(dbc dbctx.Context, id uuid.UUID, coherence float64, topics datatypes.JSON) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(dbc.Ctx).
		Model(&types.ContextGroup{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"coherence_score": coherence,
			"topics":          topics,
			"updated_at":      time.Now().UTC(),
		}).Error
}

func (r *contextGroupRepo) DeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(ids) == 0 {
		return nil
	}
	return t.WithContext(dbc.Ctx).
		Where("id IN ?", ids).
		Delete(&types.ContextGroup{}).Error
}
