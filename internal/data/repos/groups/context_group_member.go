package groups

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/threadline-hq/threadline-backend/internal/domain"
	"github.com/threadline-hq/threadline-backend/internal/pkg/dbctx"
	"github.com/threadline-hq/threadline-backend/internal/platform/logger"
)

type ContextGroupMemberRepo interface {
	CreateIgnoreDuplicates(dbc dbctx.Context, rows []*types.ContextGroupMember) error
	GetByGroupID(dbc dbctx.Context, groupID uuid.UUID) ([]*types.ContextGroupMember, error)
	GetByGroupIDs(dbc dbctx.Context, groupIDs []uuid.UUID) ([]*types.ContextGroupMember, error)
	GetByArtifactIDs(dbc dbctx.Context, artifactIDs []uuid.UUID) ([]*types.ContextGroupMember, error)
	DeleteByGroupIDs(dbc dbctx.Context, groupIDs []uuid.UUID) error
	DeleteByGroupAndArtifacts(dbc dbctx.Context, groupID uuid.UUID, artifactIDs []uuid.UUID) error
	CountByGroupID(dbc dbctx.Context, groupID uuid.UUID) (int64, error)
}

type contextGroupMemberRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewContextGroupMemberRepo(db *gorm.DB, baseLog *logger.Logger) ContextGroupMemberRepo {
	return &contextGroupMemberRepo{db: db, log: baseLog.With("repo", "ContextGroupMemberRepo")}
}

func (r *contextGroupMemberRepo) CreateIgnoreDuplicates(dbc dbctx.Context, rows []*types.ContextGroupMember) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return nil
	}
	return t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "group_id"}, {Name: "artifact_id"}},
			DoNothing: true,
		}).
		Create(&rows).Error
}

func (r *contextGroupMemberRepo) GetByGroupID(dbc dbctx.Context, groupID uuid.UUID) ([]*types.ContextGroupMember, error) {
	return r.GetByGroupIDs(dbc, []uuid.UUID{groupID})
}

func (r *contextGroupMemberRepo) GetByGroupIDs(dbc dbctx.Context, groupIDs []uuid.UUID) ([]*types.ContextGroupMember, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.ContextGroupMember
	if len(groupIDs) == 0 {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).
		Where("group_id IN ?", groupIDs).
		Order("group_id ASC, created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *contextGroupMemberRepo) GetByArtifactIDs(dbc dbctx.Context, artifactIDs []uuid.UUID) ([]*types.ContextGroupMember, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.ContextGroupMember
	if len(artifactIDs) == 0 {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).
		Where("artifact_id IN ?", artifactIDs).
		Order("group_id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *contextGroupMemberRepo) DeleteByGroupIDs(dbc dbctx.Context, groupIDs []uuid.UUID) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(groupIDs) == 0 {
		return nil
	}
	return t.WithContext(dbc.Ctx).
		Where("group_id IN ?", groupIDs).
		Delete(&types.ContextGroupMember{}).Error
}

func (r *contextGroupMemberRepo) DeleteByGroupAndArtifacts(dbc dbctx.Context, groupID uuid.UUID, artifactIDs []uuid.UUID) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(artifactIDs) == 0 {
		return nil
	}
	return t.WithContext(dbc.Ctx).
		Where("group_id = ? AND artifact_id IN ?", groupID, artifactIDs).
		Delete(&types.ContextGroupMember{}).Error
}

func (r *contextGroupMemberRepo) CountByGroupID(dbc dbctx.Context, groupID uuid.UUID) (int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var n int64
	if err := t.WithContext(dbc.Ctx).
		Model(&types.ContextGroupMember{}).
		Where("group_id = ?", groupID).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}
