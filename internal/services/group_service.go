package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/threadline-hq/threadline-backend/internal/data/repos"
	types "github.com/threadline-hq/threadline-backend/internal/domain"
	"github.com/threadline-hq/threadline-backend/internal/pkg/dbctx"
	apperrors "github.com/threadline-hq/threadline-backend/internal/pkg/errors"
	"github.com/threadline-hq/threadline-backend/internal/platform/logger"
)

// GroupWithMembers is the read shape for the group API.
type GroupWithMembers struct {
	Group   *types.ContextGroup         `json:"group"`
	Members []*types.ContextGroupMember `json:"members"`
}

// GroupService is read-only; groups are maintained exclusively by the
// discovery side.
type GroupService struct {
	groups  repos.ContextGroupRepo
	members repos.ContextGroupMemberRepo
	log     *logger.Logger
}

func NewGroupService(groups repos.ContextGroupRepo, members repos.ContextGroupMemberRepo, baseLog *logger.Logger) *GroupService {
	return &GroupService{
		groups:  groups,
		members: members,
		log:     baseLog.With("service", "GroupService"),
	}
}

func (s *GroupService) ListGroups(ctx context.Context, tenantID uuid.UUID, limit int) ([]*types.ContextGroup, error) {
	return s.groups.ListByTenant(dbctx.Context{Ctx: ctx}, tenantID, limit)
}

func (s *GroupService) GetGroup(ctx context.Context, tenantID, groupID uuid.UUID) (*GroupWithMembers, error) {
	dbc := dbctx.Context{Ctx: ctx}
	group, err := s.groups.GetByID(dbc, groupID)
	if err != nil {
		return nil, fmt.Errorf("group load: %w", err)
	}
	if group == nil {
		return nil, fmt.Errorf("group %s: %w", groupID, apperrors.ErrNotFound)
	}
	if group.TenantID != tenantID {
		return nil, apperrors.ErrAccessDenied
	}
	members, err := s.members.GetByGroupID(dbc, groupID)
	if err != nil {
		return nil, fmt.Errorf("group member load: %w", err)
	}
	return &GroupWithMembers{Group: group, Members: members}, nil
}
