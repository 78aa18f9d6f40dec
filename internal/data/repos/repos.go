package repos

import (
	"gorm.io/gorm"

	"github.com/threadline-hq/threadline-backend/internal/data/repos/artifacts"
	"github.com/threadline-hq/threadline-backend/internal/data/repos/groups"
	"github.com/threadline-hq/threadline-backend/internal/data/repos/jobs"
	"github.com/threadline-hq/threadline-backend/internal/data/repos/links"
	"github.com/threadline-hq/threadline-backend/internal/platform/logger"
)

type ArtifactRepo = artifacts.ArtifactRepo
type LinkRepo = links.LinkRepo
type ShadowEvaluationRepo = links.ShadowEvaluationRepo
type ContextGroupRepo = groups.ContextGroupRepo
type ContextGroupMemberRepo = groups.ContextGroupMemberRepo
type DiscoveryRunRepo = jobs.DiscoveryRunRepo

func NewArtifactRepo(db *gorm.DB, baseLog *logger.Logger) ArtifactRepo {
	return artifacts.NewArtifactRepo(db, baseLog)
}
func NewLinkRepo(db *gorm.DB, baseLog *logger.Logger) LinkRepo {
	return links.NewLinkRepo(db, baseLog)
}
func NewShadowEvaluationRepo(db *gorm.DB, baseLog *logger.Logger) ShadowEvaluationRepo {
	return links.NewShadowEvaluationRepo(db, baseLog)
}
func NewContextGroupRepo(db *gorm.DB, baseLog *logger.Logger) ContextGroupRepo {
	return groups.NewContextGroupRepo(db, baseLog)
}
func NewContextGroupMemberRepo(db *gorm.DB, baseLog *logger.Logger) ContextGroupMemberRepo {
	return groups.NewContextGroupMemberRepo(db, baseLog)
}
func NewDiscoveryRunRepo(db *gorm.DB, baseLog *logger.Logger) DiscoveryRunRepo {
	return jobs.NewDiscoveryRunRepo(db, baseLog)
}
