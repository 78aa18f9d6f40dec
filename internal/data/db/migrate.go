package db

import (
	types "github.com/threadline-hq/threadline-backend/internal/domain"
	"gorm.io/gorm"
)

func (s *PostgresService) AutoMigrateAll() error {
	return AutoMigrate(s.db)
}

func AutoMigrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&types.Artifact{},
		&types.ArtifactLink{},
		&types.ShadowEvaluation{},
		&types.ContextGroup{},
		&types.ContextGroupMember{},
		&types.DiscoveryRun{},
	)
}
