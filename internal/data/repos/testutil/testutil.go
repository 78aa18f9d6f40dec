package testutil

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/threadline-hq/threadline-backend/internal/data/db"
	types "github.com/threadline-hq/threadline-backend/internal/domain"
	"github.com/threadline-hq/threadline-backend/internal/platform/logger"
)

var errMissingDSN = errors.New("missing TEST_POSTGRES_DSN")

var (
	dbOnce sync.Once
	gdb    *gorm.DB
	dbErr  error

	logOnce sync.Once
	logg    *logger.Logger
	logErr  error
)

func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	logOnce.Do(func() {
		logg, logErr = logger.New("test")
	})
	if logErr != nil {
		tb.Fatalf("failed to init logger: %v", logErr)
	}
	return logg
}

func DB(tb testing.TB) *gorm.DB {
	tb.Helper()

	dbOnce.Do(func() {
		dsn := os.Getenv("TEST_POSTGRES_DSN")
		if dsn == "" {
			dbErr = errMissingDSN
			return
		}

		var err error
		gdb, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
			DisableForeignKeyConstraintWhenMigrating: true,
			Logger:                                   gormLogger.Default.LogMode(gormLogger.Silent),
		})
		if err != nil {
			dbErr = err
			return
		}

		if err := gdb.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
			dbErr = err
			return
		}

		if err := db.AutoMigrate(gdb); err != nil {
			dbErr = err
			return
		}
	})

	if errors.Is(dbErr, errMissingDSN) {
		tb.Skip("set TEST_POSTGRES_DSN to run repo integration tests")
	}
	if dbErr != nil {
		tb.Fatalf("failed to init test db: %v", dbErr)
	}
	return gdb
}

func Tx(tb testing.TB, gdb *gorm.DB) *gorm.DB {
	tb.Helper()
	tx := gdb.Begin()
	if tx.Error != nil {
		tb.Fatalf("begin tx: %v", tx.Error)
	}
	tb.Cleanup(func() {
		_ = tx.Rollback().Error
	})
	return tx
}

func JSONList(tb testing.TB, items []string) datatypes.JSON {
	tb.Helper()
	raw, err := json.Marshal(items)
	if err != nil {
		tb.Fatalf("marshal list: %v", err)
	}
	return datatypes.JSON(raw)
}

func JSONMap(tb testing.TB, m map[string]string) datatypes.JSON {
	tb.Helper()
	raw, err := json.Marshal(m)
	if err != nil {
		tb.Fatalf("marshal map: %v", err)
	}
	return datatypes.JSON(raw)
}

func SeedArtifact(tb testing.TB, ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, externalID string, occurredAt time.Time) *types.Artifact {
	tb.Helper()
	a := &types.Artifact{
		ID:           uuid.New(),
		TenantID:     tenantID,
		Platform:     "jira",
		ExternalID:   externalID,
		Type:         "issue",
		Title:        "seed " + externalID,
		Body:         "seed body",
		Author:       "alice",
		OccurredAt:   occurredAt,
		Participants: datatypes.JSON([]byte(`[]`)),
		Metadata:     datatypes.JSON([]byte(`{}`)),
	}
	if err := tx.WithContext(ctx).Create(a).Error; err != nil {
		tb.Fatalf("seed artifact: %v", err)
	}
	return a
}

func SeedLink(tb testing.TB, ctx context.Context, tx *gorm.DB, tenantID, sourceID, targetID uuid.UUID, score float64) *types.ArtifactLink {
	tb.Helper()
	l := &types.ArtifactLink{
		ID:               uuid.New(),
		TenantID:         tenantID,
		SourceID:         sourceID,
		TargetID:         targetID,
		ConfidenceScore:  score,
		RelationshipType: types.RelationshipWeakContextual,
		DiscoveryMethod:  types.MethodDeterministic,
		Explanation:      datatypes.JSON([]byte(`{}`)),
	}
	if err := tx.WithContext(ctx).Create(l).Error; err != nil {
		tb.Fatalf("seed link: %v", err)
	}
	return l
}

func SeedGroup(tb testing.TB, ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, name string) *types.ContextGroup {
	tb.Helper()
	g := &types.ContextGroup{
		ID:             uuid.New(),
		TenantID:       tenantID,
		Name:           name,
		CoherenceScore: 1.0,
		Topics:         datatypes.JSON([]byte(`[]`)),
		Status:         types.GroupStatusActive,
	}
	if err := tx.WithContext(ctx).Create(g).Error; err != nil {
		tb.Fatalf("seed group: %v", err)
	}
	return g
}
