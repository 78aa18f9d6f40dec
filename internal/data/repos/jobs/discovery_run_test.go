package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/threadline-hq/threadline-backend/internal/data/repos/testutil"
	types "github.com/threadline-hq/threadline-backend/internal/domain"
	"github.com/threadline-hq/threadline-backend/internal/pkg/dbctx"
)

func TestUpsertOverwritesPreviousAttempt(t *testing.T) {
	gdb := testutil.DB(t)
	tx := testutil.Tx(t, gdb)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	artifactID := uuid.New()
	repo := NewDiscoveryRunRepo(gdb, testutil.Logger(t))

	started := time.Now().UTC().Add(-time.Minute)
	if err := repo.Upsert(dbc, &types.DiscoveryRun{
		ID:         uuid.New(),
		ArtifactID: artifactID,
		Status:     types.RunStatusRunning,
		StartedAt:  &started,
	}); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	finished := time.Now().UTC()
	if err := repo.Upsert(dbc, &types.DiscoveryRun{
		ID:             uuid.New(),
		ArtifactID:     artifactID,
		Status:         types.RunStatusSucceeded,
		CandidateCount: 4,
		EvaluatedCount: 4,
		LinkedCount:    2,
		StartedAt:      &started,
		FinishedAt:     &finished,
	}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	stored, err := repo.GetByArtifactID(dbc, artifactID)
	if err != nil || stored == nil {
		t.Fatalf("lookup: %v %v", stored, err)
	}
	if stored.Status != types.RunStatusSucceeded || stored.LinkedCount != 2 {
		t.Fatalf("latest attempt must win: %+v", stored)
	}
	if stored.FinishedAt == nil {
		t.Fatal("finished_at missing")
	}

	var count int64
	if err := tx.Model(&types.DiscoveryRun{}).
		Where("artifact_id = ?", artifactID).
		Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("rows: got=%d want=1", count)
	}
}

func TestUpsertRecordsFailure(t *testing.T) {
	gdb := testutil.DB(t)
	tx := testutil.Tx(t, gdb)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	artifactID := uuid.New()
	repo := NewDiscoveryRunRepo(gdb, testutil.Logger(t))

	if err := repo.Upsert(dbc, &types.DiscoveryRun{
		ID:         uuid.New(),
		ArtifactID: artifactID,
		Status:     types.RunStatusFailed,
		Error:      "candidate lookup timed out",
	}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	stored, err := repo.GetByArtifactID(dbc, artifactID)
	if err != nil || stored == nil {
		t.Fatalf("lookup: %v %v", stored, err)
	}
	if stored.Status != types.RunStatusFailed || stored.Error == "" {
		t.Fatalf("failure not recorded: %+v", stored)
	}
}

func TestGetByArtifactIDMissingReturnsNil(t *testing.T) {
	gdb := testutil.DB(t)
	tx := testutil.Tx(t, gdb)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	repo := NewDiscoveryRunRepo(gdb, testutil.Logger(t))
	stored, err := repo.GetByArtifactID(dbc, uuid.New())
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if stored != nil {
		t.Fatalf("missing row must be (nil, nil): %+v", stored)
	}
}
