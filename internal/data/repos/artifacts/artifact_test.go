package artifacts

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/threadline-hq/threadline-backend/internal/data/repos/testutil"
	types "github.com/threadline-hq/threadline-backend/internal/domain"
	"github.com/threadline-hq/threadline-backend/internal/pkg/dbctx"
)

func TestUpsertByExternalIDRefreshesContent(t *testing.T) {
	gdb := testutil.DB(t)
	tx := testutil.Tx(t, gdb)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	tenant := uuid.New()
	repo := NewArtifactRepo(gdb, testutil.Logger(t))

	first := &types.Artifact{
		ID: uuid.New(), TenantID: tenant,
		Platform: "jira", ExternalID: "PROJ-5", Type: "issue",
		Title: "original", OccurredAt: time.Now().UTC().Add(-time.Hour),
		Participants: datatypes.JSON([]byte(`[]`)),
		Metadata:     datatypes.JSON([]byte(`{}`)),
	}
	if err := repo.UpsertByExternalID(dbc, first); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	second := &types.Artifact{
		ID: uuid.New(), TenantID: tenant,
		Platform: "jira", ExternalID: "PROJ-5", Type: "issue",
		Title: "updated", OccurredAt: time.Now().UTC(),
		Participants: datatypes.JSON([]byte(`[]`)),
		Metadata:     datatypes.JSON([]byte(`{}`)),
	}
	if err := repo.UpsertByExternalID(dbc, second); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	stored, err := repo.GetByExternalID(dbc, tenant, "jira", "PROJ-5")
	if err != nil || stored == nil {
		t.Fatalf("lookup: %v %v", stored, err)
	}
	if stored.ID != first.ID {
		t.Fatal("re-ingestion must not change the row id")
	}
	if stored.Title != "updated" {
		t.Fatalf("title: got=%q want=%q", stored.Title, "updated")
	}

	var count int64
	if err := tx.Model(&types.Artifact{}).
		Where("tenant_id = ? AND platform = ? AND external_id = ?", tenant, "jira", "PROJ-5").
		Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("rows: got=%d want=1", count)
	}
}

func TestListRecentByTenantWindowAndExclusions(t *testing.T) {
	gdb := testutil.DB(t)
	tx := testutil.Tx(t, gdb)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	tenant := uuid.New()
	now := time.Now().UTC()
	recent := testutil.SeedArtifact(t, ctx, tx, tenant, "R-1", now.Add(-time.Hour))
	older := testutil.SeedArtifact(t, ctx, tx, tenant, "R-2", now.Add(-2*time.Hour))
	stale := testutil.SeedArtifact(t, ctx, tx, tenant, "R-3", now.Add(-40*24*time.Hour))
	_ = stale

	repo := NewArtifactRepo(gdb, testutil.Logger(t))
	rows, err := repo.ListRecentByTenant(dbc, tenant, now.Add(-30*24*time.Hour), []uuid.UUID{older.ID}, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != recent.ID {
		t.Fatalf("window/exclusion broken: %+v", rows)
	}
}

func TestUpdateEmbedding(t *testing.T) {
	gdb := testutil.DB(t)
	tx := testutil.Tx(t, gdb)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	tenant := uuid.New()
	a := testutil.SeedArtifact(t, ctx, tx, tenant, "E-1", time.Now().UTC().Add(-time.Hour))

	repo := NewArtifactRepo(gdb, testutil.Logger(t))
	if err := repo.UpdateEmbedding(dbc, a.ID, datatypes.JSON([]byte(`[0.1,0.2]`))); err != nil {
		t.Fatalf("update: %v", err)
	}

	stored, err := repo.GetByID(dbc, a.ID)
	if err != nil || stored == nil {
		t.Fatalf("lookup: %v %v", stored, err)
	}
	vec := stored.EmbeddingVector()
	if len(vec) != 2 || vec[0] != 0.1 {
		t.Fatalf("embedding: %v", vec)
	}
}

func TestGetByIDMissingReturnsNil(t *testing.T) {
	gdb := testutil.DB(t)
	tx := testutil.Tx(t, gdb)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	repo := NewArtifactRepo(gdb, testutil.Logger(t))
	stored, err := repo.GetByID(dbc, uuid.New())
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if stored != nil {
		t.Fatalf("missing row must be (nil, nil): %+v", stored)
	}
}
