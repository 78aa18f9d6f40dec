package discovery

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/threadline-hq/threadline-backend/internal/data/repos"
	"github.com/threadline-hq/threadline-backend/internal/data/repos/testutil"
	types "github.com/threadline-hq/threadline-backend/internal/domain"
	"github.com/threadline-hq/threadline-backend/internal/pkg/dbctx"
)

type passthroughLock struct{}

func (passthroughLock) WithLock(ctx context.Context, _ string, _ time.Duration, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// stubGraph returns a fixed candidate list and records mirror calls.
type stubGraph struct {
	candidates []uuid.UUID
	edges      int
}

func (s *stubGraph) CandidateIDs(context.Context, uuid.UUID, uuid.UUID, int) ([]uuid.UUID, error) {
	return s.candidates, nil
}
func (s *stubGraph) MirrorArtifact(context.Context, *types.Artifact) error { return nil }
func (s *stubGraph) MirrorEdge(context.Context, *types.ArtifactLink) error {
	s.edges++
	return nil
}
func (s *stubGraph) MirrorGroupChange(context.Context, *types.ContextGroup, []uuid.UUID) error {
	return nil
}
func (s *stubGraph) RemoveGroup(context.Context, uuid.UUID) error { return nil }

type engineHarness struct {
	engine *Engine
	graph  *stubGraph
	dbc    dbctx.Context

	artifacts repos.ArtifactRepo
	links     repos.LinkRepo
	shadows   repos.ShadowEvaluationRepo
	groups    repos.ContextGroupRepo
	members   repos.ContextGroupMemberRepo
}

func newEngineHarness(t *testing.T, tx *gorm.DB, cfg Config, graph *stubGraph) *engineHarness {
	t.Helper()
	log := testutil.Logger(t)

	h := &engineHarness{
		graph:     graph,
		dbc:       dbctx.Context{Ctx: context.Background(), Tx: tx},
		artifacts: repos.NewArtifactRepo(tx, log),
		links:     repos.NewLinkRepo(tx, log),
		shadows:   repos.NewShadowEvaluationRepo(tx, log),
		groups:    repos.NewContextGroupRepo(tx, log),
		members:   repos.NewContextGroupMemberRepo(tx, log),
	}
	h.engine = NewEngine(cfg, EngineDeps{
		DB:         tx,
		Lock:       passthroughLock{},
		Graph:      graph,
		Artifacts:  h.artifacts,
		Links:      h.links,
		Shadows:    h.shadows,
		Groups:     h.groups,
		Members:    h.members,
		Runs:       repos.NewDiscoveryRunRepo(tx, log),
		Similarity: nil,
		Embeddings: nil,
		Affinity:   DefaultAffinityTables(),
	}, log)
	return h
}

func TestRunDiscoveryLinksReferencedIssue(t *testing.T) {
	gdb := testutil.DB(t)
	tx := testutil.Tx(t, gdb)
	ctx := context.Background()

	tenant := uuid.New()
	base := time.Now().UTC().Add(-3 * time.Hour)
	issue := testutil.SeedArtifact(t, ctx, tx, tenant, "PROJ-1234", base)
	commit := testutil.SeedArtifact(t, ctx, tx, tenant, "abc123def", base.Add(time.Hour))
	commit.Platform = "github"
	commit.Type = "commit"
	commit.Title = "PROJ-1234 fix redirect"
	if err := tx.Save(commit).Error; err != nil {
		t.Fatalf("update commit: %v", err)
	}

	graph := &stubGraph{candidates: []uuid.UUID{issue.ID}}
	h := newEngineHarness(t, tx, DefaultConfig(), graph)

	var stats runStats
	if err := h.engine.runDiscovery(h.dbc, commit.ID, &stats); err != nil {
		t.Fatalf("runDiscovery: %v", err)
	}
	if stats.evaluated != 1 || stats.linked != 1 {
		t.Fatalf("stats: %+v", stats)
	}

	stored, err := h.links.GetByPair(h.dbc, commit.ID, issue.ID)
	if err != nil || stored == nil {
		t.Fatalf("link lookup: %v %v", stored, err)
	}
	// Canonical direction: the issue happened first.
	if stored.SourceID != issue.ID || stored.TargetID != commit.ID {
		t.Fatalf("direction: source=%s target=%s", stored.SourceID, stored.TargetID)
	}
	if stored.DiscoveryMethod != types.MethodDeterministic {
		t.Fatalf("method: %s", stored.DiscoveryMethod)
	}

	// Edges mirror only after the transaction commits, never mid-run.
	if graph.edges != 0 {
		t.Fatalf("edge mirrored inside the transaction: got=%d want=0", graph.edges)
	}
	h.engine.mirrorLinks(ctx, stats.applied)
	if graph.edges != 1 {
		t.Fatalf("edge mirror calls after commit: got=%d want=1", graph.edges)
	}

	// Both endpoints share one group now.
	memberships, err := h.members.GetByArtifactIDs(h.dbc, []uuid.UUID{issue.ID, commit.ID})
	if err != nil {
		t.Fatalf("memberships: %v", err)
	}
	if len(memberships) != 2 || memberships[0].GroupID != memberships[1].GroupID {
		t.Fatalf("expected a shared group: %+v", memberships)
	}
}

func TestRunDiscoveryUnrelatedPairRecordsShadowOnly(t *testing.T) {
	gdb := testutil.DB(t)
	tx := testutil.Tx(t, gdb)
	ctx := context.Background()

	tenant := uuid.New()
	base := time.Now().UTC().Add(-50 * time.Hour)
	a := testutil.SeedArtifact(t, ctx, tx, tenant, "msg-100", base)
	b := testutil.SeedArtifact(t, ctx, tx, tenant, "msg-200", time.Now().UTC().Add(-time.Hour))
	a.Author = "bob"
	a.Body = "lunch orders"
	if err := tx.Save(a).Error; err != nil {
		t.Fatalf("update: %v", err)
	}
	b.Author = "carol"
	b.Body = "deploy window"
	if err := tx.Save(b).Error; err != nil {
		t.Fatalf("update: %v", err)
	}

	graph := &stubGraph{candidates: []uuid.UUID{a.ID}}
	h := newEngineHarness(t, tx, DefaultConfig(), graph)

	var stats runStats
	if err := h.engine.runDiscovery(h.dbc, b.ID, &stats); err != nil {
		t.Fatalf("runDiscovery: %v", err)
	}
	if stats.linked != 0 {
		t.Fatalf("no link expected: %+v", stats)
	}

	stored, err := h.links.GetByPair(h.dbc, a.ID, b.ID)
	if err != nil {
		t.Fatalf("link lookup: %v", err)
	}
	if stored != nil {
		t.Fatalf("unexpected link: %+v", stored)
	}

	eval, err := h.shadows.GetByPair(h.dbc, b.ID, a.ID)
	if err != nil || eval == nil {
		t.Fatalf("shadow evaluation missing: %v %v", eval, err)
	}
	if eval.WouldLink {
		t.Fatalf("would_link must be false: %+v", eval)
	}
}

func TestRunDiscoveryIsIdempotent(t *testing.T) {
	gdb := testutil.DB(t)
	tx := testutil.Tx(t, gdb)
	ctx := context.Background()

	tenant := uuid.New()
	base := time.Now().UTC().Add(-3 * time.Hour)
	issue := testutil.SeedArtifact(t, ctx, tx, tenant, "PROJ-77", base)
	commit := testutil.SeedArtifact(t, ctx, tx, tenant, "deadbeef1", base.Add(time.Hour))
	commit.Title = "PROJ-77 patch"
	if err := tx.Save(commit).Error; err != nil {
		t.Fatalf("update: %v", err)
	}

	graph := &stubGraph{candidates: []uuid.UUID{issue.ID}}
	h := newEngineHarness(t, tx, DefaultConfig(), graph)

	var first runStats
	if err := h.engine.runDiscovery(h.dbc, commit.ID, &first); err != nil {
		t.Fatalf("first run: %v", err)
	}
	var second runStats
	if err := h.engine.runDiscovery(h.dbc, commit.ID, &second); err != nil {
		t.Fatalf("second run: %v", err)
	}
	// Second run re-evaluates but cannot improve on the stored confidence.
	if second.linked != 0 {
		t.Fatalf("second run must not re-apply: %+v", second)
	}

	var count int64
	if err := tx.Model(&types.ArtifactLink{}).
		Where("source_id = ? OR target_id = ?", commit.ID, commit.ID).
		Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("link rows: got=%d want=1", count)
	}

	groupRows, err := h.members.GetByArtifactIDs(h.dbc, []uuid.UUID{issue.ID, commit.ID})
	if err != nil {
		t.Fatalf("memberships: %v", err)
	}
	if len(groupRows) != 2 {
		t.Fatalf("membership rows must not duplicate: %+v", groupRows)
	}
}

func TestRunDiscoveryMissingArtifact(t *testing.T) {
	gdb := testutil.DB(t)
	tx := testutil.Tx(t, gdb)

	h := newEngineHarness(t, tx, DefaultConfig(), &stubGraph{})
	var stats runStats
	err := h.engine.runDiscovery(h.dbc, uuid.New(), &stats)
	if err == nil {
		t.Fatal("expected error for missing artifact")
	}
}

func TestRunDiscoverySkipsVanishedCandidates(t *testing.T) {
	gdb := testutil.DB(t)
	tx := testutil.Tx(t, gdb)
	ctx := context.Background()

	tenant := uuid.New()
	a := testutil.SeedArtifact(t, ctx, tx, tenant, "PROJ-1", time.Now().UTC().Add(-time.Hour))

	graph := &stubGraph{candidates: []uuid.UUID{uuid.New(), uuid.New()}}
	h := newEngineHarness(t, tx, DefaultConfig(), graph)

	var stats runStats
	if err := h.engine.runDiscovery(h.dbc, a.ID, &stats); err != nil {
		t.Fatalf("runDiscovery: %v", err)
	}
	if stats.evaluated != 0 {
		t.Fatalf("vanished candidates must be skipped: %+v", stats)
	}
}
