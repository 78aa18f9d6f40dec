package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/threadline-hq/threadline-backend/internal/data/db"
	"github.com/threadline-hq/threadline-backend/internal/data/repos"
	types "github.com/threadline-hq/threadline-backend/internal/domain"
	"github.com/threadline-hq/threadline-backend/internal/pkg/dbctx"
	apperrors "github.com/threadline-hq/threadline-backend/internal/pkg/errors"
	"github.com/threadline-hq/threadline-backend/internal/platform/logger"
)

// Engine runs one discovery pass per artifact: acquire the per-artifact
// lease, open a serializable transaction, locate candidates, score them
// strictly in sequence, and persist links and group changes. The whole pass
// commits or rolls back as one unit; the run audit row lives outside the
// transaction so failed attempts stay visible.
type Engine struct {
	cfg Config
	gdb *gorm.DB

	lock       LockCoordinator
	scorer     *Scorer
	hybrid     *HybridScorer
	locator    *CandidateLocator
	decider    *DecisionEngine
	writer     *LinkWriter
	maintainer *Maintainer

	artifacts  repos.ArtifactRepo
	runs       repos.DiscoveryRunRepo
	embeddings EmbeddingProvider
	graph      GraphStore

	log *logger.Logger
}

type EngineDeps struct {
	DB    *gorm.DB
	Lock  LockCoordinator
	Graph GraphStore

	Artifacts repos.ArtifactRepo
	Links     repos.LinkRepo
	Shadows   repos.ShadowEvaluationRepo
	Groups    repos.ContextGroupRepo
	Members   repos.ContextGroupMemberRepo
	Runs      repos.DiscoveryRunRepo

	Similarity TextSimilarityProvider
	Embeddings EmbeddingProvider
	Affinity   *AffinityTables
}

func NewEngine(cfg Config, deps EngineDeps, baseLog *logger.Logger) *Engine {
	log := baseLog.With("component", "DiscoveryEngine")
	return &Engine{
		cfg:        cfg,
		gdb:        deps.DB,
		lock:       deps.Lock,
		scorer:     NewScorer(deps.Similarity, baseLog),
		hybrid:     NewHybridScorer(deps.Embeddings, deps.Affinity, baseLog),
		locator:    NewCandidateLocator(deps.Graph, deps.Artifacts, baseLog),
		decider:    NewDecisionEngine(cfg, deps.Shadows, baseLog),
		writer:     NewLinkWriter(deps.Links, baseLog),
		maintainer: NewMaintainer(cfg, deps.Groups, deps.Members, deps.Links, deps.Artifacts, deps.Graph, baseLog),
		artifacts:  deps.Artifacts,
		runs:       deps.Runs,
		embeddings: deps.Embeddings,
		graph:      deps.Graph,
		log:        log,
	}
}

type runStats struct {
	candidates int
	evaluated  int
	linked     int

	// applied holds the link rows this run wrote, mirrored to the graph store
	// only after the transaction commits.
	applied []*types.ArtifactLink
}

// DiscoverRelationships is the job entry point. The lease key is scoped to
// the artifact, so runs for different artifacts proceed in parallel while two
// runs for the same artifact serialize (modulo lease expiry, which the link
// upsert rule tolerates).
func (e *Engine) DiscoverRelationships(ctx context.Context, artifactID uuid.UUID) error {
	key := "discovery:" + artifactID.String()
	return e.lock.WithLock(ctx, key, e.cfg.LockTTL, func(ctx context.Context) error {
		return e.runLocked(ctx, artifactID)
	})
}

func (e *Engine) runLocked(ctx context.Context, artifactID uuid.UUID) error {
	started := time.Now().UTC()
	e.recordRun(ctx, artifactID, types.RunStatusRunning, runStats{}, &started, nil, nil)

	var stats runStats
	err := db.RunSerializable(ctx, e.gdb, db.TxOptions{MaxWait: e.cfg.TxMaxWait, Timeout: e.cfg.TxTimeout}, func(tx *gorm.DB) error {
		return e.runDiscovery(dbctx.Context{Ctx: ctx, Tx: tx}, artifactID, &stats)
	})

	finished := time.Now().UTC()
	if err != nil {
		e.recordRun(ctx, artifactID, types.RunStatusFailed, stats, &started, &finished, err)
		return err
	}
	e.mirrorLinks(ctx, stats.applied)
	e.recordRun(ctx, artifactID, types.RunStatusSucceeded, stats, &started, &finished, nil)
	e.log.Info("Discovery run finished",
		"artifact_id", artifactID,
		"candidates", stats.candidates,
		"evaluated", stats.evaluated,
		"linked", stats.linked,
		"duration_ms", finished.Sub(started).Milliseconds())
	return nil
}

// runDiscovery executes the whole pass inside the caller's transaction. The
// candidate loop is strictly sequential: each decision sees the links and
// groups produced by the previous one.
func (e *Engine) runDiscovery(dbc dbctx.Context, artifactID uuid.UUID, stats *runStats) error {
	artifact, err := e.artifacts.GetByID(dbc, artifactID)
	if err != nil {
		return fmt.Errorf("artifact load: %w", err)
	}
	if artifact == nil {
		return fmt.Errorf("artifact %s: %w", artifactID, apperrors.ErrNotFound)
	}

	e.ensureEmbedding(dbc, artifact)

	if err := e.graph.MirrorArtifact(dbc.Ctx, artifact); err != nil {
		e.log.Warn("Graph artifact mirror failed", "artifact_id", artifact.ID, "error", err)
	}

	candidates, err := e.locator.Locate(dbc, artifact, e.cfg.MaxCandidates)
	if err != nil {
		return err
	}
	stats.candidates = len(candidates)

	for _, candidate := range candidates {
		_, breakdown := e.scorer.Deterministic(dbc.Ctx, artifact, candidate)
		e.hybrid.Score(dbc.Ctx, artifact, candidate, &breakdown)
		stats.evaluated++

		decision := e.decider.Decide(dbc, artifact, candidate, breakdown)
		if !decision.CreateLink {
			continue
		}

		row, applied, err := e.writer.Write(dbc, artifact, candidate, decision)
		if err != nil {
			return err
		}
		if applied {
			stats.linked++
			stats.applied = append(stats.applied, row)
		}
		if err := e.maintainer.OnLink(dbc, artifact, candidate); err != nil {
			return err
		}
	}
	return nil
}

// mirrorLinks pushes committed link rows to the graph mirror. Running after
// the commit means an aborted transaction cannot leave a phantom edge, which
// would permanently exclude the pair from candidate queries. A mirror failure
// here only delays exclusion until a later run re-links the pair.
func (e *Engine) mirrorLinks(ctx context.Context, rows []*types.ArtifactLink) {
	for _, row := range rows {
		if err := e.graph.MirrorEdge(ctx, row); err != nil {
			e.log.Warn("Graph edge mirror failed, relational row stands",
				"source_id", row.SourceID, "target_id", row.TargetID, "error", err)
		}
	}
}

// ensureEmbedding backfills a missing vector so this run and later runs can
// score semantically. Provider failure or absence degrades silently; the
// deterministic path carries the run.
func (e *Engine) ensureEmbedding(dbc dbctx.Context, artifact *types.Artifact) {
	if e.embeddings == nil || len(artifact.EmbeddingVector()) > 0 {
		return
	}
	vec, err := e.embeddings.VectorFor(dbc.Ctx, artifact.Title+" "+artifact.Body)
	if err != nil {
		e.log.Warn("Embedding backfill failed", "artifact_id", artifact.ID, "error", err)
		return
	}
	if len(vec) == 0 {
		return
	}
	raw, err := json.Marshal(vec)
	if err != nil {
		return
	}
	if err := e.artifacts.UpdateEmbedding(dbc, artifact.ID, datatypes.JSON(raw)); err != nil {
		e.log.Warn("Embedding persist failed", "artifact_id", artifact.ID, "error", err)
		return
	}
	artifact.Embedding = datatypes.JSON(raw)
}

// recordRun upserts the audit row outside the discovery transaction; a failed
// pass must still leave its trace.
func (e *Engine) recordRun(ctx context.Context, artifactID uuid.UUID, status string, stats runStats, startedAt, finishedAt *time.Time, runErr error) {
	row := &types.DiscoveryRun{
		ID:             uuid.New(),
		ArtifactID:     artifactID,
		Status:         status,
		CandidateCount: stats.candidates,
		EvaluatedCount: stats.evaluated,
		LinkedCount:    stats.linked,
		StartedAt:      startedAt,
		FinishedAt:     finishedAt,
	}
	if runErr != nil {
		row.Error = runErr.Error()
	}
	if err := e.runs.Upsert(dbctx.Context{Ctx: ctx}, row); err != nil {
		e.log.Warn("Discovery run record upsert failed", "artifact_id", artifactID, "error", err)
	}
}
