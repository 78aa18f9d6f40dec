package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	temporalsdkclient "go.temporal.io/sdk/client"
	"gorm.io/gorm"

	"github.com/threadline-hq/threadline-backend/internal/clients/redis"
	"github.com/threadline-hq/threadline-backend/internal/data/db"
	"github.com/threadline-hq/threadline-backend/internal/data/graph"
	"github.com/threadline-hq/threadline-backend/internal/data/repos"
	"github.com/threadline-hq/threadline-backend/internal/discovery"
	"github.com/threadline-hq/threadline-backend/internal/http/handlers"
	"github.com/threadline-hq/threadline-backend/internal/http/middleware"
	"github.com/threadline-hq/threadline-backend/internal/observability"
	"github.com/threadline-hq/threadline-backend/internal/platform/envutil"
	"github.com/threadline-hq/threadline-backend/internal/platform/logger"
	"github.com/threadline-hq/threadline-backend/internal/platform/neo4jdb"
	"github.com/threadline-hq/threadline-backend/internal/platform/openai"
	"github.com/threadline-hq/threadline-backend/internal/services"
	"github.com/threadline-hq/threadline-backend/internal/temporalx"
)

// App owns every long-lived dependency: stores, clients, services, the
// discovery engine, and the HTTP router. Both the API binary and the worker
// binary build one and pick the parts they need.
type App struct {
	Log    *logger.Logger
	DB     *gorm.DB
	Router *gin.Engine

	Engine       *discovery.Engine
	Temporal     temporalsdkclient.Client
	OtelShutdown func(context.Context) error

	neo4j *neo4jdb.Client
}

func New(log *logger.Logger) (*App, error) {
	ctx := context.Background()

	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: "threadline",
		Environment: envutil.GetEnv("APP_ENV", "dev", log),
		Version:     envutil.GetEnv("APP_VERSION", "dev", log),
	})

	pg, err := db.NewPostgresService(log)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	gdb := pg.DB()
	if err := pg.AutoMigrateAll(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	artifactRepo := repos.NewArtifactRepo(gdb, log)
	linkRepo := repos.NewLinkRepo(gdb, log)
	shadowRepo := repos.NewShadowEvaluationRepo(gdb, log)
	groupRepo := repos.NewContextGroupRepo(gdb, log)
	memberRepo := repos.NewContextGroupMemberRepo(gdb, log)
	runRepo := repos.NewDiscoveryRunRepo(gdb, log)

	cfg := discovery.LoadConfig(log)

	neo4jClient, err := neo4jdb.NewFromEnv(log)
	if err != nil {
		return nil, fmt.Errorf("neo4j: %w", err)
	}
	var graphStore discovery.GraphStore
	if neo4jClient != nil {
		graphStore = graph.NewNeo4jArtifactGraph(neo4jClient, log, cfg.CandidateWindow)
	} else {
		graphStore = graph.NewPostgresArtifactGraph(artifactRepo, linkRepo, log, cfg.CandidateWindow)
	}

	lock, err := redis.NewLockCoordinator(log)
	if err != nil {
		log.Warn("Redis lock coordinator unavailable, discovery runs unprotected", "error", err)
		lock = redis.NewNoopCoordinator(log)
	}

	openaiClient, err := openai.NewClient(log)
	if err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}
	var embeddings discovery.EmbeddingProvider
	if svc := services.NewEmbeddingService(openaiClient, log); svc != nil {
		embeddings = svc
	}

	affinity, err := discovery.LoadAffinityTables(envutil.GetEnv("AFFINITY_TABLES_PATH", "", log))
	if err != nil {
		return nil, fmt.Errorf("affinity tables: %w", err)
	}

	engine := discovery.NewEngine(cfg, discovery.EngineDeps{
		DB:         gdb,
		Lock:       lock,
		Graph:      graphStore,
		Artifacts:  artifactRepo,
		Links:      linkRepo,
		Shadows:    shadowRepo,
		Groups:     groupRepo,
		Members:    memberRepo,
		Runs:       runRepo,
		Similarity: services.NewTFIDFSimilarity(),
		Embeddings: embeddings,
		Affinity:   affinity,
	}, log)

	tc, err := temporalx.NewClient(log)
	if err != nil {
		return nil, fmt.Errorf("temporal: %w", err)
	}
	var enqueuer services.DiscoveryEnqueuer
	if e := temporalx.NewEnqueuer(tc, log); e != nil {
		enqueuer = e
	}

	intakeService := services.NewArtifactIntakeService(artifactRepo, graphStore, enqueuer, log)
	linkService := services.NewLinkService(cfg, gdb, artifactRepo, linkRepo, groupRepo, memberRepo, graphStore, log)
	groupService := services.NewGroupService(groupRepo, memberRepo, log)

	router := wireRouter(log, gdb, Handlers{
		Health:   handlers.NewHealthHandler(log, gdb),
		Artifact: handlers.NewArtifactHandler(log, intakeService, linkService),
		Link:     handlers.NewLinkHandler(log, linkService),
		Group:    handlers.NewGroupHandler(log, groupService),
	}, middleware.NewAuthMiddleware(log))

	return &App{
		Log:          log,
		DB:           gdb,
		Router:       router,
		Engine:       engine,
		Temporal:     tc,
		OtelShutdown: otelShutdown,
		neo4j:        neo4jClient,
	}, nil
}

func (a *App) Close(ctx context.Context) {
	if a.Temporal != nil {
		a.Temporal.Close()
	}
	if a.neo4j != nil {
		if err := a.neo4j.Close(ctx); err != nil {
			a.Log.Warn("Neo4j close failed", "error", err)
		}
	}
	if a.OtelShutdown != nil {
		if err := a.OtelShutdown(ctx); err != nil {
			a.Log.Warn("Otel shutdown failed", "error", err)
		}
	}
}
