package app

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/threadline-hq/threadline-backend/internal/http/handlers"
	"github.com/threadline-hq/threadline-backend/internal/http/middleware"
	"github.com/threadline-hq/threadline-backend/internal/platform/logger"
)

type Handlers struct {
	Health   *handlers.HealthHandler
	Artifact *handlers.ArtifactHandler
	Link     *handlers.LinkHandler
	Group    *handlers.GroupHandler
}

func wireRouter(log *logger.Logger, _ *gorm.DB, h Handlers, auth *middleware.AuthMiddleware) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware("threadline"))
	r.Use(middleware.CORS(log))
	r.Use(middleware.RequestLogger(log))

	r.GET("/health", h.Health.Health)

	api := r.Group("/api")
	api.Use(auth.RequireAuth())
	{
		api.POST("/artifacts", h.Artifact.Ingest)
		api.GET("/artifacts/:id/links", h.Artifact.ListLinks)
		api.POST("/links", h.Link.Create)
		api.GET("/groups", h.Group.List)
		api.GET("/groups/:id", h.Group.Get)
	}
	return r
}
