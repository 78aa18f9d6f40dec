package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/threadline-hq/threadline-backend/internal/http/response"
	"github.com/threadline-hq/threadline-backend/internal/pkg/ctxutil"
	"github.com/threadline-hq/threadline-backend/internal/platform/logger"
	"github.com/threadline-hq/threadline-backend/internal/services"
)

type ArtifactHandler struct {
	log    *logger.Logger
	intake *services.ArtifactIntakeService
	links  *services.LinkService
}

func NewArtifactHandler(log *logger.Logger, intake *services.ArtifactIntakeService, links *services.LinkService) *ArtifactHandler {
	return &ArtifactHandler{
		log:    log.With("handler", "ArtifactHandler"),
		intake: intake,
		links:  links,
	}
}

// Ingest accepts one artifact and schedules discovery for it. Re-posting the
// same (platform, external_id) updates content instead of duplicating.
func (h *ArtifactHandler) Ingest(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil {
		response.Unauthorized(c, "missing tenant")
		return
	}

	var input services.ArtifactInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.BadRequest(c, "invalid payload: "+err.Error())
		return
	}

	artifact, err := h.intake.Ingest(c.Request.Context(), rd.TenantID, input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, artifact)
}

// ListLinks returns all discovered and manual links for one artifact.
func (h *ArtifactHandler) ListLinks(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil {
		response.Unauthorized(c, "missing tenant")
		return
	}
	artifactID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid artifact id")
		return
	}

	links, err := h.links.ListLinks(c.Request.Context(), rd.TenantID, artifactID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, links)
}
