package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/threadline-hq/threadline-backend/internal/http/response"
	"github.com/threadline-hq/threadline-backend/internal/pkg/ctxutil"
	"github.com/threadline-hq/threadline-backend/internal/platform/logger"
	"github.com/threadline-hq/threadline-backend/internal/services"
)

type LinkHandler struct {
	log   *logger.Logger
	links *services.LinkService
}

func NewLinkHandler(log *logger.Logger, links *services.LinkService) *LinkHandler {
	return &LinkHandler{log: log.With("handler", "LinkHandler"), links: links}
}

type createLinkRequest struct {
	SourceID uuid.UUID `json:"source_id" binding:"required"`
	TargetID uuid.UUID `json:"target_id" binding:"required"`
}

// Create records a user-asserted link between two artifacts.
func (h *LinkHandler) Create(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil {
		response.Unauthorized(c, "missing tenant")
		return
	}

	var req createLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid payload: "+err.Error())
		return
	}

	link, err := h.links.CreateManualLink(c.Request.Context(), rd.TenantID, req.SourceID, req.TargetID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, link)
}
