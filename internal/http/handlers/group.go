package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/threadline-hq/threadline-backend/internal/http/response"
	"github.com/threadline-hq/threadline-backend/internal/pkg/ctxutil"
	"github.com/threadline-hq/threadline-backend/internal/platform/logger"
	"github.com/threadline-hq/threadline-backend/internal/services"
)

type GroupHandler struct {
	log    *logger.Logger
	groups *services.GroupService
}

func NewGroupHandler(log *logger.Logger, groups *services.GroupService) *GroupHandler {
	return &GroupHandler{log: log.With("handler", "GroupHandler"), groups: groups}
}

func (h *GroupHandler) List(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil {
		response.Unauthorized(c, "missing tenant")
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit < 1 || limit > 500 {
		limit = 50
	}

	out, err := h.groups.ListGroups(c.Request.Context(), rd.TenantID, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, out)
}

func (h *GroupHandler) Get(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil {
		response.Unauthorized(c, "missing tenant")
		return
	}
	groupID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid group id")
		return
	}

	out, err := h.groups.GetGroup(c.Request.Context(), rd.TenantID, groupID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, out)
}
