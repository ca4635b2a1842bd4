package audit

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/lab-api/internal/handler"
	"github.com/jwalitptl/lab-api/internal/middleware"
	"github.com/jwalitptl/lab-api/internal/model"
	"github.com/jwalitptl/lab-api/internal/service/audit"
	"github.com/jwalitptl/lab-api/pkg/httputil"
)

var listFilters = map[string]string{
	"userId":     "user_id",
	"action":     "action",
	"entityType": "entity_type",
	"entityId":   "entity_id",
}

// Handler exposes the lab's audit trail. Reading it needs the lab view
// permission.
type Handler struct {
	service *audit.Service
}

func NewHandler(service *audit.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/audit-logs", middleware.RequirePermission(model.ResourceLab, model.ActionView), h.ListLogs)
}

func (h *Handler) ListLogs(c *gin.Context) {
	q, ok := handler.BindListQuery(c, listFilters)
	if !ok {
		return
	}
	page, err := h.service.List(c.Request.Context(), handler.LabID(c), q)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	handler.RespondWithPage(c, page)
}
