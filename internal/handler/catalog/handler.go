package catalog

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/lab-api/internal/handler"
	"github.com/jwalitptl/lab-api/internal/middleware"
	"github.com/jwalitptl/lab-api/internal/model"
	"github.com/jwalitptl/lab-api/internal/service/catalog"
	"github.com/jwalitptl/lab-api/pkg/httputil"
)

// ParameterHandler serves the parameters of catalog tests. Parameters use
// the tests permission.
type ParameterHandler struct {
	svc *catalog.ParameterService
}

func NewParameterHandler(svc *catalog.ParameterService) *ParameterHandler {
	return &ParameterHandler{svc: svc}
}

func (h *ParameterHandler) RegisterRoutes(r *gin.RouterGroup) {
	view := middleware.RequirePermission(model.ResourceTests, model.ActionView)
	create := middleware.RequirePermission(model.ResourceTests, model.ActionCreate)
	edit := middleware.RequirePermission(model.ResourceTests, model.ActionEdit)
	del := middleware.RequirePermission(model.ResourceTests, model.ActionDelete)

	r.GET("/tests/:id/parameters", view, h.List)
	r.POST("/tests/:id/parameters", create, h.Create)

	p := r.Group("/parameters")
	{
		p.GET("/:id", view, h.Get)
		p.PUT("/:id", edit, h.Update)
		p.DELETE("/:id", del, h.Delete)
		p.POST("/:id/restore", del, h.Restore)
		p.DELETE("/:id/permanent", del, h.Purge)
	}
}

func (h *ParameterHandler) List(c *gin.Context) {
	testID, ok := handler.ParseID(c, "id", "test")
	if !ok {
		return
	}
	q, ok := handler.BindListQuery(c, nil)
	if !ok {
		return
	}

	page, err := h.svc.ListForTest(c.Request.Context(), handler.LabID(c), testID, q)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	handler.RespondWithPage(c, page)
}

func (h *ParameterHandler) Create(c *gin.Context) {
	testID, ok := handler.ParseID(c, "id", "test")
	if !ok {
		return
	}
	var req model.CreateParameterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithBindError(c, err)
		return
	}

	p, err := h.svc.CreateFor(c.Request.Context(), handler.LabID(c), testID, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, http.StatusCreated, p, "parameter created")
}

func (h *ParameterHandler) Get(c *gin.Context) {
	id, ok := handler.ParseID(c, "id", "parameter")
	if !ok {
		return
	}
	p, err := h.svc.Get(c.Request.Context(), handler.LabID(c), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, p)
}

func (h *ParameterHandler) Update(c *gin.Context) {
	id, ok := handler.ParseID(c, "id", "parameter")
	if !ok {
		return
	}
	var req model.UpdateParameterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithBindError(c, err)
		return
	}

	p, err := h.svc.UpdateFrom(c.Request.Context(), handler.LabID(c), id, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, http.StatusOK, p, "parameter updated")
}

func (h *ParameterHandler) Delete(c *gin.Context) {
	id, ok := handler.ParseID(c, "id", "parameter")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), handler.LabID(c), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, http.StatusOK, nil, "parameter deleted")
}

func (h *ParameterHandler) Restore(c *gin.Context) {
	id, ok := handler.ParseID(c, "id", "parameter")
	if !ok {
		return
	}
	p, err := h.svc.Restore(c.Request.Context(), handler.LabID(c), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, http.StatusOK, p, "parameter restored")
}

func (h *ParameterHandler) Purge(c *gin.Context) {
	id, ok := handler.ParseID(c, "id", "parameter")
	if !ok {
		return
	}
	if err := h.svc.Purge(c.Request.Context(), handler.LabID(c), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, http.StatusOK, nil, "parameter permanently deleted")
}
