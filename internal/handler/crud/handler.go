// Package crud serves the lab-scoped create, read, update, delete, restore
// and purge routes of one entity.
package crud

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/lab-api/internal/handler"
	"github.com/jwalitptl/lab-api/internal/middleware"
	"github.com/jwalitptl/lab-api/internal/model"
	"github.com/jwalitptl/lab-api/pkg/httputil"
)

// Service is the per-entity service contract the handler drives. C and U
// are the create and update request bodies.
type Service[T, C, U any] interface {
	List(ctx context.Context, labID int64, q model.ListQuery) (*model.Page[T], error)
	Get(ctx context.Context, labID, id int64) (*T, error)
	CreateFrom(ctx context.Context, labID int64, req *C) (*T, error)
	UpdateFrom(ctx context.Context, labID, id int64, req *U) (*T, error)
	Delete(ctx context.Context, labID, id int64) error
	Restore(ctx context.Context, labID, id int64) (*T, error)
	Purge(ctx context.Context, labID, id int64) error
}

// Options describe how one entity is exposed.
type Options struct {
	// Path is the collection path, e.g. "/doctors".
	Path string
	// Resource is both the permission resource and the name used in
	// not-found messages.
	Resource string
	// Name is the singular noun used in response messages.
	Name string
	// Filters maps query parameters to filterable columns.
	Filters map[string]string
	// Purge exposes DELETE /:id/permanent.
	Purge bool
}

type Handler[T, C, U any] struct {
	svc  Service[T, C, U]
	opts Options
}

func NewHandler[T, C, U any](svc Service[T, C, U], opts Options) *Handler[T, C, U] {
	return &Handler[T, C, U]{svc: svc, opts: opts}
}

// RegisterRoutes mounts the routes under r, which must already require a
// lab.
func (h *Handler[T, C, U]) RegisterRoutes(r *gin.RouterGroup) {
	g := r.Group(h.opts.Path)
	res := h.opts.Resource
	{
		g.GET("", middleware.RequirePermission(res, model.ActionView), h.List)
		g.GET("/:id", middleware.RequirePermission(res, model.ActionView), h.Get)
		g.POST("", middleware.RequirePermission(res, model.ActionCreate), h.Create)
		g.PUT("/:id", middleware.RequirePermission(res, model.ActionEdit), h.Update)
		g.DELETE("/:id", middleware.RequirePermission(res, model.ActionDelete), h.Delete)
		g.POST("/:id/restore", middleware.RequirePermission(res, model.ActionDelete), h.Restore)
		if h.opts.Purge {
			g.DELETE("/:id/permanent", middleware.RequirePermission(res, model.ActionDelete), h.Purge)
		}
	}
}

func (h *Handler[T, C, U]) List(c *gin.Context) {
	q, ok := handler.BindListQuery(c, h.opts.Filters)
	if !ok {
		return
	}

	page, err := h.svc.List(c.Request.Context(), handler.LabID(c), q)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	handler.RespondWithPage(c, page)
}

func (h *Handler[T, C, U]) Get(c *gin.Context) {
	id, ok := handler.ParseID(c, "id", h.opts.Name)
	if !ok {
		return
	}

	item, err := h.svc.Get(c.Request.Context(), handler.LabID(c), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, item)
}

func (h *Handler[T, C, U]) Create(c *gin.Context) {
	var req C
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithBindError(c, err)
		return
	}

	item, err := h.svc.CreateFrom(c.Request.Context(), handler.LabID(c), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, http.StatusCreated, item, h.opts.Name+" created")
}

func (h *Handler[T, C, U]) Update(c *gin.Context) {
	id, ok := handler.ParseID(c, "id", h.opts.Name)
	if !ok {
		return
	}
	var req U
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithBindError(c, err)
		return
	}

	item, err := h.svc.UpdateFrom(c.Request.Context(), handler.LabID(c), id, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, http.StatusOK, item, h.opts.Name+" updated")
}

func (h *Handler[T, C, U]) Delete(c *gin.Context) {
	id, ok := handler.ParseID(c, "id", h.opts.Name)
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), handler.LabID(c), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, http.StatusOK, nil, h.opts.Name+" deleted")
}

func (h *Handler[T, C, U]) Restore(c *gin.Context) {
	id, ok := handler.ParseID(c, "id", h.opts.Name)
	if !ok {
		return
	}

	item, err := h.svc.Restore(c.Request.Context(), handler.LabID(c), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, http.StatusOK, item, h.opts.Name+" restored")
}

func (h *Handler[T, C, U]) Purge(c *gin.Context) {
	id, ok := handler.ParseID(c, "id", h.opts.Name)
	if !ok {
		return
	}

	if err := h.svc.Purge(c.Request.Context(), handler.LabID(c), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, http.StatusOK, nil, h.opts.Name+" permanently deleted")
}
