package bill

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/lab-api/internal/handler"
	"github.com/jwalitptl/lab-api/internal/middleware"
	"github.com/jwalitptl/lab-api/internal/model"
	"github.com/jwalitptl/lab-api/internal/service/billing"
	"github.com/jwalitptl/lab-api/pkg/httputil"
)

var listFilters = map[string]string{
	"patientId": "patient_id",
	"doctorId":  "doctor_id",
	"isPaid":    "is_paid",
}

type Handler struct {
	svc *billing.Service
}

func NewHandler(svc *billing.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	g := r.Group("/bills")
	{
		g.GET("", middleware.RequirePermission(model.ResourceBills, model.ActionView), h.List)
		g.GET("/:id", middleware.RequirePermission(model.ResourceBills, model.ActionView), h.Get)
		g.POST("", middleware.RequirePermission(model.ResourceBills, model.ActionCreate), h.Create)
		g.POST("/:id/pay", middleware.RequirePermission(model.ResourceBills, model.ActionEdit), h.Pay)
		g.DELETE("/:id", middleware.RequirePermission(model.ResourceBills, model.ActionDelete), h.Delete)
		g.POST("/:id/restore", middleware.RequirePermission(model.ResourceBills, model.ActionDelete), h.Restore)
	}
}

func (h *Handler) List(c *gin.Context) {
	q, ok := handler.BindListQuery(c, listFilters)
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

func (h *Handler) Get(c *gin.Context) {
	id, ok := handler.ParseID(c, "id", "bill")
	if !ok {
		return
	}
	detail, err := h.svc.Get(c.Request.Context(), handler.LabID(c), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, detail)
}

func (h *Handler) Create(c *gin.Context) {
	var req model.CreateBillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithBindError(c, err)
		return
	}

	detail, err := h.svc.Create(c.Request.Context(), handler.LabID(c), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, http.StatusCreated, detail, "bill created")
}

func (h *Handler) Pay(c *gin.Context) {
	id, ok := handler.ParseID(c, "id", "bill")
	if !ok {
		return
	}
	b, err := h.svc.MarkPaid(c.Request.Context(), handler.LabID(c), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, http.StatusOK, b, "bill marked as paid")
}

func (h *Handler) Delete(c *gin.Context) {
	id, ok := handler.ParseID(c, "id", "bill")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), handler.LabID(c), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, http.StatusOK, nil, "bill deleted")
}

func (h *Handler) Restore(c *gin.Context) {
	id, ok := handler.ParseID(c, "id", "bill")
	if !ok {
		return
	}
	b, err := h.svc.Restore(c.Request.Context(), handler.LabID(c), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, http.StatusOK, b, "bill restored")
}
