package patienttest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/lab-api/internal/handler"
	"github.com/jwalitptl/lab-api/internal/middleware"
	"github.com/jwalitptl/lab-api/internal/model"
	"github.com/jwalitptl/lab-api/internal/service/patient"
	"github.com/jwalitptl/lab-api/internal/service/result"
	"github.com/jwalitptl/lab-api/pkg/httputil"
)

var listFilters = map[string]string{
	"patientId": "patient_id",
	"testId":    "test_id",
	"doctorId":  "doctor_id",
	"billId":    "bill_id",
	"status":    "status",
}

// Handler serves ordered tests and their results.
type Handler struct {
	tests   *patient.TestService
	results *result.Service
}

func NewHandler(tests *patient.TestService, results *result.Service) *Handler {
	return &Handler{tests: tests, results: results}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	g := r.Group("/patient-tests")
	{
		g.GET("", middleware.RequirePermission(model.ResourcePatients, model.ActionView), h.List)
		g.GET("/:id", middleware.RequirePermission(model.ResourcePatients, model.ActionView), h.Get)

		g.GET("/:id/result", middleware.RequirePermission(model.ResourceResults, model.ActionView), h.GetResult)
		g.POST("/:id/result", middleware.RequirePermission(model.ResourceResults, model.ActionCreate), h.SubmitResult)
		g.DELETE("/:id/result", middleware.RequirePermission(model.ResourceResults, model.ActionDelete), h.DeleteResult)
	}
	r.GET("/patients/:id/tests", middleware.RequirePermission(model.ResourcePatients, model.ActionView), h.ListForPatient)
}

func (h *Handler) List(c *gin.Context) {
	q, ok := handler.BindListQuery(c, listFilters)
	if !ok {
		return
	}
	page, err := h.tests.List(c.Request.Context(), handler.LabID(c), q)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	handler.RespondWithPage(c, page)
}

func (h *Handler) ListForPatient(c *gin.Context) {
	patientID, ok := handler.ParseID(c, "id", "patient")
	if !ok {
		return
	}
	q, ok := handler.BindListQuery(c, map[string]string{"status": "status"})
	if !ok {
		return
	}
	page, err := h.tests.ListForPatient(c.Request.Context(), handler.LabID(c), patientID, q)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	handler.RespondWithPage(c, page)
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := handler.ParseID(c, "id", "patient test")
	if !ok {
		return
	}
	pt, err := h.tests.Get(c.Request.Context(), handler.LabID(c), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, pt)
}

func (h *Handler) GetResult(c *gin.Context) {
	id, ok := handler.ParseID(c, "id", "patient test")
	if !ok {
		return
	}
	res, err := h.results.Get(c.Request.Context(), handler.LabID(c), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, res)
}

func (h *Handler) SubmitResult(c *gin.Context) {
	id, ok := handler.ParseID(c, "id", "patient test")
	if !ok {
		return
	}
	var req model.SubmitResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithBindError(c, err)
		return
	}

	res, err := h.results.Submit(c.Request.Context(), handler.LabID(c), id, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, http.StatusCreated, res, "result submitted")
}

func (h *Handler) DeleteResult(c *gin.Context) {
	id, ok := handler.ParseID(c, "id", "patient test")
	if !ok {
		return
	}
	if err := h.results.Delete(c.Request.Context(), handler.LabID(c), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, http.StatusOK, nil, "result deleted")
}
