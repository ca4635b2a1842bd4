package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/lab-api/internal/repository"
)

// SessionCounter reports how many sessions are held in memory.
type SessionCounter interface {
	Count() int
}

type Handler struct {
	db       repository.Pinger
	sessions SessionCounter
	timeout  time.Duration
}

// NewHandler returns the probe handler. db may be nil when the service
// runs without a database, in which case readiness only reports sessions.
func NewHandler(db repository.Pinger, sessions SessionCounter) *Handler {
	return &Handler{
		db:       db,
		sessions: sessions,
		timeout:  2 * time.Second,
	}
}

func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/health/live", h.LivenessCheck)
	r.GET("/health/ready", h.ReadinessCheck)
}

func (h *Handler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "UP"})
}

func (h *Handler) ReadinessCheck(c *gin.Context) {
	body := gin.H{"status": "UP"}
	if h.sessions != nil {
		body["sessions"] = h.sessions.Count()
	}

	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			log.Warn().Err(err).Msg("Readiness check failed")
			body["status"] = "DOWN"
			body["reason"] = "Database connection failed"
			c.JSON(http.StatusServiceUnavailable, body)
			return
		}
	}
	c.JSON(http.StatusOK, body)
}
