package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	authhandler "github.com/jwalitptl/lab-api/internal/handler/auth"
	"github.com/jwalitptl/lab-api/internal/handler/health"
	labhandler "github.com/jwalitptl/lab-api/internal/handler/lab"
	promhandler "github.com/jwalitptl/lab-api/internal/handler/prometheus"
	"github.com/jwalitptl/lab-api/internal/middleware"
	"github.com/jwalitptl/lab-api/pkg/httputil"
	"github.com/jwalitptl/lab-api/pkg/metrics"
)

// Handler is a group of lab-scoped routes.
type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

// Handlers are the route groups mounted by the router. Tenant handlers are
// mounted behind RequireLab in the order given.
type Handlers struct {
	Auth    *authhandler.Handler
	Lab     *labhandler.Handler
	Health  *health.Handler
	Metrics *promhandler.Handler
	Tenant  []Handler
}

type RouterConfig struct {
	CORS      middleware.CORSConfig
	Security  middleware.SecurityConfig
	SizeLimit middleware.SizeLimitConfig
	Timeout   middleware.TimeoutConfig
	RateLimit middleware.RateLimiterConfig
}

// DefaultRouterConfig returns development defaults.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		CORS:      middleware.DefaultCORSConfig(),
		Security:  middleware.DefaultSecurityConfig(false),
		SizeLimit: middleware.DefaultSizeLimitConfig(),
		Timeout:   middleware.DefaultTimeoutConfig(),
		RateLimit: middleware.DefaultRateLimiterConfig(),
	}
}

type Router struct {
	engine *gin.Engine
	auth   *middleware.AuthMiddleware
	h      Handlers
	config RouterConfig
}

// NewRouter builds the engine with the global middleware chain. m may be
// nil, in which case request metrics are not recorded.
func NewRouter(auth *middleware.AuthMiddleware, m *metrics.Metrics, h Handlers, config RouterConfig) *Router {
	middleware.UseJSONFieldNames()

	engine := gin.New()
	engine.HandleMethodNotAllowed = true

	engine.Use(
		middleware.RequestContext(),
		middleware.Recovery(),
		middleware.Logger(),
	)
	if m != nil {
		engine.Use(middleware.Metrics(m))
	}
	engine.Use(
		middleware.CORS(config.CORS),
		middleware.SecurityHeaders(config.Security),
		middleware.SizeLimit(config.SizeLimit),
		middleware.Timeout(config.Timeout),
	)

	return &Router{
		engine: engine,
		auth:   auth,
		h:      h,
		config: config,
	}
}

// Setup mounts every route group.
func (r *Router) Setup() {
	if r.h.Health != nil {
		r.h.Health.RegisterRoutes(r.engine)
	}
	if r.h.Metrics != nil {
		r.engine.GET("/metrics", r.h.Metrics.Handler())
	}

	api := r.engine.Group("/api/v1")

	limiter := middleware.NewRateLimiter(r.config.RateLimit)
	r.h.Auth.RegisterRoutes(api, r.auth.RequireSession(), limiter.RateLimit())
	r.h.Lab.RegisterRoutes(api, r.auth.RequireSession(), r.auth.RequireLab())

	tenant := api.Group("")
	tenant.Use(r.auth.RequireLab())
	for _, h := range r.h.Tenant {
		h.RegisterRoutes(tenant)
	}

	r.engine.NoRoute(func(c *gin.Context) {
		httputil.RespondWithStatus(c, http.StatusNotFound, "route not found")
	})
	r.engine.NoMethod(func(c *gin.Context) {
		httputil.RespondWithStatus(c, http.StatusMethodNotAllowed, "method not allowed")
	})
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
