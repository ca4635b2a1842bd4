package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/lab-api/internal/app"
	"github.com/jwalitptl/lab-api/internal/config"
	"github.com/jwalitptl/lab-api/internal/email"
	authhandler "github.com/jwalitptl/lab-api/internal/handler/auth"
	"github.com/jwalitptl/lab-api/internal/middleware"
	"github.com/jwalitptl/lab-api/internal/repository/postgres"
	"github.com/jwalitptl/lab-api/internal/router"
	"github.com/jwalitptl/lab-api/internal/session"
	"github.com/jwalitptl/lab-api/internal/worker"
	"github.com/jwalitptl/lab-api/pkg/logger"
	"github.com/jwalitptl/lab-api/pkg/metrics"
	"github.com/jwalitptl/lab-api/pkg/security"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger.Setup(logger.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
	})
	gin.SetMode(cfg.Server.Mode)

	registry := prometheus.NewRegistry()
	m := metrics.NewMetrics(registry, "lab_api")

	// Initialize database
	connectCtx, cancelConnect := context.WithTimeout(context.Background(), 10*time.Second)
	db, err := postgres.NewDB(connectCtx, cfg.Database.URL, postgres.PoolConfig{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	cancelConnect()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	base := postgres.NewBaseRepository(db, m)
	stores := postgres.NewStores(base)
	sessions := session.NewStore(session.WithMetrics(m))

	routerCfg := router.DefaultRouterConfig()
	routerCfg.CORS.AllowOrigins = cfg.CORS.AllowOrigins
	routerCfg.Security = middleware.DefaultSecurityConfig(cfg.Cookie.Secure)
	routerCfg.SizeLimit.MaxBodySize = cfg.Server.MaxBodyBytes
	routerCfg.Timeout.Duration = cfg.Server.RequestTimeout
	routerCfg.RateLimit.Rate = rate.Limit(cfg.RateLimit.RequestsPerMinute / 60)
	routerCfg.RateLimit.Burst = cfg.RateLimit.Burst

	application := app.New(app.Repositories{
		Users:          stores.Users,
		Labs:           stores.Labs,
		Doctors:        stores.Doctors,
		Tests:          stores.Tests,
		TestParameters: stores.TestParameters,
		Patients:       stores.Patients,
		PatientTests:   stores.PatientTests,
		Bills:          stores.Bills,
		Results:        stores.Results,
		Audit:          stores.Audit,
	}, app.Options{
		Sessions: sessions,
		Hasher:   security.NewBcryptHasher(bcrypt.DefaultCost),
		Mailer: email.New(email.SMTPConfig{
			Host:        cfg.SMTP.Host,
			Port:        cfg.SMTP.Port,
			Username:    cfg.SMTP.Username,
			Password:    cfg.SMTP.Password,
			FromAddress: cfg.SMTP.FromAddress,
			FromName:    cfg.SMTP.FromName,
		}),
		Metrics:  m,
		Registry: registry,
		DB:       &base,
		Cookie: authhandler.CookieConfig{
			Secure: cfg.Cookie.Secure,
			Domain: cfg.Cookie.Domain,
		},
		Router: routerCfg,
	})

	// Background workers
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()
	go worker.NewSessionSweeper(sessions, cfg.Session.SweepInterval).Start(workerCtx)
	go worker.NewAuditCleanupWorker(application.Audit, cfg.Audit.RetentionDays, cfg.Audit.CleanupInterval).Start(workerCtx)

	// Create server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           application.Router.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server
	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	stopWorkers()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}
