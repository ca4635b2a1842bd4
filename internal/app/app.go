// Package app wires repositories into services, handlers and the router.
package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/crypto/bcrypt"

	audithandler "github.com/jwalitptl/lab-api/internal/handler/audit"
	authhandler "github.com/jwalitptl/lab-api/internal/handler/auth"
	billhandler "github.com/jwalitptl/lab-api/internal/handler/bill"
	cataloghandler "github.com/jwalitptl/lab-api/internal/handler/catalog"
	"github.com/jwalitptl/lab-api/internal/handler/crud"
	"github.com/jwalitptl/lab-api/internal/handler/health"
	labhandler "github.com/jwalitptl/lab-api/internal/handler/lab"
	"github.com/jwalitptl/lab-api/internal/handler/patienttest"
	promhandler "github.com/jwalitptl/lab-api/internal/handler/prometheus"
	"github.com/jwalitptl/lab-api/internal/email"
	"github.com/jwalitptl/lab-api/internal/middleware"
	"github.com/jwalitptl/lab-api/internal/model"
	"github.com/jwalitptl/lab-api/internal/repository"
	"github.com/jwalitptl/lab-api/internal/router"
	"github.com/jwalitptl/lab-api/internal/service/audit"
	"github.com/jwalitptl/lab-api/internal/service/auth"
	"github.com/jwalitptl/lab-api/internal/service/billing"
	"github.com/jwalitptl/lab-api/internal/service/catalog"
	"github.com/jwalitptl/lab-api/internal/service/doctor"
	"github.com/jwalitptl/lab-api/internal/service/lab"
	"github.com/jwalitptl/lab-api/internal/service/patient"
	"github.com/jwalitptl/lab-api/internal/service/result"
	"github.com/jwalitptl/lab-api/internal/service/user"
	"github.com/jwalitptl/lab-api/internal/session"
	"github.com/jwalitptl/lab-api/pkg/metrics"
	"github.com/jwalitptl/lab-api/pkg/security"
	"github.com/jwalitptl/lab-api/pkg/validator"
)

// Repositories is the storage the application runs on.
type Repositories struct {
	Users          repository.UserRepository
	Labs           repository.LabRepository
	Doctors        repository.TenantStore[model.Doctor]
	Tests          repository.TenantStore[model.Test]
	TestParameters repository.TenantStore[model.TestParameter]
	Patients       repository.TenantStore[model.Patient]
	PatientTests   repository.TenantStore[model.PatientTest]
	Bills          repository.BillRepository
	Results        repository.ResultRepository
	Audit          repository.AuditRepository
}

// Options carries everything that is not storage. Zero values are
// replaced with working defaults.
type Options struct {
	Sessions *session.Store
	Hasher   security.PasswordHasher
	Mailer   email.Service
	// Metrics and Registry are optional; without a registry /metrics is
	// not mounted.
	Metrics  *metrics.Metrics
	Registry *prometheus.Registry
	// DB is checked by the readiness probe when set.
	DB     repository.Pinger
	Cookie authhandler.CookieConfig
	Router router.RouterConfig
}

type App struct {
	Router   *router.Router
	Sessions *session.Store
	Audit    *audit.Service
}

func New(repos Repositories, opts Options) *App {
	if opts.Sessions == nil {
		opts.Sessions = session.NewStore(session.WithMetrics(opts.Metrics))
	}
	if opts.Hasher == nil {
		opts.Hasher = security.NewBcryptHasher(bcrypt.DefaultCost)
	}
	if opts.Mailer == nil {
		opts.Mailer = email.LogService{}
	}

	v := validator.New()
	auditSvc := audit.NewService(repos.Audit)

	// Services
	authSvc := auth.NewService(repos.Users, opts.Sessions, opts.Hasher, auditSvc)
	labSvc := lab.NewService(repos.Labs, repos.Users, opts.Sessions, auditSvc)
	userSvc := user.NewService(repos.Users, opts.Hasher, v, auditSvc)
	doctorSvc := doctor.NewService(repos.Doctors, v, auditSvc)
	testSvc := catalog.NewTestService(repos.Tests, v, auditSvc)
	parameterSvc := catalog.NewParameterService(repos.TestParameters, testSvc, v, auditSvc)
	patientSvc := patient.NewService(repos.Patients, v, auditSvc)
	patientTestSvc := patient.NewTestService(repos.PatientTests, patientSvc, v)
	resultSvc := result.NewService(repos.Results, patientTestSvc, parameterSvc, auditSvc)
	billingSvc := billing.NewService(billing.Deps{
		Bills:    repos.Bills,
		Tests:    testSvc,
		Patients: patientSvc,
		Doctors:  doctorSvc,
		Labs:     repos.Labs,
		Mailer:   opts.Mailer,
		Auditor:  auditSvc,
	}, v)

	// Handlers
	handlers := router.Handlers{
		Auth:   authhandler.NewHandler(authSvc, opts.Cookie),
		Lab:    labhandler.NewHandler(labSvc),
		Health: health.NewHandler(opts.DB, opts.Sessions),
		Tenant: []router.Handler{
			crud.NewHandler[model.User, model.CreateUserRequest, model.UpdateUserRequest](userSvc, crud.Options{
				Path: "/users", Resource: model.ResourceUsers, Name: "user",
				Filters: map[string]string{"role": "role"},
			}),
			crud.NewHandler[model.Doctor, model.CreateDoctorRequest, model.UpdateDoctorRequest](doctorSvc, crud.Options{
				Path: "/doctors", Resource: model.ResourceDoctors, Name: "doctor",
				Filters: map[string]string{"specialization": "specialization"},
				Purge:   true,
			}),
			crud.NewHandler[model.Test, model.CreateTestRequest, model.UpdateTestRequest](testSvc, crud.Options{
				Path: "/tests", Resource: model.ResourceTests, Name: "test",
				Filters: map[string]string{"category": "category", "sampleType": "sample_type"},
				Purge:   true,
			}),
			cataloghandler.NewParameterHandler(parameterSvc),
			crud.NewHandler[model.Patient, model.CreatePatientRequest, model.UpdatePatientRequest](patientSvc, crud.Options{
				Path: "/patients", Resource: model.ResourcePatients, Name: "patient",
				Filters: map[string]string{"gender": "gender"},
				Purge:   true,
			}),
			patienttest.NewHandler(patientTestSvc, resultSvc),
			billhandler.NewHandler(billingSvc),
			audithandler.NewHandler(auditSvc),
		},
	}
	if opts.Registry != nil {
		handlers.Metrics = promhandler.New(opts.Registry)
	}

	authMiddleware := middleware.NewAuthMiddleware(auth.NewAuthenticator(opts.Sessions, repos.Users))
	r := router.NewRouter(authMiddleware, opts.Metrics, handlers, opts.Router)
	r.Setup()

	return &App{
		Router:   r,
		Sessions: opts.Sessions,
		Audit:    auditSvc,
	}
}
