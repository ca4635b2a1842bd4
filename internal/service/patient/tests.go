package patient

import (
	"context"

	"github.com/jwalitptl/lab-api/internal/model"
	"github.com/jwalitptl/lab-api/internal/repository"
	"github.com/jwalitptl/lab-api/internal/service/tenant"
	"github.com/jwalitptl/lab-api/pkg/validator"
)

// TestService reads the tests ordered for patients. Rows are created by
// billing and change status through result submission only.
type TestService struct {
	svc      *tenant.Service[model.PatientTest, *model.PatientTest]
	patients *Service
}

func NewTestService(store repository.TenantStore[model.PatientTest], patients *Service, v validator.Validator) *TestService {
	return &TestService{
		svc: tenant.New[model.PatientTest](store, tenant.Config[model.PatientTest]{
			Resource: model.AuditEntityPatientTest,
		}, v, nil),
		patients: patients,
	}
}

func (s *TestService) List(ctx context.Context, labID int64, q model.ListQuery) (*model.Page[model.PatientTest], error) {
	return s.svc.List(ctx, labID, q)
}

// ListForPatient returns the tests of one patient of labID.
func (s *TestService) ListForPatient(ctx context.Context, labID, patientID int64, q model.ListQuery) (*model.Page[model.PatientTest], error) {
	if err := s.patients.Exists(ctx, labID, patientID); err != nil {
		return nil, err
	}
	return s.svc.List(ctx, labID, q.Filter("patient_id", patientID))
}

func (s *TestService) Get(ctx context.Context, labID, id int64) (*model.PatientTest, error) {
	return s.svc.Get(ctx, labID, id)
}

func (s *TestService) Exists(ctx context.Context, labID, id int64) error {
	return s.svc.Exists(ctx, labID, id)
}
