// Package result records the values reported for ordered tests and moves
// each patient test between pending and completed.
package result

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jwalitptl/lab-api/internal/model"
	"github.com/jwalitptl/lab-api/internal/repository"
	"github.com/jwalitptl/lab-api/internal/service/audit"
	"github.com/jwalitptl/lab-api/internal/service/catalog"
	"github.com/jwalitptl/lab-api/internal/service/patient"
	apperrors "github.com/jwalitptl/lab-api/pkg/errors"
)

type Service struct {
	repo         repository.ResultRepository
	patientTests *patient.TestService
	parameters   *catalog.ParameterService
	auditor      audit.Recorder
	now          func() time.Time
}

func NewService(repo repository.ResultRepository, patientTests *patient.TestService, parameters *catalog.ParameterService, auditor audit.Recorder) *Service {
	if auditor == nil {
		auditor = audit.Nop{}
	}
	return &Service{
		repo:         repo,
		patientTests: patientTests,
		parameters:   parameters,
		auditor:      auditor,
		now:          time.Now,
	}
}

// Submit stores the result of a pending patient test and completes it.
func (s *Service) Submit(ctx context.Context, labID, patientTestID int64, req *model.SubmitResultRequest) (*model.TestResult, error) {
	if len(req.Values) == 0 {
		return nil, apperrors.Validation("values are required", nil)
	}

	pt, err := s.patientTests.Get(ctx, labID, patientTestID)
	if err != nil {
		return nil, err
	}
	if pt.Status != model.PatientTestPending {
		return nil, apperrors.Validation("a result has already been submitted for this test", nil)
	}
	if err := s.checkParameters(ctx, labID, pt.TestID, req.Values); err != nil {
		return nil, err
	}

	res := &model.TestResult{
		TenantBase:    model.TenantBase{LabID: labID},
		PatientTestID: pt.ID,
		Values:        req.Values,
		Notes:         strings.TrimSpace(req.Notes),
		ReportedAt:    s.now(),
	}
	if err := s.repo.Submit(ctx, res); err != nil {
		switch {
		case errors.Is(err, repository.ErrInvalidTransition), errors.Is(err, repository.ErrDuplicate):
			return nil, apperrors.Validation("a result has already been submitted for this test", err)
		default:
			return nil, apperrors.Internal(err)
		}
	}

	s.auditor.Record(ctx, labID, model.AuditActionCreate, model.AuditEntityTestResult, res.ID, model.JSONMap{
		"patientTestId": pt.ID,
		"values":        map[string]interface{}(req.Values),
	})
	return res, nil
}

// checkParameters rejects values for parameters the test does not define.
// Tests without parameters accept any values.
func (s *Service) checkParameters(ctx context.Context, labID, testID int64, values model.JSONMap) error {
	if s.parameters == nil {
		return nil
	}
	params, err := s.parameters.ListAllForTest(ctx, labID, testID)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			// The catalog test was removed after ordering; keep the result.
			return nil
		}
		return err
	}
	if len(params) == 0 {
		return nil
	}

	known := make(map[string]bool, len(params))
	for _, p := range params {
		known[p.Name] = true
	}
	var unknown []string
	for k := range values {
		if !known[k] {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return apperrors.Validation(fmt.Sprintf("unknown parameters: %s", strings.Join(unknown, ", ")), nil)
	}
	return nil
}

func (s *Service) Get(ctx context.Context, labID, patientTestID int64) (*model.TestResult, error) {
	if err := s.patientTests.Exists(ctx, labID, patientTestID); err != nil {
		return nil, err
	}
	res, err := s.repo.GetByPatientTest(ctx, labID, patientTestID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("result", err)
		}
		return nil, apperrors.Internal(err)
	}
	return res, nil
}

// Delete removes the result and reopens the patient test.
func (s *Service) Delete(ctx context.Context, labID, patientTestID int64) error {
	existing, err := s.Get(ctx, labID, patientTestID)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, labID, patientTestID); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return apperrors.NotFound("result", err)
		case errors.Is(err, repository.ErrInvalidTransition):
			return apperrors.Validation("patient test is not completed", err)
		default:
			return apperrors.Internal(err)
		}
	}

	s.auditor.Record(ctx, labID, model.AuditActionDelete, model.AuditEntityTestResult, existing.ID, model.JSONMap{
		"patientTestId": patientTestID,
	})
	return nil
}
