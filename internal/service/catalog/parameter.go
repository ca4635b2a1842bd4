package catalog

import (
	"context"
	"strings"

	"github.com/jwalitptl/lab-api/internal/model"
	"github.com/jwalitptl/lab-api/internal/repository"
	"github.com/jwalitptl/lab-api/internal/service/audit"
	"github.com/jwalitptl/lab-api/internal/service/tenant"
	apperrors "github.com/jwalitptl/lab-api/pkg/errors"
	"github.com/jwalitptl/lab-api/pkg/validator"
)

// ParameterService manages the parameters of catalog tests. A parameter
// always belongs to a live test of the same lab, and its name is unique
// within that test.
type ParameterService struct {
	*tenant.Service[model.TestParameter, *model.TestParameter]
	tests *TestService
}

func NewParameterService(store repository.TenantStore[model.TestParameter], tests *TestService, v validator.Validator, auditor audit.Recorder) *ParameterService {
	return &ParameterService{
		Service: tenant.New[model.TestParameter](store, tenant.Config[model.TestParameter]{
			Resource: model.AuditEntityTestParameter,
			Unique: []tenant.UniqueRule[model.TestParameter]{{
				Scope: repository.ScopeTenant,
				Columns: func(p *model.TestParameter) map[string]interface{} {
					return map[string]interface{}{"test_id": p.TestID, "name": p.Name}
				},
				Message: "this test already has a parameter with that name",
			}},
		}, v, auditor),
		tests: tests,
	}
}

// ListForTest returns the parameters of one test in report order.
func (s *ParameterService) ListForTest(ctx context.Context, labID, testID int64, q model.ListQuery) (*model.Page[model.TestParameter], error) {
	if err := s.tests.Exists(ctx, labID, testID); err != nil {
		return nil, err
	}
	if q.Sort == "" {
		q.Sort = "sortOrder"
		if q.Order == "" {
			q.Order = model.SortAsc
		}
	}
	return s.List(ctx, labID, q.Filter("test_id", testID))
}

// ListAllForTest walks every page of the test's parameters.
func (s *ParameterService) ListAllForTest(ctx context.Context, labID, testID int64) ([]*model.TestParameter, error) {
	q := model.ListQuery{Limit: model.MaxPageSize}
	var all []*model.TestParameter
	for {
		page, err := s.ListForTest(ctx, labID, testID, q)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Items...)
		q.Offset += len(page.Items)
		if len(page.Items) == 0 || int64(q.Offset) >= page.Total {
			return all, nil
		}
	}
}

func (s *ParameterService) CreateFor(ctx context.Context, labID, testID int64, req *model.CreateParameterRequest) (*model.TestParameter, error) {
	if err := s.tests.Exists(ctx, labID, testID); err != nil {
		return nil, err
	}
	p := &model.TestParameter{
		TestID:        testID,
		Name:          strings.TrimSpace(req.Name),
		Unit:          req.Unit,
		ReferenceMin:  req.ReferenceMin,
		ReferenceMax:  req.ReferenceMax,
		ReferenceText: req.ReferenceText,
		SortOrder:     req.SortOrder,
	}
	if err := checkRange(p); err != nil {
		return nil, err
	}
	return s.Create(ctx, labID, p)
}

func (s *ParameterService) UpdateFrom(ctx context.Context, labID, id int64, req *model.UpdateParameterRequest) (*model.TestParameter, error) {
	return s.Update(ctx, labID, id, func(p *model.TestParameter) error {
		if req.Name != nil {
			p.Name = strings.TrimSpace(*req.Name)
		}
		if req.Unit != nil {
			p.Unit = *req.Unit
		}
		if req.ReferenceMin != nil {
			p.ReferenceMin = req.ReferenceMin
		}
		if req.ReferenceMax != nil {
			p.ReferenceMax = req.ReferenceMax
		}
		if req.ReferenceText != nil {
			p.ReferenceText = *req.ReferenceText
		}
		if req.SortOrder != nil {
			p.SortOrder = *req.SortOrder
		}
		return checkRange(p)
	})
}

// Restore brings a parameter back only while its test is live.
func (s *ParameterService) Restore(ctx context.Context, labID, id int64) (*model.TestParameter, error) {
	p, err := s.GetDeleted(ctx, labID, id)
	if err != nil {
		return nil, err
	}
	if err := s.tests.Exists(ctx, labID, p.TestID); err != nil {
		return nil, err
	}
	return s.Service.Restore(ctx, labID, id)
}

func checkRange(p *model.TestParameter) error {
	if p.ReferenceMin != nil && p.ReferenceMax != nil && *p.ReferenceMin > *p.ReferenceMax {
		return apperrors.Validation("referenceMin must not exceed referenceMax", nil)
	}
	return nil
}
