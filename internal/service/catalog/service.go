// Package catalog manages the lab's orderable tests and the parameters
// reported for each of them.
package catalog

import (
	"context"
	"strings"

	"github.com/jwalitptl/lab-api/internal/model"
	"github.com/jwalitptl/lab-api/internal/repository"
	"github.com/jwalitptl/lab-api/internal/service/audit"
	"github.com/jwalitptl/lab-api/internal/service/tenant"
	"github.com/jwalitptl/lab-api/pkg/validator"
)

// TestService manages catalog tests. Test names are unique within a lab.
type TestService struct {
	*tenant.Service[model.Test, *model.Test]
}

func NewTestService(store repository.TenantStore[model.Test], v validator.Validator, auditor audit.Recorder) *TestService {
	return &TestService{tenant.New[model.Test](store, tenant.Config[model.Test]{
		Resource: model.AuditEntityTest,
		Unique: []tenant.UniqueRule[model.Test]{{
			Scope: repository.ScopeTenant,
			Columns: func(t *model.Test) map[string]interface{} {
				return map[string]interface{}{"name": t.Name}
			},
			Message: "a test with this name already exists",
		}},
	}, v, auditor)}
}

func (s *TestService) CreateFrom(ctx context.Context, labID int64, req *model.CreateTestRequest) (*model.Test, error) {
	return s.Create(ctx, labID, &model.Test{
		Name:        strings.TrimSpace(req.Name),
		Code:        strings.ToUpper(strings.TrimSpace(req.Code)),
		Category:    strings.TrimSpace(req.Category),
		Price:       req.Price,
		SampleType:  req.SampleType,
		Description: req.Description,
	})
}

func (s *TestService) UpdateFrom(ctx context.Context, labID, id int64, req *model.UpdateTestRequest) (*model.Test, error) {
	return s.Update(ctx, labID, id, func(t *model.Test) error {
		if req.Name != nil {
			t.Name = strings.TrimSpace(*req.Name)
		}
		if req.Code != nil {
			t.Code = strings.ToUpper(strings.TrimSpace(*req.Code))
		}
		if req.Category != nil {
			t.Category = strings.TrimSpace(*req.Category)
		}
		if req.Price != nil {
			t.Price = *req.Price
		}
		if req.SampleType != nil {
			t.SampleType = *req.SampleType
		}
		if req.Description != nil {
			t.Description = *req.Description
		}
		return nil
	})
}
