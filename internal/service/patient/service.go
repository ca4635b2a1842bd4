package patient

import (
	"context"
	"strings"

	"github.com/jwalitptl/lab-api/internal/model"
	"github.com/jwalitptl/lab-api/internal/repository"
	"github.com/jwalitptl/lab-api/internal/service/audit"
	"github.com/jwalitptl/lab-api/internal/service/tenant"
	"github.com/jwalitptl/lab-api/pkg/validator"
)

// Service manages the lab's patient register.
type Service struct {
	*tenant.Service[model.Patient, *model.Patient]
}

func NewService(store repository.TenantStore[model.Patient], v validator.Validator, auditor audit.Recorder) *Service {
	return &Service{tenant.New[model.Patient](store, tenant.Config[model.Patient]{
		Resource: model.AuditEntityPatient,
	}, v, auditor)}
}

func (s *Service) CreateFrom(ctx context.Context, labID int64, req *model.CreatePatientRequest) (*model.Patient, error) {
	return s.Create(ctx, labID, &model.Patient{
		Name:    strings.TrimSpace(req.Name),
		Age:     req.Age,
		Gender:  strings.ToLower(req.Gender),
		Phone:   strings.TrimSpace(req.Phone),
		Email:   strings.ToLower(strings.TrimSpace(req.Email)),
		Address: req.Address,
	})
}

func (s *Service) UpdateFrom(ctx context.Context, labID, id int64, req *model.UpdatePatientRequest) (*model.Patient, error) {
	return s.Update(ctx, labID, id, func(p *model.Patient) error {
		if req.Name != nil {
			p.Name = strings.TrimSpace(*req.Name)
		}
		if req.Age != nil {
			p.Age = *req.Age
		}
		if req.Gender != nil {
			p.Gender = strings.ToLower(*req.Gender)
		}
		if req.Phone != nil {
			p.Phone = strings.TrimSpace(*req.Phone)
		}
		if req.Email != nil {
			p.Email = strings.ToLower(strings.TrimSpace(*req.Email))
		}
		if req.Address != nil {
			p.Address = *req.Address
		}
		return nil
	})
}
