package doctor

import (
	"context"
	"strings"

	"github.com/jwalitptl/lab-api/internal/model"
	"github.com/jwalitptl/lab-api/internal/repository"
	"github.com/jwalitptl/lab-api/internal/service/audit"
	"github.com/jwalitptl/lab-api/internal/service/tenant"
	"github.com/jwalitptl/lab-api/pkg/validator"
)

// Service manages the lab's referring doctors. Registration numbers are
// unique within a lab.
type Service struct {
	*tenant.Service[model.Doctor, *model.Doctor]
}

func NewService(store repository.TenantStore[model.Doctor], v validator.Validator, auditor audit.Recorder) *Service {
	return &Service{tenant.New[model.Doctor](store, tenant.Config[model.Doctor]{
		Resource: model.AuditEntityDoctor,
		Unique: []tenant.UniqueRule[model.Doctor]{{
			Scope: repository.ScopeTenant,
			Columns: func(d *model.Doctor) map[string]interface{} {
				return map[string]interface{}{"registration_number": d.RegistrationNumber}
			},
			Message: "a doctor with this registration number already exists",
		}},
	}, v, auditor)}
}

func (s *Service) CreateFrom(ctx context.Context, labID int64, req *model.CreateDoctorRequest) (*model.Doctor, error) {
	return s.Create(ctx, labID, &model.Doctor{
		Name:               strings.TrimSpace(req.Name),
		RegistrationNumber: strings.TrimSpace(req.RegistrationNumber),
		Specialization:     req.Specialization,
		Phone:              req.Phone,
		Email:              strings.ToLower(strings.TrimSpace(req.Email)),
		Hospital:           req.Hospital,
	})
}

func (s *Service) UpdateFrom(ctx context.Context, labID, id int64, req *model.UpdateDoctorRequest) (*model.Doctor, error) {
	return s.Update(ctx, labID, id, func(d *model.Doctor) error {
		if req.Name != nil {
			d.Name = strings.TrimSpace(*req.Name)
		}
		if req.RegistrationNumber != nil {
			d.RegistrationNumber = strings.TrimSpace(*req.RegistrationNumber)
		}
		if req.Specialization != nil {
			d.Specialization = *req.Specialization
		}
		if req.Phone != nil {
			d.Phone = *req.Phone
		}
		if req.Email != nil {
			d.Email = strings.ToLower(strings.TrimSpace(*req.Email))
		}
		if req.Hospital != nil {
			d.Hospital = *req.Hospital
		}
		return nil
	})
}
