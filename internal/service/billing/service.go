// Package billing creates and settles patient bills. A bill and the
// patient tests it orders are written together or not at all.
package billing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/lab-api/internal/email"
	"github.com/jwalitptl/lab-api/internal/model"
	"github.com/jwalitptl/lab-api/internal/repository"
	"github.com/jwalitptl/lab-api/internal/service/audit"
	"github.com/jwalitptl/lab-api/internal/service/catalog"
	"github.com/jwalitptl/lab-api/internal/service/doctor"
	"github.com/jwalitptl/lab-api/internal/service/patient"
	"github.com/jwalitptl/lab-api/internal/service/tenant"
	apperrors "github.com/jwalitptl/lab-api/pkg/errors"
	"github.com/jwalitptl/lab-api/pkg/validator"
)

const invoiceAttempts = 5

// Service manages bills.
type Service struct {
	bills    *tenant.Service[model.Bill, *model.Bill]
	repo     repository.BillRepository
	tests    *catalog.TestService
	patients *patient.Service
	doctors  *doctor.Service
	labs     repository.LabRepository
	mailer   email.Service
	validate validator.Validator
	auditor  audit.Recorder
	now      func() time.Time
}

// Deps groups the collaborators of a billing Service.
type Deps struct {
	Bills    repository.BillRepository
	Tests    *catalog.TestService
	Patients *patient.Service
	Doctors  *doctor.Service
	Labs     repository.LabRepository
	Mailer   email.Service
	Auditor  audit.Recorder
}

func NewService(d Deps, v validator.Validator) *Service {
	if d.Auditor == nil {
		d.Auditor = audit.Nop{}
	}
	if d.Mailer == nil {
		d.Mailer = email.LogService{}
	}
	return &Service{
		bills:    tenant.New[model.Bill](d.Bills, tenant.Config[model.Bill]{Resource: model.AuditEntityBill}, v, d.Auditor),
		repo:     d.Bills,
		tests:    d.Tests,
		patients: d.Patients,
		doctors:  d.Doctors,
		labs:     d.Labs,
		mailer:   d.Mailer,
		validate: v,
		auditor:  d.Auditor,
		now:      time.Now,
	}
}

// Totals is the arithmetic of one bill.
type Totals struct {
	Subtotal       float64
	DiscountAmount float64
	TaxAmount      float64
	Total          float64
}

// ComputeTotals applies the discount to the subtotal and the tax to the
// discounted amount. Every figure is rounded to 2 decimals.
func ComputeTotals(prices []float64, discountPercent, taxPercent float64) Totals {
	var subtotal float64
	for _, p := range prices {
		subtotal += p
	}
	afterDiscount := subtotal * (1 - discountPercent/100)
	total := afterDiscount * (1 + taxPercent/100)

	return Totals{
		Subtotal:       round2(subtotal),
		DiscountAmount: round2(subtotal - afterDiscount),
		TaxAmount:      round2(total - afterDiscount),
		Total:          round2(total),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Create bills patientID for the requested tests and orders one pending
// patient test per test id.
func (s *Service) Create(ctx context.Context, labID int64, req *model.CreateBillRequest) (*model.BillDetail, error) {
	if err := s.validate.Validate(req); err != nil {
		return nil, apperrors.Validation(err.Error(), err)
	}

	pat, err := s.patients.Get(ctx, labID, req.PatientID)
	if err != nil {
		return nil, err
	}
	if req.DoctorID != nil {
		if err := s.doctors.Exists(ctx, labID, *req.DoctorID); err != nil {
			return nil, err
		}
	}
	tests, err := s.tests.GetMany(ctx, labID, req.TestIDs)
	if err != nil {
		return nil, err
	}

	prices := make([]float64, len(tests))
	for i, t := range tests {
		prices[i] = t.Price
	}
	totals := ComputeTotals(prices, req.DiscountPercent, req.TaxPercent)

	invoice, err := s.nextInvoiceNumber(ctx)
	if err != nil {
		return nil, err
	}

	bill := &model.Bill{
		TenantBase:      model.TenantBase{LabID: labID},
		PatientID:       pat.ID,
		DoctorID:        req.DoctorID,
		InvoiceNumber:   invoice,
		Subtotal:        totals.Subtotal,
		DiscountPercent: req.DiscountPercent,
		DiscountAmount:  totals.DiscountAmount,
		TaxPercent:      req.TaxPercent,
		TaxAmount:       totals.TaxAmount,
		Total:           totals.Total,
	}

	ordered := make([]*model.PatientTest, len(tests))
	for i, t := range tests {
		ordered[i] = &model.PatientTest{
			TenantBase: model.TenantBase{LabID: labID},
			PatientID:  pat.ID,
			TestID:     t.ID,
			DoctorID:   req.DoctorID,
			Status:     model.PatientTestPending,
			Price:      t.Price,
		}
	}

	if err := s.repo.CreateWithTests(ctx, bill, ordered); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.Conflict("invoice number collision, please retry", err)
		}
		return nil, apperrors.Internal(fmt.Errorf("failed to create bill: %w", err))
	}

	s.auditor.Record(ctx, labID, model.AuditActionCreate, model.AuditEntityBill, bill.ID, model.JSONMap{
		"invoiceNumber": bill.InvoiceNumber,
		"patientId":     bill.PatientID,
		"tests":         len(ordered),
		"total":         bill.Total,
	})

	s.sendInvoice(ctx, pat, bill, tests)
	return &model.BillDetail{Bill: bill, Tests: ordered}, nil
}

func (s *Service) nextInvoiceNumber(ctx context.Context) (string, error) {
	for i := 0; i < invoiceAttempts; i++ {
		candidate := fmt.Sprintf("INV-%s-%s", s.now().UTC().Format("20060102"),
			strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8]))
		taken, err := s.repo.InvoiceExists(ctx, candidate)
		if err != nil {
			return "", apperrors.Internal(err)
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", apperrors.Internal(errors.New("could not allocate an invoice number"))
}

// sendInvoice mails the patient after the bill is stored. Failures are
// logged and never undo the bill.
func (s *Service) sendInvoice(ctx context.Context, pat *model.Patient, bill *model.Bill, tests []*model.Test) {
	if pat.Email == "" {
		return
	}

	labName := ""
	if s.labs != nil {
		if lab, err := s.labs.Get(ctx, bill.LabID); err == nil {
			labName = lab.Name
		}
	}

	lines := make([]email.InvoiceLine, len(tests))
	for i, t := range tests {
		lines[i] = email.InvoiceLine{Name: t.Name, Price: t.Price}
	}

	inv := email.Invoice{
		To:              pat.Email,
		PatientName:     pat.Name,
		LabName:         labName,
		InvoiceNumber:   bill.InvoiceNumber,
		Lines:           lines,
		Subtotal:        bill.Subtotal,
		DiscountPercent: bill.DiscountPercent,
		DiscountAmount:  bill.DiscountAmount,
		TaxPercent:      bill.TaxPercent,
		TaxAmount:       bill.TaxAmount,
		Total:           bill.Total,
	}
	if err := s.mailer.SendInvoice(context.WithoutCancel(ctx), inv); err != nil {
		log.Error().Err(err).
			Int64("lab_id", bill.LabID).
			Str("invoice", bill.InvoiceNumber).
			Msg("Failed to send invoice email")
	}
}

func (s *Service) List(ctx context.Context, labID int64, q model.ListQuery) (*model.Page[model.Bill], error) {
	return s.bills.List(ctx, labID, q)
}

// Get returns the bill with the tests it ordered.
func (s *Service) Get(ctx context.Context, labID, id int64) (*model.BillDetail, error) {
	bill, err := s.bills.Get(ctx, labID, id)
	if err != nil {
		return nil, err
	}
	tests, err := s.repo.ListTests(ctx, labID, bill.ID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return &model.BillDetail{Bill: bill, Tests: tests}, nil
}

// MarkPaid settles a bill once.
func (s *Service) MarkPaid(ctx context.Context, labID, id int64) (*model.Bill, error) {
	if _, err := s.bills.Get(ctx, labID, id); err != nil {
		return nil, err
	}

	if err := s.repo.MarkPaid(ctx, labID, id, s.now()); err != nil {
		if errors.Is(err, repository.ErrInvalidTransition) {
			return nil, apperrors.Validation("bill is already paid", err)
		}
		return nil, apperrors.Internal(err)
	}

	s.auditor.Record(ctx, labID, model.AuditActionPay, model.AuditEntityBill, id, nil)
	return s.bills.Get(ctx, labID, id)
}

func (s *Service) Delete(ctx context.Context, labID, id int64) error {
	return s.bills.Delete(ctx, labID, id)
}

func (s *Service) Restore(ctx context.Context, labID, id int64) (*model.Bill, error) {
	return s.bills.Restore(ctx, labID, id)
}

