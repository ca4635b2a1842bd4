package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/lab-api/internal/model"
	"github.com/jwalitptl/lab-api/internal/repository"
)

type billRepository struct {
	*TenantTable[model.Bill, *model.Bill]
	patientTests *TenantTable[model.PatientTest, *model.PatientTest]
}

func NewBillRepository(base BaseRepository, patientTests *TenantTable[model.PatientTest, *model.PatientTest]) repository.BillRepository {
	return &billRepository{
		TenantTable:  NewTenantTable[model.Bill](base, BillTable),
		patientTests: patientTests,
	}
}

// CreateWithTests inserts the bill and one patient test per entry of tests,
// all pointing back at the new bill. Nothing is written if any insert fails.
func (r *billRepository) CreateWithTests(ctx context.Context, bill *model.Bill, tests []*model.PatientTest) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := r.CreateTx(ctx, tx, bill); err != nil {
			return err
		}
		for _, pt := range tests {
			billID := bill.ID
			pt.BillID = &billID
			pt.LabID = bill.LabID
			if err := r.patientTests.CreateTx(ctx, tx, pt); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *billRepository) ListTests(ctx context.Context, labID, billID int64) ([]*model.PatientTest, error) {
	q := model.ListQuery{Sort: "createdAt", Order: model.SortAsc, Limit: model.MaxPageSize}.Filter("bill_id", billID)
	tests, _, err := r.patientTests.List(ctx, labID, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list bill tests: %w", err)
	}
	return tests, nil
}

func (r *billRepository) MarkPaid(ctx context.Context, labID, billID int64, at time.Time) (err error) {
	defer func(start time.Time) { r.observe("bills", "mark_paid", start, err) }(time.Now())

	res, err := r.db.ExecContext(ctx, `
		UPDATE bills SET is_paid = TRUE, paid_at = $3, updated_at = $3
		WHERE id = $1 AND lab_id = $2 AND deleted_at IS NULL AND is_paid = FALSE
	`, billID, labID, at)
	if err != nil {
		return fmt.Errorf("failed to mark bill paid: %w", err)
	}
	if err = expectOne(res); err != nil {
		return repository.ErrInvalidTransition
	}
	return nil
}

// InvoiceExists checks every bill, deleted or not, in every lab.
func (r *billRepository) InvoiceExists(ctx context.Context, invoiceNumber string) (exists bool, err error) {
	defer func(start time.Time) { r.observe("bills", "invoice_exists", start, err) }(time.Now())

	err = r.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM bills WHERE invoice_number = $1)`, invoiceNumber)
	if err != nil {
		return false, fmt.Errorf("failed to check invoice number: %w", err)
	}
	return exists, nil
}
