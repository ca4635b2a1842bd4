package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/lab-api/internal/model"
	"github.com/jwalitptl/lab-api/internal/repository"
)

type resultRepository struct {
	BaseRepository
	results *TenantTable[model.TestResult, *model.TestResult]
}

func NewResultRepository(base BaseRepository) repository.ResultRepository {
	return &resultRepository{
		BaseRepository: base,
		results:        NewTenantTable[model.TestResult](base, TestResultTable),
	}
}

func (r *resultRepository) GetByPatientTest(ctx context.Context, labID, patientTestID int64) (result *model.TestResult, err error) {
	defer func(start time.Time) { r.observe("test_results", "get", start, err) }(time.Now())

	query := fmt.Sprintf(`SELECT %s FROM test_results
		WHERE patient_test_id = $1 AND lab_id = $2 AND deleted_at IS NULL`, TestResultTable.selectColumns())

	result = &model.TestResult{}
	if err = r.db.GetContext(ctx, result, query, patientTestID, labID); err != nil {
		err = mapError(err)
		return nil, err
	}
	return result, nil
}

// Submit flips the patient test to completed first so that a test that is
// not pending never gets a result row.
func (r *resultRepository) Submit(ctx context.Context, result *model.TestResult) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE patient_tests SET status = $3, updated_at = $4
			WHERE id = $1 AND lab_id = $2 AND deleted_at IS NULL AND status = $5
		`, result.PatientTestID, result.LabID, model.PatientTestCompleted, time.Now(), model.PatientTestPending)
		if err != nil {
			return fmt.Errorf("failed to complete patient test: %w", err)
		}
		if err := expectOne(res); err != nil {
			return repository.ErrInvalidTransition
		}

		return r.results.CreateTx(ctx, tx, result)
	})
}

func (r *resultRepository) Delete(ctx context.Context, labID, patientTestID int64) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			DELETE FROM test_results WHERE patient_test_id = $1 AND lab_id = $2
		`, patientTestID, labID)
		if err != nil {
			return fmt.Errorf("failed to delete result: %w", err)
		}
		if err := expectOne(res); err != nil {
			return err
		}

		res, err = tx.ExecContext(ctx, `
			UPDATE patient_tests SET status = $3, updated_at = $4
			WHERE id = $1 AND lab_id = $2 AND status = $5
		`, patientTestID, labID, model.PatientTestPending, time.Now(), model.PatientTestCompleted)
		if err != nil {
			return fmt.Errorf("failed to reopen patient test: %w", err)
		}
		if err := expectOne(res); err != nil {
			return repository.ErrInvalidTransition
		}
		return nil
	})
}
