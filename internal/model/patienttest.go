package model

import "time"

// PatientTest status values. pending -> completed on result submission,
// completed -> pending on result deletion.
const (
	PatientTestPending   = "pending"
	PatientTestCompleted = "completed"
)

// PatientTest is one test ordered for a patient, usually through a bill
type PatientTest struct {
	TenantBase
	PatientID int64   `json:"patientId" db:"patient_id" validate:"required,gt=0"`
	TestID    int64   `json:"testId" db:"test_id" validate:"required,gt=0"`
	DoctorID  *int64  `json:"doctorId" db:"doctor_id"`
	BillID    *int64  `json:"billId" db:"bill_id"`
	Status    string  `json:"status" db:"status" validate:"required,oneof=pending completed"`
	Price     float64 `json:"price" db:"price" validate:"gte=0"`
}

// TestResult holds the reported values for one PatientTest
type TestResult struct {
	TenantBase
	PatientTestID int64     `json:"patientTestId" db:"patient_test_id" validate:"required,gt=0"`
	Values        JSONMap   `json:"values" db:"result_values" validate:"required"`
	Notes         string    `json:"notes" db:"notes" validate:"max=2000"`
	ReportedAt    time.Time `json:"reportedAt" db:"reported_at"`
}

type SubmitResultRequest struct {
	Values JSONMap `json:"values" binding:"required"`
	Notes  string  `json:"notes" binding:"max=2000"`
}
