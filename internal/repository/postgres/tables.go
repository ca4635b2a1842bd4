package postgres

import (
	"github.com/jwalitptl/lab-api/internal/model"
	"github.com/jwalitptl/lab-api/internal/repository"
)

var (
	UserTable = Table{
		Name:    "users",
		Columns: []string{"name", "email", "password_hash", "role", "is_admin", "permissions", "has_completed_setup"},
		Search:  []string{"name", "email"},
		Sort: map[string]string{
			"name":      "name",
			"email":     "email",
			"role":      "role",
			"createdAt": "created_at",
		},
		Filters: []string{"role", "is_admin"},
	}

	DoctorTable = Table{
		Name:    "doctors",
		Columns: []string{"name", "registration_number", "specialization", "phone", "email", "hospital"},
		Search:  []string{"name", "registration_number", "specialization", "hospital"},
		Sort: map[string]string{
			"name":           "name",
			"specialization": "specialization",
			"createdAt":      "created_at",
		},
		Filters: []string{"specialization"},
	}

	TestTable = Table{
		Name:    "tests",
		Columns: []string{"name", "code", "category", "price", "sample_type", "description"},
		Search:  []string{"name", "code", "category"},
		Sort: map[string]string{
			"name":      "name",
			"code":      "code",
			"category":  "category",
			"price":     "price",
			"createdAt": "created_at",
		},
		Filters: []string{"category", "sample_type"},
	}

	TestParameterTable = Table{
		Name:    "test_parameters",
		Columns: []string{"test_id", "name", "unit", "reference_min", "reference_max", "reference_text", "sort_order"},
		Search:  []string{"name"},
		Sort: map[string]string{
			"sortOrder": "sort_order",
			"name":      "name",
			"createdAt": "created_at",
		},
		DefaultSort: "sort_order",
		Filters:     []string{"test_id"},
	}

	PatientTable = Table{
		Name:    "patients",
		Columns: []string{"name", "age", "gender", "phone", "email", "address"},
		Search:  []string{"name", "phone", "email"},
		Sort: map[string]string{
			"name":      "name",
			"age":       "age",
			"createdAt": "created_at",
		},
		Filters: []string{"gender"},
	}

	PatientTestTable = Table{
		Name:    "patient_tests",
		Columns: []string{"patient_id", "test_id", "doctor_id", "bill_id", "status", "price"},
		Sort: map[string]string{
			"status":    "status",
			"createdAt": "created_at",
		},
		Filters: []string{"patient_id", "test_id", "doctor_id", "bill_id", "status"},
	}

	TestResultTable = Table{
		Name:    "test_results",
		Columns: []string{"patient_test_id", "result_values", "notes", "reported_at"},
		Sort: map[string]string{
			"reportedAt": "reported_at",
			"createdAt":  "created_at",
		},
		Filters: []string{"patient_test_id"},
	}

	BillTable = Table{
		Name: "bills",
		Columns: []string{
			"patient_id", "doctor_id", "invoice_number", "subtotal",
			"discount_percent", "discount_amount", "tax_percent", "tax_amount",
			"total", "is_paid", "paid_at",
		},
		Search: []string{"invoice_number"},
		Sort: map[string]string{
			"invoiceNumber": "invoice_number",
			"total":         "total",
			"createdAt":     "created_at",
		},
		Filters: []string{"patient_id", "doctor_id", "is_paid"},
	}
)

// Stores bundles every repository the services need.
type Stores struct {
	Base           BaseRepository
	Users          repository.UserRepository
	Labs           repository.LabRepository
	Doctors        repository.TenantStore[model.Doctor]
	Tests          repository.TenantStore[model.Test]
	TestParameters repository.TenantStore[model.TestParameter]
	Patients       repository.TenantStore[model.Patient]
	PatientTests   repository.TenantStore[model.PatientTest]
	Bills          repository.BillRepository
	Results        repository.ResultRepository
	Audit          repository.AuditRepository
}

func NewStores(base BaseRepository) *Stores {
	patientTests := NewTenantTable[model.PatientTest](base, PatientTestTable)
	return &Stores{
		Base:           base,
		Users:          NewUserRepository(base),
		Labs:           NewLabRepository(base),
		Doctors:        NewTenantTable[model.Doctor](base, DoctorTable),
		Tests:          NewTenantTable[model.Test](base, TestTable),
		TestParameters: NewTenantTable[model.TestParameter](base, TestParameterTable),
		Patients:       NewTenantTable[model.Patient](base, PatientTable),
		PatientTests:   patientTests,
		Bills:          NewBillRepository(base, patientTests),
		Results:        NewResultRepository(base),
		Audit:          NewAuditRepository(base),
	}
}
