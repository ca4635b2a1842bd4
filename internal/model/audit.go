package model

import "time"

// AuditEntry records one mutation made through a lab-scoped service
type AuditEntry struct {
	ID         int64     `json:"id" db:"id"`
	LabID      int64     `json:"labId" db:"lab_id"`
	UserID     int64     `json:"userId" db:"user_id"`
	Action     string    `json:"action" db:"action"`
	EntityType string    `json:"entityType" db:"entity_type"`
	EntityID   int64     `json:"entityId" db:"entity_id"`
	Changes    JSONMap   `json:"changes,omitempty" db:"changes"`
	RequestID  string    `json:"requestId,omitempty" db:"request_id"`
	IPAddress  string    `json:"ipAddress,omitempty" db:"ip_address"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
}

const (
	// Action types
	AuditActionCreate  = "create"
	AuditActionUpdate  = "update"
	AuditActionDelete  = "delete"
	AuditActionRestore = "restore"
	AuditActionPurge   = "purge"
	AuditActionPay     = "pay"
	AuditActionLogin   = "login"
	AuditActionLogout  = "logout"
	AuditActionSetup   = "setup"

	// Entity types
	AuditEntityUser          = "user"
	AuditEntityLab           = "lab"
	AuditEntityDoctor        = "doctor"
	AuditEntityTest          = "test"
	AuditEntityTestParameter = "test_parameter"
	AuditEntityPatient       = "patient"
	AuditEntityPatientTest   = "patient_test"
	AuditEntityTestResult    = "test_result"
	AuditEntityBill          = "bill"
)
