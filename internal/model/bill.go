package model

import "time"

// Bill is one invoice; its tests are PatientTest rows pointing back at it
type Bill struct {
	TenantBase
	PatientID       int64      `json:"patientId" db:"patient_id"`
	DoctorID        *int64     `json:"doctorId" db:"doctor_id"`
	InvoiceNumber   string     `json:"invoiceNumber" db:"invoice_number"`
	Subtotal        float64    `json:"subtotal" db:"subtotal"`
	DiscountPercent float64    `json:"discountPercent" db:"discount_percent"`
	DiscountAmount  float64    `json:"discountAmount" db:"discount_amount"`
	TaxPercent      float64    `json:"taxPercent" db:"tax_percent"`
	TaxAmount       float64    `json:"taxAmount" db:"tax_amount"`
	Total           float64    `json:"total" db:"total"`
	IsPaid          bool       `json:"isPaid" db:"is_paid"`
	PaidAt          *time.Time `json:"paidAt" db:"paid_at"`
}

// BillDetail is a bill with its ordered tests
type BillDetail struct {
	*Bill
	Tests []*PatientTest `json:"tests"`
}

type CreateBillRequest struct {
	PatientID       int64   `json:"patientId" binding:"required,gt=0" validate:"required,gt=0"`
	DoctorID        *int64  `json:"doctorId" binding:"omitempty,gt=0" validate:"omitempty,gt=0"`
	TestIDs         []int64 `json:"testIds" binding:"required,min=1,max=50,unique,dive,gt=0" validate:"required,min=1,max=50,unique,dive,gt=0"`
	DiscountPercent float64 `json:"discountPercent" binding:"gte=0,lte=100" validate:"gte=0,lte=100"`
	TaxPercent      float64 `json:"taxPercent" binding:"gte=0,lte=100" validate:"gte=0,lte=100"`
}
