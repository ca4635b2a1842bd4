package model

// Test is an orderable investigation in the lab's catalog
type Test struct {
	TenantBase
	Name        string  `json:"name" db:"name" validate:"required,max=200"`
	Code        string  `json:"code" db:"code" validate:"max=30"`
	Category    string  `json:"category" db:"category" validate:"max=100"`
	Price       float64 `json:"price" db:"price" validate:"gte=0,lte=10000000"`
	SampleType  string  `json:"sampleType" db:"sample_type" validate:"max=60"`
	Description string  `json:"description" db:"description" validate:"max=2000"`
}

type CreateTestRequest struct {
	Name        string  `json:"name" binding:"required,max=200"`
	Code        string  `json:"code" binding:"max=30"`
	Category    string  `json:"category" binding:"max=100"`
	Price       float64 `json:"price" binding:"gte=0,lte=10000000"`
	SampleType  string  `json:"sampleType" binding:"max=60"`
	Description string  `json:"description" binding:"max=2000"`
}

type UpdateTestRequest struct {
	Name        *string  `json:"name" binding:"omitempty,max=200"`
	Code        *string  `json:"code" binding:"omitempty,max=30"`
	Category    *string  `json:"category" binding:"omitempty,max=100"`
	Price       *float64 `json:"price" binding:"omitempty,gte=0,lte=10000000"`
	SampleType  *string  `json:"sampleType" binding:"omitempty,max=60"`
	Description *string  `json:"description" binding:"omitempty,max=2000"`
}

// TestParameter is one measured value reported for a Test
type TestParameter struct {
	TenantBase
	TestID        int64    `json:"testId" db:"test_id" validate:"required,gt=0"`
	Name          string   `json:"name" db:"name" validate:"required,max=120"`
	Unit          string   `json:"unit" db:"unit" validate:"max=30"`
	ReferenceMin  *float64 `json:"referenceMin" db:"reference_min"`
	ReferenceMax  *float64 `json:"referenceMax" db:"reference_max"`
	ReferenceText string   `json:"referenceText" db:"reference_text" validate:"max=200"`
	SortOrder     int      `json:"sortOrder" db:"sort_order" validate:"gte=0"`
}

type CreateParameterRequest struct {
	Name          string   `json:"name" binding:"required,max=120"`
	Unit          string   `json:"unit" binding:"max=30"`
	ReferenceMin  *float64 `json:"referenceMin"`
	ReferenceMax  *float64 `json:"referenceMax"`
	ReferenceText string   `json:"referenceText" binding:"max=200"`
	SortOrder     int      `json:"sortOrder" binding:"gte=0"`
}

type UpdateParameterRequest struct {
	Name          *string  `json:"name" binding:"omitempty,max=120"`
	Unit          *string  `json:"unit" binding:"omitempty,max=30"`
	ReferenceMin  *float64 `json:"referenceMin"`
	ReferenceMax  *float64 `json:"referenceMax"`
	ReferenceText *string  `json:"referenceText" binding:"omitempty,max=200"`
	SortOrder     *int     `json:"sortOrder" binding:"omitempty,gte=0"`
}
