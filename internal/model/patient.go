package model

// Patient gender values
const (
	GenderMale   = "male"
	GenderFemale = "female"
	GenderOther  = "other"
)

type Patient struct {
	TenantBase
	Name    string `json:"name" db:"name" validate:"required,max=120"`
	Age     int    `json:"age" db:"age" validate:"gte=0,lte=150"`
	Gender  string `json:"gender" db:"gender" validate:"required,oneof=male female other"`
	Phone   string `json:"phone" db:"phone" validate:"max=30"`
	Email   string `json:"email" db:"email" validate:"omitempty,email"`
	Address string `json:"address" db:"address" validate:"max=500"`
}

type CreatePatientRequest struct {
	Name    string `json:"name" binding:"required,max=120"`
	Age     int    `json:"age" binding:"gte=0,lte=150"`
	Gender  string `json:"gender" binding:"required,oneof=male female other"`
	Phone   string `json:"phone" binding:"max=30"`
	Email   string `json:"email" binding:"omitempty,email"`
	Address string `json:"address" binding:"max=500"`
}

type UpdatePatientRequest struct {
	Name    *string `json:"name" binding:"omitempty,max=120"`
	Age     *int    `json:"age" binding:"omitempty,gte=0,lte=150"`
	Gender  *string `json:"gender" binding:"omitempty,oneof=male female other"`
	Phone   *string `json:"phone" binding:"omitempty,max=30"`
	Email   *string `json:"email" binding:"omitempty,email"`
	Address *string `json:"address" binding:"omitempty,max=500"`
}
