package model

// Doctor is a referring physician in the lab's directory
type Doctor struct {
	TenantBase
	Name               string `json:"name" db:"name" validate:"required,max=120"`
	RegistrationNumber string `json:"registrationNumber" db:"registration_number" validate:"required,max=60"`
	Specialization     string `json:"specialization" db:"specialization" validate:"max=120"`
	Phone              string `json:"phone" db:"phone" validate:"max=30"`
	Email              string `json:"email" db:"email" validate:"omitempty,email"`
	Hospital           string `json:"hospital" db:"hospital" validate:"max=200"`
}

type CreateDoctorRequest struct {
	Name               string `json:"name" binding:"required,max=120"`
	RegistrationNumber string `json:"registrationNumber" binding:"required,max=60"`
	Specialization     string `json:"specialization" binding:"max=120"`
	Phone              string `json:"phone" binding:"max=30"`
	Email              string `json:"email" binding:"omitempty,email"`
	Hospital           string `json:"hospital" binding:"max=200"`
}

type UpdateDoctorRequest struct {
	Name               *string `json:"name" binding:"omitempty,max=120"`
	RegistrationNumber *string `json:"registrationNumber" binding:"omitempty,max=60"`
	Specialization     *string `json:"specialization" binding:"omitempty,max=120"`
	Phone              *string `json:"phone" binding:"omitempty,max=30"`
	Email              *string `json:"email" binding:"omitempty,email"`
	Hospital           *string `json:"hospital" binding:"omitempty,max=200"`
}
