package model

import (
	"time"
)

// User represents a lab staff account. LabID stays nil until the user
// completes lab setup.
type User struct {
	ID                int64       `json:"id" db:"id"`
	LabID             *int64      `json:"labId" db:"lab_id"`
	Name              string      `json:"name" db:"name" validate:"required,max=120"`
	Email             string      `json:"email" db:"email" validate:"required,email"`
	PasswordHash      string      `json:"-" db:"password_hash"`
	Role              string      `json:"role" db:"role" validate:"required,oneof=admin manager technician receptionist"`
	IsAdmin           bool        `json:"isAdmin" db:"is_admin"`
	Permissions       Permissions `json:"permissions" db:"permissions"`
	HasCompletedSetup bool        `json:"hasCompletedSetup" db:"has_completed_setup"`
	CreatedAt         time.Time   `json:"createdAt" db:"created_at"`
	UpdatedAt         time.Time   `json:"updatedAt" db:"updated_at"`
	DeletedAt         *time.Time  `json:"deletedAt,omitempty" db:"deleted_at"`
}

func (u *User) GetID() int64   { return u.ID }
func (u *User) SetID(id int64) { u.ID = id }

func (u *User) GetLabID() int64 {
	if u.LabID == nil {
		return 0
	}
	return *u.LabID
}

func (u *User) SetLabID(labID int64) {
	u.LabID = &labID
}

func (u *User) GetDeletedAt() *time.Time  { return u.DeletedAt }
func (u *User) SetDeletedAt(t *time.Time) { u.DeletedAt = t }

func (u *User) Touch(now time.Time) {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
}

// RegisterRequest is the public sign-up payload
type RegisterRequest struct {
	Name     string `json:"name" binding:"required,max=120"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// LoginRequest represents login credentials
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// CreateUserRequest is used by lab admins to add staff
type CreateUserRequest struct {
	Name        string      `json:"name" binding:"required,max=120"`
	Email       string      `json:"email" binding:"required,email"`
	Password    string      `json:"password" binding:"required,min=8"`
	Role        string      `json:"role" binding:"required,oneof=admin manager technician receptionist"`
	Permissions Permissions `json:"permissions"`
}

// UpdateUserRequest represents user update parameters
type UpdateUserRequest struct {
	Name        *string     `json:"name" binding:"omitempty,max=120"`
	Email       *string     `json:"email" binding:"omitempty,email"`
	Role        *string     `json:"role" binding:"omitempty,oneof=admin manager technician receptionist"`
	Permissions Permissions `json:"permissions"`
}
