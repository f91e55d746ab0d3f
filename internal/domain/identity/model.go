package identity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleDoctor  Role = "doctor"
	RolePatient Role = "patient"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleDoctor, RolePatient:
		return true
	}
	return false
}

// Departments is the fixed set of hospital specialties, in display order.
var Departments = []string{
	"Cardiology",
	"General Medicine",
	"Dental",
	"Pediatrics",
	"Orthopedics",
	"Dermatology",
	"Neurology",
	"Gynecology",
}

func IsDepartment(name string) bool {
	for _, d := range Departments {
		if d == name {
			return true
		}
	}
	return false
}

// User is an account that can log in. PasswordHash never leaves the service.
type User struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// NormalizeEmail is the canonical form emails are stored and looked up in.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type Patient struct {
	ID             uuid.UUID  `json:"id"`
	UserID         uuid.UUID  `json:"userId"`
	Name           string     `json:"name"`
	Email          string     `json:"email"`
	DateOfBirth    *time.Time `json:"dateOfBirth,omitempty"`
	Gender         *string    `json:"gender,omitempty"`
	PhoneNumber    *string    `json:"phoneNumber,omitempty"`
	Address        *string    `json:"address,omitempty"`
	MedicalHistory string     `json:"medicalHistory"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

var validGenders = map[string]bool{"Male": true, "Female": true}

// MedicalStaff is a doctor's hospital profile. Name comes from the linked
// user.
type MedicalStaff struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"userId"`
	Name        string    `json:"name"`
	Department  string    `json:"department"`
	PhoneNumber *string   `json:"phoneNumber,omitempty"`
	Email       string    `json:"email"`
	Bio         *string   `json:"bio,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// AuthResult is returned by register and login.
type AuthResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      *User     `json:"user"`
}

type UserFilter struct {
	Role  Role
	Query string
}

type PatientFilter struct {
	Query  string
	Gender string
}

type StaffFilter struct {
	Department string
	Query      string
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
