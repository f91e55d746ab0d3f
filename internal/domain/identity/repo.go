package identity

import (
	"context"

	"github.com/google/uuid"
)

type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f UserFilter, limit, offset int) ([]*User, int, error)
	// FindByName returns users of role whose name contains fragment,
	// case-insensitively, oldest first.
	FindByName(ctx context.Context, fragment string, role Role) ([]*User, error)
}

type PatientRepository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f PatientFilter, limit, offset int) ([]*Patient, int, error)
}

type StaffRepository interface {
	Create(ctx context.Context, s *MedicalStaff) error
	GetByID(ctx context.Context, id uuid.UUID) (*MedicalStaff, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*MedicalStaff, error)
	Update(ctx context.Context, s *MedicalStaff) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f StaffFilter, limit, offset int) ([]*MedicalStaff, int, error)
}
