package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type AvailabilityRepository interface {
	// Upsert stores ws as the doctor's only schedule, replacing any other.
	Upsert(ctx context.Context, ws *WorkSchedule) error
	GetByID(ctx context.Context, id uuid.UUID) (*WorkSchedule, error)
	GetByDoctor(ctx context.Context, doctorID uuid.UUID) (*WorkSchedule, error)
	List(ctx context.Context, limit, offset int) ([]*WorkSchedule, int, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type AppointmentRepository interface {
	// Create fails with a Conflict when an active appointment already holds
	// the doctor's slot.
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	// Update writes a only while the stored status still equals from, and
	// reports NotFound otherwise.
	Update(ctx context.Context, a *Appointment, from Status) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f AppointmentFilter, limit, offset int) ([]*Appointment, int, error)
	// BookedSlots lists the slots active appointments hold on a doctor's day.
	BookedSlots(ctx context.Context, doctorID uuid.UUID, day time.Time) ([]string, error)
	// ListDue returns appointments in status starting in [from, to), soonest
	// first.
	ListDue(ctx context.Context, status Status, from, to time.Time, limit int) ([]*Appointment, error)
}

type NoteRepository interface {
	Create(ctx context.Context, n *DoctorNote) error
	GetByID(ctx context.Context, id uuid.UUID) (*DoctorNote, error)
	Update(ctx context.Context, n *DoctorNote) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f NoteFilter, limit, offset int) ([]*DoctorNote, int, error)
}
