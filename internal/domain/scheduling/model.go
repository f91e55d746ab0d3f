package scheduling

import (
	"time"

	"github.com/google/uuid"
)

// Status is an appointment's position in its lifecycle.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusConfirmed Status = "Confirmed"
	StatusCancelled Status = "Cancelled"
	StatusCompleted Status = "Completed"
)

// DaySlots lists the slot labels a doctor offers on one weekday.
type DaySlots struct {
	Day   string   `json:"day"`
	Slots []string `json:"slots"`
}

// WorkSchedule is a doctor's weekly availability. Each doctor has at most one.
type WorkSchedule struct {
	ID             uuid.UUID  `json:"id"`
	DoctorID       uuid.UUID  `json:"doctorId"`
	AvailableSlots []DaySlots `json:"availableSlots"`
	// Default is set on the hospital-wide fallback returned for doctors who
	// never declared hours.
	Default   bool      `json:"default,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Appointment struct {
	ID         uuid.UUID `json:"id"`
	PatientID  uuid.UUID `json:"patientId"`
	DoctorID   uuid.UUID `json:"doctorId"`
	Department string    `json:"department"`
	// AppointmentDate is the calendar day at midnight UTC.
	AppointmentDate    time.Time `json:"appointmentDate"`
	Slot               string    `json:"slot"`
	StartsAt           time.Time `json:"startsAt"`
	Reason             string    `json:"reason"`
	Status             Status    `json:"status"`
	CancellationReason *string   `json:"cancellationReason,omitempty"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// Active reports whether the appointment holds its slot.
func (a *Appointment) Active() bool { return a.Status != StatusCancelled }

// Date formats the calendar day as YYYY-MM-DD.
func (a *Appointment) Date() string { return a.AppointmentDate.Format(dateLayout) }

type Medicine struct {
	Name      string `json:"name" validate:"required"`
	Dose      string `json:"dose"`
	Frequency string `json:"frequency"`
	Duration  string `json:"duration"`
}

// DoctorNote is a clinical note a doctor writes against an appointment.
type DoctorNote struct {
	ID            uuid.UUID  `json:"id"`
	AppointmentID uuid.UUID  `json:"appointmentId"`
	DoctorID      uuid.UUID  `json:"doctorId"`
	PatientID     uuid.UUID  `json:"patientId"`
	Notes         string     `json:"notes"`
	Medicines     []Medicine `json:"medicines"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

type AppointmentFilter struct {
	PatientID  *uuid.UUID
	DoctorID   *uuid.UUID
	Department string
	Status     Status
	Date       *time.Time
}

type NoteFilter struct {
	AppointmentID *uuid.UUID
	DoctorID      *uuid.UUID
	PatientID     *uuid.UUID
}

// OpenSlots is the bookable remainder of a doctor's day.
type OpenSlots struct {
	DoctorID uuid.UUID `json:"doctorId"`
	Date     string    `json:"date"`
	Day      string    `json:"day"`
	Slots    []string  `json:"slots"`
}
