package scheduling

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tshakameya123/Kaga-Hospital/internal/domain/identity"
	"github.com/tshakameya123/Kaga-Hospital/internal/platform/events"
	"github.com/tshakameya123/Kaga-Hospital/pkg/apperrors"
)

// maxDepartmentDoctors bounds the candidates tried when auto-assigning.
const maxDepartmentDoctors = 100

// Directory looks up the patients and doctors appointments refer to.
// *identity.Service satisfies it.
type Directory interface {
	GetPatient(ctx context.Context, id uuid.UUID) (*identity.Patient, error)
	GetPatientByUserID(ctx context.Context, userID uuid.UUID) (*identity.Patient, error)
	GetStaff(ctx context.Context, id uuid.UUID) (*identity.MedicalStaff, error)
	GetStaffByUserID(ctx context.Context, userID uuid.UUID) (*identity.MedicalStaff, error)
	ListStaff(ctx context.Context, f identity.StaffFilter, limit, offset int) ([]*identity.MedicalStaff, int, error)
}

type Service struct {
	availability AvailabilityRepository
	appointments AppointmentRepository
	notes        NoteRepository
	directory    Directory
	events       *events.Emitter
	loc          *time.Location
	now          func() time.Time
	logger       zerolog.Logger
}

func NewService(avail AvailabilityRepository, appts AppointmentRepository, notes NoteRepository,
	dir Directory, emitter *events.Emitter, loc *time.Location, logger zerolog.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		availability: avail, appointments: appts, notes: notes,
		directory: dir, events: emitter, loc: loc, now: time.Now,
		logger: logger.With().Str("component", "scheduling").Logger(),
	}
}

// SetClock replaces the service's time source.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// -- Availability --

type PutAvailabilityInput struct {
	DoctorID       uuid.UUID  `json:"doctorId" validate:"required"`
	AvailableSlots []DaySlots `json:"availableSlots" validate:"dive"`
}

// PutAvailability replaces a doctor's weekly schedule.
func (s *Service) PutAvailability(ctx context.Context, in PutAvailabilityInput) (*WorkSchedule, error) {
	if in.DoctorID == uuid.Nil {
		return nil, apperrors.Validation("doctorId is required")
	}
	if _, err := s.doctor(ctx, in.DoctorID); err != nil {
		return nil, err
	}
	days, err := NormalizeDays(in.AvailableSlots)
	if err != nil {
		return nil, err
	}
	ws := &WorkSchedule{DoctorID: in.DoctorID, AvailableSlots: days}
	if err := s.availability.Upsert(ctx, ws); err != nil {
		return nil, err
	}
	s.logger.Info().Str("doctor_id", ws.DoctorID.String()).Int("days", len(days)).Msg("work schedule saved")
	return ws, nil
}

func (s *Service) GetAvailability(ctx context.Context, id uuid.UUID) (*WorkSchedule, error) {
	return s.availability.GetByID(ctx, id)
}

// EffectiveSchedule returns the doctor's declared schedule, or the hospital
// default when they have none.
func (s *Service) EffectiveSchedule(ctx context.Context, doctorID uuid.UUID) (*WorkSchedule, error) {
	ws, err := s.availability.GetByDoctor(ctx, doctorID)
	if apperrors.IsKind(err, apperrors.KindNotFound) {
		return DefaultSchedule(doctorID), nil
	}
	return ws, err
}

func (s *Service) ListAvailability(ctx context.Context, limit, offset int) ([]*WorkSchedule, int, error) {
	return s.availability.List(ctx, limit, offset)
}

func (s *Service) DeleteAvailability(ctx context.Context, id uuid.UUID) error {
	return s.availability.Delete(ctx, id)
}

// OpenSlots lists the slots a doctor still offers on a day. Slots already
// started are dropped when the day is today.
func (s *Service) OpenSlots(ctx context.Context, doctorID uuid.UUID, date string) (*OpenSlots, error) {
	day, err := ParseDate(date)
	if err != nil {
		return nil, err
	}
	if _, err := s.doctor(ctx, doctorID); err != nil {
		return nil, err
	}
	ws, err := s.EffectiveSchedule(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	booked, err := s.appointments.BookedSlots(ctx, doctorID, day)
	if err != nil {
		return nil, err
	}
	taken := make(map[string]bool, len(booked))
	for _, b := range booked {
		taken[strings.TrimSpace(b)] = true
	}

	now := s.now()
	open := []string{}
	for _, slot := range ws.SlotsOn(day.Weekday()) {
		if taken[slot] {
			continue
		}
		start, err := StartsAt(day, slot, s.loc)
		if err != nil || !start.After(now) {
			continue
		}
		open = append(open, slot)
	}
	return &OpenSlots{DoctorID: doctorID, Date: day.Format(dateLayout), Day: day.Weekday().String(), Slots: open}, nil
}

// -- Appointments --

type CreateAppointmentInput struct {
	PatientID  uuid.UUID  `json:"patientId" validate:"required"`
	DoctorID   *uuid.UUID `json:"doctorId"`
	Department string     `json:"department" validate:"required"`
	// AppointmentDate is YYYY-MM-DD or an RFC 3339 timestamp.
	AppointmentDate string `json:"appointmentDate" validate:"required"`
	Slot            string `json:"slot" validate:"omitempty,hhmm"`
	Reason          string `json:"reason" validate:"max=2000"`
	Status          Status `json:"status"`
}

// Create books an appointment. Without a doctor, the first doctor of the
// department who offers the slot and is still free gets it.
func (s *Service) Create(ctx context.Context, in CreateAppointmentInput) (*Appointment, error) {
	if in.PatientID == uuid.Nil {
		return nil, apperrors.Validation("patientId is required")
	}
	if !identity.IsDepartment(in.Department) {
		return nil, apperrors.Validation("department must be one of %s", strings.Join(identity.Departments, ", "))
	}
	status := in.Status
	if status == "" {
		status = StatusPending
	}
	if !status.Valid() {
		return nil, apperrors.Validation("invalid status %q", status)
	}
	if _, err := s.directory.GetPatient(ctx, in.PatientID); err != nil {
		if apperrors.IsKind(err, apperrors.KindNotFound) {
			return nil, apperrors.Validation("patient %s does not exist", in.PatientID)
		}
		return nil, err
	}

	day, slot, err := ResolveSlot(in.AppointmentDate, in.Slot, s.loc)
	if err != nil {
		return nil, err
	}
	startsAt, err := StartsAt(day, slot, s.loc)
	if err != nil {
		return nil, apperrors.Validation("%s", err.Error())
	}
	// Back-office imports of finished visits may lie in the past.
	if (status == StatusPending || status == StatusConfirmed) && !startsAt.After(s.now()) {
		return nil, apperrors.Validation("cannot book a slot in the past")
	}

	a := &Appointment{
		PatientID:       in.PatientID,
		Department:      in.Department,
		AppointmentDate: day,
		Slot:            slot,
		StartsAt:        startsAt,
		Reason:          strings.TrimSpace(in.Reason),
		Status:          status,
	}

	if in.DoctorID != nil && *in.DoctorID != uuid.Nil {
		err = s.bookWith(ctx, a, *in.DoctorID)
	} else {
		err = s.autoAssign(ctx, a)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("appointment_id", a.ID.String()).
		Str("doctor_id", a.DoctorID.String()).
		Str("date", a.Date()).Str("slot", a.Slot).
		Msg("appointment booked")
	s.events.Emit(ctx, events.New(events.AppointmentCreated, a.ID.String(), appointmentPayload(a)))
	return a, nil
}

// bookWith checks the doctor can take the slot and inserts. The insert itself
// is the conflict check.
func (s *Service) bookWith(ctx context.Context, a *Appointment, doctorID uuid.UUID) error {
	doc, err := s.doctor(ctx, doctorID)
	if err != nil {
		return err
	}
	if doc.Department != a.Department {
		return apperrors.Validation("%s works in %s, not %s", doc.Name, doc.Department, a.Department)
	}
	ws, err := s.EffectiveSchedule(ctx, doctorID)
	if err != nil {
		return err
	}
	if !ws.Offers(a.AppointmentDate, a.Slot) {
		return apperrors.Validation("%s is not available on %s at %s", doc.Name, a.AppointmentDate.Weekday(), a.Slot)
	}
	a.DoctorID = doctorID
	return s.appointments.Create(ctx, a)
}

func (s *Service) autoAssign(ctx context.Context, a *Appointment) error {
	doctors, _, err := s.directory.ListStaff(ctx, identity.StaffFilter{Department: a.Department}, maxDepartmentDoctors, 0)
	if err != nil {
		return err
	}
	sort.SliceStable(doctors, func(i, j int) bool {
		if !doctors[i].CreatedAt.Equal(doctors[j].CreatedAt) {
			return doctors[i].CreatedAt.Before(doctors[j].CreatedAt)
		}
		return doctors[i].ID.String() < doctors[j].ID.String()
	})

	offered := false
	for _, doc := range doctors {
		ws, err := s.EffectiveSchedule(ctx, doc.ID)
		if err != nil {
			return err
		}
		if !ws.Offers(a.AppointmentDate, a.Slot) {
			continue
		}
		offered = true
		a.DoctorID = doc.ID
		err = s.appointments.Create(ctx, a)
		if err == nil {
			return nil
		}
		if !apperrors.IsKind(err, apperrors.KindConflict) {
			return err
		}
		a.ID = uuid.Nil
	}
	a.DoctorID = uuid.Nil
	if !offered {
		return apperrors.Validation("no %s doctor works on %s at %s", a.Department, a.AppointmentDate.Weekday(), a.Slot)
	}
	return apperrors.Conflict("no %s doctor is free on %s at %s", a.Department, a.Date(), a.Slot)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.appointments.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, f AppointmentFilter, limit, offset int) ([]*Appointment, int, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, 0, apperrors.Validation("invalid status %q", f.Status)
	}
	if f.Department != "" && !identity.IsDepartment(f.Department) {
		return nil, 0, apperrors.Validation("unknown department %q", f.Department)
	}
	return s.appointments.List(ctx, f, limit, offset)
}

type UpdateAppointmentInput struct {
	DoctorID           *uuid.UUID `json:"doctorId"`
	AppointmentDate    *string    `json:"appointmentDate"`
	Slot               *string    `json:"slot" validate:"omitempty,hhmm"`
	Reason             *string    `json:"reason" validate:"omitempty,max=2000"`
	Status             *Status    `json:"status"`
	CancellationReason *string    `json:"cancellationReason"`
}

func (in UpdateAppointmentInput) reschedules() bool {
	return in.DoctorID != nil || in.AppointmentDate != nil || in.Slot != nil
}

// Update edits an appointment. Moving it re-runs the availability and
// conflict checks; a status change must follow the lifecycle.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateAppointmentInput) (*Appointment, error) {
	a, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	from := a.Status
	if from.Terminal() {
		return nil, apperrors.InvalidTransition("appointment is %s and cannot change", from)
	}

	if in.Reason != nil {
		a.Reason = strings.TrimSpace(*in.Reason)
	}
	if in.reschedules() {
		if err := s.reschedule(ctx, a, in); err != nil {
			return nil, err
		}
	}
	to := from
	if in.Status != nil {
		if err := from.CanTransition(*in.Status); err != nil {
			return nil, err
		}
		to = *in.Status
	}
	a.Status = to
	if to == StatusCancelled {
		a.CancellationReason = cancellationReason(in.CancellationReason)
	}

	if err := s.save(ctx, a, from); err != nil {
		return nil, err
	}
	if to != from {
		s.statusChanged(ctx, a, from)
	}
	return a, nil
}

func (s *Service) reschedule(ctx context.Context, a *Appointment, in UpdateAppointmentInput) error {
	date := a.Date()
	if in.AppointmentDate != nil {
		date = *in.AppointmentDate
	}
	slot := a.Slot
	if in.Slot != nil {
		slot = *in.Slot
	} else if in.AppointmentDate != nil && !isPlainDate(*in.AppointmentDate) {
		// A new timestamp carries its own slot.
		slot = ""
	}
	day, slot, err := ResolveSlot(date, slot, s.loc)
	if err != nil {
		return err
	}
	startsAt, err := StartsAt(day, slot, s.loc)
	if err != nil {
		return apperrors.Validation("%s", err.Error())
	}
	if !startsAt.After(s.now()) {
		return apperrors.Validation("cannot move an appointment into the past")
	}

	doctorID := a.DoctorID
	if in.DoctorID != nil && *in.DoctorID != uuid.Nil {
		doctorID = *in.DoctorID
	}
	doc, err := s.doctor(ctx, doctorID)
	if err != nil {
		return err
	}
	if doc.Department != a.Department {
		return apperrors.Validation("%s works in %s, not %s", doc.Name, doc.Department, a.Department)
	}
	ws, err := s.EffectiveSchedule(ctx, doctorID)
	if err != nil {
		return err
	}
	if !ws.Offers(day, slot) {
		return apperrors.Validation("%s is not available on %s at %s", doc.Name, day.Weekday(), slot)
	}
	a.DoctorID, a.AppointmentDate, a.Slot, a.StartsAt = doctorID, day, slot, startsAt
	return nil
}

func isPlainDate(v string) bool {
	_, err := time.Parse(dateLayout, strings.TrimSpace(v))
	return err == nil
}

// Transition moves an appointment to another status.
func (s *Service) Transition(ctx context.Context, id uuid.UUID, to Status, reason string) (*Appointment, error) {
	a, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	from := a.Status
	if err := from.CanTransition(to); err != nil {
		return nil, err
	}
	if from == to {
		return a, nil
	}
	a.Status = to
	if to == StatusCancelled {
		a.CancellationReason = cancellationReason(&reason)
	}
	if err := s.save(ctx, a, from); err != nil {
		return nil, err
	}
	s.statusChanged(ctx, a, from)
	return a, nil
}

func (s *Service) Cancel(ctx context.Context, id uuid.UUID, reason string) (*Appointment, error) {
	return s.Transition(ctx, id, StatusCancelled, reason)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.appointments.Delete(ctx, id)
}

// save writes a, guarded on the status it was read with. Losing that race
// surfaces as a Conflict.
func (s *Service) save(ctx context.Context, a *Appointment, from Status) error {
	err := s.appointments.Update(ctx, a, from)
	if apperrors.IsKind(err, apperrors.KindNotFound) {
		return apperrors.Conflict("appointment was modified concurrently, reload and retry")
	}
	return err
}

func (s *Service) statusChanged(ctx context.Context, a *Appointment, from Status) {
	s.logger.Info().
		Str("appointment_id", a.ID.String()).
		Str("from", string(from)).Str("to", string(a.Status)).
		Msg("appointment status changed")
	payload := appointmentPayload(a)
	payload["from"] = string(from)
	s.events.Emit(ctx, events.New(events.AppointmentStatusChanged, a.ID.String(), payload))
}

func cancellationReason(r *string) *string {
	if r == nil || strings.TrimSpace(*r) == "" {
		return nil
	}
	v := strings.TrimSpace(*r)
	return &v
}

// ListDue returns appointments in status starting in [from, to).
func (s *Service) ListDue(ctx context.Context, status Status, from, to time.Time, limit int) ([]*Appointment, error) {
	return s.appointments.ListDue(ctx, status, from, to, limit)
}

// Remind publishes a reminder for an upcoming appointment.
func (s *Service) Remind(ctx context.Context, a *Appointment) {
	s.events.Emit(ctx, events.New(events.AppointmentReminder, a.ID.String(), appointmentPayload(a)))
}

func appointmentPayload(a *Appointment) map[string]interface{} {
	return map[string]interface{}{
		"patientId":  a.PatientID.String(),
		"doctorId":   a.DoctorID.String(),
		"department": a.Department,
		"date":       a.Date(),
		"slot":       a.Slot,
		"startsAt":   a.StartsAt.Format(time.RFC3339),
		"status":     string(a.Status),
	}
}

func (s *Service) doctor(ctx context.Context, id uuid.UUID) (*identity.MedicalStaff, error) {
	doc, err := s.directory.GetStaff(ctx, id)
	if apperrors.IsKind(err, apperrors.KindNotFound) {
		return nil, apperrors.Validation("doctor %s does not exist", id)
	}
	return doc, err
}

// -- Doctor notes --

type CreateNoteInput struct {
	AppointmentID uuid.UUID  `json:"appointmentId" validate:"required"`
	Notes         string     `json:"notes" validate:"required"`
	Medicines     []Medicine `json:"medicines" validate:"dive"`
}

// CreateNote attaches a note to a confirmed or completed appointment. The
// doctor and patient are taken from the appointment.
func (s *Service) CreateNote(ctx context.Context, in CreateNoteInput) (*DoctorNote, error) {
	if strings.TrimSpace(in.Notes) == "" {
		return nil, apperrors.Validation("notes are required")
	}
	a, err := s.appointments.GetByID(ctx, in.AppointmentID)
	if apperrors.IsKind(err, apperrors.KindNotFound) {
		return nil, apperrors.Validation("appointment %s does not exist", in.AppointmentID)
	}
	if err != nil {
		return nil, err
	}
	if a.Status != StatusConfirmed && a.Status != StatusCompleted {
		return nil, apperrors.Validation("notes can only be added to confirmed or completed appointments, this one is %s", a.Status)
	}
	n := &DoctorNote{
		AppointmentID: a.ID,
		DoctorID:      a.DoctorID,
		PatientID:     a.PatientID,
		Notes:         strings.TrimSpace(in.Notes),
		Medicines:     cleanMedicines(in.Medicines),
	}
	if err := s.notes.Create(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

func cleanMedicines(in []Medicine) []Medicine {
	out := make([]Medicine, 0, len(in))
	for _, m := range in {
		m.Name = strings.TrimSpace(m.Name)
		if m.Name == "" {
			continue
		}
		out = append(out, m)
	}
	return out
}

func (s *Service) GetNote(ctx context.Context, id uuid.UUID) (*DoctorNote, error) {
	return s.notes.GetByID(ctx, id)
}

func (s *Service) ListNotes(ctx context.Context, f NoteFilter, limit, offset int) ([]*DoctorNote, int, error) {
	return s.notes.List(ctx, f, limit, offset)
}

type UpdateNoteInput struct {
	Notes     *string     `json:"notes"`
	Medicines *[]Medicine `json:"medicines"`
}

func (s *Service) UpdateNote(ctx context.Context, id uuid.UUID, in UpdateNoteInput) (*DoctorNote, error) {
	n, err := s.notes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Notes != nil {
		if strings.TrimSpace(*in.Notes) == "" {
			return nil, apperrors.Validation("notes cannot be empty")
		}
		n.Notes = strings.TrimSpace(*in.Notes)
	}
	if in.Medicines != nil {
		n.Medicines = cleanMedicines(*in.Medicines)
	}
	if err := s.notes.Update(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

func (s *Service) DeleteNote(ctx context.Context, id uuid.UUID) error {
	return s.notes.Delete(ctx, id)
}
