package scheduling

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tshakameya123/Kaga-Hospital/internal/domain/identity"
	"github.com/tshakameya123/Kaga-Hospital/pkg/apperrors"
)

// -- Mock Availability Repository --

type mockAvailabilityRepo struct {
	mu        sync.Mutex
	schedules map[uuid.UUID]*WorkSchedule
}

func newMockAvailabilityRepo() *mockAvailabilityRepo {
	return &mockAvailabilityRepo{schedules: make(map[uuid.UUID]*WorkSchedule)}
}

func (m *mockAvailabilityRepo) Upsert(_ context.Context, ws *WorkSchedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.schedules {
		if existing.DoctorID == ws.DoctorID {
			ws.ID, ws.CreatedAt = existing.ID, existing.CreatedAt
		}
	}
	if ws.ID == uuid.Nil {
		ws.ID = uuid.New()
		ws.CreatedAt = time.Now()
	}
	ws.UpdatedAt = time.Now()
	cp := *ws
	m.schedules[ws.ID] = &cp
	return nil
}

func (m *mockAvailabilityRepo) GetByID(_ context.Context, id uuid.UUID) (*WorkSchedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ws, ok := m.schedules[id]
	if !ok {
		return nil, apperrors.NotFound("work schedule not found")
	}
	cp := *ws
	return &cp, nil
}

func (m *mockAvailabilityRepo) GetByDoctor(_ context.Context, doctorID uuid.UUID) (*WorkSchedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ws := range m.schedules {
		if ws.DoctorID == doctorID {
			cp := *ws
			return &cp, nil
		}
	}
	return nil, apperrors.NotFound("work schedule not found")
}

func (m *mockAvailabilityRepo) List(_ context.Context, limit, offset int) ([]*WorkSchedule, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*WorkSchedule
	for _, ws := range m.schedules {
		result = append(result, ws)
	}
	return result, len(result), nil
}

func (m *mockAvailabilityRepo) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.schedules[id]; !ok {
		return apperrors.NotFound("work schedule not found")
	}
	delete(m.schedules, id)
	return nil
}

// -- Mock Appointment Repository --

// mockAppointmentRepo enforces the active-slot uniqueness the database index
// provides, under a single lock.
type mockAppointmentRepo struct {
	mu    sync.Mutex
	appts map[uuid.UUID]*Appointment
}

func newMockAppointmentRepo() *mockAppointmentRepo {
	return &mockAppointmentRepo{appts: make(map[uuid.UUID]*Appointment)}
}

func (m *mockAppointmentRepo) slotTaken(a *Appointment) bool {
	if !a.Active() {
		return false
	}
	for _, other := range m.appts {
		if other.ID != a.ID && other.Active() && other.DoctorID == a.DoctorID &&
			other.AppointmentDate.Equal(a.AppointmentDate) && other.Slot == a.Slot {
			return true
		}
	}
	return false
}

func (m *mockAppointmentRepo) Create(_ context.Context, a *Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if m.slotTaken(a) {
		return apperrors.Conflict("the doctor already has an appointment in this slot")
	}
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	cp := *a
	m.appts[a.ID] = &cp
	return nil
}

func (m *mockAppointmentRepo) GetByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok {
		return nil, apperrors.NotFound("appointment not found")
	}
	cp := *a
	return &cp, nil
}

func (m *mockAppointmentRepo) Update(_ context.Context, a *Appointment, from Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.appts[a.ID]
	if !ok || stored.Status != from {
		return apperrors.NotFound("appointment not found")
	}
	if m.slotTaken(a) {
		return apperrors.Conflict("the doctor already has an appointment in this slot")
	}
	a.UpdatedAt = time.Now()
	cp := *a
	m.appts[a.ID] = &cp
	return nil
}

func (m *mockAppointmentRepo) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.appts[id]; !ok {
		return apperrors.NotFound("appointment not found")
	}
	delete(m.appts, id)
	return nil
}

func (m *mockAppointmentRepo) List(_ context.Context, f AppointmentFilter, limit, offset int) ([]*Appointment, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*Appointment
	for _, a := range m.appts {
		if f.PatientID != nil && a.PatientID != *f.PatientID {
			continue
		}
		if f.DoctorID != nil && a.DoctorID != *f.DoctorID {
			continue
		}
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		if f.Department != "" && a.Department != f.Department {
			continue
		}
		if f.Date != nil && !a.AppointmentDate.Equal(*f.Date) {
			continue
		}
		cp := *a
		result = append(result, &cp)
	}
	return result, len(result), nil
}

func (m *mockAppointmentRepo) BookedSlots(_ context.Context, doctorID uuid.UUID, day time.Time) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var slots []string
	for _, a := range m.appts {
		if a.Active() && a.DoctorID == doctorID && a.AppointmentDate.Equal(day) {
			slots = append(slots, a.Slot)
		}
	}
	sort.Strings(slots)
	return slots, nil
}

func (m *mockAppointmentRepo) ListDue(_ context.Context, status Status, from, to time.Time, limit int) ([]*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*Appointment
	for _, a := range m.appts {
		if a.Status != status || !a.StartsAt.Before(to) {
			continue
		}
		if !from.IsZero() && a.StartsAt.Before(from) {
			continue
		}
		cp := *a
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StartsAt.Before(result[j].StartsAt) })
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// -- Mock Note Repository --

type mockNoteRepo struct {
	notes map[uuid.UUID]*DoctorNote
}

func newMockNoteRepo() *mockNoteRepo {
	return &mockNoteRepo{notes: make(map[uuid.UUID]*DoctorNote)}
}

func (m *mockNoteRepo) Create(_ context.Context, n *DoctorNote) error {
	n.ID = uuid.New()
	n.CreatedAt = time.Now()
	n.UpdatedAt = n.CreatedAt
	m.notes[n.ID] = n
	return nil
}

func (m *mockNoteRepo) GetByID(_ context.Context, id uuid.UUID) (*DoctorNote, error) {
	n, ok := m.notes[id]
	if !ok {
		return nil, apperrors.NotFound("doctor note not found")
	}
	return n, nil
}

func (m *mockNoteRepo) Update(_ context.Context, n *DoctorNote) error {
	m.notes[n.ID] = n
	return nil
}

func (m *mockNoteRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.notes, id)
	return nil
}

func (m *mockNoteRepo) List(_ context.Context, f NoteFilter, limit, offset int) ([]*DoctorNote, int, error) {
	var result []*DoctorNote
	for _, n := range m.notes {
		if f.AppointmentID != nil && n.AppointmentID != *f.AppointmentID {
			continue
		}
		if f.DoctorID != nil && n.DoctorID != *f.DoctorID {
			continue
		}
		if f.PatientID != nil && n.PatientID != *f.PatientID {
			continue
		}
		result = append(result, n)
	}
	return result, len(result), nil
}

// -- Fake Directory --

type fakeDirectory struct {
	patients map[uuid.UUID]*identity.Patient
	staff    map[uuid.UUID]*identity.MedicalStaff
	seq      int
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		patients: make(map[uuid.UUID]*identity.Patient),
		staff:    make(map[uuid.UUID]*identity.MedicalStaff),
	}
}

func (d *fakeDirectory) addPatient(name string) *identity.Patient {
	p := &identity.Patient{ID: uuid.New(), UserID: uuid.New(), Name: name}
	d.patients[p.ID] = p
	return p
}

func (d *fakeDirectory) addDoctor(name, department string) *identity.MedicalStaff {
	d.seq++
	s := &identity.MedicalStaff{
		ID: uuid.New(), UserID: uuid.New(), Name: name, Department: department,
		CreatedAt: time.Date(2024, 1, 1, 0, d.seq, 0, 0, time.UTC),
	}
	d.staff[s.ID] = s
	return s
}

func (d *fakeDirectory) GetPatient(_ context.Context, id uuid.UUID) (*identity.Patient, error) {
	p, ok := d.patients[id]
	if !ok {
		return nil, apperrors.NotFound("patient not found")
	}
	return p, nil
}

func (d *fakeDirectory) GetPatientByUserID(_ context.Context, userID uuid.UUID) (*identity.Patient, error) {
	for _, p := range d.patients {
		if p.UserID == userID {
			return p, nil
		}
	}
	return nil, apperrors.NotFound("patient not found")
}

func (d *fakeDirectory) GetStaff(_ context.Context, id uuid.UUID) (*identity.MedicalStaff, error) {
	s, ok := d.staff[id]
	if !ok {
		return nil, apperrors.NotFound("medical staff not found")
	}
	return s, nil
}

func (d *fakeDirectory) GetStaffByUserID(_ context.Context, userID uuid.UUID) (*identity.MedicalStaff, error) {
	for _, s := range d.staff {
		if s.UserID == userID {
			return s, nil
		}
	}
	return nil, apperrors.NotFound("medical staff not found")
}

func (d *fakeDirectory) ListStaff(_ context.Context, f identity.StaffFilter, limit, offset int) ([]*identity.MedicalStaff, int, error) {
	var result []*identity.MedicalStaff
	for _, s := range d.staff {
		if f.Department != "" && s.Department != f.Department {
			continue
		}
		result = append(result, s)
	}
	return result, len(result), nil
}
