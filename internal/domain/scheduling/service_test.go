package scheduling

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tshakameya123/Kaga-Hospital/internal/domain/identity"
	"github.com/tshakameya123/Kaga-Hospital/internal/platform/events"
	"github.com/tshakameya123/Kaga-Hospital/pkg/apperrors"
)

// Monday 14 October 2024, 08:00 UTC.
var testNow = time.Date(2024, 10, 14, 8, 0, 0, 0, time.UTC)

type testEnv struct {
	svc   *Service
	avail *mockAvailabilityRepo
	appts *mockAppointmentRepo
	notes *mockNoteRepo
	dir   *fakeDirectory
	pub   *events.MemoryPublisher
}

func newTestEnv() *testEnv {
	return newTestEnvWith(time.UTC, nil)
}

// newTestEnvWith runs the service in loc. wrap, when set, decorates the
// recording publisher the way main wires the notifier.
func newTestEnvWith(loc *time.Location, wrap func(env *testEnv) events.Publisher) *testEnv {
	env := &testEnv{
		avail: newMockAvailabilityRepo(),
		appts: newMockAppointmentRepo(),
		notes: newMockNoteRepo(),
		dir:   newFakeDirectory(),
		pub:   &events.MemoryPublisher{},
	}
	var pub events.Publisher = env.pub
	if wrap != nil {
		pub = wrap(env)
	}
	env.svc = NewService(env.avail, env.appts, env.notes, env.dir,
		events.NewEmitter(pub, zerolog.Nop()), loc, zerolog.Nop())
	env.svc.SetClock(func() time.Time { return testNow })
	return env
}

func ptrUUID(id uuid.UUID) *uuid.UUID { return &id }
func ptrStr(s string) *string         { return &s }
func ptrStatus(s Status) *Status      { return &s }

func expectKind(t *testing.T, err error, kind apperrors.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	if got := apperrors.KindOf(err); got != kind {
		t.Fatalf("expected %s, got %s (%v)", kind, got, err)
	}
}

func (env *testEnv) book(t *testing.T, patient *identity.Patient, doc *identity.MedicalStaff, date, slot string) *Appointment {
	t.Helper()
	a, err := env.svc.Create(context.Background(), CreateAppointmentInput{
		PatientID: patient.ID, DoctorID: ptrUUID(doc.ID), Department: doc.Department,
		AppointmentDate: date, Slot: slot, Reason: "checkup",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return a
}

// -- Conflict guard --

func TestCreate_SameDoctorSameSlotConflicts(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	doc := env.dir.addDoctor("Dr. X", "Cardiology")
	if _, err := env.svc.PutAvailability(ctx, PutAvailabilityInput{
		DoctorID:       doc.ID,
		AvailableSlots: []DaySlots{{Day: "Sunday", Slots: []string{"10:00"}}},
	}); err != nil {
		t.Fatalf("PutAvailability: %v", err)
	}
	p1, p2 := env.dir.addPatient("Alice"), env.dir.addPatient("Bob")

	a, err := env.svc.Create(ctx, CreateAppointmentInput{
		PatientID: p1.ID, DoctorID: ptrUUID(doc.ID), Department: "Cardiology",
		AppointmentDate: "2024-10-20T10:00:00Z", Slot: "10:00",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if a.Status != StatusPending || a.Slot != "10:00" || a.Date() != "2024-10-20" {
		t.Errorf("unexpected appointment %+v", a)
	}

	_, err = env.svc.Create(ctx, CreateAppointmentInput{
		PatientID: p2.ID, DoctorID: ptrUUID(doc.ID), Department: "Cardiology",
		AppointmentDate: "2024-10-20T10:00:00Z", Slot: "10:00",
	})
	expectKind(t, err, apperrors.KindConflict)
}

func TestCreate_LocalDatetimeInHospitalZone(t *testing.T) {
	kampala, err := time.LoadLocation("Africa/Kampala")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	env := newTestEnvWith(kampala, nil)
	ctx := context.Background()
	doc := env.dir.addDoctor("Dr. X", "Cardiology")
	if _, err := env.svc.PutAvailability(ctx, PutAvailabilityInput{
		DoctorID:       doc.ID,
		AvailableSlots: []DaySlots{{Day: "Sunday", Slots: []string{"10:00"}}},
	}); err != nil {
		t.Fatalf("PutAvailability: %v", err)
	}
	p1, p2 := env.dir.addPatient("Alice"), env.dir.addPatient("Bob")

	a, err := env.svc.Create(ctx, CreateAppointmentInput{
		PatientID: p1.ID, DoctorID: ptrUUID(doc.ID), Department: "Cardiology",
		AppointmentDate: "2024-10-20T10:00", Slot: "10:00",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if a.Date() != "2024-10-20" || a.Slot != "10:00" {
		t.Errorf("unexpected appointment %+v", a)
	}
	if want := time.Date(2024, 10, 20, 7, 0, 0, 0, time.UTC); !a.StartsAt.Equal(want) {
		t.Errorf("startsAt = %s, want %s", a.StartsAt, want)
	}

	_, err = env.svc.Create(ctx, CreateAppointmentInput{
		PatientID: p2.ID, DoctorID: ptrUUID(doc.ID), Department: "Cardiology",
		AppointmentDate: "2024-10-20T10:00:00", Slot: "10:00",
	})
	expectKind(t, err, apperrors.KindConflict)
}

// The mock repo serialises inserts with a mutex. In Postgres the same
// guarantee comes from the appointments_active_slot_key partial unique index,
// whose violation db.Translate maps to a Conflict.
func TestCreate_ConcurrentSameSlot(t *testing.T) {
	env := newTestEnv()
	doc := env.dir.addDoctor("Dr. X", "Cardiology")
	patients := []*identity.Patient{env.dir.addPatient("Alice"), env.dir.addPatient("Bob")}

	start := make(chan struct{})
	errs := make([]error, len(patients))
	var wg sync.WaitGroup
	for i, p := range patients {
		wg.Add(1)
		go func(i int, p *identity.Patient) {
			defer wg.Done()
			<-start
			_, errs[i] = env.svc.Create(context.Background(), CreateAppointmentInput{
				PatientID: p.ID, DoctorID: ptrUUID(doc.ID), Department: "Cardiology",
				AppointmentDate: "2024-10-15", Slot: "09:30",
			})
		}(i, p)
	}
	close(start)
	wg.Wait()

	var ok, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case apperrors.IsKind(err, apperrors.KindConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || conflicts != 1 {
		t.Errorf("expected 1 success and 1 conflict, got %d and %d", ok, conflicts)
	}
}

func TestCreate_CancelledSlotCanBeRebooked(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	doc := env.dir.addDoctor("Dr. X", "Dental")
	alice, bob := env.dir.addPatient("Alice"), env.dir.addPatient("Bob")

	first := env.book(t, alice, doc, "2024-10-15", "09:00")
	if _, err := env.svc.Cancel(ctx, first.ID, "travelling"); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	second := env.book(t, bob, doc, "2024-10-15", "09:00")
	if second.ID == first.ID {
		t.Error("expected a new appointment")
	}
}

func TestCreate_AutoAssign(t *testing.T) {
	env := newTestEnv()
	d1 := env.dir.addDoctor("Dr. Sarah Johnson", "Cardiology")
	d2 := env.dir.addDoctor("Dr. Robert Miller", "Cardiology")
	env.dir.addDoctor("Dr. Emily Rodriguez", "Dental")

	book := func(name string) (*Appointment, error) {
		return env.svc.Create(context.Background(), CreateAppointmentInput{
			PatientID: env.dir.addPatient(name).ID, Department: "Cardiology",
			AppointmentDate: "2024-10-15", Slot: "14:00",
		})
	}

	a1, err := book("Alice")
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	if a1.DoctorID != d1.ID {
		t.Errorf("expected first cardiologist, got %s", a1.DoctorID)
	}
	a2, err := book("Bob")
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if a2.DoctorID != d2.ID {
		t.Errorf("expected second cardiologist, got %s", a2.DoctorID)
	}
	_, err = book("Carol")
	expectKind(t, err, apperrors.KindConflict)
}

func TestCreate_AutoAssign_NobodyWorks(t *testing.T) {
	env := newTestEnv()
	env.dir.addDoctor("Dr. X", "Neurology")
	_, err := env.svc.Create(context.Background(), CreateAppointmentInput{
		PatientID: env.dir.addPatient("Alice").ID, Department: "Neurology",
		AppointmentDate: "2024-10-19", Slot: "09:00",
	})
	expectKind(t, err, apperrors.KindValidation)
}

func TestCreate_Validation(t *testing.T) {
	env := newTestEnv()
	doc := env.dir.addDoctor("Dr. X", "Cardiology")
	patient := env.dir.addPatient("Alice")

	tests := []struct {
		name string
		in   CreateAppointmentInput
	}{
		{"weekend outside default hours", CreateAppointmentInput{DoctorID: ptrUUID(doc.ID), Department: "Cardiology", AppointmentDate: "2024-10-19", Slot: "09:00"}},
		{"slot not offered", CreateAppointmentInput{DoctorID: ptrUUID(doc.ID), Department: "Cardiology", AppointmentDate: "2024-10-15", Slot: "12:30"}},
		{"wrong department", CreateAppointmentInput{DoctorID: ptrUUID(doc.ID), Department: "Dental", AppointmentDate: "2024-10-15", Slot: "09:00"}},
		{"past slot", CreateAppointmentInput{DoctorID: ptrUUID(doc.ID), Department: "Cardiology", AppointmentDate: "2024-10-11", Slot: "09:00"}},
		{"unknown department", CreateAppointmentInput{DoctorID: ptrUUID(doc.ID), Department: "Radiology", AppointmentDate: "2024-10-15", Slot: "09:00"}},
		{"timestamp disagrees with slot", CreateAppointmentInput{DoctorID: ptrUUID(doc.ID), Department: "Cardiology", AppointmentDate: "2024-10-15T10:00:00Z", Slot: "09:00"}},
		{"missing slot", CreateAppointmentInput{DoctorID: ptrUUID(doc.ID), Department: "Cardiology", AppointmentDate: "2024-10-15"}},
		{"unknown status", CreateAppointmentInput{DoctorID: ptrUUID(doc.ID), Department: "Cardiology", AppointmentDate: "2024-10-15", Slot: "09:00", Status: "Booked"}},
		{"unknown doctor", CreateAppointmentInput{DoctorID: ptrUUID(uuid.New()), Department: "Cardiology", AppointmentDate: "2024-10-15", Slot: "09:00"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.in.PatientID = patient.ID
			_, err := env.svc.Create(context.Background(), tt.in)
			expectKind(t, err, apperrors.KindValidation)
		})
	}

	t.Run("unknown patient", func(t *testing.T) {
		_, err := env.svc.Create(context.Background(), CreateAppointmentInput{
			PatientID: uuid.New(), DoctorID: ptrUUID(doc.ID), Department: "Cardiology",
			AppointmentDate: "2024-10-15", Slot: "09:00",
		})
		expectKind(t, err, apperrors.KindValidation)
	})
}

func TestCreate_TimestampDerivesSlot(t *testing.T) {
	env := newTestEnv()
	doc := env.dir.addDoctor("Dr. X", "Pediatrics")
	a, err := env.svc.Create(context.Background(), CreateAppointmentInput{
		PatientID: env.dir.addPatient("Alice").ID, DoctorID: ptrUUID(doc.ID),
		Department: "Pediatrics", AppointmentDate: "2024-10-16T15:30:00Z",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if a.Slot != "15:30" {
		t.Errorf("expected slot 15:30, got %s", a.Slot)
	}
	if !a.StartsAt.Equal(time.Date(2024, 10, 16, 15, 30, 0, 0, time.UTC)) {
		t.Errorf("unexpected startsAt %v", a.StartsAt)
	}
}

// -- Lifecycle --

func TestCompletedAppointmentCannotReturnToPending(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	doc := env.dir.addDoctor("Dr. X", "Cardiology")

	a, err := env.svc.Create(ctx, CreateAppointmentInput{
		PatientID: env.dir.addPatient("Alice").ID, DoctorID: ptrUUID(doc.ID), Department: "Cardiology",
		AppointmentDate: "2024-10-11", Slot: "10:00", Status: StatusCompleted,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if a.Status != StatusCompleted {
		t.Fatalf("expected Completed, got %s", a.Status)
	}

	_, err = env.svc.Update(ctx, a.ID, UpdateAppointmentInput{Status: ptrStatus(StatusPending)})
	expectKind(t, err, apperrors.KindInvalidTransition)

	_, err = env.svc.Transition(ctx, a.ID, StatusPending, "")
	expectKind(t, err, apperrors.KindInvalidTransition)

	stored, _ := env.svc.Get(ctx, a.ID)
	if stored.Status != StatusCompleted {
		t.Errorf("expected status to stay Completed, got %s", stored.Status)
	}
}

func TestTransition_Lifecycle(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	a := env.book(t, env.dir.addPatient("Alice"), env.dir.addDoctor("Dr. X", "Neurology"), "2024-10-15", "09:00")

	if _, err := env.svc.Transition(ctx, a.ID, StatusConfirmed, ""); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if _, err := env.svc.Transition(ctx, a.ID, StatusPending, ""); !apperrors.IsKind(err, apperrors.KindInvalidTransition) {
		t.Errorf("expected Confirmed -> Pending to be rejected, got %v", err)
	}
	done, err := env.svc.Transition(ctx, a.ID, StatusCompleted, "")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.Status != StatusCompleted {
		t.Errorf("expected Completed, got %s", done.Status)
	}

	_, err = env.svc.Cancel(ctx, a.ID, "late")
	expectKind(t, err, apperrors.KindInvalidTransition)
	_, err = env.svc.Transition(ctx, a.ID, StatusCompleted, "")
	expectKind(t, err, apperrors.KindInvalidTransition)

	changes := env.pub.OfType(events.AppointmentStatusChanged)
	if len(changes) != 2 {
		t.Fatalf("expected 2 status events, got %d", len(changes))
	}
	if changes[1].Payload["from"] != "Confirmed" || changes[1].Payload["status"] != "Completed" {
		t.Errorf("unexpected payload %v", changes[1].Payload)
	}
	if len(env.pub.OfType(events.AppointmentCreated)) != 1 {
		t.Error("expected one created event")
	}
}

func TestTransition_SameStatusIsNoop(t *testing.T) {
	env := newTestEnv()
	a := env.book(t, env.dir.addPatient("Alice"), env.dir.addDoctor("Dr. X", "Neurology"), "2024-10-15", "09:00")

	got, err := env.svc.Transition(context.Background(), a.ID, StatusPending, "")
	if err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if got.Status != StatusPending {
		t.Errorf("expected Pending, got %s", got.Status)
	}
	if n := len(env.pub.OfType(events.AppointmentStatusChanged)); n != 0 {
		t.Errorf("expected no status event, got %d", n)
	}
}

func TestCancel_RecordsReason(t *testing.T) {
	env := newTestEnv()
	a := env.book(t, env.dir.addPatient("Alice"), env.dir.addDoctor("Dr. X", "Neurology"), "2024-10-15", "09:00")

	got, err := env.svc.Cancel(context.Background(), a.ID, "  feeling better ")
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if got.CancellationReason == nil || *got.CancellationReason != "feeling better" {
		t.Errorf("unexpected reason %v", got.CancellationReason)
	}

	_, err = env.svc.Update(context.Background(), a.ID, UpdateAppointmentInput{Reason: ptrStr("again")})
	expectKind(t, err, apperrors.KindInvalidTransition)
}

func TestSave_StaleStatusIsConflict(t *testing.T) {
	env := newTestEnv()
	a := env.book(t, env.dir.addPatient("Alice"), env.dir.addDoctor("Dr. X", "Neurology"), "2024-10-15", "09:00")

	stale := *a
	if _, err := env.svc.Transition(context.Background(), a.ID, StatusCancelled, ""); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	stale.Status = StatusConfirmed
	err := env.svc.save(context.Background(), &stale, StatusPending)
	expectKind(t, err, apperrors.KindConflict)
}

// -- Rescheduling --

func TestUpdate_Reschedule(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	doc := env.dir.addDoctor("Dr. X", "Orthopedics")
	a := env.book(t, env.dir.addPatient("Alice"), doc, "2024-10-15", "09:00")
	env.book(t, env.dir.addPatient("Bob"), doc, "2024-10-15", "10:00")

	moved, err := env.svc.Update(ctx, a.ID, UpdateAppointmentInput{Slot: ptrStr("11:30"), Reason: ptrStr("follow-up")})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if moved.Slot != "11:30" || moved.Reason != "follow-up" {
		t.Errorf("unexpected appointment %+v", moved)
	}
	if !moved.StartsAt.Equal(time.Date(2024, 10, 15, 11, 30, 0, 0, time.UTC)) {
		t.Errorf("startsAt not recomputed: %v", moved.StartsAt)
	}

	_, err = env.svc.Update(ctx, a.ID, UpdateAppointmentInput{Slot: ptrStr("10:00")})
	expectKind(t, err, apperrors.KindConflict)

	_, err = env.svc.Update(ctx, a.ID, UpdateAppointmentInput{AppointmentDate: ptrStr("2024-10-19")})
	expectKind(t, err, apperrors.KindValidation)

	moved, err = env.svc.Update(ctx, a.ID, UpdateAppointmentInput{AppointmentDate: ptrStr("2024-10-17T14:00:00Z")})
	if err != nil {
		t.Fatalf("Update with timestamp: %v", err)
	}
	if moved.Date() != "2024-10-17" || moved.Slot != "14:00" {
		t.Errorf("expected 2024-10-17 14:00, got %s %s", moved.Date(), moved.Slot)
	}
}

// -- Availability --

func TestPutAvailability(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	doc := env.dir.addDoctor("Dr. X", "Dermatology")

	ws, err := env.svc.PutAvailability(ctx, PutAvailabilityInput{
		DoctorID: doc.ID,
		AvailableSlots: []DaySlots{
			{Day: "friday", Slots: []string{"10:00", "09:00", "10:00"}},
			{Day: "Monday", Slots: []string{"14:00"}},
		},
	})
	if err != nil {
		t.Fatalf("PutAvailability: %v", err)
	}
	if len(ws.AvailableSlots) != 2 || ws.AvailableSlots[0].Day != "Monday" {
		t.Fatalf("expected Monday first, got %+v", ws.AvailableSlots)
	}
	if got := ws.AvailableSlots[1].Slots; len(got) != 2 || got[0] != "09:00" {
		t.Errorf("expected sorted unique slots, got %v", got)
	}

	again, err := env.svc.PutAvailability(ctx, PutAvailabilityInput{DoctorID: doc.ID, AvailableSlots: []DaySlots{{Day: "Tuesday", Slots: []string{"09:00"}}}})
	if err != nil {
		t.Fatalf("second PutAvailability: %v", err)
	}
	if again.ID != ws.ID {
		t.Error("expected upsert to keep the schedule id")
	}
	if _, total, _ := env.svc.ListAvailability(ctx, 20, 0); total != 1 {
		t.Errorf("expected one schedule, got %d", total)
	}

	_, err = env.svc.PutAvailability(ctx, PutAvailabilityInput{DoctorID: uuid.New()})
	expectKind(t, err, apperrors.KindValidation)
	_, err = env.svc.PutAvailability(ctx, PutAvailabilityInput{DoctorID: doc.ID, AvailableSlots: []DaySlots{{Day: "Funday"}}})
	expectKind(t, err, apperrors.KindValidation)
}

func TestEffectiveSchedule_DefaultsToHospitalDay(t *testing.T) {
	env := newTestEnv()
	doc := env.dir.addDoctor("Dr. X", "Dermatology")
	ws, err := env.svc.EffectiveSchedule(context.Background(), doc.ID)
	if err != nil {
		t.Fatalf("EffectiveSchedule: %v", err)
	}
	if !ws.Default || len(ws.AvailableSlots) != 5 {
		t.Errorf("expected default Mon-Fri schedule, got %+v", ws)
	}
}

func TestOpenSlots(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	doc := env.dir.addDoctor("Dr. X", "Gynecology")
	env.book(t, env.dir.addPatient("Alice"), doc, "2024-10-15", "09:00")

	open, err := env.svc.OpenSlots(ctx, doc.ID, "2024-10-15")
	if err != nil {
		t.Fatalf("OpenSlots: %v", err)
	}
	if len(open.Slots) != len(DefaultDay())-1 {
		t.Errorf("expected %d open slots, got %d", len(DefaultDay())-1, len(open.Slots))
	}
	for _, s := range open.Slots {
		if s == "09:00" {
			t.Error("booked slot reported open")
		}
	}
	if open.Day != "Tuesday" {
		t.Errorf("expected Tuesday, got %s", open.Day)
	}

	env.svc.SetClock(func() time.Time { return time.Date(2024, 10, 14, 10, 15, 0, 0, time.UTC) })
	today, err := env.svc.OpenSlots(ctx, doc.ID, "2024-10-14")
	if err != nil {
		t.Fatalf("OpenSlots today: %v", err)
	}
	if len(today.Slots) == 0 || today.Slots[0] != "10:30" {
		t.Errorf("expected first open slot 10:30, got %v", today.Slots)
	}

	weekend, _ := env.svc.OpenSlots(ctx, doc.ID, "2024-10-19")
	if len(weekend.Slots) != 0 {
		t.Errorf("expected no weekend slots, got %v", weekend.Slots)
	}

	_, err = env.svc.OpenSlots(ctx, doc.ID, "15/10/2024")
	expectKind(t, err, apperrors.KindValidation)
}

// -- Doctor notes --

func TestNotes(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	doc := env.dir.addDoctor("Dr. X", "General Medicine")
	patient := env.dir.addPatient("Alice")
	a := env.book(t, patient, doc, "2024-10-15", "09:00")

	_, err := env.svc.CreateNote(ctx, CreateNoteInput{AppointmentID: a.ID, Notes: "bp normal"})
	expectKind(t, err, apperrors.KindValidation)

	if _, err := env.svc.Transition(ctx, a.ID, StatusConfirmed, ""); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	n, err := env.svc.CreateNote(ctx, CreateNoteInput{
		AppointmentID: a.ID, Notes: " bp normal ",
		Medicines: []Medicine{{Name: "Paracetamol", Dose: "500mg"}, {Name: "  "}},
	})
	if err != nil {
		t.Fatalf("CreateNote: %v", err)
	}
	if n.DoctorID != doc.ID || n.PatientID != patient.ID {
		t.Error("expected doctor and patient copied from appointment")
	}
	if n.Notes != "bp normal" || len(n.Medicines) != 1 {
		t.Errorf("unexpected note %+v", n)
	}

	updated, err := env.svc.UpdateNote(ctx, n.ID, UpdateNoteInput{Notes: ptrStr("bp slightly high")})
	if err != nil {
		t.Fatalf("UpdateNote: %v", err)
	}
	if updated.Notes != "bp slightly high" {
		t.Errorf("unexpected notes %q", updated.Notes)
	}
	_, err = env.svc.UpdateNote(ctx, n.ID, UpdateNoteInput{Notes: ptrStr(" ")})
	expectKind(t, err, apperrors.KindValidation)

	list, total, err := env.svc.ListNotes(ctx, NoteFilter{PatientID: &patient.ID}, 20, 0)
	if err != nil || total != 1 || len(list) != 1 {
		t.Errorf("expected one note for patient, got %d (%v)", total, err)
	}

	_, err = env.svc.CreateNote(ctx, CreateNoteInput{AppointmentID: uuid.New(), Notes: "x"})
	expectKind(t, err, apperrors.KindValidation)
}

// -- Seeding --

func TestSeedSchedules(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	d1 := env.dir.addDoctor("Dr. Robert Miller", "Cardiology")
	d2 := env.dir.addDoctor("Dr. Lisa Wang", "General Medicine")
	seeded := []identity.SeededStaff{
		{Doctor: identity.SeedDoctor{Days: []time.Weekday{time.Monday, time.Wednesday, time.Friday}}, Staff: d1},
		{Doctor: identity.SeedDoctor{Days: []time.Weekday{time.Saturday}}, Staff: d2},
	}

	n, err := env.svc.SeedSchedules(ctx, seeded)
	if err != nil || n != 2 {
		t.Fatalf("expected 2 schedules, got %d (%v)", n, err)
	}
	n, err = env.svc.SeedSchedules(ctx, seeded)
	if err != nil || n != 0 {
		t.Fatalf("expected reseed to be a no-op, got %d (%v)", n, err)
	}

	ws, _ := env.svc.EffectiveSchedule(ctx, d2.ID)
	if ws.Default || !ws.Offers(time.Date(2024, 10, 19, 0, 0, 0, 0, time.UTC), "09:00") {
		t.Errorf("expected Saturday clinic, got %+v", ws.AvailableSlots)
	}
}

func TestWritePrescription(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	doc := env.dir.addDoctor("Okello", "General Medicine")
	a := env.book(t, env.dir.addPatient("Alice"), doc, "2024-10-15", "09:00")
	if _, err := env.svc.Transition(ctx, a.ID, StatusConfirmed, ""); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	n, err := env.svc.CreateNote(ctx, CreateNoteInput{
		AppointmentID: a.ID, Notes: "rest and fluids",
		Medicines: []Medicine{{Name: "Paracetamol", Dose: "500mg", Frequency: "3x daily", Duration: "5 days"}},
	})
	if err != nil {
		t.Fatalf("CreateNote: %v", err)
	}

	var buf bytes.Buffer
	if err := env.svc.WritePrescription(ctx, n.ID, &buf); err != nil {
		t.Fatalf("WritePrescription: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Error("expected a pdf")
	}

	err = env.svc.WritePrescription(ctx, uuid.New(), &buf)
	expectKind(t, err, apperrors.KindNotFound)
}
