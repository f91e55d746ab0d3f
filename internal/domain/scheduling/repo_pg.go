package scheduling

import (
	"context"
	"encoding/json"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tshakameya123/Kaga-Hospital/internal/platform/db"
	"github.com/tshakameya123/Kaga-Hospital/pkg/apperrors"
)

var schedulingConflicts = map[string]string{
	"appointments_active_slot_key": "the doctor already has an appointment in this slot",
	"work_schedules_doctor_id_key": "doctor already has a work schedule",
}

func translate(err error, what string) error {
	return db.Translate(err, what, schedulingConflicts)
}

func execOne(ctx context.Context, q db.Querier, what string, ds db.SQLer) error {
	return db.ExecOne(ctx, q, what, ds, schedulingConflicts)
}

// queryAll runs ds and scans every row with scan.
func queryAll[T any](ctx context.Context, q db.Querier, what string, ds db.SQLer, scan func(pgx.Row) (*T, error)) ([]*T, error) {
	query, args, err := db.Build(what, ds)
	if err != nil {
		return nil, apperrors.Internal("build query", err)
	}
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, translate(err, what)
	}
	defer rows.Close()
	var items []*T
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, translate(err, what)
		}
		items = append(items, item)
	}
	return items, translate(rows.Err(), what)
}

func queryOne[T any](ctx context.Context, q db.Querier, what string, ds db.SQLer, scan func(pgx.Row) (*T, error)) (*T, error) {
	query, args, err := db.Build(what, ds)
	if err != nil {
		return nil, apperrors.Internal("build query", err)
	}
	item, err := scan(q.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, translate(err, what)
	}
	return item, nil
}

// =========== Availability Repository ===========

type availabilityRepoPG struct{ pool *pgxpool.Pool }

func NewAvailabilityRepoPG(pool *pgxpool.Pool) AvailabilityRepository {
	return &availabilityRepoPG{pool: pool}
}

func (r *availabilityRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

var scheduleCols = []string{"id", "doctor_id", "available_slots", "created_at", "updated_at"}

func scanSchedule(row pgx.Row) (*WorkSchedule, error) {
	var ws WorkSchedule
	var raw []byte
	if err := row.Scan(&ws.ID, &ws.DoctorID, &raw, &ws.CreatedAt, &ws.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &ws.AvailableSlots); err != nil {
		return nil, apperrors.Internal("decode available_slots", err)
	}
	return &ws, nil
}

func (r *availabilityRepoPG) Upsert(ctx context.Context, ws *WorkSchedule) error {
	raw, err := json.Marshal(ws.AvailableSlots)
	if err != nil {
		return apperrors.Internal("encode available_slots", err)
	}
	if ws.ID == uuid.Nil {
		ws.ID = uuid.New()
	}
	now := time.Now().UTC()
	ds := db.Insert("work_schedules").Rows(goqu.Record{
		"id": ws.ID, "doctor_id": ws.DoctorID, "available_slots": string(raw),
		"created_at": now, "updated_at": now,
	}).OnConflict(goqu.DoUpdate("doctor_id", goqu.Record{
		"available_slots": goqu.L("EXCLUDED.available_slots"),
		"updated_at":      goqu.L("EXCLUDED.updated_at"),
	})).Returning("id", "created_at", "updated_at")

	query, args, err := db.Build("work schedule", ds)
	if err != nil {
		return apperrors.Internal("build query", err)
	}
	err = r.conn(ctx).QueryRow(ctx, query, args...).Scan(&ws.ID, &ws.CreatedAt, &ws.UpdatedAt)
	return translate(err, "work schedule")
}

func (r *availabilityRepoPG) get(ctx context.Context, ex goqu.Ex) (*WorkSchedule, error) {
	return queryOne(ctx, r.conn(ctx), "work schedule",
		db.From("work_schedules").Select(db.Cols(scheduleCols...)...).Where(ex), scanSchedule)
}

func (r *availabilityRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*WorkSchedule, error) {
	return r.get(ctx, goqu.Ex{"id": id})
}

func (r *availabilityRepoPG) GetByDoctor(ctx context.Context, doctorID uuid.UUID) (*WorkSchedule, error) {
	return r.get(ctx, goqu.Ex{"doctor_id": doctorID})
}

func (r *availabilityRepoPG) List(ctx context.Context, limit, offset int) ([]*WorkSchedule, int, error) {
	ds := db.From("work_schedules")
	total, err := db.Count(ctx, r.conn(ctx), "work schedules", ds)
	if err != nil {
		return nil, 0, err
	}
	items, err := queryAll(ctx, r.conn(ctx), "work schedules", ds.Select(db.Cols(scheduleCols...)...).
		Order(goqu.I("created_at").Asc(), goqu.I("id").Asc()).
		Limit(uint(limit)).Offset(uint(offset)), scanSchedule)
	return items, total, err
}

func (r *availabilityRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	return execOne(ctx, r.conn(ctx), "work schedule", db.Delete("work_schedules").Where(goqu.Ex{"id": id}))
}

// =========== Appointment Repository ===========

type appointmentRepoPG struct{ pool *pgxpool.Pool }

func NewAppointmentRepoPG(pool *pgxpool.Pool) AppointmentRepository {
	return &appointmentRepoPG{pool: pool}
}

func (r *appointmentRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

var appointmentCols = []string{
	"id", "patient_id", "doctor_id", "department", "appointment_date", "slot", "starts_at",
	"reason", "status", "cancellation_reason", "created_at", "updated_at",
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.PatientID, &a.DoctorID, &a.Department, &a.AppointmentDate, &a.Slot,
		&a.StartsAt, &a.Reason, &a.Status, &a.CancellationReason, &a.CreatedAt, &a.UpdatedAt)
	return &a, err
}

func appointmentRecord(a *Appointment) goqu.Record {
	return goqu.Record{
		"patient_id": a.PatientID, "doctor_id": a.DoctorID, "department": a.Department,
		"appointment_date": a.AppointmentDate, "slot": a.Slot, "starts_at": a.StartsAt,
		"reason": a.Reason, "status": string(a.Status), "cancellation_reason": a.CancellationReason,
		"updated_at": a.UpdatedAt,
	}
}

func (r *appointmentRepoPG) Create(ctx context.Context, a *Appointment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now
	rec := appointmentRecord(a)
	rec["id"], rec["created_at"] = a.ID, now

	query, args, err := db.Build("appointment", db.Insert("appointments").Rows(rec))
	if err != nil {
		return apperrors.Internal("build query", err)
	}
	_, err = r.conn(ctx).Exec(ctx, query, args...)
	return translate(err, "appointment")
}

func (r *appointmentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return queryOne(ctx, r.conn(ctx), "appointment",
		db.From("appointments").Select(db.Cols(appointmentCols...)...).Where(goqu.Ex{"id": id}), scanAppointment)
}

func (r *appointmentRepoPG) Update(ctx context.Context, a *Appointment, from Status) error {
	a.UpdatedAt = time.Now().UTC()
	return execOne(ctx, r.conn(ctx), "appointment", db.Update("appointments").
		Set(appointmentRecord(a)).
		Where(goqu.Ex{"id": a.ID, "status": string(from)}))
}

func (r *appointmentRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	return execOne(ctx, r.conn(ctx), "appointment", db.Delete("appointments").Where(goqu.Ex{"id": id}))
}

func (r *appointmentRepoPG) List(ctx context.Context, f AppointmentFilter, limit, offset int) ([]*Appointment, int, error) {
	ds := db.From("appointments")
	if f.PatientID != nil {
		ds = ds.Where(goqu.Ex{"patient_id": *f.PatientID})
	}
	if f.DoctorID != nil {
		ds = ds.Where(goqu.Ex{"doctor_id": *f.DoctorID})
	}
	if f.Department != "" {
		ds = ds.Where(goqu.Ex{"department": f.Department})
	}
	if f.Status != "" {
		ds = ds.Where(goqu.Ex{"status": string(f.Status)})
	}
	if f.Date != nil {
		ds = ds.Where(goqu.Ex{"appointment_date": *f.Date})
	}

	total, err := db.Count(ctx, r.conn(ctx), "appointments", ds)
	if err != nil {
		return nil, 0, err
	}
	items, err := queryAll(ctx, r.conn(ctx), "appointments", ds.Select(db.Cols(appointmentCols...)...).
		Order(goqu.I("starts_at").Desc(), goqu.I("id").Asc()).
		Limit(uint(limit)).Offset(uint(offset)), scanAppointment)
	return items, total, err
}

func (r *appointmentRepoPG) BookedSlots(ctx context.Context, doctorID uuid.UUID, day time.Time) ([]string, error) {
	query, args, err := db.Build("booked slots", db.From("appointments").Select("slot").Where(
		goqu.Ex{"doctor_id": doctorID, "appointment_date": day},
		goqu.C("status").Neq(string(StatusCancelled)),
	).Order(goqu.I("slot").Asc()))
	if err != nil {
		return nil, apperrors.Internal("build query", err)
	}
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, translate(err, "booked slots")
	}
	defer rows.Close()
	var slots []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, translate(err, "booked slots")
		}
		slots = append(slots, s)
	}
	return slots, translate(rows.Err(), "booked slots")
}

func (r *appointmentRepoPG) ListDue(ctx context.Context, status Status, from, to time.Time, limit int) ([]*Appointment, error) {
	ds := db.From("appointments").Select(db.Cols(appointmentCols...)...).
		Where(goqu.Ex{"status": string(status)}, goqu.C("starts_at").Lt(to))
	if !from.IsZero() {
		ds = ds.Where(goqu.C("starts_at").Gte(from))
	}
	return queryAll(ctx, r.conn(ctx), "due appointments",
		ds.Order(goqu.I("starts_at").Asc(), goqu.I("id").Asc()).Limit(uint(limit)), scanAppointment)
}

// =========== Doctor Note Repository ===========

type noteRepoPG struct{ pool *pgxpool.Pool }

func NewNoteRepoPG(pool *pgxpool.Pool) NoteRepository { return &noteRepoPG{pool: pool} }

func (r *noteRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

var noteCols = []string{"id", "appointment_id", "doctor_id", "patient_id", "notes", "medicines", "created_at", "updated_at"}

func scanNote(row pgx.Row) (*DoctorNote, error) {
	var n DoctorNote
	var raw []byte
	if err := row.Scan(&n.ID, &n.AppointmentID, &n.DoctorID, &n.PatientID, &n.Notes, &raw, &n.CreatedAt, &n.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &n.Medicines); err != nil {
		return nil, apperrors.Internal("decode medicines", err)
	}
	return &n, nil
}

func medicinesJSON(m []Medicine) (string, error) {
	if m == nil {
		m = []Medicine{}
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return "", apperrors.Internal("encode medicines", err)
	}
	return string(raw), nil
}

func (r *noteRepoPG) Create(ctx context.Context, n *DoctorNote) error {
	meds, err := medicinesJSON(n.Medicines)
	if err != nil {
		return err
	}
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	now := time.Now().UTC()
	n.CreatedAt, n.UpdatedAt = now, now
	query, args, err := db.Build("doctor note", db.Insert("doctor_notes").Rows(goqu.Record{
		"id": n.ID, "appointment_id": n.AppointmentID, "doctor_id": n.DoctorID, "patient_id": n.PatientID,
		"notes": n.Notes, "medicines": meds, "created_at": now, "updated_at": now,
	}))
	if err != nil {
		return apperrors.Internal("build query", err)
	}
	_, err = r.conn(ctx).Exec(ctx, query, args...)
	return translate(err, "doctor note")
}

func (r *noteRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*DoctorNote, error) {
	return queryOne(ctx, r.conn(ctx), "doctor note",
		db.From("doctor_notes").Select(db.Cols(noteCols...)...).Where(goqu.Ex{"id": id}), scanNote)
}

func (r *noteRepoPG) Update(ctx context.Context, n *DoctorNote) error {
	meds, err := medicinesJSON(n.Medicines)
	if err != nil {
		return err
	}
	n.UpdatedAt = time.Now().UTC()
	return execOne(ctx, r.conn(ctx), "doctor note", db.Update("doctor_notes").Set(goqu.Record{
		"notes": n.Notes, "medicines": meds, "updated_at": n.UpdatedAt,
	}).Where(goqu.Ex{"id": n.ID}))
}

func (r *noteRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	return execOne(ctx, r.conn(ctx), "doctor note", db.Delete("doctor_notes").Where(goqu.Ex{"id": id}))
}

func (r *noteRepoPG) List(ctx context.Context, f NoteFilter, limit, offset int) ([]*DoctorNote, int, error) {
	ds := db.From("doctor_notes")
	if f.AppointmentID != nil {
		ds = ds.Where(goqu.Ex{"appointment_id": *f.AppointmentID})
	}
	if f.DoctorID != nil {
		ds = ds.Where(goqu.Ex{"doctor_id": *f.DoctorID})
	}
	if f.PatientID != nil {
		ds = ds.Where(goqu.Ex{"patient_id": *f.PatientID})
	}
	total, err := db.Count(ctx, r.conn(ctx), "doctor notes", ds)
	if err != nil {
		return nil, 0, err
	}
	items, err := queryAll(ctx, r.conn(ctx), "doctor notes", ds.Select(db.Cols(noteCols...)...).
		Order(goqu.I("created_at").Desc(), goqu.I("id").Asc()).
		Limit(uint(limit)).Offset(uint(offset)), scanNote)
	return items, total, err
}
