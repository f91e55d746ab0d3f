package identity

import (
	"context"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tshakameya123/Kaga-Hospital/internal/platform/db"
	"github.com/tshakameya123/Kaga-Hospital/pkg/apperrors"
)

var identityConflicts = map[string]string{
	"users_email_key":           "email already registered",
	"patients_user_id_key":      "user already has a patient profile",
	"medical_staff_user_id_key": "user already has a staff profile",
}

func translate(err error, what string) error {
	return db.Translate(err, what, identityConflicts)
}

func execOne(ctx context.Context, q db.Querier, what string, ds db.SQLer) error {
	return db.ExecOne(ctx, q, what, ds, identityConflicts)
}

// =========== User Repository ===========

type userRepoPG struct{ pool *pgxpool.Pool }

func NewUserRepoPG(pool *pgxpool.Pool) UserRepository { return &userRepoPG{pool: pool} }

func (r *userRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

var userCols = []string{"id", "name", "email", "password_hash", "role", "created_at", "updated_at"}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	return &u, err
}

func (r *userRepoPG) Create(ctx context.Context, u *User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	ds := db.Insert("users").Rows(goqu.Record{
		"id": u.ID, "name": u.Name, "email": u.Email, "password_hash": u.PasswordHash,
		"role": string(u.Role), "created_at": now, "updated_at": now,
	})
	query, args, err := db.Build("user", ds)
	if err != nil {
		return apperrors.Internal("build query", err)
	}
	_, err = r.conn(ctx).Exec(ctx, query, args...)
	return translate(err, "user")
}

func (r *userRepoPG) getBy(ctx context.Context, ex goqu.Ex) (*User, error) {
	query, args, err := db.Build("user", db.From("users").Select(db.Cols(userCols...)...).Where(ex))
	if err != nil {
		return nil, apperrors.Internal("build query", err)
	}
	u, err := scanUser(r.conn(ctx).QueryRow(ctx, query, args...))
	if err != nil {
		return nil, translate(err, "user")
	}
	return u, nil
}

func (r *userRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return r.getBy(ctx, goqu.Ex{"id": id})
}

func (r *userRepoPG) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.getBy(ctx, goqu.Ex{"email": NormalizeEmail(email)})
}

func (r *userRepoPG) Update(ctx context.Context, u *User) error {
	u.UpdatedAt = time.Now().UTC()
	return execOne(ctx, r.conn(ctx), "user", db.Update("users").Set(goqu.Record{
		"name": u.Name, "email": u.Email, "password_hash": u.PasswordHash,
		"role": string(u.Role), "updated_at": u.UpdatedAt,
	}).Where(goqu.Ex{"id": u.ID}))
}

func (r *userRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	return execOne(ctx, r.conn(ctx), "user", db.Delete("users").Where(goqu.Ex{"id": id}))
}

func (r *userRepoPG) List(ctx context.Context, f UserFilter, limit, offset int) ([]*User, int, error) {
	ds := db.From("users")
	if f.Role != "" {
		ds = ds.Where(goqu.Ex{"role": string(f.Role)})
	}
	if f.Query != "" {
		ds = ds.Where(goqu.Or(db.ILike("name", f.Query), db.ILike("email", f.Query)))
	}

	total, err := db.Count(ctx, r.conn(ctx), "users", ds)
	if err != nil {
		return nil, 0, err
	}
	items, err := r.query(ctx, ds.Select(db.Cols(userCols...)...).
		Order(goqu.I("created_at").Desc(), goqu.I("id").Asc()).
		Limit(uint(limit)).Offset(uint(offset)))
	return items, total, err
}

func (r *userRepoPG) FindByName(ctx context.Context, fragment string, role Role) ([]*User, error) {
	return r.query(ctx, db.From("users").Select(db.Cols(userCols...)...).
		Where(db.ILike("name", fragment), goqu.Ex{"role": string(role)}).
		Order(goqu.I("created_at").Asc(), goqu.I("id").Asc()))
}

func (r *userRepoPG) query(ctx context.Context, ds *goqu.SelectDataset) ([]*User, error) {
	query, args, err := db.Build("users", ds)
	if err != nil {
		return nil, apperrors.Internal("build query", err)
	}
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, translate(err, "users")
	}
	defer rows.Close()
	var items []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, translate(err, "users")
		}
		items = append(items, u)
	}
	return items, translate(rows.Err(), "users")
}

// =========== Patient Repository ===========

type patientRepoPG struct{ pool *pgxpool.Pool }

func NewPatientRepoPG(pool *pgxpool.Pool) PatientRepository { return &patientRepoPG{pool: pool} }

func (r *patientRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

var patientCols = []string{
	"p.id", "p.user_id", "u.name", "u.email", "p.date_of_birth", "p.gender",
	"p.phone_number", "p.address", "p.medical_history", "p.created_at", "p.updated_at",
}

func patientsFrom() *goqu.SelectDataset {
	return db.From(goqu.T("patients").As("p")).
		InnerJoin(goqu.T("users").As("u"), goqu.On(goqu.I("u.id").Eq(goqu.I("p.user_id"))))
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.Email, &p.DateOfBirth, &p.Gender,
		&p.PhoneNumber, &p.Address, &p.MedicalHistory, &p.CreatedAt, &p.UpdatedAt)
	return &p, err
}

func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	query, args, err := db.Build("patient", db.Insert("patients").Rows(goqu.Record{
		"id": p.ID, "user_id": p.UserID, "date_of_birth": p.DateOfBirth, "gender": p.Gender,
		"phone_number": p.PhoneNumber, "address": p.Address, "medical_history": p.MedicalHistory,
		"created_at": now, "updated_at": now,
	}))
	if err != nil {
		return apperrors.Internal("build query", err)
	}
	_, err = r.conn(ctx).Exec(ctx, query, args...)
	return translate(err, "patient")
}

func (r *patientRepoPG) getBy(ctx context.Context, ex goqu.Ex) (*Patient, error) {
	query, args, err := db.Build("patient", patientsFrom().Select(db.Cols(patientCols...)...).Where(ex))
	if err != nil {
		return nil, apperrors.Internal("build query", err)
	}
	p, err := scanPatient(r.conn(ctx).QueryRow(ctx, query, args...))
	if err != nil {
		return nil, translate(err, "patient")
	}
	return p, nil
}

func (r *patientRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return r.getBy(ctx, goqu.Ex{"p.id": id})
}

func (r *patientRepoPG) GetByUserID(ctx context.Context, userID uuid.UUID) (*Patient, error) {
	return r.getBy(ctx, goqu.Ex{"p.user_id": userID})
}

func (r *patientRepoPG) Update(ctx context.Context, p *Patient) error {
	p.UpdatedAt = time.Now().UTC()
	return execOne(ctx, r.conn(ctx), "patient", db.Update("patients").Set(goqu.Record{
		"date_of_birth": p.DateOfBirth, "gender": p.Gender, "phone_number": p.PhoneNumber,
		"address": p.Address, "medical_history": p.MedicalHistory, "updated_at": p.UpdatedAt,
	}).Where(goqu.Ex{"id": p.ID}))
}

func (r *patientRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	return execOne(ctx, r.conn(ctx), "patient", db.Delete("patients").Where(goqu.Ex{"id": id}))
}

func (r *patientRepoPG) List(ctx context.Context, f PatientFilter, limit, offset int) ([]*Patient, int, error) {
	ds := patientsFrom()
	if f.Gender != "" {
		ds = ds.Where(goqu.Ex{"p.gender": f.Gender})
	}
	if f.Query != "" {
		ds = ds.Where(goqu.Or(db.ILike("u.name", f.Query), db.ILike("u.email", f.Query), db.ILike("p.phone_number", f.Query)))
	}

	total, err := db.Count(ctx, r.conn(ctx), "patients", ds)
	if err != nil {
		return nil, 0, err
	}

	query, args, err := db.Build("patients", ds.Select(db.Cols(patientCols...)...).
		Order(goqu.I("p.created_at").Desc(), goqu.I("p.id").Asc()).
		Limit(uint(limit)).Offset(uint(offset)))
	if err != nil {
		return nil, 0, apperrors.Internal("build query", err)
	}
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, translate(err, "patients")
	}
	defer rows.Close()
	var items []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, translate(err, "patients")
		}
		items = append(items, p)
	}
	return items, total, translate(rows.Err(), "patients")
}

// =========== Medical Staff Repository ===========

type staffRepoPG struct{ pool *pgxpool.Pool }

func NewStaffRepoPG(pool *pgxpool.Pool) StaffRepository { return &staffRepoPG{pool: pool} }

func (r *staffRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

var staffCols = []string{
	"s.id", "s.user_id", "u.name", "s.department", "s.phone_number", "s.email",
	"s.bio", "s.created_at", "s.updated_at",
}

func staffFrom() *goqu.SelectDataset {
	return db.From(goqu.T("medical_staff").As("s")).
		InnerJoin(goqu.T("users").As("u"), goqu.On(goqu.I("u.id").Eq(goqu.I("s.user_id"))))
}

func scanStaff(row pgx.Row) (*MedicalStaff, error) {
	var s MedicalStaff
	err := row.Scan(&s.ID, &s.UserID, &s.Name, &s.Department, &s.PhoneNumber, &s.Email,
		&s.Bio, &s.CreatedAt, &s.UpdatedAt)
	return &s, err
}

func (r *staffRepoPG) Create(ctx context.Context, s *MedicalStaff) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	now := time.Now().UTC()
	s.CreatedAt, s.UpdatedAt = now, now
	query, args, err := db.Build("medical staff", db.Insert("medical_staff").Rows(goqu.Record{
		"id": s.ID, "user_id": s.UserID, "department": s.Department, "phone_number": s.PhoneNumber,
		"email": s.Email, "bio": s.Bio, "created_at": now, "updated_at": now,
	}))
	if err != nil {
		return apperrors.Internal("build query", err)
	}
	_, err = r.conn(ctx).Exec(ctx, query, args...)
	return translate(err, "medical staff")
}

func (r *staffRepoPG) getBy(ctx context.Context, ex goqu.Ex) (*MedicalStaff, error) {
	query, args, err := db.Build("medical staff", staffFrom().Select(db.Cols(staffCols...)...).Where(ex))
	if err != nil {
		return nil, apperrors.Internal("build query", err)
	}
	s, err := scanStaff(r.conn(ctx).QueryRow(ctx, query, args...))
	if err != nil {
		return nil, translate(err, "medical staff")
	}
	return s, nil
}

func (r *staffRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*MedicalStaff, error) {
	return r.getBy(ctx, goqu.Ex{"s.id": id})
}

func (r *staffRepoPG) GetByUserID(ctx context.Context, userID uuid.UUID) (*MedicalStaff, error) {
	return r.getBy(ctx, goqu.Ex{"s.user_id": userID})
}

func (r *staffRepoPG) Update(ctx context.Context, s *MedicalStaff) error {
	s.UpdatedAt = time.Now().UTC()
	return execOne(ctx, r.conn(ctx), "medical staff", db.Update("medical_staff").Set(goqu.Record{
		"department": s.Department, "phone_number": s.PhoneNumber, "email": s.Email,
		"bio": s.Bio, "updated_at": s.UpdatedAt,
	}).Where(goqu.Ex{"id": s.ID}))
}

func (r *staffRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	return execOne(ctx, r.conn(ctx), "medical staff", db.Delete("medical_staff").Where(goqu.Ex{"id": id}))
}

func (r *staffRepoPG) List(ctx context.Context, f StaffFilter, limit, offset int) ([]*MedicalStaff, int, error) {
	ds := staffFrom()
	if f.Department != "" {
		ds = ds.Where(goqu.Ex{"s.department": f.Department})
	}
	if f.Query != "" {
		ds = ds.Where(goqu.Or(db.ILike("u.name", f.Query), db.ILike("s.email", f.Query)))
	}

	total, err := db.Count(ctx, r.conn(ctx), "medical staff", ds)
	if err != nil {
		return nil, 0, err
	}

	// Stable order: auto-assignment walks this list.
	query, args, err := db.Build("medical staff", ds.Select(db.Cols(staffCols...)...).
		Order(goqu.I("s.created_at").Asc(), goqu.I("s.id").Asc()).
		Limit(uint(limit)).Offset(uint(offset)))
	if err != nil {
		return nil, 0, apperrors.Internal("build query", err)
	}
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, translate(err, "medical staff")
	}
	defer rows.Close()
	var items []*MedicalStaff
	for rows.Next() {
		s, err := scanStaff(rows)
		if err != nil {
			return nil, 0, translate(err, "medical staff")
		}
		items = append(items, s)
	}
	return items, total, translate(rows.Err(), "medical staff")
}
