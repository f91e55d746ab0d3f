package identity

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/tshakameya123/Kaga-Hospital/internal/platform/db"
	"github.com/tshakameya123/Kaga-Hospital/pkg/apperrors"
)

const minPasswordLen = 6

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// BcryptHasher hashes with bcrypt at Cost (bcrypt.DefaultCost when zero).
type BcryptHasher struct {
	Cost int
}

func (h BcryptHasher) Hash(password string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", apperrors.Internal("hash password", err)
	}
	return string(b), nil
}

func (h BcryptHasher) Compare(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

type TokenIssuer interface {
	Issue(userID, name, role string) (string, time.Time, error)
	Revoke(ctx context.Context, token string) error
}

type Service struct {
	users    UserRepository
	patients PatientRepository
	staff    StaffRepository
	tx       db.TxRunner
	hasher   PasswordHasher
	tokens   TokenIssuer
	logger   zerolog.Logger
}

func NewService(users UserRepository, patients PatientRepository, staff StaffRepository,
	tx db.TxRunner, hasher PasswordHasher, tokens TokenIssuer, logger zerolog.Logger) *Service {
	return &Service{
		users: users, patients: patients, staff: staff,
		tx: tx, hasher: hasher, tokens: tokens,
		logger: logger.With().Str("component", "identity").Logger(),
	}
}

// -- Auth --

type RegisterInput struct {
	Name        string `json:"name" validate:"required,max=255"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=6"`
	DateOfBirth string `json:"dateOfBirth"`
	Gender      string `json:"gender" validate:"omitempty,oneof=Male Female"`
	PhoneNumber string `json:"phoneNumber"`
	Address     string `json:"address"`
}

// Register creates a patient account and its patient profile together.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	profile := ProfileInput{
		DateOfBirth: in.DateOfBirth, Gender: in.Gender,
		PhoneNumber: in.PhoneNumber, Address: in.Address,
	}
	p, err := s.newPatient(profile)
	if err != nil {
		return nil, err
	}

	var user *User
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		u, err := s.createUser(ctx, in.Name, in.Email, in.Password, RolePatient)
		if err != nil {
			return err
		}
		p.UserID = u.ID
		if err := s.patients.Create(ctx, p); err != nil {
			return err
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("user_id", user.ID.String()).Msg("patient registered")
	return s.issue(user)
}

func (s *Service) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, apperrors.Validation("please provide email and password")
	}
	u, err := s.users.GetByEmail(ctx, NormalizeEmail(email))
	if apperrors.IsKind(err, apperrors.KindNotFound) {
		return nil, apperrors.Unauthorized("invalid credentials")
	}
	if err != nil {
		return nil, err
	}
	if s.hasher.Compare(u.PasswordHash, password) != nil {
		return nil, apperrors.Unauthorized("invalid credentials")
	}
	return s.issue(u)
}

// DoctorLogin authenticates a doctor by any case-insensitive fragment of
// their name, e.g. "ben" for "Dr. Ben Kato". The first matching doctor whose
// password checks out wins.
func (s *Service) DoctorLogin(ctx context.Context, username, password string) (*AuthResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, apperrors.Validation("please provide username and password")
	}
	candidates, err := s.users.FindByName(ctx, username, RoleDoctor)
	if err != nil {
		return nil, err
	}
	for _, u := range candidates {
		if s.hasher.Compare(u.PasswordHash, password) == nil {
			return s.issue(u)
		}
	}
	return nil, apperrors.Unauthorized("invalid doctor credentials")
}

// Logout revokes token. An empty token is accepted so clients that never
// logged in can still call it.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.tokens.Revoke(ctx, token); err != nil {
		return apperrors.Unauthorized("invalid token")
	}
	return nil
}

func (s *Service) Me(ctx context.Context, userID uuid.UUID) (*User, error) {
	return s.users.GetByID(ctx, userID)
}

func (s *Service) issue(u *User) (*AuthResult, error) {
	token, exp, err := s.tokens.Issue(u.ID.String(), u.Name, string(u.Role))
	if err != nil {
		return nil, apperrors.Internal("issue token", err)
	}
	return &AuthResult{Token: token, ExpiresAt: exp, User: u}, nil
}

// -- Users --

type CreateUserInput struct {
	Name     string `json:"name" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Role     Role   `json:"role" validate:"omitempty,oneof=admin doctor patient"`
}

func (s *Service) CreateUser(ctx context.Context, in CreateUserInput) (*User, error) {
	role := in.Role
	if role == "" {
		role = RolePatient
	}
	return s.createUser(ctx, in.Name, in.Email, in.Password, role)
}

func (s *Service) createUser(ctx context.Context, name, email, password string, role Role) (*User, error) {
	name = strings.TrimSpace(name)
	email = NormalizeEmail(email)
	if name == "" || email == "" || password == "" {
		return nil, apperrors.Validation("please provide name, email and password")
	}
	if !strings.Contains(email, "@") {
		return nil, apperrors.Validation("email must be a valid email address")
	}
	if len(password) < minPasswordLen {
		return nil, apperrors.Validation("password must be at least %d characters", minPasswordLen)
	}
	if !role.Valid() {
		return nil, apperrors.Validation("invalid role %q", role)
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.Conflict("email already registered")
	} else if !apperrors.IsKind(err, apperrors.KindNotFound) {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	u := &User{Name: name, Email: email, PasswordHash: hash, Role: role}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *Service) ListUsers(ctx context.Context, f UserFilter, limit, offset int) ([]*User, int, error) {
	if f.Role != "" && !f.Role.Valid() {
		return nil, 0, apperrors.Validation("invalid role %q", f.Role)
	}
	return s.users.List(ctx, f, limit, offset)
}

type UpdateUserInput struct {
	Name     *string `json:"name" validate:"omitempty,max=255"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Password *string `json:"password" validate:"omitempty,min=6"`
	Role     *Role   `json:"role" validate:"omitempty,oneof=admin doctor patient"`
}

func (s *Service) UpdateUser(ctx context.Context, id uuid.UUID, in UpdateUserInput) (*User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return nil, apperrors.Validation("name cannot be empty")
		}
		u.Name = strings.TrimSpace(*in.Name)
	}
	if in.Email != nil {
		email := NormalizeEmail(*in.Email)
		if email != u.Email {
			if _, err := s.users.GetByEmail(ctx, email); err == nil {
				return nil, apperrors.Conflict("email already registered")
			} else if !apperrors.IsKind(err, apperrors.KindNotFound) {
				return nil, err
			}
			u.Email = email
		}
	}
	if in.Password != nil {
		if len(*in.Password) < minPasswordLen {
			return nil, apperrors.Validation("password must be at least %d characters", minPasswordLen)
		}
		hash, err := s.hasher.Hash(*in.Password)
		if err != nil {
			return nil, err
		}
		u.PasswordHash = hash
	}
	if in.Role != nil {
		if !in.Role.Valid() {
			return nil, apperrors.Validation("invalid role %q", *in.Role)
		}
		u.Role = *in.Role
	}
	if err := s.users.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) DeleteUser(ctx context.Context, id uuid.UUID) error {
	return s.users.Delete(ctx, id)
}

// -- Patients --

type ProfileInput struct {
	DateOfBirth    string `json:"dateOfBirth"`
	Gender         string `json:"gender" validate:"omitempty,oneof=Male Female"`
	PhoneNumber    string `json:"phoneNumber" validate:"omitempty,max=32"`
	Address        string `json:"address"`
	MedicalHistory string `json:"medicalHistory"`
}

type CreatePatientInput struct {
	// UserID links an existing account; otherwise Name, Email and Password
	// create one.
	UserID   *uuid.UUID `json:"userId"`
	Name     string     `json:"name"`
	Email    string     `json:"email" validate:"omitempty,email"`
	Password string     `json:"password"`
	ProfileInput
}

func (s *Service) newPatient(in ProfileInput) (*Patient, error) {
	dob, err := parseDate(in.DateOfBirth)
	if err != nil {
		return nil, err
	}
	if in.Gender != "" && !validGenders[in.Gender] {
		return nil, apperrors.Validation("gender must be Male or Female")
	}
	return &Patient{
		DateOfBirth:    dob,
		Gender:         strPtr(in.Gender),
		PhoneNumber:    strPtr(strings.TrimSpace(in.PhoneNumber)),
		Address:        strPtr(strings.TrimSpace(in.Address)),
		MedicalHistory: in.MedicalHistory,
	}, nil
}

func (s *Service) CreatePatient(ctx context.Context, in CreatePatientInput) (*Patient, error) {
	p, err := s.newPatient(in.ProfileInput)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		u, err := s.resolveUser(ctx, in.UserID, in.Name, in.Email, in.Password, RolePatient)
		if err != nil {
			return err
		}
		p.UserID, p.Name, p.Email = u.ID, u.Name, u.Email
		return s.patients.Create(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// resolveUser loads the account to attach a profile to, creating it when no
// id is given.
func (s *Service) resolveUser(ctx context.Context, id *uuid.UUID, name, email, password string, role Role) (*User, error) {
	if id == nil || *id == uuid.Nil {
		return s.createUser(ctx, name, email, password, role)
	}
	u, err := s.users.GetByID(ctx, *id)
	if apperrors.IsKind(err, apperrors.KindNotFound) {
		return nil, apperrors.Validation("user %s does not exist", *id)
	}
	if err != nil {
		return nil, err
	}
	if u.Role != role {
		return nil, apperrors.Validation("user %s has role %s, expected %s", u.ID, u.Role, role)
	}
	return u, nil
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

func (s *Service) GetPatientByUserID(ctx context.Context, userID uuid.UUID) (*Patient, error) {
	return s.patients.GetByUserID(ctx, userID)
}

func (s *Service) ListPatients(ctx context.Context, f PatientFilter, limit, offset int) ([]*Patient, int, error) {
	return s.patients.List(ctx, f, limit, offset)
}

type UpdatePatientInput struct {
	DateOfBirth    *string `json:"dateOfBirth"`
	Gender         *string `json:"gender" validate:"omitempty,oneof=Male Female"`
	PhoneNumber    *string `json:"phoneNumber" validate:"omitempty,max=32"`
	Address        *string `json:"address"`
	MedicalHistory *string `json:"medicalHistory"`
}

func (s *Service) UpdatePatient(ctx context.Context, id uuid.UUID, in UpdatePatientInput) (*Patient, error) {
	p, err := s.patients.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.DateOfBirth != nil {
		dob, err := parseDate(*in.DateOfBirth)
		if err != nil {
			return nil, err
		}
		p.DateOfBirth = dob
	}
	if in.Gender != nil {
		if *in.Gender != "" && !validGenders[*in.Gender] {
			return nil, apperrors.Validation("gender must be Male or Female")
		}
		p.Gender = strPtr(*in.Gender)
	}
	if in.PhoneNumber != nil {
		p.PhoneNumber = strPtr(strings.TrimSpace(*in.PhoneNumber))
	}
	if in.Address != nil {
		p.Address = strPtr(strings.TrimSpace(*in.Address))
	}
	if in.MedicalHistory != nil {
		p.MedicalHistory = *in.MedicalHistory
	}
	if err := s.patients.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) DeletePatient(ctx context.Context, id uuid.UUID) error {
	return s.patients.Delete(ctx, id)
}

// -- Medical staff --

type CreateStaffInput struct {
	UserID      *uuid.UUID `json:"userId"`
	Name        string     `json:"name"`
	Email       string     `json:"email" validate:"omitempty,email"`
	Password    string     `json:"password"`
	Department  string     `json:"department" validate:"required"`
	PhoneNumber string     `json:"phoneNumber" validate:"omitempty,max=32"`
	Bio         string     `json:"bio"`
}

func (s *Service) CreateStaff(ctx context.Context, in CreateStaffInput) (*MedicalStaff, error) {
	if !IsDepartment(in.Department) {
		return nil, apperrors.Validation("department must be one of %s", strings.Join(Departments, ", "))
	}

	st := &MedicalStaff{
		Department:  in.Department,
		PhoneNumber: strPtr(strings.TrimSpace(in.PhoneNumber)),
		Bio:         strPtr(strings.TrimSpace(in.Bio)),
	}
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		u, err := s.resolveUser(ctx, in.UserID, in.Name, in.Email, in.Password, RoleDoctor)
		if err != nil {
			return err
		}
		st.UserID, st.Name = u.ID, u.Name
		st.Email = u.Email
		if in.Email != "" {
			st.Email = NormalizeEmail(in.Email)
		}
		return s.staff.Create(ctx, st)
	})
	if err != nil {
		return nil, err
	}
	return st, nil
}

func (s *Service) GetStaff(ctx context.Context, id uuid.UUID) (*MedicalStaff, error) {
	return s.staff.GetByID(ctx, id)
}

func (s *Service) GetStaffByUserID(ctx context.Context, userID uuid.UUID) (*MedicalStaff, error) {
	return s.staff.GetByUserID(ctx, userID)
}

func (s *Service) ListStaff(ctx context.Context, f StaffFilter, limit, offset int) ([]*MedicalStaff, int, error) {
	if f.Department != "" && !IsDepartment(f.Department) {
		return nil, 0, apperrors.Validation("unknown department %q", f.Department)
	}
	return s.staff.List(ctx, f, limit, offset)
}

type UpdateStaffInput struct {
	Department  *string `json:"department"`
	PhoneNumber *string `json:"phoneNumber" validate:"omitempty,max=32"`
	Email       *string `json:"email" validate:"omitempty,email"`
	Bio         *string `json:"bio"`
}

func (s *Service) UpdateStaff(ctx context.Context, id uuid.UUID, in UpdateStaffInput) (*MedicalStaff, error) {
	st, err := s.staff.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Department != nil {
		if !IsDepartment(*in.Department) {
			return nil, apperrors.Validation("department must be one of %s", strings.Join(Departments, ", "))
		}
		st.Department = *in.Department
	}
	if in.PhoneNumber != nil {
		st.PhoneNumber = strPtr(strings.TrimSpace(*in.PhoneNumber))
	}
	if in.Email != nil {
		email := NormalizeEmail(*in.Email)
		if email == "" {
			return nil, apperrors.Validation("email cannot be empty")
		}
		st.Email = email
	}
	if in.Bio != nil {
		st.Bio = strPtr(strings.TrimSpace(*in.Bio))
	}
	if err := s.staff.Update(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}

func (s *Service) DeleteStaff(ctx context.Context, id uuid.UUID) error {
	return s.staff.Delete(ctx, id)
}

// parseDate accepts "2006-01-02" or a full RFC 3339 timestamp. Empty means
// unknown.
func parseDate(v string) (*time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	if t, err := time.Parse("2006-01-02", v); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, apperrors.Validation("dateOfBirth must be a date (YYYY-MM-DD)")
	}
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return &d, nil
}
