package db

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tshakameya123/Kaga-Hospital/pkg/apperrors"
)

// SQLSTATE codes the repositories translate into domain errors.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
)

// IsNoRows reports whether err is pgx's "no rows in result set".
func IsNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// UniqueViolation returns the violated constraint name when err is a unique
// violation.
func UniqueViolation(err error) (string, bool) {
	return pgCode(err, codeUniqueViolation)
}

// ForeignKeyViolation returns the violated constraint name when err is a
// foreign key violation.
func ForeignKeyViolation(err error) (string, bool) {
	return pgCode(err, codeForeignKeyViolation)
}

// CheckViolation returns the violated constraint name when err is a check
// constraint violation.
func CheckViolation(err error) (string, bool) {
	return pgCode(err, codeCheckViolation)
}

func pgCode(err error, code string) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == code {
		return pgErr.ConstraintName, true
	}
	return "", false
}

// Translate maps a driver error onto an application error. Unique violations
// use the message registered for their constraint in conflicts, falling back
// to a generic "already exists".
func Translate(err error, what string, conflicts map[string]string) error {
	if err == nil {
		return nil
	}
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return err
	}
	if IsNoRows(err) {
		return apperrors.NotFound("%s not found", what)
	}
	if constraint, ok := UniqueViolation(err); ok {
		if msg, ok := conflicts[constraint]; ok {
			return apperrors.Conflict("%s", msg)
		}
		return apperrors.Conflict("%s already exists", what)
	}
	if _, ok := ForeignKeyViolation(err); ok {
		return apperrors.Validation("%s references a record that does not exist", what)
	}
	if constraint, ok := CheckViolation(err); ok {
		return apperrors.Validation("%s violates %s", what, constraint)
	}
	return apperrors.Internal("query "+what, err)
}
