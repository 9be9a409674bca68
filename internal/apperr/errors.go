// Package apperr holds the error taxonomy shared by the stores, the session
// component and the HTTP handlers.
package apperr

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrAuthentication     = errors.New("authentication failed")
	ErrAuthorization      = errors.New("not authorized")
	ErrEncoding           = errors.New("qr encoding failed")
	ErrStore              = errors.New("store failure")
	ErrFirstLoginRequired = errors.New("first login: secret rotation required")
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("already exists")
)

// uniqueViolation is the postgres SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// ValidationError reports field-level problems detected before any store call.
// Fields is a fixed struct of optional messages owned by the validating package.
type ValidationError struct {
	Message string
	Fields  any
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return ErrValidation.Error()
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Invalid builds a ValidationError without per-field detail.
func Invalid(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// Store classifies a driver error returned by operation op.
func Store(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%s: %w: %s", op, ErrConflict, pqErr.Constraint)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStore, err)
}
