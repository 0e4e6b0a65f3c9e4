package store

import (
	"errors"
	"fmt"
)

// ConstraintKind classifies a constraint violation reported by a driver.
type ConstraintKind string

const (
	ConstraintUnique     ConstraintKind = "unique"
	ConstraintForeignKey ConstraintKind = "foreign_key"
	ConstraintNotNull    ConstraintKind = "not_null"
	ConstraintOther      ConstraintKind = "other"
)

// ConnectionError means the store could not serve the operation at the
// transport level. Callers treat the store as absent for the current
// pass and move on to the remaining stores.
type ConnectionError struct {
	Store string
	Err   error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("store %s: connection failed: %v", e.Store, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// WriteError means the store rejected a mutation. Constraint carries the
// violation class when the driver reported one.
type WriteError struct {
	Store      string
	Table      string
	Constraint ConstraintKind
	Err        error
}

func (e *WriteError) Error() string {
	if e.Constraint != "" {
		return fmt.Sprintf("store %s: write to %s violates %s constraint: %v",
			e.Store, e.Table, e.Constraint, e.Err)
	}
	return fmt.Sprintf("store %s: write to %s failed: %v", e.Store, e.Table, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// NotFoundError means the addressed record does not exist in the store.
type NotFoundError struct {
	Store string
	Table string
	ID    any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("store %s: %s id %v not found", e.Store, e.Table, e.ID)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsConnection reports whether err is a ConnectionError.
func IsConnection(err error) bool {
	var ce *ConnectionError
	return errors.As(err, &ce)
}

// IsUniqueViolation reports whether err is a WriteError for a unique or
// primary-key constraint.
func IsUniqueViolation(err error) bool {
	var we *WriteError
	return errors.As(err, &we) && we.Constraint == ConstraintUnique
}

// ConstraintOf extracts the constraint class from a classified
// WriteError.
func ConstraintOf(err error) (ConstraintKind, bool) {
	var we *WriteError
	if errors.As(err, &we) && we.Constraint != "" {
		return we.Constraint, true
	}
	return "", false
}
