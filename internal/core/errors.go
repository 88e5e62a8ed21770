package core

import (
	"errors"
	"fmt"
)

// ErrValidation is matched by every ValidationError.
var ErrValidation = errors.New("validation failed")

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidDate      = errors.New("invalid date")
	ErrEmptyDate        = errors.New("empty date")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyCategory    = errors.New("empty category")
	ErrEmptyTitle       = errors.New("empty title")
	ErrEmptyName        = errors.New("empty name")
	ErrInvalidMonthKey  = errors.New("invalid month key")
	ErrInvalidKind      = errors.New("invalid entry kind")

	ErrDuplicateMonth = errors.New("month already exists")
	ErrMonthNotFound  = errors.New("month not found")
	ErrEntryNotFound  = errors.New("entry not found")
	ErrBlockNotFound  = errors.New("block not found")
	ErrOwnerNotFound  = errors.New("owner not found")
)

// ValidationError reports a rejected field with the reason for rejection.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrValidation) match any ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}
