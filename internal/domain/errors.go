package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when an activity or series does not exist.
var ErrNotFound = errors.New("not found")

// ValidationError reports user input rejected before any conflict check.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// Conflict is one candidate activity colliding with an existing one.
type Conflict struct {
	Candidate Activity
	Existing  Activity
}

// ConflictError rejects a whole write batch.
type ConflictError struct {
	Conflicts []Conflict
}

func (e *ConflictError) Error() string {
	if len(e.Conflicts) == 0 {
		return "schedule conflict"
	}
	var parts []string
	for _, c := range e.Conflicts {
		parts = append(parts, fmt.Sprintf("%q %s %s collides with %q %s",
			c.Candidate.Name, c.Candidate.Day.ShortName(), c.Candidate.TimeRange(),
			c.Existing.Name, c.Existing.TimeRange()))
	}
	return "schedule conflict: " + strings.Join(parts, "; ")
}

// MalformedImportError aborts an import with nothing added.
type MalformedImportError struct {
	Reason string
	Err    error
}

func (e *MalformedImportError) Error() string {
	if e.Err != nil {
		return "malformed import: " + e.Reason + ": " + e.Err.Error()
	}
	return "malformed import: " + e.Reason
}

func (e *MalformedImportError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsConflict reports whether err is a ConflictError.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// IsMalformedImport reports whether err is a MalformedImportError.
func IsMalformedImport(err error) bool {
	var me *MalformedImportError
	return errors.As(err, &me)
}
