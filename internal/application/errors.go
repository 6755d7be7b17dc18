package application

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrUnauthorized is returned when the acting principal lacks permission for an operation.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrAlreadyExists is returned when a unique attribute is already taken.
	ErrAlreadyExists = errors.New("application: already exists")
	// ErrSlotUnavailable is returned when a range overlaps a booked session or a blackout.
	ErrSlotUnavailable = errors.New("application: slot unavailable")
	// ErrConcurrencyConflict is returned when another writer changed the same record first.
	ErrConcurrencyConflict = errors.New("application: concurrent modification")

	ErrInvalidCredentials = errors.New("application: invalid credentials")
	ErrAccountDisabled    = errors.New("application: account disabled")
	ErrSessionExpired     = errors.New("application: login session expired")
	ErrSessionRevoked     = errors.New("application: login session revoked")

	// Meeting link gate failures.
	ErrLinkCancelled  = errors.New("application: session was cancelled")
	ErrLinkMissed     = errors.New("application: session was missed")
	ErrLinkEnded      = errors.New("application: session has ended")
	ErrLinkNotStarted = errors.New("application: session has not started")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	if len(v.FieldErrors) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(v.FieldErrors))
	for field := range v.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return "validation failed: " + strings.Join(fields, ", ")
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error. The first message per field wins.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	if _, exists := v.FieldErrors[field]; exists {
		return
	}
	v.FieldErrors[field] = message
}

// merge copies entries from another validation error into the receiver.
func (v *ValidationError) merge(other *ValidationError) {
	if other == nil || len(other.FieldErrors) == 0 {
		return
	}
	for field, msg := range other.FieldErrors {
		v.add(field, msg)
	}
}

func fieldError(field, message string) *ValidationError {
	v := &ValidationError{}
	v.add(field, message)
	return v
}
