package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/example/room-reservations/internal/booking"
	"github.com/example/room-reservations/internal/persistence"
)

var (
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrAlreadyExists is returned when a unique attribute is already taken.
	ErrAlreadyExists = errors.New("application: already exists")
	// ErrInvalidReference is matched by ReferenceError.
	ErrInvalidReference = errors.New("application: referenced room or employee does not exist")
	// ErrConflict is matched by ConflictError.
	ErrConflict = errors.New("application: reservation conflict")
	// ErrStore is matched by every StoreError.
	ErrStore = errors.New("application: store failure")
	// ErrStoreTimeout is matched by StoreError values whose Timeout method reports true.
	ErrStoreTimeout = errors.New("application: store timeout")
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

// add records a field level validation error. The first message for a field wins.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	if _, exists := v.FieldErrors[field]; exists {
		return
	}
	v.FieldErrors[field] = message
}

// ReferenceError reports that a reservation names a room or employee the store does not know.
type ReferenceError struct {
	Cause error
}

func (e *ReferenceError) Error() string {
	if e == nil || e.Cause == nil {
		return ErrInvalidReference.Error()
	}
	return fmt.Sprintf("%s: %v", ErrInvalidReference.Error(), e.Cause)
}

// Is lets errors.Is(err, ErrInvalidReference) match.
func (e *ReferenceError) Is(target error) bool {
	return target == ErrInvalidReference
}

func (e *ReferenceError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// ConflictError reports that a requested slot overlaps committed reservations.
type ConflictError struct {
	RoomID    int64
	Date      booking.Date
	Requested booking.Slot
	Conflicts []booking.Conflict
}

func (e *ConflictError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("application: room %d on %s is already booked for %s (conflicts with %v)",
		e.RoomID, e.Date, e.Requested, e.ReservationIDs())
}

// Is lets errors.Is(err, ErrConflict) match.
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// ReservationIDs lists the identifiers of the conflicting reservations.
func (e *ConflictError) ReservationIDs() []int64 {
	if e == nil {
		return nil
	}
	ids := make([]int64, 0, len(e.Conflicts))
	for _, conflict := range e.Conflicts {
		ids = append(ids, conflict.WithReservationID)
	}
	return ids
}

// StoreError wraps failures of the backing store. Timeouts are retriable.
type StoreError struct {
	Op      string
	Err     error
	timeout bool
}

func (e *StoreError) Error() string {
	if e == nil {
		return ""
	}
	kind := "failure"
	if e.timeout {
		kind = "timeout"
	}
	if e.Op == "" {
		return fmt.Sprintf("application: store %s: %v", kind, e.Err)
	}
	return fmt.Sprintf("application: store %s during %s: %v", kind, e.Op, e.Err)
}

// Timeout reports whether the store did not answer in time.
func (e *StoreError) Timeout() bool {
	return e != nil && e.timeout
}

// Is matches ErrStore, and ErrStoreTimeout when the failure was a timeout.
func (e *StoreError) Is(target error) bool {
	switch target {
	case ErrStore:
		return true
	case ErrStoreTimeout:
		return e.Timeout()
	}
	return false
}

func (e *StoreError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// mapStoreError translates persistence failures into the application taxonomy.
// Errors that already belong to the taxonomy are returned unchanged.
func mapStoreError(op string, err error) error {
	if err == nil {
		return nil
	}

	var (
		vErr *ValidationError
		cErr *ConflictError
		rErr *ReferenceError
		sErr *StoreError
	)
	switch {
	case errors.As(err, &vErr), errors.As(err, &cErr), errors.As(err, &rErr), errors.As(err, &sErr):
		return err
	case errors.Is(err, ErrNotFound), errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, ErrAlreadyExists), errors.Is(err, persistence.ErrDuplicate):
		return ErrAlreadyExists
	case errors.Is(err, persistence.ErrForeignKeyViolation):
		return &ReferenceError{Cause: err}
	case errors.Is(err, persistence.ErrConstraintViolation):
		vErr = &ValidationError{}
		vErr.add("request", "la solicitud viola una restricción de datos")
		return vErr
	case errors.Is(err, persistence.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return &StoreError{Op: op, Err: err, timeout: true}
	}
	return &StoreError{Op: op, Err: err}
}
