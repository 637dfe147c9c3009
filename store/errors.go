// Package store defines the repository contracts and the typed error
// taxonomy shared by the mongo and in-memory implementations and by the
// service layer above them. Every rejected mutation maps to one of these
// errors so callers can explain the failure without re-deriving it.
package store

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the referenced entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized is returned when the caller lacks the required role.
	// No state is changed.
	ErrUnauthorized = errors.New("caller lacks required role")

	// ErrNoMembers is returned when an equal distribution is attempted over
	// an event with zero members.
	ErrNoMembers = errors.New("event has no members")

	// ErrInvalidVote is returned on a self-vote attempt.
	ErrInvalidVote = errors.New("cannot vote for own receipt")
)

// ValidationError rejects bad input before any state change. Field names
// the offending field so a UI can point at it.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Validation builds a ValidationError.
func Validation(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// DuplicateReferenceError is returned when a contribution carries an
// external reference that already exists non-rejected in the same event.
// ExistingID lets the submitter recognize "I already submitted this".
type DuplicateReferenceError struct {
	Reference  string
	ExistingID string
}

func (e *DuplicateReferenceError) Error() string {
	return fmt.Sprintf("external reference %q already submitted (contribution %s)", e.Reference, e.ExistingID)
}

// StateConflictError is returned when a transition is requested from a
// state that does not allow it.
type StateConflictError struct {
	Entity  string
	ID      string
	Current string
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("%s %s is %s and cannot transition", e.Entity, e.ID, e.Current)
}

// PendingExpensesError blocks duty completion while receipts are still
// unreviewed, naming how many.
type PendingExpensesError struct {
	DutyID  string
	Pending int
}

func (e *PendingExpensesError) Error() string {
	return fmt.Sprintf("duty %s has %d pending receipt(s) awaiting review", e.DutyID, e.Pending)
}
