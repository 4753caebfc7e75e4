/*
errors.go - Centralized error taxonomy for the ledger core

PURPOSE:
  All error types in one place for consistency and discoverability.
  Engines wrap these with additional context; the HTTP layer maps them
  to status codes without crashing the process.

ERROR CATEGORIES:
  1. Store errors      - missing or duplicated entity ids
  2. Dispatch errors   - invalid contractor binding, terminal state
  3. Analysis errors   - not enough readings for a derivation
  4. Input errors      - unparseable numbers and dates

USAGE:
  Callers match with errors.Is():

    if errors.Is(err, domain.ErrNotFound) {
        // 404
    }

  Structured variants carry the offending kind/id and Unwrap to the
  sentinel, so both styles work.

SEE ALSO:
  - store.go: Store contract that raises the store errors
  - dispatch/: raises ErrInvalidContractor and ErrTicketClosed
  - metering/: raises ErrInsufficientData
*/
package domain

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotFound is returned when an id is absent for the requested
	// entity kind.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when a create supplies an id that
	// already exists for that entity kind.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrInvalidContractor is returned when a ticket assignment names an
	// unknown or empty contractor.
	ErrInvalidContractor = errors.New("invalid contractor")

	// ErrInsufficientData is returned when a consumption series is
	// requested for a meter with fewer than two readings. Callers must
	// distinguish this from zero consumption.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrInvalidInput is returned for unparseable balances, reading
	// values, amounts and dates.
	ErrInvalidInput = errors.New("invalid input")

	// ErrTicketClosed is returned when an operation other than Close is
	// attempted on a Closed ticket. Close itself is an idempotent no-op.
	ErrTicketClosed = errors.New("ticket closed")
)

// =============================================================================
// ENTITY KINDS - Used in structured store errors
// =============================================================================

type Kind string

const (
	KindAccount    Kind = "account"
	KindTicket     Kind = "ticket"
	KindMeter      Kind = "meter"
	KindContractor Kind = "contractor"
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// NotFoundError reports which entity kind and id was missing.
type NotFoundError struct {
	Kind Kind
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// DuplicateKeyError reports an id collision on create.
type DuplicateKeyError struct {
	Kind Kind
	ID   string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("%s %q already exists", e.Kind, e.ID)
}

func (e *DuplicateKeyError) Unwrap() error { return ErrDuplicateKey }

// InvalidContractorError reports a failed name lookup on assignment.
type InvalidContractorError struct {
	Name string
}

func (e *InvalidContractorError) Error() string {
	if e.Name == "" {
		return "contractor name is empty"
	}
	return fmt.Sprintf("unknown contractor %q", e.Name)
}

func (e *InvalidContractorError) Unwrap() error { return ErrInvalidContractor }

// NoInitialReadingError reports a meter created without its required
// first reading.
type NoInitialReadingError struct {
	MeterID string
}

func (e *NoInitialReadingError) Error() string {
	return fmt.Sprintf("meter %q has no initial reading", e.MeterID)
}

func (e *NoInitialReadingError) Unwrap() error { return ErrInvalidInput }

// InsufficientDataError reports how many readings were available.
type InsufficientDataError struct {
	MeterID  string
	Readings int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("meter %q has %d reading(s), need at least 2", e.MeterID, e.Readings)
}

func (e *InsufficientDataError) Unwrap() error { return ErrInsufficientData }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound reports whether the error indicates a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsClientError reports whether the error is due to invalid caller input
// rather than an internal failure. The HTTP layer uses this to pick 4xx
// over 500.
func IsClientError(err error) bool {
	return errors.Is(err, ErrDuplicateKey) ||
		errors.Is(err, ErrInvalidContractor) ||
		errors.Is(err, ErrInsufficientData) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrTicketClosed)
}
