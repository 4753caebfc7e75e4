/*
Package dispatch governs the ticket lifecycle and contractor binding.

PURPOSE:
  The state machine for dispatch tickets:

    Open -> InProgress -> Closed

  Transitions only move forward. Closed is terminal: closing an already
  closed ticket is a reported no-op, not an error and not a repeat.

CONTRACTOR BINDING:
  Assignment resolves the contractor name through the Store's
  FindContractorByName lookup (the single point where the denormalized
  name join lives). An unknown or empty name fails with
  InvalidContractorError and leaves the ticket untouched. Assignment and
  the move to InProgress are one atomic store mutation. Re-assignment
  while InProgress simply replaces the contractor.

TICKET IDS:
  Next id = "REQ-" + zero-padded 4-digit (current ticket count + 1).
  This scheme is not collision-safe under concurrent creation or after
  deletions; the core is single-writer, and the id format is part of the
  system's observable behavior. A service deployment would replace it
  with a monotonic counter behind a single-writer guard.

SEE ALSO:
  - domain/types.go: Ticket and TicketStatus
  - reports/: counts tickets by status and contractor
*/
package dispatch

import (
	"context"
	"fmt"

	"github.com/warp/housing-ledger/domain"
)

// Engine drives ticket lifecycle transitions through the store.
type Engine struct {
	Store domain.Store
}

func NewEngine(store domain.Store) *Engine {
	return &Engine{Store: store}
}

// =============================================================================
// TICKET CREATION
// =============================================================================

// OpenTicket creates a new ticket in the Open state with no contractor.
func (e *Engine) OpenTicket(ctx context.Context, address, problem, contact string) (domain.Ticket, error) {
	if problem == "" {
		return domain.Ticket{}, fmt.Errorf("%w: problem description is required", domain.ErrInvalidInput)
	}

	count, err := e.Store.CountTickets(ctx)
	if err != nil {
		return domain.Ticket{}, err
	}

	t := domain.Ticket{
		ID:        FormatTicketID(count + 1),
		CreatedAt: domain.Today(),
		Address:   address,
		Problem:   problem,
		Contact:   contact,
		Status:    domain.TicketOpen,
	}
	if err := e.Store.CreateTicket(ctx, t); err != nil {
		return domain.Ticket{}, err
	}
	return t, nil
}

// FormatTicketID renders the REQ-#### sequence format.
func FormatTicketID(seq int) string {
	return fmt.Sprintf("REQ-%04d", seq)
}

// =============================================================================
// TRANSITIONS
// =============================================================================

// AssignContractor binds a contractor to the ticket and moves it to
// InProgress in a single atomic mutation. Valid from Open or InProgress;
// re-assignment replaces the contractor. Fails with
// InvalidContractorError for an empty or unknown name, and with
// ErrTicketClosed on a terminal ticket; the ticket is unchanged in both
// cases.
func (e *Engine) AssignContractor(ctx context.Context, ticketID, contractorName string) (domain.Ticket, error) {
	if contractorName == "" {
		return domain.Ticket{}, &domain.InvalidContractorError{Name: contractorName}
	}

	// Resolve the name join before mutating anything.
	if _, err := e.Store.FindContractorByName(ctx, contractorName); err != nil {
		if domain.IsNotFound(err) {
			return domain.Ticket{}, &domain.InvalidContractorError{Name: contractorName}
		}
		return domain.Ticket{}, err
	}

	var updated domain.Ticket
	err := e.Store.UpdateTicket(ctx, ticketID, func(t *domain.Ticket) error {
		if t.Status == domain.TicketClosed {
			return fmt.Errorf("%w: cannot assign contractor to %s", domain.ErrTicketClosed, t.ID)
		}
		t.Contractor = contractorName
		t.Status = domain.TicketInProgress
		updated = *t
		return nil
	})
	if err != nil {
		return domain.Ticket{}, err
	}
	return updated, nil
}

// CloseResult reports the outcome of a Close call.
type CloseResult struct {
	Ticket domain.Ticket

	// AlreadyClosed is true when the ticket was Closed before the call.
	// That outcome is informational, not an error, and nothing was
	// mutated.
	AlreadyClosed bool
}

// Close moves the ticket to Closed from Open or InProgress. Closing a
// Closed ticket is an idempotent no-op with AlreadyClosed set.
func (e *Engine) Close(ctx context.Context, ticketID string) (CloseResult, error) {
	current, err := e.Store.GetTicket(ctx, ticketID)
	if err != nil {
		return CloseResult{}, err
	}
	if current.Status == domain.TicketClosed {
		return CloseResult{Ticket: current, AlreadyClosed: true}, nil
	}

	var updated domain.Ticket
	err = e.Store.UpdateTicket(ctx, ticketID, func(t *domain.Ticket) error {
		if t.Status == domain.TicketClosed {
			updated = *t
			return nil
		}
		t.Status = domain.TicketClosed
		updated = *t
		return nil
	})
	if err != nil {
		return CloseResult{}, err
	}
	return CloseResult{Ticket: updated}, nil
}
