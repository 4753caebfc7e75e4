/*
store.go - Persistence contract for the four entity collections

PURPOSE:
  Defines the interface between the domain engines and the database.
  The Store is the sole owner of all entity state; the metering, billing,
  dispatch and reports engines consume it read-only and perform their one
  well-defined write each through this contract. They never bypass it.

CONTRACT SEMANTICS:
  - Create* fails with DuplicateKeyError if the id is taken.
  - Get*, Update*, Delete* fail with NotFoundError if the id is absent.
  - Update* takes a mutator: the store loads the record, applies the
    function, and persists the result as one logical operation. If the
    mutator returns an error nothing is written.
  - All operations are synchronous and durable before returning.

KNOWN NON-INVARIANTS (kept deliberately, see DESIGN.md):
  - DeleteAccount does not cascade: tickets and meters keep stale
    address/account references.
  - AppendReading trusts the caller to supply readings in chronological
    order; stored order IS chronological order and is never re-sorted.

IMPLEMENTATIONS:
  - domain/store/memory.go: in-memory, for tests and dev
  - store/sqlite/sqlite.go: durable SQLite store

SEE ALSO:
  - errors.go: the errors this contract raises
*/
package domain

import "context"

// Store is the single owner of the entity collections.
type Store interface {
	AccountStore
	TicketStore
	MeterStore
	ContractorStore
}

// =============================================================================
// ACCOUNTS
// =============================================================================

type AccountStore interface {
	// CreateAccount persists a new account with a caller-supplied id.
	CreateAccount(ctx context.Context, a Account) error

	GetAccount(ctx context.Context, id string) (Account, error)

	// ListAccounts returns accounts in creation order.
	ListAccounts(ctx context.Context) ([]Account, error)

	// UpdateAccount applies mutate to the stored record and persists it.
	// The id itself is immutable; mutators must not change it.
	UpdateAccount(ctx context.Context, id string, mutate func(*Account) error) error

	// DeleteAccount removes the account. No cascade to tickets or meters.
	DeleteAccount(ctx context.Context, id string) error
}

// =============================================================================
// TICKETS
// =============================================================================

type TicketStore interface {
	CreateTicket(ctx context.Context, t Ticket) error

	GetTicket(ctx context.Context, id string) (Ticket, error)

	// ListTickets returns tickets in creation order.
	ListTickets(ctx context.Context) ([]Ticket, error)

	UpdateTicket(ctx context.Context, id string, mutate func(*Ticket) error) error

	// CountTickets feeds the REQ-#### sequence in the dispatch engine.
	CountTickets(ctx context.Context) (int, error)
}

// =============================================================================
// METERS
// =============================================================================

type MeterStore interface {
	// CreateMeter persists a meter with its initial reading. A meter
	// without a reading cannot exist; implementations reject m if
	// len(m.Readings) == 0 with ErrInvalidInput.
	CreateMeter(ctx context.Context, m Meter) error

	GetMeter(ctx context.Context, id string) (Meter, error)

	ListMeters(ctx context.Context) ([]Meter, error)

	// AppendReading appends at the end of the stored order. It never
	// re-sorts by date.
	AppendReading(ctx context.Context, meterID string, r Reading) error

	DeleteMeter(ctx context.Context, id string) error
}

// =============================================================================
// CONTRACTORS
// =============================================================================

type ContractorStore interface {
	// CreateContractor assigns the next sequence id and returns the
	// stored record.
	CreateContractor(ctx context.Context, c Contractor) (Contractor, error)

	ListContractors(ctx context.Context) ([]Contractor, error)

	// FindContractorByName is the single point where the denormalized
	// ticket->contractor name join is resolved. Exact string equality.
	FindContractorByName(ctx context.Context, name string) (Contractor, error)
}
