/*
Package domain holds the core entity model for the housing-utility ledger.

PURPOSE:
  This package contains the four entity collections the system is built
  around (billing accounts, dispatch tickets, utility meters with their
  reading histories, and contractors) plus the invariants that keep them
  consistent. Everything else in the repository (the metering, billing,
  dispatch and reports engines, the HTTP surface) consumes these types
  through the Store contract defined in store.go.

KEY CONCEPTS IN THIS FILE (types.go):
  - Account:    A billing record with a decimal balance and subsidy flag
  - Ticket:     A dispatch request moving Open -> InProgress -> Closed
  - Meter:      A metering point owning an ordered reading history
  - Reading:    A dated cumulative counter value
  - Contractor: A service provider referenced by tickets BY NAME

DESIGN PRINCIPLES:
  1. Precision: all monetary and counter values use decimal.Decimal,
     never binary floating point
  2. Append-only readings: a reading is never edited or removed once
     recorded; the current reading is always the last stored one
  3. Denormalized contractor references are isolated behind the Store's
     FindContractorByName lookup so an id-based redesign touches one place

SEE ALSO:
  - errors.go: Error taxonomy shared by all engines
  - store.go:  Persistence contract (memory and SQLite implementations)
  - date.go:   Day-granularity date type used as the time axis
*/
package domain

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// ACCOUNT - Billing record
// =============================================================================

// Account is a billing record for one housing unit.
//
// Sign convention for Balance: positive means the owner owes money,
// negative means the account is in credit.
type Account struct {
	ID      string
	Address string
	Owner   string
	Balance decimal.Decimal
	Subsidy bool

	// LastPayment is nil until the first payment is posted.
	LastPayment *Date
}

// =============================================================================
// TICKET - Dispatch request
// =============================================================================

type TicketStatus string

const (
	TicketOpen       TicketStatus = "Open"
	TicketInProgress TicketStatus = "InProgress"
	TicketClosed     TicketStatus = "Closed"
)

// Ticket is a reported problem requiring resolution.
//
// INVARIANTS:
//   - Status only moves forward: Open -> InProgress -> Closed
//   - Closed is terminal; closing again is a reported no-op
//   - Contractor is a name reference, empty string = unassigned
type Ticket struct {
	ID         string
	CreatedAt  Date
	Address    string
	Problem    string
	Contact    string
	Status     TicketStatus
	Contractor string
}

// Assigned reports whether a contractor is bound to the ticket.
func (t Ticket) Assigned() bool { return t.Contractor != "" }

// =============================================================================
// METER - Metering point with ordered reading history
// =============================================================================

// MeterType is drawn from a fixed suggestion set but remains an open
// string: the store accepts any non-empty value.
type MeterType string

const (
	MeterColdWater   MeterType = "cold_water"
	MeterHotWater    MeterType = "hot_water"
	MeterElectricity MeterType = "electricity"
	MeterGas         MeterType = "gas"
	MeterHeating     MeterType = "heating"
)

// KnownMeterTypes lists the suggestion set in presentation order.
func KnownMeterTypes() []MeterType {
	return []MeterType{
		MeterColdWater, MeterHotWater, MeterElectricity, MeterGas, MeterHeating,
	}
}

// Reading is one dated value of a cumulative counter. Values normally
// never decrease, but that is not enforced: a falling value (counter
// replacement) passes through the consumption computation unmodified.
type Reading struct {
	Date  Date
	Value decimal.Decimal
}

// Meter owns an append-only sequence of readings. A meter always has at
// least one reading: creation requires the initial one. Stored order is
// chronological order by caller contract; readings are never re-sorted.
type Meter struct {
	ID       string
	Type     MeterType
	Address  string
	Readings []Reading
}

// Latest returns the chronologically last reading, which by the append
// contract is the last stored one. ok is false only for a zero-value
// Meter that never went through the store.
func (m Meter) Latest() (Reading, bool) {
	if len(m.Readings) == 0 {
		return Reading{}, false
	}
	return m.Readings[len(m.Readings)-1], true
}

// =============================================================================
// CONTRACTOR - Service provider lookup set
// =============================================================================

// Contractor is a service provider. IDs are assigned by the store as a
// sequence; tickets reference contractors by Name.
type Contractor struct {
	ID        int64
	Name      string
	Specialty string
	Contact   string
}
