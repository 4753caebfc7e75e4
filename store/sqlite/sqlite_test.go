package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/housing-ledger/domain"
	"github.com/warp/housing-ledger/store/sqlite"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// =============================================================================
// ACCOUNT ROUND-TRIPS
// =============================================================================

func TestSQLite_AccountRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	paid := domain.NewDate(2025, time.February, 10)
	in := domain.Account{
		ID:          "ACC-001",
		Address:     "Lenina 10, kv 4",
		Owner:       "Ivanova A.P.",
		Balance:     dec("1500.00"),
		Subsidy:     true,
		LastPayment: &paid,
	}
	require.NoError(t, store.CreateAccount(ctx, in))

	out, err := store.GetAccount(ctx, "ACC-001")
	require.NoError(t, err)
	assert.Equal(t, in.Address, out.Address)
	assert.Equal(t, in.Owner, out.Owner)
	assert.True(t, out.Balance.Equal(dec("1500.00")), "balance drifted: %s", out.Balance)
	assert.True(t, out.Subsidy)
	require.NotNil(t, out.LastPayment)
	assert.True(t, out.LastPayment.Equal(paid))
}

func TestSQLite_AccountNilLastPayment(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	require.NoError(t, store.CreateAccount(ctx, domain.Account{
		ID: "ACC-001", Address: "a", Owner: "o", Balance: dec("0"),
	}))

	out, err := store.GetAccount(ctx, "ACC-001")
	require.NoError(t, err)
	assert.Nil(t, out.LastPayment)
}

func TestSQLite_DuplicateAccount(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	a := domain.Account{ID: "ACC-001", Address: "a", Owner: "o", Balance: dec("0")}
	require.NoError(t, store.CreateAccount(ctx, a))

	err := store.CreateAccount(ctx, a)
	assert.ErrorIs(t, err, domain.ErrDuplicateKey)
}

func TestSQLite_UpdateAccount_Persists(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	require.NoError(t, store.CreateAccount(ctx, domain.Account{
		ID: "ACC-001", Address: "a", Owner: "o", Balance: dec("100"),
	}))

	err := store.UpdateAccount(ctx, "ACC-001", func(a *domain.Account) error {
		a.Balance = a.Balance.Sub(dec("40.50"))
		return nil
	})
	require.NoError(t, err)

	out, err := store.GetAccount(ctx, "ACC-001")
	require.NoError(t, err)
	assert.True(t, out.Balance.Equal(dec("59.5")), "got %s", out.Balance)
}

func TestSQLite_UpdateAccount_MutatorErrorRollsBack(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	require.NoError(t, store.CreateAccount(ctx, domain.Account{
		ID: "ACC-001", Address: "a", Owner: "o", Balance: dec("100"),
	}))

	boom := errors.New("boom")
	err := store.UpdateAccount(ctx, "ACC-001", func(a *domain.Account) error {
		a.Balance = dec("0")
		return boom
	})
	require.ErrorIs(t, err, boom)

	out, err := store.GetAccount(ctx, "ACC-001")
	require.NoError(t, err)
	assert.True(t, out.Balance.Equal(dec("100")))
}

func TestSQLite_NotFound(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	_, err := store.GetAccount(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = store.DeleteAccount(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = store.GetTicket(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = store.GetMeter(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = store.AppendReading(ctx, "missing", domain.Reading{
		Date: domain.NewDate(2025, time.March, 1), Value: dec("1"),
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = store.FindContractorByName(ctx, "NoSuchCo")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// =============================================================================
// TICKETS
// =============================================================================

func TestSQLite_TicketRoundTripAndCount(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	n, err := store.CountTickets(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	in := domain.Ticket{
		ID:         "REQ-0001",
		CreatedAt:  domain.NewDate(2025, time.March, 3),
		Address:    "Lenina 10",
		Problem:    "radiator leak",
		Contact:    "+7 900 000-00-00",
		Status:     domain.TicketOpen,
		Contractor: "",
	}
	require.NoError(t, store.CreateTicket(ctx, in))

	out, err := store.GetTicket(ctx, "REQ-0001")
	require.NoError(t, err)
	assert.Equal(t, in.Problem, out.Problem)
	assert.Equal(t, domain.TicketOpen, out.Status)
	assert.False(t, out.Assigned())
	assert.True(t, out.CreatedAt.Equal(in.CreatedAt))

	n, err = store.CountTickets(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSQLite_UpdateTicket_StatusTransition(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	require.NoError(t, store.CreateTicket(ctx, domain.Ticket{
		ID: "REQ-0001", CreatedAt: domain.NewDate(2025, time.March, 3),
		Address: "a", Problem: "p", Status: domain.TicketOpen,
	}))

	err := store.UpdateTicket(ctx, "REQ-0001", func(tk *domain.Ticket) error {
		tk.Contractor = "AquaService"
		tk.Status = domain.TicketInProgress
		return nil
	})
	require.NoError(t, err)

	out, err := store.GetTicket(ctx, "REQ-0001")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketInProgress, out.Status)
	assert.Equal(t, "AquaService", out.Contractor)
}

// =============================================================================
// METERS AND READINGS
// =============================================================================

func TestSQLite_MeterReadingsKeepInsertionOrder(t *testing.T) {
	// GIVEN: A meter whose readings were appended out of date order
	// WHEN: Loading it back
	// THEN: The stored order is the insertion order, not the date order

	ctx := context.Background()
	store := newStore(t)

	require.NoError(t, store.CreateMeter(ctx, domain.Meter{
		ID: "MTR-001", Type: domain.MeterColdWater, Address: "Lenina 10",
		Readings: []domain.Reading{
			{Date: domain.NewDate(2025, time.March, 1), Value: dec("100")},
		},
	}))
	require.NoError(t, store.AppendReading(ctx, "MTR-001", domain.Reading{
		Date: domain.NewDate(2025, time.May, 1), Value: dec("112"),
	}))
	require.NoError(t, store.AppendReading(ctx, "MTR-001", domain.Reading{
		Date: domain.NewDate(2025, time.April, 1), Value: dec("105.5"),
	}))

	out, err := store.GetMeter(ctx, "MTR-001")
	require.NoError(t, err)
	require.Len(t, out.Readings, 3)
	assert.True(t, out.Readings[0].Value.Equal(dec("100")))
	assert.True(t, out.Readings[1].Value.Equal(dec("112")))
	assert.True(t, out.Readings[2].Value.Equal(dec("105.5")))
}

func TestSQLite_CreateMeter_RequiresInitialReading(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	err := store.CreateMeter(ctx, domain.Meter{ID: "MTR-001", Type: domain.MeterGas})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSQLite_DeleteMeter_RemovesReadings(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	require.NoError(t, store.CreateMeter(ctx, domain.Meter{
		ID: "MTR-001", Type: domain.MeterElectricity,
		Readings: []domain.Reading{
			{Date: domain.NewDate(2025, time.March, 1), Value: dec("5000")},
		},
	}))
	require.NoError(t, store.DeleteMeter(ctx, "MTR-001"))

	// Recreating under the same id must not resurrect old readings.
	require.NoError(t, store.CreateMeter(ctx, domain.Meter{
		ID: "MTR-001", Type: domain.MeterElectricity,
		Readings: []domain.Reading{
			{Date: domain.NewDate(2025, time.June, 1), Value: dec("6000")},
		},
	}))
	out, err := store.GetMeter(ctx, "MTR-001")
	require.NoError(t, err)
	require.Len(t, out.Readings, 1)
	assert.True(t, out.Readings[0].Value.Equal(dec("6000")))
}

// =============================================================================
// CONTRACTORS
// =============================================================================

func TestSQLite_ContractorSequenceAndLookup(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	first, err := store.CreateContractor(ctx, domain.Contractor{
		Name: "AquaService", Specialty: "plumbing", Contact: "aqua@example.com",
	})
	require.NoError(t, err)
	second, err := store.CreateContractor(ctx, domain.Contractor{
		Name: "ElectroMontage", Specialty: "electrical",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, int64(2), second.ID)

	found, err := store.FindContractorByName(ctx, "ElectroMontage")
	require.NoError(t, err)
	assert.Equal(t, second.ID, found.ID)
	assert.Equal(t, "electrical", found.Specialty)

	all, err := store.ListContractors(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "AquaService", all[0].Name)
}

// =============================================================================
// RESET
// =============================================================================

func TestSQLite_Reset_WipesEverything(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	require.NoError(t, store.CreateAccount(ctx, domain.Account{
		ID: "ACC-001", Address: "a", Owner: "o", Balance: dec("10"),
	}))
	require.NoError(t, store.CreateTicket(ctx, domain.Ticket{
		ID: "REQ-0001", CreatedAt: domain.NewDate(2025, time.March, 1),
		Address: "a", Problem: "p", Status: domain.TicketOpen,
	}))
	_, err := store.CreateContractor(ctx, domain.Contractor{Name: "AquaService"})
	require.NoError(t, err)

	require.NoError(t, store.Reset())

	accounts, err := store.ListAccounts(ctx)
	require.NoError(t, err)
	assert.Empty(t, accounts)

	n, err := store.CountTickets(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	// The contractor sequence restarts after a reset.
	c, err := store.CreateContractor(ctx, domain.Contractor{Name: "Fresh"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), c.ID)
}
