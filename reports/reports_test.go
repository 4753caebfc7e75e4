package reports_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/housing-ledger/domain"
	"github.com/warp/housing-ledger/domain/store"
	"github.com/warp/housing-ledger/reports"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func seedAccounts(t *testing.T, mem *store.Memory, balances ...string) {
	t.Helper()
	for i, b := range balances {
		err := mem.CreateAccount(context.Background(), domain.Account{
			ID:      fmt.Sprintf("ACC-%03d", i+1),
			Owner:   fmt.Sprintf("Owner %d", i+1),
			Address: fmt.Sprintf("Lenina 10, apt %d", i+1),
			Balance: dec(b),
		})
		if err != nil {
			t.Fatalf("seed account %d: %v", i, err)
		}
	}
}

// =============================================================================
// DEBTOR RANKING TESTS
// =============================================================================

func TestTopDebtors_OrderAndRanks(t *testing.T) {
	// GIVEN: Accounts with balances [100, 50, 200, 0, 75]
	// WHEN: Requesting the top-3 debtors
	// THEN: Ordered [200, 100, 75] with ranks 1..3

	ctx := context.Background()
	mem := store.NewMemory()
	seedAccounts(t, mem, "100", "50", "200", "0", "75")
	agg := reports.NewAggregator(mem)

	entries, err := agg.TopDebtors(ctx, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}

	wantBalances := []string{"200", "100", "75"}
	for i, want := range wantBalances {
		if !entries[i].Balance.Equal(dec(want)) {
			t.Errorf("position %d: expected balance %s, got %v", i, want, entries[i].Balance)
		}
		if entries[i].Rank != i+1 {
			t.Errorf("position %d: expected rank %d, got %d", i, i+1, entries[i].Rank)
		}
	}
}

func TestTopDebtors_DefaultLimitIsFive(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	seedAccounts(t, mem, "1", "2", "3", "4", "5", "6", "7")
	agg := reports.NewAggregator(mem)

	entries, err := agg.TopDebtors(ctx, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != reports.DefaultDebtorLimit {
		t.Fatalf("expected %d entries, got %d", reports.DefaultDebtorLimit, len(entries))
	}
	if !entries[0].Balance.Equal(dec("7")) {
		t.Errorf("expected top balance 7, got %v", entries[0].Balance)
	}
}

func TestTopDebtors_StableForEqualBalances(t *testing.T) {
	// Equal balances keep creation order.

	ctx := context.Background()
	mem := store.NewMemory()
	seedAccounts(t, mem, "100", "100", "100")
	agg := reports.NewAggregator(mem)

	entries, err := agg.TopDebtors(ctx, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, want := range []string{"Owner 1", "Owner 2", "Owner 3"} {
		if entries[i].Owner != want {
			t.Errorf("position %d: expected %s, got %s", i, want, entries[i].Owner)
		}
	}
}

func TestTopDebtors_FewerAccountsThanLimit(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	seedAccounts(t, mem, "10")
	agg := reports.NewAggregator(mem)

	entries, err := agg.TopDebtors(ctx, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
}

// =============================================================================
// TICKET SUMMARY TESTS
// =============================================================================

func TestTicketSummary_CountsByStatusAndKnownContractor(t *testing.T) {
	// GIVEN: Tickets in every state; one references an unknown contractor
	// WHEN: Summarizing
	// THEN: Status counts are complete; only known contractors counted

	ctx := context.Background()
	mem := store.NewMemory()
	if _, err := mem.CreateContractor(ctx, domain.Contractor{Name: "AquaService", Specialty: "plumbing"}); err != nil {
		t.Fatalf("seed contractor: %v", err)
	}

	date := domain.NewDate(2025, time.March, 1)
	tickets := []domain.Ticket{
		{ID: "REQ-0001", CreatedAt: date, Address: "a", Problem: "p", Status: domain.TicketOpen},
		{ID: "REQ-0002", CreatedAt: date, Address: "a", Problem: "p", Status: domain.TicketInProgress, Contractor: "AquaService"},
		{ID: "REQ-0003", CreatedAt: date, Address: "a", Problem: "p", Status: domain.TicketClosed, Contractor: "AquaService"},
		// Stale reference: contractor was never registered.
		{ID: "REQ-0004", CreatedAt: date, Address: "a", Problem: "p", Status: domain.TicketClosed, Contractor: "GhostCo"},
	}
	for _, tk := range tickets {
		if err := mem.CreateTicket(ctx, tk); err != nil {
			t.Fatalf("seed ticket %s: %v", tk.ID, err)
		}
	}

	summary, err := reports.NewAggregator(mem).TicketSummary(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary.Total != 4 {
		t.Errorf("expected total 4, got %d", summary.Total)
	}
	if summary.ByStatus[domain.TicketOpen] != 1 ||
		summary.ByStatus[domain.TicketInProgress] != 1 ||
		summary.ByStatus[domain.TicketClosed] != 2 {
		t.Errorf("unexpected status counts: %v", summary.ByStatus)
	}
	if summary.ByContractor["AquaService"] != 2 {
		t.Errorf("expected 2 for AquaService, got %d", summary.ByContractor["AquaService"])
	}
	if _, ok := summary.ByContractor["GhostCo"]; ok {
		t.Error("unknown contractor must not appear in the grouping")
	}
}

// =============================================================================
// METER SUMMARY TESTS
// =============================================================================

func TestMeterSummary_CountsByType(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()

	reading := []domain.Reading{{Date: domain.NewDate(2025, time.March, 1), Value: dec("1")}}
	meters := []domain.Meter{
		{ID: "M1", Type: domain.MeterColdWater, Readings: reading},
		{ID: "M2", Type: domain.MeterColdWater, Readings: reading},
		{ID: "M3", Type: domain.MeterElectricity, Readings: reading},
	}
	for _, m := range meters {
		if err := mem.CreateMeter(ctx, m); err != nil {
			t.Fatalf("seed meter %s: %v", m.ID, err)
		}
	}

	summary, err := reports.NewAggregator(mem).MeterSummary(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary[domain.MeterColdWater] != 2 || summary[domain.MeterElectricity] != 1 {
		t.Errorf("unexpected counts: %v", summary)
	}
}

// =============================================================================
// OUTSTANDING DEBT TESTS
// =============================================================================

func TestTotalOutstanding_IgnoresCredits(t *testing.T) {
	// GIVEN: Accounts with balances [100, -230.50, 12430.77, 0]
	// WHEN: Summing the outstanding debt
	// THEN: Only the positive balances count

	ctx := context.Background()
	mem := store.NewMemory()
	seedAccounts(t, mem, "100", "-230.50", "12430.77", "0")

	total, err := reports.NewAggregator(mem).TotalOutstanding(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !total.Equal(dec("12530.77")) {
		t.Errorf("expected 12530.77, got %v", total)
	}
}

func TestTotalOutstanding_EmptyStoreIsZero(t *testing.T) {
	total, err := reports.NewAggregator(store.NewMemory()).TotalOutstanding(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !total.IsZero() {
		t.Errorf("expected zero, got %v", total)
	}
}
