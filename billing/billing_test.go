package billing_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/housing-ledger/billing"
	"github.com/warp/housing-ledger/domain"
	"github.com/warp/housing-ledger/domain/store"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// =============================================================================
// CHARGE COMPUTATION TESTS
// =============================================================================

func TestComputeCharges_NoSubsidy_TotalEqualsSubtotal(t *testing.T) {
	// GIVEN: An account without subsidy eligibility
	// WHEN: Computing charges
	// THEN: totalDue == subtotal, subsidy not applied

	st := billing.ComputeCharges(domain.Account{ID: "A-1", Balance: dec("0")})

	if st.SubsidyApplied {
		t.Error("subsidy should not be applied")
	}
	if !st.TotalDue.Equal(st.Subtotal) {
		t.Errorf("expected totalDue == subtotal, got %v != %v", st.TotalDue, st.Subtotal)
	}
}

func TestComputeCharges_KnownCatalogTotals(t *testing.T) {
	// The catalog is fixed, so the subtotal is a constant:
	// 35.78*5.2 + 150.25*3.8 + 4.25*120 + 25.60*45.3 = 2426.686

	st := billing.ComputeCharges(domain.Account{ID: "A-1"})

	if len(st.LineItems) != 4 {
		t.Fatalf("expected 4 line items, got %d", len(st.LineItems))
	}
	if !st.Subtotal.Equal(dec("2426.686")) {
		t.Errorf("expected subtotal 2426.686, got %v", st.Subtotal)
	}

	wantAmounts := map[string]string{
		"cold_water":  "186.056",
		"hot_water":   "570.95",
		"electricity": "510",
		"heating":     "1159.68",
	}
	for _, li := range st.LineItems {
		want := dec(wantAmounts[li.Service])
		if !li.Amount.Equal(want) {
			t.Errorf("service %s: expected %v, got %v", li.Service, want, li.Amount)
		}
	}
}

func TestComputeCharges_Subsidy_30PercentDiscountRounded(t *testing.T) {
	// GIVEN: Account A-1, balance 1500.00, subsidy true
	// WHEN: Computing charges
	// THEN: totalDue = round(2426.686 * 0.7, 2) = 1698.68, subsidy recorded

	st := billing.ComputeCharges(domain.Account{
		ID: "A-1", Balance: dec("1500.00"), Subsidy: true,
	})

	if !st.SubsidyApplied {
		t.Error("subsidy should be applied")
	}
	if !st.TotalDue.Equal(dec("1698.68")) {
		t.Errorf("expected totalDue 1698.68, got %v", st.TotalDue)
	}
	// The subtotal stays undiscounted.
	if !st.Subtotal.Equal(dec("2426.686")) {
		t.Errorf("expected subtotal 2426.686, got %v", st.Subtotal)
	}
}

func TestComputeCharges_RepeatedCalls_NoDrift(t *testing.T) {
	// Decimal arithmetic must not drift across repeated report runs.
	first := billing.ComputeCharges(domain.Account{ID: "A-1", Subsidy: true})
	for i := 0; i < 1000; i++ {
		st := billing.ComputeCharges(domain.Account{ID: "A-1", Subsidy: true})
		if !st.TotalDue.Equal(first.TotalDue) {
			t.Fatalf("run %d drifted: %v != %v", i, st.TotalDue, first.TotalDue)
		}
	}
}

// =============================================================================
// PAYMENT POSTING TESTS
// =============================================================================

func TestPostPayment_ReducesBalanceAndStampsDate(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	if err := mem.CreateAccount(ctx, domain.Account{ID: "A-1", Balance: dec("1500.00")}); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	date := domain.NewDate(2025, time.April, 10)
	if err := billing.PostPayment(ctx, mem, "A-1", dec("500.25"), date); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	a, err := mem.GetAccount(ctx, "A-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !a.Balance.Equal(dec("999.75")) {
		t.Errorf("expected balance 999.75, got %v", a.Balance)
	}
	if a.LastPayment == nil || !a.LastPayment.Equal(date) {
		t.Errorf("expected last payment %v, got %v", date, a.LastPayment)
	}
}

func TestPostPayment_NonPositiveAmount_Rejected(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	if err := mem.CreateAccount(ctx, domain.Account{ID: "A-1", Balance: dec("100")}); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	for _, amount := range []string{"0", "-5"} {
		err := billing.PostPayment(ctx, mem, "A-1", dec(amount), domain.Today())
		if !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("amount %s: expected ErrInvalidInput, got %v", amount, err)
		}
	}

	// Balance untouched.
	a, _ := mem.GetAccount(ctx, "A-1")
	if !a.Balance.Equal(dec("100")) {
		t.Errorf("balance changed to %v", a.Balance)
	}
}

func TestPostPayment_UnknownAccount_NotFound(t *testing.T) {
	err := billing.PostPayment(context.Background(), store.NewMemory(), "A-missing", dec("10"), domain.Today())
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
