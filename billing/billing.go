/*
Package billing computes tariffed charge breakdowns for accounts.

PURPOSE:
  Given an account, produce a statement: one line item per service from
  the tariff catalog, a subtotal, and a subsidy-adjusted total due. The
  output is a structured result; currency formatting belongs to the
  presentation layer.

DECIMAL ARITHMETIC:
  Every amount is a decimal.Decimal built from string constants. The
  original system this replaces did this math in binary floating point
  and drifted across repeated report generation; do not reintroduce
  float64 here.

TARIFF CATALOG:
  A fixed table of four services, each with a unit rate and a nominal
  consumption volume, applied identically to every account. The volumes
  are NOT sourced from the account's actual meter consumption. That is a
  known simplification carried over for behavioral fidelity; sourcing
  volumes from the metering engine is the flagged follow-up redesign.

SUBSIDY:
  subsidy == true applies a flat 30% discount:
  totalDue = round(subtotal * 0.7, 2).

SEE ALSO:
  - metering/: where per-account volumes would come from after redesign
  - reports/: consumes account balances, not statements
*/
package billing

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/warp/housing-ledger/domain"
)

// =============================================================================
// TARIFF CATALOG - Fixed table of services
// =============================================================================

// Tariff is one service in the catalog: a unit rate and the nominal
// volume billed for it.
type Tariff struct {
	Service string
	Rate    decimal.Decimal
	Volume  decimal.Decimal
}

var (
	subsidyFactor = decimal.RequireFromString("0.7")

	catalog = []Tariff{
		{Service: "cold_water", Rate: dec("35.78"), Volume: dec("5.2")},
		{Service: "hot_water", Rate: dec("150.25"), Volume: dec("3.8")},
		{Service: "electricity", Rate: dec("4.25"), Volume: dec("120")},
		{Service: "heating", Rate: dec("25.60"), Volume: dec("45.3")},
	}
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// Catalog returns a copy of the tariff table.
func Catalog() []Tariff {
	out := make([]Tariff, len(catalog))
	copy(out, catalog)
	return out
}

// =============================================================================
// STATEMENT - Charge breakdown for one account
// =============================================================================

// LineItem is one charged service: Amount = Rate * Volume.
type LineItem struct {
	Service string
	Rate    decimal.Decimal
	Volume  decimal.Decimal
	Amount  decimal.Decimal
}

// Statement is the structured billing result for one account.
type Statement struct {
	AccountID      string
	LineItems      []LineItem
	Subtotal       decimal.Decimal
	SubsidyApplied bool
	TotalDue       decimal.Decimal
}

// ComputeCharges produces the charge breakdown for an account.
//
// Every account gets the same flat catalog. With subsidy the total is
// rounded to 2 decimal places after the discount; without it the
// subtotal passes through unrounded.
func ComputeCharges(account domain.Account) Statement {
	st := Statement{
		AccountID: account.ID,
		LineItems: make([]LineItem, 0, len(catalog)),
		Subtotal:  decimal.Zero,
	}

	for _, t := range catalog {
		amount := t.Rate.Mul(t.Volume)
		st.LineItems = append(st.LineItems, LineItem{
			Service: t.Service,
			Rate:    t.Rate,
			Volume:  t.Volume,
			Amount:  amount,
		})
		st.Subtotal = st.Subtotal.Add(amount)
	}

	if account.Subsidy {
		st.SubsidyApplied = true
		st.TotalDue = st.Subtotal.Mul(subsidyFactor).Round(2)
	} else {
		st.TotalDue = st.Subtotal
	}
	return st
}

// =============================================================================
// PAYMENT POSTING
// =============================================================================

// PostPayment subtracts amount from the account's balance and stamps the
// payment date. Non-positive amounts are rejected with ErrInvalidInput.
func PostPayment(ctx context.Context, store domain.AccountStore, accountID string, amount decimal.Decimal, date domain.Date) error {
	if !amount.IsPositive() {
		return &paymentAmountError{amount: amount}
	}

	return store.UpdateAccount(ctx, accountID, func(a *domain.Account) error {
		a.Balance = a.Balance.Sub(amount)
		d := date
		a.LastPayment = &d
		return nil
	})
}

type paymentAmountError struct {
	amount decimal.Decimal
}

func (e *paymentAmountError) Error() string {
	return "payment amount must be positive, got " + e.amount.String()
}

func (e *paymentAmountError) Unwrap() error { return domain.ErrInvalidInput }
