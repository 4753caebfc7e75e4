/*
Package reports computes read-side summaries over the entity store.

PURPOSE:
  Pure aggregations for the operator's report views: debtor ranking,
  ticket counts by status and by contractor, meter counts by type. Every
  function takes a snapshot via the Store's list operations, never
  mutates anything, and is safe to call repeatedly and concurrently.

CONTRACTOR JOIN:
  The per-contractor ticket counts only include tickets whose contractor
  string matches a known contractor's name. It is a raw string-equality
  join with no foreign-key enforcement: a ticket referencing a deleted or
  renamed contractor silently drops out of the grouping.

SEE ALSO:
  - billing/: per-account statements (not aggregated here)
  - api/dto.go: the wire shapes these results are rendered into
*/
package reports

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/warp/housing-ledger/domain"
)

// DefaultDebtorLimit is the top-N cutoff for the debtor ranking report.
const DefaultDebtorLimit = 5

// Aggregator computes summaries over the store.
type Aggregator struct {
	Store domain.Store
}

func NewAggregator(store domain.Store) *Aggregator {
	return &Aggregator{Store: store}
}

// =============================================================================
// DEBTOR RANKING
// =============================================================================

// DebtorEntry is one row of the debtor ranking, rank starting at 1.
type DebtorEntry struct {
	Rank    int
	Owner   string
	Address string
	Balance decimal.Decimal
}

// TopDebtors returns up to limit accounts ordered by balance descending.
// limit <= 0 selects DefaultDebtorLimit. The sort is stable: accounts
// with equal balances keep their creation order.
func (a *Aggregator) TopDebtors(ctx context.Context, limit int) ([]DebtorEntry, error) {
	if limit <= 0 {
		limit = DefaultDebtorLimit
	}

	accounts, err := a.Store.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(accounts, func(i, j int) bool {
		return accounts[i].Balance.GreaterThan(accounts[j].Balance)
	})
	if len(accounts) > limit {
		accounts = accounts[:limit]
	}

	out := make([]DebtorEntry, len(accounts))
	for i, acc := range accounts {
		out[i] = DebtorEntry{
			Rank:    i + 1,
			Owner:   acc.Owner,
			Address: acc.Address,
			Balance: acc.Balance,
		}
	}
	return out, nil
}

// TotalOutstanding sums the positive balances across all accounts.
// Credits (negative balances) do not offset other owners' debts.
func (a *Aggregator) TotalOutstanding(ctx context.Context) (decimal.Decimal, error) {
	accounts, err := a.Store.ListAccounts(ctx)
	if err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, acc := range accounts {
		if acc.Balance.IsPositive() {
			total = total.Add(acc.Balance)
		}
	}
	return total, nil
}

// =============================================================================
// TICKET SUMMARY
// =============================================================================

// TicketSummary groups ticket counts by status and by known contractor.
type TicketSummary struct {
	Total        int
	ByStatus     map[domain.TicketStatus]int
	ByContractor map[string]int
}

func (a *Aggregator) TicketSummary(ctx context.Context) (TicketSummary, error) {
	tickets, err := a.Store.ListTickets(ctx)
	if err != nil {
		return TicketSummary{}, err
	}
	contractors, err := a.Store.ListContractors(ctx)
	if err != nil {
		return TicketSummary{}, err
	}

	known := make(map[string]bool, len(contractors))
	for _, c := range contractors {
		known[c.Name] = true
	}

	summary := TicketSummary{
		Total:        len(tickets),
		ByStatus:     make(map[domain.TicketStatus]int),
		ByContractor: make(map[string]int),
	}
	for _, t := range tickets {
		summary.ByStatus[t.Status]++
		if t.Assigned() && known[t.Contractor] {
			summary.ByContractor[t.Contractor]++
		}
	}
	return summary, nil
}

// =============================================================================
// METER SUMMARY
// =============================================================================

// MeterSummary counts meters grouped by type.
func (a *Aggregator) MeterSummary(ctx context.Context) (map[domain.MeterType]int, error) {
	meters, err := a.Store.ListMeters(ctx)
	if err != nil {
		return nil, err
	}

	out := make(map[domain.MeterType]int)
	for _, m := range meters {
		out[m.Type]++
	}
	return out, nil
}
