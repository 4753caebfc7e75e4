/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:
  Pre-built scenarios that populate the store with realistic data for
  demos. Each scenario creates accounts, contractors, meters with
  reading histories, and tickets in various lifecycle states.

AVAILABLE SCENARIOS:
  small-block:  One building, a handful of accounts, two contractors
  in-arrears:   Accounts with large positive balances for the debtor
                ranking report

HOW SCENARIOS WORK:
 1. Reset the store (wipe all data) via the configured Resetter
 2. Create contractors (they must exist before ticket assignment)
 3. Create accounts and meters with a few months of readings
 4. Open tickets and walk some of them through assign/close

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "small-block"}

NOTE:
  Scenarios reset the store. Only use in development/demo environments.
  If no Resetter is configured on the Handler, loading is rejected.

SEE ALSO:
  - handlers.go: ListScenarios, LoadScenario handlers
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/housing-ledger/domain"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "small-block",
		Name:        "Small Block",
		Description: "One building: accounts, meters with histories, tickets in every state",
	},
	{
		ID:          "in-arrears",
		Name:        "In Arrears",
		Description: "Accounts with large debts for the debtor ranking report",
	},
}

// ListScenarios returns the available demo scenarios.
// GET /api/scenarios
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// LoadScenario wipes the store and loads the selected scenario.
// POST /api/scenarios/load
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	if h.Resetter == nil {
		writeError(w, http.StatusForbidden, "Scenario loading is disabled", nil)
		return
	}

	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body", err)
		return
	}

	if err := h.Resetter(); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset store", err)
		return
	}

	ctx := r.Context()
	var err error
	switch req.ScenarioID {
	case "small-block":
		err = loadSmallBlock(ctx, h.Store)
	case "in-arrears":
		err = loadInArrears(ctx, h.Store)
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Unknown scenario %q", req.ScenarioID), nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}

	h.currentScenario = req.ScenarioID
	writeJSON(w, http.StatusOK, map[string]string{"loaded": req.ScenarioID})
}

// =============================================================================
// LOADERS
// =============================================================================

func loadSmallBlock(ctx context.Context, s domain.Store) error {
	for _, c := range []domain.Contractor{
		{Name: "AquaService", Specialty: "plumbing", Contact: "+7 900 111-22-33"},
		{Name: "ElectroMontage", Specialty: "electrical", Contact: "+7 900 444-55-66"},
	} {
		if _, err := s.CreateContractor(ctx, c); err != nil {
			return err
		}
	}

	accounts := []domain.Account{
		{ID: "ACC-001", Address: "Lenina 10, apt 1", Owner: "Ivanov I.I.", Balance: dec("1500.00"), Subsidy: true},
		{ID: "ACC-002", Address: "Lenina 10, apt 2", Owner: "Petrova A.S.", Balance: dec("0")},
		{ID: "ACC-003", Address: "Lenina 10, apt 3", Owner: "Sidorov P.K.", Balance: dec("-230.50")},
	}
	for _, a := range accounts {
		if err := s.CreateAccount(ctx, a); err != nil {
			return err
		}
	}

	base := domain.NewDate(2025, time.March, 1)
	meters := []struct {
		id, addr string
		typ      domain.MeterType
		values   []string
	}{
		{"MTR-001", "Lenina 10, apt 1", domain.MeterColdWater, []string{"120.5", "125.8", "131.2"}},
		{"MTR-002", "Lenina 10, apt 1", domain.MeterElectricity, []string{"4410", "4522", "4651"}},
		{"MTR-003", "Lenina 10, apt 2", domain.MeterHotWater, []string{"88.1"}},
	}
	for _, m := range meters {
		meter := domain.Meter{
			ID:      m.id,
			Type:    m.typ,
			Address: m.addr,
			Readings: []domain.Reading{
				{Date: base, Value: dec(m.values[0])},
			},
		}
		if err := s.CreateMeter(ctx, meter); err != nil {
			return err
		}
		for i, v := range m.values[1:] {
			r := domain.Reading{Date: base.AddMonths(i + 1), Value: dec(v)}
			if err := s.AppendReading(ctx, m.id, r); err != nil {
				return err
			}
		}
	}

	// Tickets: one per lifecycle state.
	tickets := []domain.Ticket{
		{ID: "REQ-0001", CreatedAt: base, Address: "Lenina 10, apt 1", Problem: "Leaking pipe in bathroom", Contact: "+7 900 123-45-67", Status: domain.TicketOpen},
		{ID: "REQ-0002", CreatedAt: base.AddDays(3), Address: "Lenina 10, apt 2", Problem: "No power in kitchen", Status: domain.TicketInProgress, Contractor: "ElectroMontage"},
		{ID: "REQ-0003", CreatedAt: base.AddDays(5), Address: "Lenina 10, apt 3", Problem: "Radiator cold", Status: domain.TicketClosed, Contractor: "AquaService"},
	}
	for _, t := range tickets {
		if err := s.CreateTicket(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

func loadInArrears(ctx context.Context, s domain.Store) error {
	balances := []string{"100", "50", "200", "0", "75", "12430.77", "8211.40"}
	for i, b := range balances {
		a := domain.Account{
			ID:      fmt.Sprintf("ACC-%03d", i+1),
			Address: fmt.Sprintf("Sadovaya 5, apt %d", i+1),
			Owner:   fmt.Sprintf("Resident %d", i+1),
			Balance: dec(b),
			Subsidy: i%3 == 0,
		}
		if err := s.CreateAccount(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }
