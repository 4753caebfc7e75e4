/*
scheduler_test.go - Tests for the background ledger stats refresher
*/
package api

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/warp/housing-ledger/domain"
	"github.com/warp/housing-ledger/domain/store"
)

func TestStatsRefresher_PublishesGauges(t *testing.T) {
	// GIVEN: A store with debt, a ticket and a meter
	ctx := context.Background()
	mem := store.NewMemory()
	h := NewHandler(mem, zerolog.Nop())

	if err := mem.CreateAccount(ctx, domain.Account{
		ID: "ACC-001", Address: "a", Owner: "o", Balance: dec("150.25"),
	}); err != nil {
		t.Fatalf("seed account: %v", err)
	}
	if err := mem.CreateAccount(ctx, domain.Account{
		ID: "ACC-002", Address: "a", Owner: "o", Balance: dec("-30"),
	}); err != nil {
		t.Fatalf("seed account: %v", err)
	}
	if err := mem.CreateTicket(ctx, domain.Ticket{
		ID: "REQ-0001", CreatedAt: domain.NewDate(2025, time.March, 1),
		Address: "a", Problem: "p", Status: domain.TicketOpen,
	}); err != nil {
		t.Fatalf("seed ticket: %v", err)
	}
	if err := mem.CreateMeter(ctx, domain.Meter{
		ID: "MTR-001", Type: domain.MeterColdWater,
		Readings: []domain.Reading{{Date: domain.NewDate(2025, time.March, 1), Value: dec("100")}},
	}); err != nil {
		t.Fatalf("seed meter: %v", err)
	}

	// WHEN: Refreshing synchronously
	NewStatsRefresher(h).Refresh(ctx)

	// THEN: The gauges reflect the store
	if got := testutil.ToFloat64(ledgerOutstandingDebt); got != 150.25 {
		t.Errorf("outstanding debt gauge = %v", got)
	}
	if got := testutil.ToFloat64(ledgerTicketsByStatus.WithLabelValues("Open")); got != 1 {
		t.Errorf("open tickets gauge = %v", got)
	}
	if got := testutil.ToFloat64(ledgerMetersByType.WithLabelValues("cold_water")); got != 1 {
		t.Errorf("meter gauge = %v", got)
	}
}

func TestStatsRefresher_StartStop(t *testing.T) {
	mem := store.NewMemory()
	h := NewHandler(mem, zerolog.Nop())

	r := NewStatsRefresher(h)
	r.Interval = 10 * time.Millisecond

	r.Start()
	r.Start() // second Start is a no-op
	time.Sleep(30 * time.Millisecond)
	r.Stop()
	r.Stop() // second Stop is a no-op
}
