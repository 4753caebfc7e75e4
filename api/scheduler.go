/*
scheduler.go - Background ledger stats refresher

PURPOSE:
  Periodically recomputes ledger-wide aggregates and publishes them as
  Prometheus gauges, so dashboards see debt and ticket load without
  clients polling the report endpoints.

DESIGN:
  - Runs a background goroutine with a configurable refresh interval
  - Reads through the reports aggregator, never writes
  - A failed refresh logs and keeps the previous gauge values

CONFIGURATION:
  - Interval: How often to refresh (default: 1 minute)
  - Enabled:  Whether the refresher is active (default: true)

USAGE:
  refresher := NewStatsRefresher(handler)
  refresher.Start()
  // ... later
  refresher.Stop()

SEE ALSO:
  - metrics.go: per-request HTTP metrics
  - reports/: the aggregations published here
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var (
	ledgerOutstandingDebt = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ledger_outstanding_debt",
		Help: "Sum of positive account balances.",
	})
	ledgerTicketsByStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ledger_tickets",
		Help: "Number of tickets by status.",
	}, []string{"status"})
	ledgerMetersByType = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ledger_meters",
		Help: "Number of meters by type.",
	}, []string{"type"})
)

// StatsRefresher keeps the ledger gauges current.
type StatsRefresher struct {
	Handler  *Handler
	Interval time.Duration
	Enabled  bool
	Log      zerolog.Logger

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewStatsRefresher creates a refresher with the default interval.
func NewStatsRefresher(h *Handler) *StatsRefresher {
	return &StatsRefresher{
		Handler:  h,
		Interval: time.Minute,
		Enabled:  true,
		Log:      h.Log,
	}
}

// Start launches the background goroutine. Calling Start twice is a
// no-op while the refresher is running.
func (s *StatsRefresher) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Enabled || s.ticker != nil {
		return
	}

	s.ticker = time.NewTicker(s.Interval)
	s.stop = make(chan struct{})
	s.wg.Add(1)

	go func() {
		defer s.wg.Done()

		// Populate the gauges immediately rather than after one interval.
		s.Refresh(context.Background())

		for {
			select {
			case <-s.ticker.C:
				s.Refresh(context.Background())
			case <-s.stop:
				return
			}
		}
	}()

	s.Log.Info().Dur("interval", s.Interval).Msg("stats refresher started")
}

// Stop terminates the background goroutine and waits for it to exit.
func (s *StatsRefresher) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker == nil {
		return
	}
	s.ticker.Stop()
	close(s.stop)
	s.wg.Wait()
	s.ticker = nil

	s.Log.Info().Msg("stats refresher stopped")
}

// Refresh recomputes all gauges once. Exposed so startup and tests can
// refresh synchronously.
func (s *StatsRefresher) Refresh(ctx context.Context) {
	debt, err := s.Handler.Reports.TotalOutstanding(ctx)
	if err != nil {
		s.Log.Error().Err(err).Msg("failed to refresh outstanding debt")
		return
	}
	debtF, _ := debt.Float64() // gauge display only, the ledger stays decimal
	ledgerOutstandingDebt.Set(debtF)

	tickets, err := s.Handler.Reports.TicketSummary(ctx)
	if err != nil {
		s.Log.Error().Err(err).Msg("failed to refresh ticket summary")
		return
	}
	ledgerTicketsByStatus.Reset()
	for status, n := range tickets.ByStatus {
		ledgerTicketsByStatus.WithLabelValues(string(status)).Set(float64(n))
	}

	meters, err := s.Handler.Reports.MeterSummary(ctx)
	if err != nil {
		s.Log.Error().Err(err).Msg("failed to refresh meter summary")
		return
	}
	ledgerMetersByType.Reset()
	for typ, n := range meters {
		ledgerMetersByType.WithLabelValues(string(typ)).Set(float64(n))
	}
}
