/*
Package metering derives per-interval consumption from meter reading
histories.

PURPOSE:
  The Meter Series Engine owns no state of its own. It reads a meter's
  ordered reading history from the Store and computes the consumption
  between consecutive readings. The one write it performs, appending a
  reading, goes through the Store's mutation contract.

ORDERING CONTRACT:
  Readings are processed in STORED order, which is chronological order by
  caller contract. The engine does not re-sort by date: re-sorting would
  silently change output under out-of-order input, and the callers of
  this system supply readings chronologically.

DELTAS ARE SIGNED:
  delta[i] = value[i+1] - value[i], passed through unmodified. A falling
  delta after a counter replacement is visible to the caller; there is no
  clamping to zero and no anomaly detection here.

SEE ALSO:
  - domain/types.go: Meter and Reading
  - billing/: flat tariff catalog (NOT yet sourced from this engine)
*/
package metering

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/warp/housing-ledger/domain"
)

// ConsumptionInterval is the consumption between two consecutive
// readings, keyed by the date of the later one.
type ConsumptionInterval struct {
	IntervalEnd domain.Date
	Delta       decimal.Decimal
}

// Engine computes consumption series over the store's meter state.
type Engine struct {
	Store domain.MeterStore
}

func NewEngine(store domain.MeterStore) *Engine {
	return &Engine{Store: store}
}

// AppendReading records a new reading at the end of the meter's history.
func (e *Engine) AppendReading(ctx context.Context, meterID string, date domain.Date, value decimal.Decimal) error {
	return e.Store.AppendReading(ctx, meterID, domain.Reading{Date: date, Value: value})
}

// LatestReading returns the chronologically last reading. ok is always
// true for a meter that exists: creation requires an initial reading.
func (e *Engine) LatestReading(ctx context.Context, meterID string) (domain.Reading, bool, error) {
	m, err := e.Store.GetMeter(ctx, meterID)
	if err != nil {
		return domain.Reading{}, false, err
	}
	r, ok := m.Latest()
	return r, ok, nil
}

// ConsumptionSeries returns one delta per consecutive reading pair.
//
// A meter with fewer than two readings yields InsufficientDataError, not
// an empty series: callers must distinguish "no data" from "zero
// consumption".
func (e *Engine) ConsumptionSeries(ctx context.Context, meterID string) ([]ConsumptionInterval, error) {
	m, err := e.Store.GetMeter(ctx, meterID)
	if err != nil {
		return nil, err
	}
	return SeriesOf(m)
}

// SeriesOf computes the consumption series for an already-loaded meter.
func SeriesOf(m domain.Meter) ([]ConsumptionInterval, error) {
	if len(m.Readings) < 2 {
		return nil, &domain.InsufficientDataError{MeterID: m.ID, Readings: len(m.Readings)}
	}

	out := make([]ConsumptionInterval, 0, len(m.Readings)-1)
	for i := 1; i < len(m.Readings); i++ {
		out = append(out, ConsumptionInterval{
			IntervalEnd: m.Readings[i].Date,
			Delta:       m.Readings[i].Value.Sub(m.Readings[i-1].Value),
		})
	}
	return out, nil
}
