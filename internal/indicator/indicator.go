// Package indicator holds the day-by-day recurrences behind the persisted
// CCI, MTM and RSI series.
//
// Each family owns its own state shape: CCI and MTM slide a fixed window over
// recent values, RSI carries smoothing accumulators from one day to the next.
// They share only the Advance step, so each formula can be read on its own.
// All arithmetic is fixed-point (shopspring/decimal) with explicit half-up
// rounding at the scale the stored columns use.
package indicator

import "techcalc/internal/model"

// Stepper advances an indicator by one trading day. ok is false when the day
// produces no record (warm-up for MTM, undefined deltas for RSI); the state
// is still advanced.
type Stepper[R any] interface {
	Advance(bar model.PriceBar) (rec R, ok bool)
}

// Evaluate feeds bars to s in order and collects the produced records.
// bars must be ascending by trade date.
func Evaluate[R any](s Stepper[R], bars []model.PriceBar) []R {
	out := make([]R, 0, len(bars))
	for _, bar := range bars {
		if rec, ok := s.Advance(bar); ok {
			out = append(out, rec)
		}
	}
	return out
}
