package model

import (
	"context"
	"errors"
	"fmt"
)

// ── Storage Port Interfaces ──
// These interfaces decouple the indicator engines from concrete storage
// (SQLite, in-memory). Each implementation satisfies one or more of them.

var (
	// ErrEmptyBatch is returned by Insert when called with no records.
	ErrEmptyBatch = errors.New("empty insert batch")

	// ErrHeterogeneousBatch is returned by Insert when the records do not all
	// populate the same optional fields.
	ErrHeterogeneousBatch = errors.New("heterogeneous insert batch")
)

// Query bounds and orders a scan over one instrument's rows by trade date.
// Zero-valued fields are ignored.
type Query struct {
	After   string // trade_dt > After
	From    string // trade_dt >= From
	Before  string // trade_dt < Before
	Through string // trade_dt <= Through
	Desc    bool   // newest first
	Limit   int    // 0 = no limit
}

// Match reports whether date satisfies the query bounds.
func (q Query) Match(date string) bool {
	if q.After != "" && date <= q.After {
		return false
	}
	if q.From != "" && date < q.From {
		return false
	}
	if q.Before != "" && date >= q.Before {
		return false
	}
	if q.Through != "" && date > q.Through {
		return false
	}
	return true
}

// PriceFeed reads end-of-day bars. Suspended sessions are never returned.
type PriceFeed interface {
	Bars(ctx context.Context, code string, q Query) ([]PriceBar, error)
}

// CodeLister lists the instruments known to a price feed.
type CodeLister interface {
	Codes(ctx context.Context) ([]string, error)
}

// IndicatorStore persists one indicator family.
type IndicatorStore[R Record] interface {
	// Latest returns the most recent record for code, or nil if none exists.
	Latest(ctx context.Context, code string) (*R, error)

	// Range returns the records for code matching q.
	Range(ctx context.Context, code string, q Query) ([]R, error)

	// Insert writes a homogeneous batch. It fails with ErrEmptyBatch or
	// ErrHeterogeneousBatch without writing anything.
	Insert(ctx context.Context, recs []R) error
}

// CheckBatch validates that recs is non-empty and homogeneous, returning the
// shared shape.
func CheckBatch[R Record](recs []R) (Shape, error) {
	if len(recs) == 0 {
		return 0, ErrEmptyBatch
	}
	shape := recs[0].Shape()
	for _, r := range recs[1:] {
		if r.Shape() != shape {
			code, date := r.Key()
			return 0, fmt.Errorf("%w: %s %s has shape %b, batch has %b", ErrHeterogeneousBatch, code, date, r.Shape(), shape)
		}
	}
	return shape, nil
}
