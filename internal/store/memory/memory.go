// Package memory provides in-process implementations of the storage ports.
// They honour the same contracts as the SQLite store (ordering, homogeneous
// batches, unique keys) and are safe for concurrent use.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"techcalc/internal/model"
)

// ErrDuplicateKey is returned when an insert would overwrite an existing row.
var ErrDuplicateKey = errors.New("duplicate (stock_code, trade_dt)")

// Table is an in-memory IndicatorStore for one family.
type Table[R model.Record] struct {
	mu     sync.RWMutex
	rows   map[string][]R // code → rows ascending by trade_dt
	insert int            // successful Insert calls

	// FailInsert, when set, is returned by the next Insert calls.
	FailInsert error
}

// NewTable returns an empty table.
func NewTable[R model.Record]() *Table[R] {
	return &Table[R]{rows: make(map[string][]R)}
}

// Latest returns the newest row for code, or nil.
func (t *Table[R]) Latest(_ context.Context, code string) (*R, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	rows := t.rows[code]
	if len(rows) == 0 {
		return nil, nil
	}
	r := rows[len(rows)-1]
	return &r, nil
}

// Range returns the rows for code matching q.
func (t *Table[R]) Range(_ context.Context, code string, q model.Query) ([]R, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return scan(t.rows[code], q, func(r R) string { _, dt := r.Key(); return dt }), nil
}

// Insert adds a homogeneous batch atomically.
func (t *Table[R]) Insert(_ context.Context, recs []R) error {
	if _, err := model.CheckBatch(recs); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.FailInsert != nil {
		return t.FailInsert
	}

	byCode := make(map[string][]R)
	seen := make(map[string]bool, len(recs))
	for _, r := range recs {
		code, dt := r.Key()
		if t.has(code, dt) || seen[code+":"+dt] {
			return fmt.Errorf("%w: %s %s", ErrDuplicateKey, code, dt)
		}
		seen[code+":"+dt] = true
		byCode[code] = append(byCode[code], r)
	}
	for code, add := range byCode {
		rows := append(t.rows[code], add...)
		sort.SliceStable(rows, func(i, j int) bool {
			_, a := rows[i].Key()
			_, b := rows[j].Key()
			return a < b
		})
		t.rows[code] = rows
	}
	t.insert++
	return nil
}

func (t *Table[R]) has(code, dt string) bool {
	rows := t.rows[code]
	i := sort.Search(len(rows), func(i int) bool { _, d := rows[i].Key(); return d >= dt })
	if i >= len(rows) {
		return false
	}
	_, d := rows[i].Key()
	return d == dt
}

// All returns a copy of every row for code, ascending.
func (t *Table[R]) All(code string) []R {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]R(nil), t.rows[code]...)
}

// Inserts returns how many Insert calls succeeded.
func (t *Table[R]) Inserts() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.insert
}

// Feed is an in-memory PriceFeed and CodeLister.
type Feed struct {
	mu        sync.RWMutex
	bars      map[string][]model.PriceBar
	suspended map[string]bool // "code:date"
}

// NewFeed returns an empty feed.
func NewFeed() *Feed {
	return &Feed{bars: make(map[string][]model.PriceBar), suspended: make(map[string]bool)}
}

// Add appends bars, keeping every instrument ascending by trade date.
func (f *Feed) Add(bars ...model.PriceBar) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range bars {
		f.bars[b.StockCode] = append(f.bars[b.StockCode], b)
	}
	for code, rows := range f.bars {
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].TradeDt < rows[j].TradeDt })
		f.bars[code] = rows
	}
}

// Suspend marks a session as suspended so Bars skips it.
func (f *Feed) Suspend(code, date string) {
	f.mu.Lock()
	f.suspended[code+":"+date] = true
	f.mu.Unlock()
}

// Bars returns the non-suspended bars for code matching q.
func (f *Feed) Bars(_ context.Context, code string, q model.Query) ([]model.PriceBar, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	var open []model.PriceBar
	for _, b := range f.bars[code] {
		if !f.suspended[b.Key()] {
			open = append(open, b)
		}
	}
	return scan(open, q, func(b model.PriceBar) string { return b.TradeDt }), nil
}

// Codes returns every instrument code, sorted.
func (f *Feed) Codes(_ context.Context) ([]string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	codes := make([]string, 0, len(f.bars))
	for code := range f.bars {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes, nil
}

// scan filters ascending rows by q and applies order and limit.
func scan[T any](rows []T, q model.Query, date func(T) string) []T {
	var out []T
	for _, r := range rows {
		if q.Match(date(r)) {
			out = append(out, r)
		}
	}
	if q.Desc {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}
