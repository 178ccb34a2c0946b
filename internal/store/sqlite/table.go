package sqlite

import (
	"context"
	"fmt"
	"strings"

	"techcalc/internal/model"
)

// codec maps one record type onto its table. Required columns are always
// written; optional column i is written only when the batch shape has bit i.
type codec[R model.Record] struct {
	table    string
	required []string
	optional []string

	// values returns the required and optional column values of r.
	values func(r R) (required, optional []any)
	// fields returns scan destinations for every column: the key, then
	// required, then optional.
	fields func(r *R) []any
}

// Table is an indicator store backed by one SQLite table.
type Table[R model.Record] struct {
	db *DB
	c  codec[R]
}

// NewCCITable returns the ashare_cci store.
func NewCCITable(db *DB) *Table[model.CCIRecord] {
	return &Table[model.CCIRecord]{db: db, c: codec[model.CCIRecord]{
		table:    "ashare_cci",
		required: []string{"typ"},
		optional: []string{"cci"},
		values: func(r model.CCIRecord) ([]any, []any) {
			return []any{r.Typ}, []any{r.CCI}
		},
		fields: func(r *model.CCIRecord) []any {
			return []any{&r.StockCode, &r.TradeDt, &r.Typ, &r.CCI}
		},
	}}
}

// NewMTMTable returns the ashare_mtm store.
func NewMTMTable(db *DB) *Table[model.MTMRecord] {
	return &Table[model.MTMRecord]{db: db, c: codec[model.MTMRecord]{
		table:    "ashare_mtm",
		required: []string{"mtm"},
		optional: []string{"mamtm"},
		values: func(r model.MTMRecord) ([]any, []any) {
			return []any{r.Mtm}, []any{r.Mamtm}
		},
		fields: func(r *model.MTMRecord) []any {
			return []any{&r.StockCode, &r.TradeDt, &r.Mtm, &r.Mamtm}
		},
	}}
}

// NewRSITable returns the ashare_rsi store.
func NewRSITable(db *DB) *Table[model.RSIRecord] {
	var required, optional []string
	for _, p := range model.RSIPeriods {
		required = append(required, fmt.Sprintf("avg_inc_%dd", p), fmt.Sprintf("avg_dec_%dd", p))
		optional = append(optional, fmt.Sprintf("rsi_%dd", p))
	}
	return &Table[model.RSIRecord]{db: db, c: codec[model.RSIRecord]{
		table:    "ashare_rsi",
		required: required,
		optional: optional,
		values: func(r model.RSIRecord) ([]any, []any) {
			req := make([]any, 0, 6)
			opt := make([]any, 0, 3)
			for i := range model.RSIPeriods {
				req = append(req, r.AvgInc[i], r.AvgDec[i])
				opt = append(opt, r.RSI[i])
			}
			return req, opt
		},
		fields: func(r *model.RSIRecord) []any {
			f := make([]any, 0, 11)
			f = append(f, &r.StockCode, &r.TradeDt)
			for i := range model.RSIPeriods {
				f = append(f, &r.AvgInc[i], &r.AvgDec[i])
			}
			for i := range model.RSIPeriods {
				f = append(f, &r.RSI[i])
			}
			return f
		},
	}}
}

// Latest returns the newest record for code, or nil.
func (t *Table[R]) Latest(ctx context.Context, code string) (*R, error) {
	recs, err := t.Range(ctx, code, model.Query{Desc: true, Limit: 1})
	if err != nil || len(recs) == 0 {
		return nil, err
	}
	return &recs[0], nil
}

// Range returns the records for code matching q.
func (t *Table[R]) Range(ctx context.Context, code string, q model.Query) ([]R, error) {
	cols := append([]string{"stock_code", "trade_dt"}, t.c.required...)
	cols = append(cols, t.c.optional...)
	where, args := buildWhere(code, q)

	rows, err := t.db.db.QueryContext(ctx,
		"SELECT "+strings.Join(cols, ", ")+" FROM "+t.c.table+where+orderLimit(q), args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite query %s: %w", t.c.table, err)
	}
	defer rows.Close()

	var out []R
	for rows.Next() {
		var r R
		if err := rows.Scan(t.c.fields(&r)...); err != nil {
			return nil, fmt.Errorf("sqlite scan %s: %w", t.c.table, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Insert writes a homogeneous batch in one transaction. Only the optional
// columns populated by the batch are named in the statement. An existing
// (stock_code, trade_dt) row fails the whole batch.
func (t *Table[R]) Insert(ctx context.Context, recs []R) error {
	shape, err := model.CheckBatch(recs)
	if err != nil {
		return err
	}

	cols := append([]string{"stock_code", "trade_dt"}, t.c.required...)
	for i, name := range t.c.optional {
		if shape.Has(i) {
			cols = append(cols, name)
		}
	}
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")

	tx, err := t.db.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO "+t.c.table+" ("+strings.Join(cols, ", ")+") VALUES ("+marks+")")
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	args := make([]any, 0, len(cols))
	for _, r := range recs {
		code, dt := r.Key()
		req, opt := t.c.values(r)
		args = append(args[:0], code, dt)
		args = append(args, req...)
		for i, v := range opt {
			if shape.Has(i) {
				args = append(args, v)
			}
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			tx.Rollback()
			return fmt.Errorf("sqlite insert %s %s %s: %w", t.c.table, code, dt, err)
		}
	}

	return tx.Commit()
}
