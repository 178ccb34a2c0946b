package sqlite

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"techcalc/internal/model"
)

// Feed reads adjusted end-of-day bars from eod_prices.
type Feed struct {
	db *DB
}

// NewFeed returns a price feed over db.
func NewFeed(db *DB) *Feed {
	return &Feed{db: db}
}

// Bars returns the bars for code matching q. Rows without a close and
// suspended sessions are skipped.
func (f *Feed) Bars(ctx context.Context, code string, q model.Query) ([]model.PriceBar, error) {
	where, args := buildWhere(code, q)
	rows, err := f.db.db.QueryContext(ctx, `
		SELECT stock_code, trade_dt, adj_high, adj_low, adj_close
		FROM eod_prices`+where+`
		AND adj_close IS NOT NULL
		AND (trade_status IS NULL OR trade_status <> ?)`+orderLimit(q),
		append(args, model.TradeStatusSuspended)...)
	if err != nil {
		return nil, fmt.Errorf("sqlite query eod_prices: %w", err)
	}
	defer rows.Close()

	var bars []model.PriceBar
	for rows.Next() {
		var b model.PriceBar
		if err := rows.Scan(&b.StockCode, &b.TradeDt, &b.High, &b.Low, &b.Close); err != nil {
			return nil, fmt.Errorf("sqlite scan eod_prices: %w", err)
		}
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

// Codes lists every instrument with at least one bar.
func (f *Feed) Codes(ctx context.Context) ([]string, error) {
	rows, err := f.db.db.QueryContext(ctx, `SELECT DISTINCT stock_code FROM eod_prices ORDER BY stock_code`)
	if err != nil {
		return nil, fmt.Errorf("sqlite query codes: %w", err)
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("sqlite scan codes: %w", err)
		}
		codes = append(codes, c)
	}
	return codes, rows.Err()
}

// EODRow is one raw eod_prices row as imported.
type EODRow struct {
	StockCode   string
	TradeDt     string
	High        decimal.NullDecimal
	Low         decimal.NullDecimal
	Close       decimal.NullDecimal
	TradeStatus string
}

// InsertBars upserts rows in a single transaction.
func (f *Feed) InsertBars(ctx context.Context, rows []EODRow) error {
	tx, err := f.db.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO eod_prices (stock_code, trade_dt, adj_high, adj_low, adj_close, trade_status)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, r := range rows {
		var status any
		if r.TradeStatus != "" {
			status = r.TradeStatus
		}
		if _, err := stmt.ExecContext(ctx, r.StockCode, r.TradeDt, r.High, r.Low, r.Close, status); err != nil {
			tx.Rollback()
			return fmt.Errorf("sqlite insert eod_prices %s %s: %w", r.StockCode, r.TradeDt, err)
		}
	}

	return tx.Commit()
}
