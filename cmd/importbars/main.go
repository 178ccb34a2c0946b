// cmd/importbars loads adjusted end-of-day bars from CSV into eod_prices.
//
// The CSV header must be:
//
//	stock_code,trade_dt,adj_high,adj_low,adj_close,trade_status
//
// Empty price cells become NULL. Existing (stock_code, trade_dt) rows are
// replaced.
//
// Usage:
//
//	go run ./cmd/importbars --db=data/techcalc.db prices.csv
package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/shopspring/decimal"

	"techcalc/internal/logger"
	sqlitestore "techcalc/internal/store/sqlite"
)

const chunkSize = 5000

var header = []string{"stock_code", "trade_dt", "adj_high", "adj_low", "adj_close", "trade_status"}

func main() {
	dbPath := flag.String("db", "data/techcalc.db", "Path to the price SQLite database")
	flag.Parse()
	logger.Init("importbars", logger.ParseLevel(os.Getenv("LOG_LEVEL")))

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: importbars [--db=path] file.csv...")
		os.Exit(2)
	}

	db, err := sqlitestore.Open(*dbPath)
	if err != nil {
		slog.Error("open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	feed := sqlitestore.NewFeed(db)

	for _, path := range flag.Args() {
		n, err := importFile(context.Background(), feed, path)
		if err != nil {
			slog.Error("import failed", "file", path, "rows", n, "error", err)
			db.Close()
			os.Exit(1)
		}
		slog.Info("imported", "file", path, "rows", n)
	}
}

func importFile(ctx context.Context, feed *sqlitestore.Feed, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return importCSV(ctx, feed, f)
}

// importCSV reads r and inserts its rows in chunks. It returns how many rows
// were committed.
func importCSV(ctx context.Context, feed *sqlitestore.Feed, r io.Reader) (int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(header)
	cr.TrimLeadingSpace = true

	first, err := cr.Read()
	if err != nil {
		return 0, fmt.Errorf("read header: %w", err)
	}
	for i, h := range header {
		if strings.TrimSpace(strings.ToLower(first[i])) != h {
			return 0, fmt.Errorf("unexpected header %v, want %v", first, header)
		}
	}

	total := 0
	chunk := make([]sqlitestore.EODRow, 0, chunkSize)
	flush := func() error {
		if len(chunk) == 0 {
			return nil
		}
		if err := feed.InsertBars(ctx, chunk); err != nil {
			return err
		}
		total += len(chunk)
		chunk = chunk[:0]
		return nil
	}

	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return total, err
		}
		row, err := parseRow(rec)
		if err != nil {
			return total, fmt.Errorf("line %d: %w", line, err)
		}
		chunk = append(chunk, row)
		if len(chunk) == chunkSize {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}
	return total, flush()
}

func parseRow(rec []string) (sqlitestore.EODRow, error) {
	row := sqlitestore.EODRow{
		StockCode:   strings.TrimSpace(rec[0]),
		TradeDt:     strings.TrimSpace(rec[1]),
		TradeStatus: strings.TrimSpace(rec[5]),
	}
	if row.StockCode == "" || len(row.TradeDt) != 8 {
		return row, fmt.Errorf("bad key %q %q", rec[0], rec[1])
	}
	var err error
	if row.High, err = parseNullDecimal(rec[2]); err != nil {
		return row, fmt.Errorf("adj_high: %w", err)
	}
	if row.Low, err = parseNullDecimal(rec[3]); err != nil {
		return row, fmt.Errorf("adj_low: %w", err)
	}
	if row.Close, err = parseNullDecimal(rec[4]); err != nil {
		return row, fmt.Errorf("adj_close: %w", err)
	}
	return row, nil
}

func parseNullDecimal(s string) (decimal.NullDecimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(d), nil
}
