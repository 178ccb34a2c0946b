// Package sqlite stores end-of-day bars and indicator series in SQLite.
// Every decimal is kept as TEXT so scale survives the round trip.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/mattn/go-sqlite3"

	"techcalc/internal/model"
)

// DB is a WAL-mode SQLite database with the techcalc schema applied.
type DB struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Single writer; concurrent workers queue on the connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	slog.Info("sqlite opened", "path", path)
	return &DB{db: db}, nil
}

// SQL returns the underlying sql.DB for health checks.
func (d *DB) SQL() *sql.DB { return d.db }

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

func createSchema(db *sql.DB) error {
	_, err := db.ExecContext(context.Background(), `
		CREATE TABLE IF NOT EXISTS eod_prices (
			stock_code   TEXT NOT NULL,
			trade_dt     TEXT NOT NULL,
			adj_high     TEXT,
			adj_low      TEXT,
			adj_close    TEXT,
			trade_status TEXT,
			PRIMARY KEY (stock_code, trade_dt)
		);

		CREATE TABLE IF NOT EXISTS ashare_cci (
			stock_code TEXT NOT NULL,
			trade_dt   TEXT NOT NULL,
			typ        TEXT NOT NULL,
			cci        TEXT,
			PRIMARY KEY (stock_code, trade_dt)
		);

		CREATE TABLE IF NOT EXISTS ashare_mtm (
			stock_code TEXT NOT NULL,
			trade_dt   TEXT NOT NULL,
			mtm        TEXT NOT NULL,
			mamtm      TEXT,
			PRIMARY KEY (stock_code, trade_dt)
		);

		CREATE TABLE IF NOT EXISTS ashare_rsi (
			stock_code  TEXT NOT NULL,
			trade_dt    TEXT NOT NULL,
			avg_inc_6d  TEXT NOT NULL,
			avg_dec_6d  TEXT NOT NULL,
			avg_inc_12d TEXT NOT NULL,
			avg_dec_12d TEXT NOT NULL,
			avg_inc_24d TEXT NOT NULL,
			avg_dec_24d TEXT NOT NULL,
			rsi_6d      TEXT,
			rsi_12d     TEXT,
			rsi_24d     TEXT,
			PRIMARY KEY (stock_code, trade_dt)
		);
	`)
	return err
}

// buildWhere renders the WHERE/ORDER/LIMIT tail of a per-instrument scan.
func buildWhere(code string, q model.Query) (string, []any) {
	clause := " WHERE stock_code = ?"
	args := []any{code}
	if q.After != "" {
		clause += " AND trade_dt > ?"
		args = append(args, q.After)
	}
	if q.From != "" {
		clause += " AND trade_dt >= ?"
		args = append(args, q.From)
	}
	if q.Before != "" {
		clause += " AND trade_dt < ?"
		args = append(args, q.Before)
	}
	if q.Through != "" {
		clause += " AND trade_dt <= ?"
		args = append(args, q.Through)
	}
	return clause, args
}

func orderLimit(q model.Query) string {
	s := " ORDER BY trade_dt ASC"
	if q.Desc {
		s = " ORDER BY trade_dt DESC"
	}
	if q.Limit > 0 {
		s += fmt.Sprintf(" LIMIT %d", q.Limit)
	}
	return s
}
