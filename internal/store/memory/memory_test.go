package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"techcalc/internal/model"
)

func mtm(date, v string) model.MTMRecord {
	return model.MTMRecord{StockCode: "600000", TradeDt: date, Mtm: decimal.RequireFromString(v)}
}

func TestTable_InsertAndQuery(t *testing.T) {
	tbl := NewTable[model.MTMRecord]()
	ctx := context.Background()

	if err := tbl.Insert(ctx, []model.MTMRecord{mtm("20240104", "3"), mtm("20240102", "1"), mtm("20240103", "2")}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	latest, _ := tbl.Latest(ctx, "600000")
	if latest == nil || latest.TradeDt != "20240104" {
		t.Fatalf("Latest = %+v", latest)
	}

	desc, _ := tbl.Range(ctx, "600000", model.Query{Before: "20240104", Desc: true, Limit: 1})
	if len(desc) != 1 || desc[0].TradeDt != "20240103" {
		t.Errorf("Range desc = %+v", desc)
	}
	asc, _ := tbl.Range(ctx, "600000", model.Query{From: "20240103"})
	if len(asc) != 2 || asc[0].TradeDt != "20240103" {
		t.Errorf("Range asc = %+v", asc)
	}
	if other, _ := tbl.Latest(ctx, "000001"); other != nil {
		t.Errorf("unexpected row for other code: %+v", other)
	}
}

func TestTable_RejectsDuplicatesAtomically(t *testing.T) {
	tbl := NewTable[model.MTMRecord]()
	ctx := context.Background()
	if err := tbl.Insert(ctx, []model.MTMRecord{mtm("20240103", "2")}); err != nil {
		t.Fatal(err)
	}

	err := tbl.Insert(ctx, []model.MTMRecord{mtm("20240102", "1"), mtm("20240103", "9")})
	if !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}
	err = tbl.Insert(ctx, []model.MTMRecord{mtm("20240105", "1"), mtm("20240105", "1")})
	if !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey within batch, got %v", err)
	}
	if rows := tbl.All("600000"); len(rows) != 1 {
		t.Errorf("rejected batches wrote rows: %+v", rows)
	}
	if tbl.Inserts() != 1 {
		t.Errorf("Inserts = %d", tbl.Inserts())
	}
}

func TestFeed_SuspendedSessionsHidden(t *testing.T) {
	f := NewFeed()
	for _, dt := range []string{"20240103", "20240102", "20240104"} {
		f.Add(model.PriceBar{StockCode: "600000", TradeDt: dt, Close: decimal.NewFromInt(10)})
	}
	f.Add(model.PriceBar{StockCode: "000001", TradeDt: "20240102", Close: decimal.NewFromInt(5)})
	f.Suspend("600000", "20240103")

	bars, _ := f.Bars(context.Background(), "600000", model.Query{})
	if len(bars) != 2 || bars[0].TradeDt != "20240102" || bars[1].TradeDt != "20240104" {
		t.Errorf("Bars = %+v", bars)
	}

	codes, _ := f.Codes(context.Background())
	if len(codes) != 2 || codes[0] != "000001" {
		t.Errorf("Codes = %v", codes)
	}
}
