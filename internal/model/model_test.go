package model

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestRSIRecordShape(t *testing.T) {
	r := ZeroRSIRecord("600000", "20240102")
	if r.Shape() != 0 {
		t.Errorf("zero record shape = %b", r.Shape())
	}
	r.RSI[0] = decimal.NewNullDecimal(decimal.NewFromInt(50))
	r.RSI[2] = decimal.NewNullDecimal(decimal.NewFromInt(40))
	s := r.Shape()
	if !s.Has(0) || s.Has(1) || !s.Has(2) {
		t.Errorf("shape = %b", s)
	}
}

func TestCheckBatch(t *testing.T) {
	if _, err := CheckBatch[CCIRecord](nil); !errors.Is(err, ErrEmptyBatch) {
		t.Errorf("empty: %v", err)
	}

	warm := CCIRecord{StockCode: "600000", TradeDt: "20240102", Typ: decimal.NewFromInt(10)}
	full := warm
	full.TradeDt = "20240103"
	full.CCI = decimal.NewNullDecimal(decimal.NewFromInt(100))

	if s, err := CheckBatch([]CCIRecord{full, full}); err != nil || s != 1 {
		t.Errorf("homogeneous: shape %b, err %v", s, err)
	}
	if _, err := CheckBatch([]CCIRecord{warm, full}); !errors.Is(err, ErrHeterogeneousBatch) {
		t.Errorf("mixed: %v", err)
	}
}

func TestQueryMatch(t *testing.T) {
	tests := []struct {
		q    Query
		date string
		want bool
	}{
		{Query{}, "20240102", true},
		{Query{After: "20240102"}, "20240102", false},
		{Query{From: "20240102"}, "20240102", true},
		{Query{Before: "20240105"}, "20240105", false},
		{Query{Through: "20240105"}, "20240105", true},
		{Query{From: "20240103", Through: "20240103"}, "20240104", false},
	}
	for _, tt := range tests {
		if got := tt.q.Match(tt.date); got != tt.want {
			t.Errorf("%+v.Match(%s) = %v, want %v", tt.q, tt.date, got, tt.want)
		}
	}
}

func TestMarshalRecord(t *testing.T) {
	r := MTMRecord{StockCode: "600000", TradeDt: "20240102", Mtm: decimal.RequireFromString("-0.125")}
	got := string(MarshalRecord(r))
	want := `{"stock_code":"600000","trade_dt":"20240102","mtm":"-0.125","mamtm":null}`
	if got != want {
		t.Errorf("MarshalRecord = %s", got)
	}
}
