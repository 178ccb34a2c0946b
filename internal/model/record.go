package model

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Indicator family names, used for table names, metric labels and Redis keys.
const (
	FamilyCCI = "cci"
	FamilyMTM = "mtm"
	FamilyRSI = "rsi"
)

// Families lists every supported indicator family in run order.
var Families = []string{FamilyCCI, FamilyMTM, FamilyRSI}

// Shape is a bitmask of the optional fields a record has populated.
// Bit i is set when optional field i is present. Two records can share an
// insert batch only when their shapes are equal.
type Shape uint32

// Has reports whether optional field i is populated.
func (s Shape) Has(i int) bool { return s&(1<<uint(i)) != 0 }

func shapeOf(fields ...decimal.NullDecimal) Shape {
	var s Shape
	for i, f := range fields {
		if f.Valid {
			s |= 1 << uint(i)
		}
	}
	return s
}

// Record is one persisted indicator row, keyed by (stock code, trade date).
type Record interface {
	Key() (code, date string)
	Shape() Shape
}

// CCIRecord is one day of the commodity channel index series.
// Typ is always set; CCI is unset during warm-up and when the mean
// deviation is zero.
type CCIRecord struct {
	StockCode string              `json:"stock_code"`
	TradeDt   string              `json:"trade_dt"`
	Typ       decimal.Decimal     `json:"typ"`
	CCI       decimal.NullDecimal `json:"cci"`
}

func (r CCIRecord) Key() (string, string) { return r.StockCode, r.TradeDt }
func (r CCIRecord) Shape() Shape          { return shapeOf(r.CCI) }

// MTMRecord is one day of the momentum series. Mamtm is the 6-day average of
// momentum and stays unset until five earlier values exist.
type MTMRecord struct {
	StockCode string              `json:"stock_code"`
	TradeDt   string              `json:"trade_dt"`
	Mtm       decimal.Decimal     `json:"mtm"`
	Mamtm     decimal.NullDecimal `json:"mamtm"`
}

func (r MTMRecord) Key() (string, string) { return r.StockCode, r.TradeDt }
func (r MTMRecord) Shape() Shape          { return shapeOf(r.Mamtm) }

// RSIPeriods are the smoothing periods carried by every RSI row.
var RSIPeriods = [3]int{6, 12, 24}

// RSIRecord carries the smoothing accumulators for the 6/12/24-day RSI and
// the derived ratios. Index i of each array belongs to RSIPeriods[i].
// The ratios are unset whenever the matching AvgDec is zero.
type RSIRecord struct {
	StockCode string                 `json:"stock_code"`
	TradeDt   string                 `json:"trade_dt"`
	AvgInc    [3]decimal.Decimal     `json:"avg_inc"`
	AvgDec    [3]decimal.Decimal     `json:"avg_dec"`
	RSI       [3]decimal.NullDecimal `json:"rsi"`
}

func (r RSIRecord) Key() (string, string) { return r.StockCode, r.TradeDt }
func (r RSIRecord) Shape() Shape          { return shapeOf(r.RSI[:]...) }

// ZeroRSIRecord is the day-zero anchor written when an instrument's RSI series
// is bootstrapped: every accumulator is zero and no ratio is set.
func ZeroRSIRecord(code, date string) RSIRecord {
	r := RSIRecord{StockCode: code, TradeDt: date}
	for i := range r.AvgInc {
		r.AvgInc[i] = decimal.Zero
		r.AvgDec[i] = decimal.Zero
	}
	return r
}

// MarshalRecord returns the JSON encoding of a record (errors ignored, the
// record types only hold strings and decimals).
func MarshalRecord(r Record) []byte {
	b, _ := json.Marshal(r)
	return b
}
