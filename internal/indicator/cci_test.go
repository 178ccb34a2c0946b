package indicator

import (
	"strconv"
	"testing"

	"github.com/shopspring/decimal"

	"techcalc/internal/model"
)

func TestTypicalPrice(t *testing.T) {
	bar := closeBar(0, "10")
	bar.High = decimal.NewNullDecimal(d("10.5"))
	bar.Low = decimal.NewNullDecimal(d("9.5"))
	assertDec(t, "full bar", TypicalPrice(bar), "10")

	// Missing high falls back to close: (10 + 9 + 10) / 3 = 9.66666.. → 9.6667
	bar.High = decimal.NullDecimal{}
	bar.Low = decimal.NewNullDecimal(d("9"))
	assertDec(t, "missing high", TypicalPrice(bar), "9.6667")

	// Missing low independently: (11 + 10 + 10) / 3 = 10.33333.. → 10.3333
	bar.High = decimal.NewNullDecimal(d("11"))
	bar.Low = decimal.NullDecimal{}
	assertDec(t, "missing low", TypicalPrice(bar), "10.3333")

	// 0.00015 / 3 = 0.00005 rounds half up to 0.0001
	assertDec(t, "half up", TypicalPrice(closeBar(0, "0.00005")), "0.0001")
}

func TestCCI_WarmUpThenValue(t *testing.T) {
	// Typical prices 1..14 (close only, so typ == close).
	// sum = 105, mean = 7.5, sum|typ-mean| = 49
	// CCI = (14*14 - 105) / (0.015 * 49) = 91 / 0.735 = 123.8095.. → 123.81
	closes := make([]string, 14)
	for i := range closes {
		closes[i] = strconv.Itoa(i + 1)
	}
	recs := Evaluate[model.CCIRecord](NewCCI(nil), closeBars(closes...))
	if len(recs) != 14 {
		t.Fatalf("expected 14 records, got %d", len(recs))
	}
	for i := 0; i < CCILookback; i++ {
		assertNull(t, "warm-up day "+strconv.Itoa(i), recs[i].CCI, "")
		assertDec(t, "typ day "+strconv.Itoa(i), recs[i].Typ, closes[i])
	}
	assertNull(t, "day 14", recs[13].CCI, "123.81")
}

func TestCCI_FlatWindowLeavesValueUnset(t *testing.T) {
	seed := make([]decimal.Decimal, CCILookback)
	for i := range seed {
		seed[i] = d("12.3456")
	}
	c := NewCCI(seed)
	rec, ok := c.Advance(closeBar(20, "12.3456"))
	if !ok {
		t.Fatal("CCI.Advance must always produce a record")
	}
	assertNull(t, "flat window", rec.CCI, "")
	assertDec(t, "typ", rec.Typ, "12.3456")
}

func TestCCI_SeedKeepsLastLookback(t *testing.T) {
	// A longer seed behaves like its last 13 values.
	long := make([]decimal.Decimal, 0, 20)
	for i := 0; i < 20; i++ {
		long = append(long, decimal.NewFromInt(int64(i)))
	}
	a, _ := NewCCI(long).Advance(closeBar(30, "25"))
	b, _ := NewCCI(long[7:]).Advance(closeBar(30, "25"))
	if !a.CCI.Valid || !b.CCI.Valid || !a.CCI.Decimal.Equal(b.CCI.Decimal) {
		t.Errorf("seed trimming mismatch: %v vs %v", a.CCI, b.CCI)
	}
}

func TestCCI_ResumeMatchesBootstrap(t *testing.T) {
	closes := []string{
		"10.11", "10.52", "10.23", "9.98", "10.40", "10.87", "11.02", "10.75",
		"10.66", "10.91", "11.30", "11.12", "11.45", "11.60", "11.20", "11.05",
		"11.70", "11.95", "12.10", "11.88",
	}
	bars := closeBars(closes...)
	full := Evaluate[model.CCIRecord](NewCCI(nil), bars)

	for k := CCILookback; k < len(bars); k++ {
		seed := make([]decimal.Decimal, 0, CCILookback)
		for _, r := range full[k-CCILookback : k] {
			seed = append(seed, r.Typ)
		}
		tail := Evaluate[model.CCIRecord](NewCCI(seed), bars[k:])
		for i, r := range tail {
			want := full[k+i]
			if !r.Typ.Equal(want.Typ) || r.CCI.Valid != want.CCI.Valid || !r.CCI.Decimal.Equal(want.CCI.Decimal) {
				t.Fatalf("resume at %d, day %s: got %+v, want %+v", k, r.TradeDt, r, want)
			}
		}
	}
}
