package indicator

import (
	"github.com/shopspring/decimal"

	"techcalc/internal/model"
)

// CCILookback is the number of earlier typical prices needed next to today's.
const CCILookback = 13

var cciFactor = decimal.RequireFromString("0.015")

// TypicalPrice returns (high + low + close) / 3 rounded to 4 places.
// A missing high or low is replaced by the close.
func TypicalPrice(bar model.PriceBar) decimal.Decimal {
	high, low := bar.Close, bar.Close
	if bar.High.Valid {
		high = bar.High.Decimal
	}
	if bar.Low.Valid {
		low = bar.Low.Decimal
	}
	return divHalfUp(high.Add(low).Add(bar.Close), three, typScale)
}

// CCI is the 14-day commodity channel index over a sliding window of
// typical prices.
type CCI struct {
	window []decimal.Decimal // oldest first, at most CCILookback
}

// NewCCI starts from the given typical prices, oldest first. Only the last
// CCILookback values are kept.
func NewCCI(seed []decimal.Decimal) *CCI {
	c := &CCI{}
	for _, typ := range seed {
		c.window = slide(c.window, typ, CCILookback)
	}
	return c
}

// Advance always produces a record; CCI is set once the window is full and
// the mean deviation is non-zero.
func (c *CCI) Advance(bar model.PriceBar) (model.CCIRecord, bool) {
	typ := TypicalPrice(bar)
	rec := model.CCIRecord{StockCode: bar.StockCode, TradeDt: bar.TradeDt, Typ: typ}
	if len(c.window) == CCILookback {
		rec.CCI = cciValue(c.window, typ)
	}
	c.window = slide(c.window, typ, CCILookback)
	return rec, true
}

// cciValue computes (n*today - sum) / (0.015 * sum|typ - mean|) over the
// window plus today, where mean is rounded to 4 places first. This is the
// usual (typ - mean) / (0.015 * meanDeviation) with both sides scaled by n.
func cciValue(window []decimal.Decimal, today decimal.Decimal) decimal.NullDecimal {
	n := decimal.NewFromInt(int64(len(window) + 1))

	sum := today
	for _, typ := range window {
		sum = sum.Add(typ)
	}
	mean := divHalfUp(sum, n, typScale)

	dev := today.Sub(mean).Abs()
	for _, typ := range window {
		dev = dev.Add(typ.Sub(mean).Abs())
	}

	denom := cciFactor.Mul(dev)
	if denom.IsZero() {
		return decimal.NullDecimal{}
	}
	return valid(divHalfUp(today.Mul(n).Sub(sum), denom, cciScale))
}
