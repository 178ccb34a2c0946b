package indicator

import (
	"github.com/shopspring/decimal"

	"techcalc/internal/model"
)

// RSI carries the 6/12/24-day smoothed gain and loss averages from one day to
// the next. Update is O(1) per bar, no history scans.
type RSI struct {
	prevClose decimal.Decimal
	avgInc    [3]decimal.Decimal
	avgDec    [3]decimal.Decimal
}

// NewRSI resumes from the record persisted for the anchor day whose close is
// anchorClose.
func NewRSI(anchorClose decimal.Decimal, anchor model.RSIRecord) *RSI {
	return &RSI{
		prevClose: anchorClose,
		avgInc:    anchor.AvgInc,
		avgDec:    anchor.AvgDec,
	}
}

// Deltas returns today's gain and loss against yesterday's close. ok is false
// when either close is zero; the day is then left out of the smoothing.
// Standard RSI has no such exclusion, it guards against zero closes in the
// adjusted price source.
func Deltas(today, yesterday decimal.Decimal) (inc, dec decimal.Decimal, ok bool) {
	if today.IsZero() || yesterday.IsZero() {
		return decimal.Zero, decimal.Zero, false
	}
	if today.GreaterThan(yesterday) {
		return today.Sub(yesterday), decimal.Zero, true
	}
	return decimal.Zero, yesterday.Sub(today), true
}

// Advance smooths today's gain and loss into every period:
//
//	avg(today) = (delta + (N-1) * avg(yesterday)) / N
//
// and sets RSI_N = avgInc / (avgInc + avgDec) as a percentage whenever avgDec
// is non-zero. A day with undefined deltas yields no record and leaves the
// accumulators untouched.
func (r *RSI) Advance(bar model.PriceBar) (model.RSIRecord, bool) {
	inc, dec, ok := Deltas(bar.Close, r.prevClose)
	r.prevClose = bar.Close
	if !ok {
		return model.RSIRecord{}, false
	}

	rec := model.RSIRecord{StockCode: bar.StockCode, TradeDt: bar.TradeDt}
	for i, period := range model.RSIPeriods {
		n := decimal.NewFromInt(int64(period))
		carry := decimal.NewFromInt(int64(period - 1))

		avgInc := divHalfUp(inc.Add(carry.Mul(r.avgInc[i])), n, avgScale)
		avgDec := divHalfUp(dec.Add(carry.Mul(r.avgDec[i])), n, avgScale)
		rec.AvgInc[i] = avgInc
		rec.AvgDec[i] = avgDec
		if !avgDec.IsZero() {
			rec.RSI[i] = valid(divHalfUp(avgInc, avgInc.Add(avgDec), ratioScale).Shift(2))
		}
	}

	r.avgInc = rec.AvgInc
	r.avgDec = rec.AvgDec
	return rec, true
}
