package indicator

import (
	"github.com/shopspring/decimal"

	"techcalc/internal/model"
)

const (
	// MTMLag is how many trading days back momentum looks.
	MTMLag = 12

	// MTMAverageLookback is how many earlier momentum values the 6-day
	// average needs besides today's.
	MTMAverageLookback = 5
)

// MTM is 12-day momentum with its 6-day simple average.
type MTM struct {
	closes []decimal.Decimal // previous closes, oldest first, at most MTMLag
	prior  []decimal.Decimal // previous mtm values, oldest first, at most MTMAverageLookback
}

// NewMTM starts from earlier closes and earlier momentum values, both oldest
// first. Bootstrapping passes nil for both.
func NewMTM(closes, mtms []decimal.Decimal) *MTM {
	m := &MTM{}
	for _, c := range closes {
		m.closes = slide(m.closes, c, MTMLag)
	}
	for _, v := range mtms {
		m.prior = slide(m.prior, v, MTMAverageLookback)
	}
	return m
}

// Momentum returns today - lagged rounded to 3 places.
func Momentum(today, lagged decimal.Decimal) decimal.Decimal {
	return today.Sub(lagged).Round(mtmScale)
}

// Advance produces nothing until MTMLag closes have been seen.
func (m *MTM) Advance(bar model.PriceBar) (model.MTMRecord, bool) {
	if len(m.closes) < MTMLag {
		m.closes = slide(m.closes, bar.Close, MTMLag)
		return model.MTMRecord{}, false
	}

	mtm := Momentum(bar.Close, m.closes[0])
	rec := model.MTMRecord{StockCode: bar.StockCode, TradeDt: bar.TradeDt, Mtm: mtm}
	if len(m.prior) == MTMAverageLookback {
		sum := mtm
		for _, v := range m.prior {
			sum = sum.Add(v)
		}
		rec.Mamtm = valid(divHalfUp(sum, six, mtmScale))
	}

	m.closes = slide(m.closes, bar.Close, MTMLag)
	m.prior = slide(m.prior, mtm, MTMAverageLookback)
	return rec, true
}
