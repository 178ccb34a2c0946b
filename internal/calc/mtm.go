package calc

import (
	"context"

	"github.com/shopspring/decimal"

	"techcalc/internal/indicator"
	"techcalc/internal/model"
)

// NewMTMEngine builds the momentum engine over feed and store.
func NewMTMEngine(feed model.PriceFeed, store model.IndicatorStore[model.MTMRecord]) Engine {
	return &familyEngine[model.MTMRecord]{
		family: model.FamilyMTM,
		store:  store,
		load: func(ctx context.Context, code string) (plan[model.MTMRecord], error) {
			return loadMTM(ctx, feed, store, code)
		},
	}
}

// loadMTM bootstraps from the full history (which must reach past the
// 12-day lag), or resumes after the last record seeded with the 12 closes
// and the up to 5 persisted momentum values preceding the first new bar.
func loadMTM(ctx context.Context, feed model.PriceFeed, store model.IndicatorStore[model.MTMRecord], code string) (plan[model.MTMRecord], error) {
	var p plan[model.MTMRecord]

	last, err := store.Latest(ctx, code)
	if err != nil {
		return p, err
	}

	if last == nil {
		p.mode = ModeBootstrap
		p.bars, err = feed.Bars(ctx, code, model.Query{})
		if err != nil {
			return p, err
		}
		switch {
		case len(p.bars) == 0:
			p.outcome = OutcomeNoNewData
		case len(p.bars) <= indicator.MTMLag:
			p.outcome = OutcomeInsufficientHistory
		default:
			p.stepper = indicator.NewMTM(nil, nil)
		}
		return p, nil
	}

	p.mode = ModeResume
	p.bars, err = feed.Bars(ctx, code, model.Query{After: last.TradeDt})
	if err != nil {
		return p, err
	}
	if len(p.bars) == 0 {
		p.outcome = OutcomeNoNewData
		return p, nil
	}
	first := p.bars[0].TradeDt

	lagBars, err := feed.Bars(ctx, code, model.Query{Before: first, Desc: true, Limit: indicator.MTMLag})
	if err != nil {
		return p, err
	}
	if len(lagBars) < indicator.MTMLag {
		p.outcome = OutcomeInsufficientHistory
		return p, nil
	}

	prior, err := store.Range(ctx, code, model.Query{Before: first, Desc: true, Limit: indicator.MTMAverageLookback})
	if err != nil {
		return p, err
	}

	closes := make([]decimal.Decimal, 0, len(lagBars))
	for _, b := range reversed(lagBars) {
		closes = append(closes, b.Close)
	}
	mtms := make([]decimal.Decimal, 0, len(prior))
	for _, r := range reversed(prior) {
		mtms = append(mtms, r.Mtm)
	}
	p.stepper = indicator.NewMTM(closes, mtms)
	return p, nil
}
