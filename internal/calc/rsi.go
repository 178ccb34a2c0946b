package calc

import (
	"context"

	"techcalc/internal/indicator"
	"techcalc/internal/model"
)

// NewRSIEngine builds the RSI engine over feed and store.
func NewRSIEngine(feed model.PriceFeed, store model.IndicatorStore[model.RSIRecord]) Engine {
	return &familyEngine[model.RSIRecord]{
		family: model.FamilyRSI,
		store:  store,
		load: func(ctx context.Context, code string) (plan[model.RSIRecord], error) {
			return loadRSI(ctx, feed, store, code)
		},
	}
}

// loadRSI anchors the recurrence on a day whose accumulators are known.
//
// Bootstrap: the first available bar becomes the anchor and a zero-state
// record is written for it. Resume: bars are fetched from the last persisted
// date inclusive; the first bar is the anchor and its persisted record must
// exist, otherwise continuity is broken and nothing is written.
func loadRSI(ctx context.Context, feed model.PriceFeed, store model.IndicatorStore[model.RSIRecord], code string) (plan[model.RSIRecord], error) {
	var p plan[model.RSIRecord]

	last, err := store.Latest(ctx, code)
	if err != nil {
		return p, err
	}

	if last == nil {
		p.mode = ModeBootstrap
		bars, err := feed.Bars(ctx, code, model.Query{})
		if err != nil {
			return p, err
		}
		if len(bars) == 0 {
			p.outcome = OutcomeNoNewData
			return p, nil
		}
		zero := model.ZeroRSIRecord(code, bars[0].TradeDt)
		p.anchor = []model.RSIRecord{zero}
		p.bars = bars[1:]
		p.stepper = indicator.NewRSI(bars[0].Close, zero)
		return p, nil
	}

	p.mode = ModeResume
	bars, err := feed.Bars(ctx, code, model.Query{From: last.TradeDt})
	if err != nil {
		return p, err
	}
	if len(bars) == 0 || (len(bars) == 1 && bars[0].TradeDt == last.TradeDt) {
		p.outcome = OutcomeNoNewData
		return p, nil
	}

	anchorDt := bars[0].TradeDt
	prev, err := store.Range(ctx, code, model.Query{From: anchorDt, Through: anchorDt, Limit: 1})
	if err != nil {
		return p, err
	}
	if len(prev) == 0 {
		p.outcome = OutcomeBrokenContinuity
		return p, nil
	}

	p.bars = bars[1:]
	p.stepper = indicator.NewRSI(bars[0].Close, prev[0])
	return p, nil
}
