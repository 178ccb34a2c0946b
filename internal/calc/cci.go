package calc

import (
	"context"

	"github.com/shopspring/decimal"

	"techcalc/internal/indicator"
	"techcalc/internal/model"
)

// NewCCIEngine builds the CCI engine over feed and store.
func NewCCIEngine(feed model.PriceFeed, store model.IndicatorStore[model.CCIRecord]) Engine {
	return &familyEngine[model.CCIRecord]{
		family: model.FamilyCCI,
		store:  store,
		load: func(ctx context.Context, code string) (plan[model.CCIRecord], error) {
			return loadCCI(ctx, feed, store, code)
		},
	}
}

// loadCCI bootstraps from the full history, or resumes after the last record
// seeded with the 13 typical prices preceding the first new bar.
func loadCCI(ctx context.Context, feed model.PriceFeed, store model.IndicatorStore[model.CCIRecord], code string) (plan[model.CCIRecord], error) {
	var p plan[model.CCIRecord]

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
		if len(p.bars) == 0 {
			p.outcome = OutcomeNoNewData
			return p, nil
		}
		p.stepper = indicator.NewCCI(nil)
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

	seed, err := store.Range(ctx, code, model.Query{
		Before: p.bars[0].TradeDt,
		Desc:   true,
		Limit:  indicator.CCILookback,
	})
	if err != nil {
		return p, err
	}
	if len(seed) < indicator.CCILookback {
		p.outcome = OutcomeInsufficientHistory
		return p, nil
	}

	typs := make([]decimal.Decimal, 0, len(seed))
	for _, r := range reversed(seed) {
		typs = append(typs, r.Typ)
	}
	p.stepper = indicator.NewCCI(typs)
	return p, nil
}
