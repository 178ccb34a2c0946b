// Package calc runs the incremental indicator engines: load the persisted
// state of one instrument, advance the recurrence over the new bars, and
// write the produced records in homogeneous batches.
package calc

import (
	"context"
	"fmt"
	"log/slog"

	"techcalc/internal/batch"
	"techcalc/internal/indicator"
	"techcalc/internal/logger"
	"techcalc/internal/model"
)

// Mode says whether a run started from persisted state.
type Mode string

const (
	ModeBootstrap Mode = "bootstrap"
	ModeResume    Mode = "resume"
)

// Outcome classifies how a run ended. Only a store failure is an error;
// every other outcome is a normal "nothing (more) to do".
type Outcome string

const (
	OutcomeWritten             Outcome = "written"
	OutcomeNoNewData           Outcome = "no_new_data"
	OutcomeInsufficientHistory Outcome = "insufficient_history"
	OutcomeBrokenContinuity    Outcome = "broken_continuity"
	OutcomeFailed              Outcome = "failed"
)

// Result describes one engine pass for one instrument.
type Result struct {
	Family  string
	Code    string
	Mode    Mode
	Outcome Outcome
	Stats   batch.Stats
	Last    model.Record // newest record written, nil if none
}

// Engine computes one indicator family.
type Engine interface {
	Family() string
	Run(ctx context.Context, code string) (Result, error)
}

// plan is what a loader hands to the evaluator: either an outcome that ends
// the run early, or the bars to process with a ready stepper.
type plan[R model.Record] struct {
	mode    Mode
	outcome Outcome // set when the run ends before evaluation
	anchor  []R     // written as its own batch before the recurrence
	bars    []model.PriceBar
	stepper indicator.Stepper[R]
}

type loader[R model.Record] func(ctx context.Context, code string) (plan[R], error)

// familyEngine is the load → evaluate → write pipeline shared by every family.
type familyEngine[R model.Record] struct {
	family string
	store  model.IndicatorStore[R]
	load   loader[R]
}

func (e *familyEngine[R]) Family() string { return e.family }

// Run performs one pass for code. The caller must ensure no other pass for
// the same (family, code) runs concurrently. A store failure aborts the pass;
// batches written before it stay persisted.
func (e *familyEngine[R]) Run(ctx context.Context, code string) (Result, error) {
	res := Result{Family: e.family, Code: code}

	p, err := e.load(ctx, code)
	if err != nil {
		res.Outcome = OutcomeFailed
		return res, fmt.Errorf("%s %s: load: %w", e.family, code, err)
	}
	res.Mode = p.mode
	if p.outcome != "" {
		res.Outcome = p.outcome
		attrs := append(logger.LogWithRun(ctx), "family", e.family, "code", code, "mode", p.mode, "outcome", p.outcome)
		if p.outcome == OutcomeNoNewData {
			slog.Debug("nothing to do", attrs...)
		} else {
			slog.Warn("run aborted, nothing written", attrs...)
		}
		return res, nil
	}

	recs := indicator.Evaluate(p.stepper, p.bars)

	for _, part := range [][]R{p.anchor, recs} {
		if len(part) == 0 {
			continue
		}
		st, err := batch.Write(ctx, e.store, part)
		res.Stats.Add(st)
		if st.Records > 0 {
			res.Last = lastWritten(part, st.Records)
		}
		if err != nil {
			res.Outcome = OutcomeFailed
			return res, fmt.Errorf("%s %s: write: %w", e.family, code, err)
		}
	}

	if res.Stats.Records == 0 {
		res.Outcome = OutcomeNoNewData
	} else {
		res.Outcome = OutcomeWritten
	}
	slog.Info("run complete", append(logger.LogWithRun(ctx),
		"family", e.family, "code", code, "mode", res.Mode,
		"records", res.Stats.Records, "batches", res.Stats.Batches)...)
	return res, nil
}

// lastWritten returns the newest record among the ones persisted. Groups are
// written whole, so when every group succeeded this is the last record; after
// a partial write it is the newest record of the groups that made it.
func lastWritten[R model.Record](part []R, written int) model.Record {
	if written == len(part) {
		return part[len(part)-1]
	}
	var last model.Record
	n := 0
	for _, g := range batch.Partition(part) {
		if n+len(g.Records) > written {
			break
		}
		n += len(g.Records)
		cand := g.Records[len(g.Records)-1]
		if last == nil {
			last = cand
			continue
		}
		_, a := last.Key()
		_, b := cand.Key()
		if b > a {
			last = cand
		}
	}
	return last
}

// reversed returns s in reverse order; descending store scans use it to get
// ascending seed windows.
func reversed[T any](s []T) []T {
	out := make([]T, len(s))
	for i, v := range s {
		out[len(s)-1-i] = v
	}
	return out
}
