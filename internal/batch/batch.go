// Package batch splits produced indicator records into groups that can each
// go to the store in one insert.
//
// A store batch must list the same columns for every row, so a record with
// an unset optional field cannot share a batch with one that has it set.
// Records are grouped by Shape; groups are independent because the store is
// keyed by (stock code, trade date), not by batch.
package batch

import (
	"context"
	"fmt"

	"techcalc/internal/model"
)

// Group is a run of records that all populate the same optional fields.
type Group[R model.Record] struct {
	Shape   model.Shape
	Records []R
}

// Partition groups recs by shape. Groups appear in order of first
// occurrence and keep the relative order of their records.
func Partition[R model.Record](recs []R) []Group[R] {
	var groups []Group[R]
	index := make(map[model.Shape]int, 2)
	for _, r := range recs {
		s := r.Shape()
		i, ok := index[s]
		if !ok {
			i = len(groups)
			index[s] = i
			groups = append(groups, Group[R]{Shape: s})
		}
		groups[i].Records = append(groups[i].Records, r)
	}
	return groups
}

// Inserter is the write half of an indicator store.
type Inserter[R model.Record] interface {
	Insert(ctx context.Context, recs []R) error
}

// Stats counts what a Write call persisted.
type Stats struct {
	Records int
	Batches int
}

// Add accumulates o into s.
func (s *Stats) Add(o Stats) {
	s.Records += o.Records
	s.Batches += o.Batches
}

// Write partitions recs and inserts each group as one batch. It stops at the
// first failed insert; groups written before it stay written and are counted
// in the returned Stats.
func Write[R model.Record](ctx context.Context, ins Inserter[R], recs []R) (Stats, error) {
	var st Stats
	for _, g := range Partition(recs) {
		if err := ins.Insert(ctx, g.Records); err != nil {
			return st, fmt.Errorf("insert batch (shape %b, %d records): %w", g.Shape, len(g.Records), err)
		}
		st.Records += len(g.Records)
		st.Batches++
	}
	return st, nil
}
