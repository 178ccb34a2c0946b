package calc

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"techcalc/internal/model"
	"techcalc/internal/store/memory"
)

const testCode = "600000"

func tradeDate(i int) string {
	return time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i).Format("20060102")
}

// series returns n bars with a wandering close and a high/low band. Every
// seventh bar has no high, every eleventh no low.
func series(code string, n int) []model.PriceBar {
	bars := make([]model.PriceBar, n)
	for i := range bars {
		c := decimal.NewFromInt(int64(1000 + (i*37)%23 - (i*13)%17)).Shift(-2)
		bars[i] = model.PriceBar{
			StockCode: code,
			TradeDt:   tradeDate(i),
			High:      decimal.NewNullDecimal(c.Add(decimal.RequireFromString("0.35"))),
			Low:       decimal.NewNullDecimal(c.Sub(decimal.RequireFromString("0.21"))),
			Close:     c,
		}
		if i%7 == 3 {
			bars[i].High = decimal.NullDecimal{}
		}
		if i%11 == 5 {
			bars[i].Low = decimal.NullDecimal{}
		}
	}
	return bars
}

func sameRecords[R model.Record](t *testing.T, want, got []R) {
	t.Helper()
	if len(want) != len(got) {
		t.Fatalf("record count: want %d, got %d", len(want), len(got))
	}
	for i := range want {
		w, g := model.MarshalRecord(want[i]), model.MarshalRecord(got[i])
		if !bytes.Equal(w, g) {
			t.Errorf("record %d differs:\nwant %s\ngot  %s", i, w, g)
		}
	}
}

func run(t *testing.T, e Engine) Result {
	t.Helper()
	res, err := e.Run(context.Background(), testCode)
	if err != nil {
		t.Fatalf("%s Run: %v", e.Family(), err)
	}
	return res
}

// flakyTable fails the failOn-th Insert call (1-based) and every later one.
type flakyTable[R model.Record] struct {
	*memory.Table[R]
	mu     sync.Mutex
	calls  int
	failOn int
}

var errDiskFull = fmt.Errorf("disk full")

func (f *flakyTable[R]) Insert(ctx context.Context, recs []R) error {
	f.mu.Lock()
	f.calls++
	fail := f.calls >= f.failOn
	f.mu.Unlock()
	if fail {
		return errDiskFull
	}
	return f.Table.Insert(ctx, recs)
}
