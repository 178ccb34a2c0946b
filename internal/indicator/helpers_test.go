package indicator

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"techcalc/internal/model"
)

// ────────────────────────────────────────────────────────────
// Helpers
// ────────────────────────────────────────────────────────────

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func tradeDate(i int) string {
	return time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i).Format("20060102")
}

// closeBar builds a bar with only a close; high and low are missing.
func closeBar(i int, close string) model.PriceBar {
	return model.PriceBar{StockCode: "600000", TradeDt: tradeDate(i), Close: d(close)}
}

func closeBars(closes ...string) []model.PriceBar {
	bars := make([]model.PriceBar, len(closes))
	for i, c := range closes {
		bars[i] = closeBar(i, c)
	}
	return bars
}

func assertDec(t *testing.T, label string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(d(want)) {
		t.Errorf("%s: got %s, want %s", label, got, want)
	}
}

func assertNull(t *testing.T, label string, got decimal.NullDecimal, want string) {
	t.Helper()
	if want == "" {
		if got.Valid {
			t.Errorf("%s: got %s, want unset", label, got.Decimal)
		}
		return
	}
	if !got.Valid {
		t.Errorf("%s: got unset, want %s", label, want)
		return
	}
	assertDec(t, label, got.Decimal, want)
}
