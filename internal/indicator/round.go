package indicator

import "github.com/shopspring/decimal"

// Column scales. Every division rounds half away from zero to one of these.
const (
	typScale   = 4
	cciScale   = 2
	mtmScale   = 3
	avgScale   = 6
	ratioScale = 4
)

var (
	three = decimal.NewFromInt(3)
	six   = decimal.NewFromInt(6)
)

// divHalfUp returns a/b rounded half away from zero to places decimals.
// b must be non-zero.
func divHalfUp(a, b decimal.Decimal, places int32) decimal.Decimal {
	return a.DivRound(b, places)
}

func valid(d decimal.Decimal) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

// slide appends v and drops the oldest values so at most n remain.
func slide(window []decimal.Decimal, v decimal.Decimal, n int) []decimal.Decimal {
	window = append(window, v)
	if len(window) > n {
		window = append(window[:0:0], window[len(window)-n:]...)
	}
	return window
}
