package model

import "github.com/shopspring/decimal"

// TradeStatusSuspended marks a session the price feed never returns.
const TradeStatusSuspended = "suspended"

// PriceBar is one instrument's end-of-day session with adjusted prices.
// High and Low may be missing in the source; Close is always present because
// the feed drops rows without a close.
type PriceBar struct {
	StockCode string              `json:"stock_code"`
	TradeDt   string              `json:"trade_dt"` // YYYYMMDD
	High      decimal.NullDecimal `json:"adj_high"`
	Low       decimal.NullDecimal `json:"adj_low"`
	Close     decimal.Decimal     `json:"adj_close"`
}

// Key returns "stock_code:trade_dt".
func (b *PriceBar) Key() string {
	return b.StockCode + ":" + b.TradeDt
}
