package redis

import (
	"context"
	"testing"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"

	"techcalc/internal/model"
)

func TestKeys(t *testing.T) {
	if got := LatestKey("cci", "600000"); got != "ind:cci:latest:600000" {
		t.Errorf("LatestKey = %q", got)
	}
	if got := Channel("rsi", "000001"); got != "pub:ind:rsi:000001" {
		t.Errorf("Channel = %q", got)
	}
	if got := LockKey("mtm:600000"); got != "lock:techcalc:mtm:600000" {
		t.Errorf("LockKey = %q", got)
	}
}

func TestPublishLatest_OpenBreakerSkipsRedis(t *testing.T) {
	// Nothing listens on this port; the breaker must stop dialling after the
	// first failure.
	client := goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	defer client.Close()
	cb := NewCircuitBreaker(1, time.Minute)
	p := NewPublisher(client, cb)

	rec := model.MTMRecord{StockCode: "600000", TradeDt: "20240105", Mtm: decimal.RequireFromString("1.25")}
	if err := p.PublishLatest(context.Background(), model.FamilyMTM, rec); err == nil {
		t.Fatal("expected a dial error")
	}
	if err := p.PublishLatest(context.Background(), model.FamilyMTM, rec); err != ErrCircuitOpen {
		t.Errorf("expected ErrCircuitOpen, got %v", err)
	}
}
