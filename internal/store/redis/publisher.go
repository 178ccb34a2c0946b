package redis

import (
	"context"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"techcalc/internal/model"
)

const defaultLatestTTL = 7 * 24 * time.Hour

// LatestKey returns "ind:{family}:latest:{code}".
func LatestKey(family, code string) string {
	return "ind:" + family + ":latest:" + code
}

// Channel returns the pub/sub channel "pub:ind:{family}:{code}".
func Channel(family, code string) string {
	return "pub:ind:" + family + ":" + code
}

// Publisher caches the newest record of each series and announces it.
type Publisher struct {
	client *goredis.Client
	cb     *CircuitBreaker
	ttl    time.Duration
}

// NewPublisher wraps client; calls go through cb.
func NewPublisher(client *goredis.Client, cb *CircuitBreaker) *Publisher {
	return &Publisher{client: client, cb: cb, ttl: defaultLatestTTL}
}

// PublishLatest SETs the record JSON under LatestKey and PUBLISHes it on
// Channel in a single pipeline.
func (p *Publisher) PublishLatest(ctx context.Context, family string, rec model.Record) error {
	code, _ := rec.Key()
	data := string(model.MarshalRecord(rec))
	return p.cb.Execute(func() error {
		pipe := p.client.Pipeline()
		pipe.Set(ctx, LatestKey(family, code), data, p.ttl)
		pipe.Publish(ctx, Channel(family, code), data)
		_, err := pipe.Exec(ctx)
		return err
	})
}
