// Package service wires configuration, stores, Redis and metrics around the
// indicator runner.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"

	"techcalc/config"
	"techcalc/internal/calc"
	"techcalc/internal/metrics"
	"techcalc/internal/model"
	redisstore "techcalc/internal/store/redis"
	sqlitestore "techcalc/internal/store/sqlite"
)

const livenessInterval = 10 * time.Second

// Service owns every long-lived dependency of a techcalc process.
type Service struct {
	cfg *config.Config

	db      *sqlitestore.DB
	priceDB *sqlitestore.DB
	feed    *sqlitestore.Feed
	rdb     *goredis.Client

	prom   *metrics.Metrics
	health *metrics.HealthStatus
	server *metrics.Server
	runner *calc.Runner
}

// New opens the stores, connects to Redis when configured and builds the
// runner. Metrics are registered with reg; the HTTP server (if enabled)
// exposes gatherer.
func New(cfg *config.Config, reg prometheus.Registerer, gatherer prometheus.Gatherer) (*Service, error) {
	svc := &Service{
		cfg:    cfg,
		prom:   metrics.NewMetrics(reg),
		health: metrics.NewHealthStatus(),
	}

	// ---- Open SQLite ----
	if dir := filepath.Dir(cfg.SQLitePath); dir != "." {
		os.MkdirAll(dir, 0o755)
	}
	var err error
	svc.db, err = sqlitestore.Open(cfg.SQLitePath)
	if err != nil {
		return nil, err
	}
	svc.priceDB = svc.db
	if cfg.PriceSQLitePath != cfg.SQLitePath {
		svc.priceDB, err = sqlitestore.Open(cfg.PriceSQLitePath)
		if err != nil {
			svc.db.Close()
			return nil, fmt.Errorf("price database: %w", err)
		}
	}
	svc.feed = sqlitestore.NewFeed(svc.priceDB)
	svc.health.CheckSQLite(context.Background(), svc.db.SQL())

	engines, err := calc.BuildEngines(cfg.Families, svc.feed, svc.db)
	if err != nil {
		svc.closeStores()
		return nil, err
	}

	// ---- Connect to Redis (optional) ----
	rcfg := calc.RunnerConfig{Workers: cfg.Workers, Metrics: svc.prom}
	if cfg.RedisAddr != "" {
		svc.health.SetRedisEnabled(true)
		svc.rdb, err = redisstore.Connect(redisstore.Config{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		if err != nil {
			// Without Redis there is no cross-process lock, only the in-process one.
			slog.Warn("redis unavailable, continuing without publishing", "addr", cfg.RedisAddr, "error", err)
		} else {
			svc.health.CheckRedis(context.Background(), svc.rdb)
			rcfg.Locker = redisstore.NewLocker(svc.rdb, time.Duration(cfg.LockTTLSec)*time.Second)
			rcfg.Publisher = redisstore.NewPublisher(svc.rdb, svc.newBreaker())
		}
	}
	svc.runner = calc.NewRunner(engines, rcfg)
	svc.health.SetFamilies(cfg.Families)

	if cfg.MetricsAddr != "" {
		svc.server = metrics.NewServer(cfg.MetricsAddr, svc.health, gatherer)
		svc.server.Start()
	}
	return svc, nil
}

// newBreaker returns a breaker that reports its state to Prometheus.
func (svc *Service) newBreaker() *redisstore.CircuitBreaker {
	cb := redisstore.NewCircuitBreaker(3, 30*time.Second)
	cb.OnStateChange = func(from, to redisstore.State) {
		svc.prom.RedisCircuitBreakerState.Set(float64(to))
		if to == redisstore.StateOpen {
			svc.prom.RedisCircuitBreakerTrips.Inc()
		}
		slog.Warn("redis circuit breaker state change", "from", from.String(), "to", to.String())
	}
	return cb
}

// StartLiveness probes SQLite and Redis until ctx is cancelled.
func (svc *Service) StartLiveness(ctx context.Context) {
	svc.health.StartLivenessChecker(ctx, svc.rdb, svc.db.SQL(), livenessInterval)
}

// RunOnce runs every configured family for every configured instrument.
func (svc *Service) RunOnce(ctx context.Context) (calc.Summary, error) {
	codes, err := svc.codes(ctx)
	if err != nil {
		return calc.Summary{}, err
	}

	start := time.Now()
	slog.Info("run starting", "families", svc.cfg.Families, "instruments", len(codes), "workers", svc.cfg.Workers)
	sum, err := svc.runner.Run(ctx, codes)
	svc.health.SetLastRunAt(time.Now())

	slog.Info("run finished",
		"elapsed", time.Since(start).Round(time.Millisecond).String(),
		"jobs", sum.Jobs,
		"records", sum.Records,
		"batches", sum.Batches,
		"written", sum.Outcomes[calc.OutcomeWritten],
		"no_new_data", sum.Outcomes[calc.OutcomeNoNewData],
		"insufficient_history", sum.Outcomes[calc.OutcomeInsufficientHistory],
		"broken_continuity", sum.Outcomes[calc.OutcomeBrokenContinuity],
		"failed", sum.Outcomes[calc.OutcomeFailed],
		"contended", sum.Contended,
	)
	return sum, err
}

func (svc *Service) codes(ctx context.Context) ([]string, error) {
	if len(svc.cfg.Instruments) > 0 {
		return svc.cfg.Instruments, nil
	}
	var lister model.CodeLister = svc.feed
	codes, err := lister.Codes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list instruments: %w", err)
	}
	return codes, nil
}

// Close stops the HTTP server and closes every connection.
func (svc *Service) Close() {
	if svc.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		svc.server.Stop(ctx)
		cancel()
	}
	if svc.rdb != nil {
		svc.rdb.Close()
	}
	svc.closeStores()
	slog.Info("shutdown complete")
}

func (svc *Service) closeStores() {
	if svc.priceDB != nil && svc.priceDB != svc.db {
		svc.priceDB.Close()
	}
	if svc.db != nil {
		svc.db.Close()
	}
}
