// cmd/techcalc extends the CCI, MTM and RSI series of every instrument from
// the last persisted trade date.
//
// Usage:
//
//	go run ./cmd/techcalc                 # one pass, then exit
//	go run ./cmd/techcalc --interval=1h   # repeat until SIGINT/SIGTERM
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"techcalc/config"
	"techcalc/internal/logger"
	"techcalc/internal/service"
)

func main() {
	interval := flag.Duration("interval", 0, "Repeat the run at this interval (0 = run once)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}
	logger.Init("techcalc", cfg.SlogLevel())

	svc, err := service.New(cfg, prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
	if err != nil {
		slog.Error("init failed", "error", err)
		os.Exit(1)
	}
	defer svc.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("shutdown signal received")
		cancel()
	}()

	svc.StartLiveness(ctx)

	if *interval <= 0 {
		if _, err := svc.RunOnce(ctx); err != nil {
			slog.Error("run finished with errors", "error", err)
			svc.Close()
			os.Exit(1)
		}
		return
	}

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()
	for {
		if _, err := svc.RunOnce(ctx); err != nil {
			slog.Error("run finished with errors", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
