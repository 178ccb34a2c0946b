package calc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"techcalc/internal/logger"
	"techcalc/internal/metrics"
	"techcalc/internal/model"
)

const defaultWorkers = 4

// Publisher announces the newest record of a series. Failures are logged and
// counted, never fatal to a run.
type Publisher interface {
	PublishLatest(ctx context.Context, family string, rec model.Record) error
}

// RunnerConfig configures a Runner. Locker defaults to an in-process
// KeyedMutex; Publisher may be nil.
type RunnerConfig struct {
	Workers   int
	Locker    Locker
	Publisher Publisher
	Metrics   *metrics.Metrics
}

// Runner fans (family, instrument) jobs out to a bounded worker pool.
// Different instruments run concurrently; a series is never run twice at
// the same time because every job holds the series lock.
type Runner struct {
	engines []Engine
	cfg     RunnerConfig
	now     func() time.Time
}

// NewRunner creates a runner over engines.
func NewRunner(engines []Engine, cfg RunnerConfig) *Runner {
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.Locker == nil {
		cfg.Locker = NewKeyedMutex()
	}
	return &Runner{engines: engines, cfg: cfg, now: time.Now}
}

// Summary aggregates one Runner.Run call.
type Summary struct {
	Jobs      int
	Records   int
	Batches   int
	Contended int
	Outcomes  map[Outcome]int
	Results   []Result
}

type job struct {
	engine Engine
	code   string
}

// Run executes every engine for every code and waits for all jobs. Store
// failures do not stop other jobs; they are joined into the returned error.
func (r *Runner) Run(ctx context.Context, codes []string) (Summary, error) {
	sum := Summary{Outcomes: make(map[Outcome]int)}
	if len(codes) == 0 || len(r.engines) == 0 {
		return sum, nil
	}

	jobs := make(chan job)
	var (
		mu   sync.Mutex
		errs []error
		wg   sync.WaitGroup
	)
	total := len(codes) * len(r.engines)
	r.pending(float64(total))

	for i := 0; i < r.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				res, contended, err := r.runJob(ctx, j)
				r.pending(-1)

				mu.Lock()
				sum.Jobs++
				if contended {
					sum.Contended++
				} else {
					sum.Records += res.Stats.Records
					sum.Batches += res.Stats.Batches
					sum.Outcomes[res.Outcome]++
					sum.Results = append(sum.Results, res)
				}
				if err != nil {
					errs = append(errs, err)
				}
				mu.Unlock()
			}
		}()
	}

feed:
	for _, code := range codes {
		for _, e := range r.engines {
			select {
			case <-ctx.Done():
				break feed
			case jobs <- job{engine: e, code: code}:
			}
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		errs = append(errs, err)
	}
	r.pending(-float64(total - sum.Jobs))
	return sum, errors.Join(errs...)
}

// runJob runs one engine pass under the series lock.
func (r *Runner) runJob(ctx context.Context, j job) (Result, bool, error) {
	family := j.engine.Family()
	ctx = logger.WithRunID(ctx, logger.GenerateRunID(family, j.code, r.now()))

	release, ok, err := r.cfg.Locker.Acquire(ctx, lockKey(family, j.code))
	if err != nil {
		return Result{Family: family, Code: j.code, Outcome: OutcomeFailed}, false, fmt.Errorf("%s %s: lock: %w", family, j.code, err)
	}
	if !ok {
		slog.Warn("series locked by another run, skipping", append(logger.LogWithRun(ctx), "family", family, "code", j.code)...)
		if m := r.cfg.Metrics; m != nil {
			m.LockContended.Inc()
		}
		return Result{}, true, nil
	}
	defer release()

	start := time.Now()
	res, err := j.engine.Run(ctx, j.code)
	elapsed := time.Since(start)

	if m := r.cfg.Metrics; m != nil {
		m.RunsTotal.WithLabelValues(family, string(res.Outcome)).Inc()
		m.RunDuration.WithLabelValues(family).Observe(elapsed.Seconds())
		m.RecordsWritten.WithLabelValues(family).Add(float64(res.Stats.Records))
		m.BatchesWritten.WithLabelValues(family).Add(float64(res.Stats.Batches))
		if err != nil {
			m.StoreErrors.WithLabelValues(family).Inc()
		}
	}
	if err != nil {
		slog.Error("run failed", append(logger.LogWithRun(ctx),
			"family", family, "code", j.code, "records", res.Stats.Records, "error", err)...)
	}

	if res.Last != nil && r.cfg.Publisher != nil {
		if perr := r.cfg.Publisher.PublishLatest(ctx, family, res.Last); perr != nil {
			slog.Warn("publish latest failed", append(logger.LogWithRun(ctx),
				"family", family, "code", j.code, "error", perr)...)
			if m := r.cfg.Metrics; m != nil {
				m.PublishFailures.Inc()
			}
		}
	}
	return res, false, err
}

func (r *Runner) pending(delta float64) {
	if m := r.cfg.Metrics; m != nil {
		m.InstrumentsPending.Add(delta)
	}
}
