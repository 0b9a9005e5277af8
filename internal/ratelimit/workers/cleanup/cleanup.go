// Package cleanup sweeps expired attempt records out of the limiter store on
// a fixed interval. The store already drops expired entries lazily on read
// and the LRU bound caps memory either way, so the sweep is about keeping the
// tracked-identity count honest, not about correctness.
package cleanup

import (
	"context"
	"log/slog"
	"time"

	"gatekeeper/internal/ratelimit/metrics"
)

// SweepResult contains the results of a single sweep.
type SweepResult struct {
	RecordsSwept int
	Duration     time.Duration
}

type AttemptStore interface {
	Sweep(ctx context.Context, now time.Time) (swept int, err error)
	Len(ctx context.Context) (int, error)
	Evictions() uint64
}

type Option func(*Worker)

func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

func WithInterval(interval time.Duration) Option {
	return func(w *Worker) {
		if interval > 0 {
			w.interval = interval
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(w *Worker) {
		w.metrics = m
	}
}

type Worker struct {
	store    AttemptStore
	logger   *slog.Logger
	interval time.Duration
	metrics  *metrics.Metrics

	// Evictions observed at the previous sweep; the store counter is
	// monotonic, the metric receives the delta.
	lastEvictions uint64
}

func New(store AttemptStore, opts ...Option) *Worker {
	worker := &Worker{
		store:    store,
		logger:   slog.Default(),
		interval: 5 * time.Minute,
		metrics:  nil,
	}
	for _, opt := range opts {
		opt(worker)
	}
	return worker
}

// Start runs the sweep loop until the context is cancelled.
func (w *Worker) Start(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			startTime := time.Now()
			res, err := w.RunOnce(ctx)
			duration := time.Since(startTime)

			if err != nil {
				w.logger.Error("rate_limit_sweep_failed",
					"error", err,
					"duration_ms", duration.Milliseconds(),
				)
				if w.metrics != nil {
					w.metrics.CleanupRunsTotal.WithLabelValues("error").Inc()
					w.metrics.CleanupDurationSeconds.Observe(duration.Seconds())
				}
				continue
			}

			res.Duration = duration

			w.logger.Info("rate_limit_sweep_completed",
				"records_swept", res.RecordsSwept,
				"duration_ms", duration.Milliseconds(),
			)

			if w.metrics != nil {
				w.metrics.CleanupRecordsSwept.Add(float64(res.RecordsSwept))
				w.metrics.CleanupRunsTotal.WithLabelValues("success").Inc()
				w.metrics.CleanupDurationSeconds.Observe(duration.Seconds())
				w.observeEvictions()
				if n, err := w.store.Len(ctx); err == nil {
					w.metrics.TrackedIdentities.Set(float64(n))
				}
			}

		case <-ctx.Done():
			w.logger.Info("rate limit sweep worker stopping", "reason", ctx.Err())
			return ctx.Err()
		}
	}
}

// RunOnce executes a single sweep. Logging is handled by the caller (Start).
func (w *Worker) RunOnce(ctx context.Context) (*SweepResult, error) {
	swept, err := w.store.Sweep(ctx, time.Now())
	if err != nil {
		return nil, err
	}
	return &SweepResult{RecordsSwept: swept}, nil
}

// observeEvictions publishes capacity evictions accumulated since the last
// sweep.
func (w *Worker) observeEvictions() {
	current := w.store.Evictions()
	w.metrics.EvictionsTotal.Add(float64(current - w.lastEvictions))
	w.lastEvictions = current
}
