package cleanup

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"gatekeeper/internal/ratelimit/metrics"
)

type mockAttemptStore struct {
	sweepCalled   int
	sweptToReturn int
	errToReturn   error
	lastSweepNow  time.Time
	evictions     uint64
}

func (m *mockAttemptStore) Sweep(_ context.Context, now time.Time) (int, error) {
	m.sweepCalled++
	m.lastSweepNow = now
	return m.sweptToReturn, m.errToReturn
}

func (m *mockAttemptStore) Len(context.Context) (int, error) { return 0, nil }

func (m *mockAttemptStore) Evictions() uint64 { return m.evictions }

// newTestMetrics builds an unregistered metrics set so each test can read
// counters in isolation without touching the default registry.
func newTestMetrics() *metrics.Metrics {
	return &metrics.Metrics{
		EvictionsTotal:      prometheus.NewCounter(prometheus.CounterOpts{Name: "evictions_total"}),
		TrackedIdentities:   prometheus.NewGauge(prometheus.GaugeOpts{Name: "tracked_identities"}),
		CleanupRunsTotal:    prometheus.NewCounterVec(prometheus.CounterOpts{Name: "cleanup_runs_total"}, []string{"status"}),
		CleanupRecordsSwept: prometheus.NewCounter(prometheus.CounterOpts{Name: "cleanup_records_swept_total"}),
		CleanupDurationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "cleanup_duration_seconds",
		}),
	}
}

type CleanupWorkerSuite struct {
	suite.Suite
	store  *mockAttemptStore
	worker *Worker
}

func TestCleanupWorkerSuite(t *testing.T) {
	suite.Run(t, new(CleanupWorkerSuite))
}

func (s *CleanupWorkerSuite) SetupTest() {
	s.store = &mockAttemptStore{}
	s.worker = New(s.store, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func (s *CleanupWorkerSuite) TestRunOnceSweepsExpiredRecords() {
	s.store.sweptToReturn = 3

	result, err := s.worker.RunOnce(context.Background())
	s.Require().NoError(err)
	s.Equal(1, s.store.sweepCalled, "Sweep should be called once per run")
	s.Equal(3, result.RecordsSwept)
	s.WithinDuration(time.Now(), s.store.lastSweepNow, time.Minute, "sweep cutoff should be the current time")
}

func (s *CleanupWorkerSuite) TestRunOncePropagatesStoreError() {
	s.store.errToReturn = errors.New("store unavailable")

	result, err := s.worker.RunOnce(context.Background())
	s.Error(err)
	s.Nil(result)
}

func (s *CleanupWorkerSuite) TestStartStopsOnContextCancel() {
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- s.worker.Start(ctx)
	}()

	cancel()

	select {
	case err := <-done:
		s.ErrorIs(err, context.Canceled)
	case <-time.After(time.Second):
		s.Fail("worker did not stop after context cancellation")
	}
}

func (s *CleanupWorkerSuite) TestStartSweepsOnInterval() {
	worker := New(s.store,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithInterval(10*time.Millisecond),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := worker.Start(ctx)
	s.ErrorIs(err, context.DeadlineExceeded)
	s.GreaterOrEqual(s.store.sweepCalled, 1, "at least one sweep should run within the timeout")
}

func (s *CleanupWorkerSuite) TestStartPublishesCacheEvictions() {
	m := newTestMetrics()
	s.store.evictions = 4

	worker := New(s.store,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithInterval(10*time.Millisecond),
		WithMetrics(m),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := worker.Start(ctx)
	s.ErrorIs(err, context.DeadlineExceeded)
	s.GreaterOrEqual(s.store.sweepCalled, 1, "at least one sweep should run within the timeout")

	// The store counter is monotonic, so repeated sweeps add a zero delta
	// and the metric converges on the store's total.
	s.Equal(float64(4), testutil.ToFloat64(m.EvictionsTotal))
}

func (s *CleanupWorkerSuite) TestEvictionDeltaAccumulates() {
	m := newTestMetrics()
	worker := New(s.store, WithMetrics(m))

	s.store.evictions = 4
	worker.observeEvictions()
	s.Equal(float64(4), testutil.ToFloat64(m.EvictionsTotal))

	s.store.evictions = 7
	worker.observeEvictions()
	s.Equal(float64(7), testutil.ToFloat64(m.EvictionsTotal), "only the delta since the previous sweep should be added")
}
