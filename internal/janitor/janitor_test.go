package janitor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"levelup-loyalty/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

type MockPurger struct {
	mock.Mock
}

func (m *MockPurger) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

type countingJob struct {
	name string
	runs atomic.Int32
	err  error
}

func (c *countingJob) Name() string { return c.name }

func (c *countingJob) Run(context.Context) error {
	c.runs.Add(1)
	return c.err
}

func TestDiscountPurge_Run(t *testing.T) {
	now := time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	tests := []struct {
		name    string
		deleted int64
		err     error
	}{
		{name: "Deletes expired grants", deleted: 4},
		{name: "Nothing to delete", deleted: 0},
		{name: "Store failure", err: errors.New("store unavailable")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			purger := new(MockPurger)
			purger.On("PurgeExpired", mock.Anything, now).Return(tt.deleted, tt.err)

			job := NewDiscountPurge(purger, clock, zerolog.Nop())
			err := job.Run(context.Background())

			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, "discount_purge", job.Name())
			purger.AssertExpectations(t)
		})
	}
}

func TestJanitor_RunOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewJobs(reg)

	ok := &countingJob{name: "ok"}
	bad := &countingJob{name: "bad", err: errors.New("boom")}
	worse := &countingJob{name: "worse", err: errors.New("bang")}

	j := New(time.Minute, m, zerolog.Nop(), ok, bad, worse)
	err := j.RunOnce(context.Background())

	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 2)
	assert.Contains(t, err.Error(), "bad: boom")
	assert.Equal(t, int32(1), ok.runs.Load())
	assert.Equal(t, int32(1), worse.runs.Load())

	series, err := testutil.GatherAndCount(reg, "levelup_job_runs_total")
	require.NoError(t, err)
	assert.Equal(t, 3, series)
}

func TestJanitor_RunTicksUntilCancelled(t *testing.T) {
	job := &countingJob{name: "tick"}
	j := New(10*time.Millisecond, nil, zerolog.Nop(), job)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- j.Run(ctx) }()

	assert.Eventually(t, func() bool { return job.runs.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("janitor did not stop")
	}
}

func TestNew_DefaultInterval(t *testing.T) {
	j := New(0, nil, zerolog.Nop())
	assert.Equal(t, time.Hour, j.interval)
	assert.NoError(t, j.RunOnce(context.Background()))
}
