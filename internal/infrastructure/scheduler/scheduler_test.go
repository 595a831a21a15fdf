package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// countingJob counts runs and optionally blocks until its context ends
type countingJob struct {
	name  string
	runs  atomic.Int32
	err   error
	block bool
	panic bool
}

func (j *countingJob) Name() string { return j.name }

func (j *countingJob) Run(ctx context.Context) error {
	j.runs.Add(1)
	if j.panic {
		panic("sweep exploded")
	}
	if j.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return j.err
}

func TestScheduler_Register(t *testing.T) {
	s := NewScheduler(zap.NewNop())

	t.Run("should accept a standard expression", func(t *testing.T) {
		require.NoError(t, s.Register("0 3 * * *", &countingJob{name: "nightly"}))
	})

	t.Run("should accept a descriptor", func(t *testing.T) {
		require.NoError(t, s.Register("@every 1h", &countingJob{name: "hourly"}))
	})

	t.Run("should reject an invalid expression", func(t *testing.T) {
		err := s.Register("every night", &countingJob{name: "broken"})
		assert.ErrorIs(t, err, ErrInvalidSchedule)
	})

	t.Run("should reject a duplicate name", func(t *testing.T) {
		err := s.Register("@daily", &countingJob{name: "nightly"})
		assert.ErrorIs(t, err, ErrDuplicateJob)
	})
}

func TestScheduler_FiresJobs(t *testing.T) {
	s := NewScheduler(zap.NewNop())
	job := &countingJob{name: "tick"}
	require.NoError(t, s.Register("@every 1s", job))

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop(context.Background())

	next, ok := s.NextRun("tick")
	require.True(t, ok)
	assert.False(t, next.IsZero())

	assert.Eventually(t, func() bool { return job.runs.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
}

func TestScheduler_RecoversPanics(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	s := NewScheduler(zap.New(core))
	job := &countingJob{name: "panicky", panic: true}
	require.NoError(t, s.Register("@every 1s", job))

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop(context.Background())

	assert.Eventually(t, func() bool { return logs.FilterMessage("panic").Len() >= 1 }, 3*time.Second, 50*time.Millisecond)
}

func TestScheduler_StopCancelsRunningJob(t *testing.T) {
	s := NewScheduler(zap.NewNop())
	job := &countingJob{name: "slow", block: true}
	require.NoError(t, s.Register("@every 1s", job))

	require.NoError(t, s.Start(context.Background()))
	require.Eventually(t, func() bool { return job.runs.Load() == 1 }, 3*time.Second, 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, s.Stop(ctx))
	assert.NoError(t, s.Stop(ctx), "second stop is a no-op")
}

func TestScheduler_RunNow(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	s := NewScheduler(zap.New(core))
	ok := &countingJob{name: "ok"}
	failing := &countingJob{name: "failing", err: errors.New("db unavailable")}
	require.NoError(t, s.Register("@daily", ok))
	require.NoError(t, s.Register("@daily", failing))

	t.Run("should run the job synchronously", func(t *testing.T) {
		require.NoError(t, s.RunNow(context.Background(), "ok"))
		assert.Equal(t, int32(1), ok.runs.Load())
		assert.Equal(t, 1, logs.FilterMessage("job completed").Len())
	})

	t.Run("should return and log the job error", func(t *testing.T) {
		err := s.RunNow(context.Background(), "failing")
		assert.EqualError(t, err, "db unavailable")
		assert.Equal(t, 1, logs.FilterMessage("job failed").Len())
	})

	t.Run("should reject an unknown job", func(t *testing.T) {
		assert.ErrorIs(t, s.RunNow(context.Background(), "missing"), ErrJobNotFound)
	})
}
