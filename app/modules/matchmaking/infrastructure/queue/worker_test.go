package matchmakingqueue

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/riverqueue/river"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSweeper struct {
	calls int
	n     int
	err   error
}

func (f *fakeSweeper) SweepExpired(context.Context) (int, error) {
	f.calls++
	return f.n, f.err
}

func TestSweepWorker_Work(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("sweeps", func(t *testing.T) {
		sweeper := &fakeSweeper{n: 3}
		w := NewSweepWorker(logger, sweeper)
		require.NoError(t, w.Work(context.Background(), &river.Job[SweepJob]{}))
		assert.Equal(t, 1, sweeper.calls)
	})

	t.Run("returns sweep errors", func(t *testing.T) {
		sweeper := &fakeSweeper{err: errors.New("connection reset")}
		w := NewSweepWorker(logger, sweeper)
		assert.Error(t, w.Work(context.Background(), &river.Job[SweepJob]{}))
	})

	t.Run("timeout", func(t *testing.T) {
		w := NewSweepWorker(logger, &fakeSweeper{})
		assert.Equal(t, time.Minute, w.Timeout(nil))
	})
}

func TestSweepPeriodicJob(t *testing.T) {
	job := SweepPeriodicJob(10 * time.Second)
	require.NotNil(t, job)
	assert.Equal(t, "matchmaking_queue_sweep", SweepJob{}.Kind())
}
