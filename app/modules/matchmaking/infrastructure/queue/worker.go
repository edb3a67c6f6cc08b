package matchmakingqueue

import (
	"context"
	"log/slog"
	"time"

	"github.com/Black-And-White-Club/lobby-bot/internal/attr"
	"github.com/riverqueue/river"
)

// Sweeper is the part of the matchmaking service the sweep job drives.
type Sweeper interface {
	SweepExpired(ctx context.Context) (int, error)
}

// SweepWorker runs one queue-timeout sweep per job.
type SweepWorker struct {
	river.WorkerDefaults[SweepJob]
	sweeper Sweeper
	logger  *slog.Logger
}

func NewSweepWorker(logger *slog.Logger, sweeper Sweeper) *SweepWorker {
	return &SweepWorker{sweeper: sweeper, logger: logger}
}

func (w *SweepWorker) Work(ctx context.Context, job *river.Job[SweepJob]) error {
	start := time.Now()
	evicted, err := w.sweeper.SweepExpired(ctx)
	if err != nil {
		w.logger.ErrorContext(ctx, "Queue sweep failed", attr.Error(err))
		return err
	}
	if evicted > 0 {
		w.logger.InfoContext(ctx, "Queue sweep evicted players",
			attr.Int("evicted", evicted),
			attr.Duration("duration", time.Since(start)),
		)
	}
	return nil
}

// Timeout keeps a slow sweep from overlapping the next one.
func (w *SweepWorker) Timeout(*river.Job[SweepJob]) time.Duration {
	return time.Minute
}
