package matchmakingqueue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Black-And-White-Club/lobby-bot/internal/attr"
	"github.com/Black-And-White-Club/lobby-bot/internal/metrics"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
)

const (
	serviceName          = "river"
	queueName            = "matchmaking"
	defaultSweepInterval = 30 * time.Second
)

// Config tunes the River client.
type Config struct {
	SweepInterval time.Duration
	MaxWorkers    int
}

// Service runs the matchmaking background jobs on River.
type Service struct {
	client  *river.Client[pgx.Tx]
	pool    *pgxpool.Pool
	logger  *slog.Logger
	metrics metrics.OperationMetrics
}

// NewService creates the River client with the periodic queue sweep registered.
func NewService(ctx context.Context, dsn string, sweeper Sweeper, logger *slog.Logger, m metrics.OperationMetrics, cfg Config) (*Service, error) {
	ctxLogger := logger.With(
		attr.String("operation", "new_matchmaking_queue_service"),
		attr.String("component", "river_queue"),
	)

	start := time.Now()
	m.RecordOperationAttempt(ctx, "initialize_service", serviceName)

	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = defaultSweepInterval
	}
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 5
	}

	// River requires pgx, not database/sql
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		m.RecordOperationFailure(ctx, "initialize_service", serviceName)
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		m.RecordOperationFailure(ctx, "initialize_service", serviceName)
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		m.RecordOperationFailure(ctx, "initialize_service", serviceName)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, NewSweepWorker(ctxLogger, sweeper))

	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			queueName: {MaxWorkers: cfg.MaxWorkers},
		},
		Workers:      workers,
		PeriodicJobs: []*river.PeriodicJob{SweepPeriodicJob(cfg.SweepInterval)},
		Logger:       logger,
	})
	if err != nil {
		pool.Close()
		m.RecordOperationFailure(ctx, "initialize_service", serviceName)
		return nil, fmt.Errorf("failed to create River client: %w", err)
	}

	m.RecordOperationSuccess(ctx, "initialize_service", serviceName)
	m.RecordOperationDuration(ctx, "initialize_service", serviceName, time.Since(start))
	ctxLogger.InfoContext(ctx, "Matchmaking queue service initialized", attr.Duration("sweep_interval", cfg.SweepInterval))

	return &Service{client: client, pool: pool, logger: ctxLogger, metrics: m}, nil
}

// SweepPeriodicJob schedules a sweep every interval, starting immediately.
func SweepPeriodicJob(interval time.Duration) *river.PeriodicJob {
	return river.NewPeriodicJob(
		river.PeriodicInterval(interval),
		func() (river.JobArgs, *river.InsertOpts) {
			return SweepJob{}, &river.InsertOpts{Queue: queueName, MaxAttempts: 1}
		},
		&river.PeriodicJobOpts{RunOnStart: true},
	)
}

// Start starts the River client.
func (s *Service) Start(ctx context.Context) error {
	s.metrics.RecordOperationAttempt(ctx, "start_service", serviceName)
	if err := s.client.Start(ctx); err != nil {
		s.logger.ErrorContext(ctx, "Failed to start River client", attr.Error(err))
		s.metrics.RecordOperationFailure(ctx, "start_service", serviceName)
		return fmt.Errorf("failed to start River client: %w", err)
	}
	s.metrics.RecordOperationSuccess(ctx, "start_service", serviceName)
	return nil
}

// Stop waits for running jobs and releases the pool.
func (s *Service) Stop(ctx context.Context) error {
	defer s.pool.Close()
	s.metrics.RecordOperationAttempt(ctx, "stop_service", serviceName)
	if err := s.client.Stop(ctx); err != nil {
		s.logger.ErrorContext(ctx, "Failed to stop River client", attr.Error(err))
		s.metrics.RecordOperationFailure(ctx, "stop_service", serviceName)
		return fmt.Errorf("failed to stop River client: %w", err)
	}
	s.metrics.RecordOperationSuccess(ctx, "stop_service", serviceName)
	return nil
}

// HealthCheck pings the River pool.
func (s *Service) HealthCheck(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("queue service health check failed: %w", err)
	}
	return nil
}
