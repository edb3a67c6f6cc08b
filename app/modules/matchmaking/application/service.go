package matchmakingservice

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	matchmakingdb "github.com/Black-And-White-Club/lobby-bot/app/modules/matchmaking/infrastructure/repositories"
	"github.com/Black-And-White-Club/lobby-bot/app/shared/identity"
	sharedtypes "github.com/Black-And-White-Club/lobby-bot/app/shared/types"
	"github.com/Black-And-White-Club/lobby-bot/internal/attr"
	"github.com/Black-And-White-Club/lobby-bot/internal/metrics"
	"github.com/Black-And-White-Club/lobby-bot/internal/results"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const serviceName = "MatchmakingService"

// MatchmakingService implements the Service interface.
type MatchmakingService struct {
	repo      matchmakingdb.Repository
	ratings   Ratings
	platform  identity.Platform
	announcer Announcer
	locks     *LobbyLocks
	cooldowns *CooldownRegistry
	logger    *slog.Logger
	metrics   metrics.MatchmakingMetrics
	tracer    trace.Tracer
	db        *bun.DB
	now       func() time.Time

	randMu sync.Mutex
	rand   *rand.Rand
}

// Options carries the collaborators of a MatchmakingService that have sensible defaults.
type Options struct {
	Locks     *LobbyLocks
	Cooldowns *CooldownRegistry
	Rand      *rand.Rand
}

// NewMatchmakingService creates a new MatchmakingService.
func NewMatchmakingService(
	repo matchmakingdb.Repository,
	ratings Ratings,
	platform identity.Platform,
	announcer Announcer,
	logger *slog.Logger,
	metrics metrics.MatchmakingMetrics,
	tracer trace.Tracer,
	db *bun.DB,
	opts Options,
) *MatchmakingService {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Locks == nil {
		opts.Locks = NewLobbyLocks(0)
	}
	if opts.Cooldowns == nil {
		opts.Cooldowns = NewCooldownRegistry()
	}
	if opts.Rand == nil {
		seed := uint64(time.Now().UnixNano())
		opts.Rand = rand.New(rand.NewPCG(seed, seed>>7|1))
	}
	return &MatchmakingService{
		repo:      repo,
		ratings:   ratings,
		platform:  platform,
		announcer: announcer,
		locks:     opts.Locks,
		cooldowns: opts.Cooldowns,
		logger:    logger,
		metrics:   metrics,
		tracer:    tracer,
		db:        db,
		now:       time.Now,
		rand:      opts.Rand,
	}
}

// Cooldowns exposes the requeue cooldown registry so competition changes can invalidate it.
func (s *MatchmakingService) Cooldowns() *CooldownRegistry {
	return s.cooldowns
}

// withRand runs fn with exclusive use of the service RNG.
func (s *MatchmakingService) withRand(fn func(r *rand.Rand)) {
	s.randMu.Lock()
	defer s.randMu.Unlock()
	fn(s.rand)
}

// -----------------------------------------------------------------------------
// Generic Helpers (Defined as functions because methods cannot have type params)
// -----------------------------------------------------------------------------

type operationFunc[S any, F any] func(ctx context.Context) (results.OperationResult[S, F], error)

// withTelemetry wraps a service operation with tracing, metrics, and panic recovery.
func withTelemetry[S any, F any](
	s *MatchmakingService,
	ctx context.Context,
	operationName string,
	lobby sharedtypes.LobbyKey,
	op operationFunc[S, F],
) (result results.OperationResult[S, F], err error) {
	var span trace.Span
	if s.tracer != nil {
		ctx, span = s.tracer.Start(ctx, operationName, trace.WithAttributes(
			attribute.String("operation", operationName),
			attribute.String("guild_id", string(lobby.GuildID)),
			attribute.String("channel_id", string(lobby.ChannelID)),
		))
	} else {
		span = trace.SpanFromContext(ctx)
	}
	defer span.End()

	if s.metrics != nil {
		s.metrics.RecordOperationAttempt(ctx, operationName, serviceName)
	}

	startTime := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordOperationDuration(ctx, operationName, serviceName, time.Since(startTime))
		}
	}()

	s.logger.InfoContext(ctx, "Operation triggered",
		attr.ExtractCorrelationID(ctx),
		attr.String("operation", operationName),
		attr.Lobby(lobby),
	)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", operationName, r)
			s.logger.ErrorContext(ctx, "Critical panic recovered",
				attr.ExtractCorrelationID(ctx),
				attr.Lobby(lobby),
				attr.Error(err),
			)
			if s.metrics != nil {
				s.metrics.RecordOperationFailure(ctx, operationName, serviceName)
			}
			span.RecordError(err)
			result = results.OperationResult[S, F]{}
		}
	}()

	result, err = op(ctx)

	if err != nil {
		wrappedErr := fmt.Errorf("%s: %w", operationName, err)
		s.logger.ErrorContext(ctx, "Operation failed with error",
			attr.ExtractCorrelationID(ctx),
			attr.String("operation", operationName),
			attr.Lobby(lobby),
			attr.Error(wrappedErr),
		)
		if s.metrics != nil {
			s.metrics.RecordOperationFailure(ctx, operationName, serviceName)
		}
		span.RecordError(wrappedErr)
		return result, wrappedErr
	}

	if result.IsFailure() {
		s.logger.WarnContext(ctx, "Operation returned failure result",
			attr.ExtractCorrelationID(ctx),
			attr.String("operation", operationName),
			attr.Lobby(lobby),
			attr.Any("failure_payload", *result.Failure),
		)
	}

	if result.IsSuccess() {
		s.logger.InfoContext(ctx, "Operation completed successfully",
			attr.ExtractCorrelationID(ctx),
			attr.String("operation", operationName),
			attr.Lobby(lobby),
		)
	}

	if s.metrics != nil {
		s.metrics.RecordOperationSuccess(ctx, operationName, serviceName)
	}

	return result, nil
}

// runInTx ensures the operation runs within a transaction. Failure results roll back.
func runInTx[S any, F any](
	s *MatchmakingService,
	ctx context.Context,
	fn func(ctx context.Context, db bun.IDB) (results.OperationResult[S, F], error),
) (results.OperationResult[S, F], error) {
	if s.db == nil {
		return fn(ctx, nil)
	}

	var result results.OperationResult[S, F]
	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var txErr error
		result, txErr = fn(ctx, tx)
		if txErr == nil && result.IsFailure() {
			return errRollback
		}
		return txErr
	})
	if errors.Is(err, errRollback) {
		return result, nil
	}
	return result, err
}

// errRollback discards the writes of an operation that ended in a business failure.
var errRollback = errors.New("rollback")

// runLocked runs fn in a transaction while holding the lobby lock. The lock, and any
// other lobby lock fn takes with lockOther, is released after commit so the next
// operation on those lobbies sees the new state.
func runLocked[S any](
	s *MatchmakingService,
	ctx context.Context,
	lobby sharedtypes.LobbyKey,
	fn func(ctx context.Context, db bun.IDB) (results.OperationResult[S, error], error),
) (results.OperationResult[S, error], error) {
	release, err := s.locks.Acquire(ctx, lobby)
	if err != nil {
		return results.FailureResult[S, error](err), nil
	}
	held := &heldLocks{locks: s.locks, keys: map[sharedtypes.LobbyKey]struct{}{}}
	held.add(lobby, release)
	defer held.releaseAll()
	return runInTx(s, context.WithValue(ctx, heldLocksKey{}, held), fn)
}

// unwrap turns an operation result into the (value, error) pair the Service interface returns.
func unwrap[S any](result results.OperationResult[S, error], err error) (S, error) {
	var zero S
	if err != nil {
		return zero, err
	}
	if result.IsFailure() {
		return zero, *result.Failure
	}
	return *result.Success, nil
}
