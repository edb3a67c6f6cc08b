package matchmaking

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	matchmakingservice "github.com/Black-And-White-Club/lobby-bot/app/modules/matchmaking/application"
	matchmakinghandlers "github.com/Black-And-White-Club/lobby-bot/app/modules/matchmaking/infrastructure/handlers"
	matchmakingoutbox "github.com/Black-And-White-Club/lobby-bot/app/modules/matchmaking/infrastructure/outbox"
	matchmakingqueue "github.com/Black-And-White-Club/lobby-bot/app/modules/matchmaking/infrastructure/queue"
	matchmakingdb "github.com/Black-And-White-Club/lobby-bot/app/modules/matchmaking/infrastructure/repositories"
	matchmakingrouter "github.com/Black-And-White-Club/lobby-bot/app/modules/matchmaking/infrastructure/router"
	ratingservice "github.com/Black-And-White-Club/lobby-bot/app/modules/rating/application"
	"github.com/Black-And-White-Club/lobby-bot/app/shared/identity"
	"github.com/Black-And-White-Club/lobby-bot/config"
	"github.com/Black-And-White-Club/lobby-bot/internal/attr"
	"github.com/Black-And-White-Club/lobby-bot/internal/eventbus"
	"github.com/Black-And-White-Club/lobby-bot/internal/metrics"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/trace"
)

// Deps carries the process-wide components the module is built from.
type Deps struct {
	Config   *config.Config
	Logger   *slog.Logger
	Tracer   trace.Tracer
	Metrics  metrics.MatchmakingMetrics
	Registry prometheus.Registerer
	DB       *bun.DB
	EventBus eventbus.EventBus
	Router   *message.Router
	Platform identity.Platform
	// Ratings is the rating module's service; its ledger backs score application.
	Ratings *ratingservice.RatingService
}

// Module represents the matchmaking module.
type Module struct {
	MatchmakingService *matchmakingservice.MatchmakingService
	MatchmakingRouter  *matchmakingrouter.MatchmakingRouter
	Outbox             *matchmakingoutbox.Outbox
	Queue              *matchmakingqueue.Service
	logger             *slog.Logger
	cancelFunc         context.CancelFunc
}

// NewMatchmakingModule creates a new instance of the matchmaking module.
func NewMatchmakingModule(ctx context.Context, deps Deps) (*Module, error) {
	deps.Logger.InfoContext(ctx, "matchmaking.NewMatchmakingModule called")

	cfg := deps.Config.Matchmaking

	outbox := matchmakingoutbox.New(deps.EventBus, deps.Platform, deps.Logger, deps.Metrics, deps.Tracer, matchmakingoutbox.Config{
		Buffer:      cfg.OutboxBuffer,
		DMPerSecond: cfg.DMPerSecond,
		DMBurst:     cfg.DMBurst,
	})

	service := matchmakingservice.NewMatchmakingService(
		matchmakingdb.NewRepository(deps.DB),
		deps.Ratings.Ledger(),
		deps.Platform,
		outbox,
		deps.Logger,
		deps.Metrics,
		deps.Tracer,
		deps.DB,
		matchmakingservice.Options{Locks: matchmakingservice.NewLobbyLocks(lockTimeout(cfg.LockTimeout))},
	)
	deps.Ratings.OnCompetitionChanged(service.Cooldowns().Invalidate)

	router := matchmakingrouter.NewMatchmakingRouter(deps.Logger, deps.Router, deps.EventBus, deps.EventBus, deps.Tracer, deps.Registry)
	if err := router.Configure(ctx, matchmakinghandlers.NewMatchmakingHandlers(service, deps.Logger, deps.Tracer)); err != nil {
		return nil, fmt.Errorf("failed to configure matchmaking router: %w", err)
	}

	queue, err := matchmakingqueue.NewService(ctx, deps.Config.Postgres.DSN, service, deps.Logger, deps.Metrics, matchmakingqueue.Config{
		SweepInterval: cfg.SweepInterval,
		MaxWorkers:    cfg.RiverQueueSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create matchmaking queue: %w", err)
	}

	return &Module{
		MatchmakingService: service,
		MatchmakingRouter:  router,
		Outbox:             outbox,
		Queue:              queue,
		logger:             deps.Logger,
	}, nil
}

func lockTimeout(d time.Duration) time.Duration {
	if d <= 0 {
		return 5 * time.Second
	}
	return d
}

// Run starts the outbox and the sweep scheduler and blocks until ctx is done.
func (m *Module) Run(ctx context.Context, wg *sync.WaitGroup) {
	m.logger.InfoContext(ctx, "Starting matchmaking module")

	ctx, cancel := context.WithCancel(ctx)
	m.cancelFunc = cancel
	defer cancel()

	if wg != nil {
		defer wg.Done()
	}

	if err := m.Queue.Start(ctx); err != nil {
		m.logger.ErrorContext(ctx, "Queue sweeps disabled", attr.Error(err))
	}

	m.Outbox.Run(ctx)
	m.logger.InfoContext(ctx, "Matchmaking module goroutine stopped")
}

// Close stops the matchmaking module.
func (m *Module) Close() error {
	m.logger.Info("Stopping matchmaking module")
	if m.cancelFunc != nil {
		m.cancelFunc()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return m.Queue.Stop(ctx)
}
