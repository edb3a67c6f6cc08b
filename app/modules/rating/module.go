package rating

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	ratingservice "github.com/Black-And-White-Club/lobby-bot/app/modules/rating/application"
	ratinghandlers "github.com/Black-And-White-Club/lobby-bot/app/modules/rating/infrastructure/handlers"
	ratingdb "github.com/Black-And-White-Club/lobby-bot/app/modules/rating/infrastructure/repositories"
	ratingrouter "github.com/Black-And-White-Club/lobby-bot/app/modules/rating/infrastructure/router"
	"github.com/Black-And-White-Club/lobby-bot/app/shared/identity"
	sharedtypes "github.com/Black-And-White-Club/lobby-bot/app/shared/types"
	"github.com/Black-And-White-Club/lobby-bot/config"
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
	Metrics  metrics.OperationMetrics
	Registry prometheus.Registerer
	DB       *bun.DB
	EventBus eventbus.EventBus
	Router   *message.Router
	Platform identity.Platform
}

// Module represents the rating module.
type Module struct {
	RatingService *ratingservice.RatingService
	RatingRouter  *ratingrouter.RatingRouter
	logger        *slog.Logger
	cancelFunc    context.CancelFunc
}

// NewRatingModule creates a new instance of the rating module.
func NewRatingModule(ctx context.Context, deps Deps) (*Module, error) {
	deps.Logger.InfoContext(ctx, "rating.NewRatingModule called")

	service := ratingservice.NewRatingService(
		ratingdb.NewRepository(deps.DB),
		EntitlementsFromConfig(deps.Config.Entitlements),
		deps.Platform,
		deps.Logger,
		deps.Metrics,
		deps.Tracer,
		deps.DB,
	)

	router := ratingrouter.NewRatingRouter(deps.Logger, deps.Router, deps.EventBus, deps.EventBus, deps.Tracer, deps.Registry)
	if err := router.Configure(ctx, ratinghandlers.NewRatingHandlers(service, deps.Logger, deps.Tracer)); err != nil {
		return nil, fmt.Errorf("failed to configure rating router: %w", err)
	}

	return &Module{
		RatingService: service,
		RatingRouter:  router,
		logger:        deps.Logger,
	}, nil
}

// EntitlementsFromConfig builds the static plan table.
func EntitlementsFromConfig(cfg config.EntitlementsConfig) ratingservice.StaticEntitlements {
	ent := ratingservice.StaticEntitlements{
		DefaultMaxPlayers: cfg.DefaultMaxPlayers,
		Premium:           make(map[sharedtypes.GuildID]bool, len(cfg.PremiumGuilds)),
		MaxPlayersByGuild: make(map[sharedtypes.GuildID]int, len(cfg.MaxPlayers)),
		FreeFeatures:      make(map[ratingservice.Feature]bool, len(cfg.FreeFeatures)),
	}
	for _, g := range cfg.PremiumGuilds {
		ent.Premium[sharedtypes.GuildID(g)] = true
	}
	for g, n := range cfg.MaxPlayers {
		ent.MaxPlayersByGuild[sharedtypes.GuildID(g)] = n
	}
	for _, f := range cfg.FreeFeatures {
		ent.FreeFeatures[ratingservice.Feature(f)] = true
	}
	return ent
}

// Run starts the rating module.
func (m *Module) Run(ctx context.Context, wg *sync.WaitGroup) {
	m.logger.InfoContext(ctx, "Starting rating module")

	ctx, cancel := context.WithCancel(ctx)
	m.cancelFunc = cancel
	defer cancel()

	if wg != nil {
		defer wg.Done()
	}

	<-ctx.Done()
	m.logger.InfoContext(ctx, "Rating module goroutine stopped")
}

// Close stops the rating module.
func (m *Module) Close() error {
	m.logger.Info("Stopping rating module")
	if m.cancelFunc != nil {
		m.cancelFunc()
	}
	return nil
}
