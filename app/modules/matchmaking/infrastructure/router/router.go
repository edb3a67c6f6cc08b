package matchmakingrouter

import (
	"context"
	"log/slog"

	matchmakinghandlers "github.com/Black-And-White-Club/lobby-bot/app/modules/matchmaking/infrastructure/handlers"
	matchmakingevents "github.com/Black-And-White-Club/lobby-bot/app/shared/events/matchmaking"
	"github.com/Black-And-White-Club/lobby-bot/internal/eventbus"
	"github.com/Black-And-White-Club/lobby-bot/internal/handlerwrapper"
	"github.com/ThreeDotsLabs/watermill/components/metrics"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
)

// MatchmakingRouter binds matchmaking command topics to their handlers.
type MatchmakingRouter struct {
	logger         *slog.Logger
	Router         *message.Router
	subscriber     eventbus.EventBus
	publisher      eventbus.EventBus
	tracer         trace.Tracer
	metricsBuilder *metrics.PrometheusMetricsBuilder
}

// NewMatchmakingRouter creates a new instance of the router. A nil registry disables router metrics.
func NewMatchmakingRouter(
	logger *slog.Logger,
	router *message.Router,
	subscriber eventbus.EventBus,
	publisher eventbus.EventBus,
	tracer trace.Tracer,
	prometheusRegistry prometheus.Registerer,
) *MatchmakingRouter {
	var metricsBuilder *metrics.PrometheusMetricsBuilder
	if prometheusRegistry != nil {
		builder := metrics.NewPrometheusMetricsBuilder(prometheusRegistry, "matchmaking", "")
		metricsBuilder = &builder
	}
	return &MatchmakingRouter{
		logger:         logger,
		Router:         router,
		subscriber:     subscriber,
		publisher:      publisher,
		tracer:         tracer,
		metricsBuilder: metricsBuilder,
	}
}

// Configure sets up the middlewares and registers the handlers.
func (r *MatchmakingRouter) Configure(ctx context.Context, handlers matchmakinghandlers.Handlers) error {
	if r.metricsBuilder != nil {
		r.metricsBuilder.AddPrometheusRouterMetrics(r.Router)
	}
	r.Router.AddMiddleware(
		middleware.CorrelationID,
		middleware.Recoverer,
	)
	return r.RegisterHandlers(ctx, handlers)
}

type handlerDeps struct {
	router     *message.Router
	subscriber eventbus.EventBus
	publisher  eventbus.EventBus
	logger     *slog.Logger
	tracer     trace.Tracer
}

func registerHandler[T any](
	deps handlerDeps,
	topic string,
	handler func(context.Context, *T) ([]handlerwrapper.Result, error),
) {
	handlerName := "matchmaking." + topic
	deps.router.AddHandler(
		handlerName,
		topic,
		deps.subscriber,
		"",
		deps.publisher,
		handlerwrapper.WrapTransformingTyped(handlerName, deps.logger, deps.tracer, handler),
	)
}

// RegisterHandlers binds matchmaking topics to their handlers.
func (r *MatchmakingRouter) RegisterHandlers(ctx context.Context, handlers matchmakinghandlers.Handlers) error {
	r.logger.InfoContext(ctx, "Registering Matchmaking Event Handlers")

	deps := handlerDeps{
		router:     r.Router,
		subscriber: r.subscriber,
		publisher:  r.publisher,
		logger:     r.logger,
		tracer:     r.tracer,
	}

	// Lobby settings
	registerHandler(deps, matchmakingevents.LobbyCreateRequestedV1, handlers.HandleLobbyCreateRequested)
	registerHandler(deps, matchmakingevents.LobbyUpdateRequestedV1, handlers.HandleLobbyUpdateRequested)
	registerHandler(deps, matchmakingevents.LobbyDeleteRequestedV1, handlers.HandleLobbyDeleteRequested)
	registerHandler(deps, matchmakingevents.MapAddRequestedV1, handlers.HandleMapAddRequested)
	registerHandler(deps, matchmakingevents.MapRemoveRequestedV1, handlers.HandleMapRemoveRequested)

	// Queue
	registerHandler(deps, matchmakingevents.QueueJoinRequestedV1, handlers.HandleQueueJoinRequested)
	registerHandler(deps, matchmakingevents.QueueLeaveRequestedV1, handlers.HandleQueueLeaveRequested)
	registerHandler(deps, matchmakingevents.QueueViewRequestedV1, handlers.HandleQueueViewRequested)

	// Games
	registerHandler(deps, matchmakingevents.PickRequestedV1, handlers.HandlePickRequested)
	registerHandler(deps, matchmakingevents.VoteRequestedV1, handlers.HandleVoteRequested)
	registerHandler(deps, matchmakingevents.ResultSubmittedV1, handlers.HandleResultSubmitted)
	registerHandler(deps, matchmakingevents.DrawRequestedV1, handlers.HandleDrawRequested)
	registerHandler(deps, matchmakingevents.CancelRequestedV1, handlers.HandleCancelRequested)
	registerHandler(deps, matchmakingevents.UndoRequestedV1, handlers.HandleUndoRequested)
	registerHandler(deps, matchmakingevents.GameLookupRequestedV1, handlers.HandleGameLookupRequested)

	// Parties
	registerHandler(deps, matchmakingevents.PartyAddRequestedV1, handlers.HandlePartyAddRequested)
	registerHandler(deps, matchmakingevents.PartyLeaveRequestedV1, handlers.HandlePartyLeaveRequested)
	registerHandler(deps, matchmakingevents.PartyDisbandRequestedV1, handlers.HandlePartyDisbandRequested)

	return nil
}

// Close stops the router.
func (r *MatchmakingRouter) Close() error {
	return r.Router.Close()
}
