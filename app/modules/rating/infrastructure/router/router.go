package ratingrouter

import (
	"context"
	"log/slog"

	ratinghandlers "github.com/Black-And-White-Club/lobby-bot/app/modules/rating/infrastructure/handlers"
	ratingevents "github.com/Black-And-White-Club/lobby-bot/app/shared/events/rating"
	"github.com/Black-And-White-Club/lobby-bot/internal/eventbus"
	"github.com/Black-And-White-Club/lobby-bot/internal/handlerwrapper"
	"github.com/ThreeDotsLabs/watermill/components/metrics"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
)

// RatingRouter binds rating command topics to their handlers.
type RatingRouter struct {
	logger         *slog.Logger
	Router         *message.Router
	subscriber     eventbus.EventBus
	publisher      eventbus.EventBus
	tracer         trace.Tracer
	metricsBuilder *metrics.PrometheusMetricsBuilder
}

// NewRatingRouter creates a new instance of the router. A nil registry disables router metrics.
func NewRatingRouter(
	logger *slog.Logger,
	router *message.Router,
	subscriber eventbus.EventBus,
	publisher eventbus.EventBus,
	tracer trace.Tracer,
	prometheusRegistry prometheus.Registerer,
) *RatingRouter {
	var metricsBuilder *metrics.PrometheusMetricsBuilder
	if prometheusRegistry != nil {
		builder := metrics.NewPrometheusMetricsBuilder(prometheusRegistry, "rating", "")
		metricsBuilder = &builder
	}
	return &RatingRouter{
		logger:         logger,
		Router:         router,
		subscriber:     subscriber,
		publisher:      publisher,
		tracer:         tracer,
		metricsBuilder: metricsBuilder,
	}
}

// Configure sets up the middlewares and registers the handlers.
func (r *RatingRouter) Configure(ctx context.Context, handlers ratinghandlers.Handlers) error {
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
	handlerName := "rating." + topic
	deps.router.AddHandler(
		handlerName,
		topic,
		deps.subscriber,
		"",
		deps.publisher,
		handlerwrapper.WrapTransformingTyped(handlerName, deps.logger, deps.tracer, handler),
	)
}

// RegisterHandlers binds rating topics to their handlers.
func (r *RatingRouter) RegisterHandlers(ctx context.Context, handlers ratinghandlers.Handlers) error {
	r.logger.InfoContext(ctx, "Registering Rating Event Handlers")

	deps := handlerDeps{
		router:     r.Router,
		subscriber: r.subscriber,
		publisher:  r.publisher,
		logger:     r.logger,
		tracer:     r.tracer,
	}

	registerHandler(deps, ratingevents.PlayerRegisterRequestedV1, handlers.HandlePlayerRegisterRequested)
	registerHandler(deps, ratingevents.ManualGameRequestedV1, handlers.HandleManualGameRequested)
	registerHandler(deps, ratingevents.ManualGameUndoRequestedV1, handlers.HandleManualGameUndoRequested)
	registerHandler(deps, ratingevents.BanRequestedV1, handlers.HandleBanRequested)
	registerHandler(deps, ratingevents.UnbanRequestedV1, handlers.HandleUnbanRequested)

	// Configuration
	registerHandler(deps, ratingevents.RankSetRequestedV1, handlers.HandleRankSetRequested)
	registerHandler(deps, ratingevents.RankRemoveRequestedV1, handlers.HandleRankRemoveRequested)
	registerHandler(deps, ratingevents.CompetitionUpdateRequestedV1, handlers.HandleCompetitionUpdateRequested)

	// Reads
	registerHandler(deps, ratingevents.LeaderboardRequestedV1, handlers.HandleLeaderboardRequested)

	return nil
}

// Close stops the router.
func (r *RatingRouter) Close() error {
	return r.Router.Close()
}
