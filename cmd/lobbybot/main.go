package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/Black-And-White-Club/lobby-bot/app/modules/matchmaking"
	matchmakinghttp "github.com/Black-And-White-Club/lobby-bot/app/modules/matchmaking/infrastructure/httpapi"
	"github.com/Black-And-White-Club/lobby-bot/app/modules/rating"
	"github.com/Black-And-White-Club/lobby-bot/app/shared/identity"
	"github.com/Black-And-White-Club/lobby-bot/config"
	"github.com/Black-And-White-Club/lobby-bot/db/bundb"
	"github.com/Black-And-White-Club/lobby-bot/internal/attr"
	"github.com/Black-And-White-Club/lobby-bot/internal/eventbus"
	"github.com/Black-And-White-Club/lobby-bot/internal/metrics"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel"
)

func main() {
	configFile := flag.String("config", "config.yaml", "Path to the configuration file")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := newLogger(cfg.Observability)
	slog.SetDefault(logger)
	logger.InfoContext(ctx, "Starting lobby-bot", attr.String("environment", cfg.Observability.Environment))

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("lobby-bot stopped with error", attr.Error(err))
		os.Exit(1)
	}
	logger.Info("lobby-bot shut down gracefully")
}

func newLogger(cfg config.ObservabilityConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(cfg.LogLevel))); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Environment == "development" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	var m metrics.MatchmakingMetrics = metrics.NewNoop()
	var routerRegistry prometheus.Registerer
	if cfg.Observability.MetricsEnabled {
		pm, err := metrics.NewPrometheusMetrics(registry, "lobbybot")
		if err != nil {
			return err
		}
		m = pm
		routerRegistry = registry
	}
	tracer := otel.Tracer("lobby-bot")

	db, err := bundb.NewBunDB(ctx, cfg.Postgres)
	if err != nil {
		return err
	}
	defer db.Close()

	bus, err := eventbus.NewNATSEventBus(ctx, cfg.NATS.URL, cfg.NATS.QueueGroup, logger)
	if err != nil {
		return err
	}
	defer bus.Close()

	platform := identity.NewEventBusPlatform(bus)

	// One router per module so each registers its middleware once.
	ratingRouter, err := message.NewRouter(message.RouterConfig{}, watermill.NewSlogLogger(logger))
	if err != nil {
		return err
	}
	matchmakingRouter, err := message.NewRouter(message.RouterConfig{}, watermill.NewSlogLogger(logger))
	if err != nil {
		return err
	}

	ratingModule, err := rating.NewRatingModule(ctx, rating.Deps{
		Config:   cfg,
		Logger:   logger,
		Tracer:   tracer,
		Metrics:  m,
		Registry: routerRegistry,
		DB:       db,
		EventBus: bus,
		Router:   ratingRouter,
		Platform: platform,
	})
	if err != nil {
		return err
	}

	matchmakingModule, err := matchmaking.NewMatchmakingModule(ctx, matchmaking.Deps{
		Config:   cfg,
		Logger:   logger,
		Tracer:   tracer,
		Metrics:  m,
		Registry: routerRegistry,
		DB:       db,
		EventBus: bus,
		Router:   matchmakingRouter,
		Platform: platform,
		Ratings:  ratingModule.RatingService,
	})
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr: cfg.HTTP.Address,
		Handler: matchmakinghttp.NewRouter(matchmakinghttp.Deps{
			Lobbies:     matchmakingModule.MatchmakingService,
			Leaderboard: ratingModule.RatingService,
			Checks: map[string]matchmakinghttp.HealthCheck{
				"postgres": db.PingContext,
				"nats":     func(context.Context) error { return bus.Healthy() },
				"river":    matchmakingModule.Queue.HealthCheck,
			},
			Gatherer: registry,
			Logger:   logger,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go ratingModule.Run(ctx, &wg)
	go matchmakingModule.Run(ctx, &wg)

	errs := make(chan error, 3)
	for name, r := range map[string]*message.Router{"rating": ratingRouter, "matchmaking": matchmakingRouter} {
		go func() {
			if err := r.Run(ctx); err != nil {
				errs <- err
				return
			}
			logger.Info("Router stopped", attr.String("router", name))
		}()
	}
	go func() {
		logger.Info("HTTP listening", attr.String("address", cfg.HTTP.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case runErr = <-errs:
		logger.Error("Component failed, shutting down", attr.Error(runErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown", attr.Error(err))
	}
	if err := ratingModule.RatingRouter.Close(); err != nil {
		logger.Warn("Rating router close", attr.Error(err))
	}
	if err := matchmakingModule.MatchmakingRouter.Close(); err != nil {
		logger.Warn("Matchmaking router close", attr.Error(err))
	}
	if err := matchmakingModule.Close(); err != nil {
		logger.Warn("Matchmaking module close", attr.Error(err))
	}
	if err := ratingModule.Close(); err != nil {
		logger.Warn("Rating module close", attr.Error(err))
	}
	wg.Wait()
	return runErr
}
