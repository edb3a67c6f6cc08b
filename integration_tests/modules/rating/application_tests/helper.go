package ratingintegrationtests

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/trace/noop"

	ratingservice "github.com/Black-And-White-Club/lobby-bot/app/modules/rating/application"
	ratingdb "github.com/Black-And-White-Club/lobby-bot/app/modules/rating/infrastructure/repositories"
	"github.com/Black-And-White-Club/lobby-bot/integration_tests/testutils"
	"github.com/Black-And-White-Club/lobby-bot/internal/metrics"
)

type TestDeps struct {
	Ctx      context.Context
	Repo     ratingdb.Repository
	BunDB    *bun.DB
	Service  *ratingservice.RatingService
	Platform *testutils.RecordingPlatform
}

func SetupTestRatingService(t *testing.T) TestDeps {
	t.Helper()

	env := testutils.GetOrCreateTestEnv(t)
	if err := testutils.CleanupDatabase(env.Ctx, env.DB); err != nil {
		t.Fatalf("Failed to clean database: %v", err)
	}

	repo := ratingdb.NewRepository(env.DB)
	platform := &testutils.RecordingPlatform{}
	service := ratingservice.NewRatingService(
		repo,
		nil,
		platform,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		metrics.NewNoop(),
		noop.NewTracerProvider().Tracer("test_rating_service"),
		env.DB,
	)

	return TestDeps{
		Ctx:      env.Ctx,
		Repo:     repo,
		BunDB:    env.DB,
		Service:  service,
		Platform: platform,
	}
}
