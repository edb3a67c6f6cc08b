package matchmakingintegrationtests

import (
	"context"
	"io"
	"log/slog"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/trace/noop"

	matchmakingservice "github.com/Black-And-White-Club/lobby-bot/app/modules/matchmaking/application"
	matchmakingdb "github.com/Black-And-White-Club/lobby-bot/app/modules/matchmaking/infrastructure/repositories"
	ratingservice "github.com/Black-And-White-Club/lobby-bot/app/modules/rating/application"
	ratingdb "github.com/Black-And-White-Club/lobby-bot/app/modules/rating/infrastructure/repositories"
	sharedtypes "github.com/Black-And-White-Club/lobby-bot/app/shared/types"
	"github.com/Black-And-White-Club/lobby-bot/integration_tests/testutils"
	"github.com/Black-And-White-Club/lobby-bot/internal/metrics"
)

type TestDeps struct {
	Ctx       context.Context
	Env       *testutils.TestEnvironment
	Repo      matchmakingdb.Repository
	Ratings   *ratingservice.RatingService
	RatingDB  ratingdb.Repository
	BunDB     *bun.DB
	Service   *matchmakingservice.MatchmakingService
	Announcer *testutils.RecordingAnnouncer
	Platform  *testutils.RecordingPlatform
	Generator *testutils.TestDataGenerator
}

func SetupTestMatchmakingService(t *testing.T, seed uint64) TestDeps {
	t.Helper()

	env := testutils.GetOrCreateTestEnv(t)
	if err := testutils.CleanupDatabase(env.Ctx, env.DB); err != nil {
		t.Fatalf("Failed to clean database: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tracer := noop.NewTracerProvider().Tracer("test_matchmaking_service")
	platform := &testutils.RecordingPlatform{}
	announcer := &testutils.RecordingAnnouncer{}

	ratingRepo := ratingdb.NewRepository(env.DB)
	ratings := ratingservice.NewRatingService(ratingRepo, nil, platform, logger, metrics.NewNoop(), tracer, env.DB)

	repo := matchmakingdb.NewRepository(env.DB)
	service := matchmakingservice.NewMatchmakingService(
		repo,
		ratings.Ledger(),
		platform,
		announcer,
		logger,
		metrics.NewNoop(),
		tracer,
		env.DB,
		matchmakingservice.Options{
			Locks: matchmakingservice.NewLobbyLocks(5 * time.Second),
			Rand:  rand.New(rand.NewPCG(seed, seed+1)),
		},
	)
	ratings.OnCompetitionChanged(service.Cooldowns().Invalidate)

	return TestDeps{
		Ctx:       env.Ctx,
		Env:       env,
		Repo:      repo,
		Ratings:   ratings,
		RatingDB:  ratingRepo,
		BunDB:     env.DB,
		Service:   service,
		Announcer: announcer,
		Platform:  platform,
		Generator: testutils.NewTestDataGenerator(seed),
	}
}

// registerPlayers registers count generated players in guildID.
func (d TestDeps) registerPlayers(t *testing.T, guildID sharedtypes.GuildID, count int) []sharedtypes.UserID {
	t.Helper()
	players := d.Generator.GeneratePlayers(count)
	for _, p := range players {
		if _, err := d.Ratings.Register(d.Ctx, guildID, p.UserID, p.DisplayName); err != nil {
			t.Fatalf("Failed to register %s: %v", p.UserID, err)
		}
	}
	return testutils.UserIDs(players)
}

// points reads the stored points of userID.
func (d TestDeps) points(t *testing.T, guildID sharedtypes.GuildID, userID sharedtypes.UserID) int {
	t.Helper()
	p, err := d.RatingDB.GetPlayer(d.Ctx, nil, guildID, userID)
	if err != nil {
		t.Fatalf("Failed to load player %s: %v", userID, err)
	}
	return p.Points
}
