package matchmakinghttp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	matchmakingservice "github.com/Black-And-White-Club/lobby-bot/app/modules/matchmaking/application"
	matchmakingdomain "github.com/Black-And-White-Club/lobby-bot/app/modules/matchmaking/domain"
	ratingservice "github.com/Black-And-White-Club/lobby-bot/app/modules/rating/application"
	ratingdomain "github.com/Black-And-White-Club/lobby-bot/app/modules/rating/domain"
	matchmakingevents "github.com/Black-And-White-Club/lobby-bot/app/shared/events/matchmaking"
	ratingevents "github.com/Black-And-White-Club/lobby-bot/app/shared/events/rating"
	sharedtypes "github.com/Black-And-White-Club/lobby-bot/app/shared/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLobbies struct {
	getQueueFunc  func(ctx context.Context, key sharedtypes.LobbyKey, reveal bool) (*matchmakingservice.QueueView, error)
	listGamesFunc func(ctx context.Context, key sharedtypes.LobbyKey, limit int) ([]*matchmakingdomain.Game, error)
}

func (f *fakeLobbies) GetQueue(ctx context.Context, key sharedtypes.LobbyKey, reveal bool) (*matchmakingservice.QueueView, error) {
	return f.getQueueFunc(ctx, key, reveal)
}

func (f *fakeLobbies) ListGames(ctx context.Context, key sharedtypes.LobbyKey, limit int) ([]*matchmakingdomain.Game, error) {
	return f.listGamesFunc(ctx, key, limit)
}

type fakeLeaderboard struct {
	entries []ratingservice.LeaderboardEntry
	export  []byte
	err     error
}

func (f *fakeLeaderboard) Leaderboard(context.Context, ratingservice.LeaderboardQuery) ([]ratingservice.LeaderboardEntry, error) {
	return f.entries, f.err
}

func (f *fakeLeaderboard) ExportLeaderboard(context.Context, ratingservice.LeaderboardQuery) ([]byte, error) {
	return f.export, f.err
}

func newServer(lobbies LobbyReader, board LeaderboardReader, checks map[string]HealthCheck) http.Handler {
	return NewRouter(Deps{
		Lobbies:     lobbies,
		Leaderboard: board,
		Checks:      checks,
		Gatherer:    prometheus.NewRegistry(),
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealth(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("nats connection is CLOSED") }

	rec := get(t, newServer(nil, nil, map[string]HealthCheck{"db": ok, "nats": ok}), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = get(t, newServer(nil, nil, map[string]HealthCheck{"db": ok, "nats": down}), "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["db"])
	assert.Contains(t, body["nats"], "CLOSED")
}

func TestMetricsEndpoint(t *testing.T) {
	rec := get(t, newServer(nil, nil, nil), "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestQueue(t *testing.T) {
	lobbies := &fakeLobbies{
		getQueueFunc: func(_ context.Context, key sharedtypes.LobbyKey, reveal bool) (*matchmakingservice.QueueView, error) {
			assert.False(t, reveal)
			if key.ChannelID != "chan-1" {
				return nil, matchmakingdomain.ErrNotALobby
			}
			return &matchmakingservice.QueueView{
				Lobby: key, Size: 1, Capacity: 4,
				Players: []matchmakingdomain.QueuedPlayer{{UserID: "u1"}},
			}, nil
		},
	}
	h := newServer(lobbies, nil, nil)

	rec := get(t, h, "/guilds/g1/lobbies/chan-1/queue")
	require.Equal(t, http.StatusOK, rec.Code)
	var out matchmakingevents.QueuePayloadV1
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, sharedtypes.GuildID("g1"), out.GuildID)
	assert.Equal(t, []sharedtypes.UserID{"u1"}, out.Players)

	rec = get(t, h, "/guilds/g1/lobbies/other/queue")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGames_PassesLimit(t *testing.T) {
	lobbies := &fakeLobbies{
		listGamesFunc: func(_ context.Context, key sharedtypes.LobbyKey, limit int) ([]*matchmakingdomain.Game, error) {
			assert.Equal(t, 5, limit)
			return []*matchmakingdomain.Game{{
				Lobby: key, Number: 2, Phase: matchmakingdomain.Drawn{}, PickMode: matchmakingdomain.PickModeRandom,
			}}, nil
		},
	}
	rec := get(t, newServer(lobbies, nil, nil), "/guilds/g1/lobbies/chan-1/games?limit=5")
	require.Equal(t, http.StatusOK, rec.Code)
	var out []matchmakingevents.GamePayloadV1
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out, 1)
	assert.Equal(t, "draw", out[0].State)
}

func TestLeaderboard(t *testing.T) {
	board := &fakeLeaderboard{entries: []ratingservice.LeaderboardEntry{
		{Position: 1, Player: ratingdomain.Player{UserID: "u1", DisplayName: "Ann", Points: 120}},
	}}
	rec := get(t, newServer(nil, board, nil), "/guilds/g1/leaderboard")
	require.Equal(t, http.StatusOK, rec.Code)
	var out ratingevents.LeaderboardPayloadV1
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out.Entries, 1)
	assert.Equal(t, 120, out.Entries[0].Points)
}

func TestExportLeaderboard(t *testing.T) {
	rec := get(t, newServer(nil, &fakeLeaderboard{export: []byte("PK")}, nil), "/guilds/g1/leaderboard.xlsx")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
	assert.Equal(t, "PK", rec.Body.String())

	rec = get(t, newServer(nil, &fakeLeaderboard{err: ratingdomain.ErrFeatureGated}, nil), "/guilds/g1/leaderboard.xlsx")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestInternalErrorsHideDetail(t *testing.T) {
	rec := get(t, newServer(nil, &fakeLeaderboard{err: errors.New("pq: too many connections")}, nil), "/guilds/g1/leaderboard")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "pq")
}
