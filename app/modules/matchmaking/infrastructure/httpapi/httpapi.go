// Package matchmakinghttp serves the ops endpoints and read-only lobby views.
package matchmakinghttp

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	matchmakingservice "github.com/Black-And-White-Club/lobby-bot/app/modules/matchmaking/application"
	matchmakingdomain "github.com/Black-And-White-Club/lobby-bot/app/modules/matchmaking/domain"
	ratingservice "github.com/Black-And-White-Club/lobby-bot/app/modules/rating/application"
	ratingdomain "github.com/Black-And-White-Club/lobby-bot/app/modules/rating/domain"
	ratinghandlers "github.com/Black-And-White-Club/lobby-bot/app/modules/rating/infrastructure/handlers"
	matchmakingevents "github.com/Black-And-White-Club/lobby-bot/app/shared/events/matchmaking"
	ratingevents "github.com/Black-And-White-Club/lobby-bot/app/shared/events/rating"
	sharedtypes "github.com/Black-And-White-Club/lobby-bot/app/shared/types"
	"github.com/Black-And-White-Club/lobby-bot/internal/attr"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// LobbyReader is the read side of the matchmaking service.
type LobbyReader interface {
	GetQueue(ctx context.Context, key sharedtypes.LobbyKey, reveal bool) (*matchmakingservice.QueueView, error)
	ListGames(ctx context.Context, key sharedtypes.LobbyKey, limit int) ([]*matchmakingdomain.Game, error)
}

// LeaderboardReader is the read side of the rating service.
type LeaderboardReader interface {
	Leaderboard(ctx context.Context, query ratingservice.LeaderboardQuery) ([]ratingservice.LeaderboardEntry, error)
	ExportLeaderboard(ctx context.Context, query ratingservice.LeaderboardQuery) ([]byte, error)
}

// HealthCheck reports whether one dependency is usable.
type HealthCheck func(ctx context.Context) error

// Deps wires the handlers. A nil Gatherer disables /metrics.
type Deps struct {
	Lobbies     LobbyReader
	Leaderboard LeaderboardReader
	Checks      map[string]HealthCheck
	Gatherer    prometheus.Gatherer
	Logger      *slog.Logger
}

type api struct {
	Deps
}

// NewRouter builds the HTTP handler.
func NewRouter(deps Deps) http.Handler {
	a := &api{Deps: deps}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Get("/healthz", a.health)
	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}
	r.Route("/guilds/{guildID}", func(r chi.Router) {
		r.Get("/leaderboard", a.leaderboard)
		r.Get("/leaderboard.xlsx", a.exportLeaderboard)
		r.Get("/lobbies/{channelID}/queue", a.queue)
		r.Get("/lobbies/{channelID}/games", a.games)
	})
	return r
}

func (a *api) health(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	body := make(map[string]string, len(a.Checks))
	for name, check := range a.Checks {
		if err := check(r.Context()); err != nil {
			status = http.StatusServiceUnavailable
			body[name] = err.Error()
			continue
		}
		body[name] = "ok"
	}
	a.writeJSON(w, r, status, body)
}

func lobbyKey(r *http.Request) sharedtypes.LobbyKey {
	return sharedtypes.LobbyKey{
		GuildID:   sharedtypes.GuildID(chi.URLParam(r, "guildID")),
		ChannelID: sharedtypes.ChannelID(chi.URLParam(r, "channelID")),
	}
}

func limit(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func (a *api) queue(w http.ResponseWriter, r *http.Request) {
	view, err := a.Lobbies.GetQueue(r.Context(), lobbyKey(r), false)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	out := matchmakingevents.QueuePayloadV1{
		GuildID:   view.Lobby.GuildID,
		ChannelID: view.Lobby.ChannelID,
		Size:      view.Size,
		Capacity:  view.Capacity,
		Hidden:    view.Hidden,
	}
	for _, p := range view.Players {
		out.Players = append(out.Players, p.UserID)
	}
	a.writeJSON(w, r, http.StatusOK, out)
}

func (a *api) games(w http.ResponseWriter, r *http.Request) {
	games, err := a.Lobbies.ListGames(r.Context(), lobbyKey(r), limit(r))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	out := make([]matchmakingevents.GamePayloadV1, 0, len(games))
	for _, g := range games {
		out = append(out, matchmakingevents.GameV1(g, ""))
	}
	a.writeJSON(w, r, http.StatusOK, out)
}

func (a *api) leaderboardQuery(r *http.Request) ratingservice.LeaderboardQuery {
	return ratingservice.LeaderboardQuery{
		GuildID: sharedtypes.GuildID(chi.URLParam(r, "guildID")),
		Limit:   limit(r),
	}
}

func (a *api) leaderboard(w http.ResponseWriter, r *http.Request) {
	q := a.leaderboardQuery(r)
	entries, err := a.Leaderboard.Leaderboard(r.Context(), q)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, r, http.StatusOK, ratingevents.LeaderboardPayloadV1{
		GuildID: q.GuildID,
		Entries: ratinghandlers.LeaderboardEntriesV1(entries),
	})
}

func (a *api) exportLeaderboard(w http.ResponseWriter, r *http.Request) {
	data, err := a.Leaderboard.ExportLeaderboard(r.Context(), a.leaderboardQuery(r))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="leaderboard.xlsx"`)
	if _, err := w.Write(data); err != nil {
		a.Logger.WarnContext(r.Context(), "Failed to write export", attr.Error(err))
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, matchmakingdomain.ErrNotALobby):
		return http.StatusNotFound
	case errors.Is(err, ratingdomain.ErrFeatureGated):
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

func (a *api) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		a.Logger.ErrorContext(r.Context(), "HTTP request failed",
			attr.String("path", r.URL.Path),
			attr.String("request_id", middleware.GetReqID(r.Context())),
			attr.Error(err),
		)
		msg = "internal error"
	}
	a.writeJSON(w, r, status, map[string]string{"error": msg})
}

func (a *api) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.Logger.WarnContext(r.Context(), "Failed to encode response", attr.Error(err))
	}
}
