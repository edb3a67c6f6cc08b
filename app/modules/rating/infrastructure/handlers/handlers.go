package ratinghandlers

import (
	"context"
	"errors"
	"log/slog"
	"time"

	ratingservice "github.com/Black-And-White-Club/lobby-bot/app/modules/rating/application"
	ratingdomain "github.com/Black-And-White-Club/lobby-bot/app/modules/rating/domain"
	ratingevents "github.com/Black-And-White-Club/lobby-bot/app/shared/events/rating"
	sharedevents "github.com/Black-And-White-Club/lobby-bot/app/shared/events/shared"
	sharedtypes "github.com/Black-And-White-Club/lobby-bot/app/shared/types"
	"github.com/Black-And-White-Club/lobby-bot/internal/attr"
	"github.com/Black-And-White-Club/lobby-bot/internal/handlerwrapper"
	"go.opentelemetry.io/otel/trace"
)

// Handlers defines the rating command handlers.
type Handlers interface {
	HandlePlayerRegisterRequested(ctx context.Context, payload *ratingevents.PlayerRegisterRequestedPayloadV1) ([]handlerwrapper.Result, error)
	HandleManualGameRequested(ctx context.Context, payload *ratingevents.ManualGameRequestedPayloadV1) ([]handlerwrapper.Result, error)
	HandleManualGameUndoRequested(ctx context.Context, payload *ratingevents.ManualGameUndoRequestedPayloadV1) ([]handlerwrapper.Result, error)
	HandleBanRequested(ctx context.Context, payload *ratingevents.BanRequestedPayloadV1) ([]handlerwrapper.Result, error)
	HandleUnbanRequested(ctx context.Context, payload *ratingevents.UnbanRequestedPayloadV1) ([]handlerwrapper.Result, error)
	HandleRankSetRequested(ctx context.Context, payload *ratingevents.RankSetRequestedPayloadV1) ([]handlerwrapper.Result, error)
	HandleRankRemoveRequested(ctx context.Context, payload *ratingevents.RankRemoveRequestedPayloadV1) ([]handlerwrapper.Result, error)
	HandleCompetitionUpdateRequested(ctx context.Context, payload *ratingevents.CompetitionUpdateRequestedPayloadV1) ([]handlerwrapper.Result, error)
	HandleLeaderboardRequested(ctx context.Context, payload *ratingevents.LeaderboardRequestedPayloadV1) ([]handlerwrapper.Result, error)
}

// RatingHandlers handles rating commands.
type RatingHandlers struct {
	service ratingservice.Service
	logger  *slog.Logger
	tracer  trace.Tracer
}

// NewRatingHandlers creates a new instance of RatingHandlers.
func NewRatingHandlers(service ratingservice.Service, logger *slog.Logger, tracer trace.Tracer) Handlers {
	return &RatingHandlers{
		service: service,
		logger:  logger,
		tracer:  tracer,
	}
}

var validationErrors = []error{
	ratingdomain.ErrNotRegistered,
	ratingdomain.ErrAlreadyRegistered,
	ratingdomain.ErrRankNotFound,
	ratingdomain.ErrInvalidRank,
	ratingdomain.ErrInvalidCompetition,
	ratingdomain.ErrNoPlayers,
	ratingdomain.ErrDuplicatePlayer,
	ratingdomain.ErrManualGameNotFound,
	ratingdomain.ErrManualGameUndone,
	ratingdomain.ErrInvalidBanLength,
	ratingdomain.ErrNotBanned,
}

// Classify maps a service error to a presentation kind and remediation text.
func Classify(err error) (sharedevents.ErrorKind, string) {
	switch {
	case errors.Is(err, ratingdomain.ErrRegistrationLimit):
		return sharedevents.KindPolicy, "Upgrade the server plan to register more players."
	case errors.Is(err, ratingdomain.ErrFeatureGated):
		return sharedevents.KindPolicy, "This feature requires a premium server plan."
	}
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			if errors.Is(err, ratingdomain.ErrNotRegistered) {
				return sharedevents.KindValidation, "Register first with the register command."
			}
			return sharedevents.KindValidation, ""
		}
	}
	return sharedevents.KindInternal, ""
}

// failure turns a rejected command into a CommandFailed event. Internal errors are
// logged with detail but published with a generic reason.
func (h *RatingHandlers) failure(ctx context.Context, command string, guildID sharedtypes.GuildID, userID sharedtypes.UserID, err error) []handlerwrapper.Result {
	kind, remediation := Classify(err)
	reason := err.Error()
	if kind == sharedevents.KindInternal {
		h.logger.ErrorContext(ctx, "Rating command failed",
			attr.ExtractCorrelationID(ctx),
			attr.String("command", command),
			attr.GuildID(guildID),
			attr.Error(err),
		)
		reason = "an internal error occurred"
	}
	return []handlerwrapper.Result{{
		Topic: sharedevents.CommandFailedV1,
		Payload: &sharedevents.CommandFailedPayloadV1{
			GuildID:     guildID,
			UserID:      userID,
			Command:     command,
			Kind:        kind,
			Reason:      reason,
			Remediation: remediation,
		},
	}}
}

// HandlePlayerRegisterRequested creates a player profile.
func (h *RatingHandlers) HandlePlayerRegisterRequested(ctx context.Context, payload *ratingevents.PlayerRegisterRequestedPayloadV1) ([]handlerwrapper.Result, error) {
	player, err := h.service.Register(ctx, payload.GuildID, payload.UserID, payload.DisplayName)
	if err != nil {
		return h.failure(ctx, "register", payload.GuildID, payload.UserID, err), nil
	}
	return []handlerwrapper.Result{{
		Topic: ratingevents.PlayerRegisteredV1,
		Payload: &ratingevents.PlayerRegisteredPayloadV1{
			GuildID:     player.GuildID,
			UserID:      player.UserID,
			DisplayName: player.DisplayName,
			Points:      player.Points,
		},
	}}, nil
}

// HandleManualGameRequested records a moderator-entered result.
func (h *RatingHandlers) HandleManualGameRequested(ctx context.Context, payload *ratingevents.ManualGameRequestedPayloadV1) ([]handlerwrapper.Result, error) {
	res, err := h.service.RecordManualGame(ctx, ratingservice.ManualGameRequest{
		GuildID:     payload.GuildID,
		ModeratorID: payload.ModeratorID,
		Winners:     payload.Winners,
		Losers:      payload.Losers,
	})
	if err != nil {
		return h.failure(ctx, "manual_game", payload.GuildID, payload.ModeratorID, err), nil
	}
	return []handlerwrapper.Result{manualGameResult(ratingevents.ManualGameRecordedV1, payload.GuildID, res)}, nil
}

// HandleManualGameUndoRequested reverts a manual game.
func (h *RatingHandlers) HandleManualGameUndoRequested(ctx context.Context, payload *ratingevents.ManualGameUndoRequestedPayloadV1) ([]handlerwrapper.Result, error) {
	res, err := h.service.UndoManualGame(ctx, payload.GuildID, payload.Number)
	if err != nil {
		return h.failure(ctx, "undo_manual_game", payload.GuildID, payload.ModeratorID, err), nil
	}
	return []handlerwrapper.Result{manualGameResult(ratingevents.ManualGameUndoneV1, payload.GuildID, res)}, nil
}

func manualGameResult(topic string, guildID sharedtypes.GuildID, res *ratingservice.ManualGameResult) handlerwrapper.Result {
	return handlerwrapper.Result{
		Topic: topic,
		Payload: &ratingevents.ManualGameResultPayloadV1{
			GuildID:  guildID,
			Number:   res.Number,
			Changes:  ratingevents.ScoreChangesV1(res.Changes),
			Warnings: res.Warnings,
		},
	}
}

// HandleBanRequested suspends a player.
func (h *RatingHandlers) HandleBanRequested(ctx context.Context, payload *ratingevents.BanRequestedPayloadV1) ([]handlerwrapper.Result, error) {
	ban, err := h.service.BanPlayer(ctx, ratingservice.BanRequest{
		GuildID:     payload.GuildID,
		UserID:      payload.UserID,
		ModeratorID: payload.ModeratorID,
		Length:      payload.Length,
		Reason:      payload.Reason,
	})
	if err != nil {
		return h.failure(ctx, "ban", payload.GuildID, payload.ModeratorID, err), nil
	}
	return []handlerwrapper.Result{{
		Topic: ratingevents.BanAppliedV1,
		Payload: &ratingevents.BanAppliedPayloadV1{
			GuildID:   ban.GuildID,
			UserID:    ban.UserID,
			ExpiresAt: ban.ExpiresAt().UTC().Format(time.RFC3339),
			Reason:    ban.Reason,
		},
	}}, nil
}

// HandleUnbanRequested lifts every active ban for the player.
func (h *RatingHandlers) HandleUnbanRequested(ctx context.Context, payload *ratingevents.UnbanRequestedPayloadV1) ([]handlerwrapper.Result, error) {
	if err := h.service.UnbanPlayer(ctx, payload.GuildID, payload.UserID); err != nil {
		return h.failure(ctx, "unban", payload.GuildID, payload.ModeratorID, err), nil
	}
	return []handlerwrapper.Result{{
		Topic:   ratingevents.BanLiftedV1,
		Payload: &ratingevents.BanLiftedPayloadV1{GuildID: payload.GuildID, UserID: payload.UserID},
	}}, nil
}

// HandleRankSetRequested creates or replaces a rank.
func (h *RatingHandlers) HandleRankSetRequested(ctx context.Context, payload *ratingevents.RankSetRequestedPayloadV1) ([]handlerwrapper.Result, error) {
	err := h.service.SetRank(ctx, ratingdomain.Rank{
		GuildID:      payload.GuildID,
		RoleID:       payload.RoleID,
		Threshold:    payload.Threshold,
		WinModifier:  payload.WinModifier,
		LossModifier: payload.LossModifier,
	})
	if err != nil {
		return h.failure(ctx, "rank_set", payload.GuildID, "", err), nil
	}
	return configUpdated(payload.GuildID, "rank"), nil
}

// HandleRankRemoveRequested deletes a rank.
func (h *RatingHandlers) HandleRankRemoveRequested(ctx context.Context, payload *ratingevents.RankRemoveRequestedPayloadV1) ([]handlerwrapper.Result, error) {
	if err := h.service.RemoveRank(ctx, payload.GuildID, payload.RoleID); err != nil {
		return h.failure(ctx, "rank_remove", payload.GuildID, "", err), nil
	}
	return configUpdated(payload.GuildID, "rank"), nil
}

// HandleCompetitionUpdateRequested replaces the guild's competition settings.
func (h *RatingHandlers) HandleCompetitionUpdateRequested(ctx context.Context, payload *ratingevents.CompetitionUpdateRequestedPayloadV1) ([]handlerwrapper.Result, error) {
	err := h.service.UpdateCompetition(ctx, ratingdomain.Competition{
		GuildID:             payload.GuildID,
		DefaultWinModifier:  payload.DefaultWinModifier,
		DefaultLossModifier: payload.DefaultLossModifier,
		AllowNegative:       payload.AllowNegative,
		AllowMultiQueue:     payload.AllowMultiQueue,
		RequeueDelay:        time.Duration(payload.RequeueDelaySeconds) * time.Second,
		VotingEnabled:       payload.VotingEnabled,
	})
	if err != nil {
		return h.failure(ctx, "competition_update", payload.GuildID, "", err), nil
	}
	return configUpdated(payload.GuildID, "competition"), nil
}

func configUpdated(guildID sharedtypes.GuildID, what string) []handlerwrapper.Result {
	return []handlerwrapper.Result{{
		Topic:   ratingevents.ConfigUpdatedV1,
		Payload: &ratingevents.ConfigUpdatedPayloadV1{GuildID: guildID, What: what},
	}}
}

// HandleLeaderboardRequested returns the ranked leaderboard.
func (h *RatingHandlers) HandleLeaderboardRequested(ctx context.Context, payload *ratingevents.LeaderboardRequestedPayloadV1) ([]handlerwrapper.Result, error) {
	entries, err := h.service.Leaderboard(ctx, ratingservice.LeaderboardQuery{
		GuildID: payload.GuildID,
		Limit:   payload.Limit,
		Only:    payload.Only,
	})
	if err != nil {
		return h.failure(ctx, "leaderboard", payload.GuildID, "", err), nil
	}
	return []handlerwrapper.Result{{
		Topic: ratingevents.LeaderboardV1,
		Payload: &ratingevents.LeaderboardPayloadV1{
			GuildID: payload.GuildID,
			Entries: LeaderboardEntriesV1(entries),
		},
	}}, nil
}

// LeaderboardEntriesV1 converts leaderboard rows to their wire form.
func LeaderboardEntriesV1(entries []ratingservice.LeaderboardEntry) []ratingevents.LeaderboardEntryV1 {
	out := make([]ratingevents.LeaderboardEntryV1, 0, len(entries))
	for _, e := range entries {
		out = append(out, ratingevents.LeaderboardEntryV1{
			Position:    e.Position,
			UserID:      e.Player.UserID,
			DisplayName: e.Player.DisplayName,
			Points:      e.Player.Points,
			Wins:        e.Player.Wins,
			Losses:      e.Player.Losses,
			Draws:       e.Player.Draws,
			RoleID:      e.RoleID,
		})
	}
	return out
}
