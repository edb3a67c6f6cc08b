package matchmakinghandlers

import (
	"context"
	"errors"
	"log/slog"
	"time"

	matchmakingservice "github.com/Black-And-White-Club/lobby-bot/app/modules/matchmaking/application"
	matchmakingdomain "github.com/Black-And-White-Club/lobby-bot/app/modules/matchmaking/domain"
	ratingdomain "github.com/Black-And-White-Club/lobby-bot/app/modules/rating/domain"
	ratinghandlers "github.com/Black-And-White-Club/lobby-bot/app/modules/rating/infrastructure/handlers"
	matchmakingevents "github.com/Black-And-White-Club/lobby-bot/app/shared/events/matchmaking"
	ratingevents "github.com/Black-And-White-Club/lobby-bot/app/shared/events/rating"
	sharedevents "github.com/Black-And-White-Club/lobby-bot/app/shared/events/shared"
	"github.com/Black-And-White-Club/lobby-bot/internal/attr"
	"github.com/Black-And-White-Club/lobby-bot/internal/handlerwrapper"
	"go.opentelemetry.io/otel/trace"
)

// Handlers defines the matchmaking command handlers.
type Handlers interface {
	HandleLobbyCreateRequested(ctx context.Context, payload *matchmakingevents.LobbyCreateRequestedPayloadV1) ([]handlerwrapper.Result, error)
	HandleLobbyUpdateRequested(ctx context.Context, payload *matchmakingevents.LobbyUpdateRequestedPayloadV1) ([]handlerwrapper.Result, error)
	HandleLobbyDeleteRequested(ctx context.Context, payload *matchmakingevents.LobbyRefV1) ([]handlerwrapper.Result, error)
	HandleMapAddRequested(ctx context.Context, payload *matchmakingevents.LobbyMapRequestedPayloadV1) ([]handlerwrapper.Result, error)
	HandleMapRemoveRequested(ctx context.Context, payload *matchmakingevents.LobbyMapRequestedPayloadV1) ([]handlerwrapper.Result, error)

	HandleQueueJoinRequested(ctx context.Context, payload *matchmakingevents.LobbyRefV1) ([]handlerwrapper.Result, error)
	HandleQueueLeaveRequested(ctx context.Context, payload *matchmakingevents.LobbyRefV1) ([]handlerwrapper.Result, error)
	HandleQueueViewRequested(ctx context.Context, payload *matchmakingevents.QueueViewRequestedPayloadV1) ([]handlerwrapper.Result, error)

	HandlePickRequested(ctx context.Context, payload *matchmakingevents.PickRequestedPayloadV1) ([]handlerwrapper.Result, error)
	HandleVoteRequested(ctx context.Context, payload *matchmakingevents.VoteRequestedPayloadV1) ([]handlerwrapper.Result, error)
	HandleResultSubmitted(ctx context.Context, payload *matchmakingevents.ResultSubmittedPayloadV1) ([]handlerwrapper.Result, error)
	HandleDrawRequested(ctx context.Context, payload *matchmakingevents.GameCommandPayloadV1) ([]handlerwrapper.Result, error)
	HandleCancelRequested(ctx context.Context, payload *matchmakingevents.GameCommandPayloadV1) ([]handlerwrapper.Result, error)
	HandleUndoRequested(ctx context.Context, payload *matchmakingevents.GameCommandPayloadV1) ([]handlerwrapper.Result, error)
	HandleGameLookupRequested(ctx context.Context, payload *matchmakingevents.GameCommandPayloadV1) ([]handlerwrapper.Result, error)

	HandlePartyAddRequested(ctx context.Context, payload *matchmakingevents.PartyRequestedPayloadV1) ([]handlerwrapper.Result, error)
	HandlePartyLeaveRequested(ctx context.Context, payload *matchmakingevents.PartyRequestedPayloadV1) ([]handlerwrapper.Result, error)
	HandlePartyDisbandRequested(ctx context.Context, payload *matchmakingevents.PartyRequestedPayloadV1) ([]handlerwrapper.Result, error)
}

// MatchmakingHandlers handles matchmaking commands. Lobby announcements are not
// returned here; the service hands them to its announcer after commit.
type MatchmakingHandlers struct {
	service matchmakingservice.Service
	logger  *slog.Logger
	tracer  trace.Tracer
}

// NewMatchmakingHandlers creates a new instance of MatchmakingHandlers.
func NewMatchmakingHandlers(service matchmakingservice.Service, logger *slog.Logger, tracer trace.Tracer) Handlers {
	return &MatchmakingHandlers{
		service: service,
		logger:  logger,
		tracer:  tracer,
	}
}

var validationErrors = []error{
	matchmakingdomain.ErrNotALobby,
	matchmakingdomain.ErrLobbyExists,
	matchmakingdomain.ErrInvalidLobbySettings,
	matchmakingdomain.ErrAlreadyQueued,
	matchmakingdomain.ErrNotQueued,
	matchmakingdomain.ErrQueueFull,
	matchmakingdomain.ErrGamePicking,
	matchmakingdomain.ErrGameNotFound,
	matchmakingdomain.ErrOpenGameExists,
	matchmakingdomain.ErrWrongTurn,
	matchmakingdomain.ErrWrongPickCount,
	matchmakingdomain.ErrPlayerNotQueued,
	matchmakingdomain.ErrPlayerAlreadyPicked,
	matchmakingdomain.ErrCannotPickCaptain,
	matchmakingdomain.ErrGameNotPicking,
	matchmakingdomain.ErrNotAPlayer,
	matchmakingdomain.ErrAlreadyVoted,
	matchmakingdomain.ErrGameNotVotable,
	matchmakingdomain.ErrVotingDisabled,
	matchmakingdomain.ErrVoteLocked,
	matchmakingdomain.ErrInvalidVote,
	matchmakingdomain.ErrGameNotUndecided,
	matchmakingdomain.ErrGameNotDecided,
	matchmakingdomain.ErrGameFinished,
	matchmakingdomain.ErrLegacyGame,
	matchmakingdomain.ErrInvalidTeam,
	matchmakingdomain.ErrQueueSize,
	matchmakingdomain.ErrMapExists,
	matchmakingdomain.ErrMapNotFound,
	matchmakingdomain.ErrSelfParty,
	matchmakingdomain.ErrAlreadyInParty,
	matchmakingdomain.ErrNotInParty,
}

// Classify maps a service error to a presentation kind and remediation text.
// Rating errors are classified the way the rating handlers do.
func Classify(err error) (sharedevents.ErrorKind, string) {
	switch {
	case errors.Is(err, matchmakingservice.ErrLobbyBusy):
		return sharedevents.KindValidation, "The lobby is handling another command, try again in a moment."
	case errors.Is(err, matchmakingdomain.ErrBanned):
		return sharedevents.KindPolicy, "Ask a moderator if you think the ban is a mistake."
	case errors.Is(err, matchmakingdomain.ErrBelowMinimumPoints):
		return sharedevents.KindPolicy, "Play in a lobby without a points requirement first."
	case errors.Is(err, matchmakingdomain.ErrMultiQueue):
		return sharedevents.KindPolicy, "Leave your other queue before joining this one."
	case errors.Is(err, matchmakingdomain.ErrRequeueCooldown):
		return sharedevents.KindPolicy, "Wait for the cooldown to end before queueing again."
	}
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return sharedevents.KindValidation, ""
		}
	}
	return ratinghandlers.Classify(err)
}

// failure turns a rejected command into a CommandFailed event. Internal errors are
// logged with detail but published with a generic reason.
func (h *MatchmakingHandlers) failure(ctx context.Context, command string, ref matchmakingevents.LobbyRefV1, err error) []handlerwrapper.Result {
	kind, remediation := Classify(err)
	reason := err.Error()
	if kind == sharedevents.KindInternal {
		h.logger.ErrorContext(ctx, "Matchmaking command failed",
			attr.ExtractCorrelationID(ctx),
			attr.String("command", command),
			attr.Lobby(ref.Key()),
			attr.Error(err),
		)
		reason = "an internal error occurred"
	}
	return []handlerwrapper.Result{{
		Topic: sharedevents.CommandFailedV1,
		Payload: &sharedevents.CommandFailedPayloadV1{
			GuildID:     ref.GuildID,
			ChannelID:   ref.ChannelID,
			UserID:      ref.UserID,
			Command:     command,
			Kind:        kind,
			Reason:      reason,
			Remediation: remediation,
		},
	}}
}

// HandleLobbyCreateRequested turns a channel into a lobby.
func (h *MatchmakingHandlers) HandleLobbyCreateRequested(ctx context.Context, payload *matchmakingevents.LobbyCreateRequestedPayloadV1) ([]handlerwrapper.Result, error) {
	lobby, err := h.service.CreateLobby(ctx, payload.Key(), payload.PlayersPerTeam)
	if err != nil {
		return h.failure(ctx, "lobby_create", payload.LobbyRefV1, err), nil
	}
	return lobbyResult(matchmakingevents.LobbyCreatedV1, lobby), nil
}

// HandleLobbyUpdateRequested patches lobby settings.
func (h *MatchmakingHandlers) HandleLobbyUpdateRequested(ctx context.Context, payload *matchmakingevents.LobbyUpdateRequestedPayloadV1) ([]handlerwrapper.Result, error) {
	update := matchmakingservice.LobbyUpdate{
		PlayersPerTeam:      payload.PlayersPerTeam,
		MinPoints:           payload.MinPoints,
		ClearMinPoints:      payload.ClearMinPoints,
		Multiplier:          payload.Multiplier,
		HighLimit:           payload.HighLimit,
		ClearHighLimit:      payload.ClearHighLimit,
		MultiplyLoss:        payload.MultiplyLoss,
		HideQueue:           payload.HideQueue,
		DMOnReady:           payload.DMOnReady,
		AnnouncementChannel: payload.AnnouncementChannel,
	}
	if payload.PickMode != nil {
		mode := matchmakingdomain.PickMode(*payload.PickMode)
		update.PickMode = &mode
	}
	if payload.PickOrder != nil {
		order := matchmakingdomain.PickOrder(*payload.PickOrder)
		update.PickOrder = &order
	}
	if payload.ReductionPercent != nil {
		factor := float64(*payload.ReductionPercent) / 100
		update.ReductionFactor = &factor
	}
	if payload.QueueTimeoutSeconds != nil {
		timeout := time.Duration(*payload.QueueTimeoutSeconds) * time.Second
		update.QueueTimeout = &timeout
	}

	res, err := h.service.UpdateLobby(ctx, payload.Key(), update)
	if err != nil {
		return h.failure(ctx, "lobby_update", payload.LobbyRefV1, err), nil
	}
	return lobbyResult(matchmakingevents.LobbyUpdatedV1, res.Lobby), nil
}

// HandleLobbyDeleteRequested removes the lobby with its queue and game history.
func (h *MatchmakingHandlers) HandleLobbyDeleteRequested(ctx context.Context, payload *matchmakingevents.LobbyRefV1) ([]handlerwrapper.Result, error) {
	if err := h.service.DeleteLobby(ctx, payload.Key()); err != nil {
		return h.failure(ctx, "lobby_delete", *payload, err), nil
	}
	return []handlerwrapper.Result{{
		Topic: matchmakingevents.LobbyDeletedV1,
		Payload: &matchmakingevents.LobbyDeletedPayloadV1{
			GuildID:   payload.GuildID,
			ChannelID: payload.ChannelID,
		},
	}}, nil
}

// HandleMapAddRequested adds a map to the lobby's pool.
func (h *MatchmakingHandlers) HandleMapAddRequested(ctx context.Context, payload *matchmakingevents.LobbyMapRequestedPayloadV1) ([]handlerwrapper.Result, error) {
	if err := h.service.AddMap(ctx, payload.Key(), payload.Name); err != nil {
		return h.failure(ctx, "map_add", payload.LobbyRefV1, err), nil
	}
	return h.lobbyUpdated(ctx, "map_add", payload.LobbyRefV1)
}

// HandleMapRemoveRequested removes a map from the lobby's pool.
func (h *MatchmakingHandlers) HandleMapRemoveRequested(ctx context.Context, payload *matchmakingevents.LobbyMapRequestedPayloadV1) ([]handlerwrapper.Result, error) {
	if err := h.service.RemoveMap(ctx, payload.Key(), payload.Name); err != nil {
		return h.failure(ctx, "map_remove", payload.LobbyRefV1, err), nil
	}
	return h.lobbyUpdated(ctx, "map_remove", payload.LobbyRefV1)
}

func (h *MatchmakingHandlers) lobbyUpdated(ctx context.Context, command string, ref matchmakingevents.LobbyRefV1) ([]handlerwrapper.Result, error) {
	lobby, err := h.service.GetLobby(ctx, ref.Key())
	if err != nil {
		return h.failure(ctx, command, ref, err), nil
	}
	return lobbyResult(matchmakingevents.LobbyUpdatedV1, lobby), nil
}

func lobbyResult(topic string, lobby *matchmakingdomain.Lobby) []handlerwrapper.Result {
	payload := matchmakingevents.LobbyV1(lobby)
	return []handlerwrapper.Result{{Topic: topic, Payload: &payload}}
}

// HandleQueueJoinRequested adds the user to the lobby queue.
func (h *MatchmakingHandlers) HandleQueueJoinRequested(ctx context.Context, payload *matchmakingevents.LobbyRefV1) ([]handlerwrapper.Result, error) {
	res, err := h.service.Join(ctx, payload.Key(), payload.UserID)
	if err != nil {
		return h.failure(ctx, "queue_join", *payload, err), nil
	}
	return []handlerwrapper.Result{{
		Topic: matchmakingevents.QueueUpdatedV1,
		Payload: &matchmakingevents.QueuePayloadV1{
			GuildID:   payload.GuildID,
			ChannelID: payload.ChannelID,
			UserID:    payload.UserID,
			Action:    "joined",
			Size:      len(res.Queue),
			Capacity:  res.Capacity,
			Warnings:  res.Warnings,
		},
	}}, nil
}

// HandleQueueLeaveRequested removes the user from the lobby queue.
func (h *MatchmakingHandlers) HandleQueueLeaveRequested(ctx context.Context, payload *matchmakingevents.LobbyRefV1) ([]handlerwrapper.Result, error) {
	if err := h.service.Leave(ctx, payload.Key(), payload.UserID); err != nil {
		return h.failure(ctx, "queue_leave", *payload, err), nil
	}
	view, err := h.service.GetQueue(ctx, payload.Key(), false)
	if err != nil {
		return h.failure(ctx, "queue_leave", *payload, err), nil
	}
	out := queuePayload(view)
	out.UserID = payload.UserID
	out.Action = "left"
	out.Players = nil
	return []handlerwrapper.Result{{Topic: matchmakingevents.QueueUpdatedV1, Payload: out}}, nil
}

// HandleQueueViewRequested returns the queue, hiding players when the lobby hides its queue.
func (h *MatchmakingHandlers) HandleQueueViewRequested(ctx context.Context, payload *matchmakingevents.QueueViewRequestedPayloadV1) ([]handlerwrapper.Result, error) {
	view, err := h.service.GetQueue(ctx, payload.Key(), payload.Reveal)
	if err != nil {
		return h.failure(ctx, "queue_view", payload.LobbyRefV1, err), nil
	}
	out := queuePayload(view)
	out.UserID = payload.UserID
	return []handlerwrapper.Result{{Topic: matchmakingevents.QueueViewV1, Payload: out}}, nil
}

func queuePayload(view *matchmakingservice.QueueView) *matchmakingevents.QueuePayloadV1 {
	out := &matchmakingevents.QueuePayloadV1{
		GuildID:   view.Lobby.GuildID,
		ChannelID: view.Lobby.ChannelID,
		Size:      view.Size,
		Capacity:  view.Capacity,
		Hidden:    view.Hidden,
	}
	for _, p := range view.Players {
		out.Players = append(out.Players, p.UserID)
	}
	return out
}

// HandlePickRequested applies a captain's pick.
func (h *MatchmakingHandlers) HandlePickRequested(ctx context.Context, payload *matchmakingevents.PickRequestedPayloadV1) ([]handlerwrapper.Result, error) {
	out, err := h.service.Pick(ctx, payload.Key(), payload.UserID, payload.Players)
	if err != nil {
		return h.failure(ctx, "pick", payload.LobbyRefV1, err), nil
	}
	return gameInfo(out.Game, nil, nil), nil
}

var consensusNames = map[matchmakingdomain.Consensus]string{
	matchmakingdomain.ConsensusPending: "pending",
	matchmakingdomain.ConsensusWin:     "win",
	matchmakingdomain.ConsensusDraw:    "draw",
	matchmakingdomain.ConsensusCancel:  "cancel",
	matchmakingdomain.ConsensusLocked:  "locked",
}

// HandleVoteRequested records a player's result vote.
func (h *MatchmakingHandlers) HandleVoteRequested(ctx context.Context, payload *matchmakingevents.VoteRequestedPayloadV1) ([]handlerwrapper.Result, error) {
	res, err := h.service.Vote(ctx, matchmakingservice.VoteRequest{
		Lobby:  payload.Key(),
		Number: payload.Number,
		UserID: payload.UserID,
		Vote:   matchmakingdomain.Vote(payload.Vote),
	})
	if err != nil {
		return h.failure(ctx, "vote", payload.LobbyRefV1, err), nil
	}
	return []handlerwrapper.Result{{
		Topic: matchmakingevents.VoteRecordedV1,
		Payload: &matchmakingevents.VoteRecordedPayloadV1{
			GuildID:   payload.GuildID,
			ChannelID: payload.ChannelID,
			UserID:    payload.UserID,
			Number:    res.Game.Number,
			Vote:      payload.Vote,
			Consensus: consensusNames[res.Consensus],
		},
	}}, nil
}

// HandleResultSubmitted records a moderator's result.
func (h *MatchmakingHandlers) HandleResultSubmitted(ctx context.Context, payload *matchmakingevents.ResultSubmittedPayloadV1) ([]handlerwrapper.Result, error) {
	res, err := h.service.SubmitResult(ctx, matchmakingservice.ResultRequest{
		Lobby:       payload.Key(),
		Number:      payload.Number,
		Winner:      payload.Winner,
		ModeratorID: payload.UserID,
		Comment:     payload.Comment,
	})
	if err != nil {
		return h.failure(ctx, "result", payload.LobbyRefV1, err), nil
	}
	return gameInfo(res.Game, res.Changes, res.Warnings), nil
}

// HandleDrawRequested records a draw.
func (h *MatchmakingHandlers) HandleDrawRequested(ctx context.Context, payload *matchmakingevents.GameCommandPayloadV1) ([]handlerwrapper.Result, error) {
	return h.resolve(ctx, "draw", payload, h.service.Draw)
}

// HandleCancelRequested cancels a game without score effect.
func (h *MatchmakingHandlers) HandleCancelRequested(ctx context.Context, payload *matchmakingevents.GameCommandPayloadV1) ([]handlerwrapper.Result, error) {
	return h.resolve(ctx, "cancel", payload, h.service.Cancel)
}

// HandleUndoRequested reverts a decided game's score changes.
func (h *MatchmakingHandlers) HandleUndoRequested(ctx context.Context, payload *matchmakingevents.GameCommandPayloadV1) ([]handlerwrapper.Result, error) {
	return h.resolve(ctx, "undo", payload, h.service.UndoGame)
}

func (h *MatchmakingHandlers) resolve(
	ctx context.Context,
	command string,
	payload *matchmakingevents.GameCommandPayloadV1,
	op func(context.Context, matchmakingservice.ResolveRequest) (*matchmakingservice.GameResult, error),
) ([]handlerwrapper.Result, error) {
	res, err := op(ctx, matchmakingservice.ResolveRequest{
		Lobby:       payload.Key(),
		Number:      payload.Number,
		ModeratorID: payload.UserID,
		Comment:     payload.Comment,
	})
	if err != nil {
		return h.failure(ctx, command, payload.LobbyRefV1, err), nil
	}
	return gameInfo(res.Game, res.Changes, res.Warnings), nil
}

// HandleGameLookupRequested returns a game; number 0 returns the latest.
func (h *MatchmakingHandlers) HandleGameLookupRequested(ctx context.Context, payload *matchmakingevents.GameCommandPayloadV1) ([]handlerwrapper.Result, error) {
	game, err := h.service.GetGame(ctx, payload.Key(), payload.Number)
	if err != nil {
		return h.failure(ctx, "game_lookup", payload.LobbyRefV1, err), nil
	}
	return gameInfo(game, nil, nil), nil
}

func gameInfo(game *matchmakingdomain.Game, changes []ratingdomain.ScoreChange, warnings []string) []handlerwrapper.Result {
	payload := matchmakingevents.GameV1(game, "")
	payload.Changes = ratingevents.ScoreChangesV1(changes)
	payload.Warnings = warnings
	return []handlerwrapper.Result{{Topic: matchmakingevents.GameInfoV1, Payload: &payload}}
}

// HandlePartyAddRequested adds a member to the host's party.
func (h *MatchmakingHandlers) HandlePartyAddRequested(ctx context.Context, payload *matchmakingevents.PartyRequestedPayloadV1) ([]handlerwrapper.Result, error) {
	if err := h.service.AddPartyMember(ctx, payload.GuildID, payload.HostID, payload.MemberID); err != nil {
		return h.failure(ctx, "party_add", partyRef(payload), err), nil
	}
	return h.partyUpdated(ctx, "party_add", "added", payload)
}

// HandlePartyLeaveRequested removes the requesting member from their party.
func (h *MatchmakingHandlers) HandlePartyLeaveRequested(ctx context.Context, payload *matchmakingevents.PartyRequestedPayloadV1) ([]handlerwrapper.Result, error) {
	if err := h.service.LeaveParty(ctx, payload.GuildID, payload.MemberID); err != nil {
		return h.failure(ctx, "party_leave", partyRef(payload), err), nil
	}
	return h.partyUpdated(ctx, "party_leave", "left", payload)
}

// HandlePartyDisbandRequested removes every member of the host's party.
func (h *MatchmakingHandlers) HandlePartyDisbandRequested(ctx context.Context, payload *matchmakingevents.PartyRequestedPayloadV1) ([]handlerwrapper.Result, error) {
	if _, err := h.service.DisbandParty(ctx, payload.GuildID, payload.HostID); err != nil {
		return h.failure(ctx, "party_disband", partyRef(payload), err), nil
	}
	return h.partyUpdated(ctx, "party_disband", "disbanded", payload)
}

func (h *MatchmakingHandlers) partyUpdated(ctx context.Context, command, action string, payload *matchmakingevents.PartyRequestedPayloadV1) ([]handlerwrapper.Result, error) {
	parties, err := h.service.ListParties(ctx, payload.GuildID)
	if err != nil {
		return h.failure(ctx, command, partyRef(payload), err), nil
	}
	return []handlerwrapper.Result{{
		Topic: matchmakingevents.PartyUpdatedV1,
		Payload: &matchmakingevents.PartyUpdatedPayloadV1{
			GuildID: payload.GuildID,
			Action:  action,
			Parties: parties,
		},
	}}, nil
}

func partyRef(payload *matchmakingevents.PartyRequestedPayloadV1) matchmakingevents.LobbyRefV1 {
	user := payload.MemberID
	if user == "" {
		user = payload.HostID
	}
	return matchmakingevents.LobbyRefV1{GuildID: payload.GuildID, UserID: user}
}
