package matchmakinghandlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	matchmakingservice "github.com/Black-And-White-Club/lobby-bot/app/modules/matchmaking/application"
	matchmakingdomain "github.com/Black-And-White-Club/lobby-bot/app/modules/matchmaking/domain"
	ratingdomain "github.com/Black-And-White-Club/lobby-bot/app/modules/rating/domain"
	matchmakingevents "github.com/Black-And-White-Club/lobby-bot/app/shared/events/matchmaking"
	sharedevents "github.com/Black-And-White-Club/lobby-bot/app/shared/events/shared"
	sharedtypes "github.com/Black-And-White-Club/lobby-bot/app/shared/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
)

var (
	fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ref      = matchmakingevents.LobbyRefV1{GuildID: "guild-1", ChannelID: "chan-1", UserID: "u1"}
)

func newHandlers(svc *FakeService) Handlers {
	return NewMatchmakingHandlers(svc, slog.New(slog.NewTextHandler(io.Discard, nil)), noop.NewTracerProvider().Tracer("test"))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name            string
		err             error
		wantKind        sharedevents.ErrorKind
		wantRemediation bool
	}{
		{"busy lobby", fmt.Errorf("%w: g/c: context deadline exceeded", matchmakingservice.ErrLobbyBusy), sharedevents.KindValidation, true},
		{"banned", fmt.Errorf("%w until 2026-03-02T00:00:00Z", matchmakingdomain.ErrBanned), sharedevents.KindPolicy, true},
		{"cooldown", fmt.Errorf("%w: 30s remaining", matchmakingdomain.ErrRequeueCooldown), sharedevents.KindPolicy, true},
		{"multi queue", matchmakingdomain.ErrMultiQueue, sharedevents.KindPolicy, true},
		{"min points", matchmakingdomain.ErrBelowMinimumPoints, sharedevents.KindPolicy, true},
		{"wrong turn", matchmakingdomain.ErrWrongTurn, sharedevents.KindValidation, false},
		{"not registered", ratingdomain.ErrNotRegistered, sharedevents.KindValidation, true},
		{"database", errors.New("connection refused"), sharedevents.KindInternal, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, remediation := Classify(tt.err)
			assert.Equal(t, tt.wantKind, kind)
			assert.Equal(t, tt.wantRemediation, remediation != "")
		})
	}
}

func TestHandleLobbyCreateRequested(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		svc := NewFakeService()
		h := newHandlers(svc)

		results, err := h.HandleLobbyCreateRequested(context.Background(), &matchmakingevents.LobbyCreateRequestedPayloadV1{LobbyRefV1: ref, PlayersPerTeam: 3})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, matchmakingevents.LobbyCreatedV1, results[0].Topic)
		payload := results[0].Payload.(*matchmakingevents.LobbyPayloadV1)
		assert.Equal(t, 3, payload.PlayersPerTeam)
		assert.Equal(t, 100, payload.ReductionPercent)
	})

	t.Run("exists", func(t *testing.T) {
		svc := NewFakeService()
		svc.CreateLobbyFunc = func(context.Context, sharedtypes.LobbyKey, int) (*matchmakingdomain.Lobby, error) {
			return nil, matchmakingdomain.ErrLobbyExists
		}
		h := newHandlers(svc)

		results, err := h.HandleLobbyCreateRequested(context.Background(), &matchmakingevents.LobbyCreateRequestedPayloadV1{LobbyRefV1: ref})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, sharedevents.CommandFailedV1, results[0].Topic)
		payload := results[0].Payload.(*sharedevents.CommandFailedPayloadV1)
		assert.Equal(t, sharedevents.KindValidation, payload.Kind)
		assert.Equal(t, ref.ChannelID, payload.ChannelID)
		assert.Equal(t, "lobby_create", payload.Command)
	})
}

func TestHandleLobbyUpdateRequested_ConvertsUnits(t *testing.T) {
	svc := NewFakeService()
	var got matchmakingservice.LobbyUpdate
	svc.UpdateLobbyFunc = func(_ context.Context, key sharedtypes.LobbyKey, update matchmakingservice.LobbyUpdate) (*matchmakingservice.LobbyUpdateResult, error) {
		got = update
		lobby := matchmakingdomain.NewLobby(key, 0, fixedNow)
		return &matchmakingservice.LobbyUpdateResult{Lobby: &lobby}, nil
	}
	h := newHandlers(svc)

	mode, percent, seconds := "captains_random", 50, int64(600)
	results, err := h.HandleLobbyUpdateRequested(context.Background(), &matchmakingevents.LobbyUpdateRequestedPayloadV1{
		LobbyRefV1:          ref,
		PickMode:            &mode,
		ReductionPercent:    &percent,
		QueueTimeoutSeconds: &seconds,
		ClearMinPoints:      true,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, matchmakingevents.LobbyUpdatedV1, results[0].Topic)

	require.NotNil(t, got.PickMode)
	assert.Equal(t, matchmakingdomain.PickModeCaptainsRandom, *got.PickMode)
	require.NotNil(t, got.ReductionFactor)
	assert.InDelta(t, 0.5, *got.ReductionFactor, 1e-9)
	require.NotNil(t, got.QueueTimeout)
	assert.Equal(t, 10*time.Minute, *got.QueueTimeout)
	assert.True(t, got.ClearMinPoints)
	assert.Nil(t, got.PickOrder)
}

func TestHandleMapAddRequested_RepliesWithLobby(t *testing.T) {
	svc := NewFakeService()
	h := newHandlers(svc)

	results, err := h.HandleMapAddRequested(context.Background(), &matchmakingevents.LobbyMapRequestedPayloadV1{LobbyRefV1: ref, Name: "Dust"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	payload := results[0].Payload.(*matchmakingevents.LobbyPayloadV1)
	assert.Equal(t, []string{"Dust"}, payload.Maps)
	assert.Equal(t, []string{"AddMap", "GetLobby"}, svc.Trace())
}

func TestHandleQueueJoinRequested(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		svc := NewFakeService()
		h := newHandlers(svc)

		results, err := h.HandleQueueJoinRequested(context.Background(), &ref)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, matchmakingevents.QueueUpdatedV1, results[0].Topic)
		payload := results[0].Payload.(*matchmakingevents.QueuePayloadV1)
		assert.Equal(t, "joined", payload.Action)
		assert.Equal(t, 1, payload.Size)
		assert.Equal(t, 10, payload.Capacity)
	})

	t.Run("cooldown is a policy failure", func(t *testing.T) {
		svc := NewFakeService()
		svc.JoinFunc = func(context.Context, sharedtypes.LobbyKey, sharedtypes.UserID) (*matchmakingservice.JoinResult, error) {
			return nil, fmt.Errorf("%w: 1m0s remaining", matchmakingdomain.ErrRequeueCooldown)
		}
		h := newHandlers(svc)

		results, err := h.HandleQueueJoinRequested(context.Background(), &ref)
		require.NoError(t, err)
		payload := results[0].Payload.(*sharedevents.CommandFailedPayloadV1)
		assert.Equal(t, sharedevents.KindPolicy, payload.Kind)
		assert.Contains(t, payload.Reason, "1m0s remaining")
	})
}

func TestHandleQueueLeaveRequested(t *testing.T) {
	svc := NewFakeService()
	svc.GetQueueFunc = func(_ context.Context, key sharedtypes.LobbyKey, reveal bool) (*matchmakingservice.QueueView, error) {
		assert.False(t, reveal)
		return &matchmakingservice.QueueView{Lobby: key, Size: 3, Capacity: 10}, nil
	}
	h := newHandlers(svc)

	results, err := h.HandleQueueLeaveRequested(context.Background(), &ref)
	require.NoError(t, err)
	payload := results[0].Payload.(*matchmakingevents.QueuePayloadV1)
	assert.Equal(t, "left", payload.Action)
	assert.Equal(t, 3, payload.Size)
	assert.Equal(t, []string{"Leave", "GetQueue"}, svc.Trace())
}

func TestHandleQueueViewRequested_Hidden(t *testing.T) {
	svc := NewFakeService()
	svc.GetQueueFunc = func(_ context.Context, key sharedtypes.LobbyKey, reveal bool) (*matchmakingservice.QueueView, error) {
		if reveal {
			return &matchmakingservice.QueueView{Lobby: key, Size: 1, Capacity: 10, Hidden: true,
				Players: []matchmakingdomain.QueuedPlayer{{UserID: "u9"}}}, nil
		}
		return &matchmakingservice.QueueView{Lobby: key, Size: 1, Capacity: 10, Hidden: true}, nil
	}
	h := newHandlers(svc)

	results, err := h.HandleQueueViewRequested(context.Background(), &matchmakingevents.QueueViewRequestedPayloadV1{LobbyRefV1: ref})
	require.NoError(t, err)
	payload := results[0].Payload.(*matchmakingevents.QueuePayloadV1)
	assert.True(t, payload.Hidden)
	assert.Empty(t, payload.Players)

	results, err = h.HandleQueueViewRequested(context.Background(), &matchmakingevents.QueueViewRequestedPayloadV1{LobbyRefV1: ref, Reveal: true})
	require.NoError(t, err)
	payload = results[0].Payload.(*matchmakingevents.QueuePayloadV1)
	assert.Equal(t, []sharedtypes.UserID{"u9"}, payload.Players)
}

func TestHandlePickRequested_PassesCaptain(t *testing.T) {
	svc := NewFakeService()
	svc.PickFunc = func(_ context.Context, key sharedtypes.LobbyKey, captain sharedtypes.UserID, players []sharedtypes.UserID) (*matchmakingservice.PickOutcome, error) {
		assert.Equal(t, ref.UserID, captain)
		assert.Equal(t, []sharedtypes.UserID{"p1"}, players)
		return nil, matchmakingdomain.ErrWrongTurn
	}
	h := newHandlers(svc)

	results, err := h.HandlePickRequested(context.Background(), &matchmakingevents.PickRequestedPayloadV1{LobbyRefV1: ref, Players: []sharedtypes.UserID{"p1"}})
	require.NoError(t, err)
	payload := results[0].Payload.(*sharedevents.CommandFailedPayloadV1)
	assert.Equal(t, matchmakingdomain.ErrWrongTurn.Error(), payload.Reason)
}

func TestHandleVoteRequested(t *testing.T) {
	svc := NewFakeService()
	svc.VoteFunc = func(_ context.Context, req matchmakingservice.VoteRequest) (*matchmakingservice.VoteResult, error) {
		assert.Equal(t, matchmakingdomain.VoteWin, req.Vote)
		assert.Equal(t, sharedtypes.GameNumber(1), req.Number)
		assert.Equal(t, ref.UserID, req.UserID)
		return &matchmakingservice.VoteResult{
			Consensus:  matchmakingdomain.ConsensusLocked,
			GameResult: matchmakingservice.GameResult{Game: fakeGame(req.Lobby)},
		}, nil
	}
	h := newHandlers(svc)

	results, err := h.HandleVoteRequested(context.Background(), &matchmakingevents.VoteRequestedPayloadV1{LobbyRefV1: ref, Number: 1, Vote: "win"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, matchmakingevents.VoteRecordedV1, results[0].Topic)
	payload := results[0].Payload.(*matchmakingevents.VoteRecordedPayloadV1)
	assert.Equal(t, "locked", payload.Consensus)
	assert.Equal(t, sharedtypes.GameNumber(1), payload.Number)
}

func TestHandleResultSubmitted(t *testing.T) {
	svc := NewFakeService()
	svc.SubmitResultFunc = func(_ context.Context, req matchmakingservice.ResultRequest) (*matchmakingservice.GameResult, error) {
		assert.Equal(t, sharedtypes.TeamTwo, req.Winner)
		assert.Equal(t, ref.UserID, req.ModeratorID)
		assert.Equal(t, "gg", req.Comment)
		game := fakeGame(req.Lobby)
		game.Phase = matchmakingdomain.Decided{Winner: sharedtypes.TeamTwo, Resolution: matchmakingdomain.Resolution{By: req.ModeratorID, Comment: req.Comment}}
		return &matchmakingservice.GameResult{
			Game: game,
			Changes: []ratingdomain.ScoreChange{
				{UserID: "b", Outcome: ratingdomain.OutcomeWin, Result: ratingdomain.ScoreResult{Delta: 25, OldPoints: 0, NewPoints: 25}},
			},
			Warnings: []string{"could not update role"},
		}, nil
	}
	h := newHandlers(svc)

	results, err := h.HandleResultSubmitted(context.Background(), &matchmakingevents.ResultSubmittedPayloadV1{LobbyRefV1: ref, Winner: sharedtypes.TeamTwo, Comment: "gg"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, matchmakingevents.GameInfoV1, results[0].Topic)
	payload := results[0].Payload.(*matchmakingevents.GamePayloadV1)
	assert.Equal(t, "decided", payload.State)
	assert.Equal(t, sharedtypes.TeamTwo, payload.Winner)
	assert.Equal(t, "gg", payload.Comment)
	require.Len(t, payload.Changes, 1)
	assert.Equal(t, 25, payload.Changes[0].Delta)
	assert.Equal(t, []string{"could not update role"}, payload.Warnings)
}

func TestHandleUndoRequested_Failure(t *testing.T) {
	svc := NewFakeService()
	svc.UndoGameFunc = func(context.Context, matchmakingservice.ResolveRequest) (*matchmakingservice.GameResult, error) {
		return nil, matchmakingdomain.ErrLegacyGame
	}
	h := newHandlers(svc)

	results, err := h.HandleUndoRequested(context.Background(), &matchmakingevents.GameCommandPayloadV1{LobbyRefV1: ref, Number: 4})
	require.NoError(t, err)
	payload := results[0].Payload.(*sharedevents.CommandFailedPayloadV1)
	assert.Equal(t, "undo", payload.Command)
	assert.Equal(t, sharedevents.KindValidation, payload.Kind)
}

func TestHandlePartyAddRequested(t *testing.T) {
	t.Run("lists parties", func(t *testing.T) {
		svc := NewFakeService()
		svc.ListPartiesFunc = func(context.Context, sharedtypes.GuildID) ([][]sharedtypes.UserID, error) {
			return [][]sharedtypes.UserID{{"h", "m"}}, nil
		}
		h := newHandlers(svc)

		results, err := h.HandlePartyAddRequested(context.Background(), &matchmakingevents.PartyRequestedPayloadV1{GuildID: ref.GuildID, HostID: "h", MemberID: "m"})
		require.NoError(t, err)
		payload := results[0].Payload.(*matchmakingevents.PartyUpdatedPayloadV1)
		assert.Equal(t, "added", payload.Action)
		assert.Equal(t, [][]sharedtypes.UserID{{"h", "m"}}, payload.Parties)
		assert.Equal(t, []string{"AddPartyMember", "ListParties"}, svc.Trace())
	})

	t.Run("internal failure hides detail", func(t *testing.T) {
		svc := NewFakeService()
		svc.AddPartyFunc = func(context.Context, sharedtypes.GuildID, sharedtypes.UserID, sharedtypes.UserID) error {
			return errors.New("pq: duplicate key value violates unique constraint")
		}
		h := newHandlers(svc)

		results, err := h.HandlePartyAddRequested(context.Background(), &matchmakingevents.PartyRequestedPayloadV1{GuildID: ref.GuildID, HostID: "h", MemberID: "m"})
		require.NoError(t, err)
		payload := results[0].Payload.(*sharedevents.CommandFailedPayloadV1)
		assert.Equal(t, sharedevents.KindInternal, payload.Kind)
		assert.NotContains(t, payload.Reason, "pq")
		assert.Equal(t, sharedtypes.UserID("m"), payload.UserID)
	})
}
