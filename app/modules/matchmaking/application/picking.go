package matchmakingservice

import (
	"context"

	matchmakingdomain "github.com/Black-And-White-Club/lobby-bot/app/modules/matchmaking/domain"
	sharedtypes "github.com/Black-And-White-Club/lobby-bot/app/shared/types"
	"github.com/Black-And-White-Club/lobby-bot/internal/results"
	"github.com/uptrace/bun"
)

type pickResult = results.OperationResult[*PickOutcome, error]

// Pick records a captain's pick on the lobby's picking game. The last pick clears the
// queue and announces the teams.
func (s *MatchmakingService) Pick(ctx context.Context, key sharedtypes.LobbyKey, captain sharedtypes.UserID, players []sharedtypes.UserID) (*PickOutcome, error) {
	var anns []Announcement
	result, err := withTelemetry(s, ctx, "Pick", key, func(ctx context.Context) (pickResult, error) {
		return runLocked(s, ctx, key, func(ctx context.Context, db bun.IDB) (pickResult, error) {
			anns = nil
			return s.pickLogic(ctx, db, key, captain, players, &anns)
		})
	})
	res, err := unwrap(result, err)
	if err != nil {
		return nil, err
	}
	s.announce(ctx, anns)
	return res, nil
}

func (s *MatchmakingService) pickLogic(ctx context.Context, db bun.IDB, key sharedtypes.LobbyKey, captain sharedtypes.UserID, players []sharedtypes.UserID, anns *[]Announcement) (pickResult, error) {
	fail := results.FailureResult[*PickOutcome, error]

	lobby, err := s.loadLobby(ctx, db, key)
	if err != nil {
		return failOrError[*PickOutcome](err)
	}
	game, err := s.latestGame(ctx, db, key)
	if err != nil {
		return pickResult{}, err
	}
	if game == nil {
		return fail(matchmakingdomain.ErrGameNotPicking), nil
	}

	rows, err := s.repo.ListQueue(ctx, db, key)
	if err != nil {
		return pickResult{}, err
	}
	res, err := game.Pick(captain, players, queueUserIDs(toDomainQueue(rows)))
	if err != nil {
		return failOrError[*PickOutcome](err)
	}
	if err := s.repo.SaveGame(ctx, db, toGameRecord(game)); err != nil {
		return pickResult{}, err
	}

	if res.Complete {
		if err := s.repo.ClearQueue(ctx, db, key); err != nil {
			return pickResult{}, err
		}
		ready := gameAnnouncement(AnnounceGameReady, lobby, game)
		ready.DirectMessage = lobby.DMOnReady
		*anns = append(*anns, ready)
	} else {
		made := gameAnnouncement(AnnouncePickMade, lobby, game)
		made.Users = res.Picked
		*anns = append(*anns, made)
	}
	return results.SuccessResult[*PickOutcome, error](&PickOutcome{Game: cloneGame(game), Result: res}), nil
}
