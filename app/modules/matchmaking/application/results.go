package matchmakingservice

import (
	"context"
	"errors"
	"fmt"
	"slices"

	matchmakingdomain "github.com/Black-And-White-Club/lobby-bot/app/modules/matchmaking/domain"
	matchmakingdb "github.com/Black-And-White-Club/lobby-bot/app/modules/matchmaking/infrastructure/repositories"
	ratingdomain "github.com/Black-And-White-Club/lobby-bot/app/modules/rating/domain"
	"github.com/Black-And-White-Club/lobby-bot/app/shared/identity"
	sharedtypes "github.com/Black-And-White-Club/lobby-bot/app/shared/types"
	"github.com/Black-And-White-Club/lobby-bot/internal/results"
	"github.com/elliotchance/pie/v2"
	"github.com/uptrace/bun"
)

type gameResult = results.OperationResult[*GameResult, error]

const voteResolver = "vote"

// Vote records a player's result vote on the targeted game and applies the consensus
// once one is reached.
func (s *MatchmakingService) Vote(ctx context.Context, req VoteRequest) (*VoteResult, error) {
	result, err := withTelemetry(s, ctx, "Vote", req.Lobby, func(ctx context.Context) (results.OperationResult[*VoteResult, error], error) {
		return runLocked(s, ctx, req.Lobby, func(ctx context.Context, db bun.IDB) (results.OperationResult[*VoteResult, error], error) {
			return s.voteLogic(ctx, db, req)
		})
	})
	res, err := unwrap(result, err)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.RecordVoteCast(ctx, string(req.Vote))
	}
	s.finish(ctx, req.Lobby.GuildID, &res.GameResult)
	return res, nil
}

func (s *MatchmakingService) voteLogic(ctx context.Context, db bun.IDB, req VoteRequest) (results.OperationResult[*VoteResult, error], error) {
	lobby, err := s.loadLobby(ctx, db, req.Lobby)
	if err != nil {
		return failOrError[*VoteResult](err)
	}
	competition, err := s.ratings.GetCompetition(ctx, db, req.Lobby.GuildID)
	if err != nil {
		return results.OperationResult[*VoteResult, error]{}, err
	}
	game, err := s.loadGame(ctx, db, req.Lobby, req.Number)
	if err != nil {
		return failOrError[*VoteResult](err)
	}

	outcome, err := game.CastVote(req.UserID, req.Vote, competition.VotingEnabled)
	if err != nil {
		return failOrError[*VoteResult](err)
	}

	res := &VoteResult{Consensus: outcome.Consensus}
	byVote := matchmakingdomain.Resolution{By: voteResolver, At: s.now().UTC()}
	switch outcome.Consensus {
	case matchmakingdomain.ConsensusWin:
		err = s.decide(ctx, db, lobby, game, outcome.Winner, byVote, &res.GameResult)
	case matchmakingdomain.ConsensusDraw:
		err = s.draw(ctx, db, lobby, game, byVote, &res.GameResult)
	case matchmakingdomain.ConsensusCancel:
		_, err = s.cancel(ctx, db, lobby, game, byVote, &res.GameResult)
	case matchmakingdomain.ConsensusLocked:
		err = s.repo.SaveGame(ctx, db, toGameRecord(game))
		res.announcements = append(res.announcements, gameAnnouncement(AnnounceVoteLocked, lobby, game))
	default:
		err = s.repo.SaveGame(ctx, db, toGameRecord(game))
	}
	if err != nil {
		return failOrError[*VoteResult](err)
	}
	res.Game = cloneGame(game)
	return results.SuccessResult[*VoteResult, error](res), nil
}

// SubmitResult is the moderator decision. It works on vote-locked games too.
func (s *MatchmakingService) SubmitResult(ctx context.Context, req ResultRequest) (*GameResult, error) {
	return s.resolve(ctx, "SubmitResult", req.Lobby, req.Number, func(ctx context.Context, db bun.IDB, lobby *matchmakingdomain.Lobby, game *matchmakingdomain.Game, out *GameResult) error {
		by := matchmakingdomain.Resolution{By: req.ModeratorID, Comment: req.Comment, At: s.now().UTC()}
		return s.decide(ctx, db, lobby, game, req.Winner, by, out)
	})
}

// Draw closes an undecided game without a winner.
func (s *MatchmakingService) Draw(ctx context.Context, req ResolveRequest) (*GameResult, error) {
	return s.resolve(ctx, "Draw", req.Lobby, req.Number, func(ctx context.Context, db bun.IDB, lobby *matchmakingdomain.Lobby, game *matchmakingdomain.Game, out *GameResult) error {
		by := matchmakingdomain.Resolution{By: req.ModeratorID, Comment: req.Comment, At: s.now().UTC()}
		return s.draw(ctx, db, lobby, game, by, out)
	})
}

// Cancel closes a picking or undecided game with no score effect.
func (s *MatchmakingService) Cancel(ctx context.Context, req ResolveRequest) (*GameResult, error) {
	return s.resolve(ctx, "Cancel", req.Lobby, req.Number, func(ctx context.Context, db bun.IDB, lobby *matchmakingdomain.Lobby, game *matchmakingdomain.Game, out *GameResult) error {
		by := matchmakingdomain.Resolution{By: req.ModeratorID, Comment: req.Comment, At: s.now().UTC()}
		_, err := s.cancel(ctx, db, lobby, game, by, out)
		return err
	})
}

// UndoGame reverts a decided game's score deltas and reopens it.
func (s *MatchmakingService) UndoGame(ctx context.Context, req ResolveRequest) (*GameResult, error) {
	return s.resolve(ctx, "UndoGame", req.Lobby, req.Number, func(ctx context.Context, db bun.IDB, lobby *matchmakingdomain.Lobby, game *matchmakingdomain.Game, out *GameResult) error {
		return s.undo(ctx, db, lobby, game, out)
	})
}

type transition func(ctx context.Context, db bun.IDB, lobby *matchmakingdomain.Lobby, game *matchmakingdomain.Game, out *GameResult) error

// resolve loads the targeted game under the lobby lock, applies t and publishes the
// outcome after commit.
func (s *MatchmakingService) resolve(ctx context.Context, operation string, key sharedtypes.LobbyKey, number sharedtypes.GameNumber, t transition) (*GameResult, error) {
	result, err := withTelemetry(s, ctx, operation, key, func(ctx context.Context) (gameResult, error) {
		return runLocked(s, ctx, key, func(ctx context.Context, db bun.IDB) (gameResult, error) {
			lobby, err := s.loadLobby(ctx, db, key)
			if err != nil {
				return failOrError[*GameResult](err)
			}
			game, err := s.loadGame(ctx, db, key, number)
			if err != nil {
				return failOrError[*GameResult](err)
			}
			out := &GameResult{}
			if err := t(ctx, db, lobby, game, out); err != nil {
				return failOrError[*GameResult](err)
			}
			out.Game = cloneGame(game)
			return results.SuccessResult[*GameResult, error](out), nil
		})
	})
	res, err := unwrap(result, err)
	if err != nil {
		return nil, err
	}
	s.finish(ctx, key.GuildID, res)
	return res, nil
}

// finish runs the post-commit side effects: member sync, metrics and announcements.
func (s *MatchmakingService) finish(ctx context.Context, guildID sharedtypes.GuildID, res *GameResult) {
	res.Warnings = append(res.Warnings, identity.SyncScoreChanges(ctx, s.platform, s.logger, guildID, res.Changes)...)
	for i := range res.announcements {
		a := &res.announcements[i]
		if len(a.Changes) > 0 {
			a.Warnings = append(a.Warnings, res.Warnings...)
		}
		if s.metrics != nil {
			switch a.Kind {
			case AnnounceGameDecided:
				s.metrics.RecordGameResolved(ctx, string(matchmakingdomain.StateDecided))
			case AnnounceGameDrawn:
				s.metrics.RecordGameResolved(ctx, string(matchmakingdomain.StateDraw))
			case AnnounceGameCanceled:
				s.metrics.RecordGameResolved(ctx, string(matchmakingdomain.StateCanceled))
			case AnnounceGameUndone:
				s.metrics.RecordGameResolved(ctx, "undone")
			}
		}
	}
	s.announce(ctx, res.announcements)
}

func (s *MatchmakingService) decide(ctx context.Context, db bun.IDB, lobby *matchmakingdomain.Lobby, game *matchmakingdomain.Game, winner sharedtypes.Team, by matchmakingdomain.Resolution, out *GameResult) error {
	if err := game.Decide(winner, by, nil); err != nil {
		return err
	}
	changes, err := s.ratings.ApplyOutcomes(ctx, db, lobby.Key.GuildID, lobby.Score, game.Outcomes(winner))
	if err != nil {
		return err
	}
	game.Scores = pie.Map(changes, func(c ratingdomain.ScoreChange) matchmakingdomain.PlayerScore {
		return matchmakingdomain.PlayerScore{UserID: c.UserID, Outcome: c.Outcome, Delta: c.Result.Delta}
	})
	if err := s.repo.SaveGame(ctx, db, toGameRecord(game)); err != nil {
		return err
	}
	out.Changes = changes
	decided := gameAnnouncement(AnnounceGameDecided, lobby, game)
	decided.Changes = changes
	out.announcements = append(out.announcements, decided)
	return s.formNext(ctx, db, lobby, out)
}

func (s *MatchmakingService) draw(ctx context.Context, db bun.IDB, lobby *matchmakingdomain.Lobby, game *matchmakingdomain.Game, by matchmakingdomain.Resolution, out *GameResult) error {
	if err := game.Draw(by); err != nil {
		return err
	}
	if err := s.ratings.RecordDraws(ctx, db, lobby.Key.GuildID, game.Roster.Players()); err != nil {
		return err
	}
	if err := s.repo.SaveGame(ctx, db, toGameRecord(game)); err != nil {
		return err
	}
	out.announcements = append(out.announcements, gameAnnouncement(AnnounceGameDrawn, lobby, game))
	return s.formNext(ctx, db, lobby, out)
}

func (s *MatchmakingService) cancel(ctx context.Context, db bun.IDB, lobby *matchmakingdomain.Lobby, game *matchmakingdomain.Game, by matchmakingdomain.Resolution, out *GameResult) (bool, error) {
	wasPicking, err := game.Cancel(by)
	if err != nil {
		return false, err
	}
	if wasPicking {
		if err := s.repo.ClearQueue(ctx, db, lobby.Key); err != nil {
			return false, err
		}
	}
	if err := s.repo.SaveGame(ctx, db, toGameRecord(game)); err != nil {
		return false, err
	}
	out.announcements = append(out.announcements, gameAnnouncement(AnnounceGameCanceled, lobby, game))
	return wasPicking, s.formNext(ctx, db, lobby, out)
}

func (s *MatchmakingService) undo(ctx context.Context, db bun.IDB, lobby *matchmakingdomain.Lobby, game *matchmakingdomain.Game, out *GameResult) error {
	open, err := s.openGames(ctx, db, lobby.Key)
	if err != nil {
		return err
	}
	if slices.ContainsFunc(open, func(n sharedtypes.GameNumber) bool { return n != game.Number }) {
		return matchmakingdomain.ErrOpenGameExists
	}

	scores, err := game.Undo()
	if err != nil {
		return err
	}
	reversals := pie.Map(scores, func(sc matchmakingdomain.PlayerScore) ratingdomain.Reversal {
		return ratingdomain.Reversal{UserID: sc.UserID, Outcome: sc.Outcome, Delta: sc.Delta}
	})
	changes, err := s.ratings.RevertOutcomes(ctx, db, lobby.Key.GuildID, reversals)
	if err != nil {
		return fmt.Errorf("failed to revert game %d: %w", game.Number, err)
	}
	if err := s.repo.SaveGame(ctx, db, toGameRecord(game)); err != nil {
		return err
	}
	out.Changes = changes
	undone := gameAnnouncement(AnnounceGameUndone, lobby, game)
	undone.Changes = changes
	out.announcements = append(out.announcements, undone)
	return nil
}

// formNext forms the game a full queue was waiting for.
func (s *MatchmakingService) formNext(ctx context.Context, db bun.IDB, lobby *matchmakingdomain.Lobby, out *GameResult) error {
	next, err := s.maybeFormGame(ctx, db, lobby, &out.announcements)
	if err != nil {
		return err
	}
	out.Next = cloneGame(next)
	return nil
}

// GetGame returns one game of the lobby; number 0 returns the latest.
func (s *MatchmakingService) GetGame(ctx context.Context, key sharedtypes.LobbyKey, number sharedtypes.GameNumber) (*matchmakingdomain.Game, error) {
	result, err := withTelemetry(s, ctx, "GetGame", key, func(ctx context.Context) (results.OperationResult[*matchmakingdomain.Game, error], error) {
		game, err := s.loadGame(ctx, nil, key, number)
		if err != nil {
			return failOrError[*matchmakingdomain.Game](err)
		}
		return results.SuccessResult[*matchmakingdomain.Game, error](game), nil
	})
	return unwrap(result, err)
}

// ListGames returns the lobby's most recent games, newest first, without child rows.
func (s *MatchmakingService) ListGames(ctx context.Context, key sharedtypes.LobbyKey, limit int) ([]*matchmakingdomain.Game, error) {
	result, err := withTelemetry(s, ctx, "ListGames", key, func(ctx context.Context) (results.OperationResult[[]*matchmakingdomain.Game, error], error) {
		rows, err := s.repo.ListGames(ctx, nil, key, limit)
		if err != nil {
			return results.OperationResult[[]*matchmakingdomain.Game, error]{}, err
		}
		games := make([]*matchmakingdomain.Game, 0, len(rows))
		for _, row := range rows {
			game, err := toDomainGame(&matchmakingdb.GameRecord{Game: row})
			if err != nil {
				return results.OperationResult[[]*matchmakingdomain.Game, error]{}, err
			}
			games = append(games, game)
		}
		return results.SuccessResult[[]*matchmakingdomain.Game, error](games), nil
	})
	return unwrap(result, err)
}

func (s *MatchmakingService) loadGame(ctx context.Context, db bun.IDB, key sharedtypes.LobbyKey, number sharedtypes.GameNumber) (*matchmakingdomain.Game, error) {
	var (
		rec *matchmakingdb.GameRecord
		err error
	)
	if number == 0 {
		rec, err = s.repo.LatestGame(ctx, db, key)
	} else {
		rec, err = s.repo.GetGame(ctx, db, key, number)
	}
	if errors.Is(err, matchmakingdb.ErrNotFound) {
		return nil, matchmakingdomain.ErrGameNotFound
	}
	if err != nil {
		return nil, err
	}
	return toDomainGame(rec)
}
