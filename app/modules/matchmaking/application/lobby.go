package matchmakingservice

import (
	"context"
	"errors"
	"strings"

	matchmakingdomain "github.com/Black-And-White-Club/lobby-bot/app/modules/matchmaking/domain"
	matchmakingdb "github.com/Black-And-White-Club/lobby-bot/app/modules/matchmaking/infrastructure/repositories"
	sharedtypes "github.com/Black-And-White-Club/lobby-bot/app/shared/types"
	"github.com/Black-And-White-Club/lobby-bot/internal/results"
	"github.com/uptrace/bun"
)

type lobbyResult = results.OperationResult[*matchmakingdomain.Lobby, error]

// CreateLobby turns a channel into a lobby with default settings.
func (s *MatchmakingService) CreateLobby(ctx context.Context, key sharedtypes.LobbyKey, playersPerTeam int) (*matchmakingdomain.Lobby, error) {
	result, err := withTelemetry(s, ctx, "CreateLobby", key, func(ctx context.Context) (lobbyResult, error) {
		return runLocked(s, ctx, key, func(ctx context.Context, db bun.IDB) (lobbyResult, error) {
			lobby := matchmakingdomain.NewLobby(key, playersPerTeam, s.now().UTC())
			if err := lobby.Validate(); err != nil {
				return results.FailureResult[*matchmakingdomain.Lobby, error](err), nil
			}
			err := s.repo.CreateLobby(ctx, db, toLobbyRow(&lobby))
			if errors.Is(err, matchmakingdb.ErrAlreadyExists) {
				return results.FailureResult[*matchmakingdomain.Lobby, error](matchmakingdomain.ErrLobbyExists), nil
			}
			if err != nil {
				return lobbyResult{}, err
			}
			return results.SuccessResult[*matchmakingdomain.Lobby, error](&lobby), nil
		})
	})
	return unwrap(result, err)
}

type updateResult = results.OperationResult[*LobbyUpdateResult, error]

// UpdateLobby applies a settings patch. Growing the team size so that the waiting
// queue exactly fills the lobby forms a game right away.
func (s *MatchmakingService) UpdateLobby(ctx context.Context, key sharedtypes.LobbyKey, update LobbyUpdate) (*LobbyUpdateResult, error) {
	var anns []Announcement
	result, err := withTelemetry(s, ctx, "UpdateLobby", key, func(ctx context.Context) (updateResult, error) {
		return runLocked(s, ctx, key, func(ctx context.Context, db bun.IDB) (updateResult, error) {
			anns = nil
			return s.updateLobbyLogic(ctx, db, key, update, &anns)
		})
	})
	res, err := unwrap(result, err)
	if err != nil {
		return nil, err
	}
	s.announce(ctx, anns)
	return res, nil
}

func (s *MatchmakingService) updateLobbyLogic(ctx context.Context, db bun.IDB, key sharedtypes.LobbyKey, update LobbyUpdate, anns *[]Announcement) (updateResult, error) {
	fail := results.FailureResult[*LobbyUpdateResult, error]

	lobby, err := s.loadLobby(ctx, db, key)
	if err != nil {
		return failOrError[*LobbyUpdateResult](err)
	}

	if update.PlayersPerTeam != nil && *update.PlayersPerTeam != lobby.PlayersPerTeam {
		latest, err := s.latestGame(ctx, db, key)
		if err != nil {
			return updateResult{}, err
		}
		if latest != nil {
			if _, picking := latest.Phase.(matchmakingdomain.Picking); picking {
				return fail(matchmakingdomain.ErrGamePicking), nil
			}
		}
	}
	applyLobbyUpdate(lobby, update)
	if err := lobby.Validate(); err != nil {
		return fail(err), nil
	}

	rows, err := s.repo.ListQueue(ctx, db, key)
	if err != nil {
		return updateResult{}, err
	}
	if len(rows) > lobby.Capacity() {
		return fail(matchmakingdomain.ErrQueueFull), nil
	}

	if err := s.repo.UpdateLobby(ctx, db, toLobbyRow(lobby)); err != nil {
		return updateResult{}, err
	}

	formed, err := s.maybeFormGame(ctx, db, lobby, anns)
	if err != nil {
		return failOrError[*LobbyUpdateResult](err)
	}
	return results.SuccessResult[*LobbyUpdateResult, error](&LobbyUpdateResult{Lobby: lobby, Game: formed}), nil
}

func applyLobbyUpdate(l *matchmakingdomain.Lobby, u LobbyUpdate) {
	if u.PlayersPerTeam != nil {
		l.PlayersPerTeam = *u.PlayersPerTeam
	}
	if u.PickMode != nil {
		l.PickMode = *u.PickMode
	}
	if u.PickOrder != nil {
		l.PickOrder = *u.PickOrder
	}
	if u.ClearMinPoints {
		l.MinPoints = nil
	} else if u.MinPoints != nil {
		v := *u.MinPoints
		l.MinPoints = &v
	}
	if u.Multiplier != nil {
		l.Score.Multiplier = *u.Multiplier
	}
	if u.ClearHighLimit {
		l.Score.HighLimit = nil
	} else if u.HighLimit != nil {
		v := *u.HighLimit
		l.Score.HighLimit = &v
	}
	if u.ReductionFactor != nil {
		l.Score.ReductionFactor = *u.ReductionFactor
	}
	if u.MultiplyLoss != nil {
		l.Score.MultiplyLoss = *u.MultiplyLoss
	}
	if u.QueueTimeout != nil {
		l.QueueTimeout = *u.QueueTimeout
	}
	if u.HideQueue != nil {
		l.HideQueue = *u.HideQueue
	}
	if u.DMOnReady != nil {
		l.DMOnReady = *u.DMOnReady
	}
	if u.AnnouncementChannel != nil {
		l.AnnouncementChannel = *u.AnnouncementChannel
	}
}

// DeleteLobby removes the lobby together with its queue, maps and game history.
func (s *MatchmakingService) DeleteLobby(ctx context.Context, key sharedtypes.LobbyKey) error {
	result, err := withTelemetry(s, ctx, "DeleteLobby", key, func(ctx context.Context) (results.OperationResult[bool, error], error) {
		return runLocked(s, ctx, key, func(ctx context.Context, db bun.IDB) (results.OperationResult[bool, error], error) {
			err := s.repo.DeleteLobby(ctx, db, key)
			if errors.Is(err, matchmakingdb.ErrNoRowsAffected) {
				return results.FailureResult[bool, error](matchmakingdomain.ErrNotALobby), nil
			}
			if err != nil {
				return results.OperationResult[bool, error]{}, err
			}
			return results.SuccessResult[bool, error](true), nil
		})
	})
	_, err = unwrap(result, err)
	return err
}

// GetLobby is a read-only lookup.
func (s *MatchmakingService) GetLobby(ctx context.Context, key sharedtypes.LobbyKey) (*matchmakingdomain.Lobby, error) {
	result, err := withTelemetry(s, ctx, "GetLobby", key, func(ctx context.Context) (lobbyResult, error) {
		lobby, err := s.loadLobby(ctx, nil, key)
		if err != nil {
			return failOrError[*matchmakingdomain.Lobby](err)
		}
		return results.SuccessResult[*matchmakingdomain.Lobby, error](lobby), nil
	})
	return unwrap(result, err)
}

// AddMap adds name to the lobby's map pool.
func (s *MatchmakingService) AddMap(ctx context.Context, key sharedtypes.LobbyKey, name string) error {
	name = strings.TrimSpace(name)
	result, err := withTelemetry(s, ctx, "AddMap", key, func(ctx context.Context) (results.OperationResult[bool, error], error) {
		return runLocked(s, ctx, key, func(ctx context.Context, db bun.IDB) (results.OperationResult[bool, error], error) {
			if name == "" {
				return results.FailureResult[bool, error](matchmakingdomain.ErrInvalidLobbySettings), nil
			}
			if _, err := s.loadLobby(ctx, db, key); err != nil {
				return failOrError[bool](err)
			}
			err := s.repo.AddMap(ctx, db, key, name)
			if errors.Is(err, matchmakingdb.ErrAlreadyExists) {
				return results.FailureResult[bool, error](matchmakingdomain.ErrMapExists), nil
			}
			if err != nil {
				return results.OperationResult[bool, error]{}, err
			}
			return results.SuccessResult[bool, error](true), nil
		})
	})
	_, err = unwrap(result, err)
	return err
}

// RemoveMap drops name from the lobby's map pool.
func (s *MatchmakingService) RemoveMap(ctx context.Context, key sharedtypes.LobbyKey, name string) error {
	name = strings.TrimSpace(name)
	result, err := withTelemetry(s, ctx, "RemoveMap", key, func(ctx context.Context) (results.OperationResult[bool, error], error) {
		return runLocked(s, ctx, key, func(ctx context.Context, db bun.IDB) (results.OperationResult[bool, error], error) {
			if _, err := s.loadLobby(ctx, db, key); err != nil {
				return failOrError[bool](err)
			}
			err := s.repo.RemoveMap(ctx, db, key, name)
			if errors.Is(err, matchmakingdb.ErrNoRowsAffected) {
				return results.FailureResult[bool, error](matchmakingdomain.ErrMapNotFound), nil
			}
			if err != nil {
				return results.OperationResult[bool, error]{}, err
			}
			return results.SuccessResult[bool, error](true), nil
		})
	})
	_, err = unwrap(result, err)
	return err
}

// loadLobby returns ErrNotALobby for channels without a lobby.
func (s *MatchmakingService) loadLobby(ctx context.Context, db bun.IDB, key sharedtypes.LobbyKey) (*matchmakingdomain.Lobby, error) {
	row, err := s.repo.GetLobby(ctx, db, key)
	if errors.Is(err, matchmakingdb.ErrNotFound) {
		return nil, matchmakingdomain.ErrNotALobby
	}
	if err != nil {
		return nil, err
	}
	maps, err := s.repo.ListMaps(ctx, db, key)
	if err != nil {
		return nil, err
	}
	return toDomainLobby(*row, maps), nil
}

// latestGame returns nil when the lobby never had a game.
func (s *MatchmakingService) latestGame(ctx context.Context, db bun.IDB, key sharedtypes.LobbyKey) (*matchmakingdomain.Game, error) {
	rec, err := s.repo.LatestGame(ctx, db, key)
	if errors.Is(err, matchmakingdb.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return toDomainGame(rec)
}

// openGames lists the lobby's games that are still picking or undecided.
func (s *MatchmakingService) openGames(ctx context.Context, db bun.IDB, key sharedtypes.LobbyKey) ([]sharedtypes.GameNumber, error) {
	return s.repo.GameNumbersInState(ctx, db, key,
		string(matchmakingdomain.StatePicking),
		string(matchmakingdomain.StateUndecided),
	)
}

func (s *MatchmakingService) hasPickingGame(ctx context.Context, db bun.IDB, key sharedtypes.LobbyKey) (bool, error) {
	numbers, err := s.repo.GameNumbersInState(ctx, db, key, string(matchmakingdomain.StatePicking))
	if err != nil {
		return false, err
	}
	return len(numbers) > 0, nil
}

// failOrError routes business sentinels into a failure result and everything else
// into the error return so the transaction rolls back.
func failOrError[S any](err error) (results.OperationResult[S, error], error) {
	if isBusinessError(err) {
		return results.FailureResult[S, error](err), nil
	}
	return results.OperationResult[S, error]{}, err
}
