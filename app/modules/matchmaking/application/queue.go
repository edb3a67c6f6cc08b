package matchmakingservice

import (
	"context"
	"fmt"
	"slices"
	"time"

	matchmakingdomain "github.com/Black-And-White-Club/lobby-bot/app/modules/matchmaking/domain"
	matchmakingdb "github.com/Black-And-White-Club/lobby-bot/app/modules/matchmaking/infrastructure/repositories"
	sharedtypes "github.com/Black-And-White-Club/lobby-bot/app/shared/types"
	"github.com/Black-And-White-Club/lobby-bot/internal/attr"
	"github.com/Black-And-White-Club/lobby-bot/internal/results"
	"github.com/uptrace/bun"
)

type joinResult = results.OperationResult[*JoinResult, error]

// Join adds userID to the lobby queue. The join that fills the queue forms a game in
// the same transaction.
func (s *MatchmakingService) Join(ctx context.Context, key sharedtypes.LobbyKey, userID sharedtypes.UserID) (*JoinResult, error) {
	var anns []Announcement
	result, err := withTelemetry(s, ctx, "Join", key, func(ctx context.Context) (joinResult, error) {
		return runLocked(s, ctx, key, func(ctx context.Context, db bun.IDB) (joinResult, error) {
			anns = nil
			return s.joinLogic(ctx, db, key, userID, &anns)
		})
	})
	res, err := unwrap(result, err)
	if err != nil {
		return nil, err
	}
	s.announce(ctx, anns)
	return res, nil
}

func (s *MatchmakingService) joinLogic(ctx context.Context, db bun.IDB, key sharedtypes.LobbyKey, userID sharedtypes.UserID, anns *[]Announcement) (joinResult, error) {
	fail := results.FailureResult[*JoinResult, error]
	now := s.now().UTC()

	lobby, err := s.loadLobby(ctx, db, key)
	if err != nil {
		return failOrError[*JoinResult](err)
	}

	player, err := s.ratings.GetPlayer(ctx, db, key.GuildID, userID)
	if err != nil {
		return failOrError[*JoinResult](err)
	}

	ban, err := s.ratings.ActiveBan(ctx, db, key.GuildID, userID, now)
	if err != nil {
		return joinResult{}, err
	}
	if ban != nil {
		return fail(fmt.Errorf("%w until %s", matchmakingdomain.ErrBanned, ban.ExpiresAt().Format(time.RFC3339))), nil
	}

	latest, err := s.latestGame(ctx, db, key)
	if err != nil {
		return joinResult{}, err
	}
	if latest != nil {
		if _, picking := latest.Phase.(matchmakingdomain.Picking); picking {
			return fail(matchmakingdomain.ErrGamePicking), nil
		}
	}

	rows, err := s.repo.ListQueue(ctx, db, key)
	if err != nil {
		return joinResult{}, err
	}
	queue := toDomainQueue(rows)
	if slices.Contains(queueUserIDs(queue), userID) {
		return fail(matchmakingdomain.ErrAlreadyQueued), nil
	}
	if len(queue) >= lobby.Capacity() {
		return fail(matchmakingdomain.ErrQueueFull), nil
	}

	if lobby.MinPoints != nil && player.Points < *lobby.MinPoints {
		return fail(fmt.Errorf("%w: %d required", matchmakingdomain.ErrBelowMinimumPoints, *lobby.MinPoints)), nil
	}

	competition, err := s.ratings.GetCompetition(ctx, db, key.GuildID)
	if err != nil {
		return joinResult{}, err
	}
	if !competition.AllowMultiQueue {
		elsewhere, err := s.repo.QueuedElsewhere(ctx, db, key, userID)
		if err != nil {
			return joinResult{}, err
		}
		if elsewhere {
			return fail(matchmakingdomain.ErrMultiQueue), nil
		}
	} else {
		pooled, err := s.inPickPoolElsewhere(ctx, db, key, userID)
		if err != nil {
			return failOrError[*JoinResult](err)
		}
		if pooled {
			return fail(fmt.Errorf("%w in another lobby", matchmakingdomain.ErrGamePicking)), nil
		}
	}

	if wait := s.cooldowns.For(key.GuildID).Remaining(userID, now); wait > 0 {
		return fail(fmt.Errorf("%w: %s remaining", matchmakingdomain.ErrRequeueCooldown, wait.Round(time.Second))), nil
	}

	entry := &matchmakingdb.QueuedPlayer{GuildID: key.GuildID, ChannelID: key.ChannelID, UserID: userID, QueuedAt: now}
	if err := s.repo.Enqueue(ctx, db, entry); err != nil {
		return joinResult{}, err
	}
	queue = append(queue, matchmakingdomain.QueuedPlayer{Lobby: key, UserID: userID, QueuedAt: now})

	res := &JoinResult{Queue: queue, Capacity: lobby.Capacity()}
	formed, err := s.maybeFormGame(ctx, db, lobby, anns)
	if err != nil {
		return failOrError[*JoinResult](err)
	}
	if formed != nil {
		res.Game = formed
		for _, a := range *anns {
			if a.Kind == AnnounceGameFormed {
				res.Warnings = append(res.Warnings, a.Warnings...)
			}
		}
	}
	return results.SuccessResult[*JoinResult, error](res), nil
}

// inPickPoolElsewhere reports whether userID waits in the pick pool of another lobby.
// The lobbies userID is queued in stay locked until the join commits, so none of
// them can start picking in the meantime.
func (s *MatchmakingService) inPickPoolElsewhere(ctx context.Context, db bun.IDB, key sharedtypes.LobbyKey, userID sharedtypes.UserID) (bool, error) {
	rows, err := s.lockQueuesElsewhere(ctx, db, key, []sharedtypes.UserID{userID})
	if err != nil {
		return false, err
	}
	for _, row := range rows {
		picking, err := s.hasPickingGame(ctx, db, queueLobby(row))
		if err != nil || picking {
			return picking, err
		}
	}
	return false, nil
}

// Leave removes userID from the queue and starts the guild's requeue cooldown.
func (s *MatchmakingService) Leave(ctx context.Context, key sharedtypes.LobbyKey, userID sharedtypes.UserID) error {
	var delay time.Duration
	result, err := withTelemetry(s, ctx, "Leave", key, func(ctx context.Context) (results.OperationResult[bool, error], error) {
		return runLocked(s, ctx, key, func(ctx context.Context, db bun.IDB) (results.OperationResult[bool, error], error) {
			fail := results.FailureResult[bool, error]
			if _, err := s.loadLobby(ctx, db, key); err != nil {
				return failOrError[bool](err)
			}
			latest, err := s.latestGame(ctx, db, key)
			if err != nil {
				return results.OperationResult[bool, error]{}, err
			}
			if latest != nil {
				if _, picking := latest.Phase.(matchmakingdomain.Picking); picking {
					return fail(matchmakingdomain.ErrGamePicking), nil
				}
			}
			n, err := s.repo.Dequeue(ctx, db, key, []sharedtypes.UserID{userID})
			if err != nil {
				return results.OperationResult[bool, error]{}, err
			}
			if n == 0 {
				return fail(matchmakingdomain.ErrNotQueued), nil
			}
			competition, err := s.ratings.GetCompetition(ctx, db, key.GuildID)
			if err != nil {
				return results.OperationResult[bool, error]{}, err
			}
			delay = competition.RequeueDelay
			return results.SuccessResult[bool, error](true), nil
		})
	})
	if _, err := unwrap(result, err); err != nil {
		return err
	}
	if delay > 0 {
		s.cooldowns.For(key.GuildID).Stamp(userID, s.now().UTC().Add(delay))
	}
	return nil
}

// GetQueue reads the queue without taking the lobby lock. Hidden queues only reveal
// their size unless reveal is set.
func (s *MatchmakingService) GetQueue(ctx context.Context, key sharedtypes.LobbyKey, reveal bool) (*QueueView, error) {
	result, err := withTelemetry(s, ctx, "GetQueue", key, func(ctx context.Context) (results.OperationResult[*QueueView, error], error) {
		lobby, err := s.loadLobby(ctx, nil, key)
		if err != nil {
			return failOrError[*QueueView](err)
		}
		rows, err := s.repo.ListQueue(ctx, nil, key)
		if err != nil {
			return results.OperationResult[*QueueView, error]{}, err
		}
		view := &QueueView{
			Lobby:    key,
			Size:     len(rows),
			Capacity: lobby.Capacity(),
			Hidden:   lobby.HideQueue && !reveal,
		}
		if !view.Hidden {
			view.Players = toDomainQueue(rows)
		}
		return results.SuccessResult[*QueueView, error](view), nil
	})
	return unwrap(result, err)
}

// SweepExpired evicts players that waited longer than their lobby's queue timeout and
// returns how many were removed. A failing lobby is logged and skipped.
func (s *MatchmakingService) SweepExpired(ctx context.Context) (int, error) {
	lobbies, err := s.repo.ListLobbiesWithTimeout(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to list lobbies with a queue timeout: %w", err)
	}
	total := 0
	for _, row := range lobbies {
		key := sharedtypes.LobbyKey{GuildID: row.GuildID, ChannelID: row.ChannelID}
		evicted, err := s.SweepLobby(ctx, key)
		if err != nil {
			s.logger.WarnContext(ctx, "Queue sweep failed for lobby",
				attr.ExtractCorrelationID(ctx),
				attr.Lobby(key),
				attr.Error(err),
			)
			continue
		}
		total += len(evicted)
	}
	return total, nil
}

// SweepLobby evicts expired players of one lobby. Lobbies with a game in picking
// are left alone because the queue is the pick pool.
func (s *MatchmakingService) SweepLobby(ctx context.Context, key sharedtypes.LobbyKey) ([]sharedtypes.UserID, error) {
	var anns []Announcement
	result, err := withTelemetry(s, ctx, "SweepLobby", key, func(ctx context.Context) (results.OperationResult[[]sharedtypes.UserID, error], error) {
		return runLocked(s, ctx, key, func(ctx context.Context, db bun.IDB) (results.OperationResult[[]sharedtypes.UserID, error], error) {
			anns = nil
			return s.sweepLobbyLogic(ctx, db, key, &anns)
		})
	})
	evicted, err := unwrap(result, err)
	if err != nil {
		return nil, err
	}
	if len(evicted) > 0 && s.metrics != nil {
		s.metrics.RecordQueueEviction(ctx, len(evicted))
	}
	s.announce(ctx, anns)
	return evicted, nil
}

func (s *MatchmakingService) sweepLobbyLogic(ctx context.Context, db bun.IDB, key sharedtypes.LobbyKey, anns *[]Announcement) (results.OperationResult[[]sharedtypes.UserID, error], error) {
	success := results.SuccessResult[[]sharedtypes.UserID, error]

	lobby, err := s.loadLobby(ctx, db, key)
	if err != nil {
		return failOrError[[]sharedtypes.UserID](err)
	}
	if lobby.QueueTimeout <= 0 {
		return success(nil), nil
	}
	latest, err := s.latestGame(ctx, db, key)
	if err != nil {
		return results.OperationResult[[]sharedtypes.UserID, error]{}, err
	}
	if latest != nil {
		if _, picking := latest.Phase.(matchmakingdomain.Picking); picking {
			return success(nil), nil
		}
	}

	rows, err := s.repo.ListQueue(ctx, db, key)
	if err != nil {
		return results.OperationResult[[]sharedtypes.UserID, error]{}, err
	}
	now := s.now().UTC()
	var expired []sharedtypes.UserID
	for _, q := range toDomainQueue(rows) {
		if q.Expired(lobby.QueueTimeout, now) {
			expired = append(expired, q.UserID)
		}
	}
	if len(expired) == 0 {
		return success(nil), nil
	}
	if _, err := s.repo.Dequeue(ctx, db, key, expired); err != nil {
		return results.OperationResult[[]sharedtypes.UserID, error]{}, err
	}
	*anns = append(*anns, Announcement{
		Kind:    AnnounceEvicted,
		Lobby:   key,
		Channel: lobby.AnnounceTo(),
		Users:   expired,
	})
	return success(expired), nil
}
