package matchmakingservice

import (
	"context"
	"errors"

	matchmakingdomain "github.com/Black-And-White-Club/lobby-bot/app/modules/matchmaking/domain"
	matchmakingdb "github.com/Black-And-White-Club/lobby-bot/app/modules/matchmaking/infrastructure/repositories"
	sharedtypes "github.com/Black-And-White-Club/lobby-bot/app/shared/types"
	"github.com/Black-And-White-Club/lobby-bot/internal/results"
	"github.com/uptrace/bun"
)

// Parties are guild-wide and only read by formation, so they skip the lobby lock.

// AddPartyMember puts memberID into hostID's party. Users belong to at most one
// party, and a host cannot join someone else's.
func (s *MatchmakingService) AddPartyMember(ctx context.Context, guildID sharedtypes.GuildID, hostID, memberID sharedtypes.UserID) error {
	key := sharedtypes.LobbyKey{GuildID: guildID}
	result, err := withTelemetry(s, ctx, "AddPartyMember", key, func(ctx context.Context) (results.OperationResult[bool, error], error) {
		return runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (results.OperationResult[bool, error], error) {
			fail := results.FailureResult[bool, error]
			if hostID == memberID {
				return fail(matchmakingdomain.ErrSelfParty), nil
			}
			for _, id := range []sharedtypes.UserID{hostID, memberID} {
				if _, err := s.ratings.GetPlayer(ctx, db, guildID, id); err != nil {
					return failOrError[bool](err)
				}
			}

			rows, err := s.repo.ListPartyMembers(ctx, db, guildID)
			if err != nil {
				return results.OperationResult[bool, error]{}, err
			}
			for _, r := range rows {
				if r.MemberID == memberID || r.HostID == memberID || r.MemberID == hostID {
					return fail(matchmakingdomain.ErrAlreadyInParty), nil
				}
			}

			err = s.repo.AddPartyMember(ctx, db, &matchmakingdb.PartyMember{GuildID: guildID, HostID: hostID, MemberID: memberID})
			if errors.Is(err, matchmakingdb.ErrAlreadyExists) {
				return fail(matchmakingdomain.ErrAlreadyInParty), nil
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

// LeaveParty removes memberID from whichever party they joined.
func (s *MatchmakingService) LeaveParty(ctx context.Context, guildID sharedtypes.GuildID, memberID sharedtypes.UserID) error {
	key := sharedtypes.LobbyKey{GuildID: guildID}
	result, err := withTelemetry(s, ctx, "LeaveParty", key, func(ctx context.Context) (results.OperationResult[bool, error], error) {
		err := s.repo.RemovePartyMember(ctx, nil, guildID, memberID)
		if errors.Is(err, matchmakingdb.ErrNoRowsAffected) {
			return results.FailureResult[bool, error](matchmakingdomain.ErrNotInParty), nil
		}
		if err != nil {
			return results.OperationResult[bool, error]{}, err
		}
		return results.SuccessResult[bool, error](true), nil
	})
	_, err = unwrap(result, err)
	return err
}

// DisbandParty removes every member of hostID's party and returns how many left.
func (s *MatchmakingService) DisbandParty(ctx context.Context, guildID sharedtypes.GuildID, hostID sharedtypes.UserID) (int, error) {
	key := sharedtypes.LobbyKey{GuildID: guildID}
	result, err := withTelemetry(s, ctx, "DisbandParty", key, func(ctx context.Context) (results.OperationResult[int, error], error) {
		n, err := s.repo.DeleteParty(ctx, nil, guildID, hostID)
		if err != nil {
			return results.OperationResult[int, error]{}, err
		}
		if n == 0 {
			return results.FailureResult[int, error](matchmakingdomain.ErrNotInParty), nil
		}
		return results.SuccessResult[int, error](n), nil
	})
	return unwrap(result, err)
}

// ListParties returns every party of the guild, host first.
func (s *MatchmakingService) ListParties(ctx context.Context, guildID sharedtypes.GuildID) ([][]sharedtypes.UserID, error) {
	key := sharedtypes.LobbyKey{GuildID: guildID}
	result, err := withTelemetry(s, ctx, "ListParties", key, func(ctx context.Context) (results.OperationResult[[][]sharedtypes.UserID, error], error) {
		rows, err := s.repo.ListPartyMembers(ctx, nil, guildID)
		if err != nil {
			return results.OperationResult[[][]sharedtypes.UserID, error]{}, err
		}
		return results.SuccessResult[[][]sharedtypes.UserID, error](matchmakingdomain.PartyGroups(toDomainParty(rows))), nil
	})
	return unwrap(result, err)
}
