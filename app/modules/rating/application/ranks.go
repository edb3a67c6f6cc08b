package ratingservice

import (
	"context"
	"errors"

	ratingdomain "github.com/Black-And-White-Club/lobby-bot/app/modules/rating/domain"
	ratingdb "github.com/Black-And-White-Club/lobby-bot/app/modules/rating/infrastructure/repositories"
	sharedtypes "github.com/Black-And-White-Club/lobby-bot/app/shared/types"
	"github.com/Black-And-White-Club/lobby-bot/internal/results"
	"github.com/uptrace/bun"
)

type emptyResult = results.OperationResult[struct{}, error]

func ok() (emptyResult, error) {
	return results.SuccessResult[struct{}, error](struct{}{}), nil
}

func fail(err error) (emptyResult, error) {
	return results.FailureResult[struct{}, error](err), nil
}

// SetRank creates or replaces the rank bound to rank.RoleID.
func (s *RatingService) SetRank(ctx context.Context, rank ratingdomain.Rank) error {
	result, err := withTelemetry(s, ctx, "SetRank", string(rank.RoleID), func(ctx context.Context) (emptyResult, error) {
		if rank.Threshold < 0 || negative(rank.WinModifier) || negative(rank.LossModifier) {
			return fail(ratingdomain.ErrInvalidRank)
		}
		if err := s.repo.UpsertRank(ctx, nil, &ratingdb.Rank{
			GuildID:      rank.GuildID,
			RoleID:       rank.RoleID,
			Threshold:    rank.Threshold,
			WinModifier:  rank.WinModifier,
			LossModifier: rank.LossModifier,
		}); err != nil {
			return emptyResult{}, err
		}
		return ok()
	})
	_, err = unwrap(result, err)
	return err
}

// RemoveRank deletes a rank. Existing role holders are not resynced.
func (s *RatingService) RemoveRank(ctx context.Context, guildID sharedtypes.GuildID, roleID sharedtypes.RoleID) error {
	result, err := withTelemetry(s, ctx, "RemoveRank", string(roleID), func(ctx context.Context) (emptyResult, error) {
		err := s.repo.DeleteRank(ctx, nil, guildID, roleID)
		if errors.Is(err, ratingdb.ErrNoRowsAffected) {
			return fail(ratingdomain.ErrRankNotFound)
		}
		if err != nil {
			return emptyResult{}, err
		}
		return ok()
	})
	_, err = unwrap(result, err)
	return err
}

// ListRanks returns the guild's ranks by ascending threshold.
func (s *RatingService) ListRanks(ctx context.Context, guildID sharedtypes.GuildID) ([]ratingdomain.Rank, error) {
	result, err := withTelemetry(s, ctx, "ListRanks", string(guildID), func(ctx context.Context) (results.OperationResult[[]ratingdomain.Rank, error], error) {
		ranks, err := s.ledger.GetRanks(ctx, nil, guildID)
		if err != nil {
			return results.OperationResult[[]ratingdomain.Rank, error]{}, err
		}
		return results.SuccessResult[[]ratingdomain.Rank, error](ranks), nil
	})
	return unwrap(result, err)
}

// GetCompetition returns the guild's settings or the defaults.
func (s *RatingService) GetCompetition(ctx context.Context, guildID sharedtypes.GuildID) (ratingdomain.Competition, error) {
	return s.ledger.GetCompetition(ctx, nil, guildID)
}

// UpdateCompetition stores new settings and fires the competition-changed hooks.
func (s *RatingService) UpdateCompetition(ctx context.Context, c ratingdomain.Competition) error {
	result, err := withTelemetry(s, ctx, "UpdateCompetition", string(c.GuildID), func(ctx context.Context) (emptyResult, error) {
		if c.DefaultWinModifier < 0 || c.DefaultLossModifier < 0 || c.RequeueDelay < 0 {
			return fail(ratingdomain.ErrInvalidCompetition)
		}
		if err := s.repo.UpsertCompetition(ctx, nil, &ratingdb.Competition{
			GuildID:             c.GuildID,
			DefaultWinModifier:  c.DefaultWinModifier,
			DefaultLossModifier: c.DefaultLossModifier,
			AllowNegative:       c.AllowNegative,
			AllowMultiQueue:     c.AllowMultiQueue,
			RequeueDelaySeconds: int64(c.RequeueDelay.Seconds()),
			VotingEnabled:       c.VotingEnabled,
		}); err != nil {
			return emptyResult{}, err
		}
		return ok()
	})
	if _, err = unwrap(result, err); err != nil {
		return err
	}
	s.notifyCompetitionChanged(c.GuildID)
	return nil
}

func negative(v *int) bool {
	return v != nil && *v < 0
}
