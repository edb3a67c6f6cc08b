package ratingservice

import (
	"context"
	"errors"
	"fmt"
	"strings"

	ratingdomain "github.com/Black-And-White-Club/lobby-bot/app/modules/rating/domain"
	ratingdb "github.com/Black-And-White-Club/lobby-bot/app/modules/rating/infrastructure/repositories"
	"github.com/Black-And-White-Club/lobby-bot/app/shared/identity"
	sharedtypes "github.com/Black-And-White-Club/lobby-bot/app/shared/types"
	"github.com/Black-And-White-Club/lobby-bot/internal/results"
	"github.com/uptrace/bun"
)

type playerResult = results.OperationResult[*ratingdomain.Player, error]

// Register creates a player profile, enforcing the guild's entitled player cap.
func (s *RatingService) Register(ctx context.Context, guildID sharedtypes.GuildID, userID sharedtypes.UserID, displayName string) (*ratingdomain.Player, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName = string(userID)
	}

	result, err := withTelemetry(s, ctx, "Register", string(userID), func(ctx context.Context) (playerResult, error) {
		return runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (playerResult, error) {
			return s.registerLogic(ctx, db, guildID, userID, displayName)
		})
	})
	player, err := unwrap(result, err)
	if err != nil {
		return nil, err
	}

	ranks, err := s.ledger.GetRanks(ctx, nil, guildID)
	if err != nil {
		s.logger.WarnContext(ctx, "Could not load ranks for new player sync", "error", err)
	}
	identity.SyncScoreChanges(ctx, s.platform, s.logger, guildID, []ratingdomain.ScoreChange{{
		UserID:      userID,
		DisplayName: player.DisplayName,
		Result: ratingdomain.ScoreResult{
			NewPoints: player.Points,
			NewRank:   ratingdomain.RankFor(player.Points, ranks),
		},
	}})
	return player, nil
}

func (s *RatingService) registerLogic(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, userID sharedtypes.UserID, displayName string) (playerResult, error) {
	if _, err := s.repo.GetPlayer(ctx, db, guildID, userID); err == nil {
		return results.FailureResult[*ratingdomain.Player, error](ratingdomain.ErrAlreadyRegistered), nil
	} else if !errors.Is(err, ratingdb.ErrNotFound) {
		return playerResult{}, fmt.Errorf("failed to check existing player: %w", err)
	}

	if s.entitlements != nil {
		limit, err := s.entitlements.MaxPlayers(ctx, guildID)
		if err != nil {
			return playerResult{}, fmt.Errorf("failed to resolve entitlements: %w", err)
		}
		if limit > 0 {
			count, err := s.repo.CountPlayers(ctx, db, guildID)
			if err != nil {
				return playerResult{}, err
			}
			if count >= limit {
				return results.FailureResult[*ratingdomain.Player, error](
					fmt.Errorf("%w: %d players allowed", ratingdomain.ErrRegistrationLimit, limit)), nil
			}
		}
	}

	row := &ratingdb.Player{
		GuildID:      guildID,
		UserID:       userID,
		DisplayName:  displayName,
		RegisteredAt: s.now().UTC(),
	}
	if err := s.repo.CreatePlayer(ctx, db, row); err != nil {
		return playerResult{}, err
	}
	p := toDomainPlayer(*row)
	return results.SuccessResult[*ratingdomain.Player, error](&p), nil
}

// GetPlayer returns ratingdomain.ErrNotRegistered for unknown users.
func (s *RatingService) GetPlayer(ctx context.Context, guildID sharedtypes.GuildID, userID sharedtypes.UserID) (*ratingdomain.Player, error) {
	result, err := withTelemetry(s, ctx, "GetPlayer", string(userID), func(ctx context.Context) (playerResult, error) {
		p, err := s.ledger.GetPlayer(ctx, nil, guildID, userID)
		if errors.Is(err, ratingdomain.ErrNotRegistered) {
			return results.FailureResult[*ratingdomain.Player, error](err), nil
		}
		if err != nil {
			return playerResult{}, err
		}
		return results.SuccessResult[*ratingdomain.Player, error](p), nil
	})
	return unwrap(result, err)
}

// Rename changes a player's display name and resyncs their nickname.
// The returned strings are platform warnings.
func (s *RatingService) Rename(ctx context.Context, guildID sharedtypes.GuildID, userID sharedtypes.UserID, displayName string) ([]string, error) {
	displayName = strings.TrimSpace(displayName)
	result, err := withTelemetry(s, ctx, "Rename", string(userID), func(ctx context.Context) (playerResult, error) {
		return runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (playerResult, error) {
			if displayName == "" {
				return results.FailureResult[*ratingdomain.Player, error](errors.New("display name cannot be empty")), nil
			}
			err := s.repo.UpdateDisplayName(ctx, db, guildID, userID, displayName)
			if errors.Is(err, ratingdb.ErrNoRowsAffected) {
				return results.FailureResult[*ratingdomain.Player, error](ratingdomain.ErrNotRegistered), nil
			}
			if err != nil {
				return playerResult{}, err
			}
			p, err := s.ledger.GetPlayer(ctx, db, guildID, userID)
			if err != nil {
				return playerResult{}, err
			}
			return results.SuccessResult[*ratingdomain.Player, error](p), nil
		})
	})
	player, err := unwrap(result, err)
	if err != nil {
		return nil, err
	}

	warning := s.syncNickname(ctx, player)
	if warning == "" {
		return nil, nil
	}
	return []string{warning}, nil
}

func (s *RatingService) syncNickname(ctx context.Context, p *ratingdomain.Player) string {
	if s.platform == nil {
		return ""
	}
	err := s.platform.SyncMember(ctx, identity.MemberSync{
		GuildID:  p.GuildID,
		UserID:   p.UserID,
		Nickname: identity.Nickname(p.DisplayName, p.Points),
	})
	if err != nil {
		s.logger.WarnContext(ctx, "Nickname sync failed", "user_id", string(p.UserID), "error", err)
		return fmt.Sprintf("could not update nickname for <@%s>: %v", p.UserID, err)
	}
	return ""
}
