package ratingservice

import (
	"bytes"
	"context"
	"fmt"

	ratingdomain "github.com/Black-And-White-Club/lobby-bot/app/modules/rating/domain"
	sharedtypes "github.com/Black-And-White-Club/lobby-bot/app/shared/types"
	"github.com/Black-And-White-Club/lobby-bot/internal/results"
	"github.com/xuri/excelize/v2"
)

// LeaderboardQuery selects the leaderboard rows. A non-empty Only restricts the board to
// those users (a lobby-scoped board) and requires FeatureLobbyLeaderboard.
type LeaderboardQuery struct {
	GuildID sharedtypes.GuildID
	Limit   int
	Only    []sharedtypes.UserID
}

// LeaderboardEntry is one ranked row.
type LeaderboardEntry struct {
	Position int
	Player   ratingdomain.Player
	RoleID   sharedtypes.RoleID
}

type leaderboardResult = results.OperationResult[[]LeaderboardEntry, error]

const defaultLeaderboardLimit = 25

// Leaderboard returns players ordered by points.
func (s *RatingService) Leaderboard(ctx context.Context, q LeaderboardQuery) ([]LeaderboardEntry, error) {
	result, err := withTelemetry(s, ctx, "Leaderboard", string(q.GuildID), func(ctx context.Context) (leaderboardResult, error) {
		return s.leaderboardLogic(ctx, q)
	})
	return unwrap(result, err)
}

func (s *RatingService) leaderboardLogic(ctx context.Context, q LeaderboardQuery) (leaderboardResult, error) {
	if len(q.Only) > 0 {
		if gated, err := s.gated(ctx, q.GuildID, FeatureLobbyLeaderboard); err != nil || gated {
			if err != nil {
				return leaderboardResult{}, err
			}
			return results.FailureResult[[]LeaderboardEntry, error](ratingdomain.ErrFeatureGated), nil
		}
	}
	if q.Limit <= 0 {
		q.Limit = defaultLeaderboardLimit
	}

	rows, err := s.repo.ListTopPlayers(ctx, nil, q.GuildID, q.Limit, q.Only)
	if err != nil {
		return leaderboardResult{}, err
	}
	ranks, err := s.ledger.GetRanks(ctx, nil, q.GuildID)
	if err != nil {
		return leaderboardResult{}, err
	}

	entries := make([]LeaderboardEntry, 0, len(rows))
	for i, row := range rows {
		entry := LeaderboardEntry{Position: i + 1, Player: toDomainPlayer(row)}
		if rank := ratingdomain.RankFor(row.Points, ranks); rank != nil {
			entry.RoleID = rank.RoleID
		}
		entries = append(entries, entry)
	}
	return results.SuccessResult[[]LeaderboardEntry, error](entries), nil
}

// ExportLeaderboard renders the leaderboard as an xlsx workbook.
func (s *RatingService) ExportLeaderboard(ctx context.Context, q LeaderboardQuery) ([]byte, error) {
	result, err := withTelemetry(s, ctx, "ExportLeaderboard", string(q.GuildID), func(ctx context.Context) (results.OperationResult[[]byte, error], error) {
		gated, err := s.gated(ctx, q.GuildID, FeatureLeaderboardExport)
		if err != nil {
			return results.OperationResult[[]byte, error]{}, err
		}
		if gated {
			return results.FailureResult[[]byte, error](ratingdomain.ErrFeatureGated), nil
		}

		board, err := s.leaderboardLogic(ctx, q)
		if err != nil {
			return results.OperationResult[[]byte, error]{}, err
		}
		if board.IsFailure() {
			return results.FailureResult[[]byte, error](*board.Failure), nil
		}
		data, err := renderLeaderboard(*board.Success)
		if err != nil {
			return results.OperationResult[[]byte, error]{}, err
		}
		return results.SuccessResult[[]byte, error](data), nil
	})
	return unwrap(result, err)
}

func (s *RatingService) gated(ctx context.Context, guildID sharedtypes.GuildID, feature Feature) (bool, error) {
	if s.entitlements == nil {
		return false, nil
	}
	enabled, err := s.entitlements.FeatureEnabled(ctx, guildID, feature)
	if err != nil {
		return false, fmt.Errorf("failed to resolve entitlements: %w", err)
	}
	return !enabled, nil
}

var leaderboardHeader = []any{"Position", "Player", "User ID", "Points", "Wins", "Losses", "Draws", "Games", "Rank Role"}

func renderLeaderboard(entries []LeaderboardEntry) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Leaderboard"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}
	if err := f.SetSheetRow(sheet, "A1", &leaderboardHeader); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	for i, e := range entries {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := []any{
			e.Position, e.Player.DisplayName, string(e.Player.UserID), e.Player.Points,
			e.Player.Wins, e.Player.Losses, e.Player.Draws, e.Player.GamesPlayed, string(e.RoleID),
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
