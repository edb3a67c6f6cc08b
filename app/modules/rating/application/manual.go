package ratingservice

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	ratingdomain "github.com/Black-And-White-Club/lobby-bot/app/modules/rating/domain"
	ratingdb "github.com/Black-And-White-Club/lobby-bot/app/modules/rating/infrastructure/repositories"
	"github.com/Black-And-White-Club/lobby-bot/app/shared/identity"
	sharedtypes "github.com/Black-And-White-Club/lobby-bot/app/shared/types"
	"github.com/Black-And-White-Club/lobby-bot/internal/results"
	"github.com/elliotchance/pie/v2"
	"github.com/uptrace/bun"
)

// ManualGameRequest is a moderator's out-of-band win/lose adjustment.
type ManualGameRequest struct {
	GuildID     sharedtypes.GuildID
	ModeratorID sharedtypes.UserID
	Winners     []sharedtypes.UserID
	Losers      []sharedtypes.UserID
}

// ManualGameResult reports the applied (or reverted) changes.
type ManualGameResult struct {
	Number   int64
	Changes  []ratingdomain.ScoreChange
	Warnings []string
}

type manualResult = results.OperationResult[*ManualGameResult, error]

// RecordManualGame applies wins and losses outside any lobby.
func (s *RatingService) RecordManualGame(ctx context.Context, req ManualGameRequest) (*ManualGameResult, error) {
	result, err := withTelemetry(s, ctx, "RecordManualGame", string(req.GuildID), func(ctx context.Context) (manualResult, error) {
		return runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (manualResult, error) {
			return s.recordManualGameLogic(ctx, db, req)
		})
	})
	res, err := unwrap(result, err)
	if err != nil {
		return nil, err
	}
	res.Warnings = identity.SyncScoreChanges(ctx, s.platform, s.logger, req.GuildID, res.Changes)
	return res, nil
}

func (s *RatingService) recordManualGameLogic(ctx context.Context, db bun.IDB, req ManualGameRequest) (manualResult, error) {
	everyone := append(append([]sharedtypes.UserID{}, req.Winners...), req.Losers...)
	if len(everyone) == 0 {
		return results.FailureResult[*ManualGameResult, error](ratingdomain.ErrNoPlayers), nil
	}
	if len(pie.Unique(everyone)) != len(everyone) {
		return results.FailureResult[*ManualGameResult, error](ratingdomain.ErrDuplicatePlayer), nil
	}

	outcomes := make([]ratingdomain.PlayerOutcome, 0, len(everyone))
	for _, id := range req.Winners {
		outcomes = append(outcomes, ratingdomain.PlayerOutcome{UserID: id, Outcome: ratingdomain.OutcomeWin})
	}
	for _, id := range req.Losers {
		outcomes = append(outcomes, ratingdomain.PlayerOutcome{UserID: id, Outcome: ratingdomain.OutcomeLoss})
	}

	number, err := s.repo.NextManualGameNumber(ctx, db, req.GuildID)
	if err != nil {
		return manualResult{}, err
	}

	changes, err := s.ledger.ApplyOutcomes(ctx, db, req.GuildID, ratingdomain.DefaultScoreSettings(), outcomes)
	if errors.Is(err, ratingdomain.ErrNotRegistered) {
		return results.FailureResult[*ManualGameResult, error](err), nil
	}
	if err != nil {
		return manualResult{}, err
	}

	updates := make([]ratingdb.ScoreUpdate, 0, len(changes))
	for _, c := range changes {
		updates = append(updates, ratingdb.ScoreUpdate{
			GuildID:          req.GuildID,
			ManualGameNumber: number,
			UserID:           c.UserID,
			Outcome:          string(c.Outcome),
			Delta:            c.Result.Delta,
		})
	}
	if err := s.repo.CreateManualGame(ctx, db, &ratingdb.ManualGame{
		GuildID:   req.GuildID,
		Number:    number,
		CreatedBy: req.ModeratorID,
		CreatedAt: s.now().UTC(),
	}, updates); err != nil {
		return manualResult{}, err
	}

	return results.SuccessResult[*ManualGameResult, error](&ManualGameResult{Number: number, Changes: changes}), nil
}

// UndoManualGame reverses every score update of a manual game.
func (s *RatingService) UndoManualGame(ctx context.Context, guildID sharedtypes.GuildID, number int64) (*ManualGameResult, error) {
	result, err := withTelemetry(s, ctx, "UndoManualGame", strconv.FormatInt(number, 10), func(ctx context.Context) (manualResult, error) {
		return runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (manualResult, error) {
			return s.undoManualGameLogic(ctx, db, guildID, number)
		})
	})
	res, err := unwrap(result, err)
	if err != nil {
		return nil, err
	}
	res.Warnings = identity.SyncScoreChanges(ctx, s.platform, s.logger, guildID, res.Changes)
	return res, nil
}

func (s *RatingService) undoManualGameLogic(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, number int64) (manualResult, error) {
	game, updates, err := s.repo.GetManualGame(ctx, db, guildID, number)
	if errors.Is(err, ratingdb.ErrNotFound) {
		return results.FailureResult[*ManualGameResult, error](ratingdomain.ErrManualGameNotFound), nil
	}
	if err != nil {
		return manualResult{}, err
	}
	if game.UndoneAt != nil {
		return results.FailureResult[*ManualGameResult, error](ratingdomain.ErrManualGameUndone), nil
	}

	reversals := pie.Map(updates, func(u ratingdb.ScoreUpdate) ratingdomain.Reversal {
		return ratingdomain.Reversal{UserID: u.UserID, Outcome: ratingdomain.Outcome(u.Outcome), Delta: u.Delta}
	})
	changes, err := s.ledger.RevertOutcomes(ctx, db, guildID, reversals)
	if err != nil {
		return manualResult{}, fmt.Errorf("failed to revert manual game %d: %w", number, err)
	}
	if err := s.repo.MarkManualGameUndone(ctx, db, guildID, number, s.now().UTC()); err != nil {
		return manualResult{}, err
	}
	return results.SuccessResult[*ManualGameResult, error](&ManualGameResult{Number: number, Changes: changes}), nil
}
