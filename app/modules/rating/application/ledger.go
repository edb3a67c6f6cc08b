package ratingservice

import (
	"context"
	"errors"
	"fmt"
	"time"

	ratingdomain "github.com/Black-And-White-Club/lobby-bot/app/modules/rating/domain"
	ratingdb "github.com/Black-And-White-Club/lobby-bot/app/modules/rating/infrastructure/repositories"
	sharedtypes "github.com/Black-And-White-Club/lobby-bot/app/shared/types"
	"github.com/elliotchance/pie/v2"
	"github.com/uptrace/bun"
)

// Ledger reads and mutates player ratings inside a caller-owned transaction.
// Matchmaking uses it so game records and player scores commit together.
type Ledger struct {
	repo ratingdb.Repository
}

// NewLedger creates a Ledger over repo.
func NewLedger(repo ratingdb.Repository) *Ledger {
	return &Ledger{repo: repo}
}

// GetPlayer returns ratingdomain.ErrNotRegistered for unknown users.
func (l *Ledger) GetPlayer(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, userID sharedtypes.UserID) (*ratingdomain.Player, error) {
	row, err := l.repo.GetPlayer(ctx, db, guildID, userID)
	if err != nil {
		if errors.Is(err, ratingdb.ErrNotFound) {
			return nil, ratingdomain.ErrNotRegistered
		}
		return nil, err
	}
	p := toDomainPlayer(*row)
	return &p, nil
}

// GetPlayers returns the registered subset of userIDs keyed by user.
func (l *Ledger) GetPlayers(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, userIDs []sharedtypes.UserID) (map[sharedtypes.UserID]ratingdomain.Player, error) {
	rows, err := l.repo.GetPlayers(ctx, db, guildID, userIDs)
	if err != nil {
		return nil, err
	}
	out := make(map[sharedtypes.UserID]ratingdomain.Player, len(rows))
	for _, row := range rows {
		out[row.UserID] = toDomainPlayer(row)
	}
	return out, nil
}

// GetCompetition falls back to the defaults when the guild has no settings row.
func (l *Ledger) GetCompetition(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID) (ratingdomain.Competition, error) {
	row, err := l.repo.GetCompetition(ctx, db, guildID)
	if err != nil {
		if errors.Is(err, ratingdb.ErrNotFound) {
			return ratingdomain.DefaultCompetition(guildID), nil
		}
		return ratingdomain.Competition{}, err
	}
	return toDomainCompetition(*row), nil
}

// GetRanks returns the guild's ranks ordered by threshold.
func (l *Ledger) GetRanks(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID) ([]ratingdomain.Rank, error) {
	rows, err := l.repo.ListRanks(ctx, db, guildID)
	if err != nil {
		return nil, err
	}
	return ratingdomain.SortRanks(pie.Map(rows, toDomainRank)), nil
}

// ActiveBan returns the ban blocking userID at now, or nil.
func (l *Ledger) ActiveBan(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, userID sharedtypes.UserID, now time.Time) (*ratingdomain.Ban, error) {
	rows, err := l.repo.ListBans(ctx, db, guildID, userID)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		ban := toDomainBan(row)
		if ban.Active(now) {
			return &ban, nil
		}
	}
	return nil, nil
}

// ApplyOutcomes scores every player and persists points and counters.
// All players must be registered.
func (l *Ledger) ApplyOutcomes(
	ctx context.Context,
	db bun.IDB,
	guildID sharedtypes.GuildID,
	settings ratingdomain.ScoreSettings,
	outcomes []ratingdomain.PlayerOutcome,
) ([]ratingdomain.ScoreChange, error) {
	competition, err := l.GetCompetition(ctx, db, guildID)
	if err != nil {
		return nil, err
	}
	ranks, err := l.GetRanks(ctx, db, guildID)
	if err != nil {
		return nil, err
	}
	players, err := l.loadAll(ctx, db, guildID, pie.Map(outcomes, func(o ratingdomain.PlayerOutcome) sharedtypes.UserID { return o.UserID }))
	if err != nil {
		return nil, err
	}

	changes := make([]ratingdomain.ScoreChange, 0, len(outcomes))
	for _, o := range outcomes {
		row := players[o.UserID]
		res := ratingdomain.Calculate(ratingdomain.ScoreInput{
			Points:      row.Points,
			Outcome:     o.Outcome,
			Ranks:       ranks,
			Competition: competition,
			Settings:    settings,
		})

		row.Points = res.NewPoints
		row.GamesPlayed++
		if o.Outcome == ratingdomain.OutcomeWin {
			row.Wins++
		} else {
			row.Losses++
		}
		if err := l.repo.SaveScore(ctx, db, row); err != nil {
			return nil, err
		}
		changes = append(changes, ratingdomain.ScoreChange{
			UserID:      o.UserID,
			DisplayName: row.DisplayName,
			Outcome:     o.Outcome,
			Result:      res,
		})
	}
	return changes, nil
}

// RevertOutcomes undoes recorded deltas and their result counters.
func (l *Ledger) RevertOutcomes(
	ctx context.Context,
	db bun.IDB,
	guildID sharedtypes.GuildID,
	reversals []ratingdomain.Reversal,
) ([]ratingdomain.ScoreChange, error) {
	competition, err := l.GetCompetition(ctx, db, guildID)
	if err != nil {
		return nil, err
	}
	ranks, err := l.GetRanks(ctx, db, guildID)
	if err != nil {
		return nil, err
	}
	players, err := l.loadAll(ctx, db, guildID, pie.Map(reversals, func(r ratingdomain.Reversal) sharedtypes.UserID { return r.UserID }))
	if err != nil {
		return nil, err
	}

	changes := make([]ratingdomain.ScoreChange, 0, len(reversals))
	for _, rv := range reversals {
		row := players[rv.UserID]
		res := ratingdomain.Revert(row.Points, rv.Delta, ranks, competition.AllowNegative)

		row.Points = res.NewPoints
		row.GamesPlayed = decrement(row.GamesPlayed)
		if rv.Outcome == ratingdomain.OutcomeWin {
			row.Wins = decrement(row.Wins)
		} else {
			row.Losses = decrement(row.Losses)
		}
		if err := l.repo.SaveScore(ctx, db, row); err != nil {
			return nil, err
		}
		changes = append(changes, ratingdomain.ScoreChange{
			UserID:      rv.UserID,
			DisplayName: row.DisplayName,
			Outcome:     rv.Outcome,
			Result:      res,
		})
	}
	return changes, nil
}

// RecordDraws bumps the draw and games-played counters without touching points.
func (l *Ledger) RecordDraws(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, userIDs []sharedtypes.UserID) error {
	players, err := l.loadAll(ctx, db, guildID, userIDs)
	if err != nil {
		return err
	}
	for _, userID := range userIDs {
		row := players[userID]
		row.Draws++
		row.GamesPlayed++
		if err := l.repo.SaveScore(ctx, db, row); err != nil {
			return err
		}
	}
	return nil
}

func (l *Ledger) loadAll(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, userIDs []sharedtypes.UserID) (map[sharedtypes.UserID]*ratingdb.Player, error) {
	rows, err := l.repo.GetPlayers(ctx, db, guildID, userIDs)
	if err != nil {
		return nil, err
	}
	byUser := make(map[sharedtypes.UserID]*ratingdb.Player, len(rows))
	for i := range rows {
		byUser[rows[i].UserID] = &rows[i]
	}
	for _, id := range userIDs {
		if _, ok := byUser[id]; !ok {
			return nil, fmt.Errorf("%w: %s", ratingdomain.ErrNotRegistered, id)
		}
	}
	return byUser, nil
}

func decrement(v int) int {
	if v <= 0 {
		return 0
	}
	return v - 1
}

func toDomainPlayer(p ratingdb.Player) ratingdomain.Player {
	return ratingdomain.Player{
		GuildID:      p.GuildID,
		UserID:       p.UserID,
		DisplayName:  p.DisplayName,
		Points:       p.Points,
		Wins:         p.Wins,
		Losses:       p.Losses,
		Draws:        p.Draws,
		GamesPlayed:  p.GamesPlayed,
		RegisteredAt: p.RegisteredAt,
	}
}

func toDomainRank(r ratingdb.Rank) ratingdomain.Rank {
	return ratingdomain.Rank{
		GuildID:      r.GuildID,
		RoleID:       r.RoleID,
		Threshold:    r.Threshold,
		WinModifier:  r.WinModifier,
		LossModifier: r.LossModifier,
	}
}

func toDomainCompetition(c ratingdb.Competition) ratingdomain.Competition {
	return ratingdomain.Competition{
		GuildID:             c.GuildID,
		DefaultWinModifier:  c.DefaultWinModifier,
		DefaultLossModifier: c.DefaultLossModifier,
		AllowNegative:       c.AllowNegative,
		AllowMultiQueue:     c.AllowMultiQueue,
		RequeueDelay:        time.Duration(c.RequeueDelaySeconds) * time.Second,
		VotingEnabled:       c.VotingEnabled,
	}
}

func toDomainBan(b ratingdb.Ban) ratingdomain.Ban {
	return ratingdomain.Ban{
		ID:          b.ID,
		GuildID:     b.GuildID,
		UserID:      b.UserID,
		StartedAt:   b.StartedAt,
		Length:      time.Duration(b.LengthSeconds) * time.Second,
		ModeratorID: b.ModeratorID,
		Reason:      b.Reason,
		Overridden:  b.Overridden,
	}
}
