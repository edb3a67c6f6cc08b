package ratingdomain

import (
	"time"

	sharedtypes "github.com/Black-And-White-Club/lobby-bot/app/shared/types"
)

// Player is a registered player's rating profile.
type Player struct {
	GuildID      sharedtypes.GuildID
	UserID       sharedtypes.UserID
	DisplayName  string
	Points       int
	Wins         int
	Losses       int
	Draws        int
	GamesPlayed  int
	RegisteredAt time.Time
}

// PlayerOutcome asks the ledger to score one player.
type PlayerOutcome struct {
	UserID  sharedtypes.UserID
	Outcome Outcome
}

// Reversal asks the ledger to undo one recorded delta.
type Reversal struct {
	UserID  sharedtypes.UserID
	Outcome Outcome
	Delta   int
}

// ScoreChange is the applied result for one player, kept for announcements and role sync.
type ScoreChange struct {
	UserID      sharedtypes.UserID
	DisplayName string
	Outcome     Outcome
	Result      ScoreResult
}

// Ban suspends a player from matchmaking in one guild.
type Ban struct {
	ID          int64
	GuildID     sharedtypes.GuildID
	UserID      sharedtypes.UserID
	StartedAt   time.Time
	Length      time.Duration
	ModeratorID sharedtypes.UserID
	Reason      string
	Overridden  bool
}

// ExpiresAt is the moment the ban lapses on its own.
func (b Ban) ExpiresAt() time.Time {
	return b.StartedAt.Add(b.Length)
}

// Active reports whether the ban still blocks queueing at now.
func (b Ban) Active(now time.Time) bool {
	return !b.Overridden && now.Before(b.ExpiresAt())
}
