package ratingdomain

import (
	"slices"
	"time"

	sharedtypes "github.com/Black-And-White-Club/lobby-bot/app/shared/types"
)

// Outcome is the side of a result a player ended up on.
type Outcome string

const (
	OutcomeWin  Outcome = "win"
	OutcomeLoss Outcome = "loss"
)

// RankChange classifies the effect of a score change on a player's rank.
type RankChange string

const (
	RankUnchanged RankChange = "none"
	RankUp        RankChange = "rank_up"
	DeRank        RankChange = "derank"
)

// Rank binds a guild role to a point threshold. Nil modifiers fall back to the
// competition defaults.
type Rank struct {
	GuildID      sharedtypes.GuildID
	RoleID       sharedtypes.RoleID
	Threshold    int
	WinModifier  *int
	LossModifier *int
}

// Competition is the guild-wide scoring and queueing policy.
type Competition struct {
	GuildID             sharedtypes.GuildID
	DefaultWinModifier  int
	DefaultLossModifier int
	AllowNegative       bool
	AllowMultiQueue     bool
	RequeueDelay        time.Duration
	VotingEnabled       bool
}

const (
	DefaultWinModifier  = 10
	DefaultLossModifier = 10
)

// DefaultCompetition is used for guilds that never configured one.
func DefaultCompetition(guildID sharedtypes.GuildID) Competition {
	return Competition{
		GuildID:             guildID,
		DefaultWinModifier:  DefaultWinModifier,
		DefaultLossModifier: DefaultLossModifier,
	}
}

// ScoreSettings are the lobby-level multipliers applied on top of the modifiers.
// ReductionFactor scales wins of players above HighLimit; 0.5 halves them.
type ScoreSettings struct {
	Multiplier      float64
	HighLimit       *int
	ReductionFactor float64
	MultiplyLoss    bool
}

// DefaultScoreSettings applies modifiers unchanged.
func DefaultScoreSettings() ScoreSettings {
	return ScoreSettings{Multiplier: 1, ReductionFactor: 1}
}

// SortRanks orders ranks by ascending threshold.
func SortRanks(ranks []Rank) []Rank {
	out := slices.Clone(ranks)
	slices.SortStableFunc(out, func(a, b Rank) int { return a.Threshold - b.Threshold })
	return out
}

// RankFor returns the highest-threshold rank whose threshold does not exceed points.
func RankFor(points int, ranks []Rank) *Rank {
	var best *Rank
	for i := range ranks {
		r := &ranks[i]
		if r.Threshold > points {
			continue
		}
		if best == nil || r.Threshold > best.Threshold {
			best = r
		}
	}
	if best == nil {
		return nil
	}
	found := *best
	return &found
}

// SameRank reports whether a and b denote the same rank (both nil counts as same).
func SameRank(a, b *Rank) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.RoleID == b.RoleID
}
