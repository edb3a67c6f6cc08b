package ratingdomain

import "math"

// ScoreInput is everything the calculator needs for one player.
type ScoreInput struct {
	Points      int
	Outcome     Outcome
	Ranks       []Rank
	Competition Competition
	Settings    ScoreSettings
}

// ScoreResult is the outcome of a single score computation. Delta is the effective
// signed change actually applied, after clamping.
type ScoreResult struct {
	Delta     int
	OldPoints int
	NewPoints int
	OldRank   *Rank
	NewRank   *Rank
	Change    RankChange
}

// Calculate applies a win or a loss to points.
func Calculate(in ScoreInput) ScoreResult {
	oldRank := RankFor(in.Points, in.Ranks)
	settings := normalize(in.Settings)

	var newPoints int
	switch in.Outcome {
	case OutcomeWin:
		mod := in.Competition.DefaultWinModifier
		if oldRank != nil && oldRank.WinModifier != nil {
			mod = *oldRank.WinModifier
		}
		delta := round(float64(mod) * settings.Multiplier)
		if settings.HighLimit != nil && in.Points > *settings.HighLimit {
			delta = round(float64(delta) * settings.ReductionFactor)
		}
		newPoints = in.Points + delta
	default:
		mod := in.Competition.DefaultLossModifier
		if oldRank != nil && oldRank.LossModifier != nil {
			mod = *oldRank.LossModifier
		}
		delta := mod
		if settings.MultiplyLoss {
			delta = round(float64(mod) * settings.Multiplier)
		}
		newPoints = clamp(in.Points-delta, in.Competition.AllowNegative)
	}

	return result(in.Points, newPoints, in.Ranks)
}

// Revert undoes a previously applied delta. Reverting a loss adds the points back,
// reverting a win takes them away, clamped unless negatives are allowed.
func Revert(points, delta int, ranks []Rank, allowNegative bool) ScoreResult {
	newPoints := points - delta
	if delta > 0 {
		newPoints = clamp(newPoints, allowNegative)
	}
	return result(points, newPoints, ranks)
}

func result(oldPoints, newPoints int, ranks []Rank) ScoreResult {
	oldRank := RankFor(oldPoints, ranks)
	newRank := RankFor(newPoints, ranks)
	return ScoreResult{
		Delta:     newPoints - oldPoints,
		OldPoints: oldPoints,
		NewPoints: newPoints,
		OldRank:   oldRank,
		NewRank:   newRank,
		Change:    classify(oldPoints, newPoints, oldRank, newRank),
	}
}

func classify(oldPoints, newPoints int, oldRank, newRank *Rank) RankChange {
	switch {
	case newPoints > oldPoints:
		if !SameRank(oldRank, newRank) {
			return RankUp
		}
	case newPoints < oldPoints:
		if oldRank != nil && newPoints < oldRank.Threshold {
			return DeRank
		}
	}
	return RankUnchanged
}

func normalize(s ScoreSettings) ScoreSettings {
	if s.Multiplier <= 0 {
		s.Multiplier = 1
	}
	if s.ReductionFactor <= 0 {
		s.ReductionFactor = 1
	}
	return s
}

func clamp(points int, allowNegative bool) int {
	if !allowNegative && points < 0 {
		return 0
	}
	return points
}

func round(v float64) int {
	return int(math.Round(v))
}
