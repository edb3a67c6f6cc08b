package ratingdomain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func intPtr(v int) *int { return &v }

func TestCalculate(t *testing.T) {
	competition := DefaultCompetition("g1")
	bronze := Rank{GuildID: "g1", RoleID: "bronze", Threshold: 10}
	silver := Rank{GuildID: "g1", RoleID: "silver", Threshold: 50, WinModifier: intPtr(6), LossModifier: intPtr(14)}

	tests := []struct {
		name        string
		in          ScoreInput
		wantDelta   int
		wantPoints  int
		wantChange  RankChange
		wantOldRole string
		wantNewRole string
	}{
		{
			name: "first win reaches first rank",
			in: ScoreInput{
				Points:      0,
				Outcome:     OutcomeWin,
				Ranks:       []Rank{bronze},
				Competition: competition,
				Settings:    DefaultScoreSettings(),
			},
			wantDelta:   10,
			wantPoints:  10,
			wantChange:  RankUp,
			wantNewRole: "bronze",
		},
		{
			name: "win without reachable rank stays unranked",
			in: ScoreInput{
				Points:      0,
				Outcome:     OutcomeWin,
				Ranks:       []Rank{{RoleID: "gold", Threshold: 100}},
				Competition: competition,
				Settings:    DefaultScoreSettings(),
			},
			wantDelta:  10,
			wantPoints: 10,
			wantChange: RankUnchanged,
		},
		{
			name: "rank override and multiplier",
			in: ScoreInput{
				Points:      60,
				Outcome:     OutcomeWin,
				Ranks:       []Rank{bronze, silver},
				Competition: competition,
				Settings:    ScoreSettings{Multiplier: 1.5, ReductionFactor: 1},
			},
			wantDelta:   9,
			wantPoints:  69,
			wantChange:  RankUnchanged,
			wantOldRole: "silver",
			wantNewRole: "silver",
		},
		{
			name: "high limit reduction",
			in: ScoreInput{
				Points:      120,
				Outcome:     OutcomeWin,
				Competition: competition,
				Settings:    ScoreSettings{Multiplier: 1, HighLimit: intPtr(100), ReductionFactor: 0.5},
			},
			wantDelta:  5,
			wantPoints: 125,
			wantChange: RankUnchanged,
		},
		{
			name: "high limit not exceeded",
			in: ScoreInput{
				Points:      100,
				Outcome:     OutcomeWin,
				Competition: competition,
				Settings:    ScoreSettings{Multiplier: 1, HighLimit: intPtr(100), ReductionFactor: 0.5},
			},
			wantDelta:  10,
			wantPoints: 110,
			wantChange: RankUnchanged,
		},
		{
			name: "loss clamps at zero",
			in: ScoreInput{
				Points:      5,
				Outcome:     OutcomeLoss,
				Competition: competition,
				Settings:    DefaultScoreSettings(),
			},
			wantDelta:  -5,
			wantPoints: 0,
			wantChange: RankUnchanged,
		},
		{
			name: "loss may go negative when allowed",
			in: ScoreInput{
				Points:      5,
				Outcome:     OutcomeLoss,
				Competition: Competition{DefaultWinModifier: 10, DefaultLossModifier: 10, AllowNegative: true},
				Settings:    DefaultScoreSettings(),
			},
			wantDelta:  -10,
			wantPoints: -5,
			wantChange: RankUnchanged,
		},
		{
			name: "loss below threshold deranks",
			in: ScoreInput{
				Points:      55,
				Outcome:     OutcomeLoss,
				Ranks:       []Rank{bronze, silver},
				Competition: competition,
				Settings:    DefaultScoreSettings(),
			},
			wantDelta:   -14,
			wantPoints:  41,
			wantChange:  DeRank,
			wantOldRole: "silver",
			wantNewRole: "bronze",
		},
		{
			name: "multiply loss",
			in: ScoreInput{
				Points:      40,
				Outcome:     OutcomeLoss,
				Competition: competition,
				Settings:    ScoreSettings{Multiplier: 2, ReductionFactor: 1, MultiplyLoss: true},
			},
			wantDelta:  -20,
			wantPoints: 20,
			wantChange: RankUnchanged,
		},
		{
			name: "multiplier ignored for loss without flag",
			in: ScoreInput{
				Points:      40,
				Outcome:     OutcomeLoss,
				Competition: competition,
				Settings:    ScoreSettings{Multiplier: 2, ReductionFactor: 1},
			},
			wantDelta:  -10,
			wantPoints: 30,
			wantChange: RankUnchanged,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Calculate(tt.in)
			assert.Equal(t, tt.wantDelta, got.Delta)
			assert.Equal(t, tt.wantPoints, got.NewPoints)
			assert.Equal(t, tt.in.Points, got.OldPoints)
			assert.Equal(t, tt.wantChange, got.Change)
			assert.Equal(t, tt.wantOldRole, roleOf(got.OldRank))
			assert.Equal(t, tt.wantNewRole, roleOf(got.NewRank))
		})
	}
}

func TestRevertIsInverse(t *testing.T) {
	ranks := []Rank{{RoleID: "bronze", Threshold: 10}, {RoleID: "silver", Threshold: 30}}
	competition := DefaultCompetition("g1")

	for _, points := range []int{0, 3, 9, 10, 25, 31, 80} {
		for _, outcome := range []Outcome{OutcomeWin, OutcomeLoss} {
			applied := Calculate(ScoreInput{
				Points:      points,
				Outcome:     outcome,
				Ranks:       ranks,
				Competition: competition,
				Settings:    DefaultScoreSettings(),
			})
			reverted := Revert(applied.NewPoints, applied.Delta, ranks, competition.AllowNegative)

			assert.Equal(t, points, reverted.NewPoints, "points=%d outcome=%s", points, outcome)
			assert.True(t, SameRank(applied.OldRank, reverted.NewRank), "points=%d outcome=%s", points, outcome)
		}
	}
}

func TestRevertClassification(t *testing.T) {
	ranks := []Rank{{RoleID: "bronze", Threshold: 10}}

	undoWin := Revert(12, 10, ranks, false)
	assert.Equal(t, 2, undoWin.NewPoints)
	assert.Equal(t, DeRank, undoWin.Change)

	undoLoss := Revert(2, -10, ranks, false)
	assert.Equal(t, 12, undoLoss.NewPoints)
	assert.Equal(t, RankUp, undoLoss.Change)

	clamped := Revert(4, 10, nil, false)
	assert.Equal(t, 0, clamped.NewPoints)
	assert.Equal(t, -4, clamped.Delta)
}

func TestRankFor(t *testing.T) {
	ranks := []Rank{{RoleID: "gold", Threshold: 100}, {RoleID: "bronze", Threshold: 0}, {RoleID: "silver", Threshold: 50}}

	assert.Nil(t, RankFor(-1, ranks))
	assert.Equal(t, "bronze", roleOf(RankFor(0, ranks)))
	assert.Equal(t, "silver", roleOf(RankFor(99, ranks)))
	assert.Equal(t, "gold", roleOf(RankFor(100, ranks)))
	assert.Nil(t, RankFor(100, nil))

	sorted := SortRanks(ranks)
	assert.Equal(t, []int{0, 50, 100}, []int{sorted[0].Threshold, sorted[1].Threshold, sorted[2].Threshold})
}

func roleOf(r *Rank) string {
	if r == nil {
		return ""
	}
	return string(r.RoleID)
}
