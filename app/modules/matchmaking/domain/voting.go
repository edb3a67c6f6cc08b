package matchmakingdomain

import sharedtypes "github.com/Black-And-White-Club/lobby-bot/app/shared/types"

// Consensus is the state of the vote count after a vote.
type Consensus int

const (
	// ConsensusPending means not enough votes were cast yet.
	ConsensusPending Consensus = iota
	ConsensusWin
	ConsensusDraw
	ConsensusCancel
	// ConsensusLocked means the votes disagreed and the game is now vote-locked.
	ConsensusLocked
)

// VoteOutcome is returned by CastVote. Winner is set for ConsensusWin.
type VoteOutcome struct {
	Consensus Consensus
	Winner    sharedtypes.Team
}

// CastVote records voter's vote and tallies once more than half of the players
// voted. A disagreement locks the game; any other consensus is returned for the
// caller to apply.
func (g *Game) CastVote(voter sharedtypes.UserID, vote Vote, votingEnabled bool) (VoteOutcome, error) {
	if !votingEnabled {
		return VoteOutcome{}, ErrVotingDisabled
	}
	phase, ok := g.Phase.(Undecided)
	if !ok {
		return VoteOutcome{}, ErrGameNotVotable
	}
	if phase.VoteLocked {
		return VoteOutcome{}, ErrVoteLocked
	}
	if !vote.Valid() {
		return VoteOutcome{}, ErrInvalidVote
	}
	if g.Roster.TeamOf(voter) == sharedtypes.NoTeam {
		return VoteOutcome{}, ErrNotAPlayer
	}
	if _, voted := g.Votes[voter]; voted {
		return VoteOutcome{}, ErrAlreadyVoted
	}

	if g.Votes == nil {
		g.Votes = make(map[sharedtypes.UserID]Vote)
	}
	g.Votes[voter] = vote

	out := Tally(g.Votes, g.Roster)
	if out.Consensus == ConsensusLocked {
		g.Phase = Undecided{VoteLocked: true}
	}
	return out, nil
}

// Tally resolves votes against the roster. It stays pending until more than half of
// the rostered players voted.
func Tally(votes map[sharedtypes.UserID]Vote, roster Roster) VoteOutcome {
	total := len(votes)
	if total*2 <= len(roster) {
		return VoteOutcome{Consensus: ConsensusPending}
	}

	var draws, cancels int
	wins := map[sharedtypes.Team]int{}
	for voter, v := range votes {
		team := roster.TeamOf(voter)
		switch v {
		case VoteWin:
			wins[team]++
		case VoteLose:
			wins[team.Other()]++
		case VoteDraw:
			draws++
		case VoteCancel:
			cancels++
		}
	}

	switch total {
	case wins[sharedtypes.TeamOne]:
		return VoteOutcome{Consensus: ConsensusWin, Winner: sharedtypes.TeamOne}
	case wins[sharedtypes.TeamTwo]:
		return VoteOutcome{Consensus: ConsensusWin, Winner: sharedtypes.TeamTwo}
	case draws:
		return VoteOutcome{Consensus: ConsensusDraw}
	case cancels:
		return VoteOutcome{Consensus: ConsensusCancel}
	}
	return VoteOutcome{Consensus: ConsensusLocked}
}
