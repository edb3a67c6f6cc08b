package matchmakingdomain

import (
	"slices"
	"time"

	ratingdomain "github.com/Black-And-White-Club/lobby-bot/app/modules/rating/domain"
	sharedtypes "github.com/Black-And-White-Club/lobby-bot/app/shared/types"
)

// State is the persisted name of a game phase.
type State string

const (
	StatePicking   State = "picking"
	StateUndecided State = "undecided"
	StateDecided   State = "decided"
	StateDraw      State = "draw"
	StateCanceled  State = "canceled"
)

// Phase is the lifecycle position of a game. The concrete types are Picking,
// Undecided, Decided, Drawn and Canceled.
type Phase interface {
	State() State
	phase()
}

// Picking games wait for captains to assemble the teams.
type Picking struct{}

// Undecided games are being played or wait for a result.
type Undecided struct {
	// VoteLocked is set once player votes disagreed. Only a moderator
	// submission or an undo resolves the game afterwards.
	VoteLocked bool
}

// Resolution records who closed a game and why.
type Resolution struct {
	By      sharedtypes.UserID
	Comment string
	At      time.Time
}

// Decided games have a winner and recorded score deltas.
type Decided struct {
	Winner sharedtypes.Team
	Resolution
}

// Drawn games bumped every player's draw counter.
type Drawn struct {
	Resolution
}

// Canceled games had no score effect.
type Canceled struct {
	Resolution
}

func (Picking) State() State   { return StatePicking }
func (Undecided) State() State { return StateUndecided }
func (Decided) State() State   { return StateDecided }
func (Drawn) State() State     { return StateDraw }
func (Canceled) State() State  { return StateCanceled }

func (Picking) phase()   {}
func (Undecided) phase() {}
func (Decided) phase()   {}
func (Drawn) phase()     {}
func (Canceled) phase()  {}

// Member places a player on a team of a game.
type Member struct {
	UserID  sharedtypes.UserID
	Team    sharedtypes.Team
	Captain bool
}

// Roster is the team membership of a game.
type Roster []Member

// TeamOf returns the player's team or NoTeam.
func (r Roster) TeamOf(userID sharedtypes.UserID) sharedtypes.Team {
	for _, m := range r {
		if m.UserID == userID {
			return m.Team
		}
	}
	return sharedtypes.NoTeam
}

// Captain returns the captain of team, or "" when the game has no captains.
func (r Roster) Captain(team sharedtypes.Team) sharedtypes.UserID {
	for _, m := range r {
		if m.Team == team && m.Captain {
			return m.UserID
		}
	}
	return ""
}

// IsCaptain reports whether userID captains either team.
func (r Roster) IsCaptain(userID sharedtypes.UserID) bool {
	for _, m := range r {
		if m.UserID == userID {
			return m.Captain
		}
	}
	return false
}

// Team returns the members of team in roster order.
func (r Roster) Team(team sharedtypes.Team) []sharedtypes.UserID {
	var out []sharedtypes.UserID
	for _, m := range r {
		if m.Team == team {
			out = append(out, m.UserID)
		}
	}
	return out
}

// Players returns every rostered player.
func (r Roster) Players() []sharedtypes.UserID {
	out := make([]sharedtypes.UserID, 0, len(r))
	for _, m := range r {
		out = append(out, m.UserID)
	}
	return out
}

// PlayerScore is the delta recorded for one player of a decided game.
type PlayerScore struct {
	UserID  sharedtypes.UserID
	Outcome ratingdomain.Outcome
	Delta   int
}

// Game is one match formed from a lobby queue.
type Game struct {
	Lobby     sharedtypes.LobbyKey
	Number    sharedtypes.GameNumber
	Phase     Phase
	PickMode  PickMode
	PickOrder PickOrder
	Picks     int
	Roster    Roster
	Map       string
	Scores    []PlayerScore
	Votes     map[sharedtypes.UserID]Vote
	CreatedAt time.Time
	// Legacy games were imported without score deltas and cannot be undone.
	Legacy bool
}

// Active reports whether the game still blocks a new game in its lobby.
func (g *Game) Active() bool {
	switch g.Phase.(type) {
	case Picking, Undecided:
		return true
	case Decided, Drawn, Canceled:
		return false
	default:
		panic("matchmaking: unknown game phase")
	}
}

// Size is the combined headcount of both teams.
func (g *Game) Size() int {
	return len(g.Roster)
}

// Decide records winner as the result. Only undecided games can be decided; a vote
// lock does not prevent it.
func (g *Game) Decide(winner sharedtypes.Team, res Resolution, scores []PlayerScore) error {
	if !winner.Valid() {
		return ErrInvalidTeam
	}
	if _, ok := g.Phase.(Undecided); !ok {
		return g.notUndecided()
	}
	g.Phase = Decided{Winner: winner, Resolution: res}
	g.Scores = scores
	return nil
}

// Draw closes an undecided game without a winner.
func (g *Game) Draw(res Resolution) error {
	if _, ok := g.Phase.(Undecided); !ok {
		return g.notUndecided()
	}
	g.Phase = Drawn{Resolution: res}
	return nil
}

// Cancel closes a picking or undecided game with no score effect. It reports whether
// the game was still picking, in which case the caller discards the lobby queue.
func (g *Game) Cancel(res Resolution) (wasPicking bool, err error) {
	switch g.Phase.(type) {
	case Picking:
		g.Phase = Canceled{Resolution: res}
		return true, nil
	case Undecided:
		g.Phase = Canceled{Resolution: res}
		return false, nil
	case Decided, Drawn, Canceled:
		return false, ErrGameFinished
	default:
		panic("matchmaking: unknown game phase")
	}
}

// Undo returns a decided game to undecided. The returned scores are the deltas the
// caller must revert.
func (g *Game) Undo() ([]PlayerScore, error) {
	if _, ok := g.Phase.(Decided); !ok {
		return nil, ErrGameNotDecided
	}
	if g.Legacy {
		return nil, ErrLegacyGame
	}
	scores := slices.Clone(g.Scores)
	g.Phase = Undecided{}
	g.Scores = nil
	g.Votes = nil
	return scores, nil
}

// Outcomes assigns win and loss to every rostered player for winner.
func (g *Game) Outcomes(winner sharedtypes.Team) []ratingdomain.PlayerOutcome {
	out := make([]ratingdomain.PlayerOutcome, 0, len(g.Roster))
	for _, m := range g.Roster {
		outcome := ratingdomain.OutcomeLoss
		if m.Team == winner {
			outcome = ratingdomain.OutcomeWin
		}
		out = append(out, ratingdomain.PlayerOutcome{UserID: m.UserID, Outcome: outcome})
	}
	return out
}

func (g *Game) notUndecided() error {
	switch g.Phase.(type) {
	case Picking:
		return ErrGamePicking
	case Decided, Drawn, Canceled:
		return ErrGameNotUndecided
	default:
		panic("matchmaking: unknown game phase")
	}
}
