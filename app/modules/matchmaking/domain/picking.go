package matchmakingdomain

import (
	"slices"

	sharedtypes "github.com/Black-And-White-Club/lobby-bot/app/shared/types"
	"github.com/elliotchance/pie/v2"
)

// PickTurn returns the team whose captain picks at the given pick counter and how
// many players that captain must name.
func PickTurn(order PickOrder, picks int) (sharedtypes.Team, int) {
	if order == PickTwo {
		switch picks {
		case 0:
			return sharedtypes.TeamOne, 1
		case 1:
			return sharedtypes.TeamTwo, 2
		case 2:
			return sharedtypes.TeamOne, 2
		}
	}
	if picks%2 == 1 {
		return sharedtypes.TeamTwo, 1
	}
	return sharedtypes.TeamOne, 1
}

// PickResult reports what a successful pick changed.
type PickResult struct {
	Team         sharedtypes.Team
	Picked       []sharedtypes.UserID
	AutoAssigned sharedtypes.UserID
	AutoTeam     sharedtypes.Team
	// Complete is set when every queued player is on a team and the game moved to Undecided.
	Complete bool
}

// Pick adds players to the acting captain's team. queue is the lobby queue the game
// was formed from.
func (g *Game) Pick(captain sharedtypes.UserID, players []sharedtypes.UserID, queue []sharedtypes.UserID) (PickResult, error) {
	if _, ok := g.Phase.(Picking); !ok {
		return PickResult{}, ErrGameNotPicking
	}
	team, count := PickTurn(g.PickOrder, g.Picks)
	if g.Roster.Captain(team) != captain {
		return PickResult{}, ErrWrongTurn
	}

	pool := g.unpicked(queue)
	if count > len(pool) {
		count = len(pool)
	}
	if len(players) != count {
		return PickResult{}, ErrWrongPickCount
	}
	for i, id := range players {
		switch {
		case g.Roster.IsCaptain(id):
			return PickResult{}, ErrCannotPickCaptain
		case g.Roster.TeamOf(id) != sharedtypes.NoTeam || slices.Contains(players[:i], id):
			return PickResult{}, ErrPlayerAlreadyPicked
		case !slices.Contains(queue, id):
			return PickResult{}, ErrPlayerNotQueued
		}
	}

	for _, id := range players {
		g.Roster = append(g.Roster, Member{UserID: id, Team: team})
	}
	g.Picks++
	res := PickResult{Team: team, Picked: slices.Clone(players)}

	pool = g.unpicked(queue)
	if len(pool) == 1 {
		next, _ := PickTurn(g.PickOrder, g.Picks)
		g.Roster = append(g.Roster, Member{UserID: pool[0], Team: next})
		res.AutoAssigned, res.AutoTeam = pool[0], next
		pool = nil
	}
	if len(pool) == 0 {
		g.Phase = Undecided{}
		res.Complete = true
	}
	return res, nil
}

// Unpicked lists queued players that are on neither team.
func (g *Game) Unpicked(queue []sharedtypes.UserID) []sharedtypes.UserID {
	return g.unpicked(queue)
}

func (g *Game) unpicked(queue []sharedtypes.UserID) []sharedtypes.UserID {
	return pie.Filter(queue, func(id sharedtypes.UserID) bool {
		return g.Roster.TeamOf(id) == sharedtypes.NoTeam
	})
}
