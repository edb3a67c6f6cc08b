package matchmakingdomain

import (
	"cmp"
	"math/rand/v2"
	"slices"

	sharedtypes "github.com/Black-And-White-Club/lobby-bot/app/shared/types"
	"github.com/elliotchance/pie/v2"
)

// FormationInput is the queue snapshot a game is formed from.
type FormationInput struct {
	Queue          []QueuedPlayer
	Points         map[sharedtypes.UserID]int
	Parties        [][]sharedtypes.UserID
	PlayersPerTeam int
	Mode           PickMode
	Rand           *rand.Rand
}

// Formation is the team setup of a new game. Captain modes only place the two
// captains and start in Picking.
type Formation struct {
	Mode     PickMode
	Roster   Roster
	Picking  bool
	Warnings []string
}

const captainDowngradeWarning = "Captain modes need at least two players per team; teams were formed randomly."

// Form runs the configured formation algorithm.
func Form(in FormationInput) (Formation, error) {
	if in.PlayersPerTeam < 1 || len(in.Queue) != 2*in.PlayersPerTeam {
		return Formation{}, ErrQueueSize
	}
	if !in.Mode.Valid() {
		return Formation{}, ErrInvalidLobbySettings
	}
	userIDs := pie.Map(in.Queue, func(q QueuedPlayer) sharedtypes.UserID { return q.UserID })
	if len(pie.Unique(userIDs)) != len(userIDs) {
		return Formation{}, ErrQueueSize
	}

	mode := in.Mode
	var warnings []string
	if mode.Captains() && in.PlayersPerTeam == 1 {
		mode = PickModeRandom
		warnings = append(warnings, captainDowngradeWarning)
	}

	f := Formation{Mode: mode, Warnings: warnings}
	switch mode {
	case PickModeRandom:
		f.Roster = formRandom(userIDs, in.Parties, in.PlayersPerTeam, in.Rand)
	case PickModeTryBalance:
		f.Roster = formBalanced(byPoints(userIDs, in.Points))
	case PickModeCaptainsRandom:
		f.Roster = captains(pickRandom(userIDs, in.Rand))
		f.Picking = true
	case PickModeCaptainsHighestRanked:
		ranked := byPoints(userIDs, in.Points)
		f.Roster = captains(ranked[0], ranked[1])
		f.Picking = true
	case PickModeCaptainsRandomHighestRanked:
		pool := userIDs
		if len(userIDs) >= 4 {
			pool = byPoints(userIDs, in.Points)[:4]
		}
		f.Roster = captains(pickRandom(pool, in.Rand))
		f.Picking = true
	}
	return f, nil
}

// formRandom keeps fully queued parties together, alternating the target team per
// party, then fills the rest at random into the smaller team.
func formRandom(queue []sharedtypes.UserID, parties [][]sharedtypes.UserID, ppt int, r *rand.Rand) Roster {
	groups := slices.Clone(parties)
	r.Shuffle(len(groups), func(i, j int) { groups[i], groups[j] = groups[j], groups[i] })

	var roster Roster
	counts := map[sharedtypes.Team]int{}
	placed := make(map[sharedtypes.UserID]bool, len(queue))
	target := sharedtypes.TeamOne

	for _, group := range groups {
		members := group
		if len(members) == 0 || !allAvailable(members, queue, placed) {
			continue
		}
		team := target
		if counts[team]+len(members) > ppt {
			team = team.Other()
			if counts[team]+len(members) > ppt {
				continue
			}
		}
		for _, id := range members {
			roster = append(roster, Member{UserID: id, Team: team})
			placed[id] = true
		}
		counts[team] += len(members)
		target = team.Other()
	}

	rest := pie.Filter(queue, func(id sharedtypes.UserID) bool { return !placed[id] })
	r.Shuffle(len(rest), func(i, j int) { rest[i], rest[j] = rest[j], rest[i] })
	for _, id := range rest {
		team := smaller(counts)
		roster = append(roster, Member{UserID: id, Team: team})
		counts[team]++
	}
	return roster
}

func allAvailable(members, queue []sharedtypes.UserID, placed map[sharedtypes.UserID]bool) bool {
	for _, id := range members {
		if placed[id] || !slices.Contains(queue, id) {
			return false
		}
	}
	return true
}

// formBalanced deals players, strongest first, into the smaller team.
func formBalanced(ranked []sharedtypes.UserID) Roster {
	roster := make(Roster, 0, len(ranked))
	counts := map[sharedtypes.Team]int{}
	for _, id := range ranked {
		team := smaller(counts)
		roster = append(roster, Member{UserID: id, Team: team})
		counts[team]++
	}
	return roster
}

func smaller(counts map[sharedtypes.Team]int) sharedtypes.Team {
	if counts[sharedtypes.TeamOne] <= counts[sharedtypes.TeamTwo] {
		return sharedtypes.TeamOne
	}
	return sharedtypes.TeamTwo
}

// byPoints orders players by points descending, keeping queue order among equals.
func byPoints(queue []sharedtypes.UserID, points map[sharedtypes.UserID]int) []sharedtypes.UserID {
	out := slices.Clone(queue)
	slices.SortStableFunc(out, func(a, b sharedtypes.UserID) int {
		return cmp.Compare(points[b], points[a])
	})
	return out
}

func pickRandom(pool []sharedtypes.UserID, r *rand.Rand) (sharedtypes.UserID, sharedtypes.UserID) {
	perm := r.Perm(len(pool))
	return pool[perm[0]], pool[perm[1]]
}

func captains(one, two sharedtypes.UserID) Roster {
	return Roster{
		{UserID: one, Team: sharedtypes.TeamOne, Captain: true},
		{UserID: two, Team: sharedtypes.TeamTwo, Captain: true},
	}
}
