package matchmakingservice

import (
	"context"
	"math/rand/v2"

	matchmakingdomain "github.com/Black-And-White-Club/lobby-bot/app/modules/matchmaking/domain"
	matchmakingdb "github.com/Black-And-White-Club/lobby-bot/app/modules/matchmaking/infrastructure/repositories"
	sharedtypes "github.com/Black-And-White-Club/lobby-bot/app/shared/types"
	"github.com/uptrace/bun"
)

// maybeFormGame forms a game when the queue is full and no game of the lobby is still
// open. A full queue behind an open game waits for that game to finish.
func (s *MatchmakingService) maybeFormGame(ctx context.Context, db bun.IDB, lobby *matchmakingdomain.Lobby, anns *[]Announcement) (*matchmakingdomain.Game, error) {
	rows, err := s.repo.ListQueue(ctx, db, lobby.Key)
	if err != nil {
		return nil, err
	}
	if len(rows) != lobby.Capacity() {
		return nil, nil
	}
	open, err := s.openGames(ctx, db, lobby.Key)
	if err != nil {
		return nil, err
	}
	if len(open) > 0 {
		return nil, nil
	}
	return s.formGame(ctx, db, lobby, toDomainQueue(rows), anns)
}

func (s *MatchmakingService) formGame(ctx context.Context, db bun.IDB, lobby *matchmakingdomain.Lobby, queue []matchmakingdomain.QueuedPlayer, anns *[]Announcement) (*matchmakingdomain.Game, error) {
	key := lobby.Key
	userIDs := queueUserIDs(queue)

	elsewhere, err := s.lockQueuesElsewhere(ctx, db, key, userIDs)
	if err != nil {
		return nil, err
	}
	claimed, err := s.withoutPickPools(ctx, db, elsewhere)
	if err != nil {
		return nil, err
	}

	players, err := s.ratings.GetPlayers(ctx, db, key.GuildID, userIDs)
	if err != nil {
		return nil, err
	}
	points := make(map[sharedtypes.UserID]int, len(players))
	for id, p := range players {
		points[id] = p.Points
	}

	partyRows, err := s.repo.ListPartyMembers(ctx, db, key.GuildID)
	if err != nil {
		return nil, err
	}
	parties := matchmakingdomain.PartyGroups(toDomainParty(partyRows))

	var (
		formation matchmakingdomain.Formation
		formErr   error
		mapName   string
	)
	s.withRand(func(r *rand.Rand) {
		formation, formErr = matchmakingdomain.Form(matchmakingdomain.FormationInput{
			Queue:          queue,
			Points:         points,
			Parties:        parties,
			PlayersPerTeam: lobby.PlayersPerTeam,
			Mode:           lobby.PickMode,
			Rand:           r,
		})
		if len(lobby.Maps) > 0 {
			mapName = lobby.Maps[r.IntN(len(lobby.Maps))]
		}
	})
	if formErr != nil {
		return nil, formErr
	}

	number, err := s.repo.NextGameNumber(ctx, db, key)
	if err != nil {
		return nil, err
	}

	var phase matchmakingdomain.Phase = matchmakingdomain.Undecided{}
	if formation.Picking {
		phase = matchmakingdomain.Picking{}
	}
	game := &matchmakingdomain.Game{
		Lobby:     key,
		Number:    number,
		Phase:     phase,
		PickMode:  formation.Mode,
		PickOrder: lobby.PickOrder,
		Roster:    formation.Roster,
		Map:       mapName,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.CreateGame(ctx, db, toGameRecord(game)); err != nil {
		return nil, err
	}

	evicted, err := s.evictElsewhere(ctx, db, claimed)
	if err != nil {
		return nil, err
	}
	// Captain modes keep the queue as the pick pool until the last pick.
	if !formation.Picking {
		if err := s.repo.ClearQueue(ctx, db, key); err != nil {
			return nil, err
		}
	}

	if s.metrics != nil {
		s.metrics.RecordGameFormed(ctx, string(formation.Mode))
	}

	formed := gameAnnouncement(AnnounceGameFormed, lobby, game)
	formed.Warnings = formation.Warnings
	formed.DirectMessage = lobby.DMOnReady && !formation.Picking
	*anns = append(*anns, formed)
	*anns = append(*anns, evictionAnnouncements(evicted)...)
	return game, nil
}

// lockQueuesElsewhere locks every other lobby of the guild where one of userIDs is
// queued and returns those queue rows as read after the locks were taken.
func (s *MatchmakingService) lockQueuesElsewhere(ctx context.Context, db bun.IDB, key sharedtypes.LobbyKey, userIDs []sharedtypes.UserID) ([]matchmakingdb.QueuedPlayer, error) {
	locked := map[sharedtypes.LobbyKey]bool{}
	for {
		rows, err := s.repo.ListQueuedElsewhere(ctx, db, key, userIDs)
		if err != nil {
			return nil, err
		}
		fresh := false
		for _, row := range rows {
			other := queueLobby(row)
			if locked[other] {
				continue
			}
			if err := lockOther(ctx, other); err != nil {
				return nil, err
			}
			locked[other] = true
			fresh = true
		}
		if !fresh {
			return rows, nil
		}
	}
}

// withoutPickPools drops the rows of lobbies whose queue is the pick pool of a game.
func (s *MatchmakingService) withoutPickPools(ctx context.Context, db bun.IDB, rows []matchmakingdb.QueuedPlayer) ([]matchmakingdb.QueuedPlayer, error) {
	picking := map[sharedtypes.LobbyKey]bool{}
	var out []matchmakingdb.QueuedPlayer
	for _, row := range rows {
		other := queueLobby(row)
		skip, seen := picking[other]
		if !seen {
			var err error
			if skip, err = s.hasPickingGame(ctx, db, other); err != nil {
				return nil, err
			}
			picking[other] = skip
		}
		if !skip {
			out = append(out, row)
		}
	}
	return out, nil
}

// evictElsewhere removes rows from their queues. The caller holds their lobby locks.
func (s *MatchmakingService) evictElsewhere(ctx context.Context, db bun.IDB, rows []matchmakingdb.QueuedPlayer) ([]matchmakingdb.QueuedPlayer, error) {
	var order []sharedtypes.LobbyKey
	users := map[sharedtypes.LobbyKey][]sharedtypes.UserID{}
	for _, row := range rows {
		other := queueLobby(row)
		if _, ok := users[other]; !ok {
			order = append(order, other)
		}
		users[other] = append(users[other], row.UserID)
	}
	for _, other := range order {
		if _, err := s.repo.Dequeue(ctx, db, other, users[other]); err != nil {
			return nil, err
		}
	}
	return rows, nil
}

func queueLobby(row matchmakingdb.QueuedPlayer) sharedtypes.LobbyKey {
	return sharedtypes.LobbyKey{GuildID: row.GuildID, ChannelID: row.ChannelID}
}

// evictionAnnouncements groups players pulled out of other queues by their lobby.
func evictionAnnouncements(rows []matchmakingdb.QueuedPlayer) []Announcement {
	var out []Announcement
	index := map[sharedtypes.LobbyKey]int{}
	for _, r := range rows {
		key := queueLobby(r)
		i, ok := index[key]
		if !ok {
			i = len(out)
			index[key] = i
			out = append(out, Announcement{Kind: AnnounceEvicted, Lobby: key, Channel: key.ChannelID})
		}
		out[i].Users = append(out[i].Users, r.UserID)
	}
	return out
}

func toDomainParty(rows []matchmakingdb.PartyMember) []matchmakingdomain.PartyMember {
	out := make([]matchmakingdomain.PartyMember, 0, len(rows))
	for _, r := range rows {
		out = append(out, matchmakingdomain.PartyMember{GuildID: r.GuildID, HostID: r.HostID, MemberID: r.MemberID})
	}
	return out
}
