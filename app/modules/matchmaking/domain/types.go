package matchmakingdomain

import (
	"slices"
	"time"

	ratingdomain "github.com/Black-And-White-Club/lobby-bot/app/modules/rating/domain"
	sharedtypes "github.com/Black-And-White-Club/lobby-bot/app/shared/types"
)

// PickMode selects the team formation algorithm.
type PickMode string

const (
	PickModeRandom                      PickMode = "random"
	PickModeTryBalance                  PickMode = "try_balance"
	PickModeCaptainsRandom              PickMode = "captains_random"
	PickModeCaptainsHighestRanked       PickMode = "captains_highest_ranked"
	PickModeCaptainsRandomHighestRanked PickMode = "captains_random_highest_ranked"
)

func (m PickMode) Valid() bool {
	switch m {
	case PickModeRandom, PickModeTryBalance, PickModeCaptainsRandom,
		PickModeCaptainsHighestRanked, PickModeCaptainsRandomHighestRanked:
		return true
	}
	return false
}

// Captains reports whether the mode hands team assembly to captains.
func (m PickMode) Captains() bool {
	switch m {
	case PickModeCaptainsRandom, PickModeCaptainsHighestRanked, PickModeCaptainsRandomHighestRanked:
		return true
	}
	return false
}

// PickOrder is the captain pick policy.
type PickOrder string

const (
	PickOne PickOrder = "pick_one"
	PickTwo PickOrder = "pick_two"
)

func (o PickOrder) Valid() bool {
	return o == PickOne || o == PickTwo
}

const (
	DefaultPlayersPerTeam = 5
	MaxPlayersPerTeam     = 16
)

// Lobby is a channel-scoped matchmaking queue configuration.
type Lobby struct {
	Key                 sharedtypes.LobbyKey
	PlayersPerTeam      int
	PickMode            PickMode
	PickOrder           PickOrder
	MinPoints           *int
	Score               ratingdomain.ScoreSettings
	QueueTimeout        time.Duration
	HideQueue           bool
	DMOnReady           bool
	AnnouncementChannel sharedtypes.ChannelID
	Maps                []string
	CreatedAt           time.Time
}

// NewLobby returns a lobby with default settings.
func NewLobby(key sharedtypes.LobbyKey, playersPerTeam int, now time.Time) Lobby {
	if playersPerTeam == 0 {
		playersPerTeam = DefaultPlayersPerTeam
	}
	return Lobby{
		Key:            key,
		PlayersPerTeam: playersPerTeam,
		PickMode:       PickModeRandom,
		PickOrder:      PickOne,
		Score:          ratingdomain.DefaultScoreSettings(),
		CreatedAt:      now,
	}
}

// Capacity is the queue size that forms a game.
func (l Lobby) Capacity() int {
	return 2 * l.PlayersPerTeam
}

// AnnounceTo is the channel announcements for this lobby go to.
func (l Lobby) AnnounceTo() sharedtypes.ChannelID {
	if l.AnnouncementChannel != "" {
		return l.AnnouncementChannel
	}
	return l.Key.ChannelID
}

// Validate checks the lobby settings for values the engine cannot run with.
func (l Lobby) Validate() error {
	switch {
	case l.PlayersPerTeam < 1 || l.PlayersPerTeam > MaxPlayersPerTeam:
		return ErrInvalidLobbySettings
	case !l.PickMode.Valid() || !l.PickOrder.Valid():
		return ErrInvalidLobbySettings
	case l.Score.Multiplier < 0 || l.Score.ReductionFactor < 0:
		return ErrInvalidLobbySettings
	case l.QueueTimeout < 0:
		return ErrInvalidLobbySettings
	case l.MinPoints != nil && *l.MinPoints < 0:
		return ErrInvalidLobbySettings
	}
	return nil
}

// HasMap reports whether name is in the map pool.
func (l Lobby) HasMap(name string) bool {
	return slices.Contains(l.Maps, name)
}

// QueuedPlayer is a user waiting in a lobby queue.
type QueuedPlayer struct {
	Lobby    sharedtypes.LobbyKey
	UserID   sharedtypes.UserID
	QueuedAt time.Time
}

// Expired reports whether the player has waited longer than timeout.
func (q QueuedPlayer) Expired(timeout time.Duration, now time.Time) bool {
	return timeout > 0 && !now.Before(q.QueuedAt.Add(timeout))
}

// Vote is a self-relative result vote.
type Vote string

const (
	VoteWin    Vote = "win"
	VoteLose   Vote = "lose"
	VoteDraw   Vote = "draw"
	VoteCancel Vote = "cancel"
)

func (v Vote) Valid() bool {
	switch v {
	case VoteWin, VoteLose, VoteDraw, VoteCancel:
		return true
	}
	return false
}

// PartyMember links a member to the host of their party within a guild.
type PartyMember struct {
	GuildID  sharedtypes.GuildID
	HostID   sharedtypes.UserID
	MemberID sharedtypes.UserID
}

// PartyGroups groups party rows into host-first player lists. Singletons are dropped.
func PartyGroups(rows []PartyMember) [][]sharedtypes.UserID {
	var hosts []sharedtypes.UserID
	byHost := make(map[sharedtypes.UserID][]sharedtypes.UserID)
	for _, r := range rows {
		if _, ok := byHost[r.HostID]; !ok {
			hosts = append(hosts, r.HostID)
			byHost[r.HostID] = []sharedtypes.UserID{r.HostID}
		}
		if r.MemberID != r.HostID && !slices.Contains(byHost[r.HostID], r.MemberID) {
			byHost[r.HostID] = append(byHost[r.HostID], r.MemberID)
		}
	}
	groups := make([][]sharedtypes.UserID, 0, len(hosts))
	for _, h := range hosts {
		if len(byHost[h]) > 1 {
			groups = append(groups, byHost[h])
		}
	}
	return groups
}
