package matchmakingservice

import (
	"context"

	matchmakingdomain "github.com/Black-And-White-Club/lobby-bot/app/modules/matchmaking/domain"
	ratingdomain "github.com/Black-And-White-Club/lobby-bot/app/modules/rating/domain"
	sharedtypes "github.com/Black-And-White-Club/lobby-bot/app/shared/types"
)

// AnnouncementKind names what happened in a lobby.
type AnnouncementKind string

const (
	AnnounceGameFormed   AnnouncementKind = "game_formed"
	AnnouncePickMade     AnnouncementKind = "pick_made"
	AnnounceGameReady    AnnouncementKind = "game_ready"
	AnnounceVoteLocked   AnnouncementKind = "vote_locked"
	AnnounceGameDecided  AnnouncementKind = "game_decided"
	AnnounceGameDrawn    AnnouncementKind = "game_drawn"
	AnnounceGameCanceled AnnouncementKind = "game_canceled"
	AnnounceGameUndone   AnnouncementKind = "game_undone"
	AnnounceEvicted      AnnouncementKind = "queue_evicted"
)

// Announcement is emitted after the transition that produced it committed.
type Announcement struct {
	Kind    AnnouncementKind
	Lobby   sharedtypes.LobbyKey
	Channel sharedtypes.ChannelID
	// Game is a snapshot taken at commit time; nil for evictions.
	Game     *matchmakingdomain.Game
	Users    []sharedtypes.UserID
	Changes  []ratingdomain.ScoreChange
	Warnings []string
	// DirectMessage asks the announcer to also DM every player of Game.
	DirectMessage bool
}

func (s *MatchmakingService) announce(ctx context.Context, anns []Announcement) {
	if s.announcer == nil {
		return
	}
	for _, a := range anns {
		s.announcer.Announce(ctx, a)
	}
}

func gameAnnouncement(kind AnnouncementKind, lobby *matchmakingdomain.Lobby, game *matchmakingdomain.Game) Announcement {
	snapshot := cloneGame(game)
	return Announcement{
		Kind:    kind,
		Lobby:   lobby.Key,
		Channel: lobby.AnnounceTo(),
		Game:    snapshot,
	}
}
