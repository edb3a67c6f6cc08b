package sharedtypes

import "fmt"

// GuildID identifies a community (server) on the chat platform.
type GuildID string

// ChannelID identifies a channel inside a guild.
type ChannelID string

// UserID identifies a platform user.
type UserID string

// RoleID identifies a platform role; ranks are bound to roles.
type RoleID string

// GameNumber is the per-lobby sequential game number.
type GameNumber int64

// LobbyKey addresses a lobby. There is at most one lobby per channel.
type LobbyKey struct {
	GuildID   GuildID   `json:"guild_id"`
	ChannelID ChannelID `json:"channel_id"`
}

func (k LobbyKey) String() string {
	return fmt.Sprintf("%s/%s", k.GuildID, k.ChannelID)
}

// Team is a team number inside a game. Only TeamOne and TeamTwo are valid.
type Team int

const (
	NoTeam  Team = 0
	TeamOne Team = 1
	TeamTwo Team = 2
)

// Valid reports whether t names one of the two teams.
func (t Team) Valid() bool {
	return t == TeamOne || t == TeamTwo
}

// Other returns the opposing team.
func (t Team) Other() Team {
	switch t {
	case TeamOne:
		return TeamTwo
	case TeamTwo:
		return TeamOne
	default:
		return NoTeam
	}
}
