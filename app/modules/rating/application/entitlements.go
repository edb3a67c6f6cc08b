package ratingservice

import (
	"context"

	sharedtypes "github.com/Black-And-White-Club/lobby-bot/app/shared/types"
)

// Feature names a gated capability.
type Feature string

const (
	// FeatureLobbyLeaderboard allows leaderboards restricted to one lobby's players.
	FeatureLobbyLeaderboard Feature = "lobby_leaderboard"
	// FeatureLeaderboardExport allows spreadsheet exports.
	FeatureLeaderboardExport Feature = "leaderboard_export"
)

// Entitlements answers premium gating questions for a guild.
type Entitlements interface {
	// MaxPlayers returns the registered-player cap; 0 means unlimited.
	MaxPlayers(ctx context.Context, guildID sharedtypes.GuildID) (int, error)
	FeatureEnabled(ctx context.Context, guildID sharedtypes.GuildID, feature Feature) (bool, error)
}

// StaticEntitlements serves entitlements from configuration.
type StaticEntitlements struct {
	DefaultMaxPlayers int
	Premium           map[sharedtypes.GuildID]bool
	MaxPlayersByGuild map[sharedtypes.GuildID]int
	FreeFeatures      map[Feature]bool
}

func (e StaticEntitlements) MaxPlayers(_ context.Context, guildID sharedtypes.GuildID) (int, error) {
	if e.Premium[guildID] {
		return 0, nil
	}
	if n, ok := e.MaxPlayersByGuild[guildID]; ok {
		return n, nil
	}
	return e.DefaultMaxPlayers, nil
}

func (e StaticEntitlements) FeatureEnabled(_ context.Context, guildID sharedtypes.GuildID, feature Feature) (bool, error) {
	return e.Premium[guildID] || e.FreeFeatures[feature], nil
}

var _ Entitlements = StaticEntitlements{}
