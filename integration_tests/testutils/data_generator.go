package testutils

import (
	"fmt"

	"github.com/brianvoe/gofakeit/v7"

	sharedtypes "github.com/Black-And-White-Club/lobby-bot/app/shared/types"
)

// Player is a generated platform user.
type Player struct {
	UserID      sharedtypes.UserID
	DisplayName string
}

// TestDataGenerator produces reproducible ids and names for a seed.
type TestDataGenerator struct {
	faker *gofakeit.Faker
}

func NewTestDataGenerator(seed uint64) *TestDataGenerator {
	return &TestDataGenerator{faker: gofakeit.New(seed)}
}

// GuildID returns a snowflake-shaped guild id.
func (g *TestDataGenerator) GuildID() sharedtypes.GuildID {
	return sharedtypes.GuildID(g.faker.Numerify("1###############"))
}

// LobbyKey returns a lobby in guildID with a fresh channel.
func (g *TestDataGenerator) LobbyKey(guildID sharedtypes.GuildID) sharedtypes.LobbyKey {
	return sharedtypes.LobbyKey{
		GuildID:   guildID,
		ChannelID: sharedtypes.ChannelID(g.faker.Numerify("2###############")),
	}
}

// GeneratePlayers returns count players with distinct ids.
func (g *TestDataGenerator) GeneratePlayers(count int) []Player {
	players := make([]Player, 0, count)
	for i := range count {
		players = append(players, Player{
			UserID:      sharedtypes.UserID(fmt.Sprintf("%s%02d", g.faker.Numerify("3#############"), i)),
			DisplayName: g.faker.Username(),
		})
	}
	return players
}

// UserIDs returns the ids of players in order.
func UserIDs(players []Player) []sharedtypes.UserID {
	ids := make([]sharedtypes.UserID, 0, len(players))
	for _, p := range players {
		ids = append(ids, p.UserID)
	}
	return ids
}
