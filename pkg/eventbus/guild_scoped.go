package eventbus

import (
	"fmt"

	sharedtypes "github.com/Black-And-White-Club/lobby-bot/app/shared/types"
	"github.com/ThreeDotsLabs/watermill/message"
)

// PublishWithGuildScope publishes msg on {baseTopic}.{guildID} so consumers can subscribe
// either to one guild or to "{baseTopic}.*".
//
// Example:
//   - baseTopic: "matchmaking.game.formed.v1"
//   - guildID: "123456789"
//   - result: "matchmaking.game.formed.v1.123456789"
func PublishWithGuildScope(pub message.Publisher, baseTopic string, guildID sharedtypes.GuildID, msg *message.Message) error {
	if guildID == "" {
		return fmt.Errorf("guildID cannot be empty for guild-scoped publish")
	}
	return pub.Publish(FormatGuildScopedTopic(baseTopic, guildID), msg)
}

// FormatGuildScopedTopic formats a topic with a guild suffix without publishing.
func FormatGuildScopedTopic(baseTopic string, guildID sharedtypes.GuildID) string {
	return fmt.Sprintf("%s.%s", baseTopic, guildID)
}
