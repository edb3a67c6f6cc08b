// Package attr provides slog attribute helpers shared by every module.
package attr

import (
	"context"
	"log/slog"
	"time"

	sharedtypes "github.com/Black-And-White-Club/lobby-bot/app/shared/types"
)

type ctxKey string

// CorrelationIDKey is the context key carrying the inbound message correlation id.
const CorrelationIDKey ctxKey = "correlation_id"

// WithCorrelationID returns a copy of ctx carrying id.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, CorrelationIDKey, id)
}

// ExtractCorrelationID returns the correlation id stored in ctx, or an empty attribute.
func ExtractCorrelationID(ctx context.Context) slog.Attr {
	if id, ok := ctx.Value(CorrelationIDKey).(string); ok && id != "" {
		return slog.String("correlation_id", id)
	}
	return slog.Attr{}
}

func String(key, value string) slog.Attr {
	return slog.String(key, value)
}

func Int(key string, value int) slog.Attr {
	return slog.Int(key, value)
}

func Int64(key string, value int64) slog.Attr {
	return slog.Int64(key, value)
}

func Bool(key string, value bool) slog.Attr {
	return slog.Bool(key, value)
}

func Any(key string, value any) slog.Attr {
	return slog.Any(key, value)
}

func Time(key string, value time.Time) slog.Attr {
	return slog.Time(key, value)
}

func Duration(key string, value time.Duration) slog.Attr {
	return slog.Duration(key, value)
}

// Error renders err under the "error" key. A nil error renders as an empty string.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}

func GuildID(id sharedtypes.GuildID) slog.Attr {
	return slog.String("guild_id", string(id))
}

func ChannelID(id sharedtypes.ChannelID) slog.Attr {
	return slog.String("channel_id", string(id))
}

func UserID(id sharedtypes.UserID) slog.Attr {
	return slog.String("user_id", string(id))
}

// Lobby renders both halves of a lobby key.
func Lobby(key sharedtypes.LobbyKey) slog.Attr {
	return slog.Group("lobby",
		slog.String("guild_id", string(key.GuildID)),
		slog.String("channel_id", string(key.ChannelID)),
	)
}

func GameNumber(n sharedtypes.GameNumber) slog.Attr {
	return slog.Int64("game_number", int64(n))
}
