package matchmakingservice

import (
	"sync"
	"time"

	sharedtypes "github.com/Black-And-White-Club/lobby-bot/app/shared/types"
	"github.com/puzpuzpuz/xsync/v3"
)

// CooldownRegistry holds the requeue cooldowns of every guild. Each guild's state is
// independent and dropped whole by Invalidate, which runs when the guild's
// competition settings change.
type CooldownRegistry struct {
	guilds *xsync.MapOf[sharedtypes.GuildID, *GuildCooldowns]
}

func NewCooldownRegistry() *CooldownRegistry {
	return &CooldownRegistry{guilds: xsync.NewMapOf[sharedtypes.GuildID, *GuildCooldowns]()}
}

// For returns the guild's cooldown state, creating it on first use.
func (r *CooldownRegistry) For(guildID sharedtypes.GuildID) *GuildCooldowns {
	g, _ := r.guilds.LoadOrCompute(guildID, func() *GuildCooldowns {
		return &GuildCooldowns{until: make(map[sharedtypes.UserID]time.Time)}
	})
	return g
}

// Invalidate forgets every cooldown of the guild.
func (r *CooldownRegistry) Invalidate(guildID sharedtypes.GuildID) {
	r.guilds.Delete(guildID)
}

// GuildCooldowns tracks when each user of one guild may queue again.
type GuildCooldowns struct {
	mu    sync.Mutex
	until map[sharedtypes.UserID]time.Time
}

// Stamp blocks userID from queueing until until.
func (g *GuildCooldowns) Stamp(userID sharedtypes.UserID, until time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.until[userID] = until
}

// Remaining is how long userID must still wait at now. Expired entries are pruned.
func (g *GuildCooldowns) Remaining(userID sharedtypes.UserID, now time.Time) time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	until, ok := g.until[userID]
	if !ok {
		return 0
	}
	if !now.Before(until) {
		delete(g.until, userID)
		return 0
	}
	return until.Sub(now)
}
