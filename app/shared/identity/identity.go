// Package identity is the port to the chat platform's member roles, nicknames and DMs.
package identity

import (
	"context"
	"fmt"
	"log/slog"

	ratingdomain "github.com/Black-And-White-Club/lobby-bot/app/modules/rating/domain"
	sharedtypes "github.com/Black-And-White-Club/lobby-bot/app/shared/types"
	"github.com/Black-And-White-Club/lobby-bot/internal/attr"
)

// MemberSync describes the role and nickname state a member should end up with.
type MemberSync struct {
	GuildID     sharedtypes.GuildID  `json:"guild_id"`
	UserID      sharedtypes.UserID   `json:"user_id"`
	AddRoles    []sharedtypes.RoleID `json:"add_roles,omitempty"`
	RemoveRoles []sharedtypes.RoleID `json:"remove_roles,omitempty"`
	Nickname    string               `json:"nickname,omitempty"`
}

// DirectMessage is a private message to one user.
type DirectMessage struct {
	GuildID sharedtypes.GuildID `json:"guild_id"`
	UserID  sharedtypes.UserID  `json:"user_id"`
	Content string              `json:"content"`
}

// Platform performs side effects on the chat platform. Any call may fail for
// permission, membership or rate-limit reasons; callers treat failures as warnings.
type Platform interface {
	SyncMember(ctx context.Context, req MemberSync) error
	SendDirect(ctx context.Context, dm DirectMessage) error
}

// SyncFromScoreChange builds the member sync for one applied score change.
func SyncFromScoreChange(guildID sharedtypes.GuildID, change ratingdomain.ScoreChange) MemberSync {
	req := MemberSync{
		GuildID:  guildID,
		UserID:   change.UserID,
		Nickname: Nickname(change.DisplayName, change.Result.NewPoints),
	}
	if !ratingdomain.SameRank(change.Result.OldRank, change.Result.NewRank) {
		if change.Result.OldRank != nil {
			req.RemoveRoles = append(req.RemoveRoles, change.Result.OldRank.RoleID)
		}
		if change.Result.NewRank != nil {
			req.AddRoles = append(req.AddRoles, change.Result.NewRank.RoleID)
		}
	}
	return req
}

// Nickname renders the "[points] name" nickname players carry.
func Nickname(displayName string, points int) string {
	return fmt.Sprintf("[%d] %s", points, displayName)
}

// SyncScoreChanges pushes every change to the platform and returns one warning per failure.
// It never fails: the score mutation it follows is already committed.
func SyncScoreChanges(ctx context.Context, platform Platform, logger *slog.Logger, guildID sharedtypes.GuildID, changes []ratingdomain.ScoreChange) []string {
	if platform == nil {
		return nil
	}
	var warnings []string
	for _, change := range changes {
		if err := platform.SyncMember(ctx, SyncFromScoreChange(guildID, change)); err != nil {
			logger.WarnContext(ctx, "Member sync failed",
				attr.ExtractCorrelationID(ctx),
				attr.GuildID(guildID),
				attr.UserID(change.UserID),
				attr.Error(err),
			)
			warnings = append(warnings, fmt.Sprintf("could not update roles or nickname for <@%s>: %v", change.UserID, err))
		}
	}
	return warnings
}
