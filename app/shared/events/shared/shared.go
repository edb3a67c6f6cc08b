// Package sharedevents holds payloads common to every module.
package sharedevents

import sharedtypes "github.com/Black-And-White-Club/lobby-bot/app/shared/types"

// CommandFailedV1 is published whenever a command is rejected.
const CommandFailedV1 = "command.failed.v1"

// ErrorKind groups failures by how the caller should present them.
type ErrorKind string

const (
	// KindValidation failures are shown verbatim.
	KindValidation ErrorKind = "validation"
	// KindPolicy failures are shown with remediation text.
	KindPolicy ErrorKind = "policy"
	// KindInternal failures are shown as a generic error.
	KindInternal ErrorKind = "internal"
)

// CommandFailedPayloadV1 explains why a command did not run.
type CommandFailedPayloadV1 struct {
	GuildID     sharedtypes.GuildID   `json:"guild_id"`
	ChannelID   sharedtypes.ChannelID `json:"channel_id,omitempty"`
	UserID      sharedtypes.UserID    `json:"user_id,omitempty"`
	Command     string                `json:"command"`
	Kind        ErrorKind             `json:"kind"`
	Reason      string                `json:"reason"`
	Remediation string                `json:"remediation,omitempty"`
}

// ScoreChangeV1 is the wire form of one player's score change.
type ScoreChangeV1 struct {
	UserID    sharedtypes.UserID `json:"user_id"`
	Outcome   string             `json:"outcome"`
	Delta     int                `json:"delta"`
	OldPoints int                `json:"old_points"`
	NewPoints int                `json:"new_points"`
	OldRole   sharedtypes.RoleID `json:"old_role,omitempty"`
	NewRole   sharedtypes.RoleID `json:"new_role,omitempty"`
	Change    string             `json:"change"`
}
