package identity

import (
	"context"
	"fmt"

	sharedtypes "github.com/Black-And-White-Club/lobby-bot/app/shared/types"
	"github.com/Black-And-White-Club/lobby-bot/internal/attr"
	"github.com/Black-And-White-Club/lobby-bot/internal/handlerwrapper"
	guildscope "github.com/Black-And-White-Club/lobby-bot/pkg/eventbus"
	"github.com/ThreeDotsLabs/watermill/message"
)

const (
	// MemberSyncRequestedV1 is consumed by the platform gateway to apply role and nickname changes.
	MemberSyncRequestedV1 = "identity.member.sync.requested.v1"
	// DirectMessageRequestedV1 is consumed by the platform gateway to deliver a DM.
	DirectMessageRequestedV1 = "identity.direct_message.requested.v1"
)

// EventBusPlatform forwards platform side effects as guild-scoped requests on the bus.
type EventBusPlatform struct {
	publisher message.Publisher
}

// NewEventBusPlatform creates a Platform backed by pub.
func NewEventBusPlatform(pub message.Publisher) *EventBusPlatform {
	return &EventBusPlatform{publisher: pub}
}

func (p *EventBusPlatform) SyncMember(ctx context.Context, req MemberSync) error {
	return p.publish(ctx, MemberSyncRequestedV1, req.GuildID, req)
}

func (p *EventBusPlatform) SendDirect(ctx context.Context, dm DirectMessage) error {
	return p.publish(ctx, DirectMessageRequestedV1, dm.GuildID, dm)
}

func (p *EventBusPlatform) publish(ctx context.Context, topic string, guildID sharedtypes.GuildID, payload any) error {
	correlationID := ""
	if v := attr.ExtractCorrelationID(ctx); v.Key != "" {
		correlationID = v.Value.String()
	}
	msg, err := handlerwrapper.NewMessage(handlerwrapper.Result{Topic: topic, Payload: payload}, correlationID)
	if err != nil {
		return err
	}
	if err := guildscope.PublishWithGuildScope(p.publisher, topic, guildID, msg); err != nil {
		return fmt.Errorf("identity request %s: %w", topic, err)
	}
	return nil
}

var _ Platform = (*EventBusPlatform)(nil)
