package eventbus

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryEventBus_PublishUsesMetadataTopic(t *testing.T) {
	bus := NewInMemoryEventBus(slog.Default())
	defer bus.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	ch, err := bus.Subscribe(ctx, "lobby.announce.v1")
	require.NoError(t, err)

	msg := message.NewMessage(watermill.NewUUID(), []byte(`{"ok":true}`))
	msg.Metadata.Set(TopicMetadataKey, "lobby.announce.v1")
	require.NoError(t, bus.Publish("", msg))

	select {
	case got := <-ch:
		assert.Equal(t, msg.UUID, got.UUID)
		got.Ack()
	case <-ctx.Done():
		t.Fatal("message not delivered")
	}
}

func TestInMemoryEventBus_PublishWithoutTopic(t *testing.T) {
	bus := NewInMemoryEventBus(slog.Default())
	defer bus.Close()

	msg := message.NewMessage(watermill.NewUUID(), nil)
	err := bus.Publish("", msg)
	assert.ErrorIs(t, err, ErrMissingTopic)
	assert.NoError(t, bus.Healthy())
}
