package eventbus

import (
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
)

type recordingPublisher struct {
	topics []string
}

func (p *recordingPublisher) Publish(topic string, messages ...*message.Message) error {
	p.topics = append(p.topics, topic)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func TestPublishWithGuildScope(t *testing.T) {
	pub := &recordingPublisher{}
	msg := message.NewMessage(watermill.NewUUID(), nil)

	assert.NoError(t, PublishWithGuildScope(pub, "matchmaking.game.formed.v1", "42", msg))
	assert.Equal(t, []string{"matchmaking.game.formed.v1.42"}, pub.topics)

	assert.Error(t, PublishWithGuildScope(pub, "matchmaking.game.formed.v1", "", msg))
	assert.Len(t, pub.topics, 1)
}
