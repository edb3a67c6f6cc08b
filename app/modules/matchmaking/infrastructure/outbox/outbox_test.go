package matchmakingoutbox

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	matchmakingservice "github.com/Black-And-White-Club/lobby-bot/app/modules/matchmaking/application"
	matchmakingdomain "github.com/Black-And-White-Club/lobby-bot/app/modules/matchmaking/domain"
	matchmakingevents "github.com/Black-And-White-Club/lobby-bot/app/shared/events/matchmaking"
	"github.com/Black-And-White-Club/lobby-bot/app/shared/identity"
	sharedtypes "github.com/Black-And-White-Club/lobby-bot/app/shared/types"
	"github.com/Black-And-White-Club/lobby-bot/internal/attr"
	"github.com/Black-And-White-Club/lobby-bot/internal/metrics"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
)

var lobby = sharedtypes.LobbyKey{GuildID: "guild-1", ChannelID: "chan-1"}

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
	msgs   []*message.Message
}

func (p *recordingPublisher) Publish(topic string, messages ...*message.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, m := range messages {
		p.topics = append(p.topics, topic)
		p.msgs = append(p.msgs, m)
	}
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.msgs)
}

type fakePlatform struct {
	mu   sync.Mutex
	dms  []identity.DirectMessage
	fail sharedtypes.UserID
}

func (p *fakePlatform) SyncMember(context.Context, identity.MemberSync) error { return nil }

func (p *fakePlatform) SendDirect(_ context.Context, dm identity.DirectMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dms = append(p.dms, dm)
	if dm.UserID == p.fail {
		return errors.New("cannot send messages to this user")
	}
	return nil
}

func (p *fakePlatform) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.dms)
}

type dropMetrics struct {
	metrics.NoOpMetrics
	mu      sync.Mutex
	dropped []string
}

func (m *dropMetrics) RecordAnnouncementDropped(_ context.Context, kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropped = append(m.dropped, kind)
}

func newOutbox(pub message.Publisher, platform identity.Platform, m metrics.MatchmakingMetrics, buffer int) *Outbox {
	return New(pub, platform, slog.New(slog.NewTextHandler(io.Discard, nil)), m, noop.NewTracerProvider().Tracer("test"), Config{Buffer: buffer})
}

func readyGame() *matchmakingdomain.Game {
	return &matchmakingdomain.Game{
		Lobby:    lobby,
		Number:   7,
		Phase:    matchmakingdomain.Undecided{},
		PickMode: matchmakingdomain.PickModeRandom,
		Map:      "Dust",
		Roster: matchmakingdomain.Roster{
			{UserID: "a", Team: sharedtypes.TeamOne},
			{UserID: "b", Team: sharedtypes.TeamTwo},
		},
	}
}

func TestOutbox_PublishesGuildScoped(t *testing.T) {
	pub := &recordingPublisher{}
	o := newOutbox(pub, &fakePlatform{}, metrics.NewNoop(), 4)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go o.Run(ctx)

	o.Announce(attr.WithCorrelationID(context.Background(), "corr-1"), matchmakingservice.Announcement{
		Kind:    matchmakingservice.AnnounceGameFormed,
		Lobby:   lobby,
		Channel: "announce-1",
		Game:    readyGame(),
	})

	require.Eventually(t, func() bool { return pub.count() == 1 }, time.Second, 5*time.Millisecond)

	pub.mu.Lock()
	defer pub.mu.Unlock()
	assert.Equal(t, matchmakingevents.GameFormedV1+".guild-1", pub.topics[0])
	msg := pub.msgs[0]
	assert.Equal(t, "corr-1", middleware.MessageCorrelationID(msg))
	assert.Equal(t, string(matchmakingservice.AnnounceGameFormed), msg.Metadata.Get(KindMetadataKey))

	var payload matchmakingevents.GamePayloadV1
	require.NoError(t, json.Unmarshal(msg.Payload, &payload))
	assert.Equal(t, sharedtypes.GameNumber(7), payload.Number)
	assert.Equal(t, sharedtypes.ChannelID("announce-1"), payload.AnnounceChannel)
	assert.Equal(t, []sharedtypes.UserID{"a"}, payload.TeamOne)
}

func TestOutbox_GeneratesCorrelationID(t *testing.T) {
	pub := &recordingPublisher{}
	o := newOutbox(pub, &fakePlatform{}, metrics.NewNoop(), 4)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go o.Run(ctx)

	o.Announce(context.Background(), matchmakingservice.Announcement{
		Kind:  matchmakingservice.AnnounceEvicted,
		Lobby: lobby,
		Users: []sharedtypes.UserID{"x"},
	})
	require.Eventually(t, func() bool { return pub.count() == 1 }, time.Second, 5*time.Millisecond)

	pub.mu.Lock()
	defer pub.mu.Unlock()
	assert.NotEmpty(t, middleware.MessageCorrelationID(pub.msgs[0]))
	assert.Equal(t, matchmakingevents.QueueEvictedV1+".guild-1", pub.topics[0])
}

func TestOutbox_DropsWhenFull(t *testing.T) {
	m := &dropMetrics{}
	o := newOutbox(&recordingPublisher{}, &fakePlatform{}, m, 1)

	a := matchmakingservice.Announcement{Kind: matchmakingservice.AnnounceEvicted, Lobby: lobby}
	o.Announce(context.Background(), a)
	o.Announce(context.Background(), a)
	o.Announce(context.Background(), a)

	assert.Equal(t, 1, o.Pending())
	assert.Equal(t, []string{"queue_evicted", "queue_evicted"}, m.dropped)
}

func TestOutbox_DirectMessagesEveryPlayer(t *testing.T) {
	platform := &fakePlatform{fail: "a"}
	pub := &recordingPublisher{}
	o := newOutbox(pub, platform, metrics.NewNoop(), 4)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go o.Run(ctx)

	o.Announce(context.Background(), matchmakingservice.Announcement{
		Kind:          matchmakingservice.AnnounceGameReady,
		Lobby:         lobby,
		Channel:       lobby.ChannelID,
		Game:          readyGame(),
		DirectMessage: true,
	})

	require.Eventually(t, func() bool { return platform.count() == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, pub.count())
	platform.mu.Lock()
	defer platform.mu.Unlock()
	assert.Equal(t, "Game #7 is ready in <#chan-1>. Map: Dust.", platform.dms[1].Content)
}

func TestReadyMessage_Picking(t *testing.T) {
	game := readyGame()
	game.Phase = matchmakingdomain.Picking{}
	game.Map = ""
	assert.Equal(t, "Game #7 is ready in <#chan-1>. Captains are picking teams.", ReadyMessage(game, "chan-1"))
}
