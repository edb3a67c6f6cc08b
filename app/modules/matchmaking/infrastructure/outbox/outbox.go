// Package matchmakingoutbox delivers lobby announcements after the transition that
// produced them committed. Producers never block: a full buffer drops the announcement.
package matchmakingoutbox

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	matchmakingservice "github.com/Black-And-White-Club/lobby-bot/app/modules/matchmaking/application"
	matchmakingdomain "github.com/Black-And-White-Club/lobby-bot/app/modules/matchmaking/domain"
	matchmakingevents "github.com/Black-And-White-Club/lobby-bot/app/shared/events/matchmaking"
	ratingevents "github.com/Black-And-White-Club/lobby-bot/app/shared/events/rating"
	"github.com/Black-And-White-Club/lobby-bot/app/shared/identity"
	sharedtypes "github.com/Black-And-White-Club/lobby-bot/app/shared/types"
	"github.com/Black-And-White-Club/lobby-bot/internal/attr"
	"github.com/Black-And-White-Club/lobby-bot/internal/handlerwrapper"
	"github.com/Black-And-White-Club/lobby-bot/internal/metrics"
	guildscope "github.com/Black-And-White-Club/lobby-bot/pkg/eventbus"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

// KindMetadataKey carries the announcement kind on published messages.
const KindMetadataKey = "announcement_kind"

var topics = map[matchmakingservice.AnnouncementKind]string{
	matchmakingservice.AnnounceGameFormed:   matchmakingevents.GameFormedV1,
	matchmakingservice.AnnouncePickMade:     matchmakingevents.PickMadeV1,
	matchmakingservice.AnnounceGameReady:    matchmakingevents.GameReadyV1,
	matchmakingservice.AnnounceVoteLocked:   matchmakingevents.VoteLockedV1,
	matchmakingservice.AnnounceGameDecided:  matchmakingevents.GameDecidedV1,
	matchmakingservice.AnnounceGameDrawn:    matchmakingevents.GameDrawnV1,
	matchmakingservice.AnnounceGameCanceled: matchmakingevents.GameCanceledV1,
	matchmakingservice.AnnounceGameUndone:   matchmakingevents.GameUndoneV1,
	matchmakingservice.AnnounceEvicted:      matchmakingevents.QueueEvictedV1,
}

// Config sizes the buffer and the DM throttle.
type Config struct {
	Buffer      int
	DMPerSecond float64
	DMBurst     int
}

type envelope struct {
	announcement  matchmakingservice.Announcement
	correlationID string
}

// Outbox is an asynchronous matchmakingservice.Announcer.
type Outbox struct {
	publisher message.Publisher
	platform  identity.Platform
	logger    *slog.Logger
	metrics   metrics.MatchmakingMetrics
	tracer    trace.Tracer
	queue     chan envelope
	dms       *rate.Limiter
}

// New creates an outbox. Nothing is delivered until Run is called.
func New(pub message.Publisher, platform identity.Platform, logger *slog.Logger, m metrics.MatchmakingMetrics, tracer trace.Tracer, cfg Config) *Outbox {
	if cfg.Buffer <= 0 {
		cfg.Buffer = 256
	}
	limit := rate.Inf
	if cfg.DMPerSecond > 0 {
		limit = rate.Limit(cfg.DMPerSecond)
	}
	if cfg.DMBurst <= 0 {
		cfg.DMBurst = 1
	}
	return &Outbox{
		publisher: pub,
		platform:  platform,
		logger:    logger,
		metrics:   m,
		tracer:    tracer,
		queue:     make(chan envelope, cfg.Buffer),
		dms:       rate.NewLimiter(limit, cfg.DMBurst),
	}
}

// Announce enqueues a without blocking.
func (o *Outbox) Announce(ctx context.Context, a matchmakingservice.Announcement) {
	env := envelope{announcement: a}
	if v := attr.ExtractCorrelationID(ctx); v.Key != "" {
		env.correlationID = v.Value.String()
	}
	select {
	case o.queue <- env:
	default:
		o.metrics.RecordAnnouncementDropped(ctx, string(a.Kind))
		o.logger.WarnContext(ctx, "Announcement dropped, outbox full",
			attr.String("kind", string(a.Kind)),
			attr.Lobby(a.Lobby),
		)
	}
}

// Run delivers queued announcements until ctx is done.
func (o *Outbox) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case env := <-o.queue:
			o.deliver(ctx, env)
		}
	}
}

// Pending is the number of buffered announcements.
func (o *Outbox) Pending() int {
	return len(o.queue)
}

func (o *Outbox) deliver(ctx context.Context, env envelope) {
	a := env.announcement
	if env.correlationID == "" {
		env.correlationID = uuid.NewString()
	}
	ctx, span := o.tracer.Start(ctx, "Outbox.deliver", trace.WithAttributes(
		attribute.String("announcement.kind", string(a.Kind)),
		attribute.String("guild_id", string(a.Lobby.GuildID)),
	))
	defer span.End()

	logger := o.logger.With(
		attr.String("correlation_id", env.correlationID),
		attr.String("kind", string(a.Kind)),
		attr.Lobby(a.Lobby),
	)

	topic, ok := topics[a.Kind]
	if !ok {
		logger.ErrorContext(ctx, "Unknown announcement kind")
		return
	}

	msg, err := handlerwrapper.NewMessage(handlerwrapper.Result{
		Topic:    topic,
		Payload:  Payload(a),
		Metadata: map[string]string{KindMetadataKey: string(a.Kind)},
	}, env.correlationID)
	if err == nil {
		err = guildscope.PublishWithGuildScope(o.publisher, topic, a.Lobby.GuildID, msg)
	}
	if err != nil {
		span.RecordError(err)
		logger.ErrorContext(ctx, "Failed to publish announcement", attr.Error(err))
	}

	if a.DirectMessage && a.Game != nil {
		o.directMessages(ctx, logger, a)
	}
}

func (o *Outbox) directMessages(ctx context.Context, logger *slog.Logger, a matchmakingservice.Announcement) {
	content := ReadyMessage(a.Game, a.Channel)
	for _, userID := range a.Game.Roster.Players() {
		if err := o.dms.Wait(ctx); err != nil {
			return
		}
		err := o.platform.SendDirect(ctx, identity.DirectMessage{
			GuildID: a.Lobby.GuildID,
			UserID:  userID,
			Content: content,
		})
		if err != nil {
			logger.WarnContext(ctx, "Direct message failed", attr.UserID(userID), attr.Error(err))
		}
	}
}

// Payload builds the wire payload for an announcement.
func Payload(a matchmakingservice.Announcement) any {
	if a.Kind == matchmakingservice.AnnounceEvicted {
		return &matchmakingevents.QueueEvictedPayloadV1{
			GuildID:         a.Lobby.GuildID,
			ChannelID:       a.Lobby.ChannelID,
			AnnounceChannel: a.Channel,
			Users:           a.Users,
		}
	}
	p := matchmakingevents.GameV1(a.Game, a.Channel)
	if len(a.Changes) > 0 {
		p.Changes = ratingevents.ScoreChangesV1(a.Changes)
	}
	p.Warnings = a.Warnings
	return &p
}

// ReadyMessage is the DM text sent to players of a game that is ready to play.
func ReadyMessage(game *matchmakingdomain.Game, channel sharedtypes.ChannelID) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Game #%d is ready in <#%s>.", game.Number, channel)
	if game.Map != "" {
		fmt.Fprintf(&b, " Map: %s.", game.Map)
	}
	if _, picking := game.Phase.(matchmakingdomain.Picking); picking {
		b.WriteString(" Captains are picking teams.")
	}
	return b.String()
}

var _ matchmakingservice.Announcer = (*Outbox)(nil)
