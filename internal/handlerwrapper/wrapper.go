// Package handlerwrapper adapts typed payload handlers to watermill handler functions.
package handlerwrapper

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Black-And-White-Club/lobby-bot/internal/attr"
	"github.com/Black-And-White-Club/lobby-bot/internal/eventbus"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type ctxKey string

// CtxKeyReplyTo carries the inbound "reply_to" metadata, if any.
const CtxKeyReplyTo ctxKey = "reply_to"

// ReplyToMetadataKey is the metadata key requesters set to receive responses on a private subject.
const ReplyToMetadataKey = "reply_to"

// Result is one outbound message produced by a handler.
type Result struct {
	Topic    string
	Payload  any
	Metadata map[string]string
}

// TypedHandler handles a decoded payload and returns messages to publish.
type TypedHandler[T any] func(ctx context.Context, payload *T) ([]Result, error)

// WrapTransformingTyped decodes the JSON payload into T, runs handler inside a span and
// converts the results into watermill messages carrying the inbound correlation id.
// Malformed payloads are logged and acked.
func WrapTransformingTyped[T any](
	handlerName string,
	logger *slog.Logger,
	tracer trace.Tracer,
	handler TypedHandler[T],
) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		ctx := msg.Context()
		correlationID := middleware.MessageCorrelationID(msg)
		if correlationID == "" {
			correlationID = msg.UUID
		}
		ctx = attr.WithCorrelationID(ctx, correlationID)
		if rt := msg.Metadata.Get(ReplyToMetadataKey); rt != "" {
			ctx = context.WithValue(ctx, CtxKeyReplyTo, rt)
		}

		ctx, span := tracer.Start(ctx, handlerName, trace.WithAttributes(
			attribute.String("message.uuid", msg.UUID),
			attribute.String("correlation_id", correlationID),
		))
		defer span.End()

		payload := new(T)
		if err := json.Unmarshal(msg.Payload, payload); err != nil {
			logger.WarnContext(ctx, "Discarding malformed payload",
				attr.ExtractCorrelationID(ctx),
				attr.String("handler", handlerName),
				attr.Error(err),
			)
			return nil, nil
		}

		results, err := handler(ctx, payload)
		if err != nil {
			span.RecordError(err)
			logger.ErrorContext(ctx, "Handler failed",
				attr.ExtractCorrelationID(ctx),
				attr.String("handler", handlerName),
				attr.Error(err),
			)
			return nil, err
		}

		out := make([]*message.Message, 0, len(results))
		for _, r := range results {
			m, err := NewMessage(r, correlationID)
			if err != nil {
				span.RecordError(err)
				return nil, fmt.Errorf("%s: %w", handlerName, err)
			}
			out = append(out, m)
		}
		return out, nil
	}
}

// NewMessage marshals r into a watermill message addressed through its topic metadata.
func NewMessage(r Result, correlationID string) (*message.Message, error) {
	body, err := json.Marshal(r.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload for %s: %w", r.Topic, err)
	}
	m := message.NewMessage(watermill.NewUUID(), body)
	for k, v := range r.Metadata {
		m.Metadata.Set(k, v)
	}
	m.Metadata.Set(eventbus.TopicMetadataKey, r.Topic)
	if correlationID != "" {
		middleware.SetCorrelationID(correlationID, m)
	}
	return m, nil
}
