package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Event is one user-facing notification. Kind is a stable machine tag
// (e.g. "withdrawal_created", "transfer_accepted"); the sender fields are
// display enrichment and may be empty when no profile exists.
type Event struct {
	RecipientID uuid.UUID `json:"recipient_id"`
	Kind        string    `json:"kind"`
	Message     string    `json:"message"`
	EntityID    uuid.UUID `json:"entity_id"`
	Amount      string    `json:"amount,omitempty"`
	SenderName  string    `json:"sender_name,omitempty"`
	SenderPhoto string    `json:"sender_photo,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Sink delivers notification events. Delivery is best effort: a failed
// emit never rolls back the money movement it describes.
type Sink interface {
	Emit(ctx context.Context, ev Event) error
}

const defaultStream = "treasury:notifications"

// RedisSink publishes events onto a Redis stream consumed by the
// notification fan-out service.
type RedisSink struct {
	client *redis.Client
	stream string
}

// NewRedisSink creates a sink writing to stream, or to the default
// stream when empty.
func NewRedisSink(client *redis.Client, stream string) *RedisSink {
	if stream == "" {
		stream = defaultStream
	}
	return &RedisSink{client: client, stream: stream}
}

func (s *RedisSink) Emit(ctx context.Context, ev Event) error {
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	err = s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]any{
			"recipient_id": ev.RecipientID.String(),
			"kind":         ev.Kind,
			"payload":      payload,
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("xadd notification: %w", err)
	}
	return nil
}

// NopSink drops every event. Used in tests and when Redis is not
// configured.
type NopSink struct{}

func (NopSink) Emit(context.Context, Event) error { return nil }
