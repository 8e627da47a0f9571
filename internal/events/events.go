// Package events publishes domain events on an in-process watermill pub/sub.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Topic carries every domain event; the type travels in metadata.
const Topic = "edumeet.events"

// Type names a domain event.
type Type string

const (
	TypeUserAuthenticated Type = "user.authenticated"
	TypeUserSignedOut     Type = "user.signed_out"
	TypeAssignmentCreated Type = "assignment.created"
	TypeSubmissionCreated Type = "submission.created"
	TypeClassCreated      Type = "class.created"
	TypeClassJoined       Type = "class.joined"
	TypeClassLeft         Type = "class.left"
)

// Event is the JSON payload of every message.
type Event struct {
	ID        string                 `json:"id"`
	Type      Type                   `json:"type"`
	UserID    string                 `json:"user_id,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// New stamps an event with an id and the current time.
func New(t Type, userID string, data map[string]interface{}) Event {
	return Event{ID: uuid.NewString(), Type: t, UserID: userID, Data: data, Timestamp: time.Now().UTC()}
}

// Publisher is what services depend on.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// Bus wraps a watermill go-channel pub/sub.
type Bus struct {
	pubsub *gochannel.GoChannel
	logger *zap.Logger
}

// NewBus builds the in-process bus.
func NewBus(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	ps := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, NewZapAdapter(logger))
	return &Bus{pubsub: ps, logger: logger}
}

// Publish marshals the event and hands it to subscribers.
func (b *Bus) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := message.NewMessage(event.ID, payload)
	msg.SetContext(ctx)
	msg.Metadata.Set("event_type", string(event.Type))
	msg.Metadata.Set("timestamp", event.Timestamp.Format(time.RFC3339))

	if err := b.pubsub.Publish(Topic, msg); err != nil {
		b.logger.Error("publish event failed", zap.String("event_type", string(event.Type)), zap.Error(err))
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// Subscribe streams decoded events until ctx is done.
func (b *Bus) Subscribe(ctx context.Context) (<-chan Event, error) {
	messages, err := b.pubsub.Subscribe(ctx, Topic)
	if err != nil {
		return nil, err
	}
	out := make(chan Event)
	go func() {
		defer close(out)
		for msg := range messages {
			var event Event
			if err := json.Unmarshal(msg.Payload, &event); err != nil {
				b.logger.Warn("dropping undecodable event", zap.String("message_id", msg.UUID), zap.Error(err))
				msg.Ack()
				continue
			}
			select {
			case out <- event:
				msg.Ack()
			case <-ctx.Done():
				msg.Nack()
				return
			}
		}
	}()
	return out, nil
}

// Close shuts the pub/sub down and closes subscriber channels.
func (b *Bus) Close() error {
	return b.pubsub.Close()
}

// Nop drops every event; used when ENABLE_EVENTS=false.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

func (Nop) Close() error { return nil }

// Recorder keeps published events in memory for tests.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, event Event) error {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
	return nil
}

func (r *Recorder) Close() error { return nil }

// Events returns what was published so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Types lists the published event types in order.
func (r *Recorder) Types() []Type {
	events := r.Events()
	out := make([]Type, len(events))
	for i, e := range events {
		out[i] = e.Type
	}
	return out
}

var _ watermill.LoggerAdapter = (*ZapAdapter)(nil)
