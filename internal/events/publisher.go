package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/foundernet/messaging-platform/pkg/logger"
	"github.com/foundernet/messaging-platform/pkg/metrics"
)

const (
	// StreamName is the name of the messaging events stream.
	StreamName = "MESSAGING"

	// SubjectPrefix is the prefix for all messaging subjects.
	SubjectPrefix = "messaging"
)

// Publisher emits domain events to JetStream. A nil Publisher is valid
// and drops everything, so the service runs without NATS.
type Publisher struct {
	client *Client
	logger *logger.Logger
}

// NewPublisher creates a publisher over an established client.
func NewPublisher(client *Client, log *logger.Logger) *Publisher {
	return &Publisher{client: client, logger: log}
}

// EnsureStream ensures the messaging stream exists.
func (p *Publisher) EnsureStream(ctx context.Context) error {
	if p == nil {
		return nil
	}
	js := p.client.JetStream()

	if _, err := js.Stream(ctx, StreamName); err == nil {
		return nil
	}

	_, err := js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{fmt.Sprintf("%s.>", SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      30 * 24 * time.Hour,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Compression: jetstream.S2Compression,
		Description: "Chat and message state-change events",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}
	return nil
}

// Subject returns the subject for an event in a chat.
func Subject(chatID string, typ Type) string {
	return fmt.Sprintf("%s.%s.%s", SubjectPrefix, chatID, typ)
}

// Publish emits one event. Failures are logged and counted, never
// returned: the persisted write already committed and stays
// authoritative.
func (p *Publisher) Publish(ctx context.Context, ev Event) {
	if p == nil {
		return
	}

	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}

	data, err := json.Marshal(ev)
	if err != nil {
		p.logger.Error("failed to marshal event", zap.String("type", string(ev.Type)), zap.Error(err))
		metrics.EventPublishFailures.WithLabelValues(string(ev.Type)).Inc()
		return
	}

	if _, err := p.client.JetStream().Publish(ctx, Subject(ev.ChatID, ev.Type), data); err != nil {
		p.logger.Error("failed to publish event",
			zap.String("type", string(ev.Type)),
			zap.String("chat_id", ev.ChatID),
			zap.Error(err),
		)
		metrics.EventPublishFailures.WithLabelValues(string(ev.Type)).Inc()
		return
	}

	metrics.EventsPublished.WithLabelValues(string(ev.Type)).Inc()
}
