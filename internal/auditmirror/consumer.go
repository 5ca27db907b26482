package auditmirror

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/skarvik/fabops-backend/pkg/enums"
	"github.com/skarvik/fabops-backend/pkg/logger"
	"github.com/skarvik/fabops-backend/pkg/outbox"
)

const (
	consumerName          = "audit-mirror"
	defaultPublishTimeout = 15 * time.Second
)

// Publisher abstracts the audit topic so tests can observe published records.
type Publisher interface {
	Publish(ctx context.Context, msg *pubsub.Message) PublishResult
}

// PublishResult mirrors the blocking half of a Pub/Sub publish.
type PublishResult interface {
	Get(ctx context.Context) (string, error)
}

type idempotencyChecker interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Delete(ctx context.Context, consumer string, eventID uuid.UUID) error
}

// Consumer forwards stock domain events to the audit mirror topic exactly once.
// Malformed messages are acked and dropped; transient failures are nacked so
// Pub/Sub redelivers them.
type Consumer struct {
	subscription *pubsub.Subscriber
	publisher    Publisher
	idempotency  idempotencyChecker
	logg         *logger.Logger
}

// NewConsumer builds an audit mirror consumer.
func NewConsumer(subscription *pubsub.Subscriber, publisher Publisher, manager idempotencyChecker, logg *logger.Logger) (*Consumer, error) {
	if subscription == nil {
		return nil, fmt.Errorf("stock subscription required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("audit publisher required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		subscription: subscription,
		publisher:    publisher,
		idempotency:  manager,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	rawType := msg.Attributes["event_type"]
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": rawType,
	})

	eventType, err := enums.ParseOutboxEventType(rawType)
	if err != nil {
		c.logg.Info(logCtx, "skipping unrecognized event")
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}
	logCtx = c.logg.WithField(logCtx, "event_id", envelope.EventID)

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, consumerName, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already mirrored")
		return processResult{ack: true}
	}

	if err := c.mirror(ctx, eventType, msg, envelope); err != nil {
		c.logg.Error(logCtx, "audit mirror publish failed", err)
		_ = c.idempotency.Delete(ctx, consumerName, eventID)
		return processResult{nack: true}
	}

	c.logg.Info(logCtx, "event mirrored to audit topic")
	return processResult{ack: true}
}

func (c *Consumer) mirror(ctx context.Context, eventType enums.OutboxEventType, msg *pubsub.Message, envelope outbox.PayloadEnvelope) error {
	record := mirrorRecord{
		EventID:       envelope.EventID,
		EventType:     string(eventType),
		AggregateType: msg.Attributes["aggregate_type"],
		AggregateID:   msg.Attributes["aggregate_id"],
		OccurredAt:    envelope.OccurredAt,
		Payload:       envelope.Data,
	}
	if envelope.Actor != nil {
		record.TenantID = envelope.Actor.TenantID.String()
		record.ActorID = envelope.Actor.ActorID.String()
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode mirror record: %w", err)
	}

	publishCtx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()
	result := c.publisher.Publish(publishCtx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"event_id":   envelope.EventID,
			"event_type": string(eventType),
			"source":     consumerName,
		},
	})
	if result == nil {
		return fmt.Errorf("publisher returned nil result")
	}
	if _, err := result.Get(publishCtx); err != nil {
		return err
	}
	return nil
}

type mirrorRecord struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	AggregateType string          `json:"aggregate_type,omitempty"`
	AggregateID   string          `json:"aggregate_id,omitempty"`
	TenantID      string          `json:"tenant_id,omitempty"`
	ActorID       string          `json:"actor_id,omitempty"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Payload       json.RawMessage `json:"payload,omitempty"`
}

// NewTopicPublisher adapts a concrete Pub/Sub publisher to the Publisher interface.
func NewTopicPublisher(p *pubsub.Publisher) Publisher {
	if p == nil {
		return nil
	}
	return &topicPublisher{publisher: p}
}

type topicPublisher struct {
	publisher *pubsub.Publisher
}

func (p *topicPublisher) Publish(ctx context.Context, msg *pubsub.Message) PublishResult {
	if p == nil || p.publisher == nil {
		return nil
	}
	return p.publisher.Publish(ctx, msg)
}
