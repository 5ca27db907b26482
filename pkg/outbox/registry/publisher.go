package registry

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/skarvik/fabops-backend/pkg/config"
	"github.com/skarvik/fabops-backend/pkg/db/models"
	"github.com/skarvik/fabops-backend/pkg/enums"
	"github.com/skarvik/fabops-backend/pkg/outbox"
	"github.com/skarvik/fabops-backend/pkg/outbox/payloads"
)

// EventDescriptor links an event type to its allowed aggregates, topic, and
// payload schema. Reservation events span several aggregate kinds, so the
// aggregate check is a set membership, not an equality.
type EventDescriptor struct {
	EventType      enums.OutboxEventType
	AggregateTypes []enums.OutboxAggregateType
	Topic          string
	PayloadFactory func() interface{}
}

// ResolvedEvent is the result of decoding an outbox row.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    interface{}
}

// EventRegistry maps each supported event type to its descriptor.
type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

// NonRetryableError signals the dispatcher should stop retrying a row.
type NonRetryableError struct {
	Err error
}

// Error implements error.
func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

// Unwrap exposes the wrapped error.
func (e NonRetryableError) Unwrap() error {
	return e.Err
}

// NewEventRegistry builds the registry with the configured topic names.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	if cfg.StockTopic == "" {
		return nil, fmt.Errorf("stock topic is required")
	}

	reg := &EventRegistry{entries: make(map[enums.OutboxEventType]EventDescriptor)}
	stockTopic := cfg.StockTopic

	receiptAggregates := []enums.OutboxAggregateType{enums.AggregateGoodsReceipt}
	reservableAggregates := []enums.OutboxAggregateType{
		enums.AggregateInventoryLot,
		enums.AggregateProfile,
		enums.AggregateProfileRemnant,
	}

	for _, desc := range []EventDescriptor{
		{
			EventType:      enums.EventReceiptCreated,
			AggregateTypes: receiptAggregates,
			Topic:          stockTopic,
			PayloadFactory: func() interface{} { return &payloads.ReceiptCreatedEvent{} },
		},
		{
			EventType:      enums.EventReceiptDeleted,
			AggregateTypes: receiptAggregates,
			Topic:          stockTopic,
			PayloadFactory: func() interface{} { return &payloads.ReceiptDeletedEvent{} },
		},
		{
			EventType:      enums.EventStockReserved,
			AggregateTypes: reservableAggregates,
			Topic:          stockTopic,
			PayloadFactory: func() interface{} { return &payloads.StockReservedEvent{} },
		},
		{
			EventType:      enums.EventStockReleased,
			AggregateTypes: reservableAggregates,
			Topic:          stockTopic,
			PayloadFactory: func() interface{} { return &payloads.StockReleasedEvent{} },
		},
		{
			EventType:      enums.EventStockConsumed,
			AggregateTypes: []enums.OutboxAggregateType{enums.AggregateInventoryLot},
			Topic:          stockTopic,
			PayloadFactory: func() interface{} { return &payloads.StockConsumedEvent{} },
		},
		{
			EventType:      enums.EventProfileUsageRecorded,
			AggregateTypes: []enums.OutboxAggregateType{enums.AggregateProfile},
			Topic:          stockTopic,
			PayloadFactory: func() interface{} { return &payloads.ProfileUsageRecordedEvent{} },
		},
		{
			EventType:      enums.EventRemnantUsageRecorded,
			AggregateTypes: []enums.OutboxAggregateType{enums.AggregateProfileRemnant},
			Topic:          stockTopic,
			PayloadFactory: func() interface{} { return &payloads.RemnantUsageRecordedEvent{} },
		},
		{
			EventType:      enums.EventRemnantCreated,
			AggregateTypes: []enums.OutboxAggregateType{enums.AggregateProfileRemnant},
			Topic:          stockTopic,
			PayloadFactory: func() interface{} { return &payloads.RemnantCreatedEvent{} },
		},
	} {
		reg.register(desc)
	}

	return reg, nil
}

func (r *EventRegistry) register(desc EventDescriptor) {
	if desc.PayloadFactory == nil {
		return
	}
	r.entries[desc.EventType] = desc
}

func (d EventDescriptor) allowsAggregate(aggregate enums.OutboxAggregateType) bool {
	for _, candidate := range d.AggregateTypes {
		if candidate == aggregate {
			return true
		}
	}
	return false
}

// Resolve validates the row and decodes its typed payload.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[event.EventType]
	if !ok {
		return nil, NewNonRetryableError(fmt.Errorf("unsupported event type %s", event.EventType))
	}
	if !desc.allowsAggregate(event.AggregateType) {
		return nil, NewNonRetryableError(fmt.Errorf("aggregate %s not allowed for %s", event.AggregateType, event.EventType))
	}
	if event.AggregateID == uuid.Nil {
		return nil, NewNonRetryableError(fmt.Errorf("missing aggregate_id"))
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode envelope: %w", err))
	}

	trimmed := bytes.TrimSpace(envelope.Data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, NewNonRetryableError(fmt.Errorf("payload missing for %s", event.EventType))
	}

	payload := desc.PayloadFactory()
	if payload == nil {
		return nil, NewNonRetryableError(fmt.Errorf("payload factory not configured for %s", event.EventType))
	}
	if err := json.Unmarshal(envelope.Data, payload); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode %s payload: %w", event.EventType, err))
	}

	return &ResolvedEvent{
		Descriptor: desc,
		Envelope:   envelope,
		Payload:    payload,
	}, nil
}

// NewNonRetryableError wraps an error to signal no retries.
func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}
