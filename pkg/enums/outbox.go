package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateGoodsReceipt   OutboxAggregateType = "goods_receipt"
	AggregateInventoryLot   OutboxAggregateType = "inventory_lot"
	AggregateProfile        OutboxAggregateType = "profile"
	AggregateProfileRemnant OutboxAggregateType = "profile_remnant"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateGoodsReceipt,
	AggregateInventoryLot,
	AggregateProfile,
	AggregateProfileRemnant,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventReceiptCreated       OutboxEventType = "receipt_created"
	EventReceiptDeleted       OutboxEventType = "receipt_deleted"
	EventStockReserved        OutboxEventType = "stock_reserved"
	EventStockReleased        OutboxEventType = "stock_released"
	EventStockConsumed        OutboxEventType = "stock_consumed"
	EventProfileUsageRecorded OutboxEventType = "profile_usage_recorded"
	EventRemnantUsageRecorded OutboxEventType = "remnant_usage_recorded"
	EventRemnantCreated       OutboxEventType = "remnant_created"
	EventStockLevelAdjusted   OutboxEventType = "stock_level_adjusted"
)

var validOutboxEventTypes = []OutboxEventType{
	EventReceiptCreated,
	EventReceiptDeleted,
	EventStockReserved,
	EventStockReleased,
	EventStockConsumed,
	EventProfileUsageRecorded,
	EventRemnantUsageRecorded,
	EventRemnantCreated,
	EventStockLevelAdjusted,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
