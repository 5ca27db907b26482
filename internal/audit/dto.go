package audit

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/skarvik/fabops-backend/pkg/db/models"
)

// EntryDTO is the API shape of one audit entry.
type EntryDTO struct {
	ID            uuid.UUID       `json:"id"`
	EntityType    string          `json:"entity_type"`
	EntityID      uuid.UUID       `json:"entity_id"`
	Action        string          `json:"action"`
	PreviousState json.RawMessage `json:"previous_state,omitempty"`
	NewState      json.RawMessage `json:"new_state,omitempty"`
	Reason        *string         `json:"reason,omitempty"`
	ActorID       uuid.UUID       `json:"actor_id"`
	RecordedAt    time.Time       `json:"recorded_at"`
}

// NewEntryDTO maps a persisted entry to its API shape.
func NewEntryDTO(entry models.AuditEntry) EntryDTO {
	return EntryDTO{
		ID:            entry.ID,
		EntityType:    string(entry.EntityType),
		EntityID:      entry.EntityID,
		Action:        string(entry.Action),
		PreviousState: entry.PreviousState,
		NewState:      entry.NewState,
		Reason:        entry.Reason,
		ActorID:       entry.ActorID,
		RecordedAt:    entry.RecordedAt,
	}
}

func newEntryListResult(rows []models.AuditEntry, nextCursor string) *EntryListResult {
	entries := make([]EntryDTO, len(rows))
	for i, row := range rows {
		entries[i] = NewEntryDTO(row)
	}
	return &EntryListResult{Entries: entries, NextCursor: nextCursor}
}
