// Package audit records who changed what on billing aggregates.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/clubdeportivo/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Entry is an immutable audit trail record derived from a domain event
type Entry struct {
	ID            uuid.UUID       `json:"id"`
	EventID       uuid.UUID       `json:"event_id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   uuid.UUID       `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	ActorID       *uuid.UUID      `json:"actor_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
	OccurredAt    time.Time       `json:"occurred_at"`
	CreatedAt     time.Time       `json:"created_at"`
}

// NewEntryFromEvent builds an entry whose payload is the JSON encoding of the event
func NewEntryFromEvent(event shared.DomainEvent) (*Entry, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", event.EventType(), err)
	}
	return &Entry{
		ID:            uuid.New(),
		EventID:       event.EventID(),
		AggregateType: event.AggregateType(),
		AggregateID:   event.AggregateID(),
		EventType:     event.EventType(),
		ActorID:       event.ActorID(),
		Payload:       payload,
		OccurredAt:    event.OccurredAt(),
		CreatedAt:     time.Now(),
	}, nil
}

// Repository stores audit entries
type Repository interface {
	// Append stores the entry. Appending an entry whose EventID already exists is a no-op.
	Append(ctx context.Context, entry *Entry) error
	// FindByAggregate returns entries for one aggregate, oldest first
	FindByAggregate(ctx context.Context, aggregateType string, aggregateID uuid.UUID) ([]Entry, error)
}
