package models

import (
	"time"

	"github.com/clubdeportivo/backend/internal/domain/audit"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// AuditLogModel is one row of the installment audit trail.
// EventID is unique so replayed events cannot produce duplicate entries.
type AuditLogModel struct {
	ID            uuid.UUID      `gorm:"type:uuid;primary_key"`
	EventID       uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex"`
	AggregateType string         `gorm:"type:varchar(50);not null"`
	AggregateID   uuid.UUID      `gorm:"type:uuid;not null;index:idx_audit_logs_aggregate,priority:1"`
	EventType     string         `gorm:"type:varchar(100);not null"`
	ActorID       *uuid.UUID     `gorm:"type:uuid"`
	Payload       datatypes.JSON `gorm:"type:jsonb"`
	OccurredAt    time.Time      `gorm:"not null;index:idx_audit_logs_aggregate,priority:2"`
	CreatedAt     time.Time      `gorm:"not null"`
}

// TableName returns the table name for GORM
func (AuditLogModel) TableName() string {
	return "audit_logs"
}

// ToDomain converts the model to an audit entry
func (m *AuditLogModel) ToDomain() *audit.Entry {
	return &audit.Entry{
		ID:            m.ID,
		EventID:       m.EventID,
		AggregateType: m.AggregateType,
		AggregateID:   m.AggregateID,
		EventType:     m.EventType,
		ActorID:       m.ActorID,
		Payload:       []byte(m.Payload),
		OccurredAt:    m.OccurredAt,
		CreatedAt:     m.CreatedAt,
	}
}

// AuditLogModelFromDomain creates a persistence model from an audit entry
func AuditLogModelFromDomain(e *audit.Entry) *AuditLogModel {
	return &AuditLogModel{
		ID:            e.ID,
		EventID:       e.EventID,
		AggregateType: e.AggregateType,
		AggregateID:   e.AggregateID,
		EventType:     e.EventType,
		ActorID:       e.ActorID,
		Payload:       datatypes.JSON(e.Payload),
		OccurredAt:    e.OccurredAt,
		CreatedAt:     e.CreatedAt,
	}
}
