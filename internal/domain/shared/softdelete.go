package shared

import (
	"time"

	"github.com/google/uuid"
)

// SoftDeletable is implemented by aggregates that support logical deletion.
// A logically deleted record is hidden from default reads and from
// uniqueness checks but can be brought back with Restore.
type SoftDeletable interface {
	SoftDelete(by *uuid.UUID) error
	Restore(by *uuid.UUID)
	IsDeleted() bool
	Stamp() SoftDeleteStamp
}

// SoftDeleteStamp holds the audit columns written by soft delete and restore.
// DeletedAt != nil means the record is logically deleted.
type SoftDeleteStamp struct {
	DeletedAt  *time.Time `json:"deleted_at,omitempty"`
	DeletedBy  *uuid.UUID `json:"deleted_by,omitempty"`
	RestoredAt *time.Time `json:"restored_at,omitempty"`
	RestoredBy *uuid.UUID `json:"restored_by,omitempty"`
}

// IsDeleted reports whether the stamp marks the record as logically deleted
func (s *SoftDeleteStamp) IsDeleted() bool {
	return s.DeletedAt != nil
}

// MarkDeleted stamps deletion time and actor.
func (s *SoftDeleteStamp) MarkDeleted(at time.Time, by *uuid.UUID) {
	s.DeletedAt = &at
	s.DeletedBy = by
}

// MarkRestored clears the deletion fields and stamps restoration time and actor.
// It is applied unconditionally so restoring an active record still records who touched it.
func (s *SoftDeleteStamp) MarkRestored(at time.Time, by *uuid.UUID) {
	s.DeletedAt = nil
	s.DeletedBy = nil
	s.RestoredAt = &at
	s.RestoredBy = by
}
