package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// InstallmentRepository persists installments.
// Default reads exclude soft-deleted rows; the IncludingDeleted variant does not.
// Lookups return (nil, nil) when nothing matches.
type InstallmentRepository interface {
	// Create inserts a new installment. A collision on the period key among
	// non-deleted rows is returned as ErrDuplicatePeriod.
	Create(ctx context.Context, inst *Installment) error

	// Save persists field edits and state transitions of a non-deleted row.
	// The write is conditioned on the version the row held when inst was
	// loaded: a row changed in between returns ErrConcurrentModification, a
	// row deleted in between returns ErrInstallmentNotFound. Period key
	// collisions return ErrDuplicatePeriod.
	Save(ctx context.Context, inst *Installment) error

	FindByID(ctx context.Context, id uuid.UUID) (*Installment, error)
	FindByIDIncludingDeleted(ctx context.Context, id uuid.UUID) (*Installment, error)

	// FindActiveByPeriod returns the non-deleted installment holding the period key
	FindActiveByPeriod(ctx context.Context, studentCategoryID uuid.UUID, period Period) (*Installment, error)

	// FindByEnrollment lists an enrollment's installments, newest period first
	FindByEnrollment(ctx context.Context, studentCategoryID uuid.UUID) ([]Installment, error)

	// FindByState lists installments, filtered by state when state is non-nil
	FindByState(ctx context.Context, state *InstallmentState) ([]Installment, error)

	FindByPeriod(ctx context.Context, period Period) ([]Installment, error)

	// FindOverdue lists unpaid (PENDING or OVERDUE) installments due before ref.
	// It never changes state.
	FindOverdue(ctx context.Context, ref time.Time) ([]Installment, error)

	// FindDueForOverdue lists at most limit PENDING installments due before ref
	FindDueForOverdue(ctx context.Context, ref time.Time, limit int) ([]Installment, error)

	// SoftDelete and Restore persist only the audit stamp columns and the
	// version, under the same version check as Save
	SoftDelete(ctx context.Context, inst *Installment) error
	Restore(ctx context.Context, inst *Installment) error

	// HardDelete physically removes the row, deleted or not
	HardDelete(ctx context.Context, id uuid.UUID) error
}

// EnrollmentDetail is the read-side expansion of an enrollment:
// enrollment -> student -> person, plus the category name.
type EnrollmentDetail struct {
	StudentCategoryID uuid.UUID `json:"student_category_id"`
	StudentID         uuid.UUID `json:"student_id"`
	PersonID          uuid.UUID `json:"person_id"`
	FirstName         string    `json:"first_name"`
	LastName          string    `json:"last_name"`
	DocumentNumber    string    `json:"document_number"`
	CategoryID        uuid.UUID `json:"category_id"`
	CategoryName      string    `json:"category_name"`
}

// FullName returns "LastName, FirstName"
func (d EnrollmentDetail) FullName() string {
	switch {
	case d.LastName == "":
		return d.FirstName
	case d.FirstName == "":
		return d.LastName
	}
	return d.LastName + ", " + d.FirstName
}

// EnrollmentReader resolves enrollment details owned by the enrollment module
type EnrollmentReader interface {
	// FindDetails returns details keyed by student category ID. Unknown IDs are omitted.
	FindDetails(ctx context.Context, studentCategoryIDs []uuid.UUID) (map[uuid.UUID]EnrollmentDetail, error)
}
