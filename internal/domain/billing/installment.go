package billing

import (
	"fmt"
	"time"

	"github.com/clubdeportivo/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AggregateType identifies installments in domain events and audit entries
const AggregateType = "Installment"

// Period identifies one billing cycle for an enrollment
type Period struct {
	Year  int   `json:"year"`
	Month Month `json:"month"`
}

// Validate checks the period bounds
func (p Period) Validate() error {
	if p.Year < 1900 || p.Year > 9999 {
		return shared.NewValidationError("Year must be between 1900 and 9999")
	}
	if !p.Month.IsValid() {
		return ErrInvalidMonth
	}
	return nil
}

// String renders the period as YYYY-MM
func (p Period) String() string {
	return fmt.Sprintf("%04d-%s", p.Year, p.Month)
}

// Payment carries the data recorded when an installment is paid
type Payment struct {
	PaidAt        *time.Time
	Method        string
	ReceiptNumber string
	CollectedBy   *uuid.UUID
}

// Installment is one period's fee obligation for a student's enrollment in a category.
//
// Invariants:
//   - (StudentCategoryID, Year, Month) is unique among non-deleted installments (enforced by storage)
//   - State == PAID implies PaymentDate != nil
//   - TotalDue is derived from Amount, Discount and Surcharge and never stored
type Installment struct {
	shared.BaseAggregateRoot
	shared.SoftDeleteStamp
	StudentCategoryID uuid.UUID        `json:"student_category_id"`
	Year              int              `json:"year"`
	Month             Month            `json:"month"`
	Amount            decimal.Decimal  `json:"amount"`
	Discount          decimal.Decimal  `json:"discount"`
	Surcharge         decimal.Decimal  `json:"surcharge"`
	State             InstallmentState `json:"state"`
	DueDate           time.Time        `json:"due_date"`
	PaymentDate       *time.Time       `json:"payment_date"`
	PaymentMethod     string           `json:"payment_method"`
	ReceiptNumber     string           `json:"receipt_number"`
	CollectedByUserID *uuid.UUID       `json:"collected_by_user_id"`
	Notes             string           `json:"notes"`
}

var _ shared.SoftDeletable = (*Installment)(nil)

// NewInstallmentParams holds the inputs to NewInstallment.
// Zero Discount and Surcharge mean "no adjustment".
type NewInstallmentParams struct {
	StudentCategoryID uuid.UUID
	Period            Period
	Amount            decimal.Decimal
	Discount          decimal.Decimal
	Surcharge         decimal.Decimal
	DueDate           time.Time
	Notes             string
}

// NewInstallment creates a PENDING installment after validating its fields
func NewInstallment(p NewInstallmentParams) (*Installment, error) {
	if p.StudentCategoryID == uuid.Nil {
		return nil, shared.NewValidationError("Student category ID cannot be empty")
	}
	if err := p.Period.Validate(); err != nil {
		return nil, err
	}
	if err := validateAmounts(p.Amount, p.Discount, p.Surcharge); err != nil {
		return nil, err
	}
	if p.DueDate.IsZero() {
		return nil, shared.NewValidationError("Due date is required")
	}

	inst := &Installment{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		StudentCategoryID: p.StudentCategoryID,
		Year:              p.Period.Year,
		Month:             p.Period.Month,
		Amount:            p.Amount,
		Discount:          p.Discount,
		Surcharge:         p.Surcharge,
		State:             StatePending,
		DueDate:           p.DueDate,
		Notes:             p.Notes,
	}

	inst.AddDomainEvent(NewInstallmentCreatedEvent(inst))
	return inst, nil
}

func validateAmounts(amount, discount, surcharge decimal.Decimal) error {
	if amount.IsNegative() {
		return shared.NewValidationError("Amount cannot be negative")
	}
	if discount.IsNegative() {
		return shared.NewValidationError("Discount cannot be negative")
	}
	if surcharge.IsNegative() {
		return shared.NewValidationError("Surcharge cannot be negative")
	}
	return nil
}

// Period returns the billing period of the installment
func (i *Installment) Period() Period {
	return Period{Year: i.Year, Month: i.Month}
}

// TotalDue returns amount - discount + surcharge.
// A discount larger than amount + surcharge yields a negative total; it is not clamped.
func (i *Installment) TotalDue() decimal.Decimal {
	return i.Amount.Sub(i.Discount).Add(i.Surcharge)
}

// IsOverdueAt reports whether the installment is unpaid and past due at ref
func (i *Installment) IsOverdueAt(ref time.Time) bool {
	return i.State != StatePaid && i.DueDate.Before(ref)
}

// Patch lists the fields that may be edited through Update.
// Nil fields are left untouched. State is deliberately absent: it only
// changes through MarkAsPaid and MarkOverdue.
type Patch struct {
	StudentCategoryID *uuid.UUID
	Year              *int
	Month             *Month
	Amount            *decimal.Decimal
	Discount          *decimal.Decimal
	Surcharge         *decimal.Decimal
	DueDate           *time.Time
	PaymentMethod     *string
	ReceiptNumber     *string
	Notes             *string
}

// ChangesPeriodKey reports whether applying the patch to i would move it to
// another (enrollment, year, month) key.
func (p Patch) ChangesPeriodKey(i *Installment) bool {
	if p.StudentCategoryID != nil && *p.StudentCategoryID != i.StudentCategoryID {
		return true
	}
	if p.Year != nil && *p.Year != i.Year {
		return true
	}
	return p.Month != nil && *p.Month != i.Month
}

// Update merges the patch into the installment
func (i *Installment) Update(p Patch) error {
	next := *i
	if p.StudentCategoryID != nil {
		if *p.StudentCategoryID == uuid.Nil {
			return shared.NewValidationError("Student category ID cannot be empty")
		}
		next.StudentCategoryID = *p.StudentCategoryID
	}
	if p.Year != nil {
		next.Year = *p.Year
	}
	if p.Month != nil {
		next.Month = *p.Month
	}
	if err := next.Period().Validate(); err != nil {
		return err
	}
	if p.Amount != nil {
		next.Amount = *p.Amount
	}
	if p.Discount != nil {
		next.Discount = *p.Discount
	}
	if p.Surcharge != nil {
		next.Surcharge = *p.Surcharge
	}
	if err := validateAmounts(next.Amount, next.Discount, next.Surcharge); err != nil {
		return err
	}
	if p.DueDate != nil {
		if p.DueDate.IsZero() {
			return shared.NewValidationError("Due date is required")
		}
		next.DueDate = *p.DueDate
	}
	if p.PaymentMethod != nil {
		next.PaymentMethod = *p.PaymentMethod
	}
	if p.ReceiptNumber != nil {
		next.ReceiptNumber = *p.ReceiptNumber
	}
	if p.Notes != nil {
		next.Notes = *p.Notes
	}

	*i = next
	i.IncrementVersion()
	i.AddDomainEvent(NewInstallmentUpdatedEvent(i))
	return nil
}

// MarkAsPaid transitions PENDING or OVERDUE to PAID.
// Paying twice is rejected with ErrAlreadyPaid rather than silently accepted.
func (i *Installment) MarkAsPaid(p Payment) error {
	if i.State == StatePaid {
		return ErrAlreadyPaid
	}
	if !i.State.CanBePaid() {
		return shared.NewDomainError(shared.CodeInvalidState, fmt.Sprintf("Cannot pay installment in %s state", i.State))
	}

	paidAt := time.Now()
	if p.PaidAt != nil && !p.PaidAt.IsZero() {
		paidAt = *p.PaidAt
	}
	previous := i.State
	i.State = StatePaid
	i.PaymentDate = &paidAt
	i.PaymentMethod = p.Method
	i.ReceiptNumber = p.ReceiptNumber
	i.CollectedByUserID = p.CollectedBy

	i.IncrementVersion()
	i.AddDomainEvent(NewInstallmentPaidEvent(i, previous))
	return nil
}

// MarkOverdue transitions a PENDING installment whose due date is before ref to OVERDUE
func (i *Installment) MarkOverdue(ref time.Time) error {
	if !i.State.CanBecomeOverdue() {
		return shared.NewDomainError(shared.CodeInvalidState, fmt.Sprintf("Cannot mark installment in %s state as overdue", i.State))
	}
	if !i.DueDate.Before(ref) {
		return shared.NewDomainError(shared.CodeInvalidState, "Installment is not past its due date")
	}

	i.State = StateOverdue
	i.IncrementVersion()
	i.AddDomainEvent(NewInstallmentMarkedOverdueEvent(i, ref))
	return nil
}

// SoftDelete marks the installment as logically deleted.
// Deleting an already deleted installment is reported as not found, matching
// what a default-scoped lookup would see.
func (i *Installment) SoftDelete(by *uuid.UUID) error {
	if i.IsDeleted() {
		return ErrInstallmentNotFound
	}
	i.MarkDeleted(time.Now(), by)
	i.IncrementVersion()
	i.AddDomainEvent(NewInstallmentSoftDeletedEvent(i))
	return nil
}

// Restore clears the deletion stamps and records who restored the installment.
// It is stamped even when the installment was not deleted. State is untouched.
func (i *Installment) Restore(by *uuid.UUID) {
	i.MarkRestored(time.Now(), by)
	i.IncrementVersion()
	i.AddDomainEvent(NewInstallmentRestoredEvent(i))
}

// Stamp returns a copy of the soft-delete audit fields
func (i *Installment) Stamp() shared.SoftDeleteStamp {
	return i.SoftDeleteStamp
}
