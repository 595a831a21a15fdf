package billing

import (
	"time"

	"github.com/clubdeportivo/backend/internal/domain/audit"
	"github.com/clubdeportivo/backend/internal/domain/billing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateInstallmentInput carries the fields needed to issue an installment
type CreateInstallmentInput struct {
	StudentCategoryID uuid.UUID
	Year              int
	Month             billing.Month
	Amount            decimal.Decimal
	Discount          decimal.Decimal
	Surcharge         decimal.Decimal
	DueDate           time.Time
	Notes             string
}

// UpdateInstallmentInput carries a partial edit. Nil fields are left untouched.
type UpdateInstallmentInput struct {
	StudentCategoryID *uuid.UUID
	Year              *int
	Month             *billing.Month
	Amount            *decimal.Decimal
	Discount          *decimal.Decimal
	Surcharge         *decimal.Decimal
	DueDate           *time.Time
	PaymentMethod     *string
	ReceiptNumber     *string
	Notes             *string
}

func (in UpdateInstallmentInput) toPatch() billing.Patch {
	return billing.Patch{
		StudentCategoryID: in.StudentCategoryID,
		Year:              in.Year,
		Month:             in.Month,
		Amount:            in.Amount,
		Discount:          in.Discount,
		Surcharge:         in.Surcharge,
		DueDate:           in.DueDate,
		PaymentMethod:     in.PaymentMethod,
		ReceiptNumber:     in.ReceiptNumber,
		Notes:             in.Notes,
	}
}

// MarkAsPaidInput carries the payment data. A nil PaymentDate means "now".
type MarkAsPaidInput struct {
	PaymentDate   *time.Time
	PaymentMethod string
	ReceiptNumber string
	CollectedBy   *uuid.UUID
}

// InstallmentResponse is the read model returned to callers
type InstallmentResponse struct {
	ID                uuid.UUID           `json:"id"`
	StudentCategoryID uuid.UUID           `json:"student_category_id"`
	Year              int                 `json:"year"`
	Month             string              `json:"month"`
	MonthName         string              `json:"month_name"`
	Amount            decimal.Decimal     `json:"amount"`
	Discount          decimal.Decimal     `json:"discount"`
	Surcharge         decimal.Decimal     `json:"surcharge"`
	TotalDue          decimal.Decimal     `json:"total_due"`
	State             string              `json:"state"`
	DueDate           time.Time           `json:"due_date"`
	PaymentDate       *time.Time          `json:"payment_date,omitempty"`
	PaymentMethod     string              `json:"payment_method"`
	ReceiptNumber     string              `json:"receipt_number"`
	CollectedByUserID *uuid.UUID          `json:"collected_by_user_id,omitempty"`
	Notes             string              `json:"notes"`
	DeletedAt         *time.Time          `json:"deleted_at,omitempty"`
	DeletedBy         *uuid.UUID          `json:"deleted_by,omitempty"`
	RestoredAt        *time.Time          `json:"restored_at,omitempty"`
	RestoredBy        *uuid.UUID          `json:"restored_by,omitempty"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
	Version           int                 `json:"version"`
	Enrollment        *EnrollmentResponse `json:"enrollment,omitempty"`
}

// EnrollmentResponse is the expanded enrollment attached by ListByState
type EnrollmentResponse struct {
	StudentCategoryID uuid.UUID `json:"student_category_id"`
	StudentID         uuid.UUID `json:"student_id"`
	PersonID          uuid.UUID `json:"person_id"`
	FullName          string    `json:"full_name"`
	FirstName         string    `json:"first_name"`
	LastName          string    `json:"last_name"`
	DocumentNumber    string    `json:"document_number"`
	CategoryID        uuid.UUID `json:"category_id"`
	CategoryName      string    `json:"category_name"`
}

// MarkOverdueResult summarizes one overdue sweep
type MarkOverdueResult struct {
	ReferenceDate time.Time `json:"reference_date"`
	Marked        int       `json:"marked"`
}

// AuditEntryResponse is one row of an installment's audit trail
type AuditEntryResponse struct {
	ID         uuid.UUID  `json:"id"`
	EventID    uuid.UUID  `json:"event_id"`
	EventType  string     `json:"event_type"`
	ActorID    *uuid.UUID `json:"actor_id,omitempty"`
	Payload    any        `json:"payload"`
	OccurredAt time.Time  `json:"occurred_at"`
}

// ToInstallmentResponse maps a domain installment to its response
func ToInstallmentResponse(i *billing.Installment) InstallmentResponse {
	return InstallmentResponse{
		ID:                i.ID,
		StudentCategoryID: i.StudentCategoryID,
		Year:              i.Year,
		Month:             i.Month.String(),
		MonthName:         i.Month.Name(),
		Amount:            i.Amount,
		Discount:          i.Discount,
		Surcharge:         i.Surcharge,
		TotalDue:          i.TotalDue(),
		State:             i.State.String(),
		DueDate:           i.DueDate,
		PaymentDate:       i.PaymentDate,
		PaymentMethod:     i.PaymentMethod,
		ReceiptNumber:     i.ReceiptNumber,
		CollectedByUserID: i.CollectedByUserID,
		Notes:             i.Notes,
		DeletedAt:         i.DeletedAt,
		DeletedBy:         i.DeletedBy,
		RestoredAt:        i.RestoredAt,
		RestoredBy:        i.RestoredBy,
		CreatedAt:         i.CreatedAt,
		UpdatedAt:         i.UpdatedAt,
		Version:           i.Version,
	}
}

// ToInstallmentResponses maps a slice of installments, never returning nil
func ToInstallmentResponses(items []billing.Installment) []InstallmentResponse {
	responses := make([]InstallmentResponse, len(items))
	for i := range items {
		responses[i] = ToInstallmentResponse(&items[i])
	}
	return responses
}

func toEnrollmentResponse(d billing.EnrollmentDetail) *EnrollmentResponse {
	return &EnrollmentResponse{
		StudentCategoryID: d.StudentCategoryID,
		StudentID:         d.StudentID,
		PersonID:          d.PersonID,
		FullName:          d.FullName(),
		FirstName:         d.FirstName,
		LastName:          d.LastName,
		DocumentNumber:    d.DocumentNumber,
		CategoryID:        d.CategoryID,
		CategoryName:      d.CategoryName,
	}
}

func toAuditEntryResponses(entries []audit.Entry) []AuditEntryResponse {
	responses := make([]AuditEntryResponse, len(entries))
	for i, e := range entries {
		responses[i] = AuditEntryResponse{
			ID:         e.ID,
			EventID:    e.EventID,
			EventType:  e.EventType,
			ActorID:    e.ActorID,
			Payload:    e.Payload,
			OccurredAt: e.OccurredAt,
		}
	}
	return responses
}
