package billing

import (
	"time"

	"github.com/clubdeportivo/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event type names
const (
	EventTypeInstallmentCreated       = "InstallmentCreated"
	EventTypeInstallmentUpdated       = "InstallmentUpdated"
	EventTypeInstallmentPaid          = "InstallmentPaid"
	EventTypeInstallmentMarkedOverdue = "InstallmentMarkedOverdue"
	EventTypeInstallmentSoftDeleted   = "InstallmentSoftDeleted"
	EventTypeInstallmentRestored      = "InstallmentRestored"
	EventTypeInstallmentDeleted       = "InstallmentDeleted"
)

// AllEventTypes lists every installment event type
func AllEventTypes() []string {
	return []string{
		EventTypeInstallmentCreated,
		EventTypeInstallmentUpdated,
		EventTypeInstallmentPaid,
		EventTypeInstallmentMarkedOverdue,
		EventTypeInstallmentSoftDeleted,
		EventTypeInstallmentRestored,
		EventTypeInstallmentDeleted,
	}
}

// InstallmentCreatedEvent is raised when a new installment is issued
type InstallmentCreatedEvent struct {
	shared.BaseDomainEvent
	StudentCategoryID uuid.UUID       `json:"student_category_id"`
	Period            Period          `json:"period"`
	TotalDue          decimal.Decimal `json:"total_due"`
	DueDate           time.Time       `json:"due_date"`
}

// NewInstallmentCreatedEvent creates a new InstallmentCreatedEvent
func NewInstallmentCreatedEvent(i *Installment) *InstallmentCreatedEvent {
	return &InstallmentCreatedEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(EventTypeInstallmentCreated, AggregateType, i.ID, nil),
		StudentCategoryID: i.StudentCategoryID,
		Period:            i.Period(),
		TotalDue:          i.TotalDue(),
		DueDate:           i.DueDate,
	}
}

// InstallmentUpdatedEvent is raised after a field edit
type InstallmentUpdatedEvent struct {
	shared.BaseDomainEvent
	Period   Period          `json:"period"`
	TotalDue decimal.Decimal `json:"total_due"`
	Version  int             `json:"version"`
}

// NewInstallmentUpdatedEvent creates a new InstallmentUpdatedEvent
func NewInstallmentUpdatedEvent(i *Installment) *InstallmentUpdatedEvent {
	return &InstallmentUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInstallmentUpdated, AggregateType, i.ID, nil),
		Period:          i.Period(),
		TotalDue:        i.TotalDue(),
		Version:         i.Version,
	}
}

// InstallmentPaidEvent is raised when an installment transitions to PAID
type InstallmentPaidEvent struct {
	shared.BaseDomainEvent
	PreviousState InstallmentState `json:"previous_state"`
	TotalDue      decimal.Decimal  `json:"total_due"`
	PaymentDate   time.Time        `json:"payment_date"`
	PaymentMethod string           `json:"payment_method"`
	ReceiptNumber string           `json:"receipt_number"`
}

// NewInstallmentPaidEvent creates a new InstallmentPaidEvent
func NewInstallmentPaidEvent(i *Installment, previous InstallmentState) *InstallmentPaidEvent {
	return &InstallmentPaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInstallmentPaid, AggregateType, i.ID, i.CollectedByUserID),
		PreviousState:   previous,
		TotalDue:        i.TotalDue(),
		PaymentDate:     *i.PaymentDate,
		PaymentMethod:   i.PaymentMethod,
		ReceiptNumber:   i.ReceiptNumber,
	}
}

// InstallmentMarkedOverdueEvent is raised by the overdue transition
type InstallmentMarkedOverdueEvent struct {
	shared.BaseDomainEvent
	DueDate       time.Time `json:"due_date"`
	ReferenceDate time.Time `json:"reference_date"`
}

// NewInstallmentMarkedOverdueEvent creates a new InstallmentMarkedOverdueEvent
func NewInstallmentMarkedOverdueEvent(i *Installment, ref time.Time) *InstallmentMarkedOverdueEvent {
	return &InstallmentMarkedOverdueEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInstallmentMarkedOverdue, AggregateType, i.ID, nil),
		DueDate:         i.DueDate,
		ReferenceDate:   ref,
	}
}

// InstallmentSoftDeletedEvent is raised on logical deletion
type InstallmentSoftDeletedEvent struct {
	shared.BaseDomainEvent
	DeletedAt time.Time `json:"deleted_at"`
}

// NewInstallmentSoftDeletedEvent creates a new InstallmentSoftDeletedEvent
func NewInstallmentSoftDeletedEvent(i *Installment) *InstallmentSoftDeletedEvent {
	return &InstallmentSoftDeletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInstallmentSoftDeleted, AggregateType, i.ID, i.DeletedBy),
		DeletedAt:       *i.DeletedAt,
	}
}

// InstallmentRestoredEvent is raised on restore
type InstallmentRestoredEvent struct {
	shared.BaseDomainEvent
	RestoredAt time.Time        `json:"restored_at"`
	State      InstallmentState `json:"state"`
}

// NewInstallmentRestoredEvent creates a new InstallmentRestoredEvent
func NewInstallmentRestoredEvent(i *Installment) *InstallmentRestoredEvent {
	return &InstallmentRestoredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInstallmentRestored, AggregateType, i.ID, i.RestoredBy),
		RestoredAt:      *i.RestoredAt,
		State:           i.State,
	}
}

// InstallmentDeletedEvent is raised when an installment is physically removed
type InstallmentDeletedEvent struct {
	shared.BaseDomainEvent
	StudentCategoryID uuid.UUID `json:"student_category_id"`
	Period            Period    `json:"period"`
}

// NewInstallmentDeletedEvent creates a new InstallmentDeletedEvent
func NewInstallmentDeletedEvent(i *Installment) *InstallmentDeletedEvent {
	return &InstallmentDeletedEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(EventTypeInstallmentDeleted, AggregateType, i.ID, nil),
		StudentCategoryID: i.StudentCategoryID,
		Period:            i.Period(),
	}
}
