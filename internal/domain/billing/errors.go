package billing

import "github.com/clubdeportivo/backend/internal/domain/shared"

// Error kinds surfaced by the billing engine
var (
	ErrInstallmentNotFound = shared.NewNotFoundError("Installment")
	ErrDuplicatePeriod     = shared.NewDomainError(shared.CodeDuplicatePeriod, "An installment already exists for this enrollment and period")
	ErrAlreadyPaid         = shared.NewDomainError(shared.CodeAlreadyPaid, "Installment is already paid")
	ErrInvalidMonth        = shared.NewValidationError("Month must be between 1 and 12")
	ErrInvalidState        = shared.NewValidationError("State must be one of PENDING, PAID, OVERDUE")

	ErrConcurrentModification = shared.NewDomainError(shared.CodeConcurrentModification, "Installment was modified by another request, reload and retry")
)
