// Package billing implements the installment billing engine use cases.
package billing

import (
	"context"
	"errors"
	"time"

	"github.com/clubdeportivo/backend/internal/domain/audit"
	"github.com/clubdeportivo/backend/internal/domain/billing"
	"github.com/clubdeportivo/backend/internal/domain/shared"
	"github.com/clubdeportivo/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultOverdueBatchSize bounds how many installments one sweep iteration loads
const DefaultOverdueBatchSize = 200

// MetricsRecorder receives billing business metrics.
// telemetry.BillingMetrics implements it; a nil recorder disables recording.
type MetricsRecorder interface {
	RecordInstallmentCreated(ctx context.Context, amount decimal.Decimal)
	RecordInstallmentPaid(ctx context.Context, paymentMethod string, total decimal.Decimal)
	RecordInstallmentsMarkedOverdue(ctx context.Context, count int)
}

// BillingService orchestrates the installment lifecycle
type BillingService struct {
	installmentRepo  billing.InstallmentRepository
	enrollmentReader billing.EnrollmentReader
	auditRepo        audit.Repository
	eventPublisher   shared.EventPublisher
	metrics          MetricsRecorder
	logger           *zap.Logger
	now              func() time.Time
	overdueBatchSize int
}

// BillingServiceOption is a functional option for configuring BillingService
type BillingServiceOption func(*BillingService)

// WithEnrollmentReader enables the enrollment expansion in ListByState
func WithEnrollmentReader(reader billing.EnrollmentReader) BillingServiceOption {
	return func(s *BillingService) {
		s.enrollmentReader = reader
	}
}

// WithAuditRepository enables ListAudit
func WithAuditRepository(repo audit.Repository) BillingServiceOption {
	return func(s *BillingService) {
		s.auditRepo = repo
	}
}

// WithEventPublisher sets the publisher for installment domain events
func WithEventPublisher(publisher shared.EventPublisher) BillingServiceOption {
	return func(s *BillingService) {
		s.eventPublisher = publisher
	}
}

// WithMetrics sets the business metrics recorder
func WithMetrics(m MetricsRecorder) BillingServiceOption {
	return func(s *BillingService) {
		s.metrics = m
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) BillingServiceOption {
	return func(s *BillingService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source used for default reference dates
func WithClock(now func() time.Time) BillingServiceOption {
	return func(s *BillingService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithOverdueBatchSize sets the page size of MarkOverdue
func WithOverdueBatchSize(size int) BillingServiceOption {
	return func(s *BillingService) {
		if size > 0 {
			s.overdueBatchSize = size
		}
	}
}

// NewBillingService creates a new BillingService
func NewBillingService(installmentRepo billing.InstallmentRepository, opts ...BillingServiceOption) *BillingService {
	s := &BillingService{
		installmentRepo:  installmentRepo,
		logger:           zap.NewNop(),
		now:              time.Now,
		overdueBatchSize: DefaultOverdueBatchSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateInstallment issues a new installment for an enrollment and period.
// The period pre-check gives a friendly error; the storage unique index still
// decides races and surfaces them as the same DuplicatePeriod error.
func (s *BillingService) CreateInstallment(ctx context.Context, input CreateInstallmentInput) (*InstallmentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "installment", "create")
	defer span.End()

	period := billing.Period{Year: input.Year, Month: input.Month}
	telemetry.SetAttributes(span,
		telemetry.SpanAttrStudentCategoryID, input.StudentCategoryID.String(),
		telemetry.SpanAttrPeriod, period.String(),
	)

	inst, err := billing.NewInstallment(billing.NewInstallmentParams{
		StudentCategoryID: input.StudentCategoryID,
		Period:            period,
		Amount:            input.Amount,
		Discount:          input.Discount,
		Surcharge:         input.Surcharge,
		DueDate:           input.DueDate,
		Notes:             input.Notes,
	})
	if err != nil {
		return nil, err
	}

	existing, err := s.installmentRepo.FindActiveByPeriod(ctx, input.StudentCategoryID, period)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if existing != nil {
		return nil, billing.ErrDuplicatePeriod
	}

	if err := s.installmentRepo.Create(ctx, inst); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.publishEvents(ctx, inst)
	if s.metrics != nil {
		s.metrics.RecordInstallmentCreated(ctx, inst.Amount)
	}

	s.logger.Info("Installment created",
		zap.String("id", inst.ID.String()),
		zap.String("student_category_id", inst.StudentCategoryID.String()),
		zap.String("period", period.String()))

	resp := ToInstallmentResponse(inst)
	return &resp, nil
}

// GetByID returns a non-deleted installment
func (s *BillingService) GetByID(ctx context.Context, id uuid.UUID) (*InstallmentResponse, error) {
	inst, err := s.findActive(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToInstallmentResponse(inst)
	return &resp, nil
}

// ListByEnrollment returns an enrollment's installments, newest period first
func (s *BillingService) ListByEnrollment(ctx context.Context, studentCategoryID uuid.UUID) ([]InstallmentResponse, error) {
	items, err := s.installmentRepo.FindByEnrollment(ctx, studentCategoryID)
	if err != nil {
		return nil, err
	}
	return ToInstallmentResponses(items), nil
}

// UpdateByID merges the provided fields into the installment.
// Moving the installment to another period re-checks the period key.
func (s *BillingService) UpdateByID(ctx context.Context, id uuid.UUID, input UpdateInstallmentInput) (*InstallmentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "installment", "update")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrInstallmentID, id.String())

	inst, err := s.findActive(ctx, id)
	if err != nil {
		return nil, err
	}

	patch := input.toPatch()
	movesPeriod := patch.ChangesPeriodKey(inst)
	if err := inst.Update(patch); err != nil {
		return nil, err
	}

	if movesPeriod {
		clash, err := s.installmentRepo.FindActiveByPeriod(ctx, inst.StudentCategoryID, inst.Period())
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		if clash != nil && clash.ID != inst.ID {
			return nil, billing.ErrDuplicatePeriod
		}
	}

	if err := s.installmentRepo.Save(ctx, inst); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.publishEvents(ctx, inst)

	resp := ToInstallmentResponse(inst)
	return &resp, nil
}

// DeleteInstallment physically removes an installment, including soft-deleted
// ones, and returns the removed record.
func (s *BillingService) DeleteInstallment(ctx context.Context, id uuid.UUID) (*InstallmentResponse, error) {
	inst, err := s.installmentRepo.FindByIDIncludingDeleted(ctx, id)
	if err != nil {
		return nil, err
	}
	if inst == nil {
		return nil, billing.ErrInstallmentNotFound
	}

	if err := s.installmentRepo.HardDelete(ctx, id); err != nil {
		return nil, err
	}

	inst.AddDomainEvent(billing.NewInstallmentDeletedEvent(inst))
	s.publishEvents(ctx, inst)

	s.logger.Info("Installment deleted", zap.String("id", id.String()))

	resp := ToInstallmentResponse(inst)
	return &resp, nil
}

// SoftDeleteInstallment hides an installment from default reads and frees its period key
func (s *BillingService) SoftDeleteInstallment(ctx context.Context, id uuid.UUID, deletedBy *uuid.UUID) (*InstallmentResponse, error) {
	inst, err := s.findActive(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := inst.SoftDelete(deletedBy); err != nil {
		return nil, err
	}
	if err := s.installmentRepo.SoftDelete(ctx, inst); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, inst)

	resp := ToInstallmentResponse(inst)
	return &resp, nil
}

// RestoreInstallment clears the deletion stamps and records the restoring user.
// The state is left as it was before deletion. Restoring into a period that is
// now taken by another installment fails with DuplicatePeriod.
func (s *BillingService) RestoreInstallment(ctx context.Context, id uuid.UUID, restoredBy *uuid.UUID) (*InstallmentResponse, error) {
	inst, err := s.installmentRepo.FindByIDIncludingDeleted(ctx, id)
	if err != nil {
		return nil, err
	}
	if inst == nil {
		return nil, billing.ErrInstallmentNotFound
	}

	if inst.IsDeleted() {
		clash, err := s.installmentRepo.FindActiveByPeriod(ctx, inst.StudentCategoryID, inst.Period())
		if err != nil {
			return nil, err
		}
		if clash != nil && clash.ID != inst.ID {
			return nil, billing.ErrDuplicatePeriod
		}
	}

	inst.Restore(restoredBy)
	if err := s.installmentRepo.Restore(ctx, inst); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, inst)

	resp := ToInstallmentResponse(inst)
	return &resp, nil
}

// ListByState lists installments, optionally filtered by state, each expanded
// with its enrollment details when an EnrollmentReader is configured.
func (s *BillingService) ListByState(ctx context.Context, state *billing.InstallmentState) ([]InstallmentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "installment", "list_by_state")
	defer span.End()
	if state != nil {
		telemetry.SetAttributes(span, telemetry.SpanAttrState, state.String())
	}

	items, err := s.installmentRepo.FindByState(ctx, state)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	responses := ToInstallmentResponses(items)
	if s.enrollmentReader == nil || len(items) == 0 {
		return responses, nil
	}

	ids := uniqueEnrollmentIDs(items)
	details, err := s.enrollmentReader.FindDetails(ctx, ids)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	for i := range responses {
		if d, ok := details[responses[i].StudentCategoryID]; ok {
			responses[i].Enrollment = toEnrollmentResponse(d)
		}
	}
	return responses, nil
}

// ListByPeriod lists the installments of one billing period
func (s *BillingService) ListByPeriod(ctx context.Context, year int, month billing.Month) ([]InstallmentResponse, error) {
	period := billing.Period{Year: year, Month: month}
	if err := period.Validate(); err != nil {
		return nil, err
	}
	items, err := s.installmentRepo.FindByPeriod(ctx, period)
	if err != nil {
		return nil, err
	}
	return ToInstallmentResponses(items), nil
}

// MarkAsPaid records a payment. Paying a PAID installment fails with AlreadyPaid.
func (s *BillingService) MarkAsPaid(ctx context.Context, id uuid.UUID, input MarkAsPaidInput) (*InstallmentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "installment", "mark_as_paid")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrInstallmentID, id.String(),
		telemetry.SpanAttrPaymentMethod, input.PaymentMethod,
	)

	inst, err := s.findActive(ctx, id)
	if err != nil {
		return nil, err
	}

	err = inst.MarkAsPaid(billing.Payment{
		PaidAt:        input.PaymentDate,
		Method:        input.PaymentMethod,
		ReceiptNumber: input.ReceiptNumber,
		CollectedBy:   input.CollectedBy,
	})
	if err != nil {
		return nil, err
	}

	if err := s.installmentRepo.Save(ctx, inst); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.publishEvents(ctx, inst)
	if s.metrics != nil {
		s.metrics.RecordInstallmentPaid(ctx, inst.PaymentMethod, inst.TotalDue())
	}

	s.logger.Info("Installment paid",
		zap.String("id", inst.ID.String()),
		zap.String("total_due", inst.TotalDue().String()),
		zap.String("payment_method", inst.PaymentMethod))

	resp := ToInstallmentResponse(inst)
	return &resp, nil
}

// ListOverdue lists unpaid installments due before ref without changing them.
// A zero ref means now.
func (s *BillingService) ListOverdue(ctx context.Context, ref time.Time) ([]InstallmentResponse, error) {
	if ref.IsZero() {
		ref = s.now()
	}
	items, err := s.installmentRepo.FindOverdue(ctx, ref)
	if err != nil {
		return nil, err
	}
	return ToInstallmentResponses(items), nil
}

// MarkOverdue moves every PENDING installment due before ref to OVERDUE and
// returns how many were moved. A zero ref means now. Rows paid, edited or
// deleted by another request after the batch was read are skipped. The sweep
// stops at the first other persistence error and reports what it managed so far.
func (s *BillingService) MarkOverdue(ctx context.Context, ref time.Time) (*MarkOverdueResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "installment", "mark_overdue")
	defer span.End()

	if ref.IsZero() {
		ref = s.now()
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrReferenceDate, ref.Format(time.RFC3339))
	result := &MarkOverdueResult{ReferenceDate: ref}

	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		batch, err := s.installmentRepo.FindDueForOverdue(ctx, ref, s.overdueBatchSize)
		if err != nil {
			telemetry.RecordError(span, err)
			return result, err
		}

		markedInBatch := 0
		for i := range batch {
			inst := &batch[i]
			if err := inst.MarkOverdue(ref); err != nil {
				// The row changed between the query and now.
				s.logger.Warn("Skipping installment in overdue sweep",
					zap.String("id", inst.ID.String()),
					zap.Error(err))
				continue
			}
			if err := s.installmentRepo.Save(ctx, inst); err != nil {
				if errors.Is(err, billing.ErrConcurrentModification) || errors.Is(err, billing.ErrInstallmentNotFound) {
					s.logger.Warn("Skipping installment changed during overdue sweep",
						zap.String("id", inst.ID.String()),
						zap.Error(err))
					continue
				}
				telemetry.RecordError(span, err)
				result.Marked += markedInBatch
				s.recordOverdue(ctx, result.Marked)
				return result, err
			}
			s.publishEvents(ctx, inst)
			markedInBatch++
		}
		result.Marked += markedInBatch

		if len(batch) < s.overdueBatchSize || markedInBatch == 0 {
			break
		}
	}

	telemetry.SetAttributes(span, telemetry.SpanAttrResultCount, result.Marked)
	s.recordOverdue(ctx, result.Marked)
	if result.Marked > 0 {
		s.logger.Info("Installments marked overdue",
			zap.Int("count", result.Marked),
			zap.Time("reference_date", ref))
	}
	return result, nil
}

// ListAudit returns the audit trail of an installment, oldest entry first.
// Soft-deleted installments keep their trail visible.
func (s *BillingService) ListAudit(ctx context.Context, id uuid.UUID) ([]AuditEntryResponse, error) {
	inst, err := s.installmentRepo.FindByIDIncludingDeleted(ctx, id)
	if err != nil {
		return nil, err
	}
	if inst == nil {
		return nil, billing.ErrInstallmentNotFound
	}
	if s.auditRepo == nil {
		return []AuditEntryResponse{}, nil
	}

	entries, err := s.auditRepo.FindByAggregate(ctx, billing.AggregateType, id)
	if err != nil {
		return nil, err
	}
	return toAuditEntryResponses(entries), nil
}

func (s *BillingService) findActive(ctx context.Context, id uuid.UUID) (*billing.Installment, error) {
	inst, err := s.installmentRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if inst == nil {
		return nil, billing.ErrInstallmentNotFound
	}
	return inst, nil
}

func (s *BillingService) recordOverdue(ctx context.Context, count int) {
	if s.metrics != nil && count > 0 {
		s.metrics.RecordInstallmentsMarkedOverdue(ctx, count)
	}
}

// publishEvents hands pending events to the publisher. Failures are logged and
// never undo the already persisted change.
func (s *BillingService) publishEvents(ctx context.Context, inst *billing.Installment) {
	events := inst.GetDomainEvents()
	inst.ClearDomainEvents()
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Error("Failed to publish domain events",
			zap.String("installment_id", inst.ID.String()),
			zap.Error(err))
	}
}

func uniqueEnrollmentIDs(items []billing.Installment) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(items))
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.StudentCategoryID]; ok {
			continue
		}
		seen[item.StudentCategoryID] = struct{}{}
		ids = append(ids, item.StudentCategoryID)
	}
	return ids
}
