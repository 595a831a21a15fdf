package billing

import (
	"context"
	"fmt"

	"github.com/clubdeportivo/backend/internal/domain/audit"
	"github.com/clubdeportivo/backend/internal/domain/billing"
	"github.com/clubdeportivo/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// AuditTrailHandler writes every installment event to the audit log
type AuditTrailHandler struct {
	auditRepo audit.Repository
	logger    *zap.Logger
}

// NewAuditTrailHandler creates a new handler for installment events
func NewAuditTrailHandler(auditRepo audit.Repository, logger *zap.Logger) *AuditTrailHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditTrailHandler{
		auditRepo: auditRepo,
		logger:    logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *AuditTrailHandler) EventTypes() []string {
	return billing.AllEventTypes()
}

// Handle appends an audit entry for the event. Re-delivered events are
// absorbed by the repository's unique event ID.
func (h *AuditTrailHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	if event.AggregateType() != billing.AggregateType {
		h.logger.Warn("unexpected aggregate type",
			zap.String("expected", billing.AggregateType),
			zap.String("actual", event.AggregateType()),
			zap.String("event_type", event.EventType()),
		)
		return fmt.Errorf("unexpected aggregate type: expected %s, got %s",
			billing.AggregateType, event.AggregateType())
	}

	entry, err := audit.NewEntryFromEvent(event)
	if err != nil {
		return err
	}

	if err := h.auditRepo.Append(ctx, entry); err != nil {
		h.logger.Error("failed to append audit entry",
			zap.String("event_id", event.EventID().String()),
			zap.String("event_type", event.EventType()),
			zap.Error(err),
		)
		return fmt.Errorf("append audit entry: %w", err)
	}

	h.logger.Debug("audit entry recorded",
		zap.String("installment_id", event.AggregateID().String()),
		zap.String("event_type", event.EventType()),
	)
	return nil
}

var _ shared.EventHandler = (*AuditTrailHandler)(nil)
