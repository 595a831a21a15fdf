package billing

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/clubdeportivo/backend/internal/domain/audit"
	"github.com/clubdeportivo/backend/internal/domain/billing"
	"github.com/clubdeportivo/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAuditTrailHandler_EventTypes(t *testing.T) {
	h := NewAuditTrailHandler(new(MockAuditRepository), zap.NewNop())

	assert.ElementsMatch(t, billing.AllEventTypes(), h.EventTypes())
}

func TestAuditTrailHandler_Handle(t *testing.T) {
	ctx := context.Background()

	t.Run("appends the event as an entry", func(t *testing.T) {
		repo := new(MockAuditRepository)
		h := NewAuditTrailHandler(repo, zap.NewNop())

		inst := newTestInstallment(t, uuid.New(), 2024, 3)
		actor := uuid.New()
		require.NoError(t, inst.SoftDelete(&actor))
		event := inst.GetDomainEvents()[0]

		repo.On("Append", mock.Anything, mock.MatchedBy(func(e *audit.Entry) bool {
			return e.EventID == event.EventID() &&
				e.AggregateID == inst.ID &&
				e.EventType == billing.EventTypeInstallmentSoftDeleted &&
				e.ActorID != nil && *e.ActorID == actor &&
				json.Valid(e.Payload)
		})).Return(nil)

		err := h.Handle(ctx, event)

		require.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("rejects events of other aggregates", func(t *testing.T) {
		repo := new(MockAuditRepository)
		h := NewAuditTrailHandler(repo, zap.NewNop())
		base := shared.NewBaseDomainEvent("Something", "Other", uuid.New(), nil)

		err := h.Handle(ctx, &base)

		assert.Error(t, err)
		repo.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
	})

	t.Run("wraps repository errors", func(t *testing.T) {
		repo := new(MockAuditRepository)
		h := NewAuditTrailHandler(repo, zap.NewNop())
		inst := newTestInstallment(t, uuid.New(), 2024, 3)
		inst.Restore(nil)
		boom := errors.New("disk full")
		repo.On("Append", mock.Anything, mock.Anything).Return(boom)

		err := h.Handle(ctx, inst.GetDomainEvents()[0])

		assert.ErrorIs(t, err, boom)
	})
}
