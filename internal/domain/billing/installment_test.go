package billing

import (
	"testing"
	"time"

	"github.com/clubdeportivo/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestInstallment(t *testing.T) *Installment {
	t.Helper()
	inst, err := NewInstallment(NewInstallmentParams{
		StudentCategoryID: uuid.New(),
		Period:            Period{Year: 2024, Month: 3},
		Amount:            decimal.NewFromInt(100),
		Discount:          decimal.NewFromInt(10),
		Surcharge:         decimal.NewFromInt(5),
		DueDate:           time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return inst
}

// ============================================
// Creation
// ============================================

func TestNewInstallment(t *testing.T) {
	t.Run("defaults to pending and raises created event", func(t *testing.T) {
		inst := newTestInstallment(t)

		assert.Equal(t, StatePending, inst.State)
		assert.Nil(t, inst.PaymentDate)
		assert.Equal(t, 1, inst.Version)
		assert.False(t, inst.IsDeleted())
		require.Len(t, inst.GetDomainEvents(), 1)
		assert.Equal(t, EventTypeInstallmentCreated, inst.GetDomainEvents()[0].EventType())
	})

	tests := []struct {
		name   string
		mutate func(p *NewInstallmentParams)
	}{
		{"missing enrollment", func(p *NewInstallmentParams) { p.StudentCategoryID = uuid.Nil }},
		{"month out of range", func(p *NewInstallmentParams) { p.Period.Month = 13 }},
		{"year out of range", func(p *NewInstallmentParams) { p.Period.Year = 0 }},
		{"negative amount", func(p *NewInstallmentParams) { p.Amount = decimal.NewFromInt(-1) }},
		{"negative discount", func(p *NewInstallmentParams) { p.Discount = decimal.NewFromInt(-1) }},
		{"negative surcharge", func(p *NewInstallmentParams) { p.Surcharge = decimal.NewFromInt(-1) }},
		{"missing due date", func(p *NewInstallmentParams) { p.DueDate = time.Time{} }},
	}
	for _, tt := range tests {
		t.Run("rejects "+tt.name, func(t *testing.T) {
			p := NewInstallmentParams{
				StudentCategoryID: uuid.New(),
				Period:            Period{Year: 2024, Month: 3},
				Amount:            decimal.NewFromInt(50),
				DueDate:           time.Now(),
			}
			tt.mutate(&p)

			inst, err := NewInstallment(p)

			assert.Nil(t, inst)
			assert.Equal(t, shared.CodeValidation, shared.CodeOf(err))
		})
	}
}

func TestInstallment_TotalDue(t *testing.T) {
	inst := newTestInstallment(t)
	assert.True(t, inst.TotalDue().Equal(decimal.NewFromInt(95)), "got %s", inst.TotalDue())

	inst.Discount = decimal.NewFromInt(200)
	assert.True(t, inst.TotalDue().Equal(decimal.NewFromInt(-95)))
}

// ============================================
// Update
// ============================================

func TestInstallment_Update(t *testing.T) {
	t.Run("merges provided fields only", func(t *testing.T) {
		inst := newTestInstallment(t)
		inst.ClearDomainEvents()
		amount := decimal.NewFromInt(120)
		notes := "beca parcial"

		require.NoError(t, inst.Update(Patch{Amount: &amount, Notes: &notes}))

		assert.True(t, inst.Amount.Equal(amount))
		assert.Equal(t, notes, inst.Notes)
		assert.True(t, inst.Discount.Equal(decimal.NewFromInt(10)))
		assert.Equal(t, 2, inst.Version)
		require.Len(t, inst.GetDomainEvents(), 1)
		assert.Equal(t, EventTypeInstallmentUpdated, inst.GetDomainEvents()[0].EventType())
	})

	t.Run("invalid patch leaves installment untouched", func(t *testing.T) {
		inst := newTestInstallment(t)
		bad := decimal.NewFromInt(-5)
		notes := "x"

		err := inst.Update(Patch{Surcharge: &bad, Notes: &notes})

		assert.Equal(t, shared.CodeValidation, shared.CodeOf(err))
		assert.Equal(t, "", inst.Notes)
		assert.Equal(t, 1, inst.Version)
	})

	t.Run("detects period key change", func(t *testing.T) {
		inst := newTestInstallment(t)
		same := Month(3)
		other := Month(4)

		assert.False(t, Patch{Month: &same}.ChangesPeriodKey(inst))
		assert.True(t, Patch{Month: &other}.ChangesPeriodKey(inst))
		year := 2025
		assert.True(t, Patch{Year: &year}.ChangesPeriodKey(inst))
	})
}

// ============================================
// Payment
// ============================================

func TestInstallment_MarkAsPaid(t *testing.T) {
	t.Run("sets payment fields and defaults date to now", func(t *testing.T) {
		inst := newTestInstallment(t)
		collector := uuid.New()
		before := time.Now()

		require.NoError(t, inst.MarkAsPaid(Payment{Method: "efectivo", ReceiptNumber: "R-1", CollectedBy: &collector}))

		assert.Equal(t, StatePaid, inst.State)
		require.NotNil(t, inst.PaymentDate)
		assert.False(t, inst.PaymentDate.Before(before))
		assert.Equal(t, "efectivo", inst.PaymentMethod)
		assert.Equal(t, "R-1", inst.ReceiptNumber)
		assert.Equal(t, &collector, inst.CollectedByUserID)
	})

	t.Run("keeps supplied payment date", func(t *testing.T) {
		inst := newTestInstallment(t)
		paidAt := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)

		require.NoError(t, inst.MarkAsPaid(Payment{PaidAt: &paidAt}))

		assert.Equal(t, paidAt, *inst.PaymentDate)
	})

	t.Run("rejects double payment", func(t *testing.T) {
		inst := newTestInstallment(t)
		require.NoError(t, inst.MarkAsPaid(Payment{}))

		err := inst.MarkAsPaid(Payment{})

		assert.ErrorIs(t, err, ErrAlreadyPaid)
	})

	t.Run("overdue installment can be paid", func(t *testing.T) {
		inst := newTestInstallment(t)
		require.NoError(t, inst.MarkOverdue(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)))

		require.NoError(t, inst.MarkAsPaid(Payment{}))
		assert.Equal(t, StatePaid, inst.State)
	})
}

func TestInstallment_MarkOverdue(t *testing.T) {
	ref := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	t.Run("pending past due becomes overdue", func(t *testing.T) {
		inst := newTestInstallment(t)
		require.NoError(t, inst.MarkOverdue(ref))
		assert.Equal(t, StateOverdue, inst.State)
	})

	t.Run("not yet due is rejected", func(t *testing.T) {
		inst := newTestInstallment(t)
		err := inst.MarkOverdue(inst.DueDate)
		assert.Equal(t, shared.CodeInvalidState, shared.CodeOf(err))
		assert.Equal(t, StatePending, inst.State)
	})

	t.Run("paid is terminal", func(t *testing.T) {
		inst := newTestInstallment(t)
		require.NoError(t, inst.MarkAsPaid(Payment{}))
		err := inst.MarkOverdue(ref)
		assert.Equal(t, shared.CodeInvalidState, shared.CodeOf(err))
		assert.Equal(t, StatePaid, inst.State)
	})
}

func TestInstallment_IsOverdueAt(t *testing.T) {
	ref := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	inst := newTestInstallment(t)
	inst.DueDate = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	assert.True(t, inst.IsOverdueAt(ref))

	require.NoError(t, inst.MarkAsPaid(Payment{}))
	assert.False(t, inst.IsOverdueAt(ref))
}

// ============================================
// Soft delete / restore
// ============================================

func TestInstallment_SoftDeleteAndRestore(t *testing.T) {
	t.Run("soft delete stamps actor", func(t *testing.T) {
		inst := newTestInstallment(t)
		actor := uuid.New()

		require.NoError(t, inst.SoftDelete(&actor))

		assert.True(t, inst.IsDeleted())
		assert.Equal(t, &actor, inst.DeletedBy)
		assert.Equal(t, 2, inst.Version)
	})

	t.Run("second soft delete is not found", func(t *testing.T) {
		inst := newTestInstallment(t)
		require.NoError(t, inst.SoftDelete(nil))

		assert.ErrorIs(t, inst.SoftDelete(nil), ErrInstallmentNotFound)
	})

	t.Run("restore clears deletion and keeps state", func(t *testing.T) {
		inst := newTestInstallment(t)
		require.NoError(t, inst.MarkAsPaid(Payment{}))
		require.NoError(t, inst.SoftDelete(nil))
		actor := uuid.New()

		inst.Restore(&actor)

		assert.False(t, inst.IsDeleted())
		assert.Nil(t, inst.DeletedBy)
		require.NotNil(t, inst.RestoredAt)
		assert.Equal(t, &actor, inst.RestoredBy)
		assert.Equal(t, StatePaid, inst.State)
	})

	t.Run("restore on active record overwrites stamps", func(t *testing.T) {
		inst := newTestInstallment(t)
		first := uuid.New()
		second := uuid.New()

		inst.Restore(&first)
		firstAt := *inst.RestoredAt
		inst.Restore(&second)

		assert.Equal(t, &second, inst.RestoredBy)
		assert.False(t, inst.RestoredAt.Before(firstAt))
		assert.Equal(t, StatePending, inst.State)
	})
}

func TestEnrollmentDetail_FullName(t *testing.T) {
	assert.Equal(t, "Pérez, Ana", EnrollmentDetail{FirstName: "Ana", LastName: "Pérez"}.FullName())
	assert.Equal(t, "Ana", EnrollmentDetail{FirstName: "Ana"}.FullName())
	assert.Equal(t, "Pérez", EnrollmentDetail{LastName: "Pérez"}.FullName())
}
