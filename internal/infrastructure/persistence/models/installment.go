package models

import (
	"time"

	"github.com/clubdeportivo/backend/internal/domain/billing"
	"github.com/clubdeportivo/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// InstallmentPeriodIndex is the partial unique index on the period key.
// Soft-deleted rows are excluded so a period can be re-issued after deletion.
const InstallmentPeriodIndex = "idx_installments_period_active"

// InstallmentModel is the persistence model for the Installment aggregate
type InstallmentModel struct {
	AggregateModel
	StudentCategoryID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_installments_period_active,priority:1,where:deleted_at IS NULL"`
	Year              int             `gorm:"not null;uniqueIndex:idx_installments_period_active,priority:2;index:idx_installments_year_month,priority:1"`
	Month             int16           `gorm:"type:smallint;not null;check:chk_installments_month,month BETWEEN 1 AND 12;uniqueIndex:idx_installments_period_active,priority:3;index:idx_installments_year_month,priority:2"`
	Amount            decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Discount          decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Surcharge         decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	State             string          `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	DueDate           time.Time       `gorm:"not null;index"`
	PaymentDate       *time.Time
	PaymentMethod     string         `gorm:"type:varchar(50);not null;default:''"`
	ReceiptNumber     string         `gorm:"type:varchar(50);not null;default:''"`
	CollectedByUserID *uuid.UUID     `gorm:"type:uuid"`
	Notes             string         `gorm:"type:text;not null;default:''"`
	DeletedAt         gorm.DeletedAt `gorm:"index"`
	DeletedBy         *uuid.UUID     `gorm:"type:uuid"`
	RestoredAt        *time.Time
	RestoredBy        *uuid.UUID `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (InstallmentModel) TableName() string {
	return "installments"
}

// ToDomain converts the persistence model to a domain Installment
func (m *InstallmentModel) ToDomain() *billing.Installment {
	inst := &billing.Installment{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		SoftDeleteStamp: shared.SoftDeleteStamp{
			DeletedBy:  m.DeletedBy,
			RestoredAt: m.RestoredAt,
			RestoredBy: m.RestoredBy,
		},
		StudentCategoryID: m.StudentCategoryID,
		Year:              m.Year,
		Month:             billing.Month(m.Month),
		Amount:            m.Amount,
		Discount:          m.Discount,
		Surcharge:         m.Surcharge,
		State:             billing.InstallmentState(m.State),
		DueDate:           m.DueDate,
		PaymentDate:       m.PaymentDate,
		PaymentMethod:     m.PaymentMethod,
		ReceiptNumber:     m.ReceiptNumber,
		CollectedByUserID: m.CollectedByUserID,
		Notes:             m.Notes,
	}
	if m.DeletedAt.Valid {
		deletedAt := m.DeletedAt.Time
		inst.DeletedAt = &deletedAt
	}
	return inst
}

// FromDomain populates the persistence model from a domain Installment
func (m *InstallmentModel) FromDomain(i *billing.Installment) {
	m.FromDomainAggregateRoot(i.BaseAggregateRoot)
	m.StudentCategoryID = i.StudentCategoryID
	m.Year = i.Year
	m.Month = int16(i.Month)
	m.Amount = i.Amount
	m.Discount = i.Discount
	m.Surcharge = i.Surcharge
	m.State = i.State.String()
	m.DueDate = i.DueDate
	m.PaymentDate = i.PaymentDate
	m.PaymentMethod = i.PaymentMethod
	m.ReceiptNumber = i.ReceiptNumber
	m.CollectedByUserID = i.CollectedByUserID
	m.Notes = i.Notes
	m.DeletedAt = gorm.DeletedAt{}
	if i.DeletedAt != nil {
		m.DeletedAt = gorm.DeletedAt{Time: *i.DeletedAt, Valid: true}
	}
	m.DeletedBy = i.DeletedBy
	m.RestoredAt = i.RestoredAt
	m.RestoredBy = i.RestoredBy
}

// InstallmentModelFromDomain creates a new persistence model from a domain Installment
func InstallmentModelFromDomain(i *billing.Installment) *InstallmentModel {
	m := &InstallmentModel{}
	m.FromDomain(i)
	return m
}
