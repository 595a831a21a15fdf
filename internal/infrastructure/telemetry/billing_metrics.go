package telemetry

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
)

// ErrMeterNil is returned when a metrics set is built without a meter
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

// BillingMetrics counts installment lifecycle transitions.
type BillingMetrics struct {
	created       *Counter
	createdAmount *Histogram
	paid          *Counter
	paidAmount    *Histogram
	markedOverdue *Counter
}

// NewBillingMetrics registers the billing instruments on meter.
func NewBillingMetrics(meter metric.Meter) (*BillingMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	created, err := NewCounter(meter,
		"club_installment_created_total",
		"Installments issued",
		"{installments}")
	if err != nil {
		return nil, err
	}

	createdAmount, err := NewHistogram(meter, HistogramOpts{
		Name:        "club_installment_created_amount",
		Description: "Base amount of issued installments",
		Unit:        "{ARS}",
		Boundaries:  AmountBuckets,
	})
	if err != nil {
		return nil, err
	}

	paid, err := NewCounter(meter,
		"club_installment_paid_total",
		"Installments paid, by payment method",
		"{installments}")
	if err != nil {
		return nil, err
	}

	paidAmount, err := NewHistogram(meter, HistogramOpts{
		Name:        "club_installment_paid_amount",
		Description: "Total due of paid installments",
		Unit:        "{ARS}",
		Boundaries:  AmountBuckets,
	})
	if err != nil {
		return nil, err
	}

	markedOverdue, err := NewCounter(meter,
		"club_installment_marked_overdue_total",
		"Installments moved to OVERDUE",
		"{installments}")
	if err != nil {
		return nil, err
	}

	return &BillingMetrics{
		created:       created,
		createdAmount: createdAmount,
		paid:          paid,
		paidAmount:    paidAmount,
		markedOverdue: markedOverdue,
	}, nil
}

// RecordInstallmentCreated counts an issued installment.
func (m *BillingMetrics) RecordInstallmentCreated(ctx context.Context, amount decimal.Decimal) {
	m.created.Inc(ctx)
	m.createdAmount.Record(ctx, amount.InexactFloat64())
}

// RecordInstallmentPaid counts a payment and records its total.
func (m *BillingMetrics) RecordInstallmentPaid(ctx context.Context, paymentMethod string, total decimal.Decimal) {
	if paymentMethod == "" {
		paymentMethod = "unknown"
	}
	attr := AttrPaymentMethod.String(paymentMethod)
	m.paid.Inc(ctx, attr)
	m.paidAmount.Record(ctx, total.InexactFloat64(), attr)
}

// RecordInstallmentsMarkedOverdue adds the number moved by one sweep.
func (m *BillingMetrics) RecordInstallmentsMarkedOverdue(ctx context.Context, count int) {
	if count <= 0 {
		return
	}
	m.markedOverdue.Add(ctx, int64(count))
}
