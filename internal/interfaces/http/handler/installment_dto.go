package handler

import (
	"strconv"
	"strings"
	"time"

	appbilling "github.com/clubdeportivo/backend/internal/application/billing"
	"github.com/clubdeportivo/backend/internal/domain/billing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateInstallmentRequest is the body of POST /cuotas
type CreateInstallmentRequest struct {
	StudentCategoryID string           `json:"student_category_id" binding:"required,uuid"`
	Year              int              `json:"year" binding:"required"`
	Month             billing.Month    `json:"month" binding:"required"`
	Amount            *decimal.Decimal `json:"amount" binding:"required"`
	Discount          *decimal.Decimal `json:"discount"`
	Surcharge         *decimal.Decimal `json:"surcharge"`
	DueDate           string           `json:"due_date" binding:"required"`
	Notes             string           `json:"notes" binding:"max=1000"`
}

func (r CreateInstallmentRequest) toInput() (appbilling.CreateInstallmentInput, *paramError) {
	dueDate, err := parseDate(r.DueDate)
	if err != nil {
		return appbilling.CreateInstallmentInput{}, invalidDate("due_date")
	}
	return appbilling.CreateInstallmentInput{
		StudentCategoryID: uuid.MustParse(r.StudentCategoryID),
		Year:              r.Year,
		Month:             r.Month,
		Amount:            *r.Amount,
		Discount:          decimalOrZero(r.Discount),
		Surcharge:         decimalOrZero(r.Surcharge),
		DueDate:           dueDate,
		Notes:             r.Notes,
	}, nil
}

// UpdateInstallmentRequest is the body of PUT /cuotas/:id. Omitted fields
// keep their value; state cannot be changed here.
type UpdateInstallmentRequest struct {
	StudentCategoryID *string          `json:"student_category_id" binding:"omitempty,uuid"`
	Year              *int             `json:"year"`
	Month             *billing.Month   `json:"month"`
	Amount            *decimal.Decimal `json:"amount"`
	Discount          *decimal.Decimal `json:"discount"`
	Surcharge         *decimal.Decimal `json:"surcharge"`
	DueDate           *string          `json:"due_date"`
	PaymentMethod     *string          `json:"payment_method" binding:"omitempty,max=50"`
	ReceiptNumber     *string          `json:"receipt_number" binding:"omitempty,max=50"`
	Notes             *string          `json:"notes" binding:"omitempty,max=1000"`
}

func (r UpdateInstallmentRequest) toInput() (appbilling.UpdateInstallmentInput, *paramError) {
	in := appbilling.UpdateInstallmentInput{
		Year:          r.Year,
		Month:         r.Month,
		Amount:        r.Amount,
		Discount:      r.Discount,
		Surcharge:     r.Surcharge,
		PaymentMethod: r.PaymentMethod,
		ReceiptNumber: r.ReceiptNumber,
		Notes:         r.Notes,
	}
	if r.StudentCategoryID != nil {
		id := uuid.MustParse(*r.StudentCategoryID)
		in.StudentCategoryID = &id
	}
	if r.DueDate != nil {
		d, err := parseDate(*r.DueDate)
		if err != nil {
			return appbilling.UpdateInstallmentInput{}, invalidDate("due_date")
		}
		in.DueDate = &d
	}
	return in, nil
}

// MarkAsPaidRequest is the body of PATCH /cuotas/:id/pagar. The collector
// defaults to the acting user.
type MarkAsPaidRequest struct {
	PaymentDate       *string `json:"payment_date"`
	PaymentMethod     string  `json:"payment_method" binding:"max=50"`
	ReceiptNumber     string  `json:"receipt_number" binding:"max=50"`
	CollectedByUserID *string `json:"collected_by_user_id" binding:"omitempty,uuid"`
}

func (r MarkAsPaidRequest) toInput(actor *uuid.UUID) (appbilling.MarkAsPaidInput, *paramError) {
	in := appbilling.MarkAsPaidInput{
		PaymentMethod: strings.TrimSpace(r.PaymentMethod),
		ReceiptNumber: strings.TrimSpace(r.ReceiptNumber),
		CollectedBy:   actor,
	}
	if r.PaymentDate != nil {
		d, err := parseDate(*r.PaymentDate)
		if err != nil {
			return appbilling.MarkAsPaidInput{}, invalidDate("payment_date")
		}
		in.PaymentDate = &d
	}
	if r.CollectedByUserID != nil {
		id := uuid.MustParse(*r.CollectedByUserID)
		in.CollectedBy = &id
	}
	return in, nil
}

// dateLayouts are tried in order. A bare date is midnight UTC.
var dateLayouts = []string{time.DateOnly, time.RFC3339, time.RFC3339Nano}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	var lastErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, raw)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// paramError names the query or body field that failed to parse
type paramError struct {
	field   string
	message string
}

func invalidDate(field string) *paramError {
	return &paramError{field: field, message: field + " must be a date (YYYY-MM-DD) or an RFC3339 timestamp"}
}

func parseYear(raw string) (int, *paramError) {
	year, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, &paramError{field: "anio", message: "anio must be a number"}
	}
	return year, nil
}

func decimalOrZero(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}
