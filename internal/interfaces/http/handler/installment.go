package handler

import (
	"context"
	"errors"
	"io"
	"time"

	appbilling "github.com/clubdeportivo/backend/internal/application/billing"
	"github.com/clubdeportivo/backend/internal/domain/billing"
	"github.com/clubdeportivo/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// InstallmentService is the billing engine as seen by the HTTP layer
type InstallmentService interface {
	CreateInstallment(ctx context.Context, input appbilling.CreateInstallmentInput) (*appbilling.InstallmentResponse, error)
	GetByID(ctx context.Context, id uuid.UUID) (*appbilling.InstallmentResponse, error)
	ListByEnrollment(ctx context.Context, studentCategoryID uuid.UUID) ([]appbilling.InstallmentResponse, error)
	UpdateByID(ctx context.Context, id uuid.UUID, input appbilling.UpdateInstallmentInput) (*appbilling.InstallmentResponse, error)
	DeleteInstallment(ctx context.Context, id uuid.UUID) (*appbilling.InstallmentResponse, error)
	SoftDeleteInstallment(ctx context.Context, id uuid.UUID, deletedBy *uuid.UUID) (*appbilling.InstallmentResponse, error)
	RestoreInstallment(ctx context.Context, id uuid.UUID, restoredBy *uuid.UUID) (*appbilling.InstallmentResponse, error)
	ListByState(ctx context.Context, state *billing.InstallmentState) ([]appbilling.InstallmentResponse, error)
	ListByPeriod(ctx context.Context, year int, month billing.Month) ([]appbilling.InstallmentResponse, error)
	MarkAsPaid(ctx context.Context, id uuid.UUID, input appbilling.MarkAsPaidInput) (*appbilling.InstallmentResponse, error)
	ListOverdue(ctx context.Context, ref time.Time) ([]appbilling.InstallmentResponse, error)
	MarkOverdue(ctx context.Context, ref time.Time) (*appbilling.MarkOverdueResult, error)
	ListAudit(ctx context.Context, id uuid.UUID) ([]appbilling.AuditEntryResponse, error)
}

// InstallmentHandler serves the /cuotas routes
type InstallmentHandler struct {
	BaseHandler
	service InstallmentService
}

// NewInstallmentHandler creates an InstallmentHandler
func NewInstallmentHandler(service InstallmentService) *InstallmentHandler {
	return &InstallmentHandler{service: service}
}

// Create issues a new installment.
// POST /cuotas
func (h *InstallmentHandler) Create(c *gin.Context) {
	var req CreateInstallmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	input, perr := req.toInput()
	if perr != nil {
		h.InvalidParam(c, perr.field, perr.message)
		return
	}

	resp, err := h.service.CreateInstallment(c.Request.Context(), input)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// GetByID returns a non-deleted installment.
// GET /cuotas/:id
func (h *InstallmentHandler) GetByID(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	resp, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ListByEnrollment lists an enrollment's installments, newest period first.
// GET /cuotas/alumno-categoria/:id
func (h *InstallmentHandler) ListByEnrollment(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	resp, err := h.service.ListByEnrollment(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Update applies a partial edit.
// PUT /cuotas/:id
func (h *InstallmentHandler) Update(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req UpdateInstallmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	input, perr := req.toInput()
	if perr != nil {
		h.InvalidParam(c, perr.field, perr.message)
		return
	}

	resp, err := h.service.UpdateByID(c.Request.Context(), id, input)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Delete removes an installment physically and returns what was removed.
// DELETE /cuotas/:id
func (h *InstallmentHandler) Delete(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	resp, err := h.service.DeleteInstallment(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// SoftDelete hides an installment, stamping the acting user.
// PATCH /cuotas/:id/soft-delete
func (h *InstallmentHandler) SoftDelete(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	resp, err := h.service.SoftDeleteInstallment(c.Request.Context(), id, actingUser(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Restore brings back a soft-deleted installment.
// PATCH /cuotas/:id/restore
func (h *InstallmentHandler) Restore(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	resp, err := h.service.RestoreInstallment(c.Request.Context(), id, actingUser(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ListByState lists installments, optionally filtered by ?estado=, with the
// enrollment expanded.
// GET /cuotas
func (h *InstallmentHandler) ListByState(c *gin.Context) {
	var state *billing.InstallmentState
	if raw, ok := c.GetQuery("estado"); ok && raw != "" {
		s, err := billing.ParseInstallmentState(raw)
		if err != nil {
			h.InvalidParam(c, "estado", "estado must be one of PENDING, PAID, OVERDUE")
			return
		}
		state = &s
	}

	resp, err := h.service.ListByState(c.Request.Context(), state)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ListByPeriod lists the installments of ?anio= and ?mes=. mes accepts a
// number or a Spanish month name.
// GET /cuotas/periodo/buscar
func (h *InstallmentHandler) ListByPeriod(c *gin.Context) {
	year, perr := parseYear(c.Query("anio"))
	if perr != nil {
		h.InvalidParam(c, perr.field, perr.message)
		return
	}
	month, err := billing.ParseMonth(c.Query("mes"))
	if err != nil {
		h.InvalidParam(c, "mes", "mes must be 1-12 or a month name")
		return
	}

	resp, err := h.service.ListByPeriod(c.Request.Context(), year, month)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// MarkAsPaid records a payment.
// PATCH /cuotas/:id/pagar
func (h *InstallmentHandler) MarkAsPaid(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req MarkAsPaidRequest
	// An empty body, sized or chunked, pays today with no method or receipt.
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.BindError(c, err)
		return
	}
	input, perr := req.toInput(actingUser(c))
	if perr != nil {
		h.InvalidParam(c, perr.field, perr.message)
		return
	}

	resp, err := h.service.MarkAsPaid(c.Request.Context(), id, input)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ListOverdue lists unpaid installments due before ?fecha= (default now).
// GET /cuotas/vencidas/buscar
func (h *InstallmentHandler) ListOverdue(c *gin.Context) {
	ref, ok := h.referenceDate(c)
	if !ok {
		return
	}
	resp, err := h.service.ListOverdue(c.Request.Context(), ref)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ProcessOverdue runs the overdue sweep on demand.
// POST /cuotas/vencidas/procesar
func (h *InstallmentHandler) ProcessOverdue(c *gin.Context) {
	ref, ok := h.referenceDate(c)
	if !ok {
		return
	}
	resp, err := h.service.MarkOverdue(c.Request.Context(), ref)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ListAudit returns the audit trail of an installment.
// GET /cuotas/:id/auditoria
func (h *InstallmentHandler) ListAudit(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	resp, err := h.service.ListAudit(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

func (h *InstallmentHandler) pathID(c *gin.Context) (uuid.UUID, bool) {
	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.InvalidParam(c, "id", "id must be a UUID")
		return uuid.Nil, false
	}
	return uuid.MustParse(req.ID), true
}

// referenceDate reads ?fecha=. Absent means now, expressed as the zero time
// the service understands.
func (h *InstallmentHandler) referenceDate(c *gin.Context) (time.Time, bool) {
	raw := c.Query("fecha")
	if raw == "" {
		return time.Time{}, true
	}
	ref, err := parseDate(raw)
	if err != nil {
		perr := invalidDate("fecha")
		h.InvalidParam(c, perr.field, perr.message)
		return time.Time{}, false
	}
	return ref, true
}
