package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	appbilling "github.com/clubdeportivo/backend/internal/application/billing"
	"github.com/clubdeportivo/backend/internal/domain/billing"
	"github.com/clubdeportivo/backend/internal/interfaces/http/dto"
	"github.com/clubdeportivo/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockInstallmentService implements InstallmentService for testing
type MockInstallmentService struct {
	mock.Mock
}

func (m *MockInstallmentService) one(args mock.Arguments) (*appbilling.InstallmentResponse, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appbilling.InstallmentResponse), args.Error(1)
}

func (m *MockInstallmentService) many(args mock.Arguments) ([]appbilling.InstallmentResponse, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]appbilling.InstallmentResponse), args.Error(1)
}

func (m *MockInstallmentService) CreateInstallment(ctx context.Context, input appbilling.CreateInstallmentInput) (*appbilling.InstallmentResponse, error) {
	return m.one(m.Called(ctx, input))
}

func (m *MockInstallmentService) GetByID(ctx context.Context, id uuid.UUID) (*appbilling.InstallmentResponse, error) {
	return m.one(m.Called(ctx, id))
}

func (m *MockInstallmentService) ListByEnrollment(ctx context.Context, studentCategoryID uuid.UUID) ([]appbilling.InstallmentResponse, error) {
	return m.many(m.Called(ctx, studentCategoryID))
}

func (m *MockInstallmentService) UpdateByID(ctx context.Context, id uuid.UUID, input appbilling.UpdateInstallmentInput) (*appbilling.InstallmentResponse, error) {
	return m.one(m.Called(ctx, id, input))
}

func (m *MockInstallmentService) DeleteInstallment(ctx context.Context, id uuid.UUID) (*appbilling.InstallmentResponse, error) {
	return m.one(m.Called(ctx, id))
}

func (m *MockInstallmentService) SoftDeleteInstallment(ctx context.Context, id uuid.UUID, deletedBy *uuid.UUID) (*appbilling.InstallmentResponse, error) {
	return m.one(m.Called(ctx, id, deletedBy))
}

func (m *MockInstallmentService) RestoreInstallment(ctx context.Context, id uuid.UUID, restoredBy *uuid.UUID) (*appbilling.InstallmentResponse, error) {
	return m.one(m.Called(ctx, id, restoredBy))
}

func (m *MockInstallmentService) ListByState(ctx context.Context, state *billing.InstallmentState) ([]appbilling.InstallmentResponse, error) {
	return m.many(m.Called(ctx, state))
}

func (m *MockInstallmentService) ListByPeriod(ctx context.Context, year int, month billing.Month) ([]appbilling.InstallmentResponse, error) {
	return m.many(m.Called(ctx, year, month))
}

func (m *MockInstallmentService) MarkAsPaid(ctx context.Context, id uuid.UUID, input appbilling.MarkAsPaidInput) (*appbilling.InstallmentResponse, error) {
	return m.one(m.Called(ctx, id, input))
}

func (m *MockInstallmentService) ListOverdue(ctx context.Context, ref time.Time) ([]appbilling.InstallmentResponse, error) {
	return m.many(m.Called(ctx, ref))
}

func (m *MockInstallmentService) MarkOverdue(ctx context.Context, ref time.Time) (*appbilling.MarkOverdueResult, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appbilling.MarkOverdueResult), args.Error(1)
}

func (m *MockInstallmentService) ListAudit(ctx context.Context, id uuid.UUID) ([]appbilling.AuditEntryResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]appbilling.AuditEntryResponse), args.Error(1)
}

var _ InstallmentService = (*MockInstallmentService)(nil)

// setupInstallmentRouter mounts the handler the way the router does, with
// an optional acting user injected ahead of it.
func setupInstallmentRouter(svc InstallmentService, actor *uuid.UUID) *gin.Engine {
	r := gin.New()
	if actor != nil {
		r.Use(func(c *gin.Context) {
			c.Set(middleware.ActingUserIDKey, *actor)
			c.Next()
		})
	}
	h := NewInstallmentHandler(svc)
	g := r.Group("/api/v1/cuotas")
	g.POST("", h.Create)
	g.GET("", h.ListByState)
	g.GET("/periodo/buscar", h.ListByPeriod)
	g.GET("/vencidas/buscar", h.ListOverdue)
	g.POST("/vencidas/procesar", h.ProcessOverdue)
	g.GET("/alumno-categoria/:id", h.ListByEnrollment)
	g.GET("/:id", h.GetByID)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
	g.PATCH("/:id/soft-delete", h.SoftDelete)
	g.PATCH("/:id/restore", h.Restore)
	g.PATCH("/:id/pagar", h.MarkAsPaid)
	g.GET("/:id/auditoria", h.ListAudit)
	return r
}

func perform(r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func sampleResponse(id uuid.UUID) *appbilling.InstallmentResponse {
	return &appbilling.InstallmentResponse{
		ID:                id,
		StudentCategoryID: uuid.New(),
		Year:              2026,
		Month:             "03",
		MonthName:         "Marzo",
		Amount:            decimal.NewFromInt(15000),
		TotalDue:          decimal.NewFromInt(15000),
		State:             "PENDING",
		DueDate:           time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		Version:           1,
	}
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Error)
	return resp.Error.Code
}

func TestInstallmentHandler_Create(t *testing.T) {
	enrollmentID := uuid.New()

	t.Run("creates with month name and defaults", func(t *testing.T) {
		svc := new(MockInstallmentService)
		id := uuid.New()
		expected := appbilling.CreateInstallmentInput{
			StudentCategoryID: enrollmentID,
			Year:              2026,
			Month:             3,
			Amount:            decimal.RequireFromString("15000.50"),
			Discount:          decimal.Zero,
			Surcharge:         decimal.Zero,
			DueDate:           time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
			Notes:             "primera cuota",
		}
		svc.On("CreateInstallment", mock.Anything, mock.MatchedBy(func(in appbilling.CreateInstallmentInput) bool {
			return in.StudentCategoryID == expected.StudentCategoryID &&
				in.Year == expected.Year &&
				in.Month == expected.Month &&
				in.Amount.Equal(expected.Amount) &&
				in.Discount.IsZero() && in.Surcharge.IsZero() &&
				in.DueDate.Equal(expected.DueDate) &&
				in.Notes == expected.Notes
		})).Return(sampleResponse(id), nil)

		body := `{"student_category_id":"` + enrollmentID.String() + `","year":2026,"month":"marzo","amount":"15000.50","due_date":"2026-03-10","notes":"primera cuota"}`
		w := perform(setupInstallmentRouter(svc, nil), http.MethodPost, "/api/v1/cuotas", body)

		assert.Equal(t, http.StatusCreated, w.Code)
		resp := decodeResponse(t, w)
		assert.True(t, resp.Success)
		svc.AssertExpectations(t)
	})

	t.Run("missing amount is a validation error", func(t *testing.T) {
		svc := new(MockInstallmentService)
		body := `{"student_category_id":"` + enrollmentID.String() + `","year":2026,"month":3,"due_date":"2026-03-10"}`

		w := perform(setupInstallmentRouter(svc, nil), http.MethodPost, "/api/v1/cuotas", body)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeResponse(t, w)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		assert.Equal(t, "amount", resp.Error.Details[0].Field)
		svc.AssertNotCalled(t, "CreateInstallment", mock.Anything, mock.Anything)
	})

	t.Run("month out of range", func(t *testing.T) {
		svc := new(MockInstallmentService)
		body := `{"student_category_id":"` + enrollmentID.String() + `","year":2026,"month":13,"amount":100,"due_date":"2026-03-10"}`

		w := perform(setupInstallmentRouter(svc, nil), http.MethodPost, "/api/v1/cuotas", body)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeValidation, errorCode(t, w))
	})

	t.Run("bad due date", func(t *testing.T) {
		svc := new(MockInstallmentService)
		body := `{"student_category_id":"` + enrollmentID.String() + `","year":2026,"month":3,"amount":100,"due_date":"10/03/2026"}`

		w := perform(setupInstallmentRouter(svc, nil), http.MethodPost, "/api/v1/cuotas", body)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeResponse(t, w)
		assert.Equal(t, "due_date", resp.Error.Details[0].Field)
	})

	t.Run("duplicate period", func(t *testing.T) {
		svc := new(MockInstallmentService)
		svc.On("CreateInstallment", mock.Anything, mock.Anything).Return(nil, billing.ErrDuplicatePeriod)
		body := `{"student_category_id":"` + enrollmentID.String() + `","year":2026,"month":3,"amount":100,"due_date":"2026-03-10"}`

		w := perform(setupInstallmentRouter(svc, nil), http.MethodPost, "/api/v1/cuotas", body)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeDuplicatePeriod, errorCode(t, w))
	})
}

func TestInstallmentHandler_GetByID(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		svc := new(MockInstallmentService)
		id := uuid.New()
		svc.On("GetByID", mock.Anything, id).Return(sampleResponse(id), nil)

		w := perform(setupInstallmentRouter(svc, nil), http.MethodGet, "/api/v1/cuotas/"+id.String(), "")

		assert.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Data appbilling.InstallmentResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, id, resp.Data.ID)
		assert.Equal(t, "03", resp.Data.Month)
	})

	t.Run("not found", func(t *testing.T) {
		svc := new(MockInstallmentService)
		id := uuid.New()
		svc.On("GetByID", mock.Anything, id).Return(nil, billing.ErrInstallmentNotFound)

		w := perform(setupInstallmentRouter(svc, nil), http.MethodGet, "/api/v1/cuotas/"+id.String(), "")

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, dto.ErrCodeNotFound, errorCode(t, w))
	})

	t.Run("malformed id", func(t *testing.T) {
		svc := new(MockInstallmentService)

		w := perform(setupInstallmentRouter(svc, nil), http.MethodGet, "/api/v1/cuotas/not-a-uuid", "")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeResponse(t, w)
		assert.Equal(t, "id", resp.Error.Details[0].Field)
		svc.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})

	t.Run("unexpected failure is a 500", func(t *testing.T) {
		svc := new(MockInstallmentService)
		id := uuid.New()
		svc.On("GetByID", mock.Anything, id).Return(nil, errors.New("db down"))

		w := perform(setupInstallmentRouter(svc, nil), http.MethodGet, "/api/v1/cuotas/"+id.String(), "")

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, dto.ErrCodeInternal, errorCode(t, w))
	})
}

func TestInstallmentHandler_ListByEnrollment(t *testing.T) {
	svc := new(MockInstallmentService)
	enrollmentID := uuid.New()
	svc.On("ListByEnrollment", mock.Anything, enrollmentID).Return([]appbilling.InstallmentResponse{}, nil)

	w := perform(setupInstallmentRouter(svc, nil), http.MethodGet, "/api/v1/cuotas/alumno-categoria/"+enrollmentID.String(), "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"data":[]}`, w.Body.String())
	svc.AssertExpectations(t)
}

func TestInstallmentHandler_Update(t *testing.T) {
	t.Run("partial update", func(t *testing.T) {
		svc := new(MockInstallmentService)
		id := uuid.New()
		svc.On("UpdateByID", mock.Anything, id, mock.MatchedBy(func(in appbilling.UpdateInstallmentInput) bool {
			return in.Month != nil && *in.Month == 4 &&
				in.DueDate != nil && in.DueDate.Equal(time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC)) &&
				in.Amount == nil && in.Year == nil && in.StudentCategoryID == nil
		})).Return(sampleResponse(id), nil)

		w := perform(setupInstallmentRouter(svc, nil), http.MethodPut, "/api/v1/cuotas/"+id.String(),
			`{"month":"abril","due_date":"2026-04-10"}`)

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("state cannot be edited", func(t *testing.T) {
		svc := new(MockInstallmentService)
		id := uuid.New()
		svc.On("UpdateByID", mock.Anything, id, mock.Anything).Return(sampleResponse(id), nil)

		w := perform(setupInstallmentRouter(svc, nil), http.MethodPut, "/api/v1/cuotas/"+id.String(),
			`{"state":"PAID"}`)

		assert.Equal(t, http.StatusOK, w.Code)
		input := svc.Calls[0].Arguments.Get(2).(appbilling.UpdateInstallmentInput)
		assert.Equal(t, appbilling.UpdateInstallmentInput{}, input)
	})

	t.Run("invalid enrollment id", func(t *testing.T) {
		svc := new(MockInstallmentService)

		w := perform(setupInstallmentRouter(svc, nil), http.MethodPut, "/api/v1/cuotas/"+uuid.NewString(),
			`{"student_category_id":"abc"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeValidation, errorCode(t, w))
	})
}

func TestInstallmentHandler_Delete(t *testing.T) {
	svc := new(MockInstallmentService)
	id := uuid.New()
	svc.On("DeleteInstallment", mock.Anything, id).Return(sampleResponse(id), nil)

	w := perform(setupInstallmentRouter(svc, nil), http.MethodDelete, "/api/v1/cuotas/"+id.String(), "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), id.String())
}

func TestInstallmentHandler_SoftDeleteAndRestore(t *testing.T) {
	actor := uuid.New()

	t.Run("soft delete stamps the acting user", func(t *testing.T) {
		svc := new(MockInstallmentService)
		id := uuid.New()
		svc.On("SoftDeleteInstallment", mock.Anything, id, &actor).Return(sampleResponse(id), nil)

		w := perform(setupInstallmentRouter(svc, &actor), http.MethodPatch, "/api/v1/cuotas/"+id.String()+"/soft-delete", "")

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("soft delete without a user", func(t *testing.T) {
		svc := new(MockInstallmentService)
		id := uuid.New()
		svc.On("SoftDeleteInstallment", mock.Anything, id, (*uuid.UUID)(nil)).Return(sampleResponse(id), nil)

		w := perform(setupInstallmentRouter(svc, nil), http.MethodPatch, "/api/v1/cuotas/"+id.String()+"/soft-delete", "")

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("restore into an occupied period", func(t *testing.T) {
		svc := new(MockInstallmentService)
		id := uuid.New()
		svc.On("RestoreInstallment", mock.Anything, id, &actor).Return(nil, billing.ErrDuplicatePeriod)

		w := perform(setupInstallmentRouter(svc, &actor), http.MethodPatch, "/api/v1/cuotas/"+id.String()+"/restore", "")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeDuplicatePeriod, errorCode(t, w))
	})
}

func TestInstallmentHandler_ListByState(t *testing.T) {
	t.Run("no filter", func(t *testing.T) {
		svc := new(MockInstallmentService)
		svc.On("ListByState", mock.Anything, (*billing.InstallmentState)(nil)).Return([]appbilling.InstallmentResponse{}, nil)

		w := perform(setupInstallmentRouter(svc, nil), http.MethodGet, "/api/v1/cuotas", "")

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("estado filter", func(t *testing.T) {
		svc := new(MockInstallmentService)
		svc.On("ListByState", mock.Anything, mock.MatchedBy(func(s *billing.InstallmentState) bool {
			return s != nil && *s == billing.StateOverdue
		})).Return([]appbilling.InstallmentResponse{}, nil)

		w := perform(setupInstallmentRouter(svc, nil), http.MethodGet, "/api/v1/cuotas?estado=OVERDUE", "")

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("unknown estado", func(t *testing.T) {
		svc := new(MockInstallmentService)

		w := perform(setupInstallmentRouter(svc, nil), http.MethodGet, "/api/v1/cuotas?estado=CANCELLED", "")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeResponse(t, w)
		assert.Equal(t, "estado", resp.Error.Details[0].Field)
	})
}

func TestInstallmentHandler_ListByPeriod(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		year   int
		month  billing.Month
		status int
		field  string
	}{
		{name: "numeric month", query: "anio=2026&mes=3", year: 2026, month: 3, status: http.StatusOK},
		{name: "padded month", query: "anio=2026&mes=09", year: 2026, month: 9, status: http.StatusOK},
		{name: "spanish name", query: "anio=2026&mes=Setiembre", year: 2026, month: 9, status: http.StatusOK},
		{name: "missing year", query: "mes=3", status: http.StatusBadRequest, field: "anio"},
		{name: "bad month", query: "anio=2026&mes=13", status: http.StatusBadRequest, field: "mes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockInstallmentService)
			if tt.status == http.StatusOK {
				svc.On("ListByPeriod", mock.Anything, tt.year, tt.month).Return([]appbilling.InstallmentResponse{}, nil)
			}

			w := perform(setupInstallmentRouter(svc, nil), http.MethodGet, "/api/v1/cuotas/periodo/buscar?"+tt.query, "")

			assert.Equal(t, tt.status, w.Code)
			if tt.field != "" {
				assert.Equal(t, tt.field, decodeResponse(t, w).Error.Details[0].Field)
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestInstallmentHandler_MarkAsPaid(t *testing.T) {
	actor := uuid.New()

	t.Run("empty body defaults collector to acting user", func(t *testing.T) {
		svc := new(MockInstallmentService)
		id := uuid.New()
		svc.On("MarkAsPaid", mock.Anything, id, appbilling.MarkAsPaidInput{CollectedBy: &actor}).Return(sampleResponse(id), nil)

		w := perform(setupInstallmentRouter(svc, &actor), http.MethodPatch, "/api/v1/cuotas/"+id.String()+"/pagar", "")

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("chunked empty body is treated as empty", func(t *testing.T) {
		svc := new(MockInstallmentService)
		id := uuid.New()
		svc.On("MarkAsPaid", mock.Anything, id, appbilling.MarkAsPaidInput{CollectedBy: &actor}).Return(sampleResponse(id), nil)

		req := httptest.NewRequest(http.MethodPatch, "/api/v1/cuotas/"+id.String()+"/pagar", strings.NewReader(""))
		req.Header.Set("Content-Type", "application/json")
		req.ContentLength = -1
		req.TransferEncoding = []string{"chunked"}
		w := httptest.NewRecorder()
		setupInstallmentRouter(svc, &actor).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("truncated body is still rejected", func(t *testing.T) {
		svc := new(MockInstallmentService)

		w := perform(setupInstallmentRouter(svc, nil), http.MethodPatch, "/api/v1/cuotas/"+uuid.NewString()+"/pagar", `{"payment_method":`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeInvalidJSON, errorCode(t, w))
		svc.AssertNotCalled(t, "MarkAsPaid", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("explicit payment data", func(t *testing.T) {
		svc := new(MockInstallmentService)
		id := uuid.New()
		collector := uuid.New()
		svc.On("MarkAsPaid", mock.Anything, id, mock.MatchedBy(func(in appbilling.MarkAsPaidInput) bool {
			return in.PaymentDate != nil && in.PaymentDate.Equal(time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)) &&
				in.PaymentMethod == "efectivo" &&
				in.ReceiptNumber == "R-0001" &&
				in.CollectedBy != nil && *in.CollectedBy == collector
		})).Return(sampleResponse(id), nil)

		body := `{"payment_date":"2026-03-05","payment_method":" efectivo ","receipt_number":"R-0001","collected_by_user_id":"` + collector.String() + `"}`
		w := perform(setupInstallmentRouter(svc, &actor), http.MethodPatch, "/api/v1/cuotas/"+id.String()+"/pagar", body)

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("already paid", func(t *testing.T) {
		svc := new(MockInstallmentService)
		id := uuid.New()
		svc.On("MarkAsPaid", mock.Anything, id, mock.Anything).Return(nil, billing.ErrAlreadyPaid)

		w := perform(setupInstallmentRouter(svc, nil), http.MethodPatch, "/api/v1/cuotas/"+id.String()+"/pagar", "")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeAlreadyPaid, errorCode(t, w))
	})

	t.Run("bad payment date", func(t *testing.T) {
		svc := new(MockInstallmentService)

		w := perform(setupInstallmentRouter(svc, nil), http.MethodPatch, "/api/v1/cuotas/"+uuid.NewString()+"/pagar",
			`{"payment_date":"ayer"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "payment_date", decodeResponse(t, w).Error.Details[0].Field)
	})
}

func TestInstallmentHandler_Overdue(t *testing.T) {
	t.Run("list defaults to now", func(t *testing.T) {
		svc := new(MockInstallmentService)
		svc.On("ListOverdue", mock.Anything, time.Time{}).Return([]appbilling.InstallmentResponse{}, nil)

		w := perform(setupInstallmentRouter(svc, nil), http.MethodGet, "/api/v1/cuotas/vencidas/buscar", "")

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("list with fecha", func(t *testing.T) {
		svc := new(MockInstallmentService)
		ref := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
		svc.On("ListOverdue", mock.Anything, ref).Return([]appbilling.InstallmentResponse{}, nil)

		w := perform(setupInstallmentRouter(svc, nil), http.MethodGet, "/api/v1/cuotas/vencidas/buscar?fecha=2026-04-01", "")

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("bad fecha", func(t *testing.T) {
		svc := new(MockInstallmentService)

		w := perform(setupInstallmentRouter(svc, nil), http.MethodGet, "/api/v1/cuotas/vencidas/buscar?fecha=manana", "")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "fecha", decodeResponse(t, w).Error.Details[0].Field)
	})

	t.Run("process returns the marked count", func(t *testing.T) {
		svc := new(MockInstallmentService)
		ref := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
		svc.On("MarkOverdue", mock.Anything, ref).Return(&appbilling.MarkOverdueResult{ReferenceDate: ref, Marked: 4}, nil)

		w := perform(setupInstallmentRouter(svc, nil), http.MethodPost, "/api/v1/cuotas/vencidas/procesar?fecha=2026-04-01", "")

		assert.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Data appbilling.MarkOverdueResult `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, 4, resp.Data.Marked)
		assert.True(t, resp.Data.ReferenceDate.Equal(ref))
	})
}

func TestInstallmentHandler_ListAudit(t *testing.T) {
	svc := new(MockInstallmentService)
	id := uuid.New()
	entries := []appbilling.AuditEntryResponse{{
		ID:         uuid.New(),
		EventID:    uuid.New(),
		EventType:  billing.EventTypeInstallmentPaid,
		OccurredAt: time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC),
	}}
	svc.On("ListAudit", mock.Anything, id).Return(entries, nil)

	w := perform(setupInstallmentRouter(svc, nil), http.MethodGet, "/api/v1/cuotas/"+id.String()+"/auditoria", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), billing.EventTypeInstallmentPaid)
}
