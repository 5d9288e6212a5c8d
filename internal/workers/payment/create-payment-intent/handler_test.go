package createpaymentintent

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"medcert-apply/internal/common/config"
	apperrors "medcert-apply/internal/common/errors"
	commonhttp "medcert-apply/internal/common/http"
	"medcert-apply/internal/common/logger"
	"medcert-apply/internal/payment"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 10, 19, 10, 32, 0, 0, time.UTC)

type fakeGateway struct {
	mu      sync.Mutex
	status  int
	creates int32
	lookups int32
	last    payment.OrderRequest
	orders  map[string]payment.Order
}

func (g *fakeGateway) server(t *testing.T) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		g.mu.Lock()
		defer g.mu.Unlock()
		if g.status != 0 {
			w.WriteHeader(g.status)
			_, _ = w.Write([]byte(`{"error":{"code":"BAD_REQUEST_ERROR"}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")

		if r.Method == http.MethodGet {
			atomic.AddInt32(&g.lookups, 1)
			items := []payment.Order{}
			if o, ok := g.orders[r.URL.Query().Get("receipt")]; ok {
				items = append(items, o)
			}
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"entity": "collection", "count": len(items), "items": items,
			})
			return
		}

		atomic.AddInt32(&g.creates, 1)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&g.last))
		o := payment.Order{
			ID: "order_QWE123", Entity: "order", Amount: g.last.Amount,
			Currency: g.last.Currency, Receipt: g.last.Receipt, Status: "created",
		}
		if g.orders == nil {
			g.orders = map[string]payment.Order{}
		}
		g.orders[o.Receipt] = o
		_ = json.NewEncoder(w).Encode(o)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestHandler(t *testing.T, g *fakeGateway) (*Handler, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	srv := g.server(t)
	gw := payment.NewClient(commonhttp.NewClient(2*time.Second), srv.URL, "rzp_test_key", "secret")
	h := NewHandler(LoadConfig(config.WorkerConfig{}), db, gw, logger.NewTestLogger(t))
	h.now = func() time.Time { return fixedNow }
	return h, mock
}

func createTestInput() *Input {
	return &Input{
		ApplicationID: "app-001",
		SessionID:     "session-1",
		TotalAmount:   1049,
		Email:         "asha@example.in",
	}
}

func TestHandler_Execute_CreatesOrder(t *testing.T) {
	g := &fakeGateway{}
	h, mock := newTestHandler(t, g)

	mock.ExpectQuery(`SELECT payment_intent_id, status FROM certificate_applications`).
		WithArgs("app-001").
		WillReturnRows(sqlmock.NewRows([]string{"payment_intent_id", "status"}).AddRow(nil, "submitted"))
	mock.ExpectExec(`UPDATE certificate_applications`).
		WithArgs("order_QWE123", StatusPaymentPending, fixedNow, "app-001").
		WillReturnResult(sqlmock.NewResult(0, 1))

	out, err := h.Execute(context.Background(), createTestInput())

	require.NoError(t, err)
	assert.Equal(t, &Output{
		PaymentIntentID:   "order_QWE123",
		Amount:            104900,
		Currency:          "INR",
		ApplicationStatus: "payment_pending",
	}, out)
	assert.Equal(t, int64(104900), g.last.Amount)
	assert.Equal(t, "app-001", g.last.Receipt)
	assert.Equal(t, "session-1", g.last.Notes["sessionId"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_ExistingIntentIsReused(t *testing.T) {
	g := &fakeGateway{}
	h, mock := newTestHandler(t, g)

	mock.ExpectQuery(`SELECT payment_intent_id, status`).
		WithArgs("app-001").
		WillReturnRows(sqlmock.NewRows([]string{"payment_intent_id", "status"}).AddRow("order_OLD", "payment_pending"))

	out, err := h.Execute(context.Background(), createTestInput())

	require.NoError(t, err)
	assert.Equal(t, "order_OLD", out.PaymentIntentID)
	assert.Equal(t, int32(0), atomic.LoadInt32(&g.creates))
	assert.Equal(t, int32(0), atomic.LoadInt32(&g.lookups))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_ApplicationNotFound(t *testing.T) {
	h, mock := newTestHandler(t, &fakeGateway{})

	mock.ExpectQuery(`SELECT payment_intent_id, status`).
		WillReturnRows(sqlmock.NewRows([]string{"payment_intent_id", "status"}))

	_, err := h.Execute(context.Background(), createTestInput())

	assert.ErrorIs(t, err, ErrApplicationNotFound)
	se, ok := apperrors.As(toStandardError(err))
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeApplicationNotFound, se.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_GatewayErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		sentinel  error
		retryable bool
	}{
		{"rejected", http.StatusBadRequest, payment.ErrGatewayRejects, false},
		{"unavailable", http.StatusBadGateway, payment.ErrGatewayFailed, true},
		{"rate limited", http.StatusTooManyRequests, payment.ErrGatewayFailed, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, mock := newTestHandler(t, &fakeGateway{status: tt.status})
			mock.ExpectQuery(`SELECT payment_intent_id, status`).
				WillReturnRows(sqlmock.NewRows([]string{"payment_intent_id", "status"}).AddRow(nil, "submitted"))

			_, err := h.Execute(context.Background(), createTestInput())

			assert.ErrorIs(t, err, tt.sentinel)
			se, ok := apperrors.As(toStandardError(err))
			require.True(t, ok)
			assert.Equal(t, apperrors.ErrCodePaymentGatewayFailed, se.Code)
			assert.Equal(t, tt.retryable, se.Retryable)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestHandler_Execute_UpdateFailsThenRetryReusesOrder(t *testing.T) {
	g := &fakeGateway{}
	h, mock := newTestHandler(t, g)

	mock.ExpectQuery(`SELECT payment_intent_id, status`).
		WillReturnRows(sqlmock.NewRows([]string{"payment_intent_id", "status"}).AddRow(nil, "submitted"))
	mock.ExpectExec(`UPDATE certificate_applications`).WillReturnError(errors.New("connection reset"))

	_, err := h.Execute(context.Background(), createTestInput())

	assert.ErrorIs(t, err, ErrDatabaseFailed)
	assert.Contains(t, err.Error(), "order_QWE123")

	mock.ExpectQuery(`SELECT payment_intent_id, status`).
		WillReturnRows(sqlmock.NewRows([]string{"payment_intent_id", "status"}).AddRow(nil, "submitted"))
	mock.ExpectExec(`UPDATE certificate_applications`).
		WithArgs("order_QWE123", StatusPaymentPending, fixedNow, "app-001").
		WillReturnResult(sqlmock.NewResult(0, 1))

	out, err := h.Execute(context.Background(), createTestInput())

	require.NoError(t, err)
	assert.Equal(t, "order_QWE123", out.PaymentIntentID)
	assert.Equal(t, int32(1), atomic.LoadInt32(&g.creates))
	assert.Equal(t, int32(2), atomic.LoadInt32(&g.lookups))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_InvalidInput(t *testing.T) {
	h, _ := newTestHandler(t, &fakeGateway{})

	_, err := h.Execute(context.Background(), &Input{TotalAmount: 10})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = h.Execute(context.Background(), &Input{ApplicationID: "app-001"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}
