package api

import (
	"bytes"
	"context"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"paynotify/config"
	"paynotify/internal/models"
	"paynotify/internal/service"
	"paynotify/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testServerKey = "secret-key"

type memLedger struct {
	orders   map[string]*models.Order
	payments []models.Payment
}

func (m *memLedger) GetOrderByCode(ctx context.Context, code string) (*models.Order, error) {
	order, ok := m.orders[code]
	if !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrOrderNotFound, code)
	}
	return order, nil
}

func (m *memLedger) GetPaymentsByOrderID(ctx context.Context, orderID int64) ([]models.Payment, error) {
	var out []models.Payment
	for _, p := range m.payments {
		if p.OrderID == orderID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memLedger) RecordPayment(ctx context.Context, orderCode string, payment *models.Payment, confirm bool) (*models.Order, error) {
	order, ok := m.orders[orderCode]
	if !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrOrderNotFound, orderCode)
	}
	if order.IsPaid() {
		return nil, fmt.Errorf("%w: %s", store.ErrAlreadyPaid, orderCode)
	}
	payment.OrderID = order.ID
	m.payments = append(m.payments, *payment)
	if confirm {
		order.PaymentStatus = models.OrderPaid
		order.Status = models.OrderStatusConfirmed
	}
	return order, nil
}

type memCache struct{ statuses map[string]string }

func (m *memCache) GetOrderStatus(ctx context.Context, code string) (string, error) {
	return m.statuses[code], nil
}

func (m *memCache) SetOrderStatus(ctx context.Context, code, status string) error {
	m.statuses[code] = status
	return nil
}

func (m *memCache) AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error) {
	return true, nil
}

func (m *memCache) ReleaseLock(ctx context.Context, lockKey string) error { return nil }

type noopSink struct{}

func (noopSink) PublishPaymentRecorded(ctx context.Context, event *models.PaymentRecordedEvent) error {
	return nil
}

func (noopSink) PublishOrderConfirmed(ctx context.Context, event *models.OrderConfirmedEvent) error {
	return nil
}

func newTestRouter(orders ...*models.Order) (*gin.Engine, *memLedger) {
	gin.SetMode(gin.TestMode)

	ledger := &memLedger{orders: map[string]*models.Order{}}
	for _, o := range orders {
		ledger.orders[o.Code] = o
	}

	recon := service.NewReconcileService(ledger, &memCache{statuses: map[string]string{}}, noopSink{},
		config.GatewayConfig{ServerKey: testServerKey})

	router := gin.New()
	NewHandler(recon, "http://shop.example").SetupRoutes(router)
	return router, ledger
}

func unpaidOrder() *models.Order {
	return &models.Order{
		ID:            42,
		Code:          "ORD-1",
		PaymentStatus: models.OrderUnpaid,
		Status:        models.OrderStatusCreated,
	}
}

func signedBody(t *testing.T, fields map[string]interface{}) []byte {
	t.Helper()

	orderID, _ := fields["order_id"].(string)
	statusCode, _ := fields["status_code"].(string)
	grossAmount, _ := fields["gross_amount"].(string)

	if _, ok := fields["signature_key"]; !ok {
		sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + testServerKey))
		fields["signature_key"] = hex.EncodeToString(sum[:])
	}

	body, err := json.Marshal(fields)
	require.NoError(t, err)
	return body
}

func postNotification(router *gin.Engine, body []byte) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/payments/notification", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

type apiResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) apiResponse {
	t.Helper()
	var resp apiResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestNotificationSettlement(t *testing.T) {
	router, ledger := newTestRouter(unpaidOrder())

	w := postNotification(router, signedBody(t, map[string]interface{}{
		"order_id":           "ORD-1",
		"status_code":        "200",
		"gross_amount":       "100000.00",
		"transaction_status": "settlement",
		"transaction_id":     "tx-1",
		"payment_type":       "bank_transfer",
	}))

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "Payment status is: SETTLEMENT", resp.Message)

	assert.Equal(t, models.OrderPaid, ledger.orders["ORD-1"].PaymentStatus)
	assert.Len(t, ledger.payments, 1)
}

func TestNotificationStatusCodes(t *testing.T) {
	tests := []struct {
		name     string
		body     func(t *testing.T) []byte
		order    *models.Order
		wantCode int
	}{
		{
			name:     "malformed json",
			body:     func(t *testing.T) []byte { return []byte(`{oops`) },
			order:    unpaidOrder(),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "missing required fields",
			body: func(t *testing.T) []byte {
				return []byte(`{"order_id":"ORD-1","transaction_status":"settlement"}`)
			},
			order:    unpaidOrder(),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "invalid signature",
			body: func(t *testing.T) []byte {
				return signedBody(t, map[string]interface{}{
					"order_id":           "ORD-1",
					"status_code":        "200",
					"gross_amount":       "100000.00",
					"signature_key":      "bogus",
					"transaction_status": "settlement",
				})
			},
			order:    unpaidOrder(),
			wantCode: http.StatusForbidden,
		},
		{
			name: "order not found",
			body: func(t *testing.T) []byte {
				return signedBody(t, map[string]interface{}{
					"order_id":           "ORD-404",
					"status_code":        "200",
					"gross_amount":       "100000.00",
					"transaction_status": "settlement",
				})
			},
			order:    unpaidOrder(),
			wantCode: http.StatusNotFound,
		},
		{
			name: "already paid",
			body: func(t *testing.T) []byte {
				return signedBody(t, map[string]interface{}{
					"order_id":           "ORD-1",
					"status_code":        "200",
					"gross_amount":       "100000.00",
					"transaction_status": "settlement",
				})
			},
			order: &models.Order{
				ID:            42,
				Code:          "ORD-1",
				PaymentStatus: models.OrderPaid,
				Status:        models.OrderStatusConfirmed,
			},
			wantCode: http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, ledger := newTestRouter(tt.order)

			w := postNotification(router, tt.body(t))

			assert.Equal(t, tt.wantCode, w.Code)
			resp := decodeResponse(t, w)
			assert.Equal(t, tt.wantCode, resp.Code)
			assert.NotEmpty(t, resp.Message)
			assert.Empty(t, ledger.payments)
		})
	}
}

func TestNotificationReplayReturns422(t *testing.T) {
	router, ledger := newTestRouter(unpaidOrder())

	body := signedBody(t, map[string]interface{}{
		"order_id":           "ORD-1",
		"status_code":        "200",
		"gross_amount":       "100000.00",
		"transaction_status": "settlement",
	})

	first := postNotification(router, body)
	assert.Equal(t, http.StatusOK, first.Code)

	second := postNotification(router, body)
	assert.Equal(t, http.StatusUnprocessableEntity, second.Code)

	assert.Len(t, ledger.payments, 1)
	assert.Equal(t, models.OrderPaid, ledger.orders["ORD-1"].PaymentStatus)
}

func TestNotificationUnknownStatusStillOK(t *testing.T) {
	router, ledger := newTestRouter(unpaidOrder())

	w := postNotification(router, signedBody(t, map[string]interface{}{
		"order_id":           "ORD-1",
		"status_code":        "200",
		"gross_amount":       "100000.00",
		"transaction_status": "refund",
	}))

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	assert.Equal(t, "Payment status is: unmapped:refund", resp.Message)

	require.Len(t, ledger.payments, 1)
	assert.False(t, ledger.payments[0].Status.Valid)
	assert.Equal(t, models.OrderUnpaid, ledger.orders["ORD-1"].PaymentStatus)
}

func TestCompletedRedirectsUnpaidToFailed(t *testing.T) {
	router, _ := newTestRouter(unpaidOrder())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/payments/completed?order_id=ORD-1", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/payments/failed?order_id=ORD-1", w.Header().Get("Location"))
}

func TestCompletedRedirectsPaidToSuccess(t *testing.T) {
	order := unpaidOrder()
	order.PaymentStatus = models.OrderPaid
	router, _ := newTestRouter(order)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/payments/completed?order_id=ORD-1", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "http://shop.example/payments/success", w.Header().Get("Location"))
}

func TestFailedAndUnfinishRedirectToReceived(t *testing.T) {
	for _, path := range []string{"/payments/failed", "/payments/unfinish"} {
		t.Run(path, func(t *testing.T) {
			router, _ := newTestRouter(unpaidOrder())

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, path+"?order_id=ORD-1", nil)
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusFound, w.Code)
			assert.Equal(t, "http://shop.example/orders/received/42", w.Header().Get("Location"))
		})
	}
}

func TestRedirectUnknownOrder(t *testing.T) {
	router, _ := newTestRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/payments/completed?order_id=NOPE", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetOrder(t *testing.T) {
	router, ledger := newTestRouter(unpaidOrder())
	ledger.payments = append(ledger.payments, models.Payment{
		OrderID: 42,
		Number:  "PAY-abc12345",
		Amount:  "100000.00",
		Method:  models.PaymentMethod,
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/ORD-1", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Order    models.Order     `json:"order"`
		Payments []models.Payment `json:"payments"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ORD-1", resp.Order.Code)
	assert.Len(t, resp.Payments, 1)
}
