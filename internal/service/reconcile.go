package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"paynotify/config"
	"paynotify/internal/gateway"
	"paynotify/internal/models"
	"paynotify/internal/store"
	"paynotify/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrInvalidSignature means the notification failed authentication.
	ErrInvalidSignature = errors.New("invalid signature")
	// ErrOrderNotFound means no order matches the notification's order_id.
	ErrOrderNotFound = errors.New("order not found")
	// ErrAlreadyPaid means the order already had a payment applied.
	ErrAlreadyPaid = errors.New("order already paid")
)

const lockTTL = 30 * time.Second

// Ledger is the persistence boundary consumed by the reconciliation service.
// *store.Store satisfies it.
type Ledger interface {
	GetOrderByCode(ctx context.Context, code string) (*models.Order, error)
	GetPaymentsByOrderID(ctx context.Context, orderID int64) ([]models.Payment, error)
	RecordPayment(ctx context.Context, orderCode string, payment *models.Payment, confirm bool) (*models.Order, error)
}

// StatusCache caches order payment status and provides per-order advisory
// locks. *redisclient.Client satisfies it.
type StatusCache interface {
	GetOrderStatus(ctx context.Context, code string) (string, error)
	SetOrderStatus(ctx context.Context, code, status string) error
	AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, lockKey string) error
}

// EventSink publishes reconciliation audit events. *broker.EventPublisher
// satisfies it.
type EventSink interface {
	PublishPaymentRecorded(ctx context.Context, event *models.PaymentRecordedEvent) error
	PublishOrderConfirmed(ctx context.Context, event *models.OrderConfirmedEvent) error
}

// ReconcileService applies gateway payment notifications to orders
type ReconcileService struct {
	ledger   Ledger
	cache    StatusCache
	events   EventSink
	verifier *gateway.SignatureVerifier
	logger   *zap.Logger
}

// NewReconcileService creates a new reconciliation service
func NewReconcileService(ledger Ledger, cache StatusCache, events EventSink, gwCfg config.GatewayConfig) *ReconcileService {
	return &ReconcileService{
		ledger:   ledger,
		cache:    cache,
		events:   events,
		verifier: gateway.NewSignatureVerifier(gwCfg),
		logger:   util.GetLogger(),
	}
}

// ReconcileResult is the outcome of a successfully processed notification
type ReconcileResult struct {
	Order      *models.Order
	Payment    *models.Payment
	Resolution gateway.StatusResolution
	RawStatus  string
}

// Summary returns the human-readable status line sent back to the gateway.
func (r *ReconcileResult) Summary() string {
	return fmt.Sprintf("Payment status is: %s", r.statusLabel())
}

func (r *ReconcileResult) statusLabel() string {
	if !r.Resolution.Mapped {
		return fmt.Sprintf("unmapped:%s", r.RawStatus)
	}
	return r.Resolution.Status
}

// Reconcile processes one raw webhook body end to end: authenticate, resolve
// the order, guard against duplicates, record the payment, and advance the
// order when the mapped status warrants it. Authentication and validation
// failures produce no writes.
func (s *ReconcileService) Reconcile(ctx context.Context, body []byte) (*ReconcileResult, error) {
	ctx, span := util.StartSpan(ctx, "ReconcileService.Reconcile")
	defer span.End()

	util.NotificationsReceivedTotal.Inc()
	start := time.Now()
	defer func() {
		util.ReconcileLatency.Observe(time.Since(start).Seconds())
	}()

	n, err := gateway.ParseNotification(body)
	if err != nil {
		s.logger.Error("Rejected unparseable notification", zap.Error(err))
		util.NotificationsRejectedTotal.WithLabelValues("bad_payload").Inc()
		return nil, err
	}

	s.logger.Info("Payment notification received",
		zap.String("order_id", n.OrderID),
		zap.String("transaction_status", n.TransactionStatus),
		zap.String("transaction_id", n.TransactionID),
		zap.String("payment_type", n.PaymentType),
		zap.String("fraud_status", n.FraudStatus))

	if !s.verifier.Verify(n) {
		s.logger.Error("Invalid signature", zap.String("order_id", n.OrderID))
		util.SignatureFailuresTotal.Inc()
		util.NotificationsRejectedTotal.WithLabelValues("invalid_signature").Inc()
		return nil, ErrInvalidSignature
	}

	// Advisory only. The row lock in RecordPayment is the actual guarantee;
	// a held lock just means a duplicate is in flight right now.
	if acquired, lockErr := s.cache.AcquireLock(ctx, n.OrderID, lockTTL); lockErr == nil && acquired {
		defer func() {
			if err := s.cache.ReleaseLock(ctx, n.OrderID); err != nil {
				s.logger.Warn("Failed to release order lock",
					zap.String("order_id", n.OrderID), zap.Error(err))
			}
		}()
	} else if lockErr == nil {
		util.LockContentionTotal.Inc()
		s.logger.Warn("Concurrent notification in flight for order",
			zap.String("order_id", n.OrderID))
	}

	resolution := gateway.ResolveStatus(n.TransactionStatus, n.PaymentType, n.FraudStatus)
	payment := buildPayment(n, resolution)

	order, err := s.ledger.RecordPayment(ctx, n.OrderID, payment, resolution.AdvancesOrder())
	if err != nil {
		return nil, s.recordFailure(n, err)
	}

	util.PaymentsRecordedTotal.WithLabelValues(paymentStatusLabel(resolution)).Inc()
	s.logger.Info("Payment recorded",
		zap.String("order_id", n.OrderID),
		zap.String("payment_number", payment.Number),
		zap.String("status", paymentStatusLabel(resolution)))

	result := &ReconcileResult{
		Order:      order,
		Payment:    payment,
		Resolution: resolution,
		RawStatus:  n.TransactionStatus,
	}

	if resolution.AdvancesOrder() {
		util.OrdersConfirmedTotal.Inc()
		s.logger.Info("Order updated to PAID and CONFIRMED",
			zap.Int64("order_id", order.ID),
			zap.String("order_code", order.Code))

		if err := s.cache.SetOrderStatus(ctx, order.Code, models.OrderPaid); err != nil {
			s.logger.Warn("Failed to cache order status", zap.Error(err))
		}
	}

	s.publishAuditEvents(ctx, n, payment, order, resolution)
	return result, nil
}

func (s *ReconcileService) recordFailure(n *gateway.Notification, err error) error {
	switch {
	case errors.Is(err, store.ErrOrderNotFound):
		s.logger.Error("Order not found", zap.String("order_id", n.OrderID))
		util.NotificationsRejectedTotal.WithLabelValues("order_not_found").Inc()
		return fmt.Errorf("%w: %s", ErrOrderNotFound, n.OrderID)
	case errors.Is(err, store.ErrAlreadyPaid):
		s.logger.Info("Order already paid", zap.String("order_id", n.OrderID))
		util.NotificationsRejectedTotal.WithLabelValues("already_paid").Inc()
		return fmt.Errorf("%w: %s", ErrAlreadyPaid, n.OrderID)
	default:
		s.logger.Error("Payment creation failed",
			zap.String("order_id", n.OrderID), zap.Error(err))
		util.NotificationsRejectedTotal.WithLabelValues("persistence").Inc()
		return fmt.Errorf("failed to record payment: %w", err)
	}
}

// publishAuditEvents emits the audit trail; publish failures are logged,
// never surfaced to the gateway (the state transition already committed).
func (s *ReconcileService) publishAuditEvents(ctx context.Context, n *gateway.Notification, payment *models.Payment, order *models.Order, resolution gateway.StatusResolution) {
	recorded := &models.PaymentRecordedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypePaymentRecorded,
			Timestamp: time.Now(),
		},
		OrderCode:     order.Code,
		PaymentNumber: payment.Number,
		Status:        resolution.Status,
		Amount:        payment.Amount,
		PaymentType:   payment.PaymentType,
		PayloadBytes:  len(n.Raw),
	}
	if err := s.events.PublishPaymentRecorded(ctx, recorded); err != nil {
		s.logger.Error("Failed to publish PaymentRecorded event", zap.Error(err))
	}

	if !resolution.AdvancesOrder() {
		return
	}

	confirmed := &models.OrderConfirmedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderConfirmed,
			Timestamp: time.Now(),
		},
		OrderID:       order.ID,
		OrderCode:     order.Code,
		PaymentNumber: payment.Number,
		Amount:        payment.Amount,
	}
	if err := s.events.PublishOrderConfirmed(ctx, confirmed); err != nil {
		s.logger.Error("Failed to publish OrderConfirmed event", zap.Error(err))
	}
}

// buildPayment assembles the append-only payment row for a notification.
// Amount keeps the literal gross_amount string and Payloads the verbatim
// body, so the decision can be replayed from the row alone.
func buildPayment(n *gateway.Notification, resolution gateway.StatusResolution) *models.Payment {
	payment := &models.Payment{
		Number:      generatePaymentNumber(),
		Amount:      n.GrossAmount,
		Method:      models.PaymentMethod,
		Token:       n.TransactionID,
		Payloads:    n.Raw,
		PaymentType: n.PaymentType,
		BillerCode:  nullable(n.BillerCode),
		BillKey:     nullable(n.BillKey),
	}

	if resolution.Mapped {
		payment.Status = sql.NullString{String: resolution.Status, Valid: true}
	}

	if vaNumber, bank, ok := n.VADetails(); ok {
		payment.VaNumber = sql.NullString{String: vaNumber, Valid: true}
		payment.VendorName = sql.NullString{String: bank, Valid: true}
	}

	return payment
}

func generatePaymentNumber() string {
	return fmt.Sprintf("PAY-%s", uuid.New().String()[:8])
}

func paymentStatusLabel(r gateway.StatusResolution) string {
	if !r.Mapped {
		return "unmapped"
	}
	return r.Status
}

func nullable(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
