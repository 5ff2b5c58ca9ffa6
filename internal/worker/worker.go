package worker

import (
	"context"
	"log"

	"paynotify/internal/broker"
	"paynotify/internal/models"
	"paynotify/internal/util"

	"go.uber.org/zap"
)

// AuditWorker consumes reconciliation audit events and writes the operator
// trail. It is deliberately read-only: the state transition already happened
// by the time an event reaches the stream.
type AuditWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	logger       *zap.Logger
}

// NewAuditWorker creates a new audit worker
func NewAuditWorker(consumer *broker.Consumer) *AuditWorker {
	logger := util.GetLogger()
	eventHandler := broker.NewEventHandler()

	eventHandler.OnPaymentRecorded(func(ctx context.Context, event *models.PaymentRecordedEvent) error {
		util.AuditEventsTotal.WithLabelValues(models.EventTypePaymentRecorded).Inc()
		logger.Info("Audit: payment recorded",
			zap.String("order_code", event.OrderCode),
			zap.String("payment_number", event.PaymentNumber),
			zap.String("status", event.Status),
			zap.String("amount", event.Amount),
			zap.Int("payload_bytes", event.PayloadBytes))
		return nil
	})

	eventHandler.OnOrderConfirmed(func(ctx context.Context, event *models.OrderConfirmedEvent) error {
		util.AuditEventsTotal.WithLabelValues(models.EventTypeOrderConfirmed).Inc()
		logger.Info("Audit: order confirmed",
			zap.Int64("order_id", event.OrderID),
			zap.String("order_code", event.OrderCode),
			zap.String("payment_number", event.PaymentNumber))
		return nil
	})

	return &AuditWorker{
		consumer:     consumer,
		eventHandler: eventHandler,
		logger:       logger,
	}
}

// Start starts the worker
func (w *AuditWorker) Start(ctx context.Context) error {
	log.Println("Starting audit worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *AuditWorker) Stop() error {
	log.Println("Stopping audit worker...")
	return w.consumer.Close()
}
