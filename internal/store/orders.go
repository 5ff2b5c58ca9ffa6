package store

import (
	"context"
	"database/sql"
	"fmt"

	"paynotify/internal/models"
)

// GetOrderByCode retrieves an order by its external business code
func (s *Store) GetOrderByCode(ctx context.Context, code string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE code = $1", code)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, code)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetPaymentsByOrderID retrieves all payment rows recorded for an order
func (s *Store) GetPaymentsByOrderID(ctx context.Context, orderID int64) ([]models.Payment, error) {
	var payments []models.Payment
	err := s.db.SelectContext(ctx, &payments,
		"SELECT * FROM payments WHERE order_id = $1 ORDER BY created_at DESC", orderID)
	return payments, err
}

// RecordPayment applies one gateway notification inside a single transaction:
// the order row is locked (FOR UPDATE), the already-paid guard is checked
// under that lock, the payment row is inserted, and when confirm is set the
// order advances to PAID/CONFIRMED. Concurrent notifications for the same
// order serialize on the row lock; the loser observes PAID and gets
// ErrAlreadyPaid with nothing written.
func (s *Store) RecordPayment(ctx context.Context, orderCode string, payment *models.Payment, confirm bool) (*models.Order, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var order models.Order
	err = tx.GetContext(ctx, &order,
		"SELECT * FROM orders WHERE code = $1 FOR UPDATE", orderCode)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, orderCode)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock order: %w", err)
	}

	if order.IsPaid() {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyPaid, orderCode)
	}

	payment.OrderID = order.ID

	query := `
		INSERT INTO payments (order_id, number, amount, method, status, token, payloads,
			payment_type, va_number, vendor_name, biller_code, bill_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at`

	err = tx.GetContext(ctx, payment, query,
		payment.OrderID, payment.Number, payment.Amount, payment.Method,
		payment.Status, payment.Token, payment.Payloads, payment.PaymentType,
		payment.VaNumber, payment.VendorName, payment.BillerCode, payment.BillKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment: %w", err)
	}

	if confirm {
		_, err = tx.ExecContext(ctx,
			"UPDATE orders SET payment_status = $1, status = $2, updated_at = NOW() WHERE id = $3",
			models.OrderPaid, models.OrderStatusConfirmed, order.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to confirm order: %w", err)
		}
		order.PaymentStatus = models.OrderPaid
		order.Status = models.OrderStatusConfirmed
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit reconciliation: %w", err)
	}
	return &order, nil
}
