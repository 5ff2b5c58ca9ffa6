package service

import (
	"context"
	"errors"
	"fmt"

	"paynotify/internal/models"
	"paynotify/internal/store"

	"go.uber.org/zap"
)

// GetOrder retrieves an order by business code together with its payments
func (s *ReconcileService) GetOrder(ctx context.Context, code string) (*models.Order, []models.Payment, error) {
	order, err := s.ledger.GetOrderByCode(ctx, code)
	if err != nil {
		if errors.Is(err, store.ErrOrderNotFound) {
			return nil, nil, fmt.Errorf("%w: %s", ErrOrderNotFound, code)
		}
		return nil, nil, err
	}

	payments, err := s.ledger.GetPaymentsByOrderID(ctx, order.ID)
	if err != nil {
		return nil, nil, err
	}

	return order, payments, nil
}

// OrderPaymentStatus returns the payment status for an order code, reading
// through the cache. Only the redirect endpoints use this; a stale entry can
// at worst bounce a buyer to the failed page until the cache expires.
func (s *ReconcileService) OrderPaymentStatus(ctx context.Context, code string) (string, error) {
	status, err := s.cache.GetOrderStatus(ctx, code)
	if err != nil {
		s.logger.Warn("Order status cache read failed", zap.Error(err))
	} else if status != "" {
		return status, nil
	}

	order, err := s.ledger.GetOrderByCode(ctx, code)
	if err != nil {
		if errors.Is(err, store.ErrOrderNotFound) {
			return "", fmt.Errorf("%w: %s", ErrOrderNotFound, code)
		}
		return "", err
	}

	if err := s.cache.SetOrderStatus(ctx, code, order.PaymentStatus); err != nil {
		s.logger.Warn("Order status cache write failed", zap.Error(err))
	}

	return order.PaymentStatus, nil
}
