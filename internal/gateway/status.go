package gateway

import "paynotify/internal/models"

// Gateway transaction states and related constants as they appear on the wire.
const (
	TxCapture    = "capture"
	TxSettlement = "settlement"
	TxPending    = "pending"
	TxDeny       = "deny"
	TxExpire     = "expire"
	TxCancel     = "cancel"

	PaymentTypeCreditCard = "credit_card"
	FraudChallenge        = "challenge"
)

// StatusResolution is the outcome of mapping a gateway transaction state.
// Mapped is false when the gateway sent a state this version does not know;
// that is not an error — the payment is still recorded, only the order
// mutation is skipped.
type StatusResolution struct {
	Status string
	Mapped bool
}

// ResolveStatus maps a gateway (transaction_status, payment_type,
// fraud_status) triple onto the merchant payment status. Only capture
// branches on payment type: a credit card capture is either challenged by
// the gateway's fraud detection or successful, while captures for any other
// payment type stay unmapped.
func ResolveStatus(transactionStatus, paymentType, fraudStatus string) StatusResolution {
	switch transactionStatus {
	case TxCapture:
		if paymentType != PaymentTypeCreditCard {
			return StatusResolution{}
		}
		if fraudStatus == FraudChallenge {
			return StatusResolution{Status: models.PaymentStatusChallenge, Mapped: true}
		}
		return StatusResolution{Status: models.PaymentStatusSuccess, Mapped: true}
	case TxSettlement:
		return StatusResolution{Status: models.PaymentStatusSettlement, Mapped: true}
	case TxPending:
		return StatusResolution{Status: models.PaymentStatusPending, Mapped: true}
	case TxDeny:
		return StatusResolution{Status: models.PaymentStatusDeny, Mapped: true}
	case TxExpire:
		return StatusResolution{Status: models.PaymentStatusExpire, Mapped: true}
	case TxCancel:
		return StatusResolution{Status: models.PaymentStatusCancel, Mapped: true}
	default:
		return StatusResolution{}
	}
}

// AdvancesOrder reports whether the resolved status should move the order to
// PAID and CONFIRMED. Pending, challenge, deny, expire and cancel are
// recorded for audit only; that asymmetry is business policy.
func (r StatusResolution) AdvancesOrder() bool {
	if !r.Mapped {
		return false
	}
	return r.Status == models.PaymentStatusSuccess || r.Status == models.PaymentStatusSettlement
}
