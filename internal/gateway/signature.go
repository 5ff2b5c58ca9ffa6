package gateway

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"

	"paynotify/config"
	"paynotify/internal/util"

	"go.uber.org/zap"
)

// SignatureVerifier authenticates webhook payloads against the merchant's
// server key.
type SignatureVerifier struct {
	serverKey string
	logger    *zap.Logger
}

// NewSignatureVerifier creates a verifier bound to the gateway credentials.
func NewSignatureVerifier(cfg config.GatewayConfig) *SignatureVerifier {
	return &SignatureVerifier{
		serverKey: cfg.ServerKey,
		logger:    util.GetLogger(),
	}
}

// Verify recomputes the notification signature and compares it to the one
// the gateway sent. The gateway contract is
// sha512(order_id + status_code + gross_amount + serverKey) over the literal
// string values, no separators; field order and formatting must not change.
func (v *SignatureVerifier) Verify(n *Notification) bool {
	sum := sha512.Sum512([]byte(n.OrderID + n.StatusCode + n.GrossAmount + v.serverKey))
	computed := hex.EncodeToString(sum[:])

	// The server key itself is never logged.
	v.logger.Debug("Signature check",
		zap.String("order_id", n.OrderID),
		zap.String("computed", computed),
		zap.String("received", n.SignatureKey))

	return subtle.ConstantTimeCompare([]byte(computed), []byte(n.SignatureKey)) == 1
}
