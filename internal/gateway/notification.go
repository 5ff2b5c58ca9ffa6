package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrMalformedPayload means the request body was not valid JSON.
	ErrMalformedPayload = errors.New("malformed notification payload")
	// ErrMissingField means a field required for signature verification was absent.
	ErrMissingField = errors.New("required field missing")
)

// VANumber is one virtual-account entry on bank-transfer notifications.
type VANumber struct {
	Bank     string `json:"bank"`
	VANumber string `json:"va_number"`
}

// Notification is the parsed gateway webhook payload. Raw holds the body
// exactly as received; the signature is computed over the literal string
// values, so none of these fields may be reformatted.
type Notification struct {
	OrderID           string     `json:"order_id"`
	StatusCode        string     `json:"status_code"`
	GrossAmount       string     `json:"gross_amount"`
	SignatureKey      string     `json:"signature_key"`
	TransactionStatus string     `json:"transaction_status"`
	TransactionID     string     `json:"transaction_id"`
	PaymentType       string     `json:"payment_type"`
	FraudStatus       string     `json:"fraud_status"`
	VANumbers         []VANumber `json:"va_numbers"`
	BillerCode        string     `json:"biller_code"`
	BillKey           string     `json:"bill_key"`

	Raw []byte `json:"-"`
}

// ParseNotification decodes a raw webhook body into a Notification and
// checks the fields needed before signature verification can run. Channel
// dependent fields (fraud_status, va_numbers, biller_code, bill_key) are
// optional and stay zero-valued when absent.
func ParseNotification(body []byte) (*Notification, error) {
	var n Notification
	if err := json.Unmarshal(body, &n); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	for _, f := range []struct {
		name  string
		value string
	}{
		{"order_id", n.OrderID},
		{"status_code", n.StatusCode},
		{"gross_amount", n.GrossAmount},
		{"signature_key", n.SignatureKey},
	} {
		if f.value == "" {
			return nil, fmt.Errorf("%w: %s", ErrMissingField, f.name)
		}
	}

	n.Raw = body
	return &n, nil
}

// VADetails returns the first virtual-account number and issuing bank, if
// the notification carried any.
func (n *Notification) VADetails() (vaNumber, bank string, ok bool) {
	if len(n.VANumbers) == 0 {
		return "", "", false
	}
	return n.VANumbers[0].VANumber, n.VANumbers[0].Bank, true
}
