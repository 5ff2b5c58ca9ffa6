package models

import "time"

// Event types
const (
	EventTypePaymentRecorded = "PAYMENT_RECORDED"
	EventTypeOrderConfirmed  = "ORDER_CONFIRMED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// PaymentRecordedEvent published after every notification that produced a
// payment row, mapped or not. Status is empty for unmapped gateway states.
type PaymentRecordedEvent struct {
	BaseEvent
	OrderCode     string `json:"order_code"`
	PaymentNumber string `json:"payment_number"`
	Status        string `json:"status"`
	Amount        string `json:"amount"`
	PaymentType   string `json:"payment_type"`
	PayloadBytes  int    `json:"payload_bytes"`
}

// OrderConfirmedEvent published when a notification advanced the order to
// PAID and CONFIRMED.
type OrderConfirmedEvent struct {
	BaseEvent
	OrderID       int64  `json:"order_id"`
	OrderCode     string `json:"order_code"`
	PaymentNumber string `json:"payment_number"`
	Amount        string `json:"amount"`
}
