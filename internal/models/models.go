package models

import (
	"database/sql"
	"time"
)

// Order represents a customer order awaiting payment
type Order struct {
	ID            int64     `db:"id" json:"id"`
	Code          string    `db:"code" json:"code"`
	UserID        int64     `db:"user_id" json:"user_id"`
	TotalAmount   int64     `db:"total_amount" json:"total_amount"`
	PaymentStatus string    `db:"payment_status" json:"payment_status"`
	Status        string    `db:"status" json:"status"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// Payment represents one recorded gateway notification. Rows are append-only:
// they are never updated after insertion, so the raw payload can be replayed
// later to reconstruct the decision.
type Payment struct {
	ID          int64          `db:"id" json:"id"`
	OrderID     int64          `db:"order_id" json:"order_id"`
	Number      string         `db:"number" json:"number"`
	Amount      string         `db:"amount" json:"amount"`
	Method      string         `db:"method" json:"method"`
	Status      sql.NullString `db:"status" json:"status"`
	Token       string         `db:"token" json:"token"`
	Payloads    []byte         `db:"payloads" json:"-"`
	PaymentType string         `db:"payment_type" json:"payment_type"`
	VaNumber    sql.NullString `db:"va_number" json:"va_number"`
	VendorName  sql.NullString `db:"vendor_name" json:"vendor_name"`
	BillerCode  sql.NullString `db:"biller_code" json:"biller_code"`
	BillKey     sql.NullString `db:"bill_key" json:"bill_key"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
}

// Order payment statuses
const (
	OrderUnpaid = "UNPAID"
	OrderPaid   = "PAID"
)

// Order lifecycle statuses
const (
	OrderStatusCreated   = "CREATED"
	OrderStatusConfirmed = "CONFIRMED"
	OrderStatusCancelled = "CANCELLED"
)

// Payment statuses as mapped from gateway transaction states
const (
	PaymentStatusChallenge  = "CHALLENGE"
	PaymentStatusSuccess    = "SUCCESS"
	PaymentStatusSettlement = "SETTLEMENT"
	PaymentStatusPending    = "PENDING"
	PaymentStatusDeny       = "DENY"
	PaymentStatusExpire     = "EXPIRE"
	PaymentStatusCancel     = "CANCEL"
)

// PaymentMethod is the fixed method recorded on every payment row; the
// pipeline only ever talks to the one gateway.
const PaymentMethod = "midtrans"

// IsPaid reports whether the order has already had a payment applied.
func (o *Order) IsPaid() bool {
	return o.PaymentStatus == OrderPaid
}
