package models

import "time"

// StripeOrder records a completed one-time payment. One row per checkout
// session; the unique index on checkout_session_id is the insert-time
// idempotency key. Rows are immutable once inserted.
type StripeOrder struct {
	ID                string    `gorm:"column:id;primary_key;type:uuid" json:"id"`
	CheckoutSessionID string    `gorm:"column:checkout_session_id;type:varchar(128);not null;uniqueIndex" json:"checkout_session_id"`
	PaymentIntentID   string    `gorm:"column:payment_intent_id;type:varchar(128)" json:"payment_intent_id"`
	CustomerID        string    `gorm:"column:customer_id;type:varchar(64);not null" json:"customer_id"`
	AmountSubtotal    int64     `gorm:"column:amount_subtotal;type:bigint;not null" json:"amount_subtotal"`
	AmountTotal       int64     `gorm:"column:amount_total;type:bigint;not null" json:"amount_total"`
	Currency          string    `gorm:"column:currency;type:varchar(8);not null" json:"currency"`
	PaymentStatus     string    `gorm:"column:payment_status;type:varchar(32);not null" json:"payment_status"`
	Status            string    `gorm:"column:status;type:varchar(32);not null" json:"status"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func (StripeOrder) TableName() string {
	return "stripe_orders"
}
