package models

import "time"

// StripeCustomer maps an internal user to their Stripe customer id.
type StripeCustomer struct {
	ID         string    `gorm:"column:id;primary_key;type:uuid" json:"id"`
	UserID     string    `gorm:"column:user_id;type:varchar(64);not null;uniqueIndex" json:"user_id"`
	CustomerID string    `gorm:"column:customer_id;type:varchar(64);not null;uniqueIndex" json:"customer_id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (StripeCustomer) TableName() string {
	return "stripe_customers"
}
