package models

import "time"

// StripeSubscription mirrors the latest subscription state reported by
// Stripe for one customer. Upserted keyed by customer_id; it always
// reflects the most recent provider snapshot, never an event history.
type StripeSubscription struct {
	ID                 string     `gorm:"column:id;primary_key;type:uuid" json:"id"`
	CustomerID         string     `gorm:"column:customer_id;type:varchar(64);not null;uniqueIndex" json:"customer_id"`
	SubscriptionID     string     `gorm:"column:subscription_id;type:varchar(64)" json:"subscription_id"`
	PriceID            string     `gorm:"column:price_id;type:varchar(64)" json:"price_id"`
	CurrentPeriodStart *time.Time `gorm:"column:current_period_start;default:null" json:"current_period_start"`
	CurrentPeriodEnd   *time.Time `gorm:"column:current_period_end;default:null" json:"current_period_end"`
	CancelAtPeriodEnd  bool       `gorm:"column:cancel_at_period_end;not null;default:false" json:"cancel_at_period_end"`
	PaymentMethodBrand string     `gorm:"column:payment_method_brand;type:varchar(32)" json:"payment_method_brand"`
	PaymentMethodLast4 string     `gorm:"column:payment_method_last4;type:varchar(8)" json:"payment_method_last4"`
	Status             string     `gorm:"column:status;type:varchar(32);not null" json:"status"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func (StripeSubscription) TableName() string {
	return "stripe_subscriptions"
}
