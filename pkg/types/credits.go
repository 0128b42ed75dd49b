package types

type CreditTransactionType string

const (
	// CreditTransactionTypePurchase covers storefront spends and manual grants.
	CreditTransactionTypePurchase CreditTransactionType = "purchase"
	// CreditTransactionTypeStripePurchase is a credit grant reconciled from a
	// Stripe payment event.
	CreditTransactionTypeStripePurchase CreditTransactionType = "stripe_purchase"
)

// CreditPack maps one Stripe price to the number of credits it buys.
// The set of packs is configuration data kept in sync with the Stripe
// product catalog, not logic.
type CreditPack struct {
	PriceID string `json:"price_id" mapstructure:"price_id"`
	Credits int64  `json:"credits" mapstructure:"credits"`
	Label   string `json:"label" mapstructure:"label"`
}
