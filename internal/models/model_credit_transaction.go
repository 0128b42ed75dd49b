package models

import (
	"fmt"
	"time"

	"github.com/fstopworks/darkroom/pkg/types"
)

// CreditTransaction is an append-only ledger entry. Rows are immutable once
// inserted.
//
// The composite unique index on (user_id, type, description) is the
// idempotency fence for webhook credit grants: a replayed event carries the
// same description and fails at insert time instead of racing past an
// application-level pre-check.
type CreditTransaction struct {
	ID     string `gorm:"column:id;primary_key;type:uuid;index:idx_ct_user_id_id,priority:2,sort:desc" json:"id"`
	UserID string `gorm:"column:user_id;type:varchar(64);not null;index:idx_ct_user_id_id,priority:1;uniqueIndex:unique_user_type_description,priority:1" json:"user_id"`
	// Amount is signed: positive for grants, negative for spends.
	Amount      int64                       `gorm:"column:amount;type:bigint;not null" json:"amount"`
	Type        types.CreditTransactionType `gorm:"column:type;type:varchar(64);not null;uniqueIndex:unique_user_type_description,priority:2" json:"type"`
	Description string                      `gorm:"column:description;type:varchar(255);not null;uniqueIndex:unique_user_type_description,priority:3" json:"description"`
	CreatedAt   time.Time                   `json:"created_at"`
	UpdatedAt   time.Time                   `json:"updated_at"`
}

func (CreditTransaction) TableName() string {
	return "credit_transactions"
}

// StripeGrantDescription builds the dedup key for a Stripe-reconciled grant.
// eventRef is the checkout session id for one-time payments and the event id
// for subscription invoices.
func StripeGrantDescription(eventRef string) string {
	return fmt.Sprintf("stripe:%s", eventRef)
}
