package models

import (
	"time"
)

// Profile holds one user's commerce state. The id is the subject id issued
// by the identity provider, not a locally generated uuid.
type Profile struct {
	ID    string `gorm:"column:id;type:varchar(64);primary_key" json:"id"`
	Email string `gorm:"column:email;type:varchar(255)" json:"email"`
	// CreditBalance is mutated only through the credits service, always via
	// server-side atomic expressions.
	CreditBalance int64     `gorm:"column:credit_balance;type:bigint;not null;default:0" json:"credit_balance"`
	IsAdmin       bool      `gorm:"column:is_admin;not null;default:false" json:"is_admin"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (Profile) TableName() string {
	return "profiles"
}
