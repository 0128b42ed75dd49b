package models

import (
	"strings"
	"time"
)

// UnlockCode is a shareable access token for one collection.
//
// Codes are stored in canonical form (see NormalizeUnlockCode) so lookup is
// a plain unique-index match; the same normalization is applied at read
// time, which is what makes matching case-insensitive.
type UnlockCode struct {
	ID           string `gorm:"column:id;primary_key;type:uuid" json:"id"`
	Code         string `gorm:"column:code;type:varchar(64);not null;uniqueIndex" json:"code"`
	CollectionID string `gorm:"column:collection_id;type:uuid;not null" json:"collection_id"`
	// MaxUses of 0 means unlimited.
	MaxUses   int        `gorm:"column:max_uses;not null;default:0" json:"max_uses"`
	TimesUsed int        `gorm:"column:times_used;not null;default:0" json:"times_used"`
	IsActive  bool       `gorm:"column:is_active;not null;default:true" json:"is_active"`
	ExpiresAt *time.Time `gorm:"column:expires_at;default:null" json:"expires_at"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (UnlockCode) TableName() string {
	return "unlock_codes"
}

func (code *UnlockCode) Exhausted() bool {
	return code.MaxUses > 0 && code.TimesUsed >= code.MaxUses
}

func (code *UnlockCode) Expired(now time.Time) bool {
	return code.ExpiresAt != nil && !code.ExpiresAt.After(now)
}

// NormalizeUnlockCode converts a user-supplied code to its canonical form:
// trimmed and uppercased. Applied at write time and read time alike.
func NormalizeUnlockCode(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}
