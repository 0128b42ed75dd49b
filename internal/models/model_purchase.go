package models

import "time"

// Purchase records a storefront credit spend on a single image.
type Purchase struct {
	ID           string    `gorm:"column:id;primary_key;type:uuid;index:idx_purchase_user_id_id,priority:2,sort:desc" json:"id"`
	UserID       string    `gorm:"column:user_id;type:varchar(64);not null;index:idx_purchase_user_id_id,priority:1" json:"user_id"`
	ImageID      string    `gorm:"column:image_id;type:uuid;not null" json:"image_id"`
	CreditsSpent int64     `gorm:"column:credits_spent;type:bigint;not null" json:"credits_spent"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (Purchase) TableName() string {
	return "purchases"
}
