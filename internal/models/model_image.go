package models

import "time"

// Image is a purchasable item inside a collection. PriceCredits is the
// number of credits a storefront download costs.
type Image struct {
	ID           string    `gorm:"column:id;primary_key;type:uuid" json:"id"`
	CollectionID string    `gorm:"column:collection_id;type:uuid;not null;index" json:"collection_id"`
	Title        string    `gorm:"column:title;type:varchar(255);not null" json:"title"`
	StoragePath  string    `gorm:"column:storage_path;type:varchar(512);not null" json:"storage_path"`
	PriceCredits int64     `gorm:"column:price_credits;type:bigint;not null;default:1" json:"price_credits"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (Image) TableName() string {
	return "images"
}
