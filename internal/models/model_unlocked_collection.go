package models

import "time"

// UnlockedCollection grants a user access to a collection. The unique index
// on (user_id, collection_id) caps grants at one per user per collection;
// rows are created once and never updated.
type UnlockedCollection struct {
	ID           string    `gorm:"column:id;primary_key;type:uuid" json:"id"`
	UserID       string    `gorm:"column:user_id;type:varchar(64);not null;uniqueIndex:unique_user_collection,priority:1" json:"user_id"`
	CollectionID string    `gorm:"column:collection_id;type:uuid;not null;uniqueIndex:unique_user_collection,priority:2" json:"collection_id"`
	UnlockCodeID string    `gorm:"column:unlock_code_id;type:uuid;not null" json:"unlock_code_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (UnlockedCollection) TableName() string {
	return "unlocked_collections"
}
