package models

import "time"

// Collection is a published set of images in the storefront catalog.
type Collection struct {
	ID          string    `gorm:"column:id;primary_key;type:uuid" json:"id"`
	Name        string    `gorm:"column:name;type:varchar(255);not null" json:"name"`
	Slug        string    `gorm:"column:slug;type:varchar(255);not null;uniqueIndex" json:"slug"`
	Description string    `gorm:"column:description;type:text" json:"description"`
	IsPublished bool      `gorm:"column:is_published;not null;default:false" json:"is_published"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Collection) TableName() string {
	return "collections"
}
