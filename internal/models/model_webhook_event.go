package models

import (
	"time"

	"gorm.io/datatypes"
)

type WebhookEventStatus string

const (
	WebhookEventStatusReceived  WebhookEventStatus = "received"
	WebhookEventStatusProcessed WebhookEventStatus = "processed"
	WebhookEventStatusFailed    WebhookEventStatus = "failed"
)

// WebhookEvent is a durably queued Stripe event. The handler persists the
// verified event before acknowledging it, so a crash between the 200 and
// processing loses nothing; the consumer re-picks received/failed rows.
//
// The Stripe event id is the primary key, which makes redelivered events a
// single row.
type WebhookEvent struct {
	ID          string             `gorm:"column:id;primary_key;type:varchar(64)" json:"id"`
	Type        string             `gorm:"column:type;type:varchar(128);not null" json:"type"`
	Payload     datatypes.JSON     `gorm:"column:payload;type:jsonb;not null" json:"payload"`
	Status      WebhookEventStatus `gorm:"column:status;type:varchar(32);not null;index" json:"status"`
	Attempts    int                `gorm:"column:attempts;not null;default:0" json:"attempts"`
	LastError   *string            `gorm:"column:last_error;type:text" json:"last_error"`
	ProcessedAt *time.Time         `gorm:"column:processed_at;default:null" json:"processed_at"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

func (WebhookEvent) TableName() string {
	return "webhook_events"
}
