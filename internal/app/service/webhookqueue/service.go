package webhookqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/samber/lo"
	"github.com/stripe/stripe-go/v81"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fstopworks/darkroom/internal/models"
)

const (
	pollInterval = 2 * time.Second
	batchSize    = 10
	maxAttempts  = 5
)

// Processor applies one verified event to the ledger.
type Processor interface {
	ProcessEvent(ctx context.Context, event stripe.Event) error
}

// Service is the durable side of ack-then-process: the webhook handler
// persists each verified event before acknowledging it, and the consumer
// loop applies events with at-least-once delivery. A crash after the 200
// loses nothing; received and retryable failed rows are re-picked on the
// next poll. Downstream idempotency fences absorb the redeliveries this
// implies.
type Service struct {
	db   *gorm.DB
	log  *zap.SugaredLogger
	proc Processor
}

func NewService(db *gorm.DB, log *zap.SugaredLogger, proc Processor) *Service {
	return &Service{db: db, log: log, proc: proc}
}

// Enqueue persists a verified event. Redelivered events (same Stripe event
// id) collapse into the existing row.
func (s *Service) Enqueue(ctx context.Context, event stripe.Event, payload []byte) error {
	row := models.WebhookEvent{
		ID:      event.ID,
		Type:    string(event.Type),
		Payload: datatypes.JSON(payload),
		Status:  models.WebhookEventStatusReceived,
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to enqueue webhook event: %w", err)
	}
	return nil
}

// Run polls for pending events until ctx is canceled.
func (s *Service) Run(ctx context.Context) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.ProcessPending(ctx); n > 0 {
				s.log.Infow("webhook events processed", "count", n)
			}
		}
	}
}

// ProcessPending drains one batch of pending events and returns how many
// were attempted.
func (s *Service) ProcessPending(ctx context.Context) int {
	var rows []*models.WebhookEvent
	err := s.db.WithContext(ctx).
		Where("status = ? OR (status = ? AND attempts < ?)",
			models.WebhookEventStatusReceived, models.WebhookEventStatusFailed, maxAttempts).
		Order("created_at ASC").
		Limit(batchSize).
		Find(&rows).Error
	if err != nil {
		s.log.Errorw("failed to fetch pending webhook events", "error", err.Error())
		return 0
	}

	for _, row := range rows {
		s.processOne(ctx, row)
	}
	return len(rows)
}

func (s *Service) processOne(ctx context.Context, row *models.WebhookEvent) {
	var event stripe.Event
	updates := map[string]any{
		"attempts": gorm.Expr("attempts + 1"),
	}

	err := json.Unmarshal(row.Payload, &event)
	if err == nil {
		err = s.proc.ProcessEvent(ctx, event)
	}

	if err != nil {
		// No caller is listening by now; the failure surfaces via logs and
		// the failed row, never via the wire.
		s.log.Errorw("webhook event processing failed",
			"event_id", row.ID, "type", row.Type, "attempt", row.Attempts+1, "error", err.Error())
		updates["status"] = models.WebhookEventStatusFailed
		updates["last_error"] = lo.ToPtr(err.Error())
	} else {
		updates["status"] = models.WebhookEventStatusProcessed
		updates["processed_at"] = lo.ToPtr(time.Now().UTC())
		updates["last_error"] = nil
	}

	if err := s.db.WithContext(ctx).
		Model(&models.WebhookEvent{}).
		Where("id = ?", row.ID).
		Updates(updates).Error; err != nil {
		s.log.Errorw("failed to update webhook event row", "event_id", row.ID, "error", err.Error())
	}
}
