package webhookqueue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v81"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/fstopworks/darkroom/internal/models"
)

type recordingProcessor struct {
	events []stripe.Event
	err    error
}

func (p *recordingProcessor) ProcessEvent(_ context.Context, event stripe.Event) error {
	p.events = append(p.events, event)
	return p.err
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.WebhookEvent{}))
	return db
}

func testEvent(id string) (stripe.Event, []byte) {
	payload := []byte(fmt.Sprintf(`{"id":%q,"type":"checkout.session.completed","data":{"object":{}}}`, id))
	return stripe.Event{ID: id, Type: stripe.EventTypeCheckoutSessionCompleted}, payload
}

func TestEnqueue_RedeliveryCollapsesToOneRow(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, zap.NewNop().Sugar(), &recordingProcessor{})
	event, payload := testEvent("evt_1")

	require.NoError(t, svc.Enqueue(context.Background(), event, payload))
	require.NoError(t, svc.Enqueue(context.Background(), event, payload))

	var count int64
	require.NoError(t, db.Model(&models.WebhookEvent{}).Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestProcessPending_MarksProcessed(t *testing.T) {
	db := newTestDB(t)
	proc := &recordingProcessor{}
	svc := NewService(db, zap.NewNop().Sugar(), proc)
	event, payload := testEvent("evt_1")
	require.NoError(t, svc.Enqueue(context.Background(), event, payload))

	require.Equal(t, 1, svc.ProcessPending(context.Background()))
	require.Len(t, proc.events, 1)
	require.Equal(t, "evt_1", proc.events[0].ID)

	var row models.WebhookEvent
	require.NoError(t, db.Where("id = ?", "evt_1").First(&row).Error)
	require.Equal(t, models.WebhookEventStatusProcessed, row.Status)
	require.Equal(t, 1, row.Attempts)
	require.NotNil(t, row.ProcessedAt)
	require.Nil(t, row.LastError)

	// A processed row is never re-picked.
	require.Equal(t, 0, svc.ProcessPending(context.Background()))
	require.Len(t, proc.events, 1)
}

func TestProcessPending_RetriesFailedUntilMaxAttempts(t *testing.T) {
	db := newTestDB(t)
	proc := &recordingProcessor{err: errors.New("downstream unavailable")}
	svc := NewService(db, zap.NewNop().Sugar(), proc)
	event, payload := testEvent("evt_1")
	require.NoError(t, svc.Enqueue(context.Background(), event, payload))

	for i := 0; i < maxAttempts; i++ {
		require.Equal(t, 1, svc.ProcessPending(context.Background()))
	}
	// Attempts are exhausted; the row is parked as failed.
	require.Equal(t, 0, svc.ProcessPending(context.Background()))

	var row models.WebhookEvent
	require.NoError(t, db.Where("id = ?", "evt_1").First(&row).Error)
	require.Equal(t, models.WebhookEventStatusFailed, row.Status)
	require.Equal(t, maxAttempts, row.Attempts)
	require.NotNil(t, row.LastError)
	require.Equal(t, "downstream unavailable", *row.LastError)
}

func TestProcessPending_RecoversAfterTransientFailure(t *testing.T) {
	db := newTestDB(t)
	proc := &recordingProcessor{err: errors.New("downstream unavailable")}
	svc := NewService(db, zap.NewNop().Sugar(), proc)
	event, payload := testEvent("evt_1")
	require.NoError(t, svc.Enqueue(context.Background(), event, payload))

	require.Equal(t, 1, svc.ProcessPending(context.Background()))
	proc.err = nil
	require.Equal(t, 1, svc.ProcessPending(context.Background()))

	var row models.WebhookEvent
	require.NoError(t, db.Where("id = ?", "evt_1").First(&row).Error)
	require.Equal(t, models.WebhookEventStatusProcessed, row.Status)
	require.Equal(t, 2, row.Attempts)
	require.Nil(t, row.LastError)
}

func TestProcessPending_UnparseablePayloadFails(t *testing.T) {
	db := newTestDB(t)
	proc := &recordingProcessor{}
	svc := NewService(db, zap.NewNop().Sugar(), proc)
	event, _ := testEvent("evt_1")
	require.NoError(t, svc.Enqueue(context.Background(), event, []byte(`{"id":`)))

	require.Equal(t, 1, svc.ProcessPending(context.Background()))
	require.Empty(t, proc.events)

	var row models.WebhookEvent
	require.NoError(t, db.Where("id = ?", "evt_1").First(&row).Error)
	require.Equal(t, models.WebhookEventStatusFailed, row.Status)
}
