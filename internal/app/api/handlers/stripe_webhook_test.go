package handlers

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"
	"go.uber.org/zap"
)

const testWebhookSecret = "whsec_test_secret"

// realVerifier runs the actual signature check so the test exercises the
// raw-body contract end to end.
type realVerifier struct{}

func (realVerifier) VerifyWebhook(payload []byte, signature string) (stripe.Event, error) {
	return webhook.ConstructEvent(payload, signature, testWebhookSecret)
}

type stubEnqueuer struct {
	events []stripe.Event
	err    error
}

func (s *stubEnqueuer) Enqueue(_ context.Context, event stripe.Event, _ []byte) error {
	s.events = append(s.events, event)
	return s.err
}

func webhookRouter(queue WebhookEnqueuer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterStripeWebhookRoutes(r.Group("/api/v1/stripe"), realVerifier{}, queue, zap.NewNop().Sugar())
	return r
}

func stripeSignature(payload []byte, secret string) string {
	now := time.Now()
	sig := webhook.ComputeSignature(now, payload, secret)
	return fmt.Sprintf("t=%d,v1=%s", now.Unix(), hex.EncodeToString(sig))
}

func webhookPayload(id string) []byte {
	return []byte(fmt.Sprintf(`{"id":%q,"object":"event","api_version":%q,"type":"checkout.session.completed","data":{"object":{}}}`,
		id, stripe.APIVersion))
}

func TestApiStripeWebhook_ValidEventIsAcked(t *testing.T) {
	queue := &stubEnqueuer{}
	r := webhookRouter(queue)
	payload := webhookPayload("evt_1")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/stripe/webhook", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", stripeSignature(payload, testWebhookSecret))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"received":true}`, w.Body.String())
	require.Len(t, queue.events, 1)
	require.Equal(t, "evt_1", queue.events[0].ID)
}

func TestApiStripeWebhook_MissingSignature(t *testing.T) {
	queue := &stubEnqueuer{}
	r := webhookRouter(queue)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/stripe/webhook", bytes.NewReader(webhookPayload("evt_1")))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "missing stripe-signature header", w.Body.String())
	require.Empty(t, queue.events)
}

func TestApiStripeWebhook_TamperedBodyRejected(t *testing.T) {
	queue := &stubEnqueuer{}
	r := webhookRouter(queue)
	header := stripeSignature(webhookPayload("evt_1"), testWebhookSecret)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/stripe/webhook", bytes.NewReader(webhookPayload("evt_2")))
	req.Header.Set("Stripe-Signature", header)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Empty(t, queue.events)
}

func TestApiStripeWebhook_WrongSecretRejected(t *testing.T) {
	queue := &stubEnqueuer{}
	r := webhookRouter(queue)
	payload := webhookPayload("evt_1")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/stripe/webhook", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", stripeSignature(payload, "whsec_other"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Empty(t, queue.events)
}

func TestApiStripeWebhook_OptionsPreflight(t *testing.T) {
	r := webhookRouter(&stubEnqueuer{})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/stripe/webhook", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusNoContent, w.Code)
}

func TestApiStripeWebhook_GetNotAllowed(t *testing.T) {
	r := webhookRouter(&stubEnqueuer{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stripe/webhook", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestApiStripeWebhook_EnqueueFailureIs500(t *testing.T) {
	queue := &stubEnqueuer{err: fmt.Errorf("database unavailable")}
	r := webhookRouter(queue)
	payload := webhookPayload("evt_1")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/stripe/webhook", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", stripeSignature(payload, testWebhookSecret))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusInternalServerError, w.Code)
}
