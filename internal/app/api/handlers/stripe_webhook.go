package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v81"
	"go.uber.org/zap"

	"github.com/fstopworks/darkroom/pkg/logctx"
)

// WebhookVerifier checks a provider signature over the raw request body.
type WebhookVerifier interface {
	VerifyWebhook(payload []byte, signature string) (stripe.Event, error)
}

// WebhookEnqueuer durably stores a verified event for background
// processing.
type WebhookEnqueuer interface {
	Enqueue(ctx context.Context, event stripe.Event, payload []byte) error
}

// @Summary      Stripe webhook
// @Description  Verifies the Stripe signature over the raw body, durably enqueues the event, and acknowledges immediately. Processing happens in the background consumer.
// @Tags         Webhook
// @Accept       json
// @Produce      json
// @Success      200  {object}  map[string]bool
// @Failure      400  {string}  string
// @Router       /api/v1/stripe/webhook [post]
func ApiStripeWebhook(verifier WebhookVerifier, queue WebhookEnqueuer, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodOptions:
			c.Status(http.StatusNoContent)
			return
		case http.MethodPost:
		default:
			c.String(http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		signature := c.GetHeader("Stripe-Signature")
		if signature == "" {
			c.String(http.StatusBadRequest, "missing stripe-signature header")
			return
		}

		// Signature verification must run against the exact bytes Stripe
		// sent; the body is never parsed before this point.
		payload, err := c.GetRawData()
		if err != nil {
			c.String(http.StatusBadRequest, "failed to read request body")
			return
		}

		event, err := verifier.VerifyWebhook(payload, signature)
		if err != nil {
			logctx.FromGin(c, log).Warnw("webhook signature verification failed", "error", err.Error())
			c.String(http.StatusBadRequest, "webhook signature verification failed")
			return
		}

		// Persist before acknowledging: Stripe's retry budget is time-bound,
		// and the consumer picks the event up from here even across a
		// restart.
		if err := queue.Enqueue(c.Request.Context(), event, payload); err != nil {
			logctx.FromGin(c, log).Errorw("failed to enqueue webhook event",
				"event_id", event.ID, "error", err.Error())
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record event"})
			return
		}

		logctx.FromGin(c, log).Infow("webhook event accepted",
			"event_id", event.ID, "type", event.Type)
		c.JSON(http.StatusOK, gin.H{"received": true})
	}
}

func RegisterStripeWebhookRoutes(r gin.IRouter, verifier WebhookVerifier, queue WebhookEnqueuer, log *zap.SugaredLogger) {
	r.Any("/webhook", ApiStripeWebhook(verifier, queue, log))
}
