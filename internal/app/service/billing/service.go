package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fstopworks/darkroom/internal/app/service/credits"
	"github.com/fstopworks/darkroom/internal/models"
	"github.com/fstopworks/darkroom/pkg/config"
	"github.com/fstopworks/darkroom/pkg/logctx"
	"github.com/fstopworks/darkroom/pkg/tool"
	"github.com/fstopworks/darkroom/pkg/types"
)

// StripeAPI is the slice of the Stripe SDK the reconciliation logic calls.
type StripeAPI interface {
	GetCheckoutSession(ctx context.Context, sessionID string) (*stripe.CheckoutSession, error)
	ListActiveSubscriptions(ctx context.Context, customerID string) ([]*stripe.Subscription, error)
	CreateCustomer(ctx context.Context, userID, email string) (*stripe.Customer, error)
	CreateCheckoutSession(ctx context.Context, customerID, priceID, successURL, cancelURL string) (*stripe.CheckoutSession, error)
}

// Service reconciles Stripe events into the ledger. Every path through it
// is idempotent: orders are keyed by checkout session id, subscription
// snapshots are upserted by customer id, and credit grants are fenced by
// the ledger's unique reference index. Delivery order across events for the
// same customer carries no guarantees, so correctness rests entirely on
// those fences.
type Service struct {
	cfg     *config.Config
	db      *gorm.DB
	log     *zap.SugaredLogger
	credits *credits.Service
	api     StripeAPI
}

func NewService(cfg *config.Config, db *gorm.DB, log *zap.SugaredLogger, creditsSvc *credits.Service, api StripeAPI) *Service {
	return &Service{cfg: cfg, db: db, log: log, credits: creditsSvc, api: api}
}

// VerifyWebhook checks the provider signature over the exact raw body. Any
// re-serialization before this point would invalidate the signature.
func (s *Service) VerifyWebhook(payload []byte, signature string) (stripe.Event, error) {
	event, err := webhook.ConstructEvent(payload, signature, s.cfg.Stripe.WebhookSecret)
	if err != nil {
		return stripe.Event{}, fmt.Errorf("failed to verify webhook signature: %w", err)
	}
	return event, nil
}

// ProcessEvent applies one verified event to the ledger. Unrecognized event
// types are ignored. payment_intent.succeeded is ignored outright: the
// one-time flow is reconciled via checkout.session.completed and counting
// both would double-grant.
func (s *Service) ProcessEvent(ctx context.Context, event stripe.Event) error {
	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		return s.handleCheckoutSessionCompleted(ctx, event)
	case stripe.EventTypeInvoicePaid:
		return s.handleInvoicePaid(ctx, event)
	case stripe.EventTypePaymentIntentSucceeded:
		return nil
	default:
		return nil
	}
}

func (s *Service) handleCheckoutSessionCompleted(ctx context.Context, event stripe.Event) error {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return fmt.Errorf("failed to parse checkout session: %w", err)
	}
	if sess.Customer == nil {
		logctx.FromCtx(ctx, s.log).Warnw("checkout session without customer, ignoring", "session_id", sess.ID)
		return nil
	}

	switch sess.Mode {
	case stripe.CheckoutSessionModeSubscription:
		if err := s.resyncSubscription(ctx, sess.Customer.ID); err != nil {
			return err
		}
		// Subscription grants are keyed by the event id: a given invoice can
		// surface through both this event and invoice.paid, each with its
		// own id, but a redelivered event carries the same one.
		priceID, err := s.resolveSubscriptionPrice(ctx, &sess)
		if err != nil {
			return err
		}
		return s.grantCredits(ctx, sess.Customer.ID, priceID, event.ID)

	case stripe.CheckoutSessionModePayment:
		if sess.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
			logctx.FromCtx(ctx, s.log).Infow("checkout session not paid, ignoring",
				"session_id", sess.ID, "payment_status", sess.PaymentStatus)
			return nil
		}
		inserted, err := s.recordOrder(ctx, &sess)
		if err != nil {
			// No order row means no grant.
			return fmt.Errorf("failed to record order: %w", err)
		}
		if !inserted {
			logctx.FromCtx(ctx, s.log).Infow("order already recorded", "session_id", sess.ID)
		}

		// The webhook payload's line items are usually absent; re-fetch the
		// session expanded to resolve what was bought.
		full, err := s.api.GetCheckoutSession(ctx, sess.ID)
		if err != nil {
			return err
		}
		if full.LineItems == nil || len(full.LineItems.Data) == 0 || full.LineItems.Data[0].Price == nil {
			logctx.FromCtx(ctx, s.log).Warnw("checkout session has no line items", "session_id", sess.ID)
			return nil
		}
		return s.grantCredits(ctx, sess.Customer.ID, full.LineItems.Data[0].Price.ID, sess.ID)

	default:
		return nil
	}
}

func (s *Service) handleInvoicePaid(ctx context.Context, event stripe.Event) error {
	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		return fmt.Errorf("failed to parse invoice: %w", err)
	}
	if invoice.Customer == nil {
		logctx.FromCtx(ctx, s.log).Warnw("invoice without customer, ignoring", "invoice_id", invoice.ID)
		return nil
	}

	if err := s.resyncSubscription(ctx, invoice.Customer.ID); err != nil {
		return err
	}

	var priceID string
	if invoice.Lines != nil && len(invoice.Lines.Data) > 0 && invoice.Lines.Data[0].Price != nil {
		priceID = invoice.Lines.Data[0].Price.ID
	} else {
		subs, err := s.api.ListActiveSubscriptions(ctx, invoice.Customer.ID)
		if err != nil {
			return err
		}
		if len(subs) > 0 && subs[0].Items != nil && len(subs[0].Items.Data) > 0 && subs[0].Items.Data[0].Price != nil {
			priceID = subs[0].Items.Data[0].Price.ID
		}
	}
	if priceID == "" {
		logctx.FromCtx(ctx, s.log).Warnw("could not resolve invoice price", "invoice_id", invoice.ID)
		return nil
	}

	return s.grantCredits(ctx, invoice.Customer.ID, priceID, event.ID)
}

func (s *Service) resolveSubscriptionPrice(ctx context.Context, sess *stripe.CheckoutSession) (string, error) {
	if sess.LineItems != nil && len(sess.LineItems.Data) > 0 && sess.LineItems.Data[0].Price != nil {
		return sess.LineItems.Data[0].Price.ID, nil
	}
	subs, err := s.api.ListActiveSubscriptions(ctx, sess.Customer.ID)
	if err != nil {
		return "", err
	}
	if len(subs) > 0 && subs[0].Items != nil && len(subs[0].Items.Data) > 0 && subs[0].Items.Data[0].Price != nil {
		return subs[0].Items.Data[0].Price.ID, nil
	}
	return "", nil
}

// recordOrder inserts the one-row-per-session order record. Returns false
// when the session was already recorded by an earlier delivery.
func (s *Service) recordOrder(ctx context.Context, sess *stripe.CheckoutSession) (bool, error) {
	order := models.StripeOrder{
		ID:                tool.GenerateUUIDV7(),
		CheckoutSessionID: sess.ID,
		CustomerID:        sess.Customer.ID,
		AmountSubtotal:    sess.AmountSubtotal,
		AmountTotal:       sess.AmountTotal,
		Currency:          string(sess.Currency),
		PaymentStatus:     string(sess.PaymentStatus),
		Status:            "completed",
	}
	if sess.PaymentIntent != nil {
		order.PaymentIntentID = sess.PaymentIntent.ID
	}

	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "checkout_session_id"}}, DoNothing: true}).
		Create(&order)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// resyncSubscription overwrites the mirrored snapshot with whatever Stripe
// currently reports for the customer.
func (s *Service) resyncSubscription(ctx context.Context, customerID string) error {
	subs, err := s.api.ListActiveSubscriptions(ctx, customerID)
	if err != nil {
		return fmt.Errorf("failed to fetch subscriptions: %w", err)
	}

	snapshot := models.StripeSubscription{
		ID:         tool.GenerateUUIDV7(),
		CustomerID: customerID,
		Status:     "canceled",
	}
	if len(subs) > 0 {
		sub := subs[0]
		snapshot.SubscriptionID = sub.ID
		snapshot.Status = string(sub.Status)
		snapshot.CancelAtPeriodEnd = sub.CancelAtPeriodEnd
		if sub.CurrentPeriodStart > 0 {
			t := time.Unix(sub.CurrentPeriodStart, 0).UTC()
			snapshot.CurrentPeriodStart = &t
		}
		if sub.CurrentPeriodEnd > 0 {
			t := time.Unix(sub.CurrentPeriodEnd, 0).UTC()
			snapshot.CurrentPeriodEnd = &t
		}
		if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
			snapshot.PriceID = sub.Items.Data[0].Price.ID
		}
		if sub.DefaultPaymentMethod != nil && sub.DefaultPaymentMethod.Card != nil {
			snapshot.PaymentMethodBrand = string(sub.DefaultPaymentMethod.Card.Brand)
			snapshot.PaymentMethodLast4 = sub.DefaultPaymentMethod.Card.Last4
		}
	}

	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "customer_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"subscription_id", "price_id", "current_period_start", "current_period_end",
				"cancel_at_period_end", "payment_method_brand", "payment_method_last4", "status", "updated_at",
			}),
		}).
		Create(&snapshot).Error
	if err != nil {
		return fmt.Errorf("failed to upsert subscription snapshot: %w", err)
	}
	return nil
}

// grantCredits is the shared grant subroutine for both checkout modes.
// Unknown prices and unmapped customers are logged no-ops; a replayed
// eventRef stops at the ledger fence.
func (s *Service) grantCredits(ctx context.Context, customerID, priceID, eventRef string) error {
	pack := s.cfg.GetCreditPackByPriceID(priceID)
	if pack == nil {
		logctx.FromCtx(ctx, s.log).Warnw("no credit pack for price, skipping grant",
			"price_id", priceID, "event_ref", eventRef)
		return nil
	}

	var customer models.StripeCustomer
	err := s.db.WithContext(ctx).Where("customer_id = ?", customerID).First(&customer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		logctx.FromCtx(ctx, s.log).Errorw("no user mapped to stripe customer, cannot grant",
			"customer_id", customerID, "event_ref", eventRef)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to resolve customer mapping: %w", err)
	}

	_, err = s.credits.Grant(ctx, credits.GrantParams{
		UserID:      customer.UserID,
		Credits:     pack.Credits,
		Type:        types.CreditTransactionTypeStripePurchase,
		Description: models.StripeGrantDescription(eventRef),
	})
	if errors.Is(err, credits.ErrAlreadyGranted) {
		logctx.FromCtx(ctx, s.log).Infow("grant already applied", "event_ref", eventRef)
		return nil
	}
	return err
}
