package stripeapi

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/checkout/session"
	"github.com/stripe/stripe-go/v81/customer"
	"github.com/stripe/stripe-go/v81/subscription"
	"go.uber.org/fx"

	cfgpkg "github.com/fstopworks/darkroom/pkg/config"
)

// Client wraps the Stripe SDK calls the billing service needs. It exists so
// the reconciliation logic can be tested against a stub instead of the
// Stripe network API.
type Client struct{}

func New(cfg *cfgpkg.Config) *Client {
	stripe.Key = cfg.Stripe.SecretKey
	return &Client{}
}

// GetCheckoutSession re-fetches a checkout session with line items expanded.
// The webhook payload's own line items may be absent, so price resolution
// always goes through this call.
func (c *Client) GetCheckoutSession(ctx context.Context, sessionID string) (*stripe.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	params.AddExpand("line_items")
	params.AddExpand("line_items.data.price")

	sess, err := session.Get(sessionID, params)
	if err != nil {
		return nil, fmt.Errorf("failed to get checkout session %s: %w", sessionID, err)
	}
	return sess, nil
}

// ListActiveSubscriptions returns the customer's active subscriptions,
// newest first, with the default payment method expanded.
func (c *Client) ListActiveSubscriptions(ctx context.Context, customerID string) ([]*stripe.Subscription, error) {
	params := &stripe.SubscriptionListParams{
		Customer: stripe.String(customerID),
		Status:   stripe.String(string(stripe.SubscriptionStatusActive)),
	}
	params.Context = ctx
	params.AddExpand("data.default_payment_method")

	var subs []*stripe.Subscription
	iter := subscription.List(params)
	for iter.Next() {
		subs = append(subs, iter.Subscription())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to list subscriptions for %s: %w", customerID, err)
	}
	return subs, nil
}

// CreateCustomer creates a Stripe customer tagged with the internal user id.
func (c *Client) CreateCustomer(ctx context.Context, userID, email string) (*stripe.Customer, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(email),
		Metadata: map[string]string{
			"user_id": userID,
		},
	}
	params.Context = ctx

	cus, err := customer.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create customer: %w", err)
	}
	return cus, nil
}

// CreateCheckoutSession starts a payment-mode checkout for one credit pack.
func (c *Client) CreateCheckoutSession(ctx context.Context, customerID, priceID, successURL, cancelURL string) (*stripe.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Customer: stripe.String(customerID),
		Mode:     stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(successURL),
		CancelURL:  stripe.String(cancelURL),
	}
	params.Context = ctx

	sess, err := session.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}
	return sess, nil
}

var Module = fx.Options(
	fx.Provide(New),
)
