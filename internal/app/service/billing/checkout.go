package billing

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/fstopworks/darkroom/internal/models"
	"github.com/fstopworks/darkroom/pkg/logctx"
	"github.com/fstopworks/darkroom/pkg/tool"
)

var ErrUnknownCreditPack = errors.New("unknown credit pack")

// EnsureCustomer returns the user's Stripe customer mapping, creating the
// Stripe customer on first use.
func (s *Service) EnsureCustomer(ctx context.Context, profile *models.Profile) (*models.StripeCustomer, error) {
	var mapping models.StripeCustomer
	err := s.db.WithContext(ctx).Where("user_id = ?", profile.ID).First(&mapping).Error
	if err == nil {
		return &mapping, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to load customer mapping: %w", err)
	}

	cus, err := s.api.CreateCustomer(ctx, profile.ID, profile.Email)
	if err != nil {
		return nil, err
	}

	mapping = models.StripeCustomer{
		ID:         tool.GenerateUUIDV7(),
		UserID:     profile.ID,
		CustomerID: cus.ID,
	}
	if err := s.db.WithContext(ctx).Create(&mapping).Error; err != nil {
		return nil, fmt.Errorf("failed to save customer mapping: %w", err)
	}
	logctx.FromCtx(ctx, s.log).Infow("stripe customer created",
		"user_id", profile.ID, "customer_id", cus.ID)
	return &mapping, nil
}

// StartCheckout creates a payment-mode checkout session for a configured
// credit pack and returns the hosted checkout URL.
func (s *Service) StartCheckout(ctx context.Context, profile *models.Profile, priceID string) (sessionID, checkoutURL string, err error) {
	pack := s.cfg.GetCreditPackByPriceID(priceID)
	if pack == nil {
		return "", "", ErrUnknownCreditPack
	}

	mapping, err := s.EnsureCustomer(ctx, profile)
	if err != nil {
		return "", "", err
	}

	sess, err := s.api.CreateCheckoutSession(ctx, mapping.CustomerID, priceID,
		s.cfg.Stripe.SuccessURL, s.cfg.Stripe.CancelURL)
	if err != nil {
		return "", "", err
	}
	return sess.ID, sess.URL, nil
}
