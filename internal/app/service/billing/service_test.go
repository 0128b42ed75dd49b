package billing

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/fstopworks/darkroom/internal/app/service/credits"
	"github.com/fstopworks/darkroom/internal/models"
	"github.com/fstopworks/darkroom/pkg/config"
	"github.com/fstopworks/darkroom/pkg/types"
)

const (
	testPriceID       = "price_1SxZ1nQsBFyT5mbBGOll9aOs"
	testWebhookSecret = "whsec_test_secret"
)

type stubStripeAPI struct {
	session          *stripe.CheckoutSession
	subs             []*stripe.Subscription
	err              error
	createdCustomers int
	newSession       *stripe.CheckoutSession
}

func (s *stubStripeAPI) GetCheckoutSession(_ context.Context, _ string) (*stripe.CheckoutSession, error) {
	return s.session, s.err
}

func (s *stubStripeAPI) ListActiveSubscriptions(_ context.Context, _ string) ([]*stripe.Subscription, error) {
	return s.subs, s.err
}

func (s *stubStripeAPI) CreateCustomer(_ context.Context, userID string, _ string) (*stripe.Customer, error) {
	s.createdCustomers++
	return &stripe.Customer{ID: "cus_" + userID}, s.err
}

func (s *stubStripeAPI) CreateCheckoutSession(_ context.Context, _ string, _ string, _ string, _ string) (*stripe.CheckoutSession, error) {
	return s.newSession, s.err
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Profile{},
		&models.CreditTransaction{},
		&models.StripeCustomer{},
		&models.StripeOrder{},
		&models.StripeSubscription{},
	))
	return db
}

func newTestService(t *testing.T, api StripeAPI) (*Service, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	cfg := &config.Config{
		Stripe: config.StripeConfig{WebhookSecret: testWebhookSecret},
		CreditPacks: []*types.CreditPack{
			{PriceID: testPriceID, Credits: 10, Label: "Starter pack"},
		},
	}
	log := zap.NewNop().Sugar()
	return NewService(cfg, db, log, credits.NewService(db, log), api), db
}

func seedCustomer(t *testing.T, db *gorm.DB, userID, customerID string, balance int64) {
	t.Helper()
	require.NoError(t, db.Create(&models.Profile{ID: userID, CreditBalance: balance}).Error)
	require.NoError(t, db.Create(&models.StripeCustomer{ID: userID + "-map", UserID: userID, CustomerID: customerID}).Error)
}

func checkoutCompletedEvent(id, sessionID, mode, paymentStatus string) stripe.Event {
	raw := fmt.Sprintf(`{"id":%q,"mode":%q,"payment_status":%q,"customer":{"id":"cus_1"},"amount_subtotal":999,"amount_total":999,"currency":"usd","payment_intent":{"id":"pi_1"}}`,
		sessionID, mode, paymentStatus)
	return stripe.Event{
		ID:   id,
		Type: stripe.EventTypeCheckoutSessionCompleted,
		Data: &stripe.EventData{Raw: []byte(raw)},
	}
}

func expandedSession(sessionID, priceID string) *stripe.CheckoutSession {
	return &stripe.CheckoutSession{
		ID: sessionID,
		LineItems: &stripe.LineItemList{
			Data: []*stripe.LineItem{{Price: &stripe.Price{ID: priceID}}},
		},
	}
}

func balanceOf(t *testing.T, db *gorm.DB, userID string) int64 {
	t.Helper()
	var profile models.Profile
	require.NoError(t, db.Where("id = ?", userID).First(&profile).Error)
	return profile.CreditBalance
}

func TestProcessEvent_PaymentCheckoutGrantsCredits(t *testing.T) {
	svc, db := newTestService(t, &stubStripeAPI{session: expandedSession("cs_test_a1", testPriceID)})
	seedCustomer(t, db, "user-1", "cus_1", 5)

	event := checkoutCompletedEvent("evt_1", "cs_test_a1", "payment", "paid")
	require.NoError(t, svc.ProcessEvent(context.Background(), event))

	require.Equal(t, int64(15), balanceOf(t, db, "user-1"))

	var order models.StripeOrder
	require.NoError(t, db.Where("checkout_session_id = ?", "cs_test_a1").First(&order).Error)
	require.Equal(t, "cus_1", order.CustomerID)
	require.Equal(t, "pi_1", order.PaymentIntentID)

	var txn models.CreditTransaction
	require.NoError(t, db.Where("user_id = ?", "user-1").First(&txn).Error)
	require.Equal(t, models.StripeGrantDescription("cs_test_a1"), txn.Description)
}

func TestProcessEvent_ReplayGrantsOnce(t *testing.T) {
	svc, db := newTestService(t, &stubStripeAPI{session: expandedSession("cs_test_a1", testPriceID)})
	seedCustomer(t, db, "user-1", "cus_1", 0)

	event := checkoutCompletedEvent("evt_1", "cs_test_a1", "payment", "paid")
	require.NoError(t, svc.ProcessEvent(context.Background(), event))
	require.NoError(t, svc.ProcessEvent(context.Background(), event))

	require.Equal(t, int64(10), balanceOf(t, db, "user-1"))

	var orders int64
	require.NoError(t, db.Model(&models.StripeOrder{}).Count(&orders).Error)
	require.Equal(t, int64(1), orders)
	var txns int64
	require.NoError(t, db.Model(&models.CreditTransaction{}).Count(&txns).Error)
	require.Equal(t, int64(1), txns)
}

func TestProcessEvent_UnknownPriceIsNoop(t *testing.T) {
	svc, db := newTestService(t, &stubStripeAPI{session: expandedSession("cs_test_a1", "price_unknown")})
	seedCustomer(t, db, "user-1", "cus_1", 0)

	event := checkoutCompletedEvent("evt_1", "cs_test_a1", "payment", "paid")
	require.NoError(t, svc.ProcessEvent(context.Background(), event))

	// The order is still recorded; only the grant is skipped.
	require.Equal(t, int64(0), balanceOf(t, db, "user-1"))
	var orders int64
	require.NoError(t, db.Model(&models.StripeOrder{}).Count(&orders).Error)
	require.Equal(t, int64(1), orders)
}

func TestProcessEvent_UnmappedCustomerIsNoop(t *testing.T) {
	svc, db := newTestService(t, &stubStripeAPI{session: expandedSession("cs_test_a1", testPriceID)})

	event := checkoutCompletedEvent("evt_1", "cs_test_a1", "payment", "paid")
	require.NoError(t, svc.ProcessEvent(context.Background(), event))

	var txns int64
	require.NoError(t, db.Model(&models.CreditTransaction{}).Count(&txns).Error)
	require.Equal(t, int64(0), txns)
}

func TestProcessEvent_UnpaidSessionIgnored(t *testing.T) {
	svc, db := newTestService(t, &stubStripeAPI{session: expandedSession("cs_test_a1", testPriceID)})
	seedCustomer(t, db, "user-1", "cus_1", 0)

	event := checkoutCompletedEvent("evt_1", "cs_test_a1", "payment", "unpaid")
	require.NoError(t, svc.ProcessEvent(context.Background(), event))

	require.Equal(t, int64(0), balanceOf(t, db, "user-1"))
	var orders int64
	require.NoError(t, db.Model(&models.StripeOrder{}).Count(&orders).Error)
	require.Equal(t, int64(0), orders)
}

func TestProcessEvent_PaymentIntentSucceededIgnored(t *testing.T) {
	svc, db := newTestService(t, &stubStripeAPI{})
	seedCustomer(t, db, "user-1", "cus_1", 0)

	event := stripe.Event{
		ID:   "evt_pi",
		Type: stripe.EventTypePaymentIntentSucceeded,
		Data: &stripe.EventData{Raw: []byte(`{"id":"pi_1"}`)},
	}
	require.NoError(t, svc.ProcessEvent(context.Background(), event))
	require.Equal(t, int64(0), balanceOf(t, db, "user-1"))
}

func activeSubscription(priceID string) *stripe.Subscription {
	return &stripe.Subscription{
		ID:                 "sub_1",
		Status:             stripe.SubscriptionStatusActive,
		CurrentPeriodStart: time.Now().Add(-time.Hour).Unix(),
		CurrentPeriodEnd:   time.Now().Add(30 * 24 * time.Hour).Unix(),
		Items: &stripe.SubscriptionItemList{
			Data: []*stripe.SubscriptionItem{{Price: &stripe.Price{ID: priceID}}},
		},
		DefaultPaymentMethod: &stripe.PaymentMethod{
			Card: &stripe.PaymentMethodCard{Brand: stripe.PaymentMethodCardBrandVisa, Last4: "4242"},
		},
	}
}

func invoicePaidEvent(id string) stripe.Event {
	raw := fmt.Sprintf(`{"id":"in_1","customer":{"id":"cus_1"},"lines":{"data":[{"price":{"id":%q}}]}}`, testPriceID)
	return stripe.Event{
		ID:   id,
		Type: stripe.EventTypeInvoicePaid,
		Data: &stripe.EventData{Raw: []byte(raw)},
	}
}

func TestProcessEvent_InvoicePaidGrantsAndResyncs(t *testing.T) {
	svc, db := newTestService(t, &stubStripeAPI{subs: []*stripe.Subscription{activeSubscription(testPriceID)}})
	seedCustomer(t, db, "user-1", "cus_1", 0)

	require.NoError(t, svc.ProcessEvent(context.Background(), invoicePaidEvent("evt_inv_1")))

	require.Equal(t, int64(10), balanceOf(t, db, "user-1"))

	var snapshot models.StripeSubscription
	require.NoError(t, db.Where("customer_id = ?", "cus_1").First(&snapshot).Error)
	require.Equal(t, "sub_1", snapshot.SubscriptionID)
	require.Equal(t, "active", snapshot.Status)
	require.Equal(t, testPriceID, snapshot.PriceID)
	require.Equal(t, "visa", snapshot.PaymentMethodBrand)
	require.Equal(t, "4242", snapshot.PaymentMethodLast4)
}

func TestProcessEvent_InvoicePaidReplayGrantsOnce(t *testing.T) {
	svc, db := newTestService(t, &stubStripeAPI{subs: []*stripe.Subscription{activeSubscription(testPriceID)}})
	seedCustomer(t, db, "user-1", "cus_1", 0)

	require.NoError(t, svc.ProcessEvent(context.Background(), invoicePaidEvent("evt_inv_1")))
	require.NoError(t, svc.ProcessEvent(context.Background(), invoicePaidEvent("evt_inv_1")))

	require.Equal(t, int64(10), balanceOf(t, db, "user-1"))
}

func TestResyncSubscription_UpsertsSingleRow(t *testing.T) {
	api := &stubStripeAPI{subs: []*stripe.Subscription{activeSubscription(testPriceID)}}
	svc, db := newTestService(t, api)

	require.NoError(t, svc.resyncSubscription(context.Background(), "cus_1"))

	// The customer cancels; the snapshot follows.
	api.subs = nil
	require.NoError(t, svc.resyncSubscription(context.Background(), "cus_1"))

	var rows []*models.StripeSubscription
	require.NoError(t, db.Where("customer_id = ?", "cus_1").Find(&rows).Error)
	require.Len(t, rows, 1)
	require.Equal(t, "canceled", rows[0].Status)
}

func TestStartCheckout_UnknownPack(t *testing.T) {
	svc, db := newTestService(t, &stubStripeAPI{})
	require.NoError(t, db.Create(&models.Profile{ID: "user-1"}).Error)

	_, _, err := svc.StartCheckout(context.Background(), &models.Profile{ID: "user-1"}, "price_unknown")
	require.ErrorIs(t, err, ErrUnknownCreditPack)
}

func TestStartCheckout_CreatesCustomerOnce(t *testing.T) {
	api := &stubStripeAPI{newSession: &stripe.CheckoutSession{ID: "cs_new", URL: "https://checkout.stripe.com/c/cs_new"}}
	svc, db := newTestService(t, api)
	profile := &models.Profile{ID: "user-1", Email: "user@example.com"}
	require.NoError(t, db.Create(profile).Error)

	sessionID, url, err := svc.StartCheckout(context.Background(), profile, testPriceID)
	require.NoError(t, err)
	require.Equal(t, "cs_new", sessionID)
	require.Equal(t, "https://checkout.stripe.com/c/cs_new", url)

	_, _, err = svc.StartCheckout(context.Background(), profile, testPriceID)
	require.NoError(t, err)
	require.Equal(t, 1, api.createdCustomers)

	var mapping models.StripeCustomer
	require.NoError(t, db.Where("user_id = ?", "user-1").First(&mapping).Error)
	require.Equal(t, "cus_user-1", mapping.CustomerID)
}

func signedHeader(payload []byte, secret string, at time.Time) string {
	sig := webhook.ComputeSignature(at, payload, secret)
	return fmt.Sprintf("t=%d,v1=%s", at.Unix(), hex.EncodeToString(sig))
}

// eventPayload pins api_version to the SDK's, which ConstructEvent checks.
func eventPayload(id string) []byte {
	return []byte(fmt.Sprintf(`{"id":%q,"object":"event","api_version":%q,"type":"checkout.session.completed","data":{"object":{}}}`,
		id, stripe.APIVersion))
}

func TestVerifyWebhook_AcceptsValidSignature(t *testing.T) {
	svc, _ := newTestService(t, &stubStripeAPI{})
	payload := eventPayload("evt_1")

	event, err := svc.VerifyWebhook(payload, signedHeader(payload, testWebhookSecret, time.Now()))
	require.NoError(t, err)
	require.Equal(t, "evt_1", event.ID)
}

func TestVerifyWebhook_RejectsTamperedBody(t *testing.T) {
	svc, _ := newTestService(t, &stubStripeAPI{})
	payload := eventPayload("evt_1")
	header := signedHeader(payload, testWebhookSecret, time.Now())

	_, err := svc.VerifyWebhook(eventPayload("evt_2"), header)
	require.Error(t, err)
}

func TestVerifyWebhook_RejectsWrongSecret(t *testing.T) {
	svc, _ := newTestService(t, &stubStripeAPI{})
	payload := eventPayload("evt_1")

	_, err := svc.VerifyWebhook(payload, signedHeader(payload, "whsec_other", time.Now()))
	require.Error(t, err)
}
