package subscriptions

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"
	stripewebhook "github.com/wjtan-dev/blockwatch-backend/internal/webhooks/stripe"
	"github.com/wjtan-dev/blockwatch-backend/pkg/config"
	"github.com/wjtan-dev/blockwatch-backend/pkg/db/models"
	"github.com/wjtan-dev/blockwatch-backend/pkg/enums"
	pkgerrors "github.com/wjtan-dev/blockwatch-backend/pkg/errors"
)

type stubAccountReader struct {
	accounts map[uuid.UUID]*models.Account
	tierSets []enums.Tier
}

func (s *stubAccountReader) GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	account, ok := s.accounts[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
	}
	clone := *account
	return &clone, nil
}

func (s *stubAccountReader) SetTier(ctx context.Context, id uuid.UUID, tier enums.Tier, subscriptionID string) error {
	s.tierSets = append(s.tierSets, tier)
	if account, ok := s.accounts[id]; ok {
		account.Tier = tier
		if tier == enums.TierFree {
			account.StripeSubscriptionID = nil
		}
	}
	return nil
}

type stubBillingClient struct {
	lastCheckout *stripe.CheckoutSessionParams
	cancelled    []string
	checkoutURL  string
	err          error
}

func (s *stubBillingClient) CreateCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.lastCheckout = params
	return &stripe.CheckoutSession{URL: s.checkoutURL}, nil
}

func (s *stubBillingClient) CancelSubscription(ctx context.Context, id string, params *stripe.SubscriptionCancelParams) (*stripe.Subscription, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.cancelled = append(s.cancelled, id)
	return &stripe.Subscription{ID: id, Status: stripe.SubscriptionStatusCanceled}, nil
}

func testStripeConfig() config.StripeConfig {
	return config.StripeConfig{
		SubscriptionPriceID: "price_123",
		CheckoutSuccessURL:  "https://app.example.com/billing/success",
		CheckoutCancelURL:   "https://app.example.com/billing/cancel",
	}
}

func TestStartCheckout(t *testing.T) {
	accountID := uuid.New()
	accounts := &stubAccountReader{accounts: map[uuid.UUID]*models.Account{
		accountID: {ID: accountID, Email: "user@example.com", Tier: enums.TierFree},
	}}
	client := &stubBillingClient{checkoutURL: "https://checkout.stripe.com/pay/cs_123"}

	svc, err := NewService(ServiceParams{Accounts: accounts, Stripe: client, Config: testStripeConfig()})
	require.NoError(t, err)

	url, err := svc.StartCheckout(context.Background(), accountID)
	require.NoError(t, err)
	require.Equal(t, "https://checkout.stripe.com/pay/cs_123", url)

	params := client.lastCheckout
	require.NotNil(t, params)
	require.Equal(t, accountID.String(), *params.ClientReferenceID)
	require.Equal(t, "price_123", *params.LineItems[0].Price)
	require.Equal(t, "user@example.com", *params.CustomerEmail)
	require.Equal(t, accountID.String(), params.SubscriptionData.Metadata[stripewebhook.MetadataAccountKey])
}

func TestStartCheckoutReusesStoredCustomer(t *testing.T) {
	accountID := uuid.New()
	customerID := "cus_456"
	accounts := &stubAccountReader{accounts: map[uuid.UUID]*models.Account{
		accountID: {ID: accountID, Email: "user@example.com", Tier: enums.TierFree, StripeCustomerID: &customerID},
	}}
	client := &stubBillingClient{checkoutURL: "https://checkout.stripe.com/pay/cs_456"}

	svc, err := NewService(ServiceParams{Accounts: accounts, Stripe: client, Config: testStripeConfig()})
	require.NoError(t, err)

	_, err = svc.StartCheckout(context.Background(), accountID)
	require.NoError(t, err)
	require.Equal(t, "cus_456", *client.lastCheckout.Customer)
	require.Nil(t, client.lastCheckout.CustomerEmail)
}

func TestStartCheckoutRejectsPaidAccounts(t *testing.T) {
	accountID := uuid.New()
	accounts := &stubAccountReader{accounts: map[uuid.UUID]*models.Account{
		accountID: {ID: accountID, Tier: enums.TierPaid},
	}}

	svc, err := NewService(ServiceParams{Accounts: accounts, Stripe: &stubBillingClient{}, Config: testStripeConfig()})
	require.NoError(t, err)

	_, err = svc.StartCheckout(context.Background(), accountID)
	require.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())
}

func TestCancelDowngradesImmediately(t *testing.T) {
	accountID := uuid.New()
	subID := "sub_789"
	accounts := &stubAccountReader{accounts: map[uuid.UUID]*models.Account{
		accountID: {ID: accountID, Tier: enums.TierPaid, StripeSubscriptionID: &subID},
	}}
	client := &stubBillingClient{}

	svc, err := NewService(ServiceParams{Accounts: accounts, Stripe: client, Config: testStripeConfig()})
	require.NoError(t, err)

	require.NoError(t, svc.Cancel(context.Background(), accountID))
	require.Equal(t, []string{"sub_789"}, client.cancelled)
	require.Equal(t, enums.TierFree, accounts.accounts[accountID].Tier)
}

func TestCancelWithoutSubscription(t *testing.T) {
	accountID := uuid.New()
	accounts := &stubAccountReader{accounts: map[uuid.UUID]*models.Account{
		accountID: {ID: accountID, Tier: enums.TierFree},
	}}

	svc, err := NewService(ServiceParams{Accounts: accounts, Stripe: &stubBillingClient{}, Config: testStripeConfig()})
	require.NoError(t, err)

	err = svc.Cancel(context.Background(), accountID)
	require.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())
}
