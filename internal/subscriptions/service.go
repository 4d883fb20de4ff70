package subscriptions

import (
	"context"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	stripewebhook "github.com/wjtan-dev/blockwatch-backend/internal/webhooks/stripe"
	"github.com/wjtan-dev/blockwatch-backend/pkg/config"
	"github.com/wjtan-dev/blockwatch-backend/pkg/db/models"
	"github.com/wjtan-dev/blockwatch-backend/pkg/enums"
	pkgerrors "github.com/wjtan-dev/blockwatch-backend/pkg/errors"
)

type accountReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	SetTier(ctx context.Context, id uuid.UUID, tier enums.Tier, subscriptionID string) error
}

type ServiceParams struct {
	Accounts accountReader
	Stripe   StripeBillingClient
	Config   config.StripeConfig
}

// Service drives outbound billing calls: starting a checkout for the paid
// tier and cancelling the current subscription. Tier state is owned by the
// webhook pipeline; cancellation also applies the downgrade locally so the
// caller sees the new tier without waiting for event delivery.
type Service struct {
	accounts accountReader
	stripe   StripeBillingClient
	cfg      config.StripeConfig
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Accounts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "account reader required")
	}
	if params.Stripe == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "stripe client required")
	}
	return &Service{
		accounts: params.Accounts,
		stripe:   params.Stripe,
		cfg:      params.Config,
	}, nil
}

// StartCheckout creates a Stripe Checkout session for the subscription price
// and returns the hosted payment URL.
func (s *Service) StartCheckout(ctx context.Context, accountID uuid.UUID) (string, error) {
	if s.cfg.SubscriptionPriceID == "" {
		return "", pkgerrors.New(pkgerrors.CodeInternal, "subscription price not configured")
	}

	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return "", err
	}
	if account.Tier == enums.TierPaid {
		return "", pkgerrors.New(pkgerrors.CodeConflict, "subscription already active")
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		ClientReferenceID: stripe.String(account.ID.String()),
		SuccessURL:        stripe.String(s.cfg.CheckoutSuccessURL),
		CancelURL:         stripe.String(s.cfg.CheckoutCancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Price:    stripe.String(s.cfg.SubscriptionPriceID),
			Quantity: stripe.Int64(1),
		}},
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{
				stripewebhook.MetadataAccountKey: account.ID.String(),
			},
		},
	}
	if account.StripeCustomerID != nil && *account.StripeCustomerID != "" {
		params.Customer = stripe.String(*account.StripeCustomerID)
	} else {
		params.CustomerEmail = stripe.String(account.Email)
	}

	session, err := s.stripe.CreateCheckoutSession(ctx, params)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create checkout session")
	}
	return session.URL, nil
}

// Cancel ends the account's subscription and downgrades the tier. The
// downgrade is an absolute state write, so the later webhook delivery for the
// same cancellation is a no-op.
func (s *Service) Cancel(ctx context.Context, accountID uuid.UUID) error {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return err
	}
	if account.StripeSubscriptionID == nil || *account.StripeSubscriptionID == "" {
		return pkgerrors.New(pkgerrors.CodeConflict, "no active subscription")
	}

	if _, err := s.stripe.CancelSubscription(ctx, *account.StripeSubscriptionID, &stripe.SubscriptionCancelParams{}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel subscription")
	}

	return s.accounts.SetTier(ctx, account.ID, enums.TierFree, "")
}
