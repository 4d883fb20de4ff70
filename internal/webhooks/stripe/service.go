package stripewebhook

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"github.com/wjtan-dev/blockwatch-backend/pkg/enums"
	pkgerrors "github.com/wjtan-dev/blockwatch-backend/pkg/errors"
	"github.com/wjtan-dev/blockwatch-backend/pkg/logger"
	"github.com/wjtan-dev/blockwatch-backend/pkg/metrics"
)

// accountWriter is the slice of the account service the webhook needs. All
// three writes are transactional on the account side.
type accountWriter interface {
	SetTier(ctx context.Context, id uuid.UUID, tier enums.Tier, subscriptionID string) error
	SetTierBySubscription(ctx context.Context, subscriptionID string, tier enums.Tier) error
	ApplyCheckout(ctx context.Context, id uuid.UUID, customerID, subscriptionID string) error
}

// MetadataAccountKey is set on checkout sessions and subscriptions so events
// can be routed back to the owning account.
const MetadataAccountKey = "account_id"

type ServiceParams struct {
	Accounts accountWriter
	Logg     *logger.Logger
	Metrics  *metrics.LookupMetrics
}

// Service applies Stripe billing events to account tiers. Every transition
// writes an absolute state derived from the event payload, so redelivered
// events are harmless. Events carry no ordering guarantee: a delayed
// "subscription updated" with status active can arrive after a cancellation
// and briefly restore the paid tier until the next event lands.
type Service struct {
	accounts accountWriter
	logg     *logger.Logger
	metrics  *metrics.LookupMetrics
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Accounts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "account writer required")
	}
	return &Service{accounts: params.Accounts, logg: params.Logg, metrics: params.Metrics}, nil
}

func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	s.metrics.IncWebhookEvent(string(event.Type))

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode checkout session event")
		}
		return s.applyCheckoutCompleted(ctx, &session)
	case stripe.EventTypeCustomerSubscriptionUpdated:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode subscription event")
		}
		return s.applySubscriptionState(ctx, &sub, tierForStatus(sub.Status))
	case stripe.EventTypeCustomerSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode subscription event")
		}
		return s.applySubscriptionState(ctx, &sub, enums.TierFree)
	default:
		return nil
	}
}

func (s *Service) applyCheckoutCompleted(ctx context.Context, session *stripe.CheckoutSession) error {
	accountID, err := uuid.Parse(session.ClientReferenceID)
	if err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "checkout session missing account reference")
	}

	customerID := ""
	if session.Customer != nil {
		customerID = session.Customer.ID
	}
	subscriptionID := ""
	if session.Subscription != nil {
		subscriptionID = session.Subscription.ID
	}

	return s.accounts.ApplyCheckout(ctx, accountID, customerID, subscriptionID)
}

// applySubscriptionState prefers the account id stamped into subscription
// metadata at checkout time, then falls back to the stored subscription
// reference, resolved and written under one row lock.
func (s *Service) applySubscriptionState(ctx context.Context, sub *stripe.Subscription, tier enums.Tier) error {
	if raw, ok := sub.Metadata[MetadataAccountKey]; ok {
		if id, err := uuid.Parse(raw); err == nil {
			return s.accounts.SetTier(ctx, id, tier, sub.ID)
		}
	}

	err := s.accounts.SetTierBySubscription(ctx, sub.ID, tier)
	if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
		// An event for a subscription nobody owns is a no-op, not a failure;
		// erroring would make Stripe retry a delivery that can never land.
		if s.logg != nil {
			s.logg.Warn(ctx, fmt.Sprintf("stripe subscription %s matches no account, ignoring event", sub.ID))
		}
		return nil
	}
	return err
}

func tierForStatus(status stripe.SubscriptionStatus) enums.Tier {
	switch status {
	case stripe.SubscriptionStatusActive, stripe.SubscriptionStatusTrialing:
		return enums.TierPaid
	default:
		return enums.TierFree
	}
}
