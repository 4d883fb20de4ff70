package entitlement

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/wjtan-dev/blockwatch-backend/pkg/config"
	"github.com/wjtan-dev/blockwatch-backend/pkg/db/models"
	"github.com/wjtan-dev/blockwatch-backend/pkg/enums"
	apperrors "github.com/wjtan-dev/blockwatch-backend/pkg/errors"
	"github.com/wjtan-dev/blockwatch-backend/pkg/metrics"
)

// tierSource reads the account's current tier. The gate always consults the
// store, never the tier snapshot minted into the session token.
type tierSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
}

// ledger provides quota reads and appends against the usage store.
type ledger interface {
	Consumed(ctx context.Context, accountID uuid.UUID, actionKind string) (int64, error)
	Record(ctx context.Context, accountID uuid.UUID, actionKind, subject string) error
}

const (
	OutcomeAllow = "allow"
	OutcomeDeny  = "deny"
)

// Decision is the gate's verdict for one metered action.
type Decision struct {
	Allowed   bool
	Tier      enums.Tier
	Consumed  int64
	Limit     int64
	Unlimited bool
}

// Remaining reports how many actions the account has left. Unlimited tiers
// report -1.
func (d Decision) Remaining() int64 {
	if d.Unlimited {
		return -1
	}
	remaining := d.Limit - d.Consumed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// ServiceParams carries the dependencies for the entitlement gate.
type ServiceParams struct {
	Accounts tierSource
	Usage    ledger
	Quota    config.QuotaConfig
	Metrics  *metrics.LookupMetrics
}

// Service decides whether a metered action may proceed and records usage for
// allowed actions. Check, action, and append run under a per-account lock so
// two concurrent requests cannot both pass the quota check.
type Service struct {
	accounts tierSource
	usage    ledger
	quota    config.QuotaConfig
	metrics  *metrics.LookupMetrics
	locks    keyedMutex
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Accounts == nil {
		return nil, fmt.Errorf("entitlement service requires an account source")
	}
	if params.Usage == nil {
		return nil, fmt.Errorf("entitlement service requires a usage ledger")
	}
	return &Service{
		accounts: params.Accounts,
		usage:    params.Usage,
		quota:    params.Quota,
		metrics:  params.Metrics,
	}, nil
}

// Check evaluates the quota without recording usage. Useful for status reads.
func (s *Service) Check(ctx context.Context, accountID uuid.UUID, actionKind string) (Decision, error) {
	return s.evaluate(ctx, accountID, actionKind)
}

// AuthorizeAndRecord evaluates the quota, runs the gated action, and appends
// the usage row only once the action has succeeded. A denied or failed action
// never reaches the ledger. The whole sequence holds the per-account lock, so
// two concurrent requests cannot both pass the quota check.
func (s *Service) AuthorizeAndRecord(ctx context.Context, accountID uuid.UUID, actionKind, subject string, action func(context.Context) error) (Decision, error) {
	if accountID == uuid.Nil {
		return Decision{}, apperrors.New(apperrors.CodeValidation, "account id is required")
	}

	unlock := s.locks.lock(accountID.String() + ":" + actionKind)
	defer unlock()

	decision, err := s.evaluate(ctx, accountID, actionKind)
	if err != nil {
		return Decision{}, err
	}

	if !decision.Allowed {
		s.metrics.IncDecision(OutcomeDeny)
		return decision, apperrors.New(apperrors.CodeQuotaExceeded, "free tier lookup limit reached").
			WithDetails(map[string]any{
				"consumed": decision.Consumed,
				"limit":    decision.Limit,
			})
	}

	if action != nil {
		if err := action(ctx); err != nil {
			return Decision{}, err
		}
	}

	if err := s.usage.Record(ctx, accountID, actionKind, subject); err != nil {
		return Decision{}, err
	}
	decision.Consumed++
	s.metrics.IncDecision(OutcomeAllow)
	s.metrics.IncRecorded()
	return decision, nil
}

func (s *Service) evaluate(ctx context.Context, accountID uuid.UUID, actionKind string) (Decision, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return Decision{}, err
	}

	if account.Tier == enums.TierPaid {
		return Decision{Allowed: true, Tier: account.Tier, Unlimited: true}, nil
	}

	limit := int64(s.quota.FreeLookupLimit)
	consumed, err := s.usage.Consumed(ctx, accountID, actionKind)
	if err != nil {
		return Decision{}, err
	}

	return Decision{
		Allowed:  consumed < limit,
		Tier:     account.Tier,
		Consumed: consumed,
		Limit:    limit,
	}, nil
}
