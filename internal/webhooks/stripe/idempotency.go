package stripewebhook

import (
	"context"
	"fmt"
	"time"

	pkgerrors "github.com/wjtan-dev/blockwatch-backend/pkg/errors"
	"github.com/wjtan-dev/blockwatch-backend/pkg/redis"
)

// DefaultIdempotencyTTL bounds how long processed event ids are remembered.
const DefaultIdempotencyTTL = 24 * time.Hour

// IdempotencyGuard deduplicates webhook deliveries by event id. Marking and
// checking are one atomic SetNX so two concurrent deliveries of the same
// event cannot both pass.
type IdempotencyGuard struct {
	store redis.IdempotencyStore
	ttl   time.Duration
	scope string
}

func NewIdempotencyGuard(store redis.IdempotencyStore, ttl time.Duration, scope string) (*IdempotencyGuard, error) {
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "idempotency store required")
	}
	if scope == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "idempotency scope required")
	}
	if ttl <= 0 {
		ttl = DefaultIdempotencyTTL
	}
	return &IdempotencyGuard{store: store, ttl: ttl, scope: scope}, nil
}

// CheckAndMark returns true when the event was already processed, otherwise
// marks it for the configured TTL.
func (g *IdempotencyGuard) CheckAndMark(ctx context.Context, eventID string) (bool, error) {
	if eventID == "" {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "event id required")
	}
	set, err := g.store.SetNX(ctx, g.store.IdempotencyKey(g.scope, eventID), "1", g.ttl)
	if err != nil {
		return false, fmt.Errorf("set idempotency key: %w", err)
	}
	return !set, nil
}

// Delete unmarks an event so a failed handler can be retried by Stripe.
func (g *IdempotencyGuard) Delete(ctx context.Context, eventID string) error {
	if eventID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "event id required")
	}
	return g.store.Del(ctx, g.store.IdempotencyKey(g.scope, eventID))
}
