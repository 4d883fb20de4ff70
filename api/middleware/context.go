package middleware

import (
	"context"

	"github.com/google/uuid"
	"github.com/wjtan-dev/blockwatch-backend/pkg/enums"
)

type contextKey string

const ctxSession contextKey = "session"

// SessionState tags a request's authentication outcome.
type SessionState string

const (
	SessionAuthenticated SessionState = "authenticated"
	SessionAnonymous     SessionState = "anonymous"
)

// SessionVerdict is the tagged result of session verification. Anonymous
// requests carry the zero identity; callers branch on State instead of
// probing for a nil account id.
type SessionVerdict struct {
	State     SessionState
	AccountID uuid.UUID
	Email     string
	Tier      enums.Tier
}

// SessionFromContext returns the request's session verdict. Requests that
// never passed through session middleware read as anonymous.
func SessionFromContext(ctx context.Context) SessionVerdict {
	if ctx == nil {
		return SessionVerdict{State: SessionAnonymous}
	}
	if v, ok := ctx.Value(ctxSession).(SessionVerdict); ok {
		return v
	}
	return SessionVerdict{State: SessionAnonymous}
}

// AccountIDFromContext returns the authenticated account id, or uuid.Nil for
// anonymous requests.
func AccountIDFromContext(ctx context.Context) uuid.UUID {
	return SessionFromContext(ctx).AccountID
}

func EmailFromContext(ctx context.Context) string {
	return SessionFromContext(ctx).Email
}

// TierFromContext returns the tier snapshot minted into the session token.
// It reflects the tier at login time, not necessarily the current one.
func TierFromContext(ctx context.Context) enums.Tier {
	return SessionFromContext(ctx).Tier
}

// WithSession seeds the context with a verified session identity.
func WithSession(ctx context.Context, accountID uuid.UUID, email string, tier enums.Tier) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxSession, SessionVerdict{
		State:     SessionAuthenticated,
		AccountID: accountID,
		Email:     email,
		Tier:      tier,
	})
}
