package middleware

import (
	"net/http"
	"strings"

	"github.com/wjtan-dev/blockwatch-backend/api/responses"
	pkgauth "github.com/wjtan-dev/blockwatch-backend/pkg/auth"
	"github.com/wjtan-dev/blockwatch-backend/pkg/config"
	pkgerrors "github.com/wjtan-dev/blockwatch-backend/pkg/errors"
	"github.com/wjtan-dev/blockwatch-backend/pkg/logger"
)

const sessionCookieName = "session"

// RequireSession validates the bearer token and seeds the request context.
// Requests without a valid session are rejected.
func RequireSession(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgauth.ParseSessionToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			ctx := WithSession(r.Context(), claims.AccountID, claims.Email, claims.Tier)
			if logg != nil {
				ctx = logg.WithAccountID(ctx, claims.AccountID.String())
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AttachOptionalSession seeds the context when a valid session is presented
// and lets anonymous or invalid-token requests continue without one.
func AttachOptionalSession(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := pkgauth.ParseSessionToken(cfg, token)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := WithSession(r.Context(), claims.AccountID, claims.Email, claims.Tier)
			if logg != nil {
				ctx = logg.WithAccountID(ctx, claims.AccountID.String())
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractToken reads the session from the Authorization header, falling back
// to the session cookie set by browser clients.
func extractToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw != "" {
		if strings.HasPrefix(strings.ToLower(raw), "bearer ") {
			return strings.TrimSpace(raw[7:])
		}
		return raw
	}
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		return strings.TrimSpace(cookie.Value)
	}
	return ""
}
