package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	pkgauth "github.com/wjtan-dev/blockwatch-backend/pkg/auth"
	"github.com/wjtan-dev/blockwatch-backend/pkg/config"
	"github.com/wjtan-dev/blockwatch-backend/pkg/enums"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "test-secret",
		Issuer:            "blockwatch-test",
		ExpirationMinutes: 60,
	}
}

func mintToken(t *testing.T, cfg config.JWTConfig, accountID uuid.UUID, tier enums.Tier) string {
	t.Helper()
	token, err := pkgauth.MintSessionToken(cfg, time.Now(), pkgauth.SessionTokenPayload{
		AccountID: accountID,
		Email:     "user@example.com",
		Tier:      tier,
	})
	require.NoError(t, err)
	return token
}

func TestRequireSessionSeedsContext(t *testing.T) {
	cfg := testJWTConfig()
	accountID := uuid.New()
	token := mintToken(t, cfg, accountID, enums.TierPaid)

	var gotAccount uuid.UUID
	var gotTier enums.Tier
	handler := RequireSession(cfg, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAccount = AccountIDFromContext(r.Context())
		gotTier = TierFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/lookup", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, accountID, gotAccount)
	require.Equal(t, enums.TierPaid, gotTier)
}

func TestRequireSessionReadsCookie(t *testing.T) {
	cfg := testJWTConfig()
	accountID := uuid.New()
	token := mintToken(t, cfg, accountID, enums.TierFree)

	var gotAccount uuid.UUID
	handler := RequireSession(cfg, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAccount = AccountIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/lookup", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: token})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, accountID, gotAccount)
}

func TestRequireSessionRejectsMissingAndInvalidTokens(t *testing.T) {
	cfg := testJWTConfig()
	handler := RequireSession(cfg, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/lookup", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/lookup", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireSessionRejectsExpiredToken(t *testing.T) {
	cfg := testJWTConfig()
	expired, err := pkgauth.MintSessionToken(cfg, time.Now().Add(-48*time.Hour), pkgauth.SessionTokenPayload{
		AccountID: uuid.New(),
		Email:     "user@example.com",
		Tier:      enums.TierFree,
	})
	require.NoError(t, err)

	handler := RequireSession(cfg, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/lookup", nil)
	req.Header.Set("Authorization", "Bearer "+expired)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAttachOptionalSessionAllowsAnonymous(t *testing.T) {
	cfg := testJWTConfig()

	var gotAccount uuid.UUID
	handler := AttachOptionalSession(cfg, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAccount = AccountIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/preview", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, uuid.Nil, gotAccount)
}

func TestAttachOptionalSessionIgnoresInvalidToken(t *testing.T) {
	cfg := testJWTConfig()

	var gotAccount uuid.UUID
	handler := AttachOptionalSession(cfg, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAccount = AccountIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/preview", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, uuid.Nil, gotAccount)
}
