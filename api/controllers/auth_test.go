package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/wjtan-dev/blockwatch-backend/api/middleware"
	pkgauth "github.com/wjtan-dev/blockwatch-backend/pkg/auth"
	"github.com/wjtan-dev/blockwatch-backend/pkg/config"
	"github.com/wjtan-dev/blockwatch-backend/pkg/db/models"
	"github.com/wjtan-dev/blockwatch-backend/pkg/enums"
	pkgerrors "github.com/wjtan-dev/blockwatch-backend/pkg/errors"
)

var testJWT = config.JWTConfig{
	Secret:            "test-secret-test-secret-test-secret",
	Issuer:            "blockwatch-test",
	ExpirationMinutes: 60,
}

type stubAccountService struct {
	account *models.Account
	err     error
}

func (s stubAccountService) Register(ctx context.Context, email, password string) (*models.Account, error) {
	return s.account, s.err
}

func (s stubAccountService) VerifyCredentials(ctx context.Context, email, password string) (*models.Account, error) {
	return s.account, s.err
}

func (s stubAccountService) GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	return s.account, s.err
}

func freeAccount() *models.Account {
	return &models.Account{
		ID:    uuid.New(),
		Email: "user@example.com",
		Tier:  enums.TierFree,
	}
}

func decodeSession(t *testing.T, body *bytes.Buffer) sessionResponse {
	t.Helper()
	var envelope struct {
		Data sessionResponse `json:"data"`
	}
	if err := json.Unmarshal(body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return envelope.Data
}

func TestAuthRegisterReturnsSessionToken(t *testing.T) {
	account := freeAccount()
	handler := AuthRegister(stubAccountService{account: account}, testJWT, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", bytes.NewReader([]byte(`{"email":"user@example.com","password":"hunter2hunter2"}`)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rec.Code, rec.Body.String())
	}

	session := decodeSession(t, rec.Body)
	if session.Account.Email != account.Email {
		t.Fatalf("expected account email %s got %s", account.Email, session.Account.Email)
	}
	claims, err := pkgauth.ParseSessionToken(testJWT, session.Token)
	if err != nil {
		t.Fatalf("minted token failed verification: %v", err)
	}
	if claims.AccountID != account.ID || claims.Tier != enums.TierFree {
		t.Fatalf("token claims mismatch: %+v", claims)
	}
}

func TestAuthRegisterRejectsShortPassword(t *testing.T) {
	handler := AuthRegister(stubAccountService{account: freeAccount()}, testJWT, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", bytes.NewReader([]byte(`{"email":"user@example.com","password":"short"}`)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestAuthLoginSurfacesUnauthorized(t *testing.T) {
	handler := AuthLogin(stubAccountService{err: pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")}, testJWT, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader([]byte(`{"email":"user@example.com","password":"wrongpassword"}`)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
}

func TestAuthMeReadsLiveTier(t *testing.T) {
	account := freeAccount()
	account.Tier = enums.TierPaid
	handler := AuthMe(stubAccountService{account: account}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	// Session snapshot still says free; the handler must report the stored tier.
	ctx := middleware.WithSession(req.Context(), account.ID, account.Email, enums.TierFree)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req.WithContext(ctx))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	var envelope struct {
		Data accountResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Tier != enums.TierPaid {
		t.Fatalf("expected live paid tier, got %s", envelope.Data.Tier)
	}
}

func TestAuthMeRequiresSession(t *testing.T) {
	handler := AuthMe(stubAccountService{account: freeAccount()}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
}
