package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/wjtan-dev/blockwatch-backend/api/middleware"
	"github.com/wjtan-dev/blockwatch-backend/api/responses"
	"github.com/wjtan-dev/blockwatch-backend/api/validators"
	pkgauth "github.com/wjtan-dev/blockwatch-backend/pkg/auth"
	"github.com/wjtan-dev/blockwatch-backend/pkg/config"
	"github.com/wjtan-dev/blockwatch-backend/pkg/db/models"
	"github.com/wjtan-dev/blockwatch-backend/pkg/enums"
	pkgerrors "github.com/wjtan-dev/blockwatch-backend/pkg/errors"
	"github.com/wjtan-dev/blockwatch-backend/pkg/logger"
)

// AccountService is the account surface the auth endpoints need.
type AccountService interface {
	Register(ctx context.Context, email, password string) (*models.Account, error)
	VerifyCredentials(ctx context.Context, email, password string) (*models.Account, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type accountResponse struct {
	ID    string     `json:"id"`
	Email string     `json:"email"`
	Tier  enums.Tier `json:"tier"`
}

type sessionResponse struct {
	Token   string          `json:"token"`
	Account accountResponse `json:"account"`
}

func toAccountResponse(account *models.Account) accountResponse {
	return accountResponse{
		ID:    account.ID.String(),
		Email: account.Email,
		Tier:  account.Tier,
	}
}

// AuthRegister creates a free-tier account and returns a fresh session token.
func AuthRegister(svc AccountService, jwtCfg config.JWTConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "account service unavailable"))
			return
		}

		var body registerRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		account, err := svc.Register(r.Context(), body.Email, body.Password)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		token, err := mintSession(jwtCfg, account)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, sessionResponse{
			Token:   token,
			Account: toAccountResponse(account),
		})
	}
}

// AuthLogin verifies credentials and mints a session token. The token carries
// the tier at login time as a snapshot only.
func AuthLogin(svc AccountService, jwtCfg config.JWTConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "account service unavailable"))
			return
		}

		var body loginRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		account, err := svc.VerifyCredentials(r.Context(), body.Email, body.Password)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		token, err := mintSession(jwtCfg, account)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, sessionResponse{
			Token:   token,
			Account: toAccountResponse(account),
		})
	}
}

// AuthMe returns the current account profile with the live tier from the
// store, not the token snapshot.
func AuthMe(svc AccountService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "account service unavailable"))
			return
		}

		accountID := middleware.AccountIDFromContext(r.Context())
		if accountID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		account, err := svc.GetByID(r.Context(), accountID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, toAccountResponse(account))
	}
}

func mintSession(jwtCfg config.JWTConfig, account *models.Account) (string, error) {
	token, err := pkgauth.MintSessionToken(jwtCfg, time.Now(), pkgauth.SessionTokenPayload{
		AccountID: account.ID,
		Email:     account.Email,
		Tier:      account.Tier,
	})
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "minting session token")
	}
	return token, nil
}
