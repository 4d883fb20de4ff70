package controllers

import (
	"context"
	"net/http"

	"github.com/wjtan-dev/blockwatch-backend/api/responses"
	"github.com/wjtan-dev/blockwatch-backend/api/validators"
	"github.com/wjtan-dev/blockwatch-backend/pkg/config"
	pkgerrors "github.com/wjtan-dev/blockwatch-backend/pkg/errors"
	"github.com/wjtan-dev/blockwatch-backend/pkg/logger"
)

// PasswordResetService issues and consumes reset tokens.
type PasswordResetService interface {
	Request(ctx context.Context, email string) (string, error)
	Confirm(ctx context.Context, token, newPassword string) error
}

type passwordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type passwordResetConfirm struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
}

// PasswordResetRequest issues a reset token. The response is identical for
// known and unknown emails. Outside production the token is echoed back so
// the flow can be exercised without an email sender.
func PasswordResetRequest(svc PasswordResetService, cfg *config.Config, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "password reset service unavailable"))
			return
		}

		var body passwordResetRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		token, err := svc.Request(r.Context(), body.Email)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payload := map[string]string{"status": "ok"}
		if cfg != nil && !cfg.App.IsProd() && token != "" {
			payload["token"] = token
		}
		responses.WriteSuccess(w, payload)
	}
}

// PasswordResetConfirm consumes a token and sets the new password.
func PasswordResetConfirm(svc PasswordResetService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "password reset service unavailable"))
			return
		}

		var body passwordResetConfirm
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Confirm(r.Context(), body.Token, body.Password); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "password_updated"})
	}
}
