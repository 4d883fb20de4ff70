package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/wjtan-dev/blockwatch-backend/api/middleware"
	"github.com/wjtan-dev/blockwatch-backend/api/responses"
	pkgerrors "github.com/wjtan-dev/blockwatch-backend/pkg/errors"
	"github.com/wjtan-dev/blockwatch-backend/pkg/logger"
)

// BillingService starts and ends paid subscriptions.
type BillingService interface {
	StartCheckout(ctx context.Context, accountID uuid.UUID) (string, error)
	Cancel(ctx context.Context, accountID uuid.UUID) error
}

type checkoutResponse struct {
	CheckoutURL string `json:"checkout_url"`
}

// BillingCheckout creates a Stripe Checkout session for the paid tier.
func BillingCheckout(svc BillingService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "billing service unavailable"))
			return
		}

		accountID := middleware.AccountIDFromContext(r.Context())
		if accountID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		url, err := svc.StartCheckout(r.Context(), accountID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, checkoutResponse{CheckoutURL: url})
	}
}

// BillingCancel ends the caller's subscription and downgrades the tier.
func BillingCancel(svc BillingService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "billing service unavailable"))
			return
		}

		accountID := middleware.AccountIDFromContext(r.Context())
		if accountID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		if err := svc.Cancel(r.Context(), accountID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "cancelled"})
	}
}
