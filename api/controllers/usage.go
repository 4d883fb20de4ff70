package controllers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/wjtan-dev/blockwatch-backend/api/middleware"
	"github.com/wjtan-dev/blockwatch-backend/api/responses"
	"github.com/wjtan-dev/blockwatch-backend/pkg/db/models"
	pkgerrors "github.com/wjtan-dev/blockwatch-backend/pkg/errors"
	"github.com/wjtan-dev/blockwatch-backend/pkg/logger"
)

// UsageHistoryService lists recorded usage for an account.
type UsageHistoryService interface {
	History(ctx context.Context, accountID uuid.UUID, limit int) ([]models.UsageRecord, error)
}

type usageRecordResponse struct {
	ActionKind string `json:"action_kind"`
	Subject    string `json:"subject"`
	CreatedAt  string `json:"created_at"`
}

// UsageHistory returns the caller's most recent metered actions.
func UsageHistory(svc UsageHistoryService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "usage service unavailable"))
			return
		}

		accountID := middleware.AccountIDFromContext(r.Context())
		if accountID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		limit := 50
		if raw := r.URL.Query().Get("limit"); raw != "" {
			if parsed, err := strconv.Atoi(raw); err == nil {
				limit = parsed
			}
		}

		records, err := svc.History(r.Context(), accountID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payload := make([]usageRecordResponse, 0, len(records))
		for _, record := range records {
			payload = append(payload, usageRecordResponse{
				ActionKind: record.ActionKind,
				Subject:    record.Subject,
				CreatedAt:  record.CreatedAt.Format(time.RFC3339),
			})
		}
		responses.WriteSuccess(w, payload)
	}
}
