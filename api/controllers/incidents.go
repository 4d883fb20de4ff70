package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/wjtan-dev/blockwatch-backend/api/middleware"
	"github.com/wjtan-dev/blockwatch-backend/api/responses"
	"github.com/wjtan-dev/blockwatch-backend/internal/entitlement"
	"github.com/wjtan-dev/blockwatch-backend/internal/incidents"
	"github.com/wjtan-dev/blockwatch-backend/internal/usage"
	pkgerrors "github.com/wjtan-dev/blockwatch-backend/pkg/errors"
	"github.com/wjtan-dev/blockwatch-backend/pkg/logger"
)

// LookupGate authorizes metered lookups and runs them between the quota
// check and the usage append.
type LookupGate interface {
	AuthorizeAndRecord(ctx context.Context, accountID uuid.UUID, actionKind, subject string, action func(context.Context) error) (entitlement.Decision, error)
	Check(ctx context.Context, accountID uuid.UUID, actionKind string) (entitlement.Decision, error)
}

// IncidentService answers address lookups.
type IncidentService interface {
	Lookup(ctx context.Context, address string) (incidents.LookupResult, error)
}

type incidentResponse struct {
	PostalCode      string `json:"postal_code"`
	Block           string `json:"block"`
	Location        string `json:"location"`
	DateReported    string `json:"date_reported"`
	IncidentSummary string `json:"incident_summary"`
	SourceURL       string `json:"source_url"`
}

type quotaResponse struct {
	Tier      string `json:"tier"`
	Remaining int64  `json:"remaining"`
	Unlimited bool   `json:"unlimited"`
}

type lookupResponse struct {
	Match    string            `json:"match"`
	Incident *incidentResponse `json:"incident,omitempty"`
	Quota    quotaResponse     `json:"quota"`
}

type previewResponse struct {
	Match        string `json:"match"`
	DateReported string `json:"date_reported,omitempty"`
}

func toIncidentResponse(result incidents.LookupResult) *incidentResponse {
	if result.Incident == nil {
		return nil
	}
	return &incidentResponse{
		PostalCode:      result.Incident.PostalCode,
		Block:           result.Incident.Block,
		Location:        result.Incident.Location,
		DateReported:    result.Incident.DateReported,
		IncidentSummary: result.Incident.IncidentSummary,
		SourceURL:       result.Incident.SourceURL,
	}
}

func toQuotaResponse(decision entitlement.Decision) quotaResponse {
	return quotaResponse{
		Tier:      string(decision.Tier),
		Remaining: decision.Remaining(),
		Unlimited: decision.Unlimited,
	}
}

// IncidentLookup is the metered lookup endpoint. The gate charges the
// attempt only when the query itself succeeds; a lookup with zero matches
// still counts, a storage failure does not.
func IncidentLookup(gate LookupGate, svc IncidentService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if gate == nil || svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "lookup service unavailable"))
			return
		}

		address := strings.TrimSpace(r.URL.Query().Get("address"))
		if address == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "address is required"))
			return
		}

		accountID := middleware.AccountIDFromContext(r.Context())
		if accountID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		var result incidents.LookupResult
		decision, err := gate.AuthorizeAndRecord(r.Context(), accountID, usage.ActionAddressLookup, incidents.NormalizeAddress(address),
			func(ctx context.Context) error {
				var lookupErr error
				result, lookupErr = svc.Lookup(ctx, address)
				return lookupErr
			})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, lookupResponse{
			Match:    string(result.Match),
			Incident: toIncidentResponse(result),
			Quota:    toQuotaResponse(decision),
		})
	}
}

// IncidentPreview is the unmetered teaser endpoint. Anonymous requests are
// allowed; the response says whether a record exists but withholds the
// incident details.
func IncidentPreview(svc IncidentService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "lookup service unavailable"))
			return
		}

		address := strings.TrimSpace(r.URL.Query().Get("address"))
		if address == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "address is required"))
			return
		}

		result, err := svc.Lookup(r.Context(), address)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payload := previewResponse{Match: string(result.Match)}
		if result.Incident != nil {
			payload.DateReported = result.Incident.DateReported
		}
		responses.WriteSuccess(w, payload)
	}
}

// UsageStatus reports the caller's quota position without consuming it.
func UsageStatus(gate LookupGate, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if gate == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "entitlement service unavailable"))
			return
		}

		accountID := middleware.AccountIDFromContext(r.Context())
		if accountID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		decision, err := gate.Check(r.Context(), accountID, usage.ActionAddressLookup)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, toQuotaResponse(decision))
	}
}
