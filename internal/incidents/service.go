package incidents

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/wjtan-dev/blockwatch-backend/pkg/db/models"
	apperrors "github.com/wjtan-dev/blockwatch-backend/pkg/errors"
	"gorm.io/gorm"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// NormalizeAddress lowercases, trims, and collapses internal whitespace so
// lookups match the normalized column written at import time.
func NormalizeAddress(input string) string {
	return whitespaceRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(input)), " ")
}

// Match describes how a lookup result was found.
type Match string

const (
	MatchExact   Match = "exact"
	MatchPartial Match = "partial"
	MatchNone    Match = "none"
)

// LookupResult is the newest incident for an address, if any.
type LookupResult struct {
	Incident *models.Incident
	Match    Match
}

// ServiceParams carries the dependencies for the incident service.
type ServiceParams struct {
	Repo Repository
}

// Service answers address lookups against the imported incident data. An
// exact normalized match wins; otherwise the newest row whose normalized
// location contains the query is returned.
type Service struct {
	repo Repository
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("incidents service requires a repository")
	}
	return &Service{repo: params.Repo}, nil
}

// Lookup returns the newest incident matching the address. A miss is not an
// error; the result carries MatchNone.
func (s *Service) Lookup(ctx context.Context, address string) (LookupResult, error) {
	normalized := NormalizeAddress(address)
	if normalized == "" {
		return LookupResult{}, apperrors.New(apperrors.CodeValidation, "address is required")
	}

	incident, err := s.repo.FindLatestByNormalized(ctx, normalized)
	if err == nil {
		return LookupResult{Incident: incident, Match: MatchExact}, nil
	}
	if err != gorm.ErrRecordNotFound {
		return LookupResult{}, apperrors.Wrap(apperrors.CodeInternal, err, "querying incidents")
	}

	incident, err = s.repo.FindLatestContaining(ctx, normalized)
	if err == nil {
		return LookupResult{Incident: incident, Match: MatchPartial}, nil
	}
	if err != gorm.ErrRecordNotFound {
		return LookupResult{}, apperrors.Wrap(apperrors.CodeInternal, err, "querying incidents")
	}

	return LookupResult{Match: MatchNone}, nil
}

// Count reports how many incident rows are loaded. Used by the health check
// and the importer summary.
func (s *Service) Count(ctx context.Context) (int64, error) {
	count, err := s.repo.CountAll(ctx)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.CodeInternal, err, "counting incidents")
	}
	return count, nil
}
