package usage

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/wjtan-dev/blockwatch-backend/pkg/db/models"
	apperrors "github.com/wjtan-dev/blockwatch-backend/pkg/errors"
)

// ActionAddressLookup is the metered action recorded for incident lookups.
const ActionAddressLookup = "address_lookup"

// ServiceParams carries the dependencies for the usage service.
type ServiceParams struct {
	Repo Repository
}

// Service wraps the append-only usage ledger. Rows are never updated or
// deleted; consumed quota only grows.
type Service struct {
	repo Repository
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("usage service requires a repository")
	}
	return &Service{repo: params.Repo}, nil
}

// Record appends one usage row for the given account and action.
func (s *Service) Record(ctx context.Context, accountID uuid.UUID, actionKind, subject string) error {
	actionKind = strings.TrimSpace(actionKind)
	if accountID == uuid.Nil || actionKind == "" {
		return apperrors.New(apperrors.CodeValidation, "account id and action kind are required")
	}

	record := &models.UsageRecord{
		AccountID:  accountID,
		ActionKind: actionKind,
		Subject:    subject,
	}
	if err := s.repo.Append(ctx, record); err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, err, "appending usage record")
	}
	return nil
}

// Consumed returns how many rows the account has for an action.
func (s *Service) Consumed(ctx context.Context, accountID uuid.UUID, actionKind string) (int64, error) {
	count, err := s.repo.CountByAccountAction(ctx, accountID, actionKind)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.CodeInternal, err, "counting usage")
	}
	return count, nil
}

// History returns the most recent usage rows for an account.
func (s *Service) History(ctx context.Context, accountID uuid.UUID, limit int) ([]models.UsageRecord, error) {
	records, err := s.repo.ListByAccount(ctx, accountID, limit)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "listing usage")
	}
	return records, nil
}
