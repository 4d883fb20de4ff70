package passwordreset

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/wjtan-dev/blockwatch-backend/internal/accounts"
	"github.com/wjtan-dev/blockwatch-backend/pkg/db/models"
	pkgerrors "github.com/wjtan-dev/blockwatch-backend/pkg/errors"
	"github.com/wjtan-dev/blockwatch-backend/pkg/security"
	"gorm.io/gorm"
)

const (
	tokenBytes = 32
	tokenTTL   = time.Hour
)

type accountSource interface {
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
}

type passwordWriter interface {
	ResetPassword(ctx context.Context, id uuid.UUID, next string) error
}

type ServiceParams struct {
	Repo     Repository
	Accounts accountSource
	Password passwordWriter
	Now      func() time.Time
}

// Service issues and consumes single-use password reset tokens. Request never
// reveals whether an email is registered.
type Service struct {
	repo     Repository
	accounts accountSource
	password passwordWriter
	now      func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "reset token repo required")
	}
	if params.Accounts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "account source required")
	}
	if params.Password == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "password writer required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:     params.Repo,
		accounts: params.Accounts,
		password: params.Password,
		now:      now,
	}, nil
}

// Request creates a reset token for the email's account. The returned token
// is empty when the email is unknown; callers respond identically either way.
func (s *Service) Request(ctx context.Context, email string) (string, error) {
	account, err := s.accounts.FindByEmail(ctx, accounts.NormalizeEmail(email))
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", nil
		}
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "looking up account")
	}

	token, err := security.GenerateOpaqueToken(tokenBytes)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generating token")
	}

	row := &models.PasswordResetToken{
		AccountID: account.ID,
		Token:     token,
		ExpiresAt: s.now().Add(tokenTTL),
	}
	if err := s.repo.Create(ctx, row); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "storing token")
	}
	return token, nil
}

// Confirm consumes a token and writes the new password. Expired, used, and
// unknown tokens all fail with the same message.
func (s *Service) Confirm(ctx context.Context, token, newPassword string) error {
	row, err := s.repo.FindByToken(ctx, token)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid or expired token")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "looking up token")
	}
	if row.Used || s.now().After(row.ExpiresAt) {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid or expired token")
	}

	if err := s.password.ResetPassword(ctx, row.AccountID, newPassword); err != nil {
		return err
	}
	if err := s.repo.MarkUsed(ctx, row.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marking token used")
	}
	return nil
}
