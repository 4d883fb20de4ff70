package accounts

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"github.com/wjtan-dev/blockwatch-backend/pkg/config"
	"github.com/wjtan-dev/blockwatch-backend/pkg/db"
	"github.com/wjtan-dev/blockwatch-backend/pkg/db/models"
	"github.com/wjtan-dev/blockwatch-backend/pkg/enums"
	apperrors "github.com/wjtan-dev/blockwatch-backend/pkg/errors"
	"github.com/wjtan-dev/blockwatch-backend/pkg/security"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams carries the dependencies for the account service.
type ServiceParams struct {
	Repo     Repository
	Tx       txRunner
	Password config.PasswordConfig
}

// Service owns account registration, credential checks, and tier writes.
type Service struct {
	repo     Repository
	tx       txRunner
	password config.PasswordConfig
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("accounts service requires a repository")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("accounts service requires a tx runner")
	}
	return &Service{
		repo:     params.Repo,
		tx:       params.Tx,
		password: params.Password,
	}, nil
}

// NormalizeEmail lowercases and trims an email before storage or lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a free-tier account with an Argon2id password hash.
func (s *Service) Register(ctx context.Context, email, password string) (*models.Account, error) {
	email = NormalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperrors.New(apperrors.CodeValidation, "invalid email address")
	}
	if len(password) < s.password.MinLength {
		return nil, apperrors.New(apperrors.CodeValidation,
			fmt.Sprintf("password must be at least %d characters", s.password.MinLength))
	}

	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, apperrors.New(apperrors.CodeConflict, "email already registered")
	} else if err != gorm.ErrRecordNotFound {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "checking existing account")
	}

	hash, err := security.HashPassword(password, s.password)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "hashing password")
	}

	account := &models.Account{
		Email:        email,
		PasswordHash: hash,
		Tier:         enums.TierFree,
	}
	if err := s.repo.Create(ctx, account); err != nil {
		if db.IsUniqueViolation(err, "idx_accounts_email") {
			return nil, apperrors.New(apperrors.CodeConflict, "email already registered")
		}
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "creating account")
	}
	return account, nil
}

// VerifyCredentials checks email+password and returns the matching account.
// Failures are reported with a single generic message regardless of cause.
func (s *Service) VerifyCredentials(ctx context.Context, email, password string) (*models.Account, error) {
	account, err := s.repo.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.New(apperrors.CodeUnauthorized, "invalid credentials")
		}
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "looking up account")
	}

	ok, err := security.VerifyPassword(password, account.PasswordHash)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "verifying password")
	}
	if !ok {
		return nil, apperrors.New(apperrors.CodeUnauthorized, "invalid credentials")
	}
	return account, nil
}

// GetByID loads an account for profile reads and session refresh.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	account, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.New(apperrors.CodeNotFound, "account not found")
		}
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "loading account")
	}
	return account, nil
}

// SetTier writes the account's tier as an absolute state inside a transaction.
// Repeated calls with the same target state are no-ops, so billing events can
// be replayed safely.
func (s *Service) SetTier(ctx context.Context, id uuid.UUID, tier enums.Tier, subscriptionID string) error {
	if !tier.IsValid() {
		return apperrors.New(apperrors.CodeValidation, fmt.Sprintf("unknown tier %q", tier))
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		account, err := repo.FindByIDForUpdate(ctx, id)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return apperrors.New(apperrors.CodeNotFound, "account not found")
			}
			return apperrors.Wrap(apperrors.CodeInternal, err, "locking account")
		}

		account.Tier = tier
		if tier == enums.TierPaid {
			if subscriptionID != "" {
				account.StripeSubscriptionID = &subscriptionID
			}
		} else {
			account.StripeSubscriptionID = nil
		}

		if err := repo.Save(ctx, account); err != nil {
			return apperrors.Wrap(apperrors.CodeInternal, err, "saving tier change")
		}
		return nil
	})
}

// ApplyCheckout upgrades an account after a completed checkout. The customer
// reference, subscription reference, and tier land in one transaction so a
// partial write cannot leave a customer ref on a free account.
func (s *Service) ApplyCheckout(ctx context.Context, id uuid.UUID, customerID, subscriptionID string) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		account, err := repo.FindByIDForUpdate(ctx, id)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return apperrors.New(apperrors.CodeNotFound, "account not found")
			}
			return apperrors.Wrap(apperrors.CodeInternal, err, "locking account")
		}

		account.Tier = enums.TierPaid
		if customerID != "" {
			account.StripeCustomerID = &customerID
		}
		if subscriptionID != "" {
			account.StripeSubscriptionID = &subscriptionID
		}

		if err := repo.Save(ctx, account); err != nil {
			return apperrors.Wrap(apperrors.CodeInternal, err, "saving checkout upgrade")
		}
		return nil
	})
}

// SetTierBySubscription resolves the owning account by its stored
// subscription reference and writes the tier, locking the row for the whole
// resolve-and-write. An unmatched reference reports NotFound.
func (s *Service) SetTierBySubscription(ctx context.Context, subscriptionID string, tier enums.Tier) error {
	if !tier.IsValid() {
		return apperrors.New(apperrors.CodeValidation, fmt.Sprintf("unknown tier %q", tier))
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		account, err := repo.FindByStripeSubscriptionIDForUpdate(ctx, subscriptionID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return apperrors.New(apperrors.CodeNotFound, "no account for subscription")
			}
			return apperrors.Wrap(apperrors.CodeInternal, err, "resolving subscription")
		}

		account.Tier = tier
		if tier != enums.TierPaid {
			account.StripeSubscriptionID = nil
		}

		if err := repo.Save(ctx, account); err != nil {
			return apperrors.Wrap(apperrors.CodeInternal, err, "saving tier change")
		}
		return nil
	})
}

// ChangePassword replaces the stored hash after verifying the current one.
func (s *Service) ChangePassword(ctx context.Context, id uuid.UUID, current, next string) error {
	account, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	ok, err := security.VerifyPassword(current, account.PasswordHash)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, err, "verifying password")
	}
	if !ok {
		return apperrors.New(apperrors.CodeUnauthorized, "invalid credentials")
	}
	return s.resetPassword(ctx, id, next)
}

// ResetPassword overwrites the stored hash without checking the old one. The
// caller is responsible for having consumed a valid reset token first.
func (s *Service) ResetPassword(ctx context.Context, id uuid.UUID, next string) error {
	return s.resetPassword(ctx, id, next)
}

func (s *Service) resetPassword(ctx context.Context, id uuid.UUID, next string) error {
	if len(next) < s.password.MinLength {
		return apperrors.New(apperrors.CodeValidation,
			fmt.Sprintf("password must be at least %d characters", s.password.MinLength))
	}
	hash, err := security.HashPassword(next, s.password)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, err, "hashing password")
	}
	if err := s.repo.UpdatePasswordHash(ctx, id, hash); err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, err, "updating password")
	}
	return nil
}
