package accounts

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/wjtan-dev/blockwatch-backend/pkg/config"
	"github.com/wjtan-dev/blockwatch-backend/pkg/db/models"
	"github.com/wjtan-dev/blockwatch-backend/pkg/enums"
	apperrors "github.com/wjtan-dev/blockwatch-backend/pkg/errors"
	"gorm.io/gorm"
)

type fakeRepo struct {
	byID map[uuid.UUID]*models.Account
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{byID: map[uuid.UUID]*models.Account{}}
}

func (f *fakeRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepo) Create(ctx context.Context, account *models.Account) error {
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	for _, existing := range f.byID {
		if existing.Email == account.Email {
			return gorm.ErrDuplicatedKey
		}
	}
	clone := *account
	f.byID[account.ID] = &clone
	return nil
}

func (f *fakeRepo) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	for _, account := range f.byID {
		if account.Email == email {
			clone := *account
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	account, ok := f.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *account
	return &clone, nil
}

func (f *fakeRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	return f.FindByID(ctx, id)
}

func (f *fakeRepo) FindByStripeSubscriptionIDForUpdate(ctx context.Context, subscriptionID string) (*models.Account, error) {
	for _, account := range f.byID {
		if account.StripeSubscriptionID != nil && *account.StripeSubscriptionID == subscriptionID {
			clone := *account
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) Save(ctx context.Context, account *models.Account) error {
	clone := *account
	f.byID[account.ID] = &clone
	return nil
}

func (f *fakeRepo) UpdatePasswordHash(ctx context.Context, id uuid.UUID, passwordHash string) error {
	account, ok := f.byID[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	account.PasswordHash = passwordHash
	return nil
}

type fakeTx struct{}

func (fakeTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func testPasswordConfig() config.PasswordConfig {
	return config.PasswordConfig{
		MinLength:        8,
		ArgonMemoryKB:    64,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	}
}

func newTestService(t *testing.T) (*Service, *fakeRepo) {
	t.Helper()
	repo := newFakeRepo()
	svc, err := NewService(ServiceParams{Repo: repo, Tx: fakeTx{}, Password: testPasswordConfig()})
	require.NoError(t, err)
	return svc, repo
}

func TestRegisterAndVerifyCredentials(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	account, err := svc.Register(ctx, "  User@Example.COM ", "hunter2hunter2")
	require.NoError(t, err)
	require.Equal(t, "user@example.com", account.Email)
	require.Equal(t, enums.TierFree, account.Tier)
	require.NotEqual(t, "hunter2hunter2", account.PasswordHash)

	verified, err := svc.VerifyCredentials(ctx, "USER@example.com", "hunter2hunter2")
	require.NoError(t, err)
	require.Equal(t, account.ID, verified.ID)

	_, err = svc.VerifyCredentials(ctx, "user@example.com", "wrong-password")
	require.Error(t, err)
	require.Equal(t, apperrors.CodeUnauthorized, apperrors.As(err).Code())
}

func TestRegisterRejectsBadInput(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "not-an-email", "hunter2hunter2")
	require.Equal(t, apperrors.CodeValidation, apperrors.As(err).Code())

	_, err = svc.Register(ctx, "user@example.com", "short")
	require.Equal(t, apperrors.CodeValidation, apperrors.As(err).Code())
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "user@example.com", "hunter2hunter2")
	require.NoError(t, err)

	_, err = svc.Register(ctx, " User@Example.com ", "anotherpassword")
	require.Error(t, err)
	require.Equal(t, apperrors.CodeConflict, apperrors.As(err).Code())
}

func TestVerifyCredentialsUnknownEmail(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.VerifyCredentials(context.Background(), "nobody@example.com", "whatever123")
	require.Error(t, err)
	require.Equal(t, apperrors.CodeUnauthorized, apperrors.As(err).Code())
}

func TestSetTierAbsoluteAndIdempotent(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	account, err := svc.Register(ctx, "user@example.com", "hunter2hunter2")
	require.NoError(t, err)

	require.NoError(t, svc.SetTier(ctx, account.ID, enums.TierPaid, "sub_123"))
	stored := repo.byID[account.ID]
	require.Equal(t, enums.TierPaid, stored.Tier)
	require.NotNil(t, stored.StripeSubscriptionID)
	require.Equal(t, "sub_123", *stored.StripeSubscriptionID)

	// Replaying the same transition leaves the row unchanged.
	require.NoError(t, svc.SetTier(ctx, account.ID, enums.TierPaid, "sub_123"))
	require.Equal(t, enums.TierPaid, repo.byID[account.ID].Tier)

	require.NoError(t, svc.SetTier(ctx, account.ID, enums.TierFree, ""))
	stored = repo.byID[account.ID]
	require.Equal(t, enums.TierFree, stored.Tier)
	require.Nil(t, stored.StripeSubscriptionID)
}

func TestSetTierRejectsUnknownTier(t *testing.T) {
	svc, _ := newTestService(t)

	err := svc.SetTier(context.Background(), uuid.New(), enums.Tier("platinum"), "")
	require.Error(t, err)
	require.Equal(t, apperrors.CodeValidation, apperrors.As(err).Code())
}

func TestChangePassword(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	account, err := svc.Register(ctx, "user@example.com", "hunter2hunter2")
	require.NoError(t, err)

	err = svc.ChangePassword(ctx, account.ID, "wrong-password", "newpassword1")
	require.Equal(t, apperrors.CodeUnauthorized, apperrors.As(err).Code())

	require.NoError(t, svc.ChangePassword(ctx, account.ID, "hunter2hunter2", "newpassword1"))

	_, err = svc.VerifyCredentials(ctx, "user@example.com", "newpassword1")
	require.NoError(t, err)
}

func TestApplyCheckoutWritesAllFieldsTogether(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	account, err := svc.Register(ctx, "user@example.com", "hunter2hunter2")
	require.NoError(t, err)

	require.NoError(t, svc.ApplyCheckout(ctx, account.ID, "cus_123", "sub_abc"))
	stored := repo.byID[account.ID]
	require.Equal(t, enums.TierPaid, stored.Tier)
	require.NotNil(t, stored.StripeCustomerID)
	require.Equal(t, "cus_123", *stored.StripeCustomerID)
	require.NotNil(t, stored.StripeSubscriptionID)
	require.Equal(t, "sub_abc", *stored.StripeSubscriptionID)

	err = svc.ApplyCheckout(ctx, uuid.New(), "cus_other", "sub_other")
	require.Equal(t, apperrors.CodeNotFound, apperrors.As(err).Code())
}

func TestSetTierBySubscription(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	account, err := svc.Register(ctx, "user@example.com", "hunter2hunter2")
	require.NoError(t, err)
	require.NoError(t, svc.SetTier(ctx, account.ID, enums.TierPaid, "sub_abc"))

	require.NoError(t, svc.SetTierBySubscription(ctx, "sub_abc", enums.TierFree))
	stored := repo.byID[account.ID]
	require.Equal(t, enums.TierFree, stored.Tier)
	require.Nil(t, stored.StripeSubscriptionID)

	err = svc.SetTierBySubscription(ctx, "sub_missing", enums.TierFree)
	require.Equal(t, apperrors.CodeNotFound, apperrors.As(err).Code())
}
