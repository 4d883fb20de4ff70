package entitlement

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/wjtan-dev/blockwatch-backend/pkg/config"
	"github.com/wjtan-dev/blockwatch-backend/pkg/db/models"
	"github.com/wjtan-dev/blockwatch-backend/pkg/enums"
	apperrors "github.com/wjtan-dev/blockwatch-backend/pkg/errors"
)

type stubAccounts struct {
	mu   sync.Mutex
	tier map[uuid.UUID]enums.Tier
}

func (s *stubAccounts) GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tier, ok := s.tier[id]
	if !ok {
		return nil, apperrors.New(apperrors.CodeNotFound, "account not found")
	}
	return &models.Account{ID: id, Tier: tier}, nil
}

type stubLedger struct {
	mu      sync.Mutex
	counts  map[string]int64
	appends int
}

func ledgerKey(accountID uuid.UUID, actionKind string) string {
	return accountID.String() + "/" + actionKind
}

func (s *stubLedger) Consumed(ctx context.Context, accountID uuid.UUID, actionKind string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[ledgerKey(accountID, actionKind)], nil
}

func (s *stubLedger) Record(ctx context.Context, accountID uuid.UUID, actionKind, subject string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.counts == nil {
		s.counts = map[string]int64{}
	}
	s.counts[ledgerKey(accountID, actionKind)]++
	s.appends++
	return nil
}

func newGate(t *testing.T, accounts *stubAccounts, ledger *stubLedger, limit int) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Accounts: accounts,
		Usage:    ledger,
		Quota:    config.QuotaConfig{FreeLookupLimit: limit},
	})
	require.NoError(t, err)
	return svc
}

func TestFreeTierAllowsUpToLimitThenDenies(t *testing.T) {
	accountID := uuid.New()
	accounts := &stubAccounts{tier: map[uuid.UUID]enums.Tier{accountID: enums.TierFree}}
	ledger := &stubLedger{counts: map[string]int64{}}
	gate := newGate(t, accounts, ledger, 1)

	ctx := context.Background()

	decision, err := gate.AuthorizeAndRecord(ctx, accountID, "address_lookup", "123 main st", nil)
	require.NoError(t, err)
	require.True(t, decision.Allowed)
	require.EqualValues(t, 0, decision.Remaining())

	_, err = gate.AuthorizeAndRecord(ctx, accountID, "address_lookup", "456 oak ave", nil)
	require.Error(t, err)
	require.Equal(t, apperrors.CodeQuotaExceeded, apperrors.As(err).Code())

	// The denied attempt must not reach the ledger.
	require.Equal(t, 1, ledger.appends)
}

func TestPaidTierIsUnlimited(t *testing.T) {
	accountID := uuid.New()
	accounts := &stubAccounts{tier: map[uuid.UUID]enums.Tier{accountID: enums.TierPaid}}
	ledger := &stubLedger{counts: map[string]int64{}}
	gate := newGate(t, accounts, ledger, 1)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		decision, err := gate.AuthorizeAndRecord(ctx, accountID, "address_lookup", "123 main st", nil)
		require.NoError(t, err)
		require.True(t, decision.Allowed)
		require.True(t, decision.Unlimited)
		require.EqualValues(t, -1, decision.Remaining())
	}
	require.Equal(t, 5, ledger.appends)
}

func TestGateReadsTierFromStoreNotSnapshot(t *testing.T) {
	accountID := uuid.New()
	accounts := &stubAccounts{tier: map[uuid.UUID]enums.Tier{accountID: enums.TierFree}}
	ledger := &stubLedger{counts: map[string]int64{}}
	gate := newGate(t, accounts, ledger, 1)

	ctx := context.Background()
	_, err := gate.AuthorizeAndRecord(ctx, accountID, "address_lookup", "a", nil)
	require.NoError(t, err)
	_, err = gate.AuthorizeAndRecord(ctx, accountID, "address_lookup", "b", nil)
	require.Equal(t, apperrors.CodeQuotaExceeded, apperrors.As(err).Code())

	// Upgrade lands mid-session; the next request sees it immediately.
	accounts.mu.Lock()
	accounts.tier[accountID] = enums.TierPaid
	accounts.mu.Unlock()

	decision, err := gate.AuthorizeAndRecord(ctx, accountID, "address_lookup", "c", nil)
	require.NoError(t, err)
	require.True(t, decision.Unlimited)
}

func TestConcurrentRequestsNeverOverrunQuota(t *testing.T) {
	accountID := uuid.New()
	accounts := &stubAccounts{tier: map[uuid.UUID]enums.Tier{accountID: enums.TierFree}}
	ledger := &stubLedger{counts: map[string]int64{}}
	gate := newGate(t, accounts, ledger, 1)

	const workers = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := gate.AuthorizeAndRecord(context.Background(), accountID, "address_lookup", "123 main st", nil)
			if err == nil {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, allowed)
	require.Equal(t, 1, ledger.appends)
}

func TestFailedActionDoesNotConsumeQuota(t *testing.T) {
	accountID := uuid.New()
	accounts := &stubAccounts{tier: map[uuid.UUID]enums.Tier{accountID: enums.TierFree}}
	ledger := &stubLedger{counts: map[string]int64{}}
	gate := newGate(t, accounts, ledger, 1)

	ctx := context.Background()
	_, err := gate.AuthorizeAndRecord(ctx, accountID, "address_lookup", "123 main st", func(context.Context) error {
		return apperrors.New(apperrors.CodeInternal, "storage unavailable")
	})
	require.Error(t, err)
	require.Zero(t, ledger.appends)

	// The free use survives the failure and the retry still goes through.
	decision, err := gate.AuthorizeAndRecord(ctx, accountID, "address_lookup", "123 main st", nil)
	require.NoError(t, err)
	require.True(t, decision.Allowed)
	require.Equal(t, 1, ledger.appends)
}

func TestCheckDoesNotRecord(t *testing.T) {
	accountID := uuid.New()
	accounts := &stubAccounts{tier: map[uuid.UUID]enums.Tier{accountID: enums.TierFree}}
	ledger := &stubLedger{counts: map[string]int64{}}
	gate := newGate(t, accounts, ledger, 1)

	decision, err := gate.Check(context.Background(), accountID, "address_lookup")
	require.NoError(t, err)
	require.True(t, decision.Allowed)
	require.EqualValues(t, 1, decision.Remaining())
	require.Zero(t, ledger.appends)
}

func TestUnknownAccountSurfacesError(t *testing.T) {
	accounts := &stubAccounts{tier: map[uuid.UUID]enums.Tier{}}
	gate := newGate(t, accounts, &stubLedger{counts: map[string]int64{}}, 1)

	_, err := gate.AuthorizeAndRecord(context.Background(), uuid.New(), "address_lookup", "x", nil)
	require.Equal(t, apperrors.CodeNotFound, apperrors.As(err).Code())
}
