package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/payout-ledger/internal/domain/valueobject"
	"github.com/ignatzorin/payout-ledger/internal/models"
	"github.com/ignatzorin/payout-ledger/internal/pkg/apperror"
	"github.com/ignatzorin/payout-ledger/internal/repository/memory"
)

var admin = Actor{AdminID: uuid.MustParse("5b7c1e9a-3f0d-4c1e-9a51-2f6d3c8b7a10")}

func TestApprovalEngine_ApproveEarning(t *testing.T) {
	store := memory.NewStore()
	w := seedWallet(t, store, "100", "0", "100", "0")
	earning := seedTx(t, store, w, valueobject.TransactionTypeEarning, valueobject.TransactionStatusPending, "50")

	result, err := newTestEngine(store).ApproveEarning(context.Background(), admin, earning.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, valueobject.TransactionStatusApproved, result.Transaction.Status)

	requireAggregates(t, loadWallet(t, store, w.ID), "150", "0", "150", "0")

	stored := loadTx(t, store, earning.ID)
	assert.Equal(t, valueobject.TransactionStatusApproved, stored.Status)
	require.NotNil(t, stored.ApprovedBy)
	assert.Equal(t, admin.AdminID, *stored.ApprovedBy)
	require.NotNil(t, stored.ApprovedAt)
	assert.Equal(t, fixedNow, *stored.ApprovedAt)
}

func TestApprovalEngine_PayoutScenario(t *testing.T) {
	t.Run("approve", func(t *testing.T) {
		store := memory.NewStore()
		w := seedWallet(t, store, "70", "80", "150", "0")
		payout := seedTx(t, store, w, valueobject.TransactionTypePayoutRequest, valueobject.TransactionStatusPending, "-80")

		_, err := newTestEngine(store).ApprovePayout(context.Background(), admin, payout.ID)
		require.NoError(t, err)

		got := loadWallet(t, store, w.ID)
		requireAggregates(t, got, "70", "0", "150", "80")
		require.NotNil(t, got.LastPayoutDate)
		assert.Equal(t, fixedNow, *got.LastPayoutDate)
	})

	t.Run("reject", func(t *testing.T) {
		store := memory.NewStore()
		w := seedWallet(t, store, "70", "80", "150", "0")
		payout := seedTx(t, store, w, valueobject.TransactionTypePayoutRequest, valueobject.TransactionStatusPending, "-80")

		_, err := newTestEngine(store).RejectPayout(context.Background(), admin, payout.ID)
		require.NoError(t, err)

		got := loadWallet(t, store, w.ID)
		requireAggregates(t, got, "150", "0", "150", "0")
		assert.Nil(t, got.LastPayoutDate)
		assert.Equal(t, valueobject.TransactionStatusRejected, loadTx(t, store, payout.ID).Status)
	})
}

func TestApprovalEngine_AtMostOnceSequential(t *testing.T) {
	store := memory.NewStore()
	w := seedWallet(t, store, "100", "0", "100", "0")
	earning := seedTx(t, store, w, valueobject.TransactionTypeEarning, valueobject.TransactionStatusPending, "50")
	engine := newTestEngine(store)

	_, err := engine.ApproveEarning(context.Background(), admin, earning.ID)
	require.NoError(t, err)

	_, err = engine.ApproveEarning(context.Background(), admin, earning.ID)
	require.Error(t, err)
	assert.True(t, apperror.IsInvalidTransition(err))

	requireAggregates(t, loadWallet(t, store, w.ID), "150", "0", "150", "0")
}

func TestApprovalEngine_AtMostOnceConcurrent(t *testing.T) {
	store := memory.NewStore()
	w := seedWallet(t, store, "100", "0", "100", "0")
	earning := seedTx(t, store, w, valueobject.TransactionTypeEarning, valueobject.TransactionStatusPending, "50")
	engine := newTestEngine(store)

	const admins = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		refused   int
	)
	for i := 0; i < admins; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.ApproveEarning(context.Background(), Actor{AdminID: uuid.New()}, earning.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case apperror.IsInvalidTransition(err):
				refused++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, admins-1, refused)
	requireAggregates(t, loadWallet(t, store, w.ID), "150", "0", "150", "0")
}

func TestApprovalEngine_ConcurrentOperationsOnOneWallet(t *testing.T) {
	store := memory.NewStore()
	w := seedWallet(t, store, "0", "0", "0", "0")

	var earnings []models.WalletTransaction
	for i := 0; i < 20; i++ {
		earnings = append(earnings, seedTx(t, store, w, valueobject.TransactionTypeEarning, valueobject.TransactionStatusPending, "10.25"))
	}
	engine := newTestEngine(store)

	var wg sync.WaitGroup
	for _, e := range earnings {
		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			_, err := engine.ApproveEarning(context.Background(), admin, id)
			assert.NoError(t, err)
		}(e.ID)
	}
	wg.Wait()

	requireAggregates(t, loadWallet(t, store, w.ID), "205", "0", "205", "0")
}

func TestApprovalEngine_HoldReleaseRoundTrip(t *testing.T) {
	store := memory.NewStore()
	w := seedWallet(t, store, "70", "80", "150", "0")
	payout := seedTx(t, store, w, valueobject.TransactionTypePayoutRequest, valueobject.TransactionStatusPending, "-80")
	engine := newTestEngine(store)

	held, err := engine.HoldPayout(context.Background(), admin, payout.ID, "verify bank account")
	require.NoError(t, err)
	assert.Equal(t, valueobject.TransactionStatusHold, held.Transaction.Status)

	stored := loadTx(t, store, payout.ID)
	require.NotNil(t, stored.Notes)
	assert.Equal(t, "HOLD: verify bank account", *stored.Notes)
	requireAggregates(t, loadWallet(t, store, w.ID), "70", "80", "150", "0")

	// held payouts cannot be decided directly
	_, err = engine.ApprovePayout(context.Background(), admin, payout.ID)
	assert.True(t, apperror.IsInvalidTransition(err))

	_, err = engine.ReleaseHold(context.Background(), admin, payout.ID)
	require.NoError(t, err)

	released := loadTx(t, store, payout.ID)
	assert.Equal(t, valueobject.TransactionStatusPending, released.Status)
	assert.Equal(t, "HOLD: verify bank account", *released.Notes)
	requireAggregates(t, loadWallet(t, store, w.ID), "70", "80", "150", "0")

	_, err = engine.ApprovePayout(context.Background(), admin, payout.ID)
	require.NoError(t, err)
	requireAggregates(t, loadWallet(t, store, w.ID), "70", "0", "150", "80")
}

func TestApprovalEngine_ValidatesBeforeReading(t *testing.T) {
	store := memory.NewStore()
	engine := newTestEngine(store)
	missing := uuid.New()

	_, err := engine.HoldPayout(context.Background(), admin, missing, "  ")
	assert.True(t, apperror.IsValidation(err), "empty reason must fail before the lookup, got %v", err)

	_, err = engine.ApproveEarning(context.Background(), Actor{}, missing)
	assert.True(t, apperror.IsValidation(err))

	_, err = engine.ApproveEarning(context.Background(), admin, uuid.Nil)
	assert.True(t, apperror.IsValidation(err))
}

func TestApprovalEngine_NotFound(t *testing.T) {
	store := memory.NewStore()
	engine := newTestEngine(store)

	_, err := engine.ApprovePayout(context.Background(), admin, uuid.New())
	assert.True(t, errors.Is(err, apperror.ErrTransactionNotFound))
}

func TestApprovalEngine_TransientFailureRollsBack(t *testing.T) {
	store := memory.NewStore()
	w := seedWallet(t, store, "70", "80", "150", "0")
	payout := seedTx(t, store, w, valueobject.TransactionTypePayoutRequest, valueobject.TransactionStatusPending, "-80")

	store.InjectFault(memory.FaultWalletUpdate, errors.New("connection reset by peer"))

	_, err := newTestEngine(store).RejectPayout(context.Background(), admin, payout.ID)
	require.Error(t, err)
	assert.True(t, apperror.IsTransient(err))

	// the status change made earlier in the same unit must not survive
	assert.Equal(t, valueobject.TransactionStatusPending, loadTx(t, store, payout.ID).Status)
	requireAggregates(t, loadWallet(t, store, w.ID), "70", "80", "150", "0")

	_, err = newTestEngine(store).RejectPayout(context.Background(), admin, payout.ID)
	require.NoError(t, err)
	requireAggregates(t, loadWallet(t, store, w.ID), "150", "0", "150", "0")
}

func TestApprovalEngine_RetriesSerializationFailure(t *testing.T) {
	store := memory.NewStore()
	w := seedWallet(t, store, "100", "0", "100", "0")
	earning := seedTx(t, store, w, valueobject.TransactionTypeEarning, valueobject.TransactionStatusPending, "50")

	store.InjectFault(memory.FaultCommit, &pq.Error{Code: "40001", Message: "could not serialize access"})

	result, err := newTestEngine(store).ApproveEarning(context.Background(), admin, earning.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Attempts)
	requireAggregates(t, loadWallet(t, store, w.ID), "150", "0", "150", "0")
}

func TestApprovalEngine_RefusesInconsistentWallet(t *testing.T) {
	store := memory.NewStore()
	// pending_payout does not cover the request
	w := seedWallet(t, store, "70", "20", "150", "0")
	payout := seedTx(t, store, w, valueobject.TransactionTypePayoutRequest, valueobject.TransactionStatusPending, "-80")

	_, err := newTestEngine(store).ApprovePayout(context.Background(), admin, payout.ID)
	require.Error(t, err)
	assert.Equal(t, apperror.ErrCodeLedgerInconsistency, apperror.CodeOf(err))

	assert.Equal(t, valueobject.TransactionStatusPending, loadTx(t, store, payout.ID).Status)
	requireAggregates(t, loadWallet(t, store, w.ID), "70", "20", "150", "0")
}

func TestApprovalEngine_PendingPayoutMatchesOpenRequests(t *testing.T) {
	store := memory.NewStore()
	w := seedWallet(t, store, "20", "130", "150", "0")
	a := seedTx(t, store, w, valueobject.TransactionTypePayoutRequest, valueobject.TransactionStatusPending, "-50")
	b := seedTx(t, store, w, valueobject.TransactionTypePayoutRequest, valueobject.TransactionStatusPending, "-30")
	c := seedTx(t, store, w, valueobject.TransactionTypePayoutRequest, valueobject.TransactionStatusPending, "-50")
	engine := newTestEngine(store)
	ctx := context.Background()

	_, err := engine.HoldPayout(ctx, admin, a.ID, "kyc")
	require.NoError(t, err)
	_, err = engine.ApprovePayout(ctx, admin, b.ID)
	require.NoError(t, err)
	_, err = engine.RejectPayout(ctx, admin, c.ID)
	require.NoError(t, err)

	txs, err := store.ListWalletTransactions(ctx, w.ID)
	require.NoError(t, err)
	open := decimal.Zero
	for _, tx := range txs {
		if tx.TransactionType == valueobject.TransactionTypePayoutRequest && tx.Status.ReservesPayout() {
			open = open.Add(tx.AmountUSD.Abs())
		}
	}

	got := loadWallet(t, store, w.ID)
	assert.True(t, got.PendingPayout.Equal(open), "pending_payout %s, open requests %s", got.PendingPayout, open)
	requireAggregates(t, got, "70", "50", "150", "30")
}
