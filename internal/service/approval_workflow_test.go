package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/payout-ledger/internal/domain/ledger"
	"github.com/ignatzorin/payout-ledger/internal/domain/valueobject"
	"github.com/ignatzorin/payout-ledger/internal/dto"
	"github.com/ignatzorin/payout-ledger/internal/models"
	"github.com/ignatzorin/payout-ledger/internal/pkg/apperror"
	"github.com/ignatzorin/payout-ledger/internal/repository/memory"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishLedgerUpdate(event dto.LedgerEvent) error {
	args := m.Called(event)
	return args.Error(0)
}

type failingUserDirectory struct{}

func (failingUserDirectory) GetUsersByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.UserSummary, error) {
	return nil, errors.New("users backend unavailable")
}

func newTestWorkflow(store *memory.Store, publisher LedgerEventPublisher) *ApprovalWorkflow {
	w := NewApprovalWorkflow(store, store, store, NewEntityResolver(store, MaxResolverBatchSize, 2), newTestEngine(store), publisher)
	w.now = func() time.Time { return fixedNow }
	return w
}

func TestApprovalWorkflow_Snapshot(t *testing.T) {
	store := memory.NewStore()
	student := models.UserSummary{ID: uuid.New(), DisplayName: "Alex Kim", Role: "student"}
	store.PutUser(student)

	low := seedWallet(t, store, "10", "0", "10", "0")
	high := seedWallet(t, store, "70", "80", "150", "0")
	details := "IBAN DE89 3704"
	high.PaymentDetails = &details
	store.PutWallet(high)
	store.PutUser(models.UserSummary{ID: high.UserID, DisplayName: "Maria Lopez", Role: models.WalletUserTypeTutor})

	occurred := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	session := models.RelatedEntity{ID: uuid.New(), Collection: valueobject.CollectionSessions, StudentID: &student.ID, Title: "IELTS speaking", OccurredAt: &occurred}
	store.PutEntity(session)

	seedRelatedEarning(t, store, low, "50", valueobject.RelatedKindTutoringSession, session.ID)
	seedTx(t, store, low, valueobject.TransactionTypeEarning, valueobject.TransactionStatusApproved, "5")
	held := seedTx(t, store, high, valueobject.TransactionTypePayoutRequest, valueobject.TransactionStatusHold, "-30")
	pending := seedTx(t, store, high, valueobject.TransactionTypePayoutRequest, valueobject.TransactionStatusPending, "-50")
	seedTx(t, store, high, valueobject.TransactionTypePayoutRequest, valueobject.TransactionStatusRejected, "-10")

	snap, err := newTestWorkflow(store, nil).Snapshot(context.Background())
	require.NoError(t, err)

	assert.True(t, snap.WalletsSorted)
	assert.Empty(t, snap.Warnings)
	assert.Equal(t, fixedNow, snap.GeneratedAt)
	require.Len(t, snap.Wallets, 2)
	assert.Equal(t, high.ID, snap.Wallets[0].ID)
	assert.Equal(t, low.ID, snap.Wallets[1].ID)
	require.NotNil(t, snap.Wallets[0].Owner)
	assert.Equal(t, "Maria Lopez", snap.Wallets[0].Owner.DisplayName)
	assert.Nil(t, snap.Wallets[1].Owner)

	require.Len(t, snap.PendingEarnings, 1)
	related := snap.PendingEarnings[0].Related
	require.NotNil(t, related)
	assert.True(t, related.Resolved)
	assert.Equal(t, "Tutoring session: IELTS speaking (2026-05-01)", related.Label)
	require.NotNil(t, related.Student)
	assert.Equal(t, "Alex Kim", related.Student.DisplayName)

	require.Len(t, snap.PayoutRequests, 2)
	assert.Equal(t, held.ID, snap.PayoutRequests[0].ID)
	assert.Equal(t, pending.ID, snap.PayoutRequests[1].ID)
	assert.Equal(t, "$50.00", snap.PayoutRequests[1].RequestedAmount)
	require.NotNil(t, snap.PayoutRequests[1].PaymentDetails)
	assert.Equal(t, details, *snap.PayoutRequests[1].PaymentDetails)
}

func TestApprovalWorkflow_SnapshotFallsBackToUnsortedWallets(t *testing.T) {
	store := memory.NewStore()
	seedWallet(t, store, "10", "0", "10", "0")
	seedWallet(t, store, "20", "0", "20", "0")
	store.SetSortIndexAvailable(false)

	snap, err := newTestWorkflow(store, nil).Snapshot(context.Background())
	require.NoError(t, err)

	assert.False(t, snap.WalletsSorted)
	assert.Len(t, snap.Wallets, 2)
	assert.Contains(t, snap.Warnings, "wallets are not sorted by balance")
}

func TestApprovalWorkflow_SnapshotDegradesOnLookupFailures(t *testing.T) {
	store := memory.NewStore()
	w := seedWallet(t, store, "0", "0", "0", "0")

	visaCase := models.RelatedEntity{ID: uuid.New(), Collection: valueobject.CollectionCases, Title: "F-1 / United States"}
	store.PutEntity(visaCase)
	sessionID := uuid.New()
	store.PutEntity(models.RelatedEntity{ID: sessionID, Collection: valueobject.CollectionSessions, Title: "Math"})
	store.InjectFetchFaults(valueobject.CollectionSessions, errors.New("lookup timed out"))

	seedRelatedEarning(t, store, w, "40", valueobject.RelatedKindTutoringSession, sessionID)
	seedRelatedEarning(t, store, w, "120", valueobject.RelatedKindVisaCommission, visaCase.ID)

	wf := newTestWorkflow(store, nil)
	wf.users = failingUserDirectory{}

	snap, err := wf.Snapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, snap.PendingEarnings, 2)

	unresolved := snap.PendingEarnings[0].Related
	assert.False(t, unresolved.Resolved)
	assert.Equal(t, "tutoring_session:"+sessionID.String(), unresolved.Label)

	resolved := snap.PendingEarnings[1].Related
	assert.True(t, resolved.Resolved)
	assert.Equal(t, "Visa case: F-1 / United States", resolved.Label)

	assert.Nil(t, snap.Wallets[0].Owner)
	assert.Contains(t, snap.Warnings, "user details unavailable")
	assert.Contains(t, snap.Warnings, "some tutoring_session details could not be loaded")
}

func TestApprovalWorkflow_ActPublishesAndRefreshes(t *testing.T) {
	store := memory.NewStore()
	w := seedWallet(t, store, "100", "0", "100", "0")
	earning := seedTx(t, store, w, valueobject.TransactionTypeEarning, valueobject.TransactionStatusPending, "50")

	publisher := new(mockPublisher)
	publisher.On("PublishLedgerUpdate", mock.MatchedBy(func(e dto.LedgerEvent) bool {
		return e.TransactionID == earning.ID &&
			e.WalletID == w.ID &&
			e.Status == valueobject.TransactionStatusApproved &&
			e.AdminID == admin.AdminID
	})).Return(nil).Once()

	outcome, err := newTestWorkflow(store, publisher).Act(context.Background(), admin, ledger.OpApproveEarning, earning.ID, "")
	require.NoError(t, err)

	assert.True(t, outcome.Applied)
	assert.NoError(t, outcome.Err)
	assert.Equal(t, "Earning of $50.00 approved", outcome.Message)
	require.NotNil(t, outcome.Snapshot)
	assert.Empty(t, outcome.Snapshot.PendingEarnings)
	requireAggregates(t, outcome.Snapshot.Wallets[0].Wallet, "150", "0", "150", "0")
	publisher.AssertExpectations(t)
}

func TestApprovalWorkflow_ActReportsRefusal(t *testing.T) {
	store := memory.NewStore()
	w := seedWallet(t, store, "100", "0", "100", "0")
	earning := seedTx(t, store, w, valueobject.TransactionTypeEarning, valueobject.TransactionStatusApproved, "50")

	publisher := new(mockPublisher)
	outcome, err := newTestWorkflow(store, publisher).Act(context.Background(), admin, ledger.OpApproveEarning, earning.ID, "")
	require.NoError(t, err)

	assert.False(t, outcome.Applied)
	assert.Equal(t, apperror.ErrCodeInvalidTransition, outcome.Code)
	assert.Contains(t, outcome.Message, "already processed")
	assert.True(t, apperror.IsInvalidTransition(outcome.Err))
	assert.NotNil(t, outcome.Snapshot)
	publisher.AssertNotCalled(t, "PublishLedgerUpdate", mock.Anything)
}

func TestApprovalWorkflow_PublishFailureDoesNotFailAction(t *testing.T) {
	store := memory.NewStore()
	w := seedWallet(t, store, "70", "80", "150", "0")
	payout := seedTx(t, store, w, valueobject.TransactionTypePayoutRequest, valueobject.TransactionStatusPending, "-80")

	publisher := new(mockPublisher)
	publisher.On("PublishLedgerUpdate", mock.Anything).Return(errors.New("queue full")).Once()

	outcome, err := newTestWorkflow(store, publisher).Act(context.Background(), admin, ledger.OpHoldPayout, payout.ID, "check documents")
	require.NoError(t, err)

	assert.True(t, outcome.Applied)
	assert.Equal(t, "Payout of $80.00 put on hold", outcome.Message)
	require.Len(t, outcome.Snapshot.PayoutRequests, 1)
	assert.Equal(t, valueobject.TransactionStatusHold, outcome.Snapshot.PayoutRequests[0].Status)
	publisher.AssertExpectations(t)
}
