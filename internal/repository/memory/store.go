// Package memory is an in-process implementation of the ledger store
// interfaces. Atomic units are serialized, staged and committed only when
// the unit returns nil.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	domainrepo "github.com/ignatzorin/payout-ledger/internal/domain/repository"
	"github.com/ignatzorin/payout-ledger/internal/domain/valueobject"
	"github.com/ignatzorin/payout-ledger/internal/models"
	"github.com/ignatzorin/payout-ledger/internal/pkg/apperror"
	"github.com/ignatzorin/payout-ledger/internal/repository/common"
)

// MaxLookupIDs mirrors the backend limit on one id lookup.
const MaxLookupIDs = 10

// FaultPoint names a place where a one-shot failure can be injected.
type FaultPoint string

const (
	FaultStatusUpdate FaultPoint = "status_update"
	FaultWalletUpdate FaultPoint = "wallet_update"
	FaultCommit       FaultPoint = "commit"
	FaultSortedList   FaultPoint = "sorted_list"
)

// ErrSortIndexUnavailable is returned by sorted listings when the sort index
// has been switched off.
var ErrSortIndexUnavailable = errors.New("memory store: sort index unavailable")

type Store struct {
	unitMu sync.Mutex

	mu           sync.RWMutex
	wallets      map[uuid.UUID]models.Wallet
	transactions map[uuid.UUID]models.WalletTransaction
	order        []uuid.UUID
	users        map[uuid.UUID]models.UserSummary
	entities     map[string]map[uuid.UUID]models.RelatedEntity
	faults       map[FaultPoint]error
	fetchFaults  map[string][]error
	fetchCalls   map[string]int
	noSortIndex  bool
	now          func() time.Time
}

func NewStore() *Store {
	return &Store{
		wallets:      make(map[uuid.UUID]models.Wallet),
		transactions: make(map[uuid.UUID]models.WalletTransaction),
		users:        make(map[uuid.UUID]models.UserSummary),
		entities:     make(map[string]map[uuid.UUID]models.RelatedEntity),
		faults:       make(map[FaultPoint]error),
		fetchFaults:  make(map[string][]error),
		fetchCalls:   make(map[string]int),
		now:          time.Now,
	}
}

// PutWallet inserts or replaces a wallet.
func (s *Store) PutWallet(w models.Wallet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w.CreatedAt.IsZero() {
		w.CreatedAt = s.now()
		w.UpdatedAt = w.CreatedAt
	}
	s.wallets[w.ID] = w
}

// PutUser inserts or replaces a user summary.
func (s *Store) PutUser(u models.UserSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

// PutEntity inserts or replaces a related entity in its collection.
func (s *Store) PutEntity(e models.RelatedEntity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entities[e.Collection] == nil {
		s.entities[e.Collection] = make(map[uuid.UUID]models.RelatedEntity)
	}
	s.entities[e.Collection][e.ID] = e
}

// InjectFault makes the next operation at point fail with err.
func (s *Store) InjectFault(point FaultPoint, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[point] = err
}

// InjectFetchFaults queues per-call results for FetchByIDs on collection:
// the n-th call fails with errs[n] when it is non-nil.
func (s *Store) InjectFetchFaults(collection string, errs ...error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetchFaults[collection] = append(s.fetchFaults[collection], errs...)
}

// SetSortIndexAvailable toggles support for sorted wallet listings.
func (s *Store) SetSortIndexAvailable(ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.noSortIndex = !ok
}

// FetchCalls returns how many FetchByIDs calls hit collection.
func (s *Store) FetchCalls(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fetchCalls[collection]
}

func (s *Store) takeFault(point FaultPoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.faults[point]
	delete(s.faults, point)
	return err
}

func (s *Store) GetWallet(ctx context.Context, id uuid.UUID) (*models.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.wallets[id]
	if !ok {
		return nil, apperror.ErrWalletNotFound
	}
	return &w, nil
}

func (s *Store) ListWallets(ctx context.Context, sortBy models.WalletSort) ([]models.Wallet, error) {
	if sortBy == models.WalletSortBalanceDesc {
		if err := s.takeFault(FaultSortedList); err != nil {
			return nil, err
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	wallets := make([]models.Wallet, 0, len(s.wallets))
	for _, w := range s.wallets {
		wallets = append(wallets, w)
	}

	switch sortBy {
	case models.WalletSortNone:
	case models.WalletSortBalanceDesc:
		if s.noSortIndex {
			return nil, ErrSortIndexUnavailable
		}
		sort.Slice(wallets, func(i, j int) bool {
			if c := wallets[i].BalanceUSD.Cmp(wallets[j].BalanceUSD); c != 0 {
				return c > 0
			}
			return wallets[i].ID.String() < wallets[j].ID.String()
		})
	default:
		return nil, apperror.Newf(apperror.ErrCodeValidation, "unsupported wallet sort %q", sortBy)
	}
	return wallets, nil
}

func (s *Store) GetTransaction(ctx context.Context, id uuid.UUID) (*models.WalletTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tx, ok := s.transactions[id]
	if !ok {
		return nil, apperror.ErrTransactionNotFound
	}
	return &tx, nil
}

func (s *Store) ListTransactions(ctx context.Context, txType valueobject.TransactionType, statuses []valueobject.TransactionStatus) ([]models.WalletTransaction, error) {
	want := make(map[valueobject.TransactionStatus]struct{}, len(statuses))
	for _, st := range statuses {
		want[st] = struct{}{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []models.WalletTransaction{}
	for _, id := range s.order {
		tx := s.transactions[id]
		if tx.TransactionType != txType {
			continue
		}
		if _, ok := want[tx.Status]; ok {
			result = append(result, tx)
		}
	}
	return result, nil
}

func (s *Store) ListWalletTransactions(ctx context.Context, walletID uuid.UUID) ([]models.WalletTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []models.WalletTransaction{}
	for _, id := range s.order {
		if tx := s.transactions[id]; tx.WalletID == walletID {
			result = append(result, tx)
		}
	}
	return result, nil
}

// AppendTransaction adds tx to the log. It does not touch wallet aggregates.
func (s *Store) AppendTransaction(ctx context.Context, tx *models.WalletTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	if _, exists := s.transactions[tx.ID]; exists {
		return apperror.Wrap(common.ErrAlreadyExists, apperror.ErrCodeBadRequest, "transaction already exists")
	}
	if _, ok := s.wallets[tx.WalletID]; !ok {
		return apperror.ErrWalletNotFound
	}
	if tx.CreatedDate.IsZero() {
		tx.CreatedDate = s.now()
	}
	s.transactions[tx.ID] = *tx
	s.order = append(s.order, tx.ID)
	return nil
}

func (s *Store) FetchByIDs(ctx context.Context, collection string, ids []uuid.UUID) ([]models.RelatedEntity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, known := map[string]bool{
		valueobject.CollectionSessions:     true,
		valueobject.CollectionCases:        true,
		valueobject.CollectionReservations: true,
	}[collection]; !known {
		return nil, fmt.Errorf("memory store: %w: %q", common.ErrUnknownCollection, collection)
	}
	if len(ids) > MaxLookupIDs {
		return nil, fmt.Errorf("memory store: %w: %d > %d", common.ErrTooManyIDs, len(ids), MaxLookupIDs)
	}

	call := s.fetchCalls[collection]
	s.fetchCalls[collection] = call + 1
	if faults := s.fetchFaults[collection]; call < len(faults) && faults[call] != nil {
		return nil, faults[call]
	}

	result := []models.RelatedEntity{}
	for _, id := range ids {
		if e, ok := s.entities[collection][id]; ok {
			result = append(result, e)
		}
	}
	return result, nil
}

func (s *Store) GetUsersByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.UserSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[uuid.UUID]models.UserSummary, len(ids))
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			result[id] = u
		}
	}
	return result, nil
}

// RunInTx implements domainrepo.LedgerStore.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx domainrepo.LedgerTx) error) error {
	s.unitMu.Lock()
	defer s.unitMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	unit := &memTx{
		store:        s,
		wallets:      make(map[uuid.UUID]models.Wallet),
		transactions: make(map[uuid.UUID]models.WalletTransaction),
	}
	if err := fn(ctx, unit); err != nil {
		return err
	}
	if err := s.takeFault(FaultCommit); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeTransientStore, "commit failed")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, w := range unit.wallets {
		s.wallets[id] = w
	}
	for id, tx := range unit.transactions {
		s.transactions[id] = tx
	}
	return nil
}

// memTx stages writes of one unit until commit.
type memTx struct {
	store        *Store
	wallets      map[uuid.UUID]models.Wallet
	transactions map[uuid.UUID]models.WalletTransaction
}

func (t *memTx) GetTransactionForUpdate(ctx context.Context, id uuid.UUID) (*models.WalletTransaction, error) {
	if tx, ok := t.transactions[id]; ok {
		return &tx, nil
	}
	return t.store.GetTransaction(ctx, id)
}

func (t *memTx) GetWalletForUpdate(ctx context.Context, id uuid.UUID) (*models.Wallet, error) {
	if w, ok := t.wallets[id]; ok {
		return &w, nil
	}
	return t.store.GetWallet(ctx, id)
}

func (t *memTx) CompareAndSetStatus(ctx context.Context, id uuid.UUID, from, to valueobject.TransactionStatus, audit models.TransitionAudit) (bool, error) {
	if err := t.store.takeFault(FaultStatusUpdate); err != nil {
		return false, apperror.Wrap(err, apperror.ErrCodeTransientStore, "status update failed")
	}

	current, err := t.GetTransactionForUpdate(ctx, id)
	if err != nil {
		return false, err
	}
	if current.Status != from {
		return false, nil
	}

	next := *current
	next.Status = to
	approvedBy := audit.ApprovedBy
	approvedAt := audit.ApprovedAt
	next.ApprovedBy = &approvedBy
	next.ApprovedAt = &approvedAt
	if audit.Notes != nil {
		notes := *audit.Notes
		next.Notes = &notes
	}
	t.transactions[id] = next
	return true, nil
}

func (t *memTx) UpdateWalletAggregates(ctx context.Context, w *models.Wallet) error {
	if err := t.store.takeFault(FaultWalletUpdate); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeTransientStore, "wallet update failed")
	}
	if _, err := t.GetWalletForUpdate(ctx, w.ID); err != nil {
		return err
	}
	t.wallets[w.ID] = *w
	return nil
}
