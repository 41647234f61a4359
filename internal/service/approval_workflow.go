package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/payout-ledger/internal/domain/ledger"
	domainrepo "github.com/ignatzorin/payout-ledger/internal/domain/repository"
	"github.com/ignatzorin/payout-ledger/internal/domain/valueobject"
	"github.com/ignatzorin/payout-ledger/internal/dto"
	"github.com/ignatzorin/payout-ledger/internal/logger"
	"github.com/ignatzorin/payout-ledger/internal/models"
	"github.com/ignatzorin/payout-ledger/internal/pkg/apperror"
)

// LedgerEventPublisher notifies other consoles that the ledger changed.
type LedgerEventPublisher interface {
	PublishLedgerUpdate(event dto.LedgerEvent) error
}

// ActionOutcome is the result of one admin action together with a fresh
// snapshot. Err is set when the engine refused or failed the action.
type ActionOutcome struct {
	Applied  bool                  `json:"applied"`
	Code     apperror.ErrorCode    `json:"code,omitempty"`
	Message  string                `json:"message"`
	Result   *TransitionResult     `json:"result,omitempty"`
	Snapshot *dto.ApprovalSnapshot `json:"snapshot,omitempty"`
	Err      error                 `json:"-"`
}

// ApprovalWorkflow backs the admin approval screen: it assembles the
// snapshot and routes actions to the engine.
type ApprovalWorkflow struct {
	wallets   domainrepo.WalletReader
	txs       domainrepo.TransactionReader
	users     domainrepo.UserDirectory
	resolver  *EntityResolver
	engine    *ApprovalEngine
	publisher LedgerEventPublisher
	now       func() time.Time
}

func NewApprovalWorkflow(
	wallets domainrepo.WalletReader,
	txs domainrepo.TransactionReader,
	users domainrepo.UserDirectory,
	resolver *EntityResolver,
	engine *ApprovalEngine,
	publisher LedgerEventPublisher,
) *ApprovalWorkflow {
	return &ApprovalWorkflow{
		wallets:   wallets,
		txs:       txs,
		users:     users,
		resolver:  resolver,
		engine:    engine,
		publisher: publisher,
		now:       time.Now,
	}
}

// Snapshot reads wallets, pending earnings and open payout requests and
// joins them with users and related records. Lookup failures degrade the
// snapshot and are reported in Warnings.
func (w *ApprovalWorkflow) Snapshot(ctx context.Context) (*dto.ApprovalSnapshot, error) {
	snap := &dto.ApprovalSnapshot{
		PendingEarnings: []dto.EarningView{},
		PayoutRequests:  []dto.PayoutView{},
		GeneratedAt:     w.now().UTC(),
	}

	wallets, sorted, err := w.listWallets(ctx, snap)
	if err != nil {
		return nil, err
	}
	snap.WalletsSorted = sorted

	earnings, err := w.txs.ListTransactions(ctx, valueobject.TransactionTypeEarning,
		[]valueobject.TransactionStatus{valueobject.TransactionStatusPending})
	if err != nil {
		return nil, fmt.Errorf("approval workflow: list earnings: %w", err)
	}
	payouts, err := w.txs.ListTransactions(ctx, valueobject.TransactionTypePayoutRequest,
		[]valueobject.TransactionStatus{valueobject.TransactionStatusPending, valueobject.TransactionStatusHold})
	if err != nil {
		return nil, fmt.Errorf("approval workflow: list payout requests: %w", err)
	}

	related := w.resolveRelated(ctx, earnings, snap)

	userIDs := make([]uuid.UUID, 0, len(wallets)+len(earnings)+len(payouts))
	for _, wl := range wallets {
		userIDs = append(userIDs, wl.UserID)
	}
	for _, tx := range earnings {
		userIDs = append(userIDs, tx.UserID)
	}
	for _, tx := range payouts {
		userIDs = append(userIDs, tx.UserID)
	}
	for _, e := range related {
		if e.StudentID != nil {
			userIDs = append(userIDs, *e.StudentID)
		}
	}

	users, err := w.users.GetUsersByIDs(ctx, userIDs)
	if err != nil {
		logger.Log.WithError(err).Warn("approval workflow: user lookup failed, showing raw ids")
		snap.Warnings = append(snap.Warnings, "user details unavailable")
		users = map[uuid.UUID]models.UserSummary{}
	}
	userRef := func(id uuid.UUID) *models.UserSummary {
		if u, ok := users[id]; ok {
			return &u
		}
		return nil
	}

	walletByID := make(map[uuid.UUID]models.Wallet, len(wallets))
	snap.Wallets = make([]dto.WalletView, 0, len(wallets))
	for _, wl := range wallets {
		walletByID[wl.ID] = wl
		snap.Wallets = append(snap.Wallets, dto.WalletView{Wallet: wl, Owner: userRef(wl.UserID)})
	}

	for _, tx := range earnings {
		view := dto.EarningView{WalletTransaction: tx, Owner: userRef(tx.UserID)}
		if ref, ok := tx.Related(); ok {
			var entity *models.RelatedEntity
			if e, found := related[ref]; found {
				entity = &e
			}
			view.Related = describeRelated(ref, entity)
			if view.Related.StudentID != nil {
				view.Related.Student = userRef(*view.Related.StudentID)
			}
		}
		snap.PendingEarnings = append(snap.PendingEarnings, view)
	}

	for _, tx := range payouts {
		view := dto.PayoutView{
			WalletTransaction: tx,
			Owner:             userRef(tx.UserID),
			RequestedAmount:   valueobject.FormatUSD(tx.Magnitude()),
		}
		if wl, ok := walletByID[tx.WalletID]; ok {
			view.PaymentDetails = wl.PaymentDetails
		}
		snap.PayoutRequests = append(snap.PayoutRequests, view)
	}

	return snap, nil
}

// listWallets prefers the balance-sorted listing and falls back to an
// unordered one when the sorted read fails.
func (w *ApprovalWorkflow) listWallets(ctx context.Context, snap *dto.ApprovalSnapshot) ([]models.Wallet, bool, error) {
	wallets, err := w.wallets.ListWallets(ctx, models.WalletSortBalanceDesc)
	if err == nil {
		return wallets, true, nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil, false, err
	}

	logger.Log.WithError(err).Warn("approval workflow: sorted wallet listing failed, falling back to unordered")
	snap.Warnings = append(snap.Warnings, "wallets are not sorted by balance")

	wallets, err = w.wallets.ListWallets(ctx, models.WalletSortNone)
	if err != nil {
		return nil, false, fmt.Errorf("approval workflow: list wallets: %w", err)
	}
	return wallets, false, nil
}

// resolveRelated loads the source record of every earning, one resolver
// call per kind.
func (w *ApprovalWorkflow) resolveRelated(ctx context.Context, earnings []models.WalletTransaction, snap *dto.ApprovalSnapshot) map[valueobject.RelatedRef]models.RelatedEntity {
	idsByKind := make(map[valueobject.RelatedKind][]uuid.UUID)
	for _, tx := range earnings {
		if ref, ok := tx.Related(); ok {
			idsByKind[ref.Kind] = append(idsByKind[ref.Kind], ref.ID)
		}
	}

	out := make(map[valueobject.RelatedRef]models.RelatedEntity)
	for _, kind := range valueobject.RelatedKinds() {
		ids := idsByKind[kind]
		if len(ids) == 0 {
			continue
		}

		entities, err := w.resolver.Resolve(ctx, relatedHandlers[kind].collection, ids)
		if err != nil {
			fields := logrus.Fields{"kind": kind}
			var partial *PartialResolutionError
			if errors.As(err, &partial) {
				fields["failed_ids"] = len(partial.FailedIDs())
			}
			logger.Log.WithFields(fields).WithError(err).Warn("approval workflow: related entities partially resolved")
			snap.Warnings = append(snap.Warnings, fmt.Sprintf("some %s details could not be loaded", kind))
		}
		for _, e := range entities {
			out[valueobject.RelatedRef{Kind: kind, ID: e.ID}] = e
		}
	}
	return out
}

// Act applies one admin decision and returns the outcome with a refreshed
// snapshot. Engine failures are reported in the outcome, not as an error;
// the returned error is only set when nothing could be done at all.
func (w *ApprovalWorkflow) Act(ctx context.Context, actor Actor, op ledger.Operation, txID uuid.UUID, reason string) (*ActionOutcome, error) {
	outcome := &ActionOutcome{}

	result, err := w.engine.Apply(ctx, actor, op, txID, reason)
	if err != nil {
		outcome.Err = err
		outcome.Code = apperror.CodeOf(err)
		outcome.Message = apperror.UserMessage(err)
		logger.Log.WithFields(logrus.Fields{
			"operation":      op,
			"transaction_id": txID,
			"code":           outcome.Code,
		}).WithError(err).Warn("approval action refused")
	} else {
		outcome.Applied = true
		outcome.Result = result
		outcome.Message = actionMessage(result)
		w.publish(actor, result)
	}

	snap, serr := w.Snapshot(ctx)
	if serr != nil {
		logger.Log.WithError(serr).Warn("approval workflow: refresh after action failed")
		if outcome.Applied {
			outcome.Message += " (refresh failed, reload to see current state)"
		}
		return outcome, nil
	}
	outcome.Snapshot = snap
	return outcome, nil
}

func (w *ApprovalWorkflow) publish(actor Actor, result *TransitionResult) {
	if w.publisher == nil {
		return
	}
	event := dto.LedgerEvent{
		Operation:     string(result.Op),
		TransactionID: result.Transaction.ID,
		WalletID:      result.Wallet.ID,
		Status:        result.Transaction.Status,
		AdminID:       actor.AdminID,
		At:            w.now().UTC(),
	}
	if err := w.publisher.PublishLedgerUpdate(event); err != nil {
		logger.Log.WithError(err).Warn("approval workflow: publish ledger update failed")
	}
}

func actionMessage(r *TransitionResult) string {
	amount := valueobject.FormatUSD(r.Transaction.Magnitude())
	switch r.Op {
	case ledger.OpApproveEarning:
		return "Earning of " + amount + " approved"
	case ledger.OpApprovePayout:
		return "Payout of " + amount + " approved"
	case ledger.OpRejectPayout:
		return "Payout of " + amount + " rejected, funds returned to balance"
	case ledger.OpHoldPayout:
		return "Payout of " + amount + " put on hold"
	case ledger.OpReleaseHold:
		return "Hold released, payout of " + amount + " is pending again"
	default:
		return "Done"
	}
}
