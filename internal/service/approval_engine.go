package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/payout-ledger/internal/domain/ledger"
	domainrepo "github.com/ignatzorin/payout-ledger/internal/domain/repository"
	"github.com/ignatzorin/payout-ledger/internal/logger"
	"github.com/ignatzorin/payout-ledger/internal/models"
	"github.com/ignatzorin/payout-ledger/internal/pkg/apperror"
	"github.com/ignatzorin/payout-ledger/internal/repository/common"
)

// Actor is the admin on whose behalf an operation runs.
type Actor struct {
	AdminID uuid.UUID
}

func (a Actor) Validate() error {
	if a.AdminID == uuid.Nil {
		return apperror.New(apperror.ErrCodeValidation, "acting admin is required")
	}
	return nil
}

// TransitionResult is the committed state after one engine operation.
type TransitionResult struct {
	Op          ledger.Operation         `json:"operation"`
	Transaction models.WalletTransaction `json:"transaction"`
	Wallet      models.Wallet            `json:"wallet"`
	Attempts    int                      `json:"attempts"`
}

type ApprovalEngineOption func(*ApprovalEngine)

// WithClock overrides the time source used for audit stamps.
func WithClock(now func() time.Time) ApprovalEngineOption {
	return func(e *ApprovalEngine) { e.now = now }
}

// WithRetry sets how many times a unit is re-run after a retryable failure
// and the base backoff between attempts.
func WithRetry(maxRetries int, backoff time.Duration) ApprovalEngineOption {
	return func(e *ApprovalEngine) {
		e.maxRetries = max(maxRetries, 0)
		e.backoff = backoff
	}
}

// ApprovalEngine applies admin decisions to the ledger. Every operation
// runs as one atomic unit guarded by the transaction's expected prior status.
type ApprovalEngine struct {
	store      domainrepo.LedgerStore
	now        func() time.Time
	maxRetries int
	backoff    time.Duration
}

func NewApprovalEngine(store domainrepo.LedgerStore, opts ...ApprovalEngineOption) *ApprovalEngine {
	e := &ApprovalEngine{
		store:      store,
		now:        time.Now,
		maxRetries: 3,
		backoff:    50 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *ApprovalEngine) ApproveEarning(ctx context.Context, actor Actor, txID uuid.UUID) (*TransitionResult, error) {
	return e.Apply(ctx, actor, ledger.OpApproveEarning, txID, "")
}

func (e *ApprovalEngine) ApprovePayout(ctx context.Context, actor Actor, txID uuid.UUID) (*TransitionResult, error) {
	return e.Apply(ctx, actor, ledger.OpApprovePayout, txID, "")
}

func (e *ApprovalEngine) RejectPayout(ctx context.Context, actor Actor, txID uuid.UUID) (*TransitionResult, error) {
	return e.Apply(ctx, actor, ledger.OpRejectPayout, txID, "")
}

// HoldPayout suspends a pending payout. reason must be non-empty.
func (e *ApprovalEngine) HoldPayout(ctx context.Context, actor Actor, txID uuid.UUID, reason string) (*TransitionResult, error) {
	return e.Apply(ctx, actor, ledger.OpHoldPayout, txID, reason)
}

// ReleaseHold returns a held payout to pending. It must then be approved or
// rejected again.
func (e *ApprovalEngine) ReleaseHold(ctx context.Context, actor Actor, txID uuid.UUID) (*TransitionResult, error) {
	return e.Apply(ctx, actor, ledger.OpReleaseHold, txID, "")
}

// Apply runs op against the transaction txID. Arguments are validated before
// anything is read. Serialization failures and dropped connections re-run
// the whole unit up to the configured retry count.
func (e *ApprovalEngine) Apply(ctx context.Context, actor Actor, op ledger.Operation, txID uuid.UUID, reason string) (*TransitionResult, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	if txID == uuid.Nil {
		return nil, apperror.New(apperror.ErrCodeValidation, "transaction id is required")
	}
	if err := ledger.ValidateRequest(op, reason); err != nil {
		return nil, err
	}

	log := logger.Log.WithFields(logrus.Fields{
		"operation":      op,
		"transaction_id": txID,
		"admin_id":       actor.AdminID,
	})

	for attempt := 1; ; attempt++ {
		result, err := e.runUnit(ctx, actor, op, txID, reason)
		if err == nil {
			result.Attempts = attempt
			log.WithFields(logrus.Fields{
				"wallet_id": result.Wallet.ID,
				"status":    result.Transaction.Status,
				"attempts":  attempt,
			}).Info("ledger transition applied")
			return result, nil
		}

		if !common.IsRetryable(err) || attempt > e.maxRetries {
			if common.IsRetryable(err) {
				log.WithError(err).WithField("attempts", attempt).Error("ledger transition retries exhausted")
			}
			return nil, common.ClassifyError(err)
		}

		wait := e.backoff * time.Duration(attempt)
		log.WithError(err).WithFields(logrus.Fields{
			"attempt": attempt,
			"backoff": wait.String(),
		}).Warn("ledger transition rolled back, retrying")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (e *ApprovalEngine) runUnit(ctx context.Context, actor Actor, op ledger.Operation, txID uuid.UUID, reason string) (*TransitionResult, error) {
	var result *TransitionResult

	err := e.store.RunInTx(ctx, func(ctx context.Context, tx domainrepo.LedgerTx) error {
		current, err := tx.GetTransactionForUpdate(ctx, txID)
		if err != nil {
			return err
		}

		plan, err := ledger.Plan(op, current, reason)
		if err != nil {
			return err
		}

		wallet, err := tx.GetWalletForUpdate(ctx, current.WalletID)
		if err != nil {
			return err
		}

		now := e.now().UTC()
		next, err := plan.Delta.ApplyTo(*wallet, now)
		if err != nil {
			logger.Log.WithFields(logrus.Fields{
				"wallet_id":      wallet.ID,
				"transaction_id": txID,
			}).WithError(err).Error("ledger inconsistency detected")
			return err
		}

		audit := models.TransitionAudit{ApprovedBy: actor.AdminID, ApprovedAt: now, Notes: plan.Notes}
		ok, err := tx.CompareAndSetStatus(ctx, txID, plan.From, plan.To, audit)
		if err != nil {
			return err
		}
		if !ok {
			return apperror.Newf(apperror.ErrCodeInvalidTransition, "transaction is no longer %s", plan.From)
		}

		if !plan.Delta.IsZero() {
			if err := tx.UpdateWalletAggregates(ctx, &next); err != nil {
				return err
			}
		}

		updated := *current
		updated.Status = plan.To
		updated.ApprovedBy = &audit.ApprovedBy
		updated.ApprovedAt = &audit.ApprovedAt
		if plan.Notes != nil {
			updated.Notes = plan.Notes
		}
		result = &TransitionResult{Op: op, Transaction: updated, Wallet: next}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
