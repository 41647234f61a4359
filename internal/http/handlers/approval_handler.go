package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/payout-ledger/internal/domain/ledger"
	domainrepo "github.com/ignatzorin/payout-ledger/internal/domain/repository"
	"github.com/ignatzorin/payout-ledger/internal/dto"
	"github.com/ignatzorin/payout-ledger/internal/http/handlers/common"
	"github.com/ignatzorin/payout-ledger/internal/pkg/apperror"
	"github.com/ignatzorin/payout-ledger/internal/service"
)

// ApprovalHandler serves the admin approval console.
type ApprovalHandler struct {
	workflow *service.ApprovalWorkflow
	wallets  domainrepo.WalletReader
	auditor  *service.LedgerAuditor
	intake   *service.EarningIntake
}

func NewApprovalHandler(
	workflow *service.ApprovalWorkflow,
	wallets domainrepo.WalletReader,
	auditor *service.LedgerAuditor,
	intake *service.EarningIntake,
) *ApprovalHandler {
	return &ApprovalHandler{workflow: workflow, wallets: wallets, auditor: auditor, intake: intake}
}

// Snapshot handles GET /api/admin/approvals.
func (h *ApprovalHandler) Snapshot(c *gin.Context) {
	if _, err := common.CurrentUserID(c); err != nil {
		common.RespondError(c, err)
		return
	}

	snap, err := h.workflow.Snapshot(c.Request.Context())
	if err != nil {
		common.RespondError(c, err)
		return
	}
	common.RespondJSON(c, http.StatusOK, snap)
}

// GetWallet handles GET /api/admin/wallets/:id.
func (h *ApprovalHandler) GetWallet(c *gin.Context) {
	if _, err := common.CurrentUserID(c); err != nil {
		common.RespondError(c, err)
		return
	}
	walletID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondError(c, err)
		return
	}

	wallet, err := h.wallets.GetWallet(c.Request.Context(), walletID)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	common.RespondJSON(c, http.StatusOK, wallet)
}

// Reconcile handles GET /api/admin/wallets/:id/reconcile.
func (h *ApprovalHandler) Reconcile(c *gin.Context) {
	if _, err := common.CurrentUserID(c); err != nil {
		common.RespondError(c, err)
		return
	}
	walletID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondError(c, err)
		return
	}

	report, err := h.auditor.Reconcile(c.Request.Context(), walletID)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	common.RespondJSON(c, http.StatusOK, report)
}

// Act returns the handler for POST /api/admin/transactions/:id/<action>.
// The hold action reads {"reason": "..."} from the body.
func (h *ApprovalHandler) Act(op ledger.Operation) gin.HandlerFunc {
	return func(c *gin.Context) {
		adminID, err := common.CurrentUserID(c)
		if err != nil {
			common.RespondError(c, err)
			return
		}
		txID, err := common.ParseUUIDParam(c, "id")
		if err != nil {
			common.RespondError(c, err)
			return
		}

		var reason string
		if op == ledger.OpHoldPayout {
			var req dto.HoldPayoutRequest
			if err := common.BindAndValidate(c, &req); err != nil {
				common.RespondError(c, err)
				return
			}
			reason = req.Reason
		}

		outcome, err := h.workflow.Act(c.Request.Context(), service.Actor{AdminID: adminID}, op, txID, reason)
		if err != nil {
			common.RespondError(c, err)
			return
		}
		if outcome.Err != nil {
			_ = c.Error(outcome.Err)
			c.JSON(apperror.HTTPStatusOf(outcome.Err), outcome)
			return
		}
		common.RespondJSON(c, http.StatusOK, outcome)
	}
}

// RecordEarning handles POST /api/admin/earnings.
func (h *ApprovalHandler) RecordEarning(c *gin.Context) {
	if _, err := common.CurrentUserID(c); err != nil {
		common.RespondError(c, err)
		return
	}

	var req dto.RecordEarningRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondError(c, err)
		return
	}

	tx, err := h.intake.RecordEarning(c.Request.Context(), req)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	common.RespondJSON(c, http.StatusCreated, tx)
}
