package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	domainrepo "github.com/ignatzorin/payout-ledger/internal/domain/repository"
	"github.com/ignatzorin/payout-ledger/internal/domain/valueobject"
	"github.com/ignatzorin/payout-ledger/internal/dto"
	"github.com/ignatzorin/payout-ledger/internal/logger"
	"github.com/ignatzorin/payout-ledger/internal/models"
	"github.com/ignatzorin/payout-ledger/internal/pkg/apperror"
	"github.com/ignatzorin/payout-ledger/internal/validation"
)

// EarningIntake records earnings produced by sessions, visa cases and
// reservations. New earnings are pending and do not touch the wallet until
// approved.
type EarningIntake struct {
	wallets domainrepo.WalletReader
	log     domainrepo.TransactionAppender
}

func NewEarningIntake(wallets domainrepo.WalletReader, log domainrepo.TransactionAppender) *EarningIntake {
	return &EarningIntake{wallets: wallets, log: log}
}

func (s *EarningIntake) RecordEarning(ctx context.Context, req dto.RecordEarningRequest) (*models.WalletTransaction, error) {
	if req.WalletID == uuid.Nil {
		return nil, apperror.New(apperror.ErrCodeValidation, "wallet_id is required")
	}
	amount, err := valueobject.ParseUSD(req.Amount)
	if err != nil {
		return nil, err
	}
	if amount, err = valueobject.NewPositiveUSD(amount); err != nil {
		return nil, err
	}

	if err := validation.ValidateNotes(req.Notes); err != nil {
		return nil, err
	}

	var relatedType *string
	kindRaw := strings.TrimSpace(req.RelatedEntityType)
	hasID := req.RelatedEntityID != nil && *req.RelatedEntityID != uuid.Nil
	switch {
	case kindRaw == "" && hasID:
		return nil, apperror.New(apperror.ErrCodeValidation, "related_entity_type is required with related_entity_id")
	case kindRaw != "" && !hasID:
		return nil, apperror.New(apperror.ErrCodeValidation, "related_entity_id is required with related_entity_type")
	case kindRaw != "":
		kind, err := valueobject.NewRelatedKind(kindRaw)
		if err != nil {
			return nil, err
		}
		k := string(kind)
		relatedType = &k
	}

	wallet, err := s.wallets.GetWallet(ctx, req.WalletID)
	if err != nil {
		return nil, err
	}

	tx := &models.WalletTransaction{
		WalletID:          wallet.ID,
		UserID:            wallet.UserID,
		TransactionType:   valueobject.TransactionTypeEarning,
		AmountUSD:         amount,
		Status:            valueobject.TransactionStatusPending,
		RelatedEntityType: relatedType,
		Notes:             req.Notes,
	}
	if hasID {
		tx.RelatedEntityID = req.RelatedEntityID
	}

	if err := s.log.AppendTransaction(ctx, tx); err != nil {
		return nil, err
	}

	logger.Log.WithFields(logrus.Fields{
		"transaction_id": tx.ID,
		"wallet_id":      tx.WalletID,
		"amount_usd":     tx.AmountUSD.StringFixed(valueobject.USDScale),
	}).Info("earning recorded")
	return tx, nil
}
