package memory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/payout-ledger/internal/domain/valueobject"
	"github.com/ignatzorin/payout-ledger/internal/models"
)

// SeedDemo fills s with a small, internally consistent data set for local
// runs: two earners, a student, pending earnings of each related kind and
// one open payout request.
func SeedDemo(s *Store, now time.Time) {
	ctx := context.Background()

	tutor := models.UserSummary{ID: uuid.New(), DisplayName: "Maria Lopez", Email: "maria@example.com", Role: models.WalletUserTypeTutor}
	agent := models.UserSummary{ID: uuid.New(), DisplayName: "Kenji Sato", Email: "kenji@example.com", Role: models.WalletUserTypeAgent}
	student := models.UserSummary{ID: uuid.New(), DisplayName: "Alex Kim", Email: "alex@example.com", Role: "student"}
	for _, u := range []models.UserSummary{tutor, agent, student} {
		s.PutUser(u)
	}

	details := "IBAN DE89 3704 0044 0532 0130 00"
	tutorWallet := models.Wallet{
		ID:             uuid.New(),
		UserID:         tutor.ID,
		UserType:       models.WalletUserTypeTutor,
		BalanceUSD:     decimal.RequireFromString("70.00"),
		PendingPayout:  decimal.RequireFromString("80.00"),
		TotalEarned:    decimal.RequireFromString("150.00"),
		TotalPaidOut:   decimal.Zero,
		PaymentDetails: &details,
		CreatedAt:      now.Add(-30 * 24 * time.Hour),
		UpdatedAt:      now.Add(-24 * time.Hour),
	}
	agentWallet := models.Wallet{
		ID:          uuid.New(),
		UserID:      agent.ID,
		UserType:    models.WalletUserTypeAgent,
		BalanceUSD:  decimal.RequireFromString("100.00"),
		TotalEarned: decimal.RequireFromString("100.00"),
		CreatedAt:   now.Add(-60 * 24 * time.Hour),
		UpdatedAt:   now.Add(-48 * time.Hour),
	}
	s.PutWallet(tutorWallet)
	s.PutWallet(agentWallet)

	session := models.RelatedEntity{ID: uuid.New(), Collection: valueobject.CollectionSessions, StudentID: &student.ID, Title: "IELTS speaking", OccurredAt: ptrTime(now.Add(-72 * time.Hour))}
	visaCase := models.RelatedEntity{ID: uuid.New(), Collection: valueobject.CollectionCases, StudentID: &student.ID, Title: "F-1 / United States", OccurredAt: ptrTime(now.Add(-10 * 24 * time.Hour))}
	reservation := models.RelatedEntity{ID: uuid.New(), Collection: valueobject.CollectionReservations, StudentID: &student.ID, Title: "Kaplan Boston / General English", OccurredAt: ptrTime(now.Add(14 * 24 * time.Hour))}
	for _, e := range []models.RelatedEntity{session, visaCase, reservation} {
		s.PutEntity(e)
	}

	earning := func(w models.Wallet, amount string, kind valueobject.RelatedKind, related uuid.UUID, age time.Duration) {
		k := string(kind)
		id := related
		_ = s.AppendTransaction(ctx, &models.WalletTransaction{
			WalletID:          w.ID,
			UserID:            w.UserID,
			TransactionType:   valueobject.TransactionTypeEarning,
			AmountUSD:         decimal.RequireFromString(amount),
			Status:            valueobject.TransactionStatusPending,
			RelatedEntityType: &k,
			RelatedEntityID:   &id,
			CreatedDate:       now.Add(-age),
		})
	}
	earning(tutorWallet, "50.00", valueobject.RelatedKindTutoringSession, session.ID, 70*time.Hour)
	earning(agentWallet, "120.00", valueobject.RelatedKindVisaCommission, visaCase.ID, 9*24*time.Hour)
	earning(agentWallet, "200.00", valueobject.RelatedKindSchoolCommission, reservation.ID, 5*24*time.Hour)

	_ = s.AppendTransaction(ctx, &models.WalletTransaction{
		WalletID:        tutorWallet.ID,
		UserID:          tutorWallet.UserID,
		TransactionType: valueobject.TransactionTypePayoutRequest,
		AmountUSD:       decimal.RequireFromString("-80.00"),
		Status:          valueobject.TransactionStatusPending,
		CreatedDate:     now.Add(-24 * time.Hour),
	})
}

func ptrTime(t time.Time) *time.Time {
	return &t
}
