package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/payout-ledger/internal/models"
	"github.com/ignatzorin/payout-ledger/internal/repository/common"
)

type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetUsersByIDs returns summaries keyed by user id. Unknown ids are skipped.
func (r *UserRepository) GetUsersByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.UserSummary, error) {
	result := make(map[uuid.UUID]models.UserSummary, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var users []models.UserSummary
	err := r.db.SelectContext(ctx, &users, `
		SELECT id, display_name, email, role
		FROM users
		WHERE id = ANY($1::uuid[])
	`, common.UUIDArray(ids))
	if err != nil {
		return nil, common.ClassifyError(fmt.Errorf("user repository: get by ids: %w", err))
	}

	for _, u := range users {
		result[u.ID] = u
	}
	return result, nil
}
