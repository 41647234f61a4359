package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/payout-ledger/internal/domain/valueobject"
	"github.com/ignatzorin/payout-ledger/internal/models"
	"github.com/ignatzorin/payout-ledger/internal/repository/common"
)

// MaxLookupIDs is the largest id set accepted by one FetchByIDs call.
const MaxLookupIDs = 10

// entityQueries projects each source table onto models.RelatedEntity.
var entityQueries = map[string]string{
	valueobject.CollectionSessions: `
		SELECT id, 'sessions' AS collection, student_id, subject AS title, scheduled_at AS occurred_at
		FROM tutoring_sessions WHERE id = ANY($1::uuid[])`,
	valueobject.CollectionCases: `
		SELECT id, 'cases' AS collection, student_id, visa_type || ' / ' || destination_country AS title, opened_at AS occurred_at
		FROM visa_cases WHERE id = ANY($1::uuid[])`,
	valueobject.CollectionReservations: `
		SELECT id, 'reservations' AS collection, student_id, school_name || ' / ' || program AS title, start_date AS occurred_at
		FROM school_reservations WHERE id = ANY($1::uuid[])`,
}

// EntityRepository loads the sessions, visa cases and reservations that
// earnings point at.
type EntityRepository struct {
	db *sqlx.DB
}

func NewEntityRepository(db *sqlx.DB) *EntityRepository {
	return &EntityRepository{db: db}
}

// FetchByIDs returns the records of collection whose id is in ids.
// Missing ids are simply absent from the result.
func (r *EntityRepository) FetchByIDs(ctx context.Context, collection string, ids []uuid.UUID) ([]models.RelatedEntity, error) {
	query, ok := entityQueries[collection]
	if !ok {
		return nil, fmt.Errorf("entity repository: %w: %q", common.ErrUnknownCollection, collection)
	}
	if len(ids) > MaxLookupIDs {
		return nil, fmt.Errorf("entity repository: %w: %d > %d", common.ErrTooManyIDs, len(ids), MaxLookupIDs)
	}
	if len(ids) == 0 {
		return []models.RelatedEntity{}, nil
	}

	var entities []models.RelatedEntity
	if err := r.db.SelectContext(ctx, &entities, query, common.UUIDArray(ids)); err != nil {
		return nil, common.ClassifyError(fmt.Errorf("entity repository: fetch %s: %w", collection, err))
	}
	return entities, nil
}
