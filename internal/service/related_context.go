package service

import (
	"github.com/ignatzorin/payout-ledger/internal/domain/valueobject"
	"github.com/ignatzorin/payout-ledger/internal/dto"
	"github.com/ignatzorin/payout-ledger/internal/models"
)

// relatedHandler is the per-kind entry of the related-entity dispatcher.
type relatedHandler struct {
	collection string
	label      func(e models.RelatedEntity) string
}

var relatedHandlers = map[valueobject.RelatedKind]relatedHandler{
	valueobject.RelatedKindTutoringSession: {
		collection: valueobject.CollectionSessions,
		label: func(e models.RelatedEntity) string {
			if e.OccurredAt != nil {
				return "Tutoring session: " + e.Title + " (" + e.OccurredAt.Format("2006-01-02") + ")"
			}
			return "Tutoring session: " + e.Title
		},
	},
	valueobject.RelatedKindVisaCommission: {
		collection: valueobject.CollectionCases,
		label: func(e models.RelatedEntity) string {
			return "Visa case: " + e.Title
		},
	},
	valueobject.RelatedKindSchoolCommission: {
		collection: valueobject.CollectionReservations,
		label: func(e models.RelatedEntity) string {
			return "School reservation: " + e.Title
		},
	},
}

// describeRelated builds the display context for ref. entity is nil when
// the record could not be resolved.
func describeRelated(ref valueobject.RelatedRef, entity *models.RelatedEntity) *dto.RelatedContext {
	rc := &dto.RelatedContext{Kind: ref.Kind, ID: ref.ID, Label: ref.String()}
	h, ok := relatedHandlers[ref.Kind]
	if !ok || entity == nil {
		return rc
	}
	rc.Resolved = true
	rc.Label = h.label(*entity)
	rc.StudentID = entity.StudentID
	rc.OccurredAt = entity.OccurredAt
	return rc
}
