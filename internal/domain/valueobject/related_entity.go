package valueobject

import (
	"github.com/google/uuid"

	"github.com/ignatzorin/payout-ledger/internal/pkg/apperror"
)

// RelatedKind identifies the source record that produced an earning.
type RelatedKind string

const (
	RelatedKindTutoringSession  RelatedKind = "tutoring_session"
	RelatedKindVisaCommission   RelatedKind = "visa_commission"
	RelatedKindSchoolCommission RelatedKind = "school_commission"
)

// Collections that back each related kind.
const (
	CollectionSessions     = "sessions"
	CollectionCases        = "cases"
	CollectionReservations = "reservations"
)

var relatedCollections = map[RelatedKind]string{
	RelatedKindTutoringSession:  CollectionSessions,
	RelatedKindVisaCommission:   CollectionCases,
	RelatedKindSchoolCommission: CollectionReservations,
}

// RelatedKinds lists every kind in a stable order.
func RelatedKinds() []RelatedKind {
	return []RelatedKind{RelatedKindTutoringSession, RelatedKindVisaCommission, RelatedKindSchoolCommission}
}

func (k RelatedKind) IsValid() bool {
	_, ok := relatedCollections[k]
	return ok
}

// Collection returns the backing collection name, or "" for an unknown kind.
func (k RelatedKind) Collection() string {
	return relatedCollections[k]
}

func NewRelatedKind(v string) (RelatedKind, error) {
	k := RelatedKind(v)
	if !k.IsValid() {
		return "", apperror.Newf(apperror.ErrCodeValidation, "unknown related entity type %q", v)
	}
	return k, nil
}

// RelatedRef is the tagged reference {kind, id} carried by an earning.
type RelatedRef struct {
	Kind RelatedKind `json:"kind"`
	ID   uuid.UUID   `json:"id"`
}

func (r RelatedRef) IsZero() bool {
	return r.Kind == "" || r.ID == uuid.Nil
}

func (r RelatedRef) String() string {
	return string(r.Kind) + ":" + r.ID.String()
}
