package models

import (
	"time"

	"github.com/google/uuid"
)

// RelatedEntity is the display projection of a session, visa case or
// reservation referenced by an earning.
type RelatedEntity struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	Collection string     `db:"collection" json:"collection"`
	StudentID  *uuid.UUID `db:"student_id" json:"student_id,omitempty"`
	Title      string     `db:"title" json:"title"`
	OccurredAt *time.Time `db:"occurred_at" json:"occurred_at,omitempty"`
}

// UserSummary is the subset of a user record shown next to wallets and
// students.
type UserSummary struct {
	ID          uuid.UUID `db:"id" json:"id"`
	DisplayName string    `db:"display_name" json:"display_name"`
	Email       string    `db:"email" json:"email"`
	Role        string    `db:"role" json:"role"`
}
