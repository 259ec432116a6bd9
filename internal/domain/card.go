package domain

// DeletedStatus tracks a card's position in the soft-delete lifecycle.
type DeletedStatus string

const (
	Active           DeletedStatus = "active"
	Deleted          DeletedStatus = "deleted"
	PermanentDeleted DeletedStatus = "permanent_deleted"
)

// Card is a single front/back flashcard owned by a deck. Front and back are
// opaque rich-content blobs; scheduling never inspects them.
//
// Invariant: DeletedAt is non-zero if and only if Deleted == Deleted.
type Card struct {
	ID        string        `json:"id" db:"id"`
	DeckID    string        `json:"deckId" db:"deck_id"`
	Front     string        `json:"front" db:"front"`
	Back      string        `json:"back" db:"back"`
	Tags      []string      `json:"tags" db:"-"`
	Source    string        `json:"source,omitempty" db:"source"`
	Notes     string        `json:"notes,omitempty" db:"notes"`
	Deleted   DeletedStatus `json:"deleted" db:"deleted"`
	DeletedAt int64         `json:"deletedAt,omitempty" db:"deleted_at"`
	CreatedAt int64         `json:"createdAt" db:"created_at"`
	UpdatedAt int64         `json:"updatedAt" db:"updated_at"`
}

// IsActive reports whether the card counts toward deck totals and study
// sessions. Anything not soft-deleted counts as active.
func (c Card) IsActive() bool {
	return c.Deleted != Deleted
}
