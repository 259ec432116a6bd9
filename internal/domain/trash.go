package domain

import "fmt"

// TrashItemTypeCard is the only trash entry type currently produced.
const TrashItemTypeCard = "card"

// TrashPayload is the frozen snapshot stored with a trash entry; it holds
// everything needed to restore the card, not a live reference.
type TrashPayload struct {
	OriginalCard Card   `json:"originalCard"`
	DeckID       string `json:"deckId"`
}

// TrashItem is one recoverable-delete ledger entry. Name and DeckName are
// display snapshots taken at delete time so the entry stays readable even if
// the deck is later renamed or removed.
type TrashItem struct {
	ID          string       `json:"id" db:"id"`
	Type        string       `json:"type" db:"type"`
	Name        string       `json:"name" db:"name"`
	Description string       `json:"description" db:"description"`
	DeckName    string       `json:"deckName" db:"deck_name"`
	DeletedAt   int64        `json:"deletedAt" db:"deleted_at"`
	Data        TrashPayload `json:"data" db:"-"`
}

// TrashItemID builds the natural key for one delete event of one card.
func TrashItemID(cardID string, deletedAt int64) string {
	return fmt.Sprintf("card-%s-%d", cardID, deletedAt)
}
