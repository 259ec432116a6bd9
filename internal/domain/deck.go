package domain

// Deck groups cards and carries per-deck session caps.
//
// CardsCount is a denormalized cache of the number of active cards in the
// deck. It is maintained by the trash manager and corrected by the startup
// maintenance sweep; it is never the source of truth.
type Deck struct {
	ID             string `json:"id" db:"id"`
	Name           string `json:"name" db:"name"`
	Description    string `json:"description" db:"description"`
	CardsCount     int    `json:"cardsCount" db:"cards_count"`
	NewCardsPerDay int    `json:"newCardsPerDay" db:"new_cards_per_day"`
	ReviewsPerDay  int    `json:"reviewsPerDay" db:"reviews_per_day"`
	CreatedAt      int64  `json:"createdAt" db:"created_at"`
	UpdatedAt      int64  `json:"updatedAt" db:"updated_at"`
}
