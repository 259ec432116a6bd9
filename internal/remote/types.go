// Package remote speaks to a recalld server: per-user rows, server-generated
// ids for decks and reviews, and soft-delete filtering done server side.
// Listing endpoints only ever return rows whose deleted_at is null, so the
// sync engine never sees remotely deleted records.
package remote

// Deck is a remote deck row. The id is server-generated and authoritative.
type Deck struct {
	ID          string `json:"id" db:"id"`
	UserID      string `json:"user_id" db:"user_id"`
	Name        string `json:"name" db:"name"`
	Description string `json:"description" db:"description"`
	CardsCount  int    `json:"cards_count" db:"cards_count"`
	CreatedAt   int64  `json:"created_at" db:"created_at"`
	UpdatedAt   int64  `json:"updated_at" db:"updated_at"`
}

// Card is a remote card row. Remote cards do not carry tags or local
// soft-delete state; the client supplies the id so local and remote card ids
// stay aligned.
type Card struct {
	ID        string `json:"id" db:"id"`
	UserID    string `json:"user_id" db:"user_id"`
	DeckID    string `json:"deck_id" db:"deck_id"`
	Front     string `json:"front" db:"front"`
	Back      string `json:"back" db:"back"`
	CreatedAt int64  `json:"created_at" db:"created_at"`
	UpdatedAt int64  `json:"updated_at" db:"updated_at"`
}

// Review is a remote scheduling row, keyed by a server-generated id and
// unique per card. LastReview zero means the card was never graded there.
type Review struct {
	ID          string  `json:"id" db:"id"`
	UserID      string  `json:"user_id" db:"user_id"`
	CardID      string  `json:"card_id" db:"card_id"`
	EaseFactor  float64 `json:"ease_factor" db:"ease_factor"`
	Interval    float64 `json:"interval" db:"interval"`
	Repetitions int     `json:"repetitions" db:"repetitions"`
	NextReview  int64   `json:"next_review" db:"next_review"`
	LastReview  int64   `json:"last_review" db:"last_review"`
	CreatedAt   int64   `json:"created_at" db:"created_at"`
	UpdatedAt   int64   `json:"updated_at" db:"updated_at"`
}

// StudyLog is a remote grading event.
type StudyLog struct {
	ID        string `json:"id" db:"id"`
	UserID    string `json:"user_id" db:"user_id"`
	CardID    string `json:"card_id" db:"card_id"`
	Rating    int    `json:"rating" db:"rating"`
	TimeSpent int    `json:"time_spent" db:"time_spent"`
	Timestamp int64  `json:"timestamp" db:"timestamp"`
}

// DeckUpdate is the field set pushed when the local deck wins a conflict.
type DeckUpdate struct {
	Name        string `json:"name" db:"name"`
	Description string `json:"description" db:"description"`
	CardsCount  int    `json:"cards_count" db:"cards_count"`
	UpdatedAt   int64  `json:"updated_at" db:"updated_at"`
}

// CardUpdate is the field set pushed when the local card wins a conflict.
type CardUpdate struct {
	DeckID    string `json:"deck_id" db:"deck_id"`
	Front     string `json:"front" db:"front"`
	Back      string `json:"back" db:"back"`
	UpdatedAt int64  `json:"updated_at" db:"updated_at"`
}

// ReviewUpdate is the field set pushed when the local review wins a conflict.
type ReviewUpdate struct {
	EaseFactor  float64 `json:"ease_factor" db:"ease_factor"`
	Interval    float64 `json:"interval" db:"interval"`
	Repetitions int     `json:"repetitions" db:"repetitions"`
	NextReview  int64   `json:"next_review" db:"next_review"`
	LastReview  int64   `json:"last_review" db:"last_review"`
	UpdatedAt   int64   `json:"updated_at" db:"updated_at"`
}
