package domain

import "fmt"

// CardState is the scheduling phase a card is in.
type CardState string

const (
	StateNew        CardState = "new"
	StateLearning   CardState = "learning"
	StateReview     CardState = "review"
	StateRelearning CardState = "relearning"
)

// Rating is the user's assessment of recall quality for one grading event.
type Rating int

const (
	Again Rating = iota + 1 // complete failure to recall
	Hard                    // recalled with significant difficulty
	Good                    // recalled with some effort
	Easy                    // recalled effortlessly
)

var ratingNames = [...]string{Again: "Again", Hard: "Hard", Good: "Good", Easy: "Easy"}

// String returns the rating's name, or "Rating(n)" for out-of-range values.
func (r Rating) String() string {
	if r.IsValid() {
		return ratingNames[r]
	}
	return fmt.Sprintf("Rating(%d)", int(r))
}

// IsValid reports whether r is between Again and Easy.
func (r Rating) IsValid() bool {
	return r >= Again && r <= Easy
}

// CardReview is the scheduling state of one card, 1:1 with Card (ID == CardID
// for locally created reviews). Interval is in days and may be fractional for
// sub-day learning steps. The meaning of Repetitions depends on State: in the
// learning phases it indexes the learning-step ladder, in the review phase it
// counts consecutive successful reviews.
type CardReview struct {
	ID          string    `json:"id" db:"id"`
	CardID      string    `json:"cardId" db:"card_id"`
	Ease        float64   `json:"ease" db:"ease"`
	Interval    float64   `json:"interval" db:"interval"`
	Repetitions int       `json:"repetitions" db:"repetitions"`
	NextReview  int64     `json:"nextReview" db:"next_review"`
	LastReview  int64     `json:"lastReview" db:"last_review"`
	State       CardState `json:"state" db:"state"`
}

// StudyLog is one append-only grading event. Immutable once written; sync
// merges logs by timestamp equality, never by id.
type StudyLog struct {
	ID        string `json:"id" db:"id"`
	CardID    string `json:"cardId" db:"card_id"`
	Rating    Rating `json:"rating" db:"rating"`
	TimeSpent int    `json:"timeSpent" db:"time_spent"`
	Timestamp int64  `json:"timestamp" db:"timestamp"`
}
