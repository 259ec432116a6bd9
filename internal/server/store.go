package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // registers the sqlite driver

	"github.com/conorfennell/recall/internal/remote"
)

const serverSchema = `
CREATE TABLE IF NOT EXISTS decks (
    id          TEXT PRIMARY KEY,
    user_id     TEXT NOT NULL,
    name        TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    cards_count INTEGER NOT NULL DEFAULT 0,
    created_at  INTEGER NOT NULL,
    updated_at  INTEGER NOT NULL,
    deleted_at  INTEGER
);
CREATE INDEX IF NOT EXISTS idx_decks_user_id ON decks(user_id);

CREATE TABLE IF NOT EXISTS cards (
    id         TEXT PRIMARY KEY,
    user_id    TEXT NOT NULL,
    deck_id    TEXT NOT NULL,
    front      TEXT NOT NULL,
    back       TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    deleted_at INTEGER,

    FOREIGN KEY(deck_id) REFERENCES decks(id)
);
CREATE INDEX IF NOT EXISTS idx_cards_user_id ON cards(user_id);
CREATE INDEX IF NOT EXISTS idx_cards_deck_id ON cards(deck_id);

CREATE TABLE IF NOT EXISTS card_reviews (
    id          TEXT PRIMARY KEY,
    user_id     TEXT NOT NULL,
    card_id     TEXT NOT NULL,
    ease_factor REAL NOT NULL,
    interval    REAL NOT NULL,
    repetitions INTEGER NOT NULL,
    next_review INTEGER NOT NULL,
    last_review INTEGER NOT NULL DEFAULT 0,
    created_at  INTEGER NOT NULL,
    updated_at  INTEGER NOT NULL,

    FOREIGN KEY(card_id) REFERENCES cards(id),
    UNIQUE(user_id, card_id)
);

CREATE TABLE IF NOT EXISTS study_logs (
    id         TEXT PRIMARY KEY,
    user_id    TEXT NOT NULL,
    card_id    TEXT NOT NULL,
    rating     INTEGER NOT NULL,
    time_spent INTEGER NOT NULL,
    timestamp  INTEGER NOT NULL,

    FOREIGN KEY(card_id) REFERENCES cards(id)
);
CREATE INDEX IF NOT EXISTS idx_study_logs_user_ts ON study_logs(user_id, timestamp);
`

// store is the server-side sqlite database. Rows are scoped by user and
// soft-deleted via deleted_at; listing never returns deleted rows.
type store struct {
	db *sqlx.DB
}

func openStore(dsn string) (*store, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open server database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec(serverSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply server schema: %w", err)
	}
	return &store{db: db}, nil
}

func (s *store) close() error {
	return s.db.Close()
}

type deckRow struct {
	ID          string        `db:"id"`
	UserID      string        `db:"user_id"`
	Name        string        `db:"name"`
	Description string        `db:"description"`
	CardsCount  int           `db:"cards_count"`
	CreatedAt   int64         `db:"created_at"`
	UpdatedAt   int64         `db:"updated_at"`
	DeletedAt   sql.NullInt64 `db:"deleted_at"`
}

func (r deckRow) toRemote() remote.Deck {
	return remote.Deck{
		ID:          r.ID,
		UserID:      r.UserID,
		Name:        r.Name,
		Description: r.Description,
		CardsCount:  r.CardsCount,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func (s *store) listDecks(ctx context.Context, userID string) ([]remote.Deck, error) {
	var rows []deckRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, name, description, cards_count, created_at, updated_at, deleted_at
		FROM decks WHERE user_id = ? AND deleted_at IS NULL
	`, userID)
	if err != nil {
		return nil, err
	}
	decks := make([]remote.Deck, 0, len(rows))
	for _, r := range rows {
		decks = append(decks, r.toRemote())
	}
	return decks, nil
}

func (s *store) getDeck(ctx context.Context, userID, id string) (*remote.Deck, error) {
	var row deckRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, user_id, name, description, cards_count, created_at, updated_at, deleted_at
		FROM decks WHERE id = ? AND user_id = ? AND deleted_at IS NULL
	`, id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	deck := row.toRemote()
	return &deck, nil
}

func (s *store) insertDeck(ctx context.Context, userID string, deck remote.Deck) (remote.Deck, error) {
	deck.ID = uuid.NewString()
	deck.UserID = userID
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO decks (id, user_id, name, description, cards_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, deck.ID, userID, deck.Name, deck.Description, deck.CardsCount, deck.CreatedAt, deck.UpdatedAt)
	if err != nil {
		return remote.Deck{}, err
	}
	return deck, nil
}

func (s *store) updateDeck(ctx context.Context, userID, id string, update remote.DeckUpdate) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE decks SET name = ?, description = ?, cards_count = ?, updated_at = ?
		WHERE id = ? AND user_id = ?
	`, update.Name, update.Description, update.CardsCount, update.UpdatedAt, id, userID)
	return err
}

type cardRow struct {
	ID        string        `db:"id"`
	UserID    string        `db:"user_id"`
	DeckID    string        `db:"deck_id"`
	Front     string        `db:"front"`
	Back      string        `db:"back"`
	CreatedAt int64         `db:"created_at"`
	UpdatedAt int64         `db:"updated_at"`
	DeletedAt sql.NullInt64 `db:"deleted_at"`
}

func (r cardRow) toRemote() remote.Card {
	return remote.Card{
		ID:        r.ID,
		UserID:    r.UserID,
		DeckID:    r.DeckID,
		Front:     r.Front,
		Back:      r.Back,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func (s *store) listCards(ctx context.Context, userID string) ([]remote.Card, error) {
	var rows []cardRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, deck_id, front, back, created_at, updated_at, deleted_at
		FROM cards WHERE user_id = ? AND deleted_at IS NULL
	`, userID)
	if err != nil {
		return nil, err
	}
	cards := make([]remote.Card, 0, len(rows))
	for _, r := range rows {
		cards = append(cards, r.toRemote())
	}
	return cards, nil
}

func (s *store) getCard(ctx context.Context, userID, id string) (*remote.Card, error) {
	var row cardRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, user_id, deck_id, front, back, created_at, updated_at, deleted_at
		FROM cards WHERE id = ? AND user_id = ? AND deleted_at IS NULL
	`, id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	card := row.toRemote()
	return &card, nil
}

func (s *store) insertCard(ctx context.Context, userID string, card remote.Card) (remote.Card, error) {
	if card.ID == "" {
		card.ID = uuid.NewString()
	}
	card.UserID = userID
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cards (id, user_id, deck_id, front, back, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, card.ID, userID, card.DeckID, card.Front, card.Back, card.CreatedAt, card.UpdatedAt)
	if err != nil {
		return remote.Card{}, err
	}
	return card, nil
}

func (s *store) updateCard(ctx context.Context, userID, id string, update remote.CardUpdate) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE cards SET deck_id = ?, front = ?, back = ?, updated_at = ?
		WHERE id = ? AND user_id = ?
	`, update.DeckID, update.Front, update.Back, update.UpdatedAt, id, userID)
	return err
}

func (s *store) listReviews(ctx context.Context, userID string) ([]remote.Review, error) {
	var reviews []remote.Review
	err := s.db.SelectContext(ctx, &reviews, `
		SELECT id, user_id, card_id, ease_factor, interval, repetitions,
		       next_review, last_review, created_at, updated_at
		FROM card_reviews WHERE user_id = ?
	`, userID)
	if err != nil {
		return nil, err
	}
	return reviews, nil
}

func (s *store) insertReview(ctx context.Context, userID string, review remote.Review) (remote.Review, error) {
	review.ID = uuid.NewString()
	review.UserID = userID
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO card_reviews (id, user_id, card_id, ease_factor, interval, repetitions,
		                          next_review, last_review, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, review.ID, userID, review.CardID, review.EaseFactor, review.Interval,
		review.Repetitions, review.NextReview, review.LastReview, review.CreatedAt, review.UpdatedAt)
	if err != nil {
		return remote.Review{}, err
	}
	return review, nil
}

func (s *store) updateReviewByCard(ctx context.Context, userID, cardID string, update remote.ReviewUpdate) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE card_reviews
		SET ease_factor = ?, interval = ?, repetitions = ?, next_review = ?,
		    last_review = ?, updated_at = ?
		WHERE card_id = ? AND user_id = ?
	`, update.EaseFactor, update.Interval, update.Repetitions, update.NextReview,
		update.LastReview, update.UpdatedAt, cardID, userID)
	return err
}

func (s *store) latestStudyLogTimestamp(ctx context.Context, userID string) (int64, error) {
	var max int64
	err := s.db.GetContext(ctx, &max, `
		SELECT COALESCE(MAX(timestamp), 0) FROM study_logs WHERE user_id = ?
	`, userID)
	if err != nil {
		return 0, err
	}
	return max, nil
}

func (s *store) listStudyLogsAfter(ctx context.Context, userID string, after int64) ([]remote.StudyLog, error) {
	var logs []remote.StudyLog
	err := s.db.SelectContext(ctx, &logs, `
		SELECT id, user_id, card_id, rating, time_spent, timestamp
		FROM study_logs WHERE user_id = ? AND timestamp > ?
		ORDER BY timestamp
	`, userID, after)
	if err != nil {
		return nil, err
	}
	return logs, nil
}

func (s *store) insertStudyLog(ctx context.Context, userID string, log remote.StudyLog) (remote.StudyLog, error) {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	log.UserID = userID
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO study_logs (id, user_id, card_id, rating, time_spent, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)
	`, log.ID, userID, log.CardID, log.Rating, log.TimeSpent, log.Timestamp)
	if err != nil {
		return remote.StudyLog{}, err
	}
	return log, nil
}
