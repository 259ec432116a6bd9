package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/conorfennell/recall/internal/domain"
)

// GetDeck retrieves a deck by id, or nil if it does not exist.
func (s *Store) GetDeck(ctx context.Context, id string) (*domain.Deck, error) {
	var deck domain.Deck
	err := s.db.GetContext(ctx, &deck, `
		SELECT id, name, description, cards_count, new_cards_per_day, reviews_per_day,
		       created_at, updated_at
		FROM decks WHERE id = ?
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get deck %s: %w", id, err)
	}
	return &deck, nil
}

// ListDecks returns all decks.
func (s *Store) ListDecks(ctx context.Context) ([]domain.Deck, error) {
	var decks []domain.Deck
	err := s.db.SelectContext(ctx, &decks, `
		SELECT id, name, description, cards_count, new_cards_per_day, reviews_per_day,
		       created_at, updated_at
		FROM decks ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list decks: %w", err)
	}
	return decks, nil
}

// InsertDeck inserts a new deck.
func (s *Store) InsertDeck(ctx context.Context, deck domain.Deck) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO decks (id, name, description, cards_count, new_cards_per_day,
		                   reviews_per_day, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, deck.ID, deck.Name, deck.Description, deck.CardsCount,
		deck.NewCardsPerDay, deck.ReviewsPerDay, deck.CreatedAt, deck.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert deck %s: %w", deck.ID, err)
	}
	return nil
}

// UpdateDeck overwrites a deck's mutable fields.
func (s *Store) UpdateDeck(ctx context.Context, deck domain.Deck) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE decks
		SET name = ?, description = ?, cards_count = ?, new_cards_per_day = ?,
		    reviews_per_day = ?, updated_at = ?
		WHERE id = ?
	`, deck.Name, deck.Description, deck.CardsCount, deck.NewCardsPerDay,
		deck.ReviewsPerDay, deck.UpdatedAt, deck.ID)
	if err != nil {
		return fmt.Errorf("failed to update deck %s: %w", deck.ID, err)
	}
	return nil
}

// SetDeckCardsCount patches only the denormalized count.
func (s *Store) SetDeckCardsCount(ctx context.Context, id string, count int, updatedAt int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE decks SET cards_count = ?, updated_at = ? WHERE id = ?
	`, count, updatedAt, id)
	if err != nil {
		return fmt.Errorf("failed to set cards count for deck %s: %w", id, err)
	}
	return nil
}

// DeleteDeck removes a deck row.
func (s *Store) DeleteDeck(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM decks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete deck %s: %w", id, err)
	}
	return nil
}

// ReplaceDeckID swaps a deck's primary key after the remote assigned a
// canonical id: dependent cards are rewritten first, then the deck row is
// replaced, all in one transaction so a crash cannot leave dangling
// references. Timestamps are left untouched; an id swap is not an edit.
func (s *Store) ReplaceDeckID(ctx context.Context, oldID string, deck domain.Deck) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		UPDATE cards SET deck_id = ? WHERE deck_id = ?
	`, deck.ID, oldID); err != nil {
		return fmt.Errorf("failed to reassign cards from deck %s: %w", oldID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM decks WHERE id = ?`, oldID); err != nil {
		return fmt.Errorf("failed to delete deck %s: %w", oldID, err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO decks (id, name, description, cards_count, new_cards_per_day,
		                   reviews_per_day, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, deck.ID, deck.Name, deck.Description, deck.CardsCount,
		deck.NewCardsPerDay, deck.ReviewsPerDay, deck.CreatedAt, deck.UpdatedAt); err != nil {
		return fmt.Errorf("failed to reinsert deck as %s: %w", deck.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit deck id replacement: %w", err)
	}
	return nil
}
