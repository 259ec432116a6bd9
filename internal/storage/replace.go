package storage

import (
	"context"
	"fmt"

	"github.com/conorfennell/recall/internal/domain"
)

// ReplaceAll wipes the four synced tables and loads the given dataset in one
// transaction. This is the destructive restore path of the backup format.
func (s *Store) ReplaceAll(ctx context.Context, decks []domain.Deck, cards []domain.Card,
	reviews []domain.CardReview, logs []domain.StudyLog) error {

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"study_logs", "card_reviews", "cards", "decks"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	for _, deck := range decks {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO decks (id, name, description, cards_count, new_cards_per_day,
			                   reviews_per_day, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, deck.ID, deck.Name, deck.Description, deck.CardsCount,
			deck.NewCardsPerDay, deck.ReviewsPerDay, deck.CreatedAt, deck.UpdatedAt); err != nil {
			return fmt.Errorf("failed to restore deck %s: %w", deck.ID, err)
		}
	}

	for _, card := range cards {
		tags, err := encodeTags(card.Tags)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO cards (`+cardColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, card.ID, card.DeckID, card.Front, card.Back, tags, card.Source, card.Notes,
			string(card.Deleted), card.DeletedAt, card.CreatedAt, card.UpdatedAt); err != nil {
			return fmt.Errorf("failed to restore card %s: %w", card.ID, err)
		}
	}

	for _, review := range reviews {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO card_reviews (`+reviewColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, review.ID, review.CardID, review.Ease, review.Interval, review.Repetitions,
			review.NextReview, review.LastReview, string(review.State)); err != nil {
			return fmt.Errorf("failed to restore review %s: %w", review.ID, err)
		}
	}

	for _, log := range logs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO study_logs (`+logColumns+`) VALUES (?, ?, ?, ?, ?)
		`, log.ID, log.CardID, int(log.Rating), log.TimeSpent, log.Timestamp); err != nil {
			return fmt.Errorf("failed to restore study log %s: %w", log.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit restore: %w", err)
	}
	return nil
}
