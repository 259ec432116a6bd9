package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/conorfennell/recall/internal/domain"
)

const reviewColumns = `id, card_id, ease, interval, repetitions, next_review, last_review, state`

// GetReview retrieves a review by id, or nil if it does not exist.
func (s *Store) GetReview(ctx context.Context, id string) (*domain.CardReview, error) {
	var review domain.CardReview
	err := s.db.GetContext(ctx, &review, `SELECT `+reviewColumns+` FROM card_reviews WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get review %s: %w", id, err)
	}
	return &review, nil
}

// GetReviewByCard retrieves the review for a card, or nil if the card has
// never been studied.
func (s *Store) GetReviewByCard(ctx context.Context, cardID string) (*domain.CardReview, error) {
	var review domain.CardReview
	err := s.db.GetContext(ctx, &review, `SELECT `+reviewColumns+` FROM card_reviews WHERE card_id = ?`, cardID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get review for card %s: %w", cardID, err)
	}
	return &review, nil
}

// ListReviews returns all scheduling rows.
func (s *Store) ListReviews(ctx context.Context) ([]domain.CardReview, error) {
	var reviews []domain.CardReview
	if err := s.db.SelectContext(ctx, &reviews, `SELECT `+reviewColumns+` FROM card_reviews`); err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	return reviews, nil
}

// InsertReview inserts a new scheduling row.
func (s *Store) InsertReview(ctx context.Context, review domain.CardReview) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO card_reviews (`+reviewColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, review.ID, review.CardID, review.Ease, review.Interval, review.Repetitions,
		review.NextReview, review.LastReview, string(review.State))
	if err != nil {
		return fmt.Errorf("failed to insert review %s: %w", review.ID, err)
	}
	return nil
}

// UpdateReview overwrites a review's scheduling fields, keyed by card id so
// local and downloaded rows are both reachable.
func (s *Store) UpdateReview(ctx context.Context, review domain.CardReview) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE card_reviews
		SET ease = ?, interval = ?, repetitions = ?, next_review = ?, last_review = ?, state = ?
		WHERE card_id = ?
	`, review.Ease, review.Interval, review.Repetitions, review.NextReview,
		review.LastReview, string(review.State), review.CardID)
	if err != nil {
		return fmt.Errorf("failed to update review for card %s: %w", review.CardID, err)
	}
	return nil
}

// DeleteReview removes a scheduling row by id.
func (s *Store) DeleteReview(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM card_reviews WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete review %s: %w", id, err)
	}
	return nil
}

// DeleteReviewByCard removes the scheduling row owned by a card. Used by the
// permanent-delete cascade.
func (s *Store) DeleteReviewByCard(ctx context.Context, cardID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM card_reviews WHERE card_id = ?`, cardID)
	if err != nil {
		return fmt.Errorf("failed to delete review for card %s: %w", cardID, err)
	}
	return nil
}
