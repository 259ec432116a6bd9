package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/conorfennell/recall/internal/domain"
)

// cardRow mirrors the cards table; tags are a JSON-encoded column.
type cardRow struct {
	ID        string `db:"id"`
	DeckID    string `db:"deck_id"`
	Front     string `db:"front"`
	Back      string `db:"back"`
	Tags      string `db:"tags"`
	Source    string `db:"source"`
	Notes     string `db:"notes"`
	Deleted   string `db:"deleted"`
	DeletedAt int64  `db:"deleted_at"`
	CreatedAt int64  `db:"created_at"`
	UpdatedAt int64  `db:"updated_at"`
}

const cardColumns = `id, deck_id, front, back, tags, source, notes, deleted, deleted_at, created_at, updated_at`

func (r cardRow) toDomain() (domain.Card, error) {
	card := domain.Card{
		ID:        r.ID,
		DeckID:    r.DeckID,
		Front:     r.Front,
		Back:      r.Back,
		Source:    r.Source,
		Notes:     r.Notes,
		Deleted:   domain.DeletedStatus(r.Deleted),
		DeletedAt: r.DeletedAt,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if err := json.Unmarshal([]byte(r.Tags), &card.Tags); err != nil {
		return card, fmt.Errorf("failed to decode tags for card %s: %w", r.ID, err)
	}
	return card, nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	raw, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("failed to encode tags: %w", err)
	}
	return string(raw), nil
}

func cardsFromRows(rows []cardRow) ([]domain.Card, error) {
	cards := make([]domain.Card, 0, len(rows))
	for _, r := range rows {
		card, err := r.toDomain()
		if err != nil {
			return nil, err
		}
		cards = append(cards, card)
	}
	return cards, nil
}

// GetCard retrieves a card by id, or nil if it does not exist.
func (s *Store) GetCard(ctx context.Context, id string) (*domain.Card, error) {
	var row cardRow
	err := s.db.GetContext(ctx, &row, `SELECT `+cardColumns+` FROM cards WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get card %s: %w", id, err)
	}
	card, err := row.toDomain()
	if err != nil {
		return nil, err
	}
	return &card, nil
}

// ListCards returns every card, soft-deleted ones included.
func (s *Store) ListCards(ctx context.Context) ([]domain.Card, error) {
	var rows []cardRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT `+cardColumns+` FROM cards`); err != nil {
		return nil, fmt.Errorf("failed to list cards: %w", err)
	}
	return cardsFromRows(rows)
}

// ListCardsByDeck returns every card in one deck, soft-deleted ones included.
func (s *Store) ListCardsByDeck(ctx context.Context, deckID string) ([]domain.Card, error) {
	var rows []cardRow
	err := s.db.SelectContext(ctx, &rows, `SELECT `+cardColumns+` FROM cards WHERE deck_id = ?`, deckID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cards for deck %s: %w", deckID, err)
	}
	return cardsFromRows(rows)
}

// ListActiveCards returns all cards not in the trash, optionally scoped to
// one deck when deckID is non-empty.
func (s *Store) ListActiveCards(ctx context.Context, deckID string) ([]domain.Card, error) {
	var rows []cardRow
	var err error
	if deckID != "" {
		err = s.db.SelectContext(ctx, &rows,
			`SELECT `+cardColumns+` FROM cards WHERE deck_id = ? AND deleted != ?`, deckID, string(domain.Deleted))
	} else {
		err = s.db.SelectContext(ctx, &rows,
			`SELECT `+cardColumns+` FROM cards WHERE deleted != ?`, string(domain.Deleted))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list active cards: %w", err)
	}
	return cardsFromRows(rows)
}

// CountActiveCards counts the cards in a deck that are not soft-deleted.
func (s *Store) CountActiveCards(ctx context.Context, deckID string) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM cards WHERE deck_id = ? AND deleted != ?`, deckID, string(domain.Deleted))
	if err != nil {
		return 0, fmt.Errorf("failed to count active cards for deck %s: %w", deckID, err)
	}
	return count, nil
}

// InsertCard inserts a new card.
func (s *Store) InsertCard(ctx context.Context, card domain.Card) error {
	tags, err := encodeTags(card.Tags)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO cards (`+cardColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, card.ID, card.DeckID, card.Front, card.Back, tags, card.Source, card.Notes,
		string(card.Deleted), card.DeletedAt, card.CreatedAt, card.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert card %s: %w", card.ID, err)
	}
	return nil
}

// UpdateCard overwrites a card's mutable fields.
func (s *Store) UpdateCard(ctx context.Context, card domain.Card) error {
	tags, err := encodeTags(card.Tags)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		UPDATE cards
		SET deck_id = ?, front = ?, back = ?, tags = ?, source = ?, notes = ?,
		    deleted = ?, deleted_at = ?, updated_at = ?
		WHERE id = ?
	`, card.DeckID, card.Front, card.Back, tags, card.Source, card.Notes,
		string(card.Deleted), card.DeletedAt, card.UpdatedAt, card.ID)
	if err != nil {
		return fmt.Errorf("failed to update card %s: %w", card.ID, err)
	}
	return nil
}

// MarkCardDeleted flips a card into the trash state.
func (s *Store) MarkCardDeleted(ctx context.Context, id string, deletedAt int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE cards SET deleted = ?, deleted_at = ?, updated_at = ? WHERE id = ?
	`, string(domain.Deleted), deletedAt, deletedAt, id)
	if err != nil {
		return fmt.Errorf("failed to mark card %s deleted: %w", id, err)
	}
	return nil
}

// MarkCardActive restores a soft-deleted card.
func (s *Store) MarkCardActive(ctx context.Context, id string, updatedAt int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE cards SET deleted = ?, deleted_at = 0, updated_at = ? WHERE id = ?
	`, string(domain.Active), updatedAt, id)
	if err != nil {
		return fmt.Errorf("failed to restore card %s: %w", id, err)
	}
	return nil
}

// DeleteCard removes a card row outright.
func (s *Store) DeleteCard(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM cards WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete card %s: %w", id, err)
	}
	return nil
}
