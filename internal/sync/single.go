package sync

import (
	"context"
	"fmt"

	"github.com/conorfennell/recall/internal/remote"
)

// SyncDeck pushes one deck immediately after an edit: existence check, then
// update-or-insert. No download phase, no conflict comparison.
func (e *Engine) SyncDeck(ctx context.Context, deckID string) error {
	if e.remote.UserID() == "" {
		return nil
	}

	deck, err := e.store.GetDeck(ctx, deckID)
	if err != nil {
		return err
	}
	if deck == nil {
		return nil
	}

	existing, err := e.remote.GetDeck(ctx, deckID)
	if err != nil {
		return fmt.Errorf("failed to check remote deck %s: %w", deckID, err)
	}

	if existing != nil {
		return e.remote.UpdateDeck(ctx, deckID, remote.DeckUpdate{
			Name:        deck.Name,
			Description: deck.Description,
			CardsCount:  deck.CardsCount,
			UpdatedAt:   deck.UpdatedAt,
		})
	}

	_, err = e.remote.InsertDeck(ctx, remote.Deck{
		Name:        deck.Name,
		Description: deck.Description,
		CardsCount:  deck.CardsCount,
		CreatedAt:   deck.CreatedAt,
		UpdatedAt:   deck.UpdatedAt,
	})
	return err
}

// SyncCard pushes one card immediately after an edit, same policy as
// SyncDeck.
func (e *Engine) SyncCard(ctx context.Context, cardID string) error {
	if e.remote.UserID() == "" {
		return nil
	}

	card, err := e.store.GetCard(ctx, cardID)
	if err != nil {
		return err
	}
	if card == nil {
		return nil
	}

	existing, err := e.remote.GetCard(ctx, cardID)
	if err != nil {
		return fmt.Errorf("failed to check remote card %s: %w", cardID, err)
	}

	if existing != nil {
		return e.remote.UpdateCard(ctx, cardID, remote.CardUpdate{
			DeckID:    card.DeckID,
			Front:     card.Front,
			Back:      card.Back,
			UpdatedAt: card.UpdatedAt,
		})
	}

	return e.remote.InsertCard(ctx, remote.Card{
		ID:        card.ID,
		DeckID:    card.DeckID,
		Front:     card.Front,
		Back:      card.Back,
		CreatedAt: card.CreatedAt,
		UpdatedAt: card.UpdatedAt,
	})
}
