// Package trash moves cards between active, deleted, and permanently deleted
// states, keeps the denormalized deck counts correct, and owns the
// recoverable-delete ledger.
package trash

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/conorfennell/recall/internal/domain"
	"github.com/conorfennell/recall/internal/storage"
)

// unknownDeckName is the display fallback when the owning deck is gone.
const unknownDeckName = "Unknown deck"

// nameSnapshotLimit caps the trash entry's name snapshot, in runes.
const nameSnapshotLimit = 50

// Manager performs soft-delete lifecycle operations against the local store.
// Operations on missing rows are silent no-ops: a card already gone is an
// expected state, not an error.
type Manager struct {
	store *storage.Store
	log   *slog.Logger
}

// NewManager creates a Manager over the local store.
func NewManager(store *storage.Store, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{store: store, log: log}
}

// SoftDeleteCard marks a card deleted, snapshots it into the trash ledger,
// and recounts the owning deck.
func (m *Manager) SoftDeleteCard(ctx context.Context, cardID string) error {
	card, err := m.store.GetCard(ctx, cardID)
	if err != nil {
		return err
	}
	if card == nil {
		return nil
	}

	deletedAt := time.Now().UnixMilli()
	if err := m.store.MarkCardDeleted(ctx, cardID, deletedAt); err != nil {
		return err
	}

	deck, err := m.store.GetDeck(ctx, card.DeckID)
	if err != nil {
		return err
	}

	item := m.buildTrashItem(*card, deck, deletedAt)
	if err := m.store.InsertTrashItem(ctx, item); err != nil {
		return err
	}

	if deck != nil {
		if err := m.recountDeck(ctx, deck.ID, deletedAt); err != nil {
			return err
		}
	}
	return nil
}

// BatchSoftDeleteCards soft-deletes a list of cards, inserting all trash
// entries as one batch and recounting each affected deck once. Cards that no
// longer exist are skipped.
func (m *Manager) BatchSoftDeleteCards(ctx context.Context, cardIDs []string) error {
	deletedAt := time.Now().UnixMilli()
	items := make([]domain.TrashItem, 0, len(cardIDs))
	affectedDecks := make(map[string]bool)

	for _, cardID := range cardIDs {
		card, err := m.store.GetCard(ctx, cardID)
		if err != nil {
			return err
		}
		if card == nil {
			continue
		}

		if err := m.store.MarkCardDeleted(ctx, cardID, deletedAt); err != nil {
			return err
		}

		deck, err := m.store.GetDeck(ctx, card.DeckID)
		if err != nil {
			return err
		}
		items = append(items, m.buildTrashItem(*card, deck, deletedAt))
		affectedDecks[card.DeckID] = true
	}

	if err := m.store.BulkInsertTrashItems(ctx, items); err != nil {
		return err
	}

	for deckID := range affectedDecks {
		deck, err := m.store.GetDeck(ctx, deckID)
		if err != nil {
			return err
		}
		if deck == nil {
			continue
		}
		if err := m.recountDeck(ctx, deckID, deletedAt); err != nil {
			return err
		}
	}
	return nil
}

// RestoreCard brings a soft-deleted card back to life and removes its trash
// entry.
func (m *Manager) RestoreCard(ctx context.Context, item domain.TrashItem) error {
	now := time.Now().UnixMilli()

	if err := m.store.MarkCardActive(ctx, item.Data.OriginalCard.ID, now); err != nil {
		return err
	}
	if err := m.store.DeleteTrashItem(ctx, item.ID); err != nil {
		return err
	}

	deck, err := m.store.GetDeck(ctx, item.Data.DeckID)
	if err != nil {
		return err
	}
	if deck != nil {
		return m.recountDeck(ctx, deck.ID, now)
	}
	return nil
}

// PermanentDeleteCard removes the card and its review row outright, drops the
// trash entry, and recounts the owning deck if it still exists.
func (m *Manager) PermanentDeleteCard(ctx context.Context, item domain.TrashItem) error {
	cardID := item.Data.OriginalCard.ID

	if err := m.store.DeleteCard(ctx, cardID); err != nil {
		return err
	}
	if err := m.store.DeleteReviewByCard(ctx, cardID); err != nil {
		return err
	}
	if err := m.store.DeleteTrashItem(ctx, item.ID); err != nil {
		return err
	}

	deck, err := m.store.GetDeck(ctx, item.Data.DeckID)
	if err != nil {
		return err
	}
	if deck != nil {
		return m.recountDeck(ctx, deck.ID, time.Now().UnixMilli())
	}
	return nil
}

// GetActiveCards returns every studyable card, optionally scoped to one deck
// when deckID is non-empty. This is the canonical "what can be studied" view.
func (m *Manager) GetActiveCards(ctx context.Context, deckID string) ([]domain.Card, error) {
	return m.store.ListActiveCards(ctx, deckID)
}

// GetTrashItems returns the ledger, most recently deleted first.
func (m *Manager) GetTrashItems(ctx context.Context) ([]domain.TrashItem, error) {
	return m.store.ListTrashItems(ctx)
}

// EmptyTrash permanently deletes every card entry in the ledger and returns
// the number processed.
func (m *Manager) EmptyTrash(ctx context.Context) (int, error) {
	items, err := m.store.ListTrashItems(ctx)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, item := range items {
		if item.Type != domain.TrashItemTypeCard {
			continue
		}
		if err := m.PermanentDeleteCard(ctx, item); err != nil {
			return deleted, fmt.Errorf("failed to empty trash at %s: %w", item.ID, err)
		}
		deleted++
	}
	return deleted, nil
}

// buildTrashItem freezes a card into a ledger entry. The name snapshot is the
// front truncated to 50 runes; the full back is preserved as the description.
func (m *Manager) buildTrashItem(card domain.Card, deck *domain.Deck, deletedAt int64) domain.TrashItem {
	name := card.Front
	if runes := []rune(name); len(runes) > nameSnapshotLimit {
		name = string(runes[:nameSnapshotLimit]) + "..."
	}
	deckName := unknownDeckName
	if deck != nil {
		deckName = deck.Name
	}

	snapshot := card
	snapshot.Deleted = domain.Deleted
	snapshot.DeletedAt = deletedAt
	snapshot.UpdatedAt = deletedAt

	return domain.TrashItem{
		ID:          domain.TrashItemID(card.ID, deletedAt),
		Type:        domain.TrashItemTypeCard,
		Name:        name,
		Description: card.Back,
		DeckName:    deckName,
		DeletedAt:   deletedAt,
		Data: domain.TrashPayload{
			OriginalCard: snapshot,
			DeckID:       card.DeckID,
		},
	}
}

// recountDeck is the single place the cards_count cache is written from a
// mutation path.
func (m *Manager) recountDeck(ctx context.Context, deckID string, updatedAt int64) error {
	count, err := m.store.CountActiveCards(ctx, deckID)
	if err != nil {
		return err
	}
	return m.store.SetDeckCardsCount(ctx, deckID, count, updatedAt)
}
