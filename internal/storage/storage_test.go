package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/recall/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "recall.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func makeDeck(id, name string) domain.Deck {
	return domain.Deck{
		ID:             id,
		Name:           name,
		NewCardsPerDay: 20,
		ReviewsPerDay:  100,
		CreatedAt:      1000,
		UpdatedAt:      1000,
	}
}

func makeCard(id, deckID, front string) domain.Card {
	return domain.Card{
		ID:        id,
		DeckID:    deckID,
		Front:     front,
		Back:      "back of " + front,
		Tags:      []string{},
		Deleted:   domain.Active,
		CreatedAt: 1000,
		UpdatedAt: 1000,
	}
}

func TestDeckCRUD(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	deck := makeDeck("d1", "Spanish")
	require.NoError(t, store.InsertDeck(ctx, deck))

	got, err := store.GetDeck(ctx, "d1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Spanish", got.Name)
	assert.Equal(t, 20, got.NewCardsPerDay)

	deck.Name = "Spanish vocab"
	deck.UpdatedAt = 2000
	require.NoError(t, store.UpdateDeck(ctx, deck))

	got, err = store.GetDeck(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, "Spanish vocab", got.Name)
	assert.Equal(t, int64(2000), got.UpdatedAt)

	missing, err := store.GetDeck(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, store.InsertDeck(ctx, makeDeck("d2", "French")))
	decks, err := store.ListDecks(ctx)
	require.NoError(t, err)
	assert.Len(t, decks, 2)

	require.NoError(t, store.DeleteDeck(ctx, "d1"))
	got, err = store.GetDeck(ctx, "d1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestReplaceDeckID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.InsertDeck(ctx, makeDeck("local-id", "Spanish")))
	require.NoError(t, store.InsertCard(ctx, makeCard("c1", "local-id", "hola")))
	require.NoError(t, store.InsertCard(ctx, makeCard("c2", "local-id", "adios")))

	serverDeck := makeDeck("server-id", "Spanish")
	require.NoError(t, store.ReplaceDeckID(ctx, "local-id", serverDeck))

	old, err := store.GetDeck(ctx, "local-id")
	require.NoError(t, err)
	assert.Nil(t, old)

	got, err := store.GetDeck(ctx, "server-id")
	require.NoError(t, err)
	require.NotNil(t, got)

	cards, err := store.ListCardsByDeck(ctx, "server-id")
	require.NoError(t, err)
	assert.Len(t, cards, 2)
	for _, card := range cards {
		assert.Equal(t, "server-id", card.DeckID)
		assert.Equal(t, int64(1000), card.UpdatedAt, "id swap does not touch timestamps")
	}
}

func TestCardTags(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.InsertDeck(ctx, makeDeck("d1", "Spanish")))

	card := makeCard("c1", "d1", "hola")
	card.Tags = []string{"greetings", "basics"}
	require.NoError(t, store.InsertCard(ctx, card))

	got, err := store.GetCard(ctx, "c1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, []string{"greetings", "basics"}, got.Tags)

	// nil tags come back as an empty slice, never nil
	untagged := makeCard("c2", "d1", "adios")
	untagged.Tags = nil
	require.NoError(t, store.InsertCard(ctx, untagged))

	got, err = store.GetCard(ctx, "c2")
	require.NoError(t, err)
	require.NotNil(t, got.Tags)
	assert.Empty(t, got.Tags)
}

func TestActiveCards(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.InsertDeck(ctx, makeDeck("d1", "Spanish")))
	require.NoError(t, store.InsertDeck(ctx, makeDeck("d2", "French")))
	require.NoError(t, store.InsertCard(ctx, makeCard("c1", "d1", "hola")))
	require.NoError(t, store.InsertCard(ctx, makeCard("c2", "d1", "adios")))
	require.NoError(t, store.InsertCard(ctx, makeCard("c3", "d2", "bonjour")))

	require.NoError(t, store.MarkCardDeleted(ctx, "c2", 3000))

	active, err := store.ListActiveCards(ctx, "d1")
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "c1", active[0].ID)

	all, err := store.ListActiveCards(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	count, err := store.CountActiveCards(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	deleted, err := store.GetCard(ctx, "c2")
	require.NoError(t, err)
	assert.Equal(t, domain.Deleted, deleted.Deleted)
	assert.Equal(t, int64(3000), deleted.DeletedAt)

	require.NoError(t, store.MarkCardActive(ctx, "c2", 4000))
	restored, err := store.GetCard(ctx, "c2")
	require.NoError(t, err)
	assert.Equal(t, domain.Active, restored.Deleted)
	assert.Zero(t, restored.DeletedAt)
}

func TestReviewByCard(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.InsertDeck(ctx, makeDeck("d1", "Spanish")))
	require.NoError(t, store.InsertCard(ctx, makeCard("c1", "d1", "hola")))

	review := domain.CardReview{
		ID:         "c1",
		CardID:     "c1",
		Ease:       2.5,
		Interval:   0,
		NextReview: 1000,
		State:      domain.StateNew,
	}
	require.NoError(t, store.InsertReview(ctx, review))

	got, err := store.GetReviewByCard(ctx, "c1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, domain.StateNew, got.State)

	review.Interval = 2
	review.State = domain.StateReview
	review.LastReview = 2000
	require.NoError(t, store.UpdateReview(ctx, review))

	got, err = store.GetReviewByCard(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, domain.StateReview, got.State)
	assert.Equal(t, 2.0, got.Interval)

	missing, err := store.GetReviewByCard(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, store.DeleteReviewByCard(ctx, "c1"))
	got, err = store.GetReviewByCard(ctx, "c1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStudyLogs(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.InsertDeck(ctx, makeDeck("d1", "Spanish")))
	require.NoError(t, store.InsertCard(ctx, makeCard("c1", "d1", "hola")))

	max, err := store.MaxStudyLogTimestamp(ctx)
	require.NoError(t, err)
	assert.Zero(t, max)

	logs := []domain.StudyLog{
		{ID: "l1", CardID: "c1", Rating: domain.Good, TimeSpent: 4, Timestamp: 3000},
		{ID: "l2", CardID: "c1", Rating: domain.Again, TimeSpent: 9, Timestamp: 1000},
	}
	for _, log := range logs {
		require.NoError(t, store.InsertStudyLog(ctx, log))
	}

	listed, err := store.ListStudyLogs(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, "l2", listed[0].ID, "logs should come back in timestamp order")

	max, err = store.MaxStudyLogTimestamp(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3000), max)

	has, err := store.HasStudyLogAt(ctx, 3000)
	require.NoError(t, err)
	assert.True(t, has)
	has, err = store.HasStudyLogAt(ctx, 2000)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestTrashItems(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	card := makeCard("c1", "d1", "hola")
	items := []domain.TrashItem{
		{
			ID:        domain.TrashItemID("c1", 1000),
			Type:      domain.TrashItemTypeCard,
			Name:      "hola",
			DeckName:  "Spanish",
			DeletedAt: 1000,
			Data:      domain.TrashPayload{OriginalCard: card, DeckID: "d1"},
		},
		{
			ID:        domain.TrashItemID("c2", 2000),
			Type:      domain.TrashItemTypeCard,
			Name:      "adios",
			DeckName:  "Spanish",
			DeletedAt: 2000,
			Data:      domain.TrashPayload{OriginalCard: makeCard("c2", "d1", "adios"), DeckID: "d1"},
		},
	}
	require.NoError(t, store.BulkInsertTrashItems(ctx, items))

	listed, err := store.ListTrashItems(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, "adios", listed[0].Name, "newest deletions list first")

	got, err := store.GetTrashItem(ctx, items[0].ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "c1", got.Data.OriginalCard.ID)
	assert.Equal(t, "d1", got.Data.DeckID)

	require.NoError(t, store.DeleteTrashItem(ctx, items[0].ID))
	gone, err := store.GetTrashItem(ctx, items[0].ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestReplaceAll(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.InsertDeck(ctx, makeDeck("old", "Old deck")))
	require.NoError(t, store.InsertCard(ctx, makeCard("oc", "old", "stale")))

	decks := []domain.Deck{makeDeck("d1", "Spanish")}
	cards := []domain.Card{makeCard("c1", "d1", "hola")}
	reviews := []domain.CardReview{{ID: "c1", CardID: "c1", Ease: 2.5, State: domain.StateNew}}
	logs := []domain.StudyLog{{ID: "l1", CardID: "c1", Rating: domain.Good, Timestamp: 1000}}

	require.NoError(t, store.ReplaceAll(ctx, decks, cards, reviews, logs))

	gotDecks, err := store.ListDecks(ctx)
	require.NoError(t, err)
	require.Len(t, gotDecks, 1)
	assert.Equal(t, "d1", gotDecks[0].ID)

	gotCards, err := store.ListCards(ctx)
	require.NoError(t, err)
	require.Len(t, gotCards, 1)
	assert.Equal(t, "c1", gotCards[0].ID)

	gotLogs, err := store.ListStudyLogs(ctx)
	require.NoError(t, err)
	assert.Len(t, gotLogs, 1)
}
