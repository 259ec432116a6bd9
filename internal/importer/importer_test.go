package importer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/recall/internal/storage"
)

func newTestStore(t *testing.T) *storage.Store {
	t.Helper()
	store, err := storage.Open(filepath.Join(t.TempDir(), "recall.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func writeSourceDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "greetings.md"), []byte(
		"F: hola\nB: hello\n---\nF: adios\nB: goodbye\nN: also 'adiós'\n",
	), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte(
		"F: not a card file\nB: ignored\n",
	), 0o644))
	return dir
}

func TestImportDirectory(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	dir := writeSourceDir(t)

	require.NoError(t, importDirectory(ctx, store, dir, "Spanish"))

	decks, err := store.ListDecks(ctx)
	require.NoError(t, err)
	require.Len(t, decks, 1)
	assert.Equal(t, "Spanish", decks[0].Name)
	assert.Equal(t, 2, decks[0].CardsCount, "import updates the deck count")

	cards, err := store.ListCardsByDeck(ctx, decks[0].ID)
	require.NoError(t, err)
	require.Len(t, cards, 2, "only .md files are scanned")
	for _, card := range cards {
		assert.NotEmpty(t, card.ID)
		assert.Equal(t, dir, card.Source)
	}
}

func TestImportIsIdempotentByFront(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	dir := writeSourceDir(t)

	require.NoError(t, importDirectory(ctx, store, dir, "Spanish"))
	require.NoError(t, importDirectory(ctx, store, dir, "Spanish"))

	decks, err := store.ListDecks(ctx)
	require.NoError(t, err)
	require.Len(t, decks, 1, "reimport reuses the deck")

	cards, err := store.ListCardsByDeck(ctx, decks[0].ID)
	require.NoError(t, err)
	assert.Len(t, cards, 2, "cards already present are not duplicated")
}

func TestRunSkipsMissingSourceDir(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// a broken source must not panic or abort the others
	Run(ctx, store, []Source{
		{Path: filepath.Join(t.TempDir(), "does-not-exist"), Deck: "Broken"},
	}, t.TempDir())

	decks, err := store.ListDecks(ctx)
	require.NoError(t, err)
	assert.Empty(t, decks, "nothing imported from a missing directory")
}
