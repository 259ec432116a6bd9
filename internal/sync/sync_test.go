package sync

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/recall/internal/domain"
	"github.com/conorfennell/recall/internal/remote"
	"github.com/conorfennell/recall/internal/storage"
)

// fakeRemote is an in-memory RemoteStore with server-side id assignment for
// decks and reviews, mirroring recalld. Mutation counters let tests assert
// that a second sync is a no-op.
type fakeRemote struct {
	userID string

	decks   []remote.Deck
	cards   []remote.Card
	reviews []remote.Review
	logs    []remote.StudyLog

	nextID int

	listDecksErr error

	deckInserts, deckUpdates     int
	cardInserts, cardUpdates     int
	reviewInserts, reviewUpdates int
	logInserts                   int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{userID: "user-1"}
}

func (f *fakeRemote) resetCounters() {
	f.deckInserts, f.deckUpdates = 0, 0
	f.cardInserts, f.cardUpdates = 0, 0
	f.reviewInserts, f.reviewUpdates = 0, 0
	f.logInserts = 0
}

func (f *fakeRemote) mutations() int {
	return f.deckInserts + f.deckUpdates + f.cardInserts + f.cardUpdates +
		f.reviewInserts + f.reviewUpdates + f.logInserts
}

func (f *fakeRemote) serverID(kind string) string {
	f.nextID++
	return fmt.Sprintf("srv-%s-%d", kind, f.nextID)
}

func (f *fakeRemote) UserID() string { return f.userID }

func (f *fakeRemote) ListDecks(ctx context.Context) ([]remote.Deck, error) {
	if f.listDecksErr != nil {
		return nil, f.listDecksErr
	}
	return append([]remote.Deck(nil), f.decks...), nil
}

func (f *fakeRemote) GetDeck(ctx context.Context, id string) (*remote.Deck, error) {
	for i := range f.decks {
		if f.decks[i].ID == id {
			d := f.decks[i]
			return &d, nil
		}
	}
	return nil, nil
}

func (f *fakeRemote) InsertDeck(ctx context.Context, deck remote.Deck) (remote.Deck, error) {
	deck.ID = f.serverID("deck")
	deck.UserID = f.userID
	f.decks = append(f.decks, deck)
	f.deckInserts++
	return deck, nil
}

func (f *fakeRemote) UpdateDeck(ctx context.Context, id string, update remote.DeckUpdate) error {
	for i := range f.decks {
		if f.decks[i].ID == id {
			f.decks[i].Name = update.Name
			f.decks[i].Description = update.Description
			f.decks[i].CardsCount = update.CardsCount
			f.decks[i].UpdatedAt = update.UpdatedAt
			f.deckUpdates++
			return nil
		}
	}
	return fmt.Errorf("deck %s not found", id)
}

func (f *fakeRemote) ListCards(ctx context.Context) ([]remote.Card, error) {
	return append([]remote.Card(nil), f.cards...), nil
}

func (f *fakeRemote) GetCard(ctx context.Context, id string) (*remote.Card, error) {
	for i := range f.cards {
		if f.cards[i].ID == id {
			c := f.cards[i]
			return &c, nil
		}
	}
	return nil, nil
}

func (f *fakeRemote) InsertCard(ctx context.Context, card remote.Card) error {
	card.UserID = f.userID
	f.cards = append(f.cards, card)
	f.cardInserts++
	return nil
}

func (f *fakeRemote) UpdateCard(ctx context.Context, id string, update remote.CardUpdate) error {
	for i := range f.cards {
		if f.cards[i].ID == id {
			f.cards[i].DeckID = update.DeckID
			f.cards[i].Front = update.Front
			f.cards[i].Back = update.Back
			f.cards[i].UpdatedAt = update.UpdatedAt
			f.cardUpdates++
			return nil
		}
	}
	return fmt.Errorf("card %s not found", id)
}

func (f *fakeRemote) ListReviews(ctx context.Context) ([]remote.Review, error) {
	return append([]remote.Review(nil), f.reviews...), nil
}

func (f *fakeRemote) InsertReview(ctx context.Context, review remote.Review) error {
	review.ID = f.serverID("review")
	review.UserID = f.userID
	f.reviews = append(f.reviews, review)
	f.reviewInserts++
	return nil
}

func (f *fakeRemote) UpdateReview(ctx context.Context, cardID string, update remote.ReviewUpdate) error {
	for i := range f.reviews {
		if f.reviews[i].CardID == cardID {
			f.reviews[i].EaseFactor = update.EaseFactor
			f.reviews[i].Interval = update.Interval
			f.reviews[i].Repetitions = update.Repetitions
			f.reviews[i].NextReview = update.NextReview
			f.reviews[i].LastReview = update.LastReview
			f.reviews[i].UpdatedAt = update.UpdatedAt
			f.reviewUpdates++
			return nil
		}
	}
	return fmt.Errorf("review for card %s not found", cardID)
}

func (f *fakeRemote) LatestStudyLogTimestamp(ctx context.Context) (int64, error) {
	var max int64
	for _, l := range f.logs {
		if l.Timestamp > max {
			max = l.Timestamp
		}
	}
	return max, nil
}

func (f *fakeRemote) ListStudyLogsAfter(ctx context.Context, after int64) ([]remote.StudyLog, error) {
	var out []remote.StudyLog
	for _, l := range f.logs {
		if l.Timestamp > after {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeRemote) InsertStudyLog(ctx context.Context, log remote.StudyLog) error {
	log.ID = f.serverID("log")
	log.UserID = f.userID
	f.logs = append(f.logs, log)
	f.logInserts++
	return nil
}

func newTestEngine(t *testing.T, rs RemoteStore) (*Engine, *storage.Store) {
	t.Helper()
	store, err := storage.Open(filepath.Join(t.TempDir(), "recall.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	engine := NewEngine(store, rs, Options{
		Now: func() int64 { return 9_000 },
	})
	t.Cleanup(engine.Close)
	return engine, store
}

func seedLocalDeck(t *testing.T, store *storage.Store, id string, updatedAt int64) {
	t.Helper()
	require.NoError(t, store.InsertDeck(context.Background(), domain.Deck{
		ID: id, Name: "Deck " + id, NewCardsPerDay: 20, ReviewsPerDay: 100,
		CreatedAt: 1000, UpdatedAt: updatedAt,
	}))
}

func seedLocalCard(t *testing.T, store *storage.Store, id, deckID string, updatedAt int64) {
	t.Helper()
	require.NoError(t, store.InsertCard(context.Background(), domain.Card{
		ID: id, DeckID: deckID, Front: "front " + id, Back: "back " + id,
		Tags: []string{}, Deleted: domain.Active, CreatedAt: 1000, UpdatedAt: updatedAt,
	}))
}

func TestSyncAllNoSession(t *testing.T) {
	rs := newFakeRemote()
	rs.userID = ""
	engine, store := newTestEngine(t, rs)
	seedLocalDeck(t, store, "d1", 1000)

	require.NoError(t, engine.SyncAll(context.Background()))
	assert.Zero(t, rs.mutations())
}

func TestSyncAllWhileInProgressIsNoOp(t *testing.T) {
	rs := newFakeRemote()
	engine, store := newTestEngine(t, rs)
	seedLocalDeck(t, store, "d1", 1000)

	engine.inProgress.Store(true)
	require.NoError(t, engine.SyncAll(context.Background()))
	assert.Zero(t, rs.mutations())
}

func TestUploadNewDeckAdoptsServerID(t *testing.T) {
	rs := newFakeRemote()
	engine, store := newTestEngine(t, rs)
	ctx := context.Background()

	seedLocalDeck(t, store, "local-deck", 2000)
	seedLocalCard(t, store, "c1", "local-deck", 2000)
	seedLocalCard(t, store, "c2", "local-deck", 2000)

	require.NoError(t, engine.SyncAll(ctx))

	require.Len(t, rs.decks, 1)
	serverID := rs.decks[0].ID
	assert.NotEqual(t, "local-deck", serverID)

	old, err := store.GetDeck(ctx, "local-deck")
	require.NoError(t, err)
	assert.Nil(t, old, "local deck row moves under the server id")

	adopted, err := store.GetDeck(ctx, serverID)
	require.NoError(t, err)
	require.NotNil(t, adopted)

	cards, err := store.ListCardsByDeck(ctx, serverID)
	require.NoError(t, err)
	assert.Len(t, cards, 2, "dependent cards follow the deck to its new id")

	// cards were reconciled against the remapped deck in the same run
	assert.Len(t, rs.cards, 2)
	for _, rc := range rs.cards {
		assert.Equal(t, serverID, rc.DeckID)
	}
}

func TestDownloadRemoteDeckAndCards(t *testing.T) {
	rs := newFakeRemote()
	rs.decks = []remote.Deck{{ID: "rd1", Name: "Remote deck", CreatedAt: 1000, UpdatedAt: 2000}}
	rs.cards = []remote.Card{{ID: "rc1", DeckID: "rd1", Front: "f", Back: "b", CreatedAt: 1000, UpdatedAt: 2000}}
	engine, store := newTestEngine(t, rs)
	ctx := context.Background()

	require.NoError(t, engine.SyncAll(ctx))

	deck, err := store.GetDeck(ctx, "rd1")
	require.NoError(t, err)
	require.NotNil(t, deck)
	assert.Equal(t, 20, deck.NewCardsPerDay, "downloaded decks get default session caps")
	assert.Equal(t, 100, deck.ReviewsPerDay)

	card, err := store.GetCard(ctx, "rc1")
	require.NoError(t, err)
	require.NotNil(t, card)
	assert.Equal(t, domain.Active, card.Deleted)
	assert.NotNil(t, card.Tags)
	assert.Empty(t, card.Tags)
}

func TestDeckLastWriterWins(t *testing.T) {
	rs := newFakeRemote()
	rs.decks = []remote.Deck{
		{ID: "stale", Name: "old name", UpdatedAt: 1000},
		{ID: "fresh", Name: "new remote name", UpdatedAt: 5000},
	}
	engine, store := newTestEngine(t, rs)
	ctx := context.Background()

	require.NoError(t, store.InsertDeck(ctx, domain.Deck{
		ID: "stale", Name: "new local name", CreatedAt: 500, UpdatedAt: 3000,
	}))
	require.NoError(t, store.InsertDeck(ctx, domain.Deck{
		ID: "fresh", Name: "old local name", CreatedAt: 500, UpdatedAt: 3000,
	}))

	require.NoError(t, engine.SyncAll(ctx))

	assert.Equal(t, "new local name", rs.decks[0].Name, "newer local deck pushes")
	assert.Equal(t, int64(3000), rs.decks[0].UpdatedAt)

	fresh, err := store.GetDeck(ctx, "fresh")
	require.NoError(t, err)
	assert.Equal(t, "new remote name", fresh.Name, "newer remote deck pulls")
	assert.Equal(t, int64(5000), fresh.UpdatedAt)
}

func TestCardLastWriterWins(t *testing.T) {
	rs := newFakeRemote()
	rs.decks = []remote.Deck{{ID: "d1", Name: "Deck", UpdatedAt: 1000}}
	rs.cards = []remote.Card{
		{ID: "stale", DeckID: "d1", Front: "old front", UpdatedAt: 1000},
		{ID: "fresh", DeckID: "d1", Front: "new remote front", UpdatedAt: 5000},
	}
	engine, store := newTestEngine(t, rs)
	ctx := context.Background()

	seedLocalDeck(t, store, "d1", 1000)
	seedLocalCard(t, store, "stale", "d1", 3000)
	seedLocalCard(t, store, "fresh", "d1", 3000)

	require.NoError(t, engine.SyncAll(ctx))

	assert.Equal(t, "front stale", rs.cards[0].Front, "newer local card pushes")

	fresh, err := store.GetCard(ctx, "fresh")
	require.NoError(t, err)
	assert.Equal(t, "new remote front", fresh.Front, "newer remote card pulls")
}

func TestCardUploadWaitsForRemoteDeck(t *testing.T) {
	rs := newFakeRemote()
	engine, store := newTestEngine(t, rs)
	ctx := context.Background()

	// card points at a deck that exists nowhere remotely and is not local
	// either, so the deck phase cannot upload it
	seedLocalCard(t, store, "c1", "missing-deck", 2000)

	require.NoError(t, engine.SyncAll(ctx))
	assert.Empty(t, rs.cards, "card skipped until its deck exists remotely")
}

func TestReviewConflictsByLastReview(t *testing.T) {
	rs := newFakeRemote()
	rs.decks = []remote.Deck{{ID: "d1", Name: "Deck", UpdatedAt: 1000}}
	rs.cards = []remote.Card{
		{ID: "c-push", DeckID: "d1", UpdatedAt: 1000},
		{ID: "c-pull", DeckID: "d1", UpdatedAt: 1000},
		{ID: "c-new", DeckID: "d1", UpdatedAt: 1000},
	}
	rs.reviews = []remote.Review{
		{ID: "r-push", CardID: "c-push", EaseFactor: 2.5, Interval: 1, LastReview: 1000},
		{ID: "r-pull", CardID: "c-pull", EaseFactor: 2.2, Interval: 9, Repetitions: 4, NextReview: 8000, LastReview: 5000},
	}
	engine, store := newTestEngine(t, rs)
	ctx := context.Background()

	seedLocalDeck(t, store, "d1", 1000)
	seedLocalCard(t, store, "c-push", "d1", 1000)
	seedLocalCard(t, store, "c-pull", "d1", 1000)
	seedLocalCard(t, store, "c-upload", "d1", 1000)

	require.NoError(t, store.InsertReview(ctx, domain.CardReview{
		ID: "c-push", CardID: "c-push", Ease: 2.65, Interval: 5, Repetitions: 2,
		NextReview: 7000, LastReview: 3000, State: domain.StateReview,
	}))
	require.NoError(t, store.InsertReview(ctx, domain.CardReview{
		ID: "c-pull", CardID: "c-pull", Ease: 2.5, Interval: 1, Repetitions: 1,
		NextReview: 4000, LastReview: 2000, State: domain.StateReview,
	}))
	require.NoError(t, store.InsertReview(ctx, domain.CardReview{
		ID: "c-upload", CardID: "c-upload", Ease: 2.5, Interval: 2, Repetitions: 1,
		NextReview: 6000, LastReview: 2500, State: domain.StateReview,
	}))

	require.NoError(t, engine.SyncAll(ctx))

	// local newer pushed remote
	pushed, err := engine.remote.ListReviews(ctx)
	require.NoError(t, err)
	byCard := make(map[string]remote.Review)
	for _, r := range pushed {
		byCard[r.CardID] = r
	}
	assert.Equal(t, int64(3000), byCard["c-push"].LastReview)
	assert.Equal(t, 2.65, byCard["c-push"].EaseFactor)

	// remote newer pulled local
	pulled, err := store.GetReviewByCard(ctx, "c-pull")
	require.NoError(t, err)
	assert.Equal(t, int64(5000), pulled.LastReview)
	assert.Equal(t, 2.2, pulled.Ease)
	assert.Equal(t, 4, pulled.Repetitions)

	// c-upload's card reached the remote in the card phase, so its
	// local-only review is uploaded in the same run
	_, uploaded := byCard["c-upload"]
	assert.True(t, uploaded)
}

func TestDownloadRemoteOnlyReview(t *testing.T) {
	rs := newFakeRemote()
	rs.decks = []remote.Deck{{ID: "d1", Name: "Deck", UpdatedAt: 1000}}
	rs.cards = []remote.Card{{ID: "c1", DeckID: "d1", UpdatedAt: 1000}}
	rs.reviews = []remote.Review{
		{ID: "srv-r1", CardID: "c1", EaseFactor: 2.35, Interval: 12, Repetitions: 6, NextReview: 9999, LastReview: 4000},
	}
	engine, store := newTestEngine(t, rs)
	ctx := context.Background()

	require.NoError(t, engine.SyncAll(ctx))

	review, err := store.GetReviewByCard(ctx, "c1")
	require.NoError(t, err)
	require.NotNil(t, review)
	assert.Equal(t, "srv-r1", review.ID, "downloaded reviews keep the server id")
	assert.Equal(t, domain.StateReview, review.State)
	assert.Equal(t, 2.35, review.Ease)
}

func TestStudyLogWatermark(t *testing.T) {
	rs := newFakeRemote()
	rs.decks = []remote.Deck{{ID: "d1", Name: "Deck", UpdatedAt: 1000}}
	rs.cards = []remote.Card{{ID: "c1", DeckID: "d1", UpdatedAt: 1000}}
	rs.logs = []remote.StudyLog{
		{ID: "srv-old", CardID: "c1", Rating: 3, Timestamp: 5000},
		{ID: "srv-new", CardID: "c1", Rating: 4, Timestamp: 7000},
	}
	engine, store := newTestEngine(t, rs)
	ctx := context.Background()

	seedLocalDeck(t, store, "d1", 1000)
	seedLocalCard(t, store, "c1", "d1", 1000)

	// below the remote watermark of 7000: not uploaded
	require.NoError(t, store.InsertStudyLog(ctx, domain.StudyLog{
		ID: "l-old", CardID: "c1", Rating: domain.Good, Timestamp: 4000,
	}))
	// above the watermark: uploaded
	require.NoError(t, store.InsertStudyLog(ctx, domain.StudyLog{
		ID: "l-new", CardID: "c1", Rating: domain.Easy, Timestamp: 8000,
	}))

	require.NoError(t, engine.SyncAll(ctx))

	assert.Equal(t, 1, rs.logInserts, "only the log past the watermark uploads")

	// downloads are gated on the newest local timestamp (8000), so neither
	// remote log comes down
	logs, err := store.ListStudyLogs(ctx)
	require.NoError(t, err)
	assert.Len(t, logs, 2)
}

func TestStudyLogDownloadSkipsEqualTimestamps(t *testing.T) {
	rs := newFakeRemote()
	rs.decks = []remote.Deck{{ID: "d1", Name: "Deck", UpdatedAt: 1000}}
	rs.cards = []remote.Card{{ID: "c1", DeckID: "d1", UpdatedAt: 1000}}
	rs.logs = []remote.StudyLog{
		{ID: "srv-dup", CardID: "c1", Rating: 3, Timestamp: 6000},
		{ID: "srv-fresh", CardID: "c1", Rating: 2, Timestamp: 7000},
	}
	engine, store := newTestEngine(t, rs)
	ctx := context.Background()

	seedLocalDeck(t, store, "d1", 1000)
	seedLocalCard(t, store, "c1", "d1", 1000)
	require.NoError(t, store.InsertStudyLog(ctx, domain.StudyLog{
		ID: "l-dup", CardID: "c1", Rating: domain.Good, Timestamp: 6000,
	}))

	require.NoError(t, engine.SyncAll(ctx))

	logs, err := store.ListStudyLogs(ctx)
	require.NoError(t, err)
	require.Len(t, logs, 2, "equal-timestamp log deduped, fresh one downloaded")
	assert.Equal(t, int64(7000), logs[1].Timestamp)
	assert.NotEqual(t, "srv-fresh", logs[1].ID, "downloaded logs get a fresh local id")
}

func TestSecondSyncIsNoOp(t *testing.T) {
	rs := newFakeRemote()
	rs.decks = []remote.Deck{{ID: "rd1", Name: "Remote deck", UpdatedAt: 2000}}
	engine, store := newTestEngine(t, rs)
	ctx := context.Background()

	seedLocalDeck(t, store, "local-deck", 2000)
	seedLocalCard(t, store, "c1", "local-deck", 2000)
	require.NoError(t, store.InsertReview(ctx, domain.CardReview{
		ID: "c1", CardID: "c1", Ease: 2.5, Interval: 1, Repetitions: 1,
		NextReview: 5000, LastReview: 2000, State: domain.StateReview,
	}))
	require.NoError(t, store.InsertStudyLog(ctx, domain.StudyLog{
		ID: "l1", CardID: "c1", Rating: domain.Good, Timestamp: 2000,
	}))

	require.NoError(t, engine.SyncAll(ctx))
	require.Positive(t, rs.mutations())

	rs.resetCounters()
	require.NoError(t, engine.SyncAll(ctx))
	assert.Zero(t, rs.mutations(), "a converged pair syncs with no writes")
}

func TestSyncAllAbortsOnDeckPhaseError(t *testing.T) {
	rs := newFakeRemote()
	rs.listDecksErr = fmt.Errorf("server unavailable")
	engine, store := newTestEngine(t, rs)
	seedLocalDeck(t, store, "d1", 1000)

	err := engine.SyncAll(context.Background())
	require.Error(t, err)
	assert.Zero(t, rs.mutations())

	status := engine.Status()
	assert.False(t, status.Syncing)
	assert.Zero(t, status.LastSync, "a failed run does not advance the sync time")
}

func TestStatusListeners(t *testing.T) {
	rs := newFakeRemote()
	engine, _ := newTestEngine(t, rs)

	var seen []Status
	unsubscribe := engine.OnStatusChange(func(s Status) { seen = append(seen, s) })

	require.NoError(t, engine.SyncAll(context.Background()))

	require.Len(t, seen, 2)
	assert.True(t, seen[0].Syncing)
	assert.False(t, seen[1].Syncing)
	assert.Equal(t, int64(9_000), seen[1].LastSync)

	unsubscribe()
	require.NoError(t, engine.SyncAll(context.Background()))
	assert.Len(t, seen, 2, "unsubscribed listeners stay silent")
}

func TestStartRunsAutomaticSync(t *testing.T) {
	rs := newFakeRemote()
	rs.decks = []remote.Deck{{ID: "rd1", Name: "Remote deck", UpdatedAt: 2000}}

	store, err := storage.Open(filepath.Join(t.TempDir(), "recall.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	engine := NewEngine(store, rs, Options{
		Interval: 20 * time.Millisecond,
		Now:      func() int64 { return 9_000 },
	})

	completed := make(chan Status, 1)
	engine.OnStatusChange(func(s Status) {
		if !s.Syncing {
			select {
			case completed <- s:
			default:
			}
		}
	})

	engine.Start(context.Background())
	select {
	case s := <-completed:
		assert.Equal(t, int64(9_000), s.LastSync)
	case <-time.After(2 * time.Second):
		t.Fatal("automatic sync never completed")
	}
	engine.Close()

	deck, err := store.GetDeck(context.Background(), "rd1")
	require.NoError(t, err)
	assert.NotNil(t, deck)
}

func TestSyncDeckPushesImmediately(t *testing.T) {
	rs := newFakeRemote()
	rs.decks = []remote.Deck{{ID: "d1", Name: "old", UpdatedAt: 1000}}
	engine, store := newTestEngine(t, rs)
	ctx := context.Background()

	require.NoError(t, store.InsertDeck(ctx, domain.Deck{
		ID: "d1", Name: "renamed", CreatedAt: 500, UpdatedAt: 4000,
	}))

	require.NoError(t, engine.SyncDeck(ctx, "d1"))
	assert.Equal(t, "renamed", rs.decks[0].Name)
	assert.Equal(t, 1, rs.deckUpdates)

	// missing locally: silent no-op
	require.NoError(t, engine.SyncDeck(ctx, "nope"))
	assert.Equal(t, 1, rs.deckUpdates)
}

func TestSyncCardInsertsWhenMissingRemotely(t *testing.T) {
	rs := newFakeRemote()
	engine, store := newTestEngine(t, rs)
	ctx := context.Background()

	seedLocalDeck(t, store, "d1", 1000)
	seedLocalCard(t, store, "c1", "d1", 2000)

	require.NoError(t, engine.SyncCard(ctx, "c1"))
	require.Len(t, rs.cards, 1)
	assert.Equal(t, "c1", rs.cards[0].ID, "single-card push keeps the local id")
}
