// Package sync reconciles the local replica against a remote store, one
// entity type at a time, resolving conflicts by last-writer-wins timestamps.
package sync

import (
	"context"
	"log/slog"
	gosync "sync"
	"sync/atomic"
	"time"

	"github.com/conorfennell/recall/internal/remote"
	"github.com/conorfennell/recall/internal/storage"
)

// DefaultInterval is how often the automatic sync fires.
const DefaultInterval = 5 * time.Minute

// RemoteStore is the remote contract the engine consumes. *remote.Client
// implements it; tests substitute an in-memory fake.
type RemoteStore interface {
	// UserID identifies the session; empty means signed out and automatic
	// syncs are skipped.
	UserID() string

	ListDecks(ctx context.Context) ([]remote.Deck, error)
	GetDeck(ctx context.Context, id string) (*remote.Deck, error)
	InsertDeck(ctx context.Context, deck remote.Deck) (remote.Deck, error)
	UpdateDeck(ctx context.Context, id string, update remote.DeckUpdate) error

	ListCards(ctx context.Context) ([]remote.Card, error)
	GetCard(ctx context.Context, id string) (*remote.Card, error)
	InsertCard(ctx context.Context, card remote.Card) error
	UpdateCard(ctx context.Context, id string, update remote.CardUpdate) error

	ListReviews(ctx context.Context) ([]remote.Review, error)
	InsertReview(ctx context.Context, review remote.Review) error
	UpdateReview(ctx context.Context, cardID string, update remote.ReviewUpdate) error

	LatestStudyLogTimestamp(ctx context.Context) (int64, error)
	ListStudyLogsAfter(ctx context.Context, after int64) ([]remote.StudyLog, error)
	InsertStudyLog(ctx context.Context, log remote.StudyLog) error
}

// Status is what listeners observe after every state change.
type Status struct {
	Syncing  bool
	LastSync int64 // Unix milliseconds of the last successful run, zero if never
	Error    string
}

// Options tune an Engine. Zero values produce defaults.
type Options struct {
	Interval time.Duration // auto-sync period; zero means DefaultInterval
	Logger   *slog.Logger  // nil means slog.Default()
	Now      func() int64  // clock in Unix milliseconds; nil means time.Now
}

// Engine owns one replica pair. Construct with NewEngine, start the automatic
// trigger with Start, and release the timer with Close.
//
// Only one sync may run at a time; SyncAll while a run is in flight is a
// silent no-op. Within a run the four phases execute strictly in order
// (decks, cards, reviews, logs) because later phases check id existence
// against the earlier phases' writes.
type Engine struct {
	store    *storage.Store
	remote   RemoteStore
	log      *slog.Logger
	interval time.Duration
	now      func() int64

	inProgress atomic.Bool
	started    atomic.Bool

	mu        gosync.Mutex
	lastSync  int64
	listeners map[int]func(Status)
	nextID    int

	stopOnce gosync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewEngine creates an Engine over the local store and remote store.
func NewEngine(store *storage.Store, rs RemoteStore, opts Options) *Engine {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = func() int64 { return time.Now().UnixMilli() }
	}
	return &Engine{
		store:     store,
		remote:    rs,
		log:       opts.Logger,
		interval:  opts.Interval,
		now:       opts.Now,
		listeners: make(map[int]func(Status)),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start launches the automatic sync trigger. It fires every interval while a
// session exists and no sync is in progress. Start may be called at most
// once.
func (e *Engine) Start(ctx context.Context) {
	if !e.started.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer close(e.done)
		ticker := time.NewTicker(e.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if e.remote.UserID() == "" || e.inProgress.Load() {
					continue
				}
				if err := e.SyncAll(ctx); err != nil {
					e.log.Warn("automatic sync failed", "error", err)
				}
			case <-e.stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Close stops the automatic trigger and drops all listeners. It does not
// interrupt a run already in flight.
func (e *Engine) Close() {
	e.stopOnce.Do(func() {
		close(e.stop)
		if e.started.Load() {
			<-e.done
		}
	})
	e.mu.Lock()
	e.listeners = make(map[int]func(Status))
	e.mu.Unlock()
}

// OnStatusChange registers a listener and returns its unsubscribe function.
func (e *Engine) OnStatusChange(fn func(Status)) func() {
	e.mu.Lock()
	id := e.nextID
	e.nextID++
	e.listeners[id] = fn
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		delete(e.listeners, id)
		e.mu.Unlock()
	}
}

// Status returns the engine's current externally visible state.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Status{Syncing: e.inProgress.Load(), LastSync: e.lastSync}
}

func (e *Engine) notify(status Status) {
	e.mu.Lock()
	fns := make([]func(Status), 0, len(e.listeners))
	for _, fn := range e.listeners {
		fns = append(fns, fn)
	}
	e.mu.Unlock()

	for _, fn := range fns {
		fn(status)
	}
}

// SyncAll runs one full reconciliation. Safe to call repeatedly and from
// timers: a signed-out session or an in-flight run makes it a no-op.
func (e *Engine) SyncAll(ctx context.Context) error {
	if e.remote.UserID() == "" {
		e.log.Debug("no session, skipping sync")
		return nil
	}
	if !e.inProgress.CompareAndSwap(false, true) {
		e.log.Debug("sync already in progress")
		return nil
	}
	defer e.inProgress.Store(false)

	e.mu.Lock()
	last := e.lastSync
	e.mu.Unlock()
	e.notify(Status{Syncing: true, LastSync: last})

	e.log.Info("starting full sync")
	if err := e.run(ctx); err != nil {
		e.log.Error("sync failed", "error", err)
		e.notify(Status{Syncing: false, LastSync: last, Error: err.Error()})
		return err
	}

	e.mu.Lock()
	e.lastSync = e.now()
	last = e.lastSync
	e.mu.Unlock()

	e.notify(Status{Syncing: false, LastSync: last})
	e.log.Info("sync complete")
	return nil
}

// run executes the four phases in their required order. Deck and card errors
// are structural and abort the run; review and log problems are scoped inside
// their own phases.
func (e *Engine) run(ctx context.Context) error {
	if err := e.syncDecks(ctx); err != nil {
		return err
	}
	if err := e.syncCards(ctx); err != nil {
		return err
	}
	if err := e.syncReviews(ctx); err != nil {
		return err
	}
	return e.syncStudyLogs(ctx)
}
