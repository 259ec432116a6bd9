// Package backup implements the versioned JSON export/import format. Import
// is a destructive wholesale restore: all four synced tables are replaced.
package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/conorfennell/recall/internal/domain"
	"github.com/conorfennell/recall/internal/storage"
)

// Version is the current backup format version.
const Version = 1

// Backup is the on-disk export shape. The entity model round-trips through
// it losslessly.
type Backup struct {
	Version    int                 `json:"version"`
	ExportDate int64               `json:"exportDate"`
	Decks      []domain.Deck       `json:"decks"`
	Cards      []domain.Card       `json:"cards"`
	Reviews    []domain.CardReview `json:"reviews"`
	Logs       []domain.StudyLog   `json:"logs"`
}

// Export reads the full dataset from the store.
func Export(ctx context.Context, store *storage.Store) (*Backup, error) {
	decks, err := store.ListDecks(ctx)
	if err != nil {
		return nil, err
	}
	cards, err := store.ListCards(ctx)
	if err != nil {
		return nil, err
	}
	reviews, err := store.ListReviews(ctx)
	if err != nil {
		return nil, err
	}
	logs, err := store.ListStudyLogs(ctx)
	if err != nil {
		return nil, err
	}

	return &Backup{
		Version:    Version,
		ExportDate: time.Now().UnixMilli(),
		Decks:      decks,
		Cards:      cards,
		Reviews:    reviews,
		Logs:       logs,
	}, nil
}

// Import replaces the store's contents with the backup's.
func Import(ctx context.Context, store *storage.Store, b *Backup) error {
	if b.Version != Version {
		return fmt.Errorf("unsupported backup version %d", b.Version)
	}
	return store.ReplaceAll(ctx, b.Decks, b.Cards, b.Reviews, b.Logs)
}

// WriteFile exports the dataset to a JSON file.
func WriteFile(ctx context.Context, store *storage.Store, path string) error {
	b, err := Export(ctx, store)
	if err != nil {
		return err
	}
	raw, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode backup: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return fmt.Errorf("failed to write backup %s: %w", path, err)
	}
	return nil
}

// ReadFile restores the dataset from a JSON file.
func ReadFile(ctx context.Context, store *storage.Store, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read backup %s: %w", path, err)
	}
	var b Backup
	if err := json.Unmarshal(raw, &b); err != nil {
		return fmt.Errorf("failed to decode backup %s: %w", path, err)
	}
	return Import(ctx, store, &b)
}
