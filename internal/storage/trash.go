package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/conorfennell/recall/internal/domain"
)

type trashRow struct {
	ID          string `db:"id"`
	Type        string `db:"type"`
	Name        string `db:"name"`
	Description string `db:"description"`
	DeckName    string `db:"deck_name"`
	DeletedAt   int64  `db:"deleted_at"`
	Data        string `db:"data"`
}

const trashColumns = `id, type, name, description, deck_name, deleted_at, data`

func (r trashRow) toDomain() (domain.TrashItem, error) {
	item := domain.TrashItem{
		ID:          r.ID,
		Type:        r.Type,
		Name:        r.Name,
		Description: r.Description,
		DeckName:    r.DeckName,
		DeletedAt:   r.DeletedAt,
	}
	if err := json.Unmarshal([]byte(r.Data), &item.Data); err != nil {
		return item, fmt.Errorf("failed to decode trash payload %s: %w", r.ID, err)
	}
	return item, nil
}

// GetTrashItem retrieves one trash entry by id, or nil if it does not exist.
func (s *Store) GetTrashItem(ctx context.Context, id string) (*domain.TrashItem, error) {
	var row trashRow
	err := s.db.GetContext(ctx, &row, `SELECT `+trashColumns+` FROM trash_items WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trash item %s: %w", id, err)
	}
	item, err := row.toDomain()
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// ListTrashItems returns all trash entries, most recently deleted first.
func (s *Store) ListTrashItems(ctx context.Context) ([]domain.TrashItem, error) {
	var rows []trashRow
	err := s.db.SelectContext(ctx, &rows, `SELECT `+trashColumns+` FROM trash_items ORDER BY deleted_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list trash items: %w", err)
	}
	items := make([]domain.TrashItem, 0, len(rows))
	for _, r := range rows {
		item, err := r.toDomain()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// InsertTrashItem adds one trash entry.
func (s *Store) InsertTrashItem(ctx context.Context, item domain.TrashItem) error {
	return s.BulkInsertTrashItems(ctx, []domain.TrashItem{item})
}

// BulkInsertTrashItems adds a batch of trash entries in one transaction.
func (s *Store) BulkInsertTrashItems(ctx context.Context, items []domain.TrashItem) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO trash_items (`+trashColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare trash insert: %w", err)
	}
	defer stmt.Close()

	for _, item := range items {
		payload, err := json.Marshal(item.Data)
		if err != nil {
			return fmt.Errorf("failed to encode trash payload %s: %w", item.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, item.ID, item.Type, item.Name,
			item.Description, item.DeckName, item.DeletedAt, string(payload)); err != nil {
			return fmt.Errorf("failed to insert trash item %s: %w", item.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit trash inserts: %w", err)
	}
	return nil
}

// DeleteTrashItem removes one trash entry.
func (s *Store) DeleteTrashItem(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM trash_items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete trash item %s: %w", id, err)
	}
	return nil
}
