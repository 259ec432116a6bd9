package storage

import (
	"context"
	"fmt"

	"github.com/conorfennell/recall/internal/domain"
)

const logColumns = `id, card_id, rating, time_spent, timestamp`

// ListStudyLogs returns all grading events, oldest first.
func (s *Store) ListStudyLogs(ctx context.Context) ([]domain.StudyLog, error) {
	var logs []domain.StudyLog
	err := s.db.SelectContext(ctx, &logs, `SELECT `+logColumns+` FROM study_logs ORDER BY timestamp`)
	if err != nil {
		return nil, fmt.Errorf("failed to list study logs: %w", err)
	}
	return logs, nil
}

// InsertStudyLog appends one grading event.
func (s *Store) InsertStudyLog(ctx context.Context, log domain.StudyLog) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO study_logs (`+logColumns+`) VALUES (?, ?, ?, ?, ?)
	`, log.ID, log.CardID, int(log.Rating), log.TimeSpent, log.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to insert study log %s: %w", log.ID, err)
	}
	return nil
}

// MaxStudyLogTimestamp returns the newest local grading timestamp, zero when
// there are no logs. Sync uses it as the download watermark.
func (s *Store) MaxStudyLogTimestamp(ctx context.Context) (int64, error) {
	var max int64
	err := s.db.GetContext(ctx, &max, `SELECT COALESCE(MAX(timestamp), 0) FROM study_logs`)
	if err != nil {
		return 0, fmt.Errorf("failed to get max study log timestamp: %w", err)
	}
	return max, nil
}

// HasStudyLogAt reports whether any log already carries this exact timestamp.
// Timestamp equality is the sync dedup key.
func (s *Store) HasStudyLogAt(ctx context.Context, timestamp int64) (bool, error) {
	var count int
	err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM study_logs WHERE timestamp = ?`, timestamp)
	if err != nil {
		return false, fmt.Errorf("failed to check study log at %d: %w", timestamp, err)
	}
	return count > 0, nil
}

// DeleteStudyLog removes one grading event. Only the maintenance sweep calls
// this; logs are otherwise append-only.
func (s *Store) DeleteStudyLog(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM study_logs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete study log %s: %w", id, err)
	}
	return nil
}
