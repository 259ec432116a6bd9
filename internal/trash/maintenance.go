package trash

import (
	"context"
	"time"
)

// MaintenanceResult reports what the integrity sweep touched.
type MaintenanceResult struct {
	DecksRecounted  int
	OrphanedReviews int
	OrphanedLogs    int
}

// RunMaintenance is the self-healing integrity sweep run at startup: it
// corrects drifted deck counts and removes review and log rows whose card row
// is gone. It is idempotent; running it twice changes nothing.
func (m *Manager) RunMaintenance(ctx context.Context) (MaintenanceResult, error) {
	var result MaintenanceResult

	recounted, err := m.FixDeckCardCounts(ctx)
	if err != nil {
		return result, err
	}
	result.DecksRecounted = recounted

	reviews, err := m.CleanupOrphanedReviews(ctx)
	if err != nil {
		return result, err
	}
	result.OrphanedReviews = reviews

	logs, err := m.CleanupOrphanedStudyLogs(ctx)
	if err != nil {
		return result, err
	}
	result.OrphanedLogs = logs

	m.log.Info("maintenance sweep complete",
		"decks_recounted", result.DecksRecounted,
		"orphaned_reviews", result.OrphanedReviews,
		"orphaned_logs", result.OrphanedLogs,
	)
	return result, nil
}

// FixDeckCardCounts recomputes cards_count for every deck and persists only
// the drifted ones. Returns how many decks needed correcting.
func (m *Manager) FixDeckCardCounts(ctx context.Context) (int, error) {
	decks, err := m.store.ListDecks(ctx)
	if err != nil {
		return 0, err
	}

	fixed := 0
	for _, deck := range decks {
		actual, err := m.store.CountActiveCards(ctx, deck.ID)
		if err != nil {
			return fixed, err
		}
		if actual == deck.CardsCount {
			continue
		}
		m.log.Info("correcting deck count", "deck", deck.Name, "cached", deck.CardsCount, "actual", actual)
		if err := m.store.SetDeckCardsCount(ctx, deck.ID, actual, time.Now().UnixMilli()); err != nil {
			return fixed, err
		}
		fixed++
	}
	return fixed, nil
}

// CleanupOrphanedReviews deletes scheduling rows whose card row is gone
// entirely. Soft-deleted cards keep their review so a restore picks up where
// it left off. Returns how many were removed.
func (m *Manager) CleanupOrphanedReviews(ctx context.Context) (int, error) {
	cardIDs, err := m.existingCardIDs(ctx)
	if err != nil {
		return 0, err
	}

	reviews, err := m.store.ListReviews(ctx)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, review := range reviews {
		if cardIDs[review.CardID] {
			continue
		}
		if err := m.store.DeleteReview(ctx, review.ID); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// CleanupOrphanedStudyLogs deletes grading events whose card row is gone
// entirely. Returns how many were removed.
func (m *Manager) CleanupOrphanedStudyLogs(ctx context.Context) (int, error) {
	cardIDs, err := m.existingCardIDs(ctx)
	if err != nil {
		return 0, err
	}

	logs, err := m.store.ListStudyLogs(ctx)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, log := range logs {
		if cardIDs[log.CardID] {
			continue
		}
		if err := m.store.DeleteStudyLog(ctx, log.ID); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

func (m *Manager) existingCardIDs(ctx context.Context) (map[string]bool, error) {
	cards, err := m.store.ListCards(ctx)
	if err != nil {
		return nil, err
	}
	ids := make(map[string]bool, len(cards))
	for _, card := range cards {
		ids[card.ID] = true
	}
	return ids, nil
}
