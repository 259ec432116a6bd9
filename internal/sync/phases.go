package sync

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/conorfennell/recall/internal/domain"
	"github.com/conorfennell/recall/internal/remote"
)

// Session-cap defaults applied to decks downloaded from the remote, which
// does not carry them.
const (
	downloadedNewCardsPerDay = 20
	downloadedReviewsPerDay  = 100
)

// syncDecks reconciles decks. Locally created decks are uploaded without an
// id; the server-assigned id is cascaded onto dependent cards and the local
// deck row is replaced under the new id before any card is reconciled.
func (e *Engine) syncDecks(ctx context.Context) error {
	localDecks, err := e.store.ListDecks(ctx)
	if err != nil {
		return fmt.Errorf("deck sync: %w", err)
	}
	remoteDecks, err := e.remote.ListDecks(ctx)
	if err != nil {
		return fmt.Errorf("deck sync: %w", err)
	}

	remoteByID := make(map[string]remote.Deck, len(remoteDecks))
	for _, rd := range remoteDecks {
		remoteByID[rd.ID] = rd
	}
	localByID := make(map[string]bool, len(localDecks))
	for _, ld := range localDecks {
		localByID[ld.ID] = true
	}

	for _, local := range localDecks {
		rd, exists := remoteByID[local.ID]

		switch {
		case !exists:
			created, err := e.remote.InsertDeck(ctx, remote.Deck{
				Name:        local.Name,
				Description: local.Description,
				CardsCount:  local.CardsCount,
				CreatedAt:   local.CreatedAt,
				UpdatedAt:   local.UpdatedAt,
			})
			if err != nil {
				return fmt.Errorf("deck sync: failed to upload deck %q: %w", local.Name, err)
			}
			e.log.Info("uploaded deck", "name", local.Name, "remote_id", created.ID)

			if created.ID != local.ID {
				newDeck := local
				newDeck.ID = created.ID
				if err := e.store.ReplaceDeckID(ctx, local.ID, newDeck); err != nil {
					return fmt.Errorf("deck sync: failed to adopt remote id for deck %q: %w", local.Name, err)
				}
			}

		case local.UpdatedAt > rd.UpdatedAt:
			err := e.remote.UpdateDeck(ctx, rd.ID, remote.DeckUpdate{
				Name:        local.Name,
				Description: local.Description,
				CardsCount:  local.CardsCount,
				UpdatedAt:   local.UpdatedAt,
			})
			if err != nil {
				return fmt.Errorf("deck sync: failed to update remote deck %s: %w", rd.ID, err)
			}
			e.log.Info("updated remote deck", "name", local.Name)

		case rd.UpdatedAt > local.UpdatedAt:
			local.Name = rd.Name
			local.Description = rd.Description
			local.CardsCount = rd.CardsCount
			local.UpdatedAt = rd.UpdatedAt
			if err := e.store.UpdateDeck(ctx, local); err != nil {
				return fmt.Errorf("deck sync: failed to update local deck %s: %w", local.ID, err)
			}
			e.log.Info("updated local deck", "name", rd.Name)
		}
	}

	for _, rd := range remoteDecks {
		if localByID[rd.ID] {
			continue
		}
		err := e.store.InsertDeck(ctx, domain.Deck{
			ID:             rd.ID,
			Name:           rd.Name,
			Description:    rd.Description,
			CardsCount:     rd.CardsCount,
			NewCardsPerDay: downloadedNewCardsPerDay,
			ReviewsPerDay:  downloadedReviewsPerDay,
			CreatedAt:      rd.CreatedAt,
			UpdatedAt:      rd.UpdatedAt,
		})
		if err != nil {
			return fmt.Errorf("deck sync: failed to download deck %s: %w", rd.ID, err)
		}
		e.log.Info("downloaded deck", "name", rd.Name)
	}

	return nil
}

// syncCards reconciles cards by id. A local card whose deck does not exist
// remotely yet is skipped this round and picked up once the deck is there.
func (e *Engine) syncCards(ctx context.Context) error {
	localCards, err := e.store.ListCards(ctx)
	if err != nil {
		return fmt.Errorf("card sync: %w", err)
	}
	remoteCards, err := e.remote.ListCards(ctx)
	if err != nil {
		return fmt.Errorf("card sync: %w", err)
	}
	remoteDecks, err := e.remote.ListDecks(ctx)
	if err != nil {
		return fmt.Errorf("card sync: %w", err)
	}

	remoteByID := make(map[string]remote.Card, len(remoteCards))
	for _, rc := range remoteCards {
		remoteByID[rc.ID] = rc
	}
	remoteDeckIDs := make(map[string]bool, len(remoteDecks))
	for _, rd := range remoteDecks {
		remoteDeckIDs[rd.ID] = true
	}
	localByID := make(map[string]bool, len(localCards))
	for _, lc := range localCards {
		localByID[lc.ID] = true
	}

	for _, local := range localCards {
		rc, exists := remoteByID[local.ID]

		switch {
		case !exists && remoteDeckIDs[local.DeckID]:
			err := e.remote.InsertCard(ctx, remote.Card{
				ID:        local.ID,
				DeckID:    local.DeckID,
				Front:     local.Front,
				Back:      local.Back,
				CreatedAt: local.CreatedAt,
				UpdatedAt: local.UpdatedAt,
			})
			if err != nil {
				return fmt.Errorf("card sync: failed to upload card %s: %w", local.ID, err)
			}

		case exists && local.UpdatedAt > rc.UpdatedAt:
			err := e.remote.UpdateCard(ctx, rc.ID, remote.CardUpdate{
				DeckID:    local.DeckID,
				Front:     local.Front,
				Back:      local.Back,
				UpdatedAt: local.UpdatedAt,
			})
			if err != nil {
				return fmt.Errorf("card sync: failed to update remote card %s: %w", rc.ID, err)
			}

		case exists && rc.UpdatedAt > local.UpdatedAt:
			local.DeckID = rc.DeckID
			local.Front = rc.Front
			local.Back = rc.Back
			local.UpdatedAt = rc.UpdatedAt
			if err := e.store.UpdateCard(ctx, local); err != nil {
				return fmt.Errorf("card sync: failed to update local card %s: %w", local.ID, err)
			}
		}
	}

	for _, rc := range remoteCards {
		if localByID[rc.ID] {
			continue
		}
		// The remote schema carries no tags or soft-delete state; downloaded
		// cards start active with an empty tag set.
		err := e.store.InsertCard(ctx, domain.Card{
			ID:        rc.ID,
			DeckID:    rc.DeckID,
			Front:     rc.Front,
			Back:      rc.Back,
			Tags:      []string{},
			Deleted:   domain.Active,
			CreatedAt: rc.CreatedAt,
			UpdatedAt: rc.UpdatedAt,
		})
		if err != nil {
			return fmt.Errorf("card sync: failed to download card %s: %w", rc.ID, err)
		}
	}

	return nil
}

// syncReviews reconciles scheduling rows. Only reviews whose card exists on
// both sides take part in conflict resolution; everything else is either
// downloaded verbatim or left for a later run. Failures here are tolerable
// and never abort the run.
func (e *Engine) syncReviews(ctx context.Context) error {
	localReviews, err := e.store.ListReviews(ctx)
	if err != nil {
		e.log.Warn("review sync: failed to list local reviews", "error", err)
		return nil
	}

	if len(localReviews) == 0 {
		e.downloadReviews(ctx, nil)
		return nil
	}

	localCards, err := e.store.ListCards(ctx)
	if err != nil {
		e.log.Warn("review sync: failed to list local cards", "error", err)
		return nil
	}
	localCardIDs := make(map[string]bool, len(localCards))
	for _, c := range localCards {
		localCardIDs[c.ID] = true
	}

	remoteCards, err := e.remote.ListCards(ctx)
	if err != nil {
		e.log.Warn("review sync: failed to list remote cards", "error", err)
		return nil
	}
	remoteCardIDs := make(map[string]bool, len(remoteCards))
	for _, c := range remoteCards {
		remoteCardIDs[c.ID] = true
	}

	remoteReviews, err := e.remote.ListReviews(ctx)
	if err != nil {
		e.log.Warn("review sync: failed to list remote reviews", "error", err)
		return nil
	}
	remoteByCardID := make(map[string]remote.Review, len(remoteReviews))
	for _, rr := range remoteReviews {
		remoteByCardID[rr.CardID] = rr
	}

	// Orphan reviews (card missing on either side) are neither uploaded nor
	// used for conflicts; skipping them avoids foreign-key failures.
	considered := make(map[string]bool)
	for _, local := range localReviews {
		if !localCardIDs[local.CardID] || !remoteCardIDs[local.CardID] {
			continue
		}
		considered[local.CardID] = true

		rr, exists := remoteByCardID[local.CardID]
		switch {
		case !exists:
			err := e.remote.InsertReview(ctx, remote.Review{
				CardID:      local.CardID,
				EaseFactor:  local.Ease,
				Interval:    local.Interval,
				Repetitions: local.Repetitions,
				NextReview:  local.NextReview,
				LastReview:  local.LastReview,
				CreatedAt:   local.LastReview,
				UpdatedAt:   e.now(),
			})
			if err != nil {
				e.log.Warn("review sync: failed to upload review", "card", local.CardID, "error", err)
			}

		case local.LastReview > rr.LastReview:
			err := e.remote.UpdateReview(ctx, local.CardID, remote.ReviewUpdate{
				EaseFactor:  local.Ease,
				Interval:    local.Interval,
				Repetitions: local.Repetitions,
				NextReview:  local.NextReview,
				LastReview:  local.LastReview,
				UpdatedAt:   e.now(),
			})
			if err != nil {
				e.log.Warn("review sync: failed to update remote review", "card", local.CardID, "error", err)
			}

		case rr.LastReview > local.LastReview:
			updated := local
			updated.Ease = rr.EaseFactor
			updated.Interval = rr.Interval
			updated.Repetitions = rr.Repetitions
			updated.NextReview = rr.NextReview
			updated.LastReview = rr.LastReview
			if err := e.store.UpdateReview(ctx, updated); err != nil {
				e.log.Warn("review sync: failed to update local review", "card", local.CardID, "error", err)
			}
		}
	}

	e.downloadReviews(ctx, considered)
	return nil
}

// downloadReviews inserts remote reviews for cards not already considered
// this run, keeping the remote-generated review id. Downloaded rows land in
// the review state; the learning ladder does not survive a device switch.
func (e *Engine) downloadReviews(ctx context.Context, considered map[string]bool) {
	remoteReviews, err := e.remote.ListReviews(ctx)
	if err != nil {
		e.log.Warn("review sync: failed to list remote reviews for download", "error", err)
		return
	}

	for _, rr := range remoteReviews {
		if considered[rr.CardID] {
			continue
		}
		err := e.store.InsertReview(ctx, domain.CardReview{
			ID:          rr.ID,
			CardID:      rr.CardID,
			Ease:        rr.EaseFactor,
			Interval:    rr.Interval,
			Repetitions: rr.Repetitions,
			NextReview:  rr.NextReview,
			LastReview:  rr.LastReview,
			State:       domain.StateReview,
		})
		if err != nil {
			e.log.Warn("review sync: failed to download review", "card", rr.CardID, "error", err)
		}
	}
}

// syncStudyLogs merges grading history. Uploads are gated by the newest
// remote timestamp, downloads by the newest local one, and timestamp equality
// is the dedup key: two devices grading in the same millisecond will drop one
// side's log. Everything here is best-effort.
func (e *Engine) syncStudyLogs(ctx context.Context) error {
	localLogs, err := e.store.ListStudyLogs(ctx)
	if err != nil {
		e.log.Warn("log sync: failed to list local logs", "error", err)
		return nil
	}
	localCards, err := e.store.ListCards(ctx)
	if err != nil {
		e.log.Warn("log sync: failed to list local cards", "error", err)
		return nil
	}
	localCardIDs := make(map[string]bool, len(localCards))
	for _, c := range localCards {
		localCardIDs[c.ID] = true
	}

	var validLogs []domain.StudyLog
	for _, l := range localLogs {
		if localCardIDs[l.CardID] {
			validLogs = append(validLogs, l)
		}
	}

	watermark, err := e.remote.LatestStudyLogTimestamp(ctx)
	if err != nil {
		e.log.Warn("log sync: failed to fetch remote watermark", "error", err)
		return nil
	}

	uploaded := 0
	for _, l := range validLogs {
		if l.Timestamp <= watermark {
			continue
		}
		err := e.remote.InsertStudyLog(ctx, remote.StudyLog{
			CardID:    l.CardID,
			Rating:    int(l.Rating),
			TimeSpent: l.TimeSpent,
			Timestamp: l.Timestamp,
		})
		if err != nil {
			// Likely a foreign-key violation: the card never made it remote.
			e.log.Warn("log sync: failed to upload log", "card", l.CardID, "error", err)
			continue
		}
		uploaded++
	}
	if uploaded > 0 {
		e.log.Info("uploaded study logs", "count", uploaded)
	}

	localTimestamps := make(map[int64]bool, len(validLogs))
	var maxLocal int64
	for _, l := range validLogs {
		localTimestamps[l.Timestamp] = true
		if l.Timestamp > maxLocal {
			maxLocal = l.Timestamp
		}
	}

	remoteLogs, err := e.remote.ListStudyLogsAfter(ctx, maxLocal)
	if err != nil {
		e.log.Warn("log sync: failed to list remote logs", "error", err)
		return nil
	}

	downloaded := 0
	for _, rl := range remoteLogs {
		if localTimestamps[rl.Timestamp] {
			continue
		}
		err := e.store.InsertStudyLog(ctx, domain.StudyLog{
			ID:        uuid.NewString(),
			CardID:    rl.CardID,
			Rating:    domain.Rating(rl.Rating),
			TimeSpent: rl.TimeSpent,
			Timestamp: rl.Timestamp,
		})
		if err != nil {
			e.log.Warn("log sync: failed to download log", "card", rl.CardID, "error", err)
			continue
		}
		downloaded++
	}
	if downloaded > 0 {
		e.log.Info("downloaded study logs", "count", downloaded)
	}

	return nil
}
