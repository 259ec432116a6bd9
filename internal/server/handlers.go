package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/conorfennell/recall/internal/remote"
)

func (s *Server) handleListDecks(w http.ResponseWriter, r *http.Request) {
	decks, err := s.store.listDecks(r.Context(), userID(r))
	if err != nil {
		s.serverError(w, "list decks", err)
		return
	}
	s.writeJSON(w, http.StatusOK, decks)
}

func (s *Server) handleGetDeck(w http.ResponseWriter, r *http.Request) {
	deck, err := s.store.getDeck(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		s.serverError(w, "get deck", err)
		return
	}
	if deck == nil {
		http.NotFound(w, r)
		return
	}
	s.writeJSON(w, http.StatusOK, deck)
}

func (s *Server) handleInsertDeck(w http.ResponseWriter, r *http.Request) {
	var deck remote.Deck
	if !decodeBody(w, r, &deck) {
		return
	}
	created, err := s.store.insertDeck(r.Context(), userID(r), deck)
	if err != nil {
		s.serverError(w, "insert deck", err)
		return
	}
	s.writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateDeck(w http.ResponseWriter, r *http.Request) {
	var update remote.DeckUpdate
	if !decodeBody(w, r, &update) {
		return
	}
	if err := s.store.updateDeck(r.Context(), userID(r), chi.URLParam(r, "id"), update); err != nil {
		s.serverError(w, "update deck", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListCards(w http.ResponseWriter, r *http.Request) {
	cards, err := s.store.listCards(r.Context(), userID(r))
	if err != nil {
		s.serverError(w, "list cards", err)
		return
	}
	s.writeJSON(w, http.StatusOK, cards)
}

func (s *Server) handleGetCard(w http.ResponseWriter, r *http.Request) {
	card, err := s.store.getCard(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		s.serverError(w, "get card", err)
		return
	}
	if card == nil {
		http.NotFound(w, r)
		return
	}
	s.writeJSON(w, http.StatusOK, card)
}

func (s *Server) handleInsertCard(w http.ResponseWriter, r *http.Request) {
	var card remote.Card
	if !decodeBody(w, r, &card) {
		return
	}
	created, err := s.store.insertCard(r.Context(), userID(r), card)
	if err != nil {
		s.serverError(w, "insert card", err)
		return
	}
	s.writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateCard(w http.ResponseWriter, r *http.Request) {
	var update remote.CardUpdate
	if !decodeBody(w, r, &update) {
		return
	}
	if err := s.store.updateCard(r.Context(), userID(r), chi.URLParam(r, "id"), update); err != nil {
		s.serverError(w, "update card", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := s.store.listReviews(r.Context(), userID(r))
	if err != nil {
		s.serverError(w, "list reviews", err)
		return
	}
	s.writeJSON(w, http.StatusOK, reviews)
}

func (s *Server) handleInsertReview(w http.ResponseWriter, r *http.Request) {
	var review remote.Review
	if !decodeBody(w, r, &review) {
		return
	}
	created, err := s.store.insertReview(r.Context(), userID(r), review)
	if err != nil {
		s.serverError(w, "insert review", err)
		return
	}
	s.writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateReview(w http.ResponseWriter, r *http.Request) {
	var update remote.ReviewUpdate
	if !decodeBody(w, r, &update) {
		return
	}
	err := s.store.updateReviewByCard(r.Context(), userID(r), chi.URLParam(r, "cardID"), update)
	if err != nil {
		s.serverError(w, "update review", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListStudyLogs(w http.ResponseWriter, r *http.Request) {
	after := int64(0)
	if raw := r.URL.Query().Get("after"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			http.Error(w, "invalid after parameter", http.StatusBadRequest)
			return
		}
		after = parsed
	}

	logs, err := s.store.listStudyLogsAfter(r.Context(), userID(r), after)
	if err != nil {
		s.serverError(w, "list study logs", err)
		return
	}
	s.writeJSON(w, http.StatusOK, logs)
}

func (s *Server) handleLatestStudyLog(w http.ResponseWriter, r *http.Request) {
	max, err := s.store.latestStudyLogTimestamp(r.Context(), userID(r))
	if err != nil {
		s.serverError(w, "latest study log", err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int64{"timestamp": max})
}

func (s *Server) handleInsertStudyLog(w http.ResponseWriter, r *http.Request) {
	var log remote.StudyLog
	if !decodeBody(w, r, &log) {
		return
	}
	created, err := s.store.insertStudyLog(r.Context(), userID(r), log)
	if err != nil {
		// Most commonly a foreign-key violation: the card never reached this
		// server. The client treats log uploads as best-effort.
		s.log.Warn("rejected study log", "card", log.CardID, "error", err)
		http.Error(w, "conflict", http.StatusConflict)
		return
	}
	s.writeJSON(w, http.StatusCreated, created)
}
