// Package server implements recalld, a self-hostable remote store for the
// sync engine: a JSON API over sqlite with per-user rows, server-generated
// ids, and a log-watermark endpoint.
package server

import (
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server holds the dependencies for the HTTP API.
type Server struct {
	store  *store
	token  string
	router chi.Router
	log    *slog.Logger
}

// New opens the server database at dsn and configures the router. token is
// the shared bearer secret every client must present.
func New(dsn, token string, log *slog.Logger) (*Server, error) {
	st, err := openStore(dsn)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}

	s := &Server{store: st, token: token, log: log}
	s.routes()
	return s, nil
}

// Close releases the server database.
func (s *Server) Close() error {
	return s.store.close()
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.auth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/decks", s.handleListDecks)
		r.Post("/decks", s.handleInsertDeck)
		r.Get("/decks/{id}", s.handleGetDeck)
		r.Patch("/decks/{id}", s.handleUpdateDeck)

		r.Get("/cards", s.handleListCards)
		r.Post("/cards", s.handleInsertCard)
		r.Get("/cards/{id}", s.handleGetCard)
		r.Patch("/cards/{id}", s.handleUpdateCard)

		r.Get("/reviews", s.handleListReviews)
		r.Post("/reviews", s.handleInsertReview)
		r.Patch("/reviews/card/{cardID}", s.handleUpdateReview)

		r.Get("/study-logs", s.handleListStudyLogs)
		r.Get("/study-logs/latest", s.handleLatestStudyLog)
		r.Post("/study-logs", s.handleInsertStudyLog)
	})

	s.router = r
}

// auth checks the shared token and requires a user id header; every handler
// below scopes its queries to that user.
func (s *Server) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if subtle.ConstantTimeCompare([]byte(token), []byte(s.token)) != 1 {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		if r.Header.Get("X-Recall-User") == "" {
			http.Error(w, "missing user", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func userID(r *http.Request) string {
	return r.Header.Get("X-Recall-User")
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn("failed to encode response", "error", err)
	}
}

func (s *Server) serverError(w http.ResponseWriter, what string, err error) {
	s.log.Error("request failed", "op", what, "error", err)
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}
