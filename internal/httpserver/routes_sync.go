// internal/httpserver/routes_sync.go
//
// Flashcard sync API for the desktop add-on.
//   - GET  /anki/ping    → token check + pending count
//   - GET  /anki/cards   → pending cards, oldest first
//   - POST /anki/confirm → mark cards delivered: {"card_ids":[...]}
//
// The sync token travels as a bearer header or a "token" query parameter.

package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/webutan/lain/internal/flashcard"
)

// mountSync registers all /anki routes.
func (s *Server) mountSync(r chi.Router) {
	r.Route("/anki", func(r chi.Router) {
		r.Get("/ping", s.handleSyncPing)
		r.Get("/cards", s.handleSyncCards)
		r.Post("/confirm", s.handleSyncConfirm)
	})
}

// syncError maps queue errors onto responses.
func syncError(w http.ResponseWriter, err error) {
	if errors.Is(err, flashcard.ErrInvalidToken) {
		http.Error(w, `{"error":"invalid_token"}`, http.StatusUnauthorized)
		return
	}
	log.Error().Err(err).Msg("sync")
	http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
}

func (s *Server) handleSyncPing(w http.ResponseWriter, r *http.Request) {
	user, err := s.opts.Cards.Authenticate(r.Context(), bearerOrQuery(r))
	if err != nil {
		syncError(w, err)
		return
	}
	n, err := s.opts.Cards.PendingCount(r.Context(), user)
	if err != nil {
		syncError(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "pending": n})
}

type cardsRes struct {
	Cards []flashcard.Card `json:"cards"`
}

func (s *Server) handleSyncCards(w http.ResponseWriter, r *http.Request) {
	cards, err := s.opts.Cards.FetchPending(r.Context(), bearerOrQuery(r))
	if err != nil {
		syncError(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(cardsRes{Cards: cards})
}

type confirmReq struct {
	CardIDs []string `json:"card_ids"`
}

func (s *Server) handleSyncConfirm(w http.ResponseWriter, r *http.Request) {
	var req confirmReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	n, err := s.opts.Cards.ConfirmDelivered(r.Context(), bearerOrQuery(r), req.CardIDs)
	if err != nil {
		syncError(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "confirmed": n})
}
