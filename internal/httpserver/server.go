// internal/httpserver/server.go
//
// HTTP server wiring for the lain bot backend.
// Responsibilities:
//   - Router + middleware (JSON, timeouts, panic recovery, request IDs).
//   - Public endpoints: "/", "/health".
//   - Relay endpoints (relay JWT): POST /events, GET /relay/ws.
//   - Flashcard sync endpoints (sync token): mounted under /anki.
//   - Daily leaderboard: mounted under /daily.
//
// Notes:
//   - /relay/ws is outside the timeout group; it is a long-lived connection.
//   - Every error body is JSON: {"error":"<code>"}.

package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/webutan/lain/internal/daily"
	"github.com/webutan/lain/internal/flashcard"
)

// Options are the server's collaborators. Cards and Daily may be nil, in
// which case their routes are not mounted.
type Options struct {
	Events      EventHandler
	Relay       *Relay
	Cards       *flashcard.Queue
	Daily       *daily.Store
	Today       func() string         // today's daily date key
	Games       func() map[string]int // active game counts for /health
	RelaySecret string
	Timeout     time.Duration
}

// Server bundles the router and its dependencies.
type Server struct {
	r    *chi.Mux
	opts Options
}

// New constructs a Server, installs middleware, and registers routes.
func New(opts Options) *Server {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Relay == nil {
		opts.Relay = NewRelay(0)
	}
	s := &Server{r: chi.NewRouter(), opts: opts}

	// --- middleware ---
	s.r.Use(chimw.RequestID) // add X-Request-ID
	s.r.Use(chimw.RealIP)    // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(chimw.Recoverer) // recover from panics
	s.r.Use(jsonContentType) // default JSON responses

	// --- diagnostics ---
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"service":"lain","endpoints":["/health","POST /events","/relay/ws","/anki/*","/daily/leaderboard"]}`))
	})
	s.r.Get("/health", s.handleHealth)

	// Relay websocket: no timeout middleware.
	s.r.With(requireRelay(opts.RelaySecret)).Get("/relay/ws", opts.Relay.ServeWS)

	s.r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(opts.Timeout)) // bound handler time
		r.With(requireRelay(opts.RelaySecret)).Post("/events", s.handleEvent)
		if opts.Cards != nil {
			s.mountSync(r)
		}
		if opts.Daily != nil {
			s.mountDaily(r)
		}
	})

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"not_found","path":"`+r.URL.Path+`"}`, http.StatusNotFound)
	})
	return s
}

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// HTTPServer returns an *http.Server for addr serving this router.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.r,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	out := map[string]any{"ok": true, "relay": s.opts.Relay.Connected()}
	if s.opts.Games != nil {
		out["games"] = s.opts.Games()
	}
	_ = json.NewEncoder(w).Encode(out)
}

// ------------------------------ EVENTS -------------------------------------

// handleEvent accepts one chat event as a webhook. Outbound actions still go
// through the relay connection.
func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	if s.opts.Events == nil {
		http.Error(w, `{"error":"no_handler"}`, http.StatusServiceUnavailable)
		return
	}
	var f frame
	if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	if (f.Type != "message" || f.Message == nil) && (f.Type != "command" || f.Command == nil) {
		http.Error(w, `{"error":"bad_event"}`, http.StatusBadRequest)
		return
	}
	// A gateway hanging up must not abort a move mid-way.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), s.opts.Timeout)
	defer cancel()
	if err := dispatchEvent(ctx, s.opts.Events, f); err != nil {
		log.Error().Err(err).Str("relay", relayName(r)).Str("type", f.Type).Msg("event")
		http.Error(w, `{"error":"handler_failed"}`, http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
}
