// internal/httpserver/server.go
//
// HTTP server wiring for the mathstrike backend.
// Responsibilities:
//   - Router + middleware (request ids, access logs, CORS, timeouts, body limits, panic recovery).
//   - Public endpoints: "/", "/health", "/levels", "/leaderboard", POST "/ideas".
//   - Game endpoints: mounted under /game (see routes_game.go).
//   - Admin endpoints: login/logout and the idea list (see routes_admin.go).
//
// Notes:
//   - CORS is origin-aware and credentials-enabled (so the admin cookie works).
//   - The websocket route sits outside the timeout group; it lives as long as
//     the client stays connected.

package httpserver

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/schema"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/mathstrike/internal/config"
	"github.com/robalobadob/mathstrike/internal/dialogue"
	"github.com/robalobadob/mathstrike/internal/game"
	"github.com/robalobadob/mathstrike/internal/ideas"
	"github.com/robalobadob/mathstrike/internal/level"
	"github.com/robalobadob/mathstrike/internal/notify"
	"github.com/robalobadob/mathstrike/internal/results"
	"github.com/robalobadob/mathstrike/internal/store"
)

const (
	// HandlerTimeout bounds every non-streaming request.
	HandlerTimeout = 10 * time.Second
	// MaxBodyBytes caps request bodies.
	MaxBodyBytes = 64 << 10
)

// Server bundles the router, session store and database-backed stores.
type Server struct {
	r        *chi.Mux
	cfg      config.Config
	levels   level.Levels
	store    store.Store
	results  *results.Store
	ideas    *ideas.Store
	hub      *notify.Hub
	lines    *dialogue.Lines
	upgrader websocket.Upgrader
	decoder  *schema.Decoder
	gameOpts []game.Option
}

// Option tweaks a Server.
type Option func(*Server)

// WithGameOptions appends options to every game the server creates.
func WithGameOptions(opts ...game.Option) Option {
	return func(s *Server) { s.gameOpts = append(s.gameOpts, opts...) }
}

// WithDialogue replaces the embedded opponent lines.
func WithDialogue(l *dialogue.Lines) Option { return func(s *Server) { s.lines = l } }

// New constructs a Server, installs middleware, and registers routes.
func New(cfg config.Config, levels level.Levels, st store.Store, db *sql.DB, opts ...Option) *Server {
	s := &Server{
		r:       chi.NewRouter(),
		cfg:     cfg,
		levels:  levels,
		store:   st,
		results: results.NewStore(db),
		ideas:   ideas.NewStore(db),
		hub:     notify.NewHub(),
		decoder: schema.NewDecoder(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	s.decoder.IgnoreUnknownKeys(true)
	s.upgrader.CheckOrigin = s.allowedOrigin

	lines, err := dialogue.Load()
	if err != nil {
		log.Warn().Err(err).Msg("opponent dialogue unavailable")
	}
	s.lines = lines

	for _, opt := range opts {
		opt(s)
	}

	// --- middleware ---
	s.r.Use(chimw.RequestID)               // add X-Request-ID
	s.r.Use(chimw.RealIP)                  // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(hlog.NewHandler(log.Logger))   // request-scoped logger
	s.r.Use(hlog.AccessHandler(accessLog)) // one line per request
	s.r.Use(chimw.Recoverer)               // recover from panics
	s.r.Use(s.cors())                      // credentials-friendly CORS
	s.r.Use(jsonContentType)               // default JSON responses
	s.r.Use(limitBody)                     // cap request bodies

	// --- streaming ---
	s.r.Get("/game/{id}/events", s.handleEvents)

	s.r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(HandlerTimeout)) // bound handler time

		// --- diagnostics ---
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{
				"service": "mathstrike",
				"endpoints": []string{
					"/health", "/levels", "POST /game/new", "/game/{id}", "/game/{id}/events",
					"/leaderboard", "POST /ideas", "/admin/*",
				},
			})
		})
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"ok": true, "sessions": s.store.Len()})
		})

		r.Get("/levels", s.handleLevels)
		s.mountGame(r)
		r.Get("/leaderboard", s.handleLeaderboard)
		r.Post("/ideas", s.handleSubmitIdea)
		s.mountAdmin(r)
	})

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "path": r.URL.Path})
	})

	return s
}

// Handler exposes the router for http.Server.
func (s *Server) Handler() http.Handler { return s.r }

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// Hub exposes the event hub.
func (s *Server) Hub() *notify.Hub { return s.hub }

// Prune drops sessions idle since before cutoff and disconnects their
// listeners. It returns how many sessions were dropped.
func (s *Server) Prune(ctx context.Context, cutoff time.Time) (int, error) {
	ids, err := s.store.Prune(ctx, cutoff)
	for _, id := range ids {
		s.hub.Close(id)
	}
	return len(ids), err
}

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// limitBody caps every request body at MaxBodyBytes.
func limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
		}
		next.ServeHTTP(w, r)
	})
}

// cors allows the configured client origins with credentials.
func (s *Server) cors() func(http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   s.cfg.ClientOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}).Handler
}

// allowedOrigin is the websocket origin check. Requests without an Origin
// header (non-browser clients) are let through.
func (s *Server) allowedOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, o := range s.cfg.ClientOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

func accessLog(r *http.Request, status, size int, d time.Duration) {
	hlog.FromRequest(r).Info().
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", status).
		Int("size", size).
		Dur("duration", d).
		Msg("request")
}

// ------------------------------- helpers -----------------------------------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

// writeBodyError reports a body that could not be read: 413 when it was too
// large, 400 with code otherwise.
func writeBodyError(w http.ResponseWriter, err error, code string) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "body_too_large")
		return
	}
	writeError(w, http.StatusBadRequest, code)
}

// decodeBody reads an optional JSON body into v. An empty body is fine.
func decodeBody(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
