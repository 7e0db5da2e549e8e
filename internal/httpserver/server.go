// internal/httpserver/server.go
//
// Admin/status HTTP server for the game server.
// Responsibilities:
//   - Router + middleware (JSON, timeouts, panic recovery, request IDs).
//   - Public endpoints: "/", "/health".
//   - Login: POST /auth/login (bcrypt check against the configured admin, JWT out).
//   - Gated endpoints (bearer JWT): GET /session, GET /games, GET /games/{id}.
//
// Notes:
//   - Game clients never talk to this server; it only observes. The live
//     session is read through a status snapshot, finished games through
//     the result store.

package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/qwirkle/server/internal/session"
	"github.com/robalobadob/qwirkle/server/internal/store"
)

// StatusSource yields the latest live-session snapshot.
type StatusSource interface {
	Snapshot() session.Status
}

// Auth configures admin login and token signing.
type Auth struct {
	Secret       []byte
	User         string
	PasswordHash string // bcrypt; empty disables login
	Expires      time.Duration
}

// Server bundles router, result store and status source.
type Server struct {
	r      *chi.Mux
	store  store.Store
	status StatusSource
	auth   Auth
}

// New constructs a Server, installs middleware, and registers routes.
func New(st store.Store, status StatusSource, auth Auth) *Server {
	if auth.Expires <= 0 {
		auth.Expires = 12 * time.Hour
	}
	s := &Server{r: chi.NewRouter(), store: st, status: status, auth: auth}

	// --- middleware ---
	s.r.Use(chimw.RequestID)                 // add X-Request-ID
	s.r.Use(chimw.RealIP)                    // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(chimw.Recoverer)                 // recover from panics
	s.r.Use(chimw.Timeout(10 * time.Second)) // bound handler time
	s.r.Use(jsonContentType)                 // default JSON responses

	// --- diagnostics ---
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"service":"qwirkle-server","endpoints":["/health","POST /auth/login","/session","/games","/games/{id}"]}`))
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	s.r.Post("/auth/login", s.handleLogin)

	// Session + results (require auth)
	s.r.Group(func(r chi.Router) {
		r.Use(s.requireAuth())
		r.Get("/session", s.handleSession)
		s.mountGames(r)
	})

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"not_found","path":"`+r.URL.Path+`"}`, http.StatusNotFound)
	})

	return s
}

// Start serves HTTP on addr until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	hs := &http.Server{Addr: addr, Handler: s.r, ReadHeaderTimeout: 5 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- hs.ListenAndServe() }()
	log.Info().Str("addr", addr).Msg("admin api listening")

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := hs.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}
