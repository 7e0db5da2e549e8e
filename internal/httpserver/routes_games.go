// internal/httpserver/routes_games.go
//
// Read-only game endpoints (all gated):
//   - GET /session     → live status snapshot (scores, turn, bag, board size)
//   - GET /games       → recent finished games, newest first (?limit=n, max 100)
//   - GET /games/{id}  → one finished game

package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/qwirkle/server/internal/store"
)

const maxGamesLimit = 100

// mountGames registers the /games routes on r.
func (s *Server) mountGames(r chi.Router) {
	r.Route("/games", func(r chi.Router) {
		r.Get("/", s.handleRecent)
		r.Get("/{id}", s.handleGame)
	})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	st := s.status.Snapshot()
	log.Debug().Str("admin", adminFrom(r.Context())).Str("session", st.ID).Msg("status read")
	_ = json.NewEncoder(w).Encode(st)
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			http.Error(w, `{"error":"bad_limit"}`, http.StatusBadRequest)
			return
		}
		limit = min(n, maxGamesLimit)
	}
	results, err := s.store.Recent(r.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("recent results")
		http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(results)
}

func (s *Server) handleGame(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	res, err := s.store.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		log.Debug().Str("admin", adminFrom(r.Context())).Str("game", id).Msg("result not found")
		http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("get result")
		http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(res)
}
