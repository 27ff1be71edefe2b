// internal/httpserver/routes_records.go
//
// Records kept outside of game sessions.
//   - GET  /leaderboard?limit=&level= → best finished rounds
//   - POST /ideas                    → lead capture form (JSON or form-encoded)

package httpserver

import (
	"errors"
	"mime"
	"net/http"

	"github.com/rs/zerolog/hlog"

	"github.com/robalobadob/mathstrike/internal/ideas"
	"github.com/robalobadob/mathstrike/internal/results"
)

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	var q results.Query
	if err := s.decoder.Decode(&q, r.URL.Query()); err != nil {
		writeError(w, http.StatusBadRequest, "bad_query")
		return
	}
	rows, err := s.results.Leaderboard(r.Context(), q)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("leaderboard")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

type submitIdeaRes struct {
	ID string `json:"id"`
}

func (s *Server) handleSubmitIdea(w http.ResponseWriter, r *http.Request) {
	var sub ideas.Submission
	if ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); ct == "application/x-www-form-urlencoded" {
		if err := r.ParseForm(); err != nil {
			writeBodyError(w, err, "bad_form")
			return
		}
		if err := s.decoder.Decode(&sub, r.PostForm); err != nil {
			writeError(w, http.StatusBadRequest, "bad_form")
			return
		}
	} else if err := decodeBody(r, &sub); err != nil {
		writeBodyError(w, err, "bad_json")
		return
	}

	id, err := s.ideas.Save(r.Context(), sub)
	switch {
	case errors.Is(err, ideas.ErrEmpty):
		writeError(w, http.StatusBadRequest, "empty_submission")
		return
	case errors.Is(err, ideas.ErrTooLong):
		writeError(w, http.StatusBadRequest, "field_too_long")
		return
	case err != nil:
		hlog.FromRequest(r).Error().Err(err).Msg("save idea")
		writeError(w, http.StatusInternalServerError, "save_failed")
		return
	}
	writeJSON(w, http.StatusCreated, submitIdeaRes{ID: id})
}
