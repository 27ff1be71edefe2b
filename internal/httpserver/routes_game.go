// internal/httpserver/routes_game.go
//
// HTTP routes for playing a round.
//   - POST /game/new           → start a session (level 1 unless asked otherwise)
//   - GET  /game/{id}          → current state
//   - POST /game/{id}/input    → press one keypad digit
//   - POST /game/{id}/clear    → clear the keypad
//   - POST /game/{id}/fire     → resolve a product guess (body or keypad)
//   - POST /game/{id}/ack      → acknowledge a miss; the opponent moves
//   - POST /game/{id}/reset    → retry / advance / restart at a level
//   - GET  /game/{id}/events   → websocket stream of cues
//
// Clients never see an opponent marker that has not been hit until the round
// is over. Finished rounds are recorded for the leaderboard (best effort).

package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/mathstrike/internal/board"
	"github.com/robalobadob/mathstrike/internal/dialogue"
	"github.com/robalobadob/mathstrike/internal/game"
	"github.com/robalobadob/mathstrike/internal/level"
	"github.com/robalobadob/mathstrike/internal/notify"
	"github.com/robalobadob/mathstrike/internal/results"
	"github.com/robalobadob/mathstrike/internal/store"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
)

// mountGame registers all /game routes except the event stream.
func (s *Server) mountGame(r chi.Router) {
	r.Post("/game/new", s.handleNewGame)

	g := r.With(s.loadGame)
	g.Get("/game/{id}", s.handleGetGame)
	g.Post("/game/{id}/input", s.handleInput)
	g.Post("/game/{id}/clear", s.handleClear)
	g.Post("/game/{id}/fire", s.handleFire)
	g.Post("/game/{id}/ack", s.handleAck)
	g.Post("/game/{id}/reset", s.handleReset)
}

// --------------------------------- views -----------------------------------

// cellView is a board cell as a client may see it.
type cellView struct {
	HasPlayerMarker   bool `json:"hasPlayerMarker"`
	HasOpponentMarker bool `json:"hasOpponentMarker"`
	IsHit             bool `json:"isHit"`
}

// stateView is the public shape of a session.
type stateView struct {
	GameID            string            `json:"gameId"`
	Level             level.Level       `json:"level"`
	Board             [][]cellView      `json:"board"`
	PlayerMarkers     []board.Marker    `json:"playerMarkers"`
	OpponentMarkers   []board.Marker    `json:"opponentMarkers"` // hit ones only, all once the round ends
	Attempts          []game.Attempt    `json:"attempts"`
	Score             int               `json:"score"`
	PendingInput      string            `json:"pendingInput"`
	LastTarget        int               `json:"lastTarget"`
	TurnCount         int               `json:"turnCount"`
	OpponentTarget    *board.Coordinate `json:"opponentTarget,omitempty"`
	Phase             game.Phase        `json:"phase"`
	RemainingPlayer   int               `json:"remainingPlayer"`
	RemainingOpponent int               `json:"remainingOpponent"`
	GameOver          bool              `json:"gameOver"`
	PlayerWon         bool              `json:"playerWon"`
	NextLevel         *int              `json:"nextLevel,omitempty"`
}

func (s *Server) view(g *game.Game) stateView {
	st := g.Snapshot()
	over, won := st.CheckGameEnd()
	reveal := over || st.Phase.Terminal()

	cells := make([][]cellView, st.Board.Rows())
	for r, row := range st.Board {
		cells[r] = make([]cellView, len(row))
		for c, cell := range row {
			cells[r][c] = cellView{
				HasPlayerMarker:   cell.HasPlayerMarker,
				HasOpponentMarker: cell.HasOpponentMarker && (cell.IsHit || reveal),
				IsHit:             cell.IsHit,
			}
		}
	}

	opp := make([]board.Marker, 0, len(st.OpponentMarkers))
	for _, m := range st.OpponentMarkers {
		if reveal || st.Board.At(m).IsHit {
			opp = append(opp, m)
		}
	}

	v := stateView{
		GameID:            g.ID,
		Level:             g.CurrentLevel(),
		Board:             cells,
		PlayerMarkers:     st.PlayerMarkers,
		OpponentMarkers:   opp,
		Attempts:          st.Attempts,
		Score:             st.Score,
		PendingInput:      st.PendingInput,
		LastTarget:        st.LastTarget,
		TurnCount:         st.TurnCount,
		OpponentTarget:    st.OpponentTarget,
		Phase:             st.Phase,
		RemainingPlayer:   st.RemainingPlayer(),
		RemainingOpponent: st.RemainingOpponent(),
		GameOver:          over,
		PlayerWon:         won,
	}
	if won {
		if next, ok := s.levels.Next(st.Level); ok {
			v.NextLevel = &next
		}
	}
	return v
}

// message is the round banner shown to the player.
type message struct {
	Title string `json:"title"`
	Text  string `json:"text"`
	Taunt string `json:"taunt,omitempty"`
}

func (s *Server) guessMessage(res game.GuessResult, lvl int) *message {
	switch {
	case res.Outcome == game.OutcomeInvalid || res.Outcome == game.OutcomeNoTarget:
		return nil
	case res.GameOver:
		return s.endMessage(res.PlayerWon, lvl)
	case res.Outcome == game.OutcomeMiss:
		return &message{Title: "Miss", Text: "No defenders detected at those coordinates.", Taunt: s.lines.Pick(dialogue.PlayerMiss)}
	}
	text := "Defender down!"
	if res.Hits > 1 {
		text = "Defenders down!"
	}
	return &message{Title: "Direct Hit!", Text: text, Taunt: s.lines.Pick(dialogue.PlayerHit)}
}

func (s *Server) endMessage(playerWon bool, lvl int) *message {
	switch {
	case !playerWon:
		return &message{Title: "Game Over", Text: "Your last marker fell.", Taunt: s.lines.Pick(dialogue.Defeat)}
	case lvl >= s.levels.Last():
		return &message{Title: "Championship Victory!", Text: "Every level cleared.", Taunt: s.lines.Pick(dialogue.Championship)}
	default:
		return &message{Title: "Level Complete!", Text: "The defense is broken.", Taunt: s.lines.Pick(dialogue.LevelComplete)}
	}
}

// -------------------------------- loading ----------------------------------

type ctxGameKey struct{}

// loadGame resolves {id} into a *game.Game on the request context.
func (s *Server) loadGame(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		g, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusNotFound, "game_not_found")
				return
			}
			hlog.FromRequest(r).Error().Err(err).Msg("load game")
			writeError(w, http.StatusInternalServerError, "load_failed")
			return
		}
		ctx := context.WithValue(r.Context(), ctxGameKey{}, g)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func gameFrom(r *http.Request) *game.Game {
	g, _ := r.Context().Value(ctxGameKey{}).(*game.Game)
	return g
}

// gameError maps engine errors to responses.
func gameError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, game.ErrGameOver):
		writeError(w, http.StatusConflict, "game_over")
	case errors.Is(err, game.ErrAwaitingAck):
		writeError(w, http.StatusConflict, "awaiting_ack")
	case errors.Is(err, game.ErrNothingToAcknowledge):
		writeError(w, http.StatusConflict, "nothing_to_acknowledge")
	case errors.Is(err, game.ErrUnknownLevel):
		writeError(w, http.StatusBadRequest, "unknown_level")
	default:
		writeError(w, http.StatusInternalServerError, "internal")
	}
}

// ------------------------------- handlers ----------------------------------

type newGameReq struct {
	Level int `json:"level"`
}

type stateRes struct {
	GameID string    `json:"gameId"`
	State  stateView `json:"state"`
}

// newGame creates a session wired to the logger and the event hub.
func (s *Server) newGame() (*game.Game, error) {
	opts := []game.Option{
		game.WithNotifier(notify.Multi{notify.NewLogger(log.Logger), s.hub}),
		game.WithAimDelay(s.cfg.AimDelay),
	}
	return game.New(s.levels, append(opts, s.gameOpts...)...)
}

func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	var req newGameReq
	if err := decodeBody(r, &req); err != nil {
		writeBodyError(w, err, "bad_json")
		return
	}

	g, err := s.newGame()
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("new game")
		writeError(w, http.StatusInternalServerError, "create_failed")
		return
	}
	if req.Level > 1 {
		if err := g.Reset(req.Level); err != nil {
			gameError(w, err)
			return
		}
	}
	if err := s.store.Save(r.Context(), g); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("save game")
		writeError(w, http.StatusInternalServerError, "save_failed")
		return
	}

	hlog.FromRequest(r).Info().Str("gameId", g.ID).Int("level", g.Snapshot().Level).Msg("game started")
	writeJSON(w, http.StatusCreated, stateRes{GameID: g.ID, State: s.view(g)})
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	g := gameFrom(r)
	writeJSON(w, http.StatusOK, stateRes{GameID: g.ID, State: s.view(g)})
}

type inputReq struct {
	Key string `json:"key"`
}

type inputRes struct {
	Accepted bool      `json:"accepted"`
	State    stateView `json:"state"`
}

func (s *Server) handleInput(w http.ResponseWriter, r *http.Request) {
	var req inputReq
	if err := decodeBody(r, &req); err != nil {
		writeBodyError(w, err, "bad_json")
		return
	}
	g := gameFrom(r)
	accepted := g.PressDigit(req.Key)
	writeJSON(w, http.StatusOK, inputRes{Accepted: accepted, State: s.view(g)})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	g := gameFrom(r)
	g.ClearInput()
	writeJSON(w, http.StatusOK, stateRes{GameID: g.ID, State: s.view(g)})
}

type fireReq struct {
	// Guess, when present, is used instead of the keypad input.
	Guess *string `json:"guess"`
}

type fireRes struct {
	Result  game.GuessResult `json:"result"`
	Message *message         `json:"message,omitempty"`
	State   stateView        `json:"state"`
}

func (s *Server) handleFire(w http.ResponseWriter, r *http.Request) {
	var req fireReq
	if err := decodeBody(r, &req); err != nil {
		writeBodyError(w, err, "bad_json")
		return
	}
	g := gameFrom(r)

	var (
		res game.GuessResult
		err error
	)
	if req.Guess != nil {
		res, err = g.ApplyPlayerGuess(*req.Guess)
	} else {
		res, err = g.Fire()
	}
	if err != nil {
		gameError(w, err)
		return
	}

	lvl := g.Snapshot().Level
	if res.GameOver {
		s.recordResult(r, g)
	}
	writeJSON(w, http.StatusOK, fireRes{Result: res, Message: s.guessMessage(res, lvl), State: s.view(g)})
}

type ackRes struct {
	Opponent *game.OpponentTurn `json:"opponent"`
	Message  *message           `json:"message,omitempty"`
	State    stateView          `json:"state"`
}

func (s *Server) handleAck(w http.ResponseWriter, r *http.Request) {
	g := gameFrom(r)
	turn, err := g.AcknowledgeMiss()
	if err != nil {
		gameError(w, err)
		return
	}

	res := ackRes{Opponent: turn, State: s.view(g)}
	if turn != nil && turn.GameOver {
		s.recordResult(r, g)
		res.Message = s.endMessage(!turn.PlayerLost, res.State.Level.ID)
	}
	writeJSON(w, http.StatusOK, res)
}

type resetReq struct {
	Level int `json:"level"`
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	var req resetReq
	if err := decodeBody(r, &req); err != nil {
		writeBodyError(w, err, "bad_json")
		return
	}
	g := gameFrom(r)
	if err := g.Reset(req.Level); err != nil {
		gameError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stateRes{GameID: g.ID, State: s.view(g)})
}

func (s *Server) handleLevels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.levels)
}

// recordResult stores a finished round. Failures are logged, not returned.
func (s *Server) recordResult(r *http.Request, g *game.Game) {
	st := g.Snapshot()
	over, won := st.CheckGameEnd()
	if !over {
		return
	}
	outcome := results.Lost
	if won {
		outcome = results.Won
	}
	err := s.results.Insert(r.Context(), results.Result{
		GameID:  g.ID,
		Level:   st.Level,
		Score:   st.Score,
		Turns:   st.TurnCount,
		Outcome: outcome,
	})
	if err != nil {
		hlog.FromRequest(r).Warn().Err(err).Str("gameId", g.ID).Msg("record result")
	}
}

// ------------------------------- events ------------------------------------

// handleEvents streams the session's cues over a websocket until either side
// closes or the session is pruned.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	g, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "game_not_found")
		return
	}

	// Subscribe before the handshake so no cue sent after it is missed.
	sub := s.hub.Subscribe(g.ID)
	defer sub.Cancel()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		hlog.FromRequest(r).Warn().Err(err).Msg("websocket upgrade")
		return
	}
	defer conn.Close()

	// Reader: only control frames matter; any error ends the stream.
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Debug().Err(err).Str("gameId", g.ID).Msg("websocket read")
				}
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-done:
			return
		case ev, ok := <-sub.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "session closed"))
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
