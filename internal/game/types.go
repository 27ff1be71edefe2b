// internal/game/types.go
//
// Core type definitions for the game engine.
// Defines:
//   - Phase: where a session is in the turn cycle.
//   - Outcome: what a single player guess resolved to.
//   - Attempt: one logged shot, tagged by side.
//   - State: the full mutable session (board, markers, log, score, input, level).
//   - GuessResult / OpponentTurn: what commands report back to callers.

package game

import (
	"errors"
	"slices"

	"github.com/robalobadob/mathstrike/internal/board"
)

// Phase is the turn-cycle position of a session.
//
//	idle → player_input → resolving → miss_ack | hit_resolved | won
//	miss_ack → opponent_aiming (after AcknowledgeMiss)
//	hit_resolved → opponent_aiming (immediately)
//	opponent_aiming → opponent_strikes → lost | idle
type Phase string

const (
	PhaseIdle            Phase = "idle"
	PhasePlayerInput     Phase = "player_input"
	PhaseResolving       Phase = "resolving"
	PhaseMissAck         Phase = "miss_ack"
	PhaseHitResolved     Phase = "hit_resolved"
	PhaseOpponentAiming  Phase = "opponent_aiming"
	PhaseOpponentStrikes Phase = "opponent_strikes"
	PhaseWon             Phase = "won"
	PhaseLost            Phase = "lost"
)

// Terminal reports whether the round is over.
func (p Phase) Terminal() bool { return p == PhaseWon || p == PhaseLost }

// Outcome is the result class of one player guess.
type Outcome string

const (
	OutcomeInvalid  Outcome = "invalid"   // empty or non-numeric input; nothing changed
	OutcomeNoTarget Outcome = "no_target" // no cell matches the product; no turn used
	OutcomeMiss     Outcome = "miss"      // resolved, zero hits; opponent waits for ack
	OutcomeHit      Outcome = "hit"       // resolved, ≥1 hit; opponent already moved
	OutcomeWon      Outcome = "won"       // last opponent marker eliminated
)

var (
	ErrGameOver             = errors.New("game over")
	ErrAwaitingAck          = errors.New("miss not acknowledged")
	ErrNothingToAcknowledge = errors.New("no miss to acknowledge")
	ErrUnknownLevel         = errors.New("unknown level")
)

// Attempt is one resolved shot. IsPlayerShip is true when the shot targeted a
// player marker, i.e. it was the opponent's.
type Attempt struct {
	Row          int  `json:"row"`
	Col          int  `json:"col"`
	IsPlayerShip bool `json:"isPlayerShip"`
}

// State holds one session.
type State struct {
	Board           board.Board       `json:"board"`
	PlayerMarkers   []board.Marker    `json:"playerMarkers"`
	OpponentMarkers []board.Marker    `json:"opponentMarkers"`
	Attempts        []Attempt         `json:"attempts"`
	Score           int               `json:"score"`
	PendingInput    string            `json:"pendingInput"`   // digits typed so far, at most MaxInputDigits
	LastTarget      int               `json:"lastTarget"`     // last guessed product, 0 before the first
	TurnCount       int               `json:"turnCount"`      // one per resolved guess and per opponent strike
	OpponentTarget  *board.Coordinate `json:"opponentTarget"` // set only while the opponent is aiming
	Level           int               `json:"level"`
	Phase           Phase             `json:"phase"`
}

// clone returns a deep copy safe to hand to readers.
func (st State) clone() State {
	out := st
	out.Board = st.Board.Clone()
	out.PlayerMarkers = slices.Clone(st.PlayerMarkers)
	out.OpponentMarkers = slices.Clone(st.OpponentMarkers)
	out.Attempts = slices.Clone(st.Attempts)
	if st.OpponentTarget != nil {
		t := *st.OpponentTarget
		out.OpponentTarget = &t
	}
	return out
}

// RemainingPlayer counts live player markers.
func (st State) RemainingPlayer() int { return RemainingMarkers(st.Board, st.PlayerMarkers) }

// RemainingOpponent counts live opponent markers.
func (st State) RemainingOpponent() int { return RemainingMarkers(st.Board, st.OpponentMarkers) }

// CheckGameEnd derives the terminal condition from cell hit flags. The attempt
// log is never consulted.
func (st State) CheckGameEnd() (isGameOver, playerWon bool) {
	player, opponent := st.RemainingPlayer(), st.RemainingOpponent()
	return player == 0 || opponent == 0, opponent == 0
}

// attemptedByPlayer reports whether c is already in the log as a player shot.
func (st State) attemptedByPlayer(c board.Coordinate) bool {
	return slices.ContainsFunc(st.Attempts, func(a Attempt) bool {
		return !a.IsPlayerShip && a.Row == c.Row && a.Col == c.Col
	})
}

// RemainingMarkers counts markers whose cell is not hit.
func RemainingMarkers(b board.Board, markers []board.Marker) int {
	return b.Remaining(markers)
}

// GuessResult reports a resolved player guess.
type GuessResult struct {
	Outcome     Outcome            `json:"outcome"`
	Guess       int                `json:"guess"`
	Coordinates []board.Coordinate `json:"coordinates"`
	Hits        int                `json:"hits"`
	Points      int                `json:"points"`
	Score       int                `json:"score"`
	GameOver    bool               `json:"gameOver"`
	PlayerWon   bool               `json:"playerWon"`
	// Opponent is set when a hit let the opponent move straight away.
	Opponent *OpponentTurn `json:"opponent,omitempty"`
}

// OpponentTurn reports one opponent strike.
type OpponentTurn struct {
	Target     board.Marker `json:"target"`
	Attempts   []Attempt    `json:"attempts"`
	GameOver   bool         `json:"gameOver"`
	PlayerLost bool         `json:"playerLost"`
}

// Points is the score awarded for hits landed by one guess at level.
// Two or more hits from the same guess score double.
func Points(hits, level int) int {
	mult := 1
	if hits > 1 {
		mult = 2
	}
	return hits * 100 * mult * level
}
