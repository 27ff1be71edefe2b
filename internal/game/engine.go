// internal/game/engine.go
//
// Turn resolution.
// Responsibilities:
//   - Parse and resolve a product guess into grid cells.
//   - Apply hits, score them, and detect a win before the opponent moves.
//   - Gate the opponent behind a miss acknowledgment, or run it right away
//     after a hit.
//   - Run the opponent: pick a live player marker, show it for the aim delay,
//     then strike and check for a loss.
//
// Notes:
//   - Terminal state is always derived from cell hit flags, not from the
//     attempt log.
//   - The opponent never misses; it only ever targets a live player marker.

package game

import (
	"slices"
	"strconv"
	"strings"

	"github.com/robalobadob/mathstrike/internal/board"
)

// ApplyPlayerGuess resolves raw as a product guess.
//
// Invalid input and products with no matching cell change nothing except the
// displayed last target. A miss leaves the session in PhaseMissAck until
// AcknowledgeMiss; a hit runs the opponent before returning. The only errors
// are ErrGameOver and ErrAwaitingAck.
func (g *Game) ApplyPlayerGuess(raw string) (GuessResult, error) {
	g.turn.Lock()
	defer g.turn.Unlock()
	return g.applyGuess(raw)
}

// Fire resolves the pending input as a guess.
func (g *Game) Fire() (GuessResult, error) {
	g.turn.Lock()
	defer g.turn.Unlock()

	g.mu.RLock()
	raw := g.st.PendingInput
	g.mu.RUnlock()
	return g.applyGuess(raw)
}

func (g *Game) applyGuess(raw string) (GuessResult, error) {
	g.touch()
	switch g.phase() {
	case PhaseWon, PhaseLost:
		return GuessResult{}, ErrGameOver
	case PhaseMissAck:
		return GuessResult{}, ErrAwaitingAck
	}

	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		g.emit(CueInput)
		return GuessResult{Outcome: OutcomeInvalid, Coordinates: []board.Coordinate{}}, nil
	}

	res := GuessResult{Guess: n}
	g.mutate(func(st *State) {
		res.Coordinates = board.Resolve(st.Board, n)
		if len(res.Coordinates) == 0 {
			st.LastTarget = n
			res.Outcome = OutcomeNoTarget
			res.Score = st.Score
			return
		}

		st.Phase = PhaseResolving
		for _, c := range res.Coordinates {
			if st.attemptedByPlayer(c) {
				continue
			}
			st.Attempts = append(st.Attempts, Attempt{Row: c.Row, Col: c.Col})
			if cell := &st.Board[c.Row][c.Col]; cell.HasOpponentMarker {
				cell.IsHit = true
				res.Hits++
			}
		}

		res.Points = Points(res.Hits, st.Level)
		st.Score += res.Points
		st.TurnCount++
		st.PendingInput = ""
		st.LastTarget = n

		res.GameOver, res.PlayerWon = st.CheckGameEnd()
		switch {
		case res.PlayerWon:
			st.Phase = PhaseWon
			res.Outcome = OutcomeWon
		case res.GameOver:
			// Only reachable when a fallback placement stacked both sides on one cell.
			st.Phase = PhaseLost
			res.Outcome = hitOrMiss(res.Hits)
		case res.Hits == 0:
			st.Phase = PhaseMissAck
			res.Outcome = OutcomeMiss
		default:
			st.Phase = PhaseHitResolved
			res.Outcome = OutcomeHit
		}
		res.Score = st.Score
	})

	switch {
	case res.Outcome == OutcomeNoTarget:
		g.emit(CueInput)
	case res.PlayerWon:
		g.emit(g.victoryCue())
	case res.GameOver:
		g.emit(CueDefeat)
	case res.Outcome == OutcomeMiss:
		g.emit(CueMiss)
	default:
		if res.Hits > 1 {
			g.emit(CueMultiHit)
		} else {
			g.emit(CueHit)
		}
		res.Opponent = g.runOpponentTurn()
		if res.Opponent != nil {
			res.GameOver = res.Opponent.GameOver
			res.PlayerWon = res.Opponent.GameOver && !res.Opponent.PlayerLost
		}
	}
	return res, nil
}

func hitOrMiss(hits int) Outcome {
	if hits > 0 {
		return OutcomeHit
	}
	return OutcomeMiss
}

// AcknowledgeMiss releases the opponent after a miss.
func (g *Game) AcknowledgeMiss() (*OpponentTurn, error) {
	g.turn.Lock()
	defer g.turn.Unlock()

	g.touch()
	if g.phase() != PhaseMissAck {
		return nil, ErrNothingToAcknowledge
	}
	turn := g.runOpponentTurn()
	if turn == nil {
		g.mutate(func(st *State) { st.Phase = idlePhase(st) })
	}
	return turn, nil
}

// RunOpponentTurn strikes one live player marker chosen uniformly at random.
// It returns nil, changing nothing, when no live player marker is left or the
// round is already over.
func (g *Game) RunOpponentTurn() *OpponentTurn {
	g.turn.Lock()
	defer g.turn.Unlock()

	g.touch()
	if g.phase().Terminal() {
		return nil
	}
	return g.runOpponentTurn()
}

func (g *Game) runOpponentTurn() *OpponentTurn {
	var (
		target board.Marker
		found  bool
	)
	g.mutate(func(st *State) {
		live := make([]board.Marker, 0, len(st.PlayerMarkers))
		for _, m := range st.PlayerMarkers {
			if !st.Board[m.Row][m.Col].IsHit {
				live = append(live, m)
			}
		}
		if len(live) == 0 {
			return
		}
		target, found = live[g.src.IntN(len(live))], true
		st.OpponentTarget = &board.Coordinate{Row: target.Row, Col: target.Col}
		st.Phase = PhaseOpponentAiming
	})
	if !found {
		return nil
	}

	if g.aimDelay > 0 {
		g.sleep(g.aimDelay)
	}

	turn := &OpponentTurn{Target: target}
	g.mutate(func(st *State) {
		st.Phase = PhaseOpponentStrikes
		st.Board[target.Row][target.Col].IsHit = true
		st.Attempts = append(st.Attempts, Attempt{Row: target.Row, Col: target.Col, IsPlayerShip: true})
		st.OpponentTarget = nil
		st.TurnCount++

		over, won := st.CheckGameEnd()
		turn.GameOver, turn.PlayerLost = over, over && !won
		switch {
		case turn.PlayerLost:
			st.Phase = PhaseLost
		case over:
			st.Phase = PhaseWon
		default:
			st.Phase = idlePhase(st)
		}
		turn.Attempts = slices.Clone(st.Attempts)
	})

	g.emit(CueOpponentHit)
	switch {
	case turn.PlayerLost:
		g.emit(CueDefeat)
	case turn.GameOver:
		g.emit(g.victoryCue())
	}
	return turn
}

// victoryCue distinguishes finishing a level from finishing the last one.
func (g *Game) victoryCue() Cue {
	g.mu.RLock()
	lvl := g.st.Level
	g.mu.RUnlock()
	if _, more := g.levels.Next(lvl); more {
		return CueLevelComplete
	}
	return CueChampionship
}

// idlePhase is the resting phase for the current input.
func idlePhase(st *State) Phase {
	if st.PendingInput != "" {
		return PhasePlayerInput
	}
	return PhaseIdle
}
