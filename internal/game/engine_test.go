package game

import (
	"math/rand/v2"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/mathstrike/internal/board"
	"github.com/robalobadob/mathstrike/internal/level"
)

// recorder collects cues in order.
type recorder struct {
	mu   sync.Mutex
	cues []Cue
}

func (r *recorder) Notify(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cues = append(r.cues, e.Cue)
}

func (r *recorder) all() []Cue {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Cue(nil), r.cues...)
}

func (r *recorder) reset() {
	r.mu.Lock()
	r.cues = nil
	r.mu.Unlock()
}

func newTestGame(t *testing.T, opts ...Option) (*Game, *recorder) {
	t.Helper()
	rec := &recorder{}
	base := []Option{
		WithRand(rand.New(rand.NewPCG(1, 2))),
		WithNotifier(rec),
		WithAimDelay(0),
	}
	g, err := New(level.Defaults(), append(base, opts...)...)
	require.NoError(t, err)
	rec.reset()
	return g, rec
}

// fixture builds a rows×cols layout with markers at the given cells.
func fixture(rows, cols int, player, opponent []board.Marker) board.Layout {
	l := board.Layout{
		Board:           board.New(rows, cols),
		PlayerMarkers:   player,
		OpponentMarkers: opponent,
	}
	for _, m := range player {
		l.Board[m.Row][m.Col].HasPlayerMarker = true
	}
	for _, m := range opponent {
		l.Board[m.Row][m.Col].HasOpponentMarker = true
	}
	return l
}

func TestEndToEndWinLevelOne(t *testing.T) {
	g, rec := newTestGame(t)
	g.load(1, fixture(5, 5,
		[]board.Marker{{Row: 2, Col: 2}},
		[]board.Marker{{Row: 0, Col: 0}},
	))

	res, err := g.ApplyPlayerGuess("1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeWon, res.Outcome)
	assert.Equal(t, []board.Coordinate{{Row: 0, Col: 0}}, res.Coordinates)
	assert.Equal(t, 1, res.Hits)
	assert.Equal(t, 100, res.Points)
	assert.Equal(t, 100, res.Score)
	assert.True(t, res.GameOver)
	assert.True(t, res.PlayerWon)
	assert.Nil(t, res.Opponent, "opponent must not move after the player wins")

	over, won := g.CheckGameEnd()
	assert.True(t, over)
	assert.True(t, won)

	st := g.Snapshot()
	assert.Equal(t, PhaseWon, st.Phase)
	assert.Equal(t, 1, st.TurnCount)
	assert.Equal(t, []Attempt{{Row: 0, Col: 0}}, st.Attempts)
	assert.Equal(t, []Cue{CueLevelComplete}, rec.all())

	_, err = g.ApplyPlayerGuess("2")
	assert.ErrorIs(t, err, ErrGameOver)
}

func TestPoints(t *testing.T) {
	assert.Equal(t, 1200, Points(2, 3))
	assert.Equal(t, 100, Points(1, 1))
	assert.Equal(t, 300, Points(1, 3))
	assert.Equal(t, 1200, Points(3, 2))
	assert.Equal(t, 0, Points(0, 2))
}

func TestMultiHitScoresDoubleAndOpponentMoves(t *testing.T) {
	g, rec := newTestGame(t)
	// Product 6 on 5×5 matches (1,2) and (2,1).
	g.load(3, fixture(5, 5,
		[]board.Marker{{Row: 4, Col: 4}, {Row: 4, Col: 3}},
		[]board.Marker{{Row: 1, Col: 2}, {Row: 2, Col: 1}, {Row: 3, Col: 3}},
	))

	res, err := g.ApplyPlayerGuess("6")
	require.NoError(t, err)
	assert.Equal(t, OutcomeHit, res.Outcome)
	assert.Equal(t, 2, res.Hits)
	assert.Equal(t, 1200, res.Points)
	assert.Equal(t, 1200, res.Score)
	require.NotNil(t, res.Opponent)
	assert.False(t, res.GameOver)

	st := g.Snapshot()
	assert.Equal(t, PhaseIdle, st.Phase)
	assert.Equal(t, 2, st.TurnCount, "one for the guess, one for the strike")
	assert.Equal(t, 1, st.RemainingPlayer())
	assert.Equal(t, 1, st.RemainingOpponent())
	assert.True(t, st.Board.At(res.Opponent.Target).IsHit)
	assert.Nil(t, st.OpponentTarget)
	require.Len(t, st.Attempts, 3)
	assert.True(t, st.Attempts[2].IsPlayerShip)
	assert.Equal(t, st.Attempts, res.Opponent.Attempts)

	assert.Equal(t, []Cue{CueMultiHit, CueOpponentHit}, rec.all())
}

func TestMissWaitsForAcknowledgment(t *testing.T) {
	g, rec := newTestGame(t)
	g.load(1, fixture(5, 5,
		[]board.Marker{{Row: 0, Col: 0}, {Row: 1, Col: 1}},
		[]board.Marker{{Row: 4, Col: 4}},
	))

	res, err := g.ApplyPlayerGuess("2")
	require.NoError(t, err)
	assert.Equal(t, OutcomeMiss, res.Outcome)
	assert.Zero(t, res.Hits)
	assert.Zero(t, res.Points)
	assert.Nil(t, res.Opponent)

	st := g.Snapshot()
	assert.Equal(t, PhaseMissAck, st.Phase)
	assert.Equal(t, 1, st.TurnCount)
	assert.Equal(t, 2, st.RemainingPlayer(), "opponent must wait for the acknowledgment")
	assert.Equal(t, 1, st.RemainingOpponent())
	assert.Len(t, st.Attempts, 2)
	assert.Equal(t, []Cue{CueMiss}, rec.all())

	_, err = g.ApplyPlayerGuess("3")
	assert.ErrorIs(t, err, ErrAwaitingAck)

	turn, err := g.AcknowledgeMiss()
	require.NoError(t, err)
	require.NotNil(t, turn)
	assert.False(t, turn.GameOver)

	st = g.Snapshot()
	assert.Equal(t, PhaseIdle, st.Phase)
	assert.Equal(t, 2, st.TurnCount)
	assert.Equal(t, 1, st.RemainingPlayer())

	_, err = g.AcknowledgeMiss()
	assert.ErrorIs(t, err, ErrNothingToAcknowledge)
}

func TestInvalidInputChangesNothing(t *testing.T) {
	for _, raw := range []string{"", "   ", "abc", "1.5", "12x"} {
		t.Run(strconv.Quote(raw), func(t *testing.T) {
			g, rec := newTestGame(t)
			before := g.Snapshot()

			res, err := g.ApplyPlayerGuess(raw)
			require.NoError(t, err)
			assert.Equal(t, OutcomeInvalid, res.Outcome)
			assert.Equal(t, before, g.Snapshot())
			assert.Equal(t, []Cue{CueInput}, rec.all())
		})
	}
}

func TestNoTargetRecordsValueOnly(t *testing.T) {
	g, rec := newTestGame(t)
	before := g.Snapshot()

	for _, raw := range []string{"26", "0", "-4", "7"} { // 7 is prime and > 5
		res, err := g.ApplyPlayerGuess(raw)
		require.NoError(t, err)
		assert.Equal(t, OutcomeNoTarget, res.Outcome, raw)
		assert.Empty(t, res.Coordinates)
	}

	st := g.Snapshot()
	assert.Equal(t, 7, st.LastTarget)
	assert.Equal(t, before.TurnCount, st.TurnCount)
	assert.Equal(t, before.Attempts, st.Attempts)
	assert.Equal(t, before.Board, st.Board)
	assert.Equal(t, before.Phase, st.Phase)
	assert.Len(t, rec.all(), 4)
}

func TestRepeatedGuessDoesNotDuplicateAttempts(t *testing.T) {
	g, _ := newTestGame(t)
	g.load(1, fixture(5, 5,
		[]board.Marker{{Row: 0, Col: 0}, {Row: 0, Col: 1}, {Row: 0, Col: 2}},
		[]board.Marker{{Row: 4, Col: 4}},
	))

	// 4 → (0,3), (1,1), (3,0)
	res, err := g.ApplyPlayerGuess("4")
	require.NoError(t, err)
	require.Equal(t, OutcomeMiss, res.Outcome)
	_, err = g.AcknowledgeMiss()
	require.NoError(t, err)

	res, err = g.ApplyPlayerGuess("4")
	require.NoError(t, err)
	assert.Equal(t, OutcomeMiss, res.Outcome)
	assert.Len(t, res.Coordinates, 3)

	st := g.Snapshot()
	player := 0
	for _, a := range st.Attempts {
		if !a.IsPlayerShip {
			player++
		}
	}
	assert.Equal(t, 3, player)
	assert.Equal(t, 3, st.TurnCount, "a repeated guess still uses a turn")
}

func TestLossAfterOpponentStrike(t *testing.T) {
	g, rec := newTestGame(t)
	g.load(1, fixture(5, 5,
		[]board.Marker{{Row: 0, Col: 0}},
		[]board.Marker{{Row: 4, Col: 4}, {Row: 3, Col: 3}},
	))

	res, err := g.ApplyPlayerGuess("16")
	require.NoError(t, err)
	assert.Equal(t, OutcomeHit, res.Outcome)
	require.NotNil(t, res.Opponent)
	assert.True(t, res.Opponent.PlayerLost)
	assert.True(t, res.GameOver)
	assert.False(t, res.PlayerWon)

	over, won := g.CheckGameEnd()
	assert.True(t, over)
	assert.False(t, won)
	assert.Equal(t, PhaseLost, g.Snapshot().Phase)
	assert.Equal(t, []Cue{CueHit, CueOpponentHit, CueDefeat}, rec.all())

	_, err = g.ApplyPlayerGuess("25")
	assert.ErrorIs(t, err, ErrGameOver)
	assert.Nil(t, g.RunOpponentTurn())
}

func TestCheckGameEndFromCells(t *testing.T) {
	l := fixture(3, 3,
		[]board.Marker{{Row: 0, Col: 0}, {Row: 1, Col: 1}},
		[]board.Marker{{Row: 2, Col: 2}},
	)
	st := State{Board: l.Board, PlayerMarkers: l.PlayerMarkers, OpponentMarkers: l.OpponentMarkers}

	over, won := st.CheckGameEnd()
	assert.False(t, over)
	assert.False(t, won)

	st.Board[2][2].IsHit = true
	over, won = st.CheckGameEnd()
	assert.True(t, over)
	assert.True(t, won)

	st.Board[2][2].IsHit = false
	st.Board[0][0].IsHit = true
	st.Board[1][1].IsHit = true
	over, won = st.CheckGameEnd()
	assert.True(t, over)
	assert.False(t, won)

	// The attempt log plays no part.
	st.Attempts = []Attempt{{Row: 2, Col: 2}}
	over, won = st.CheckGameEnd()
	assert.True(t, over)
	assert.False(t, won)
}

func TestOpponentPreviewDuringAim(t *testing.T) {
	var (
		g       *Game
		seen    State
		delayed time.Duration
	)
	g, _ = newTestGame(t,
		WithAimDelay(5*time.Millisecond),
		WithSleep(func(d time.Duration) {
			delayed = d
			seen = g.Snapshot()
		}),
	)
	g.load(1, fixture(5, 5,
		[]board.Marker{{Row: 2, Col: 3}},
		[]board.Marker{{Row: 4, Col: 4}},
	))

	turn := g.RunOpponentTurn()
	require.NotNil(t, turn)
	assert.Equal(t, 5*time.Millisecond, delayed)
	assert.Equal(t, PhaseOpponentAiming, seen.Phase)
	require.NotNil(t, seen.OpponentTarget)
	assert.Equal(t, board.Coordinate{Row: 2, Col: 3}, *seen.OpponentTarget)
	assert.False(t, seen.Board[2][3].IsHit, "strike lands after the delay")

	st := g.Snapshot()
	assert.Nil(t, st.OpponentTarget)
	assert.True(t, st.Board[2][3].IsHit)
	assert.Equal(t, PhaseLost, st.Phase)
}

func TestRunOpponentTurnWithoutLiveMarkers(t *testing.T) {
	g, rec := newTestGame(t)
	l := fixture(5, 5,
		[]board.Marker{{Row: 0, Col: 0}},
		[]board.Marker{{Row: 4, Col: 4}},
	)
	l.Board[0][0].IsHit = true
	g.load(1, l)
	before := g.Snapshot()

	assert.Nil(t, g.RunOpponentTurn())
	assert.Equal(t, before, g.Snapshot())
	assert.Empty(t, rec.all())
}

func TestOpponentTargetsOnlyLiveMarkers(t *testing.T) {
	for seed := range uint64(50) {
		g, _ := newTestGame(t, WithRand(rand.New(rand.NewPCG(seed, seed+1))))
		g.load(1, fixture(5, 5,
			[]board.Marker{{Row: 0, Col: 0}, {Row: 1, Col: 1}, {Row: 2, Col: 2}},
			[]board.Marker{{Row: 4, Col: 4}},
		))
		hit := map[board.Marker]bool{}
		for range 3 {
			turn := g.RunOpponentTurn()
			require.NotNil(t, turn)
			assert.False(t, hit[turn.Target], "marker struck twice")
			hit[turn.Target] = true
		}
		assert.Nil(t, g.RunOpponentTurn())
	}
}

func TestResetKeepsScoreExceptLevelOne(t *testing.T) {
	g, _ := newTestGame(t)
	g.load(1, fixture(5, 5,
		[]board.Marker{{Row: 2, Col: 2}},
		[]board.Marker{{Row: 0, Col: 0}},
	))
	_, err := g.ApplyPlayerGuess("1")
	require.NoError(t, err)
	require.Equal(t, 100, g.Snapshot().Score)

	require.NoError(t, g.Reset(2))
	st := g.Snapshot()
	assert.Equal(t, 100, st.Score)
	assert.Equal(t, 2, st.Level)
	assert.Equal(t, PhaseIdle, st.Phase)
	assert.Empty(t, st.Attempts)
	assert.Zero(t, st.TurnCount)
	assert.Equal(t, 5, st.Board.Rows())
	assert.Equal(t, 10, st.Board.Cols())
	assert.Len(t, st.PlayerMarkers, 5)
	assert.Len(t, st.OpponentMarkers, 4)

	require.NoError(t, g.Reset(3))
	st = g.Snapshot()
	assert.Equal(t, 100, st.Score)
	assert.Len(t, st.PlayerMarkers, 7)
	assert.Len(t, st.OpponentMarkers, 6)

	require.NoError(t, g.Reset(1))
	assert.Zero(t, g.Snapshot().Score)

	assert.ErrorIs(t, g.Reset(0), ErrUnknownLevel)
	assert.ErrorIs(t, g.Reset(4), ErrUnknownLevel)
	assert.Equal(t, 1, g.Snapshot().Level)
}

func TestChampionshipCueOnLastLevel(t *testing.T) {
	g, rec := newTestGame(t)
	g.load(3, fixture(10, 10,
		[]board.Marker{{Row: 9, Col: 9}},
		[]board.Marker{{Row: 4, Col: 4}},
	))
	res, err := g.ApplyPlayerGuess("25")
	require.NoError(t, err)
	assert.Equal(t, OutcomeWon, res.Outcome)
	assert.Equal(t, 300, res.Points)
	assert.Equal(t, []Cue{CueChampionship}, rec.all())
}

func TestPendingInput(t *testing.T) {
	g, rec := newTestGame(t)

	assert.True(t, g.PressDigit("1"))
	assert.Equal(t, PhasePlayerInput, g.Snapshot().Phase)
	assert.True(t, g.PressDigit("2"))
	assert.False(t, g.PressDigit("x"))
	assert.False(t, g.PressDigit("34"))
	assert.True(t, g.PressDigit("3"))
	assert.False(t, g.PressDigit("4"))
	assert.Equal(t, "123", g.Snapshot().PendingInput)
	assert.Len(t, rec.all(), 6)

	g.ClearInput()
	st := g.Snapshot()
	assert.Empty(t, st.PendingInput)
	assert.Equal(t, PhaseIdle, st.Phase)
}

func TestFireUsesPendingInput(t *testing.T) {
	g, _ := newTestGame(t)
	g.load(1, fixture(5, 5,
		[]board.Marker{{Row: 2, Col: 2}},
		[]board.Marker{{Row: 0, Col: 1}},
	))

	res, err := g.Fire()
	require.NoError(t, err)
	assert.Equal(t, OutcomeInvalid, res.Outcome)

	g.PressDigit("2")
	res, err = g.Fire()
	require.NoError(t, err)
	assert.Equal(t, OutcomeWon, res.Outcome)
	assert.Empty(t, g.Snapshot().PendingInput)
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	g, _ := newTestGame(t)
	st := g.Snapshot()
	st.Board[0][0].IsHit = true
	st.PlayerMarkers[0] = board.Marker{Row: 99, Col: 99}
	st.Attempts = append(st.Attempts, Attempt{})

	again := g.Snapshot()
	assert.False(t, again.Board[0][0].IsHit)
	assert.NotEqual(t, board.Marker{Row: 99, Col: 99}, again.PlayerMarkers[0])
	assert.Empty(t, again.Attempts)
}

// play drives a game with random guesses until it ends or runs out of moves.
func play(t *testing.T, g *Game, r *rand.Rand, check func(State)) {
	t.Helper()
	for range 200 {
		st := g.Snapshot()
		check(st)
		if st.Phase.Terminal() {
			return
		}
		if st.Phase == PhaseMissAck {
			_, err := g.AcknowledgeMiss()
			require.NoError(t, err)
			continue
		}
		guess := 1 + r.IntN(st.Board.Rows()*st.Board.Cols())
		_, err := g.ApplyPlayerGuess(strconv.Itoa(guess))
		require.NoError(t, err)
	}
}

// stacked reports whether a fallback placement put two markers on one cell.
func stacked(st State) bool {
	seen := map[board.Marker]bool{}
	for _, m := range append(append([]board.Marker{}, st.PlayerMarkers...), st.OpponentMarkers...) {
		if seen[m] {
			return true
		}
		seen[m] = true
	}
	return false
}

func TestPlaythroughInvariants(t *testing.T) {
	for seed := range uint64(30) {
		for _, lvl := range []int{1, 2, 3} {
			g, _ := newTestGame(t, WithRand(rand.New(rand.NewPCG(seed, 99))))
			require.NoError(t, g.Reset(lvl))
			r := rand.New(rand.NewPCG(seed, 7))

			lastScore := 0
			play(t, g, r, func(st State) {
				assert.GreaterOrEqual(t, st.Score, lastScore, "score must not decrease")
				lastScore = st.Score
				assert.LessOrEqual(t, len(st.PendingInput), MaxInputDigits)

				for _, m := range append(append([]board.Marker{}, st.PlayerMarkers...), st.OpponentMarkers...) {
					assert.True(t, st.Board.InBounds(m.Row, m.Col))
				}

				if stacked(st) {
					return
				}
				// Marker scan and cell scan agree on what is left.
				livePlayerCells, liveOpponentCells := 0, 0
				for _, row := range st.Board {
					for _, c := range row {
						if c.IsHit {
							continue
						}
						if c.HasPlayerMarker {
							livePlayerCells++
						}
						if c.HasOpponentMarker {
							liveOpponentCells++
						}
					}
				}
				assert.Equal(t, livePlayerCells, st.RemainingPlayer())
				assert.Equal(t, liveOpponentCells, st.RemainingOpponent())
			})
		}
	}
}

func TestCommandsAreSerialized(t *testing.T) {
	g, _ := newTestGame(t)
	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range 50 {
				switch (i + j) % 4 {
				case 0:
					g.PressDigit(strconv.Itoa(j % 10))
				case 1:
					_ = g.Snapshot()
				case 2:
					g.ClearInput()
				default:
					_, _ = g.ApplyPlayerGuess(strconv.Itoa(1 + j%25))
					_, _ = g.AcknowledgeMiss()
				}
			}
		}()
	}
	wg.Wait()

	st := g.Snapshot()
	assert.LessOrEqual(t, len(st.PendingInput), MaxInputDigits)
	assert.GreaterOrEqual(t, st.TurnCount, 1)
}

func TestNewRejectsInvalidLevels(t *testing.T) {
	_, err := New(level.Levels{})
	assert.ErrorIs(t, err, level.ErrNoLevels)
}
