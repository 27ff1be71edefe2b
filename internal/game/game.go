// internal/game/game.go
//
// Session ownership for a single game.
// Responsibilities:
//   - Create sessions at level 1 with an injected (or seeded) random source.
//   - Serialize commands: a guess and any opponent turn it triggers finish
//     before the next command starts.
//   - Hand out deep-copied snapshots to readers, including while the opponent
//     is aiming.
//   - Reset to a level (retry / advance / restart), regenerating the board.
//
// Notes:
//   - All writes go through mutate(); nothing outside this package can reach
//     the live State.
//   - Two locks: turn serializes whole commands, mu guards State for the short
//     read/write windows inside them.

package game

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/mathstrike/internal/board"
	"github.com/robalobadob/mathstrike/internal/level"
)

const (
	// DefaultAimDelay is how long the opponent's target stays visible before it fires.
	DefaultAimDelay = time.Second

	// MaxInputDigits bounds PendingInput.
	MaxInputDigits = 3
)

// Game is one playthrough and the only writer of its State.
type Game struct {
	ID string

	levels   level.Levels
	src      board.Source
	notifier Notifier
	aimDelay time.Duration
	sleep    func(time.Duration)

	turn sync.Mutex // held for the whole of every command

	mu         sync.RWMutex // guards st and lastActive
	st         State
	lastActive time.Time
}

// Option configures a Game.
type Option func(*Game)

// WithID overrides the generated session id.
func WithID(id string) Option { return func(g *Game) { g.ID = id } }

// WithRand sets the random source used for board generation and opponent targeting.
func WithRand(src board.Source) Option { return func(g *Game) { g.src = src } }

// WithNotifier sets the cue sink.
func WithNotifier(n Notifier) Option { return func(g *Game) { g.notifier = n } }

// WithAimDelay sets the pause between the opponent choosing and hitting a target.
// Zero skips the pause.
func WithAimDelay(d time.Duration) Option { return func(g *Game) { g.aimDelay = d } }

// WithSleep replaces time.Sleep for the aim pause.
func WithSleep(fn func(time.Duration)) Option { return func(g *Game) { g.sleep = fn } }

// New creates a session at level 1.
func New(levels level.Levels, opts ...Option) (*Game, error) {
	if err := levels.Validate(); err != nil {
		return nil, err
	}
	g := &Game{
		ID:       uuid.NewString(),
		levels:   levels,
		notifier: nopNotifier{},
		aimDelay: DefaultAimDelay,
		sleep:    time.Sleep,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.src == nil {
		g.src = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if err := g.reset(1); err != nil {
		return nil, err
	}
	return g, nil
}

// Snapshot returns a deep copy of the current state.
func (g *Game) Snapshot() State {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.st.clone()
}

// Levels returns the level ladder this game was created with.
func (g *Game) Levels() level.Levels { return g.levels }

// CurrentLevel returns the descriptor of the level being played.
func (g *Game) CurrentLevel() level.Level {
	g.mu.RLock()
	id := g.st.Level
	g.mu.RUnlock()
	l, _ := g.levels.Find(id)
	return l
}

// LastActive reports when the session last received a command.
func (g *Game) LastActive() time.Time {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.lastActive
}

// CheckGameEnd reports the terminal condition of the live board.
func (g *Game) CheckGameEnd() (isGameOver, playerWon bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.st.CheckGameEnd()
}

// Reset discards the board, markers and attempt log and deals a fresh board
// for lvl. Score is kept unless lvl is 1.
func (g *Game) Reset(lvl int) error {
	g.turn.Lock()
	defer g.turn.Unlock()
	return g.reset(lvl)
}

func (g *Game) reset(lvl int) error {
	cfg, ok := g.levels.Find(lvl)
	if !ok {
		return ErrUnknownLevel
	}
	layout := board.Generate(cfg.BoardRows, cfg.BoardCols, cfg.MinPlayerMarkers, cfg.MinOpponentMarkers, cfg.ID, g.src)
	if layout.Fallbacks > 0 {
		log.Warn().Str("gameId", g.ID).Int("level", lvl).Int("fallbacks", layout.Fallbacks).
			Msg("marker placement ran out of attempts")
	}
	g.load(lvl, layout)
	return nil
}

// load installs a layout as the new round.
func (g *Game) load(lvl int, layout board.Layout) {
	g.mutate(func(st *State) {
		score := st.Score
		if lvl == 1 {
			score = 0
		}
		*st = State{
			Board:           layout.Board,
			PlayerMarkers:   layout.PlayerMarkers,
			OpponentMarkers: layout.OpponentMarkers,
			Attempts:        []Attempt{},
			Score:           score,
			Level:           lvl,
			Phase:           PhaseIdle,
		}
	})
}

// PressDigit appends one digit to the pending input. Non-digits and digits
// beyond MaxInputDigits are ignored. It reports whether the input changed.
func (g *Game) PressDigit(key string) bool {
	g.turn.Lock()
	defer g.turn.Unlock()

	accepted := false
	g.mutate(func(st *State) {
		if len(key) != 1 || key[0] < '0' || key[0] > '9' || len(st.PendingInput) >= MaxInputDigits {
			return
		}
		st.PendingInput += key
		if st.Phase == PhaseIdle {
			st.Phase = PhasePlayerInput
		}
		accepted = true
	})
	g.emit(CueInput)
	return accepted
}

// ClearInput empties the pending input.
func (g *Game) ClearInput() {
	g.turn.Lock()
	defer g.turn.Unlock()

	g.mutate(func(st *State) {
		st.PendingInput = ""
		if st.Phase == PhasePlayerInput {
			st.Phase = PhaseIdle
		}
	})
	g.emit(CueInput)
}

// mutate applies fn to the live state under the state lock.
func (g *Game) mutate(fn func(st *State)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	fn(&g.st)
	g.lastActive = time.Now()
}

// touch records activity without changing state.
func (g *Game) touch() {
	g.mu.Lock()
	g.lastActive = time.Now()
	g.mu.Unlock()
}

// phase reads the current phase.
func (g *Game) phase() Phase {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.st.Phase
}

// emit sends cue with the current level and score.
func (g *Game) emit(cue Cue) {
	g.mu.RLock()
	ev := Event{GameID: g.ID, Cue: cue, Level: g.st.Level, Score: g.st.Score, At: time.Now()}
	g.mu.RUnlock()
	g.notifier.Notify(ev)
}
