package game

import "time"

// Cue names a presentation event. Cues are one-way; nothing in the engine
// depends on whether they are delivered.
type Cue string

const (
	CueInput         Cue = "input"
	CueHit           Cue = "hit"
	CueMultiHit      Cue = "multi_hit"
	CueMiss          Cue = "miss"
	CueOpponentHit   Cue = "opponent_hit"
	CueLevelComplete Cue = "level_complete"
	CueChampionship  Cue = "championship"
	CueDefeat        Cue = "defeat"
)

// Event is what a Notifier receives.
type Event struct {
	GameID string    `json:"gameId"`
	Cue    Cue       `json:"cue"`
	Level  int       `json:"level"`
	Score  int       `json:"score"`
	At     time.Time `json:"at"`
}

// Notifier receives cues. Implementations must not block.
type Notifier interface {
	Notify(Event)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Event)

func (f NotifierFunc) Notify(e Event) { f(e) }

type nopNotifier struct{}

func (nopNotifier) Notify(Event) {}
