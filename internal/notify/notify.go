// internal/notify/notify.go
//
// Cue sinks for the game engine.
// Responsibilities:
//   - Logger: writes every cue as a structured debug line.
//   - Hub: fans cues out to per-game subscribers (websocket clients).
//   - Multi: combines sinks.
//
// Notes:
//   - Notify never blocks. A subscriber whose buffer is full loses the event;
//     the engine does not care whether a cue was delivered.

package notify

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/robalobadob/mathstrike/internal/game"
)

// SubscriberBuffer is the per-subscriber queue length.
const SubscriberBuffer = 32

// Logger logs cues.
type Logger struct {
	log zerolog.Logger
}

// NewLogger returns a Logger writing to l.
func NewLogger(l zerolog.Logger) *Logger { return &Logger{log: l} }

func (n *Logger) Notify(e game.Event) {
	n.log.Debug().
		Str("gameId", e.GameID).
		Str("cue", string(e.Cue)).
		Int("level", e.Level).
		Int("score", e.Score).
		Msg("cue")
}

// Multi delivers each event to every sink in order.
type Multi []game.Notifier

func (m Multi) Notify(e game.Event) {
	for _, n := range m {
		n.Notify(e)
	}
}

// Subscription receives the events of one game until it is cancelled.
type Subscription struct {
	C      <-chan game.Event
	ch     chan game.Event
	gameID string
	hub    *Hub
	once   sync.Once
}

// Cancel detaches the subscription and closes C. Safe to call more than once.
func (s *Subscription) Cancel() {
	s.once.Do(func() { s.hub.remove(s) })
}

// Hub routes events to subscribers by game id.
type Hub struct {
	mu      sync.Mutex
	subs    map[string]map[*Subscription]struct{}
	dropped int
}

// NewHub returns an empty Hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[*Subscription]struct{})}
}

// Subscribe registers interest in gameID's events.
func (h *Hub) Subscribe(gameID string) *Subscription {
	ch := make(chan game.Event, SubscriberBuffer)
	s := &Subscription{C: ch, ch: ch, gameID: gameID, hub: h}

	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[gameID]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.subs[gameID] = set
	}
	set[s] = struct{}{}
	return s
}

func (h *Hub) remove(s *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.subs[s.gameID]; ok {
		delete(set, s)
		if len(set) == 0 {
			delete(h.subs, s.gameID)
		}
	}
	close(s.ch)
}

// Notify hands e to every subscriber of e.GameID without waiting.
func (h *Hub) Notify(e game.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs[e.GameID] {
		select {
		case s.ch <- e:
		default:
			h.dropped++
		}
	}
}

// Close cancels every subscription of gameID.
func (h *Hub) Close(gameID string) {
	h.mu.Lock()
	subs := make([]*Subscription, 0, len(h.subs[gameID]))
	for s := range h.subs[gameID] {
		subs = append(subs, s)
	}
	h.mu.Unlock()
	for _, s := range subs {
		s.Cancel()
	}
}

// Subscribers reports how many subscriptions gameID has.
func (h *Hub) Subscribers(gameID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[gameID])
}

// Dropped reports how many events were discarded because a subscriber was full.
func (h *Hub) Dropped() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dropped
}
