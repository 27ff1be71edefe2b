// internal/level/level.go
//
// Level descriptors for the game.
// Responsibilities:
//   - Describe each difficulty level (board shape, guess range, marker counts).
//   - Parse and validate level lists from JSON (the embedded assets/levels.json or a user file).
//   - Look levels up by id and answer "what comes next".
//
// Ids are 1-based and contiguous; the engine indexes levels by id.

package level

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/robalobadob/mathstrike/assets"
)

// Level describes one difficulty level.
type Level struct {
	ID                 int    `json:"id"`
	Name               string `json:"name"`
	Description        string `json:"description"`
	BoardRows          int    `json:"boardRows"`
	BoardCols          int    `json:"boardCols"`
	MaxGuessableNumber int    `json:"maxGuessableNumber"`
	MinPlayerMarkers   int    `json:"minPlayerMarkers"`
	MinOpponentMarkers int    `json:"minOpponentMarkers"`
}

// Levels is an ordered level list; Levels[i].ID == i+1.
type Levels []Level

// ErrNoLevels is returned when a configuration holds no levels.
var ErrNoLevels = errors.New("no levels configured")

// Defaults returns the embedded level ladder. It panics if the embedded
// file is broken.
func Defaults() Levels {
	data, err := assets.Levels()
	if err != nil {
		panic(err)
	}
	ls, err := Parse(data)
	if err != nil {
		panic(fmt.Errorf("embedded levels: %w", err))
	}
	return ls
}

// Parse decodes a JSON array of levels and validates it.
func Parse(data []byte) (Levels, error) {
	var ls Levels
	if err := json.Unmarshal(data, &ls); err != nil {
		return nil, fmt.Errorf("decode levels: %w", err)
	}
	if err := ls.Validate(); err != nil {
		return nil, err
	}
	return ls, nil
}

// Validate checks ordering and basic bounds.
func (ls Levels) Validate() error {
	if len(ls) == 0 {
		return ErrNoLevels
	}
	for i, l := range ls {
		switch {
		case l.ID != i+1:
			return fmt.Errorf("level #%d: id %d out of order (want %d)", i, l.ID, i+1)
		case l.BoardRows < 1 || l.BoardCols < 1:
			return fmt.Errorf("level %d: board %dx%d must be at least 1x1", l.ID, l.BoardRows, l.BoardCols)
		case l.MinPlayerMarkers < 0 || l.MinOpponentMarkers < 0:
			return fmt.Errorf("level %d: marker counts must not be negative", l.ID)
		case l.MaxGuessableNumber < 0:
			return fmt.Errorf("level %d: max guessable number must not be negative", l.ID)
		}
	}
	return nil
}

// Find returns the level with the given id.
func (ls Levels) Find(id int) (Level, bool) {
	if id < 1 || id > len(ls) {
		return Level{}, false
	}
	return ls[id-1], true
}

// Last reports the id of the final level.
func (ls Levels) Last() int { return len(ls) }

// Next returns the id following id; ok is false after the final level.
func (ls Levels) Next(id int) (next int, ok bool) {
	if id < 1 || id >= len(ls) {
		return 0, false
	}
	return id + 1, true
}
