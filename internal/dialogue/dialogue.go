// internal/dialogue/dialogue.go
//
// Opponent lines shown next to round messages.
// Responsibilities:
//   - Load one line list per category from the embedded assets.
//   - Pick a line uniformly at random.
//
// Lines are flavour only; a missing category yields "".

package dialogue

import (
	"fmt"
	"math/rand/v2"

	"github.com/robalobadob/mathstrike/assets"
)

// Category groups lines by the moment they are said.
type Category string

const (
	PlayerHit     Category = "player_hit"
	PlayerMiss    Category = "player_miss"
	LevelComplete Category = "level_complete"
	Defeat        Category = "defeat"
	Championship  Category = "championship"
)

// Categories lists every category Load reads.
var Categories = []Category{PlayerHit, PlayerMiss, LevelComplete, Defeat, Championship}

// Source picks indexes. *math/rand/v2.Rand satisfies it.
type Source interface {
	IntN(n int) int
}

type globalSource struct{}

func (globalSource) IntN(n int) int { return rand.IntN(n) }

// Lines holds every category's lines.
type Lines struct {
	byCat map[Category][]string
	src   Source
}

// Load reads all categories from the embedded assets.
func Load() (*Lines, error) {
	l := &Lines{byCat: make(map[Category][]string, len(Categories)), src: globalSource{}}
	for _, c := range Categories {
		lines, err := assets.DialogueLines(string(c))
		if err != nil {
			return nil, fmt.Errorf("dialogue %s: %w", c, err)
		}
		l.byCat[c] = lines
	}
	return l, nil
}

// New builds Lines from an explicit table, drawing with src (nil for the
// process-wide generator).
func New(byCat map[Category][]string, src Source) *Lines {
	if src == nil {
		src = globalSource{}
	}
	return &Lines{byCat: byCat, src: src}
}

// Pick returns a random line of c, or "" when c has none.
func (l *Lines) Pick(c Category) string {
	if l == nil {
		return ""
	}
	lines := l.byCat[c]
	if len(lines) == 0 {
		return ""
	}
	return lines[l.src.IntN(len(lines))]
}

// Count reports how many lines c has.
func (l *Lines) Count(c Category) int { return len(l.byCat[c]) }
