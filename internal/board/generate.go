// internal/board/generate.go
//
// Random marker placement.
//
// Player markers are placed first, then opponent markers. Each marker samples
// uniform coordinates until one satisfies the placement rule or the attempt
// budget runs out; in the latter case the last sample is kept as is. This keeps
// generation total for impossible configurations (more markers than legal cells)
// at the cost of an occasional overlapping or "easy" placement, which is counted
// in Layout.Fallbacks.
//
// From level 2 on, opponent markers avoid the edge band a player tends to try
// first (see IsEasyCoordinate).

package board

const (
	// MaxPlacementAttempts bounds the samples drawn for a single marker.
	MaxPlacementAttempts = 100

	// HardestLevel uses fixed marker counts regardless of the caller's.
	HardestLevel           = 3
	HardestPlayerMarkers   = 7
	HardestOpponentMarkers = 6
)

// Layout is the result of a generation run.
type Layout struct {
	Board           Board
	PlayerMarkers   []Marker
	OpponentMarkers []Marker
	// Fallbacks counts markers placed after the attempt budget ran out.
	Fallbacks int
}

// Generate builds a rows×cols board and places playerCount player markers and
// opponentCount opponent markers on it, drawing coordinates from src.
// At HardestLevel the counts are replaced by HardestPlayerMarkers and
// HardestOpponentMarkers.
func Generate(rows, cols, playerCount, opponentCount, level int, src Source) Layout {
	if level == HardestLevel {
		playerCount, opponentCount = HardestPlayerMarkers, HardestOpponentMarkers
	}
	playerCount, opponentCount = max(playerCount, 0), max(opponentCount, 0)

	l := Layout{
		Board:           New(rows, cols),
		PlayerMarkers:   make([]Marker, 0, playerCount),
		OpponentMarkers: make([]Marker, 0, opponentCount),
	}

	for range playerCount {
		m, ok := l.place(src, true, level)
		l.PlayerMarkers = append(l.PlayerMarkers, m)
		if !ok {
			l.Fallbacks++
		}
	}
	for range opponentCount {
		m, ok := l.place(src, false, level)
		l.OpponentMarkers = append(l.OpponentMarkers, m)
		if !ok {
			l.Fallbacks++
		}
	}
	return l
}

// place samples a coordinate for one marker and marks it on the board.
// ok is false when the budget ran out and the last sample was taken anyway.
func (l *Layout) place(src Source, player bool, level int) (m Marker, ok bool) {
	rows, cols := l.Board.Rows(), l.Board.Cols()
	for attempt := 1; ; attempt++ {
		m = Marker{Row: src.IntN(rows), Col: src.IntN(cols)}
		if ok = validPlacement(l.Board, m, player, level); ok || attempt >= MaxPlacementAttempts {
			break
		}
	}
	if player {
		l.Board[m.Row][m.Col].HasPlayerMarker = true
	} else {
		l.Board[m.Row][m.Col].HasOpponentMarker = true
	}
	return m, ok
}

func validPlacement(b Board, m Marker, player bool, level int) bool {
	c := b[m.Row][m.Col]
	if c.HasPlayerMarker || c.HasOpponentMarker {
		return false
	}
	return player || !IsEasyCoordinate(m.Row, m.Col, b.Rows(), b.Cols(), level)
}

// IsEasyCoordinate reports whether (row, col) lies in the band opponent markers
// avoid at the given level: the first two rows, the last row, the first two
// columns and, at HardestLevel and above, the second-to-last column.
// Level 1 has no easy band.
func IsEasyCoordinate(row, col, rows, cols, level int) bool {
	if level <= 1 {
		return false
	}
	if row == 0 || row == 1 || row == rows-1 || col == 0 || col == 1 {
		return true
	}
	return level >= HardestLevel && col == cols-2
}
