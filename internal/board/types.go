// internal/board/types.go
//
// Grid primitives shared by the generator, the resolver and the game engine.
// Defines:
//   - Cell: occupancy + hit flag for one grid position.
//   - Coordinate / Marker: zero-based (row, col) pairs.
//   - Board: row-major grid of cells.
//   - Source: the random source the generator draws from.

package board

// Cell is one grid position. Its (row, col) identity is its index in the Board.
type Cell struct {
	HasPlayerMarker   bool `json:"hasPlayerMarker"`
	HasOpponentMarker bool `json:"hasOpponentMarker"`
	IsHit             bool `json:"isHit"`
}

// Coordinate is a zero-based grid position.
type Coordinate struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Marker is a placed unit for either side. Whether it is still alive is never
// stored here; it is read from the cell it sits on.
type Marker = Coordinate

// Board is a row-major grid. All rows have the same length.
type Board [][]Cell

// Source is a uniform integer generator. *math/rand/v2.Rand satisfies it.
type Source interface {
	// IntN returns a value in [0, n). It panics if n <= 0.
	IntN(n int) int
}

// New returns an empty rows×cols board.
func New(rows, cols int) Board {
	b := make(Board, rows)
	for r := range rows {
		b[r] = make([]Cell, cols)
	}
	return b
}

// Rows reports the number of rows.
func (b Board) Rows() int { return len(b) }

// Cols reports the number of columns (0 for an empty board).
func (b Board) Cols() int {
	if len(b) == 0 {
		return 0
	}
	return len(b[0])
}

// InBounds reports whether (row, col) addresses a cell of b.
func (b Board) InBounds(row, col int) bool {
	return row >= 0 && row < b.Rows() && col >= 0 && col < b.Cols()
}

// At returns the cell under c. c must be in bounds.
func (b Board) At(c Coordinate) Cell { return b[c.Row][c.Col] }

// Clone returns a deep copy of b.
func (b Board) Clone() Board {
	if b == nil {
		return nil
	}
	out := make(Board, len(b))
	for r, row := range b {
		out[r] = append([]Cell(nil), row...)
	}
	return out
}

// Remaining counts markers whose cell has not been hit.
func (b Board) Remaining(markers []Marker) int {
	n := 0
	for _, m := range markers {
		if b.InBounds(m.Row, m.Col) && !b[m.Row][m.Col].IsHit {
			n++
		}
	}
	return n
}
