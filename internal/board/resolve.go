package board

// Resolve returns every cell of b whose (row+1)*(col+1) equals product, in
// row-major order. It only looks at the board's shape. The result is empty,
// never nil, when nothing matches.
func Resolve(b Board, product int) []Coordinate {
	out := []Coordinate{}
	rows, cols := b.Rows(), b.Cols()
	if product <= 0 || product > rows*cols {
		return out
	}
	for r := 1; r <= rows && r <= product; r++ {
		if product%r != 0 {
			continue
		}
		if c := product / r; c <= cols {
			out = append(out, Coordinate{Row: r - 1, Col: c - 1})
		}
	}
	return out
}
