package headlessterm

// Rect is an axis-aligned cell-space rectangle: rows/cols in [Row, Row+Rows) x
// [Col, Col+Cols).
type Rect struct {
	Row, Col   int
	Rows, Cols int
}

// CellAt translates widget-local pixel coordinates into a grid cell, given the pixel
// size of a single cell. It returns ok == false when (x, y) falls outside the grid
// described by t's current dimensions.
func CellAt(t *Terminal, x, y, cellW, cellH int) (row, col int, ok bool) {
	if cellW <= 0 || cellH <= 0 || x < 0 || y < 0 {
		return 0, 0, false
	}

	row = y / cellH
	col = x / cellW

	if row >= t.Rows() || col >= t.Cols() {
		return 0, 0, false
	}
	return row, col, true
}

// GridSize translates a pixel-space widget size into a (rows, cols) grid size for
// the given cell pixel dimensions.
func GridSize(w, h, cellW, cellH int) (rows, cols int, ok bool) {
	if cellW <= 0 || cellH <= 0 || w <= 0 || h <= 0 {
		return 0, 0, false
	}
	return h / cellH, w / cellW, true
}

// ExpandRegion returns r grown by one cell of overdraw on every side, clamped to
// non-negative origin.
func ExpandRegion(r Rect) Rect {
	row := r.Row - 1
	col := r.Col - 1
	if row < 0 {
		row = 0
	}
	if col < 0 {
		col = 0
	}

	rows := r.Rows + (r.Row - row) + 1
	cols := r.Cols + (r.Col - col) + 1

	return Rect{Row: row, Col: col, Rows: rows, Cols: cols}
}

// CellPixelSize returns the terminal's current pixel cell size, consulting its
// SizeProvider if one is set and defaulting to 10x20 otherwise.
func CellPixelSize(t *Terminal) (width, height int) {
	if p := t.SizeProvider(); p != nil {
		if w, h := p.CellSizePixels(); w > 0 && h > 0 {
			return w, h
		}
	}
	return 10, 20
}
