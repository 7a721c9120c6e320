package headlessterm

import (
	"bufio"
	"io"
)

// RingScrollback is the default ScrollbackProvider: a fixed-capacity circular buffer
// of rows with a monotone logical origin. Pushing past capacity discards the oldest
// retained row and advances the origin, so callers addressing rows by logical index
// (Delta() == oldest retained) never need to know where physical wraparound occurs.
type RingScrollback struct {
	rows     [][]Cell
	delta    int // logical index of the oldest retained row
	next     int // logical index one past the newest retained row
	maxLines int
}

// NewRingScrollback creates a ring-backed scrollback store retaining at most maxLines
// rows. A non-positive maxLines means unbounded growth.
func NewRingScrollback(maxLines int) *RingScrollback {
	return &RingScrollback{
		maxLines: maxLines,
	}
}

// Push appends a line to scrollback, discarding the oldest retained line first when
// at capacity.
func (r *RingScrollback) Push(line []Cell) {
	cp := make([]Cell, len(line))
	copy(cp, line)

	r.rows = append(r.rows, cp)
	r.next++

	if r.maxLines > 0 && len(r.rows) > r.maxLines {
		drop := len(r.rows) - r.maxLines
		r.rows = r.rows[drop:]
		r.delta += drop
	}
}

// Len returns the number of lines currently retained.
func (r *RingScrollback) Len() int {
	return len(r.rows)
}

// Line returns the line at logical index i (Delta() == oldest retained), or nil if i falls
// outside [delta, next).
func (r *RingScrollback) Line(i int) []Cell {
	if i < r.delta || i >= r.next {
		return nil
	}
	return r.rows[i-r.delta]
}

// Clear removes all retained lines. The logical origin is not reset: subsequent
// pushes continue to advance from where Clear left off, so previously issued
// logical indices never silently refer to a different row.
func (r *RingScrollback) Clear() {
	r.delta = r.next
	r.rows = nil
}

// SetMaxLines changes the retention capacity, trimming the oldest rows immediately
// if the new capacity is smaller than the current occupancy.
func (r *RingScrollback) SetMaxLines(max int) {
	r.maxLines = max
	if max > 0 && len(r.rows) > max {
		drop := len(r.rows) - max
		r.rows = r.rows[drop:]
		r.delta += drop
	}
}

// MaxLines returns the current retention capacity (0 means unbounded).
func (r *RingScrollback) MaxLines() int {
	return r.maxLines
}

// Delta returns the logical index of the oldest retained row.
func (r *RingScrollback) Delta() int {
	return r.delta
}

// Next returns the logical index one past the newest retained row.
func (r *RingScrollback) Next() int {
	return r.next
}

// WriteContents serializes every retained row as text, one line per row, trimming
// trailing blank cells the same way Buffer.LineContent does. It is the host's "save
// scrollback to a file" operation.
func (r *RingScrollback) WriteContents(w io.Writer) error {
	bw := bufio.NewWriter(w)

	for i := r.delta; i < r.next; i++ {
		line := r.Line(i)
		if _, err := bw.WriteString(cellsToText(line)); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}

	return bw.Flush()
}

// cellsToText renders a row of cells as text, trimming trailing blanks and appending
// combining marks after their base rune, matching Buffer.LineContent's conventions.
func cellsToText(line []Cell) string {
	runes := make([]rune, 0, len(line))
	lastNonBlank := -1

	for _, c := range line {
		if c.IsWideSpacer() {
			continue
		}
		ch := c.Char
		if ch == 0 {
			ch = ' '
		}
		runes = append(runes, ch)
		runes = append(runes, c.Combining...)
		if ch != ' ' || len(c.Combining) > 0 {
			lastNonBlank = len(runes) - 1
		}
	}

	if lastNonBlank < 0 {
		return ""
	}
	return string(runes[:lastNonBlank+1])
}

var _ ScrollbackProvider = (*RingScrollback)(nil)
