package headlessterm

import (
	"regexp"
	"unicode/utf8"
)

// CellRef identifies the originating cell of one rune within an ExtendedLine's Text.
type CellRef struct {
	Row, Col int
}

// ExtendedLine is the concatenation of consecutive soft-wrapped rows, joined per
// the "Extended line" definition: a maximal run of rows with Buffer.IsWrapped true
// on all but the last. It is the unit search and word/line selection operate over.
type ExtendedLine struct {
	Text    string
	Offsets []CellRef // one entry per rune in Text, in order
}

// cellAtByte resolves a byte offset into Text (as produced by regexp's
// FindStringIndex) back to the originating cell. endExclusive widens the lookup by
// one past the last rune when the offset lands exactly at len(Text), so that a
// match ending at the line boundary still resolves to a cell (one past the last).
func (l ExtendedLine) cellAtByte(byteOffset int, endExclusive bool) (CellRef, bool) {
	if byteOffset < 0 || byteOffset > len(l.Text) {
		return CellRef{}, false
	}
	runeIdx := utf8.RuneCountInString(l.Text[:byteOffset])

	if runeIdx < len(l.Offsets) {
		return l.Offsets[runeIdx], true
	}
	if endExclusive && runeIdx == len(l.Offsets) && len(l.Offsets) > 0 {
		last := l.Offsets[len(l.Offsets)-1]
		return CellRef{Row: last.Row, Col: last.Col + 1}, true
	}
	return CellRef{}, false
}

// buildExtendedLines walks scrollback (oldest first) followed by the active
// screen's rows and joins consecutive soft-wrapped rows into single ExtendedLines,
// so a search match can span a row that was only wrapped for display.
//
// Scrollback rows carry no explicit soft-wrap bit (ScrollbackProvider.Push only
// stores cells, not the Buffer.wrapped flag that produced them) so wrap-continuation
// for scrollback lines is inferred: a scrollback row whose rightmost addressable
// cell is non-blank is treated as wrapped into the row that follows it. On-screen
// rows use the authoritative Buffer.IsWrapped bit.
func buildExtendedLines(t *Terminal) []ExtendedLine {
	t.mu.RLock()
	defer t.mu.RUnlock()

	buf := t.activeBuffer
	cols := t.cols

	type rawRow struct {
		cells   []Cell
		wrapped bool
	}

	var rows []rawRow

	scrollbackLen := buf.ScrollbackLen()
	for i := 0; i < scrollbackLen; i++ {
		line := buf.ScrollbackLine(i)
		rows = append(rows, rawRow{cells: line, wrapped: inferScrollbackWrap(line, cols)})
	}

	for row := 0; row < t.rows; row++ {
		line := make([]Cell, cols)
		for col := 0; col < cols; col++ {
			if c := buf.Cell(row, col); c != nil {
				line[col] = *c
			}
		}
		rows = append(rows, rawRow{cells: line, wrapped: buf.IsWrapped(row)})
	}

	var lines []ExtendedLine
	var curText []rune
	var curOffsets []CellRef
	logicalRow := scrollbackLen * -1 // scrollback rows carry negative logical row numbers, oldest first

	flush := func() {
		if len(curOffsets) == 0 && len(curText) == 0 {
			return
		}
		lines = append(lines, ExtendedLine{Text: string(curText), Offsets: curOffsets})
		curText = nil
		curOffsets = nil
	}

	for _, r := range rows {
		colRow := logicalRow
		for col, c := range r.cells {
			if c.IsWideSpacer() {
				continue
			}
			ch := c.Char
			if ch == 0 {
				ch = ' '
			}
			curText = append(curText, ch)
			curOffsets = append(curOffsets, CellRef{Row: colRow, Col: col})
			for _, comb := range c.Combining {
				curText = append(curText, comb)
				curOffsets = append(curOffsets, CellRef{Row: colRow, Col: col})
			}
		}
		if !r.wrapped {
			flush()
		}
		logicalRow++
	}
	flush()

	return lines
}

// inferScrollbackWrap approximates the soft-wrap bit for a retained scrollback row:
// a row whose last column is occupied by a non-blank cell is assumed to have
// overflowed into the row that followed it at write time.
func inferScrollbackWrap(line []Cell, cols int) bool {
	if len(line) == 0 || cols == 0 {
		return false
	}
	last := line[len(line)-1]
	return last.Char != 0 && last.Char != ' '
}

// FindNext searches forward from (and excluding) the `from` position for the first
// match of re, optionally wrapping around to the start once the end is reached.
// Empty matches are skipped (retried one rune later) so a pattern like `a*` cannot
// wedge the cursor in place.
func FindNext(t *Terminal, re *regexp.Regexp, from Position, wrap bool) (Selection, bool) {
	return findDirectional(t, re, from, wrap, true)
}

// FindPrevious searches backward from (and excluding) the `from` position for the
// nearest preceding match of re, optionally wrapping to the end once the start is
// reached.
func FindPrevious(t *Terminal, re *regexp.Regexp, from Position, wrap bool) (Selection, bool) {
	return findDirectional(t, re, from, wrap, false)
}

func findDirectional(t *Terminal, re *regexp.Regexp, from Position, wrap bool, forward bool) (Selection, bool) {
	lines := buildExtendedLines(t)
	if len(lines) == 0 {
		return Selection{}, false
	}

	n := len(lines)
	indices := make([]int, n)
	for i := range indices {
		if forward {
			indices[i] = i
		} else {
			indices[i] = n - 1 - i
		}
	}

	var wrapped bool
	for pass := 0; pass < 2; pass++ {
		for _, i := range indices {
			line := lines[i]
			if sel, ok := searchLine(line, re, from, forward, wrapped); ok {
				return sel, true
			}
		}
		if !wrap {
			break
		}
		wrapped = true
	}

	return Selection{}, false
}

// searchLine finds the first (forward) or last (backward) match in line that lies
// strictly past `from` in the search direction, unless afterWrap is set (in which
// case the whole line is eligible, since wrap-around has already passed `from`).
func searchLine(line ExtendedLine, re *regexp.Regexp, from Position, forward, afterWrap bool) (Selection, bool) {
	matches := re.FindAllStringIndex(line.Text, -1)
	if matches == nil {
		return Selection{}, false
	}

	// Protect against empty matches wedging the caller: drop any zero-width match.
	filtered := matches[:0]
	for _, m := range matches {
		if m[0] != m[1] {
			filtered = append(filtered, m)
		}
	}
	matches = filtered
	if len(matches) == 0 {
		return Selection{}, false
	}

	if !forward {
		for i, j := 0, len(matches)-1; i < j; i, j = i+1, j-1 {
			matches[i], matches[j] = matches[j], matches[i]
		}
	}

	for _, m := range matches {
		start, ok1 := line.cellAtByte(m[0], false)
		end, ok2 := line.cellAtByte(m[1], true)
		if !ok1 || !ok2 {
			continue
		}
		if end.Col > start.Col {
			end.Col--
		}

		if !afterWrap {
			if forward && !from.Before(start) {
				continue
			}
			if !forward && !start.Before(from) {
				continue
			}
		}

		return Selection{Start: start, End: end, Active: true}, true
	}

	return Selection{}, false
}

// Search finds every occurrence of pattern (treated as a literal substring) in the
// currently visible screen, returning the position of each match's first cell.
// Matches can span soft-wrapped rows since the scan walks extended lines rather
// than raw rows.
func (t *Terminal) Search(pattern string) []Position {
	if pattern == "" {
		return nil
	}
	re, err := regexp.Compile(regexp.QuoteMeta(pattern))
	if err != nil {
		return nil
	}

	lines := buildExtendedLines(t)
	var out []Position
	for _, line := range lines {
		for _, m := range re.FindAllStringIndex(line.Text, -1) {
			if m[0] == m[1] {
				continue
			}
			if cell, ok := line.cellAtByte(m[0], false); ok && cell.Row >= 0 {
				out = append(out, Position{Row: cell.Row, Col: cell.Col})
			}
		}
	}
	return out
}

// SearchScrollback finds every occurrence of pattern within scrollback lines only.
// Returned row values are negative, where -1 is the most recently scrolled-off line
// and -ScrollbackLen() is the oldest retained one (ScrollbackLine(0)).
func (t *Terminal) SearchScrollback(pattern string) []Position {
	if pattern == "" {
		return nil
	}
	re, err := regexp.Compile(regexp.QuoteMeta(pattern))
	if err != nil {
		return nil
	}

	lines := buildExtendedLines(t)
	var out []Position
	for _, line := range lines {
		for _, m := range re.FindAllStringIndex(line.Text, -1) {
			if m[0] == m[1] {
				continue
			}
			if cell, ok := line.cellAtByte(m[0], false); ok && cell.Row < 0 {
				out = append(out, Position{Row: cell.Row, Col: cell.Col})
			}
		}
	}
	return out
}
