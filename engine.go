package headlessterm

import (
	"sync"
	"time"

	"github.com/danielgatis/go-ansicode"
)

const (
	// minDisplayInterval is the lower bound on refresh delay when input is
	// trickling in (the "display-timeout").
	minDisplayInterval = 15 * time.Millisecond
	// maxUpdateInterval is the upper bound between refreshes under sustained
	// load (the "update-timeout").
	maxUpdateInterval = 40 * time.Millisecond
	// targetPassDuration is the wall-clock pass length the byte budget self-tunes
	// toward, aiming for roughly 40 Hz.
	targetPassDuration = 25 * time.Millisecond

	defaultByteBudget = 64 * 1024
	minByteBudget     = 1024
	maxByteBudget     = 1 << 20

	// boundingBoxSlack is how many rows/cols the accumulated invalidation may grow
	// past before an early flush is triggered, independent of the pacing timers.
	boundingBoxSlack = 4
)

// invalidRect accumulates the bounding box of cells touched since the last flush.
type invalidRect struct {
	minRow, minCol int
	maxRow, maxCol int
	dirty          bool
}

func (r *invalidRect) touch(row, col int) {
	if !r.dirty {
		r.minRow, r.maxRow = row, row
		r.minCol, r.maxCol = col, col
		r.dirty = true
		return
	}
	if row < r.minRow {
		r.minRow = row
	}
	if row > r.maxRow {
		r.maxRow = row
	}
	if col < r.minCol {
		r.minCol = col
	}
	if col > r.maxCol {
		r.maxCol = col
	}
}

func (r *invalidRect) reset() { *r = invalidRect{} }

func (r *invalidRect) exceedsSlack() bool {
	return r.dirty && (r.maxRow-r.minRow > boundingBoxSlack || r.maxCol-r.minCol > boundingBoxSlack)
}

// PacingEngine wraps repeated Terminal.Write calls from a PTY read loop with a
// self-tuning per-pass byte budget and a bounding-box invalidation accumulator. It
// installs a Middleware across the mutating handlers to track touched cells and
// coalesces them into batched, deduplicated ChangeProvider notifications instead of
// firing one per handler call.
type PacingEngine struct {
	mu sync.Mutex

	term   *Terminal
	change ChangeProvider

	rect       invalidRect
	lastFlush  time.Time
	lastPass   time.Duration
	byteBudget int
}

// NewPacingEngine creates a pacing engine driving t. change may be nil, in which
// case notifications are discarded (NoopChange).
func NewPacingEngine(t *Terminal, change ChangeProvider) *PacingEngine {
	if change == nil {
		change = NoopChange{}
	}

	e := &PacingEngine{
		term:       t,
		change:     change,
		byteBudget: defaultByteBudget,
		lastFlush:  time.Now(),
	}

	mw := &Middleware{
		Input: func(r rune, next func(rune)) {
			next(r)
			row, col := t.CursorPos()
			e.markDirty(row, col)
		},
		Goto: func(row, col int, next func(int, int)) {
			next(row, col)
			e.markDirty(row, col)
			e.change.OnCursorMoved()
		},
		CarriageReturn: func(next func()) {
			next()
			row, col := t.CursorPos()
			e.markDirty(row, col)
			e.change.OnCursorMoved()
		},
		LineFeed: func(next func()) {
			next()
			row, col := t.CursorPos()
			e.markDirty(row, col)
			e.change.OnCursorMoved()
		},
		ClearScreen: func(mode ansicode.ClearMode, next func(ansicode.ClearMode)) {
			next(mode)
			e.markFull()
		},
		ClearLine: func(mode ansicode.LineClearMode, next func(ansicode.LineClearMode)) {
			row, _ := t.CursorPos()
			next(mode)
			e.markDirty(row, 0)
			e.markDirty(row, t.Cols()-1)
		},
	}

	if existing := t.Middleware(); existing != nil {
		existing.Merge(mw)
	} else {
		t.SetMiddleware(mw)
	}

	return e
}

func (e *PacingEngine) markDirty(row, col int) {
	e.mu.Lock()
	e.rect.touch(row, col)
	shouldFlush := e.rect.exceedsSlack()
	e.mu.Unlock()

	if shouldFlush {
		e.Flush()
	}
}

func (e *PacingEngine) markFull() {
	e.mu.Lock()
	e.rect.touch(0, 0)
	e.rect.touch(e.term.Rows()-1, e.term.Cols()-1)
	e.mu.Unlock()
	e.Flush()
}

// Pump feeds data to the underlying terminal, clipped to the current per-pass byte
// budget, then re-tunes the budget from this pass's measured duration and attempts
// a flush. The return value mirrors Terminal.Write's contract for the bytes actually
// submitted (bytes beyond the budget are left for the caller to resubmit).
func (e *PacingEngine) Pump(data []byte) (int, error) {
	start := time.Now()

	budget := e.currentBudget()
	chunk := data
	if budget > 0 && len(chunk) > budget {
		chunk = chunk[:budget]
	}

	n, err := e.term.Write(chunk)

	e.mu.Lock()
	e.lastPass = time.Since(start)
	e.retuneBudget()
	e.mu.Unlock()

	e.ShouldFlush()
	return n, err
}

func (e *PacingEngine) currentBudget() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.byteBudget
}

func (e *PacingEngine) retuneBudget() {
	if e.lastPass <= 0 {
		return
	}

	ratio := float64(targetPassDuration) / float64(e.lastPass)
	budget := int(float64(e.byteBudget) * ratio)
	if budget < minByteBudget {
		budget = minByteBudget
	}
	if budget > maxByteBudget {
		budget = maxByteBudget
	}
	e.byteBudget = budget
}

// ShouldFlush flushes the pending invalidation once the display-timeout floor has
// elapsed since the last flush, and reports whether it did. Call this after every
// Pump (Pump already does so); it is also safe to call from the host's own redraw
// pump if Pump is bypassed.
func (e *PacingEngine) ShouldFlush() bool {
	e.mu.Lock()
	dirty := e.rect.dirty
	elapsed := time.Since(e.lastFlush)
	e.mu.Unlock()

	if !dirty || elapsed < minDisplayInterval {
		return false
	}

	e.Flush()
	return true
}

// ForceFlushIfStale flushes regardless of the display-interval floor once more than
// maxUpdateInterval has elapsed since the last flush and a change is pending. A host
// running a ticker at maxUpdateInterval can call this to guarantee redraws keep pace
// with sustained output even if ShouldFlush's floor keeps deferring them.
func (e *PacingEngine) ForceFlushIfStale() {
	e.mu.Lock()
	stale := e.rect.dirty && time.Since(e.lastFlush) >= maxUpdateInterval
	e.mu.Unlock()

	if stale {
		e.Flush()
	}
}

// Flush notifies the ChangeProvider of accumulated content changes, if any, and
// resets the bounding box.
func (e *PacingEngine) Flush() {
	e.mu.Lock()
	had := e.rect.dirty
	e.rect.reset()
	e.lastFlush = time.Now()
	e.mu.Unlock()

	if had {
		e.change.OnContentsChanged()
	}
}
