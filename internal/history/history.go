// Package history implements the linear undo/redo engine. It keeps an
// append-only, truncatable sequence of full-canvas snapshots with a cursor
// and de-duplicates no-op saves so render-driven callers cannot flood the
// stack with identical entries.
package history

import (
	"sync"

	"moodboard/server/internal/board"
)

// DefaultMaxEntries bounds the history ring so a long session cannot grow
// the stack without limit. Oldest entries are evicted first.
const DefaultMaxEntries = 100

// Snapshot is one immutable history entry: the full item list plus the
// background settings, so undo/redo is atomic across both.
type Snapshot struct {
	Items      []board.Item
	Background board.Background
}

// Clone deep-copies a snapshot so callers can hand it to a store without
// aliasing the ring buffer.
func (s Snapshot) Clone() Snapshot {
	items := make([]board.Item, 0, len(s.Items))
	for _, it := range s.Items {
		items = append(items, it.Clone())
	}
	return Snapshot{Items: items, Background: s.Background}
}

// Engine maintains the snapshot sequence and cursor. Safe for concurrent
// use.
type Engine struct {
	mu         sync.Mutex
	entries    []Snapshot
	cursor     int
	lowerBound int
	maxEntries int
}

// New constructs an engine with the given ring capacity; zero or negative
// falls back to DefaultMaxEntries.
func New(maxEntries int) *Engine {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Engine{
		entries:    make([]Snapshot, 0),
		cursor:     -1,
		maxEntries: maxEntries,
	}
}

// SaveSnapshot records the current canvas state. Placeholder items are
// filtered out before comparison and storage. When the filtered state equals
// the entry at the cursor the call is a no-op. A save while the cursor sits
// behind the tail discards the redo branch first. Returns whether an entry
// was pushed.
func (e *Engine) SaveSnapshot(items []board.Item, bg board.Background) bool {
	filtered := board.FilterPlaceholders(items)

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cursor >= 0 && e.cursor < len(e.entries) {
		current := e.entries[e.cursor]
		if current.Background == bg && board.ItemsEqual(current.Items, filtered) {
			return false
		}
	}

	if e.cursor < len(e.entries)-1 {
		e.entries = e.entries[:e.cursor+1]
	}

	e.entries = append(e.entries, Snapshot{Items: filtered, Background: bg}.Clone())
	e.cursor = len(e.entries) - 1

	if len(e.entries) > e.maxEntries {
		overflow := len(e.entries) - e.maxEntries
		copy(e.entries, e.entries[overflow:])
		e.entries = e.entries[:len(e.entries)-overflow]
		e.cursor -= overflow
		if e.lowerBound > 0 {
			e.lowerBound -= overflow
			if e.lowerBound < 0 {
				e.lowerBound = 0
			}
		}
	}
	return true
}

// MarkInitialLoad establishes the snapshot at the cursor as the floor of the
// undo range: undo may rewind to the loaded state but never past it into the
// pre-load canvas.
func (e *Engine) MarkInitialLoad() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cursor > 0 {
		e.lowerBound = e.cursor
	}
}

// Undo steps the cursor back and returns the snapshot to apply. The second
// result is false when the cursor already sits at the earliest permitted
// index.
func (e *Engine) Undo() (Snapshot, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cursor-1 < e.lowerBound {
		return Snapshot{}, false
	}
	e.cursor--
	return e.entries[e.cursor].Clone(), true
}

// Redo steps the cursor forward and returns the snapshot to apply, or false
// at the tail.
func (e *Engine) Redo() (Snapshot, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cursor >= len(e.entries)-1 {
		return Snapshot{}, false
	}
	e.cursor++
	return e.entries[e.cursor].Clone(), true
}

// CanUndo reports whether a call to Undo would succeed.
func (e *Engine) CanUndo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cursor-1 >= e.lowerBound
}

// CanRedo reports whether a call to Redo would succeed.
func (e *Engine) CanRedo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cursor < len(e.entries)-1
}

// Len returns the number of stored snapshots.
func (e *Engine) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.entries)
}

// Cursor returns the current history index, -1 when empty.
func (e *Engine) Cursor() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cursor
}
