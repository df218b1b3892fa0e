// Package canvas wires the item store, history engine, and downstream sync
// into the single surface UI code calls. Local mutations apply to the store
// first, snapshot into history, and only then fan out, so the canvas is
// optimistic-first: state is visible locally before any network round trip.
package canvas

import (
	"moodboard/server/internal/board"
	"moodboard/server/internal/history"
)

// Sender is the outbound sync surface. The collaborative client implements
// it; single-owner boards can leave it nil.
type Sender interface {
	SendAddItem(board.Item)
	SendUpdateItem(board.Item)
	SendDeleteItem(itemID string)
	SendUpdateBackground(board.BackgroundPatch)
	SendSyncCanvas(items []board.Item, bg board.Background)
}

// Session is the canvas engine facade. Ownership is an externally supplied
// gate: a read-only session ignores every mutating call.
type Session struct {
	store   *board.Store
	history *history.Engine
	sender  Sender
	notify  func()
	owner   bool
}

// NewSession builds a session. notify, when non-nil, is invoked after every
// meaningful state change; the persistence reconciler uses it to arm its
// debounce timer.
func NewSession(store *board.Store, hist *history.Engine, sender Sender, notify func(), owner bool) *Session {
	return &Session{
		store:   store,
		history: hist,
		sender:  sender,
		notify:  notify,
		owner:   owner,
	}
}

// Store exposes the underlying item store for read-only signals.
func (s *Session) Store() *board.Store { return s.store }

// History exposes the underlying history engine for read-only signals.
func (s *Session) History() *history.Engine { return s.history }

// LoadInitial seeds the canvas from persisted or room state, snapshots it,
// and marks the initial-load boundary so undo cannot rewind past it. The
// load itself never fans out and never counts as a user edit.
func (s *Session) LoadInitial(items []board.Item, bg board.Background) {
	s.store.ReplaceAll(items)
	s.store.SetBackground(bg)
	s.history.SaveSnapshot(s.store.Items(), bg)
	s.history.MarkInitialLoad()
}

// AddItem places an item, snapshots, and broadcasts it.
func (s *Session) AddItem(it board.Item) {
	if !s.owner {
		return
	}
	s.store.AddItem(it)
	s.snapshot()
	if s.sender != nil {
		s.sender.SendAddItem(it)
	}
}

// UpdateItem patches an item, snapshots, and broadcasts the updated item.
// Unknown ids fall through as a no-op without fanning out.
func (s *Session) UpdateItem(id string, patch board.ItemPatch) {
	if !s.owner {
		return
	}
	s.store.UpdateItem(id, patch)
	updated, ok := s.store.Item(id)
	if !ok {
		return
	}
	s.snapshot()
	if s.sender != nil {
		s.sender.SendUpdateItem(updated)
	}
}

// DeleteItem removes an item, snapshots, and broadcasts the deletion.
func (s *Session) DeleteItem(id string) {
	if !s.owner {
		return
	}
	if !s.store.DeleteItem(id) {
		return
	}
	s.snapshot()
	if s.sender != nil {
		s.sender.SendDeleteItem(id)
	}
}

// BringToFront raises an item to a fresh top zIndex and broadcasts the
// reorder.
func (s *Session) BringToFront(id string) {
	if !s.owner {
		return
	}
	if _, ok := s.store.BringToFront(id); !ok {
		return
	}
	it, ok := s.store.Item(id)
	if !ok {
		return
	}
	s.snapshot()
	if s.sender != nil {
		s.sender.SendUpdateItem(it)
	}
}

// UpdateBackground merges a background patch, snapshots, and broadcasts only
// the present fields.
func (s *Session) UpdateBackground(patch board.BackgroundPatch) {
	if !s.owner || patch.IsZero() {
		return
	}
	s.store.UpdateBackground(patch)
	s.snapshot()
	if s.sender != nil {
		s.sender.SendUpdateBackground(patch)
	}
}

// Undo rewinds one history entry, applies it, and schedules a full-state
// downstream sync. No-op at the earliest permitted index.
func (s *Session) Undo() bool {
	if !s.owner {
		return false
	}
	snap, ok := s.history.Undo()
	if !ok {
		return false
	}
	s.apply(snap)
	return true
}

// Redo advances one history entry; symmetric with Undo.
func (s *Session) Redo() bool {
	if !s.owner {
		return false
	}
	snap, ok := s.history.Redo()
	if !ok {
		return false
	}
	s.apply(snap)
	return true
}

func (s *Session) apply(snap history.Snapshot) {
	s.store.ReplaceAll(snap.Items)
	s.store.SetBackground(snap.Background)
	if s.sender != nil {
		s.sender.SendSyncCanvas(snap.Items, snap.Background)
	}
	if s.notify != nil {
		s.notify()
	}
}

func (s *Session) snapshot() {
	s.history.SaveSnapshot(s.store.Items(), s.store.Background())
	if s.notify != nil {
		s.notify()
	}
}
