package board

import "sync"

// ItemPatch carries the mutable fields of an item update. Nil fields are
// left untouched.
type ItemPatch struct {
	Position    *Position
	ZIndex      *int64
	Rotation    *float64
	Data        *ItemData
	IsLoading   *bool
	AIRequestID *string
}

// Store owns the live item list, the background settings, and the
// highest-seen stacking order. All mutators are total over the current list:
// an unknown id is a no-op, never an error. Safe for concurrent use.
type Store struct {
	mu         sync.Mutex
	items      []Item
	background Background
	highestZ   int64
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{items: make([]Item, 0)}
}

// AddItem appends an item. If an item with the same id already exists it is
// replaced in place, preserving the unique-id invariant. The z watermark is
// raised when the incoming item sits above it.
func (s *Store) AddItem(it Item) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if it.ZIndex > s.highestZ {
		s.highestZ = it.ZIndex
	}
	for i := range s.items {
		if s.items[i].ID == it.ID {
			s.items[i] = it.Clone()
			return
		}
	}
	s.items = append(s.items, it.Clone())
}

// UpdateItem applies a partial patch to the item with the given id. Unknown
// ids are ignored.
func (s *Store) UpdateItem(id string, patch ItemPatch) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		if s.items[i].ID != id {
			continue
		}
		if patch.Position != nil {
			s.items[i].Position = *patch.Position
		}
		if patch.ZIndex != nil {
			s.items[i].ZIndex = *patch.ZIndex
			if *patch.ZIndex > s.highestZ {
				s.highestZ = *patch.ZIndex
			}
		}
		if patch.Rotation != nil {
			s.items[i].Rotation = *patch.Rotation
		}
		if patch.Data != nil {
			data := *patch.Data
			if len(data.Points) > 0 {
				data.Points = append([]Position(nil), data.Points...)
			}
			s.items[i].Data = data
		}
		if patch.IsLoading != nil {
			s.items[i].IsLoading = *patch.IsLoading
		}
		if patch.AIRequestID != nil {
			s.items[i].AIRequestID = *patch.AIRequestID
		}
		return
	}
}

// DeleteItem removes the item with the given id. Unknown ids are ignored.
// It reports whether the list actually changed.
func (s *Store) DeleteItem(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		if s.items[i].ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return true
		}
	}
	return false
}

// BringToFront assigns the item a fresh maximum zIndex. Re-issuing the call
// for an item that is already on top is a no-op, so the watermark never
// advances without an actual reorder. Returns the item's resulting zIndex
// and whether the id was known.
func (s *Store) BringToFront(id string) (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		if s.items[i].ID != id {
			continue
		}
		if s.items[i].ZIndex == s.highestZ && s.onTopLocked(i) {
			return s.items[i].ZIndex, true
		}
		s.highestZ++
		s.items[i].ZIndex = s.highestZ
		return s.highestZ, true
	}
	return 0, false
}

// onTopLocked reports whether no other item shares or exceeds the zIndex of
// the item at index i.
func (s *Store) onTopLocked(i int) bool {
	for j := range s.items {
		if j != i && s.items[j].ZIndex >= s.items[i].ZIndex {
			return false
		}
	}
	return true
}

// ReplaceAll swaps in a full item list, used for remote full-canvas syncs.
// The watermark is raised to cover the incoming items but never lowered, so
// local BringToFront calls stay strictly increasing relative to remote state.
func (s *Store) ReplaceAll(items []Item) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]Item, 0, len(items))
	for _, it := range items {
		if it.ZIndex > s.highestZ {
			s.highestZ = it.ZIndex
		}
		next = append(next, it.Clone())
	}
	s.items = next
}

// RaiseZWatermark lifts the highest-seen zIndex to at least z.
func (s *Store) RaiseZWatermark(z int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if z > s.highestZ {
		s.highestZ = z
	}
}

// HighestZIndex returns the current watermark.
func (s *Store) HighestZIndex() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.highestZ
}

// Items returns a deep copy of the current item list.
func (s *Store) Items() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]Item, 0, len(s.items))
	for _, it := range s.items {
		items = append(items, it.Clone())
	}
	return items
}

// Len returns the number of live items.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Item returns a copy of the item with the given id.
func (s *Store) Item(id string) (Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range s.items {
		if it.ID == id {
			return it.Clone(), true
		}
	}
	return Item{}, false
}

// Background returns the current canvas settings.
func (s *Store) Background() Background {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.background
}

// SetBackground replaces the canvas settings wholesale.
func (s *Store) SetBackground(bg Background) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.background = bg
}

// UpdateBackground merges only the fields present in the patch.
func (s *Store) UpdateBackground(patch BackgroundPatch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.background = patch.Apply(s.background)
}
