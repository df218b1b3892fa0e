package placeholder

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"moodboard/server/internal/apperr"
	"moodboard/server/internal/board"
	"moodboard/server/internal/history"
)

type recordingSink struct {
	syncs   int
	deletes []string
}

func (r *recordingSink) SendSyncCanvas(items []board.Item, bg board.Background) { r.syncs++ }
func (r *recordingSink) SendDeleteItem(itemID string)                           { r.deletes = append(r.deletes, itemID) }

func newFixture() (*Tracker, *board.Store, *history.Engine, *recordingSink) {
	store := board.NewStore()
	hist := history.New(0)
	sink := &recordingSink{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(store, hist, sink, logger), store, hist, sink
}

func TestBeginInsertsLoadingItem(t *testing.T) {
	tr, store, hist, _ := newFixture()

	it, err := tr.Begin("req-1", board.ItemGif, board.Position{X: 10, Y: 20}, 5)
	if err != nil {
		t.Fatalf("unexpected begin error: %v", err)
	}
	if !it.IsLoading || it.AIRequestID != "req-1" {
		t.Fatalf("expected loading placeholder, got %+v", it)
	}
	if it.Data.ImageURL != "req-1" {
		t.Fatalf("expected correlation id in image slot, got %q", it.Data.ImageURL)
	}
	if store.Len() != 1 {
		t.Fatalf("expected placeholder in store, got %d items", store.Len())
	}
	if hist.Len() != 0 {
		t.Fatalf("expected no history entry for a placeholder, got %d", hist.Len())
	}
	if tr.PendingCount() != 1 {
		t.Fatalf("expected one pending placeholder, got %d", tr.PendingCount())
	}
}

func TestBeginRejectsDuplicateCorrelationID(t *testing.T) {
	tr, store, _, _ := newFixture()

	if _, err := tr.Begin("req-1", board.ItemGif, board.Position{}, 1); err != nil {
		t.Fatalf("unexpected begin error: %v", err)
	}
	_, err := tr.Begin("req-1", board.ItemGif, board.Position{}, 2)
	if !errors.Is(err, apperr.ErrDuplicate) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
	if store.Len() != 1 {
		t.Fatalf("expected single placeholder, got %d items", store.Len())
	}
}

func TestResolveFinalizesItemExactlyOnce(t *testing.T) {
	tr, store, hist, sink := newFixture()

	placed, _ := tr.Begin("req-1", board.ItemGif, board.Position{X: 1}, 3)
	if err := tr.Resolve("req-1", "http://cdn/final.gif"); err != nil {
		t.Fatalf("unexpected resolve error: %v", err)
	}

	got, ok := store.Item(placed.ID)
	if !ok {
		t.Fatalf("expected resolved item to remain in store")
	}
	if got.IsLoading || got.AIRequestID != "" {
		t.Fatalf("expected loading flags cleared, got %+v", got)
	}
	if got.Data.ImageURL != "http://cdn/final.gif" {
		t.Fatalf("expected final url, got %q", got.Data.ImageURL)
	}
	if hist.Len() != 1 {
		t.Fatalf("expected exactly one history entry, got %d", hist.Len())
	}
	if sink.syncs != 1 {
		t.Fatalf("expected one canvas broadcast, got %d", sink.syncs)
	}
	if tr.PendingCount() != 0 {
		t.Fatalf("expected pending map drained, got %d", tr.PendingCount())
	}

	if err := tr.Resolve("req-1", "http://cdn/again.gif"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected second resolve rejected, got %v", err)
	}
}

func TestFailRemovesPlaceholderAndRestoresList(t *testing.T) {
	tr, store, hist, sink := newFixture()

	store.AddItem(board.Item{ID: "keep", Type: board.ItemNote, Data: board.ItemData{Content: "hi"}})
	placed, _ := tr.Begin("req-1", board.ItemGif, board.Position{}, 1)

	tr.Fail("req-1", errors.New("model unavailable"))

	if _, ok := store.Item(placed.ID); ok {
		t.Fatalf("expected placeholder removed on failure")
	}
	if store.Len() != 1 {
		t.Fatalf("expected prior items untouched, got %d", store.Len())
	}
	if len(sink.deletes) != 1 || sink.deletes[0] != placed.ID {
		t.Fatalf("expected one deletion broadcast for %s, got %v", placed.ID, sink.deletes)
	}
	if hist.Len() != 1 {
		t.Fatalf("expected one history entry after failure, got %d", hist.Len())
	}

	// Late failure for an unknown id is silent.
	tr.Fail("req-unknown", errors.New("late"))
	if len(sink.deletes) != 1 {
		t.Fatalf("expected no extra deletion broadcast, got %v", sink.deletes)
	}
}

func TestResolveAfterManualDeleteIsNoOp(t *testing.T) {
	tr, store, hist, sink := newFixture()

	placed, _ := tr.Begin("req-1", board.ItemGif, board.Position{}, 1)
	store.DeleteItem(placed.ID)

	if err := tr.Resolve("req-1", "http://cdn/final.gif"); err != nil {
		t.Fatalf("expected quiet no-op, got %v", err)
	}
	if hist.Len() != 0 || sink.syncs != 0 {
		t.Fatalf("expected no snapshot or broadcast, got hist=%d syncs=%d", hist.Len(), sink.syncs)
	}
}
