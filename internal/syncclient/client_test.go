package syncclient

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"moodboard/server/internal/apperr"
	"moodboard/server/internal/board"
	"moodboard/server/internal/proto"
)

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newClient(store *board.Store) *Client {
	return New(Config{
		URL:    "ws://127.0.0.1:1/ws",
		RoomID: "room-1",
		Logger: quiet(),
	}, store)
}

func TestBackoffDoublesUpToCap(t *testing.T) {
	c := New(Config{
		ReconnectBase: time.Second,
		ReconnectCap:  30 * time.Second,
		Logger:        quiet(),
	}, board.NewStore())

	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{0, time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},
		{10, 30 * time.Second},
	}
	for _, tc := range cases {
		if got := c.Backoff(tc.attempt); got != tc.want {
			t.Fatalf("Backoff(%d): expected %s, got %s", tc.attempt, tc.want, got)
		}
	}
}

func TestConnectDegradesAfterRetryCeiling(t *testing.T) {
	c := New(Config{
		URL:           "ws://127.0.0.1:1/ws",
		RoomID:        "room-1",
		ReconnectBase: time.Millisecond,
		ReconnectCap:  2 * time.Millisecond,
		MaxAttempts:   3,
		Logger:        quiet(),
	}, board.NewStore())
	defer c.Close()

	c.Connect()

	deadline := time.After(5 * time.Second)
	for !c.Degraded() {
		select {
		case <-deadline:
			status, text := c.Status()
			t.Fatalf("expected degraded status, still %s (%s) after %d attempts", status, text, c.Attempts())
		case <-time.After(5 * time.Millisecond):
		}
	}

	if c.Attempts() != 3 {
		t.Fatalf("expected 3 exhausted attempts, got %d", c.Attempts())
	}
	status, text := c.Status()
	if status != StatusDegraded || text == "" {
		t.Fatalf("expected degraded status with detail, got %s (%q)", status, text)
	}
	if !errors.Is(c.Err(), apperr.ErrDegraded) {
		t.Fatalf("expected terminal degraded error, got %v", c.Err())
	}
}

func TestRoomStateAdoptedOnlyByFreshCanvas(t *testing.T) {
	store := board.NewStore()
	c := newClient(store)

	remote := []board.Item{{ID: "r1", Type: board.ItemPhoto, ZIndex: 2}}
	bg := board.Background{Color: "#eee"}
	c.applyInbound(proto.RoomState(remote, bg, []proto.User{{ID: "u1"}, {ID: "u2"}}))

	if store.Len() != 1 {
		t.Fatalf("expected fresh canvas to adopt room items, got %d", store.Len())
	}
	if store.Background() != bg {
		t.Fatalf("expected room background adopted, got %+v", store.Background())
	}
	if c.UserCount() != 2 {
		t.Fatalf("expected user count 2, got %d", c.UserCount())
	}

	// A second room-state must not clobber existing local work.
	c.applyInbound(proto.RoomState([]board.Item{{ID: "other", Type: board.ItemNote}}, board.Background{}, []proto.User{{ID: "u1"}}))
	if _, ok := store.Item("r1"); !ok {
		t.Fatalf("expected local items kept over late room-state")
	}
	if c.UserCount() != 1 {
		t.Fatalf("expected user count still tracked, got %d", c.UserCount())
	}
}

func TestPresenceCountNeverBelowOne(t *testing.T) {
	c := newClient(board.NewStore())

	c.applyInbound(proto.UserJoined(proto.User{ID: "u2"}))
	if c.UserCount() != 2 {
		t.Fatalf("expected count 2 after join, got %d", c.UserCount())
	}
	c.applyInbound(proto.UserLeft("u2"))
	c.applyInbound(proto.UserLeft("ghost"))
	if c.UserCount() != 1 {
		t.Fatalf("expected count floored at 1, got %d", c.UserCount())
	}
}

func TestRemoteItemEventsMutateStore(t *testing.T) {
	store := board.NewStore()
	c := newClient(store)

	c.applyInbound(proto.ItemAdded(board.Item{ID: "a", Type: board.ItemNote, ZIndex: 9}))
	if store.Len() != 1 || store.HighestZIndex() != 9 {
		t.Fatalf("expected remote add to lift watermark, got len=%d z=%d", store.Len(), store.HighestZIndex())
	}

	c.applyInbound(proto.ItemUpdated(board.Item{ID: "a", Type: board.ItemNote, ZIndex: 9, Data: board.ItemData{Content: "edited"}}))
	got, _ := store.Item("a")
	if got.Data.Content != "edited" {
		t.Fatalf("expected remote update applied, got %q", got.Data.Content)
	}

	z, _ := store.BringToFront("a")
	if z <= 9 {
		t.Fatalf("expected local bring-to-front above remote z, got %d", z)
	}

	c.applyInbound(proto.ItemDeleted("a"))
	if store.Len() != 0 {
		t.Fatalf("expected remote delete applied, got %d items", store.Len())
	}
}

func TestCanvasSyncedReplacesWholeBoard(t *testing.T) {
	store := board.NewStore()
	store.AddItem(board.Item{ID: "old", Type: board.ItemNote, ZIndex: 4})
	c := newClient(store)

	bg := board.Background{Image: "http://x/bg.png"}
	c.applyInbound(proto.CanvasSynced([]board.Item{{ID: "new", Type: board.ItemPhoto, ZIndex: 1}}, bg))

	if _, ok := store.Item("old"); ok {
		t.Fatalf("expected full replace to drop old items")
	}
	if store.Background() != bg {
		t.Fatalf("expected background replaced, got %+v", store.Background())
	}
	if store.HighestZIndex() < 4 {
		t.Fatalf("expected watermark never lowered, got %d", store.HighestZIndex())
	}
}

func TestBackgroundUpdatedMergesPatch(t *testing.T) {
	store := board.NewStore()
	store.SetBackground(board.Background{Color: "#fff", ShowGrid: true})
	c := newClient(store)

	img := "http://x/bg.png"
	c.applyInbound(proto.BackgroundUpdated(board.BackgroundPatch{Image: &img}))

	bg := store.Background()
	if bg.Image != img || bg.Color != "#fff" || !bg.ShowGrid {
		t.Fatalf("expected patch merged over existing background, got %+v", bg)
	}
}

func TestSendWithoutConnectionIsDropped(t *testing.T) {
	c := newClient(board.NewStore())
	// Must not panic or block when offline.
	c.SendAddItem(board.Item{ID: "a", Type: board.ItemNote})
	c.SendDeleteItem("a")
	c.SendSyncCanvas(nil, board.Background{})
}
