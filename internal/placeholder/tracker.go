// Package placeholder manages the lifecycle of asynchronously produced
// items, principally AI image generation: a provisional loading item goes in
// immediately, and an out-of-band completion signal later swaps it for the
// finalized item or removes it. Resolutions are reconciled into both the
// item store and the history engine.
package placeholder

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"moodboard/server/internal/apperr"
	"moodboard/server/internal/board"
	"moodboard/server/internal/history"
)

// Result is the typed completion signal delivered by whatever component
// performs the generation call. Err set means the generation failed.
type Result struct {
	RequestID string
	URL       string
	Err       error
}

// Broadcaster receives the downstream notifications a resolution produces.
// In collaborative mode this is the sync client; in single-owner mode the
// persistence reconciler's change notifier.
type Broadcaster interface {
	SendSyncCanvas(items []board.Item, bg board.Background)
	SendDeleteItem(itemID string)
}

// Tracker coordinates pending placeholders. At most one placeholder may be
// live per correlation id; a second Begin with the same id is rejected.
type Tracker struct {
	mu      sync.Mutex
	pending map[string]string // correlation id -> item id

	store   *board.Store
	history *history.Engine
	sink    Broadcaster
	logger  *slog.Logger
}

// New constructs a tracker. The broadcaster may be nil for boards with no
// downstream sync.
func New(store *board.Store, hist *history.Engine, sink Broadcaster, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		pending: make(map[string]string),
		store:   store,
		history: hist,
		sink:    sink,
		logger:  logger,
	}
}

// Begin inserts a provisional loading item keyed by the correlation id. The
// image-URL slot temporarily holds the correlation id itself; it is a lookup
// key, never rendered. The placeholder is not snapshotted into history.
func (t *Tracker) Begin(requestID string, typ board.ItemType, pos board.Position, zIndex int64) (board.Item, error) {
	if requestID == "" {
		return board.Item{}, fmt.Errorf("begin placeholder: empty correlation id")
	}
	if typ == "" {
		typ = board.ItemGif
	}

	t.mu.Lock()
	if _, ok := t.pending[requestID]; ok {
		t.mu.Unlock()
		return board.Item{}, fmt.Errorf("begin placeholder %s: %w", requestID, apperr.ErrDuplicate)
	}
	it := board.Item{
		ID:          board.NewID(),
		Type:        typ,
		Position:    pos,
		ZIndex:      zIndex,
		Data:        board.ItemData{ImageURL: requestID},
		IsLoading:   true,
		AIRequestID: requestID,
	}
	t.pending[requestID] = it.ID
	t.mu.Unlock()

	t.store.AddItem(it)
	return it, nil
}

// Resolve swaps the matching placeholder for its finalized payload, pushes
// exactly one history snapshot of the resolved state, and broadcasts the
// full canvas downstream.
func (t *Tracker) Resolve(requestID, finalURL string) error {
	itemID, ok := t.take(requestID)
	if !ok {
		return fmt.Errorf("resolve placeholder %s: %w", requestID, apperr.ErrNotFound)
	}

	it, ok := t.store.Item(itemID)
	if !ok || !it.IsLoading {
		// Already resolved or removed out from under us; nothing to do.
		return nil
	}

	data := it.Data
	data.ImageURL = finalURL
	loading := false
	cleared := ""
	t.store.UpdateItem(itemID, board.ItemPatch{
		Data:        &data,
		IsLoading:   &loading,
		AIRequestID: &cleared,
	})

	items := t.store.Items()
	bg := t.store.Background()
	t.history.SaveSnapshot(items, bg)
	if t.sink != nil {
		t.sink.SendSyncCanvas(board.FilterPlaceholders(items), bg)
	}
	return nil
}

// Fail removes the matching placeholder outright. A history entry and a
// deletion broadcast are produced only when the item list actually changed;
// a late signal for an already-resolved id is a no-op.
func (t *Tracker) Fail(requestID string, cause error) {
	itemID, ok := t.take(requestID)
	if !ok {
		return
	}

	it, found := t.store.Item(itemID)
	if !found || !it.IsLoading {
		return
	}

	if t.store.DeleteItem(itemID) {
		t.history.SaveSnapshot(t.store.Items(), t.store.Background())
		if t.sink != nil {
			t.sink.SendDeleteItem(itemID)
		}
	}
	// Generation failures are transient notifications, never a hard error.
	t.logger.Warn("image generation failed",
		slog.String("requestId", requestID), slog.Any("error", cause))
}

// Run consumes completion signals until the context is cancelled or the
// channel closes.
func (t *Tracker) Run(ctx context.Context, results <-chan Result) {
	for {
		select {
		case <-ctx.Done():
			return
		case res, ok := <-results:
			if !ok {
				return
			}
			if res.Err != nil {
				t.Fail(res.RequestID, res.Err)
				continue
			}
			if err := t.Resolve(res.RequestID, res.URL); err != nil {
				t.logger.Warn("placeholder resolution dropped",
					slog.String("requestId", res.RequestID), slog.String("error", err.Error()))
			}
		}
	}
}

// PendingCount reports the number of unresolved placeholders.
func (t *Tracker) PendingCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

func (t *Tracker) take(requestID string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	itemID, ok := t.pending[requestID]
	if ok {
		delete(t.pending, requestID)
	}
	return itemID, ok
}
