// Package reconcile implements the single-owner persistence path: a
// debounced pass that diffs the live canvas against the last confirmed
// persisted baseline and issues minimal incremental writes, falling back to
// one full overwrite when the incremental path fails.
package reconcile

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"moodboard/server/internal/board"
	"moodboard/server/internal/persist"
)

// DefaultDebounce is the quiet period after the last qualifying change
// before a write-back fires.
const DefaultDebounce = time.Second

// API is the persistence surface the reconciler drives. *persist.DB
// satisfies it.
type API interface {
	PatchItems(docID string, upserts []board.Item, deletedIDs []string) error
	PatchSettings(docID string, settings board.Background) error
	Overwrite(doc persist.Document) error
}

// Uploader pushes a local blob or inline payload to the server and returns
// the hosted URL.
type Uploader interface {
	Upload(ref board.MediaRef) (string, error)
}

// Reconciler schedules and executes write-backs for one document.
type Reconciler struct {
	docID    string
	store    *board.Store
	api      API
	uploader Uploader
	logger   *slog.Logger
	debounce time.Duration

	mu       sync.Mutex
	timer    *time.Timer
	loaded   bool
	closed   bool
	baseline baseline
	lastErr  error
}

type baseline struct {
	items    []board.Item
	settings board.Background
}

// New constructs a reconciler for the given document. The uploader may be
// nil when the canvas never produces local blobs.
func New(docID string, store *board.Store, api API, uploader Uploader, debounce time.Duration, logger *slog.Logger) *Reconciler {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		docID:    docID,
		store:    store,
		api:      api,
		uploader: uploader,
		logger:   logger,
		debounce: debounce,
	}
}

// MarkLoaded records the freshly loaded state as the confirmed baseline and
// opens the gate for write-backs. Until this is called every Notify is
// ignored, so the initial load can never be mistaken for a user edit.
func (r *Reconciler) MarkLoaded() {
	items := board.FilterPlaceholders(r.store.Items())
	settings := r.store.Background()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.baseline = baseline{items: items, settings: settings}
	r.loaded = true
}

// Notify arms (or re-arms) the debounce timer after a qualifying state
// change. A pending timer is cleared and replaced, so rapid edits coalesce
// into one write.
func (r *Reconciler) Notify() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.loaded || r.closed {
		return
	}
	if r.timer != nil {
		r.timer.Stop()
	}
	r.timer = time.AfterFunc(r.debounce, r.Flush)
}

// Close cancels any pending write-back.
func (r *Reconciler) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

// LastError returns the most recent surfaced persistence failure, nil after
// a successful pass.
func (r *Reconciler) LastError() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastErr
}

// Flush runs one reconcile pass immediately: upload pending media, diff
// against the baseline, write incrementally, fall back to a full overwrite
// once on failure. In-memory state is never rolled back; a failed pass only
// leaves the baseline where it was.
func (r *Reconciler) Flush() {
	r.mu.Lock()
	if !r.loaded || r.closed {
		r.mu.Unlock()
		return
	}
	base := r.baseline
	r.mu.Unlock()

	r.uploadPendingMedia()

	items := board.FilterPlaceholders(r.store.Items())
	settings := r.store.Background()

	upserts, deleted := diffItems(base.items, items)
	settingsChanged := settings != base.settings

	if len(upserts) == 0 && len(deleted) == 0 && !settingsChanged {
		return
	}

	err := r.writeIncremental(upserts, deleted, settings, settingsChanged)
	if err != nil {
		r.logger.Warn("incremental write failed, falling back to full overwrite",
			slog.String("doc", r.docID), slog.String("error", err.Error()))
		err = r.api.Overwrite(persist.Document{ID: r.docID, Items: items, Settings: settings})
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.lastErr = fmt.Errorf("persist document %s: %w", r.docID, err)
		r.logger.Error("full overwrite failed, keeping local state",
			slog.String("doc", r.docID), slog.String("error", err.Error()))
		return
	}
	r.lastErr = nil
	r.baseline = baseline{items: items, settings: settings}
}

func (r *Reconciler) writeIncremental(upserts []board.Item, deleted []string, settings board.Background, settingsChanged bool) error {
	if len(upserts) > 0 || len(deleted) > 0 {
		if err := r.api.PatchItems(r.docID, upserts, deleted); err != nil {
			return err
		}
	}
	if settingsChanged {
		if err := r.api.PatchSettings(r.docID, settings); err != nil {
			return err
		}
	}
	return nil
}

// uploadPendingMedia pushes any local-blob or base64 payload to the server
// and substitutes the returned URL into the store. An upload failure keeps
// the local reference and logs; the user is never blocked on it.
func (r *Reconciler) uploadPendingMedia() {
	if r.uploader == nil {
		return
	}
	for _, it := range r.store.Items() {
		ref, ok := board.MediaRefOf(it)
		if !ok || !ref.NeedsUpload() {
			continue
		}
		url, err := r.uploader.Upload(ref)
		if err != nil {
			r.logger.Warn("media upload failed, keeping local reference",
				slog.String("item", it.ID), slog.String("error", err.Error()))
			continue
		}
		resolved := it
		board.SetMediaURL(&resolved, url)
		data := resolved.Data
		r.store.UpdateItem(it.ID, board.ItemPatch{Data: &data})
	}
}

// diffItems splits the current list against the baseline into upserts (new
// or changed items) and deleted ids.
func diffItems(base, current []board.Item) (upserts []board.Item, deleted []string) {
	prev := make(map[string]board.Item, len(base))
	for _, it := range base {
		prev[it.ID] = it
	}
	seen := make(map[string]struct{}, len(current))
	for _, it := range current {
		seen[it.ID] = struct{}{}
		old, ok := prev[it.ID]
		if !ok || !board.ItemEqual(old, it) {
			upserts = append(upserts, it)
		}
	}
	for _, it := range base {
		if _, ok := seen[it.ID]; !ok {
			deleted = append(deleted, it.ID)
		}
	}
	return upserts, deleted
}
