package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"moodboard/server/internal/apperr"
	"moodboard/server/internal/board"
	"moodboard/server/internal/canvas"
	"moodboard/server/internal/config"
	"moodboard/server/internal/history"
	"moodboard/server/internal/persist"
	"moodboard/server/internal/reconcile"
	"moodboard/server/internal/syncclient"
)

// AgentOptions parameterize a headless room replica.
type AgentOptions struct {
	WSURL    string
	RoomID   string
	Username string
	DocID    string
}

// RunAgent joins a room as a headless participant and mirrors the live canvas
// into the local document store: the room's state flows through the sync
// client into the board store, and the reconciler persists it incrementally
// under the autosave debounce. Blocks until the context is cancelled or the
// session degrades.
func RunAgent(ctx context.Context, cfg *config.Config, opts AgentOptions) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if opts.RoomID == "" || opts.WSURL == "" {
		return fmt.Errorf("room id and websocket url are required")
	}
	if opts.DocID == "" {
		opts.DocID = opts.RoomID
	}

	logger := newLogger(cfg)

	db, err := persist.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init persistence: %w", err)
	}
	defer db.Close()

	doc, err := db.FetchDocument(opts.DocID)
	if errors.Is(err, apperr.ErrNotFound) {
		doc = persist.Document{ID: opts.DocID}
		if err := db.CreateDocument(doc); err != nil {
			return fmt.Errorf("create document: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("load document: %w", err)
	}

	store := board.NewStore()
	hist := history.New(cfg.History.MaxEntries)

	client := syncclient.New(syncclient.Config{
		URL:           opts.WSURL,
		RoomID:        opts.RoomID,
		Username:      opts.Username,
		ReconnectBase: cfg.Sync.ReconnectBase,
		ReconnectCap:  cfg.Sync.ReconnectCap,
		MaxAttempts:   cfg.Sync.MaxAttempts,
		Logger:        logger,
	}, store)
	defer client.Close()

	rec := reconcile.New(opts.DocID, store, db, nil, cfg.Autosave.Debounce, logger)
	defer rec.Close()

	sess := canvas.NewSession(store, hist, client, rec.Notify, true)
	sess.LoadInitial(doc.Items, doc.Settings)
	rec.MarkLoaded()

	logger.Info("joining room",
		slog.String("room", opts.RoomID),
		slog.String("doc", opts.DocID),
		slog.String("url", opts.WSURL))
	client.Connect()

	g, gCtx := errgroup.WithContext(ctx)

	// Remote events mutate the store directly, so they never arm the
	// reconciler's debounce; a periodic flush picks them up instead.
	g.Go(func() error {
		interval := cfg.Autosave.Debounce
		if interval < time.Second {
			interval = time.Second
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-gCtx.Done():
				return nil
			case <-ticker.C:
				rec.Flush()
				if err := client.Err(); err != nil {
					return err
				}
			}
		}
	})

	g.Go(func() error {
		<-gCtx.Done()
		client.Close()
		return nil
	})

	err = g.Wait()

	// Final write-back so nothing received since the last tick is lost.
	rec.Flush()
	if flushErr := rec.LastError(); flushErr != nil {
		logger.Error("final write-back failed", slog.String("error", flushErr.Error()))
	}
	return err
}
