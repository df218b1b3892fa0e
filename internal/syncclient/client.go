// Package syncclient implements the collaborative-mode session: a client
// bound to one room that translates local mutations into outbound protocol
// messages, applies inbound messages straight to the item store, and owns
// the reconnection policy for the underlying websocket.
package syncclient

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"moodboard/server/internal/apperr"
	"moodboard/server/internal/board"
	"moodboard/server/internal/proto"
)

// Connection states surfaced to the UI.
const (
	StatusDisconnected = "disconnected"
	StatusConnecting   = "connecting"
	StatusConnected    = "connected"
	StatusDegraded     = "degraded"
)

const (
	defaultReconnectBase = time.Second
	defaultReconnectCap  = 30 * time.Second
	defaultMaxAttempts   = 5
)

// Config holds the session parameters.
type Config struct {
	URL      string
	RoomID   string
	Username string

	// Reconnection policy. Zero values take the defaults: 1s base, 30s
	// cap, 5 attempts.
	ReconnectBase time.Duration
	ReconnectCap  time.Duration
	MaxAttempts   int

	Dialer *websocket.Dialer
	Logger *slog.Logger
}

// Client is the sync session. It must be created with New and started with
// Connect.
type Client struct {
	cfg   Config
	store *board.Store

	mu         sync.Mutex
	conn       *websocket.Conn
	attempts   int
	status     string
	statusText string
	userCount  int
	retryTimer *time.Timer
	closed     bool

	writeMu sync.Mutex

	logger *slog.Logger
}

// New constructs a client bound to a room. Inbound events mutate the given
// store directly.
func New(cfg Config, store *board.Store) *Client {
	if cfg.ReconnectBase <= 0 {
		cfg.ReconnectBase = defaultReconnectBase
	}
	if cfg.ReconnectCap <= 0 {
		cfg.ReconnectCap = defaultReconnectCap
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.Dialer == nil {
		cfg.Dialer = websocket.DefaultDialer
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:       cfg,
		store:     store,
		status:    StatusDisconnected,
		userCount: 1,
		logger:    logger,
	}
}

// Backoff returns the delay scheduled before the retry following the given
// number of consecutive failures: min(base * 2^attempt, cap).
func (c *Client) Backoff(attempt int) time.Duration {
	delay := c.cfg.ReconnectBase << uint(attempt)
	if delay > c.cfg.ReconnectCap || delay <= 0 {
		delay = c.cfg.ReconnectCap
	}
	return delay
}

// Connect dials the room endpoint and starts the read loop. A failed dial
// schedules a retry under the backoff policy; Connect itself never blocks on
// retries.
func (c *Client) Connect() {
	c.mu.Lock()
	if c.closed || c.conn != nil {
		c.mu.Unlock()
		return
	}
	c.status = StatusConnecting
	c.mu.Unlock()

	conn, _, err := c.cfg.Dialer.Dial(c.cfg.URL, nil)
	if err != nil {
		c.logger.Warn("connect failed",
			slog.String("room", c.cfg.RoomID), slog.String("error", err.Error()))
		c.scheduleReconnect()
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		conn.Close()
		return
	}
	c.conn = conn
	// Membership does not survive a reconnect; the attempt counter resets
	// and the join handshake is re-issued on every successful dial.
	c.attempts = 0
	c.status = StatusConnected
	c.statusText = "connected"
	if c.retryTimer != nil {
		c.retryTimer.Stop()
		c.retryTimer = nil
	}
	c.mu.Unlock()

	c.send(proto.ClientMessage{
		Ver:      proto.ProtocolVersion,
		Type:     proto.MsgJoinRoom,
		RoomID:   c.cfg.RoomID,
		Username: c.cfg.Username,
	})

	go c.readLoop(conn)
}

// Close tears the session down: pending reconnect timers are cleared and the
// socket is released.
func (c *Client) Close() {
	c.mu.Lock()
	c.closed = true
	c.status = StatusDisconnected
	if c.retryTimer != nil {
		c.retryTimer.Stop()
		c.retryTimer = nil
	}
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
}

// Status returns the connection state and its human-readable detail.
func (c *Client) Status() (string, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status, c.statusText
}

// UserCount returns the known number of connected room members, never below
// one (the local user).
func (c *Client) UserCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.userCount < 1 {
		return 1
	}
	return c.userCount
}

// Attempts returns the consecutive failed connection attempts.
func (c *Client) Attempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts
}

// Degraded reports whether the retry ceiling was exhausted. The canvas stays
// locally usable; only collaboration is disabled.
func (c *Client) Degraded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status == StatusDegraded
}

// Err returns the session's terminal error: apperr.ErrDegraded once the retry
// ceiling was exhausted, nil while the session can still recover.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status != StatusDegraded {
		return nil
	}
	return fmt.Errorf("room %s: %w", c.cfg.RoomID, apperr.ErrDegraded)
}

// SendAddItem broadcasts a locally placed item. Fire-and-forget: local state
// is already updated and no acknowledgement is awaited.
func (c *Client) SendAddItem(it board.Item) {
	c.send(proto.ClientMessage{Ver: proto.ProtocolVersion, Type: proto.MsgAddItem, RoomID: c.cfg.RoomID, Item: &it})
}

// SendUpdateItem broadcasts a locally mutated item.
func (c *Client) SendUpdateItem(it board.Item) {
	c.send(proto.ClientMessage{Ver: proto.ProtocolVersion, Type: proto.MsgUpdateItem, RoomID: c.cfg.RoomID, Item: &it})
}

// SendDeleteItem broadcasts a local deletion.
func (c *Client) SendDeleteItem(itemID string) {
	c.send(proto.ClientMessage{Ver: proto.ProtocolVersion, Type: proto.MsgDeleteItem, RoomID: c.cfg.RoomID, ItemID: itemID})
}

// SendUpdateBackground broadcasts the changed background fields.
func (c *Client) SendUpdateBackground(patch board.BackgroundPatch) {
	c.send(proto.ClientMessage{Ver: proto.ProtocolVersion, Type: proto.MsgUpdateBackground, RoomID: c.cfg.RoomID, Background: &patch})
}

// SendSyncCanvas broadcasts the full canvas, used after undo/redo and
// placeholder resolution.
func (c *Client) SendSyncCanvas(items []board.Item, bg board.Background) {
	c.send(proto.ClientMessage{Ver: proto.ProtocolVersion, Type: proto.MsgSyncCanvas, RoomID: c.cfg.RoomID, Items: items, Canvas: &bg})
}

// send marshals and writes one frame. Failures are logged and otherwise
// swallowed; the read loop notices a dead connection and drives reconnection.
func (c *Client) send(msg proto.ClientMessage) {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return
	}

	data, err := json.Marshal(msg)
	if err != nil {
		c.logger.Error("failed to marshal outbound message",
			slog.String("type", msg.Type), slog.String("error", err.Error()))
		return
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		c.logger.Warn("failed to send message",
			slog.String("type", msg.Type), slog.String("error", err.Error()))
	}
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			c.handleDisconnect(conn, err)
			return
		}

		var msg proto.ServerMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			c.logger.Warn("discarding malformed server message", slog.String("error", err.Error()))
			continue
		}
		c.applyInbound(msg)
	}
}

// applyInbound routes a server event into the item store. Handlers call the
// store mutators directly and never the outbound wrappers, so a remote event
// can never echo back out of this client.
func (c *Client) applyInbound(msg proto.ServerMessage) {
	switch msg.Type {
	case proto.MsgRoomState:
		c.mu.Lock()
		c.userCount = len(msg.Users)
		if c.userCount < 1 {
			c.userCount = 1
		}
		c.mu.Unlock()
		// A client that already has local work keeps it; only a fresh
		// canvas adopts the room's snapshot.
		if c.store.Len() > 0 {
			return
		}
		c.store.ReplaceAll(msg.Items)
		if msg.Canvas != nil {
			c.store.SetBackground(*msg.Canvas)
		}
	case proto.MsgUserJoined:
		c.mu.Lock()
		c.userCount++
		c.mu.Unlock()
	case proto.MsgUserLeft:
		c.mu.Lock()
		c.userCount--
		if c.userCount < 1 {
			c.userCount = 1
		}
		c.mu.Unlock()
	case proto.MsgItemAdded, proto.MsgItemUpdated:
		if msg.Item == nil {
			return
		}
		// AddItem replaces on id match and lifts the z watermark, so
		// local bring-to-front stays strictly above remote state.
		c.store.AddItem(*msg.Item)
	case proto.MsgItemDeleted:
		if msg.ItemID == "" {
			return
		}
		c.store.DeleteItem(msg.ItemID)
	case proto.MsgBackgroundUpdated:
		if msg.Background == nil {
			return
		}
		c.store.UpdateBackground(*msg.Background)
	case proto.MsgCanvasSynced:
		c.store.ReplaceAll(msg.Items)
		if msg.Canvas != nil {
			c.store.SetBackground(*msg.Canvas)
		}
	default:
		c.logger.Warn("unknown server message type", slog.String("type", msg.Type))
	}
}

func (c *Client) handleDisconnect(conn *websocket.Conn, cause error) {
	conn.Close()

	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	closed := c.closed
	c.mu.Unlock()

	if closed {
		return
	}
	c.logger.Warn("connection lost",
		slog.String("room", c.cfg.RoomID), slog.String("error", cause.Error()))
	c.scheduleReconnect()
}

// scheduleReconnect arms the retry timer under the backoff policy. Past the
// ceiling the session degrades permanently to local-only mode.
func (c *Client) scheduleReconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	if c.attempts >= c.cfg.MaxAttempts {
		c.status = StatusDegraded
		c.statusText = "collaboration unavailable, working locally"
		c.logger.Error("reconnect attempts exhausted",
			slog.String("room", c.cfg.RoomID), slog.Int("attempts", c.attempts))
		return
	}

	delay := c.Backoff(c.attempts)
	c.attempts++
	c.status = StatusDisconnected
	c.statusText = fmt.Sprintf("reconnecting in %s (attempt %d/%d)", delay, c.attempts, c.cfg.MaxAttempts)
	c.logger.Info("scheduling reconnect",
		slog.String("room", c.cfg.RoomID),
		slog.Int("attempt", c.attempts),
		slog.Duration("delay", delay))

	if c.retryTimer != nil {
		c.retryTimer.Stop()
	}
	c.retryTimer = time.AfterFunc(delay, c.Connect)
}
