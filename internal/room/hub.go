// Package room implements the server-side hub: one board store per room,
// websocket subscribers, and fan-out of canvas mutations to every other
// member of the room.
package room

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"moodboard/server/internal/board"
	"moodboard/server/internal/proto"
)

const writeWait = 10 * time.Second

// Subscriber serializes websocket writes for one connected member.
type Subscriber struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// WriteMessage writes a frame under the subscriber's write lock with a
// bounded deadline.
func (s *Subscriber) WriteMessage(messageType int, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(messageType, data)
}

// Close closes the underlying connection.
func (s *Subscriber) Close() error {
	return s.conn.Close()
}

type member struct {
	username string
	sub      *Subscriber
}

type roomState struct {
	store   *board.Store
	members map[string]*member
}

// Hub owns all live rooms. Rooms are created on first join and pruned when
// the last member leaves.
type Hub struct {
	mu     sync.Mutex
	rooms  map[string]*roomState
	logger *slog.Logger
}

// NewHub constructs an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		rooms:  make(map[string]*roomState),
		logger: logger,
	}
}

// Join registers a member in a room and returns its subscriber plus the
// room-state acknowledgement payload. Other members receive a user-joined
// broadcast.
func (h *Hub) Join(roomID, userID, username string, conn *websocket.Conn) (*Subscriber, proto.ServerMessage) {
	sub := &Subscriber{conn: conn}

	h.mu.Lock()
	rm, ok := h.rooms[roomID]
	if !ok {
		rm = &roomState{
			store:   board.NewStore(),
			members: make(map[string]*member),
		}
		h.rooms[roomID] = rm
	}
	if existing, ok := rm.members[userID]; ok && existing.sub != nil {
		existing.sub.Close()
	}
	rm.members[userID] = &member{username: username, sub: sub}

	items := rm.store.Items()
	bg := rm.store.Background()
	users := make([]proto.User, 0, len(rm.members))
	for id, m := range rm.members {
		users = append(users, proto.User{ID: id, Username: m.username})
	}
	h.mu.Unlock()

	h.broadcast(roomID, userID, proto.UserJoined(proto.User{ID: userID, Username: username}))

	return sub, proto.RoomState(items, bg, users)
}

// Leave removes a member, closes its connection, broadcasts user-left, and
// prunes the room when it empties.
func (h *Hub) Leave(roomID, userID string) {
	h.mu.Lock()
	rm, ok := h.rooms[roomID]
	if !ok {
		h.mu.Unlock()
		return
	}
	m, ok := rm.members[userID]
	if ok {
		delete(rm.members, userID)
	}
	empty := len(rm.members) == 0
	if empty {
		delete(h.rooms, roomID)
	}
	h.mu.Unlock()

	if ok && m.sub != nil {
		m.sub.Close()
	}
	if ok && !empty {
		h.broadcast(roomID, userID, proto.UserLeft(userID))
	}
}

// AddItem applies an item placement to the room's store and fans it out to
// the other members.
func (h *Hub) AddItem(roomID, userID string, it board.Item) {
	store, ok := h.storeFor(roomID)
	if !ok {
		return
	}
	store.AddItem(it)
	h.broadcast(roomID, userID, proto.ItemAdded(it))
}

// UpdateItem applies a full-item update and fans it out.
func (h *Hub) UpdateItem(roomID, userID string, it board.Item) {
	store, ok := h.storeFor(roomID)
	if !ok {
		return
	}
	// The wire carries whole items; AddItem replaces in place on id match.
	store.AddItem(it)
	h.broadcast(roomID, userID, proto.ItemUpdated(it))
}

// DeleteItem removes an item and fans the deletion out.
func (h *Hub) DeleteItem(roomID, userID, itemID string) {
	store, ok := h.storeFor(roomID)
	if !ok {
		return
	}
	store.DeleteItem(itemID)
	h.broadcast(roomID, userID, proto.ItemDeleted(itemID))
}

// UpdateBackground merges a background patch and fans out only the fields
// that were present.
func (h *Hub) UpdateBackground(roomID, userID string, patch board.BackgroundPatch) {
	store, ok := h.storeFor(roomID)
	if !ok || patch.IsZero() {
		return
	}
	store.UpdateBackground(patch)
	h.broadcast(roomID, userID, proto.BackgroundUpdated(patch))
}

// SyncCanvas replaces the room's full state and fans out canvas-synced. Used
// by clients after undo/redo and placeholder resolution.
func (h *Hub) SyncCanvas(roomID, userID string, items []board.Item, bg board.Background) {
	store, ok := h.storeFor(roomID)
	if !ok {
		return
	}
	store.ReplaceAll(items)
	store.SetBackground(bg)
	h.broadcast(roomID, userID, proto.CanvasSynced(items, bg))
}

// RoomCount reports the number of live rooms.
func (h *Hub) RoomCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms)
}

// MemberCount reports the number of members in a room.
func (h *Hub) MemberCount(roomID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	rm, ok := h.rooms[roomID]
	if !ok {
		return 0
	}
	return len(rm.members)
}

// RoomItems returns a copy of a room's current items.
func (h *Hub) RoomItems(roomID string) []board.Item {
	store, ok := h.storeFor(roomID)
	if !ok {
		return nil
	}
	return store.Items()
}

// RoomBackground returns a room's current background settings.
func (h *Hub) RoomBackground(roomID string) board.Background {
	store, ok := h.storeFor(roomID)
	if !ok {
		return board.Background{}
	}
	return store.Background()
}

func (h *Hub) storeFor(roomID string) (*board.Store, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	rm, ok := h.rooms[roomID]
	if !ok {
		return nil, false
	}
	return rm.store, true
}

// broadcast sends a message to every member of the room except the sender.
// A failed write disconnects that member.
func (h *Hub) broadcast(roomID, senderID string, msg proto.ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to marshal broadcast",
			slog.String("room", roomID), slog.String("type", msg.Type), slog.String("error", err.Error()))
		return
	}

	h.mu.Lock()
	rm, ok := h.rooms[roomID]
	if !ok {
		h.mu.Unlock()
		return
	}
	targets := make(map[string]*Subscriber, len(rm.members))
	for id, m := range rm.members {
		if id == senderID || m.sub == nil {
			continue
		}
		targets[id] = m.sub
	}
	h.mu.Unlock()

	for id, sub := range targets {
		if err := sub.WriteMessage(websocket.TextMessage, data); err != nil {
			h.logger.Warn("failed to send update, dropping member",
				slog.String("room", roomID), slog.String("user", id), slog.String("error", err.Error()))
			h.Leave(roomID, id)
		}
	}
}
