// Package proto defines the wire messages exchanged between the room hub and
// sync clients. All messages are JSON envelopes with a type discriminator and
// a protocol version field.
package proto

import "moodboard/server/internal/board"

// ProtocolVersion is stamped on every message so mismatched peers can be
// detected during rollout.
const ProtocolVersion = 1

// Client → server message types.
const (
	MsgJoinRoom         = "join-room"
	MsgAddItem          = "add-item"
	MsgUpdateItem       = "update-item"
	MsgDeleteItem       = "delete-item"
	MsgUpdateBackground = "update-background"
	MsgSyncCanvas       = "sync-canvas"
)

// Server → client message types.
const (
	MsgRoomState         = "room-state"
	MsgItemAdded         = "item-added"
	MsgItemUpdated       = "item-updated"
	MsgItemDeleted       = "item-deleted"
	MsgBackgroundUpdated = "background-updated"
	MsgCanvasSynced      = "canvas-synced"
	MsgUserJoined        = "user-joined"
	MsgUserLeft          = "user-left"
)

// User identifies a room member in presence notifications.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// ClientMessage is the envelope decoded by the server. Fields irrelevant to
// a message type stay absent on the wire.
type ClientMessage struct {
	Ver        int                    `json:"ver,omitempty"`
	Type       string                 `json:"type"`
	RoomID     string                 `json:"roomId,omitempty"`
	Username   string                 `json:"username,omitempty"`
	Item       *board.Item            `json:"item,omitempty"`
	ItemID     string                 `json:"itemId,omitempty"`
	Background *board.BackgroundPatch `json:"background,omitempty"`
	Items      []board.Item           `json:"items,omitempty"`
	Canvas     *board.Background      `json:"canvas,omitempty"`
}

// ServerMessage is the envelope decoded by clients.
type ServerMessage struct {
	Ver        int                    `json:"ver,omitempty"`
	Type       string                 `json:"type"`
	Items      []board.Item           `json:"items,omitempty"`
	Item       *board.Item            `json:"item,omitempty"`
	ItemID     string                 `json:"itemId,omitempty"`
	Background *board.BackgroundPatch `json:"background,omitempty"`
	Canvas     *board.Background      `json:"canvas,omitempty"`
	Users      []User                 `json:"users,omitempty"`
	User       *User                  `json:"user,omitempty"`
	UserID     string                 `json:"userId,omitempty"`
}

// RoomState builds the join acknowledgement carrying the room's current
// items, background, and member list.
func RoomState(items []board.Item, bg board.Background, users []User) ServerMessage {
	return ServerMessage{
		Ver:    ProtocolVersion,
		Type:   MsgRoomState,
		Items:  items,
		Canvas: &bg,
		Users:  users,
	}
}

// ItemAdded builds the broadcast for a newly placed item.
func ItemAdded(it board.Item) ServerMessage {
	return ServerMessage{Ver: ProtocolVersion, Type: MsgItemAdded, Item: &it}
}

// ItemUpdated builds the broadcast for a mutated item.
func ItemUpdated(it board.Item) ServerMessage {
	return ServerMessage{Ver: ProtocolVersion, Type: MsgItemUpdated, Item: &it}
}

// ItemDeleted builds the broadcast for a removed item.
func ItemDeleted(id string) ServerMessage {
	return ServerMessage{Ver: ProtocolVersion, Type: MsgItemDeleted, ItemID: id}
}

// BackgroundUpdated builds the broadcast carrying only the changed
// background fields.
func BackgroundUpdated(patch board.BackgroundPatch) ServerMessage {
	return ServerMessage{Ver: ProtocolVersion, Type: MsgBackgroundUpdated, Background: &patch}
}

// CanvasSynced builds the full-replace broadcast used after undo/redo and
// placeholder resolution.
func CanvasSynced(items []board.Item, bg board.Background) ServerMessage {
	return ServerMessage{Ver: ProtocolVersion, Type: MsgCanvasSynced, Items: items, Canvas: &bg}
}

// UserJoined builds the presence notification for a new member.
func UserJoined(u User) ServerMessage {
	return ServerMessage{Ver: ProtocolVersion, Type: MsgUserJoined, User: &u}
}

// UserLeft builds the presence notification for a departed member.
func UserLeft(userID string) ServerMessage {
	return ServerMessage{Ver: ProtocolVersion, Type: MsgUserLeft, UserID: userID}
}
