// Package ws serves the websocket endpoint: it upgrades the connection,
// waits for the join-room handshake, and then dispatches client messages
// into the room hub until the connection drops.
package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"moodboard/server/internal/proto"
	"moodboard/server/internal/room"
)

// Handler upgrades and drives room sessions.
type Handler struct {
	hub      *room.Hub
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// NewHandler constructs a websocket handler bound to the hub.
func NewHandler(hub *room.Hub, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		hub:    hub,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// ServeHTTP runs one session: upgrade, join handshake, dispatch loop.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	// The first frame must be join-room; everything else is a protocol
	// violation.
	_, payload, err := conn.ReadMessage()
	if err != nil {
		conn.Close()
		return
	}
	var join proto.ClientMessage
	if err := json.Unmarshal(payload, &join); err != nil || join.Type != proto.MsgJoinRoom || join.RoomID == "" {
		message := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected join-room")
		conn.WriteMessage(websocket.CloseMessage, message)
		conn.Close()
		return
	}

	userID := uuid.NewString()
	roomID := join.RoomID
	sub, state := h.hub.Join(roomID, userID, join.Username, conn)

	data, err := json.Marshal(state)
	if err != nil {
		h.logger.Error("failed to marshal room state",
			slog.String("room", roomID), slog.String("error", err.Error()))
		h.hub.Leave(roomID, userID)
		return
	}
	if err := sub.WriteMessage(websocket.TextMessage, data); err != nil {
		h.hub.Leave(roomID, userID)
		return
	}

	h.logger.Info("member joined",
		slog.String("room", roomID), slog.String("user", userID), slog.String("username", join.Username))

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			h.hub.Leave(roomID, userID)
			return
		}

		var msg proto.ClientMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			h.logger.Warn("discarding malformed message",
				slog.String("user", userID), slog.String("error", err.Error()))
			continue
		}

		switch msg.Type {
		case proto.MsgAddItem:
			if msg.Item == nil {
				continue
			}
			if err := msg.Item.Validate(); err != nil {
				h.logger.Warn("discarding invalid item",
					slog.String("user", userID), slog.String("error", err.Error()))
				continue
			}
			h.hub.AddItem(roomID, userID, *msg.Item)
		case proto.MsgUpdateItem:
			if msg.Item == nil {
				continue
			}
			if err := msg.Item.Validate(); err != nil {
				h.logger.Warn("discarding invalid item",
					slog.String("user", userID), slog.String("error", err.Error()))
				continue
			}
			h.hub.UpdateItem(roomID, userID, *msg.Item)
		case proto.MsgDeleteItem:
			if msg.ItemID == "" {
				continue
			}
			h.hub.DeleteItem(roomID, userID, msg.ItemID)
		case proto.MsgUpdateBackground:
			if msg.Background == nil {
				continue
			}
			h.hub.UpdateBackground(roomID, userID, *msg.Background)
		case proto.MsgSyncCanvas:
			bg := h.hub.RoomBackground(roomID)
			if msg.Canvas != nil {
				bg = *msg.Canvas
			}
			h.hub.SyncCanvas(roomID, userID, msg.Items, bg)
		case proto.MsgJoinRoom:
			// Already joined on this connection; ignore.
		default:
			h.logger.Warn("unknown message type",
				slog.String("type", msg.Type), slog.String("user", userID))
		}
	}
}
