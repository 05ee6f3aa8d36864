package ws

import (
	"context"
	"encoding/json"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/market-service/internal/realtime"
	"github.com/spec-kit/market-service/internal/service"
)

// Handler serves the websocket endpoint: room membership, history
// replay on join, and inbound chat messages.
type Handler struct {
	hub    *realtime.Hub
	chat   *service.ChatService
	logger *zap.Logger
}

// NewHandler constructs the websocket handler.
func NewHandler(hub *realtime.Hub, chat *service.ChatService, logger *zap.Logger) *Handler {
	return &Handler{hub: hub, chat: chat, logger: logger}
}

// Register mounts the upgrade guard and the websocket route at /ws.
func (h *Handler) Register(app *fiber.App) {
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(h.serve))
}

// inboundFrame is one client-to-server message.
type inboundFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type joinRoomPayload struct {
	PostID string `json:"postId"`
}

type leaveRoomPayload struct {
	PostID string `json:"postId"`
}

type chatMessagePayload struct {
	PostID     string `json:"postId"`
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
	Content    string `json:"content"`
}

func (h *Handler) serve(conn *websocket.Conn) {
	client := newClient(conn, h.logger)
	go client.writeLoop()

	defer func() {
		for _, postID := range client.joinedRooms() {
			h.hub.Leave(postID, client)
		}
		client.close()
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var frame inboundFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			h.logger.Debug("malformed websocket frame", zap.Error(err))
			continue
		}
		h.dispatch(client, frame)
	}
}

func (h *Handler) dispatch(client *Client, frame inboundFrame) {
	ctx := context.Background()

	switch frame.Event {
	case "joinRoom":
		var payload joinRoomPayload
		if err := json.Unmarshal(frame.Data, &payload); err != nil || payload.PostID == "" {
			return
		}
		// Joining and replaying happen as one step under the listing
		// lock and the room lock: a message posted concurrently lands
		// either in the replay or in the live stream, never both, and
		// never ahead of the replay.
		lock := h.chat.LockListing(payload.PostID)
		lock.Lock()
		err := h.hub.JoinWithReplay(payload.PostID, client, func() (realtime.Envelope, error) {
			history, err := h.chat.History(ctx, payload.PostID)
			if err != nil {
				return realtime.Envelope{}, err
			}
			return realtime.Envelope{
				Event: realtime.EventChatHistory,
				Data:  realtime.ChatHistoryFromDomain(history),
			}, nil
		})
		lock.Unlock()
		if err != nil {
			h.logger.Warn("chat history replay failed", zap.String("post_id", payload.PostID), zap.Error(err))
			return
		}
		client.trackJoin(payload.PostID)

	case "leaveRoom":
		var payload leaveRoomPayload
		if err := json.Unmarshal(frame.Data, &payload); err != nil || payload.PostID == "" {
			return
		}
		h.hub.Leave(payload.PostID, client)
		client.trackLeave(payload.PostID)

	case "chatMessage":
		var payload chatMessagePayload
		if err := json.Unmarshal(frame.Data, &payload); err != nil {
			return
		}
		if _, err := h.chat.PostMessage(ctx, payload.PostID, payload.SenderID, payload.ReceiverID, payload.Content); err != nil {
			h.logger.Warn("chat message rejected",
				zap.String("post_id", payload.PostID),
				zap.String("sender_id", payload.SenderID),
				zap.Error(err))
		}

	default:
		h.logger.Debug("unknown websocket event", zap.String("event", frame.Event))
	}
}
