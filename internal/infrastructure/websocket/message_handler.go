package websocket

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"campusmart/pkg/logger"
)

// Server to client event types
const (
	EventNewMessage         = "new_message"
	EventOfferUpdate        = "offer_update"
	EventConversationUpdate = "conversation_update"
	EventMessagesRead       = "messages_read"
	EventOfferAccepted      = "offer_accepted"

	EventJoined = "joined"
	EventPong   = "pong"
	EventError  = "error"
)

// Client to server request types
const (
	RequestPing              = "ping"
	RequestJoinConversation  = "join_conversation"
	RequestLeaveConversation = "leave_conversation"
)

// Events only delivered to connections that joined the conversation.
var roomScoped = map[string]bool{
	EventNewMessage:   true,
	EventOfferUpdate:  true,
	EventMessagesRead: true,
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

type Event struct {
	Type           string      `json:"type"`
	ConversationID string      `json:"conversation_id,omitempty"`
	Data           interface{} `json:"data,omitempty"`
	Timestamp      string      `json:"timestamp"`
}

type Request struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversation_id,omitempty"`
}

type envelope struct {
	UserIDs []string `json:"user_ids"`
	Event   Event    `json:"event"`
}

// ReadPump reads requests from the connection until it closes.
func (c *Client) ReadPump(ctx context.Context, m *Manager) {
	defer func() {
		m.Detach(ctx, c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("Websocket read error for user %s: %v", c.UserID, err)
			}
			return
		}

		var req Request
		if err := json.Unmarshal(raw, &req); err != nil {
			c.reply(Event{Type: EventError, Data: "malformed request"})
			continue
		}
		m.handleRequest(ctx, c, req)
	}
}

func (m *Manager) handleRequest(ctx context.Context, c *Client, req Request) {
	switch req.Type {
	case RequestPing:
		c.reply(Event{Type: EventPong})

	case RequestJoinConversation:
		if req.ConversationID == "" {
			c.reply(Event{Type: EventError, Data: "conversation_id is required"})
			return
		}
		if m.authorize != nil {
			if err := m.authorize(ctx, c.UserID, req.ConversationID); err != nil {
				c.reply(Event{Type: EventError, ConversationID: req.ConversationID, Data: err.Error()})
				return
			}
		}
		m.join(c, req.ConversationID)
		c.reply(Event{Type: EventJoined, ConversationID: req.ConversationID})

	case RequestLeaveConversation:
		m.leave(c, req.ConversationID)

	default:
		c.reply(Event{Type: EventError, Data: "unknown request type " + req.Type})
	}
}

// reply queues a direct response. It never blocks the read loop.
func (c *Client) reply(event Event) {
	event.Timestamp = time.Now().UTC().Format(time.RFC3339)
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	defer func() {
		// Send may already be closed by the manager.
		_ = recover()
	}()
	select {
	case c.Send <- data:
	default:
	}
}

// WritePump sends queued events and keepalive pings until Send is closed.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.Warn("Websocket write error for user %s: %v", c.UserID, err)
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
