package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	gorillaws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"campusmart/internal/adapter/api/middleware"
	ws "campusmart/internal/infrastructure/websocket"
	"campusmart/pkg/errors"
	"campusmart/pkg/logger"
	"campusmart/pkg/response"
)

type WebSocketHandler struct {
	wsManager *ws.Manager
	ctx       context.Context
}

var upgrader = gorillaws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// NewWebSocketHandler serves connections for wsManager. ctx bounds the lifetime of the
// per-connection request handling.
func NewWebSocketHandler(ctx context.Context, wsManager *ws.Manager) *WebSocketHandler {
	return &WebSocketHandler{
		wsManager: wsManager,
		ctx:       ctx,
	}
}

func (h *WebSocketHandler) HandleWebSocket(c echo.Context) error {
	userID := middleware.UserID(c)
	if userID == "" {
		return response.Error(c, errors.Unauthorized("Authentication required", nil))
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Warn("Websocket upgrade failed for user %s: %v", userID, err)
		return nil
	}

	client := ws.NewClient(uuid.NewString(), userID, conn)
	if !h.wsManager.Attach(h.ctx, client) {
		conn.Close()
		return nil
	}

	go client.ReadPump(h.ctx, h.wsManager)
	go client.WritePump()

	return nil
}
