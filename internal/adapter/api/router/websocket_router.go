package router

import (
	"github.com/labstack/echo/v4"

	"campusmart/internal/adapter/api/handler"
	"campusmart/internal/adapter/api/middleware"
)

// SetupWebSocketRouter accepts the token from the query string as browsers cannot set
// headers on the upgrade request.
func SetupWebSocketRouter(e *echo.Echo, wsHandler *handler.WebSocketHandler, authMiddleware *middleware.AuthMiddleware) {
	e.GET("/ws", wsHandler.HandleWebSocket, authMiddleware.AuthenticateQuery)
}
