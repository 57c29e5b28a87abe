package router

import (
	"github.com/labstack/echo/v4"

	"campusmart/internal/adapter/api/handler"
	"campusmart/internal/adapter/api/middleware"
)

// SetupChatRouter registers conversation, message and offer routes.
func SetupChatRouter(e *echo.Echo, chatHandler *handler.ChatHandler, offerHandler *handler.OfferHandler, authMiddleware *middleware.AuthMiddleware) {
	conversations := e.Group("/v1/conversations")
	conversations.Use(authMiddleware.Authenticate)

	conversations.GET("", chatHandler.ListConversations)
	conversations.POST("", chatHandler.CreateConversation)
	conversations.GET("/:id", chatHandler.GetConversation)
	conversations.GET("/:id/messages", chatHandler.GetMessages)
	conversations.PUT("/:id/read", chatHandler.MarkRead)

	conversations.POST("/:id/messages/:messageId/accept", offerHandler.Accept)
	conversations.POST("/:id/messages/:messageId/reject", offerHandler.Reject)
	conversations.POST("/:id/messages/:messageId/rescind", offerHandler.Rescind)
	conversations.POST("/:id/messages/:messageId/counter", offerHandler.Counter)

	e.POST("/v1/messages", chatHandler.SendMessage, authMiddleware.Authenticate)
}
