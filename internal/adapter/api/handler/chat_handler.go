package handler

import (
	"github.com/labstack/echo/v4"

	"campusmart/internal/adapter/api/middleware"
	"campusmart/internal/usecase"
	"campusmart/pkg/response"
	"campusmart/pkg/utils"
)

type ChatHandler struct {
	chatUseCase *usecase.ChatUseCase
}

func NewChatHandler(chatUseCase *usecase.ChatUseCase) *ChatHandler {
	return &ChatHandler{
		chatUseCase: chatUseCase,
	}
}

type createConversationRequest struct {
	OtherUserID string `json:"other_user_id" validate:"required"`
	ListingID   string `json:"listing_id"`
}

// Content and amount are checked by the use case so that its messages reach the client.
type sendMessageRequest struct {
	ReceiverID  string   `json:"receiver_id" validate:"required"`
	Content     string   `json:"content"`
	IsOffer     bool     `json:"is_offer"`
	OfferAmount *float64 `json:"offer_amount"`
	ListingID   string   `json:"listing_id"`
}

// CreateConversation opens the conversation with another user, or returns the
// existing one.
func (h *ChatHandler) CreateConversation(c echo.Context) error {
	var req createConversationRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	conv, err := h.chatUseCase.GetOrCreateConversation(c.Request().Context(), middleware.UserID(c), req.OtherUserID, req.ListingID)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, conv)
}

func (h *ChatHandler) ListConversations(c echo.Context) error {
	convs, err := h.chatUseCase.ListConversations(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return response.Error(c, err)
	}
	return response.List(c, convs, len(convs))
}

func (h *ChatHandler) GetConversation(c echo.Context) error {
	conv, err := h.chatUseCase.GetConversation(c.Request().Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, conv)
}

// GetMessages returns the history oldest first and marks it read for the caller.
func (h *ChatHandler) GetMessages(c echo.Context) error {
	limit := utils.GetLimit(c, utils.DefaultMessageLimit, utils.MaxMessageLimit)

	messages, err := h.chatUseCase.ListMessages(c.Request().Context(), middleware.UserID(c), c.Param("id"), limit)
	if err != nil {
		return response.Error(c, err)
	}
	return response.List(c, messages, len(messages))
}

func (h *ChatHandler) MarkRead(c echo.Context) error {
	if err := h.chatUseCase.MarkRead(c.Request().Context(), middleware.UserID(c), c.Param("id")); err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, map[string]string{"message": "Conversation marked as read"})
}

func (h *ChatHandler) SendMessage(c echo.Context) error {
	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	msg, err := h.chatUseCase.SendMessage(c.Request().Context(), middleware.UserID(c), usecase.SendMessageInput{
		ReceiverID:  req.ReceiverID,
		Content:     req.Content,
		IsOffer:     req.IsOffer,
		OfferAmount: req.OfferAmount,
		ListingID:   req.ListingID,
	})
	if err != nil {
		return response.Error(c, err)
	}
	return response.Created(c, msg)
}
