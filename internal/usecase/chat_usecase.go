package usecase

import (
	"context"
	"strings"

	"campusmart/internal/domain/entity"
	"campusmart/internal/domain/repository"
	"campusmart/internal/infrastructure/metrics"
	"campusmart/internal/infrastructure/ratelimit"
	ws "campusmart/internal/infrastructure/websocket"
	"campusmart/pkg/errors"
	"campusmart/pkg/logger"
)

type ChatUseCase struct {
	chatRepo    repository.ChatRepository
	notifier    Notifier
	rateLimiter *ratelimit.RateLimiter
}

func NewChatUseCase(
	chatRepo repository.ChatRepository,
	notifier Notifier,
	rateLimiter *ratelimit.RateLimiter,
) *ChatUseCase {
	return &ChatUseCase{
		chatRepo:    chatRepo,
		notifier:    notifierOrNop(notifier),
		rateLimiter: rateLimiter,
	}
}

type SendMessageInput struct {
	ReceiverID  string
	Content     string
	IsOffer     bool
	OfferAmount *float64
	ListingID   string
}

type ConversationResponse struct {
	*entity.Conversation
	OtherUserID string `json:"other_user_id"`
	UnreadCount int    `json:"unread_count"`
}

func newConversationResponse(conv *entity.Conversation, userID string) *ConversationResponse {
	return &ConversationResponse{
		Conversation: conv,
		OtherUserID:  conv.OtherParticipant(userID),
		UnreadCount:  conv.UnreadFor(userID),
	}
}

// GetOrCreateConversation returns the conversation between userID and otherUserID,
// creating it on first contact.
func (uc *ChatUseCase) GetOrCreateConversation(ctx context.Context, userID, otherUserID, listingID string) (*ConversationResponse, error) {
	if allowed, wait := uc.rateLimiter.Allow(userID, ratelimit.ActionOpenChat); !allowed {
		logger.Warn("GetOrCreateConversation rate limited: user %s must wait %v", userID, wait)
		return nil, errors.TooManyRequests("Rate limit exceeded. Please wait before starting another conversation")
	}

	conv, err := uc.getOrCreate(ctx, userID, otherUserID, listingID)
	if err != nil {
		return nil, err
	}
	return newConversationResponse(conv, userID), nil
}

func (uc *ChatUseCase) getOrCreate(ctx context.Context, userID, otherUserID, listingID string) (*entity.Conversation, error) {
	if userID == "" || otherUserID == "" {
		return nil, errors.Validation("Both participants are required")
	}
	if userID == otherUserID {
		return nil, errors.Validation("You cannot message yourself")
	}

	conv, err := uc.chatRepo.CreateConversationIfAbsent(ctx, entity.NewConversation(userID, otherUserID, listingID))
	if err != nil {
		logger.Error("getOrCreate: conversation %s: %v", entity.ConversationID(userID, otherUserID), err)
		return nil, err
	}
	return conv, nil
}

func (uc *ChatUseCase) ListConversations(ctx context.Context, userID string) ([]*ConversationResponse, error) {
	convs, err := uc.chatRepo.ListConversationsByParticipant(ctx, userID)
	if err != nil {
		logger.Error("ListConversations: user %s: %v", userID, err)
		return nil, err
	}

	out := make([]*ConversationResponse, 0, len(convs))
	for _, conv := range convs {
		out = append(out, newConversationResponse(conv, userID))
	}
	return out, nil
}

// GetConversation returns the conversation if userID participates in it.
func (uc *ChatUseCase) GetConversation(ctx context.Context, userID, conversationID string) (*ConversationResponse, error) {
	conv, err := uc.authorize(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}
	return newConversationResponse(conv, userID), nil
}

// Authorize reports whether userID may read conversationID.
func (uc *ChatUseCase) Authorize(ctx context.Context, userID, conversationID string) error {
	_, err := uc.authorize(ctx, userID, conversationID)
	return err
}

func (uc *ChatUseCase) authorize(ctx context.Context, userID, conversationID string) (*entity.Conversation, error) {
	conv, err := uc.chatRepo.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(userID) {
		logger.Warn("User %s denied access to conversation %s", userID, conversationID)
		return nil, errors.Forbidden("You are not a participant in this conversation", nil)
	}
	return conv, nil
}

// SendMessage appends a plain message or an offer, creating the conversation if needed.
func (uc *ChatUseCase) SendMessage(ctx context.Context, senderID string, input SendMessageInput) (*entity.Message, error) {
	msg, err := buildMessage(senderID, input)
	if err != nil {
		return nil, err
	}

	if allowed, wait := uc.rateLimiter.Allow(senderID, ratelimit.ActionSendMessage); !allowed {
		logger.Warn("SendMessage rate limited: user %s must wait %v", senderID, wait)
		return nil, errors.TooManyRequests("Rate limit exceeded. Please wait before sending another message")
	}

	conv, err := uc.getOrCreate(ctx, senderID, input.ReceiverID, input.ListingID)
	if err != nil {
		return nil, err
	}
	msg.ConversationID = conv.ID

	if err := uc.chatRepo.AppendMessage(ctx, msg, nil); err != nil {
		logger.Error("SendMessage: conversation %s: %v", conv.ID, err)
		return nil, err
	}

	metrics.MessagesSent.WithLabelValues(messageKind(msg)).Inc()
	logger.Info("Message %s sent in conversation %s (offer=%t)", msg.ID, conv.ID, msg.IsOffer)
	uc.announceMessage(ctx, msg)
	return msg, nil
}

// buildMessage validates input and returns an unsaved message from senderID.
func buildMessage(senderID string, input SendMessageInput) (*entity.Message, error) {
	if input.ReceiverID == "" {
		return nil, errors.Validation("Receiver is required")
	}
	if senderID == input.ReceiverID {
		return nil, errors.Validation("You cannot message yourself")
	}

	content := strings.TrimSpace(input.Content)
	msg := &entity.Message{
		SenderID:   senderID,
		ReceiverID: input.ReceiverID,
		IsOffer:    input.IsOffer,
		ListingID:  input.ListingID,
	}

	if input.IsOffer {
		if input.OfferAmount == nil || *input.OfferAmount <= 0 {
			return nil, errors.Validation("Offer amount must be positive")
		}
		amount := *input.OfferAmount
		msg.OfferAmount = &amount
		msg.SetStatus(entity.OfferPending)
	} else if content == "" {
		return nil, errors.Validation("Message content is required")
	}

	if content != "" {
		msg.Content = &content
	}
	return msg, nil
}

// ListMessages returns the conversation history oldest first and marks everything
// addressed to userID as read.
func (uc *ChatUseCase) ListMessages(ctx context.Context, userID, conversationID string, limit int) ([]*entity.Message, error) {
	conv, err := uc.authorize(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}

	messages, err := uc.chatRepo.ListMessages(ctx, conversationID, limit)
	if err != nil {
		logger.Error("ListMessages: conversation %s: %v", conversationID, err)
		return nil, err
	}

	if err := uc.markRead(ctx, conv, userID); err != nil {
		return nil, err
	}
	for _, msg := range messages {
		if msg.ReceiverID == userID {
			msg.Read = true
		}
	}
	return messages, nil
}

// MarkRead zeroes userID's unread counter and flags their received messages as read.
func (uc *ChatUseCase) MarkRead(ctx context.Context, userID, conversationID string) error {
	conv, err := uc.authorize(ctx, userID, conversationID)
	if err != nil {
		return err
	}
	return uc.markRead(ctx, conv, userID)
}

func (uc *ChatUseCase) markRead(ctx context.Context, conv *entity.Conversation, userID string) error {
	changed, err := uc.chatRepo.MarkRead(ctx, conv.ID, userID)
	if err != nil {
		logger.Error("MarkRead: conversation %s user %s: %v", conv.ID, userID, err)
		return err
	}
	if changed == 0 {
		return nil
	}

	logger.Debug("Marked %d messages read for user %s in %s", changed, userID, conv.ID)
	uc.notifier.Notify(ctx, conv.Participants, ws.Event{
		Type:           ws.EventMessagesRead,
		ConversationID: conv.ID,
		Data: map[string]interface{}{
			"reader_id": userID,
			"count":     changed,
		},
	})
	return nil
}

func (uc *ChatUseCase) announceMessage(ctx context.Context, msg *entity.Message) {
	participants := []string{msg.SenderID, msg.ReceiverID}
	uc.notifier.Notify(ctx, participants, ws.Event{
		Type:           ws.EventNewMessage,
		ConversationID: msg.ConversationID,
		Data:           msg,
	})
	uc.notifier.Notify(ctx, participants, ws.Event{
		Type:           ws.EventConversationUpdate,
		ConversationID: msg.ConversationID,
		Data:           msg,
	})
}

func messageKind(msg *entity.Message) string {
	if msg.IsOffer {
		return "offer"
	}
	return "text"
}
