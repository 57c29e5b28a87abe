package repository

import (
	"context"

	"campusmart/internal/domain/entity"
)

// OfferTransition is a guarded status change applied atomically with its side effects.
type OfferTransition struct {
	ConversationID string
	MessageID      string
	Status         entity.OfferStatus

	// Guard runs against the stored message inside the write, so a concurrent
	// transition is seen. A non-nil error aborts the whole write.
	Guard func(msg *entity.Message) error

	// LastMessageContent replaces the conversation preview text when the transitioned
	// message is the conversation's last message.
	LastMessageContent *string

	// Sale marks the referenced listing sold in the same write.
	Sale *entity.ListingSale
}

type ChatRepository interface {
	GetConversation(ctx context.Context, id string) (*entity.Conversation, error)
	// CreateConversationIfAbsent stores conv unless a document with its ID exists, and
	// returns whichever conversation is stored afterwards.
	CreateConversationIfAbsent(ctx context.Context, conv *entity.Conversation) (*entity.Conversation, error)
	// ListConversationsByParticipant returns conversations newest activity first.
	ListConversationsByParticipant(ctx context.Context, userID string) ([]*entity.Conversation, error)

	// AppendMessage stores msg, sets it as the conversation's last message, stamps
	// updatedAt and bumps the receiver's unread counter in one atomic write. When
	// supersede is set, that transition is applied in the same write.
	AppendMessage(ctx context.Context, msg *entity.Message, supersede *OfferTransition) error
	GetMessage(ctx context.Context, conversationID, messageID string) (*entity.Message, error)
	// ListMessages returns messages oldest first. limit > 0 keeps only the newest limit.
	ListMessages(ctx context.Context, conversationID string, limit int) ([]*entity.Message, error)
	// MarkRead flags every unread message addressed to userID and zeroes their counter
	// in one atomic write. It returns how many messages changed.
	MarkRead(ctx context.Context, conversationID, userID string) (int, error)

	ApplyOfferTransition(ctx context.Context, t OfferTransition) (*entity.Message, error)
}
