package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/oklog/ulid/v2"

	"campusmart/internal/domain/entity"
	"campusmart/internal/domain/repository"
	"campusmart/pkg/errors"
	"campusmart/pkg/logger"
)

type firestoreChatRepository struct {
	client *firestore.Client
}

func NewFirestoreChatRepository(client *firestore.Client) repository.ChatRepository {
	return &firestoreChatRepository{client: client}
}

func (r *firestoreChatRepository) conversation(id string) *firestore.DocumentRef {
	return r.client.Collection(conversationsCollection).Doc(id)
}

func (r *firestoreChatRepository) messages(conversationID string) *firestore.CollectionRef {
	return r.conversation(conversationID).Collection(messagesCollection)
}

func (r *firestoreChatRepository) GetConversation(ctx context.Context, id string) (*entity.Conversation, error) {
	doc, err := r.conversation(id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, errors.NotFound("Conversation", err)
		}
		return nil, storeError("Failed to get conversation", err)
	}

	var conv entity.Conversation
	if err := doc.DataTo(&conv); err != nil {
		return nil, errors.Internal("Failed to parse conversation data", err)
	}
	return &conv, nil
}

func (r *firestoreChatRepository) CreateConversationIfAbsent(ctx context.Context, conv *entity.Conversation) (*entity.Conversation, error) {
	ref := r.conversation(conv.ID)
	var stored entity.Conversation
	created := false

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		created = false
		doc, err := tx.Get(ref)
		if err == nil {
			return doc.DataTo(&stored)
		}
		if !isNotFound(err) {
			return err
		}

		created = true
		return tx.Create(ref, conversationFields(conv))
	})
	if err != nil {
		return nil, storeError("Failed to create conversation", err)
	}
	if !created {
		return &stored, nil
	}

	readBack, err := r.GetConversation(ctx, conv.ID)
	if err != nil {
		logger.Warn("Conversation %s created but not readable yet: %v", conv.ID, err)
		stored = *conv
		stored.CreatedAt = time.Now().UTC()
		stored.UpdatedAt = stored.CreatedAt
		return &stored, nil
	}
	return readBack, nil
}

func (r *firestoreChatRepository) ListConversationsByParticipant(ctx context.Context, userID string) ([]*entity.Conversation, error) {
	docs, err := r.client.Collection(conversationsCollection).
		Where("participants", "array-contains", userID).
		OrderBy("updatedAt", firestore.Desc).
		OrderBy(firestore.DocumentID, firestore.Asc).
		Documents(ctx).GetAll()
	if err != nil {
		logger.Error("Firestore error while fetching conversations for user %s: %v", userID, err)
		return nil, storeError("Failed to fetch conversations", err)
	}

	conversations := make([]*entity.Conversation, 0, len(docs))
	for _, doc := range docs {
		var conv entity.Conversation
		if err := doc.DataTo(&conv); err != nil {
			logger.Warn("Skipping unreadable conversation %s: %v", doc.Ref.ID, err)
			continue
		}
		conversations = append(conversations, &conv)
	}
	return conversations, nil
}

func (r *firestoreChatRepository) AppendMessage(ctx context.Context, msg *entity.Message, supersede *repository.OfferTransition) error {
	if msg.ID == "" {
		msg.ID = ulid.Make().String()
	}
	convRef := r.conversation(msg.ConversationID)
	msgRef := r.messages(msg.ConversationID).Doc(msg.ID)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(convRef); err != nil {
			if isNotFound(err) {
				return errors.NotFound("Conversation", err)
			}
			return err
		}

		var prepared *preparedTransition
		if supersede != nil {
			var err error
			if prepared, err = r.prepareTransition(tx, *supersede); err != nil {
				return err
			}
		}

		if prepared != nil {
			// The new message becomes the preview, so the superseded one only needs
			// its own status written.
			if err := tx.Update(prepared.msgRef, []firestore.Update{
				{Path: "status", Value: string(prepared.t.Status)},
			}); err != nil {
				return err
			}
		}
		if err := tx.Create(msgRef, messageFields(msg)); err != nil {
			return err
		}
		return tx.Update(convRef, []firestore.Update{
			{Path: "lastMessage", Value: messageFields(msg)},
			{Path: "updatedAt", Value: firestore.ServerTimestamp},
			{FieldPath: firestore.FieldPath{"unreadCounts", msg.ReceiverID}, Value: firestore.Increment(1)},
		})
	})
	if err != nil {
		logger.Error("AppendMessage: conversation %s: %v", msg.ConversationID, err)
		return storeError("Failed to send message", err)
	}

	doc, err := msgRef.Get(ctx)
	if err == nil {
		err = doc.DataTo(msg)
	}
	if err != nil {
		logger.Warn("Message %s committed but not readable yet: %v", msg.ID, err)
		msg.Timestamp = time.Now().UTC()
	}
	return nil
}

func (r *firestoreChatRepository) GetMessage(ctx context.Context, conversationID, messageID string) (*entity.Message, error) {
	doc, err := r.messages(conversationID).Doc(messageID).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, errors.NotFound("Message", err)
		}
		return nil, storeError("Failed to get message", err)
	}

	var msg entity.Message
	if err := doc.DataTo(&msg); err != nil {
		return nil, errors.Internal("Failed to parse message data", err)
	}
	return &msg, nil
}

func (r *firestoreChatRepository) ListMessages(ctx context.Context, conversationID string, limit int) ([]*entity.Message, error) {
	query := r.messages(conversationID).
		OrderBy("timestamp", firestore.Desc).
		OrderBy(firestore.DocumentID, firestore.Desc)
	if limit > 0 {
		query = query.Limit(limit)
	}

	docs, err := query.Documents(ctx).GetAll()
	if err != nil {
		logger.Error("Firestore error while listing messages for conversation %s: %v", conversationID, err)
		return nil, storeError("Failed to list messages", err)
	}

	messages := make([]*entity.Message, len(docs))
	for i, doc := range docs {
		var msg entity.Message
		if err := doc.DataTo(&msg); err != nil {
			return nil, errors.Internal("Failed to parse message data", err)
		}
		// Newest-first from the query; callers get oldest-first.
		messages[len(docs)-1-i] = &msg
	}
	return messages, nil
}

func (r *firestoreChatRepository) MarkRead(ctx context.Context, conversationID, userID string) (int, error) {
	convRef := r.conversation(conversationID)
	marked := 0

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		marked = 0
		doc, err := tx.Get(convRef)
		if err != nil {
			if isNotFound(err) {
				return errors.NotFound("Conversation", err)
			}
			return err
		}
		var conv entity.Conversation
		if err := doc.DataTo(&conv); err != nil {
			return err
		}

		unread, err := tx.Documents(r.messages(conversationID).
			Where("receiverId", "==", userID).
			Where("read", "==", false)).GetAll()
		if err != nil {
			return err
		}
		if len(unread) == 0 && conv.UnreadFor(userID) == 0 {
			return nil
		}

		for _, m := range unread {
			if err := tx.Update(m.Ref, []firestore.Update{{Path: "read", Value: true}}); err != nil {
				return err
			}
		}
		updates := []firestore.Update{
			{FieldPath: firestore.FieldPath{"unreadCounts", userID}, Value: 0},
		}
		if conv.LastMessage != nil && conv.LastMessage.ReceiverID == userID {
			updates = append(updates, firestore.Update{Path: "lastMessage.read", Value: true})
		}
		marked = len(unread)
		return tx.Update(convRef, updates)
	})
	if err != nil {
		return 0, storeError("Failed to mark messages as read", err)
	}
	return marked, nil
}

func (r *firestoreChatRepository) ApplyOfferTransition(ctx context.Context, t repository.OfferTransition) (*entity.Message, error) {
	var updated *entity.Message

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		p, err := r.prepareTransition(tx, t)
		if err != nil {
			return err
		}
		if err := tx.Update(p.msgRef, []firestore.Update{
			{Path: "status", Value: string(t.Status)},
		}); err != nil {
			return err
		}

		convUpdates := []firestore.Update{{Path: "updatedAt", Value: firestore.ServerTimestamp}}
		if p.conv.LastMessage != nil && p.conv.LastMessage.ID == p.msg.ID {
			convUpdates = append(convUpdates, firestore.Update{Path: "lastMessage.status", Value: string(t.Status)})
			if t.LastMessageContent != nil {
				convUpdates = append(convUpdates, firestore.Update{Path: "lastMessage.content", Value: *t.LastMessageContent})
			}
		}
		if err := tx.Update(r.conversation(t.ConversationID), convUpdates); err != nil {
			return err
		}

		if p.listingRef != nil && p.outcome == entity.SaleApply {
			if err := tx.Update(p.listingRef, saleUpdates(*t.Sale)); err != nil {
				return err
			}
		}

		updated = p.msg
		updated.SetStatus(t.Status)
		return nil
	})
	if err != nil {
		logger.Error("ApplyOfferTransition: message %s in conversation %s to %s: %v", t.MessageID, t.ConversationID, t.Status, err)
		return nil, storeError("Failed to update offer", err)
	}
	return updated, nil
}

type preparedTransition struct {
	t          repository.OfferTransition
	msgRef     *firestore.DocumentRef
	msg        *entity.Message
	conv       *entity.Conversation
	listingRef *firestore.DocumentRef
	outcome    entity.SaleOutcome
}

// prepareTransition performs every read of a transition. Firestore requires all reads
// of a transaction to happen before its first write.
func (r *firestoreChatRepository) prepareTransition(tx *firestore.Transaction, t repository.OfferTransition) (*preparedTransition, error) {
	convDoc, err := tx.Get(r.conversation(t.ConversationID))
	if err != nil {
		if isNotFound(err) {
			return nil, errors.NotFound("Conversation", err)
		}
		return nil, err
	}
	var conv entity.Conversation
	if err := convDoc.DataTo(&conv); err != nil {
		return nil, err
	}

	msgRef := r.messages(t.ConversationID).Doc(t.MessageID)
	msgDoc, err := tx.Get(msgRef)
	if err != nil {
		if isNotFound(err) {
			return nil, errors.NotFound("Message", err)
		}
		return nil, err
	}
	var msg entity.Message
	if err := msgDoc.DataTo(&msg); err != nil {
		return nil, err
	}
	if t.Guard != nil {
		if err := t.Guard(msg.Clone()); err != nil {
			return nil, err
		}
	}

	p := &preparedTransition{t: t, msgRef: msgRef, msg: &msg, conv: &conv}
	if t.Sale != nil {
		listingRef := r.client.Collection(listingsCollection).Doc(t.Sale.ListingID)
		listingDoc, err := tx.Get(listingRef)
		if err != nil {
			if isNotFound(err) {
				return nil, errors.NotFound("Listing", err)
			}
			return nil, err
		}
		var listing entity.Listing
		if err := listingDoc.DataTo(&listing); err != nil {
			return nil, err
		}
		p.outcome = listing.SaleOutcome(t.Sale.BuyerID)
		if p.outcome == entity.SaleConflict {
			return nil, errors.InvalidState("listing is already sold")
		}
		p.listingRef = listingRef
	}
	return p, nil
}

