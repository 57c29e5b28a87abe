package memory

import (
	"context"
	"sort"
	"time"

	"campusmart/internal/domain/entity"
	"campusmart/internal/domain/repository"
	"campusmart/pkg/errors"
)

type chatRepository struct {
	store *Store
}

func NewChatRepository(store *Store) repository.ChatRepository {
	return &chatRepository{store: store}
}

func (r *chatRepository) GetConversation(ctx context.Context, id string) (*entity.Conversation, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[id]
	if !ok {
		return nil, errors.NotFound("Conversation", nil)
	}
	return cloneConversation(conv), nil
}

func (r *chatRepository) CreateConversationIfAbsent(ctx context.Context, conv *entity.Conversation) (*entity.Conversation, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.conversations[conv.ID]; ok {
		return cloneConversation(existing), nil
	}
	if err := s.begin(); err != nil {
		return nil, err
	}

	stored := cloneConversation(conv)
	now := s.tick()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	s.conversations[stored.ID] = stored
	s.messages[stored.ID] = make(map[string]*entity.Message)
	return cloneConversation(stored), nil
}

func (r *chatRepository) ListConversationsByParticipant(ctx context.Context, userID string) ([]*entity.Conversation, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*entity.Conversation
	for _, conv := range s.conversations {
		if conv.HasParticipant(userID) {
			out = append(out, cloneConversation(conv))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *chatRepository) AppendMessage(ctx context.Context, msg *entity.Message, supersede *repository.OfferTransition) error {
	s := r.store
	s.mu.Lock()

	conv, ok := s.conversations[msg.ConversationID]
	if !ok {
		s.mu.Unlock()
		return errors.NotFound("Conversation", nil)
	}

	var prepared *preparedTransition
	if supersede != nil {
		var err error
		if prepared, err = s.prepareTransition(*supersede); err != nil {
			s.mu.Unlock()
			return err
		}
	}

	if err := s.begin(); err != nil {
		s.mu.Unlock()
		return err
	}

	now := s.tick()
	if msg.ID == "" {
		msg.ID = newMessageID()
	}
	msg.Timestamp = now

	var changes []entity.MessageChange
	if prepared != nil {
		changes = append(changes, s.commitTransition(prepared, now))
	}

	s.messages[conv.ID][msg.ID] = msg.Clone()
	conv.LastMessage = msg.Clone()
	conv.UpdatedAt = now
	if conv.UnreadCounts == nil {
		conv.UnreadCounts = make(map[string]int)
	}
	conv.UnreadCounts[msg.ReceiverID]++
	s.mu.Unlock()

	s.emit(changes)
	return nil
}

func (r *chatRepository) GetMessage(ctx context.Context, conversationID, messageID string) (*entity.Message, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	msg, ok := s.messages[conversationID][messageID]
	if !ok {
		return nil, errors.NotFound("Message", nil)
	}
	return msg.Clone(), nil
}

func (r *chatRepository) ListMessages(ctx context.Context, conversationID string, limit int) ([]*entity.Message, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.conversations[conversationID]; !ok {
		return nil, errors.NotFound("Conversation", nil)
	}

	out := make([]*entity.Message, 0, len(s.messages[conversationID]))
	for _, msg := range s.messages[conversationID] {
		out = append(out, msg.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (r *chatRepository) MarkRead(ctx context.Context, conversationID, userID string) (int, error) {
	s := r.store
	s.mu.Lock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		s.mu.Unlock()
		return 0, errors.NotFound("Conversation", nil)
	}

	var unread []*entity.Message
	for _, msg := range s.messages[conversationID] {
		if msg.ReceiverID == userID && !msg.Read {
			unread = append(unread, msg)
		}
	}
	if len(unread) == 0 && conv.UnreadFor(userID) == 0 {
		s.mu.Unlock()
		return 0, nil
	}

	if err := s.begin(); err != nil {
		s.mu.Unlock()
		return 0, err
	}

	changes := make([]entity.MessageChange, 0, len(unread))
	for _, msg := range unread {
		before := msg.Clone()
		msg.Read = true
		changes = append(changes, entity.MessageChange{
			ConversationID: conversationID,
			MessageID:      msg.ID,
			Before:         before,
			After:          msg.Clone(),
		})
	}
	if conv.LastMessage != nil && conv.LastMessage.ReceiverID == userID {
		conv.LastMessage.Read = true
	}
	if conv.UnreadCounts == nil {
		conv.UnreadCounts = make(map[string]int)
	}
	conv.UnreadCounts[userID] = 0
	s.mu.Unlock()

	s.emit(changes)
	return len(unread), nil
}

func (r *chatRepository) ApplyOfferTransition(ctx context.Context, t repository.OfferTransition) (*entity.Message, error) {
	s := r.store
	s.mu.Lock()

	prepared, err := s.prepareTransition(t)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if err := s.begin(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	change := s.commitTransition(prepared, s.tick())
	s.mu.Unlock()

	s.emit([]entity.MessageChange{change})
	return change.After.Clone(), nil
}

type preparedTransition struct {
	t       repository.OfferTransition
	msg     *entity.Message
	conv    *entity.Conversation
	listing *entity.Listing
	outcome entity.SaleOutcome
}

// prepareTransition performs every read and check of a transition. Callers hold s.mu.
func (s *Store) prepareTransition(t repository.OfferTransition) (*preparedTransition, error) {
	conv, ok := s.conversations[t.ConversationID]
	if !ok {
		return nil, errors.NotFound("Conversation", nil)
	}
	msg, ok := s.messages[t.ConversationID][t.MessageID]
	if !ok {
		return nil, errors.NotFound("Message", nil)
	}
	if t.Guard != nil {
		if err := t.Guard(msg.Clone()); err != nil {
			return nil, err
		}
	}

	p := &preparedTransition{t: t, msg: msg, conv: conv}
	if t.Sale != nil {
		listing, ok := s.listings[t.Sale.ListingID]
		if !ok {
			return nil, errors.NotFound("Listing", nil)
		}
		p.outcome = listing.SaleOutcome(t.Sale.BuyerID)
		if p.outcome == entity.SaleConflict {
			return nil, errors.InvalidState("listing is already sold")
		}
		p.listing = listing
	}
	return p, nil
}

// commitTransition applies a prepared transition. Callers hold s.mu.
func (s *Store) commitTransition(p *preparedTransition, now time.Time) entity.MessageChange {
	before := p.msg.Clone()
	p.msg.SetStatus(p.t.Status)

	if last := p.conv.LastMessage; last != nil && last.ID == p.msg.ID {
		last.SetStatus(p.t.Status)
		if p.t.LastMessageContent != nil {
			content := *p.t.LastMessageContent
			last.Content = &content
		}
	}
	p.conv.UpdatedAt = now

	if p.listing != nil && p.outcome == entity.SaleApply {
		sale := *p.t.Sale
		sale.At = now
		p.listing.Apply(sale)
	}

	return entity.MessageChange{
		ConversationID: p.t.ConversationID,
		MessageID:      p.msg.ID,
		Before:         before,
		After:          p.msg.Clone(),
	}
}
