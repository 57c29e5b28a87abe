package usecase

import (
	"context"

	"campusmart/internal/domain/entity"
	"campusmart/internal/domain/repository"
	"campusmart/internal/infrastructure/metrics"
	"campusmart/internal/infrastructure/ratelimit"
	ws "campusmart/internal/infrastructure/websocket"
	"campusmart/pkg/errors"
	"campusmart/pkg/logger"
)

const rescindedPreview = "Offer withdrawn"

type OfferUseCase struct {
	chatRepo       repository.ChatRepository
	listingRepo    repository.ListingRepository
	chat           *ChatUseCase
	notifier       Notifier
	rateLimiter    *ratelimit.RateLimiter
	propagatePrice bool
}

func NewOfferUseCase(
	chatRepo repository.ChatRepository,
	listingRepo repository.ListingRepository,
	chat *ChatUseCase,
	notifier Notifier,
	rateLimiter *ratelimit.RateLimiter,
	propagatePrice bool,
) *OfferUseCase {
	return &OfferUseCase{
		chatRepo:       chatRepo,
		listingRepo:    listingRepo,
		chat:           chat,
		notifier:       notifierOrNop(notifier),
		rateLimiter:    rateLimiter,
		propagatePrice: propagatePrice,
	}
}

type CounterOfferInput struct {
	Amount  *float64
	Content string
}

// Guards run before the write and again against the stored message inside it.

func receiverGuard(userID string) func(*entity.Message) error {
	return func(msg *entity.Message) error {
		if !msg.IsOffer {
			return errors.InvalidOperation("this message is not an offer")
		}
		if msg.SenderID == userID || msg.ReceiverID != userID {
			return errors.Forbidden("cannot accept/reject your own offer", nil)
		}
		if !msg.IsPendingOffer() {
			return errors.InvalidState("only pending offers can be accepted or rejected")
		}
		return nil
	}
}

func senderGuard(userID string) func(*entity.Message) error {
	return func(msg *entity.Message) error {
		if !msg.IsOffer {
			return errors.InvalidOperation("this message is not an offer")
		}
		if msg.SenderID != userID {
			return errors.Forbidden("only the sender can rescind an offer", nil)
		}
		if !msg.IsPendingOffer() {
			return errors.InvalidState("only pending offers can be rescinded")
		}
		return nil
	}
}

func counterGuard(userID string) func(*entity.Message) error {
	return func(msg *entity.Message) error {
		if !msg.IsOffer {
			return errors.InvalidOperation("this message is not an offer")
		}
		if msg.ReceiverID != userID {
			return errors.Forbidden("only the receiver can counter an offer", nil)
		}
		if !msg.IsPendingOffer() {
			return errors.InvalidState("offer is not pending")
		}
		return nil
	}
}

// Accept accepts a pending offer addressed to userID and marks its listing sold to the
// buyer in the same write.
func (uc *OfferUseCase) Accept(ctx context.Context, userID, conversationID, messageID string) (*entity.Message, error) {
	msg, err := uc.load(ctx, userID, conversationID, messageID, receiverGuard(userID))
	if err != nil {
		return nil, err
	}

	sale, err := uc.saleFor(ctx, msg)
	if err != nil {
		return nil, err
	}

	return uc.apply(ctx, userID, repository.OfferTransition{
		ConversationID: conversationID,
		MessageID:      messageID,
		Status:         entity.OfferAccepted,
		Guard:          receiverGuard(userID),
		Sale:           sale,
	})
}

func (uc *OfferUseCase) Reject(ctx context.Context, userID, conversationID, messageID string) (*entity.Message, error) {
	if _, err := uc.load(ctx, userID, conversationID, messageID, receiverGuard(userID)); err != nil {
		return nil, err
	}

	return uc.apply(ctx, userID, repository.OfferTransition{
		ConversationID: conversationID,
		MessageID:      messageID,
		Status:         entity.OfferRejected,
		Guard:          receiverGuard(userID),
	})
}

// Rescind withdraws the caller's own pending offer.
func (uc *OfferUseCase) Rescind(ctx context.Context, userID, conversationID, messageID string) (*entity.Message, error) {
	if _, err := uc.load(ctx, userID, conversationID, messageID, senderGuard(userID)); err != nil {
		return nil, err
	}

	preview := rescindedPreview
	return uc.apply(ctx, userID, repository.OfferTransition{
		ConversationID:     conversationID,
		MessageID:          messageID,
		Status:             entity.OfferRescinded,
		Guard:              senderGuard(userID),
		LastMessageContent: &preview,
	})
}

// Counter sends a new offer back to the original sender and marks the original
// countered. Both happen in one write.
func (uc *OfferUseCase) Counter(ctx context.Context, userID, conversationID, messageID string, input CounterOfferInput) (*entity.Message, error) {
	original, err := uc.load(ctx, userID, conversationID, messageID, counterGuard(userID))
	if err != nil {
		return nil, err
	}

	counter, err := buildMessage(userID, SendMessageInput{
		ReceiverID:  original.SenderID,
		Content:     input.Content,
		IsOffer:     true,
		OfferAmount: input.Amount,
		ListingID:   original.ListingID,
	})
	if err != nil {
		return nil, err
	}
	counter.ConversationID = conversationID
	counter.CounterOf = original.ID

	if allowed, wait := uc.rateLimiter.Allow(userID, ratelimit.ActionRespondOffer); !allowed {
		logger.Warn("Counter rate limited: user %s must wait %v", userID, wait)
		return nil, errors.TooManyRequests("Rate limit exceeded. Please wait before responding to another offer")
	}

	err = uc.chatRepo.AppendMessage(ctx, counter, &repository.OfferTransition{
		ConversationID: conversationID,
		MessageID:      messageID,
		Status:         entity.OfferCountered,
		Guard:          counterGuard(userID),
	})
	if err != nil {
		logger.Error("Counter: offer %s in %s: %v", messageID, conversationID, err)
		return nil, err
	}

	metrics.MessagesSent.WithLabelValues(messageKind(counter)).Inc()
	metrics.OfferTransitions.WithLabelValues(string(entity.OfferCountered)).Inc()
	logger.Info("Offer %s countered by %s with %s", messageID, userID, counter.ID)

	original.SetStatus(entity.OfferCountered)
	uc.announceTransition(ctx, original)
	uc.chat.announceMessage(ctx, counter)
	return counter, nil
}

// load authorizes userID on the conversation, fetches the offer and checks guard so
// that failures surface without a write attempt.
func (uc *OfferUseCase) load(ctx context.Context, userID, conversationID, messageID string, guard func(*entity.Message) error) (*entity.Message, error) {
	if _, err := uc.chat.authorize(ctx, userID, conversationID); err != nil {
		return nil, err
	}

	msg, err := uc.chatRepo.GetMessage(ctx, conversationID, messageID)
	if err != nil {
		return nil, err
	}
	if err := guard(msg); err != nil {
		logger.Debug("Offer %s transition refused for user %s: %v", messageID, userID, err)
		return nil, err
	}
	return msg, nil
}

// saleFor builds the listing effect of accepting msg. The buyer is whichever party does
// not own the listing, so an accepted counter-offer from the seller still sells to the
// buyer.
func (uc *OfferUseCase) saleFor(ctx context.Context, msg *entity.Message) (*entity.ListingSale, error) {
	if msg.ListingID == "" {
		return nil, nil
	}

	buyerID := msg.SenderID
	listing, err := uc.listingRepo.GetByID(ctx, msg.ListingID)
	switch {
	case errors.Is(err, errors.CodeNotFound):
		logger.Warn("Offer %s references missing listing %s, skipping sale", msg.ID, msg.ListingID)
		return nil, nil
	case err != nil:
		return nil, err
	case listing.UserID == msg.SenderID:
		buyerID = msg.ReceiverID
	}

	sale := &entity.ListingSale{ListingID: msg.ListingID, BuyerID: buyerID}
	if uc.propagatePrice && msg.OfferAmount != nil && *msg.OfferAmount > 0 {
		price := *msg.OfferAmount
		sale.Price = &price
	}
	return sale, nil
}

func (uc *OfferUseCase) apply(ctx context.Context, userID string, t repository.OfferTransition) (*entity.Message, error) {
	if allowed, wait := uc.rateLimiter.Allow(userID, ratelimit.ActionRespondOffer); !allowed {
		logger.Warn("Offer response rate limited: user %s must wait %v", userID, wait)
		return nil, errors.TooManyRequests("Rate limit exceeded. Please wait before responding to another offer")
	}

	msg, err := uc.chatRepo.ApplyOfferTransition(ctx, t)
	if err != nil {
		logger.Error("Offer %s -> %s in %s: %v", t.MessageID, t.Status, t.ConversationID, err)
		return nil, err
	}

	metrics.OfferTransitions.WithLabelValues(string(t.Status)).Inc()
	if t.Sale != nil {
		metrics.ListingsSold.WithLabelValues("offer").Inc()
	}
	logger.Info("Offer %s in %s is now %s", t.MessageID, t.ConversationID, t.Status)
	uc.announceTransition(ctx, msg)
	return msg, nil
}

func (uc *OfferUseCase) announceTransition(ctx context.Context, msg *entity.Message) {
	participants := []string{msg.SenderID, msg.ReceiverID}
	uc.notifier.Notify(ctx, participants, ws.Event{
		Type:           ws.EventOfferUpdate,
		ConversationID: msg.ConversationID,
		Data:           msg,
	})
	uc.notifier.Notify(ctx, participants, ws.Event{
		Type:           ws.EventConversationUpdate,
		ConversationID: msg.ConversationID,
		Data: map[string]interface{}{
			"message_id": msg.ID,
			"status":     msg.OfferState(),
		},
	})
}
