package trigger

import (
	"context"
	"time"

	"campusmart/internal/domain/entity"
	"campusmart/internal/domain/repository"
	"campusmart/internal/infrastructure/metrics"
	ws "campusmart/internal/infrastructure/websocket"
	"campusmart/internal/usecase"
	"campusmart/pkg/errors"
	"campusmart/pkg/logger"
)

// OfferAccepted marks the listing of a newly accepted offer sold. The offer flow
// already does this in the same write as the acceptance, so here it only repairs
// listings that missed it; the conditional write makes a repeat a no-op.
type OfferAccepted struct {
	listingRepo    repository.ListingRepository
	propagatePrice bool
}

func NewOfferAccepted(listingRepo repository.ListingRepository, propagatePrice bool) *OfferAccepted {
	return &OfferAccepted{listingRepo: listingRepo, propagatePrice: propagatePrice}
}

func (h *OfferAccepted) Name() string { return "offer_accepted" }

func (h *OfferAccepted) Handle(ctx context.Context, change entity.MessageChange) Result {
	if !change.NewlyAccepted() || change.After.ListingID == "" {
		return Result{Success: true, Skipped: true}
	}
	offer := change.After

	listing, err := h.listingRepo.GetByID(ctx, offer.ListingID)
	if err != nil {
		logger.Error("offer_accepted: listing %s for offer %s/%s: %v",
			offer.ListingID, change.ConversationID, change.MessageID, err)
		return Result{Err: err}
	}

	buyerID := offer.SenderID
	if listing.UserID == offer.SenderID {
		buyerID = offer.ReceiverID
	}

	sale := entity.ListingSale{ListingID: listing.ID, BuyerID: buyerID, At: time.Now().UTC()}
	if h.propagatePrice && offer.OfferAmount != nil && *offer.OfferAmount > 0 {
		price := *offer.OfferAmount
		sale.Price = &price
	}

	applied, err := h.listingRepo.MarkSold(ctx, sale)
	if err != nil {
		if errors.Is(err, errors.CodeInvalidState) {
			logger.Warn("offer_accepted: listing %s already sold to someone other than %s", listing.ID, buyerID)
		} else {
			logger.Error("offer_accepted: marking listing %s sold: %v", listing.ID, err)
		}
		return Result{Err: err}
	}

	if applied {
		metrics.ListingsSold.WithLabelValues("trigger").Inc()
		logger.Info("offer_accepted: listing %s marked sold to %s", listing.ID, buyerID)
	} else {
		logger.Debug("offer_accepted: listing %s already sold to %s", listing.ID, buyerID)
	}
	return Result{Success: true}
}

// NotifyOfferAccepted tells the offer's sender that it was accepted.
type NotifyOfferAccepted struct {
	notifier usecase.Notifier
}

func NewNotifyOfferAccepted(notifier usecase.Notifier) *NotifyOfferAccepted {
	return &NotifyOfferAccepted{notifier: notifier}
}

func (h *NotifyOfferAccepted) Name() string { return "notify_offer_accepted" }

func (h *NotifyOfferAccepted) Handle(ctx context.Context, change entity.MessageChange) Result {
	if !change.NewlyAccepted() {
		return Result{Success: true, Skipped: true}
	}
	if h.notifier == nil {
		logger.Warn("notify_offer_accepted: no notifier configured, dropping notification for %s", change.After.SenderID)
		return Result{Success: true, Skipped: true}
	}

	offer := change.After
	h.notifier.Notify(ctx, []string{offer.SenderID}, ws.Event{
		Type:           ws.EventOfferAccepted,
		ConversationID: change.ConversationID,
		Data: map[string]interface{}{
			"message_id":   change.MessageID,
			"listing_id":   offer.ListingID,
			"offer_amount": offer.OfferAmount,
			"accepted_by":  offer.ReceiverID,
		},
	})
	logger.Info("notify_offer_accepted: notified %s about offer %s", offer.SenderID, change.MessageID)
	return Result{Success: true}
}
