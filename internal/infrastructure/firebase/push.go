package firebase

import (
	"context"

	"firebase.google.com/go/v4/messaging"

	"campusmart/internal/domain/repository"
	ws "campusmart/internal/infrastructure/websocket"
	"campusmart/pkg/logger"
)

// MulticastSender is the part of the FCM client PushNotifier needs.
type MulticastSender interface {
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

// PushNotifier delivers events as FCM notifications to every registered device of the
// recipients. Tokens FCM reports as no longer registered are removed from the user.
type PushNotifier struct {
	sender MulticastSender
	users  repository.UserRepository
}

func NewPushNotifier(sender MulticastSender, users repository.UserRepository) *PushNotifier {
	return &PushNotifier{sender: sender, users: users}
}

func (p *PushNotifier) Notify(ctx context.Context, userIDs []string, event ws.Event) {
	title, body := pushText(event)
	for _, userID := range userIDs {
		user, err := p.users.GetByID(ctx, userID)
		if err != nil {
			logger.Warn("Push: skipping user %s: %v", userID, err)
			continue
		}
		if len(user.DeviceTokens) == 0 {
			continue
		}

		resp, err := p.sender.SendEachForMulticast(ctx, &messaging.MulticastMessage{
			Tokens:       user.DeviceTokens,
			Notification: &messaging.Notification{Title: title, Body: body},
			Data: map[string]string{
				"type":            event.Type,
				"conversation_id": event.ConversationID,
			},
		})
		if err != nil {
			logger.Error("Push: sending %s to user %s: %v", event.Type, userID, err)
			continue
		}

		var stale []string
		for i, r := range resp.Responses {
			if !r.Success && messaging.IsUnregistered(r.Error) {
				stale = append(stale, user.DeviceTokens[i])
			}
		}
		if len(stale) > 0 {
			if err := p.users.RemoveDeviceTokens(ctx, userID, stale); err != nil {
				logger.Warn("Push: pruning %d tokens of user %s: %v", len(stale), userID, err)
			}
		}
		logger.Info("Push: %s sent to user %s (%d ok, %d failed)", event.Type, userID, resp.SuccessCount, resp.FailureCount)
	}
}

func pushText(event ws.Event) (string, string) {
	switch event.Type {
	case ws.EventOfferAccepted:
		return "Offer accepted", "Your offer was accepted."
	case ws.EventNewMessage:
		return "New message", "You have a new message."
	case ws.EventOfferUpdate:
		return "Offer updated", "One of your offers changed."
	default:
		return "campusmart", "You have a new update."
	}
}
