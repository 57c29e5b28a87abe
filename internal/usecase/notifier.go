package usecase

import (
	"context"

	ws "campusmart/internal/infrastructure/websocket"
)

// Notifier pushes events to users. The websocket manager and the FCM push notifier
// implement it.
type Notifier interface {
	Notify(ctx context.Context, userIDs []string, event ws.Event)
}

// Notifiers sends every event to each of its members in order.
type Notifiers []Notifier

func (ns Notifiers) Notify(ctx context.Context, userIDs []string, event ws.Event) {
	for _, n := range ns {
		n.Notify(ctx, userIDs, event)
	}
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, []string, ws.Event) {}

func notifierOrNop(n Notifier) Notifier {
	if n == nil {
		return nopNotifier{}
	}
	return n
}
