package usecase

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"campusmart/internal/adapter/repository/memory"
	"campusmart/internal/domain/entity"
	ws "campusmart/internal/infrastructure/websocket"
)

type sentEvent struct {
	userIDs []string
	event   ws.Event
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []sentEvent
}

func (n *recordingNotifier) Notify(_ context.Context, userIDs []string, event ws.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, sentEvent{userIDs: userIDs, event: event})
}

func (n *recordingNotifier) types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.events))
	for _, e := range n.events {
		out = append(out, e.event.Type)
	}
	return out
}

type fixture struct {
	store    *memory.Store
	notifier *recordingNotifier
	chat     *ChatUseCase
	offers   *OfferUseCase
	likes    *LikeUseCase
	listings *ListingUseCase
	users    *UserUseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	repos := store.Repositories()
	notifier := &recordingNotifier{}

	chat := NewChatUseCase(repos.Chat, notifier, nil)
	return &fixture{
		store:    store,
		notifier: notifier,
		chat:     chat,
		offers:   NewOfferUseCase(repos.Chat, repos.Listing, chat, notifier, nil, true),
		likes:    NewLikeUseCase(repos.Like, repos.Listing, nil),
		listings: NewListingUseCase(repos.Listing),
		users:    NewUserUseCase(repos.User, ".edu"),
	}
}

func amount(v float64) *float64 { return &v }

func (f *fixture) sendOffer(t *testing.T, from, to, listingID string, value float64) *entity.Message {
	t.Helper()
	msg, err := f.chat.SendMessage(context.Background(), from, SendMessageInput{
		ReceiverID:  to,
		IsOffer:     true,
		OfferAmount: amount(value),
		ListingID:   listingID,
	})
	require.NoError(t, err)
	return msg
}
