package usecase

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusmart/internal/domain/entity"
	ws "campusmart/internal/infrastructure/websocket"
	"campusmart/pkg/errors"
)

func appMessage(t *testing.T, err error) string {
	t.Helper()
	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	return appErr.Message
}

func (f *fixture) listing(t *testing.T, id, owner string, price float64) {
	t.Helper()
	f.store.PutListing(&entity.Listing{ID: id, UserID: owner, Title: "Desk lamp", Price: price})
}

func (f *fixture) getListing(t *testing.T, id string) *entity.Listing {
	t.Helper()
	l, err := f.store.Repositories().Listing.GetByID(context.Background(), id)
	require.NoError(t, err)
	return l
}

func TestOfferLifecycleAccept(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.listing(t, "L", "bob", 200)

	offer := f.sendOffer(t, "alice", "bob", "L", 150)
	accepted, err := f.offers.Accept(ctx, "bob", offer.ConversationID, offer.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OfferAccepted, accepted.OfferState())

	l := f.getListing(t, "L")
	assert.True(t, l.Sold)
	assert.Equal(t, "alice", l.SoldTo)
	assert.Equal(t, 150.0, l.Price)
	assert.NotNil(t, l.SoldAt)

	conv, err := f.chat.GetConversation(ctx, "bob", offer.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, entity.OfferAccepted, conv.LastMessage.OfferState())
	assert.Contains(t, f.notifier.types(), ws.EventOfferUpdate)
}

func TestAcceptWithoutPricePropagation(t *testing.T) {
	f := newFixture(t)
	repos := f.store.Repositories()
	offers := NewOfferUseCase(repos.Chat, repos.Listing, f.chat, nil, nil, false)
	f.listing(t, "L", "bob", 200)

	offer := f.sendOffer(t, "alice", "bob", "L", 150)
	_, err := offers.Accept(context.Background(), "bob", offer.ConversationID, offer.ID)
	require.NoError(t, err)

	l := f.getListing(t, "L")
	assert.True(t, l.Sold)
	assert.Equal(t, 200.0, l.Price)
}

func TestSecondAcceptFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.listing(t, "L", "bob", 200)

	offer := f.sendOffer(t, "alice", "bob", "L", 150)
	_, err := f.offers.Accept(ctx, "bob", offer.ConversationID, offer.ID)
	require.NoError(t, err)

	_, err = f.offers.Accept(ctx, "bob", offer.ConversationID, offer.ID)
	assert.True(t, errors.Is(err, errors.CodeInvalidState))
	assert.Equal(t, "only pending offers can be accepted or rejected", appMessage(t, err))
}

func TestConcurrentAcceptsOnlyOneWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.listing(t, "L", "bob", 200)
	offer := f.sendOffer(t, "alice", "bob", "L", 150)

	const attempts = 8
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.offers.Accept(ctx, "bob", offer.ConversationID, offer.ID)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, errors.Is(err, errors.CodeInvalidState), "unexpected error %v", err)
	}
	assert.Equal(t, 1, succeeded)
}

func TestSelfAcceptIsForbidden(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.listing(t, "L", "bob", 200)

	offer := f.sendOffer(t, "alice", "bob", "L", 150)
	_, err := f.offers.Accept(ctx, "alice", offer.ConversationID, offer.ID)
	assert.True(t, errors.Is(err, errors.CodeForbidden))
	assert.Equal(t, "cannot accept/reject your own offer", appMessage(t, err))

	_, err = f.offers.Reject(ctx, "alice", offer.ConversationID, offer.ID)
	assert.Equal(t, "cannot accept/reject your own offer", appMessage(t, err))

	stored, err := f.store.Repositories().Chat.GetMessage(ctx, offer.ConversationID, offer.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OfferPending, stored.OfferState())
	assert.False(t, f.getListing(t, "L").Sold)
}

func TestRejectThenAcceptFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	offer := f.sendOffer(t, "alice", "bob", "", 80)
	rejected, err := f.offers.Reject(ctx, "bob", offer.ConversationID, offer.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OfferRejected, rejected.OfferState())

	_, err = f.offers.Accept(ctx, "bob", offer.ConversationID, offer.ID)
	assert.True(t, errors.Is(err, errors.CodeInvalidState))
}

func TestRescind(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	offer := f.sendOffer(t, "alice", "bob", "", 80)

	_, err := f.offers.Rescind(ctx, "bob", offer.ConversationID, offer.ID)
	assert.True(t, errors.Is(err, errors.CodeForbidden))
	assert.Equal(t, "only the sender can rescind an offer", appMessage(t, err))

	rescinded, err := f.offers.Rescind(ctx, "alice", offer.ConversationID, offer.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OfferRescinded, rescinded.OfferState())

	conv, err := f.chat.GetConversation(ctx, "alice", offer.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, "Offer withdrawn", *conv.LastMessage.Content)
	assert.Equal(t, entity.OfferRescinded, conv.LastMessage.OfferState())

	_, err = f.offers.Rescind(ctx, "alice", offer.ConversationID, offer.ID)
	assert.Equal(t, "only pending offers can be rescinded", appMessage(t, err))
}

func TestTransitionOnPlainMessage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	msg, err := f.chat.SendMessage(ctx, "alice", SendMessageInput{ReceiverID: "bob", Content: "hi"})
	require.NoError(t, err)

	_, err = f.offers.Accept(ctx, "bob", msg.ConversationID, msg.ID)
	assert.True(t, errors.Is(err, errors.CodeInvalidOperation))
	assert.Equal(t, "this message is not an offer", appMessage(t, err))

	_, err = f.offers.Counter(ctx, "bob", msg.ConversationID, msg.ID, CounterOfferInput{Amount: amount(10)})
	assert.True(t, errors.Is(err, errors.CodeInvalidOperation))
}

func TestTransitionByOutsiderIsForbidden(t *testing.T) {
	f := newFixture(t)
	offer := f.sendOffer(t, "alice", "bob", "", 80)

	_, err := f.offers.Accept(context.Background(), "mallory", offer.ConversationID, offer.ID)
	assert.True(t, errors.Is(err, errors.CodeForbidden))
}

func TestCounterOffer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.listing(t, "L", "bob", 200)
	original := f.sendOffer(t, "alice", "bob", "L", 150)

	_, err := f.offers.Counter(ctx, "alice", original.ConversationID, original.ID, CounterOfferInput{Amount: amount(160)})
	assert.True(t, errors.Is(err, errors.CodeForbidden))

	_, err = f.offers.Counter(ctx, "bob", original.ConversationID, original.ID, CounterOfferInput{Amount: amount(0)})
	assert.Equal(t, "Offer amount must be positive", appMessage(t, err))

	counter, err := f.offers.Counter(ctx, "bob", original.ConversationID, original.ID, CounterOfferInput{
		Amount:  amount(180),
		Content: "Meet me halfway?",
	})
	require.NoError(t, err)
	assert.Equal(t, "bob", counter.SenderID)
	assert.Equal(t, "alice", counter.ReceiverID)
	assert.Equal(t, "L", counter.ListingID)
	assert.Equal(t, original.ID, counter.CounterOf)
	assert.Equal(t, entity.OfferPending, counter.OfferState())

	repo := f.store.Repositories().Chat
	stored, err := repo.GetMessage(ctx, original.ConversationID, original.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OfferCountered, stored.OfferState())

	conv, err := f.chat.GetConversation(ctx, "alice", original.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, counter.ID, conv.LastMessage.ID)
	assert.Equal(t, 1, conv.UnreadCount)

	_, err = f.offers.Counter(ctx, "bob", original.ConversationID, original.ID, CounterOfferInput{Amount: amount(170)})
	assert.Equal(t, "offer is not pending", appMessage(t, err))

	// Accepting the seller's counter sells to the buyer, not to the seller.
	_, err = f.offers.Accept(ctx, "alice", counter.ConversationID, counter.ID)
	require.NoError(t, err)
	l := f.getListing(t, "L")
	assert.Equal(t, "alice", l.SoldTo)
	assert.Equal(t, 180.0, l.Price)
}

func TestCounterIsAtomic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	original := f.sendOffer(t, "alice", "bob", "", 150)

	f.store.FailNextWrite(errors.Unavailable("offline", nil))
	_, err := f.offers.Counter(ctx, "bob", original.ConversationID, original.ID, CounterOfferInput{Amount: amount(180)})
	require.Error(t, err)

	msgs, err := f.store.Repositories().Chat.ListMessages(ctx, original.ConversationID, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, entity.OfferPending, msgs[0].OfferState())
}

func TestAcceptFailsWhenListingSoldToSomeoneElse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.listing(t, "L", "bob", 200)

	first := f.sendOffer(t, "alice", "bob", "L", 150)
	second := f.sendOffer(t, "carol", "bob", "L", 170)

	_, err := f.offers.Accept(ctx, "bob", second.ConversationID, second.ID)
	require.NoError(t, err)

	_, err = f.offers.Accept(ctx, "bob", first.ConversationID, first.ID)
	assert.True(t, errors.Is(err, errors.CodeInvalidState))
	assert.Equal(t, "listing is already sold", appMessage(t, err))

	stored, err := f.store.Repositories().Chat.GetMessage(ctx, first.ConversationID, first.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OfferPending, stored.OfferState())
	assert.Equal(t, "carol", f.getListing(t, "L").SoldTo)
}

func TestAcceptOfferWithMissingListingStillAccepts(t *testing.T) {
	f := newFixture(t)
	offer := f.sendOffer(t, "alice", "bob", "gone", 150)

	accepted, err := f.offers.Accept(context.Background(), "bob", offer.ConversationID, offer.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OfferAccepted, accepted.OfferState())
}
