package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusmart/internal/domain/entity"
	"campusmart/internal/domain/repository"
	apperrors "campusmart/pkg/errors"
)

func text(s string) *string { return &s }

func newConversation(t *testing.T, repo repository.ChatRepository, a, b string) *entity.Conversation {
	t.Helper()
	conv, err := repo.CreateConversationIfAbsent(context.Background(), entity.NewConversation(a, b, ""))
	require.NoError(t, err)
	return conv
}

func sendText(t *testing.T, repo repository.ChatRepository, convID, from, to, body string) *entity.Message {
	t.Helper()
	msg := &entity.Message{ConversationID: convID, SenderID: from, ReceiverID: to, Content: text(body)}
	require.NoError(t, repo.AppendMessage(context.Background(), msg, nil))
	return msg
}

func TestCreateConversationIfAbsentConverges(t *testing.T) {
	repo := NewChatRepository(NewStore())
	ctx := context.Background()

	first, err := repo.CreateConversationIfAbsent(ctx, entity.NewConversation("alice", "bob", "l1"))
	require.NoError(t, err)
	second, err := repo.CreateConversationIfAbsent(ctx, entity.NewConversation("bob", "alice", "l2"))
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "l1", second.ListingID)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
}

func TestAppendMessageUpdatesConversation(t *testing.T) {
	store := NewStore()
	repo := NewChatRepository(store)
	conv := newConversation(t, repo, "alice", "bob")

	msg := sendText(t, repo, conv.ID, "alice", "bob", "Hello!")
	assert.NotEmpty(t, msg.ID)

	got, err := repo.GetConversation(context.Background(), conv.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.UnreadFor("bob"))
	assert.Equal(t, 0, got.UnreadFor("alice"))
	require.NotNil(t, got.LastMessage)
	assert.Equal(t, msg.ID, got.LastMessage.ID)
	assert.Equal(t, msg.Timestamp, got.UpdatedAt)
}

func TestAppendMessageIsAtomicOnFailure(t *testing.T) {
	store := NewStore()
	repo := NewChatRepository(store)
	conv := newConversation(t, repo, "alice", "bob")
	writes := store.Writes()

	store.FailNextWrite(apperrors.Unavailable("store unreachable", nil))
	err := repo.AppendMessage(context.Background(), &entity.Message{
		ConversationID: conv.ID, SenderID: "alice", ReceiverID: "bob", Content: text("lost"),
	}, nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsTransient(err))

	got, err := repo.GetConversation(context.Background(), conv.ID)
	require.NoError(t, err)
	assert.Nil(t, got.LastMessage)
	assert.Equal(t, 0, got.UnreadFor("bob"))

	msgs, err := repo.ListMessages(context.Background(), conv.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, msgs)
	assert.Equal(t, writes, store.Writes())
}

func TestListMessagesOrderAndLimit(t *testing.T) {
	store := NewStore()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.SetClock(func() time.Time { return base })
	repo := NewChatRepository(store)
	conv := newConversation(t, repo, "alice", "bob")

	for _, body := range []string{"one", "two", "three"} {
		sendText(t, repo, conv.ID, "alice", "bob", body)
	}

	all, err := repo.ListMessages(context.Background(), conv.ID, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "one", *all[0].Content)
	assert.Equal(t, "three", *all[2].Content)
	assert.True(t, all[0].Timestamp.Before(all[1].Timestamp))

	newest, err := repo.ListMessages(context.Background(), conv.ID, 2)
	require.NoError(t, err)
	require.Len(t, newest, 2)
	assert.Equal(t, "two", *newest[0].Content)
}

func TestMarkReadZeroesCounterAndFlagsMessages(t *testing.T) {
	store := NewStore()
	repo := NewChatRepository(store)
	conv := newConversation(t, repo, "alice", "bob")
	sendText(t, repo, conv.ID, "alice", "bob", "one")
	sendText(t, repo, conv.ID, "alice", "bob", "two")
	sendText(t, repo, conv.ID, "bob", "alice", "reply")

	changed, err := repo.MarkRead(context.Background(), conv.ID, "bob")
	require.NoError(t, err)
	assert.Equal(t, 2, changed)

	got, err := repo.GetConversation(context.Background(), conv.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.UnreadFor("bob"))
	assert.Equal(t, 1, got.UnreadFor("alice"))

	msgs, err := repo.ListMessages(context.Background(), conv.ID, 0)
	require.NoError(t, err)
	for _, m := range msgs {
		assert.Equal(t, m.ReceiverID == "bob", m.Read, "message %s", *m.Content)
	}

	writes := store.Writes()
	changed, err = repo.MarkRead(context.Background(), conv.ID, "bob")
	require.NoError(t, err)
	assert.Zero(t, changed)
	assert.Equal(t, writes, store.Writes())
}

func pendingOffer(t *testing.T, repo repository.ChatRepository, convID, from, to, listingID string, amount float64) *entity.Message {
	t.Helper()
	msg := &entity.Message{
		ConversationID: convID, SenderID: from, ReceiverID: to,
		IsOffer: true, OfferAmount: &amount, ListingID: listingID,
	}
	msg.SetStatus(entity.OfferPending)
	require.NoError(t, repo.AppendMessage(context.Background(), msg, nil))
	return msg
}

func TestApplyOfferTransitionSellsListing(t *testing.T) {
	store := NewStore()
	store.PutListing(&entity.Listing{ID: "l1", UserID: "bob", Price: 200})
	repo := NewChatRepository(store)
	listings := NewListingRepository(store)
	conv := newConversation(t, repo, "alice", "bob")
	offer := pendingOffer(t, repo, conv.ID, "alice", "bob", "l1", 150)

	price := 150.0
	msg, err := repo.ApplyOfferTransition(context.Background(), repository.OfferTransition{
		ConversationID: conv.ID,
		MessageID:      offer.ID,
		Status:         entity.OfferAccepted,
		Sale:           &entity.ListingSale{ListingID: "l1", BuyerID: "alice", Price: &price},
	})
	require.NoError(t, err)
	assert.Equal(t, entity.OfferAccepted, msg.OfferState())

	l, err := listings.GetByID(context.Background(), "l1")
	require.NoError(t, err)
	assert.True(t, l.Sold)
	assert.Equal(t, "alice", l.SoldTo)
	assert.Equal(t, 150.0, l.Price)
	assert.NotNil(t, l.SoldAt)

	got, err := repo.GetConversation(context.Background(), conv.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OfferAccepted, got.LastMessage.OfferState())
}

func TestApplyOfferTransitionGuardAbortsEverything(t *testing.T) {
	store := NewStore()
	store.PutListing(&entity.Listing{ID: "l1", UserID: "bob", Price: 200})
	repo := NewChatRepository(store)
	conv := newConversation(t, repo, "alice", "bob")
	offer := pendingOffer(t, repo, conv.ID, "alice", "bob", "l1", 150)

	refused := errors.New("refused")
	_, err := repo.ApplyOfferTransition(context.Background(), repository.OfferTransition{
		ConversationID: conv.ID,
		MessageID:      offer.ID,
		Status:         entity.OfferAccepted,
		Guard:          func(*entity.Message) error { return refused },
		Sale:           &entity.ListingSale{ListingID: "l1", BuyerID: "alice"},
	})
	assert.ErrorIs(t, err, refused)

	stored, err := repo.GetMessage(context.Background(), conv.ID, offer.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OfferPending, stored.OfferState())

	l, err := NewListingRepository(store).GetByID(context.Background(), "l1")
	require.NoError(t, err)
	assert.False(t, l.Sold)
}

func TestApplyOfferTransitionConflictingSale(t *testing.T) {
	store := NewStore()
	store.PutListing(&entity.Listing{ID: "l1", UserID: "bob", Sold: true, SoldTo: "carol"})
	repo := NewChatRepository(store)
	conv := newConversation(t, repo, "alice", "bob")
	offer := pendingOffer(t, repo, conv.ID, "alice", "bob", "l1", 150)

	_, err := repo.ApplyOfferTransition(context.Background(), repository.OfferTransition{
		ConversationID: conv.ID,
		MessageID:      offer.ID,
		Status:         entity.OfferAccepted,
		Sale:           &entity.ListingSale{ListingID: "l1", BuyerID: "alice"},
	})
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidState))

	stored, err := repo.GetMessage(context.Background(), conv.ID, offer.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OfferPending, stored.OfferState())
}

func TestAppendMessageWithSupersede(t *testing.T) {
	store := NewStore()
	repo := NewChatRepository(store)
	conv := newConversation(t, repo, "alice", "bob")
	original := pendingOffer(t, repo, conv.ID, "alice", "bob", "", 100)

	amount := 120.0
	counter := &entity.Message{
		ConversationID: conv.ID, SenderID: "bob", ReceiverID: "alice",
		IsOffer: true, OfferAmount: &amount, CounterOf: original.ID,
	}
	counter.SetStatus(entity.OfferPending)
	require.NoError(t, repo.AppendMessage(context.Background(), counter, &repository.OfferTransition{
		ConversationID: conv.ID,
		MessageID:      original.ID,
		Status:         entity.OfferCountered,
	}))

	stored, err := repo.GetMessage(context.Background(), conv.ID, original.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OfferCountered, stored.OfferState())

	got, err := repo.GetConversation(context.Background(), conv.ID)
	require.NoError(t, err)
	assert.Equal(t, counter.ID, got.LastMessage.ID)
	assert.Equal(t, 1, got.UnreadFor("alice"))
}

func TestMarkSoldIsConditional(t *testing.T) {
	store := NewStore()
	store.PutListing(&entity.Listing{ID: "l1", UserID: "bob", Price: 200})
	listings := NewListingRepository(store)
	ctx := context.Background()

	applied, err := listings.MarkSold(ctx, entity.ListingSale{ListingID: "l1", BuyerID: "alice"})
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = listings.MarkSold(ctx, entity.ListingSale{ListingID: "l1", BuyerID: "alice"})
	require.NoError(t, err)
	assert.False(t, applied)

	_, err = listings.MarkSold(ctx, entity.ListingSale{ListingID: "l1", BuyerID: "carol"})
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidState))

	_, err = listings.MarkSold(ctx, entity.ListingSale{ListingID: "missing", BuyerID: "alice"})
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))
}

func TestToggleLikeIsSymmetric(t *testing.T) {
	store := NewStore()
	store.PutListing(&entity.Listing{ID: "l1", UserID: "bob", Likes: 4})
	store.PutUser(&entity.User{ID: "alice"})
	likes := NewLikeRepository(store)
	listings := NewListingRepository(store)
	ctx := context.Background()

	delta, err := likes.ToggleLike(ctx, "alice", "l1", false)
	require.NoError(t, err)
	assert.Equal(t, 1, delta)
	liked, err := likes.IsLiked(ctx, "alice", "l1")
	require.NoError(t, err)
	assert.True(t, liked)

	delta, err = likes.ToggleLike(ctx, "alice", "l1", true)
	require.NoError(t, err)
	assert.Equal(t, -1, delta)

	l, err := listings.GetByID(ctx, "l1")
	require.NoError(t, err)
	assert.Equal(t, 4, l.Likes)
	liked, err = likes.IsLiked(ctx, "alice", "l1")
	require.NoError(t, err)
	assert.False(t, liked)
}

func TestToggleLikeChecksStoredMembership(t *testing.T) {
	store := NewStore()
	store.PutListing(&entity.Listing{ID: "l1", UserID: "bob", Likes: 4})
	store.PutUser(&entity.User{ID: "alice"})
	store.PutUser(&entity.User{ID: "carol"})
	likes := NewLikeRepository(store)
	listings := NewListingRepository(store)
	ctx := context.Background()

	delta, err := likes.ToggleLike(ctx, "alice", "l1", false)
	require.NoError(t, err)
	assert.Equal(t, 1, delta)
	delta, err = likes.ToggleLike(ctx, "alice", "l1", false)
	require.NoError(t, err)
	assert.Zero(t, delta)

	delta, err = likes.ToggleLike(ctx, "carol", "l1", true)
	require.NoError(t, err)
	assert.Zero(t, delta)

	l, err := listings.GetByID(ctx, "l1")
	require.NoError(t, err)
	assert.Equal(t, 5, l.Likes)
	u, err := NewUserRepository(store).GetByID(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"l1"}, u.LikedListings)
}

func TestToggleLikeFailureLeavesBothSidesUnchanged(t *testing.T) {
	store := NewStore()
	store.PutListing(&entity.Listing{ID: "l1", UserID: "bob", Likes: 4})
	store.PutUser(&entity.User{ID: "alice"})
	likes := NewLikeRepository(store)
	ctx := context.Background()

	store.FailNextWrite(apperrors.Unavailable("offline", nil))
	_, err := likes.ToggleLike(ctx, "alice", "l1", false)
	require.Error(t, err)

	l, err := NewListingRepository(store).GetByID(ctx, "l1")
	require.NoError(t, err)
	assert.Equal(t, 4, l.Likes)
	liked, err := likes.IsLiked(ctx, "alice", "l1")
	require.NoError(t, err)
	assert.False(t, liked)

	_, err = likes.ToggleLike(ctx, "alice", "missing", false)
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))
}

func TestWatchDeliversOfferChanges(t *testing.T) {
	store := NewStore()
	repo := NewChatRepository(store)
	conv := newConversation(t, repo, "alice", "bob")
	offer := pendingOffer(t, repo, conv.ID, "alice", "bob", "", 100)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan entity.MessageChange, 1)
	done := make(chan error, 1)
	go func() {
		done <- store.Watch(ctx, func(c entity.MessageChange) { got <- c })
	}()

	// Watch registers its hook asynchronously.
	require.Eventually(t, func() bool {
		store.hookMu.RLock()
		defer store.hookMu.RUnlock()
		return len(store.hooks) == 1
	}, time.Second, 5*time.Millisecond)

	_, err := repo.ApplyOfferTransition(context.Background(), repository.OfferTransition{
		ConversationID: conv.ID,
		MessageID:      offer.ID,
		Status:         entity.OfferRejected,
	})
	require.NoError(t, err)

	select {
	case change := <-got:
		assert.Equal(t, offer.ID, change.MessageID)
		assert.Equal(t, entity.OfferPending, change.Before.OfferState())
		assert.Equal(t, entity.OfferRejected, change.After.OfferState())
	case <-time.After(time.Second):
		t.Fatal("no change delivered")
	}

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	store.hookMu.RLock()
	defer store.hookMu.RUnlock()
	assert.Empty(t, store.hooks)
}

func TestOnMessageUpdateUnregister(t *testing.T) {
	store := NewStore()
	repo := NewChatRepository(store)
	conv := newConversation(t, repo, "alice", "bob")
	first := pendingOffer(t, repo, conv.ID, "alice", "bob", "", 100)
	second := pendingOffer(t, repo, conv.ID, "bob", "alice", "", 90)

	var kept, dropped []string
	store.OnMessageUpdate(func(c entity.MessageChange) { kept = append(kept, c.MessageID) })
	unregister := store.OnMessageUpdate(func(c entity.MessageChange) { dropped = append(dropped, c.MessageID) })

	_, err := repo.ApplyOfferTransition(context.Background(), repository.OfferTransition{
		ConversationID: conv.ID,
		MessageID:      first.ID,
		Status:         entity.OfferRejected,
	})
	require.NoError(t, err)

	unregister()
	unregister()

	_, err = repo.ApplyOfferTransition(context.Background(), repository.OfferTransition{
		ConversationID: conv.ID,
		MessageID:      second.ID,
		Status:         entity.OfferRejected,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{first.ID, second.ID}, kept)
	assert.Equal(t, []string{first.ID}, dropped)
}

func TestDeviceTokens(t *testing.T) {
	store := NewStore()
	store.PutUser(&entity.User{ID: "alice"})
	users := NewUserRepository(store)
	ctx := context.Background()

	require.NoError(t, users.AddDeviceToken(ctx, "alice", "phone"))
	require.NoError(t, users.AddDeviceToken(ctx, "alice", "tablet"))
	require.NoError(t, users.AddDeviceToken(ctx, "alice", "phone"))
	assert.True(t, apperrors.Is(users.AddDeviceToken(ctx, "ghost", "x"), apperrors.CodeNotFound))

	u, err := users.GetByID(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"phone", "tablet"}, u.DeviceTokens)

	require.NoError(t, users.RemoveDeviceTokens(ctx, "alice", []string{"phone"}))
	require.NoError(t, users.RemoveDeviceTokens(ctx, "ghost", []string{"phone"}))
	u, err = users.GetByID(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"tablet"}, u.DeviceTokens)
}
