package repository

import (
	"testing"

	"cloud.google.com/go/firestore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusmart/internal/domain/entity"
)

func updateValues(updates []firestore.Update) map[string]interface{} {
	values := make(map[string]interface{}, len(updates))
	for _, u := range updates {
		values[u.Path] = u.Value
	}
	return values
}

func TestMessageFieldsUseServerTimestamp(t *testing.T) {
	content := "is this still available?"
	msg := &entity.Message{
		ID:             "m1",
		ConversationID: "alice_bob",
		SenderID:       "alice",
		ReceiverID:     "bob",
		Content:        &content,
	}

	fields := messageFields(msg)
	assert.Equal(t, firestore.ServerTimestamp, fields["timestamp"])
	assert.Equal(t, content, fields["content"])
	assert.Nil(t, fields["status"])
	assert.Nil(t, fields["offerAmount"])
	assert.NotContains(t, fields, "listingId")
	assert.NotContains(t, fields, "counterOf")
}

func TestOfferMessageFieldsFlattenPointers(t *testing.T) {
	amount := 45.0
	msg := &entity.Message{
		ID:          "m2",
		IsOffer:     true,
		OfferAmount: &amount,
		ListingID:   "L",
		CounterOf:   "m1",
	}
	msg.SetStatus(entity.OfferPending)

	fields := messageFields(msg)
	assert.Equal(t, 45.0, fields["offerAmount"])
	assert.Equal(t, "pending", fields["status"])
	assert.Equal(t, "L", fields["listingId"])
	assert.Equal(t, "m1", fields["counterOf"])
	assert.Nil(t, fields["content"])
}

func TestConversationAndUserFieldsUseServerTimestamp(t *testing.T) {
	conv := conversationFields(entity.NewConversation("alice", "bob", "L"))
	assert.Equal(t, firestore.ServerTimestamp, conv["createdAt"])
	assert.Equal(t, firestore.ServerTimestamp, conv["updatedAt"])
	assert.Equal(t, map[string]interface{}{"alice": 0, "bob": 0}, conv["unreadCounts"])
	assert.Equal(t, "L", conv["listingId"])

	user := userFields(&entity.User{ID: "alice", Email: "alice@uni.edu"})
	assert.Equal(t, firestore.ServerTimestamp, user["createdAt"])
	assert.Equal(t, []string{}, user["likedListings"])
	assert.NotContains(t, user, "deviceTokens")
}

func TestSaleUpdatesUseServerTimestamp(t *testing.T) {
	price := 70.0
	values := updateValues(saleUpdates(entity.ListingSale{ListingID: "L", BuyerID: "alice", Price: &price}))
	assert.Equal(t, firestore.ServerTimestamp, values["soldAt"])
	assert.Equal(t, firestore.ServerTimestamp, values["updatedAt"])
	assert.Equal(t, "alice", values["soldTo"])
	assert.Equal(t, 70.0, values["price"])

	zero := 0.0
	values = updateValues(saleUpdates(entity.ListingSale{ListingID: "L", BuyerID: "alice", Price: &zero}))
	assert.NotContains(t, values, "price")
}

func TestLikeUpdatesPickArrayTransform(t *testing.T) {
	like := likeUpdates("L", false)
	require.Len(t, like, 1)
	assert.Equal(t, "likedListings", like[0].Path)
	assert.Equal(t, firestore.ArrayUnion("L"), like[0].Value)

	unlike := likeUpdates("L", true)
	require.Len(t, unlike, 1)
	assert.Equal(t, firestore.ArrayRemove("L"), unlike[0].Value)
}
