package repository

import (
	"cloud.google.com/go/firestore"

	"campusmart/internal/domain/entity"
)

// Document builders for writes whose timestamps the server assigns. Read the document
// back after commit to see the stored values.

func messageFields(m *entity.Message) map[string]interface{} {
	fields := map[string]interface{}{
		"id":             m.ID,
		"conversationId": m.ConversationID,
		"senderId":       m.SenderID,
		"receiverId":     m.ReceiverID,
		"content":        nil,
		"timestamp":      firestore.ServerTimestamp,
		"isOffer":        m.IsOffer,
		"offerAmount":    nil,
		"read":           m.Read,
		"status":         nil,
	}
	if m.Content != nil {
		fields["content"] = *m.Content
	}
	if m.OfferAmount != nil {
		fields["offerAmount"] = *m.OfferAmount
	}
	if m.Status != nil {
		fields["status"] = string(*m.Status)
	}
	if m.ListingID != "" {
		fields["listingId"] = m.ListingID
	}
	if m.CounterOf != "" {
		fields["counterOf"] = m.CounterOf
	}
	return fields
}

func conversationFields(c *entity.Conversation) map[string]interface{} {
	unread := make(map[string]interface{}, len(c.UnreadCounts))
	for id, n := range c.UnreadCounts {
		unread[id] = n
	}
	fields := map[string]interface{}{
		"id":           c.ID,
		"participants": c.Participants,
		"lastMessage":  nil,
		"unreadCounts": unread,
		"createdAt":    firestore.ServerTimestamp,
		"updatedAt":    firestore.ServerTimestamp,
	}
	if c.ListingID != "" {
		fields["listingId"] = c.ListingID
	}
	return fields
}

func userFields(u *entity.User) map[string]interface{} {
	liked := u.LikedListings
	if liked == nil {
		liked = []string{}
	}
	fields := map[string]interface{}{
		"id":            u.ID,
		"email":         u.Email,
		"displayName":   u.DisplayName,
		"likedListings": liked,
		"createdAt":     firestore.ServerTimestamp,
	}
	if u.PhotoURL != "" {
		fields["photoURL"] = u.PhotoURL
	}
	if len(u.DeviceTokens) > 0 {
		fields["deviceTokens"] = u.DeviceTokens
	}
	return fields
}

func saleUpdates(sale entity.ListingSale) []firestore.Update {
	updates := []firestore.Update{
		{Path: "sold", Value: true},
		{Path: "soldAt", Value: firestore.ServerTimestamp},
		{Path: "soldTo", Value: sale.BuyerID},
		{Path: "updatedAt", Value: firestore.ServerTimestamp},
	}
	if sale.Price != nil && *sale.Price > 0 {
		updates = append(updates, firestore.Update{Path: "price", Value: *sale.Price})
	}
	return updates
}
