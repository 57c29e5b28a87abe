package entity

import (
	"sort"
	"strings"
	"time"
)

// Conversation is the single thread between two users. Its ID is derived from the
// participants so that either side resolves the same document.
type Conversation struct {
	ID           string         `json:"id" firestore:"id"`
	Participants []string       `json:"participants" firestore:"participants"`
	ListingID    string         `json:"listing_id,omitempty" firestore:"listingId,omitempty"`
	LastMessage  *Message       `json:"last_message" firestore:"lastMessage"`
	UnreadCounts map[string]int `json:"unread_counts" firestore:"unreadCounts"`
	CreatedAt    time.Time      `json:"created_at" firestore:"createdAt"`
	UpdatedAt    time.Time      `json:"updated_at" firestore:"updatedAt"`
}

// ConversationID returns the canonical ID for a pair of users. Order does not matter.
func ConversationID(userA, userB string) string {
	ids := []string{userA, userB}
	sort.Strings(ids)
	return strings.Join(ids, "_")
}

// NewConversation builds an empty conversation with zeroed counters for both users.
func NewConversation(selfID, otherID, listingID string) *Conversation {
	return &Conversation{
		ID:           ConversationID(selfID, otherID),
		Participants: []string{selfID, otherID},
		ListingID:    listingID,
		UnreadCounts: map[string]int{selfID: 0, otherID: 0},
	}
}

func (c *Conversation) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// OtherParticipant returns the participant that is not userID, or "" if userID is not
// part of the conversation.
func (c *Conversation) OtherParticipant(userID string) string {
	if !c.HasParticipant(userID) {
		return ""
	}
	for _, p := range c.Participants {
		if p != userID {
			return p
		}
	}
	return ""
}

func (c *Conversation) UnreadFor(userID string) int {
	if c.UnreadCounts == nil {
		return 0
	}
	return c.UnreadCounts[userID]
}
