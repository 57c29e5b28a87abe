package entity

import "time"

type OfferStatus string

const (
	OfferPending   OfferStatus = "pending"
	OfferAccepted  OfferStatus = "accepted"
	OfferRejected  OfferStatus = "rejected"
	OfferRescinded OfferStatus = "rescinded"
	OfferCountered OfferStatus = "countered"
)

// Message lives in the messages sub-collection of its conversation. Only Read and
// Status change after creation.
type Message struct {
	ID             string       `json:"id" firestore:"id"`
	ConversationID string       `json:"conversation_id" firestore:"conversationId"`
	SenderID       string       `json:"sender_id" firestore:"senderId"`
	ReceiverID     string       `json:"receiver_id" firestore:"receiverId"`
	Content        *string      `json:"content" firestore:"content"`
	Timestamp      time.Time    `json:"timestamp" firestore:"timestamp"`
	IsOffer        bool         `json:"is_offer" firestore:"isOffer"`
	OfferAmount    *float64     `json:"offer_amount" firestore:"offerAmount"`
	ListingID      string       `json:"listing_id,omitempty" firestore:"listingId,omitempty"`
	Read           bool         `json:"read" firestore:"read"`
	Status         *OfferStatus `json:"status" firestore:"status"`
	CounterOf      string       `json:"counter_of,omitempty" firestore:"counterOf,omitempty"`
}

// OfferState returns the offer status, or "" for plain messages.
func (m *Message) OfferState() OfferStatus {
	if m == nil || !m.IsOffer || m.Status == nil {
		return ""
	}
	return *m.Status
}

func (m *Message) IsPendingOffer() bool {
	return m.OfferState() == OfferPending
}

func (m *Message) SetStatus(status OfferStatus) {
	s := status
	m.Status = &s
}

// Clone returns a copy that shares no pointers with m.
func (m *Message) Clone() *Message {
	if m == nil {
		return nil
	}
	cp := *m
	if m.Content != nil {
		content := *m.Content
		cp.Content = &content
	}
	if m.OfferAmount != nil {
		amount := *m.OfferAmount
		cp.OfferAmount = &amount
	}
	if m.Status != nil {
		status := *m.Status
		cp.Status = &status
	}
	return &cp
}

// MessageChange is an update observed on a stored message, as delivered to triggers.
type MessageChange struct {
	ConversationID string
	MessageID      string
	Before         *Message
	After          *Message
}

// NewlyAccepted reports whether the change moved an offer into the accepted state.
func (c MessageChange) NewlyAccepted() bool {
	if c.After == nil || !c.After.IsOffer || c.After.OfferState() != OfferAccepted {
		return false
	}
	return c.Before.OfferState() != OfferAccepted
}
