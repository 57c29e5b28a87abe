package client

import (
	"context"

	"campusmart/internal/domain/entity"
	"campusmart/pkg/optimistic"
	"campusmart/pkg/utils"
)

// LikeState is what a like button shows.
type LikeState struct {
	Liked bool
	Count int
}

func (s LikeState) Label() string {
	return utils.LikeLabel(s.Count)
}

// LikeButton keeps a listing's like state in sync with the server, updating it before
// the request completes.
type LikeButton struct {
	client    *Client
	listingID string
	state     *optimistic.Value[LikeState]
}

func NewLikeButton(c *Client, listingID string, initial LikeState) *LikeButton {
	return &LikeButton{client: c, listingID: listingID, state: optimistic.NewValue(initial)}
}

func (b *LikeButton) State() LikeState {
	return b.state.Get()
}

// Toggle flips the like immediately. If the server rejects it the previous state is
// restored and the error returned.
func (b *LikeButton) Toggle(ctx context.Context) error {
	current := b.state.Get()
	delta := 1
	if current.Liked {
		delta = -1
	}

	update := optimistic.Update[LikeState]{
		Apply: func(s LikeState) LikeState {
			return LikeState{Liked: !s.Liked, Count: max(0, s.Count+delta)}
		},
		Revert: func(LikeState) LikeState { return current },
	}

	var confirmed *LikeStatus
	err := optimistic.Do(ctx, b.state, update, func(ctx context.Context) error {
		var err error
		confirmed, err = b.client.ToggleLike(ctx, b.listingID, current.Liked)
		return err
	})
	if err != nil {
		return err
	}
	next := b.state.Get()
	next.Liked = confirmed.Liked
	switch {
	case confirmed.Likes != nil:
		next.Count = *confirmed.Likes
	case confirmed.Delta == 0:
		next.Count = current.Count
	}
	b.state.Set(next)
	return nil
}

// OfferView tracks the status of one offer as shown to a participant.
type OfferView struct {
	client         *Client
	conversationID string
	messageID      string
	status         *optimistic.Value[entity.OfferStatus]
}

func NewOfferView(c *Client, conversationID, messageID string, status entity.OfferStatus) *OfferView {
	return &OfferView{
		client:         c,
		conversationID: conversationID,
		messageID:      messageID,
		status:         optimistic.NewValue(status),
	}
}

func (v *OfferView) Status() entity.OfferStatus {
	return v.status.Get()
}

// Respond shows the new status at once and restores the previous one if the server
// refuses the transition.
func (v *OfferView) Respond(ctx context.Context, action OfferAction) error {
	return optimistic.Do(ctx, v.status, optimistic.Replace(action.status()), func(ctx context.Context) error {
		_, err := v.client.RespondToOffer(ctx, v.conversationID, v.messageID, action)
		return err
	})
}
