package repository

import (
	"context"

	"campusmart/internal/domain/entity"
)

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*entity.User, error)
	// CreateIfAbsent returns the stored user and whether it was created by this call.
	CreateIfAbsent(ctx context.Context, user *entity.User) (*entity.User, bool, error)
	// AddDeviceToken records a push token for the user. Adding a known token is a no-op.
	AddDeviceToken(ctx context.Context, userID, token string) error
	RemoveDeviceTokens(ctx context.Context, userID string, tokens []string) error
}

// LikeRepository pairs a user's liked set with the listing like counter.
type LikeRepository interface {
	// ToggleLike moves the like to !currentlyLiked: it removes the listing from the
	// liked set and decrements the counter, or adds and increments. Both effects commit
	// together. When the stored membership already matches the target nothing is
	// written and the returned delta is 0.
	ToggleLike(ctx context.Context, userID, listingID string, currentlyLiked bool) (int, error)
	IsLiked(ctx context.Context, userID, listingID string) (bool, error)
}
