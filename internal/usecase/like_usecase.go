package usecase

import (
	"context"

	"campusmart/internal/domain/repository"
	"campusmart/internal/infrastructure/metrics"
	"campusmart/internal/infrastructure/ratelimit"
	"campusmart/pkg/errors"
	"campusmart/pkg/logger"
	"campusmart/pkg/utils"
)

type LikeUseCase struct {
	likeRepo    repository.LikeRepository
	listingRepo repository.ListingRepository
	rateLimiter *ratelimit.RateLimiter
}

func NewLikeUseCase(
	likeRepo repository.LikeRepository,
	listingRepo repository.ListingRepository,
	rateLimiter *ratelimit.RateLimiter,
) *LikeUseCase {
	return &LikeUseCase{
		likeRepo:    likeRepo,
		listingRepo: listingRepo,
		rateLimiter: rateLimiter,
	}
}

type LikeResponse struct {
	ListingID string `json:"listing_id"`
	Liked     bool   `json:"liked"`
	Delta     int    `json:"delta,omitempty"`
	Likes     *int   `json:"likes,omitempty"`
	Label     string `json:"label,omitempty"`
}

// ToggleLike flips the caller's like on a listing. currentlyLiked is the state the
// caller last observed.
func (uc *LikeUseCase) ToggleLike(ctx context.Context, userID, listingID string, currentlyLiked bool) (*LikeResponse, error) {
	if listingID == "" {
		return nil, errors.Validation("Listing is required")
	}
	if allowed, wait := uc.rateLimiter.Allow(userID, ratelimit.ActionToggleLike); !allowed {
		logger.Warn("ToggleLike rate limited: user %s must wait %v", userID, wait)
		return nil, errors.TooManyRequests("Rate limit exceeded. Please slow down")
	}

	delta, err := uc.likeRepo.ToggleLike(ctx, userID, listingID, currentlyLiked)
	if err != nil {
		return nil, err
	}

	switch {
	case delta > 0:
		metrics.LikesToggled.WithLabelValues("like").Inc()
	case delta < 0:
		metrics.LikesToggled.WithLabelValues("unlike").Inc()
	}

	// The stored state is !currentlyLiked whether or not this call wrote it.
	resp := &LikeResponse{ListingID: listingID, Liked: !currentlyLiked, Delta: delta}
	listing, err := uc.listingRepo.GetByID(ctx, listingID)
	if err != nil {
		logger.Warn("ToggleLike: could not reload listing %s: %v", listingID, err)
		return resp, nil
	}
	likes := max(0, listing.Likes)
	resp.Likes = &likes
	resp.Label = utils.LikeLabel(likes)
	return resp, nil
}

func (uc *LikeUseCase) GetLikeStatus(ctx context.Context, userID, listingID string) (*LikeResponse, error) {
	listing, err := uc.listingRepo.GetByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	liked, err := uc.likeRepo.IsLiked(ctx, userID, listingID)
	if err != nil {
		return nil, err
	}

	likes := max(0, listing.Likes)
	return &LikeResponse{
		ListingID: listingID,
		Liked:     liked,
		Likes:     &likes,
		Label:     utils.LikeLabel(likes),
	}, nil
}
