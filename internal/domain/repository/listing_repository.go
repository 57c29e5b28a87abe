package repository

import (
	"context"

	"campusmart/internal/domain/entity"
)

type ListingRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Listing, error)
	// MarkSold sets sold, soldAt, soldTo and optionally price unless the listing is
	// already sold. Applying the same sale twice is a no-op reporting false; a sale to a
	// different buyer fails with INVALID_STATE.
	MarkSold(ctx context.Context, sale entity.ListingSale) (bool, error)
}
