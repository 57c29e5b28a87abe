package usecase

import (
	"context"

	"campusmart/internal/domain/entity"
	"campusmart/internal/domain/repository"
	"campusmart/internal/infrastructure/metrics"
	"campusmart/pkg/errors"
	"campusmart/pkg/logger"
)

type ListingUseCase struct {
	listingRepo repository.ListingRepository
}

func NewListingUseCase(listingRepo repository.ListingRepository) *ListingUseCase {
	return &ListingUseCase{listingRepo: listingRepo}
}

type MarkSoldInput struct {
	Price  *float64
	SoldTo string
}

type MarkSoldResponse struct {
	Listing *entity.Listing `json:"listing"`
	Applied bool            `json:"applied"`
}

// MarkSold records a sale confirmed by the listing owner outside the offer flow.
func (uc *ListingUseCase) MarkSold(ctx context.Context, userID, listingID string, input MarkSoldInput) (*MarkSoldResponse, error) {
	if input.Price != nil && *input.Price <= 0 {
		return nil, errors.Validation("Sold price must be positive")
	}

	listing, err := uc.listingRepo.GetByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing.UserID != userID {
		return nil, errors.Forbidden("only the owner can mark a listing as sold", nil)
	}
	if input.SoldTo == userID {
		return nil, errors.Validation("You cannot sell a listing to yourself")
	}

	applied, err := uc.listingRepo.MarkSold(ctx, entity.ListingSale{
		ListingID: listingID,
		BuyerID:   input.SoldTo,
		Price:     input.Price,
	})
	if err != nil {
		logger.Error("MarkSold: listing %s: %v", listingID, err)
		return nil, err
	}
	if applied {
		metrics.ListingsSold.WithLabelValues("manual").Inc()
		logger.Info("Listing %s marked sold by owner %s", listingID, userID)
	}

	listing, err = uc.listingRepo.GetByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	return &MarkSoldResponse{Listing: listing, Applied: applied}, nil
}
