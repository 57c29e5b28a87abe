package memory

import (
	"context"

	"campusmart/internal/domain/entity"
	"campusmart/internal/domain/repository"
	"campusmart/pkg/errors"
)

type listingRepository struct {
	store *Store
}

func NewListingRepository(store *Store) repository.ListingRepository {
	return &listingRepository{store: store}
}

func (r *listingRepository) GetByID(ctx context.Context, id string) (*entity.Listing, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.listings[id]
	if !ok {
		return nil, errors.NotFound("Listing", nil)
	}
	cp := *l
	return &cp, nil
}

func (r *listingRepository) MarkSold(ctx context.Context, sale entity.ListingSale) (bool, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.listings[sale.ListingID]
	if !ok {
		return false, errors.NotFound("Listing", nil)
	}
	switch l.SaleOutcome(sale.BuyerID) {
	case entity.SaleNoop:
		return false, nil
	case entity.SaleConflict:
		return false, errors.InvalidState("listing is already sold")
	}

	if err := s.begin(); err != nil {
		return false, err
	}
	sale.At = s.tick()
	l.Apply(sale)
	return true, nil
}
