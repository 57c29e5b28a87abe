package repository

import (
	"context"

	"cloud.google.com/go/firestore"

	"campusmart/internal/domain/entity"
	"campusmart/internal/domain/repository"
	"campusmart/pkg/errors"
)

type firestoreListingRepository struct {
	client *firestore.Client
}

func NewFirestoreListingRepository(client *firestore.Client) repository.ListingRepository {
	return &firestoreListingRepository{client: client}
}

func (r *firestoreListingRepository) GetByID(ctx context.Context, id string) (*entity.Listing, error) {
	doc, err := r.client.Collection(listingsCollection).Doc(id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, errors.NotFound("Listing", err)
		}
		return nil, storeError("Failed to get listing", err)
	}

	var listing entity.Listing
	if err := doc.DataTo(&listing); err != nil {
		return nil, errors.Internal("Failed to parse listing data", err)
	}
	listing.ID = doc.Ref.ID
	return &listing, nil
}

func (r *firestoreListingRepository) MarkSold(ctx context.Context, sale entity.ListingSale) (bool, error) {
	ref := r.client.Collection(listingsCollection).Doc(sale.ListingID)
	applied := false

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		applied = false
		doc, err := tx.Get(ref)
		if err != nil {
			if isNotFound(err) {
				return errors.NotFound("Listing", err)
			}
			return err
		}
		var listing entity.Listing
		if err := doc.DataTo(&listing); err != nil {
			return err
		}

		switch listing.SaleOutcome(sale.BuyerID) {
		case entity.SaleNoop:
			return nil
		case entity.SaleConflict:
			return errors.InvalidState("listing is already sold")
		}

		applied = true
		return tx.Update(ref, saleUpdates(sale))
	})
	if err != nil {
		return false, storeError("Failed to mark listing as sold", err)
	}
	return applied, nil
}
