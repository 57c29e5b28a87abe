package repository

import (
	"context"

	"cloud.google.com/go/firestore"

	"campusmart/internal/domain/entity"
	"campusmart/internal/domain/repository"
	"campusmart/pkg/errors"
	"campusmart/pkg/logger"
)

type firestoreLikeRepository struct {
	client *firestore.Client
}

func NewFirestoreLikeRepository(client *firestore.Client) repository.LikeRepository {
	return &firestoreLikeRepository{client: client}
}

func (r *firestoreLikeRepository) ToggleLike(ctx context.Context, userID, listingID string, currentlyLiked bool) (int, error) {
	userRef := r.client.Collection(usersCollection).Doc(userID)
	listingRef := r.client.Collection(listingsCollection).Doc(listingID)

	var delta int
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		delta = 0
		userDoc, err := tx.Get(userRef)
		if err != nil {
			return err
		}
		if _, err := tx.Get(listingRef); err != nil {
			return err
		}

		var user entity.User
		if err := userDoc.DataTo(&user); err != nil {
			return err
		}
		if user.HasLiked(listingID) != currentlyLiked {
			return nil
		}

		updates := likeUpdates(listingID, currentlyLiked)
		delta = 1
		if currentlyLiked {
			delta = -1
		}
		if err := tx.Update(userRef, updates); err != nil {
			return err
		}
		return tx.Update(listingRef, []firestore.Update{
			{Path: "likes", Value: firestore.Increment(delta)},
		})
	})
	if err != nil {
		if isNotFound(err) {
			return 0, errors.NotFound("Listing or user", err)
		}
		logger.Error("ToggleLike: user %s listing %s: %v", userID, listingID, err)
		return 0, storeError("Failed to update like", err)
	}

	logger.Debug("Applied like delta %d for user %s on listing %s", delta, userID, listingID)
	return delta, nil
}

func likeUpdates(listingID string, unlike bool) []firestore.Update {
	if unlike {
		return []firestore.Update{{Path: "likedListings", Value: firestore.ArrayRemove(listingID)}}
	}
	return []firestore.Update{{Path: "likedListings", Value: firestore.ArrayUnion(listingID)}}
}

func (r *firestoreLikeRepository) IsLiked(ctx context.Context, userID, listingID string) (bool, error) {
	doc, err := r.client.Collection(usersCollection).Doc(userID).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, storeError("Failed to check like status", err)
	}

	liked, err := doc.DataAt("likedListings")
	if err != nil {
		// Users created before likes existed have no such field.
		return false, nil
	}
	ids, _ := liked.([]interface{})
	for _, id := range ids {
		if id == listingID {
			return true, nil
		}
	}
	return false, nil
}
