package repository

import (
	"context"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"campusmart/internal/domain/entity"
	"campusmart/internal/domain/repository"
)

// ChangeSource streams message changes. Implemented by FirestoreMessageWatcher and the
// memory store.
type ChangeSource interface {
	Watch(ctx context.Context, fn func(entity.MessageChange)) error
}

// Repositories is everything a binary needs from one store.
type Repositories struct {
	Chat    repository.ChatRepository
	Listing repository.ListingRepository
	User    repository.UserRepository
	Like    repository.LikeRepository
	Changes ChangeSource
	Ping    func(ctx context.Context) error
}

func NewFirestoreRepositories(client *firestore.Client) *Repositories {
	return &Repositories{
		Chat:    NewFirestoreChatRepository(client),
		Listing: NewFirestoreListingRepository(client),
		User:    NewFirestoreUserRepository(client),
		Like:    NewFirestoreLikeRepository(client),
		Changes: NewFirestoreMessageWatcher(client),
		Ping: func(ctx context.Context) error {
			_, err := client.Collection(listingsCollection).Limit(1).Documents(ctx).Next()
			if err != nil && err != iterator.Done {
				return storeError("Firestore is unreachable", err)
			}
			return nil
		},
	}
}
