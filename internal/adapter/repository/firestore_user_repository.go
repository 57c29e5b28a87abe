package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"

	"campusmart/internal/domain/entity"
	"campusmart/internal/domain/repository"
	"campusmart/pkg/errors"
	"campusmart/pkg/logger"
)

type firestoreUserRepository struct {
	client *firestore.Client
}

func NewFirestoreUserRepository(client *firestore.Client) repository.UserRepository {
	return &firestoreUserRepository{client: client}
}

func (r *firestoreUserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	doc, err := r.client.Collection(usersCollection).Doc(id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, errors.NotFound("User", err)
		}
		return nil, storeError("Failed to get user", err)
	}

	var user entity.User
	if err := doc.DataTo(&user); err != nil {
		return nil, errors.Internal("Failed to parse user data", err)
	}
	user.ID = doc.Ref.ID
	return &user, nil
}

func (r *firestoreUserRepository) CreateIfAbsent(ctx context.Context, user *entity.User) (*entity.User, bool, error) {
	ref := r.client.Collection(usersCollection).Doc(user.ID)
	var stored entity.User
	created := false

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		created = false
		doc, err := tx.Get(ref)
		if err == nil {
			return doc.DataTo(&stored)
		}
		if !isNotFound(err) {
			return err
		}

		created = true
		return tx.Create(ref, userFields(user))
	})
	if err != nil {
		return nil, false, storeError("Failed to create user", err)
	}
	if !created {
		return &stored, false, nil
	}

	readBack, err := r.GetByID(ctx, user.ID)
	if err != nil {
		logger.Warn("User %s created but not readable yet: %v", user.ID, err)
		stored = *user
		if stored.LikedListings == nil {
			stored.LikedListings = []string{}
		}
		stored.CreatedAt = time.Now().UTC()
		return &stored, true, nil
	}
	return readBack, true, nil
}

func (r *firestoreUserRepository) AddDeviceToken(ctx context.Context, userID, token string) error {
	_, err := r.client.Collection(usersCollection).Doc(userID).Update(ctx, []firestore.Update{
		{Path: "deviceTokens", Value: firestore.ArrayUnion(token)},
	})
	if err != nil {
		if isNotFound(err) {
			return errors.NotFound("User", err)
		}
		return storeError("Failed to register device", err)
	}
	return nil
}

func (r *firestoreUserRepository) RemoveDeviceTokens(ctx context.Context, userID string, tokens []string) error {
	if len(tokens) == 0 {
		return nil
	}
	values := make([]interface{}, len(tokens))
	for i, t := range tokens {
		values[i] = t
	}
	_, err := r.client.Collection(usersCollection).Doc(userID).Update(ctx, []firestore.Update{
		{Path: "deviceTokens", Value: firestore.ArrayRemove(values...)},
	})
	if err != nil && !isNotFound(err) {
		return storeError("Failed to remove devices", err)
	}
	return nil
}
