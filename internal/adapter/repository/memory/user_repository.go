package memory

import (
	"context"

	"campusmart/internal/domain/entity"
	"campusmart/internal/domain/repository"
	"campusmart/pkg/errors"
)

type userRepository struct {
	store *Store
}

func NewUserRepository(store *Store) repository.UserRepository {
	return &userRepository{store: store}
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, errors.NotFound("User", nil)
	}
	return cloneUser(u), nil
}

func (r *userRepository) CreateIfAbsent(ctx context.Context, user *entity.User) (*entity.User, bool, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.users[user.ID]; ok {
		return cloneUser(existing), false, nil
	}
	if err := s.begin(); err != nil {
		return nil, false, err
	}
	stored := cloneUser(user)
	stored.CreatedAt = s.tick()
	s.users[stored.ID] = stored
	return cloneUser(stored), true, nil
}

func (r *userRepository) AddDeviceToken(ctx context.Context, userID, token string) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return errors.NotFound("User", nil)
	}
	for _, t := range u.DeviceTokens {
		if t == token {
			return nil
		}
	}
	if err := s.begin(); err != nil {
		return err
	}
	u.DeviceTokens = append(u.DeviceTokens, token)
	return nil
}

func (r *userRepository) RemoveDeviceTokens(ctx context.Context, userID string, tokens []string) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok || len(tokens) == 0 {
		return nil
	}
	if err := s.begin(); err != nil {
		return err
	}
	drop := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		drop[t] = true
	}
	kept := u.DeviceTokens[:0]
	for _, t := range u.DeviceTokens {
		if !drop[t] {
			kept = append(kept, t)
		}
	}
	u.DeviceTokens = kept
	return nil
}

type likeRepository struct {
	store *Store
}

func NewLikeRepository(store *Store) repository.LikeRepository {
	return &likeRepository{store: store}
}

func (r *likeRepository) ToggleLike(ctx context.Context, userID, listingID string, currentlyLiked bool) (int, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return 0, errors.NotFound("User", nil)
	}
	l, ok := s.listings[listingID]
	if !ok {
		return 0, errors.NotFound("Listing", nil)
	}
	if u.HasLiked(listingID) != currentlyLiked {
		return 0, nil
	}
	if err := s.begin(); err != nil {
		return 0, err
	}

	if currentlyLiked {
		kept := u.LikedListings[:0]
		for _, id := range u.LikedListings {
			if id != listingID {
				kept = append(kept, id)
			}
		}
		u.LikedListings = kept
		l.Likes--
		return -1, nil
	}

	u.LikedListings = append(u.LikedListings, listingID)
	l.Likes++
	return 1, nil
}

func (r *likeRepository) IsLiked(ctx context.Context, userID, listingID string) (bool, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[userID]
	if !ok {
		return false, nil
	}
	return u.HasLiked(listingID), nil
}
