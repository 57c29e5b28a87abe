package usecase

import (
	"context"
	"strings"

	"campusmart/internal/domain/entity"
	"campusmart/internal/domain/repository"
	"campusmart/pkg/errors"
	"campusmart/pkg/logger"
)

type UserUseCase struct {
	userRepo      repository.UserRepository
	allowedDomain string
}

func NewUserUseCase(userRepo repository.UserRepository, allowedDomain string) *UserUseCase {
	return &UserUseCase{
		userRepo:      userRepo,
		allowedDomain: strings.ToLower(allowedDomain),
	}
}

type ProvisionInput struct {
	UserID      string
	Email       string
	DisplayName string
	PhotoURL    string
}

// EmailAllowed reports whether email belongs to the configured domain. A domain with a
// leading dot (".edu") matches any host under it; otherwise the host must equal it or be
// a subdomain of it.
func (uc *UserUseCase) EmailAllowed(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return false
	}
	host := email[at+1:]

	want := strings.TrimPrefix(uc.allowedDomain, "@")
	switch {
	case want == "":
		return true
	case strings.HasPrefix(want, "."):
		return strings.HasSuffix(host, want)
	default:
		return host == want || strings.HasSuffix(host, "."+want)
	}
}

// Provision creates the user document on first sign-in and returns the stored user.
func (uc *UserUseCase) Provision(ctx context.Context, input ProvisionInput) (*entity.User, bool, error) {
	if input.UserID == "" {
		return nil, false, errors.Unauthorized("Authentication required", nil)
	}
	if !uc.EmailAllowed(input.Email) {
		return nil, false, errors.Validation("Please use your " + uc.allowedDomain + " email address")
	}

	displayName := strings.TrimSpace(input.DisplayName)
	if displayName == "" {
		displayName = strings.Split(input.Email, "@")[0]
	}

	user, created, err := uc.userRepo.CreateIfAbsent(ctx, &entity.User{
		ID:            input.UserID,
		Email:         strings.ToLower(strings.TrimSpace(input.Email)),
		DisplayName:   displayName,
		PhotoURL:      input.PhotoURL,
		LikedListings: []string{},
	})
	if err != nil {
		logger.Error("Provision: user %s: %v", input.UserID, err)
		return nil, false, err
	}
	if created {
		logger.Info("Provisioned user %s", input.UserID)
	}
	return user, created, nil
}

func (uc *UserUseCase) GetUser(ctx context.Context, userID string) (*entity.User, error) {
	return uc.userRepo.GetByID(ctx, userID)
}

// RegisterDevice stores a push token so offer notifications reach the user's devices.
func (uc *UserUseCase) RegisterDevice(ctx context.Context, userID, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.Validation("Device token is required")
	}
	if err := uc.userRepo.AddDeviceToken(ctx, userID, token); err != nil {
		logger.Error("RegisterDevice: user %s: %v", userID, err)
		return err
	}
	return nil
}
