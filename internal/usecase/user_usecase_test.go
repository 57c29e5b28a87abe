package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ws "campusmart/internal/infrastructure/websocket"
	"campusmart/pkg/errors"
)

func TestEmailAllowed(t *testing.T) {
	edu := NewUserUseCase(nil, ".edu")
	assert.True(t, edu.EmailAllowed("student@campus.edu"))
	assert.True(t, edu.EmailAllowed("Student@Mail.Campus.EDU"))
	assert.False(t, edu.EmailAllowed("someone@gmail.com"))
	assert.False(t, edu.EmailAllowed("someone@edu.com"))
	assert.False(t, edu.EmailAllowed("not-an-email"))
	assert.False(t, edu.EmailAllowed("@campus.edu"))

	school := NewUserUseCase(nil, "mit.edu")
	assert.True(t, school.EmailAllowed("a@mit.edu"))
	assert.True(t, school.EmailAllowed("a@csail.mit.edu"))
	assert.False(t, school.EmailAllowed("a@notmit.edu"))
}

func TestProvisionCreatesOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user, created, err := f.users.Provision(ctx, ProvisionInput{UserID: "u1", Email: "Alice@Campus.edu"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "alice@campus.edu", user.Email)
	assert.Equal(t, "Alice", user.DisplayName)
	assert.NotNil(t, user.LikedListings)
	assert.Empty(t, user.LikedListings)

	again, created, err := f.users.Provision(ctx, ProvisionInput{UserID: "u1", Email: "alice@campus.edu", DisplayName: "Other"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "Alice", again.DisplayName)
}

func TestProvisionRejectsOutsideDomain(t *testing.T) {
	f := newFixture(t)

	_, _, err := f.users.Provision(context.Background(), ProvisionInput{UserID: "u1", Email: "alice@gmail.com"})
	assert.True(t, errors.Is(err, errors.CodeValidation))
	assert.Zero(t, f.store.Writes())
}

func TestRegisterDevice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.users.RegisterDevice(ctx, "u1", "token-1")
	assert.True(t, errors.Is(err, errors.CodeNotFound))

	_, _, err = f.users.Provision(ctx, ProvisionInput{UserID: "u1", Email: "u1@campus.edu"})
	require.NoError(t, err)

	assert.True(t, errors.Is(f.users.RegisterDevice(ctx, "u1", "  "), errors.CodeValidation))
	require.NoError(t, f.users.RegisterDevice(ctx, "u1", "token-1"))
	require.NoError(t, f.users.RegisterDevice(ctx, "u1", " token-1 "))

	user, err := f.users.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"token-1"}, user.DeviceTokens)
}

func TestNotifiersFanOut(t *testing.T) {
	a, b := &recordingNotifier{}, &recordingNotifier{}
	Notifiers{a, b}.Notify(context.Background(), []string{"u1"}, ws.Event{Type: ws.EventOfferAccepted})

	assert.Equal(t, []string{ws.EventOfferAccepted}, a.types())
	assert.Equal(t, []string{ws.EventOfferAccepted}, b.types())
}
