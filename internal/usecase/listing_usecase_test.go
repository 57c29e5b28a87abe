package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusmart/internal/domain/entity"
	"campusmart/pkg/errors"
)

func TestOwnerMarksListingSold(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.PutListing(&entity.Listing{ID: "L", UserID: "bob", Price: 200})

	_, err := f.listings.MarkSold(ctx, "alice", "L", MarkSoldInput{Price: amount(150), SoldTo: "alice"})
	assert.True(t, errors.Is(err, errors.CodeForbidden))

	_, err = f.listings.MarkSold(ctx, "bob", "L", MarkSoldInput{Price: amount(-5)})
	assert.True(t, errors.Is(err, errors.CodeValidation))

	result, err := f.listings.MarkSold(ctx, "bob", "L", MarkSoldInput{Price: amount(175), SoldTo: "alice"})
	require.NoError(t, err)
	assert.True(t, result.Applied)
	assert.True(t, result.Listing.Sold)
	assert.Equal(t, 175.0, result.Listing.Price)
	assert.Equal(t, "alice", result.Listing.SoldTo)

	again, err := f.listings.MarkSold(ctx, "bob", "L", MarkSoldInput{SoldTo: "alice"})
	require.NoError(t, err)
	assert.False(t, again.Applied)

	_, err = f.listings.MarkSold(ctx, "bob", "L", MarkSoldInput{SoldTo: "carol"})
	assert.True(t, errors.Is(err, errors.CodeInvalidState))
}
