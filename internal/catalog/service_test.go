package catalog

import (
	"context"
	"strings"
	"testing"

	"github.com/agoralabs/marketplace-settlement/internal/domain"
	"github.com/agoralabs/marketplace-settlement/internal/identity"
	"github.com/agoralabs/marketplace-settlement/internal/models"
	"github.com/agoralabs/marketplace-settlement/internal/repository"
	"github.com/agoralabs/marketplace-settlement/internal/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	sellerAddr    = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	strangerAddr  = "0xdddddddddddddddddddddddddddddddddddddddd"
	authorityAddr = "0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee"

	validCID = "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG"
)

func newTestService(t *testing.T) (*Service, *repository.MemoryStore) {
	t.Helper()
	store := repository.NewMemoryStore()
	identities := identity.NewService(store, authorityAddr)
	currencies := token.NewRegistry(store, authorityAddr, "ETH")
	svc := NewService(store, identities, currencies)

	require.NoError(t, store.Queries().UpsertProfile(context.Background(), &models.Profile{
		Address: sellerAddr, Username: "seller",
	}))
	return svc, store
}

func validInput() ItemInput {
	return ItemInput{
		PriceAmount: 1_000_000,
		Currency:    "ETH",
		Title:       "vintage camera",
		Description: "lightly used",
		PhotoHashes: []string{validCID},
		Condition:   "used",
		Category:    "electronics",
		Country:     "DE",
	}
}

func TestListNewItem(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	item, err := svc.ListNewItem(ctx, sellerAddr, validInput())
	require.NoError(t, err)
	assert.NotZero(t, item.ID)
	assert.Equal(t, domain.ItemStatusListed, item.Status)
	assert.Equal(t, sellerAddr, item.Seller)

	got, err := svc.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "vintage camera", got.Title)
}

func TestListNewItem_Validation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*ItemInput)
		want   error
	}{
		{"zero_price", func(in *ItemInput) { in.PriceAmount = 0 }, domain.ErrInvalidAmount},
		{"negative_price", func(in *ItemInput) { in.PriceAmount = -5 }, domain.ErrInvalidAmount},
		{"bad_photo_hash", func(in *ItemInput) { in.PhotoHashes = []string{"bogus"} }, domain.ErrNotIPFSHash},
		{"unknown_currency", func(in *ItemInput) { in.Currency = "XYZ" }, domain.ErrTokenNotSupported},
		{
			"too_many_photos",
			func(in *ItemInput) {
				in.PhotoHashes = make([]string, domain.MaxPhotoLimit+1)
				for i := range in.PhotoHashes {
					in.PhotoHashes[i] = validCID
				}
			},
			domain.ErrPhotoLimitExceeded,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			in := validInput()
			tc.mutate(&in)
			_, err := svc.ListNewItem(ctx, sellerAddr, in)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	in := validInput()
	in.Title = "   "
	_, err := svc.ListNewItem(ctx, sellerAddr, in)
	assert.Error(t, err)
}

func TestListNewItem_RequiresRegistration(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.ListNewItem(context.Background(), strangerAddr, validInput())
	assert.ErrorIs(t, err, domain.ErrNotRegisteredUser)
}

func TestUpdateItem(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	item, err := svc.ListNewItem(ctx, sellerAddr, validInput())
	require.NoError(t, err)

	in := validInput()
	in.Title = "vintage camera, price drop"
	in.PriceAmount = 800_000
	updated, err := svc.UpdateItem(ctx, sellerAddr, item.ID, in)
	require.NoError(t, err)
	assert.Equal(t, int64(800_000), updated.PriceAmount)
	assert.Equal(t, "vintage camera, price drop", updated.Title)
}

func TestUpdateItem_SellerOnly(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	item, err := svc.ListNewItem(ctx, sellerAddr, validInput())
	require.NoError(t, err)

	_, err = svc.UpdateItem(ctx, strangerAddr, item.ID, validInput())
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestUpdateItem_OnlyWhileListed(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	item, err := svc.ListNewItem(ctx, sellerAddr, validInput())
	require.NoError(t, err)
	require.NoError(t, store.Queries().SetItemStatus(ctx, item.ID, domain.ItemStatusSold))

	_, err = svc.UpdateItem(ctx, sellerAddr, item.ID, validInput())
	assert.ErrorIs(t, err, domain.ErrItemNotListed)
}

func TestDeleteItem(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	item, err := svc.ListNewItem(ctx, sellerAddr, validInput())
	require.NoError(t, err)

	err = svc.DeleteItem(ctx, strangerAddr, item.ID)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	require.NoError(t, svc.DeleteItem(ctx, sellerAddr, item.ID))
	got, err := svc.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ItemStatusDeleted, got.Status)

	err = svc.DeleteItem(ctx, sellerAddr, item.ID)
	assert.ErrorIs(t, err, domain.ErrItemNotListed)
}

func TestListItems(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	var deletedID uint64
	for i := 0; i < 5; i++ {
		in := validInput()
		in.Title = "item " + strings.Repeat("x", i+1)
		item, err := svc.ListNewItem(ctx, sellerAddr, in)
		require.NoError(t, err)
		if i == 0 {
			deletedID = item.ID
		}
	}
	require.NoError(t, svc.DeleteItem(ctx, sellerAddr, deletedID))

	items, err := svc.ListItems(ctx, 3, 0)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.True(t, items[0].ID > items[1].ID, "newest first")

	rest, err := svc.ListItems(ctx, 3, 3)
	require.NoError(t, err)
	require.Len(t, rest, 1, "deleted listings are hidden")
	assert.NotEqual(t, deletedID, rest[0].ID)
}
