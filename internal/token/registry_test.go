package token

import (
	"context"
	"testing"

	"github.com/agoralabs/marketplace-settlement/internal/domain"
	"github.com/agoralabs/marketplace-settlement/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	authorityAddr = "0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee"
	strangerAddr  = "0xdddddddddddddddddddddddddddddddddddddddd"
	daiContract   = "0x1111111111111111111111111111111111111111"
)

func newTestRegistry(t *testing.T) (*Registry, *repository.MemoryStore) {
	t.Helper()
	store := repository.NewMemoryStore()
	return NewRegistry(store, authorityAddr, "ETH"), store
}

func TestRegister(t *testing.T) {
	r, store := newTestRegistry(t)
	ctx := context.Background()

	tok, err := r.Register(ctx, authorityAddr, "dai", daiContract)
	require.NoError(t, err)
	assert.Equal(t, "DAI", tok.Symbol, "symbols are stored uppercase")
	assert.Equal(t, daiContract, tok.Address)

	supported, err := r.Supported(ctx, store.Queries(), "DAI")
	require.NoError(t, err)
	assert.True(t, supported)
}

func TestRegister_AuthorityOnly(t *testing.T) {
	r, _ := newTestRegistry(t)
	_, err := r.Register(context.Background(), strangerAddr, "DAI", daiContract)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestRegister_Validation(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	_, err := r.Register(ctx, authorityAddr, "", daiContract)
	assert.ErrorIs(t, err, domain.ErrTokenNotSupported)

	// The native currency symbol cannot be shadowed by a token.
	_, err = r.Register(ctx, authorityAddr, "eth", daiContract)
	assert.ErrorIs(t, err, domain.ErrTokenNotSupported)

	_, err = r.Register(ctx, authorityAddr, "DAI", "not-an-address")
	assert.ErrorIs(t, err, domain.ErrInvalidAddress)
}

func TestSupported(t *testing.T) {
	r, store := newTestRegistry(t)
	ctx := context.Background()
	q := store.Queries()

	supported, err := r.Supported(ctx, q, "ETH")
	require.NoError(t, err)
	assert.True(t, supported, "native currency always settles")

	supported, err = r.Supported(ctx, q, "XYZ")
	require.NoError(t, err)
	assert.False(t, supported)
}

func TestList(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	_, err := r.Register(ctx, authorityAddr, "USDC", "0x2222222222222222222222222222222222222222")
	require.NoError(t, err)
	_, err = r.Register(ctx, authorityAddr, "DAI", daiContract)
	require.NoError(t, err)

	tokens, err := r.List(ctx)
	require.NoError(t, err)
	require.Len(t, tokens, 2)
	assert.Equal(t, "DAI", tokens[0].Symbol, "sorted by symbol")
	assert.Equal(t, "USDC", tokens[1].Symbol)
}
