package gateway

import (
	"context"

	"github.com/agoralabs/marketplace-settlement/internal/domain"
)

// TokenGateway moves registered token balances between participant addresses.
// Pull spends an allowance the owner granted to the marketplace; Transfer
// pushes funds the marketplace already controls.
type TokenGateway interface {
	Pull(ctx context.Context, token, from, to string, amount int64) error
	Transfer(ctx context.Context, token, from, to string, amount int64) error
	BalanceOf(ctx context.Context, token, owner string) (int64, error)
}

var _ TokenGateway = (*MockGateway)(nil)

// The interface methods return domain sentinel errors so engines can map
// gateway failures without knowing the implementation.
var (
	errInsufficientAllowance = domain.ErrInsufficientAllowance
	errInsufficientBalance   = domain.ErrInsufficientBalance
)
