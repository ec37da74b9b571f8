package token

import (
	"context"
	"errors"
	"strings"

	"github.com/agoralabs/marketplace-settlement/internal/domain"
	"github.com/agoralabs/marketplace-settlement/internal/models"
	"github.com/agoralabs/marketplace-settlement/internal/repository"
)

// Registry maps currency symbols to token contract addresses. Writes are
// restricted to the configured authority; engines only read from it.
type Registry struct {
	store     repository.Store
	authority string
	native    string
}

// NewRegistry creates a token registry.
func NewRegistry(store repository.Store, authority, nativeCurrency string) *Registry {
	return &Registry{
		store:     store,
		authority: domain.NormalizeAddress(authority),
		native:    nativeCurrency,
	}
}

// Register adds or replaces a supported token. Authority only.
func (r *Registry) Register(ctx context.Context, actor, symbol, address string) (*models.Token, error) {
	if domain.NormalizeAddress(actor) != r.authority {
		return nil, domain.ErrUnauthorized
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" || symbol == r.native {
		return nil, domain.ErrTokenNotSupported
	}
	if err := domain.ValidateAddress(address); err != nil {
		return nil, err
	}

	t := &models.Token{Symbol: symbol, Address: domain.NormalizeAddress(address)}
	if err := r.store.Queries().UpsertToken(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Supported reports whether a currency can settle: either the native
// currency or a registered token.
func (r *Registry) Supported(ctx context.Context, q repository.Queries, currency string) (bool, error) {
	if currency == r.native {
		return true, nil
	}
	_, err := q.GetToken(ctx, currency)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// List returns all registered tokens.
func (r *Registry) List(ctx context.Context) ([]models.Token, error) {
	return r.store.Queries().ListTokens(ctx)
}
