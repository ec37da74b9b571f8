package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/agoralabs/marketplace-settlement/internal/domain"
	"github.com/agoralabs/marketplace-settlement/internal/models"
	"github.com/agoralabs/marketplace-settlement/internal/repository"
)

// identityReader is the slice of the identity service the catalog needs.
type identityReader interface {
	IsRegistered(ctx context.Context, q repository.Queries, address string) (bool, error)
}

// currencyChecker reports whether a currency can settle.
type currencyChecker interface {
	Supported(ctx context.Context, q repository.Queries, currency string) (bool, error)
}

// Service manages marketplace listings.
type Service struct {
	store      repository.Store
	identities identityReader
	currencies currencyChecker
}

// NewService creates a catalog service.
func NewService(store repository.Store, identities identityReader, currencies currencyChecker) *Service {
	return &Service{store: store, identities: identities, currencies: currencies}
}

// ItemInput carries the caller-supplied listing fields.
type ItemInput struct {
	PriceAmount int64
	Currency    string
	Title       string
	Description string
	PhotoHashes []string
	Condition   string
	Category    string
	Subcategory string
	Country     string
	IsGift      bool
}

func (s *Service) validateInput(in ItemInput) error {
	if in.PriceAmount <= 0 {
		return domain.ErrInvalidAmount
	}
	if strings.TrimSpace(in.Title) == "" {
		return fmt.Errorf("title is required")
	}
	return domain.ValidateCIDs(in.PhotoHashes)
}

// ListNewItem publishes a new listing for the seller.
func (s *Service) ListNewItem(ctx context.Context, seller string, in ItemInput) (*models.Item, error) {
	if err := domain.ValidateAddress(seller); err != nil {
		return nil, err
	}
	if err := s.validateInput(in); err != nil {
		return nil, err
	}
	seller = domain.NormalizeAddress(seller)

	item := &models.Item{
		Seller:      seller,
		PriceAmount: in.PriceAmount,
		Currency:    strings.ToUpper(strings.TrimSpace(in.Currency)),
		Title:       in.Title,
		Description: in.Description,
		PhotoHashes: in.PhotoHashes,
		Condition:   in.Condition,
		Category:    in.Category,
		Subcategory: in.Subcategory,
		Country:     in.Country,
		IsGift:      in.IsGift,
		Status:      domain.ItemStatusListed,
	}

	err := s.store.RunInTx(ctx, func(q repository.Queries) error {
		registered, err := s.identities.IsRegistered(ctx, q, seller)
		if err != nil {
			return err
		}
		if !registered {
			return domain.ErrNotRegisteredUser
		}
		supported, err := s.currencies.Supported(ctx, q, item.Currency)
		if err != nil {
			return err
		}
		if !supported {
			return domain.ErrTokenNotSupported
		}
		return q.InsertItem(ctx, item)
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// UpdateItem replaces a listing's fields. Seller only, and only while the
// item is still listed.
func (s *Service) UpdateItem(ctx context.Context, actor string, itemID uint64, in ItemInput) (*models.Item, error) {
	if err := s.validateInput(in); err != nil {
		return nil, err
	}
	actor = domain.NormalizeAddress(actor)

	var updated *models.Item
	err := s.store.RunInTx(ctx, func(q repository.Queries) error {
		item, err := q.GetItemForUpdate(ctx, itemID)
		if err != nil {
			return err
		}
		if item.Seller != actor {
			return domain.ErrUnauthorized
		}
		if item.Status != domain.ItemStatusListed {
			return domain.ErrItemNotListed
		}
		supported, err := s.currencies.Supported(ctx, q, strings.ToUpper(strings.TrimSpace(in.Currency)))
		if err != nil {
			return err
		}
		if !supported {
			return domain.ErrTokenNotSupported
		}

		item.PriceAmount = in.PriceAmount
		item.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
		item.Title = in.Title
		item.Description = in.Description
		item.PhotoHashes = in.PhotoHashes
		item.Condition = in.Condition
		item.Category = in.Category
		item.Subcategory = in.Subcategory
		item.Country = in.Country
		item.IsGift = in.IsGift
		if err := q.UpdateItem(ctx, item); err != nil {
			return err
		}
		updated = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteItem retires a listing. Seller only, and only while listed.
func (s *Service) DeleteItem(ctx context.Context, actor string, itemID uint64) error {
	actor = domain.NormalizeAddress(actor)
	return s.store.RunInTx(ctx, func(q repository.Queries) error {
		item, err := q.GetItemForUpdate(ctx, itemID)
		if err != nil {
			return err
		}
		if item.Seller != actor {
			return domain.ErrUnauthorized
		}
		if item.Status != domain.ItemStatusListed {
			return domain.ErrItemNotListed
		}
		return q.SetItemStatus(ctx, itemID, domain.ItemStatusDeleted)
	})
}

// GetItem loads a single listing.
func (s *Service) GetItem(ctx context.Context, itemID uint64) (*models.Item, error) {
	return s.store.Queries().GetItem(ctx, itemID)
}

// ListItems pages through non-deleted listings, newest first.
func (s *Service) ListItems(ctx context.Context, limit, offset int) ([]models.Item, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.Queries().ListItems(ctx, limit, offset)
}
