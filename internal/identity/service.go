package identity

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/agoralabs/marketplace-settlement/internal/domain"
	"github.com/agoralabs/marketplace-settlement/internal/models"
	"github.com/agoralabs/marketplace-settlement/internal/repository"
	"github.com/google/uuid"
)

// Service manages marketplace profiles, the moderator fee ceiling and
// post-purchase reviews.
type Service struct {
	store     repository.Store
	authority string
}

// NewService creates an identity service. The authority address is the only
// caller allowed to change the moderator fee ceiling.
func NewService(store repository.Store, authority string) *Service {
	return &Service{store: store, authority: domain.NormalizeAddress(authority)}
}

// SaveProfile creates or updates the caller's profile. Moderator fees are
// capped by the configured ceiling at write time.
func (s *Service) SaveProfile(ctx context.Context, p *models.Profile) (*models.Profile, error) {
	if err := domain.ValidateAddress(p.Address); err != nil {
		return nil, err
	}
	p.Address = domain.NormalizeAddress(p.Address)
	if strings.TrimSpace(p.Username) == "" {
		return nil, fmt.Errorf("username is required")
	}
	if p.AvatarHash != "" {
		if err := domain.ValidateCID(p.AvatarHash); err != nil {
			return nil, err
		}
	}
	if !p.IsModerator {
		p.ModeratorFee = 0
	}
	if p.ModeratorFee < 0 {
		return nil, domain.ErrInvalidAmount
	}

	err := s.store.RunInTx(ctx, func(q repository.Queries) error {
		if p.IsModerator {
			max, err := s.maxModeratorFee(ctx, q)
			if err != nil {
				return err
			}
			if p.ModeratorFee > max {
				return domain.ErrMaxFeeExceeded
			}
		}
		return q.UpsertProfile(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetProfile loads a profile by address.
func (s *Service) GetProfile(ctx context.Context, address string) (*models.Profile, error) {
	p, err := s.store.Queries().GetProfile(ctx, domain.NormalizeAddress(address))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrNotRegisteredUser
		}
		return nil, err
	}
	return p, nil
}

// IsRegistered reports whether the address has a profile. The queries
// argument binds the lookup to the caller's transaction.
func (s *Service) IsRegistered(ctx context.Context, q repository.Queries, address string) (bool, error) {
	_, err := q.GetProfile(ctx, domain.NormalizeAddress(address))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ModeratorFee returns the fee percentage a moderator charges. Fails with
// ErrMustBeModerator when the address is not a moderator.
func (s *Service) ModeratorFee(ctx context.Context, q repository.Queries, address string) (int64, error) {
	p, err := q.GetProfile(ctx, domain.NormalizeAddress(address))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, domain.ErrMustBeModerator
		}
		return 0, err
	}
	if !p.IsModerator {
		return 0, domain.ErrMustBeModerator
	}
	return p.ModeratorFee, nil
}

// MaxModeratorFee returns the current fee ceiling.
func (s *Service) MaxModeratorFee(ctx context.Context) (int64, error) {
	return s.maxModeratorFee(ctx, s.store.Queries())
}

// FeeCeiling reads the fee ceiling inside the caller's store transaction.
func (s *Service) FeeCeiling(ctx context.Context, q repository.Queries) (int64, error) {
	return s.maxModeratorFee(ctx, q)
}

func (s *Service) maxModeratorFee(ctx context.Context, q repository.Queries) (int64, error) {
	value, err := q.GetSetting(ctx, domain.SettingMaxModeratorFee)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.DefaultMaxModeratorFeePct, nil
		}
		return 0, err
	}
	max, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", domain.SettingMaxModeratorFee, err)
	}
	return max, nil
}

// SetMaxModeratorFee updates the fee ceiling. Authority only.
func (s *Service) SetMaxModeratorFee(ctx context.Context, actor string, pct int64) error {
	if domain.NormalizeAddress(actor) != s.authority {
		return domain.ErrUnauthorized
	}
	if pct < 0 || pct > 100 {
		return domain.ErrInvalidAmount
	}
	return s.store.Queries().SetSetting(ctx, domain.SettingMaxModeratorFee, strconv.FormatInt(pct, 10))
}

// ReviewInput carries the caller-supplied review fields.
type ReviewInput struct {
	ItemID uint64
	Rating int32
	Text   string
}

// CreateReview records a buyer's one-time rating of a seller. The reviewer
// must be the buyer of a successfully finalized settlement for the item.
func (s *Service) CreateReview(ctx context.Context, reviewer string, in ReviewInput) (*models.Review, error) {
	if in.Rating < 1 || in.Rating > 5 {
		return nil, domain.ErrInvalidRating
	}
	reviewer = domain.NormalizeAddress(reviewer)

	review := &models.Review{
		ID:       uuid.New(),
		Reviewer: reviewer,
		ItemID:   in.ItemID,
		Rating:   in.Rating,
		Text:     in.Text,
	}

	err := s.store.RunInTx(ctx, func(q repository.Queries) error {
		tx, err := q.GetTransaction(ctx, in.ItemID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return domain.ErrUnauthorized
			}
			return err
		}
		if tx.Buyer != reviewer || tx.Status != domain.TxStatusFinalized {
			return domain.ErrUnauthorized
		}

		reviewed, err := q.HasReview(ctx, reviewer, in.ItemID)
		if err != nil {
			return err
		}
		if reviewed {
			return domain.ErrAlreadyReviewed
		}

		review.Seller = tx.Seller
		return q.InsertReview(ctx, review)
	})
	if err != nil {
		return nil, err
	}
	return review, nil
}

// ListReviews returns the reviews written about a seller.
func (s *Service) ListReviews(ctx context.Context, seller string) ([]models.Review, error) {
	return s.store.Queries().ListReviewsBySeller(ctx, domain.NormalizeAddress(seller))
}
