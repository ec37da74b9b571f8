package escrow

import (
	"context"
	"fmt"

	"github.com/agoralabs/marketplace-settlement/internal/domain"
	"github.com/agoralabs/marketplace-settlement/internal/ledger"
	"github.com/agoralabs/marketplace-settlement/internal/models"
	"github.com/agoralabs/marketplace-settlement/internal/observability"
	"github.com/agoralabs/marketplace-settlement/internal/repository"
)

// IdentityReader is the slice of the identity service the engine needs.
type IdentityReader interface {
	IsRegistered(ctx context.Context, q repository.Queries, address string) (bool, error)
	ModeratorFee(ctx context.Context, q repository.Queries, address string) (int64, error)
	FeeCeiling(ctx context.Context, q repository.Queries) (int64, error)
}

// Engine drives the settlement state machine. Every entry point executes in
// a single store transaction: all effects of one invocation commit together
// or not at all.
type Engine struct {
	store      repository.Store
	ledger     *ledger.Ledger
	identities IdentityReader
}

// NewEngine creates a settlement engine.
func NewEngine(store repository.Store, l *ledger.Ledger, identities IdentityReader) *Engine {
	return &Engine{store: store, ledger: l, identities: identities}
}

func (e *Engine) run(ctx context.Context, op string, fn func(q repository.Queries) error) error {
	if err := e.store.RunInTx(ctx, fn); err != nil {
		observability.IncrementSettlementFailure(op)
		return err
	}
	return nil
}

// CreateCmd opens a moderated escrow purchase.
type CreateCmd struct {
	ItemID    uint64
	Buyer     string
	Moderator string
	Payment   int64 // native payment sent; ignored for token currencies
}

// Create escrows the item price plus the moderator's fee and opens the
// settlement in AWAITING_APPROVAL. The item flips to SOLD in the same
// transaction.
func (e *Engine) Create(ctx context.Context, cmd CreateCmd) (*models.Transaction, error) {
	if err := domain.ValidateAddress(cmd.Buyer); err != nil {
		return nil, err
	}
	if err := domain.ValidateAddress(cmd.Moderator); err != nil {
		return nil, err
	}
	buyer := domain.NormalizeAddress(cmd.Buyer)
	moderator := domain.NormalizeAddress(cmd.Moderator)

	var settlement *models.Transaction
	err := e.run(ctx, "create", func(q repository.Queries) error {
		item, err := q.GetItemForUpdate(ctx, cmd.ItemID)
		if err != nil {
			return err
		}
		if item.Status != domain.ItemStatusListed {
			return domain.ErrItemNotListed
		}
		if item.Seller == buyer {
			return domain.ErrSellerCannotBuyOwnItem
		}

		for _, addr := range []string{buyer, item.Seller} {
			registered, err := e.identities.IsRegistered(ctx, q, addr)
			if err != nil {
				return err
			}
			if !registered {
				return domain.ErrNotRegisteredUser
			}
		}

		feePct, err := e.identities.ModeratorFee(ctx, q, moderator)
		if err != nil {
			return err
		}
		// The ceiling may have been lowered since the moderator set their fee,
		// so it is re-read at purchase time.
		ceiling, err := e.identities.FeeCeiling(ctx, q)
		if err != nil {
			return err
		}
		if feePct > ceiling {
			return domain.ErrMaxFeeExceeded
		}
		fee := domain.EscrowFee(item.PriceAmount, feePct)
		required := item.PriceAmount + fee

		if err := e.ledger.Deposit(ctx, q, item.ID, buyer, cmd.Payment, required, item.Currency); err != nil {
			return err
		}

		settlement = &models.Transaction{
			ItemID:      item.ID,
			Buyer:       buyer,
			Seller:      item.Seller,
			Moderator:   moderator,
			PriceAmount: item.PriceAmount,
			FeeAmount:   fee,
			Currency:    item.Currency,
			Status:      domain.TxStatusAwaitingApproval,
		}
		if err := q.InsertTransaction(ctx, settlement); err != nil {
			return err
		}
		observability.IncrementEscrowTransition(domain.TxStatusAwaitingApproval)
		return q.SetItemStatus(ctx, item.ID, domain.ItemStatusSold)
	})
	if err != nil {
		return nil, err
	}
	return settlement, nil
}

// Approve records one party's approval. Once both buyer and seller have
// approved, the settlement finalizes: the price goes to the seller and the
// escrowed fee to the moderator.
func (e *Engine) Approve(ctx context.Context, itemID uint64, actor string) (*models.Transaction, error) {
	actor = domain.NormalizeAddress(actor)

	var settlement *models.Transaction
	err := e.run(ctx, "approve", func(q repository.Queries) error {
		tx, err := q.GetTransactionForUpdate(ctx, itemID)
		if err != nil {
			return err
		}
		if tx.Status != domain.TxStatusAwaitingApproval {
			if isTerminal(tx.Status) {
				return domain.ErrTerminalSettlement
			}
			return domain.ErrInvalidTransition
		}

		switch actor {
		case tx.Buyer:
			tx.BuyerApproved = true
		case tx.Seller:
			tx.SellerApproved = true
		default:
			return domain.ErrUnauthorized
		}

		if tx.BuyerApproved && tx.SellerApproved {
			if err := transition(ctx, q, tx, domain.TxStatusFinalized); err != nil {
				return err
			}
			if err := e.ledger.Release(ctx, q, tx.ItemID, tx.Seller, tx.PriceAmount, tx.Currency); err != nil {
				return err
			}
			if err := e.ledger.Release(ctx, q, tx.ItemID, tx.Moderator, tx.FeeAmount, tx.Currency); err != nil {
				return err
			}
		} else if err := q.UpdateTransaction(ctx, tx); err != nil {
			return err
		}

		settlement = tx
		return nil
	})
	if err != nil {
		return nil, err
	}
	return settlement, nil
}

// RaiseDispute escalates an open settlement. Only the buyer or the seller may
// dispute; the moderator joins at resolution time.
func (e *Engine) RaiseDispute(ctx context.Context, itemID uint64, actor string) (*models.Transaction, error) {
	actor = domain.NormalizeAddress(actor)

	var settlement *models.Transaction
	err := e.run(ctx, "dispute", func(q repository.Queries) error {
		tx, err := q.GetTransactionForUpdate(ctx, itemID)
		if err != nil {
			return err
		}
		if actor != tx.Buyer && actor != tx.Seller {
			return domain.ErrUnauthorized
		}
		if err := transition(ctx, q, tx, domain.TxStatusDisputed); err != nil {
			return err
		}
		settlement = tx
		return nil
	})
	if err != nil {
		return nil, err
	}
	return settlement, nil
}

// Resolve settles a disputed escrow. Only the assigned moderator may resolve,
// the percentages must sum to exactly 100, and the moderator fee is released
// in full regardless of the split. A full refund records REFUNDED; any other
// split records FINALIZED.
func (e *Engine) Resolve(ctx context.Context, itemID uint64, actor string, buyerPct, sellerPct int64) (*models.Transaction, error) {
	actor = domain.NormalizeAddress(actor)

	var settlement *models.Transaction
	err := e.run(ctx, "resolve", func(q repository.Queries) error {
		tx, err := q.GetTransactionForUpdate(ctx, itemID)
		if err != nil {
			return err
		}
		if actor != tx.Moderator {
			return domain.ErrMustBeModerator
		}
		if tx.Status != domain.TxStatusDisputed {
			if isTerminal(tx.Status) {
				return domain.ErrTerminalSettlement
			}
			return domain.ErrInvalidTransition
		}

		buyerShare, sellerShare, err := domain.SplitPrice(tx.PriceAmount, buyerPct, sellerPct)
		if err != nil {
			return err
		}

		next := domain.TxStatusFinalized
		if buyerPct == 100 {
			next = domain.TxStatusRefunded
		}
		if err := transition(ctx, q, tx, next); err != nil {
			return err
		}

		if err := e.ledger.Release(ctx, q, tx.ItemID, tx.Buyer, buyerShare, tx.Currency); err != nil {
			return err
		}
		if err := e.ledger.Release(ctx, q, tx.ItemID, tx.Seller, sellerShare, tx.Currency); err != nil {
			return err
		}
		if err := e.ledger.Release(ctx, q, tx.ItemID, tx.Moderator, tx.FeeAmount, tx.Currency); err != nil {
			return err
		}

		settlement = tx
		return nil
	})
	if err != nil {
		return nil, err
	}
	return settlement, nil
}

// DirectCmd settles a purchase without a moderator.
type DirectCmd struct {
	ItemID  uint64
	Buyer   string
	Payment int64 // native payment sent; ignored for token currencies
}

// SettleDirect transfers the price straight from buyer to seller with no
// custody interval. The settlement record is persisted already finalized so
// review eligibility stays derivable.
func (e *Engine) SettleDirect(ctx context.Context, cmd DirectCmd) (*models.Transaction, error) {
	if err := domain.ValidateAddress(cmd.Buyer); err != nil {
		return nil, err
	}
	buyer := domain.NormalizeAddress(cmd.Buyer)

	var settlement *models.Transaction
	err := e.run(ctx, "direct", func(q repository.Queries) error {
		item, err := q.GetItemForUpdate(ctx, cmd.ItemID)
		if err != nil {
			return err
		}
		if item.Status != domain.ItemStatusListed {
			return domain.ErrItemNotListed
		}
		if item.Seller == buyer {
			return domain.ErrSellerCannotBuyOwnItem
		}

		for _, addr := range []string{buyer, item.Seller} {
			registered, err := e.identities.IsRegistered(ctx, q, addr)
			if err != nil {
				return err
			}
			if !registered {
				return domain.ErrNotRegisteredUser
			}
		}

		if err := e.ledger.TransferDirect(ctx, q, item.ID, buyer, item.Seller, cmd.Payment, item.PriceAmount, item.Currency); err != nil {
			return fmt.Errorf("transaction creation failed: %w", err)
		}

		settlement = &models.Transaction{
			ItemID:      item.ID,
			Buyer:       buyer,
			Seller:      item.Seller,
			PriceAmount: item.PriceAmount,
			Currency:    item.Currency,
			Status:      domain.TxStatusFinalized,
		}
		if err := q.InsertTransaction(ctx, settlement); err != nil {
			return err
		}
		observability.IncrementEscrowTransition(domain.TxStatusFinalized)
		return q.SetItemStatus(ctx, item.ID, domain.ItemStatusSold)
	})
	if err != nil {
		return nil, err
	}
	return settlement, nil
}

// Get loads the settlement record for an item.
func (e *Engine) Get(ctx context.Context, itemID uint64) (*models.Transaction, error) {
	return e.store.Queries().GetTransaction(ctx, itemID)
}
