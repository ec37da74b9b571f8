package ledger

import (
	"context"
	"fmt"

	"github.com/agoralabs/marketplace-settlement/internal/domain"
	"github.com/agoralabs/marketplace-settlement/internal/gateway"
	"github.com/agoralabs/marketplace-settlement/internal/models"
	"github.com/agoralabs/marketplace-settlement/internal/repository"
	"github.com/google/uuid"
)

// Ledger provides uniform custody movements over native balances and
// registered tokens. Native funds live as internal balance rows; token funds
// move through the gateway into a marketplace-controlled vault address.
// Every movement writes matching double-entry rows.
type Ledger struct {
	gateway gateway.TokenGateway
	native  string
	vault   string
}

// New creates a custody ledger.
func New(gw gateway.TokenGateway, nativeCurrency, vaultAddress string) *Ledger {
	return &Ledger{gateway: gw, native: nativeCurrency, vault: vaultAddress}
}

// NativeCurrency returns the configured native currency symbol.
func (l *Ledger) NativeCurrency() string {
	return l.native
}

func custodyAccount(itemID uint64) string {
	return fmt.Sprintf("custody:%d", itemID)
}

func (l *Ledger) resolveToken(ctx context.Context, q repository.Queries, currency string) (string, error) {
	token, err := q.GetToken(ctx, currency)
	if err != nil {
		if err == repository.ErrNotFound {
			return "", domain.ErrTokenNotSupported
		}
		return "", fmt.Errorf("resolve token %s: %w", currency, err)
	}
	return token.Address, nil
}

func (l *Ledger) writeEntries(ctx context.Context, q repository.Queries, itemID *uint64, kind, currency string, amount int64, fromAccount, toAccount string) error {
	debit := &models.Entry{
		ID:        uuid.New(),
		ItemID:    itemID,
		Account:   fromAccount,
		Amount:    amount,
		Direction: domain.DirectionDebit,
		Currency:  currency,
		Kind:      kind,
	}
	if err := q.InsertEntry(ctx, debit); err != nil {
		return err
	}
	credit := &models.Entry{
		ID:        uuid.New(),
		ItemID:    itemID,
		Account:   toAccount,
		Amount:    amount,
		Direction: domain.DirectionCredit,
		Currency:  currency,
		Kind:      kind,
	}
	return q.InsertEntry(ctx, credit)
}

// Deposit escrows funds for an item. For the native currency the payment must
// match the required amount exactly; for tokens the required amount is pulled
// via the payer's allowance.
func (l *Ledger) Deposit(ctx context.Context, q repository.Queries, itemID uint64, payer string, payment, required int64, currency string) error {
	if required <= 0 {
		return domain.ErrInvalidAmount
	}

	if currency == l.native {
		if payment != required {
			return domain.ErrInsufficientValue
		}
		if err := q.AddBalance(ctx, payer, currency, -required); err != nil {
			return err
		}
	} else {
		tokenAddr, err := l.resolveToken(ctx, q, currency)
		if err != nil {
			return err
		}
		if err := l.gateway.Pull(ctx, tokenAddr, payer, l.vault, required); err != nil {
			return err
		}
	}

	if err := q.CreditCustody(ctx, itemID, currency, required); err != nil {
		return err
	}
	return l.writeEntries(ctx, q, &itemID, domain.EntryKindDeposit, currency, required, payer, custodyAccount(itemID))
}

// Release pays escrowed funds out to a recipient. The custody debit guard
// guarantees the total released never exceeds the total deposited.
func (l *Ledger) Release(ctx context.Context, q repository.Queries, itemID uint64, recipient string, amount int64, currency string) error {
	if amount == 0 {
		return nil
	}
	if amount < 0 {
		return domain.ErrInvalidAmount
	}

	if err := q.DebitCustody(ctx, itemID, currency, amount); err != nil {
		return err
	}

	if currency == l.native {
		if err := q.AddBalance(ctx, recipient, currency, amount); err != nil {
			return err
		}
	} else {
		tokenAddr, err := l.resolveToken(ctx, q, currency)
		if err != nil {
			return err
		}
		if err := l.gateway.Transfer(ctx, tokenAddr, l.vault, recipient, amount); err != nil {
			return err
		}
	}
	return l.writeEntries(ctx, q, &itemID, domain.EntryKindRelease, currency, amount, custodyAccount(itemID), recipient)
}

// TransferDirect moves funds buyer-to-seller without a custody interval.
// Native payments must match the price exactly.
func (l *Ledger) TransferDirect(ctx context.Context, q repository.Queries, itemID uint64, from, to string, payment, price int64, currency string) error {
	if price <= 0 {
		return domain.ErrInvalidAmount
	}

	if currency == l.native {
		if payment != price {
			return domain.ErrInsufficientValue
		}
		if err := q.AddBalance(ctx, from, currency, -price); err != nil {
			return err
		}
		if err := q.AddBalance(ctx, to, currency, price); err != nil {
			return err
		}
	} else {
		tokenAddr, err := l.resolveToken(ctx, q, currency)
		if err != nil {
			return err
		}
		if err := l.gateway.Pull(ctx, tokenAddr, from, to, price); err != nil {
			return err
		}
	}
	return l.writeEntries(ctx, q, &itemID, domain.EntryKindDirect, currency, price, from, to)
}

// FundNative credits a participant's native balance. On-ramp stand-in.
func (l *Ledger) FundNative(ctx context.Context, q repository.Queries, address string, amount int64) error {
	if amount <= 0 {
		return domain.ErrInvalidAmount
	}
	if err := q.AddBalance(ctx, address, l.native, amount); err != nil {
		return err
	}
	entry := &models.Entry{
		ID:        uuid.New(),
		Account:   address,
		Amount:    amount,
		Direction: domain.DirectionCredit,
		Currency:  l.native,
		Kind:      domain.EntryKindFund,
	}
	return q.InsertEntry(ctx, entry)
}
