package repository

import (
	"context"
	"errors"

	"github.com/agoralabs/marketplace-settlement/internal/models"
)

// ErrNotFound is returned by lookups when no row matches.
var ErrNotFound = errors.New("repository: not found")

// Queries is the data access contract shared by the Postgres and in-memory
// stores. Engines receive a Queries bound to the surrounding transaction so
// every invocation commits or rolls back as a unit.
type Queries interface {
	// Items
	InsertItem(ctx context.Context, item *models.Item) error
	GetItem(ctx context.Context, id uint64) (*models.Item, error)
	GetItemForUpdate(ctx context.Context, id uint64) (*models.Item, error)
	UpdateItem(ctx context.Context, item *models.Item) error
	SetItemStatus(ctx context.Context, id uint64, status string) error
	ListItems(ctx context.Context, limit, offset int) ([]models.Item, error)

	// Profiles
	UpsertProfile(ctx context.Context, p *models.Profile) error
	GetProfile(ctx context.Context, address string) (*models.Profile, error)

	// Reviews
	InsertReview(ctx context.Context, rv *models.Review) error
	HasReview(ctx context.Context, reviewer string, itemID uint64) (bool, error)
	ListReviewsBySeller(ctx context.Context, seller string) ([]models.Review, error)

	// Settlements
	InsertTransaction(ctx context.Context, tx *models.Transaction) error
	GetTransaction(ctx context.Context, itemID uint64) (*models.Transaction, error)
	GetTransactionForUpdate(ctx context.Context, itemID uint64) (*models.Transaction, error)
	UpdateTransaction(ctx context.Context, tx *models.Transaction) error
	ListOpenTransactions(ctx context.Context) ([]models.Transaction, error)

	// Native balances
	GetBalance(ctx context.Context, address, currency string) (int64, error)
	AddBalance(ctx context.Context, address, currency string, delta int64) error

	// Custody
	CreditCustody(ctx context.Context, itemID uint64, currency string, amount int64) error
	DebitCustody(ctx context.Context, itemID uint64, currency string, amount int64) error
	GetCustody(ctx context.Context, itemID uint64) (int64, string, error)
	CustodyTotals(ctx context.Context) (map[string]int64, error)

	// Ledger entries
	InsertEntry(ctx context.Context, e *models.Entry) error
	ListEntries(ctx context.Context, account string, limit, offset int) ([]models.Entry, error)

	// Token registry
	UpsertToken(ctx context.Context, t *models.Token) error
	GetToken(ctx context.Context, symbol string) (*models.Token, error)
	ListTokens(ctx context.Context) ([]models.Token, error)

	// Settings
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error

	// Idempotency
	GetIdempotencyKey(ctx context.Context, key string) (*models.IdempotencyRecord, error)
	ReserveIdempotencyKey(ctx context.Context, key, requestHash, method, path string) (bool, error)
	FinalizeIdempotencyKey(ctx context.Context, key, requestHash string, status int, body []byte, contentType string) (*models.IdempotencyRecord, error)
}

// Store provides access to queries and transaction scoping.
type Store interface {
	Queries() Queries
	RunInTx(ctx context.Context, fn func(q Queries) error) error
}
