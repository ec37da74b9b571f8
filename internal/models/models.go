package models

import (
	"time"

	"github.com/google/uuid"
)

// Item is a marketplace listing. Prices are denominated in the smallest unit
// of the listing currency.
type Item struct {
	ID          uint64    `json:"id"`
	Seller      string    `json:"seller"`
	PriceAmount int64     `json:"price_amount"`
	Currency    string    `json:"currency"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	PhotoHashes []string  `json:"photo_hashes"`
	Condition   string    `json:"condition"`
	Category    string    `json:"category"`
	Subcategory string    `json:"subcategory"`
	Country     string    `json:"country"`
	IsGift      bool      `json:"is_gift"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Profile is a registered marketplace identity keyed by wallet address.
type Profile struct {
	Address      string    `json:"address"`
	Username     string    `json:"username"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Country      string    `json:"country"`
	Description  string    `json:"description"`
	Email        string    `json:"email"`
	AvatarHash   string    `json:"avatar_hash"`
	IsModerator  bool      `json:"is_moderator"`
	ModeratorFee int64     `json:"moderator_fee"` // percent of item price
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Review is a buyer's one-time rating of a seller for a purchased item.
type Review struct {
	ID        uuid.UUID `json:"id"`
	Reviewer  string    `json:"reviewer"`
	Seller    string    `json:"seller"`
	ItemID    uint64    `json:"item_id"`
	Rating    int32     `json:"rating"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Transaction is the settlement record for a purchased item. At most one
// exists per item. FeeAmount snapshots the moderator fee at creation time so
// later profile changes cannot alter an open escrow.
type Transaction struct {
	ItemID         uint64    `json:"item_id"`
	Buyer          string    `json:"buyer"`
	Seller         string    `json:"seller"`
	Moderator      string    `json:"moderator,omitempty"`
	PriceAmount    int64     `json:"price_amount"`
	FeeAmount      int64     `json:"fee_amount"`
	Currency       string    `json:"currency"`
	Status         string    `json:"status"`
	BuyerApproved  bool      `json:"buyer_approved"`
	SellerApproved bool      `json:"seller_approved"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Entry is one leg of a double-entry custody ledger movement.
type Entry struct {
	ID        uuid.UUID `json:"id"`
	ItemID    *uint64   `json:"item_id,omitempty"`
	Account   string    `json:"account"`
	Amount    int64     `json:"amount"`
	Direction string    `json:"direction"` // "debit" or "credit"
	Currency  string    `json:"currency"`
	Kind      string    `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
}

// Token is a registered settlement currency backed by a token contract.
type Token struct {
	Symbol    string    `json:"symbol"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"created_at"`
}

// IdempotencyRecord captures a stored response for Idempotency-Key replays.
type IdempotencyRecord struct {
	Key         string
	RequestHash string
	Method      string
	Path        string
	Status      int
	Body        []byte
	ContentType string
	InProgress  bool
}
