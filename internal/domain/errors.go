package domain

import "errors"

// Sentinel errors surfaced by the marketplace engines. The HTTP layer maps
// each of these to a distinct problem type.
var (
	ErrNotIPFSHash                 = errors.New("not an ipfs hash")
	ErrPhotoLimitExceeded          = errors.New("photo limit exceeded")
	ErrSellerCannotBuyOwnItem      = errors.New("seller cannot buy its own item")
	ErrMustBeModerator             = errors.New("must be moderator")
	ErrValueDistributionNotCorrect = errors.New("value distribution not correct")
	ErrAlreadyReviewed             = errors.New("already reviewed")

	ErrInsufficientValue     = errors.New("insufficient value sent")
	ErrInsufficientAllowance = errors.New("insufficient token allowance")
	ErrInsufficientBalance   = errors.New("insufficient balance")

	ErrNotRegisteredUser = errors.New("address has no registered profile")
	ErrInvalidAddress    = errors.New("invalid address")
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrInvalidRating     = errors.New("rating must be between 1 and 5")
	ErrMaxFeeExceeded    = errors.New("moderator fee exceeds the allowed maximum")

	ErrItemNotListed      = errors.New("item is not listed")
	ErrTokenNotSupported  = errors.New("token is not supported")
	ErrTransactionExists  = errors.New("settlement already exists for item")
	ErrInvalidTransition  = errors.New("invalid settlement state transition")
	ErrTerminalSettlement = errors.New("settlement is already terminal")
	ErrCustodyExceeded    = errors.New("release exceeds escrowed custody")
	ErrUnauthorized       = errors.New("caller is not permitted to perform this action")
)
