package domain

// Item lifecycle statuses.
const (
	ItemStatusListed  = "LISTED"
	ItemStatusSold    = "SOLD"
	ItemStatusDeleted = "DELETED"
)

// Settlement transaction statuses.
const (
	TxStatusAwaitingApproval = "AWAITING_APPROVAL"
	TxStatusDisputed         = "DISPUTED"
	TxStatusFinalized        = "FINALIZED"
	TxStatusRefunded         = "REFUNDED"
)

// Ledger entry directions and kinds.
const (
	DirectionDebit  = "debit"
	DirectionCredit = "credit"

	EntryKindDeposit = "deposit"
	EntryKindRelease = "release"
	EntryKindDirect  = "direct"
	EntryKindFund    = "fund"
)

const (
	// MaxPhotoLimit caps the number of photo CIDs per listed item.
	MaxPhotoLimit = 10

	// DefaultMaxModeratorFeePct is the ceiling a moderator may charge unless
	// the authority raises or lowers it.
	DefaultMaxModeratorFeePct = 20

	// SettingMaxModeratorFee is the settings key holding the fee ceiling.
	SettingMaxModeratorFee = "max_moderator_fee_pct"
)
