package domain

// EscrowFee computes the moderator fee escrowed on top of the item price.
// Integer division truncates toward zero.
func EscrowFee(price int64, feePct int64) int64 {
	if price <= 0 || feePct <= 0 {
		return 0
	}
	return price * feePct / 100
}

// EscrowTotal is the amount a buyer must deposit for a moderated purchase:
// the item price plus the moderator fee.
func EscrowTotal(price int64, feePct int64) int64 {
	return price + EscrowFee(price, feePct)
}

// SplitPrice divides the escrowed price between buyer and seller according to
// a moderator resolution. The percentages must sum to exactly 100. The buyer
// share truncates and any rounding remainder goes to the seller, so the two
// shares always sum to the full price.
func SplitPrice(price int64, buyerPct, sellerPct int64) (buyerShare, sellerShare int64, err error) {
	if buyerPct < 0 || sellerPct < 0 || buyerPct+sellerPct != 100 {
		return 0, 0, ErrValueDistributionNotCorrect
	}
	buyerShare = price * buyerPct / 100
	sellerShare = price - buyerShare
	return buyerShare, sellerShare, nil
}
