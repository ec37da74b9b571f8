package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEscrowTotal(t *testing.T) {
	cases := []struct {
		name   string
		price  int64
		feePct int64
		want   int64
	}{
		{name: "ten_percent", price: 1_000_000, feePct: 10, want: 1_100_000},
		{name: "zero_fee", price: 1_000_000, feePct: 0, want: 1_000_000},
		{name: "truncates", price: 99, feePct: 10, want: 108}, // fee 9.9 -> 9
		{name: "small_price", price: 5, feePct: 10, want: 5},  // fee truncates to 0
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, EscrowTotal(tc.price, tc.feePct))
		})
	}
}

func TestSplitPrice(t *testing.T) {
	buyer, seller, err := SplitPrice(1_000_000, 80, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(800_000), buyer)
	assert.Equal(t, int64(200_000), seller)
}

func TestSplitPrice_RemainderGoesToSeller(t *testing.T) {
	buyer, seller, err := SplitPrice(101, 50, 50)
	require.NoError(t, err)
	assert.Equal(t, int64(50), buyer)
	assert.Equal(t, int64(51), seller)
	assert.Equal(t, int64(101), buyer+seller)
}

func TestSplitPrice_RejectsBadDistribution(t *testing.T) {
	cases := []struct {
		name      string
		buyerPct  int64
		sellerPct int64
	}{
		{name: "under_100", buyerPct: 20, sellerPct: 30},
		{name: "over_100", buyerPct: 80, sellerPct: 30},
		{name: "negative", buyerPct: -10, sellerPct: 110},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := SplitPrice(1_000_000, tc.buyerPct, tc.sellerPct)
			assert.ErrorIs(t, err, ErrValueDistributionNotCorrect)
		})
	}
}

func TestSplitPrice_FullRefund(t *testing.T) {
	buyer, seller, err := SplitPrice(1_000_000, 100, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1_000_000), buyer)
	assert.Equal(t, int64(0), seller)
}
