package escrow

import (
	"context"
	"testing"

	"github.com/agoralabs/marketplace-settlement/internal/domain"
	"github.com/agoralabs/marketplace-settlement/internal/gateway"
	"github.com/agoralabs/marketplace-settlement/internal/identity"
	"github.com/agoralabs/marketplace-settlement/internal/ledger"
	"github.com/agoralabs/marketplace-settlement/internal/models"
	"github.com/agoralabs/marketplace-settlement/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	buyerAddr     = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	sellerAddr    = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	moderatorAddr = "0xcccccccccccccccccccccccccccccccccccccccc"
	outsiderAddr  = "0xdddddddddddddddddddddddddddddddddddddddd"
	authorityAddr = "0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee"
	vaultAddr     = "0xffffffffffffffffffffffffffffffffffffffff"

	nativeCurrency = "ETH"
	itemPrice      = int64(1_000_000)
	moderatorPct   = int64(10)
	escrowDeposit  = int64(1_100_000)
)

type testEnv struct {
	engine  *Engine
	store   *repository.MemoryStore
	gateway *gateway.MockGateway
	ledger  *ledger.Ledger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := repository.NewMemoryStore()
	gw := gateway.NewMockGateway()
	l := ledger.New(gw, nativeCurrency, vaultAddr)
	identities := identity.NewService(store, authorityAddr)
	env := &testEnv{
		engine:  NewEngine(store, l, identities),
		store:   store,
		gateway: gw,
		ledger:  l,
	}

	ctx := context.Background()
	q := store.Queries()
	require.NoError(t, q.UpsertProfile(ctx, &models.Profile{Address: buyerAddr, Username: "buyer"}))
	require.NoError(t, q.UpsertProfile(ctx, &models.Profile{Address: sellerAddr, Username: "seller"}))
	require.NoError(t, q.UpsertProfile(ctx, &models.Profile{
		Address: moderatorAddr, Username: "mod", IsModerator: true, ModeratorFee: moderatorPct,
	}))
	return env
}

func (env *testEnv) listItem(t *testing.T, currency string) uint64 {
	t.Helper()
	item := &models.Item{
		Seller:      sellerAddr,
		PriceAmount: itemPrice,
		Currency:    currency,
		Title:       "vintage camera",
		Status:      domain.ItemStatusListed,
	}
	require.NoError(t, env.store.Queries().InsertItem(context.Background(), item))
	return item.ID
}

func (env *testEnv) fund(t *testing.T, addr string, amount int64) {
	t.Helper()
	require.NoError(t, env.store.Queries().AddBalance(context.Background(), addr, nativeCurrency, amount))
}

func (env *testEnv) balance(t *testing.T, addr, currency string) int64 {
	t.Helper()
	balance, err := env.store.Queries().GetBalance(context.Background(), addr, currency)
	require.NoError(t, err)
	return balance
}

func (env *testEnv) openEscrow(t *testing.T) uint64 {
	t.Helper()
	itemID := env.listItem(t, nativeCurrency)
	env.fund(t, buyerAddr, escrowDeposit)
	_, err := env.engine.Create(context.Background(), CreateCmd{
		ItemID: itemID, Buyer: buyerAddr, Moderator: moderatorAddr, Payment: escrowDeposit,
	})
	require.NoError(t, err)
	return itemID
}

func TestCreate_EscrowsPricePlusFee(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	itemID := env.listItem(t, nativeCurrency)
	env.fund(t, buyerAddr, 2_000_000)

	tx, err := env.engine.Create(ctx, CreateCmd{
		ItemID: itemID, Buyer: buyerAddr, Moderator: moderatorAddr, Payment: escrowDeposit,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.TxStatusAwaitingApproval, tx.Status)
	assert.Equal(t, itemPrice, tx.PriceAmount)
	assert.Equal(t, int64(100_000), tx.FeeAmount)
	assert.Equal(t, int64(900_000), env.balance(t, buyerAddr, nativeCurrency))

	custody, currency, err := env.store.Queries().GetCustody(ctx, itemID)
	require.NoError(t, err)
	assert.Equal(t, escrowDeposit, custody)
	assert.Equal(t, nativeCurrency, currency)

	item, err := env.store.Queries().GetItem(ctx, itemID)
	require.NoError(t, err)
	assert.Equal(t, domain.ItemStatusSold, item.Status)
}

func TestCreate_WrongPaymentRollsBackEverything(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	itemID := env.listItem(t, nativeCurrency)
	env.fund(t, buyerAddr, 2_000_000)

	_, err := env.engine.Create(ctx, CreateCmd{
		ItemID: itemID, Buyer: buyerAddr, Moderator: moderatorAddr, Payment: itemPrice, // fee missing
	})
	require.ErrorIs(t, err, domain.ErrInsufficientValue)

	assert.Equal(t, int64(2_000_000), env.balance(t, buyerAddr, nativeCurrency))
	item, err := env.store.Queries().GetItem(ctx, itemID)
	require.NoError(t, err)
	assert.Equal(t, domain.ItemStatusListed, item.Status)
	_, err = env.store.Queries().GetTransaction(ctx, itemID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCreate_Preconditions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.fund(t, buyerAddr, 10_000_000)
	require.NoError(t, env.store.Queries().AddBalance(ctx, sellerAddr, nativeCurrency, 10_000_000))
	require.NoError(t, env.store.Queries().AddBalance(ctx, outsiderAddr, nativeCurrency, 10_000_000))

	cases := []struct {
		name string
		cmd  CreateCmd
		want error
	}{
		{
			name: "seller_buys_own_item",
			cmd:  CreateCmd{Buyer: sellerAddr, Moderator: moderatorAddr, Payment: escrowDeposit},
			want: domain.ErrSellerCannotBuyOwnItem,
		},
		{
			name: "unregistered_buyer",
			cmd:  CreateCmd{Buyer: outsiderAddr, Moderator: moderatorAddr, Payment: escrowDeposit},
			want: domain.ErrNotRegisteredUser,
		},
		{
			name: "moderator_is_not_a_moderator",
			cmd:  CreateCmd{Buyer: buyerAddr, Moderator: sellerAddr, Payment: itemPrice},
			want: domain.ErrMustBeModerator,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			tc.cmd.ItemID = env.listItem(t, nativeCurrency)
			_, err := env.engine.Create(ctx, tc.cmd)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestCreate_FeeAboveLoweredCeilingFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	itemID := env.listItem(t, nativeCurrency)
	env.fund(t, buyerAddr, escrowDeposit)

	// The moderator charges 10% but the authority has since lowered the
	// ceiling to 5%, so the purchase must not open.
	require.NoError(t, env.store.Queries().SetSetting(ctx, domain.SettingMaxModeratorFee, "5"))

	_, err := env.engine.Create(ctx, CreateCmd{
		ItemID: itemID, Buyer: buyerAddr, Moderator: moderatorAddr, Payment: escrowDeposit,
	})
	assert.ErrorIs(t, err, domain.ErrMaxFeeExceeded)

	assert.Equal(t, escrowDeposit, env.balance(t, buyerAddr, nativeCurrency))
	item, err := env.store.Queries().GetItem(ctx, itemID)
	require.NoError(t, err)
	assert.Equal(t, domain.ItemStatusListed, item.Status)
}

func TestCreate_UnregisteredSellerFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	item := &models.Item{
		Seller:      outsiderAddr,
		PriceAmount: itemPrice,
		Currency:    nativeCurrency,
		Title:       "orphan listing",
		Status:      domain.ItemStatusListed,
	}
	require.NoError(t, env.store.Queries().InsertItem(ctx, item))
	env.fund(t, buyerAddr, escrowDeposit)

	_, err := env.engine.Create(ctx, CreateCmd{
		ItemID: item.ID, Buyer: buyerAddr, Moderator: moderatorAddr, Payment: escrowDeposit,
	})
	assert.ErrorIs(t, err, domain.ErrNotRegisteredUser)

	_, err = env.engine.SettleDirect(ctx, DirectCmd{ItemID: item.ID, Buyer: buyerAddr, Payment: itemPrice})
	assert.ErrorIs(t, err, domain.ErrNotRegisteredUser)
}

func TestCreate_RejectsSoldItem(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	itemID := env.openEscrow(t)

	env.fund(t, buyerAddr, escrowDeposit)
	_, err := env.engine.Create(ctx, CreateCmd{
		ItemID: itemID, Buyer: buyerAddr, Moderator: moderatorAddr, Payment: escrowDeposit,
	})
	assert.ErrorIs(t, err, domain.ErrItemNotListed)
}

func TestApprove_BothPartiesFinalize(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	itemID := env.openEscrow(t)

	tx, err := env.engine.Approve(ctx, itemID, buyerAddr)
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusAwaitingApproval, tx.Status)
	assert.True(t, tx.BuyerApproved)
	assert.False(t, tx.SellerApproved)

	tx, err = env.engine.Approve(ctx, itemID, sellerAddr)
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusFinalized, tx.Status)

	assert.Equal(t, itemPrice, env.balance(t, sellerAddr, nativeCurrency))
	assert.Equal(t, int64(100_000), env.balance(t, moderatorAddr, nativeCurrency))

	custody, _, err := env.store.Queries().GetCustody(ctx, itemID)
	require.NoError(t, err)
	assert.Zero(t, custody)
}

func TestApprove_RejectsOutsider(t *testing.T) {
	env := newTestEnv(t)
	itemID := env.openEscrow(t)

	_, err := env.engine.Approve(context.Background(), itemID, outsiderAddr)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestApprove_TerminalSettlementFailsLoudly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	itemID := env.openEscrow(t)

	_, err := env.engine.Approve(ctx, itemID, buyerAddr)
	require.NoError(t, err)
	_, err = env.engine.Approve(ctx, itemID, sellerAddr)
	require.NoError(t, err)

	_, err = env.engine.Approve(ctx, itemID, buyerAddr)
	assert.ErrorIs(t, err, domain.ErrTerminalSettlement)
}

func TestApprove_DisputedSettlementFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	itemID := env.openEscrow(t)
	_, err := env.engine.RaiseDispute(ctx, itemID, buyerAddr)
	require.NoError(t, err)

	_, err = env.engine.Approve(ctx, itemID, sellerAddr)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	tx, err := env.engine.Get(ctx, itemID)
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusDisputed, tx.Status)
	assert.False(t, tx.BuyerApproved)
	assert.False(t, tx.SellerApproved)
	custody, _, err := env.store.Queries().GetCustody(ctx, itemID)
	require.NoError(t, err)
	assert.Equal(t, escrowDeposit, custody)
}

func TestRaiseDispute(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	itemID := env.openEscrow(t)

	_, err := env.engine.RaiseDispute(ctx, itemID, outsiderAddr)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	// The assigned moderator is not a disputant either.
	_, err = env.engine.RaiseDispute(ctx, itemID, moderatorAddr)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	tx, err := env.engine.RaiseDispute(ctx, itemID, buyerAddr)
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusDisputed, tx.Status)

	// No funds move on dispute.
	custody, _, err := env.store.Queries().GetCustody(ctx, itemID)
	require.NoError(t, err)
	assert.Equal(t, escrowDeposit, custody)
}

func TestResolve_SplitsDepositExactly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	itemID := env.openEscrow(t)
	_, err := env.engine.RaiseDispute(ctx, itemID, buyerAddr)
	require.NoError(t, err)

	tx, err := env.engine.Resolve(ctx, itemID, moderatorAddr, 80, 20)
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusFinalized, tx.Status)

	assert.Equal(t, int64(800_000), env.balance(t, buyerAddr, nativeCurrency))
	assert.Equal(t, int64(200_000), env.balance(t, sellerAddr, nativeCurrency))
	assert.Equal(t, int64(100_000), env.balance(t, moderatorAddr, nativeCurrency))

	custody, _, err := env.store.Queries().GetCustody(ctx, itemID)
	require.NoError(t, err)
	assert.Zero(t, custody)
}

func TestResolve_BadDistributionMovesNothing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	itemID := env.openEscrow(t)
	_, err := env.engine.RaiseDispute(ctx, itemID, buyerAddr)
	require.NoError(t, err)

	_, err = env.engine.Resolve(ctx, itemID, moderatorAddr, 20, 30)
	assert.ErrorIs(t, err, domain.ErrValueDistributionNotCorrect)

	assert.Zero(t, env.balance(t, buyerAddr, nativeCurrency))
	assert.Zero(t, env.balance(t, sellerAddr, nativeCurrency))
	custody, _, err := env.store.Queries().GetCustody(ctx, itemID)
	require.NoError(t, err)
	assert.Equal(t, escrowDeposit, custody)

	tx, err := env.engine.Get(ctx, itemID)
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusDisputed, tx.Status)
}

func TestResolve_FullRefundRecordsRefunded(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	itemID := env.openEscrow(t)
	_, err := env.engine.RaiseDispute(ctx, itemID, sellerAddr)
	require.NoError(t, err)

	tx, err := env.engine.Resolve(ctx, itemID, moderatorAddr, 100, 0)
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusRefunded, tx.Status)

	assert.Equal(t, itemPrice, env.balance(t, buyerAddr, nativeCurrency))
	assert.Zero(t, env.balance(t, sellerAddr, nativeCurrency))
	// Fee still goes to the moderator on refund.
	assert.Equal(t, int64(100_000), env.balance(t, moderatorAddr, nativeCurrency))
}

func TestResolve_OnlyAssignedModerator(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	itemID := env.openEscrow(t)
	_, err := env.engine.RaiseDispute(ctx, itemID, buyerAddr)
	require.NoError(t, err)

	_, err = env.engine.Resolve(ctx, itemID, sellerAddr, 50, 50)
	assert.ErrorIs(t, err, domain.ErrMustBeModerator)
}

func TestResolve_RequiresDispute(t *testing.T) {
	env := newTestEnv(t)
	itemID := env.openEscrow(t)

	_, err := env.engine.Resolve(context.Background(), itemID, moderatorAddr, 50, 50)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestResolve_DuplicateFinalizationFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	itemID := env.openEscrow(t)
	_, err := env.engine.RaiseDispute(ctx, itemID, buyerAddr)
	require.NoError(t, err)
	_, err = env.engine.Resolve(ctx, itemID, moderatorAddr, 80, 20)
	require.NoError(t, err)

	_, err = env.engine.Resolve(ctx, itemID, moderatorAddr, 80, 20)
	assert.ErrorIs(t, err, domain.ErrTerminalSettlement)
}

func TestSettleDirect(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	itemID := env.listItem(t, nativeCurrency)
	env.fund(t, buyerAddr, itemPrice)

	tx, err := env.engine.SettleDirect(ctx, DirectCmd{ItemID: itemID, Buyer: buyerAddr, Payment: itemPrice})
	require.NoError(t, err)

	assert.Equal(t, domain.TxStatusFinalized, tx.Status)
	assert.Empty(t, tx.Moderator)
	assert.Zero(t, tx.FeeAmount)
	assert.Equal(t, itemPrice, env.balance(t, sellerAddr, nativeCurrency))
	assert.Zero(t, env.balance(t, buyerAddr, nativeCurrency))

	item, err := env.store.Queries().GetItem(ctx, itemID)
	require.NoError(t, err)
	assert.Equal(t, domain.ItemStatusSold, item.Status)

	// No custody interval for direct settlements.
	_, _, err = env.store.Queries().GetCustody(ctx, itemID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestSettleDirect_TransferFailureRollsBack(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	itemID := env.listItem(t, nativeCurrency)
	env.fund(t, buyerAddr, itemPrice-1)

	_, err := env.engine.SettleDirect(ctx, DirectCmd{ItemID: itemID, Buyer: buyerAddr, Payment: itemPrice})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
	assert.Contains(t, err.Error(), "transaction creation failed")

	item, err := env.store.Queries().GetItem(ctx, itemID)
	require.NoError(t, err)
	assert.Equal(t, domain.ItemStatusListed, item.Status)
	_, err = env.store.Queries().GetTransaction(ctx, itemID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestTokenSettlement_EndToEnd(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	const daiAddr = "0x1111111111111111111111111111111111111111"
	require.NoError(t, env.store.Queries().UpsertToken(ctx, &models.Token{Symbol: "DAI", Address: daiAddr}))

	itemID := env.listItem(t, "DAI")
	env.gateway.Mint(daiAddr, buyerAddr, escrowDeposit)
	env.gateway.Approve(daiAddr, buyerAddr, vaultAddr, escrowDeposit)

	_, err := env.engine.Create(ctx, CreateCmd{ItemID: itemID, Buyer: buyerAddr, Moderator: moderatorAddr})
	require.NoError(t, err)

	vaultBalance, err := env.gateway.BalanceOf(ctx, daiAddr, vaultAddr)
	require.NoError(t, err)
	assert.Equal(t, escrowDeposit, vaultBalance)

	_, err = env.engine.RaiseDispute(ctx, itemID, buyerAddr)
	require.NoError(t, err)
	tx, err := env.engine.Resolve(ctx, itemID, moderatorAddr, 50, 50)
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusFinalized, tx.Status)

	buyerBalance, _ := env.gateway.BalanceOf(ctx, daiAddr, buyerAddr)
	sellerBalance, _ := env.gateway.BalanceOf(ctx, daiAddr, sellerAddr)
	moderatorBalance, _ := env.gateway.BalanceOf(ctx, daiAddr, moderatorAddr)
	assert.Equal(t, int64(500_000), buyerBalance)
	assert.Equal(t, int64(500_000), sellerBalance)
	assert.Equal(t, int64(100_000), moderatorBalance)
}

func TestTokenSettlement_MissingAllowance(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	const daiAddr = "0x1111111111111111111111111111111111111111"
	require.NoError(t, env.store.Queries().UpsertToken(ctx, &models.Token{Symbol: "DAI", Address: daiAddr}))

	itemID := env.listItem(t, "DAI")
	env.gateway.Mint(daiAddr, buyerAddr, escrowDeposit)

	_, err := env.engine.Create(ctx, CreateCmd{ItemID: itemID, Buyer: buyerAddr, Moderator: moderatorAddr})
	assert.ErrorIs(t, err, domain.ErrInsufficientAllowance)
}

func TestUnsupportedCurrencyFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	itemID := env.listItem(t, "XYZ")

	_, err := env.engine.Create(ctx, CreateCmd{ItemID: itemID, Buyer: buyerAddr, Moderator: moderatorAddr})
	assert.ErrorIs(t, err, domain.ErrTokenNotSupported)
}
