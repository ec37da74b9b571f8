package ledger

import (
	"context"
	"testing"

	"github.com/agoralabs/marketplace-settlement/internal/domain"
	"github.com/agoralabs/marketplace-settlement/internal/models"
	"github.com/agoralabs/marketplace-settlement/internal/repository"
	"github.com/stretchr/testify/require"
)

func TestAuditorRun(t *testing.T) {
	store := repository.NewMemoryStore()
	ctx := context.Background()
	q := store.Queries()

	require.NoError(t, q.InsertTransaction(ctx, &models.Transaction{
		ItemID: 1, Buyer: payerAddr, Seller: recipientAddr,
		PriceAmount: 1_000_000, FeeAmount: 100_000, Currency: "ETH",
		Status: domain.TxStatusAwaitingApproval,
	}))
	require.NoError(t, q.CreditCustody(ctx, 1, "ETH", 1_100_000))

	auditor := NewAuditor(store)
	require.NoError(t, auditor.Run(ctx), "balanced custody passes")

	// An imbalance is reported, not returned: reconciliation is a detector,
	// and one bad interval must not stop the sweep.
	require.NoError(t, q.DebitCustody(ctx, 1, "ETH", 100_000))
	require.NoError(t, auditor.Run(ctx))
}
