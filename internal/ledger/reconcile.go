package ledger

import (
	"context"
	"fmt"

	"github.com/agoralabs/marketplace-settlement/internal/observability"
	"github.com/agoralabs/marketplace-settlement/internal/repository"
	"go.uber.org/zap"
)

// Auditor verifies custody integrity: for every currency, escrowed custody
// must equal the sum of price plus fee of all open settlements.
type Auditor struct {
	store repository.Store
}

// NewAuditor creates a custody auditor.
func NewAuditor(store repository.Store) *Auditor {
	return &Auditor{store: store}
}

// Run performs one reconciliation pass.
func (a *Auditor) Run(ctx context.Context) error {
	queries := a.store.Queries()

	totals, err := queries.CustodyTotals(ctx)
	if err != nil {
		return fmt.Errorf("load custody totals: %w", err)
	}
	open, err := queries.ListOpenTransactions(ctx)
	if err != nil {
		return fmt.Errorf("load open settlements: %w", err)
	}

	expected := make(map[string]int64)
	for _, tx := range open {
		expected[tx.Currency] += tx.PriceAmount + tx.FeeAmount
	}

	balanced := true
	for currency, want := range expected {
		if totals[currency] != want {
			balanced = false
			observability.IncrementCustodyImbalance(currency)
			zap.L().Error("CRITICAL: custody imbalance detected",
				zap.String("currency", currency),
				zap.Int64("custody", totals[currency]),
				zap.Int64("expected", want),
			)
		}
	}
	for currency, total := range totals {
		if _, ok := expected[currency]; ok || total == 0 {
			continue
		}
		balanced = false
		observability.IncrementCustodyImbalance(currency)
		zap.L().Error("CRITICAL: custody held with no open settlement",
			zap.String("currency", currency),
			zap.Int64("custody", total),
		)
	}

	if balanced {
		zap.L().Info("custody balanced")
	}
	return nil
}
