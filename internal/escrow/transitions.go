package escrow

import (
	"context"

	"github.com/agoralabs/marketplace-settlement/internal/domain"
	"github.com/agoralabs/marketplace-settlement/internal/models"
	"github.com/agoralabs/marketplace-settlement/internal/observability"
	"github.com/agoralabs/marketplace-settlement/internal/repository"
)

// Settlement transitions are strictly forward: exactly one terminal
// transition per record, and terminal records never move again.
var settlementTransitions = map[string]map[string]struct{}{
	domain.TxStatusAwaitingApproval: {
		domain.TxStatusDisputed:  {},
		domain.TxStatusFinalized: {},
		domain.TxStatusRefunded:  {},
	},
	domain.TxStatusDisputed: {
		domain.TxStatusFinalized: {},
		domain.TxStatusRefunded:  {},
	},
	domain.TxStatusFinalized: {},
	domain.TxStatusRefunded:  {},
}

func isTerminal(status string) bool {
	return status == domain.TxStatusFinalized || status == domain.TxStatusRefunded
}

func canTransition(current, next string) bool {
	nextStates, ok := settlementTransitions[current]
	if !ok {
		return false
	}
	_, ok = nextStates[next]
	return ok
}

// transition commits the new status before any funds move, so a failed
// release rolls the whole invocation back together with the status write.
func transition(ctx context.Context, q repository.Queries, tx *models.Transaction, next string) error {
	if !canTransition(tx.Status, next) {
		if isTerminal(tx.Status) {
			return domain.ErrTerminalSettlement
		}
		return domain.ErrInvalidTransition
	}
	tx.Status = next
	if err := q.UpdateTransaction(ctx, tx); err != nil {
		return err
	}
	observability.IncrementEscrowTransition(next)
	return nil
}
