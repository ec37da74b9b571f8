package gateway

import (
	"context"
	"sync"
)

// MockGateway simulates token contracts with deterministic in-memory balances
// and allowances. It backs tests and local runs where no real token backend
// is available.
type MockGateway struct {
	mu         sync.Mutex
	balances   map[string]map[string]int64            // token -> owner -> balance
	allowances map[string]map[string]map[string]int64 // token -> owner -> spender -> allowance
}

// NewMockGateway creates an empty MockGateway.
func NewMockGateway() *MockGateway {
	return &MockGateway{
		balances:   make(map[string]map[string]int64),
		allowances: make(map[string]map[string]map[string]int64),
	}
}

// Mint credits an owner's token balance. Test and bootstrap helper.
func (g *MockGateway) Mint(token, owner string, amount int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.tokenBalances(token)[owner] += amount
}

// Approve grants a spender an allowance over the owner's balance.
func (g *MockGateway) Approve(token, owner, spender string, amount int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	byOwner, ok := g.allowances[token]
	if !ok {
		byOwner = make(map[string]map[string]int64)
		g.allowances[token] = byOwner
	}
	bySpender, ok := byOwner[owner]
	if !ok {
		bySpender = make(map[string]int64)
		byOwner[owner] = bySpender
	}
	bySpender[spender] = amount
}

// Pull moves tokens from an owner using the allowance granted to `to`.
func (g *MockGateway) Pull(ctx context.Context, token, from, to string, amount int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	allowance := g.allowance(token, from, to)
	if allowance < amount {
		return errInsufficientAllowance
	}
	balances := g.tokenBalances(token)
	if balances[from] < amount {
		return errInsufficientBalance
	}
	g.allowances[token][from][to] = allowance - amount
	balances[from] -= amount
	balances[to] += amount
	return nil
}

// Transfer moves tokens the sender directly controls.
func (g *MockGateway) Transfer(ctx context.Context, token, from, to string, amount int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	balances := g.tokenBalances(token)
	if balances[from] < amount {
		return errInsufficientBalance
	}
	balances[from] -= amount
	balances[to] += amount
	return nil
}

// BalanceOf reports an owner's token balance.
func (g *MockGateway) BalanceOf(ctx context.Context, token, owner string) (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.tokenBalances(token)[owner], nil
}

func (g *MockGateway) tokenBalances(token string) map[string]int64 {
	balances, ok := g.balances[token]
	if !ok {
		balances = make(map[string]int64)
		g.balances[token] = balances
	}
	return balances
}

func (g *MockGateway) allowance(token, owner, spender string) int64 {
	byOwner, ok := g.allowances[token]
	if !ok {
		return 0
	}
	bySpender, ok := byOwner[owner]
	if !ok {
		return 0
	}
	return bySpender[spender]
}
