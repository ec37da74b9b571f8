package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/agoralabs/marketplace-settlement/internal/domain"
	"github.com/agoralabs/marketplace-settlement/internal/ledger"
	"github.com/agoralabs/marketplace-settlement/internal/models"
	"github.com/agoralabs/marketplace-settlement/internal/repository"
	"go.uber.org/zap"
)

type balanceResponse struct {
	Address       string `json:"address"`
	Currency      string `json:"currency"`
	Amount        int64  `json:"amount"`
	DisplayAmount string `json:"display_amount"`
}

func newBalanceResponse(address string, amount int64, currency string) balanceResponse {
	return balanceResponse{
		Address:       address,
		Currency:      currency,
		Amount:        amount,
		DisplayAmount: domain.NewMoney(amount, currency).String(),
	}
}

type AccountHandler struct {
	store  repository.Store
	ledger *ledger.Ledger
}

func NewAccountHandler(store repository.Store, l *ledger.Ledger) *AccountHandler {
	return &AccountHandler{store: store, ledger: l}
}

// Balance returns the caller's balance in the requested currency.
func (h *AccountHandler) Balance(w http.ResponseWriter, r *http.Request) {
	actor, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/missing-context", err.Error())
		return
	}

	currency := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("currency")))
	if currency == "" {
		currency = h.ledger.NativeCurrency()
	}

	balance, err := h.store.Queries().GetBalance(r.Context(), actor, currency)
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}

	RespondJSON(w, http.StatusOK, newBalanceResponse(actor, balance, currency))
}

// Deposit credits the caller's native balance. Stand-in for an on-ramp.
func (h *AccountHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	actor, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/missing-context", err.Error())
		return
	}

	var req struct {
		Amount int64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}

	err = h.store.RunInTx(r.Context(), func(q repository.Queries) error {
		return h.ledger.FundNative(r.Context(), q, actor, req.Amount)
	})
	if err != nil {
		zap.L().Warn("deposit failed", zap.Error(err), zap.String("address", actor))
		RespondDomainError(w, r, err)
		return
	}

	balance, err := h.store.Queries().GetBalance(r.Context(), actor, h.ledger.NativeCurrency())
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusCreated, newBalanceResponse(actor, balance, h.ledger.NativeCurrency()))
}

// Statement pages through the caller's ledger entries, newest first.
func (h *AccountHandler) Statement(w http.ResponseWriter, r *http.Request) {
	actor, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/missing-context", err.Error())
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if offset < 0 {
		offset = 0
	}

	entries, err := h.store.Queries().ListEntries(r.Context(), actor, limit, offset)
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}
	if entries == nil {
		entries = []models.Entry{}
	}
	RespondJSON(w, http.StatusOK, entries)
}
