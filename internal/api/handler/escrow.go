package handler

import (
	"encoding/json"
	"net/http"

	"github.com/agoralabs/marketplace-settlement/internal/escrow"
	"go.uber.org/zap"
)

type EscrowHandler struct {
	engine *escrow.Engine
}

func NewEscrowHandler(engine *escrow.Engine) *EscrowHandler {
	return &EscrowHandler{engine: engine}
}

// Get loads the settlement record for an item.
func (h *EscrowHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := itemIDParam(r)
	if !ok {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-item-id", "Invalid item id")
		return
	}
	tx, err := h.engine.Get(r.Context(), id)
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, tx)
}

// Approve records the caller's approval of an open settlement.
func (h *EscrowHandler) Approve(w http.ResponseWriter, r *http.Request) {
	actor, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/missing-context", err.Error())
		return
	}
	id, ok := itemIDParam(r)
	if !ok {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-item-id", "Invalid item id")
		return
	}

	tx, err := h.engine.Approve(r.Context(), id, actor)
	if err != nil {
		zap.L().Warn("approve failed", zap.Error(err), zap.Uint64("item_id", id), zap.String("actor", actor))
		RespondDomainError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, tx)
}

// Dispute escalates an open settlement for moderator resolution.
func (h *EscrowHandler) Dispute(w http.ResponseWriter, r *http.Request) {
	actor, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/missing-context", err.Error())
		return
	}
	id, ok := itemIDParam(r)
	if !ok {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-item-id", "Invalid item id")
		return
	}

	tx, err := h.engine.RaiseDispute(r.Context(), id, actor)
	if err != nil {
		zap.L().Warn("dispute failed", zap.Error(err), zap.Uint64("item_id", id), zap.String("actor", actor))
		RespondDomainError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, tx)
}

// Resolve settles a disputed escrow with the moderator's split.
func (h *EscrowHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	actor, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/missing-context", err.Error())
		return
	}
	id, ok := itemIDParam(r)
	if !ok {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-item-id", "Invalid item id")
		return
	}

	var req struct {
		BuyerPct  int64 `json:"buyer_pct"`
		SellerPct int64 `json:"seller_pct"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}

	tx, err := h.engine.Resolve(r.Context(), id, actor, req.BuyerPct, req.SellerPct)
	if err != nil {
		zap.L().Warn("resolve failed", zap.Error(err), zap.Uint64("item_id", id), zap.String("moderator", actor))
		RespondDomainError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, tx)
}
