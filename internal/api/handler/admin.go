package handler

import (
	"encoding/json"
	"net/http"

	"github.com/agoralabs/marketplace-settlement/internal/identity"
	"github.com/agoralabs/marketplace-settlement/internal/models"
	"github.com/agoralabs/marketplace-settlement/internal/token"
	"go.uber.org/zap"
)

// AdminHandler covers authority-only operations: the supported-token registry
// and the moderator fee ceiling.
type AdminHandler struct {
	tokens     *token.Registry
	identities *identity.Service
}

func NewAdminHandler(tokens *token.Registry, identities *identity.Service) *AdminHandler {
	return &AdminHandler{tokens: tokens, identities: identities}
}

// RegisterToken adds or replaces a supported settlement token.
func (h *AdminHandler) RegisterToken(w http.ResponseWriter, r *http.Request) {
	actor, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/missing-context", err.Error())
		return
	}

	var req struct {
		Symbol  string `json:"symbol"`
		Address string `json:"address"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}

	tok, err := h.tokens.Register(r.Context(), actor, req.Symbol, req.Address)
	if err != nil {
		zap.L().Warn("register token failed", zap.Error(err), zap.String("symbol", req.Symbol))
		RespondDomainError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusCreated, tok)
}

// ListTokens returns all registered settlement tokens.
func (h *AdminHandler) ListTokens(w http.ResponseWriter, r *http.Request) {
	tokens, err := h.tokens.List(r.Context())
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}
	if tokens == nil {
		tokens = []models.Token{}
	}
	RespondJSON(w, http.StatusOK, tokens)
}

// GetModeratorFeeCeiling returns the current moderator fee ceiling.
func (h *AdminHandler) GetModeratorFeeCeiling(w http.ResponseWriter, r *http.Request) {
	max, err := h.identities.MaxModeratorFee(r.Context())
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]int64{"max_moderator_fee_pct": max})
}

// SetModeratorFeeCeiling updates the moderator fee ceiling.
func (h *AdminHandler) SetModeratorFeeCeiling(w http.ResponseWriter, r *http.Request) {
	actor, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/missing-context", err.Error())
		return
	}

	var req struct {
		MaxModeratorFeePct int64 `json:"max_moderator_fee_pct"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}

	if err := h.identities.SetMaxModeratorFee(r.Context(), actor, req.MaxModeratorFeePct); err != nil {
		zap.L().Warn("set moderator fee ceiling failed", zap.Error(err), zap.String("actor", actor))
		RespondDomainError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]int64{"max_moderator_fee_pct": req.MaxModeratorFeePct})
}
