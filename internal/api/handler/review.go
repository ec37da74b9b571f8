package handler

import (
	"encoding/json"
	"net/http"

	"github.com/agoralabs/marketplace-settlement/internal/identity"
	"go.uber.org/zap"
)

type ReviewHandler struct {
	identities *identity.Service
}

func NewReviewHandler(identities *identity.Service) *ReviewHandler {
	return &ReviewHandler{identities: identities}
}

// Create records the caller's one-time rating of a seller.
func (h *ReviewHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/missing-context", err.Error())
		return
	}

	var req struct {
		ItemID uint64 `json:"item_id"`
		Rating int32  `json:"rating"`
		Text   string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}

	review, err := h.identities.CreateReview(r.Context(), actor, identity.ReviewInput{
		ItemID: req.ItemID,
		Rating: req.Rating,
		Text:   req.Text,
	})
	if err != nil {
		zap.L().Warn("create review failed", zap.Error(err), zap.Uint64("item_id", req.ItemID), zap.String("reviewer", actor))
		RespondDomainError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusCreated, review)
}
