package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/agoralabs/marketplace-settlement/internal/catalog"
	"github.com/agoralabs/marketplace-settlement/internal/escrow"
	"github.com/agoralabs/marketplace-settlement/internal/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type ItemHandler struct {
	catalog *catalog.Service
	engine  *escrow.Engine
}

func NewItemHandler(c *catalog.Service, e *escrow.Engine) *ItemHandler {
	return &ItemHandler{catalog: c, engine: e}
}

type itemRequest struct {
	PriceAmount int64    `json:"price_amount"`
	Currency    string   `json:"currency"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	PhotoHashes []string `json:"photo_hashes"`
	Condition   string   `json:"condition"`
	Category    string   `json:"category"`
	Subcategory string   `json:"subcategory"`
	Country     string   `json:"country"`
	IsGift      bool     `json:"is_gift"`
}

func (req itemRequest) toInput() catalog.ItemInput {
	return catalog.ItemInput{
		PriceAmount: req.PriceAmount,
		Currency:    req.Currency,
		Title:       req.Title,
		Description: req.Description,
		PhotoHashes: req.PhotoHashes,
		Condition:   req.Condition,
		Category:    req.Category,
		Subcategory: req.Subcategory,
		Country:     req.Country,
		IsGift:      req.IsGift,
	}
}

func itemIDParam(r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "itemID"), 10, 64)
	return id, err == nil && id > 0
}

// Create publishes a new listing for the authenticated seller.
func (h *ItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/missing-context", err.Error())
		return
	}

	var req itemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}

	item, err := h.catalog.ListNewItem(r.Context(), actor, req.toInput())
	if err != nil {
		zap.L().Warn("list item failed", zap.Error(err), zap.String("seller", actor))
		RespondDomainError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusCreated, item)
}

// List pages through active listings.
func (h *ItemHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	items, err := h.catalog.ListItems(r.Context(), limit, offset)
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}
	if items == nil {
		items = []models.Item{}
	}
	RespondJSON(w, http.StatusOK, items)
}

// Get loads a single listing.
func (h *ItemHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := itemIDParam(r)
	if !ok {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-item-id", "Invalid item id")
		return
	}
	item, err := h.catalog.GetItem(r.Context(), id)
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, item)
}

// Update replaces a listing's fields. Seller only.
func (h *ItemHandler) Update(w http.ResponseWriter, r *http.Request) {
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

	var req itemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}

	item, err := h.catalog.UpdateItem(r.Context(), actor, id, req.toInput())
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, item)
}

// Delete retires a listing. Seller only.
func (h *ItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

	if err := h.catalog.DeleteItem(r.Context(), actor, id); err != nil {
		RespondDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Buy settles a purchase directly, buyer to seller, with no escrow interval.
func (h *ItemHandler) Buy(w http.ResponseWriter, r *http.Request) {
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
		Payment int64 `json:"payment"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}

	tx, err := h.engine.SettleDirect(r.Context(), escrow.DirectCmd{
		ItemID:  id,
		Buyer:   actor,
		Payment: req.Payment,
	})
	if err != nil {
		zap.L().Warn("direct purchase failed", zap.Error(err), zap.Uint64("item_id", id), zap.String("buyer", actor))
		RespondDomainError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusCreated, tx)
}

// BuyEscrow opens a moderated escrow purchase for the listing.
func (h *ItemHandler) BuyEscrow(w http.ResponseWriter, r *http.Request) {
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
		Moderator string `json:"moderator"`
		Payment   int64  `json:"payment"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}

	tx, err := h.engine.Create(r.Context(), escrow.CreateCmd{
		ItemID:    id,
		Buyer:     actor,
		Moderator: req.Moderator,
		Payment:   req.Payment,
	})
	if err != nil {
		zap.L().Warn("escrow purchase failed", zap.Error(err), zap.Uint64("item_id", id), zap.String("buyer", actor))
		RespondDomainError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusCreated, tx)
}
