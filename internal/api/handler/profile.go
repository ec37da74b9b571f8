package handler

import (
	"encoding/json"
	"net/http"

	"github.com/agoralabs/marketplace-settlement/internal/identity"
	"github.com/agoralabs/marketplace-settlement/internal/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type ProfileHandler struct {
	identities *identity.Service
}

func NewProfileHandler(identities *identity.Service) *ProfileHandler {
	return &ProfileHandler{identities: identities}
}

type profileRequest struct {
	Username     string `json:"username"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Country      string `json:"country"`
	Description  string `json:"description"`
	Email        string `json:"email"`
	AvatarHash   string `json:"avatar_hash"`
	IsModerator  bool   `json:"is_moderator"`
	ModeratorFee int64  `json:"moderator_fee"`
}

// Save creates or updates the caller's own profile.
func (h *ProfileHandler) Save(w http.ResponseWriter, r *http.Request) {
	actor, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/missing-context", err.Error())
		return
	}

	var req profileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}

	profile, err := h.identities.SaveProfile(r.Context(), &models.Profile{
		Address:      actor,
		Username:     req.Username,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Country:      req.Country,
		Description:  req.Description,
		Email:        req.Email,
		AvatarHash:   req.AvatarHash,
		IsModerator:  req.IsModerator,
		ModeratorFee: req.ModeratorFee,
	})
	if err != nil {
		zap.L().Warn("save profile failed", zap.Error(err), zap.String("address", actor))
		RespondDomainError(w, r, err)
		return
	}

	RespondJSON(w, http.StatusOK, profile)
}

// Get loads a profile by address.
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")
	profile, err := h.identities.GetProfile(r.Context(), address)
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, profile)
}

// Reviews lists the reviews written about a seller.
func (h *ProfileHandler) Reviews(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")
	reviews, err := h.identities.ListReviews(r.Context(), address)
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}
	if reviews == nil {
		reviews = []models.Review{}
	}
	RespondJSON(w, http.StatusOK, reviews)
}
