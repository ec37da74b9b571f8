package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/agoralabs/marketplace-settlement/internal/api/middleware"
	"github.com/agoralabs/marketplace-settlement/internal/domain"
	"github.com/agoralabs/marketplace-settlement/internal/identity"
	"github.com/golang-jwt/jwt/v5"
)

// AuthHandler issues session tokens for registered wallet addresses. Signature
// verification happens upstream at the gateway; this service only checks the
// address is registered and stamps its role.
type AuthHandler struct {
	identities *identity.Service
	authority  string
}

func NewAuthHandler(identities *identity.Service, authority string) *AuthHandler {
	return &AuthHandler{identities: identities, authority: domain.NormalizeAddress(authority)}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Address string `json:"address"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}
	if err := domain.ValidateAddress(req.Address); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-address", "Invalid address")
		return
	}
	address := domain.NormalizeAddress(req.Address)

	if _, err := h.identities.GetProfile(r.Context(), address); err != nil {
		if errors.Is(err, domain.ErrNotRegisteredUser) {
			RespondError(w, r, http.StatusNotFound, "identity/not-registered", "Address is not registered")
			return
		}
		RespondDomainError(w, r, err)
		return
	}

	role := "user"
	if address == h.authority {
		role = "admin"
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"address": address,
		"role":    role,
		"sub":     address,
		"iss":     middleware.JWTIssuer(),
		"aud":     middleware.JWTAudience(),
		"iat":     now.Unix(),
		"exp":     now.Add(24 * time.Hour).Unix(),
	})

	tokenString, err := token.SignedString(middleware.JWTSecret())
	if err != nil {
		RespondError(w, r, http.StatusInternalServerError, "auth/sign-failed", "Failed to sign token")
		return
	}

	RespondJSON(w, http.StatusOK, map[string]string{"token": tokenString})
}
