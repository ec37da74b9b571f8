package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/agoralabs/marketplace-settlement/internal/api/middleware"
	"github.com/agoralabs/marketplace-settlement/internal/api/problem"
	"github.com/agoralabs/marketplace-settlement/internal/domain"
	"github.com/agoralabs/marketplace-settlement/internal/repository"
	"github.com/jackc/pgx/v5/pgconn"
)

// RespondJSON writes a JSON response.
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// RespondError writes an error response.
func RespondError(w http.ResponseWriter, r *http.Request, status int, problemType, message string) {
	if problemType != "" && problemType != "about:blank" && !strings.HasPrefix(problemType, "http") {
		problemType = problem.Type(problemType)
	}
	problem.Write(w, r, status, problemType, http.StatusText(status), message)
}

func requestActor(r *http.Request) (string, bool, error) {
	address := middleware.AddressFromContext(r.Context())
	if address == "" {
		return "", false, errors.New("missing address in auth context")
	}
	return address, middleware.UserRoleFromContext(r.Context()) == "admin", nil
}

type errorMapping struct {
	status      int
	problemType string
}

var domainErrorMappings = []struct {
	err     error
	mapping errorMapping
}{
	{domain.ErrNotIPFSHash, errorMapping{http.StatusBadRequest, "catalog/not-ipfs-hash"}},
	{domain.ErrPhotoLimitExceeded, errorMapping{http.StatusBadRequest, "catalog/photo-limit-exceeded"}},
	{domain.ErrItemNotListed, errorMapping{http.StatusConflict, "catalog/item-not-listed"}},
	{domain.ErrSellerCannotBuyOwnItem, errorMapping{http.StatusConflict, "settlement/seller-cannot-buy-own-item"}},
	{domain.ErrMustBeModerator, errorMapping{http.StatusForbidden, "settlement/must-be-moderator"}},
	{domain.ErrValueDistributionNotCorrect, errorMapping{http.StatusBadRequest, "settlement/value-distribution-not-correct"}},
	{domain.ErrTerminalSettlement, errorMapping{http.StatusConflict, "settlement/already-terminal"}},
	{domain.ErrInvalidTransition, errorMapping{http.StatusConflict, "settlement/invalid-transition"}},
	{domain.ErrTransactionExists, errorMapping{http.StatusConflict, "settlement/already-exists"}},
	{domain.ErrInsufficientValue, errorMapping{http.StatusPaymentRequired, "funds/insufficient-value"}},
	{domain.ErrInsufficientAllowance, errorMapping{http.StatusPaymentRequired, "funds/insufficient-allowance"}},
	{domain.ErrInsufficientBalance, errorMapping{http.StatusPaymentRequired, "funds/insufficient-balance"}},
	{domain.ErrCustodyExceeded, errorMapping{http.StatusConflict, "funds/custody-exceeded"}},
	{domain.ErrAlreadyReviewed, errorMapping{http.StatusConflict, "review/already-reviewed"}},
	{domain.ErrInvalidRating, errorMapping{http.StatusBadRequest, "review/invalid-rating"}},
	{domain.ErrNotRegisteredUser, errorMapping{http.StatusForbidden, "identity/not-registered"}},
	{domain.ErrMaxFeeExceeded, errorMapping{http.StatusBadRequest, "identity/max-fee-exceeded"}},
	{domain.ErrTokenNotSupported, errorMapping{http.StatusBadRequest, "token/not-supported"}},
	{domain.ErrInvalidAddress, errorMapping{http.StatusBadRequest, "request/invalid-address"}},
	{domain.ErrInvalidAmount, errorMapping{http.StatusBadRequest, "request/invalid-amount"}},
	{domain.ErrUnauthorized, errorMapping{http.StatusForbidden, "request/forbidden"}},
}

// RespondDomainError maps service errors onto RFC 7807 responses. Unknown
// errors become opaque 500s so internals never leak to clients.
func RespondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, repository.ErrNotFound) {
		RespondError(w, r, http.StatusNotFound, "request/not-found", "resource not found")
		return
	}
	for _, m := range domainErrorMappings {
		if errors.Is(err, m.err) {
			RespondError(w, r, m.mapping.status, m.mapping.problemType, err.Error())
			return
		}
	}
	if status, problemType, message, ok := mapDBError(err); ok {
		RespondError(w, r, status, problemType, message)
		return
	}
	RespondError(w, r, http.StatusInternalServerError, "internal", "internal server error")
}

func mapDBError(err error) (status int, problemType, message string, ok bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return 0, "", "", false
	}

	switch pgErr.Code {
	case "23505": // unique_violation
		return http.StatusConflict, "db/unique-violation", "resource already exists", true
	case "23503": // foreign_key_violation
		return http.StatusBadRequest, "db/foreign-key-violation", "invalid reference", true
	case "23514": // check_violation
		return http.StatusBadRequest, "db/check-violation", "request violates data constraints", true
	case "23502": // not_null_violation
		return http.StatusBadRequest, "db/not-null-violation", "missing required field", true
	default:
		return 0, "", "", false
	}
}
