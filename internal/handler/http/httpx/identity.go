package httpx

import (
	"net/http"
	"strconv"
	"strings"

	"coursepay/internal/domain"
)

// Headers set by the upstream API gateway after it authenticated the caller.
const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"
)

// RequireIdentity rejects requests without a valid forwarded identity and
// stores the identity in the request context.
func RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := strconv.ParseInt(r.Header.Get(HeaderUserID), 10, 64)
		if err != nil || userID <= 0 {
			WriteErrorMessage(w, http.StatusUnauthorized, "authentication required")
			return
		}
		role := domain.Role(strings.ToUpper(strings.TrimSpace(r.Header.Get(HeaderUserRole))))
		if !role.Valid() {
			WriteErrorMessage(w, http.StatusUnauthorized, "authentication required")
			return
		}
		ctx := domain.WithIdentity(r.Context(), domain.Identity{UserID: userID, Role: role})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Identity returns the caller stored by RequireIdentity.
func Identity(r *http.Request) domain.Identity {
	id, _ := domain.IdentityFromContext(r.Context())
	return id
}
