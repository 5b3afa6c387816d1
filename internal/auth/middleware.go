package auth

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/honeynil/auth-service/internal/infrastructure/observability"
	"github.com/honeynil/auth-service/internal/models"
)

// Authenticate runs once per request and, when a valid non-revoked
// bearer token is presented, attaches the principal and account id to
// the request context. It never rejects a request itself: a missing,
// malformed, expired or revoked credential just means the request
// continues unauthenticated. Rejection belongs to RequireAuthenticated
// and RequireAuthority.
func Authenticate(tokens *TokenManager, revocations *RevocationManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr, ok := ConvertToken(r.Header.Get("Authorization"))
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := tokens.Verify(tokenStr)
			if err != nil {
				observability.TokenChecks.WithLabelValues("invalid").Inc()
				slog.Debug("rejected bearer token", "error", err)
				next.ServeHTTP(w, r)
				return
			}

			revoked, err := revocations.IsRevoked(r.Context(), claims.Identifier())
			if err != nil {
				// Store unavailable: the token cannot be proven
				// valid, so it is treated as unverifiable rather
				// than as accepted.
				observability.TokenChecks.WithLabelValues("store_error").Inc()
				slog.Error("revocation check failed, treating token as unverifiable",
					"jti", claims.Identifier(), "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if revoked {
				observability.TokenChecks.WithLabelValues("revoked").Inc()
				slog.Debug("revoked token presented", "jti", claims.Identifier())
				next.ServeHTTP(w, r)
				return
			}
			observability.TokenChecks.WithLabelValues("ok").Inc()

			principal := &models.Principal{
				Username:    claims.Name,
				Authorities: claims.Authorities,
			}
			ctx := WithPrincipal(r.Context(), principal)
			ctx = WithAccountID(ctx, claims.AccountID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuthenticated rejects requests that carry no principal with
// 401. Distinct from RequireAuthority: absence of identity is never
// reported as insufficient rights.
func RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := PrincipalFromContext(r.Context()); !ok {
			writeJSONError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAuthority rejects authenticated requests whose principal lacks
// the given authority with 403.
func RequireAuthority(authority string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				writeJSONError(w, http.StatusUnauthorized, "authentication required")
				return
			}
			if !principal.HasAuthority(authority) {
				writeJSONError(w, http.StatusForbidden, "insufficient rights")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
