package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ammarkhassawneh/mlops-accidents/internal/auth"
	"github.com/ammarkhassawneh/mlops-accidents/internal/db"
	"github.com/ammarkhassawneh/mlops-accidents/internal/repository"
)

type contextKey string

const principalContextKey contextKey = "principal"

// Rejection reasons surfaced in 401/403 bodies and request logs.
const (
	ReasonMissingCredential      = "missing_credential"
	ReasonInvalidToken           = "invalid_token"
	ReasonUnknownPrincipal       = "unknown_principal"
	ReasonRoleMismatch           = "role_mismatch"
	ReasonInsufficientPermission = "insufficient_permission"
)

// Principal returns the authenticated user attached by the Guard, or nil.
func Principal(ctx context.Context) *db.User {
	if u, ok := ctx.Value(principalContextKey).(*db.User); ok {
		return u
	}
	return nil
}

// WithPrincipal attaches a user to the context. Exported for handler
// tests that bypass the Guard.
func WithPrincipal(ctx context.Context, u *db.User) context.Context {
	return context.WithValue(ctx, principalContextKey, u)
}

// Guard resolves bearer tokens to stored principals and enforces per-route
// policy. It performs no mutation; failures short-circuit the request.
type Guard struct {
	jwtManager *auth.JWTManager
	users      repository.UserRepository
}

func NewGuard(jwtManager *auth.JWTManager, users repository.UserRepository) *Guard {
	return &Guard{jwtManager: jwtManager, users: users}
}

// Authenticate walks the request from bare token to resolved principal:
// token present, claims valid, subject known, stored role matching the
// claim. Each failed step rejects with 401 and its reason.
func (g *Guard) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			reject(w, http.StatusUnauthorized, ReasonMissingCredential, "missing bearer token")
			return
		}
		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")

		claims, err := g.jwtManager.Verify(tokenStr)
		if err != nil {
			reject(w, http.StatusUnauthorized, ReasonInvalidToken, "token is invalid or expired")
			return
		}

		user, err := g.users.GetByName(r.Context(), claims.Subject)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				reject(w, http.StatusUnauthorized, ReasonUnknownPrincipal, "token subject is not a known user")
				return
			}
			reject(w, http.StatusInternalServerError, "storage_error", "could not resolve principal")
			return
		}

		// A token minted before a role change must not keep the old role
		// alive.
		if user.Role != claims.Role {
			reject(w, http.StatusUnauthorized, ReasonRoleMismatch, "token role does not match stored role")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), user)))
	})
}

// RequireAdmin allows only principals holding the admin role. Must run
// after Authenticate.
func (g *Guard) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := Principal(r.Context())
		if user == nil || user.Role != db.RoleAdmin {
			reject(w, http.StatusForbidden, ReasonInsufficientPermission, "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireSelfOrAdmin allows admins, or the principal whose id matches the
// named URL parameter. Must run after Authenticate.
func (g *Guard) RequireSelfOrAdmin(param string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := Principal(r.Context())
			if user == nil {
				reject(w, http.StatusUnauthorized, ReasonMissingCredential, "authentication required")
				return
			}
			if user.Role != db.RoleAdmin {
				id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
				if err != nil || id != user.ID {
					reject(w, http.StatusForbidden, ReasonInsufficientPermission, "not the owner")
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func reject(w http.ResponseWriter, status int, reason, message string) {
	w.Header().Set("Content-Type", "application/json")
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error":   reason,
		"message": message,
	})
}
