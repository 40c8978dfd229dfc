// Package auth binds the external identity provider to request handling:
// it verifies bearer tokens and places the resulting Principal in the
// request context. Token issuance lives outside this platform.
package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	platformauth "github.com/fra-atlas/platform/internal/auth"
	"github.com/fra-atlas/platform/internal/shared/config"
	"github.com/fra-atlas/platform/internal/shared/types"
)

type contextKey string

const (
	// PrincipalContextKey is the context key for the authenticated principal
	PrincipalContextKey contextKey = "principal"
)

// Claims extends JWT registered claims with platform-specific data
type Claims struct {
	jwt.RegisteredClaims
	Role     string `json:"role"`
	State    string `json:"state,omitempty"`
	District string `json:"district,omitempty"`
	Block    string `json:"block,omitempty"`
}

// Middleware creates JWT authentication middleware
func Middleware(cfg config.AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeError(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				writeError(w, http.StatusUnauthorized, "invalid authorization header format")
				return
			}

			token, err := jwt.ParseWithClaims(parts[1], &Claims{}, func(token *jwt.Token) (interface{}, error) {
				return []byte(cfg.JWTSecret), nil
			})
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			claims, ok := token.Claims.(*Claims)
			if !ok || !token.Valid {
				writeError(w, http.StatusUnauthorized, "invalid token claims")
				return
			}

			role := platformauth.Role(claims.Role)
			if !role.Valid() {
				writeError(w, http.StatusForbidden, "unknown role")
				return
			}

			principal := &platformauth.Principal{
				ID:       types.ID(claims.Subject),
				Role:     role,
				State:    claims.State,
				District: claims.District,
				Block:    claims.Block,
			}

			ctx := context.WithValue(r.Context(), PrincipalContextKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetPrincipal extracts the principal from request context
func GetPrincipal(ctx context.Context) *platformauth.Principal {
	p, ok := ctx.Value(PrincipalContextKey).(*platformauth.Principal)
	if !ok {
		return nil
	}
	return p
}

// WithPrincipal returns a context carrying the given principal.
// Used by tests and by the database-less development mode.
func WithPrincipal(ctx context.Context, p *platformauth.Principal) context.Context {
	return context.WithValue(ctx, PrincipalContextKey, p)
}

// RequireRoles creates middleware that requires one of the given roles
func RequireRoles(roles ...platformauth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := GetPrincipal(r.Context())
			if p == nil {
				writeError(w, http.StatusUnauthorized, "authentication required")
				return
			}

			for _, role := range roles {
				if p.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeError(w, http.StatusForbidden, "insufficient permissions")
		})
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
