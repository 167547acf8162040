package middleware

import (
	"context"
	"net/http"
	"slices"
	"strings"

	"github.com/joyverse/joyverse-backend/internal/api/apierr"
	"github.com/joyverse/joyverse-backend/internal/model"
	"github.com/joyverse/joyverse-backend/internal/services/auth"
)

type contextKey string

const (
	principalContextKey contextKey = "principal"
	tokenContextKey     contextKey = "token"
)

// TokenValidator verifies bearer tokens
type TokenValidator interface {
	Validate(token string) (*auth.Principal, error)
}

// Auth creates authentication middleware
func Auth(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				apierr.WriteError(w, apierr.NewUnauthorizedError())
				return
			}

			principal, err := validator.Validate(token)
			if err != nil {
				apierr.WriteError(w, err)
				return
			}

			ctx := r.Context()
			ctx = context.WithValue(ctx, principalContextKey, principal)
			ctx = context.WithValue(ctx, tokenContextKey, token)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects principals whose role is not listed. It must run
// after Auth.
func RequireRole(roles ...model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := GetPrincipal(r.Context())
			if p == nil {
				apierr.WriteError(w, apierr.NewUnauthorizedError())
				return
			}
			if !slices.Contains(roles, p.Role) {
				apierr.WriteError(w, model.ErrNotPermitted)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// extractToken extracts the bearer token from the request. Event
// streams cannot set headers from a browser, so they may pass it as
// the access_token query parameter.
func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}
	if r.Method == http.MethodGet {
		return r.URL.Query().Get("access_token")
	}
	return ""
}

// GetPrincipal returns the authenticated principal from the request context
func GetPrincipal(ctx context.Context) *auth.Principal {
	p, _ := ctx.Value(principalContextKey).(*auth.Principal)
	return p
}

// GetToken returns the raw bearer token from the request context
func GetToken(ctx context.Context) string {
	token, _ := ctx.Value(tokenContextKey).(string)
	return token
}

// MustGetPrincipal returns the authenticated principal or panics
func MustGetPrincipal(ctx context.Context) *auth.Principal {
	p := GetPrincipal(ctx)
	if p == nil {
		panic("no principal in context - auth middleware not applied?")
	}
	return p
}

// Access says who besides the subject may act on a user's data
type Access int

const (
	// SelfOrAdmin allows the user and admins
	SelfOrAdmin Access = iota
	// SelfOrStaff also allows therapists
	SelfOrStaff
	// SelfOnly allows nobody else
	SelfOnly
)

// Authorize returns ErrNotPermitted unless p may act on subject's data
func Authorize(p *auth.Principal, subject model.UserID, access Access) error {
	if p == nil {
		return apierr.NewUnauthorizedError()
	}
	if p.UserID == subject {
		return nil
	}
	switch access {
	case SelfOrAdmin:
		if p.Role == model.RoleAdmin {
			return nil
		}
	case SelfOrStaff:
		if p.Role.IsStaff() {
			return nil
		}
	}
	return model.ErrNotPermitted
}
