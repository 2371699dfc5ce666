package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"review-service/internal/auth"
	"review-service/internal/auth/resolver"
	"review-service/internal/logger"
	"review-service/internal/session"
)

// unexported, collision-proof context key
type principalContextKeyType struct{}

var principalKey = principalContextKeyType{}

// PrincipalFromContext extracts the authenticated caller from context.
func PrincipalFromContext(ctx context.Context) (auth.Principal, bool) {
	p, ok := ctx.Value(principalKey).(auth.Principal)
	return p, ok && p.Authenticated()
}

func WithPrincipal(ctx context.Context, p auth.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

type AuthMiddleware struct {
	Resolver resolver.Resolver
}

func NewAuthMiddleware(r resolver.Resolver) *AuthMiddleware {
	return &AuthMiddleware{Resolver: r}
}

// RequireAuth resolves the request credential before any handler runs.
// Requests without a resolvable identity never reach next.
func (a *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		credential := Credential(r)
		if credential == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized", "UNAUTHORIZED")
			return
		}

		p, err := a.Resolver.Resolve(r.Context(), credential)
		if errors.Is(err, resolver.ErrUnauthorized) {
			writeError(w, http.StatusUnauthorized, "unauthorized", "UNAUTHORIZED")
			return
		}
		if err != nil {
			logger.Error("credential resolution failed", map[string]any{
				"path":  r.URL.Path,
				"error": err.Error(),
			})
			writeError(w, http.StatusInternalServerError, "internal error", "INTERNAL")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}

// Credential returns the bearer token from the Authorization header, or
// the access-token cookie for browser clients.
func Credential(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if cookie, err := r.Cookie(session.CookieName); err == nil {
		return cookie.Value
	}
	return ""
}

func writeError(w http.ResponseWriter, status int, msg, code string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg, "code": code})
}
