package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"review-service/internal/auth/credentials"
	"review-service/internal/auth/token"
	"review-service/internal/logger"
	"review-service/internal/middleware"
	"review-service/internal/session"
)

// Authenticator checks a user id + session key pair.
type Authenticator interface {
	Authenticate(ctx context.Context, userID, secret string) (credentials.User, error)
}

type Handler struct {
	users        Authenticator
	sessionStore session.Store
	signer       *token.Signer
	ttl          time.Duration
	cookie       session.CookieOptions
	now          func() time.Time
}

func NewHandler(
	users Authenticator,
	sessionStore session.Store,
	signer *token.Signer,
	ttl time.Duration,
	cookie session.CookieOptions,
) *Handler {
	return &Handler{
		users:        users,
		sessionStore: sessionStore,
		signer:       signer,
		ttl:          ttl,
		cookie:       cookie,
		now:          time.Now,
	}
}

// RegisterRoutes mounts login and logout on public and /auth/me on
// authed, which must already run the auth middleware.
func (h *Handler) RegisterRoutes(public, authed gin.IRoutes) {
	public.POST("/auth/login", h.Login)
	public.POST("/auth/logout", h.Logout)
	authed.GET("/auth/me", h.Me)
}

// Logout ends the login session the presented token belongs to. It is
// idempotent and succeeds for missing or already expired tokens.
func (h *Handler) Logout(c *gin.Context) {
	if raw := middleware.Credential(c.Request); raw != "" {
		if claims, err := h.signer.Parse(raw); err == nil {
			// best-effort
			if err := h.sessionStore.Delete(c.Request.Context(), claims.SessionID); err != nil {
				logger.Warn("failed to delete session on logout", map[string]any{
					"user_id": claims.UserID,
					"error":   err.Error(),
				})
			} else {
				logger.Info("logout", map[string]any{
					"user_id": claims.UserID,
					"ip":      c.ClientIP(),
				})
			}
		}
	}

	session.ClearCookie(c.Writer, h.cookie)
	c.Status(http.StatusNoContent)
}

func (h *Handler) Me(c *gin.Context) {
	p, ok := middleware.PrincipalFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "code": "UNAUTHORIZED"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": p.UserID, "role": p.Role})
}
