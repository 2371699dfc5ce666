package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"review-service/internal/auth/token"
	"review-service/internal/logger"
	"review-service/internal/session"
)

type loginRequest struct {
	UserID     string `json:"userId"`
	SessionKey string `json:"sessionKey"`
}

type loginUser struct {
	ID   string `json:"id"`
	Role string `json:"role"`
}

type loginResponse struct {
	AccessToken string    `json:"access_token"`
	User        loginUser `json:"user"`
}

func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "code": "INVALID_INPUT"})
		return
	}
	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" || req.SessionKey == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId and sessionKey are required", "code": "INVALID_INPUT"})
		return
	}

	u, err := h.users.Authenticate(c.Request.Context(), req.UserID, req.SessionKey)
	if err != nil {
		logger.Warn("login failed", map[string]any{
			"user_id": req.UserID,
			"ip":      c.ClientIP(),
		})
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials", "code": "UNAUTHORIZED"})
		return
	}

	sessionID, err := session.GenerateID()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session error", "code": "INTERNAL"})
		return
	}

	now := h.now().UTC()
	expiresAt := now.Add(h.ttl)

	if err := h.sessionStore.Create(c.Request.Context(), session.Session{
		SessionID: sessionID,
		UserID:    u.ID,
		CreatedAt: now,
		ExpiresAt: expiresAt,
	}); err != nil {
		logger.Error("failed to persist session", map[string]any{
			"user_id": u.ID,
			"error":   err.Error(),
		})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session error", "code": "INTERNAL"})
		return
	}

	signed, err := h.signer.Sign(token.Claims{
		UserID:    u.ID,
		Role:      u.Role,
		SessionID: sessionID,
		IssuedAt:  now,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		_ = h.sessionStore.Delete(c.Request.Context(), sessionID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session error", "code": "INTERNAL"})
		return
	}

	session.SetCookie(c.Writer, signed, expiresAt, h.cookie)

	logger.Info("login", map[string]any{
		"user_id": u.ID,
		"role":    string(u.Role),
		"ip":      c.ClientIP(),
	})

	c.JSON(http.StatusOK, loginResponse{
		AccessToken: signed,
		User:        loginUser{ID: u.ID, Role: string(u.Role)},
	})
}
