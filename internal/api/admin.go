package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"review-service/internal/auth"
)

type createUserRequest struct {
	UserID string    `json:"userId"`
	Role   auth.Role `json:"role"`
}

type allowedSessionsRequest struct {
	SessionIDs []string `json:"sessionIds"`
}

type allowedSessionsResponse struct {
	UserID     string   `json:"userId"`
	SessionIDs []string `json:"sessionIds"`
}

func (h *Handler) listUsers(c *gin.Context) {
	users, err := h.users.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// createUser registers a user and returns its session key. The key is
// shown only in this response.
func (h *Handler) createUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	if req.Role == "" {
		req.Role = auth.RoleUser
	}

	issued, err := h.users.Create(c.Request.Context(), req.UserID, req.Role)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, issued)
}

func (h *Handler) rotateSessionKey(c *gin.Context) {
	issued, err := h.users.RotateSecret(c.Request.Context(), c.Param("userId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, issued)
}

func (h *Handler) allowedSessions(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	userID := c.Param("userId")
	ids, err := h.permissions.AllowedSessions(c.Request.Context(), p, userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, allowedSessionsResponse{UserID: userID, SessionIDs: ids})
}

// replaceAllowedSessions makes the body the user's exact set. Unknown
// session ids are dropped; the response carries the applied set.
func (h *Handler) replaceAllowedSessions(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req allowedSessionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	userID := c.Param("userId")
	applied, err := h.permissions.ReplaceAllowedSessions(c.Request.Context(), p, userID, req.SessionIDs)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, allowedSessionsResponse{UserID: userID, SessionIDs: applied})
}
