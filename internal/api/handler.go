// Package api is the HTTP surface of the review service.
package api

import (
	"context"

	"github.com/gin-gonic/gin"

	"review-service/internal/auth"
	"review-service/internal/auth/credentials"
	"review-service/internal/middleware"
	"review-service/internal/review"
)

// UserAdmin is the credential operations exposed to admins.
type UserAdmin interface {
	Create(ctx context.Context, userID string, role auth.Role) (credentials.Issued, error)
	RotateSecret(ctx context.Context, userID string) (credentials.Issued, error)
	List(ctx context.Context) ([]credentials.User, error)
}

type Handler struct {
	manager     *review.Manager
	gate        *review.Gate
	aggregator  *review.Aggregator
	permissions *review.Permissions
	catalog     review.Catalog
	users       UserAdmin
}

type Deps struct {
	Manager     *review.Manager
	Gate        *review.Gate
	Aggregator  *review.Aggregator
	Permissions *review.Permissions
	Catalog     review.Catalog
	Users       UserAdmin
}

func NewHandler(d Deps) *Handler {
	return &Handler{
		manager:     d.Manager,
		gate:        d.Gate,
		aggregator:  d.Aggregator,
		permissions: d.Permissions,
		catalog:     d.Catalog,
		users:       d.Users,
	}
}

// RegisterRoutes mounts every endpoint on authed, a group that already
// runs the auth middleware.
func (h *Handler) RegisterRoutes(authed *gin.RouterGroup) {
	s := authed.Group("/strategic")
	s.GET("/sessions", h.listSessions)
	s.GET("/strategies", h.listStrategies)

	sess := s.Group("/session/:sessionId")
	sess.GET("/eventlist", h.listEvents)
	sess.GET("/eventdetails/:eventId", h.getEvent)

	ev := sess.Group("/event/:eventId")
	ev.POST("/evaluations", h.setReaction)
	ev.DELETE("/evaluation", h.clearReaction)
	ev.POST("/correction", h.setCorrection)
	ev.GET("/correction", h.getCorrection)
	ev.DELETE("/correction", h.clearCorrection)
	ev.PUT("/like", h.like)
	ev.PUT("/dislike", h.dislike)

	sess.GET("/evaluations", middleware.RequireRole(auth.RoleAdmin), h.listAllEvaluations)
	sess.GET("/evaluations/totals", h.totals)
	sess.GET("/evaluations/:userId", h.listUserEvaluations)
	sess.GET("/access/:userId", h.access)

	admin := authed.Group("/admin", middleware.RequireRole(auth.RoleAdmin))
	admin.GET("/users", h.listUsers)
	admin.POST("/users", h.createUser)
	admin.POST("/users/:userId/rotate-session-key", h.rotateSessionKey)
	admin.GET("/users/:userId/allowed-sessions", h.allowedSessions)
	admin.PUT("/users/:userId/allowed-sessions", h.replaceAllowedSessions)
}

// principal returns the caller. The auth middleware guarantees one is
// present; a missing principal is reported as unauthorized.
func principal(c *gin.Context) (auth.Principal, bool) {
	p, ok := middleware.PrincipalFromContext(c.Request.Context())
	if !ok {
		writeError(c, review.ErrUnauthorized)
	}
	return p, ok
}

// voter resolves the caller and runs the vote gate for the path session.
func (h *Handler) voter(c *gin.Context) (auth.Principal, bool) {
	p, ok := principal(c)
	if !ok {
		return p, false
	}
	if err := h.gate.Authorize(c.Request.Context(), p, c.Param("sessionId")); err != nil {
		writeError(c, err)
		return p, false
	}
	return p, true
}
