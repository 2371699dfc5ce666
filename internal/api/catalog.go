package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"review-service/internal/review"
)

func (h *Handler) listSessions(c *gin.Context) {
	sessions, err := h.catalog.ListSessions(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessions)
}

func (h *Handler) listStrategies(c *gin.Context) {
	strategies, err := h.catalog.ListStrategies(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, strategies)
}

func (h *Handler) listEvents(c *gin.Context) {
	ctx := c.Request.Context()
	sessionID := c.Param("sessionId")

	ok, err := h.catalog.SessionExists(ctx, sessionID)
	if err != nil {
		writeError(c, err)
		return
	}
	if !ok {
		writeError(c, fmt.Errorf("%w: session %q", review.ErrNotFound, sessionID))
		return
	}

	events, err := h.catalog.ListEvents(ctx, sessionID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

func (h *Handler) getEvent(c *gin.Context) {
	ev, err := h.catalog.GetEvent(c.Request.Context(), c.Param("sessionId"), c.Param("eventId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ev)
}
