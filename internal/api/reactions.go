package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"review-service/internal/review"
)

type reactionRequest struct {
	Reaction string `json:"reaction"`
}

type correctionRequest struct {
	CorrectStrategy string `json:"correctStrategy"`
}

type dislikeResponse struct {
	Evaluation review.Evaluation `json:"evaluation"`
	Correction review.Correction `json:"correction"`
}

func writeStatus(res review.WriteResult) int {
	if res == review.Created {
		return http.StatusCreated
	}
	return http.StatusOK
}

func (h *Handler) setReaction(c *gin.Context) {
	p, ok := h.voter(c)
	if !ok {
		return
	}

	var req reactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	reaction, err := review.ParseReaction(req.Reaction)
	if err != nil {
		writeError(c, err)
		return
	}

	e, res, err := h.manager.SetReaction(c.Request.Context(), c.Param("sessionId"), c.Param("eventId"), p.UserID, reaction, time.Time{})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(writeStatus(res), e)
}

func (h *Handler) clearReaction(c *gin.Context) {
	p, ok := h.voter(c)
	if !ok {
		return
	}
	if err := h.manager.ClearReaction(c.Request.Context(), c.Param("sessionId"), c.Param("eventId"), p.UserID); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) setCorrection(c *gin.Context) {
	p, ok := h.voter(c)
	if !ok {
		return
	}

	var req correctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	corr, res, err := h.manager.SetCorrection(c.Request.Context(), c.Param("sessionId"), c.Param("eventId"), p.UserID, req.CorrectStrategy, time.Time{})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(writeStatus(res), corr)
}

func (h *Handler) getCorrection(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	corr, err := h.manager.GetCorrection(c.Request.Context(), c.Param("sessionId"), c.Param("eventId"), p.UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, corr)
}

func (h *Handler) clearCorrection(c *gin.Context) {
	p, ok := h.voter(c)
	if !ok {
		return
	}
	if err := h.manager.ClearCorrection(c.Request.Context(), c.Param("sessionId"), c.Param("eventId"), p.UserID); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) like(c *gin.Context) {
	p, ok := h.voter(c)
	if !ok {
		return
	}
	e, err := h.manager.Like(c.Request.Context(), c.Param("sessionId"), c.Param("eventId"), p.UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

func (h *Handler) dislike(c *gin.Context) {
	p, ok := h.voter(c)
	if !ok {
		return
	}

	var req correctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	e, corr, err := h.manager.Dislike(c.Request.Context(), c.Param("sessionId"), c.Param("eventId"), p.UserID, req.CorrectStrategy)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dislikeResponse{Evaluation: e, Correction: corr})
}

// listUserEvaluations returns one user's evaluations. Users may only read
// their own; admins may read anyone's.
func (h *Handler) listUserEvaluations(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	userID := c.Param("userId")
	if userID != p.UserID && !p.IsAdmin() {
		writeError(c, review.ErrUnauthorized)
		return
	}

	evals, err := h.manager.ListEvaluations(c.Request.Context(), c.Param("sessionId"), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, evals)
}

func (h *Handler) listAllEvaluations(c *gin.Context) {
	evals, err := h.manager.ListEvaluations(c.Request.Context(), c.Param("sessionId"), "")
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, evals)
}

func (h *Handler) totals(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	totals, err := h.aggregator.Totals(c.Request.Context(), p, c.Param("sessionId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, totals)
}

type accessResponse struct {
	UserID    string `json:"userId"`
	SessionID string `json:"sessionId"`
	CanVote   bool   `json:"canVote"`
}

// access reports whether a user may vote in the session. Users ask about
// themselves; admins may ask about anyone.
func (h *Handler) access(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	userID, sessionID := c.Param("userId"), c.Param("sessionId")

	var (
		allowed bool
		err     error
	)
	switch {
	case userID == p.UserID:
		allowed, err = h.gate.Allowed(ctx, p, sessionID)
	case p.IsAdmin():
		allowed, err = h.gate.CanVote(ctx, userID, sessionID)
	default:
		err = review.ErrUnauthorized
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, accessResponse{UserID: userID, SessionID: sessionID, CanVote: allowed})
}
