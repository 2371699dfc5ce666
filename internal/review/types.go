// Package review implements event evaluation: per-user like/dislike
// reactions, corrective strategy labels, vote permissions and the
// admin-only aggregate view.
package review

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

type Reaction string

const (
	// ReactionNone is stored as NULL. New writes never produce it; it only
	// appears on rows written by older clients.
	ReactionNone    Reaction = ""
	ReactionLike    Reaction = "like"
	ReactionDislike Reaction = "dislike"
)

// ParseReaction accepts exactly "like" or "dislike".
func ParseReaction(s string) (Reaction, error) {
	switch r := Reaction(s); r {
	case ReactionLike, ReactionDislike:
		return r, nil
	default:
		return ReactionNone, fmt.Errorf("%w: reaction must be %q or %q", ErrInvalidInput, ReactionLike, ReactionDislike)
	}
}

func (r Reaction) Valid() bool {
	return r == ReactionLike || r == ReactionDislike
}

func (r Reaction) MarshalJSON() ([]byte, error) {
	if r == ReactionNone {
		return []byte("null"), nil
	}
	return json.Marshal(string(r))
}

func (r *Reaction) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*r = ReactionNone
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*r = Reaction(s)
	return nil
}

// Evaluation is one user's reaction to one event. ID is
// EvaluationID(UserID, EventID).
type Evaluation struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	EventID   string    `json:"eventId"`
	UserID    string    `json:"userId"`
	Reaction  Reaction  `json:"reaction"`
	Timestamp time.Time `json:"timestamp"`
}

// Correction is the strategy a user claims is right for an event they
// disliked. ID is CorrectionID(UserID, EventID).
type Correction struct {
	ID              string    `json:"id"`
	SessionID       string    `json:"sessionId"`
	EventID         string    `json:"eventId"`
	UserID          string    `json:"userId"`
	CorrectStrategy string    `json:"correctStrategy"`
	Timestamp       time.Time `json:"timestamp"`
}

type Permission struct {
	ID        string `json:"id"`
	UserID    string `json:"userId"`
	SessionID string `json:"sessionId"`
	CanVote   bool   `json:"canVote"`
}

type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
}

type Strategy struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Event is an analyzed occurrence within a session. Details is opaque
// JSON (reasoning graph, suggested strategies) produced upstream.
type Event struct {
	ID        string          `json:"id"`
	SessionID string          `json:"sessionId"`
	Strategy  string          `json:"strategy"`
	Score     float64         `json:"score"`
	Timestamp time.Time       `json:"timestamp"`
	Details   json.RawMessage `json:"details,omitempty"`
}

type Tally struct {
	Like    int `json:"like"`
	Dislike int `json:"dislike"`
}

// WriteResult tells an upsert caller which branch was taken.
type WriteResult int

const (
	Created WriteResult = iota + 1
	Updated
)

func (w WriteResult) String() string {
	switch w {
	case Created:
		return "created"
	case Updated:
		return "updated"
	default:
		return "unknown"
	}
}
