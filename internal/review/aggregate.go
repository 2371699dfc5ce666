package review

import (
	"context"

	"review-service/internal/auth"
)

type EvaluationLister interface {
	ListEvaluations(ctx context.Context, sessionID, userID string) ([]Evaluation, error)
}

// Aggregator produces per-event like/dislike totals. Totals are derived
// from per-user records, so only admins may read them.
type Aggregator struct {
	evals EvaluationLister
}

func NewAggregator(evals EvaluationLister) *Aggregator {
	return &Aggregator{evals: evals}
}

func (a *Aggregator) Totals(ctx context.Context, p auth.Principal, sessionID string) (map[string]Tally, error) {
	if !p.Authenticated() || !p.IsAdmin() {
		return nil, ErrUnauthorized
	}
	evals, err := a.evals.ListEvaluations(ctx, sessionID, "")
	if err != nil {
		return nil, err
	}
	return Tallies(evals), nil
}

// Tallies counts reactions per event. Every event with at least one
// record gets an entry; records without a recognized reaction count for
// neither side.
func Tallies(evals []Evaluation) map[string]Tally {
	out := make(map[string]Tally)
	for _, e := range evals {
		t := out[e.EventID]
		switch e.Reaction {
		case ReactionLike:
			t.Like++
		case ReactionDislike:
			t.Dislike++
		}
		out[e.EventID] = t
	}
	return out
}
