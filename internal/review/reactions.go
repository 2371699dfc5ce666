package review

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"review-service/internal/logger"
)

// Manager owns the reaction/correction lifecycle. It is the only writer
// of the evaluation and correction stores.
type Manager struct {
	store    ReactionStore
	catalog  Catalog
	notifier Notifier
	now      func() time.Time
}

type ManagerOption func(*Manager)

func WithNotifier(n Notifier) ManagerOption {
	return func(m *Manager) {
		if n != nil {
			m.notifier = n
		}
	}
}

func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

func NewManager(store ReactionStore, catalog Catalog, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:    store,
		catalog:  catalog,
		notifier: nopNotifier{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetReaction creates or overwrites the user's reaction to an event.
// Repeating the same reaction leaves one record whose only change is the
// timestamp. A zero ts means now.
func (m *Manager) SetReaction(ctx context.Context, sessionID, eventID, userID string, reaction Reaction, ts time.Time) (Evaluation, WriteResult, error) {
	if err := requireIDs(sessionID, eventID, userID); err != nil {
		return Evaluation{}, 0, err
	}
	if !reaction.Valid() {
		return Evaluation{}, 0, fmt.Errorf("%w: reaction must be %q or %q", ErrInvalidInput, ReactionLike, ReactionDislike)
	}

	e := m.newEvaluation(sessionID, eventID, userID, reaction, ts)
	res, err := m.store.UpsertEvaluation(ctx, e)
	if err != nil {
		return Evaluation{}, 0, err
	}

	m.logWrite("set_reaction", e.ID, res)
	m.notifyEvaluation(ctx, e)
	return e, res, nil
}

// ClearReaction deletes the user's reaction. Absent records yield
// ErrNotFound; callers running the like/dislike protocol treat that as
// "already absent".
func (m *Manager) ClearReaction(ctx context.Context, sessionID, eventID, userID string) error {
	if err := requireIDs(sessionID, eventID, userID); err != nil {
		return err
	}
	id := EvaluationID(userID, eventID)
	if err := m.store.DeleteEvaluation(ctx, id); err != nil {
		return err
	}

	m.logDelete("clear_reaction", id)
	m.notifier.Notify(ctx, Change{
		Kind: EvaluationDeleted, RecordID: id,
		SessionID: sessionID, EventID: eventID, UserID: userID,
		At: m.now().UTC(),
	})
	return nil
}

// SetCorrection validates the strategy and upserts the correction. An
// unknown strategy fails with ErrInvalidReference before any write.
func (m *Manager) SetCorrection(ctx context.Context, sessionID, eventID, userID, strategyID string, ts time.Time) (Correction, WriteResult, error) {
	if err := requireIDs(sessionID, eventID, userID); err != nil {
		return Correction{}, 0, err
	}
	if err := m.validateStrategy(ctx, strategyID); err != nil {
		return Correction{}, 0, err
	}

	c := m.newCorrection(sessionID, eventID, userID, strategyID, ts)
	res, err := m.store.UpsertCorrection(ctx, c)
	if err != nil {
		return Correction{}, 0, err
	}

	m.logWrite("set_correction", c.ID, res)
	m.notifyCorrection(ctx, c)
	return c, res, nil
}

func (m *Manager) ClearCorrection(ctx context.Context, sessionID, eventID, userID string) error {
	if err := requireIDs(sessionID, eventID, userID); err != nil {
		return err
	}
	id := CorrectionID(userID, eventID)
	if err := m.store.DeleteCorrection(ctx, id); err != nil {
		return err
	}

	m.logDelete("clear_correction", id)
	m.notifyCorrectionDeleted(ctx, sessionID, eventID, userID)
	return nil
}

func (m *Manager) GetCorrection(ctx context.Context, sessionID, eventID, userID string) (Correction, error) {
	if err := requireIDs(sessionID, eventID, userID); err != nil {
		return Correction{}, err
	}
	return m.store.GetCorrection(ctx, CorrectionID(userID, eventID))
}

// ListEvaluations returns the session's evaluations by userID, or by
// everyone when userID is "". Visibility is enforced by the caller.
func (m *Manager) ListEvaluations(ctx context.Context, sessionID, userID string) ([]Evaluation, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, fmt.Errorf("%w: session id required", ErrInvalidInput)
	}
	return m.store.ListEvaluations(ctx, sessionID, userID)
}

// Like records a like and removes any correction for the same event in
// one transaction, so a like never coexists with a stale correction.
func (m *Manager) Like(ctx context.Context, sessionID, eventID, userID string) (Evaluation, error) {
	if err := requireIDs(sessionID, eventID, userID); err != nil {
		return Evaluation{}, err
	}

	e := m.newEvaluation(sessionID, eventID, userID, ReactionLike, time.Time{})
	var (
		res     WriteResult
		removed bool
	)
	err := m.store.WithinTx(ctx, func(s ReactionStores) error {
		var err error
		if res, err = s.UpsertEvaluation(ctx, e); err != nil {
			return err
		}
		err = s.DeleteCorrection(ctx, CorrectionID(userID, eventID))
		switch {
		case err == nil:
			removed = true
		case errors.Is(err, ErrNotFound):
		default:
			return err
		}
		return nil
	})
	if err != nil {
		return Evaluation{}, err
	}

	m.logWrite("like", e.ID, res)
	m.notifyEvaluation(ctx, e)
	if removed {
		m.notifyCorrectionDeleted(ctx, sessionID, eventID, userID)
	}
	return e, nil
}

// Dislike records a dislike together with its correction in one
// transaction. The strategy is validated first; nothing is written when
// it is unknown.
func (m *Manager) Dislike(ctx context.Context, sessionID, eventID, userID, strategyID string) (Evaluation, Correction, error) {
	if err := requireIDs(sessionID, eventID, userID); err != nil {
		return Evaluation{}, Correction{}, err
	}
	if err := m.validateStrategy(ctx, strategyID); err != nil {
		return Evaluation{}, Correction{}, err
	}

	now := m.now()
	e := m.newEvaluation(sessionID, eventID, userID, ReactionDislike, now)
	c := m.newCorrection(sessionID, eventID, userID, strategyID, now)

	var evalRes, corrRes WriteResult
	err := m.store.WithinTx(ctx, func(s ReactionStores) error {
		var err error
		if evalRes, err = s.UpsertEvaluation(ctx, e); err != nil {
			return err
		}
		corrRes, err = s.UpsertCorrection(ctx, c)
		return err
	})
	if err != nil {
		return Evaluation{}, Correction{}, err
	}

	m.logWrite("dislike", e.ID, evalRes)
	m.logWrite("dislike_correction", c.ID, corrRes)
	m.notifyEvaluation(ctx, e)
	m.notifyCorrection(ctx, c)
	return e, c, nil
}

func (m *Manager) validateStrategy(ctx context.Context, strategyID string) error {
	if strings.TrimSpace(strategyID) == "" {
		return fmt.Errorf("%w: correctStrategy required", ErrInvalidInput)
	}
	ok, err := m.catalog.StrategyExists(ctx, strategyID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: strategy %q", ErrInvalidReference, strategyID)
	}
	return nil
}

func (m *Manager) newEvaluation(sessionID, eventID, userID string, r Reaction, ts time.Time) Evaluation {
	if ts.IsZero() {
		ts = m.now()
	}
	return Evaluation{
		ID:        EvaluationID(userID, eventID),
		SessionID: sessionID,
		EventID:   eventID,
		UserID:    userID,
		Reaction:  r,
		Timestamp: ts.UTC().Truncate(time.Millisecond),
	}
}

func (m *Manager) newCorrection(sessionID, eventID, userID, strategyID string, ts time.Time) Correction {
	if ts.IsZero() {
		ts = m.now()
	}
	return Correction{
		ID:              CorrectionID(userID, eventID),
		SessionID:       sessionID,
		EventID:         eventID,
		UserID:          userID,
		CorrectStrategy: strategyID,
		Timestamp:       ts.UTC().Truncate(time.Millisecond),
	}
}

func (m *Manager) notifyEvaluation(ctx context.Context, e Evaluation) {
	m.notifier.Notify(ctx, Change{
		Kind: EvaluationUpserted, RecordID: e.ID,
		SessionID: e.SessionID, EventID: e.EventID, UserID: e.UserID,
		Reaction: e.Reaction, At: e.Timestamp,
	})
}

func (m *Manager) notifyCorrection(ctx context.Context, c Correction) {
	m.notifier.Notify(ctx, Change{
		Kind: CorrectionUpserted, RecordID: c.ID,
		SessionID: c.SessionID, EventID: c.EventID, UserID: c.UserID,
		CorrectStrategy: c.CorrectStrategy, At: c.Timestamp,
	})
}

func (m *Manager) notifyCorrectionDeleted(ctx context.Context, sessionID, eventID, userID string) {
	m.notifier.Notify(ctx, Change{
		Kind: CorrectionDeleted, RecordID: CorrectionID(userID, eventID),
		SessionID: sessionID, EventID: eventID, UserID: userID,
		At: m.now().UTC(),
	})
}

func (m *Manager) logWrite(operation, id string, res WriteResult) {
	logger.Info("review write", map[string]any{
		"operation": operation,
		"outcome":   res.String(),
		"id":        id,
	})
}

func (m *Manager) logDelete(operation, id string) {
	logger.Info("review write", map[string]any{
		"operation": operation,
		"outcome":   "deleted",
		"id":        id,
	})
}

func requireIDs(sessionID, eventID, userID string) error {
	switch {
	case strings.TrimSpace(sessionID) == "":
		return fmt.Errorf("%w: session id required", ErrInvalidInput)
	case strings.TrimSpace(eventID) == "":
		return fmt.Errorf("%w: event id required", ErrInvalidInput)
	case strings.TrimSpace(userID) == "":
		return fmt.Errorf("%w: user id required", ErrInvalidInput)
	}
	return nil
}
