package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"review-service/internal/db"
	"review-service/internal/review"
)

func (s *Store) SessionExists(ctx context.Context, id string) (bool, error) {
	return s.exists(ctx, "sessions", id)
}

func (s *Store) StrategyExists(ctx context.Context, id string) (bool, error) {
	return s.exists(ctx, "strategies", id)
}

func (s *Store) GetStrategy(ctx context.Context, id string) (review.Strategy, error) {
	var st review.Strategy
	err := s.q.QueryRowContext(ctx, s.rebind(`
		SELECT id, name, description FROM strategies WHERE id = ?
	`), id).Scan(&st.ID, &st.Name, &st.Description)
	if err != nil {
		return review.Strategy{}, notFound(err)
	}
	return st, nil
}

func (s *Store) ListSessions(ctx context.Context) ([]review.Session, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT id, created_at FROM sessions ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("storage: list sessions: %w", err)
	}
	defer rows.Close()

	out := []review.Session{}
	for rows.Next() {
		var (
			sess    review.Session
			created string
		)
		if err := rows.Scan(&sess.ID, &created); err != nil {
			return nil, fmt.Errorf("storage: list sessions: %w", err)
		}
		if sess.CreatedAt, err = db.ParseTime(created); err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

func (s *Store) ListStrategies(ctx context.Context) ([]review.Strategy, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT id, name, description FROM strategies ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("storage: list strategies: %w", err)
	}
	defer rows.Close()

	out := []review.Strategy{}
	for rows.Next() {
		var st review.Strategy
		if err := rows.Scan(&st.ID, &st.Name, &st.Description); err != nil {
			return nil, fmt.Errorf("storage: list strategies: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// ListEvents returns the session's events in time order, without details.
func (s *Store) ListEvents(ctx context.Context, sessionID string) ([]review.Event, error) {
	rows, err := s.q.QueryContext(ctx, s.rebind(`
		SELECT id, session_id, strategy, score, occurred_at
		FROM events
		WHERE session_id = ?
		ORDER BY occurred_at, id
	`), sessionID)
	if err != nil {
		return nil, fmt.Errorf("storage: list events: %w", err)
	}
	defer rows.Close()

	out := []review.Event{}
	for rows.Next() {
		var (
			ev review.Event
			at string
		)
		if err := rows.Scan(&ev.ID, &ev.SessionID, &ev.Strategy, &ev.Score, &at); err != nil {
			return nil, fmt.Errorf("storage: list events: %w", err)
		}
		if ev.Timestamp, err = db.ParseTime(at); err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (s *Store) GetEvent(ctx context.Context, sessionID, eventID string) (review.Event, error) {
	var (
		ev      review.Event
		at      string
		details string
	)
	err := s.q.QueryRowContext(ctx, s.rebind(`
		SELECT id, session_id, strategy, score, occurred_at, details
		FROM events
		WHERE id = ? AND session_id = ?
	`), eventID, sessionID).Scan(&ev.ID, &ev.SessionID, &ev.Strategy, &ev.Score, &at, &details)
	if err != nil {
		return review.Event{}, notFound(err)
	}
	if ev.Timestamp, err = db.ParseTime(at); err != nil {
		return review.Event{}, err
	}
	if details != "" && json.Valid([]byte(details)) {
		ev.Details = json.RawMessage(details)
	}
	return ev, nil
}

// UpsertSession, UpsertStrategy and UpsertEvent load reference data.

func (s *Store) UpsertSession(ctx context.Context, sess review.Session) error {
	_, err := s.q.ExecContext(ctx, s.rebind(`
		INSERT INTO sessions (id, created_at) VALUES (?, ?)
		ON CONFLICT (id) DO UPDATE SET created_at = excluded.created_at
	`), sess.ID, db.FormatTime(sess.CreatedAt))
	if err != nil {
		return fmt.Errorf("storage: upsert session %s: %w", sess.ID, err)
	}
	return nil
}

func (s *Store) UpsertStrategy(ctx context.Context, st review.Strategy) error {
	_, err := s.q.ExecContext(ctx, s.rebind(`
		INSERT INTO strategies (id, name, description) VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name, description = excluded.description
	`), st.ID, st.Name, st.Description)
	if err != nil {
		return fmt.Errorf("storage: upsert strategy %s: %w", st.ID, err)
	}
	return nil
}

func (s *Store) UpsertEvent(ctx context.Context, ev review.Event) error {
	details := "{}"
	if len(ev.Details) > 0 {
		if !json.Valid(ev.Details) {
			return fmt.Errorf("%w: event %s details are not valid JSON", review.ErrInvalidInput, ev.ID)
		}
		details = string(ev.Details)
	}
	_, err := s.q.ExecContext(ctx, s.rebind(`
		INSERT INTO events (id, session_id, strategy, score, occurred_at, details)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			session_id = excluded.session_id,
			strategy = excluded.strategy,
			score = excluded.score,
			occurred_at = excluded.occurred_at,
			details = excluded.details
	`), ev.ID, ev.SessionID, ev.Strategy, ev.Score, db.FormatTime(ev.Timestamp), details)
	if err != nil {
		return fmt.Errorf("storage: upsert event %s: %w", ev.ID, err)
	}
	return nil
}
