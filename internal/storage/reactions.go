package storage

import (
	"context"
	"database/sql"
	"fmt"

	"review-service/internal/db"
	"review-service/internal/review"
)

func (s *Store) UpsertEvaluation(ctx context.Context, e review.Evaluation) (review.WriteResult, error) {
	reaction := nullReaction(e.Reaction)
	ts := db.FormatTime(e.Timestamp)

	res, err := s.upsert(ctx, e.ID,
		`INSERT INTO evaluations (id, session_id, event_id, user_id, reaction, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO NOTHING`,
		[]any{e.ID, e.SessionID, e.EventID, e.UserID, reaction, ts},
		`UPDATE evaluations
		 SET session_id = ?, event_id = ?, user_id = ?, reaction = ?, recorded_at = ?
		 WHERE id = ?`,
		[]any{e.SessionID, e.EventID, e.UserID, reaction, ts, e.ID},
	)
	if err != nil {
		return 0, fmt.Errorf("storage: upsert evaluation %s: %w", e.ID, err)
	}
	return res, nil
}

func (s *Store) GetEvaluation(ctx context.Context, id string) (review.Evaluation, error) {
	row := s.q.QueryRowContext(ctx, s.rebind(`
		SELECT id, session_id, event_id, user_id, reaction, recorded_at
		FROM evaluations
		WHERE id = ?
	`), id)
	e, err := scanEvaluation(row)
	if err != nil {
		return review.Evaluation{}, notFound(err)
	}
	return e, nil
}

func (s *Store) DeleteEvaluation(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "evaluations", id)
}

func (s *Store) ListEvaluations(ctx context.Context, sessionID, userID string) ([]review.Evaluation, error) {
	query := `
		SELECT id, session_id, event_id, user_id, reaction, recorded_at
		FROM evaluations
		WHERE session_id = ?`
	args := []any{sessionID}
	if userID != "" {
		query += ` AND user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY id`

	rows, err := s.q.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("storage: list evaluations: %w", err)
	}
	defer rows.Close()

	out := []review.Evaluation{}
	for rows.Next() {
		e, err := scanEvaluation(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: list evaluations: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) UpsertCorrection(ctx context.Context, c review.Correction) (review.WriteResult, error) {
	ts := db.FormatTime(c.Timestamp)

	res, err := s.upsert(ctx, c.ID,
		`INSERT INTO corrections (id, session_id, event_id, user_id, correct_strategy, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO NOTHING`,
		[]any{c.ID, c.SessionID, c.EventID, c.UserID, c.CorrectStrategy, ts},
		`UPDATE corrections
		 SET session_id = ?, event_id = ?, user_id = ?, correct_strategy = ?, recorded_at = ?
		 WHERE id = ?`,
		[]any{c.SessionID, c.EventID, c.UserID, c.CorrectStrategy, ts, c.ID},
	)
	if err != nil {
		return 0, fmt.Errorf("storage: upsert correction %s: %w", c.ID, err)
	}
	return res, nil
}

func (s *Store) GetCorrection(ctx context.Context, id string) (review.Correction, error) {
	var (
		c  review.Correction
		ts string
	)
	err := s.q.QueryRowContext(ctx, s.rebind(`
		SELECT id, session_id, event_id, user_id, correct_strategy, recorded_at
		FROM corrections
		WHERE id = ?
	`), id).Scan(&c.ID, &c.SessionID, &c.EventID, &c.UserID, &c.CorrectStrategy, &ts)
	if err != nil {
		return review.Correction{}, notFound(err)
	}
	if c.Timestamp, err = db.ParseTime(ts); err != nil {
		return review.Correction{}, err
	}
	return c, nil
}

func (s *Store) DeleteCorrection(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "corrections", id)
}

func nullReaction(r review.Reaction) sql.NullString {
	if r == review.ReactionNone {
		return sql.NullString{}
	}
	return sql.NullString{String: string(r), Valid: true}
}

func scanEvaluation(row scanner) (review.Evaluation, error) {
	var (
		e        review.Evaluation
		reaction sql.NullString
		ts       string
	)
	if err := row.Scan(&e.ID, &e.SessionID, &e.EventID, &e.UserID, &reaction, &ts); err != nil {
		return review.Evaluation{}, err
	}
	if reaction.Valid {
		e.Reaction = review.Reaction(reaction.String)
	}
	var err error
	if e.Timestamp, err = db.ParseTime(ts); err != nil {
		return review.Evaluation{}, err
	}
	return e, nil
}
