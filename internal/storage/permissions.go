package storage

import (
	"context"
	"fmt"

	"review-service/internal/review"
)

func (s *Store) GetPermission(ctx context.Context, userID, sessionID string) (review.Permission, error) {
	var p review.Permission
	err := s.q.QueryRowContext(ctx, s.rebind(`
		SELECT id, user_id, session_id, can_vote
		FROM permissions
		WHERE id = ?
	`), review.PermissionID(userID, sessionID)).Scan(&p.ID, &p.UserID, &p.SessionID, &p.CanVote)
	if err != nil {
		return review.Permission{}, notFound(err)
	}
	return p, nil
}

func (s *Store) ListPermissions(ctx context.Context, userID string) ([]review.Permission, error) {
	rows, err := s.q.QueryContext(ctx, s.rebind(`
		SELECT id, user_id, session_id, can_vote
		FROM permissions
		WHERE user_id = ?
		ORDER BY session_id
	`), userID)
	if err != nil {
		return nil, fmt.Errorf("storage: list permissions: %w", err)
	}
	defer rows.Close()

	out := []review.Permission{}
	for rows.Next() {
		var p review.Permission
		if err := rows.Scan(&p.ID, &p.UserID, &p.SessionID, &p.CanVote); err != nil {
			return nil, fmt.Errorf("storage: list permissions: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ReplacePermissions drops the user's rows outside sessionIDs and upserts
// canVote=true for each of them, in one transaction under the user's lock.
func (s *Store) ReplacePermissions(ctx context.Context, userID string, sessionIDs []string) error {
	keep := make(map[string]struct{}, len(sessionIDs))
	for _, sid := range sessionIDs {
		keep[sid] = struct{}{}
	}

	err := s.inTx(ctx, func(t *Store) error {
		if err := t.lock(ctx, "permissions:"+userID); err != nil {
			return err
		}

		current, err := t.ListPermissions(ctx, userID)
		if err != nil {
			return err
		}
		for _, p := range current {
			if _, ok := keep[p.SessionID]; ok {
				continue
			}
			if _, err := t.q.ExecContext(ctx, t.rebind(`DELETE FROM permissions WHERE id = ?`), p.ID); err != nil {
				return err
			}
		}

		for _, sid := range sessionIDs {
			_, err := t.q.ExecContext(ctx, t.rebind(`
				INSERT INTO permissions (id, user_id, session_id, can_vote)
				VALUES (?, ?, ?, ?)
				ON CONFLICT (id) DO UPDATE SET can_vote = excluded.can_vote
			`), review.PermissionID(userID, sid), userID, sid, true)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("storage: replace permissions for %s: %w", userID, err)
	}
	return nil
}

// SetPermission writes one permission row. Used by fixtures; the API only
// ever replaces whole sets.
func (s *Store) SetPermission(ctx context.Context, userID, sessionID string, canVote bool) error {
	_, err := s.q.ExecContext(ctx, s.rebind(`
		INSERT INTO permissions (id, user_id, session_id, can_vote)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET can_vote = excluded.can_vote
	`), review.PermissionID(userID, sessionID), userID, sessionID, canVote)
	if err != nil {
		return fmt.Errorf("storage: set permission: %w", err)
	}
	return nil
}
