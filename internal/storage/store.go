// Package storage is the SQL implementation of the review stores.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"review-service/internal/db"
	"review-service/internal/review"
)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store serves every review store interface over one database. A Store
// returned to a WithinTx callback is bound to that transaction.
type Store struct {
	db *db.DB
	q  querier
	tx *sql.Tx
}

var (
	_ review.ReactionStore   = (*Store)(nil)
	_ review.PermissionStore = (*Store)(nil)
	_ review.Catalog         = (*Store)(nil)
)

func New(d *db.DB) *Store {
	return &Store{db: d, q: d.DB}
}

func (s *Store) rebind(q string) string {
	return s.db.Rebind(q)
}

// WithinTx runs fn over stores bound to one transaction. Nested calls
// join the outer transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(review.ReactionStores) error) error {
	return s.inTx(ctx, func(t *Store) error { return fn(t) })
}

func (s *Store) inTx(ctx context.Context, fn func(*Store) error) (err error) {
	if s.tx != nil {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(&Store{db: s.db, q: tx, tx: tx}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("storage: commit: %w", err)
	}
	return nil
}

// lock serializes writers of one key until the transaction ends. SQLite
// already runs writers one at a time.
func (s *Store) lock(ctx context.Context, key string) error {
	if s.db.Dialect != db.Postgres {
		return nil
	}
	if _, err := s.q.ExecContext(ctx, s.rebind(`SELECT pg_advisory_xact_lock(hashtext(?))`), key); err != nil {
		return fmt.Errorf("storage: lock %s: %w", key, err)
	}
	return nil
}

// upsert inserts a row keyed by id, or runs update when the id exists.
// Both branches run under the id's lock in one transaction, so concurrent
// callers see exactly one Created.
func (s *Store) upsert(ctx context.Context, id, insert string, insertArgs []any, update string, updateArgs []any) (review.WriteResult, error) {
	var res review.WriteResult
	err := s.inTx(ctx, func(t *Store) error {
		if err := t.lock(ctx, id); err != nil {
			return err
		}

		r, err := t.q.ExecContext(ctx, t.rebind(insert), insertArgs...)
		if err != nil {
			return err
		}
		n, err := r.RowsAffected()
		if err != nil {
			return err
		}
		if n == 1 {
			res = review.Created
			return nil
		}

		if _, err := t.q.ExecContext(ctx, t.rebind(update), updateArgs...); err != nil {
			return err
		}
		res = review.Updated
		return nil
	})
	return res, err
}

func (s *Store) deleteByID(ctx context.Context, table, id string) error {
	r, err := s.q.ExecContext(ctx, s.rebind(`DELETE FROM `+table+` WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("storage: delete %s: %w", table, err)
	}
	n, err := r.RowsAffected()
	if err != nil {
		return fmt.Errorf("storage: delete %s: %w", table, err)
	}
	if n == 0 {
		return review.ErrNotFound
	}
	return nil
}

func (s *Store) exists(ctx context.Context, table, id string) (bool, error) {
	var one int
	err := s.q.QueryRowContext(ctx, s.rebind(`SELECT 1 FROM `+table+` WHERE id = ?`), id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("storage: lookup %s: %w", table, err)
	}
	return true, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return review.ErrNotFound
	}
	return err
}
