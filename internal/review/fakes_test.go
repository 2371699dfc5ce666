package review

import (
	"context"
	"maps"
	"sort"
	"sync"
)

// memStore is an in-memory ReactionStore + PermissionStore + Catalog.
type memStore struct {
	mu          sync.Mutex
	evals       map[string]Evaluation
	corrections map[string]Correction
	perms       map[string]Permission
	sessions    map[string]bool
	strategies  map[string]Strategy

	// failCorrectionWrites makes correction upserts fail, to exercise
	// transaction rollback.
	failCorrectionWrites error
}

func newMemStore() *memStore {
	return &memStore{
		evals:       map[string]Evaluation{},
		corrections: map[string]Correction{},
		perms:       map[string]Permission{},
		sessions:    map[string]bool{},
		strategies:  map[string]Strategy{},
	}
}

// memTx operates on maps without locking; the owner holds the lock.
type memTx struct {
	s           *memStore
	evals       map[string]Evaluation
	corrections map[string]Correction
}

func (t *memTx) UpsertEvaluation(_ context.Context, e Evaluation) (WriteResult, error) {
	_, exists := t.evals[e.ID]
	t.evals[e.ID] = e
	if exists {
		return Updated, nil
	}
	return Created, nil
}

func (t *memTx) GetEvaluation(_ context.Context, id string) (Evaluation, error) {
	e, ok := t.evals[id]
	if !ok {
		return Evaluation{}, ErrNotFound
	}
	return e, nil
}

func (t *memTx) DeleteEvaluation(_ context.Context, id string) error {
	if _, ok := t.evals[id]; !ok {
		return ErrNotFound
	}
	delete(t.evals, id)
	return nil
}

func (t *memTx) ListEvaluations(_ context.Context, sessionID, userID string) ([]Evaluation, error) {
	out := []Evaluation{}
	for _, e := range t.evals {
		if e.SessionID == sessionID && (userID == "" || e.UserID == userID) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *memTx) UpsertCorrection(_ context.Context, c Correction) (WriteResult, error) {
	if t.s.failCorrectionWrites != nil {
		return 0, t.s.failCorrectionWrites
	}
	_, exists := t.corrections[c.ID]
	t.corrections[c.ID] = c
	if exists {
		return Updated, nil
	}
	return Created, nil
}

func (t *memTx) GetCorrection(_ context.Context, id string) (Correction, error) {
	c, ok := t.corrections[id]
	if !ok {
		return Correction{}, ErrNotFound
	}
	return c, nil
}

func (t *memTx) DeleteCorrection(_ context.Context, id string) error {
	if _, ok := t.corrections[id]; !ok {
		return ErrNotFound
	}
	delete(t.corrections, id)
	return nil
}

func (s *memStore) direct() *memTx {
	return &memTx{s: s, evals: s.evals, corrections: s.corrections}
}

func (s *memStore) UpsertEvaluation(ctx context.Context, e Evaluation) (WriteResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.direct().UpsertEvaluation(ctx, e)
}

func (s *memStore) GetEvaluation(ctx context.Context, id string) (Evaluation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.direct().GetEvaluation(ctx, id)
}

func (s *memStore) DeleteEvaluation(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.direct().DeleteEvaluation(ctx, id)
}

func (s *memStore) ListEvaluations(ctx context.Context, sessionID, userID string) ([]Evaluation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.direct().ListEvaluations(ctx, sessionID, userID)
}

func (s *memStore) UpsertCorrection(ctx context.Context, c Correction) (WriteResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.direct().UpsertCorrection(ctx, c)
}

func (s *memStore) GetCorrection(ctx context.Context, id string) (Correction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.direct().GetCorrection(ctx, id)
}

func (s *memStore) DeleteCorrection(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.direct().DeleteCorrection(ctx, id)
}

func (s *memStore) WithinTx(_ context.Context, fn func(ReactionStores) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{s: s, evals: maps.Clone(s.evals), corrections: maps.Clone(s.corrections)}
	if err := fn(tx); err != nil {
		return err
	}
	s.evals, s.corrections = tx.evals, tx.corrections
	return nil
}

func (s *memStore) GetPermission(_ context.Context, userID, sessionID string) (Permission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.perms[PermissionID(userID, sessionID)]
	if !ok {
		return Permission{}, ErrNotFound
	}
	return p, nil
}

func (s *memStore) ListPermissions(_ context.Context, userID string) ([]Permission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []Permission{}
	for _, p := range s.perms {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *memStore) ReplacePermissions(_ context.Context, userID string, sessionIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	keep := map[string]bool{}
	for _, sid := range sessionIDs {
		keep[sid] = true
	}
	for id, p := range s.perms {
		if p.UserID == userID && !keep[p.SessionID] {
			delete(s.perms, id)
		}
	}
	for _, sid := range sessionIDs {
		id := PermissionID(userID, sid)
		s.perms[id] = Permission{ID: id, UserID: userID, SessionID: sid, CanVote: true}
	}
	return nil
}

func (s *memStore) grant(userID, sessionID string, canVote bool) {
	id := PermissionID(userID, sessionID)
	s.perms[id] = Permission{ID: id, UserID: userID, SessionID: sessionID, CanVote: canVote}
}

func (s *memStore) SessionExists(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[id], nil
}

func (s *memStore) StrategyExists(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.strategies[id]
	return ok, nil
}

func (s *memStore) GetStrategy(_ context.Context, id string) (Strategy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.strategies[id]
	if !ok {
		return Strategy{}, ErrNotFound
	}
	return st, nil
}

func (s *memStore) ListSessions(context.Context) ([]Session, error)     { return nil, nil }
func (s *memStore) ListStrategies(context.Context) ([]Strategy, error)  { return nil, nil }
func (s *memStore) ListEvents(context.Context, string) ([]Event, error) { return nil, nil }
func (s *memStore) GetEvent(context.Context, string, string) (Event, error) {
	return Event{}, ErrNotFound
}

type recordingNotifier struct {
	mu      sync.Mutex
	changes []Change
}

func (r *recordingNotifier) Notify(_ context.Context, c Change) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, c)
}

func (r *recordingNotifier) kinds() []ChangeKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ChangeKind, len(r.changes))
	for i, c := range r.changes {
		out[i] = c.Kind
	}
	return out
}
