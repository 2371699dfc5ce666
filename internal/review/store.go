package review

import "context"

// EvaluationStore persists Evaluations keyed by composite id.
type EvaluationStore interface {
	// UpsertEvaluation creates or overwrites e.ID as one atomic
	// read-modify-write. Concurrent calls for the same id yield exactly
	// one Created.
	UpsertEvaluation(ctx context.Context, e Evaluation) (WriteResult, error)
	GetEvaluation(ctx context.Context, id string) (Evaluation, error)
	// DeleteEvaluation returns ErrNotFound when id is absent.
	DeleteEvaluation(ctx context.Context, id string) error
	// ListEvaluations returns the session's evaluations; userID "" means
	// every user.
	ListEvaluations(ctx context.Context, sessionID, userID string) ([]Evaluation, error)
}

type CorrectionStore interface {
	UpsertCorrection(ctx context.Context, c Correction) (WriteResult, error)
	GetCorrection(ctx context.Context, id string) (Correction, error)
	DeleteCorrection(ctx context.Context, id string) error
}

// ReactionStores is the pair of stores the Manager mutates.
type ReactionStores interface {
	EvaluationStore
	CorrectionStore
}

// ReactionStore can also run a unit of work over both stores in one
// transaction.
type ReactionStore interface {
	ReactionStores
	WithinTx(ctx context.Context, fn func(ReactionStores) error) error
}

type PermissionStore interface {
	GetPermission(ctx context.Context, userID, sessionID string) (Permission, error)
	ListPermissions(ctx context.Context, userID string) ([]Permission, error)
	// ReplacePermissions makes sessionIDs the user's exact canVote set in
	// one transaction.
	ReplacePermissions(ctx context.Context, userID string, sessionIDs []string) error
}

// Catalog is the read-only reference data.
type Catalog interface {
	SessionExists(ctx context.Context, id string) (bool, error)
	StrategyExists(ctx context.Context, id string) (bool, error)
	GetStrategy(ctx context.Context, id string) (Strategy, error)
	ListSessions(ctx context.Context) ([]Session, error)
	ListStrategies(ctx context.Context) ([]Strategy, error)
	ListEvents(ctx context.Context, sessionID string) ([]Event, error)
	GetEvent(ctx context.Context, sessionID, eventID string) (Event, error)
}
