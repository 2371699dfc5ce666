package review

import (
	"context"
	"time"
)

type ChangeKind string

const (
	EvaluationUpserted  ChangeKind = "evaluation.upserted"
	EvaluationDeleted   ChangeKind = "evaluation.deleted"
	CorrectionUpserted  ChangeKind = "correction.upserted"
	CorrectionDeleted   ChangeKind = "correction.deleted"
	PermissionsReplaced ChangeKind = "permissions.replaced"
)

// Change describes one committed mutation.
type Change struct {
	Kind            ChangeKind `json:"kind"`
	RecordID        string     `json:"id"`
	SessionID       string     `json:"sessionId,omitempty"`
	EventID         string     `json:"eventId,omitempty"`
	UserID          string     `json:"userId"`
	Reaction        Reaction   `json:"reaction,omitempty"`
	CorrectStrategy string     `json:"correctStrategy,omitempty"`
	SessionIDs      []string   `json:"sessionIds,omitempty"`
	At              time.Time  `json:"at"`
}

// Notifier receives committed changes. Implementations must not block
// for long and report their own failures; a notification never fails the
// mutation that caused it.
type Notifier interface {
	Notify(ctx context.Context, c Change)
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, Change) {}
