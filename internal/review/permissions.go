package review

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"review-service/internal/auth"
	"review-service/internal/logger"
)

// Permissions is the admin surface over vote permissions.
type Permissions struct {
	store    PermissionStore
	catalog  Catalog
	notifier Notifier
}

func NewPermissions(store PermissionStore, catalog Catalog, n Notifier) *Permissions {
	if n == nil {
		n = nopNotifier{}
	}
	return &Permissions{store: store, catalog: catalog, notifier: n}
}

// AllowedSessions lists the sessions userID may vote on.
func (p *Permissions) AllowedSessions(ctx context.Context, caller auth.Principal, userID string) ([]string, error) {
	if !caller.IsAdmin() {
		return nil, ErrUnauthorized
	}
	perms, err := p.store.ListPermissions(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(perms))
	for _, perm := range perms {
		if perm.CanVote {
			ids = append(ids, perm.SessionID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// ReplaceAllowedSessions makes desired the user's exact allowed set.
// Unknown session ids are dropped without error; the applied set is
// returned sorted.
func (p *Permissions) ReplaceAllowedSessions(ctx context.Context, caller auth.Principal, userID string, desired []string) ([]string, error) {
	if !caller.IsAdmin() {
		return nil, ErrUnauthorized
	}
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id required", ErrInvalidInput)
	}

	seen := make(map[string]struct{}, len(desired))
	applied := make([]string, 0, len(desired))
	for _, sid := range desired {
		if _, dup := seen[sid]; dup || sid == "" {
			continue
		}
		seen[sid] = struct{}{}

		ok, err := p.catalog.SessionExists(ctx, sid)
		if err != nil {
			return nil, err
		}
		if !ok {
			logger.Debug("dropping unknown session from permission set", map[string]any{
				"user_id":    userID,
				"session_id": sid,
			})
			continue
		}
		applied = append(applied, sid)
	}
	sort.Strings(applied)

	if err := p.store.ReplacePermissions(ctx, userID, applied); err != nil {
		return nil, err
	}

	logger.Info("permissions replaced", map[string]any{
		"operation":   "replace_allowed_sessions",
		"user_id":     userID,
		"session_ids": applied,
		"changed_by":  caller.UserID,
	})
	p.notifier.Notify(ctx, Change{
		Kind:       PermissionsReplaced,
		RecordID:   userID,
		UserID:     userID,
		SessionIDs: applied,
		At:         time.Now().UTC(),
	})
	return applied, nil
}
