package review

import (
	"context"
	"errors"

	"review-service/internal/auth"
)

// PermissionReader is the read side of the permission store.
type PermissionReader interface {
	GetPermission(ctx context.Context, userID, sessionID string) (Permission, error)
}

// Gate decides whether a principal may mutate reactions in a session.
type Gate struct {
	perms PermissionReader
}

func NewGate(perms PermissionReader) *Gate {
	return &Gate{perms: perms}
}

// CanVote reports whether a canVote=true permission exists for the pair.
// It is a pure lookup and says nothing about roles.
func (g *Gate) CanVote(ctx context.Context, userID, sessionID string) (bool, error) {
	if userID == "" || sessionID == "" {
		return false, nil
	}
	p, err := g.perms.GetPermission(ctx, userID, sessionID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return p.CanVote, nil
}

// Authorize is the check run before every vote-gated mutation. Admins
// administer and never vote, whatever permissions exist for them.
func (g *Gate) Authorize(ctx context.Context, p auth.Principal, sessionID string) error {
	if !p.Authenticated() {
		return ErrUnauthorized
	}
	if p.IsAdmin() || p.Role != auth.RoleUser {
		return ErrForbidden
	}
	ok, err := g.CanVote(ctx, p.UserID, sessionID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}

// Allowed is Authorize as a boolean, for the access-check endpoint.
func (g *Gate) Allowed(ctx context.Context, p auth.Principal, sessionID string) (bool, error) {
	err := g.Authorize(ctx, p, sessionID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrForbidden), errors.Is(err, ErrUnauthorized):
		return false, nil
	default:
		return false, err
	}
}
