package resolver

import (
	"context"
	"errors"

	"review-service/internal/auth"
	"review-service/internal/auth/credentials"
)

// ErrUnauthorized means the credential does not resolve to a known user.
var ErrUnauthorized = errors.New("unauthorized")

// Resolver maps an inbound credential to the internal user it belongs to.
// It is the ONLY place where credential-to-user mapping logic lives.
type Resolver interface {
	Resolve(
		ctx context.Context,
		credential string,
	) (auth.Principal, error)
}

// UserLookup loads the user record a credential points at.
type UserLookup interface {
	Get(ctx context.Context, userID string) (credentials.User, error)
}

// Chain tries each resolver in order and returns the first success.
type Chain []Resolver

func (c Chain) Resolve(ctx context.Context, credential string) (auth.Principal, error) {
	if credential == "" {
		return auth.Principal{}, ErrUnauthorized
	}
	for _, r := range c {
		p, err := r.Resolve(ctx, credential)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, ErrUnauthorized) {
			return auth.Principal{}, err
		}
	}
	return auth.Principal{}, ErrUnauthorized
}

func principalFor(ctx context.Context, users UserLookup, userID string) (auth.Principal, error) {
	u, err := users.Get(ctx, userID)
	if errors.Is(err, credentials.ErrUserNotFound) {
		return auth.Principal{}, ErrUnauthorized
	}
	if err != nil {
		return auth.Principal{}, err
	}
	return auth.Principal{UserID: u.ID, Role: u.Role}, nil
}
