package resolver

import (
	"context"
	"time"

	"review-service/internal/auth"
	"review-service/internal/auth/token"
	"review-service/internal/session"
)

// TokenResolver resolves access tokens issued by the login handler. A
// token is only valid while its login session exists, so logout and
// secret rotation take effect before the token expires.
type TokenResolver struct {
	signer   *token.Signer
	sessions session.Store
	users    UserLookup
	now      func() time.Time
}

func NewTokenResolver(signer *token.Signer, sessions session.Store, users UserLookup) *TokenResolver {
	return &TokenResolver{
		signer:   signer,
		sessions: sessions,
		users:    users,
		now:      time.Now,
	}
}

func (r *TokenResolver) Resolve(ctx context.Context, credential string) (auth.Principal, error) {
	claims, err := r.signer.Parse(credential)
	if err != nil {
		return auth.Principal{}, ErrUnauthorized
	}

	sess, err := r.sessions.Get(ctx, claims.SessionID)
	if err != nil {
		return auth.Principal{}, err
	}
	if sess == nil || sess.UserID != claims.UserID {
		return auth.Principal{}, ErrUnauthorized
	}
	if sess.Expired(r.now()) {
		_ = r.sessions.Delete(ctx, sess.SessionID)
		return auth.Principal{}, ErrUnauthorized
	}

	return principalFor(ctx, r.users, claims.UserID)
}
