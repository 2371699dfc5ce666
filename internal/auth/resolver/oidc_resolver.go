package resolver

import (
	"context"
	"errors"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"

	"review-service/internal/auth"
)

// IDTokenVerifier is satisfied by *oidc.IDTokenVerifier.
type IDTokenVerifier interface {
	Verify(ctx context.Context, rawIDToken string) (*oidc.IDToken, error)
}

// OIDCResolver accepts ID tokens from an external identity provider
// (e.g. Keycloak) and maps them onto users that already exist here. It
// never creates users: accounts are provisioned by an admin.
type OIDCResolver struct {
	verifier IDTokenVerifier
	users    UserLookup
}

// NewOIDCResolver initializes the verifier using issuer discovery.
func NewOIDCResolver(ctx context.Context, issuer, clientID string, users UserLookup) (*OIDCResolver, error) {
	if issuer == "" || clientID == "" {
		return nil, errors.New("oidc resolver config missing required fields")
	}

	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to init oidc provider: %w", err)
	}

	verifier := provider.Verifier(&oidc.Config{
		ClientID: clientID,
	})

	return NewOIDCResolverWithVerifier(verifier, users), nil
}

func NewOIDCResolverWithVerifier(v IDTokenVerifier, users UserLookup) *OIDCResolver {
	return &OIDCResolver{verifier: v, users: users}
}

type idClaims struct {
	PreferredUsername string `json:"preferred_username"`
}

func (r *OIDCResolver) Resolve(ctx context.Context, credential string) (auth.Principal, error) {
	idToken, err := r.verifier.Verify(ctx, credential)
	if err != nil {
		return auth.Principal{}, ErrUnauthorized
	}

	var claims idClaims
	if err := idToken.Claims(&claims); err != nil {
		return auth.Principal{}, ErrUnauthorized
	}

	userID := claims.PreferredUsername
	if userID == "" {
		userID = idToken.Subject
	}
	if userID == "" {
		return auth.Principal{}, ErrUnauthorized
	}

	return principalFor(ctx, r.users, userID)
}
