package resolver

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"testing"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"

	"review-service/internal/auth"
	"review-service/internal/auth/credentials"
	"review-service/internal/auth/token"
	"review-service/internal/session"
)

type fakeUsers map[string]auth.Role

func (f fakeUsers) Get(_ context.Context, id string) (credentials.User, error) {
	role, ok := f[id]
	if !ok {
		return credentials.User{}, credentials.ErrUserNotFound
	}
	return credentials.User{ID: id, Role: role}, nil
}

const secret = "0123456789abcdef0123456789abcdef"

func issue(t *testing.T, s *token.Signer, store session.Store, userID string, role auth.Role) (string, string) {
	t.Helper()
	sid, err := session.GenerateID()
	if err != nil {
		t.Fatalf("session id: %v", err)
	}
	now := time.Now()
	if err := store.Create(context.Background(), session.Session{
		SessionID: sid, UserID: userID, CreatedAt: now, ExpiresAt: now.Add(time.Hour),
	}); err != nil {
		t.Fatalf("create session: %v", err)
	}
	raw, err := s.Sign(token.Claims{UserID: userID, Role: role, SessionID: sid, IssuedAt: now, ExpiresAt: now.Add(time.Hour)})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return raw, sid
}

func TestTokenResolver(t *testing.T) {
	ctx := context.Background()
	signer, _ := token.NewSigner(secret)
	store := session.NewMemoryStore()
	users := fakeUsers{"alice": auth.RoleUser, "root": auth.RoleAdmin}
	r := NewTokenResolver(signer, store, users)

	raw, sid := issue(t, signer, store, "alice", auth.RoleAdmin)

	p, err := r.Resolve(ctx, raw)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	// role comes from the user record, not the token
	if p.UserID != "alice" || p.Role != auth.RoleUser {
		t.Fatalf("unexpected principal %+v", p)
	}

	if err := store.Delete(ctx, sid); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := r.Resolve(ctx, raw); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected revoked session to be rejected, got %v", err)
	}

	ghostToken, _ := issue(t, signer, store, "ghost", auth.RoleUser)
	if _, err := r.Resolve(ctx, ghostToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unknown user rejected, got %v", err)
	}

	if _, err := r.Resolve(ctx, "not-a-token"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected garbage rejected, got %v", err)
	}
}

type stubResolver struct {
	p   auth.Principal
	err error
}

func (s stubResolver) Resolve(context.Context, string) (auth.Principal, error) {
	return s.p, s.err
}

func TestChain(t *testing.T) {
	ctx := context.Background()
	want := auth.Principal{UserID: "bob", Role: auth.RoleUser}

	c := Chain{stubResolver{err: ErrUnauthorized}, stubResolver{p: want}}
	got, err := c.Resolve(ctx, "cred")
	if err != nil || got != want {
		t.Fatalf("chain = %+v, %v", got, err)
	}

	if _, err := (Chain{stubResolver{err: ErrUnauthorized}}).Resolve(ctx, "cred"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if _, err := c.Resolve(ctx, ""); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized for empty credential, got %v", err)
	}

	boom := errors.New("store down")
	if _, err := (Chain{stubResolver{err: boom}, stubResolver{p: want}}).Resolve(ctx, "cred"); !errors.Is(err, boom) {
		t.Fatalf("infrastructure errors must surface, got %v", err)
	}
}

func TestOIDCResolver(t *testing.T) {
	ctx := context.Background()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("rsa: %v", err)
	}
	const issuer = "https://idp.example.test/realms/review"
	verifier := oidc.NewVerifier(issuer, &oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{&key.PublicKey}}, &oidc.Config{ClientID: "review-ui"})
	r := NewOIDCResolverWithVerifier(verifier, fakeUsers{"carol": auth.RoleUser})

	sign := func(claims jwt.MapClaims) string {
		raw, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return raw
	}
	base := func(username string) jwt.MapClaims {
		return jwt.MapClaims{
			"iss":                issuer,
			"aud":                "review-ui",
			"sub":                "f3a1",
			"preferred_username": username,
			"iat":                time.Now().Unix(),
			"exp":                time.Now().Add(time.Hour).Unix(),
		}
	}

	p, err := r.Resolve(ctx, sign(base("carol")))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if p.UserID != "carol" || p.Role != auth.RoleUser {
		t.Fatalf("unexpected principal %+v", p)
	}

	if _, err := r.Resolve(ctx, sign(base("mallory"))); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unprovisioned user rejected, got %v", err)
	}

	wrongAud := base("carol")
	wrongAud["aud"] = "other-client"
	if _, err := r.Resolve(ctx, sign(wrongAud)); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected wrong audience rejected, got %v", err)
	}
}
