package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"review-service/internal/auth"
	"review-service/internal/auth/credentials"
	"review-service/internal/auth/resolver"
	"review-service/internal/auth/token"
	"review-service/internal/db"
	"review-service/internal/middleware"
	"review-service/internal/review"
	"review-service/internal/session"
	"review-service/internal/storage"
)

const prefix = "/amongus/api"

type testEnv struct {
	t        *testing.T
	router   *gin.Engine
	store    *storage.Store
	users    *credentials.Service
	sessions *session.MemoryStore
	signer   *token.Signer
	tokens   map[string]string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	d, err := db.Open(ctx, string(db.SQLite), filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("db open: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	if err := db.Migrate(ctx, d); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	store := storage.New(d)
	sessions := session.NewMemoryStore()
	users := credentials.NewService(d, sessions)
	signer, err := token.NewSigner("0123456789abcdef0123456789abcdef")
	if err != nil {
		t.Fatal(err)
	}

	t0 := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	for _, sid := range []string{"A", "B", "C", "D"} {
		if err := store.UpsertSession(ctx, review.Session{ID: sid, CreatedAt: t0}); err != nil {
			t.Fatal(err)
		}
	}
	for _, st := range []review.Strategy{{ID: "B1", Name: "Bluff"}, {ID: "C1", Name: "Camp"}} {
		if err := store.UpsertStrategy(ctx, st); err != nil {
			t.Fatal(err)
		}
	}
	if err := store.UpsertEvent(ctx, review.Event{
		ID: "e1", SessionID: "A", Strategy: "B1", Score: 0.8, Timestamp: t0,
		Details: json.RawMessage(`{"suggested":["C1"]}`),
	}); err != nil {
		t.Fatal(err)
	}

	env := &testEnv{
		t:        t,
		store:    store,
		users:    users,
		sessions: sessions,
		signer:   signer,
		tokens:   map[string]string{},
	}
	for id, role := range map[string]auth.Role{"u1": auth.RoleUser, "u2": auth.RoleUser, "u3": auth.RoleUser, "root": auth.RoleAdmin} {
		if err := users.CreateWithSecret(ctx, id, role, id+"-secret"); err != nil {
			t.Fatal(err)
		}
		env.tokens[id] = env.issue(id, role)
	}
	for _, u := range []string{"u1", "u2", "u3"} {
		if err := store.SetPermission(ctx, u, "A", true); err != nil {
			t.Fatal(err)
		}
	}
	// admins never vote, even with a permission row
	if err := store.SetPermission(ctx, "root", "A", true); err != nil {
		t.Fatal(err)
	}

	h := NewHandler(Deps{
		Manager:     review.NewManager(store, store),
		Gate:        review.NewGate(store),
		Aggregator:  review.NewAggregator(store),
		Permissions: review.NewPermissions(store, store, nil),
		Catalog:     store,
		Users:       users,
	})
	authMW := middleware.NewAuthMiddleware(resolver.NewTokenResolver(signer, sessions, users))

	r := gin.New()
	h.RegisterRoutes(r.Group(prefix, middleware.GinRequireAuth(authMW)))
	env.router = r
	return env
}

func (e *testEnv) issue(userID string, role auth.Role) string {
	e.t.Helper()
	sid, err := session.GenerateID()
	if err != nil {
		e.t.Fatal(err)
	}
	now := time.Now()
	if err := e.sessions.Create(context.Background(), session.Session{
		SessionID: sid, UserID: userID, CreatedAt: now, ExpiresAt: now.Add(time.Hour),
	}); err != nil {
		e.t.Fatal(err)
	}
	raw, err := e.signer.Sign(token.Claims{UserID: userID, Role: role, SessionID: sid, IssuedAt: now, ExpiresAt: now.Add(time.Hour)})
	if err != nil {
		e.t.Fatal(err)
	}
	return raw
}

func (e *testEnv) do(method, path, as string, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			e.t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, prefix+path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if as != "" {
		req.Header.Set("Authorization", "Bearer "+e.tokens[as])
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) expect(rec *httptest.ResponseRecorder, status int) {
	e.t.Helper()
	if rec.Code != status {
		e.t.Fatalf("status = %d, want %d (body %s)", rec.Code, status, rec.Body.String())
	}
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
	return v
}

const eventPath = "/strategic/session/A/event/e1"

func TestSetReactionCreateThenUpdate(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, eventPath+"/evaluations", "u1", map[string]string{"reaction": "like"})
	env.expect(rec, http.StatusCreated)
	got := decode[review.Evaluation](t, rec)
	if got.ID != "u1-e1" || got.Reaction != review.ReactionLike || got.SessionID != "A" {
		t.Fatalf("evaluation = %+v", got)
	}

	rec = env.do(http.MethodPost, eventPath+"/evaluations", "u1", map[string]string{"reaction": "like"})
	env.expect(rec, http.StatusOK)

	evals, err := env.store.ListEvaluations(context.Background(), "A", "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(evals) != 1 {
		t.Fatalf("records = %d, want 1", len(evals))
	}
}

func TestVoteGate(t *testing.T) {
	env := newTestEnv(t)
	body := map[string]string{"reaction": "dislike"}

	env.expect(env.do(http.MethodPost, eventPath+"/evaluations", "", body), http.StatusUnauthorized)
	env.expect(env.do(http.MethodPost, eventPath+"/evaluations", "root", body), http.StatusForbidden)
	env.expect(env.do(http.MethodPost, "/strategic/session/B/event/e1/evaluations", "u1", body), http.StatusForbidden)
	env.expect(env.do(http.MethodPut, eventPath+"/like", "root", nil), http.StatusForbidden)

	rec := env.do(http.MethodPost, eventPath+"/evaluations", "u1", map[string]string{"reaction": "meh"})
	env.expect(rec, http.StatusBadRequest)
	if code := decode[errorResponse](t, rec).Code; code != "INVALID_INPUT" {
		t.Fatalf("code = %q", code)
	}
}

func TestCorrectionLifecycle(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, eventPath+"/correction", "u1", map[string]string{"correctStrategy": "ZZ"})
	env.expect(rec, http.StatusBadRequest)
	if code := decode[errorResponse](t, rec).Code; code != "INVALID_REFERENCE" {
		t.Fatalf("code = %q", code)
	}
	env.expect(env.do(http.MethodGet, eventPath+"/correction", "u1", nil), http.StatusNotFound)

	env.expect(env.do(http.MethodPost, eventPath+"/correction", "u1", map[string]string{"correctStrategy": "B1"}), http.StatusCreated)
	env.expect(env.do(http.MethodPost, eventPath+"/correction", "u1", map[string]string{"correctStrategy": "C1"}), http.StatusOK)

	rec = env.do(http.MethodGet, eventPath+"/correction", "u1", nil)
	env.expect(rec, http.StatusOK)
	if c := decode[review.Correction](t, rec); c.CorrectStrategy != "C1" {
		t.Fatalf("correction = %+v", c)
	}

	env.expect(env.do(http.MethodDelete, eventPath+"/correction", "u1", nil), http.StatusNoContent)
	env.expect(env.do(http.MethodDelete, eventPath+"/correction", "u1", nil), http.StatusNotFound)
	env.expect(env.do(http.MethodDelete, eventPath+"/evaluation", "u1", nil), http.StatusNotFound)
}

func TestDislikeThenLike(t *testing.T) {
	env := newTestEnv(t)

	env.expect(env.do(http.MethodPut, eventPath+"/dislike", "u1", map[string]string{"correctStrategy": "ZZ"}), http.StatusBadRequest)

	rec := env.do(http.MethodPut, eventPath+"/dislike", "u1", map[string]string{"correctStrategy": "C1"})
	env.expect(rec, http.StatusOK)
	resp := decode[dislikeResponse](t, rec)
	if resp.Evaluation.Reaction != review.ReactionDislike || resp.Correction.CorrectStrategy != "C1" {
		t.Fatalf("dislike = %+v", resp)
	}

	rec = env.do(http.MethodPut, eventPath+"/like", "u1", nil)
	env.expect(rec, http.StatusOK)
	if e := decode[review.Evaluation](t, rec); e.Reaction != review.ReactionLike {
		t.Fatalf("like = %+v", e)
	}
	env.expect(env.do(http.MethodGet, eventPath+"/correction", "u1", nil), http.StatusNotFound)
}

func TestTotals(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	if err := env.store.UpsertEvent(ctx, review.Event{ID: "e2", SessionID: "A", Timestamp: time.Now()}); err != nil {
		t.Fatal(err)
	}

	for _, v := range []struct{ user, event, reaction string }{
		{"u1", "e1", "like"},
		{"u2", "e1", "dislike"},
		{"u3", "e1", "like"},
		{"u1", "e2", "dislike"},
	} {
		env.expect(env.do(http.MethodPost, "/strategic/session/A/event/"+v.event+"/evaluations", v.user,
			map[string]string{"reaction": v.reaction}), http.StatusCreated)
	}

	env.expect(env.do(http.MethodGet, "/strategic/session/A/evaluations/totals", "u1", nil), http.StatusUnauthorized)

	rec := env.do(http.MethodGet, "/strategic/session/A/evaluations/totals", "root", nil)
	env.expect(rec, http.StatusOK)
	got := decode[map[string]review.Tally](t, rec)
	want := map[string]review.Tally{"e1": {Like: 2, Dislike: 1}, "e2": {Dislike: 1}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("totals = %+v, want %+v", got, want)
	}

	rec = env.do(http.MethodGet, "/strategic/session/A/evaluations", "root", nil)
	env.expect(rec, http.StatusOK)
	if all := decode[[]review.Evaluation](t, rec); len(all) != 4 {
		t.Fatalf("all evaluations = %d", len(all))
	}
	env.expect(env.do(http.MethodGet, "/strategic/session/A/evaluations", "u1", nil), http.StatusUnauthorized)

	rec = env.do(http.MethodGet, "/strategic/session/A/evaluations/u1", "u1", nil)
	env.expect(rec, http.StatusOK)
	if mine := decode[[]review.Evaluation](t, rec); len(mine) != 2 {
		t.Fatalf("own evaluations = %d", len(mine))
	}
	env.expect(env.do(http.MethodGet, "/strategic/session/A/evaluations/u2", "u1", nil), http.StatusUnauthorized)
	env.expect(env.do(http.MethodGet, "/strategic/session/A/evaluations/u2", "root", nil), http.StatusOK)
}

func TestAccess(t *testing.T) {
	env := newTestEnv(t)

	cases := []struct {
		as, path string
		status   int
		canVote  bool
	}{
		{"u1", "/strategic/session/A/access/u1", http.StatusOK, true},
		{"u1", "/strategic/session/B/access/u1", http.StatusOK, false},
		{"root", "/strategic/session/A/access/root", http.StatusOK, false},
		{"root", "/strategic/session/A/access/u2", http.StatusOK, true},
		{"u1", "/strategic/session/A/access/u2", http.StatusUnauthorized, false},
	}
	for _, tc := range cases {
		rec := env.do(http.MethodGet, tc.path, tc.as, nil)
		env.expect(rec, tc.status)
		if tc.status != http.StatusOK {
			continue
		}
		if got := decode[accessResponse](t, rec); got.CanVote != tc.canVote {
			t.Fatalf("%s as %s: canVote = %v, want %v", tc.path, tc.as, got.CanVote, tc.canVote)
		}
	}
}

func TestReplaceAllowedSessions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	for _, sid := range []string{"B", "C"} {
		if err := env.store.SetPermission(ctx, "u1", sid, true); err != nil {
			t.Fatal(err)
		}
	}

	path := "/admin/users/u1/allowed-sessions"
	body := allowedSessionsRequest{SessionIDs: []string{"B", "D", "X"}}

	env.expect(env.do(http.MethodPut, path, "u1", body), http.StatusUnauthorized)

	rec := env.do(http.MethodPut, path, "root", body)
	env.expect(rec, http.StatusOK)
	if got := decode[allowedSessionsResponse](t, rec); !reflect.DeepEqual(got.SessionIDs, []string{"B", "D"}) {
		t.Fatalf("applied = %v", got.SessionIDs)
	}

	rec = env.do(http.MethodGet, path, "root", nil)
	env.expect(rec, http.StatusOK)
	if got := decode[allowedSessionsResponse](t, rec); !reflect.DeepEqual(got.SessionIDs, []string{"B", "D"}) {
		t.Fatalf("allowed = %v", got.SessionIDs)
	}

	// u1 lost A
	env.expect(env.do(http.MethodPut, eventPath+"/like", "u1", nil), http.StatusForbidden)
}

func TestAdminUsers(t *testing.T) {
	env := newTestEnv(t)

	env.expect(env.do(http.MethodPost, "/admin/users", "u1", createUserRequest{UserID: "u9"}), http.StatusUnauthorized)

	rec := env.do(http.MethodPost, "/admin/users", "root", createUserRequest{UserID: "u9"})
	env.expect(rec, http.StatusCreated)
	issued := decode[credentials.Issued](t, rec)
	if issued.ID != "u9" || issued.Role != auth.RoleUser || issued.SessionKey == "" {
		t.Fatalf("issued = %+v", issued)
	}
	if _, err := env.users.Authenticate(context.Background(), "u9", issued.SessionKey); err != nil {
		t.Fatalf("new key does not authenticate: %v", err)
	}

	env.expect(env.do(http.MethodPost, "/admin/users", "root", createUserRequest{UserID: "u9"}), http.StatusConflict)
	env.expect(env.do(http.MethodPost, "/admin/users", "root", createUserRequest{UserID: "u8", Role: "guest"}), http.StatusBadRequest)
	env.expect(env.do(http.MethodPost, "/admin/users", "root", createUserRequest{UserID: ""}), http.StatusBadRequest)

	rec = env.do(http.MethodPost, "/admin/users/u9/rotate-session-key", "root", nil)
	env.expect(rec, http.StatusOK)
	rotated := decode[credentials.Issued](t, rec)
	if rotated.SessionKey == issued.SessionKey {
		t.Fatal("rotation kept the old key")
	}
	if _, err := env.users.Authenticate(context.Background(), "u9", issued.SessionKey); err == nil {
		t.Fatal("old key still authenticates")
	}
	env.expect(env.do(http.MethodPost, "/admin/users/nobody/rotate-session-key", "root", nil), http.StatusNotFound)

	rec = env.do(http.MethodGet, "/admin/users", "root", nil)
	env.expect(rec, http.StatusOK)
	if bytes.Contains(rec.Body.Bytes(), []byte("secret")) {
		t.Fatalf("user list leaks secrets: %s", rec.Body.String())
	}
}

func TestCatalogRoutes(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/strategic/sessions", "u1", nil)
	env.expect(rec, http.StatusOK)
	if got := decode[[]review.Session](t, rec); len(got) != 4 {
		t.Fatalf("sessions = %d", len(got))
	}

	rec = env.do(http.MethodGet, "/strategic/strategies", "u1", nil)
	env.expect(rec, http.StatusOK)
	if got := decode[[]review.Strategy](t, rec); len(got) != 2 {
		t.Fatalf("strategies = %d", len(got))
	}

	rec = env.do(http.MethodGet, "/strategic/session/A/eventlist", "u1", nil)
	env.expect(rec, http.StatusOK)
	if got := decode[[]review.Event](t, rec); len(got) != 1 || got[0].ID != "e1" {
		t.Fatalf("events = %+v", got)
	}
	env.expect(env.do(http.MethodGet, "/strategic/session/nope/eventlist", "u1", nil), http.StatusNotFound)

	rec = env.do(http.MethodGet, "/strategic/session/A/eventdetails/e1", "u1", nil)
	env.expect(rec, http.StatusOK)
	if got := decode[review.Event](t, rec); string(got.Details) != `{"suggested":["C1"]}` {
		t.Fatalf("details = %s", got.Details)
	}
	env.expect(env.do(http.MethodGet, "/strategic/session/A/eventdetails/e9", "u1", nil), http.StatusNotFound)
}
