package shared_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/speedissuesflow/sif/internal/shared"
)

func newSessionManager(t *testing.T) *shared.SessionManager {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return shared.NewSessionManager(client, "test_session", "secret", time.Hour, false)
}

func TestSessionRoundTrip(t *testing.T) {
	sm := newSessionManager(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(ctx, req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	sess.SetUser("42")
	sess.Set("theme", "dark")

	res := httptest.NewRecorder()
	if err := sm.Commit(ctx, res, req, sess); err != nil {
		t.Fatalf("commit session: %v", err)
	}

	cookies := res.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatalf("expected a session cookie")
	}

	next := httptest.NewRequest(http.MethodGet, "/", nil)
	next.AddCookie(cookies[0])
	restored, err := sm.Load(ctx, next)
	if err != nil {
		t.Fatalf("reload session: %v", err)
	}
	if restored.User() != "42" {
		t.Fatalf("expected user 42, got %q", restored.User())
	}
	if restored.Get("theme") != "dark" {
		t.Fatalf("expected stored value to survive the round trip")
	}
}

func TestSessionDestroyClearsCookieAndStore(t *testing.T) {
	sm := newSessionManager(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(ctx, req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	sess.SetUser("7")
	res := httptest.NewRecorder()
	if err := sm.Commit(ctx, res, req, sess); err != nil {
		t.Fatalf("commit session: %v", err)
	}
	cookie := res.Result().Cookies()[0]

	next := httptest.NewRequest(http.MethodGet, "/", nil)
	next.AddCookie(cookie)
	sess, err = sm.Load(ctx, next)
	if err != nil {
		t.Fatalf("reload session: %v", err)
	}
	sm.Destroy(sess)
	res = httptest.NewRecorder()
	if err := sm.Commit(ctx, res, next, sess); err != nil {
		t.Fatalf("commit destroy: %v", err)
	}

	found := false
	for _, c := range res.Result().Cookies() {
		if c.Name == sm.CookieName() && c.MaxAge < 0 {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an expired session cookie")
	}

	again := httptest.NewRequest(http.MethodGet, "/", nil)
	again.AddCookie(cookie)
	restored, err := sm.Load(ctx, again)
	if err != nil {
		t.Fatalf("reload after destroy: %v", err)
	}
	if restored.User() != "" {
		t.Fatalf("expected destroyed session to lose its user")
	}
}

func TestCSRFTokenVerification(t *testing.T) {
	sm := newSessionManager(t)
	cm := shared.NewCSRFManager("csrfsecret")
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(ctx, req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}

	token, err := cm.EnsureToken(ctx, sess)
	if err != nil {
		t.Fatalf("ensure token: %v", err)
	}
	if token == "" {
		t.Fatalf("expected a token")
	}

	second, err := cm.EnsureToken(ctx, sess)
	if err != nil {
		t.Fatalf("ensure token again: %v", err)
	}
	if second != token {
		t.Fatalf("expected the token to be stable within a session")
	}

	if err := cm.VerifyToken(ctx, sess, token); err != nil {
		t.Fatalf("verify token: %v", err)
	}
	if err := cm.VerifyToken(ctx, sess, "forged"); err == nil {
		t.Fatalf("expected a forged token to be rejected")
	}
	if err := cm.VerifyToken(ctx, sess, ""); err == nil {
		t.Fatalf("expected an empty token to be rejected")
	}
}
