package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"campus/identity/internal/auth"
	"campus/identity/internal/config"
	"campus/identity/internal/model"
	"campus/identity/internal/revocation"
)

// These tests exercise the gate middleware only, so the server runs without a
// store: every request below is rejected before any handler touches it.

func testConfig() config.Config {
	return config.Config{
		JWTSecret:   "test-secret",
		JWTIssuer:   "test-issuer",
		SessionTTL:  7 * 24 * time.Hour,
		Environment: "development",
	}
}

func mustToken(t *testing.T, cfg config.Config, userID string, role model.Role, ttl time.Duration) string {
	t.Helper()
	token, err := auth.NewSessionToken(cfg.JWTSecret, cfg.JWTIssuer, ttl, userID, role)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	return token
}

func gateReq(t *testing.T, app *httptest.Server, method, path, cookieToken, bearerToken string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, app.URL+path, nil)
	if err != nil {
		t.Fatalf("request error: %v", err)
	}
	if cookieToken != "" {
		req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: cookieToken})
	}
	if bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+bearerToken)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do error: %v", err)
	}
	resp.Body.Close()
	return resp
}

func TestGateRejectsMissingAndInvalidTokens(t *testing.T) {
	cfg := testConfig()
	app := httptest.NewServer(NewServer(cfg, nil, nil, nil).Router())
	defer app.Close()

	resp := gateReq(t, app, http.MethodGet, "/me", "", "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}

	resp = gateReq(t, app, http.MethodGet, "/me", "", "not-a-jwt")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for garbage token, got %d", resp.StatusCode)
	}

	expired := mustToken(t, cfg, "user-1", model.RoleStudent, -time.Minute)
	resp = gateReq(t, app, http.MethodGet, "/me", expired, "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for expired token, got %d", resp.StatusCode)
	}
}

func TestGateWrongRoleIsForbiddenNotUnauthorized(t *testing.T) {
	cfg := testConfig()
	app := httptest.NewServer(NewServer(cfg, nil, nil, nil).Router())
	defer app.Close()

	student := mustToken(t, cfg, "user-1", model.RoleStudent, time.Hour)
	manager := mustToken(t, cfg, "user-2", model.RoleManager, time.Hour)
	admin := mustToken(t, cfg, "user-3", model.RoleAdmin, time.Hour)

	for _, tc := range []struct {
		token string
		path  string
	}{
		{student, "/admin/accounts"},
		{manager, "/admin/accounts"},
		{admin, "/student/courses"},
		{student, "/teacher/courses"},
		{admin, "/manager/accounts"},
	} {
		resp := gateReq(t, app, http.MethodGet, tc.path, tc.token, "")
		if resp.StatusCode != http.StatusForbidden {
			t.Fatalf("expected 403 on %s, got %d", tc.path, resp.StatusCode)
		}
	}
}

func TestGateAcceptsBearerFallback(t *testing.T) {
	cfg := testConfig()
	app := httptest.NewServer(NewServer(cfg, nil, nil, nil).Router())
	defer app.Close()

	// A 403 (not 401) proves the bearer token passed authentication.
	student := mustToken(t, cfg, "user-1", model.RoleStudent, time.Hour)
	resp := gateReq(t, app, http.MethodGet, "/admin/accounts", "", student)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 via bearer header, got %d", resp.StatusCode)
	}
}

func TestLogoutWithoutRevocationKeepsTokenValid(t *testing.T) {
	cfg := testConfig()
	app := httptest.NewServer(NewServer(cfg, nil, nil, nil).Router())
	defer app.Close()

	student := mustToken(t, cfg, "user-1", model.RoleStudent, time.Hour)

	resp := gateReq(t, app, http.MethodPost, "/logout", student, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 on logout, got %d", resp.StatusCode)
	}
	if !cookieCleared(resp) {
		t.Fatalf("expected logout to clear the session cookie")
	}

	// Stateless tokens: without a revocation list the old token still
	// authenticates (403 here, not 401) until it expires.
	resp = gateReq(t, app, http.MethodGet, "/admin/accounts", student, "")
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected replayed token to still authenticate, got %d", resp.StatusCode)
	}
}

func TestLogoutWithRevocationDeniesReplay(t *testing.T) {
	cfg := testConfig()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	revoker := revocation.NewStore(client)

	app := httptest.NewServer(NewServer(cfg, nil, revoker, nil).Router())
	defer app.Close()

	student := mustToken(t, cfg, "user-1", model.RoleStudent, time.Hour)

	resp := gateReq(t, app, http.MethodPost, "/logout", student, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 on logout, got %d", resp.StatusCode)
	}

	resp = gateReq(t, app, http.MethodGet, "/admin/accounts", student, "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected revoked token to be rejected, got %d", resp.StatusCode)
	}
}

func TestIssuedCookieAttributes(t *testing.T) {
	cfg := testConfig()
	cfg.Environment = "production"
	server := NewServer(cfg, nil, nil, nil)

	rec := httptest.NewRecorder()
	server.setSessionCookie(rec, "issued-token")

	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name != sessionCookieName {
			continue
		}
		if cookie.Value != "issued-token" {
			t.Fatalf("expected cookie to carry the token, got %q", cookie.Value)
		}
		if cookie.Path != "/" {
			t.Fatalf("expected cookie path /, got %q", cookie.Path)
		}
		if want := int(cfg.SessionTTL / time.Second); cookie.MaxAge != want {
			t.Fatalf("expected max age %d, got %d", want, cookie.MaxAge)
		}
		if !cookie.HttpOnly {
			t.Fatalf("session cookie must be http-only")
		}
		if cookie.SameSite != http.SameSiteStrictMode {
			t.Fatalf("session cookie must be same-site strict")
		}
		if !cookie.Secure {
			t.Fatalf("session cookie must be secure outside development")
		}
		return
	}
	t.Fatalf("session cookie not set")
}

func TestIssuedCookieNotSecureInDevelopment(t *testing.T) {
	server := NewServer(testConfig(), nil, nil, nil)

	rec := httptest.NewRecorder()
	server.setSessionCookie(rec, "issued-token")

	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name != sessionCookieName {
			continue
		}
		if cookie.Secure {
			t.Fatalf("development cookies must work over plain http")
		}
		return
	}
	t.Fatalf("session cookie not set")
}

func TestClearedCookieAttributes(t *testing.T) {
	cfg := testConfig()
	cfg.Environment = "production"
	app := httptest.NewServer(NewServer(cfg, nil, nil, nil).Router())
	defer app.Close()

	student := mustToken(t, cfg, "user-1", model.RoleStudent, time.Hour)
	resp := gateReq(t, app, http.MethodPost, "/logout", student, "")

	for _, cookie := range resp.Cookies() {
		if cookie.Name != sessionCookieName {
			continue
		}
		if !cookie.HttpOnly {
			t.Fatalf("session cookie must be http-only")
		}
		if cookie.SameSite != http.SameSiteStrictMode {
			t.Fatalf("session cookie must be same-site strict")
		}
		if !cookie.Secure {
			t.Fatalf("session cookie must be secure outside development")
		}
		return
	}
	t.Fatalf("session cookie not present in logout response")
}

func cookieCleared(resp *http.Response) bool {
	for _, cookie := range resp.Cookies() {
		if cookie.Name == sessionCookieName && cookie.Value == "" && cookie.MaxAge < 0 {
			return true
		}
	}
	return false
}
