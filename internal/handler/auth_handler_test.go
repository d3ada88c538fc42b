package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/printpress/internal/middleware"
	"github.com/hitoshi/printpress/internal/model"
)

// --- モック定義 ---

type mockAuthService struct {
	beginLoginFn     func() (string, string, error)
	handleCallbackFn func(ctx context.Context, code, state, nonce string) (*model.Session, error)
	logoutFn         func(ctx context.Context, token string) error
}

func (m *mockAuthService) BeginLogin() (string, string, error) {
	if m.beginLoginFn != nil {
		return m.beginLoginFn()
	}
	return "https://accounts.google.com/o/oauth2/auth?state=signed", "nonce-1", nil
}

func (m *mockAuthService) StateTTL() int { return 600 }

func (m *mockAuthService) HandleCallback(ctx context.Context, code, state, nonce string) (*model.Session, error) {
	if m.handleCallbackFn != nil {
		return m.handleCallbackFn(ctx, code, state, nonce)
	}
	return nil, &model.IdentityExchangeError{Stage: "exchange", Err: errors.New("not configured")}
}

func (m *mockAuthService) Logout(ctx context.Context, token string) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, token)
	}
	return nil
}

func testAuthConfig() AuthHandlerConfig {
	return AuthHandlerConfig{
		UIOrigin:      "http://localhost:3000",
		CookieSecure:  false,
		SessionMaxAge: 86400,
	}
}

func findCookie(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// --- テスト ---

func TestAuthHandler_Login_RedirectsAndSetsStateCookie(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, testAuthConfig())

	w := httptest.NewRecorder()
	h.Login(w, httptest.NewRequest(http.MethodGet, "/auth/google", nil))

	resp := w.Result()
	if resp.StatusCode != http.StatusTemporaryRedirect {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusTemporaryRedirect)
	}
	if loc := resp.Header.Get("Location"); loc != "https://accounts.google.com/o/oauth2/auth?state=signed" {
		t.Errorf("Location = %q", loc)
	}

	c := findCookie(resp, oauthStateCookie)
	if c == nil {
		t.Fatal("expected oauth_state cookie")
	}
	if c.Value != "nonce-1" {
		t.Errorf("oauth_state = %q, want %q", c.Value, "nonce-1")
	}
	if c.MaxAge != 600 {
		t.Errorf("MaxAge = %d, want 600", c.MaxAge)
	}
	if !c.HttpOnly {
		t.Error("oauth_state cookie should be HttpOnly")
	}
}

func TestAuthHandler_Login_Failure_RedirectsToLogin(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{
		beginLoginFn: func() (string, string, error) {
			return "", "", errors.New("entropy exhausted")
		},
	}, testAuthConfig())

	w := httptest.NewRecorder()
	h.Login(w, httptest.NewRequest(http.MethodGet, "/auth/google", nil))

	if loc := w.Result().Header.Get("Location"); loc != "http://localhost:3000/login" {
		t.Errorf("Location = %q, want login page", loc)
	}
}

func TestAuthHandler_Callback_Success_SetsSessionCookie(t *testing.T) {
	var gotCode, gotState, gotNonce string
	svc := &mockAuthService{
		handleCallbackFn: func(ctx context.Context, code, state, nonce string) (*model.Session, error) {
			gotCode, gotState, gotNonce = code, state, nonce
			return &model.Session{ID: "sess-token", UserID: "user-1", ExpiresAt: time.Now().Add(time.Hour)}, nil
		},
	}
	cfg := testAuthConfig()
	cfg.CookieDomain = "print.example.com"
	cfg.CookieSecure = true
	h := NewAuthHandler(svc, cfg)

	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?code=abc&state=signed", nil)
	req.AddCookie(&http.Cookie{Name: oauthStateCookie, Value: "nonce-1"})
	w := httptest.NewRecorder()

	h.Callback(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusTemporaryRedirect {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusTemporaryRedirect)
	}
	if loc := resp.Header.Get("Location"); loc != "http://localhost:3000/dashboard" {
		t.Errorf("Location = %q, want dashboard", loc)
	}
	if gotCode != "abc" || gotState != "signed" || gotNonce != "nonce-1" {
		t.Errorf("HandleCallback args = (%q, %q, %q)", gotCode, gotState, gotNonce)
	}

	c := findCookie(resp, middleware.SessionCookieName)
	if c == nil {
		t.Fatal("expected session cookie")
	}
	if c.Value != "sess-token" {
		t.Errorf("session cookie = %q, want %q", c.Value, "sess-token")
	}
	if !c.HttpOnly || !c.Secure || c.SameSite != http.SameSiteLaxMode || c.Path != "/" {
		t.Errorf("unexpected cookie attributes: %+v", c)
	}
	if c.Domain != "print.example.com" {
		t.Errorf("Domain = %q, want %q", c.Domain, "print.example.com")
	}
	if c.MaxAge != 86400 {
		t.Errorf("MaxAge = %d, want 86400", c.MaxAge)
	}

	if state := findCookie(resp, oauthStateCookie); state == nil || state.MaxAge >= 0 {
		t.Error("oauth_state cookie should be cleared")
	}
}

func TestAuthHandler_Callback_Failure_RedirectsToLogin(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?code=bad&state=x", nil)
	w := httptest.NewRecorder()

	h.Callback(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusTemporaryRedirect {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusTemporaryRedirect)
	}
	if loc := resp.Header.Get("Location"); loc != "http://localhost:3000/login" {
		t.Errorf("Location = %q, want login page", loc)
	}
	if findCookie(resp, middleware.SessionCookieName) != nil {
		t.Error("session cookie must not be set on failure")
	}
}

func TestAuthHandler_Callback_ConsentDenied_SkipsExchange(t *testing.T) {
	called := false
	h := NewAuthHandler(&mockAuthService{
		handleCallbackFn: func(ctx context.Context, code, state, nonce string) (*model.Session, error) {
			called = true
			return nil, nil
		},
	}, testAuthConfig())

	w := httptest.NewRecorder()
	h.Callback(w, httptest.NewRequest(http.MethodGet, "/auth/google/callback?error=access_denied", nil))

	if called {
		t.Error("HandleCallback should not be called when consent is denied")
	}
	if loc := w.Result().Header.Get("Location"); loc != "http://localhost:3000/login" {
		t.Errorf("Location = %q, want login page", loc)
	}
}

func TestAuthHandler_Logout_Success(t *testing.T) {
	var gotToken string
	h := NewAuthHandler(&mockAuthService{
		logoutFn: func(ctx context.Context, token string) error {
			gotToken = token
			return nil
		},
	}, testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: "sess-token"})
	w := httptest.NewRecorder()

	h.Logout(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if gotToken != "sess-token" {
		t.Errorf("token = %q, want %q", gotToken, "sess-token")
	}
	var body middleware.MessageBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if body.Message != "Logged out successfully" {
		t.Errorf("message = %q", body.Message)
	}
	if c := findCookie(resp, middleware.SessionCookieName); c == nil || c.MaxAge >= 0 {
		t.Error("session cookie should be cleared")
	}
}

func TestAuthHandler_Logout_WithoutSession_Succeeds(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, testAuthConfig())

	w := httptest.NewRecorder()
	h.Logout(w, httptest.NewRequest(http.MethodGet, "/auth/logout", nil))

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestAuthHandler_Logout_StoreFailure_Returns500(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{
		logoutFn: func(ctx context.Context, token string) error {
			return model.NewStorageError("delete session", errors.New("connection reset"))
		},
	}, testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: "sess-token"})
	w := httptest.NewRecorder()

	h.Logout(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusInternalServerError)
	}
	var body middleware.MessageBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if body.Message != "Logout failed" {
		t.Errorf("message = %q, want %q", body.Message, "Logout failed")
	}
}

func TestAuthHandler_CurrentUser_ReturnsUserJSON(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, testAuthConfig())

	user := &model.User{ID: "user-1", GoogleID: "g-1", Email: "alice@example.com", Name: "Alice"}
	req := httptest.NewRequest(http.MethodGet, "/auth/user", nil)
	req = req.WithContext(middleware.ContextWithUser(req.Context(), user))
	w := httptest.NewRecorder()

	h.CurrentUser(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var got map[string]any
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if got["_id"] != "user-1" || got["googleId"] != "g-1" || got["email"] != "alice@example.com" {
		t.Errorf("unexpected user body: %v", got)
	}
}
