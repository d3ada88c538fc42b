package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"golang.org/x/oauth2"

	"github.com/hitoshi/printpress/internal/model"
)

// newFakeGoogle はトークンとユーザー情報のエンドポイントを持つテスト用サーバーを起動する。
func newFakeGoogle(t *testing.T, tokenHandler, userInfoHandler http.HandlerFunc) *GoogleOAuthProvider {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/token", tokenHandler)
	mux.HandleFunc("/userinfo", userInfoHandler)
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	return NewGoogleOAuthProvider(GoogleOAuthConfig{
		ClientID:     "test-client-id",
		ClientSecret: "test-client-secret",
		RedirectURL:  "http://localhost:5000/auth/google/callback",
		HTTPClient:   ts.Client(),
		Endpoint: &oauth2.Endpoint{
			AuthURL:   ts.URL + "/auth",
			TokenURL:  ts.URL + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
		UserInfoURL: ts.URL + "/userinfo",
	})
}

func okToken(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"access_token": "test-access-token",
		"token_type":   "Bearer",
		"expires_in":   3600,
	})
}

func TestGoogleOAuthProvider_GetLoginURL_ContainsRequiredParams(t *testing.T) {
	provider := NewGoogleOAuthProvider(GoogleOAuthConfig{
		ClientID:    "test-client-id",
		RedirectURL: "http://localhost:5000/auth/google/callback",
	})

	raw := provider.GetLoginURL("test-state-value")
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("invalid URL %q: %v", raw, err)
	}
	if u.Host != "accounts.google.com" {
		t.Errorf("host = %q, want accounts.google.com", u.Host)
	}

	q := u.Query()
	want := map[string]string{
		"client_id":     "test-client-id",
		"redirect_uri":  "http://localhost:5000/auth/google/callback",
		"response_type": "code",
		"state":         "test-state-value",
	}
	for k, v := range want {
		if q.Get(k) != v {
			t.Errorf("%s = %q, want %q", k, q.Get(k), v)
		}
	}
	for _, scope := range []string{"openid", "email", "profile"} {
		if !strings.Contains(q.Get("scope"), scope) {
			t.Errorf("scope %q missing from %q", scope, q.Get("scope"))
		}
	}
}

func TestGoogleOAuthProvider_ExchangeCode_Success(t *testing.T) {
	provider := newFakeGoogle(t,
		func(w http.ResponseWriter, r *http.Request) {
			r.ParseForm()
			if r.Form.Get("code") != "valid-code" {
				t.Errorf("code = %q, want %q", r.Form.Get("code"), "valid-code")
			}
			okToken(w, r)
		},
		func(w http.ResponseWriter, r *http.Request) {
			if got := r.Header.Get("Authorization"); got != "Bearer test-access-token" {
				t.Errorf("unexpected Authorization header: %q", got)
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{
				"sub":     "google-sub-12345",
				"email":   "user@gmail.com",
				"name":    "Google User",
				"picture": "https://lh3.googleusercontent.com/a/photo.jpg",
			})
		},
	)

	info, err := provider.ExchangeCode(context.Background(), "valid-code")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.ProviderUserID != "google-sub-12345" {
		t.Errorf("ProviderUserID = %q", info.ProviderUserID)
	}
	if info.Email != "user@gmail.com" || info.Name != "Google User" {
		t.Errorf("unexpected profile: %+v", info)
	}
	if info.AvatarURL != "https://lh3.googleusercontent.com/a/photo.jpg" {
		t.Errorf("AvatarURL = %q", info.AvatarURL)
	}
	if info.Provider != "google" {
		t.Errorf("Provider = %q, want google", info.Provider)
	}
}

func TestGoogleOAuthProvider_ExchangeCode_Failures(t *testing.T) {
	tests := []struct {
		name      string
		code      string
		token     http.HandlerFunc
		userInfo  http.HandlerFunc
		wantStage string
	}{
		{
			name:      "認可コードなし（同意拒否）",
			code:      "",
			token:     okToken,
			userInfo:  func(w http.ResponseWriter, r *http.Request) {},
			wantStage: "exchange",
		},
		{
			name: "トークン交換エラー",
			code: "bad-code",
			token: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(`{"error":"invalid_grant"}`))
			},
			userInfo:  func(w http.ResponseWriter, r *http.Request) {},
			wantStage: "exchange",
		},
		{
			name:  "ユーザー情報エンドポイントが500",
			code:  "valid-code",
			token: okToken,
			userInfo: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			wantStage: "userinfo",
		},
		{
			name:  "ユーザー情報が不正なJSON",
			code:  "valid-code",
			token: okToken,
			userInfo: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{not json`))
			},
			wantStage: "userinfo",
		},
		{
			name:  "subが空",
			code:  "valid-code",
			token: okToken,
			userInfo: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"email":"user@gmail.com"}`))
			},
			wantStage: "userinfo",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := newFakeGoogle(t, tt.token, tt.userInfo)

			_, err := provider.ExchangeCode(context.Background(), tt.code)

			var exErr *model.IdentityExchangeError
			if !errors.As(err, &exErr) {
				t.Fatalf("expected IdentityExchangeError, got %v", err)
			}
			if exErr.Stage != tt.wantStage {
				t.Errorf("Stage = %q, want %q", exErr.Stage, tt.wantStage)
			}
		})
	}
}
