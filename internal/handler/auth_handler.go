// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/printpress/internal/middleware"
	"github.com/hitoshi/printpress/internal/model"
)

const oauthStateCookie = "oauth_state"

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	BeginLogin() (loginURL, nonce string, err error)
	StateTTL() int
	HandleCallback(ctx context.Context, code, state, nonce string) (*model.Session, error)
	Logout(ctx context.Context, token string) error
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	UIOrigin      string // ログイン後のリダイレクト先
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

// AuthHandler はOAuth認証関連のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	config  AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service: service,
		config:  config,
	}
}

// Login はGoogle OAuthフローを開始する。
// GET /auth/google
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	loginURL, nonce, err := h.service.BeginLogin()
	if err != nil {
		slog.Error("failed to begin oauth login", slog.String("error", err.Error()))
		h.redirectToLogin(w, r)
		return
	}

	// 署名付きstateと対になるnonceをCookieに保存（CSRF対策）
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    nonce,
		Path:     "/",
		MaxAge:   h.service.StateTTL(),
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, loginURL, http.StatusTemporaryRedirect)
}

// Callback はOAuthコールバックを処理する。
// 失敗時はすべてUIのログイン画面へリダイレクトする。
// GET /auth/google/callback?code=xxx&state=yyy
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	var nonce string
	if c, err := r.Cookie(oauthStateCookie); err == nil {
		nonce = c.Value
	}
	h.clearCookie(w, oauthStateCookie, "")

	q := r.URL.Query()
	if providerErr := q.Get("error"); providerErr != "" {
		slog.Warn("oauth consent denied", slog.String("error", providerErr))
		h.redirectToLogin(w, r)
		return
	}

	session, err := h.service.HandleCallback(r.Context(), q.Get("code"), q.Get("state"), nonce)
	if err != nil {
		slog.Warn("oauth callback failed", slog.String("error", err.Error()))
		h.redirectToLogin(w, r)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    session.ID,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   h.config.SessionMaxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.config.UIOrigin+"/dashboard", http.StatusTemporaryRedirect)
}

// Logout はセッションを破棄する。セッションが無い場合も成功として扱う。
// GET /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var token string
	if c, err := r.Cookie(middleware.SessionCookieName); err == nil {
		token = c.Value
	}

	if err := h.service.Logout(r.Context(), token); err != nil {
		slog.Error("failed to logout", slog.String("error", err.Error()))
		middleware.WriteMessage(w, http.StatusInternalServerError, "Logout failed")
		return
	}

	h.clearCookie(w, middleware.SessionCookieName, h.config.CookieDomain)
	middleware.WriteMessage(w, http.StatusOK, "Logged out successfully")
}

// CurrentUser は現在のログインユーザーを返す。セッションミドルウェアの内側で使用する。
// GET /auth/user
func (h *AuthHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		middleware.WriteUnauthorized(w)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, user)
}

func (h *AuthHandler) redirectToLogin(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.config.UIOrigin+"/login", http.StatusTemporaryRedirect)
}

func (h *AuthHandler) clearCookie(w http.ResponseWriter, name, domain string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Domain:   domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
