package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hitoshi/printpress/internal/metrics"
	"github.com/hitoshi/printpress/internal/model"
	"github.com/hitoshi/printpress/internal/security"
)

// UserDirectory はログイン処理が必要とするユーザー管理の操作。*user.Directoryが満たす。
type UserDirectory interface {
	FindOrCreateUser(ctx context.Context, subjectID, email, name, avatarURL string) (*model.User, error)
	FindUserByID(ctx context.Context, id string) (*model.User, error)
}

// SessionStore はセッションの発行・解決・破棄の操作。*session.Storeが満たす。
type SessionStore interface {
	Bind(ctx context.Context, userID string) (*model.Session, error)
	Resolve(ctx context.Context, token string) (string, error)
	Clear(ctx context.Context, token string) error
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	oauth    OAuthProvider
	users    UserDirectory
	sessions SessionStore
	states   *StateIssuer
	guard    security.URLGuard
	metrics  metrics.MetricsCollector
}

// NewService はServiceを生成する。
func NewService(
	oauth OAuthProvider,
	users UserDirectory,
	sessions SessionStore,
	states *StateIssuer,
	guard security.URLGuard,
	collector metrics.MetricsCollector,
) *Service {
	return &Service{
		oauth:    oauth,
		users:    users,
		sessions: sessions,
		states:   states,
		guard:    guard,
		metrics:  collector,
	}
}

// BeginLogin は同意画面のURLと、Cookieに保存するstateのnonceを返す。
func (s *Service) BeginLogin() (loginURL, nonce string, err error) {
	state, nonce, err := s.states.Issue()
	if err != nil {
		return "", "", err
	}
	return s.oauth.GetLoginURL(state), nonce, nil
}

// StateTTL はstate Cookieの有効期間（秒）を返す。
func (s *Service) StateTTL() int {
	return int(s.states.TTL().Seconds())
}

// HandleCallback はOAuthコールバックを処理し、セッションを発行する。
// 初回ログインのユーザーは自動で作成する。
func (s *Service) HandleCallback(ctx context.Context, code, state, nonce string) (*model.Session, error) {
	sess, err := s.handleCallback(ctx, code, state, nonce)
	if err != nil {
		s.metrics.RecordLogin(metrics.LoginFailure)
		return nil, err
	}
	s.metrics.RecordLogin(metrics.LoginSuccess)
	return sess, nil
}

func (s *Service) handleCallback(ctx context.Context, code, state, nonce string) (*model.Session, error) {
	// 1. stateの検証
	if err := s.states.Verify(state, nonce); err != nil {
		return nil, &model.IdentityExchangeError{Stage: "state", Err: err}
	}

	// 2. 認可コードをトークンに交換し、ユーザー情報を取得
	info, err := s.oauth.ExchangeCode(ctx, code)
	if err != nil {
		var exErr *model.IdentityExchangeError
		if errors.As(err, &exErr) {
			return nil, err
		}
		return nil, &model.IdentityExchangeError{Stage: "exchange", Err: err}
	}

	// 3. ユーザーの取得または作成
	avatar := s.guard.PublicURLOrEmpty(info.AvatarURL)
	if avatar == "" && info.AvatarURL != "" {
		slog.Warn("dropped unsafe avatar url", slog.String("provider_user_id", info.ProviderUserID))
	}
	u, err := s.users.FindOrCreateUser(ctx, info.ProviderUserID, info.Email, info.Name, avatar)
	if err != nil {
		return nil, fmt.Errorf("failed to find or create user: %w", err)
	}

	// 4. セッションの発行
	sess, err := s.sessions.Bind(ctx, u.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	slog.Info("user logged in",
		slog.String("user_id", u.ID),
		slog.String("provider", info.Provider),
	)
	return sess, nil
}

// Logout はセッションを破棄する。
func (s *Service) Logout(ctx context.Context, token string) error {
	if err := s.sessions.Clear(ctx, token); err != nil {
		return err
	}
	slog.Info("user logged out")
	return nil
}

// CurrentUser はセッショントークンから現在のユーザーを返す。
// トークンが無効、またはユーザーが存在しない場合はErrUnauthorizedを返す。
func (s *Service) CurrentUser(ctx context.Context, token string) (*model.User, error) {
	userID, err := s.sessions.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}

	u, err := s.users.FindUserByID(ctx, userID)
	if errors.Is(err, model.ErrNotFound) {
		slog.Warn("session refers to missing user", slog.String("user_id", userID))
		return nil, model.ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}
