// Package session はセッショントークンとユーザーIDの紐付けを管理する。
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/printpress/internal/model"
	"github.com/hitoshi/printpress/internal/repository"
)

// tokenBytes はセッショントークンの乱数バイト数。
const tokenBytes = 32

// SessionFor はuserIDをnowからttlの間有効なセッションに対応付ける。
// トークンは含まないため、呼び出し元でIDを設定する。
func SessionFor(userID string, now time.Time, ttl time.Duration) model.Session {
	return model.Session{
		UserID:    userID,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
}

// UserIDOf はnow時点で有効なセッションに紐付くユーザーIDを返す。
// セッションが無い、期限切れ、またはユーザーIDが空の場合はErrUnauthorizedを返す。
func UserIDOf(s *model.Session, now time.Time) (string, error) {
	if s == nil || s.UserID == "" || s.Expired(now) {
		return "", model.ErrUnauthorized
	}
	return s.UserID, nil
}

// Store はセッションの発行・解決・破棄を行う。
type Store struct {
	repo    repository.SessionRepository
	ttl     time.Duration
	timeout time.Duration
	now     func() time.Time
}

// NewStore はStoreを生成する。
// ttlはセッションの有効期間、timeoutは1回の永続化呼び出しの上限（0以下で無制限）。
func NewStore(repo repository.SessionRepository, ttl, timeout time.Duration) *Store {
	return &Store{
		repo:    repo,
		ttl:     ttl,
		timeout: timeout,
		now:     time.Now,
	}
}

// TTL はセッションの有効期間を返す。Cookieの有効期限に使用する。
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Bind はuserIDに紐付く新しいセッションを発行する。
func (s *Store) Bind(ctx context.Context, userID string) (*model.Session, error) {
	token, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session token: %w", err)
	}

	session := SessionFor(userID, s.now(), s.ttl)
	session.ID = token

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.repo.Create(ctx, &session); err != nil {
		return nil, model.NewStorageError("create session", err)
	}

	slog.Debug("session bound", slog.String("user_id", userID))
	return &session, nil
}

// Resolve はトークンに紐付くユーザーIDを返す。
// トークンが空、未知、または期限切れの場合はErrUnauthorizedを返す。
func (s *Store) Resolve(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", model.ErrUnauthorized
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	session, err := s.repo.FindByID(ctx, token)
	if err != nil {
		return "", model.NewStorageError("find session", err)
	}
	return UserIDOf(session, s.now())
}

// Clear はセッションを破棄する。トークンが空の場合は何もしない。
func (s *Store) Clear(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.repo.DeleteByID(ctx, token); err != nil {
		return model.NewStorageError("delete session", err)
	}
	return nil
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

// generateToken は暗号的に安全なセッショントークンを生成する。
func generateToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
