// Package user はユーザー管理のドメインロジックを提供する。
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/printpress/internal/model"
	"github.com/hitoshi/printpress/internal/repository"
)

// Directory はGoogleのsubject idをキーにユーザーを管理する。
// ユーザーは初回ログイン時に作成され、再ログインでプロフィールは更新しない。
type Directory struct {
	repo    repository.UserRepository
	timeout time.Duration
	now     func() time.Time
}

// NewDirectory はDirectoryを生成する。timeoutは1回の永続化呼び出しの上限（0以下で無制限）。
func NewDirectory(repo repository.UserRepository, timeout time.Duration) *Directory {
	return &Directory{
		repo:    repo,
		timeout: timeout,
		now:     time.Now,
	}
}

// FindOrCreateUser はsubjectIDのユーザーを返す。存在しない場合は作成する。
// 同時ログインによる作成競合は既存レコードを読み直して解決するため、何度呼んでも1件に収束する。
func (d *Directory) FindOrCreateUser(ctx context.Context, subjectID, email, name, avatarURL string) (*model.User, error) {
	if subjectID == "" {
		return nil, fmt.Errorf("subject id is required")
	}

	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	existing, err := d.repo.FindByGoogleID(ctx, subjectID)
	if err != nil {
		return nil, model.NewStorageError("find user by google id", err)
	}
	if existing != nil {
		slog.Info("existing user logged in", slog.String("user_id", existing.ID))
		return existing, nil
	}

	user := &model.User{
		ID:        uuid.New().String(),
		GoogleID:  subjectID,
		Email:     email,
		Name:      name,
		AvatarURL: avatarURL,
		CreatedAt: d.now().UTC(),
	}

	if err := d.repo.Create(ctx, user); err != nil {
		if !errors.Is(err, repository.ErrDuplicateUser) {
			return nil, model.NewStorageError("create user", err)
		}

		// 別のリクエストが先に作成した
		winner, err := d.repo.FindByGoogleID(ctx, subjectID)
		if err != nil {
			return nil, model.NewStorageError("find user by google id", err)
		}
		if winner == nil {
			return nil, model.NewStorageError("find user by google id", fmt.Errorf("user %s vanished after duplicate insert", subjectID))
		}
		return winner, nil
	}

	slog.Info("new user created",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)
	return user, nil
}

// FindUserByID は指定IDのユーザーを返す。存在しない場合はErrNotFoundを返す。
func (d *Directory) FindUserByID(ctx context.Context, id string) (*model.User, error) {
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	user, err := d.repo.FindByID(ctx, id)
	if err != nil {
		return nil, model.NewStorageError("find user", err)
	}
	if user == nil {
		return nil, model.ErrNotFound
	}
	return user, nil
}

func (d *Directory) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d.timeout)
}
