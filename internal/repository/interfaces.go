// Package repository はデータ永続化のインターフェースと各バックエンドの実装を提供する。
package repository

import (
	"context"
	"errors"

	"github.com/hitoshi/printpress/internal/model"
)

// ErrDuplicateUser は同じGoogleIDのユーザーが既に存在する場合に返される。
// 同時ログインでの作成競合を検出するために使用する。
var ErrDuplicateUser = errors.New("user with the same google id already exists")

// ErrInvalidID はIDの形式が不正な場合に返される。
var ErrInvalidID = errors.New("invalid id format")

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByGoogleID はGoogleのsubject idでユーザーを取得する。見つからない場合はnilを返す。
	FindByGoogleID(ctx context.Context, googleID string) (*model.User, error)

	// Create はユーザーを作成する。GoogleIDが重複する場合はErrDuplicateUserを返す。
	Create(ctx context.Context, user *model.User) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。存在しないか期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。存在しない場合もエラーにしない。
	DeleteByID(ctx context.Context, id string) error
}

// QuoteRepository は見積依頼の永続化インターフェース。
// 読み取りは常に所有者で絞り込む。
type QuoteRepository interface {
	// Create は見積依頼を作成する。
	Create(ctx context.Context, quote *model.Quote) error

	// ListByUserID はユーザーの見積依頼を作成日時の降順で返す。
	ListByUserID(ctx context.Context, userID string) ([]*model.Quote, error)

	// FindByIDAndUserID はIDと所有者が一致する見積依頼を返す。見つからない場合はnilを返す。
	FindByIDAndUserID(ctx context.Context, id, userID string) (*model.Quote, error)
}

// Pinger は疎通確認ができるバックエンドを表す。ヘルスチェックで使用する。
type Pinger interface {
	PingContext(ctx context.Context) error
}
