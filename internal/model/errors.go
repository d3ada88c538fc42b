// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound はレコードが存在しない、または呼び出し元の所有でないことを表す。
	// 非所有者に対して存在を明かさないため、両者を区別しない。
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized はセッションが無い、無効、または紐付くユーザーが存在しないことを表す。
	ErrUnauthorized = errors.New("unauthorized")
)

// StorageError は永続化層の障害（接続断、不正なID等）を表す。
// APIでは500に変換され、詳細はログにのみ記録される。
type StorageError struct {
	Op  string
	Err error
}

// NewStorageError はopの失敗をStorageErrorで包む。
func NewStorageError(op string, err error) *StorageError {
	return &StorageError{Op: op, Err: err}
}

// Error はerrorインターフェースを実装する。
func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

// Unwrap は元のエラーを返す。
func (e *StorageError) Unwrap() error {
	return e.Err
}

// IdentityExchangeError はOAuthハンドシェイクの失敗を表す。
// リトライはせず、ログイン失敗ページへのリダイレクトに変換される。
type IdentityExchangeError struct {
	Stage string // "state", "exchange", "userinfo"
	Err   error
}

// Error はerrorインターフェースを実装する。
func (e *IdentityExchangeError) Error() string {
	return fmt.Sprintf("identity exchange failed at %s: %v", e.Stage, e.Err)
}

// Unwrap は元のエラーを返す。
func (e *IdentityExchangeError) Unwrap() error {
	return e.Err
}

// FieldError は項目単位の入力エラー。
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError はリクエスト内容の検証エラーを表す。
type ValidationError struct {
	Fields []FieldError
}

// Error はerrorインターフェースを実装する。
func (e *ValidationError) Error() string {
	names := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		names[i] = f.Field
	}
	return "validation failed: " + strings.Join(names, ", ")
}
