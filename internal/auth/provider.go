// Package auth はGoogle OAuthによるログインフローを提供する。
package auth

import "context"

// OAuthUserInfo はOAuthプロバイダーから取得し正規化したユーザー情報。
type OAuthUserInfo struct {
	ProviderUserID string
	Email          string
	Name           string
	AvatarURL      string
	Provider       string
}

// OAuthProvider はOAuth認証プロバイダーのインターフェース。
// 起動時に1回構成して注入する。
type OAuthProvider interface {
	// GetLoginURL はstateを埋め込んだ同意画面のURLを生成する。
	GetLoginURL(state string) string
	// ExchangeCode は認可コードをトークンに交換し、ユーザー情報を取得する。
	// 失敗はすべて*model.IdentityExchangeErrorで返す。
	ExchangeCode(ctx context.Context, code string) (*OAuthUserInfo, error)
}
