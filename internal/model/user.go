// Package model はドメインモデルを定義する。
package model

import "time"

// User はGoogleアカウントでログインした利用者を表す。
// GoogleIDごとに最大1件で、初回ログイン時に作成され以後は更新・削除されない。
type User struct {
	ID        string    `json:"_id" db:"id" bson:"_id"`
	GoogleID  string    `json:"googleId" db:"google_id" bson:"googleId"`
	Email     string    `json:"email" db:"email" bson:"email"`
	Name      string    `json:"name" db:"name" bson:"name"`
	AvatarURL string    `json:"avatar" db:"avatar_url" bson:"avatar"`
	CreatedAt time.Time `json:"createdAt" db:"created_at" bson:"createdAt"`
}

// Session はブラウザのセッショントークンと認証済みユーザーの紐付けを表す。
type Session struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"userId" db:"user_id"`
	ExpiresAt time.Time `json:"expiresAt" db:"expires_at"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// Expired はnow時点でセッションが期限切れかどうかを返す。
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
