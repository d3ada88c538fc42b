package model

import "time"

// ContactSubmission は公開お問い合わせフォームの送信内容。永続化はしない。
type ContactSubmission struct {
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Message    string    `json:"message"`
	ReceivedAt time.Time `json:"receivedAt"`
}
