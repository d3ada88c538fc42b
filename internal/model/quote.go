package model

import "time"

// QuoteStatusPending は作成直後の見積依頼のステータス。
// ステータスの遷移はバックオフィス側の業務であり、このサービスでは扱わない。
const QuoteStatusPending = "pending"

// Quote はユーザーが送信した見積依頼を表す。
// 所有者は作成時のセッションから決まり、クライアントから変更することはできない。
type Quote struct {
	ID          string    `json:"_id" db:"id" bson:"_id"`
	UserID      string    `json:"userId" db:"user_id" bson:"userId"`
	Name        string    `json:"name" db:"name" bson:"name"`
	Email       string    `json:"email" db:"email" bson:"email"`
	Phone       string    `json:"phone" db:"phone" bson:"phone"`
	ServiceType string    `json:"serviceType" db:"service_type" bson:"serviceType"`
	Quantity    int       `json:"quantity" db:"quantity" bson:"quantity"`
	Description string    `json:"description" db:"description" bson:"description"`
	Status      string    `json:"status" db:"status" bson:"status"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at" bson:"createdAt"`
}

// QuoteFields は見積依頼作成時にクライアントが指定できる項目。
type QuoteFields struct {
	Name        string `json:"name" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	Phone       string `json:"phone" validate:"required"`
	ServiceType string `json:"serviceType" validate:"required"`
	Quantity    int    `json:"quantity" validate:"required,gte=1"`
	Description string `json:"description" validate:"required"`
}
