package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/hitoshi/printpress/internal/model"
)

// quoteColumns はquotesテーブルのSELECT対象カラム。
const quoteColumns = `id, user_id, name, email, phone, service_type, quantity, description, status, created_at`

// PostgresQuoteRepo はPostgreSQLを使用した見積依頼リポジトリ。
type PostgresQuoteRepo struct {
	db *sqlx.DB
}

// NewPostgresQuoteRepo はPostgresQuoteRepoを生成する。
func NewPostgresQuoteRepo(db *sqlx.DB) *PostgresQuoteRepo {
	return &PostgresQuoteRepo{db: db}
}

// Create は見積依頼を作成する。
func (r *PostgresQuoteRepo) Create(ctx context.Context, quote *model.Quote) error {
	_, err := r.db.NamedExecContext(ctx,
		`INSERT INTO quotes (`+quoteColumns+`)
		 VALUES (:id, :user_id, :name, :email, :phone, :service_type, :quantity, :description, :status, :created_at)`,
		quote,
	)
	if err != nil {
		return fmt.Errorf("failed to insert quote: %w", err)
	}
	return nil
}

// ListByUserID はユーザーの見積依頼を作成日時の降順で返す。
// 同時刻の場合はIDの降順で順序を固定する。
func (r *PostgresQuoteRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Quote, error) {
	quotes := []*model.Quote{}
	err := r.db.SelectContext(ctx, &quotes,
		`SELECT `+quoteColumns+`
		 FROM quotes
		 WHERE user_id = $1
		 ORDER BY created_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list quotes: %w", err)
	}
	return quotes, nil
}

// FindByIDAndUserID はIDと所有者が一致する見積依頼を返す。見つからない場合はnilを返す。
// IDがUUID形式でない場合はPostgreSQLがエラーを返し、そのまま障害として扱われる。
func (r *PostgresQuoteRepo) FindByIDAndUserID(ctx context.Context, id, userID string) (*model.Quote, error) {
	var quote model.Quote
	err := r.db.GetContext(ctx, &quote,
		`SELECT `+quoteColumns+` FROM quotes WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find quote: %w", err)
	}
	return &quote, nil
}

// compile-time interface check
var _ QuoteRepository = (*PostgresQuoteRepo)(nil)
