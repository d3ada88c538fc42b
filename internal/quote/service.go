// Package quote は見積依頼の作成と所有者単位の参照を提供する。
package quote

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/printpress/internal/events"
	"github.com/hitoshi/printpress/internal/metrics"
	"github.com/hitoshi/printpress/internal/model"
	"github.com/hitoshi/printpress/internal/repository"
	"github.com/hitoshi/printpress/internal/security"
)

// CreatedEvent はquote.createdで発行するペイロード。
type CreatedEvent struct {
	QuoteID     string    `json:"quoteId"`
	UserID      string    `json:"userId"`
	ServiceType string    `json:"serviceType"`
	Quantity    int       `json:"quantity"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Service は見積依頼のサービス層。すべての読み取りは所有者で絞り込む。
type Service struct {
	repo      repository.QuoteRepository
	validator *Validator
	markup    security.MarkupDetector
	publisher events.Publisher
	metrics   metrics.MetricsCollector
	timeout   time.Duration
	now       func() time.Time
}

// NewService はServiceを生成する。timeoutは1回の永続化呼び出しの上限（0以下で無制限）。
func NewService(
	repo repository.QuoteRepository,
	markup security.MarkupDetector,
	publisher events.Publisher,
	collector metrics.MetricsCollector,
	timeout time.Duration,
) *Service {
	return &Service{
		repo:      repo,
		validator: NewValidator(),
		markup:    markup,
		publisher: publisher,
		metrics:   collector,
		timeout:   timeout,
		now:       time.Now,
	}
}

// Create はownerIDの見積依頼を作成する。
// 入力文字列は加工せずに保存する。ステータスはpending、所有者はセッションのユーザーで固定される。
func (s *Service) Create(ctx context.Context, ownerID string, fields model.QuoteFields) (*model.Quote, error) {
	if err := s.validator.Validate(fields); err != nil {
		return nil, err
	}

	q := &model.Quote{
		ID:          uuid.New().String(),
		UserID:      ownerID,
		Name:        fields.Name,
		Email:       fields.Email,
		Phone:       fields.Phone,
		ServiceType: fields.ServiceType,
		Quantity:    fields.Quantity,
		Description: fields.Description,
		Status:      model.QuoteStatusPending,
		CreatedAt:   s.now().UTC(),
	}

	storeCtx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.repo.Create(storeCtx, q); err != nil {
		return nil, model.NewStorageError("create quote", err)
	}

	s.metrics.RecordQuoteCreated()
	slog.Info("quote created",
		slog.String("quote_id", q.ID),
		slog.String("user_id", ownerID),
		slog.String("service_type", q.ServiceType),
		slog.Bool("contains_markup", s.containsMarkup(fields)),
	)

	evt := CreatedEvent{
		QuoteID:     q.ID,
		UserID:      q.UserID,
		ServiceType: q.ServiceType,
		Quantity:    q.Quantity,
		CreatedAt:   q.CreatedAt,
	}
	if err := s.publisher.Publish(ctx, events.SubjectQuoteCreated, evt); err != nil {
		slog.Warn("failed to publish quote event",
			slog.String("quote_id", q.ID),
			slog.String("error", err.Error()),
		)
	}

	return q, nil
}

// ListByOwner はownerIDの見積依頼を新しい順に返す。該当なしの場合は空スライスを返す。
func (s *Service) ListByOwner(ctx context.Context, ownerID string) ([]*model.Quote, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	quotes, err := s.repo.ListByUserID(ctx, ownerID)
	if err != nil {
		return nil, model.NewStorageError("list quotes", err)
	}
	if quotes == nil {
		quotes = []*model.Quote{}
	}
	return quotes, nil
}

// GetByIDForOwner はownerIDが所有する見積依頼を返す。
// 存在しない場合と他人の見積依頼の場合は区別せずErrNotFoundを返す。
func (s *Service) GetByIDForOwner(ctx context.Context, id, ownerID string) (*model.Quote, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	q, err := s.repo.FindByIDAndUserID(ctx, id, ownerID)
	if err != nil {
		return nil, model.NewStorageError("find quote", err)
	}
	if q == nil {
		return nil, model.ErrNotFound
	}
	return q, nil
}

func (s *Service) containsMarkup(f model.QuoteFields) bool {
	for _, v := range []string{f.Name, f.Email, f.Phone, f.ServiceType, f.Description} {
		if s.markup.ContainsMarkup(v) {
			return true
		}
	}
	return false
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}
