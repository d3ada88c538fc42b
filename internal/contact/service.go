// Package contact は公開お問い合わせフォームの受付を提供する。
package contact

import (
	"context"
	"log/slog"
	"time"

	"github.com/hitoshi/printpress/internal/events"
	"github.com/hitoshi/printpress/internal/metrics"
	"github.com/hitoshi/printpress/internal/model"
	"github.com/hitoshi/printpress/internal/security"
)

// Service はお問い合わせを記録する。送信内容は永続化せず、ログとイベントにのみ残す。
type Service struct {
	markup    security.MarkupDetector
	publisher events.Publisher
	metrics   metrics.MetricsCollector
	now       func() time.Time
}

// NewService はServiceを生成する。
func NewService(markup security.MarkupDetector, publisher events.Publisher, collector metrics.MetricsCollector) *Service {
	return &Service{
		markup:    markup,
		publisher: publisher,
		metrics:   collector,
		now:       time.Now,
	}
}

// Submit はお問い合わせを受け付ける。入力は加工しない。
// イベント発行の失敗はログに残すだけで呼び出し元には返さない。
func (s *Service) Submit(ctx context.Context, in model.ContactSubmission) model.ContactSubmission {
	sub := model.ContactSubmission{
		Name:       in.Name,
		Email:      in.Email,
		Message:    in.Message,
		ReceivedAt: s.now().UTC(),
	}

	slog.Info("contact form submission",
		slog.String("name", sub.Name),
		slog.String("email", sub.Email),
		slog.Int("message_length", len(sub.Message)),
		slog.Bool("contains_markup", s.markup.ContainsMarkup(sub.Name) || s.markup.ContainsMarkup(sub.Message)),
	)
	s.metrics.RecordContactSubmission()

	if err := s.publisher.Publish(ctx, events.SubjectContactSubmitted, sub); err != nil {
		slog.Warn("failed to publish contact event", slog.String("error", err.Error()))
	}
	return sub
}
