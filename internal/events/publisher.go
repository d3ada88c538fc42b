// Package events はドメインイベントをメッセージブローカーへ通知する。
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// イベントのサブジェクト名。
const (
	SubjectQuoteCreated     = "quote.created"
	SubjectContactSubmitted = "contact.submitted"
)

// Publisher はイベントを発行するインターフェース。
// 発行は通知目的のベストエフォートで、呼び出し元はエラーをログに残すだけでよい。
type Publisher interface {
	Publish(ctx context.Context, subject string, payload any) error
}

// Conn はNATS接続のうち発行に必要な部分。*nats.Connが満たす。
type Conn interface {
	Publish(subject string, data []byte) error
}

// NATSPublisher はNATSへJSONでイベントを発行する。
type NATSPublisher struct {
	conn Conn
}

// NewNATSPublisher はNATSPublisherを生成する。
func NewNATSPublisher(conn Conn) *NATSPublisher {
	return &NATSPublisher{conn: conn}
}

// Connect はNATSサーバーに接続する。切断時は自動で再接続を試みる。
func Connect(url string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("printpress"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				slog.Warn("nats disconnected", slog.String("error", err.Error()))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			slog.Info("nats reconnected", slog.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}
	return nc, nil
}

// Publish はpayloadをJSONにエンコードしてsubjectへ発行する。
func (p *NATSPublisher) Publish(ctx context.Context, subject string, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", subject, err)
	}

	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", subject, err)
	}
	return nil
}

// NopPublisher は何も発行しないPublisher。NATS_URL未設定時に使用する。
type NopPublisher struct{}

// Publish は何もしない。
func (NopPublisher) Publish(context.Context, string, any) error {
	return nil
}

// compile-time interface checks
var (
	_ Publisher = (*NATSPublisher)(nil)
	_ Publisher = NopPublisher{}
	_ Conn      = (*nats.Conn)(nil)
)
