package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/hitoshi/printpress/internal/middleware"
	"github.com/hitoshi/printpress/internal/model"
)

// ContactServiceInterface はお問い合わせハンドラーが必要とするサービスインターフェース。
type ContactServiceInterface interface {
	Submit(ctx context.Context, in model.ContactSubmission) model.ContactSubmission
}

// ContactHandler は公開お問い合わせフォームのHTTPハンドラー。
type ContactHandler struct {
	service ContactServiceInterface
}

// NewContactHandler はContactHandlerを生成する。
func NewContactHandler(service ContactServiceInterface) *ContactHandler {
	return &ContactHandler{service: service}
}

// Submit はお問い合わせを受け付ける。認証不要。
// 構文として正しいJSONであれば型を問わず受け付け、400は構文エラーの場合のみ返す。
// POST /api/contact
func (h *ContactHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var body json.RawMessage
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)).Decode(&body)
	if err != nil && !errors.Is(err, io.EOF) {
		middleware.WriteMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	// オブジェクト以外（配列、数値など）は全項目が空として扱う
	var fields map[string]json.RawMessage
	_ = json.Unmarshal(body, &fields)

	h.service.Submit(r.Context(), model.ContactSubmission{
		Name:    contactField(fields["name"]),
		Email:   contactField(fields["email"]),
		Message: contactField(fields["message"]),
	})

	middleware.WriteMessage(w, http.StatusOK, "Contact form submitted successfully")
}

// contactField はJSON値を文字列に変換する。文字列はそのまま、nullと未指定は空文字、
// それ以外（数値、真偽値、配列、オブジェクト）はJSON表記のまま返す。
func contactField(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	if string(raw) == "null" {
		return ""
	}
	return string(raw)
}
