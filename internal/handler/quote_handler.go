package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/printpress/internal/middleware"
	"github.com/hitoshi/printpress/internal/model"
)

// maxRequestBodyBytes はJSONリクエストボディの上限。
const maxRequestBodyBytes = 1 << 20

// QuoteServiceInterface は見積依頼ハンドラーが必要とするサービスインターフェース。
type QuoteServiceInterface interface {
	Create(ctx context.Context, ownerID string, fields model.QuoteFields) (*model.Quote, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*model.Quote, error)
	GetByIDForOwner(ctx context.Context, id, ownerID string) (*model.Quote, error)
}

// QuoteHandler は見積依頼のHTTPハンドラー。すべてセッションミドルウェアの内側で使用する。
type QuoteHandler struct {
	service QuoteServiceInterface
}

// NewQuoteHandler はQuoteHandlerを生成する。
func NewQuoteHandler(service QuoteServiceInterface) *QuoteHandler {
	return &QuoteHandler{service: service}
}

// CreateQuote は見積依頼を作成する。所有者とステータスはクライアントから指定できない。
// POST /api/quotes
func (h *QuoteHandler) CreateQuote(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteUnauthorized(w)
		return
	}

	var fields model.QuoteFields
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)).Decode(&fields); err != nil {
		middleware.WriteJSON(w, http.StatusBadRequest, middleware.MessageBody{
			Message: "Invalid quote request",
			Errors:  []model.FieldError{{Field: "body", Message: "must be a valid JSON object"}},
		})
		return
	}

	q, err := h.service.Create(r.Context(), userID, fields)
	if err != nil {
		handleServiceError(w, err, "Error creating quote")
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, q)
}

// ListQuotes はログインユーザーの見積依頼を新しい順に返す。
// GET /api/quotes
func (h *QuoteHandler) ListQuotes(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteUnauthorized(w)
		return
	}

	quotes, err := h.service.ListByOwner(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err, "Error fetching quotes")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, quotes)
}

// GetQuote はログインユーザーが所有する見積依頼を1件返す。
// 他ユーザーの見積依頼は存在しない場合と同じく404になる。
// GET /api/quotes/{id}
func (h *QuoteHandler) GetQuote(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteUnauthorized(w)
		return
	}

	q, err := h.service.GetByIDForOwner(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		handleServiceError(w, err, "Error fetching quote")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, q)
}
